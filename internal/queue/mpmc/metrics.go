package mpmc

import (
	"syslogfwd/internal/metrics"
	"sync/atomic"
)

type MetricStorage struct {
	Depth     atomic.Uint64 // Current items in queue
	HighWater atomic.Uint64 // Largest depth seen

	PushSuccess    atomic.Uint64 // elements stored
	PushFull       atomic.Uint64 // push attempts refused because the queue was full
	PushWaits      atomic.Uint64 // times a blocking push had to wait for space
	PushCASRetries atomic.Uint64 // CAS failed (seq==pos but CAS failed)

	PopSuccess    atomic.Uint64 // elements removed
	PopWaits      atomic.Uint64 // times a pop had to wait for an element
	PopCASRetries atomic.Uint64 // CAS failed
}

func (queue *Queue[T]) CollectMetrics() (collection []metrics.Metric) {
	// Helper to add metrics
	add := func(name string, raw interface{}, t metrics.MetricType, description string) {
		collection = append(collection, metrics.Metric{
			Name:        name,
			Description: description,
			Namespace:   queue.Namespace,
			Type:        t,
			Value: metrics.MetricValue{
				Raw:  raw,
				Unit: "count",
			},
		})
	}

	add("queue_capacity", queue.Capacity, metrics.Gauge, "Maximum number of messages the queue holds")
	add("queue_depth", queue.Metrics.Depth.Load(), metrics.Gauge, "Current number of messages in the queue")
	add("queue_high_water", queue.Metrics.HighWater.Load(), metrics.Gauge, "Largest queue depth observed")
	add("queue_push", queue.Metrics.PushSuccess.Load(), metrics.Counter, "Messages stored in the queue")
	add("queue_push_full", queue.Metrics.PushFull.Load(), metrics.Counter, "Push attempts refused because the queue was full")
	add("queue_push_waits", queue.Metrics.PushWaits.Load(), metrics.Counter, "Times a producer blocked on a full queue")
	add("queue_push_cas_retries", queue.Metrics.PushCASRetries.Load(), metrics.Counter, "Lost compare-and-swap races on push")
	add("queue_pop", queue.Metrics.PopSuccess.Load(), metrics.Counter, "Messages removed from the queue")
	add("queue_pop_waits", queue.Metrics.PopWaits.Load(), metrics.Counter, "Times a consumer blocked on an empty queue")
	add("queue_pop_cas_retries", queue.Metrics.PopCASRetries.Load(), metrics.Counter, "Lost compare-and-swap races on pop")
	return
}
