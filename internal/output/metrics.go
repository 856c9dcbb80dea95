package output

import (
	"syslogfwd/internal/metrics"
	"sync/atomic"
)

// Shared by all workers of a pool
type MetricStorage struct {
	Sent         atomic.Uint64 // messages accepted by the broker client
	BytesSent    atomic.Uint64 // payload bytes accepted by the broker client
	SendFailures atomic.Uint64 // messages dropped after a failed send
	Panics       atomic.Uint64 // recovered panics
	InFlight     atomic.Uint64 // sends currently in progress
}

func (pool *Pool) CollectMetrics() (collection []metrics.Metric) {
	add := func(name string, raw uint64, unit string, t metrics.MetricType, description string) {
		collection = append(collection, metrics.Metric{
			Name:        name,
			Description: description,
			Namespace:   pool.Namespace,
			Type:        t,
			Value: metrics.MetricValue{
				Raw:  raw,
				Unit: unit,
			},
		})
	}

	add("messages_sent", pool.Metrics.Sent.Load(), "count", metrics.Counter, "Messages accepted by the broker client")
	add("sent", pool.Metrics.BytesSent.Load(), "bytes", metrics.Counter, "Payload bytes accepted by the broker client")
	add("send_failures", pool.Metrics.SendFailures.Load(), "count", metrics.Counter, "Messages dropped after a failed send")
	add("worker_panics", pool.Metrics.Panics.Load(), "count", metrics.Counter, "Recovered panics in output workers")
	add("sends_in_flight", pool.Metrics.InFlight.Load(), "count", metrics.Gauge, "Sends currently in progress")
	add("workers", uint64(pool.Size()), "count", metrics.Gauge, "Running output workers")
	return
}
