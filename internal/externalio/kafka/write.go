package kafka

import (
	"context"
	"fmt"
	"syslogfwd/internal/metrics"

	"github.com/IBM/sarama"
)

// Hands msg to the producer. Returns once it is accepted for batching;
// broker rejections are counted and logged by the result readers.
func (sink *Sink) Send(ctx context.Context, msg []byte) (err error) {
	err = ctx.Err()
	if err != nil {
		err = fmt.Errorf("kafka produce to %s not accepted: %w", sink.topic, err)
		return
	}

	sink.mu.RLock()
	defer sink.mu.RUnlock()
	if sink.closed {
		err = fmt.Errorf("kafka producer for %s is closed", sink.topic)
		return
	}

	select {
	case sink.producer.Input() <- &sarama.ProducerMessage{
		Topic: sink.topic,
		Value: sarama.ByteEncoder(msg),
	}:
	case <-ctx.Done():
		err = fmt.Errorf("kafka produce to %s not accepted: %w", sink.topic, ctx.Err())
	}
	return
}

// Flushes pending batches, waits for their results and closes broker connections
func (sink *Sink) Close() (err error) {
	if sink == nil || sink.producer == nil {
		return
	}
	sink.mu.Lock()
	if sink.closed {
		sink.mu.Unlock()
		return
	}
	sink.closed = true
	sink.mu.Unlock()

	sink.producer.AsyncClose()
	sink.wg.Wait()
	return
}

func (sink *Sink) CollectMetrics() (collection []metrics.Metric) {
	add := func(name string, raw uint64, description string) {
		collection = append(collection, metrics.Metric{
			Name:        name,
			Description: description,
			Namespace:   sink.Namespace,
			Type:        metrics.Counter,
			Value: metrics.MetricValue{
				Raw:  raw,
				Unit: "count",
			},
		})
	}

	add("kafka_delivered", sink.Metrics.Delivered.Load(), "Messages acknowledged by the Kafka cluster")
	add("kafka_failed", sink.Metrics.Failed.Load(), "Messages the Kafka producer gave up on")
	return
}
