// Kafka output: one produced record per encoded message
package kafka

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"syslogfwd/internal/global"
	"syslogfwd/internal/logctx"
	"time"

	"github.com/IBM/sarama"
)

type Config struct {
	Brokers     []string
	Topic       string
	Acks        string // none, local or all
	Compression string // none, gzip, snappy, lz4 or zstd
	Coalesce    int    // messages batched per request, 0 or 1 sends immediately
	ClientID    string
	SendTimeout time.Duration
}

// Messages are handed to an async producer; broker results arrive on its channels
type Sink struct {
	Namespace []string
	producer  sarama.AsyncProducer
	topic     string

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup // result readers

	Metrics *MetricStorage
}

type MetricStorage struct {
	Delivered atomic.Uint64 // acknowledged by the broker
	Failed    atomic.Uint64 // rejected after the producer gave up
}

// Connects an asynchronous producer to the cluster
func New(ctx context.Context, cfg Config) (sink *Sink, err error) {
	if len(cfg.Brokers) == 0 {
		err = fmt.Errorf("kafka output needs at least one broker")
		return
	}
	if cfg.Topic == "" {
		err = fmt.Errorf("kafka output needs a topic")
		return
	}

	saramaConfig, err := NewSaramaConfig(cfg)
	if err != nil {
		return
	}

	producer, err := sarama.NewAsyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		err = fmt.Errorf("failed to start kafka producer for %s: %w", strings.Join(cfg.Brokers, ","), err)
		return
	}
	sink = NewFromProducer(ctx, producer, cfg.Topic)
	return
}

// Wraps an existing producer and starts reading its results.
// The producer must return both successes and errors.
func NewFromProducer(ctx context.Context, producer sarama.AsyncProducer, topic string) (sink *Sink) {
	sink = &Sink{
		Namespace: []string{global.NSFwd, global.NSOut, global.NSoKafka},
		producer:  producer,
		topic:     topic,
		Metrics:   &MetricStorage{},
	}

	sink.wg.Add(2)
	go func() {
		defer sink.wg.Done()
		for range producer.Successes() {
			sink.Metrics.Delivered.Add(1)
		}
	}()
	go func() {
		defer sink.wg.Done()
		for produceErr := range producer.Errors() {
			sink.Metrics.Failed.Add(1)
			logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
				"Kafka produce to %s failed, dropping message: %v\n", sink.topic, produceErr.Err)
		}
	}()
	return
}

// Translates output settings into producer configuration
func NewSaramaConfig(cfg Config) (config *sarama.Config, err error) {
	config = sarama.NewConfig()

	config.ClientID = cfg.ClientID
	if config.ClientID == "" {
		config.ClientID = global.DefaultKafkaClientID
	}

	// Both are read into the sink counters
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true

	switch cfg.Acks {
	case "none":
		config.Producer.RequiredAcks = sarama.NoResponse
	case "local", "":
		config.Producer.RequiredAcks = sarama.WaitForLocal
	case "all":
		config.Producer.RequiredAcks = sarama.WaitForAll // Wait for all in-sync replicas to ack the message
	default:
		config = nil
		err = fmt.Errorf("unknown kafka acks %q (valid: none, local, all)", cfg.Acks)
		return
	}

	switch cfg.Compression {
	case "none", "":
		config.Producer.Compression = sarama.CompressionNone
	case "gzip":
		config.Producer.Compression = sarama.CompressionGZIP
	case "snappy":
		config.Producer.Compression = sarama.CompressionSnappy
	case "lz4":
		config.Producer.Compression = sarama.CompressionLZ4
	case "zstd":
		config.Producer.Compression = sarama.CompressionZSTD
		config.Version = sarama.V2_1_0_0
	default:
		config = nil
		err = fmt.Errorf("unknown kafka compression %q (valid: none, gzip, snappy, lz4, zstd)", cfg.Compression)
		return
	}

	if cfg.Coalesce > 1 {
		config.Producer.Flush.Messages = cfg.Coalesce
		config.Producer.Flush.Frequency = time.Second // Flush partial batches every 1s
	}

	if cfg.SendTimeout > 0 {
		config.Producer.Timeout = cfg.SendTimeout
		config.Net.WriteTimeout = cfg.SendTimeout
		config.Net.ReadTimeout = cfg.SendTimeout
	}

	err = config.Validate()
	if err != nil {
		config = nil
		err = fmt.Errorf("invalid kafka producer configuration: %w", err)
	}
	return
}
