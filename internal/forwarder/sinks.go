package forwarder

import (
	"context"
	"fmt"
	"syslogfwd/internal/externalio/beats"
	"syslogfwd/internal/externalio/kafka"
	"syslogfwd/internal/externalio/nats"
	"syslogfwd/internal/externalio/redis"
	"syslogfwd/internal/global"
	"syslogfwd/internal/logctx"
	"syslogfwd/internal/output"
)

// Dials the configured broker, retrying until the connect timeout
func (daemon *Daemon) connectSink(ctx context.Context) (sink output.Sink, err error) {
	if daemon.dialSink != nil {
		sink, err = daemon.dialSink(ctx)
		return
	}

	switch daemon.cfg.OutputType {
	case global.OutputTypeKafka:
		ctx = logctx.AppendCtxTag(ctx, global.NSoKafka)
	case global.OutputTypeBeats:
		ctx = logctx.AppendCtxTag(ctx, global.NSoBeats)
	case global.OutputTypeNATS:
		ctx = logctx.AppendCtxTag(ctx, global.NSoNATS)
	case global.OutputTypeRedis:
		ctx = logctx.AppendCtxTag(ctx, global.NSoRedis)
	}

	sink, err = output.Connect(ctx, daemon.cfg.OutputType, daemon.cfg.ConnectTimeout, func() (output.Sink, error) {
		return newSink(ctx, daemon.cfg)
	})
	return
}

// Creates a sink of the configured output type
func newSink(ctx context.Context, cfg Config) (sink output.Sink, err error) {
	switch cfg.OutputType {
	case global.OutputTypeKafka:
		var producer *kafka.Sink
		producer, err = kafka.New(ctx, cfg.Kafka)
		if err == nil {
			sink = producer
		}
	case global.OutputTypeBeats:
		var client *beats.Sink
		client, err = beats.New(cfg.Beats)
		if err == nil {
			sink = client
		}
	case global.OutputTypeNATS:
		var conn *nats.Sink
		conn, err = nats.New(cfg.NATS)
		if err == nil {
			sink = conn
		}
	case global.OutputTypeRedis:
		var client *redis.Sink
		client, err = redis.New(ctx, cfg.Redis)
		if err == nil {
			sink = client
		}
	default:
		err = output.Permanent(fmt.Errorf("unsupported output type %q", cfg.OutputType))
	}
	return
}
