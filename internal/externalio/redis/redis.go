// Redis Streams output: each encoded message becomes one stream entry
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Stream entry field holding the encoded message
const MessageField = "message"

type Config struct {
	Addr        string
	Password    string
	DB          int
	Stream      string
	MaxLen      int64 // approximate stream trim length, 0 = unbounded
	PoolSize    int
	SendTimeout time.Duration
}

type Sink struct {
	client *goredis.Client
	stream string
	maxLen int64
}

// Creates client and verifies the server answers
func New(ctx context.Context, cfg Config) (sink *Sink, err error) {
	if cfg.Addr == "" {
		err = fmt.Errorf("redis output needs an address")
		return
	}
	if cfg.Stream == "" {
		err = fmt.Errorf("redis output needs a stream name")
		return
	}

	opts := &goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}
	if cfg.SendTimeout > 0 {
		opts.ReadTimeout = cfg.SendTimeout
		opts.WriteTimeout = cfg.SendTimeout
	}
	client := goredis.NewClient(opts)

	err = client.Ping(ctx).Err()
	if err != nil {
		client.Close()
		err = fmt.Errorf("failed connecting to redis at %s: %w", cfg.Addr, err)
		return
	}

	sink = NewFromClient(client, cfg.Stream, cfg.MaxLen)
	return
}

// Wraps an existing client
func NewFromClient(client *goredis.Client, stream string, maxLen int64) (sink *Sink) {
	sink = &Sink{
		client: client,
		stream: stream,
		maxLen: maxLen,
	}
	return
}

// Appends msg to the stream
func (sink *Sink) Send(ctx context.Context, msg []byte) (err error) {
	args := &goredis.XAddArgs{
		Stream: sink.stream,
		Values: []interface{}{MessageField, msg},
	}
	if sink.maxLen > 0 {
		args.MaxLen = sink.maxLen
		args.Approx = true
	}

	err = sink.client.XAdd(ctx, args).Err()
	if err != nil {
		err = fmt.Errorf("redis XADD to %s failed: %w", sink.stream, err)
	}
	return
}

func (sink *Sink) Close() (err error) {
	if sink == nil || sink.client == nil {
		return
	}
	err = sink.client.Close()
	return
}
