// NATS output: each encoded message is published to one subject
package nats

import (
	"context"
	"fmt"
	"syslogfwd/internal/global"
	"time"

	natsgo "github.com/nats-io/nats.go"
)

type Config struct {
	URL         string
	Subject     string
	SendTimeout time.Duration // bounds the flush on close
}

type Sink struct {
	conn    *natsgo.Conn
	subject string
	timeout time.Duration
}

// Connects to the NATS server(s) in cfg.URL
func New(cfg Config) (sink *Sink, err error) {
	if cfg.URL == "" {
		err = fmt.Errorf("nats output needs a server url")
		return
	}
	if cfg.Subject == "" {
		err = fmt.Errorf("nats output needs a subject")
		return
	}

	opts := []natsgo.Option{
		natsgo.Name(global.ProgBaseName),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(time.Second),
		natsgo.Timeout(5 * time.Second),
	}

	conn, err := natsgo.Connect(cfg.URL, opts...)
	if err != nil {
		err = fmt.Errorf("failed connecting to nats at %s: %w", cfg.URL, err)
		return
	}

	sink = &Sink{
		conn:    conn,
		subject: cfg.Subject,
		timeout: cfg.SendTimeout,
	}
	return
}

// Publishes msg. Delivery is at-most-once, buffered by the client while reconnecting.
func (sink *Sink) Send(ctx context.Context, msg []byte) (err error) {
	err = ctx.Err()
	if err != nil {
		return
	}
	err = sink.conn.Publish(sink.subject, msg)
	if err != nil {
		err = fmt.Errorf("nats publish to %s failed: %w", sink.subject, err)
	}
	return
}

// Flushes buffered publishes and closes the connection
func (sink *Sink) Close() (err error) {
	if sink == nil || sink.conn == nil {
		return
	}
	timeout := sink.timeout
	if timeout <= 0 {
		timeout = global.DefaultSendTimeout
	}
	if !sink.conn.IsClosed() {
		err = sink.conn.FlushTimeout(timeout)
		if err != nil {
			err = fmt.Errorf("nats flush on close failed: %w", err)
		}
	}
	sink.conn.Close()
	return
}
