package beats

import (
	"context"
	"errors"
	"fmt"

	lumberjack "github.com/elastic/go-lumber/client/v2"
)

// Takes a client from the pool, redialing slots lost to earlier failures.
// On error the slot has already been returned.
func (sink *Sink) borrow(ctx context.Context) (client *lumberjack.SyncClient, err error) {
	select {
	case client = <-sink.clients:
	case <-ctx.Done():
		err = fmt.Errorf("no beats connection available: %w", ctx.Err())
		return
	}
	if client != nil {
		return
	}

	client, err = sink.dial()
	if err != nil {
		// Keep the slot so the pool size stays constant
		sink.clients <- nil
		client = nil
		err = fmt.Errorf("failed reconnecting to beats server %s: %w", sink.endpoint, err)
	}
	return
}

// Gracefully stops module
func (sink *Sink) Close() (err error) {
	if sink == nil {
		return
	}
	for {
		select {
		case client := <-sink.clients:
			if client != nil {
				err = errors.Join(err, client.Close())
			}
		default:
			return
		}
	}
}
