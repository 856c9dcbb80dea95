package beats

import (
	"context"
	"encoding/json"
	"fmt"
)

// Sends msg as a single event. The event is the encoded document itself.
func (sink *Sink) Send(ctx context.Context, msg []byte) (err error) {
	client, err := sink.borrow(ctx)
	if err != nil {
		return
	}

	events := []interface{}{json.RawMessage(msg)}
	_, err = client.Send(events)
	if err != nil {
		// Connection state is unknown after a failed batch, redial on next borrow
		client.Close()
		sink.clients <- nil
		err = fmt.Errorf("beats send to %s failed: %w", sink.endpoint, err)
		return
	}

	sink.clients <- client
	return
}
