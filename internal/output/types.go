package output

import (
	"context"
	"sync"
	"time"
)

// Broker client shared by every worker. Implementations must be safe for concurrent Send.
type Sink interface {
	Send(ctx context.Context, msg []byte) (err error)
	Close() (err error)
}

// Consuming end of the queue
type Source interface {
	Pop(ctx context.Context) (msg []byte, success bool)
}

// Fixed-size group of workers draining one source into one sink
type Pool struct {
	Namespace   []string
	sink        Sink
	size        int
	sendTimeout time.Duration

	mu        sync.Mutex
	instances map[int]*instance
	started   bool

	Metrics *MetricStorage
}

type instance struct {
	worker *Worker
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// Single consumer goroutine
type Worker struct {
	Namespace   []string
	id          int
	inbox       Source
	sink        Sink
	sendTimeout time.Duration
	metrics     *MetricStorage
}
