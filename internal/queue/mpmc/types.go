package mpmc

import "sync/atomic"

type cell[T any] struct {
	seq  atomic.Uint64
	data T
}

// Bounded multi-producer multi-consumer FIFO.
// Capacity is the logical limit, the ring behind it is rounded up to a power of two.
type Queue[T any] struct {
	Namespace []string
	Capacity  uint64
	mask      uint64
	buf       []cell[T]
	head      atomic.Uint64 // next position to pop
	tail      atomic.Uint64 // next position to push
	notEmpty  chan struct{}
	notFull   chan struct{}
	Metrics   *MetricStorage
}
