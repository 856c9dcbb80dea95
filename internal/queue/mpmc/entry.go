// Multi-producer Multi-Consumer lock-free ring buffer queue with a fixed logical capacity
package mpmc

import (
	"context"
	"fmt"
	"syslogfwd/internal/atomics"
	"syslogfwd/internal/global"
	"syslogfwd/internal/logctx"
	"unsafe"

	"github.com/pbnjay/memory"
)

// Creates a new queue holding at most capacity elements
func New[T any](ctx context.Context, namespace []string, capacity uint64) (new *Queue[T], err error) {
	if capacity < 1 {
		err = fmt.Errorf("queue capacity must be at least 1")
		return
	}

	ringSize := uint64(2)
	for ringSize < capacity {
		if ringSize > 1<<62 {
			err = fmt.Errorf("queue capacity %d is too large", capacity)
			return
		}
		ringSize <<= 1
	}

	// Slots are allocated up front, refuse sizes the host can never hold
	footprint := ringSize * uint64(unsafe.Sizeof(cell[T]{}))
	total := memory.TotalMemory()
	if total > 0 && footprint > total {
		err = fmt.Errorf("queue capacity %d needs %d bytes of slots but host only has %d bytes of memory",
			capacity, footprint, total)
		return
	}
	free := memory.FreeMemory()
	if free > 0 && footprint > free/2 {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog,
			"Queue slots need %d bytes which is more than half of free memory (%d bytes)\n", footprint, free)
	}

	buf := make([]cell[T], ringSize)
	for i := uint64(0); i < ringSize; i++ {
		buf[i].seq.Store(i)
	}

	ns := make([]string, 0, len(namespace)+1)
	ns = append(ns, namespace...)
	ns = append(ns, global.NSQueue)

	new = &Queue[T]{
		Namespace: ns,
		Capacity:  capacity,
		mask:      ringSize - 1,
		buf:       buf,
		notEmpty:  make(chan struct{}, 1),
		notFull:   make(chan struct{}, 1),
		Metrics:   &MetricStorage{},
	}
	return
}

// Number of elements currently held
func (queue *Queue[T]) Len() (depth uint64) {
	depth = min(queue.Metrics.Depth.Load(), queue.Capacity)
	return
}

// Blocks until value is stored or ctx is done
func (queue *Queue[T]) PushBlocking(ctx context.Context, value T) (success bool) {
	for {
		if queue.Push(value) {
			success = true
			return
		}

		queue.Metrics.PushWaits.Add(1)
		select {
		case <-ctx.Done():
			return
		case <-queue.notFull:
		}
	}
}

// Attempts to write an element (non success = queue full)
func (queue *Queue[T]) Push(value T) (success bool) {
	var pos, seq uint64
	var slot *cell[T]

	for {
		pos = queue.tail.Load()
		head := queue.head.Load()
		if head > pos {
			// Stale tail, others moved both ends since
			continue
		}
		if pos-head >= queue.Capacity {
			queue.Metrics.PushFull.Add(1)
			return
		}

		slot = &queue.buf[pos&queue.mask]
		seq = slot.seq.Load()

		if seq == pos {
			if queue.tail.CompareAndSwap(pos, pos+1) {
				break
			}
			queue.Metrics.PushCASRetries.Add(1)
		} else if seq < pos {
			// Previous consumer of this slot has not released it yet
			queue.Metrics.PushFull.Add(1)
			return
		}
	}

	// Counted before the slot is published so a pop can never see it uncounted
	depth := queue.Metrics.Depth.Add(1)
	atomics.StoreMax(&queue.Metrics.HighWater, min(depth, queue.Capacity))
	queue.Metrics.PushSuccess.Add(1)

	slot.data = value
	slot.seq.Store(pos + 1)

	signal(queue.notEmpty)
	// Pass on a wakeup meant for more than one blocked producer
	if head := queue.head.Load(); head > pos || pos+1-head < queue.Capacity {
		signal(queue.notFull)
	}

	success = true
	return
}

// Blocks until an element is available. Returns false only if ctx is done while empty.
func (queue *Queue[T]) Pop(ctx context.Context) (out T, success bool) {
	var pos, seq uint64
	var slot *cell[T]

	for {
		pos = queue.head.Load()
		slot = &queue.buf[pos&queue.mask]
		seq = slot.seq.Load()
		readySeq := pos + 1

		if seq == readySeq {
			if queue.head.CompareAndSwap(pos, pos+1) {
				break
			}
			queue.Metrics.PopCASRetries.Add(1)
			continue
		}

		// queue empty: wait for signal or context cancel
		if seq < readySeq {
			queue.Metrics.PopWaits.Add(1)
			select {
			case <-ctx.Done():
				return
			case <-queue.notEmpty:
				continue
			}
		}
		// seq > readySeq, another consumer ahead, retry
	}

	out = slot.data
	var zero T
	slot.data = zero // release reference for GC

	// The matching push counted this element before publishing it
	queue.Metrics.Depth.Add(^uint64(0))
	queue.Metrics.PopSuccess.Add(1)

	slot.seq.Store(pos + queue.mask + 1)

	signal(queue.notFull)
	if queue.tail.Load() > pos+1 {
		signal(queue.notEmpty)
	}

	success = true
	return
}

// Non-blocking send on a 1-buffered wakeup channel
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
