// Pool of workers forwarding queued messages to the configured broker
package output

import (
	"context"
	"fmt"
	"strconv"
	"syslogfwd/internal/global"
	"syslogfwd/internal/logctx"
	"time"
)

// Creates new worker pool around an already connected sink
func NewPool(namespace []string, sink Sink, workers int, sendTimeout time.Duration) (new *Pool, err error) {
	if sink == nil {
		err = fmt.Errorf("output pool needs a sink")
		return
	}
	if workers < 1 {
		err = fmt.Errorf("output pool needs at least one worker, got %d", workers)
		return
	}

	ns := make([]string, 0, len(namespace)+1)
	ns = append(ns, namespace...)
	ns = append(ns, global.NSOut)

	new = &Pool{
		Namespace:   ns,
		sink:        sink,
		size:        workers,
		sendTimeout: sendTimeout,
		instances:   make(map[int]*instance),
		Metrics:     &MetricStorage{},
	}
	return
}

// Spawns the workers. They consume from source until Stop.
func (pool *Pool) Start(ctx context.Context, source Source) (err error) {
	pool.mu.Lock()
	defer pool.mu.Unlock()

	if pool.started {
		err = fmt.Errorf("output pool already started")
		return
	}
	pool.started = true

	for id := 0; id < pool.size; id++ {
		workerNS := append(append([]string{}, pool.Namespace...), global.NSWorker, strconv.Itoa(id))

		inst := &instance{
			worker: &Worker{
				Namespace:   workerNS,
				id:          id,
				inbox:       source,
				sink:        pool.sink,
				sendTimeout: pool.sendTimeout,
				metrics:     pool.Metrics,
			},
		}

		// Keep the logger, detach from caller cancellation
		workerCtx, cancel := context.WithCancel(context.Background())
		workerCtx = logctx.WithLogger(workerCtx, logctx.GetLogger(ctx))
		workerCtx = logctx.OverwriteCtxTag(workerCtx, workerNS)
		inst.cancel = cancel

		inst.wg.Add(1)
		go func() {
			defer inst.wg.Done()
			inst.worker.Run(workerCtx)
		}()
		pool.instances[id] = inst
	}

	logctx.LogEvent(ctx, global.VerbosityProgress, global.InfoLog,
		"Started %d output workers\n", pool.size)
	return
}

// Stops all workers. Sends already in progress finish or hit the send timeout.
func (pool *Pool) Stop() {
	pool.mu.Lock()
	defer pool.mu.Unlock()

	for _, inst := range pool.instances {
		inst.cancel()
	}
	for id, inst := range pool.instances {
		inst.wg.Wait()
		delete(pool.instances, id)
	}
}

// Stops workers then closes the sink
func (pool *Pool) Close() (err error) {
	pool.Stop()
	err = pool.sink.Close()
	return
}

// Number of running workers
func (pool *Pool) Size() (count int) {
	pool.mu.Lock()
	defer pool.mu.Unlock()
	count = len(pool.instances)
	return
}
