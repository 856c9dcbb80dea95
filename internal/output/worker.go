package output

import (
	"context"
	"runtime/debug"
	"syslogfwd/internal/global"
	"syslogfwd/internal/logctx"
)

// Pops and sends until ctx is done. A failed send drops the message.
func (worker *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		func() {
			// Record panics and continue working
			defer func() {
				if fatalError := recover(); fatalError != nil {
					worker.metrics.Panics.Add(1)
					stack := debug.Stack()
					logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
						"panic in output worker thread: %v\n%s", fatalError, stack)
				}
			}()

			msg, ok := worker.inbox.Pop(ctx)
			if !ok {
				return
			}

			worker.metrics.InFlight.Add(1)
			defer worker.metrics.InFlight.Add(^uint64(0))

			// In-flight sends outlive worker cancellation, bounded by the send timeout
			sendCtx := context.WithoutCancel(ctx)
			if worker.sendTimeout > 0 {
				var cancel context.CancelFunc
				sendCtx, cancel = context.WithTimeout(sendCtx, worker.sendTimeout)
				defer cancel()
			}

			err := worker.sink.Send(sendCtx, msg)
			if err != nil {
				worker.metrics.SendFailures.Add(1)
				logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
					"Failed to send message, dropping it: %v\n", err)
				return
			}

			worker.metrics.Sent.Add(1)
			worker.metrics.BytesSent.Add(uint64(len(msg)))
			logctx.LogEvent(ctx, global.VerbosityData, global.InfoLog,
				"Sent message (size %d)\n", len(msg))
		}()
	}
}
