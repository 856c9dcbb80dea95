package input

import (
	"context"
	"errors"
	"net"
	"syslogfwd/internal/codec"
	"syslogfwd/internal/global"
	"syslogfwd/internal/logctx"
	"syslogfwd/internal/network"
	"time"
)

// Binds the configured address and serves connections until ctx is done.
// Returns nil on cancellation and an error if the socket cannot be bound or fails.
func (instance *Instance) Accept(ctx context.Context, sink Sink, decoder codec.Decoder, encoder codec.Encoder) (err error) {
	ctx = logctx.OverwriteCtxTag(ctx, instance.Namespace)

	listener, err := network.ListenTCP(ctx, instance.cfg.ListenAddr, network.ListenOptions{
		ReusePort: instance.cfg.ReusePort,
	})
	if err != nil {
		close(instance.ready)
		return
	}

	instance.mu.Lock()
	instance.listener = listener
	instance.mu.Unlock()
	close(instance.ready)

	logctx.LogEvent(ctx, global.VerbosityStandard, global.InfoLog,
		"Listening for %s connections on %s\n", instance.cfg.Type, listener.Addr())

	// Unblock Accept on shutdown
	stopped := make(chan struct{})
	defer close(stopped)
	go func() {
		select {
		case <-ctx.Done():
		case <-stopped:
		}
		listener.Close()
	}()

	defer func() {
		instance.closeConnections()
		instance.wg.Wait()
	}()

	retryDelay := 5 * time.Millisecond
	for {
		var conn net.Conn
		conn, err = listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				err = nil
				return
			}

			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				// Transient (e.g. out of file descriptors), back off and retry
				logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog,
					"Failed accepting connection (retrying in %v): %v\n", retryDelay, err)
				time.Sleep(retryDelay)
				retryDelay = min(retryDelay*2, time.Second)
				continue
			}
			return
		}
		retryDelay = 5 * time.Millisecond

		instance.track(conn)
		instance.Metrics.ConnsAccepted.Add(1)

		instance.wg.Add(1)
		go func() {
			defer instance.wg.Done()
			defer instance.untrack(conn)
			instance.handleConn(ctx, conn, sink, decoder, encoder)
		}()
	}
}

func (instance *Instance) track(conn net.Conn) {
	instance.mu.Lock()
	defer instance.mu.Unlock()
	instance.conns[conn] = struct{}{}
}

func (instance *Instance) untrack(conn net.Conn) {
	instance.mu.Lock()
	defer instance.mu.Unlock()
	delete(instance.conns, conn)
}

// Closes every open connection so handlers unblock from reads
func (instance *Instance) closeConnections() {
	instance.mu.Lock()
	defer instance.mu.Unlock()
	for conn := range instance.conns {
		conn.Close()
	}
}
