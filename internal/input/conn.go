package input

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"runtime/debug"
	"syslogfwd/internal/codec"
	"syslogfwd/internal/framing"
	"syslogfwd/internal/global"
	"syslogfwd/internal/logctx"
	"syslogfwd/internal/network"
	"time"
)

// Reads lines from a single connection until it ends. Errors stay local to the connection.
func (instance *Instance) handleConn(ctx context.Context, conn net.Conn, sink Sink, decoder codec.Decoder, encoder codec.Encoder) {
	ctx = logctx.AppendCtxTag(ctx, global.NSConn)
	ctx = logctx.AppendCtxTag(ctx, conn.RemoteAddr().String())

	instance.Metrics.ConnsActive.Add(1)
	defer func() {
		instance.Metrics.ConnsActive.Add(^uint64(0))
		conn.Close()
	}()
	defer func() {
		// Record panics and drop only this connection
		if fatalError := recover(); fatalError != nil {
			stack := debug.Stack()
			logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
				"panic in connection handler: %v\n%s", fatalError, stack)
		}
	}()

	logctx.LogEvent(ctx, global.VerbosityProgress, global.InfoLog,
		"Connection opened from %s\n", network.RemoteHost(conn))

	if instance.tlsConfig != nil {
		tlsConn := tls.Server(conn, instance.tlsConfig)

		handshakeCtx := ctx
		if instance.cfg.IdleTimeout > 0 {
			var cancel context.CancelFunc
			handshakeCtx, cancel = context.WithTimeout(ctx, instance.cfg.IdleTimeout)
			defer cancel()
		}
		err := tlsConn.HandshakeContext(handshakeCtx)
		if err != nil {
			instance.Metrics.HandshakeFailures.Add(1)
			logctx.LogEvent(ctx, global.VerbosityProgress, global.WarnLog,
				"TLS handshake failed: %v\n", err)
			return
		}
		conn = tlsConn
	}

	counted := &countingReader{reader: conn, count: &instance.Metrics.BytesReceived}
	onDrop := func(size int) {
		instance.Metrics.LinesReceived.Add(1)
		instance.Metrics.LinesOversized.Add(1)
		logctx.LogEvent(ctx, global.VerbosityData, global.WarnLog,
			"Dropping line of %d bytes (limit %d)\n", size, instance.cfg.MaxLineLength)
	}
	scanner, err := framing.NewScanner(counted, instance.cfg.Framing, instance.cfg.MaxLineLength, instance.cfg.ReadBufferSize, onDrop)
	if err != nil {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
			"Failed creating line scanner: %v\n", err)
		return
	}

	for {
		if instance.cfg.IdleTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(instance.cfg.IdleTimeout))
		}
		if !scanner.Scan() {
			break
		}
		instance.Metrics.LinesReceived.Add(1)

		line := scanner.Text()

		rec, err := decoder.Decode(line)
		if err != nil {
			instance.Metrics.DecodeErrors.Add(1)
			logctx.LogEvent(ctx, global.VerbosityData, global.WarnLog,
				"Dropping line: %v: %q\n", err, line)
			continue
		}

		msg, err := encoder.Encode(rec)
		if err != nil {
			instance.Metrics.EncodeErrors.Add(1)
			logctx.LogEvent(ctx, global.VerbosityData, global.WarnLog,
				"Dropping line: %v\n", err)
			continue
		}

		// Stalls while the queue is full, which stops reading from the socket
		if !sink.PushBlocking(ctx, msg) {
			instance.Metrics.MessagesDropped.Add(1)
			return
		}
		instance.Metrics.MessagesPushed.Add(1)
	}

	err = scanner.Err()
	switch {
	case err == nil, errors.Is(err, io.EOF):
		logctx.LogEvent(ctx, global.VerbosityProgress, global.InfoLog, "Connection closed by peer\n")
	case ctx.Err() != nil, errors.Is(err, net.ErrClosed):
		// Shutdown
	case isTimeout(err):
		logctx.LogEvent(ctx, global.VerbosityProgress, global.InfoLog,
			"Closing connection after %v without data\n", instance.cfg.IdleTimeout)
	default:
		instance.Metrics.ConnErrors.Add(1)
		logctx.LogEvent(ctx, global.VerbosityProgress, global.WarnLog,
			"Connection ended with error: %v\n", err)
	}
}

func isTimeout(err error) (timeout bool) {
	var netErr net.Error
	timeout = errors.As(err, &netErr) && netErr.Timeout()
	return
}
