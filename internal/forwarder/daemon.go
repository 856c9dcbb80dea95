// Daemon wiring syslog input through the bounded queue to the broker output pool
package forwarder

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"syslogfwd/internal/atomics"
	"syslogfwd/internal/codec/gelf"
	"syslogfwd/internal/codec/rfc5424"
	"syslogfwd/internal/global"
	"syslogfwd/internal/input"
	"syslogfwd/internal/logctx"
	"syslogfwd/internal/metrics"
	"syslogfwd/internal/output"
	"syslogfwd/internal/queue/mpmc"
	"time"
)

// Create new forwarder daemon instance
func NewDaemon(cfg Config) (new *Daemon) {
	ctx, cancel := context.WithCancel(context.Background())
	new = &Daemon{
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
	}
	return
}

// Builds every stage output first and starts accepting connections.
// Any failure here is a FatalError and leaves nothing running.
func (daemon *Daemon) Start(globalCtx context.Context) (err error) {
	// New context for the daemon
	daemon.ctx, daemon.cancel = context.WithCancel(context.Background())
	daemon.ctx = logctx.WithLogger(daemon.ctx, logctx.GetLogger(globalCtx))
	daemon.ctx = logctx.AppendCtxTag(daemon.ctx, global.NSFwd)

	logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.InfoLog, "Starting...\n")

	defer func() {
		if err != nil {
			daemon.Shutdown()
			if !IsFatal(err) {
				err = fatal("startup failed", err)
			}
		}
	}()

	// Nothing is built for a configuration that cannot run
	daemon.cfg.setDefaults()
	err = daemon.cfg.validate()
	if err != nil {
		return
	}

	// Codecs
	daemon.decoder = rfc5424.New()
	daemon.encoder, err = gelf.New(daemon.cfg.GELFExtra)
	if err != nil {
		err = fmt.Errorf("invalid gelf extra fields: %w", err)
		return
	}

	// Broker connection
	outCtx := logctx.AppendCtxTag(daemon.ctx, global.NSOut)
	sink, err := daemon.connectSink(outCtx)
	if err != nil {
		return
	}

	// Queue between connections and workers
	daemon.Queue, err = mpmc.New[[]byte](daemon.ctx, []string{global.NSFwd}, uint64(daemon.cfg.QueueSize))
	if err != nil {
		sink.Close()
		err = fmt.Errorf("failed creating queue: %w", err)
		return
	}

	// Output workers
	daemon.Pool, err = output.NewPool([]string{global.NSFwd}, sink, daemon.cfg.Workers, daemon.cfg.SendTimeout)
	if err != nil {
		sink.Close()
		err = fmt.Errorf("failed creating output pool: %w", err)
		return
	}
	err = daemon.Pool.Start(outCtx, daemon.Queue)
	if err != nil {
		err = fmt.Errorf("failed starting output pool: %w", err)
		return
	}

	// Listener
	daemon.Input, err = input.New([]string{global.NSFwd}, daemon.cfg.Input)
	if err != nil {
		err = fmt.Errorf("failed creating input: %w", err)
		return
	}

	var inputCtx context.Context
	inputCtx, daemon.inputCancel = context.WithCancel(daemon.ctx)
	daemon.inputDone = make(chan struct{})
	go func() {
		defer close(daemon.inputDone)
		daemon.inputErr = daemon.Input.Accept(inputCtx, daemon.Queue, daemon.decoder, daemon.encoder)
	}()

	// Addr returns once bound, nil means the bind failed
	if daemon.Input.Addr() == nil {
		<-daemon.inputDone
		err = fmt.Errorf("failed listening on %s: %w", daemon.cfg.Input.ListenAddr, daemon.inputErr)
		return
	}

	// Metric Server
	if daemon.cfg.MetricServerEnabled {
		// Copy so return doesn't strip ns tags
		serverCtx := daemon.ctx
		serverCtx = logctx.AppendCtxTag(serverCtx, global.NSMetric)
		serverCtx = logctx.AppendCtxTag(serverCtx, global.NSMetricSrv)

		collector := metrics.NewCollector(global.ProgBaseName, daemon.Input, daemon.Queue, daemon.Pool)
		// Brokers with delivery counters of their own
		if source, ok := sink.(metrics.Source); ok {
			collector.Add(source)
		}
		daemon.MetricServer = metrics.SetupListener(serverCtx,
			daemon.cfg.MetricListenAddr,
			daemon.cfg.MetricPath,
			metrics.NewRegistry(collector))
		daemon.wg.Add(1)
		go func() {
			defer daemon.wg.Done()
			metrics.Start(serverCtx, daemon.MetricServer)
		}()
	}

	logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.InfoLog, "Startup complete.\n")
	return
}

// Listening address of the input, nil before Start
func (daemon *Daemon) Addr() (addr string) {
	if daemon.Input == nil {
		return
	}
	if listenAddr := daemon.Input.Addr(); listenAddr != nil {
		addr = listenAddr.String()
	}
	return
}

// Blocks until shutdown. Returns the listener error if the input stopped on its own.
func (daemon *Daemon) Run() (err error) {
	select {
	case <-daemon.ctx.Done():
	case <-daemon.inputDone:
		if daemon.inputErr != nil {
			err = fatal("input stopped", daemon.inputErr)
			logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.ErrorLog, "%v\n", err)
		}
		daemon.Shutdown()
	}
	return
}

// Gracefully shutdown pipeline (errors are printed to program log buffer)
func (daemon *Daemon) Shutdown() {
	daemon.shutdownOnce.Do(daemon.shutdown)
}

func (daemon *Daemon) shutdown() {
	logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.InfoLog,
		"Daemon shutdown started...\n")

	deadline := time.Now().Add(global.ShutdownTimeout)

	// Stop accepting, wait for connection handlers to return
	if daemon.inputCancel != nil {
		daemon.inputCancel()
		select {
		case <-daemon.inputDone:
		case <-time.After(time.Until(deadline)):
			logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.WarnLog,
				"input did not stop within %v\n", global.ShutdownTimeout)
		}
	}

	// Let workers forward what is already queued
	if daemon.Queue != nil && daemon.Pool != nil {
		success, last := atomics.WaitUntilZero(&daemon.Queue.Metrics.Depth, global.QueueDrainTimeout)
		if !success {
			logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.WarnLog,
				"queue did not empty in time: dropped %d messages\n", last)
		}
	}

	// Stop workers then close the broker client
	if daemon.Pool != nil {
		err := daemon.Pool.Close()
		if err != nil {
			logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.WarnLog,
				"failed closing output: %v\n", err)
		}
	}

	// Stop metric server
	if daemon.MetricServer != nil {
		shutdownCtx, cancel := context.WithDeadline(context.Background(), deadline)
		err := daemon.MetricServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.WarnLog,
				"metric HTTP server did not shutdown gracefully: %v\n", err)
		}
	}

	// Stop the run loop after everything is stopped
	daemon.cancel()

	// Wait for remaining background routines (with timeout)
	done := make(chan struct{})
	go func() {
		daemon.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.InfoLog,
			"Daemon shutdown completed successfully\n")
	case <-time.After(time.Until(deadline)):
		logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.InfoLog,
			"Timeout: forwarder daemon did not shutdown within %v seconds\n",
			global.ShutdownTimeout.Seconds())
	}
}
