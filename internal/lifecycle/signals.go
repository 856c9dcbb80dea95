package lifecycle

import (
	"context"
	"os"
	"os/signal"
	"syslogfwd/internal/global"
	"syslogfwd/internal/logctx"
	"syscall"
)

type DaemonLike interface {
	Shutdown()
}

// Handles all incoming signals from external sources.
// Initiates daemon shutdown on the first termination signal and returns.
func SignalHandler(ctx context.Context, daemonManager DaemonLike) {
	// Channel for handling interrupt signals
	sigChan := make(chan os.Signal, 10)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	for {
		var sig os.Signal
		select {
		case sig = <-sigChan:
		case <-ctx.Done():
			return
		}
		logctx.LogEvent(ctx, global.VerbosityStandard, global.InfoLog, "Received signal: %v\n", sig)

		if sig == syscall.SIGHUP {
			// Configuration is read once at startup
			logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog,
				"Reload is not supported, restart the service to apply configuration changes\n")
			continue
		}

		err := NotifyStopping(ctx)
		if err != nil {
			logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog, "Systemd notify stopping failed: %v\n", err)
		}

		// Initiate daemon shutdown
		daemonManager.Shutdown()

		logger := logctx.GetLogger(ctx)
		if logger != nil {
			logger.Wake()
		}
		return
	}
}
