package output

import (
	"context"
	"fmt"
	"syslogfwd/internal/global"
	"syslogfwd/internal/logctx"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Retries dial with exponential backoff until it succeeds, ctx is done or timeout elapses
func Connect(ctx context.Context, name string, timeout time.Duration, dial func() (Sink, error)) (sink Sink, err error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 250 * time.Millisecond
	policy.MaxInterval = 5 * time.Second
	policy.MaxElapsedTime = timeout

	attempt := 0
	operation := func() (opErr error) {
		attempt++
		sink, opErr = dial()
		return
	}
	retryNotify := func(err error, next time.Duration) {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog,
			"Connecting to %s failed (attempt %d, retrying in %v): %v\n", name, attempt, next.Round(time.Millisecond), err)
	}

	err = backoff.RetryNotify(operation, backoff.WithContext(policy, ctx), retryNotify)
	if err != nil {
		sink = nil
		err = fmt.Errorf("failed connecting to %s after %d attempts: %w", name, attempt, err)
		return
	}

	logctx.LogEvent(ctx, global.VerbosityProgress, global.InfoLog,
		"Connected to %s\n", name)
	return
}

// Marks an error as not worth retrying (e.g. invalid configuration)
func Permanent(err error) error {
	return backoff.Permanent(err)
}
