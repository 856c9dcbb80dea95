package atomics

import (
	"sync/atomic"
	"time"
)

// Waits until atomic value reads 0 three consecutive times, polling with capped exponential backoff
func WaitUntilZero(value *atomic.Uint64, timeout time.Duration) (reachedZero bool, lastValue uint64) {
	const successfulStreakCount = 3
	const maxBackoff = 500 * time.Millisecond

	backoff := 10 * time.Millisecond
	deadline := time.Now().Add(timeout)
	zeroStreak := 0

	for {
		lastValue = value.Load()
		if lastValue == 0 {
			zeroStreak++
			if zeroStreak >= successfulStreakCount {
				reachedZero = true
				return
			}
		} else {
			zeroStreak = 0
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return
		}

		time.Sleep(min(backoff, remaining))
		backoff = min(backoff*2, maxBackoff)
	}
}
