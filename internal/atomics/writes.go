// Helper functions that deal with atomic counters shared between pipeline stages
package atomics

import (
	"sync/atomic"
)

// Raises target to candidate if candidate is larger
func StoreMax(target *atomic.Uint64, candidate uint64) {
	for {
		current := target.Load()
		if candidate <= current {
			return
		}
		if target.CompareAndSwap(current, candidate) {
			return
		}
	}
}
