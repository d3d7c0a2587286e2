//go:build !linux

package dimmer

import "time"

// Process CPU time is only read on Linux; elsewhere fall back to wall time.
func processNow() time.Duration {
	return monotonicNow()
}
