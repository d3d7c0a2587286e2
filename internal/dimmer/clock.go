package dimmer

import (
	"fmt"
	"strings"
	"time"
)

var monoEpoch = time.Now()

// monotonicNow reads the monotonic wall clock.
func monotonicNow() time.Duration {
	return time.Since(monoEpoch)
}

// clockByName resolves the clock used to measure transition progress.
// "process" measures CPU time consumed by this process, which tracks wall
// time while the free-running loop is spinning.
func isMonotonicClock(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "monotonic":
		return true
	}
	return false
}

func clockByName(name string) (func() time.Duration, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "monotonic":
		return monotonicNow, nil
	case "process":
		return processNow, nil
	default:
		return nil, fmt.Errorf("dimmer: unknown clock %q", name)
	}
}
