//go:build linux

package dimmer

import (
	"time"

	"golang.org/x/sys/unix"
)

func processNow() time.Duration {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_PROCESS_CPUTIME_ID, &ts); err != nil {
		return monotonicNow()
	}
	return time.Duration(ts.Nano())
}
