package pwmio

import (
	"fmt"
	"sync"
)

// sharedClock tracks the frequency of every open rpio PWM line. The BCM PWM
// peripheral feeds both of its channels from one clock, so all lines must
// run at the same frequency.
type sharedClock struct {
	mu    sync.Mutex
	lines map[int]int // line -> hz
}

func newSharedClock() *sharedClock {
	return &sharedClock{lines: make(map[int]int)}
}

func (c *sharedClock) set(line, hz int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for other, otherHz := range c.lines {
		if other != line && otherHz != hz {
			return fmt.Errorf("pwmio: gpio %d at %d Hz conflicts with gpio %d at %d Hz: rpio pwm channels share one clock", line, hz, other, otherHz)
		}
	}
	c.lines[line] = hz
	return nil
}

func (c *sharedClock) release(line int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.lines, line)
}
