//go:build linux && (arm || arm64)

package pwmio

import (
	"fmt"

	"github.com/stianeikeland/go-rpio/v4"
)

// rpioMaxClock is the highest PWM clock go-rpio accepts (the 19.2 MHz
// oscillator divided by two).
const rpioMaxClock = 9_600_000

var (
	rpioOpenFn  = rpio.Open
	rpioCloseFn = rpio.Close
)

// rpioBackend drives the PWM peripheral through /dev/gpiomem. The mapping is
// process-wide in go-rpio, so the backend opens it once and every driver
// shares it until close.
type rpioBackend struct {
	clock *sharedClock
}

func newRPIOBackend() (pwmBackend, error) {
	if err := rpioOpenFn(); err != nil {
		return nil, fmt.Errorf("pwmio: rpio open: %w", err)
	}
	return &rpioBackend{clock: newSharedClock()}, nil
}

func (b *rpioBackend) open(line int) (pwmDriver, error) {
	switch line {
	case 12, 13, 18, 19:
	default:
		return nil, fmt.Errorf("pwmio: gpio %d has no hardware pwm channel", line)
	}
	pin := rpio.Pin(line)
	pin.Mode(rpio.Pwm)
	return &rpioPWM{pin: pin, line: line, clock: b.clock}, nil
}

func (b *rpioBackend) close() error {
	return rpioCloseFn()
}

// rpioPWM maps a 0..MaxHardwareDuty duty onto the cycle length that gives the
// requested output frequency at the fastest usable clock.
type rpioPWM struct {
	pin   rpio.Pin
	line  int
	clock *sharedClock
	hz    int
	cycle uint32
}

func (p *rpioPWM) Apply(hz int, duty uint32) error {
	if hz <= 0 {
		return fmt.Errorf("pwmio: invalid frequency %d", hz)
	}
	if hz != p.hz {
		cycle := uint32(rpioMaxClock / hz)
		if cycle < 2 {
			return fmt.Errorf("pwmio: frequency %d Hz too high for rpio", hz)
		}
		if err := p.clock.set(p.line, hz); err != nil {
			return err
		}
		p.pin.Freq(hz * int(cycle))
		p.hz = hz
		p.cycle = cycle
	}
	p.pin.DutyCycle(uint32(uint64(duty)*uint64(p.cycle)/MaxHardwareDuty), p.cycle)
	return nil
}

func (p *rpioPWM) Close() error {
	if p.cycle > 0 {
		p.pin.DutyCycle(0, p.cycle)
	}
	p.clock.release(p.line)
	return nil
}
