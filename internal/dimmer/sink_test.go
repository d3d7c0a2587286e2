package dimmer

import (
	"errors"
	"sync"
	"time"
)

var errBoom = errors.New("boom")

type sinkWrite struct {
	kind string // "hw", "sw", "range", "freq", "pin"
	line int
	hz   int
	duty uint32
	high bool
}

type fakeSink struct {
	mu     sync.Mutex
	writes []sinkWrite

	// failAfter makes PWM writes fail once that many have succeeded.
	// Zero never fails.
	failAfter int
	pwmOK     int
	failPins  bool
}

func (s *fakeSink) record(w sinkWrite) {
	s.writes = append(s.writes, w)
}

func (s *fakeSink) pwm(w sinkWrite) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAfter > 0 && s.pwmOK >= s.failAfter {
		return errBoom
	}
	s.pwmOK++
	s.record(w)
	return nil
}

func (s *fakeSink) HardwarePWM(line, hz int, duty uint32) error {
	return s.pwm(sinkWrite{kind: "hw", line: line, hz: hz, duty: duty})
}

func (s *fakeSink) SoftwarePWM(line int, duty uint32) error {
	return s.pwm(sinkWrite{kind: "sw", line: line, duty: duty})
}

func (s *fakeSink) SetSoftwareRange(line int, rng uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(sinkWrite{kind: "range", line: line, duty: rng})
	return nil
}

func (s *fakeSink) SetSoftwareFrequency(line, hz int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(sinkWrite{kind: "freq", line: line, hz: hz})
	return nil
}

func (s *fakeSink) WritePin(pin int, high bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPins {
		return errBoom
	}
	s.record(sinkWrite{kind: "pin", line: pin, high: high})
	return nil
}

func (s *fakeSink) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = nil
}

// duties returns the duty of every write of kind on line, in order.
func (s *fakeSink) duties(kind string, line int) []uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []uint32
	for _, w := range s.writes {
		if w.kind == kind && w.line == line {
			out = append(out, w.duty)
		}
	}
	return out
}

func (s *fakeSink) filter(kind string) []sinkWrite {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []sinkWrite
	for _, w := range s.writes {
		if w.kind == kind {
			out = append(out, w)
		}
	}
	return out
}

// pin returns the last level written to pin.
func (s *fakeSink) pin(pin int) (high bool, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.writes) - 1; i >= 0; i-- {
		w := s.writes[i]
		if w.kind == "pin" && w.line == pin {
			return w.high, true
		}
	}
	return false, false
}

// steppingClock advances by step on every reading.
func steppingClock(step time.Duration) func() time.Duration {
	var now time.Duration
	return func() time.Duration {
		now += step
		return now
	}
}
