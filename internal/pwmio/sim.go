package pwmio

import (
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"
)

// Sim is an in-memory sink that records the latest value of every output.
// It enforces the same duty ranges as Board.
type Sim struct {
	log hclog.Logger

	mu        sync.Mutex
	hw        map[int]uint32
	hwHz      map[int]int
	soft      map[int]uint32
	softRange map[int]uint32
	softHz    map[int]int
	pins      map[int]bool
	writes    int
}

type SimState struct {
	Line  int
	Mode  string // "hardware" or "software"
	Duty  uint32
	Range uint32
	Hz    int
}

func NewSim(log hclog.Logger) *Sim {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Sim{
		log:       log,
		hw:        make(map[int]uint32),
		hwHz:      make(map[int]int),
		soft:      make(map[int]uint32),
		softRange: make(map[int]uint32),
		softHz:    make(map[int]int),
		pins:      make(map[int]bool),
	}
}

func (s *Sim) HardwarePWM(line, hz int, duty uint32) error {
	if hz <= 0 {
		return fmt.Errorf("pwmio: invalid frequency %d", hz)
	}
	if duty > MaxHardwareDuty {
		return fmt.Errorf("pwmio: hardware duty %d above %d", duty, MaxHardwareDuty)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.soft, line)
	s.hw[line] = duty
	s.hwHz[line] = hz
	s.writes++
	s.log.Trace("hardware pwm", "line", line, "hz", hz, "duty", duty)
	return nil
}

func (s *Sim) SoftwarePWM(line int, duty uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rng, ok := s.softRange[line]
	if !ok {
		rng = DefaultSoftwareRange
	}
	if duty > rng {
		return fmt.Errorf("pwmio: software duty %d above range %d", duty, rng)
	}
	delete(s.hw, line)
	s.soft[line] = duty
	s.writes++
	s.log.Trace("software pwm", "line", line, "duty", duty, "range", rng)
	return nil
}

func (s *Sim) SetSoftwareRange(line int, rng uint32) error {
	if rng == 0 {
		return fmt.Errorf("pwmio: software range must be > 0")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.softRange[line] = rng
	return nil
}

func (s *Sim) SetSoftwareFrequency(line, hz int) error {
	if hz <= 0 {
		return fmt.Errorf("pwmio: invalid frequency %d", hz)
	}
	if hz > MaxSoftwareHz {
		hz = MaxSoftwareHz
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.softHz[line] = hz
	return nil
}

func (s *Sim) WritePin(pin int, high bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pins[pin] = high
	s.writes++
	s.log.Trace("pin", "pin", pin, "high", high)
	return nil
}

// Line reports the current PWM state of line.
func (s *Sim) Line(line int) (SimState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.hw[line]; ok {
		return SimState{Line: line, Mode: "hardware", Duty: d, Range: MaxHardwareDuty, Hz: s.hwHz[line]}, true
	}
	if d, ok := s.soft[line]; ok {
		rng, ok := s.softRange[line]
		if !ok {
			rng = DefaultSoftwareRange
		}
		hz, ok := s.softHz[line]
		if !ok {
			hz = DefaultSoftwareHz
		}
		return SimState{Line: line, Mode: "software", Duty: d, Range: rng, Hz: hz}, true
	}
	return SimState{}, false
}

// Pin reports the last level written to pin.
func (s *Sim) Pin(pin int) (high bool, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	high, ok = s.pins[pin]
	return high, ok
}

// Writes counts PWM and pin writes.
func (s *Sim) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *Sim) Close() error { return nil }
