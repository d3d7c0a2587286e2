// Package pwmio is the hardware side of the dimmer: a Board that owns every
// PWM and GPIO resource of the process and implements dimmer.Sink.
//
// Hardware PWM goes through a driver selected at construction:
//   - "sysfs": the kernel PWM class under /sys/class/pwm (needs a pwm overlay);
//   - "rpio": memory-mapped PWM via go-rpio (Raspberry Pi only).
//
// Software PWM and plain digital outputs use the GPIO character device.
// Resources are requested lazily on first write, and a line that moves between
// hardware and software PWM releases its previous backend first.
package pwmio

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
)

const (
	// MaxHardwareDuty is full on for HardwarePWM.
	MaxHardwareDuty = 1_000_000
	// DefaultSoftwareRange matches the range used before SetSoftwareRange.
	DefaultSoftwareRange = 255
	// DefaultSoftwareHz is the software PWM frequency before
	// SetSoftwareFrequency.
	DefaultSoftwareHz = 800
	// MaxSoftwareHz caps software PWM; faster toggling is dominated by
	// scheduler jitter.
	MaxSoftwareHz = 1000

	DefaultConsumer  = "lightctl"
	DefaultSysfsBase = "/sys/class/pwm"
)

var (
	ErrUnsupported = errors.New("pwmio: unsupported on this platform")
	ErrClosed      = errors.New("pwmio: board closed")
)

// pwmDriver is one hardware PWM output. Duty is 0..MaxHardwareDuty.
//
// Close should be best-effort and leave the output dark.
type pwmDriver interface {
	Apply(hz int, duty uint32) error
	Close() error
}

// pwmBackend opens hardware PWM outputs by BCM line number.
type pwmBackend interface {
	open(line int) (pwmDriver, error)
	close() error
}

// digitalOut is a GPIO line requested as an output.
type digitalOut interface {
	SetValue(v int) error
	Close() error
}

var (
	newSysfsBackendFn = newSysfsBackend
	newRPIOBackendFn  = newRPIOBackend
	openOutputFn      = openOutput
)

type Config struct {
	// Driver is "sysfs" (default) or "rpio".
	Driver string
	// SysfsBase overrides /sys/class/pwm.
	SysfsBase string
	// Consumer labels requested GPIO lines.
	Consumer string

	Logger hclog.Logger
}

// Board owns the hardware of one process. Share a single Board between all
// channels and the fan.
type Board struct {
	cfg Config
	log hclog.Logger

	mu      sync.Mutex
	closed  bool
	backend pwmBackend
	hw      map[int]pwmDriver
	soft    map[int]*softPWM
	outs    map[int]digitalOut

	softRange map[int]uint32
	softHz    map[int]int
}

func NewBoard(cfg Config) (*Board, error) {
	cfg.Driver = strings.ToLower(strings.TrimSpace(cfg.Driver))
	if cfg.Driver == "" {
		cfg.Driver = "sysfs"
	}
	if cfg.Driver != "sysfs" && cfg.Driver != "rpio" {
		return nil, fmt.Errorf("pwmio: unknown driver %q", cfg.Driver)
	}
	if cfg.SysfsBase == "" {
		cfg.SysfsBase = DefaultSysfsBase
	}
	if cfg.Consumer == "" {
		cfg.Consumer = DefaultConsumer
	}
	if cfg.Logger == nil {
		cfg.Logger = hclog.NewNullLogger()
	}
	return &Board{
		cfg:       cfg,
		log:       cfg.Logger,
		hw:        make(map[int]pwmDriver),
		soft:      make(map[int]*softPWM),
		outs:      make(map[int]digitalOut),
		softRange: make(map[int]uint32),
		softHz:    make(map[int]int),
	}, nil
}

func (b *Board) HardwarePWM(line, hz int, duty uint32) error {
	if hz <= 0 {
		return fmt.Errorf("pwmio: invalid frequency %d", hz)
	}
	if duty > MaxHardwareDuty {
		return fmt.Errorf("pwmio: hardware duty %d above %d", duty, MaxHardwareDuty)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}

	drv, ok := b.hw[line]
	if !ok {
		backend, err := b.pwmBackend()
		if err != nil {
			return err
		}
		b.releaseSoft(line)
		drv, err = backend.open(line)
		if err != nil {
			return err
		}
		b.hw[line] = drv
		b.log.Debug("hardware pwm opened", "line", line, "driver", b.cfg.Driver)
	}
	return drv.Apply(hz, duty)
}

func (b *Board) SoftwarePWM(line int, duty uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	rng := b.rangeFor(line)
	if duty > rng {
		return fmt.Errorf("pwmio: software duty %d above range %d", duty, rng)
	}

	s, ok := b.soft[line]
	if !ok {
		b.releaseHardware(line)
		out, err := openOutputFn(line, b.cfg.Consumer)
		if err != nil {
			return err
		}
		s = startSoftPWM(out, rng, b.hzFor(line), b.log.With("line", line))
		b.soft[line] = s
		b.log.Debug("software pwm started", "line", line, "range", rng, "hz", b.hzFor(line))
	}
	s.setDuty(duty)
	return nil
}

func (b *Board) SetSoftwareRange(line int, rng uint32) error {
	if rng == 0 {
		return fmt.Errorf("pwmio: software range must be > 0")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	b.softRange[line] = rng
	if s, ok := b.soft[line]; ok {
		s.setRange(rng)
	}
	return nil
}

// SetSoftwareFrequency sets the software PWM frequency of line, capped at
// MaxSoftwareHz. It takes effect immediately if the line is running software
// PWM and is remembered otherwise.
func (b *Board) SetSoftwareFrequency(line, hz int) error {
	if hz <= 0 {
		return fmt.Errorf("pwmio: invalid frequency %d", hz)
	}
	if hz > MaxSoftwareHz {
		hz = MaxSoftwareHz
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	b.softHz[line] = hz
	if s, ok := b.soft[line]; ok {
		s.setFrequency(hz)
	}
	return nil
}

func (b *Board) WritePin(pin int, high bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	out, ok := b.outs[pin]
	if !ok {
		var err error
		out, err = openOutputFn(pin, b.cfg.Consumer)
		if err != nil {
			return err
		}
		b.outs[pin] = out
	}
	v := 0
	if high {
		v = 1
	}
	return out.SetValue(v)
}

// Close darkens and releases every output. The Board cannot be used after.
func (b *Board) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	var errs []error
	for line, s := range b.soft {
		errs = append(errs, s.close())
		delete(b.soft, line)
	}
	for line, drv := range b.hw {
		errs = append(errs, drv.Close())
		delete(b.hw, line)
	}
	for pin, out := range b.outs {
		_ = out.SetValue(0)
		errs = append(errs, out.Close())
		delete(b.outs, pin)
	}
	if b.backend != nil {
		errs = append(errs, b.backend.close())
		b.backend = nil
	}
	return errors.Join(errs...)
}

func (b *Board) pwmBackend() (pwmBackend, error) {
	if b.backend != nil {
		return b.backend, nil
	}
	var (
		backend pwmBackend
		err     error
	)
	switch b.cfg.Driver {
	case "rpio":
		backend, err = newRPIOBackendFn()
	default:
		backend, err = newSysfsBackendFn(b.cfg.SysfsBase)
	}
	if err != nil {
		return nil, err
	}
	b.log.Info("hardware pwm backend ready", "driver", b.cfg.Driver)
	b.backend = backend
	return backend, nil
}

func (b *Board) releaseSoft(line int) {
	s, ok := b.soft[line]
	if !ok {
		return
	}
	if err := s.close(); err != nil {
		b.log.Warn("release software pwm", "line", line, "error", err)
	}
	delete(b.soft, line)
}

func (b *Board) releaseHardware(line int) {
	drv, ok := b.hw[line]
	if !ok {
		return
	}
	if err := drv.Close(); err != nil {
		b.log.Warn("release hardware pwm", "line", line, "error", err)
	}
	delete(b.hw, line)
}

func (b *Board) rangeFor(line int) uint32 {
	if r, ok := b.softRange[line]; ok {
		return r
	}
	return DefaultSoftwareRange
}

func (b *Board) hzFor(line int) int {
	if hz, ok := b.softHz[line]; ok {
		return hz
	}
	return DefaultSoftwareHz
}
