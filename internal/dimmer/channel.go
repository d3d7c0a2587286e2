// Package dimmer is the perceptual PWM dimming engine: channels that fade a
// single PWM output along an easing curve, and a fixture that coordinates a
// set of channels with a companion fan.
package dimmer

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"lightctl/internal/easing"
	"lightctl/internal/mathx"
)

// Mode selects how a channel generates its PWM signal.
type Mode int

const (
	// Hardware is timer-driven PWM: fine resolution and stable pulses, but
	// only on the few lines wired to a PWM peripheral.
	Hardware Mode = iota
	// Software is PWM bit-banged on a plain GPIO line. Coarser, any line.
	Software
)

func (m Mode) String() string {
	switch m {
	case Hardware:
		return "hardware"
	case Software:
		return "software"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode accepts "hardware"/"strong" and "software"/"weak".
// An empty string selects Hardware.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "hardware", "strong":
		return Hardware, nil
	case "software", "weak":
		return Software, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

const (
	// HardwareMaxDuty is full on for HardwarePWM.
	HardwareMaxDuty = 1_000_000
	// SoftwareRange is full on for SoftwarePWM.
	SoftwareRange = 10_000

	hardwareScale = HardwareMaxDuty / 100
	softwareScale = SoftwareRange / 100

	DefaultFrequencyHz = 20_000
	// DefaultChannelTransition is the duration used by Channel.Fade.
	DefaultChannelTransition = time.Second
)

var sleep = time.Sleep

type ChannelConfig struct {
	// Line is the BCM GPIO number driven by this channel.
	Line int
	// FrequencyHz defaults to 20 kHz.
	FrequencyHz int
	// Mode is parsed with ParseMode.
	Mode string
	// Curve shapes transitions; defaults to easing.OutQuint.
	Curve easing.Func
	// Transition is the Fade duration; defaults to one second.
	Transition time.Duration
	// Frame, when positive, is slept between transition samples. Zero keeps
	// the loop free-running.
	Frame time.Duration
	// Clock is "monotonic" (default) or "process". The process clock stands
	// still while the loop sleeps, so it cannot be combined with Frame.
	Clock string

	Logger hclog.Logger
}

// Channel drives one PWM output.
//
// Brightness is held in the hardware duty scale (0..HardwareMaxDuty) whatever
// the current mode; software writes divide it down.
//
// Not safe for concurrent use.
type Channel struct {
	sink Sink
	line int
	hz   int
	mode Mode

	duty    float64
	percent float64

	curve easing.Func
	fade  time.Duration
	frame time.Duration
	now   func() time.Duration
	log   hclog.Logger
}

type ChannelSnapshot struct {
	Line        int     `json:"line"`
	FrequencyHz int     `json:"frequency_hz"`
	Mode        string  `json:"mode"`
	Duty        uint32  `json:"duty"`
	Percent     float64 `json:"percent"`
}

// NewChannel creates a channel at brightness zero and programs its mode.
func NewChannel(sink Sink, cfg ChannelConfig) (*Channel, error) {
	if sink == nil {
		return nil, fmt.Errorf("dimmer: sink is nil")
	}
	if cfg.Line < 0 {
		return nil, fmt.Errorf("dimmer: invalid line %d", cfg.Line)
	}
	if cfg.FrequencyHz == 0 {
		cfg.FrequencyHz = DefaultFrequencyHz
	}
	if cfg.FrequencyHz < 0 {
		return nil, fmt.Errorf("dimmer: invalid frequency %d", cfg.FrequencyHz)
	}
	if cfg.Curve == nil {
		cfg.Curve = easing.OutQuint
	}
	if cfg.Transition <= 0 {
		cfg.Transition = DefaultChannelTransition
	}
	if cfg.Logger == nil {
		cfg.Logger = hclog.NewNullLogger()
	}
	mode, err := ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	now, err := clockByName(cfg.Clock)
	if err != nil {
		return nil, err
	}
	if cfg.Frame > 0 && !isMonotonicClock(cfg.Clock) {
		return nil, fmt.Errorf("dimmer: frame pacing requires the monotonic clock")
	}

	c := &Channel{
		sink:  sink,
		line:  cfg.Line,
		hz:    cfg.FrequencyHz,
		mode:  mode,
		curve: cfg.Curve,
		fade:  cfg.Transition,
		frame: cfg.Frame,
		now:   now,
		log:   cfg.Logger.With("line", cfg.Line),
	}
	if err := c.SetMode(mode); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Channel) Line() int  { return c.line }
func (c *Channel) Mode() Mode { return c.mode }

// Percent is the human brightness last set successfully.
func (c *Channel) Percent() float64 { return c.percent }

// Duty is the stored brightness in the current mode's duty scale.
func (c *Channel) Duty() uint32 { return uint32(c.native(c.duty)) }

func (c *Channel) Snapshot() ChannelSnapshot {
	return ChannelSnapshot{
		Line:        c.line,
		FrequencyHz: c.hz,
		Mode:        c.mode.String(),
		Duty:        c.Duty(),
		Percent:     c.percent,
	}
}

// SetMode switches backend and re-emits the stored brightness in the new
// mode's duty scale.
func (c *Channel) SetMode(m Mode) error {
	switch m {
	case Hardware:
		if err := c.sink.HardwarePWM(c.line, c.hz, uint32(c.duty)); err != nil {
			return ioErr("line", c.line, err)
		}
	case Software:
		if err := c.sink.SetSoftwareRange(c.line, SoftwareRange); err != nil {
			return ioErr("line", c.line, err)
		}
		if err := c.sink.SetSoftwareFrequency(c.line, c.hz); err != nil {
			return ioErr("line", c.line, err)
		}
		if err := c.sink.SoftwarePWM(c.line, uint32(c.duty/(hardwareScale/softwareScale))); err != nil {
			return ioErr("line", c.line, err)
		}
	default:
		return fmt.Errorf("%w: %v", ErrInvalidMode, m)
	}
	if m != c.mode {
		c.log.Debug("mode changed", "from", c.mode, "to", m)
	}
	c.mode = m
	return nil
}

// SetFrequency changes the PWM frequency. In hardware mode frequency and
// brightness are re-applied in one write.
func (c *Channel) SetFrequency(hz int) error {
	if hz <= 0 {
		return fmt.Errorf("dimmer: invalid frequency %d", hz)
	}
	if err := c.sink.SetSoftwareFrequency(c.line, hz); err != nil {
		return ioErr("line", c.line, err)
	}
	if c.mode == Hardware {
		if err := c.sink.HardwarePWM(c.line, hz, uint32(c.duty)); err != nil {
			return ioErr("line", c.line, err)
		}
	}
	c.hz = hz
	return nil
}

// Fade is SetLevel with the channel's default transition.
func (c *Channel) Fade(percent float64) error {
	return c.SetLevel(percent, c.fade)
}

// SetLevel moves the channel to percent (0..100) over transition.
//
// The percent is perceptually corrected and scaled into the current mode's
// duty range, then the output follows the channel curve from the current duty
// to the target, sampling as often as the sink accepts writes. The call
// blocks for the whole transition and cannot be interrupted. The target is
// written once more at the end so no rounding error is left behind.
//
// A failed write aborts the transition; the stored brightness is then the
// last value written successfully.
func (c *Channel) SetLevel(percent float64, transition time.Duration) error {
	if !validPercent(percent) {
		return fmt.Errorf("%w: %v", ErrLevelRange, percent)
	}

	ratio := c.ratio()
	old := c.duty / ratio
	target := Correct(percent) * c.scale()
	delta := target - old
	written := old

	if transition > 0 {
		d := transition.Seconds()
		start := c.now()
		for {
			elapsed := c.now() - start
			if elapsed >= transition {
				break
			}
			v := c.clampNative(c.curve(elapsed.Seconds(), old, delta, d))
			if err := c.write(uint32(v)); err != nil {
				c.duty = written * ratio
				return err
			}
			written = float64(uint32(v))
			if c.frame > 0 {
				sleep(c.frame)
			}
		}
	}

	if err := c.write(uint32(target)); err != nil {
		c.duty = written * ratio
		return err
	}
	c.duty = target * ratio
	c.percent = percent
	return nil
}

func (c *Channel) write(duty uint32) error {
	var err error
	if c.mode == Software {
		err = c.sink.SoftwarePWM(c.line, duty)
	} else {
		err = c.sink.HardwarePWM(c.line, c.hz, duty)
	}
	if err != nil {
		return ioErr("line", c.line, err)
	}
	return nil
}

// scale converts a corrected percent into the current mode's duty units.
func (c *Channel) scale() float64 {
	if c.mode == Software {
		return softwareScale
	}
	return hardwareScale
}

// ratio converts the current mode's duty units into hardware duty units.
func (c *Channel) ratio() float64 {
	return hardwareScale / c.scale()
}

func (c *Channel) native(hwDuty float64) float64 {
	return hwDuty / c.ratio()
}

// clampNative keeps overshooting curves (back, elastic) inside the sink's
// accepted range.
func (c *Channel) clampNative(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return mathx.Clamp(v, 0, 100*c.scale())
}
