package dimmer

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"lightctl/internal/mathx"
)

const (
	// DefaultFanPin is the BCM GPIO of the companion fan.
	DefaultFanPin = 4
	// DefaultFixtureTransition is the duration used by Fixture.Level.
	DefaultFixtureTransition = 200 * time.Millisecond
)

type FixtureConfig struct {
	// FanPin is the BCM GPIO of the fan output. Zero selects DefaultFanPin,
	// a negative value disables the fan.
	FanPin int
	// Transition is the default duration for Level, PowerToggle and Step.
	Transition time.Duration

	Logger hclog.Logger
}

// Fixture coordinates a set of alternative channels ("modes"), one of which
// is active at a time, plus a fan that runs whenever the light is on.
//
// Every operation holds the fixture lock for its full duration, transitions
// included, so callers from different goroutines are served one at a time.
type Fixture struct {
	mu sync.Mutex

	sink     Sink
	channels []*Channel
	active   int

	brightness float64
	last       float64

	fanPin     int
	fanOn      bool
	transition time.Duration

	log hclog.Logger
}

type Snapshot struct {
	Active         int               `json:"active"`
	Brightness     float64           `json:"brightness"`
	LastBrightness float64           `json:"last_brightness"`
	FanOn          bool              `json:"fan_on"`
	Channels       []ChannelSnapshot `json:"channels"`
}

// NewFixture takes ownership of channels and switches all of them off.
func NewFixture(sink Sink, channels []*Channel, cfg FixtureConfig) (*Fixture, error) {
	if sink == nil {
		return nil, fmt.Errorf("dimmer: sink is nil")
	}
	if len(channels) == 0 {
		return nil, ErrNoChannels
	}
	for i, ch := range channels {
		if ch == nil {
			return nil, fmt.Errorf("dimmer: channel %d is nil", i)
		}
	}
	if cfg.FanPin == 0 {
		cfg.FanPin = DefaultFanPin
	}
	if cfg.Transition <= 0 {
		cfg.Transition = DefaultFixtureTransition
	}
	if cfg.Logger == nil {
		cfg.Logger = hclog.NewNullLogger()
	}

	f := &Fixture{
		sink:       sink,
		channels:   append([]*Channel(nil), channels...),
		fanPin:     cfg.FanPin,
		transition: cfg.Transition,
		log:        cfg.Logger,
	}
	for _, ch := range f.channels {
		if err := ch.SetLevel(0, 0); err != nil {
			return nil, err
		}
	}
	if err := f.turnOff(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Fixture) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap := Snapshot{
		Active:         f.active,
		Brightness:     f.brightness,
		LastBrightness: f.last,
		FanOn:          f.fanOn,
		Channels:       make([]ChannelSnapshot, 0, len(f.channels)),
	}
	for _, ch := range f.channels {
		snap.Channels = append(snap.Channels, ch.Snapshot())
	}
	return snap
}

// Brightness is the aggregate brightness percent.
func (f *Fixture) Brightness() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.brightness
}

// AddChannel appends ch as a new mode. Channels are not checked for
// uniqueness.
func (f *Fixture) AddChannel(ch *Channel) error {
	if ch == nil {
		return fmt.Errorf("dimmer: channel is nil")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channels = append(f.channels, ch)
	return nil
}

// TurnOff switches the active channel off instantly and remembers the
// brightness for PowerToggle.
func (f *Fixture) TurnOff() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.turnOff()
}

// PowerToggle restores the remembered brightness when off, otherwise turns
// off.
func (f *Fixture) PowerToggle() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.brightness == 0 {
		return f.level(f.last, f.transition)
	}
	return f.turnOff()
}

// Level fades the active channel to percent over the fixture's default
// transition.
func (f *Fixture) Level(percent float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.level(percent, f.transition)
}

// LevelOver fades the active channel to percent over d.
func (f *Fixture) LevelOver(percent float64, d time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.level(percent, d)
}

// Step changes brightness by delta percent, saturating at 0 and 100.
func (f *Fixture) Step(delta float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.level(mathx.Clamp(f.brightness+delta, 0, 100), f.transition)
}

// ToggleMode cuts over to the next channel, wrapping after the last one. The
// outgoing channel goes dark and the incoming one takes the current
// brightness, both without a transition.
//
// If the incoming channel cannot be lit, the fixture is left off on the new
// channel with the brightness remembered for PowerToggle, and the fan follows.
func (f *Fixture) ToggleMode() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.channels[f.active].SetLevel(0, 0); err != nil {
		return err
	}
	from := f.active
	f.active = (f.active + 1) % len(f.channels)
	if err := f.channels[f.active].SetLevel(f.brightness, 0); err != nil {
		if f.brightness != 0 {
			f.last = f.brightness
		}
		f.brightness = 0
		f.log.Warn("mode toggle failed, fixture off", "to", f.active, "error", err)
		return errors.Join(err, f.checkFan())
	}
	f.log.Debug("mode toggled", "from", from, "to", f.active, "line", f.channels[f.active].Line())
	return f.checkFan()
}

func (f *Fixture) turnOff() error {
	if f.brightness != 0 {
		f.last = f.brightness
	}
	if err := f.channels[f.active].SetLevel(0, 0); err != nil {
		return err
	}
	f.brightness = 0
	f.log.Debug("turned off", "last", f.last)
	return f.checkFan()
}

func (f *Fixture) level(percent float64, d time.Duration) error {
	if err := f.channels[f.active].SetLevel(percent, d); err != nil {
		return err
	}
	f.brightness = percent
	f.log.Debug("level set", "percent", percent, "transition", d, "mode", f.active)
	return f.checkFan()
}

// checkFan drives the fan from aggregate brightness alone.
func (f *Fixture) checkFan() error {
	if f.fanPin < 0 {
		return nil
	}
	on := f.brightness != 0
	if err := f.sink.WritePin(f.fanPin, on); err != nil {
		return ioErr("fan pin", f.fanPin, err)
	}
	f.fanOn = on
	return nil
}
