// Package buttons turns push-button presses into fixture operations.
//
// Each button is a GPIO input with a pull-up that reads low while pressed.
// Edge callbacks arrive on gpiocdev's event goroutine; they are queued and
// handled one at a time by a single dispatch goroutine, so the controller
// never sees two presses at once from this service.
package buttons

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
)

const (
	DefaultPowerPin = 17
	DefaultModePin  = 27
	DefaultUpPin    = 22
	DefaultDownPin  = 10

	DefaultStep     = 5.0
	DefaultDebounce = 100 * time.Millisecond
	DefaultConsumer = "lightctl-buttons"

	queueDepth = 16
)

// Controller is what the buttons act on. *dimmer.Fixture satisfies it.
type Controller interface {
	PowerToggle() error
	ToggleMode() error
	Step(delta float64) error
}

type Action int

const (
	Power Action = iota
	Mode
	Up
	Down
)

func (a Action) String() string {
	switch a {
	case Power:
		return "power"
	case Mode:
		return "mode"
	case Up:
		return "up"
	case Down:
		return "down"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// openInputFn requests pin as a pulled-up input and calls onPress with the
// kernel timestamp of every falling edge.
var openInputFn = openInput

type Config struct {
	Enable bool

	// Pins use BCM numbering. Zero selects the default pin, a negative value
	// leaves that button unwired.
	PowerPin int
	ModePin  int
	UpPin    int
	DownPin  int

	// Step is the brightness change in percent for up/down.
	Step float64
	// Debounce drops presses of the same button closer together than this.
	Debounce time.Duration
	Consumer string

	Logger hclog.Logger
}

type Snapshot struct {
	Enabled   bool           `json:"enabled"`
	Presses   map[string]int `json:"presses"`
	Bounced   int            `json:"bounced"`
	Dropped   int            `json:"dropped"`
	LastError string         `json:"last_error,omitempty"`
}

type press struct {
	action Action
	at     time.Duration
}

type Service struct {
	cfg  Config
	ctrl Controller
	log  hclog.Logger

	events chan press

	mu        sync.Mutex
	lastPress map[Action]time.Duration
	snap      Snapshot

	lines []io.Closer

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopCh   chan struct{}
}

func New(ctrl Controller, cfg Config) *Service {
	cfg.PowerPin = pinOrDefault(cfg.PowerPin, DefaultPowerPin)
	cfg.ModePin = pinOrDefault(cfg.ModePin, DefaultModePin)
	cfg.UpPin = pinOrDefault(cfg.UpPin, DefaultUpPin)
	cfg.DownPin = pinOrDefault(cfg.DownPin, DefaultDownPin)
	if cfg.Step <= 0 {
		cfg.Step = DefaultStep
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Consumer == "" {
		cfg.Consumer = DefaultConsumer
	}
	if cfg.Logger == nil {
		cfg.Logger = hclog.NewNullLogger()
	}
	return &Service{
		cfg:       cfg,
		ctrl:      ctrl,
		log:       cfg.Logger,
		events:    make(chan press, queueDepth),
		lastPress: make(map[Action]time.Duration),
		snap:      Snapshot{Presses: make(map[string]int)},
		stopCh:    make(chan struct{}),
	}
}

func pinOrDefault(pin, def int) int {
	if pin == 0 {
		return def
	}
	return pin
}

func (s *Service) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.snap
	out.Presses = make(map[string]int, len(s.snap.Presses))
	for k, v := range s.snap.Presses {
		out.Presses[k] = v
	}
	return out
}

// Start requests the button lines and begins dispatching. It returns once
// the lines are requested; presses are handled until ctx is done or Close.
func (s *Service) Start(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("buttons: service is nil")
	}
	if !s.cfg.Enable {
		return nil
	}
	if s.ctrl == nil {
		return fmt.Errorf("buttons: controller is nil")
	}

	wiring := []struct {
		action Action
		pin    int
	}{
		{Power, s.cfg.PowerPin},
		{Mode, s.cfg.ModePin},
		{Up, s.cfg.UpPin},
		{Down, s.cfg.DownPin},
	}
	for _, w := range wiring {
		if w.pin < 0 {
			continue
		}
		action := w.action
		line, err := openInputFn(w.pin, s.cfg.Consumer, func(at time.Duration) {
			s.enqueue(press{action: action, at: at})
		})
		if err != nil {
			s.closeLines()
			return fmt.Errorf("buttons: %s button on gpio %d: %w", action, w.pin, err)
		}
		s.lines = append(s.lines, line)
		s.log.Debug("button ready", "button", action.String(), "gpio", w.pin)
	}

	s.mu.Lock()
	s.snap.Enabled = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.dispatch(ctx)
	}()

	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.stopCh:
		}
	}()
	return nil
}

// Close stops dispatching and releases the lines. A press being handled
// finishes first.
func (s *Service) Close() {
	if s == nil {
		return
	}
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	s.wg.Wait()
	s.closeLines()
}

func (s *Service) closeLines() {
	s.mu.Lock()
	lines := s.lines
	s.lines = nil
	s.mu.Unlock()
	for _, l := range lines {
		_ = l.Close()
	}
}

func (s *Service) enqueue(p press) {
	select {
	case s.events <- p:
	default:
		s.mu.Lock()
		s.snap.Dropped++
		s.mu.Unlock()
		s.log.Warn("button queue full, press dropped", "button", p.action.String())
	}
}

func (s *Service) dispatch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case p := <-s.events:
			s.handle(p)
		}
	}
}

func (s *Service) handle(p press) {
	s.mu.Lock()
	last, seen := s.lastPress[p.action]
	if seen && p.at >= last && p.at-last < s.cfg.Debounce {
		s.snap.Bounced++
		s.mu.Unlock()
		return
	}
	s.lastPress[p.action] = p.at
	s.snap.Presses[p.action.String()]++
	s.mu.Unlock()

	var err error
	switch p.action {
	case Power:
		err = s.ctrl.PowerToggle()
	case Mode:
		err = s.ctrl.ToggleMode()
	case Up:
		err = s.ctrl.Step(s.cfg.Step)
	case Down:
		err = s.ctrl.Step(-s.cfg.Step)
	}
	if err != nil {
		s.log.Warn("button action failed", "button", p.action.String(), "error", err)
		s.mu.Lock()
		s.snap.LastError = err.Error()
		s.mu.Unlock()
		return
	}
	s.log.Debug("button", "button", p.action.String())
}
