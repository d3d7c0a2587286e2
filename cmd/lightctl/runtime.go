package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/hashicorp/go-hclog"

	"lightctl/internal/config"
	"lightctl/internal/dimmer"
	"lightctl/internal/easing"
	"lightctl/internal/pwmio"
)

type sink interface {
	dimmer.Sink
	io.Closer
}

var newBoardFn = func(cfg pwmio.Config) (sink, error) {
	b, err := pwmio.NewBoard(cfg)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// runtime is everything built from one config: the output sink, the
// channels in config order and the fixture that owns them.
type runtime struct {
	cfg      config.Config
	log      hclog.Logger
	sink     sink
	sim      *pwmio.Sim
	fixture  *dimmer.Fixture
	channels []*dimmer.Channel
}

func loadConfig(opts *rootOptions) (config.Config, error) {
	if opts.configPath == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("config load failed: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg config.LogConfig, w io.Writer) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:       "lightctl",
		Level:      hclog.LevelFromString(cfg.Level),
		JSONFormat: cfg.JSON,
		Output:     w,
	})
}

func buildRuntime(cfg config.Config, dryRun bool, log hclog.Logger) (*runtime, error) {
	rt := &runtime{cfg: cfg, log: log}

	if dryRun || cfg.Board.Driver == "sim" {
		rt.sim = pwmio.NewSim(log.Named("sim"))
		rt.sink = rt.sim
	} else {
		board, err := newBoardFn(pwmio.Config{
			Driver:    cfg.Board.Driver,
			SysfsBase: cfg.Board.SysfsBase,
			Consumer:  cfg.Board.Consumer,
			Logger:    log.Named("board"),
		})
		if err != nil {
			return nil, err
		}
		rt.sink = board
	}

	curve, err := easing.Lookup(cfg.Transition.Curve)
	if err != nil {
		_ = rt.sink.Close()
		return nil, err
	}
	for i, cc := range cfg.Channels {
		ch, err := dimmer.NewChannel(rt.sink, dimmer.ChannelConfig{
			Line:        cc.Line,
			FrequencyHz: cc.FrequencyHz,
			Mode:        cc.Mode,
			Curve:       curve,
			Transition:  cfg.Transition.Duration,
			Frame:       cfg.Transition.Frame,
			Clock:       cfg.Transition.Clock,
			Logger:      log.Named("channel").With("line", cc.Line),
		})
		if err != nil {
			_ = rt.sink.Close()
			return nil, fmt.Errorf("channel %d: %w", i, err)
		}
		rt.channels = append(rt.channels, ch)
	}

	rt.fixture, err = dimmer.NewFixture(rt.sink, rt.channels, dimmer.FixtureConfig{
		FanPin:     cfg.Fixture.FanPin,
		Transition: cfg.Fixture.Transition,
		Logger:     log.Named("fixture"),
	})
	if err != nil {
		_ = rt.sink.Close()
		return nil, err
	}
	return rt, nil
}

// Close switches the fixture off and releases the outputs.
func (rt *runtime) Close() error {
	offErr := rt.fixture.TurnOff()
	return errors.Join(offErr, rt.sink.Close())
}
