package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"gopkg.in/yaml.v3"

	"lightctl/internal/easing"
)

type Config struct {
	Log        LogConfig        `yaml:"log"`
	Board      BoardConfig      `yaml:"board"`
	Transition TransitionConfig `yaml:"transition"`
	Fixture    FixtureConfig    `yaml:"fixture"`
	Channels   []ChannelConfig  `yaml:"channels"`
	Buttons    ButtonsConfig    `yaml:"buttons"`
}

type LogConfig struct {
	// Level is trace, debug, info, warn or error.
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

type BoardConfig struct {
	// Driver selects hardware PWM: sysfs, rpio, or sim for a dry run.
	Driver    string `yaml:"driver"`
	SysfsBase string `yaml:"sysfs_base"`
	Consumer  string `yaml:"consumer"`
}

type TransitionConfig struct {
	Curve    string        `yaml:"curve"`
	Duration time.Duration `yaml:"duration"`
	// Frame is the pause between samples; zero free-runs.
	Frame time.Duration `yaml:"frame"`
	// Clock is monotonic or process. Process time stands still while the
	// loop sleeps, so frame needs the monotonic clock.
	Clock string `yaml:"clock"`
}

type FixtureConfig struct {
	// FanPin is the fan GPIO; negative disables the fan.
	FanPin     int           `yaml:"fan_pin"`
	Transition time.Duration `yaml:"transition"`
}

type ChannelConfig struct {
	Line        int    `yaml:"line"`
	FrequencyHz int    `yaml:"frequency_hz"`
	Mode        string `yaml:"mode"`
}

type ButtonsConfig struct {
	Enable   bool          `yaml:"enable"`
	Debounce time.Duration `yaml:"debounce"`
	Step     float64       `yaml:"step"`
	PowerPin int           `yaml:"power_pin"`
	ModePin  int           `yaml:"mode_pin"`
	UpPin    int           `yaml:"up_pin"`
	DownPin  int           `yaml:"down_pin"`
}

// Default is the configuration used when no file is given: two hardware
// channels on GPIO18 and GPIO19 with the fan on GPIO4.
func Default() Config {
	var cfg Config
	if err := cfg.applyDefaults(); err != nil {
		panic(err)
	}
	return cfg
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(b)
}

func Parse(b []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}
	if err := cfg.applyDefaults(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg *Config) applyDefaults() error {
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if hclog.LevelFromString(cfg.Log.Level) == hclog.NoLevel {
		return fmt.Errorf("log.level %q is not one of trace, debug, info, warn, error", cfg.Log.Level)
	}

	cfg.Board.Driver = strings.ToLower(strings.TrimSpace(cfg.Board.Driver))
	switch cfg.Board.Driver {
	case "":
		cfg.Board.Driver = "sysfs"
	case "sysfs", "rpio", "sim":
	default:
		return fmt.Errorf("board.driver must be one of sysfs, rpio, sim")
	}
	if cfg.Board.SysfsBase == "" {
		cfg.Board.SysfsBase = "/sys/class/pwm"
	}
	if cfg.Board.Consumer == "" {
		cfg.Board.Consumer = "lightctl"
	}

	if cfg.Transition.Curve == "" {
		cfg.Transition.Curve = "out-quint"
	}
	if _, err := easing.Lookup(cfg.Transition.Curve); err != nil {
		return fmt.Errorf("transition.curve: %w", err)
	}
	if cfg.Transition.Duration == 0 {
		cfg.Transition.Duration = time.Second
	}
	if cfg.Transition.Duration < 0 {
		return fmt.Errorf("transition.duration must be >= 0")
	}
	if cfg.Transition.Frame < 0 {
		return fmt.Errorf("transition.frame must be >= 0")
	}
	switch cfg.Transition.Clock {
	case "":
		cfg.Transition.Clock = "monotonic"
	case "monotonic", "process":
	default:
		return fmt.Errorf("transition.clock must be 'monotonic' or 'process'")
	}
	if cfg.Transition.Frame > 0 && cfg.Transition.Clock != "monotonic" {
		return fmt.Errorf("transition.frame requires transition.clock 'monotonic'")
	}

	if cfg.Fixture.FanPin == 0 {
		cfg.Fixture.FanPin = 4
	}
	if cfg.Fixture.Transition == 0 {
		cfg.Fixture.Transition = 200 * time.Millisecond
	}
	if cfg.Fixture.Transition < 0 {
		return fmt.Errorf("fixture.transition must be >= 0")
	}

	if len(cfg.Channels) == 0 {
		cfg.Channels = []ChannelConfig{{Line: 18}, {Line: 19}}
	}
	for i := range cfg.Channels {
		ch := &cfg.Channels[i]
		if ch.Line <= 0 {
			return fmt.Errorf("channels[%d].line is required", i)
		}
		if ch.FrequencyHz == 0 {
			ch.FrequencyHz = 20000
		}
		if ch.FrequencyHz < 0 {
			return fmt.Errorf("channels[%d].frequency_hz must be > 0", i)
		}
		ch.Mode = strings.ToLower(strings.TrimSpace(ch.Mode))
		switch ch.Mode {
		case "":
			ch.Mode = "hardware"
		case "hardware", "software", "strong", "weak":
		default:
			return fmt.Errorf("channels[%d].mode must be 'hardware' or 'software'", i)
		}
		if ch.Line == cfg.Fixture.FanPin {
			return fmt.Errorf("channels[%d].line %d is also fixture.fan_pin", i, ch.Line)
		}
	}
	if cfg.Board.Driver == "rpio" {
		// Both BCM PWM channels run from one clock.
		first := -1
		for i, ch := range cfg.Channels {
			if ch.Mode != "hardware" && ch.Mode != "strong" {
				continue
			}
			if first < 0 {
				first = i
				continue
			}
			if ch.FrequencyHz != cfg.Channels[first].FrequencyHz {
				return fmt.Errorf("channels[%d].frequency_hz must match channels[%d] with board.driver rpio", i, first)
			}
		}
	}

	if cfg.Buttons.Debounce == 0 {
		cfg.Buttons.Debounce = 100 * time.Millisecond
	}
	if cfg.Buttons.Debounce < 0 {
		return fmt.Errorf("buttons.debounce must be >= 0")
	}
	if cfg.Buttons.Step == 0 {
		cfg.Buttons.Step = 5
	}
	if cfg.Buttons.Step < 0 || cfg.Buttons.Step > 100 {
		return fmt.Errorf("buttons.step must be in (0, 100]")
	}
	if cfg.Buttons.PowerPin == 0 {
		cfg.Buttons.PowerPin = 17
	}
	if cfg.Buttons.ModePin == 0 {
		cfg.Buttons.ModePin = 27
	}
	if cfg.Buttons.UpPin == 0 {
		cfg.Buttons.UpPin = 22
	}
	if cfg.Buttons.DownPin == 0 {
		cfg.Buttons.DownPin = 10
	}
	if cfg.Buttons.Enable {
		seen := make(map[int]string, 4)
		for _, b := range []struct {
			name string
			pin  int
		}{
			{"power_pin", cfg.Buttons.PowerPin},
			{"mode_pin", cfg.Buttons.ModePin},
			{"up_pin", cfg.Buttons.UpPin},
			{"down_pin", cfg.Buttons.DownPin},
		} {
			if b.pin < 0 {
				continue
			}
			if other, ok := seen[b.pin]; ok {
				return fmt.Errorf("buttons.%s and buttons.%s both use gpio %d", other, b.name, b.pin)
			}
			seen[b.pin] = b.name
		}
	}
	return nil
}
