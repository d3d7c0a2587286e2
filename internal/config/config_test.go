package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "cfg.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	return path
}

func requireErrEq(t *testing.T, err error, want string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error %q, got nil", want)
	}
	if err.Error() != want {
		t.Fatalf("error=%q want %q", err.Error(), want)
	}
}

func TestLoad_EmptyFileUsesDefaults(t *testing.T) {
	path := writeTempConfig(t, "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Log.Level != "info" {
		t.Fatalf("log.level=%q want info", cfg.Log.Level)
	}
	if cfg.Board.Driver != "sysfs" || cfg.Board.SysfsBase != "/sys/class/pwm" {
		t.Fatalf("board=%+v", cfg.Board)
	}
	if cfg.Transition.Curve != "out-quint" || cfg.Transition.Duration != time.Second || cfg.Transition.Clock != "monotonic" {
		t.Fatalf("transition=%+v", cfg.Transition)
	}
	if cfg.Fixture.FanPin != 4 || cfg.Fixture.Transition != 200*time.Millisecond {
		t.Fatalf("fixture=%+v", cfg.Fixture)
	}
	if len(cfg.Channels) != 2 || cfg.Channels[0].Line != 18 || cfg.Channels[1].Line != 19 {
		t.Fatalf("channels=%+v", cfg.Channels)
	}
	for _, ch := range cfg.Channels {
		if ch.FrequencyHz != 20000 || ch.Mode != "hardware" {
			t.Fatalf("channel defaults=%+v", ch)
		}
	}
	b := cfg.Buttons
	if b.Enable || b.Debounce != 100*time.Millisecond || b.Step != 5 {
		t.Fatalf("buttons=%+v", b)
	}
	if b.PowerPin != 17 || b.ModePin != 27 || b.UpPin != 22 || b.DownPin != 10 {
		t.Fatalf("button pins=%+v", b)
	}
}

func TestDefault_MatchesEmptyFile(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	def := Default()
	if def.Board != cfg.Board || def.Transition != cfg.Transition || def.Buttons != cfg.Buttons {
		t.Fatalf("Default()=%+v want %+v", def, cfg)
	}
}

func TestLoad_FullFile(t *testing.T) {
	path := writeTempConfig(t, `
log:
  level: DEBUG
board:
  driver: rpio
transition:
  curve: in-out-sine
  duration: 2s
  clock: process
fixture:
  fan_pin: -1
  transition: 0.5s
channels:
  - line: 18
  - line: 23
    mode: weak
    frequency_hz: 800
buttons:
  enable: true
  step: 10
  down_pin: -1
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Log.Level != "debug" || cfg.Board.Driver != "rpio" {
		t.Fatalf("log=%+v board=%+v", cfg.Log, cfg.Board)
	}
	if cfg.Transition.Frame != 0 || cfg.Transition.Clock != "process" {
		t.Fatalf("transition=%+v", cfg.Transition)
	}
	if cfg.Fixture.FanPin != -1 || cfg.Fixture.Transition != 500*time.Millisecond {
		t.Fatalf("fixture=%+v", cfg.Fixture)
	}
	if cfg.Channels[1].Mode != "weak" || cfg.Channels[1].FrequencyHz != 800 {
		t.Fatalf("channels[1]=%+v", cfg.Channels[1])
	}
	if !cfg.Buttons.Enable || cfg.Buttons.Step != 10 || cfg.Buttons.DownPin != -1 {
		t.Fatalf("buttons=%+v", cfg.Buttons)
	}
}

func TestLoad_FrameOnMonotonicClock(t *testing.T) {
	path := writeTempConfig(t, "transition:\n  frame: 5ms\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Transition.Frame != 5*time.Millisecond || cfg.Transition.Clock != "monotonic" {
		t.Fatalf("transition=%+v", cfg.Transition)
	}
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	path := writeTempConfig(t, "board:\n  drvier: sysfs\n")
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "drvier") {
		t.Fatalf("err=%v want unknown field error", err)
	}
}

func TestLoad_Validation(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "BadLogLevel",
			yaml: "log:\n  level: loud\n",
			want: `log.level "loud" is not one of trace, debug, info, warn, error`,
		},
		{
			name: "BadDriver",
			yaml: "board:\n  driver: pigpio\n",
			want: "board.driver must be one of sysfs, rpio, sim",
		},
		{
			name: "UnknownCurve",
			yaml: "transition:\n  curve: wobble\n",
			want: `transition.curve: easing: unknown curve "wobble"`,
		},
		{
			name: "NegativeDuration",
			yaml: "transition:\n  duration: -1s\n",
			want: "transition.duration must be >= 0",
		},
		{
			name: "BadClock",
			yaml: "transition:\n  clock: wall\n",
			want: "transition.clock must be 'monotonic' or 'process'",
		},
		{
			name: "FrameOnProcessClock",
			yaml: "transition:\n  clock: process\n  frame: 2ms\n",
			want: "transition.frame requires transition.clock 'monotonic'",
		},
		{
			name: "ChannelLineRequired",
			yaml: "channels:\n  - mode: hardware\n",
			want: "channels[0].line is required",
		},
		{
			name: "ChannelBadMode",
			yaml: "channels:\n  - line: 18\n    mode: medium\n",
			want: "channels[0].mode must be 'hardware' or 'software'",
		},
		{
			name: "ChannelOnFanPin",
			yaml: "channels:\n  - line: 18\n  - line: 4\n",
			want: "channels[1].line 4 is also fixture.fan_pin",
		},
		{
			name: "RPIOFrequencyMismatch",
			yaml: "board:\n  driver: rpio\nchannels:\n  - line: 18\n  - line: 19\n    frequency_hz: 25000\n",
			want: "channels[1].frequency_hz must match channels[0] with board.driver rpio",
		},
		{
			name: "StepTooLarge",
			yaml: "buttons:\n  step: 150\n",
			want: "buttons.step must be in (0, 100]",
		},
		{
			name: "DuplicateButtonPins",
			yaml: "buttons:\n  enable: true\n  up_pin: 17\n",
			want: "buttons.power_pin and buttons.up_pin both use gpio 17",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeTempConfig(t, tc.yaml)
			_, err := Load(path)
			requireErrEq(t, err, tc.want)
		})
	}
}

func TestLoad_ExampleFile(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "lightctl.example.yaml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.Buttons.Enable || len(cfg.Channels) != 2 || cfg.Board.Driver != "sysfs" {
		t.Fatalf("cfg=%+v", cfg)
	}
}
