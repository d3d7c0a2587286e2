package dimmer

import (
	"errors"
	"sync"
	"testing"
	"time"
)

const testFanPin = 4

func newTestFixture(t *testing.T, sink *fakeSink, lines ...int) *Fixture {
	t.Helper()
	chans := make([]*Channel, 0, len(lines))
	for _, line := range lines {
		chans = append(chans, newTestChannel(t, sink, line, "hardware"))
	}
	f, err := NewFixture(sink, chans, FixtureConfig{FanPin: testFanPin})
	if err != nil {
		t.Fatalf("NewFixture: %v", err)
	}
	return f
}

func requireFan(t *testing.T, sink *fakeSink, want bool) {
	t.Helper()
	got, ok := sink.pin(testFanPin)
	if !ok {
		t.Fatalf("fan pin never written")
	}
	if got != want {
		t.Fatalf("fan=%v want %v", got, want)
	}
}

func TestNewFixture_ForcesEverythingOff(t *testing.T) {
	sink := &fakeSink{}
	chans := []*Channel{
		newTestChannel(t, sink, 18, "hardware"),
		newTestChannel(t, sink, 19, "hardware"),
	}
	if err := chans[1].SetLevel(70, 0); err != nil {
		t.Fatalf("SetLevel: %v", err)
	}

	f, err := NewFixture(sink, chans, FixtureConfig{FanPin: testFanPin})
	if err != nil {
		t.Fatalf("NewFixture: %v", err)
	}
	for _, ch := range chans {
		if ch.Duty() != 0 {
			t.Fatalf("line %d duty=%d want 0", ch.Line(), ch.Duty())
		}
	}
	requireFan(t, sink, false)
	snap := f.Snapshot()
	if snap.Active != 0 || snap.Brightness != 0 || snap.FanOn {
		t.Fatalf("snapshot=%+v", snap)
	}
}

func TestNewFixture_RequiresChannels(t *testing.T) {
	if _, err := NewFixture(&fakeSink{}, nil, FixtureConfig{}); !errors.Is(err, ErrNoChannels) {
		t.Fatalf("err=%v want ErrNoChannels", err)
	}
	if _, err := NewFixture(&fakeSink{}, []*Channel{nil}, FixtureConfig{}); err == nil {
		t.Fatalf("expected error for nil channel")
	}
}

func TestFixture_FanFollowsBrightness(t *testing.T) {
	sink := &fakeSink{}
	f := newTestFixture(t, sink, 18, 19)

	if err := f.Level(50); err != nil {
		t.Fatalf("Level: %v", err)
	}
	requireFan(t, sink, true)

	if err := f.TurnOff(); err != nil {
		t.Fatalf("TurnOff: %v", err)
	}
	requireFan(t, sink, false)

	if err := f.PowerToggle(); err != nil {
		t.Fatalf("PowerToggle: %v", err)
	}
	requireFan(t, sink, true)

	if err := f.ToggleMode(); err != nil {
		t.Fatalf("ToggleMode: %v", err)
	}
	requireFan(t, sink, true)

	if err := f.Level(0); err != nil {
		t.Fatalf("Level(0): %v", err)
	}
	requireFan(t, sink, false)

	if err := f.ToggleMode(); err != nil {
		t.Fatalf("ToggleMode: %v", err)
	}
	requireFan(t, sink, false)
}

func TestFixture_PowerToggleRestoresBrightness(t *testing.T) {
	sink := &fakeSink{}
	f := newTestFixture(t, sink, 18)

	if err := f.LevelOver(65, 0); err != nil {
		t.Fatalf("LevelOver: %v", err)
	}
	if err := f.TurnOff(); err != nil {
		t.Fatalf("TurnOff: %v", err)
	}
	if got := f.Brightness(); got != 0 {
		t.Fatalf("brightness=%v want 0", got)
	}
	if err := f.PowerToggle(); err != nil {
		t.Fatalf("PowerToggle: %v", err)
	}
	if got := f.Brightness(); got != 65 {
		t.Fatalf("brightness=%v want 65", got)
	}
	if got := f.Snapshot().Channels[0].Percent; got != 65 {
		t.Fatalf("channel percent=%v want 65", got)
	}

	// Toggling again turns off; a redundant TurnOff keeps the remembered level.
	if err := f.PowerToggle(); err != nil {
		t.Fatalf("PowerToggle: %v", err)
	}
	if err := f.TurnOff(); err != nil {
		t.Fatalf("TurnOff: %v", err)
	}
	if got := f.Snapshot().LastBrightness; got != 65 {
		t.Fatalf("last=%v want 65", got)
	}
}

func TestFixture_TurnOffIsInstant(t *testing.T) {
	sink := &fakeSink{}
	f := newTestFixture(t, sink, 18)
	if err := f.LevelOver(100, 0); err != nil {
		t.Fatalf("LevelOver: %v", err)
	}
	sink.reset()

	if err := f.TurnOff(); err != nil {
		t.Fatalf("TurnOff: %v", err)
	}
	if got := sink.duties("hw", 18); len(got) != 1 || got[0] != 0 {
		t.Fatalf("duties=%v want [0]", got)
	}
}

func TestFixture_LevelUsesDefaultTransition(t *testing.T) {
	sink := &fakeSink{}
	f := newTestFixture(t, sink, 18)
	sink.reset()

	if err := f.Level(100); err != nil {
		t.Fatalf("Level: %v", err)
	}
	// 200ms at 10ms per clock reading.
	if n := len(sink.duties("hw", 18)); n < 15 || n > 25 {
		t.Fatalf("samples=%d want about 20", n)
	}
}

func TestFixture_ToggleModeCyclesAndCarriesBrightness(t *testing.T) {
	sink := &fakeSink{}
	lines := []int{18, 19, 23}
	f := newTestFixture(t, sink, lines...)
	if err := f.LevelOver(40, 0); err != nil {
		t.Fatalf("LevelOver: %v", err)
	}
	want := uint32(Correct(40) * hardwareScale)

	for i := 1; i <= len(lines); i++ {
		if err := f.ToggleMode(); err != nil {
			t.Fatalf("ToggleMode: %v", err)
		}
		snap := f.Snapshot()
		if snap.Active != i%len(lines) {
			t.Fatalf("active=%d want %d", snap.Active, i%len(lines))
		}
		if snap.Brightness != 40 {
			t.Fatalf("brightness=%v want 40", snap.Brightness)
		}
		for j, ch := range snap.Channels {
			if j == snap.Active {
				if ch.Duty != want {
					t.Fatalf("incoming duty=%d want %d", ch.Duty, want)
				}
				continue
			}
			if ch.Duty != 0 {
				t.Fatalf("channel %d duty=%d want 0", j, ch.Duty)
			}
		}
	}
}

func TestFixture_ToggleModeIsInstant(t *testing.T) {
	sink := &fakeSink{}
	f := newTestFixture(t, sink, 18, 19)
	if err := f.LevelOver(80, 0); err != nil {
		t.Fatalf("LevelOver: %v", err)
	}
	sink.reset()

	if err := f.ToggleMode(); err != nil {
		t.Fatalf("ToggleMode: %v", err)
	}
	if got := sink.duties("hw", 18); len(got) != 1 || got[0] != 0 {
		t.Fatalf("outgoing duties=%v want [0]", got)
	}
	if got := sink.duties("hw", 19); len(got) != 1 {
		t.Fatalf("incoming duties=%v want a single write", got)
	}
}

func TestFixture_ToggleModeFailureLeavesFixtureOff(t *testing.T) {
	sink := &fakeSink{}
	f := newTestFixture(t, sink, 18, 19)
	if err := f.LevelOver(60, 0); err != nil {
		t.Fatalf("LevelOver: %v", err)
	}
	requireFan(t, sink, true)

	// The outgoing write succeeds, the incoming one fails.
	sink.mu.Lock()
	sink.failAfter = sink.pwmOK + 1
	sink.mu.Unlock()

	err := f.ToggleMode()
	if !errors.Is(err, ErrIO) || !errors.Is(err, errBoom) {
		t.Fatalf("err=%v want ErrIO wrapping the sink error", err)
	}
	snap := f.Snapshot()
	if snap.Active != 1 || snap.Brightness != 0 || snap.LastBrightness != 60 {
		t.Fatalf("snapshot=%+v want active 1, off, last 60", snap)
	}
	if snap.FanOn {
		t.Fatalf("fan reported on with every channel dark")
	}
	requireFan(t, sink, false)

	sink.mu.Lock()
	sink.failAfter = 0
	sink.mu.Unlock()
	if err := f.PowerToggle(); err != nil {
		t.Fatalf("PowerToggle: %v", err)
	}
	if got := f.Snapshot().Channels[1].Percent; got != 60 {
		t.Fatalf("incoming percent=%v want 60", got)
	}
	requireFan(t, sink, true)
}

func TestFixture_StepSaturates(t *testing.T) {
	sink := &fakeSink{}
	f := newTestFixture(t, sink, 18)

	if err := f.LevelOver(97, 0); err != nil {
		t.Fatalf("LevelOver: %v", err)
	}
	if err := f.Step(5); err != nil {
		t.Fatalf("Step(+5): %v", err)
	}
	if got := f.Brightness(); got != 100 {
		t.Fatalf("brightness=%v want 100", got)
	}

	if err := f.LevelOver(3, 0); err != nil {
		t.Fatalf("LevelOver: %v", err)
	}
	if err := f.Step(-5); err != nil {
		t.Fatalf("Step(-5): %v", err)
	}
	if got := f.Brightness(); got != 0 {
		t.Fatalf("brightness=%v want 0", got)
	}
	requireFan(t, sink, false)
}

func TestFixture_LevelRejectsOutOfRange(t *testing.T) {
	sink := &fakeSink{}
	f := newTestFixture(t, sink, 18)
	if err := f.LevelOver(30, 0); err != nil {
		t.Fatalf("LevelOver: %v", err)
	}
	if err := f.Level(120); !errors.Is(err, ErrLevelRange) {
		t.Fatalf("err=%v want ErrLevelRange", err)
	}
	if got := f.Brightness(); got != 30 {
		t.Fatalf("brightness=%v want 30 after rejected level", got)
	}
}

func TestFixture_AddChannelJoinsCycle(t *testing.T) {
	sink := &fakeSink{}
	f := newTestFixture(t, sink, 18)
	if err := f.AddChannel(newTestChannel(t, sink, 19, "software")); err != nil {
		t.Fatalf("AddChannel: %v", err)
	}
	if err := f.AddChannel(nil); err == nil {
		t.Fatalf("expected error for nil channel")
	}
	if err := f.LevelOver(100, 0); err != nil {
		t.Fatalf("LevelOver: %v", err)
	}
	if err := f.ToggleMode(); err != nil {
		t.Fatalf("ToggleMode: %v", err)
	}
	snap := f.Snapshot()
	if snap.Active != 1 || snap.Channels[1].Duty != SoftwareRange {
		t.Fatalf("snapshot=%+v", snap)
	}
}

func TestFixture_FanDisabled(t *testing.T) {
	sink := &fakeSink{}
	ch := newTestChannel(t, sink, 18, "hardware")
	f, err := NewFixture(sink, []*Channel{ch}, FixtureConfig{FanPin: -1})
	if err != nil {
		t.Fatalf("NewFixture: %v", err)
	}
	if err := f.LevelOver(50, 0); err != nil {
		t.Fatalf("LevelOver: %v", err)
	}
	if n := len(sink.filter("pin")); n != 0 {
		t.Fatalf("fan disabled but %d pin writes", n)
	}
}

func TestFixture_FanWriteFailureSurfaces(t *testing.T) {
	sink := &fakeSink{}
	f := newTestFixture(t, sink, 18)
	sink.failPins = true

	err := f.LevelOver(50, 0)
	if !errors.Is(err, ErrIO) || !errors.Is(err, errBoom) {
		t.Fatalf("err=%v want ErrIO wrapping the sink error", err)
	}
}

func TestFixture_SerializesConcurrentCallers(t *testing.T) {
	sink := &fakeSink{}
	ch := newTestChannel(t, sink, 18, "hardware")
	f, err := NewFixture(sink, []*Channel{ch}, FixtureConfig{FanPin: testFanPin, Transition: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewFixture: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := f.Step(5); err != nil {
				t.Errorf("Step: %v", err)
			}
		}()
	}
	wg.Wait()
	if got := f.Brightness(); got != 50 {
		t.Fatalf("brightness=%v want 50", got)
	}
}
