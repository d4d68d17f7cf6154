package imuse

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/pkg/errors"
)

type eventLog struct {
	events []ChannelEvent
}

func (l *eventLog) Handle(e ChannelEvent) { l.events = append(l.events, e) }

func (l *eventLog) Reset() { l.events = l.events[:0] }

func (l *eventLog) Count(kind ChannelEventKind) int {
	n := 0
	for _, e := range l.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func newTestDriver(t *testing.T, config DriverConfig) (*Driver, *eventLog) {
	t.Helper()
	l := &eventLog{}
	config.EventHandler = l.Handle
	return NewDriver(config), l
}

func testSound(numParts, partPriority int) SoundConfig {
	config := SoundConfig{
		Group:  GroupMusic,
		Volume: 127,
		Pan:    64,
		Parts:  make([]PartConfig, numParts),
	}
	for i := range config.Parts {
		config.Parts[i] = PartConfig{
			Program:  i,
			Priority: partPriority,
			Volume:   127,
			Trim:     127,
			Pan:      64,
		}
	}
	return config
}

func mustRegister(t *testing.T, d *Driver, id SoundID, config SoundConfig) {
	t.Helper()
	if err := d.RegisterSound(id, config); err != nil {
		t.Fatalf("register sound %d: %v", id, err)
	}
}

func mustStart(t *testing.T, d *Driver, id SoundID, priority int) {
	t.Helper()
	if err := d.StartSound(id, priority); err != nil {
		t.Fatalf("start sound %d: %v", id, err)
	}
}

func checkInvariants(t *testing.T, d *Driver) {
	t.Helper()
	if err := d.CheckInvariants(); err != nil {
		t.Fatalf("invariant violated: %v", err)
	}
}

func boundChannels(d *Driver) int {
	return d.GetInfo().BoundChannels
}

func partChannel(t *testing.T, d *Driver, id SoundID, part int) int {
	t.Helper()
	info, err := d.GetPart(id, part)
	if err != nil {
		t.Fatalf("get part %d/%d: %v", id, part, err)
	}
	return info.Channel
}

func TestNewDriverDefaults(t *testing.T) {
	d, _ := newTestDriver(t, DriverConfig{})

	if d.settings.maxCues != 24 {
		t.Fatalf("default max cues: have %d, want 24", d.settings.maxCues)
	}
	for g := GroupID(0); g < NumGroups; g++ {
		have, err := d.GroupVolume(g)
		if err != nil {
			t.Fatal(err)
		}
		want := 127
		if g == GroupMaster {
			want = 0
		}
		if have != want {
			t.Fatalf("group %s resolved volume: have %d, want %d", g, have, want)
		}
	}
	if n := boundChannels(d); n != 0 {
		t.Fatalf("a new driver has %d bound channels", n)
	}
	checkInvariants(t, d)
}

func TestNewDriverGroupVolumes(t *testing.T) {
	d, _ := newTestDriver(t, DriverConfig{
		GroupVolumes: map[GroupID]int{
			GroupMaster: 64,
			GroupSfx:    200,
			GroupMusic:  -5,
			100:         10,
		},
	})

	tests := []struct {
		group      GroupID
		configured int
		resolved   int
	}{
		{GroupMaster, 64, 0},
		{GroupSfx, 127, 64},
		{GroupMusic, 0, 0},
		{GroupVoice, 127, 64},
	}
	for _, test := range tests {
		if v, _ := d.SetGroupVolume(test.group, VolumeQuery); v != test.configured {
			t.Errorf("%s configured: have %d, want %d", test.group, v, test.configured)
		}
		if v, _ := d.GroupVolume(test.group); v != test.resolved {
			t.Errorf("%s resolved: have %d, want %d", test.group, v, test.resolved)
		}
	}
}

func TestInvariantViolationLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	d, _ := newTestDriver(t, DriverConfig{Logger: logger})

	mustRegister(t, d, 1, testSound(2, 0))
	mustStart(t, d, 1, 10)
	if err := d.SetPartOutputChannels(1, 1, 0); err != nil {
		t.Fatal(err)
	}

	if ch := partChannel(t, d, 1, 1); ch != -1 {
		t.Fatalf("zero output part is bound to channel %d", ch)
	}
	if ch := partChannel(t, d, 1, 0); ch == -1 {
		t.Fatalf("regular part is not bound")
	}
	out := buf.String()
	if !strings.Contains(out, "invariant violation") || !strings.Contains(out, "0 output channels") {
		t.Fatalf("unexpected log output:\n%s", out)
	}

	// The violation is reported once per part.
	d.Tick()
	d.Tick()
	if n := strings.Count(buf.String(), "0 output channels"); n != 1 {
		t.Fatalf("violation reported %d times", n)
	}
	checkInvariants(t, d)
}

type stepFunc func(sound SoundID, data *PlayerData) bool

func (f stepFunc) Step(sound SoundID, data *PlayerData) bool { return f(sound, data) }

func TestTick(t *testing.T) {
	steps := map[SoundID]int{}
	seq := stepFunc(func(sound SoundID, data *PlayerData) bool {
		steps[sound]++
		data.Tick++
		return sound == 1 && data.Tick >= 3
	})
	d, events := newTestDriver(t, DriverConfig{Sequencer: seq})
	mustRegister(t, d, 1, testSound(2, 0))
	mustRegister(t, d, 2, testSound(2, 0))
	mustStart(t, d, 1, 10)
	mustStart(t, d, 2, 10)

	for i := 0; i < 2; i++ {
		if !d.Tick() {
			t.Fatalf("tick %d was deferred", i)
		}
	}
	if !d.IsPlaying(1) {
		t.Fatalf("sound 1 stopped too early")
	}

	events.Reset()
	d.Tick()
	if d.IsPlaying(1) {
		t.Fatalf("finished sound 1 is still playing")
	}
	if !d.IsPlaying(2) {
		t.Fatalf("sound 2 should keep playing")
	}
	if n := events.Count(EventRelease); n != 2 {
		t.Fatalf("have %d release events, want 2", n)
	}
	if steps[1] != 3 || steps[2] != 3 {
		t.Fatalf("unexpected step counters: %v", steps)
	}
	checkInvariants(t, d)
}

func TestTickPlayerLock(t *testing.T) {
	calls := 0
	seq := stepFunc(func(SoundID, *PlayerData) bool {
		calls++
		return false
	})
	d, _ := newTestDriver(t, DriverConfig{Sequencer: seq})
	mustRegister(t, d, 1, testSound(1, 0))
	mustStart(t, d, 1, 10)

	if n := d.LockPlayers(); n != 1 {
		t.Fatalf("lock count: have %d, want 1", n)
	}
	if n := d.LockPlayers(); n != 2 {
		t.Fatalf("lock count: have %d, want 2", n)
	}
	if d.Tick() {
		t.Fatalf("tick should be deferred while the players are locked")
	}
	d.UnlockPlayers()
	if d.Tick() {
		t.Fatalf("tick should be deferred while the players are locked")
	}
	if calls != 0 {
		t.Fatalf("sequencer was called %d times under the lock", calls)
	}
	if n := d.UnlockPlayers(); n != 0 {
		t.Fatalf("lock count: have %d, want 0", n)
	}
	if n := d.UnlockPlayers(); n != 0 {
		t.Fatalf("unlock of an unlocked driver: have %d, want 0", n)
	}
	if !d.Tick() {
		t.Fatalf("tick is deferred after unlock")
	}
	if calls != 1 {
		t.Fatalf("sequencer calls: have %d, want 1", calls)
	}
}

func TestTickMidiPaused(t *testing.T) {
	calls := 0
	seq := stepFunc(func(SoundID, *PlayerData) bool {
		calls++
		return false
	})
	d, _ := newTestDriver(t, DriverConfig{Sequencer: seq})
	mustRegister(t, d, 1, testSound(1, 0))
	mustStart(t, d, 1, 10)

	d.Pause()
	if !d.Tick() {
		t.Fatalf("pause should not defer the tick")
	}
	if calls != 0 {
		t.Fatalf("sequencer was called while paused")
	}
	d.Resume()
	d.Tick()
	if calls != 1 {
		t.Fatalf("sequencer calls: have %d, want 1", calls)
	}
}

func TestGetInfo(t *testing.T) {
	d, _ := newTestDriver(t, DriverConfig{})
	mustRegister(t, d, 1, testSound(3, 0))
	mustStart(t, d, 1, 10)

	info := d.GetInfo()
	if info.ActiveCues != 1 {
		t.Fatalf("active cues: have %d, want 1", info.ActiveCues)
	}
	if info.BoundChannels != 3 {
		t.Fatalf("bound channels: have %d, want 3", info.BoundChannels)
	}
	if info.MemoryUsage == 0 {
		t.Fatalf("memory usage is not reported")
	}
}

func TestCheckInvariantsDetectsCorruption(t *testing.T) {
	d, _ := newTestDriver(t, DriverConfig{})
	mustRegister(t, d, 1, testSound(2, 0))
	mustStart(t, d, 1, 10)
	checkInvariants(t, d)

	// Break the back-reference on purpose.
	slot, _ := d.players.Lookup(1)
	d.players.Get(slot).parts[0].channel = 9

	err := d.CheckInvariants()
	var invErr *InvariantError
	if !errors.As(err, &invErr) {
		t.Fatalf("expected *InvariantError, have %v", err)
	}
	if invErr.Sound != 1 {
		t.Fatalf("unexpected error details: %v", invErr)
	}
}
