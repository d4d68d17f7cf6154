package imuse

import (
	"math/rand"
	"testing"
)

func TestAllocateFreeChannels(t *testing.T) {
	d, events := newTestDriver(t, DriverConfig{})
	mustRegister(t, d, 1, testSound(4, 0))
	mustStart(t, d, 1, 10)

	if n := events.Count(EventBind); n != 4 {
		t.Fatalf("have %d bind events, want 4", n)
	}
	for i, e := range events.events {
		if e.Channel != i || e.Part != i || e.Sound != 1 {
			t.Fatalf("event[%d]: unexpected binding %+v", i, e)
		}
		if e.Volume != 127 {
			t.Fatalf("event[%d]: volume %d, want 127", i, e.Volume)
		}
		if e.Program != i {
			t.Fatalf("event[%d]: program %d, want %d", i, e.Program, i)
		}
	}
	checkInvariants(t, d)
}

func TestAllocatePreemption(t *testing.T) {
	d, events := newTestDriver(t, DriverConfig{})
	mustRegister(t, d, 1, testSound(NumParts, 0))
	mustRegister(t, d, 2, testSound(1, 0))
	mustRegister(t, d, 3, testSound(1, 0))

	mustStart(t, d, 1, 10)
	if n := boundChannels(d); n != NumChannels {
		t.Fatalf("have %d bound channels, want %d", n, NumChannels)
	}

	// The 17th part has a higher priority: it takes the channel
	// of the last lowest priority owner.
	events.Reset()
	mustStart(t, d, 2, 20)
	if ch := partChannel(t, d, 2, 0); ch != 15 {
		t.Fatalf("preempting part got channel %d, want 15", ch)
	}
	if ch := partChannel(t, d, 1, 15); ch != -1 {
		t.Fatalf("preempted part still holds channel %d", ch)
	}
	if n := events.Count(EventRelease); n != 1 {
		t.Fatalf("have %d release events, want 1", n)
	}
	checkInvariants(t, d)

	// Equal priority is not enough to steal a channel.
	mustStart(t, d, 3, 10)
	if ch := partChannel(t, d, 3, 0); ch != -1 {
		t.Fatalf("equal priority part stole channel %d", ch)
	}

	// The freed channel goes to the first pending part in the cue order.
	if err := d.StopSound(2); err != nil {
		t.Fatal(err)
	}
	if ch := partChannel(t, d, 1, 15); ch != 15 {
		t.Fatalf("pending part got channel %d, want 15", ch)
	}
	if ch := partChannel(t, d, 3, 0); ch != -1 {
		t.Fatalf("second pending part got channel %d", ch)
	}

	// Raising the cue priority makes the pending part win.
	if err := d.SetParam(3, ParamPriority, 30); err != nil {
		t.Fatal(err)
	}
	if ch := partChannel(t, d, 3, 0); ch != 15 {
		t.Fatalf("raised part got channel %d, want 15", ch)
	}
	checkInvariants(t, d)
}

func TestAllocatePartPriority(t *testing.T) {
	d, _ := newTestDriver(t, DriverConfig{})
	mustRegister(t, d, 1, testSound(NumParts, 0))
	config := testSound(2, 0)
	config.Parts[0].Priority = 5
	config.Parts[1].Priority = -128
	mustRegister(t, d, 2, config)

	mustStart(t, d, 1, 10)
	mustStart(t, d, 2, 10)

	info, err := d.GetPart(2, 0)
	if err != nil {
		t.Fatal(err)
	}
	if info.Priority != 15 || info.Channel == -1 {
		t.Fatalf("part 0: unexpected state %+v", info)
	}
	info, err = d.GetPart(2, 1)
	if err != nil {
		t.Fatal(err)
	}
	if info.Priority != 0 || info.Channel != -1 {
		t.Fatalf("part 1: unexpected state %+v", info)
	}

	// A lowered part becomes the preferred victim of the pending parts.
	if err := d.SetPartPriority(2, 0, -20); err != nil {
		t.Fatal(err)
	}
	if ch := partChannel(t, d, 2, 0); ch != -1 {
		t.Fatalf("lowered part kept channel %d", ch)
	}
	if ch := partChannel(t, d, 1, 15); ch != 15 {
		t.Fatalf("pending part got channel %d, want 15", ch)
	}

	if err := d.SetPartPriority(2, 1, 100); err != nil {
		t.Fatal(err)
	}
	if ch := partChannel(t, d, 2, 1); ch != 15 {
		t.Fatalf("raised part got channel %d, want 15", ch)
	}
	checkInvariants(t, d)
}

func TestSilentPartsReleaseChannels(t *testing.T) {
	d, events := newTestDriver(t, DriverConfig{})
	mustRegister(t, d, 1, testSound(3, 0))
	sfx := testSound(2, 0)
	sfx.Group = GroupSfx
	mustRegister(t, d, 2, sfx)
	mustStart(t, d, 1, 10)
	mustStart(t, d, 2, 10)

	if _, err := d.SetMusicVolume(0); err != nil {
		t.Fatal(err)
	}
	if n := boundChannels(d); n != 2 {
		t.Fatalf("have %d bound channels, want 2 (sfx only)", n)
	}
	checkInvariants(t, d)

	if _, err := d.SetMusicVolume(127); err != nil {
		t.Fatal(err)
	}
	if n := boundChannels(d); n != 5 {
		t.Fatalf("have %d bound channels after unmute, want 5", n)
	}

	tests := []struct {
		name  string
		apply func() error
	}{
		{"trim", func() error { return d.SetPartTrim(1, 0, 0) }},
		{"volume", func() error { return d.SetPartVolume(1, 1, 0) }},
		{"status", func() error { return d.SetPartStatus(1, 2, false) }},
	}
	for i, test := range tests {
		if err := test.apply(); err != nil {
			t.Fatalf("%s: %v", test.name, err)
		}
		if ch := partChannel(t, d, 1, i); ch != -1 {
			t.Fatalf("%s: silent part holds channel %d", test.name, ch)
		}
		checkInvariants(t, d)
	}

	// Muting the master silences everything.
	events.Reset()
	if _, err := d.SetMasterVolume(0); err != nil {
		t.Fatal(err)
	}
	if n := boundChannels(d); n != 0 {
		t.Fatalf("have %d bound channels with master=0", n)
	}
	if n := events.Count(EventRelease); n != 2 {
		t.Fatalf("have %d release events, want 2", n)
	}
	checkInvariants(t, d)
}

func TestVolumeChangeEvents(t *testing.T) {
	d, events := newTestDriver(t, DriverConfig{})
	mustRegister(t, d, 1, testSound(1, 0))
	mustStart(t, d, 1, 10)

	events.Reset()
	if err := d.SetParam(1, ParamVolume, 63); err != nil {
		t.Fatal(err)
	}
	// cue: ((63+1)*127)>>7 = 63
	// part: (128*128*63)>>14 = 63
	if len(events.events) != 1 || events.events[0].Kind != EventVolume || events.events[0].Volume != 63 {
		t.Fatalf("unexpected events: %+v", events.events)
	}

	events.Reset()
	if err := d.SetPartVolume(1, 0, 127); err != nil {
		t.Fatal(err)
	}
	if len(events.events) != 0 {
		t.Fatalf("unchanged volume produced events: %+v", events.events)
	}
}

func TestPartParamEvents(t *testing.T) {
	d, events := newTestDriver(t, DriverConfig{})
	mustRegister(t, d, 1, testSound(1, 0))
	mustStart(t, d, 1, 10)

	events.Reset()
	if err := d.SetPartProgram(1, 0, 40); err != nil {
		t.Fatal(err)
	}
	if err := d.SetPartPan(1, 0, 100); err != nil {
		t.Fatal(err)
	}
	if err := d.SetParam(1, ParamPan, 44); err != nil {
		t.Fatal(err)
	}
	if err := d.SetPartModulation(1, 0, 5); err != nil {
		t.Fatal(err)
	}
	if err := d.SetPartPitchBend(1, 0, -100); err != nil {
		t.Fatal(err)
	}

	want := []struct {
		param PartParam
		value int
	}{
		{PartParamProgram, 40},
		{PartParamPan, 100},
		{PartParamPan, 80}, // 100+44-64
		{PartParamModulation, 5},
		{PartParamPitchBend, -100},
	}
	if len(events.events) != len(want) {
		t.Fatalf("have %d events, want %d: %+v", len(events.events), len(want), events.events)
	}
	for i, w := range want {
		e := events.events[i]
		if e.Kind != EventParam || e.Param != w.param || e.Value != w.value {
			t.Errorf("event[%d]: have %s %s=%d, want %s=%d", i, e.Kind, e.Param, e.Value, w.param, w.value)
		}
	}
}

func TestNotes(t *testing.T) {
	d, events := newTestDriver(t, DriverConfig{})
	mustRegister(t, d, 1, testSound(NumParts, 0))
	mustRegister(t, d, 2, testSound(1, 0))
	mustStart(t, d, 1, 10)
	mustStart(t, d, 2, 0)

	played, err := d.NoteOn(2, 0, 60, 100)
	if err != nil {
		t.Fatal(err)
	}
	if played {
		t.Fatalf("a part without a channel played a note")
	}

	events.Reset()
	if played, _ := d.NoteOn(1, 3, 60, 100); !played {
		t.Fatalf("a bound part didn't play a note")
	}
	if _, err := d.NoteOn(1, 3, 64, 100); err != nil {
		t.Fatal(err)
	}
	if n := events.Count(EventNoteOn); n != 2 {
		t.Fatalf("have %d note-on events, want 2", n)
	}

	// Sustained notes are released when the pedal goes up.
	if err := d.SetPartSustain(1, 3, 127); err != nil {
		t.Fatal(err)
	}
	events.Reset()
	if err := d.NoteOff(1, 3, 60); err != nil {
		t.Fatal(err)
	}
	if n := events.Count(EventNoteOff); n != 0 {
		t.Fatalf("sustained note was turned off")
	}
	if err := d.SetPartSustain(1, 3, 0); err != nil {
		t.Fatal(err)
	}
	if n := events.Count(EventNoteOff); n != 1 {
		t.Fatalf("have %d note-off events after the pedal release, want 1", n)
	}

	// Releasing the channel turns off the notes that are still on.
	events.Reset()
	if err := d.SetPartStatus(1, 3, false); err != nil {
		t.Fatal(err)
	}
	if len(events.events) < 2 {
		t.Fatalf("unexpected events: %+v", events.events)
	}
	if e := events.events[0]; e.Kind != EventNoteOff || e.Note != 64 || e.Channel != 3 {
		t.Fatalf("expected a note-off for 64 first, have %+v", e)
	}
	if e := events.events[1]; e.Kind != EventRelease || e.Channel != 3 {
		t.Fatalf("expected a release, have %+v", e)
	}

	// The freed channel went to the pending part; it must not inherit any notes.
	if ch := partChannel(t, d, 2, 0); ch != 3 {
		t.Fatalf("pending part got channel %d, want 3", ch)
	}
	if d.notes.IsPlaying(&d.channels[3], 64) {
		t.Fatalf("the note survived the channel release")
	}
}

func TestVolumeHierarchy(t *testing.T) {
	d, _ := newTestDriver(t, DriverConfig{})
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 500; i++ {
		master := rng.Intn(128)
		group := GroupID(1 + rng.Intn(NumGroups-1))
		volume := rng.Intn(128)

		// The order of the updates must not matter.
		if rng.Intn(2) == 0 {
			d.SetMasterVolume(master)
			d.SetGroupVolume(group, volume)
		} else {
			d.SetGroupVolume(group, volume)
			d.SetMasterVolume(master)
		}

		want := ((volume + 1) * master) >> 7
		have, err := d.GroupVolume(group)
		if err != nil {
			t.Fatal(err)
		}
		if have != want {
			t.Fatalf("master=%d %s=%d: resolved %d, want %d", master, group, volume, have, want)
		}
		if v, _ := d.GroupVolume(GroupMaster); v != 0 {
			t.Fatalf("master resolves to %d", v)
		}
	}
}

func checkFixedPoint(t *testing.T, d *Driver) {
	t.Helper()
	if d.freeChannel() == nil {
		return
	}
	for _, slot := range d.players.order {
		p := d.players.Get(slot)
		for i := range p.parts {
			ref := partRef{slot: slot, part: i}
			if !p.parts[i].IsBound() && d.isEligible(ref) {
				t.Fatalf("sound %d part %d is eligible but idle while a channel is free", p.soundID, i)
			}
		}
	}
}

func TestAllocatorRandomized(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		rng := rand.New(rand.NewSource(seed))
		d, _ := newTestDriver(t, DriverConfig{MaxCues: 6})

		const numSounds = 8
		for id := SoundID(1); id <= numSounds; id++ {
			config := testSound(1+rng.Intn(NumParts), 0)
			config.Group = GroupID(1 + rng.Intn(3))
			for i := range config.Parts {
				config.Parts[i].Priority = rng.Intn(41) - 20
				config.Parts[i].Disabled = rng.Intn(8) == 0
			}
			mustRegister(t, d, id, config)
		}
		randomSound := func() SoundID { return SoundID(1 + rng.Intn(numSounds)) }

		for step := 0; step < 300; step++ {
			switch rng.Intn(12) {
			case 0, 1, 2:
				d.StartSound(randomSound(), rng.Intn(128))
			case 3:
				d.StopSound(randomSound())
			case 4:
				d.SetGroupVolume(GroupID(rng.Intn(4)), rng.Intn(128))
			case 5:
				d.SetParam(randomSound(), ParamVolume, rng.Intn(128))
			case 6:
				d.SetParam(randomSound(), ParamPriority, rng.Intn(128))
			case 7:
				d.SetPartVolume(randomSound(), rng.Intn(NumParts), rng.Intn(128))
			case 8:
				d.SetPartStatus(randomSound(), rng.Intn(NumParts), rng.Intn(2) == 0)
			case 9:
				d.ShareParts(randomSound(), randomSound())
			case 10:
				d.UnshareParts(randomSound())
			case 11:
				d.Tick()
			}
			if err := d.CheckInvariants(); err != nil {
				t.Fatalf("seed=%d step=%d: %v", seed, step, err)
			}
			checkFixedPoint(t, d)
		}

		d.StopAllSounds()
		if n := boundChannels(d); n != 0 {
			t.Fatalf("seed=%d: %d channels are bound after stop all", seed, n)
		}
	}
}
