package imuse

import (
	"strings"
	"testing"

	"github.com/quasilyte/imuse/imusefile"
)

func TestLoadBank(t *testing.T) {
	const src = `
groups:
  master: 64
  sfx: 0
sounds:
  - id: 7
    group: sfx
    parts:
      - program: 1
  - id: 8
    parts:
      - program: 2
      - {program: 3, disabled: true}
`
	bank, err := imusefile.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	d, events := newTestDriver(t, DriverConfig{})
	if err := d.LoadBank(bank); err != nil {
		t.Fatal(err)
	}

	if v := d.MasterVolume(); v != 64 {
		t.Fatalf("master volume: have %d, want 64", v)
	}
	if v := d.SfxVolume(); v != 0 {
		t.Fatalf("sfx volume: have %d, want 0", v)
	}

	mustStart(t, d, 7, 10)
	if n := boundChannels(d); n != 0 {
		t.Fatalf("muted sfx sound got %d channels", n)
	}

	mustStart(t, d, 8, 10)
	if n := boundChannels(d); n != 1 {
		t.Fatalf("have %d bound channels, want 1", n)
	}
	e := events.events[len(events.events)-1]
	// music: ((127+1)*64)>>7 = 64; cue: (128*64)>>7 = 64; part: (128*128*64)>>14 = 64
	if e.Kind != EventBind || e.Sound != 8 || e.Program != 2 || e.Volume != 64 {
		t.Fatalf("unexpected bind event %+v", e)
	}

	if err := d.SetPartStatus(8, 1, true); err != nil {
		t.Fatal(err)
	}
	if n := boundChannels(d); n != 2 {
		t.Fatalf("have %d bound channels after activation, want 2", n)
	}
	checkInvariants(t, d)
}
