package main

import (
	"github.com/quasilyte/imuse"
	"github.com/quasilyte/imuse/imusefile"
	"github.com/quasilyte/imuse/internal/imdb"
)

// demoSequencer only keeps the cue time.
// Sound effects end after a fixed duration, everything else loops forever.
type demoSequencer struct {
	durations map[imuse.SoundID]int
}

func newDemoSequencer(bank *imusefile.Bank) *demoSequencer {
	seq := &demoSequencer{durations: make(map[imuse.SoundID]int)}
	for _, s := range bank.Sounds {
		if s.Group == imdb.GroupSfx {
			seq.durations[imuse.SoundID(s.ID)] = 2 * tickRate
		}
	}
	return seq
}

func (seq *demoSequencer) Step(sound imuse.SoundID, data *imuse.PlayerData) bool {
	data.PrevTick = data.Tick
	data.Tick++
	if data.TicksPerBeat == 0 {
		data.TicksPerBeat = tickRate / 2
	}
	d := seq.durations[sound]
	return d != 0 && data.Tick >= d
}
