package imuse

import (
	"github.com/pkg/errors"
	"github.com/quasilyte/imuse/internal/imdb"
)

// PartInfo describes the logical part state.
// See Driver.GetPart.
type PartInfo struct {
	Active bool

	// Priority is the effective priority (cue priority + part priority).
	Priority int

	// Volume is the resolved part volume.
	Volume int

	// Channel is the physical channel ID or -1.
	// Shared reports whether the part sounds through a channel
	// owned by its shared counterpart.
	Channel int
	Shared  bool
}

// GetPart returns the state of the cue part.
func (d *Driver) GetPart(id SoundID, part int) (PartInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ref, err := d.lookupPart(id, part)
	if err != nil {
		return PartInfo{}, err
	}
	p := d.players.Part(ref)
	return PartInfo{
		Active:   p.active,
		Priority: p.priority,
		Volume:   p.groupVolume,
		Channel:  p.channel,
		Shared:   p.shared,
	}, nil
}

func (d *Driver) lookupPart(id SoundID, part int) (partRef, error) {
	slot, ok := d.players.Lookup(id)
	if !ok {
		return noPart, errors.Wrapf(ErrNotPlaying, "sound %d", id)
	}
	if part < 0 || part >= NumParts {
		return noPart, argumentErrorf("sound %d: part %d", id, part)
	}
	return partRef{slot: slot, part: part}, nil
}

// SetPartStatus activates or deactivates the part.
// A deactivated part loses its channel.
func (d *Driver) SetPartStatus(id SoundID, part int, active bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ref, err := d.lookupPart(id, part)
	if err != nil {
		return err
	}
	p := d.players.Part(ref)
	p.active = active
	if !active {
		d.releasePart(ref, true)
	}
	d.setupParts()
	return nil
}

// SetPartPriority changes the part priority offset in [-128, 127].
// The effective priority is the cue priority plus this offset.
func (d *Driver) SetPartPriority(id SoundID, part, priority int) error {
	return d.updatePart(id, part, "priority", priority, imdb.PartPriorityRange, func(ref partRef) {
		p := d.players.Part(ref)
		p.partPriority = priority
		p.updatePriority(d.players.Get(ref.slot).priority)
	})
}

// SetPartVolume changes the part volume in [0, 127].
// A part that becomes silent loses its channel.
func (d *Driver) SetPartVolume(id SoundID, part, volume int) error {
	return d.updatePart(id, part, "volume", volume, imdb.PartVolumeRange, func(ref partRef) {
		d.players.Part(ref).volume = volume
		d.updatePartVolume(ref)
	})
}

// SetPartTrim changes the part volume trim in [0, 127].
func (d *Driver) SetPartTrim(id SoundID, part, trim int) error {
	return d.updatePart(id, part, "trim", trim, imdb.PartTrimRange, func(ref partRef) {
		d.players.Part(ref).trim = trim
		d.updatePartVolume(ref)
	})
}

// SetPartProgram changes the part instrument.
func (d *Driver) SetPartProgram(id SoundID, part, program int) error {
	return d.updatePart(id, part, "program", program, imdb.ProgramRange, func(ref partRef) {
		p := d.players.Part(ref)
		p.program = program
		d.syncPartParam(p, PartParamProgram, program)
	})
}

// SetPartPan changes the part pan; it's combined with the cue pan.
func (d *Driver) SetPartPan(id SoundID, part, pan int) error {
	return d.updatePart(id, part, "pan", pan, imdb.PartPanRange, func(ref partRef) {
		p := d.players.Part(ref)
		p.pan = pan
		d.syncPartParam(p, PartParamPan, p.finalPan(d.players.Get(ref.slot).pan))
	})
}

// SetPartModulation changes the part modulation wheel value.
func (d *Driver) SetPartModulation(id SoundID, part, modulation int) error {
	return d.updatePart(id, part, "modulation", modulation, imdb.ModulationRange, func(ref partRef) {
		p := d.players.Part(ref)
		p.modulation = modulation
		d.syncPartParam(p, PartParamModulation, modulation)
	})
}

// SetPartSustain changes the sustain pedal value.
// When the pedal goes up, the sustained notes are turned off.
func (d *Driver) SetPartSustain(id SoundID, part, sustain int) error {
	return d.updatePart(id, part, "sustain", sustain, imdb.SustainRange, func(ref partRef) {
		p := d.players.Part(ref)
		p.sustain = sustain
		d.syncPartParam(p, PartParamSustain, sustain)
	})
}

// SetPartPitchBend changes the part pitch bend.
func (d *Driver) SetPartPitchBend(id SoundID, part, bend int) error {
	return d.updatePart(id, part, "pitch bend", bend, imdb.PitchBendRange, func(ref partRef) {
		p := d.players.Part(ref)
		p.pitchBend = bend
		d.syncPartParam(p, PartParamPitchBend, bend)
	})
}

// SetPartOutputChannels sets the number of output channels the part needs.
// A part with zero output channels can't hold a channel.
func (d *Driver) SetPartOutputChannels(id SoundID, part, n int) error {
	return d.updatePart(id, part, "output channels", n, imdb.OutChannelsRange, func(ref partRef) {
		p := d.players.Part(ref)
		p.outChannels = n
		p.badReported = false
		if n == 0 {
			d.releasePart(ref, true)
		}
	})
}

func (d *Driver) updatePart(id SoundID, part int, name string, value int, r imdb.ParamRange, update func(ref partRef)) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ref, err := d.lookupPart(id, part)
	if err != nil {
		return err
	}
	if !r.Contains(value) {
		return argumentErrorf("sound %d: part %d %s %d", id, part, name, value)
	}
	update(ref)
	d.setupParts()
	return nil
}

// syncPartParam mirrors the part param on its channel.
// Attached sharers don't drive the channel.
func (d *Driver) syncPartParam(p *soundPart, param PartParam, value int) {
	if p.Owns() {
		d.setChannelParam(&d.channels[p.channel], param, value)
	}
}

// NoteOn marks the note as playing on the part channel
// and emits EventNoteOn.
//
// A part without a channel can't play anything:
// the note is dropped and false is returned.
func (d *Driver) NoteOn(id SoundID, part, note, velocity int) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ref, err := d.lookupPart(id, part)
	if err != nil {
		return false, err
	}
	if !imdb.NoteRange.Contains(note) {
		return false, argumentErrorf("note %d", note)
	}
	if !imdb.VelocityRange.Contains(velocity) {
		return false, argumentErrorf("velocity %d", velocity)
	}

	p := d.players.Part(ref)
	p.noteReq++
	if !p.IsBound() {
		return false, nil
	}
	ch := &d.channels[p.channel]
	d.notes.NoteOn(ch, note)
	d.emit(ChannelEvent{
		Kind:    EventNoteOn,
		Channel: ch.id,
		Sound:   id,
		Part:    part,
		Note:    note,
		Value:   velocity,
	})
	return true, nil
}

// NoteOff releases the note.
// While the channel sustain is on, the note is kept sounding
// until the pedal goes up.
func (d *Driver) NoteOff(id SoundID, part, note int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ref, err := d.lookupPart(id, part)
	if err != nil {
		return err
	}
	if !imdb.NoteRange.Contains(note) {
		return argumentErrorf("note %d", note)
	}

	p := d.players.Part(ref)
	if p.noteReq > 0 {
		p.noteReq--
	}
	if !p.IsBound() {
		return nil
	}
	ch := &d.channels[p.channel]
	if d.notes.NoteOff(ch, note) {
		d.emit(ChannelEvent{
			Kind:    EventNoteOff,
			Channel: ch.id,
			Sound:   id,
			Part:    part,
			Note:    note,
		})
	}
	return nil
}
