package imuse

// NumInstruments is the size of the per-instrument note tables.
const NumInstruments = 128

type midiChannel struct {
	id   int
	mask uint16

	// owner is the part this channel is allocated for.
	// sharer is an optional follower part that sounds through
	// the same channel (see Driver.ShareParts).
	owner  partRef
	sharer partRef

	// Values that were applied to the output.
	program    int
	volume     int
	pan        int
	modulation int
	sustain    int
	pitchBend  int
}

func (ch *midiChannel) Reset() {
	*ch = midiChannel{
		id:     ch.id,
		mask:   ch.mask,
		owner:  noPart,
		sharer: noPart,
		volume: -1,
	}
}

func (ch *midiChannel) IsFree() bool { return !ch.owner.IsValid() }

// noteTable tracks which physical channels have a note turned on
// for every instrument (key) slot.
//
// playing holds the notes that are currently on;
// sustained holds the notes that were released while the
// sustain pedal was down.
type noteTable struct {
	playing   [NumInstruments]uint16
	sustained [NumInstruments]uint16
}

func (t *noteTable) NoteOn(ch *midiChannel, note int) {
	t.sustained[note] &^= ch.mask
	t.playing[note] |= ch.mask
}

func (t *noteTable) NoteOff(ch *midiChannel, note int) bool {
	if t.playing[note]&ch.mask == 0 {
		return false
	}
	t.playing[note] &^= ch.mask
	if ch.sustain != 0 {
		t.sustained[note] |= ch.mask
		return false
	}
	return true
}

func (t *noteTable) ReleaseSustained(ch *midiChannel, f func(note int)) {
	for note := range t.sustained {
		if t.sustained[note]&ch.mask != 0 {
			t.sustained[note] &^= ch.mask
			f(note)
		}
	}
}

func (t *noteTable) IsPlaying(ch *midiChannel, note int) bool {
	return (t.playing[note]|t.sustained[note])&ch.mask != 0
}

func (d *Driver) initChannels() {
	for i := range d.channels {
		ch := &d.channels[i]
		ch.id = i
		ch.mask = 1 << i
		ch.Reset()
	}
}

func (d *Driver) freeChannel() *midiChannel {
	for i := range d.channels {
		ch := &d.channels[i]
		if ch.IsFree() {
			return ch
		}
	}
	return nil
}

// silenceChannel turns off every note that is still marked for ch.
func (d *Driver) silenceChannel(ch *midiChannel) {
	ch.sustain = 0
	for note := range d.notes.playing {
		switch {
		case d.notes.playing[note]&ch.mask != 0:
			d.notes.playing[note] &^= ch.mask
		case d.notes.sustained[note]&ch.mask != 0:
			d.notes.sustained[note] &^= ch.mask
		default:
			continue
		}
		d.emit(ChannelEvent{
			Kind:    EventNoteOff,
			Channel: ch.id,
			Note:    note,
		})
	}
}

func (d *Driver) setChannelVolume(ch *midiChannel, volume int) {
	if ch.volume == volume {
		return
	}
	ch.volume = volume
	ref := ch.owner
	d.emit(ChannelEvent{
		Kind:    EventVolume,
		Channel: ch.id,
		Sound:   d.players.Get(ref.slot).soundID,
		Part:    ref.part,
		Volume:  volume,
	})
}

func (d *Driver) setChannelParam(ch *midiChannel, param PartParam, value int) {
	var dst *int
	switch param {
	case PartParamProgram:
		dst = &ch.program
	case PartParamPan:
		dst = &ch.pan
	case PartParamModulation:
		dst = &ch.modulation
	case PartParamSustain:
		dst = &ch.sustain
	case PartParamPitchBend:
		dst = &ch.pitchBend
	default:
		return
	}
	if *dst == value {
		return
	}
	*dst = value
	ref := ch.owner
	d.emit(ChannelEvent{
		Kind:    EventParam,
		Channel: ch.id,
		Sound:   d.players.Get(ref.slot).soundID,
		Part:    ref.part,
		Param:   param,
		Value:   value,
	})
	if param == PartParamSustain && value == 0 {
		d.notes.ReleaseSustained(ch, func(note int) {
			d.emit(ChannelEvent{
				Kind:    EventNoteOff,
				Channel: ch.id,
				Note:    note,
			})
		})
	}
}
