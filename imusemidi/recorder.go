package imusemidi

import (
	"io"

	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// Recorder collects the transport output into a standard MIDI file track.
//
// Every driver tick is mapped to ticksPerTick file ticks;
// call Advance once per driver Tick.
type Recorder struct {
	track smf.Track

	ticksPerTick uint32
	delta        uint32
}

// NewRecorder creates a recorder for a driver that ticks
// tickRate times per second.
func NewRecorder(tickRate int) *Recorder {
	const bpm = 120.0
	// 960 ticks per quarter note at 120 BPM is 1920 ticks per second.
	ticksPerTick := uint32(1920 / max(tickRate, 1))
	r := &Recorder{
		ticksPerTick: max(ticksPerTick, 1),
	}
	r.track.Add(0, smf.MetaTempo(bpm))
	return r
}

// Send records the message at the current position.
// It has the TransportConfig.Send signature.
func (r *Recorder) Send(msg midi.Message) error {
	r.track.Add(r.delta, msg)
	r.delta = 0
	return nil
}

// Advance moves the current position by one driver tick.
func (r *Recorder) Advance() {
	r.delta += r.ticksPerTick
}

// WriteTo encodes the recorded track as a single track MIDI file.
func (r *Recorder) WriteTo(w io.Writer) (int64, error) {
	track := make(smf.Track, len(r.track))
	copy(track, r.track)
	track.Close(r.delta)

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(960)
	if err := s.Add(track); err != nil {
		return 0, errors.Wrap(err, "add track")
	}
	return s.WriteTo(w)
}
