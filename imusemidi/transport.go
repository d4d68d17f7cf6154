// Package imusemidi connects the imuse driver output to a MIDI device.
//
// Transport translates imuse.ChannelEvent values into MIDI messages.
// Use Transport.HandleEvent as imuse.DriverConfig.EventHandler.
package imusemidi

import (
	"io"
	"log/slog"

	"github.com/quasilyte/imuse"
	"github.com/quasilyte/imuse/internal/imdb"
	"gitlab.com/gomidi/midi/v2"
)

type Transport struct {
	send   func(msg midi.Message) error
	logger *slog.Logger

	channels [imuse.NumChannels]uint8

	paused bool

	// err is the first send error.
	err error

	buf []midi.Message
}

type TransportConfig struct {
	// Send delivers the encoded message.
	// For a real device, use the midi.SendTo result.
	//
	// A nil value discards all messages.
	Send func(msg midi.Message) error

	// Logger receives the send errors.
	//
	// A nil value disables the logging.
	Logger *slog.Logger

	// Channels maps the driver physical channels to the MIDI channels.
	//
	// A nil value maps every physical channel to the MIDI channel
	// with the same number.
	Channels []uint8
}

func NewTransport(config TransportConfig) *Transport {
	t := &Transport{
		send:   config.Send,
		logger: config.Logger,
		buf:    make([]midi.Message, 0, 8),
	}
	if t.send == nil {
		t.send = func(midi.Message) error { return nil }
	}
	if t.logger == nil {
		t.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	for i := range t.channels {
		t.channels[i] = uint8(i)
		if i < len(config.Channels) {
			t.channels[i] = config.Channels[i] & 0x0f
		}
	}
	return t
}

// Err returns the first send error, if any.
func (t *Transport) Err() error { return t.err }

// HandleEvent encodes the event and sends the resulting messages.
//
// The send errors don't stop the transport: they are logged
// and the first one is reported by Err.
func (t *Transport) HandleEvent(e imuse.ChannelEvent) {
	t.buf = t.Encode(t.buf[:0], e)
	for _, msg := range t.buf {
		if err := t.send(msg); err != nil {
			t.logger.Warn("midi send failed", "msg", msg.String(), "err", err)
			if t.err == nil {
				t.err = err
			}
		}
	}
}

// Encode appends the MIDI messages for e to dst.
// Events that don't need any output produce no messages.
//
// While the MIDI output is paused, only note-offs are encoded.
func (t *Transport) Encode(dst []midi.Message, e imuse.ChannelEvent) []midi.Message {
	switch e.Kind {
	case imuse.EventMidiPause:
		t.paused = true
		return append(dst, midi.SilenceChannel(-1)...)
	case imuse.EventMidiResume:
		t.paused = false
		return dst
	}

	if e.Channel < 0 || e.Channel >= imuse.NumChannels {
		return dst
	}
	ch := t.channels[e.Channel]

	if e.Kind == imuse.EventNoteOff {
		return append(dst, midi.NoteOff(ch, uint8(e.Note)))
	}
	if t.paused {
		return dst
	}

	switch e.Kind {
	case imuse.EventBind:
		dst = append(dst,
			midi.ProgramChange(ch, uint8(e.Program)),
			midi.ControlChange(ch, imdb.CtrlVolume, uint8(e.Volume)),
			midi.ControlChange(ch, imdb.CtrlPan, uint8(e.Pan)),
			midi.ControlChange(ch, imdb.CtrlModulation, uint8(e.Modulation)),
			midi.ControlChange(ch, imdb.CtrlSustain, imdb.SustainValue(e.Sustain)),
			midi.Pitchbend(ch, int16(e.PitchBend)))
	case imuse.EventVolume:
		dst = append(dst, midi.ControlChange(ch, imdb.CtrlVolume, uint8(e.Volume)))
	case imuse.EventParam:
		dst = appendParam(dst, ch, e.Param, e.Value)
	case imuse.EventNoteOn:
		dst = append(dst, midi.NoteOn(ch, uint8(e.Note), uint8(e.Value)))
	case imuse.EventRelease:
		dst = append(dst, midi.ControlChange(ch, imdb.CtrlSustain, 0))
	}

	return dst
}

func appendParam(dst []midi.Message, ch uint8, param imuse.PartParam, value int) []midi.Message {
	switch param {
	case imuse.PartParamProgram:
		return append(dst, midi.ProgramChange(ch, uint8(value)))
	case imuse.PartParamPan:
		return append(dst, midi.ControlChange(ch, imdb.CtrlPan, uint8(value)))
	case imuse.PartParamModulation:
		return append(dst, midi.ControlChange(ch, imdb.CtrlModulation, uint8(value)))
	case imuse.PartParamSustain:
		return append(dst, midi.ControlChange(ch, imdb.CtrlSustain, imdb.SustainValue(value)))
	case imuse.PartParamPitchBend:
		return append(dst, midi.Pitchbend(ch, int16(value)))
	default:
		return dst
	}
}
