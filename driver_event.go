package imuse

// ChannelEventKind is an event tag that should be used to differentiate between different event types.
// See ChannelEvent docs for more info.
type ChannelEventKind int

const (
	// EventUnknown is a sentinel value.
	// You should never receive an event of this kind.
	EventUnknown ChannelEventKind = iota

	// EventBind is emitted when a part gets a physical channel.
	// Volume is the resolved part volume; Program, Pan, Modulation,
	// Sustain and PitchBend carry the rest of the part state so
	// the transport can bring the channel up to date.
	EventBind

	// EventRelease is emitted when a channel returns to the pool.
	// Sound and Part identify the former owner.
	EventRelease

	// EventVolume reports a new resolved volume of a bound channel.
	EventVolume

	// EventParam reports a part parameter change of a bound channel.
	// Param and Value describe the change.
	EventParam

	// EventNoteOff asks the transport to turn off a note.
	// This happens when a channel with playing notes is released
	// or when the sustain pedal goes up.
	EventNoteOff

	// EventShare is emitted when a follower part starts to sound
	// through a channel owned by its leader counterpart.
	EventShare

	// EventUnshare is emitted when a follower part detaches
	// from the shared channel.
	EventUnshare

	// EventMidiPause and EventMidiResume are channel-independent (Channel=-1).
	EventMidiPause
	EventMidiResume

	// EventDigitalPause and EventDigitalResume are channel-independent (Channel=-1).
	EventDigitalPause
	EventDigitalResume

	// EventNoteOn asks the transport to start a note on a bound channel.
	// Value is the note velocity.
	EventNoteOn
)

func (k ChannelEventKind) String() string {
	switch k {
	case EventBind:
		return "bind"
	case EventRelease:
		return "release"
	case EventVolume:
		return "volume"
	case EventParam:
		return "param"
	case EventNoteOff:
		return "noteoff"
	case EventNoteOn:
		return "noteon"
	case EventShare:
		return "share"
	case EventUnshare:
		return "unshare"
	case EventMidiPause:
		return "midi-pause"
	case EventMidiResume:
		return "midi-resume"
	case EventDigitalPause:
		return "digital-pause"
	case EventDigitalResume:
		return "digital-resume"
	default:
		return "unknown"
	}
}

// PartParam identifies a part parameter that is mirrored on a channel.
type PartParam int

const (
	PartParamNone PartParam = iota
	PartParamProgram
	PartParamPan
	PartParamModulation
	PartParamSustain
	PartParamPitchBend
)

func (p PartParam) String() string {
	switch p {
	case PartParamProgram:
		return "program"
	case PartParamPan:
		return "pan"
	case PartParamModulation:
		return "modulation"
	case PartParamSustain:
		return "sustain"
	case PartParamPitchBend:
		return "pitchbend"
	default:
		return "none"
	}
}

// ChannelEvent holds a single driver output event.
// This object is an argument to the DriverConfig.EventHandler function.
//
// To handle the event correctly, you must first check its kind.
// Fields that are not relevant to the event kind are zero,
// except for Channel which is -1 for channel-independent events.
type ChannelEvent struct {
	Kind ChannelEventKind

	// Channel is a physical channel ID in [0, NumChannels).
	Channel int

	Sound SoundID
	Part  int

	Volume     int
	Program    int
	Pan        int
	Modulation int
	Sustain    int
	PitchBend  int

	Note int

	Param PartParam
	Value int
}
