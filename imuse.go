// Package imuse implements the channel allocator and the hierarchical
// volume mixer of an interactive music driver.
//
// A Driver owns a fixed pool of physical MIDI channels and a registry
// of playing cues (sound players). Every cue has up to 16 logical parts;
// the driver decides which parts are backed by physical channels,
// preempting lower priority parts when the pool is exhausted, and
// propagates the master/group/cue/part volume hierarchy down to
// every bound channel.
//
// The driver never talks to a device directly. Everything that should
// reach the MIDI output is reported via ChannelEvent values,
// see DriverConfig.EventHandler and the imusemidi package.
package imuse

import (
	"github.com/quasilyte/imuse/internal/imdb"
)

const (
	// NumChannels is the physical channel pool size.
	NumChannels = 16

	// NumParts is the number of logical part slots per cue.
	NumParts = 16

	// NumGroups is the volume group table size.
	NumGroups = imdb.NumGroups

	// VolumeQuery can be passed to SetGroupVolume to read
	// the configured group volume without changing it.
	VolumeQuery = -1

	// MaxVolume is the upper bound for every volume value.
	MaxVolume = 127
)

// SoundID identifies a sound (cue) resource.
// Zero is not a valid sound ID.
type SoundID int

// GroupID identifies a volume group.
type GroupID int

const (
	GroupMaster GroupID = imdb.GroupMaster
	GroupSfx    GroupID = imdb.GroupSfx
	GroupVoice  GroupID = imdb.GroupVoice
	GroupMusic  GroupID = imdb.GroupMusic
)

func (g GroupID) String() string { return imdb.GroupName(int(g)) }

// Param selects a cue-level parameter for SetParam and GetParam.
type Param int

const (
	ParamPriority  Param = imdb.ParamPriority
	ParamVolume    Param = imdb.ParamVolume
	ParamPan       Param = imdb.ParamPan
	ParamDetune    Param = imdb.ParamDetune
	ParamTranspose Param = imdb.ParamTranspose
	ParamGroup     Param = imdb.ParamGroup
	ParamMailbox   Param = imdb.ParamMailbox
	ParamMarker    Param = imdb.ParamMarker
)

func (p Param) String() string {
	switch p {
	case ParamPriority:
		return "priority"
	case ParamVolume:
		return "volume"
	case ParamPan:
		return "pan"
	case ParamDetune:
		return "detune"
	case ParamTranspose:
		return "transpose"
	case ParamGroup:
		return "group"
	case ParamMailbox:
		return "mailbox"
	case ParamMarker:
		return "marker"
	default:
		return "unknown"
	}
}
