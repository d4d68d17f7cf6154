package imuse

import (
	"io"
	"log/slog"
	"sync"
)

// Driver is the allocator and mixer context.
//
// All state that used to be global in the classic iMUSE implementation
// (channel pool, group volumes, pause counters, the player list)
// lives here, so independent drivers can coexist.
//
// Driver methods are safe for concurrent use.
// The event handler is called with the driver lock held,
// so it must not call the Driver methods.
type Driver struct {
	mu sync.Mutex

	settings driverSettings

	channels [NumChannels]midiChannel
	notes    noteTable

	players playerRegistry
	sounds  map[SoundID]*SoundConfig

	// groupVolume stores the configured values;
	// soundGroupVolume stores the resolved ones.
	groupVolume      [NumGroups]int
	soundGroupVolume [NumGroups]int

	pauseCount    int
	midiPaused    bool
	digitalPaused bool
	playerLock    int

	scratchSlots []int
}

type driverSettings struct {
	logger       *slog.Logger
	eventHandler func(e ChannelEvent)
	sequencer    Sequencer
	maxCues      int
}

// Sequencer advances the cue playback position.
//
// The driver calls Step for every playing cue on every Tick
// (unless MIDI output is paused or the player lock is held).
// Step must not call the Driver methods.
// A true result means that the cue reached its end and should be stopped.
type Sequencer interface {
	Step(sound SoundID, data *PlayerData) (done bool)
}

// DriverConfig configures a new driver.
//
// These settings can't be changed after a driver is created.
type DriverConfig struct {
	// Logger receives the driver diagnostics.
	// Invariant violations are reported at the error level,
	// the channel allocation details are reported at the debug level.
	//
	// A nil value disables the logging.
	Logger *slog.Logger

	// EventHandler is called for every channel-level event.
	// This is how bound channels reach the MIDI transport.
	// See ChannelEvent for more info.
	//
	// A nil value means "discard all events".
	EventHandler func(e ChannelEvent)

	// Sequencer is called from Tick.
	//
	// A nil value makes Tick only run the channel reconciliation.
	Sequencer Sequencer

	// MaxCues limits the number of simultaneously playing cues.
	//
	// A zero value will use 24.
	MaxCues int

	// GroupVolumes sets the initial configured group volumes.
	// Missing groups start at 127.
	// Values are clamped to [0, 127].
	GroupVolumes map[GroupID]int
}

// NewDriver allocates a driver with all channels free and no cues playing.
func NewDriver(config DriverConfig) *Driver {
	applyConfigDefaults(&config)

	d := &Driver{
		settings: driverSettings{
			logger:       config.Logger,
			eventHandler: config.EventHandler,
			sequencer:    config.Sequencer,
			maxCues:      config.MaxCues,
		},
		players:      newPlayerRegistry(config.MaxCues),
		sounds:       make(map[SoundID]*SoundConfig),
		scratchSlots: make([]int, 0, config.MaxCues),
	}
	d.initChannels()

	for g := range d.groupVolume {
		d.groupVolume[g] = MaxVolume
	}
	for g, v := range config.GroupVolumes {
		if g < 0 || int(g) >= NumGroups {
			continue
		}
		d.groupVolume[g] = clamp(v, 0, MaxVolume)
	}
	d.resolveGroupVolumes()

	return d
}

func applyConfigDefaults(config *DriverConfig) {
	if config.Logger == nil {
		config.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if config.MaxCues == 0 {
		config.MaxCues = 24
	}
}

func (d *Driver) emit(e ChannelEvent) {
	if d.settings.eventHandler != nil {
		d.settings.eventHandler(e)
	}
}

func (d *Driver) invariantViolation(msg string, ref partRef, channel int) {
	sound := SoundID(0)
	if ref.IsValid() {
		sound = d.players.Get(ref.slot).soundID
	}
	d.settings.logger.Error("imuse invariant violation",
		"reason", msg,
		"sound", sound,
		"part", ref.part,
		"channel", channel)
}

// Tick is the audio service entry point.
// It should be called periodically from the audio context.
//
// When the player lock is held (see LockPlayers), the tick is deferred
// and false is returned; nothing is changed in this case.
// Otherwise the cues are advanced through the Sequencer (unless MIDI is paused),
// the finished cues are stopped and the channel reconciliation runs.
func (d *Driver) Tick() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.playerLock > 0 {
		return false
	}

	if !d.midiPaused && d.settings.sequencer != nil {
		finished := d.scratchSlots[:0]
		for _, slot := range d.players.order {
			p := d.players.Get(slot)
			if d.settings.sequencer.Step(p.soundID, &p.data) {
				finished = append(finished, slot)
			}
		}
		for _, slot := range finished {
			d.settings.logger.Debug("cue finished", "sound", d.players.Get(slot).soundID)
			d.stopPlayer(slot)
		}
		d.scratchSlots = finished[:0]
	}

	d.setupParts()
	return true
}

// ChannelInfo describes the physical channel state.
// See Driver.Snapshot.
type ChannelInfo struct {
	ID int

	// Sound and Part identify the channel owner.
	// Sound is 0 for a free channel.
	Sound SoundID
	Part  int

	// SharedSound and SharedPart identify the follower part
	// that sounds through this channel, if any.
	SharedSound SoundID
	SharedPart  int

	Volume   int
	Priority int
}

// Snapshot returns the state of every physical channel.
func (d *Driver) Snapshot() []ChannelInfo {
	d.mu.Lock()
	defer d.mu.Unlock()

	result := make([]ChannelInfo, NumChannels)
	for i := range d.channels {
		ch := &d.channels[i]
		info := ChannelInfo{
			ID:         ch.id,
			Part:       -1,
			SharedPart: -1,
		}
		if ch.owner.IsValid() {
			info.Sound = d.players.Get(ch.owner.slot).soundID
			info.Part = ch.owner.part
			info.Volume = ch.volume
			info.Priority = d.channelPriority(ch)
		}
		if ch.sharer.IsValid() {
			info.SharedSound = d.players.Get(ch.sharer.slot).soundID
			info.SharedPart = ch.sharer.part
		}
		result[i] = info
	}
	return result
}

// DriverInfo contains the driver usage statistics.
type DriverInfo struct {
	// ActiveCues is the number of the playing cues.
	ActiveCues int

	// BoundChannels is the number of the allocated physical channels.
	BoundChannels int

	// MemoryUsage approximates the driver state size in bytes.
	MemoryUsage uint
}

// GetInfo returns driver-related info.
// See DriverInfo for more details.
func (d *Driver) GetInfo() DriverInfo {
	d.mu.Lock()
	defer d.mu.Unlock()

	bound := 0
	for i := range d.channels {
		if !d.channels[i].IsFree() {
			bound++
		}
	}
	return DriverInfo{
		ActiveCues:    d.players.Len(),
		BoundChannels: bound,
		MemoryUsage:   driverSize(d),
	}
}
