package imuse

import (
	"github.com/pkg/errors"
	"github.com/quasilyte/imuse/imusefile"
	"github.com/quasilyte/imuse/internal/imdb"
)

// SoundConfig describes a sound resource that can be started as a cue.
//
// The driver doesn't parse the sound sequence data;
// this config only describes the parts that will need channels.
type SoundConfig struct {
	// Group is a volume group the cue belongs to.
	// Use StartMusic, StartSfx and StartVoice to override it on start.
	Group GroupID

	// Volume is the cue volume in [0, 127].
	// It's used as is: a zero value makes the cue silent.
	Volume int

	// Pan is the cue panning in [0, 127], 64 is the center.
	// It's used as is: a zero value means "hard left".
	Pan int

	Detune    int
	Transpose int

	// Parts describe the logical parts of the cue.
	// At most NumParts parts are allowed.
	Parts []PartConfig
}

// PartConfig describes a logical part (a track) of a sound.
type PartConfig struct {
	// Disabled parts are not active when the cue starts.
	// They can be activated later with SetPartStatus.
	Disabled bool

	Program    int
	Priority   int
	Volume     int
	Trim       int
	Pan        int
	Modulation int

	// OutputChannels is the number of output channels the part needs.
	//
	// A zero value will use 1.
	OutputChannels int
}

// RegisterSound makes the sound available for StartSound.
// Registering a sound that is already registered replaces its config;
// the already playing cue is not affected.
func (d *Driver) RegisterSound(id SoundID, config SoundConfig) error {
	if err := validateSoundConfig(id, &config); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	parts := make([]PartConfig, len(config.Parts))
	copy(parts, config.Parts)
	config.Parts = parts
	d.sounds[id] = &config
	return nil
}

// LoadBank registers every sound from the bank and applies
// the bank group volumes.
func (d *Driver) LoadBank(b *imusefile.Bank) error {
	for i := range b.Sounds {
		s := &b.Sounds[i]
		if err := d.RegisterSound(SoundID(s.ID), soundConfigFromFile(s)); err != nil {
			return errors.Wrapf(err, "bank sound %q", s.Name)
		}
	}
	for _, gv := range b.Groups {
		if _, err := d.SetGroupVolume(GroupID(gv.Group), gv.Volume); err != nil {
			return errors.Wrapf(err, "bank group %q", gv.Name)
		}
	}
	return nil
}

func soundConfigFromFile(s *imusefile.Sound) SoundConfig {
	config := SoundConfig{
		Group:     GroupID(s.Group),
		Volume:    s.Volume,
		Pan:       s.Pan,
		Detune:    s.Detune,
		Transpose: s.Transpose,
		Parts:     make([]PartConfig, len(s.Parts)),
	}
	for i, p := range s.Parts {
		config.Parts[i] = PartConfig{
			Disabled:       p.Disabled,
			Program:        p.Program,
			Priority:       p.Priority,
			Volume:         p.Volume,
			Trim:           p.Trim,
			Pan:            p.Pan,
			Modulation:     p.Modulation,
			OutputChannels: p.OutputChannels,
		}
	}
	return config
}

func validateSoundConfig(id SoundID, config *SoundConfig) error {
	if id <= 0 {
		return argumentErrorf("sound id %d", id)
	}
	if config.Group < 0 || int(config.Group) >= NumGroups {
		return argumentErrorf("sound %d: group %d", id, config.Group)
	}
	checks := []struct {
		name  string
		value int
		r     imdb.ParamRange
	}{
		{"volume", config.Volume, imdb.PartVolumeRange},
		{"pan", config.Pan, imdb.PartPanRange},
		{"detune", config.Detune, mustParamInfo(imdb.ParamDetune)},
		{"transpose", config.Transpose, mustParamInfo(imdb.ParamTranspose)},
	}
	for _, c := range checks {
		if !c.r.Contains(c.value) {
			return argumentErrorf("sound %d: %s %d", id, c.name, c.value)
		}
	}
	if len(config.Parts) > NumParts {
		return argumentErrorf("sound %d: too many parts (%d)", id, len(config.Parts))
	}
	for i := range config.Parts {
		if err := validatePartConfig(&config.Parts[i]); err != nil {
			return errors.Wrapf(err, "sound %d: part %d", id, i)
		}
	}
	return nil
}

func validatePartConfig(p *PartConfig) error {
	checks := []struct {
		name  string
		value int
		r     imdb.ParamRange
	}{
		{"program", p.Program, imdb.ProgramRange},
		{"priority", p.Priority, imdb.PartPriorityRange},
		{"volume", p.Volume, imdb.PartVolumeRange},
		{"trim", p.Trim, imdb.PartTrimRange},
		{"pan", p.Pan, imdb.PartPanRange},
		{"modulation", p.Modulation, imdb.ModulationRange},
		{"output channels", p.OutputChannels, imdb.OutChannelsRange},
	}
	for _, c := range checks {
		if !c.r.Contains(c.value) {
			return argumentErrorf("%s %d", c.name, c.value)
		}
	}
	return nil
}

func mustParamInfo(p int) imdb.ParamRange {
	r, ok := imdb.ParamInfo(p)
	if !ok {
		panic("unexpected param")
	}
	return r
}

// initPlayer fills the freshly allocated player from the sound config.
func (d *Driver) initPlayer(slot int, config *SoundConfig, group GroupID, priority int) {
	p := d.players.Get(slot)
	p.group = group
	p.priority = priority
	p.volume = config.Volume
	p.pan = config.Pan
	p.detune = config.Detune
	p.transpose = config.Transpose

	for i, pc := range config.Parts {
		part := &p.parts[i]
		part.active = !pc.Disabled
		part.program = pc.Program
		part.partPriority = pc.Priority
		part.volume = pc.Volume
		part.trim = pc.Trim
		part.pan = pc.Pan
		part.modulation = pc.Modulation
		part.outChannels = pc.OutputChannels
		if part.outChannels == 0 {
			part.outChannels = 1
		}
		part.updatePriority(priority)
	}

	d.updatePlayerVolume(slot)
}
