package imuse

import (
	"github.com/pkg/errors"
	"github.com/quasilyte/imuse/internal/imdb"
)

// StartSound creates a cue for the registered sound
// in the sound default group.
//
// The priority must be in [0, 127].
// The channels are allocated before this method returns.
func (d *Driver) StartSound(id SoundID, priority int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	config, ok := d.sounds[id]
	if !ok {
		return errors.Wrapf(ErrUnknownSound, "start sound %d", id)
	}
	return d.startSound(id, config, config.Group, priority)
}

// StartMusic is like StartSound, but the cue goes to the music group.
func (d *Driver) StartMusic(id SoundID, priority int) error {
	return d.startInGroup(id, GroupMusic, priority)
}

// StartSfx is like StartSound, but the cue goes to the sfx group.
func (d *Driver) StartSfx(id SoundID, priority int) error {
	return d.startInGroup(id, GroupSfx, priority)
}

// StartVoice is like StartSound, but the cue goes to the voice group.
func (d *Driver) StartVoice(id SoundID, priority int) error {
	return d.startInGroup(id, GroupVoice, priority)
}

func (d *Driver) startInGroup(id SoundID, group GroupID, priority int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	config, ok := d.sounds[id]
	if !ok {
		return errors.Wrapf(ErrUnknownSound, "start sound %d", id)
	}
	return d.startSound(id, config, group, priority)
}

func (d *Driver) startSound(id SoundID, config *SoundConfig, group GroupID, priority int) error {
	if !mustParamInfo(imdb.ParamPriority).Contains(priority) {
		return argumentErrorf("start sound %d: priority %d", id, priority)
	}
	if _, playing := d.players.Lookup(id); playing {
		return errors.Wrapf(ErrSoundPlaying, "start sound %d", id)
	}
	if d.players.Len() >= d.settings.maxCues {
		return errors.Wrapf(ErrTooManyCues, "start sound %d", id)
	}

	slot := d.players.Add(id)
	d.initPlayer(slot, config, group, priority)
	d.settings.logger.Debug("cue started", "sound", id, "group", group, "priority", priority)

	d.setupParts()
	return nil
}

// StopSound stops the cue and returns its channels to the pool.
//
// Followers that shared parts with this cue lose the relation;
// a follower part that was attached to a channel of the stopped cue
// takes that channel over.
func (d *Driver) StopSound(id SoundID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	slot, ok := d.players.Lookup(id)
	if !ok {
		return errors.Wrapf(ErrNotPlaying, "stop sound %d", id)
	}
	d.stopPlayer(slot)
	d.setupParts()
	return nil
}

// StopAllSounds stops every cue.
func (d *Driver) StopAllSounds() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for d.players.Len() != 0 {
		d.stopPlayer(d.players.order[len(d.players.order)-1])
	}
}

// stopPlayer removes the cue from the registry.
// It doesn't run the reconciliation.
func (d *Driver) stopPlayer(slot int) {
	p := d.players.Get(slot)

	// Drop the relation first, so the attached followers
	// can be promoted by the releasePart below.
	for _, other := range d.players.order {
		if other == slot {
			continue
		}
		follower := d.players.Get(other)
		if follower.sharedPart == slot {
			follower.sharedPart = -1
			follower.sharedPartID = 0
		}
	}

	for i := range p.parts {
		d.releasePart(partRef{slot: slot, part: i}, true)
	}
	p.sharedPart = -1
	d.settings.logger.Debug("cue stopped", "sound", p.soundID)
	d.players.Remove(slot)
}

// IsPlaying reports whether the sound has a live cue.
func (d *Driver) IsPlaying(id SoundID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.players.Lookup(id)
	return ok
}

// NextSound returns the playing sound that follows the given one
// in the cue registry order.
// Use 0 to get the first sound; 0 is returned after the last one.
func (d *Driver) NextSound(after SoundID) SoundID {
	d.mu.Lock()
	defer d.mu.Unlock()

	order := d.players.order
	if after == 0 {
		if len(order) == 0 {
			return 0
		}
		return d.players.Get(order[0]).soundID
	}
	for i, slot := range order {
		if d.players.Get(slot).soundID == after {
			if i+1 < len(order) {
				return d.players.Get(order[i+1]).soundID
			}
			return 0
		}
	}
	return 0
}

// SetParam changes a cue-level parameter.
// The affected parts are updated and the channels are reconciled.
func (d *Driver) SetParam(id SoundID, param Param, value int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	slot, ok := d.players.Lookup(id)
	if !ok {
		return errors.Wrapf(ErrNotPlaying, "set %s", param)
	}
	r, ok := imdb.ParamInfo(int(param))
	if !ok {
		return argumentErrorf("unknown param %d", param)
	}
	if !r.Contains(value) {
		return argumentErrorf("sound %d: %s %d", id, param, value)
	}

	p := d.players.Get(slot)
	switch param {
	case ParamPriority:
		p.priority = value
		for i := range p.parts {
			p.parts[i].updatePriority(value)
		}
	case ParamVolume:
		p.volume = value
		d.updatePlayerVolume(slot)
	case ParamGroup:
		p.group = GroupID(value)
		d.updatePlayerVolume(slot)
	case ParamPan:
		p.pan = value
		for i := range p.parts {
			part := &p.parts[i]
			if part.Owns() {
				d.setChannelParam(&d.channels[part.channel], PartParamPan, part.finalPan(p.pan))
			}
		}
	case ParamDetune:
		p.detune = value
	case ParamTranspose:
		p.transpose = value
	case ParamMailbox:
		p.mailbox = value
	case ParamMarker:
		p.marker = value
	}

	d.setupParts()
	return nil
}

// GetParam returns the cue-level parameter value.
func (d *Driver) GetParam(id SoundID, param Param) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	slot, ok := d.players.Lookup(id)
	if !ok {
		return 0, errors.Wrapf(ErrNotPlaying, "get %s", param)
	}
	p := d.players.Get(slot)
	switch param {
	case ParamPriority:
		return p.priority, nil
	case ParamVolume:
		return p.volume, nil
	case ParamPan:
		return p.pan, nil
	case ParamDetune:
		return p.detune, nil
	case ParamTranspose:
		return p.transpose, nil
	case ParamGroup:
		return int(p.group), nil
	case ParamMailbox:
		return p.mailbox, nil
	case ParamMarker:
		return p.marker, nil
	default:
		return 0, argumentErrorf("unknown param %d", param)
	}
}

// SetHook stores the sequencer hook value of the cue.
func (d *Driver) SetHook(id SoundID, value int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	slot, ok := d.players.Lookup(id)
	if !ok {
		return errors.Wrap(ErrNotPlaying, "set hook")
	}
	d.players.Get(slot).hook = value
	return nil
}

// GetHook returns the sequencer hook value of the cue.
func (d *Driver) GetHook(id SoundID) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	slot, ok := d.players.Lookup(id)
	if !ok {
		return 0, errors.Wrap(ErrNotPlaying, "get hook")
	}
	return d.players.Get(slot).hook, nil
}

// ShareParts makes the follower cue parts sound through the leader cue channels.
//
// The follower part N is paired with the leader part N.
// Whenever one of them holds a channel and the other one is eligible
// but idle, the idle part is attached to the same channel,
// so the transition between the cues doesn't re-trigger anything.
//
// If both parts already have their own channels,
// the follower channel is released in favor of the leader one.
func (d *Driver) ShareParts(follower, leader SoundID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if follower == leader {
		return argumentErrorf("share parts: sound %d with itself", follower)
	}
	followerSlot, ok := d.players.Lookup(follower)
	if !ok {
		return errors.Wrapf(ErrNotPlaying, "share parts: follower %d", follower)
	}
	leaderSlot, ok := d.players.Lookup(leader)
	if !ok {
		return errors.Wrapf(ErrNotPlaying, "share parts: leader %d", leader)
	}
	for slot := leaderSlot; slot >= 0; slot = d.players.Get(slot).sharedPart {
		if slot == followerSlot {
			return argumentErrorf("share parts: %d already leads %d", follower, leader)
		}
	}

	p := d.players.Get(followerSlot)
	if p.sharedPart >= 0 && p.sharedPart != leaderSlot {
		d.unshareParts(followerSlot)
	}
	p.sharedPart = leaderSlot
	p.sharedPartID = leader

	l := d.players.Get(leaderSlot)
	for i := range p.parts {
		part := &p.parts[i]
		leaderPart := &l.parts[i]
		if !part.Owns() || !leaderPart.Owns() {
			continue
		}
		if d.channels[leaderPart.channel].sharer.IsValid() {
			continue
		}
		d.releasePart(partRef{slot: followerSlot, part: i}, false)
	}

	d.setupParts()
	return nil
}

// UnshareParts removes the follower shared parts relation.
// The attached parts are detached and compete for channels on their own.
func (d *Driver) UnshareParts(follower SoundID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	slot, ok := d.players.Lookup(follower)
	if !ok {
		return errors.Wrapf(ErrNotPlaying, "unshare parts: %d", follower)
	}
	d.unshareParts(slot)
	d.setupParts()
	return nil
}

func (d *Driver) unshareParts(slot int) {
	p := d.players.Get(slot)
	for i := range p.parts {
		part := &p.parts[i]
		if part.IsBound() && part.shared {
			d.detachSharer(&d.channels[part.channel])
		}
	}
	p.sharedPart = -1
	p.sharedPartID = 0
}

// SharedWith returns the leader sound of the follower cue (or 0).
// The shared part is always the leader part with the same index.
func (d *Driver) SharedWith(follower SoundID) SoundID {
	d.mu.Lock()
	defer d.mu.Unlock()

	slot, ok := d.players.Lookup(follower)
	if !ok {
		return 0
	}
	return d.players.Get(slot).sharedPartID
}
