package imuse

// SetGroupVolume assigns a new configured volume to the group
// and returns the previous configured value.
//
// The volume must be in [0, 127].
// A VolumeQuery volume returns the current value without changing anything.
//
// Changing the master volume re-resolves every other group;
// changing any other group re-resolves only that group.
// After that, the new volumes are propagated to every cue and part
// and the channel allocation is reconciled, since the resolved
// volumes decide which parts are allowed to hold a channel.
func (d *Driver) SetGroupVolume(group GroupID, volume int) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if group < 0 || int(group) >= NumGroups {
		return 0, argumentErrorf("group %d", group)
	}
	if volume == VolumeQuery {
		return d.groupVolume[group], nil
	}
	if volume < 0 || volume > MaxVolume {
		return 0, argumentErrorf("group %s volume %d", group, volume)
	}

	prev := d.groupVolume[group]
	d.groupVolume[group] = volume
	if group == GroupMaster {
		d.resolveGroupVolumes()
	} else {
		d.soundGroupVolume[group] = resolveGroupVolume(volume, d.groupVolume[GroupMaster])
	}
	d.handleGroupVolumeChange()

	return prev, nil
}

// GroupVolume returns the resolved group volume.
// The master group always resolves to 0: the master volume
// is applied through the other groups.
func (d *Driver) GroupVolume(group GroupID) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if group < 0 || int(group) >= NumGroups {
		return 0, argumentErrorf("group %d", group)
	}
	return d.soundGroupVolume[group], nil
}

// SetMasterVolume is a SetGroupVolume shortcut for the master group.
func (d *Driver) SetMasterVolume(volume int) (int, error) {
	return d.SetGroupVolume(GroupMaster, volume)
}

// MasterVolume returns the configured master volume.
func (d *Driver) MasterVolume() int {
	v, _ := d.SetGroupVolume(GroupMaster, VolumeQuery)
	return v
}

// SetMusicVolume is a SetGroupVolume shortcut for the music group.
func (d *Driver) SetMusicVolume(volume int) (int, error) {
	return d.SetGroupVolume(GroupMusic, volume)
}

// MusicVolume returns the configured music group volume.
func (d *Driver) MusicVolume() int {
	v, _ := d.SetGroupVolume(GroupMusic, VolumeQuery)
	return v
}

// SetSfxVolume is a SetGroupVolume shortcut for the sfx group.
func (d *Driver) SetSfxVolume(volume int) (int, error) {
	return d.SetGroupVolume(GroupSfx, volume)
}

// SfxVolume returns the configured sfx group volume.
func (d *Driver) SfxVolume() int {
	v, _ := d.SetGroupVolume(GroupSfx, VolumeQuery)
	return v
}

// SetVoiceVolume is a SetGroupVolume shortcut for the voice group.
func (d *Driver) SetVoiceVolume(volume int) (int, error) {
	return d.SetGroupVolume(GroupVoice, volume)
}

// VoiceVolume returns the configured voice group volume.
func (d *Driver) VoiceVolume() int {
	v, _ := d.SetGroupVolume(GroupVoice, VolumeQuery)
	return v
}

func resolveGroupVolume(configured, master int) int {
	return ((configured + 1) * master) >> 7
}

func (d *Driver) resolveGroupVolumes() {
	master := d.groupVolume[GroupMaster]
	d.soundGroupVolume[GroupMaster] = 0
	for g := 1; g < NumGroups; g++ {
		d.soundGroupVolume[g] = resolveGroupVolume(d.groupVolume[g], master)
	}
}

// handleGroupVolumeChange propagates the resolved group volumes
// to every cue and part before running a single reconciliation.
//
// All volumes are resolved before any channel is touched:
// releasing a silent owner may promote a sharer of another cue,
// and that sharer has to be judged by its new volume.
func (d *Driver) handleGroupVolumeChange() {
	for _, slot := range d.players.order {
		d.resolvePlayerVolume(slot)
	}
	for _, slot := range d.players.order {
		d.applyPlayerVolume(slot)
	}
	d.setupParts()
}

func (d *Driver) updatePlayerVolume(slot int) {
	d.resolvePlayerVolume(slot)
	d.applyPlayerVolume(slot)
}

func (d *Driver) resolvePlayerVolume(slot int) {
	p := d.players.Get(slot)
	p.groupVolume = ((p.volume + 1) * d.soundGroupVolume[p.group]) >> 7
	for i := range p.parts {
		p.parts[i].updateVolume(p.groupVolume)
	}
}

func (d *Driver) applyPlayerVolume(slot int) {
	p := d.players.Get(slot)
	for i := range p.parts {
		d.applyPartVolume(partRef{slot: slot, part: i})
	}
}

// updatePartVolume re-resolves the part volume and applies it.
//
// It doesn't run the reconciliation.
func (d *Driver) updatePartVolume(ref partRef) {
	p := d.players.Get(ref.slot)
	p.parts[ref.part].updateVolume(p.groupVolume)
	d.applyPartVolume(ref)
}

// applyPartVolume makes the channel state follow the resolved part volume.
// A part that became silent loses its channel right away,
// a bound part gets its channel volume updated.
func (d *Driver) applyPartVolume(ref partRef) {
	p := d.players.Get(ref.slot)
	part := &p.parts[ref.part]
	if !part.IsBound() {
		return
	}
	if !d.isAudible(p, part) {
		d.releasePart(ref, true)
		return
	}
	if part.Owns() {
		d.setChannelVolume(&d.channels[part.channel], part.groupVolume)
	}
}
