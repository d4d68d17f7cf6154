package imuse

// isAudible reports whether the part volumes allow it to hold a channel.
func (d *Driver) isAudible(p *soundPlayer, part *soundPart) bool {
	return p.groupVolume != 0 &&
		part.trim != 0 &&
		part.volume != 0 &&
		part.groupVolume != 0
}

// isEligible reports whether the part wants a channel.
func (d *Driver) isEligible(ref partRef) bool {
	p := d.players.Get(ref.slot)
	part := &p.parts[ref.part]
	if !part.active {
		return false
	}
	if part.outChannels == 0 {
		if !part.badReported {
			part.badReported = true
			d.invariantViolation("part has 0 output channels", ref, part.channel)
		}
		return false
	}
	return d.isAudible(p, part)
}

// setupParts is the channel allocator.
//
// Every iteration reconciles the shared parts, then finds the best
// channel candidate (the highest priority eligible part without a channel)
// and the preemption victim (the lowest priority channel owner,
// see channelPriority).
// The candidate gets a free channel or the victim's channel if it
// has a strictly higher priority.
// Since a binding can affect the eligibility of other parts,
// the whole registry is re-scanned until nothing changes.
func (d *Driver) setupParts() {
	numParts := d.players.Len() * NumParts
	maxIterations := (numParts + 1) * NumChannels

	for i := 0; ; i++ {
		if i > maxIterations {
			d.invariantViolation("channel allocation did not converge", noPart, -1)
			return
		}
		shared := d.setupSharedParts()
		assigned := d.assignBestCandidate()
		if !shared && !assigned {
			return
		}
	}
}

// setupSharedParts pairs every follower part with the leader part
// of the same index.
//
// If the follower owns a channel while the leader part is eligible
// but idle, the channel ownership goes to the leader and the follower
// stays attached to it. If the leader owns a channel and the follower
// part is eligible but idle, the follower attaches to the same channel.
// No note is re-triggered in both cases.
func (d *Driver) setupSharedParts() bool {
	changed := false
	for _, slot := range d.players.order {
		p := d.players.Get(slot)
		if p.sharedPart < 0 {
			continue
		}
		leader := d.players.Get(p.sharedPart)
		for i := range p.parts {
			part := &p.parts[i]
			leaderPart := &leader.parts[i]
			ref := partRef{slot: slot, part: i}
			leaderRef := partRef{slot: p.sharedPart, part: i}

			switch {
			case part.Owns() && !leaderPart.IsBound():
				ch := &d.channels[part.channel]
				if ch.sharer.IsValid() || !d.isEligible(leaderRef) {
					continue
				}
				d.transferChannel(ch, leaderRef, ref)
				changed = true

			case !part.IsBound() && leaderPart.Owns():
				ch := &d.channels[leaderPart.channel]
				if ch.sharer.IsValid() || !d.isEligible(ref) {
					continue
				}
				d.attachSharer(ch, ref)
				changed = true
			}
		}
	}
	return changed
}

func (d *Driver) assignBestCandidate() bool {
	candidate := noPart
	victim := noPart
	var candidatePart *soundPart
	victimPriority := 0

	for _, slot := range d.players.order {
		p := d.players.Get(slot)
		var leader *soundPlayer
		if p.sharedPart >= 0 {
			leader = d.players.Get(p.sharedPart)
		}

		for i := range p.parts {
			part := &p.parts[i]
			ref := partRef{slot: slot, part: i}

			if part.IsBound() {
				if part.shared {
					// Attached parts don't hold a pool channel.
					continue
				}
				if leader != nil {
					leaderPart := &leader.parts[i]
					if leaderPart.IsBound() && leaderPart.priority >= part.priority {
						continue
					}
				}
				priority := d.channelPriority(&d.channels[part.channel])
				if victim.IsValid() && priority > victimPriority {
					continue
				}
				victim = ref
				victimPriority = priority
				continue
			}

			if !d.isEligible(ref) {
				continue
			}
			if candidatePart == nil || part.priority > candidatePart.priority {
				candidate = ref
				candidatePart = part
			}
		}
	}

	if !candidate.IsValid() {
		return false
	}

	ch := d.freeChannel()
	if ch == nil {
		if !victim.IsValid() || candidatePart.priority <= victimPriority {
			d.settings.logger.Debug("no channel available",
				"sound", d.players.Get(candidate.slot).soundID,
				"part", candidate.part,
				"priority", candidatePart.priority)
			return false
		}
		ch = &d.channels[d.players.Part(victim).channel]
		d.settings.logger.Debug("channel preempted",
			"channel", ch.id,
			"sound", d.players.Get(victim.slot).soundID,
			"part", victim.part,
			"priority", victimPriority,
			"by_sound", d.players.Get(candidate.slot).soundID,
			"by_part", candidate.part,
			"by_priority", candidatePart.priority)
		d.releasePart(victim, false)
	}

	return d.bindPart(ch, candidate)
}

// channelPriority is the priority of a bound channel.
// A shared channel is as important as its most important part.
func (d *Driver) channelPriority(ch *midiChannel) int {
	priority := d.players.Part(ch.owner).priority
	if ch.sharer.IsValid() {
		priority = max(priority, d.players.Part(ch.sharer).priority)
	}
	return priority
}

func (d *Driver) bindPart(ch *midiChannel, ref partRef) bool {
	if !ch.IsFree() {
		d.invariantViolation("channel is already assigned", ref, ch.id)
		return false
	}
	p := d.players.Get(ref.slot)
	part := &p.parts[ref.part]
	if part.IsBound() {
		d.invariantViolation("part is already bound", ref, part.channel)
		return false
	}

	part.channel = ch.id
	part.shared = false
	ch.owner = ref
	d.syncChannel(ch, p, part)

	d.settings.logger.Debug("channel assigned",
		"channel", ch.id,
		"sound", p.soundID,
		"part", ref.part,
		"priority", part.priority)
	return true
}

// syncChannel makes the channel reflect its new owner.
func (d *Driver) syncChannel(ch *midiChannel, p *soundPlayer, part *soundPart) {
	ch.program = part.program
	ch.volume = part.groupVolume
	ch.pan = part.finalPan(p.pan)
	ch.modulation = part.modulation
	ch.sustain = part.sustain
	ch.pitchBend = part.pitchBend

	d.emit(ChannelEvent{
		Kind:       EventBind,
		Channel:    ch.id,
		Sound:      p.soundID,
		Part:       ch.owner.part,
		Volume:     ch.volume,
		Program:    ch.program,
		Pan:        ch.pan,
		Modulation: ch.modulation,
		Sustain:    ch.sustain,
		PitchBend:  ch.pitchBend,
	})
}

// transferChannel hands the channel owned by a follower part
// to the leader part; the follower remains attached as a sharer.
func (d *Driver) transferChannel(ch *midiChannel, leaderRef, followerRef partRef) {
	follower := d.players.Part(followerRef)
	follower.shared = true
	ch.sharer = followerRef

	leader := d.players.Get(leaderRef.slot)
	leaderPart := &leader.parts[leaderRef.part]
	leaderPart.channel = ch.id
	leaderPart.shared = false
	ch.owner = leaderRef
	d.syncChannel(ch, leader, leaderPart)

	d.emit(ChannelEvent{
		Kind:    EventShare,
		Channel: ch.id,
		Sound:   d.players.Get(followerRef.slot).soundID,
		Part:    followerRef.part,
	})
}

func (d *Driver) attachSharer(ch *midiChannel, ref partRef) {
	part := d.players.Part(ref)
	part.channel = ch.id
	part.shared = true
	ch.sharer = ref

	d.emit(ChannelEvent{
		Kind:    EventShare,
		Channel: ch.id,
		Sound:   d.players.Get(ref.slot).soundID,
		Part:    ref.part,
	})
}

func (d *Driver) detachSharer(ch *midiChannel) {
	ref := ch.sharer
	part := d.players.Part(ref)
	part.channel = -1
	part.shared = false
	ch.sharer = noPart

	d.emit(ChannelEvent{
		Kind:    EventUnshare,
		Channel: ch.id,
		Sound:   d.players.Get(ref.slot).soundID,
		Part:    ref.part,
	})
}

// releasePart detaches the part from its channel.
//
// For a sharer, only the attachment is removed.
// For an owner, the channel is returned to the pool, unless promote
// is true and the attached sharer is still eligible: then the sharer
// becomes the new owner and the channel stays bound.
// The notes of the released owner are turned off either way.
func (d *Driver) releasePart(ref partRef, promote bool) {
	part := d.players.Part(ref)
	if !part.IsBound() {
		return
	}
	ch := &d.channels[part.channel]

	if part.shared {
		if ch.sharer != ref {
			d.invariantViolation("sharer back-reference mismatch", ref, ch.id)
			part.channel = -1
			part.shared = false
			return
		}
		d.detachSharer(ch)
		return
	}

	if ch.owner != ref {
		d.invariantViolation("owner back-reference mismatch", ref, ch.id)
		part.channel = -1
		return
	}

	part.channel = -1
	ch.owner = noPart

	if ch.sharer.IsValid() {
		if promote && d.isEligible(ch.sharer) {
			sharerRef := ch.sharer
			sharer := d.players.Get(sharerRef.slot)
			sharerPart := &sharer.parts[sharerRef.part]
			sharerPart.shared = false
			ch.sharer = noPart
			ch.owner = sharerRef
			// The released owner can't turn its notes off anymore.
			d.silenceChannel(ch)
			d.syncChannel(ch, sharer, sharerPart)
			return
		}
		d.detachSharer(ch)
	}

	d.silenceChannel(ch)
	d.emit(ChannelEvent{
		Kind:    EventRelease,
		Channel: ch.id,
		Sound:   d.players.Get(ref.slot).soundID,
		Part:    ref.part,
	})
	ch.Reset()
}
