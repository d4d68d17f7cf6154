package imuse

// CheckInvariants verifies the channel pool and part links consistency.
// It returns the first detected violation as *InvariantError (or nil).
//
// The driver never needs this to work correctly;
// it's intended for tests and debug builds.
func (d *Driver) CheckInvariants() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i := range d.channels {
		if err := d.checkChannel(&d.channels[i]); err != nil {
			return err
		}
	}

	for _, slot := range d.players.order {
		p := d.players.Get(slot)
		for i := range p.parts {
			part := &p.parts[i]
			if !part.IsBound() {
				continue
			}
			ref := partRef{slot: slot, part: i}
			newError := func(msg string) error {
				return &InvariantError{Message: msg, Channel: part.channel, Sound: p.soundID, Part: i}
			}
			ch := &d.channels[part.channel]
			switch {
			case part.shared && ch.sharer != ref:
				return newError("sharer is not linked from its channel")
			case !part.shared && ch.owner != ref:
				return newError("owner is not linked from its channel")
			case !part.active:
				return newError("inactive part holds a channel")
			case !d.isAudible(p, part):
				return newError("silent part holds a channel")
			}
			if part.shared && (p.sharedPart < 0 || d.players.Part(ch.owner) != &d.players.Get(p.sharedPart).parts[i]) {
				return newError("sharer is attached to a foreign channel")
			}
		}
	}

	return nil
}

func (d *Driver) checkChannel(ch *midiChannel) error {
	newError := func(msg string, ref partRef) error {
		err := &InvariantError{Message: msg, Channel: ch.id, Part: ref.part}
		if ref.IsValid() {
			err.Sound = d.players.Get(ref.slot).soundID
		}
		return err
	}

	if ch.owner.IsValid() {
		if !d.players.Get(ch.owner.slot).live {
			return newError("channel is owned by a stopped cue", ch.owner)
		}
		part := d.players.Part(ch.owner)
		if part.channel != ch.id || part.shared {
			return newError("channel owner doesn't link back", ch.owner)
		}
	}
	if ch.sharer.IsValid() {
		if !ch.owner.IsValid() {
			return newError("free channel has a sharer", ch.sharer)
		}
		if !d.players.Get(ch.sharer.slot).live {
			return newError("channel is shared by a stopped cue", ch.sharer)
		}
		part := d.players.Part(ch.sharer)
		if part.channel != ch.id || !part.shared {
			return newError("channel sharer doesn't link back", ch.sharer)
		}
	}
	return nil
}
