package imuse

// Pause suspends the MIDI and digital output and returns the pause counter.
//
// Pause calls can be nested: only the first call actually pauses the output,
// the following calls just increment the counter.
// The output is resumed when every Pause is matched with a Resume.
func (d *Driver) Pause() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pauseCount == 0 {
		d.pauseMidi()
		d.pauseDigital()
	}
	d.pauseCount++
	return d.pauseCount
}

// Resume undoes one Pause call and returns the pause counter.
// The counter never goes below zero.
func (d *Driver) Resume() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pauseCount == 1 {
		d.resumeMidi()
		d.resumeDigital()
	}
	if d.pauseCount > 0 {
		d.pauseCount--
	}
	return d.pauseCount
}

// IsPaused reports the MIDI and digital output pause state.
func (d *Driver) IsPaused() (midi, digital bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.midiPaused, d.digitalPaused
}

// LockPlayers increments the player lock counter.
// While the counter is positive, Tick leaves the cue registry alone.
func (d *Driver) LockPlayers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lockPlayers()
	return d.playerLock
}

// UnlockPlayers decrements the player lock counter.
// Unlocking an unlocked driver is a no-op.
func (d *Driver) UnlockPlayers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.unlockPlayers()
	return d.playerLock
}

func (d *Driver) lockPlayers() {
	d.playerLock++
}

func (d *Driver) unlockPlayers() {
	if d.playerLock > 0 {
		d.playerLock--
	}
}

func (d *Driver) pauseMidi() {
	d.midiPaused = true
	d.emit(ChannelEvent{Kind: EventMidiPause, Channel: -1})
}

func (d *Driver) resumeMidi() {
	d.midiPaused = false
	d.emit(ChannelEvent{Kind: EventMidiResume, Channel: -1})
}

func (d *Driver) pauseDigital() {
	d.lockPlayers()
	d.digitalPaused = true
	d.emit(ChannelEvent{Kind: EventDigitalPause, Channel: -1})
	d.unlockPlayers()
}

func (d *Driver) resumeDigital() {
	d.lockPlayers()
	d.digitalPaused = false
	d.emit(ChannelEvent{Kind: EventDigitalResume, Channel: -1})
	d.unlockPlayers()
}
