package imuse

// PlayerData holds the sequencer-owned timing state of a cue.
//
// The driver stores it and passes it to the Sequencer on every Tick,
// but it never interprets these fields itself.
type PlayerData struct {
	Sound SoundID

	SeqIndex    int
	ChunkOffset int
	ChunkPtr    int

	Tick      int
	PrevTick  int
	TickFixed int

	TicksPerBeat    int
	BeatsPerMeasure int

	Tempo     int
	Step      int
	StepFixed int
	Speed     int
}

type soundPlayer struct {
	data PlayerData

	// sharedPart is a slot index of the leader cue (or -1).
	// Only the follower stores the relation.
	// The pairing is by index: follower part N shares the channel
	// of leader part N, so sharedPartID only names the leader sound.
	sharedPart   int
	sharedPartID SoundID

	soundID     SoundID
	marker      int
	group       GroupID
	priority    int
	volume      int
	groupVolume int
	pan         int
	detune      int
	transpose   int
	mailbox     int
	hook        int

	gen  uint32
	live bool

	parts [NumParts]soundPart
}

type soundPart struct {
	active       bool
	program      int
	trim         int
	partPriority int
	priority     int // partPriority+cue priority, see updatePriority
	noteReq      int
	volume       int
	groupVolume  int // The resolved part volume
	pan          int
	modulation   int
	sustain      int
	pitchBend    int
	outChannels  int

	// channel is a physical channel ID or -1.
	// When shared is true, the part is attached to a channel
	// owned by its shared counterpart.
	channel int
	shared  bool

	// badReported prevents the invariant violation log flood
	// for a zero-output part that is scanned on every pass.
	badReported bool
}

func (p *soundPart) Reset() {
	*p = soundPart{channel: -1}
}

func (p *soundPart) IsBound() bool { return p.channel >= 0 }

func (p *soundPart) Owns() bool { return p.channel >= 0 && !p.shared }

func (p *soundPart) updatePriority(cuePriority int) {
	p.priority = clamp(cuePriority+p.partPriority, 0, 255)
}

func (p *soundPart) updateVolume(cueGroupVolume int) {
	p.groupVolume = ((p.volume + 1) * (p.trim + 1) * cueGroupVolume) >> 14
}

// finalPan combines the part and cue panning (64 is the center).
func (p *soundPart) finalPan(cuePan int) int {
	return clamp(p.pan+cuePan-64, 0, 127)
}

// partRef addresses a part inside the player registry arena.
type partRef struct {
	slot int
	part int
}

var noPart = partRef{slot: -1, part: -1}

func (r partRef) IsValid() bool { return r.slot >= 0 }

// playerRegistry is an arena of sound players.
//
// Slots are reused after a cue is removed, but the order slice
// keeps the insertion order of the live cues: the allocator
// depends on it for tie breaking.
type playerRegistry struct {
	slots   []soundPlayer
	free    []int
	order   []int
	bySound map[SoundID]int
}

func newPlayerRegistry(capacity int) playerRegistry {
	return playerRegistry{
		slots:   make([]soundPlayer, 0, capacity),
		free:    make([]int, 0, capacity),
		order:   make([]int, 0, capacity),
		bySound: make(map[SoundID]int, capacity),
	}
}

func (r *playerRegistry) Len() int { return len(r.order) }

func (r *playerRegistry) Get(slot int) *soundPlayer { return &r.slots[slot] }

func (r *playerRegistry) Part(ref partRef) *soundPart {
	return &r.slots[ref.slot].parts[ref.part]
}

func (r *playerRegistry) Lookup(id SoundID) (int, bool) {
	slot, ok := r.bySound[id]
	return slot, ok
}

func (r *playerRegistry) Add(id SoundID) int {
	var slot int
	if n := len(r.free); n != 0 {
		slot = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		r.slots = append(r.slots, soundPlayer{})
		slot = len(r.slots) - 1
	}

	p := &r.slots[slot]
	gen := p.gen + 1
	*p = soundPlayer{
		soundID:    id,
		sharedPart: -1,
		gen:        gen,
		live:       true,
	}
	p.data.Sound = id
	for i := range p.parts {
		p.parts[i].Reset()
	}

	r.order = append(r.order, slot)
	r.bySound[id] = slot
	return slot
}

func (r *playerRegistry) Remove(slot int) {
	p := &r.slots[slot]
	if !p.live {
		return
	}
	delete(r.bySound, p.soundID)
	for i, s := range r.order {
		if s == slot {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	p.live = false
	r.free = append(r.free, slot)
}
