package beacon

// VoiceKind tells the engine how to recompute a voice's frequency when the
// fundamental moves.
type VoiceKind int

const (
	// VoiceBeacon plays the raw harmonic f1*n (folded down when borrowed).
	VoiceBeacon VoiceKind = iota
	// VoicePlayable plays the harmonic octave-reduced to the pressed register.
	VoicePlayable
	// VoiceNatural plays the untransposed prototype origin.
	VoiceNatural
)

// VoiceSpec describes one voice to allocate at note-on time.
type VoiceSpec struct {
	Frequency   float64
	Harmonic    int
	Kind        VoiceKind
	FoldOctaves int // octaves folded down for borrowed beacon voices
}

// Voice is one allocated synthesizer control stream.
type Voice struct {
	ID int
	VoiceSpec
}

// VoiceSet holds every voice sounding for one pressed key. The voice list is
// fixed at note-on: frequencies may be re-tuned in place but the count never
// changes mid-press.
type VoiceSet struct {
	Note     int
	Velocity int
	OriginF1 float64 // fundamental in effect when the set was created
	Voices   []Voice
}

// VoiceTracker maps pressed keys to their voice sets and owns voice-ID
// allocation. IDs come from a bounded wrapping pool: after MaxVoices
// allocations the pool wraps and the oldest allocation is effectively stolen.
// That is an accepted capacity limit, not an error.
type VoiceTracker struct {
	maxVoices int
	active    map[int]*VoiceSet
	nextID    int
	lastNote  int // most recent note-on, -1 when none yet
}

// NewVoiceTracker creates a tracker with the given voice-ID pool size.
func NewVoiceTracker(maxVoices int) *VoiceTracker {
	if maxVoices < 1 {
		maxVoices = 1
	}
	return &VoiceTracker{
		maxVoices: maxVoices,
		active:    make(map[int]*VoiceSet),
		lastNote:  -1,
	}
}

func (t *VoiceTracker) allocateID() int {
	id := t.nextID
	t.nextID = (t.nextID + 1) % t.maxVoices
	return id
}

// NoteOn registers a key press with its voice layout and returns the voice
// set. Pressing an already-active key is a retrigger: the existing voice IDs
// are reused and the stored frequencies and velocity are overwritten, keeping
// the voice count fixed for the press. The second return reports whether this
// was a retrigger.
func (t *VoiceTracker) NoteOn(note, velocity int, f1 float64, specs []VoiceSpec) (*VoiceSet, bool) {
	if set, ok := t.active[note]; ok {
		set.Velocity = velocity
		set.OriginF1 = f1
		for i := range set.Voices {
			if i < len(specs) {
				set.Voices[i].VoiceSpec = specs[i]
			}
		}
		t.lastNote = note
		return set, true
	}

	voices := make([]Voice, len(specs))
	for i, spec := range specs {
		voices[i] = Voice{ID: t.allocateID(), VoiceSpec: spec}
	}
	set := &VoiceSet{
		Note:     note,
		Velocity: velocity,
		OriginF1: f1,
		Voices:   voices,
	}
	t.active[note] = set
	t.lastNote = note
	return set, false
}

// NoteOff removes and returns the voice set for a key. Callers use the
// returned frequencies to issue matching note-off messages. A later press of
// the same key allocates fresh identifiers.
func (t *VoiceTracker) NoteOff(note int) (*VoiceSet, bool) {
	set, ok := t.active[note]
	if !ok {
		return nil, false
	}
	delete(t.active, note)
	return set, true
}

// Get returns the voice set for a key without removing it.
func (t *VoiceTracker) Get(note int) (*VoiceSet, bool) {
	set, ok := t.active[note]
	return set, ok
}

// LastPlayed returns the voice set of the most recently pressed key that is
// still active.
func (t *VoiceTracker) LastPlayed() (*VoiceSet, bool) {
	if t.lastNote < 0 {
		return nil, false
	}
	return t.Get(t.lastNote)
}

// Each calls fn for every active voice set.
func (t *VoiceTracker) Each(fn func(*VoiceSet)) {
	for _, set := range t.active {
		fn(set)
	}
}

// ActiveKeys returns the number of currently pressed keys.
func (t *VoiceTracker) ActiveKeys() int { return len(t.active) }

// VoiceCount returns the total number of sounding voices across all keys.
func (t *VoiceTracker) VoiceCount() int {
	n := 0
	for _, set := range t.active {
		n += len(set.Voices)
	}
	return n
}

// Clear releases every active key and returns the removed sets, for panic
// and shutdown sweeps.
func (t *VoiceTracker) Clear() []*VoiceSet {
	sets := make([]*VoiceSet, 0, len(t.active))
	for _, set := range t.active {
		sets = append(sets, set)
	}
	t.active = make(map[int]*VoiceSet)
	return sets
}
