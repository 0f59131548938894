package beacon

import "sync"

// EventKind discriminates decoded input events.
type EventKind int

const (
	// EventNoteOn is a key press with velocity.
	EventNoteOn EventKind = iota
	// EventNoteOff is a key release.
	EventNoteOff
	// EventControl carries a normalized parameter change.
	EventControl
	// EventAftertouch carries channel pressure for f1 re-centering.
	EventAftertouch
	// EventAnchorNote re-anchors the harmonic series to a key without
	// producing sound (secondary controller).
	EventAnchorNote
)

// Control identifies a runtime-tunable engine parameter.
type Control int

const (
	// ControlFundamental sets the f1 target (value mapped into [min,max]).
	ControlFundamental Control = iota
	// ControlTolerance sets the match window and rebuilds the mapper.
	ControlTolerance
	// ControlChorusRate sets the sweep rate of all chorus LFOs.
	ControlChorusRate
	// ControlChorusMode toggles smooth/stepped sweeping (>= 0.5 = stepped).
	ControlChorusMode
	// ControlMultiHarmonic toggles sweeping across all matches of a key.
	ControlMultiHarmonic
	// ControlSecondaryMix sets the velocity scale of non-beacon layers.
	ControlSecondaryMix
	// ControlAftertouchEnable toggles aftertouch re-centering.
	ControlAftertouchEnable
	// ControlAftertouchThreshold sets the re-centering pressure threshold.
	ControlAftertouchThreshold
	// ControlAnchorMode toggles whether re-centering moves the anchor.
	ControlAnchorMode
	// ControlPanic releases every voice immediately.
	ControlPanic
)

// InputEvent is one decoded event from the transport layer. Note events use
// Note/Velocity; control events use Control/Value with Value normalized to
// [0, 1]; aftertouch uses Velocity for pressure (0-127).
type InputEvent struct {
	Kind     EventKind
	Note     int
	Velocity int
	Control  Control
	Value    float64
}

// Sink receives voice-affecting output. Implementations must not block the
// tick; transport failures stay on the transport side and never propagate
// back into the engine.
type Sink interface {
	// NoteOn starts a voice at a frequency with normalized velocity (0-1).
	NoteOn(voice int, freq float64, velocity float64)
	// NoteOff stops a voice. The frequency matches the one the voice was
	// started (or last retuned) with, for protocols that address notes by
	// frequency.
	NoteOff(voice int, freq float64, release float64)
	// PitchOffset re-tunes a sounding voice by a semitone delta relative to
	// its original frequency, without retriggering.
	PitchOffset(voice int, semitones float64)
	// AllNotesOff releases everything (panic or shutdown sweep).
	AllNotesOff()
}

// eventQueue is the intake buffer between transport goroutines and the tick
// loop. Push never blocks; Drain swaps the buffer out under the lock so the
// engine processes a consistent batch in arrival order.
type eventQueue struct {
	mu      sync.Mutex
	pending []InputEvent
}

func (q *eventQueue) Push(ev InputEvent) {
	q.mu.Lock()
	q.pending = append(q.pending, ev)
	q.mu.Unlock()
}

func (q *eventQueue) Drain() []InputEvent {
	q.mu.Lock()
	batch := q.pending
	q.pending = nil
	q.mu.Unlock()
	return batch
}
