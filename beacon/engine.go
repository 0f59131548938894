package beacon

import (
	"math"
	"sync/atomic"
	"time"
)

// Engine is the tick-driven orchestrator: it smooths the fundamental,
// advances the chorus LFOs, drains transport events and keeps every sounding
// voice in tune via pitch offsets instead of retriggers. All state is owned
// by the single goroutine calling Tick; transports only touch the intake
// queue.
type Engine struct {
	params   *Params
	mapper   Mapper
	borrower *OctaveBorrower
	voices   *VoiceTracker
	f1       *F1Modulator
	sink     Sink

	queue eventQueue
	lfos  map[int]*ChorusLFO

	// Runtime-tunable copies of the structural mapping parameters. The
	// mapper reflects these as of the last rebuild call.
	mappingF1 float64
	anchor    int
	tolerance float64

	chorusRate          float64
	chorusMode          ChorusMode
	multiHarmonic       bool
	secondaryMix        float64
	aftertouchEnabled   bool
	aftertouchThreshold int
	anchorMode          AnchorMode

	running atomic.Bool

	// Published snapshot for readers outside the tick goroutine.
	stateF1     atomic.Uint64
	stateAnchor atomic.Int64
}

// NewEngine wires the core components for the given parameters and output
// sink. The key mapper policy is selected by params.Policy.
func NewEngine(params *Params, sink Sink) *Engine {
	if params == nil {
		params = NewDefaultParams()
	}
	var mapper Mapper
	switch params.Policy {
	case PolicyPrototype:
		mapper = NewPrototypeMapper(params)
	default:
		mapper = NewToleranceMapper(params)
	}
	e := &Engine{
		params:              params,
		mapper:              mapper,
		borrower:            NewOctaveBorrower(mapper),
		voices:              NewVoiceTracker(params.MaxVoices),
		f1:                  NewF1Modulator(params.F1, params.SmoothingRate, params.F1Min, params.F1Max),
		sink:                sink,
		lfos:                make(map[int]*ChorusLFO),
		mappingF1:           params.F1,
		anchor:              params.AnchorNote,
		tolerance:           params.ToleranceCents,
		chorusRate:          params.ChorusRate,
		chorusMode:          params.ChorusMode,
		multiHarmonic:       params.MultiHarmonic,
		secondaryMix:        params.SecondaryMix,
		aftertouchEnabled:   params.AftertouchEnabled,
		aftertouchThreshold: params.AftertouchThreshold,
		anchorMode:          params.AnchorMode,
	}
	e.stateF1.Store(math.Float64bits(params.F1))
	e.stateAnchor.Store(int64(params.AnchorNote))
	return e
}

// Push queues a transport event for the next tick. Safe to call from any
// goroutine; never blocks.
func (e *Engine) Push(ev InputEvent) { e.queue.Push(ev) }

// Mapper returns the active key mapper.
func (e *Engine) Mapper() Mapper { return e.mapper }

// Borrower returns the octave-borrowing fallback.
func (e *Engine) Borrower() *OctaveBorrower { return e.borrower }

// Voices returns the voice tracker.
func (e *Engine) Voices() *VoiceTracker { return e.voices }

// Fundamental returns the f1 modulator.
func (e *Engine) Fundamental() *F1Modulator { return e.f1 }

// Anchor returns the key currently mapped to harmonic 1.
func (e *Engine) Anchor() int { return e.anchor }

// State returns the smoothed fundamental and anchor as of the last completed
// tick. Safe to call from any goroutine.
func (e *Engine) State() (f1 float64, anchor int) {
	return math.Float64frombits(e.stateF1.Load()), int(e.stateAnchor.Load())
}

// Tick advances the engine by dt seconds: modulator first, then chorus LFOs,
// then the queued input events. Updates for already-sounding voices are
// applied before new events so a fundamental change never races a key press
// within the same tick.
func (e *Engine) Tick(dt float64) {
	if e.f1.Update() && e.voices.ActiveKeys() > 0 {
		e.retuneActiveVoices()
	}
	e.updateChorus(dt)
	for _, ev := range e.queue.Drain() {
		e.dispatch(ev)
	}
	e.stateF1.Store(math.Float64bits(e.f1.Value()))
	e.stateAnchor.Store(int64(e.anchor))
}

// Run drives Tick at the given poll interval until Stop is called, then
// emits an all-voices-off sweep.
func (e *Engine) Run(interval time.Duration) {
	e.running.Store(true)
	last := time.Now()
	for e.running.Load() {
		now := time.Now()
		e.Tick(now.Sub(last).Seconds())
		last = now
		time.Sleep(interval)
	}
	e.releaseAll()
}

// Stop requests cooperative shutdown; the run loop notices on its next tick.
func (e *Engine) Stop() { e.running.Store(false) }

func (e *Engine) dispatch(ev InputEvent) {
	switch ev.Kind {
	case EventNoteOn:
		e.handleNoteOn(ev.Note, ev.Velocity)
	case EventNoteOff:
		e.handleNoteOff(ev.Note)
	case EventControl:
		e.handleControl(ev.Control, ev.Value)
	case EventAftertouch:
		e.handleAftertouch(ev.Velocity)
	case EventAnchorNote:
		e.reanchor(ev.Note)
	}
}

// currentFrequency rescales a mapping-time frequency to the smoothed
// fundamental. Mapper tables are built at mappingF1 and not rebuilt during
// ordinary smoothing; every sounding frequency is derived from the current
// f1 at the moment of the press.
func (e *Engine) currentFrequency(mapped float64) float64 {
	return mapped * (e.f1.Value() / e.mappingF1)
}

func (e *Engine) handleNoteOn(note, velocity int) {
	matches := e.mapper.Matches(note)

	var (
		specs       []VoiceSpec
		chorusFreqs []float64
	)

	if len(matches) > 0 {
		primary, _ := e.mapper.Match(note)
		primaryFreq := e.currentFrequency(primary.Frequency)
		specs = append(specs, VoiceSpec{
			Frequency: primaryFreq,
			Harmonic:  primary.Harmonic,
			Kind:      VoiceBeacon,
		})
		if e.params.PlayableLayer {
			specs = append(specs, VoiceSpec{
				Frequency: PlayableFrequency(e.f1.Value(), primary.Harmonic, note),
				Harmonic:  primary.Harmonic,
				Kind:      VoicePlayable,
			})
		}
		// Natural (untransposed) prototype origin as an extra layer when the
		// prototype policy transposed the primary.
		if pm, ok := e.mapper.(*PrototypeMapper); ok && e.secondaryMix > 0 {
			if natural, ok := pm.Secondary(note); ok && primary.Transposed {
				specs = append(specs, VoiceSpec{
					Frequency: e.currentFrequency(natural.Frequency),
					Harmonic:  natural.Harmonic,
					Kind:      VoiceNatural,
				})
			}
		}
		if e.multiHarmonic && len(matches) > 1 {
			for _, m := range matches {
				chorusFreqs = append(chorusFreqs, e.currentFrequency(m.Frequency))
			}
		} else {
			chorusFreqs = []float64{primaryFreq}
		}
	} else {
		borrowed, ok := e.borrower.Borrow(note)
		if !ok {
			// Deliberate silence: the key maps to nothing anywhere.
			return
		}
		freq := e.currentFrequency(borrowed.Frequency)
		specs = append(specs, VoiceSpec{
			Frequency:   freq,
			Harmonic:    borrowed.Harmonic,
			Kind:        VoiceBeacon,
			FoldOctaves: borrowed.OctavesBorrowed,
		})
		chorusFreqs = []float64{freq}
	}

	lfo := NewChorusLFO(e.chorusRate, e.chorusMode)
	lfo.SetFrequencies(chorusFreqs)
	e.lfos[note] = lfo

	// A retrigger reuses the existing voice IDs; the sink sees a fresh
	// note-on either way.
	set, _ := e.voices.NoteOn(note, velocity, e.f1.Value(), specs)
	velNorm := float64(velocity) / 127.0
	for _, v := range set.Voices {
		vel := velNorm
		if v.Kind != VoiceBeacon {
			vel *= e.secondaryMix
		}
		e.sink.NoteOn(v.ID, v.Frequency, vel)
	}
}

func (e *Engine) handleNoteOff(note int) {
	set, ok := e.voices.NoteOff(note)
	if !ok {
		return
	}
	delete(e.lfos, note)
	for _, v := range set.Voices {
		e.sink.NoteOff(v.ID, v.Frequency, 0)
	}
}

func (e *Engine) handleControl(c Control, value float64) {
	switch c {
	case ControlFundamental:
		e.f1.SetTargetFromControl(value)
	case ControlTolerance:
		e.tolerance = toleranceMinCents + value*(toleranceMaxCents-toleranceMinCents)
		e.mapper.Rebuild(e.mappingF1, e.anchor, e.tolerance)
	case ControlChorusRate:
		e.chorusRate = chorusRateMinHz + value*(chorusRateMaxHz-chorusRateMinHz)
		for _, lfo := range e.lfos {
			lfo.SetRate(e.chorusRate)
		}
	case ControlChorusMode:
		e.chorusMode = ChorusSmooth
		if value >= 0.5 {
			e.chorusMode = ChorusStepped
		}
		for _, lfo := range e.lfos {
			lfo.SetMode(e.chorusMode)
		}
	case ControlMultiHarmonic:
		e.multiHarmonic = value >= 0.5
	case ControlSecondaryMix:
		e.secondaryMix = clamp(value, 0, 1)
	case ControlAftertouchEnable:
		e.aftertouchEnabled = value >= 0.5
	case ControlAftertouchThreshold:
		e.aftertouchThreshold = int(value * 127.0)
	case ControlAnchorMode:
		e.anchorMode = AnchorFixed
		if value >= 0.5 {
			e.anchorMode = AnchorFollowKey
		}
	case ControlPanic:
		e.panic()
	}
}

// handleAftertouch snaps f1 to the last played key's beacon frequency once
// the pressure crosses the threshold. In AnchorFollowKey mode the pressed
// key also becomes harmonic 1. Both are structural changes, so the mapper is
// rebuilt synchronously.
func (e *Engine) handleAftertouch(pressure int) {
	if !e.aftertouchEnabled || pressure < e.aftertouchThreshold {
		return
	}
	set, ok := e.voices.LastPlayed()
	if !ok || len(set.Voices) == 0 {
		return
	}
	e.f1.Snap(set.Voices[0].Frequency)
	e.mappingF1 = e.f1.Value()
	if e.anchorMode == AnchorFollowKey {
		e.anchor = set.Note
	}
	e.mapper.Rebuild(e.mappingF1, e.anchor, e.tolerance)
}

// reanchor moves the anchor to the given key without sounding it.
func (e *Engine) reanchor(note int) {
	if note < 0 || note > 127 {
		return
	}
	e.anchor = note
	e.mapper.Rebuild(e.mappingF1, e.anchor, e.tolerance)
}

// retuneActiveVoices slides every sounding voice to the moved fundamental by
// emitting semitone pitch offsets relative to each voice's original
// frequency. Voices are never retriggered. Each layer follows its own rule:
// beacon and natural voices scale with f1, while the playable layer re-rounds
// its octave shift so it stays in the pressed key's register through a glide.
func (e *Engine) retuneActiveVoices() {
	f1 := e.f1.Value()
	e.voices.Each(func(set *VoiceSet) {
		scale := f1 / set.OriginF1
		for _, v := range set.Voices {
			var newFreq float64
			if v.Kind == VoicePlayable {
				newFreq = PlayableFrequency(f1, v.Harmonic, set.Note)
			} else {
				newFreq = v.Frequency * scale
			}
			e.sink.PitchOffset(v.ID, SemitonesBetween(v.Frequency, newFreq))
		}
	})
}

// updateChorus advances every per-key LFO and sweeps the primary voice of
// keys that matched more than one harmonic.
func (e *Engine) updateChorus(dt float64) {
	for note, lfo := range e.lfos {
		if lfo.Count() <= 1 {
			continue
		}
		set, ok := e.voices.Get(note)
		if !ok || len(set.Voices) == 0 {
			continue
		}
		current := lfo.Update(dt)
		primary := set.Voices[0]
		e.sink.PitchOffset(primary.ID, SemitonesBetween(primary.Frequency, current))
	}
}

func (e *Engine) panic() {
	e.voices.Clear()
	e.lfos = make(map[int]*ChorusLFO)
	e.sink.AllNotesOff()
}

// releaseAll is the graceful shutdown sweep: explicit note-offs for every
// sounding voice, then a final all-voices-off.
func (e *Engine) releaseAll() {
	for _, set := range e.voices.Clear() {
		for _, v := range set.Voices {
			e.sink.NoteOff(v.ID, v.Frequency, 0)
		}
	}
	e.lfos = make(map[int]*ChorusLFO)
	e.sink.AllNotesOff()
}

// Runtime bounds for control-mapped parameters.
const (
	toleranceMinCents = 1.0
	toleranceMaxCents = 50.0
	chorusRateMinHz   = 0.05
	chorusRateMaxHz   = 8.0
)
