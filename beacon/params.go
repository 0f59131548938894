package beacon

// MappingPolicy selects how keys are matched to harmonics.
type MappingPolicy int

const (
	// PolicyTolerance matches every harmonic within a symmetric cents window.
	PolicyTolerance MappingPolicy = iota
	// PolicyPrototype uses a fixed 12-entry chromatic prototype table with
	// octave transposition and optional natural-voice stacking.
	PolicyPrototype
)

func (p MappingPolicy) String() string {
	if p == PolicyPrototype {
		return "prototype"
	}
	return "tolerance"
}

// AnchorMode controls what aftertouch re-centering does beyond setting f1.
type AnchorMode int

const (
	// AnchorFixed keeps the configured anchor; aftertouch only moves f1.
	AnchorFixed AnchorMode = iota
	// AnchorFollowKey moves the anchor to the re-centered key so that key
	// becomes harmonic 1.
	AnchorFollowKey
)

// Params holds the construction-time configuration of the engine. A handful
// of fields (f1 target, tolerance, chorus rate/mode, layer mix) are also
// mutable at runtime through control events; the rest is fixed at startup.
type Params struct {
	// Fundamental frequency settings.
	F1            float64 // initial fundamental in Hz
	F1Min         float64 // lower bound for f1 modulation
	F1Max         float64 // upper bound for f1 modulation
	SmoothingRate float64 // exponential smoothing coefficient in (0, 1]

	// Keyboard mapping.
	AnchorNote     int     // MIDI note treated as harmonic 1
	LowestNote     int     // bottom of the mapped keyboard range
	HighestNote    int     // top of the mapped keyboard range
	ToleranceCents float64 // symmetric match window for PolicyTolerance
	MaxHarmonic    int     // highest harmonic number considered
	Policy         MappingPolicy

	// PrototypeTable maps interval class (semitones above the anchor's pitch
	// class, 0-11) to a prototype harmonic number. Used by PolicyPrototype.
	PrototypeTable [12]int

	// Voice management.
	MaxVoices     int     // size of the wrapping voice-ID pool
	PlayableLayer bool    // add the octave-reduced playable voice per key
	SecondaryMix  float64 // velocity scale of non-beacon layers, 0..1

	// Harmonic chorus.
	ChorusRate    float64 // sweep rate in Hz
	ChorusMode    ChorusMode
	MultiHarmonic bool // sweep across all matches instead of the best one

	// Aftertouch re-centering.
	AftertouchEnabled   bool
	AftertouchThreshold int // minimum pressure (0-127) to trigger
	AnchorMode          AnchorMode
}

// DefaultPrototypeTable approximates the 12-tone chromatic scale with simple
// harmonic-series members (interval class -> harmonic number).
var DefaultPrototypeTable = [12]int{
	1,  // unison: fundamental
	17, // minor second (17/16)
	9,  // major second (9/8)
	19, // minor third (19/16)
	5,  // major third (5/4)
	21, // fourth (21/16)
	11, // tritone (11/8)
	3,  // fifth (3/2)
	13, // minor sixth (13/8)
	27, // major sixth (27/16)
	7,  // harmonic seventh (7/4)
	15, // major seventh (15/8)
}

// NewDefaultParams creates default engine parameters.
func NewDefaultParams() *Params {
	return &Params{
		F1:                  54.0,
		F1Min:               27.5,
		F1Max:               220.0,
		SmoothingRate:       0.1,
		AnchorNote:          24,
		LowestNote:          21,
		HighestNote:         108,
		ToleranceCents:      25.0,
		MaxHarmonic:         128,
		Policy:              PolicyTolerance,
		PrototypeTable:      DefaultPrototypeTable,
		MaxVoices:           32,
		PlayableLayer:       true,
		SecondaryMix:        1.0,
		ChorusRate:          1.0,
		ChorusMode:          ChorusSmooth,
		MultiHarmonic:       false,
		AftertouchEnabled:   true,
		AftertouchThreshold: 64,
		AnchorMode:          AnchorFixed,
	}
}
