// Package audition renders the current key mapping to audio offline, as a
// diagnostic preview of what a connected synthesizer would receive. It never
// runs inside the engine's tick path.
package audition

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-approx"
	dspcore "github.com/cwbudde/algo-dsp/dsp/core"

	"github.com/cwbudde/algo-beacon/beacon"
)

// Config controls the offline render.
type Config struct {
	SampleRate    int
	NoteDurationS float64 // sounding length per key
	GapS          float64 // silence between keys
	DecayS        float64 // exponential amplitude decay time constant
	Amplitude     float64
	NormalizePeak float64
}

// DefaultConfig returns render defaults.
func DefaultConfig() Config {
	return Config{
		SampleRate:    44100,
		NoteDurationS: 1.0,
		GapS:          0.25,
		DecayS:        0.6,
		Amplitude:     0.5,
		NormalizePeak: 0.9,
	}
}

func (c *Config) Validate() error {
	if c.SampleRate < 8000 {
		return fmt.Errorf("sample rate too low: %d", c.SampleRate)
	}
	if c.NoteDurationS <= 0 {
		return fmt.Errorf("note duration must be > 0")
	}
	if c.GapS < 0 {
		return fmt.Errorf("gap must be >= 0")
	}
	if c.DecayS <= 0 {
		return fmt.Errorf("decay must be > 0")
	}
	if c.Amplitude <= 0 {
		return fmt.Errorf("amplitude must be > 0")
	}
	if c.NormalizePeak <= 0 {
		return fmt.Errorf("normalize peak must be > 0")
	}
	return nil
}

// Segment describes how one key was resolved for the render.
type Segment struct {
	Note         int
	Harmonic     int
	BeaconFreq   float64 // raw harmonic, folded when borrowed
	PlayableFreq float64 // octave-reduced layer; 0 when the layer is off
	Borrowed     bool
	Silent       bool
}

// Result is a finished render: the beacon layer on the left channel, the
// playable layer on the right, plus the per-key resolution table.
type Result struct {
	Left     []float32
	Right    []float32
	Segments []Segment
}

// RenderKeys renders each key in order using the mapper and borrower exactly
// as the engine resolves a note-on. Silent keys contribute a gap of silence
// and a Silent segment.
func RenderKeys(cfg Config, params *beacon.Params, notes []int) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if params == nil {
		params = beacon.NewDefaultParams()
	}
	if len(notes) == 0 {
		return nil, fmt.Errorf("no keys to render")
	}

	var mapper beacon.Mapper
	switch params.Policy {
	case beacon.PolicyPrototype:
		mapper = beacon.NewPrototypeMapper(params)
	default:
		mapper = beacon.NewToleranceMapper(params)
	}
	borrower := beacon.NewOctaveBorrower(mapper)

	noteSamples := int(math.Round(cfg.NoteDurationS * float64(cfg.SampleRate)))
	gapSamples := int(math.Round(cfg.GapS * float64(cfg.SampleRate)))
	total := len(notes) * (noteSamples + gapSamples)

	left := make([]float64, total)
	right := make([]float64, total)
	segments := make([]Segment, 0, len(notes))

	offset := 0
	for _, note := range notes {
		seg := resolve(mapper, borrower, params, note)
		segments = append(segments, seg)
		if !seg.Silent {
			renderTone(left[offset:offset+noteSamples], seg.BeaconFreq, cfg)
			if seg.PlayableFreq > 0 {
				renderTone(right[offset:offset+noteSamples], seg.PlayableFreq, cfg)
			} else {
				renderTone(right[offset:offset+noteSamples], seg.BeaconFreq, cfg)
			}
		}
		offset += noteSamples + gapSamples
	}

	peak := 0.0
	for i := range left {
		if a := math.Abs(left[i]); a > peak {
			peak = a
		}
		if a := math.Abs(right[i]); a > peak {
			peak = a
		}
	}
	if peak < 1e-12 {
		peak = 1e-12
	}
	s := cfg.NormalizePeak / peak

	outL := make([]float32, total)
	outR := make([]float32, total)
	for i := range left {
		outL[i] = float32(left[i] * s)
		outR[i] = float32(right[i] * s)
	}
	return &Result{Left: outL, Right: outR, Segments: segments}, nil
}

func resolve(mapper beacon.Mapper, borrower *beacon.OctaveBorrower, params *beacon.Params, note int) Segment {
	if match, ok := mapper.Match(note); ok {
		seg := Segment{Note: note, Harmonic: match.Harmonic, BeaconFreq: match.Frequency}
		if params.PlayableLayer {
			seg.PlayableFreq = beacon.PlayableFrequency(params.F1, match.Harmonic, note)
		}
		return seg
	}
	if borrowed, ok := borrower.Borrow(note); ok {
		return Segment{
			Note:       note,
			Harmonic:   borrowed.Harmonic,
			BeaconFreq: borrowed.Frequency,
			Borrowed:   true,
		}
	}
	return Segment{Note: note, Silent: true}
}

// renderTone adds a decaying sine into dst.
func renderTone(dst []float64, freq float64, cfg Config) {
	step := 2.0 * math.Pi * freq / float64(cfg.SampleRate)
	phase := 0.0
	for i := range dst {
		t := float64(i) / float64(cfg.SampleRate)
		env := float64(approx.FastExp(float32(-t / cfg.DecayS)))
		sample := cfg.Amplitude * env * math.Sin(phase)
		dst[i] += dspcore.FlushDenormals(sample)
		phase += step
		if phase >= 2.0*math.Pi {
			phase -= 2.0 * math.Pi
		}
	}
}
