package beacon

import (
	"math"
	"testing"
)

func TestChorusLFOSingleCandidatePassthrough(t *testing.T) {
	l := NewChorusLFO(1.0, ChorusSmooth)
	l.SetFrequencies([]float64{162.0})

	for i := 0; i < 10; i++ {
		if got := l.Update(0.37); got != 162.0 {
			t.Fatalf("single candidate should pass through, got %g", got)
		}
	}
}

func TestChorusLFOEmptyFallback(t *testing.T) {
	l := NewChorusLFO(1.0, ChorusSmooth)
	if got := l.Current(); got != chorusFallbackHz {
		t.Fatalf("empty LFO Current = %g, want %g", got, chorusFallbackHz)
	}
}

func TestChorusLFOSmoothStaysWithinCandidateBounds(t *testing.T) {
	l := NewChorusLFO(1.0, ChorusSmooth)
	l.SetFrequencies([]float64{100.0, 200.0})

	prev := l.Current()
	for i := 0; i < 400; i++ {
		got := l.Update(0.01)
		if got < 100.0-1e-9 || got > 200.0+1e-9 {
			t.Fatalf("step %d: %g escaped [100, 200]", i, got)
		}
		// Small phase steps glide, they never jump.
		if ratio := got / prev; ratio > 1.05 || ratio < 1.0/1.05 {
			t.Fatalf("step %d: discontinuity %g -> %g", i, prev, got)
		}
		prev = got
	}
}

func TestChorusLFOSmoothMidpointIsLogSpaced(t *testing.T) {
	l := NewChorusLFO(1.0, ChorusSmooth)
	l.SetFrequencies([]float64{100.0, 400.0})

	// A quarter cycle puts the triangle at its midpoint; in log space that is
	// the geometric mean, not the arithmetic one.
	got := l.Update(0.25)
	if math.Abs(got-200.0) > 1e-9 {
		t.Fatalf("midpoint = %g, want 200 (geometric)", got)
	}
}

func TestChorusLFOSteppedHitsOnlyCandidates(t *testing.T) {
	candidates := []float64{100.0, 150.0, 225.0}
	l := NewChorusLFO(2.0, ChorusStepped)
	l.SetFrequencies(candidates)

	seen := map[float64]bool{}
	for i := 0; i < 300; i++ {
		got := l.Update(0.013)
		match := false
		for _, c := range candidates {
			if got == c {
				match = true
				seen[c] = true
			}
		}
		if !match {
			t.Fatalf("stepped mode produced %g, not a candidate", got)
		}
	}
	if len(seen) != len(candidates) {
		t.Fatalf("sweep visited %d of %d candidates", len(seen), len(candidates))
	}
}

func TestChorusLFOGeometricMeanBase(t *testing.T) {
	l := NewChorusLFO(1.0, ChorusSmooth)
	l.SetFrequencies([]float64{100.0, 400.0})
	if math.Abs(l.Base()-200.0) > 1e-9 {
		t.Fatalf("base = %g, want geometric mean 200", l.Base())
	}
	// At phase zero the sweep sits on the first candidate, one octave below
	// the base.
	if got := l.OffsetSemitones(); math.Abs(got+12.0) > 1e-9 {
		t.Fatalf("offset at phase 0 = %g semitones, want -12", got)
	}
}

func TestChorusLFOPhaseWraps(t *testing.T) {
	l := NewChorusLFO(1.0, ChorusSmooth)
	l.SetFrequencies([]float64{100.0, 200.0})

	first := l.Current()
	got := l.Update(1.0) // exactly one full cycle
	if math.Abs(got-first) > 1e-9 {
		t.Fatalf("one full cycle should return to %g, got %g", first, got)
	}
}
