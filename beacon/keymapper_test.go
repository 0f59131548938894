package beacon

import (
	"fmt"
	"math"
	"testing"
)

func toleranceParams(f1, tolerance float64) *Params {
	p := NewDefaultParams()
	p.F1 = f1
	p.ToleranceCents = tolerance
	return p
}

func TestToleranceMapperReferenceKeyboard(t *testing.T) {
	// f1 = 54 Hz anchored at C1: the documented low-harmonic landmarks.
	m := NewToleranceMapper(toleranceParams(54.0, 25.0))

	tests := []struct {
		note     int
		harmonic int
		freq     float64
	}{
		{24, 1, 54.0},
		{36, 2, 108.0},
		{43, 3, 162.0},
		{48, 4, 216.0},
		{52, 5, 270.0},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("note%d", tt.note), func(t *testing.T) {
			match, ok := m.Match(tt.note)
			if !ok {
				t.Fatalf("note %d: expected a match", tt.note)
			}
			if match.Harmonic != tt.harmonic {
				t.Fatalf("note %d: harmonic = %d, want %d", tt.note, match.Harmonic, tt.harmonic)
			}
			if math.Abs(match.Frequency-tt.freq) > 1e-9 {
				t.Fatalf("note %d: frequency = %g, want %g", tt.note, match.Frequency, tt.freq)
			}
		})
	}
}

func TestToleranceMapperSeventhHarmonicNeedsWiderWindow(t *testing.T) {
	// Bb3 (MIDI 58) sits ~31 cents sharp of harmonic 7: outside 25 cents,
	// inside 35.
	narrow := NewToleranceMapper(toleranceParams(54.0, 25.0))
	if _, ok := narrow.Match(58); ok {
		t.Fatalf("note 58 should not match at 25 cents tolerance")
	}

	wide := NewToleranceMapper(toleranceParams(54.0, 35.0))
	match, ok := wide.Match(58)
	if !ok {
		t.Fatalf("note 58 should match at 35 cents tolerance")
	}
	if match.Harmonic != 7 {
		t.Fatalf("note 58: harmonic = %d, want 7", match.Harmonic)
	}
}

func TestToleranceMatchingIsSymmetric(t *testing.T) {
	m := NewToleranceMapper(toleranceParams(54.0, 25.0))

	// G2 (43) sits ~2 cents flat of harmonic 3, E3 (52) ~14 cents sharp of
	// harmonic 5: matches must be collected on both sides of the harmonic.
	flat, ok := m.Match(43)
	if !ok || flat.DeviationCents >= 0 {
		t.Fatalf("note 43: want match flat of harmonic 3, got ok=%v deviation=%g", ok, flat.DeviationCents)
	}
	sharp, ok := m.Match(52)
	if !ok || sharp.DeviationCents <= 0 {
		t.Fatalf("note 52: want match sharp of harmonic 5, got ok=%v deviation=%g", ok, sharp.DeviationCents)
	}

	// Tightening tolerance below the deviation magnitude drops each match.
	tight := NewToleranceMapper(toleranceParams(54.0, 1.0))
	if _, ok := tight.Match(43); ok {
		t.Fatalf("note 43 should not match at 1 cent tolerance")
	}
}

func TestToleranceMapperAllMatchesAscending(t *testing.T) {
	p := toleranceParams(54.0, 45.0)
	m := NewToleranceMapper(p)

	lo, hi := m.Range()
	for note := lo; note <= hi; note++ {
		all := m.Matches(note)
		for i := 1; i < len(all); i++ {
			if all[i].Harmonic <= all[i-1].Harmonic {
				t.Fatalf("note %d: matches not ascending by harmonic: %d then %d",
					note, all[i-1].Harmonic, all[i].Harmonic)
			}
		}
		for _, match := range all {
			if math.Abs(match.DeviationCents) > 45.0 {
				t.Fatalf("note %d: deviation %g exceeds tolerance", note, match.DeviationCents)
			}
		}
	}
}

func TestToleranceMapperHearingLimitCutoff(t *testing.T) {
	p := toleranceParams(220.0, 25.0)
	m := NewToleranceMapper(p)

	lo, hi := m.Range()
	for note := lo; note <= hi; note++ {
		for _, match := range m.Matches(note) {
			if match.Frequency > 20000.0 {
				t.Fatalf("note %d: harmonic %d at %g Hz exceeds the 20 kHz cutoff",
					note, match.Harmonic, match.Frequency)
			}
		}
	}
}

func TestToleranceMapperRebuild(t *testing.T) {
	m := NewToleranceMapper(toleranceParams(54.0, 25.0))
	if _, ok := m.Match(58); ok {
		t.Fatalf("note 58 should not match before rebuild")
	}

	m.Rebuild(54.0, 24, 35.0)
	if _, ok := m.Match(58); !ok {
		t.Fatalf("note 58 should match after widening tolerance")
	}

	// Moving the anchor shifts which keys land on harmonics.
	m.Rebuild(54.0, 36, 25.0)
	match, ok := m.Match(36)
	if !ok || match.Harmonic != 1 {
		t.Fatalf("after re-anchoring, note 36 should be harmonic 1, got ok=%v match=%+v", ok, match)
	}
	if _, ok := m.Match(24); ok {
		t.Fatalf("note 24 is below the new anchor and should be silent")
	}
}

func TestToleranceMapperBestIsClosest(t *testing.T) {
	// At a very wide window one key can see several harmonics; Match must
	// return the one with the smallest absolute deviation among Matches.
	m := NewToleranceMapper(toleranceParams(54.0, 60.0))
	lo, hi := m.Range()
	for note := lo; note <= hi; note++ {
		all := m.Matches(note)
		if len(all) < 2 {
			continue
		}
		best, _ := m.Match(note)
		for _, c := range all {
			if math.Abs(c.DeviationCents) < math.Abs(best.DeviationCents) {
				t.Fatalf("note %d: Match returned deviation %g but %g exists",
					note, best.DeviationCents, c.DeviationCents)
			}
		}
	}
}
