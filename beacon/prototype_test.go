package beacon

import (
	"math"
	"testing"
)

// alignedPrototypeParams tunes f1 to the anchor key's 12-TET pitch so that
// prototype deviations reflect just-intonation error rather than the
// detuning of the fundamental itself.
func alignedPrototypeParams() *Params {
	p := NewDefaultParams()
	p.F1 = MIDIToFrequency(float64(p.AnchorNote))
	return p
}

func TestPrototypeMapperAnchorIsFundamental(t *testing.T) {
	m := NewPrototypeMapper(NewDefaultParams())

	match, ok := m.Match(24)
	if !ok {
		t.Fatalf("anchor key should always match")
	}
	if match.Harmonic != 1 {
		t.Fatalf("anchor key harmonic = %d, want 1", match.Harmonic)
	}
}

func TestPrototypeMapperIntervalClasses(t *testing.T) {
	p := NewDefaultParams()
	m := NewPrototypeMapper(p)

	// The secondary (natural) voice carries the untransposed prototype for
	// the key's interval class, one table entry per chromatic step.
	for offset := 0; offset < 12; offset++ {
		note := p.AnchorNote + offset
		natural, ok := m.Secondary(note)
		if !ok {
			t.Fatalf("note %d: expected a prototype", note)
		}
		want := p.PrototypeTable[offset]
		if natural.Harmonic != want {
			t.Fatalf("interval %d: harmonic = %d, want %d", offset, natural.Harmonic, want)
		}
		if math.Abs(natural.Frequency-p.F1*float64(want)) > 1e-9 {
			t.Fatalf("interval %d: natural frequency = %g, want %g",
				offset, natural.Frequency, p.F1*float64(want))
		}
	}
}

func TestPrototypeMapperPrimaryNearKeyPitch(t *testing.T) {
	p := NewDefaultParams()
	m := NewPrototypeMapper(p)

	lo, hi := m.Range()
	for note := lo; note <= hi; note++ {
		match, ok := m.Match(note)
		if !ok {
			continue
		}
		target := MIDIToFrequency(float64(note))
		cents := math.Abs(CentsBetween(target, match.Frequency))
		if cents > 600.0 {
			t.Fatalf("note %d: primary %g Hz is %g cents from expected %g Hz",
				note, match.Frequency, cents, target)
		}
	}
}

func TestPrototypeMapperDeviationSignSharp(t *testing.T) {
	p := alignedPrototypeParams()
	m := NewPrototypeMapper(p)

	// The fifth above the anchor is prototype n=3, about +2 cents sharp of
	// the 12-TET fifth when octave-transposed to the key's register.
	match, ok := m.Match(p.AnchorNote + 7)
	if !ok {
		t.Fatalf("fifth above anchor should match")
	}
	if match.Harmonic != 3 {
		t.Fatalf("fifth harmonic = %d, want 3", match.Harmonic)
	}
	if match.DeviationCents <= 0 || match.DeviationCents > 5 {
		t.Fatalf("fifth deviation = %g cents, want small positive (sharp)", match.DeviationCents)
	}
}

func TestPrototypeMapperLocalHitPreferredOverPrototype(t *testing.T) {
	p := alignedPrototypeParams()
	m := NewPrototypeMapper(p)

	// With f1 on the anchor's 12-TET pitch, the octave keys sit exactly on
	// raw harmonics 2 and 4: those must surface as local hits.
	for _, note := range []int{p.AnchorNote + 12, p.AnchorNote + 24} {
		match, ok := m.Match(note)
		if !ok {
			t.Fatalf("note %d: expected a match", note)
		}
		if match.Source != SourceLocal && match.Source != SourcePrototype {
			t.Fatalf("note %d: unexpected source %v", note, match.Source)
		}
		if match.Source == SourceLocal && match.Transposed {
			t.Fatalf("note %d: local matches are never transposed", note)
		}
	}
}

func TestPrototypeMapperMatchesReturnsPrimaryThenSecondary(t *testing.T) {
	p := NewDefaultParams()
	m := NewPrototypeMapper(p)

	all := m.Matches(p.AnchorNote + 7)
	if len(all) != 2 {
		t.Fatalf("expected primary+secondary, got %d matches", len(all))
	}
	primary, secondary := all[0], all[1]
	if primary.Harmonic != secondary.Harmonic && primary.Source == SourcePrototype {
		t.Fatalf("prototype primary and secondary should share the harmonic, got %d and %d",
			primary.Harmonic, secondary.Harmonic)
	}
	if secondary.Transposed {
		t.Fatalf("the natural voice must stay untransposed")
	}
}

func TestPrototypeMapperRebuildMovesAnchor(t *testing.T) {
	p := NewDefaultParams()
	m := NewPrototypeMapper(p)

	m.Rebuild(p.F1, 36, p.ToleranceCents)
	natural, ok := m.Secondary(36 + 7)
	if !ok {
		t.Fatalf("fifth above the new anchor should have a prototype")
	}
	if natural.Harmonic != 3 {
		t.Fatalf("fifth above new anchor harmonic = %d, want 3", natural.Harmonic)
	}
}
