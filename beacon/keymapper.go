package beacon

import "math"

// MatchSource records how a key was matched to its harmonic.
type MatchSource int

const (
	// SourceDirect is a tolerance-search hit at the key's own position.
	SourceDirect MatchSource = iota
	// SourceLocal is a near-exact harmonic found next to the key's expected
	// frequency by the prototype mapper.
	SourceLocal
	// SourcePrototype is a transposed chromatic prototype fallback.
	SourcePrototype
)

// HarmonicMatch is the result of mapping one key to one harmonic.
type HarmonicMatch struct {
	Note           int     // the MIDI key that was queried
	Harmonic       int     // harmonic number n
	Frequency      float64 // f1 * n, possibly octave-transposed
	DeviationCents float64 // signed; positive = sharp of the key's 12-TET pitch
	Transposed     bool    // true when the frequency was octave-shifted
	Source         MatchSource
}

// Mapper answers "which harmonic(s) does key K represent" for the current
// fundamental, anchor and tolerance. Lookups reflect the parameters as of the
// last Rebuild call; Rebuild is synchronous and must complete before any
// subsequent lookup.
type Mapper interface {
	// Match returns the best single match for a key, or ok=false when the
	// key maps to silence.
	Match(note int) (HarmonicMatch, bool)
	// Matches returns every match for a key, ascending by harmonic number.
	// An empty slice means no match.
	Matches(note int) []HarmonicMatch
	// Rebuild recomputes the mapping for new parameters. Zero/negative
	// tolerance and anchor outside the keyboard range leave the respective
	// parameter unchanged.
	Rebuild(f1 float64, anchor int, toleranceCents float64)
	// Range returns the mapped keyboard range (inclusive).
	Range() (lowest, highest int)
}

// ToleranceMapper matches keys against the harmonic series using a symmetric
// cents window: key K matches harmonic n when
// |(K-anchor)*100 - 1200*log2(n)| <= tolerance.
type ToleranceMapper struct {
	f1          float64
	anchor      int
	tolerance   float64
	maxHarmonic int
	lowest      int
	highest     int

	// matches[note-lowest] holds every match for the note, ascending by n.
	matches [][]HarmonicMatch
}

// NewToleranceMapper builds the mapping table for the given parameters.
func NewToleranceMapper(p *Params) *ToleranceMapper {
	m := &ToleranceMapper{
		f1:          p.F1,
		anchor:      p.AnchorNote,
		tolerance:   p.ToleranceCents,
		maxHarmonic: p.MaxHarmonic,
		lowest:      p.LowestNote,
		highest:     p.HighestNote,
	}
	m.build()
	return m
}

func (m *ToleranceMapper) build() {
	m.matches = make([][]HarmonicMatch, m.highest-m.lowest+1)

	for note := m.lowest; note <= m.highest; note++ {
		keyCents := float64(note-m.anchor) * 100.0

		var found []HarmonicMatch
		for n := 1; n <= m.maxHarmonic; n++ {
			if m.f1*float64(n) > maxAudibleHz {
				break
			}
			hCents := HarmonicCents(n)
			deviation := keyCents - hCents
			if math.Abs(deviation) <= m.tolerance {
				found = append(found, HarmonicMatch{
					Note:           note,
					Harmonic:       n,
					Frequency:      m.f1 * float64(n),
					DeviationCents: deviation,
					Source:         SourceDirect,
				})
			}
			// Harmonic cents grow monotonically in n: once past the window
			// we stay past it. The extra cent covers rounding at the edge.
			if hCents > keyCents+m.tolerance+1.0 {
				break
			}
		}
		m.matches[note-m.lowest] = found
	}
}

// Match returns the match with the smallest absolute deviation.
func (m *ToleranceMapper) Match(note int) (HarmonicMatch, bool) {
	all := m.Matches(note)
	if len(all) == 0 {
		return HarmonicMatch{}, false
	}
	best := all[0]
	for _, c := range all[1:] {
		if math.Abs(c.DeviationCents) < math.Abs(best.DeviationCents) {
			best = c
		}
	}
	return best, true
}

// Matches returns every harmonic within tolerance, ascending by n.
func (m *ToleranceMapper) Matches(note int) []HarmonicMatch {
	if note < m.lowest || note > m.highest {
		return nil
	}
	return m.matches[note-m.lowest]
}

// Rebuild recomputes the table with the given parameters.
func (m *ToleranceMapper) Rebuild(f1 float64, anchor int, toleranceCents float64) {
	if f1 > 0 {
		m.f1 = f1
	}
	if anchor >= 0 && anchor <= 127 {
		m.anchor = anchor
	}
	if toleranceCents > 0 {
		m.tolerance = toleranceCents
	}
	m.build()
}

// Range returns the mapped keyboard range.
func (m *ToleranceMapper) Range() (int, int) { return m.lowest, m.highest }

// Fundamental returns the f1 the table was last built with.
func (m *ToleranceMapper) Fundamental() float64 { return m.f1 }

// Anchor returns the anchor note the table was last built with.
func (m *ToleranceMapper) Anchor() int { return m.anchor }

// Tolerance returns the cents window the table was last built with.
func (m *ToleranceMapper) Tolerance() float64 { return m.tolerance }
