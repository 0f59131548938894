package beacon

import "math"

// PrototypeMapper maps keys through a fixed 12-entry chromatic prototype
// table. Each interval class above the anchor owns one prototype harmonic;
// the prototype is octave-transposed to sound at the pressed key's expected
// equal-tempered pitch (the primary voice) while the untransposed harmonic is
// retained as the natural secondary voice. When a raw harmonic happens to sit
// near the key's expected frequency it wins over the prototype as a "local"
// match.
type PrototypeMapper struct {
	f1        float64
	anchor    int
	tolerance float64 // window for accepting a local candidate, in cents
	table     [12]int
	lowest    int
	highest   int

	primary   []HarmonicMatch
	secondary []HarmonicMatch
	valid     []bool
}

// NewPrototypeMapper builds the prototype mapping for the given parameters.
func NewPrototypeMapper(p *Params) *PrototypeMapper {
	m := &PrototypeMapper{
		f1:        p.F1,
		anchor:    p.AnchorNote,
		tolerance: p.ToleranceCents,
		table:     p.PrototypeTable,
		lowest:    p.LowestNote,
		highest:   p.HighestNote,
	}
	m.build()
	return m
}

func (m *PrototypeMapper) build() {
	size := m.highest - m.lowest + 1
	m.primary = make([]HarmonicMatch, size)
	m.secondary = make([]HarmonicMatch, size)
	m.valid = make([]bool, size)

	for note := m.lowest; note <= m.highest; note++ {
		idx := note - m.lowest
		ic := ((note-m.anchor)%12 + 12) % 12
		n := m.table[ic]
		if n < 1 {
			continue
		}
		raw := m.f1 * float64(n)
		if raw > maxAudibleHz {
			continue
		}
		target := MIDIToFrequency(float64(note))

		// Octave multiplier bringing the prototype closest to the key's
		// 12-TET pitch.
		shift := math.Round(math.Log2(target / raw))
		primaryFreq := raw * math.Pow(2.0, shift)
		primary := HarmonicMatch{
			Note:           note,
			Harmonic:       n,
			Frequency:      primaryFreq,
			DeviationCents: CentsBetween(target, primaryFreq),
			Transposed:     shift != 0,
			Source:         SourcePrototype,
		}

		// Local candidate: a raw harmonic adjacent to the key's expected
		// frequency may be a closer fit than the transposed prototype.
		if local, ok := m.localCandidate(target); ok &&
			math.Abs(local.DeviationCents) < math.Abs(primary.DeviationCents) {
			local.Note = note
			primary = local
		}

		m.primary[idx] = primary
		m.secondary[idx] = HarmonicMatch{
			Note:           note,
			Harmonic:       n,
			Frequency:      raw,
			DeviationCents: CentsBetween(target, raw),
			Source:         SourcePrototype,
		}
		m.valid[idx] = true
	}
}

// localCandidate searches harmonic numbers around target/f1 for an
// untransposed harmonic within the tolerance window of the target pitch.
func (m *PrototypeMapper) localCandidate(target float64) (HarmonicMatch, bool) {
	center := int(math.Round(target / m.f1))
	best := HarmonicMatch{}
	found := false
	for n := center - 2; n <= center+2; n++ {
		if n < 1 {
			continue
		}
		raw := m.f1 * float64(n)
		if raw > maxAudibleHz {
			break
		}
		dev := CentsBetween(target, raw)
		if math.Abs(dev) > m.tolerance {
			continue
		}
		if !found || math.Abs(dev) < math.Abs(best.DeviationCents) {
			best = HarmonicMatch{
				Harmonic:       n,
				Frequency:      raw,
				DeviationCents: dev,
				Source:         SourceLocal,
			}
			found = true
		}
	}
	return best, found
}

// Match returns the primary (transposed prototype or local) voice for a key.
func (m *PrototypeMapper) Match(note int) (HarmonicMatch, bool) {
	if note < m.lowest || note > m.highest || !m.valid[note-m.lowest] {
		return HarmonicMatch{}, false
	}
	return m.primary[note-m.lowest], true
}

// Matches returns the primary voice followed by the natural (untransposed)
// secondary voice for stacking.
func (m *PrototypeMapper) Matches(note int) []HarmonicMatch {
	if note < m.lowest || note > m.highest || !m.valid[note-m.lowest] {
		return nil
	}
	idx := note - m.lowest
	return []HarmonicMatch{m.primary[idx], m.secondary[idx]}
}

// Secondary returns the untransposed natural voice for a key.
func (m *PrototypeMapper) Secondary(note int) (HarmonicMatch, bool) {
	if note < m.lowest || note > m.highest || !m.valid[note-m.lowest] {
		return HarmonicMatch{}, false
	}
	return m.secondary[note-m.lowest], true
}

// Rebuild recomputes the table with the given parameters.
func (m *PrototypeMapper) Rebuild(f1 float64, anchor int, toleranceCents float64) {
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
func (m *PrototypeMapper) Range() (int, int) { return m.lowest, m.highest }
