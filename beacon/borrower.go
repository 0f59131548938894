package beacon

import "math"

// BorrowedMatch is the result of substituting a higher-octave match for a key
// that has none of its own.
type BorrowedMatch struct {
	Note            int     // the key that was pressed
	BorrowedNote    int     // the higher-octave key that matched
	Harmonic        int     // harmonic number found at the borrowed key
	Frequency       float64 // the borrowed frequency folded back down
	RawFrequency    float64 // f1 * n before folding, for bookkeeping
	OctavesBorrowed int
}

// OctaveBorrower finds harmonic matches for silent keys by looking at the
// same pitch class in successively higher octaves. It is only consulted when
// the mapper itself reports no match and never overrides a direct match.
type OctaveBorrower struct {
	mapper Mapper
}

// NewOctaveBorrower wraps an existing mapper.
func NewOctaveBorrower(m Mapper) *OctaveBorrower {
	return &OctaveBorrower{mapper: m}
}

// Borrow searches K+12, K+24, ... up to the top of the keyboard range for the
// first octave whose lookup succeeds. The returned frequency is folded back
// down by the borrowed octave count so it sounds near the pressed register.
// ok=false means the key is silent everywhere; that is a valid outcome, not
// an error.
func (b *OctaveBorrower) Borrow(note int) (BorrowedMatch, bool) {
	if _, ok := b.mapper.Match(note); ok {
		return BorrowedMatch{}, false
	}
	_, highest := b.mapper.Range()
	for octaves := 1; ; octaves++ {
		candidate := note + 12*octaves
		if candidate > highest {
			return BorrowedMatch{}, false
		}
		match, ok := b.mapper.Match(candidate)
		if !ok {
			continue
		}
		fold := math.Pow(2.0, float64(octaves))
		return BorrowedMatch{
			Note:            note,
			BorrowedNote:    candidate,
			Harmonic:        match.Harmonic,
			Frequency:       match.Frequency / fold,
			RawFrequency:    match.Frequency,
			OctavesBorrowed: octaves,
		}, true
	}
}
