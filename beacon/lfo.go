package beacon

import "math"

// ChorusMode selects how the chorus LFO moves between harmonic candidates.
type ChorusMode int

const (
	// ChorusSmooth interpolates continuously in log-frequency space.
	ChorusSmooth ChorusMode = iota
	// ChorusStepped jumps between candidates in discrete steps.
	ChorusStepped
)

// chorusFallbackHz is returned when an LFO has no candidate frequencies.
const chorusFallbackHz = 440.0

// ChorusLFO sweeps across the harmonic frequencies matched to one key,
// producing a chorus/vibrato effect when a key matches more than one
// harmonic. With zero or one candidate it is a passthrough.
type ChorusLFO struct {
	rate  float64
	mode  ChorusMode
	phase float64 // in [0, 1)
	freqs []float64
	base  float64 // geometric mean of the candidates
}

// NewChorusLFO creates an LFO with the given sweep rate in Hz.
func NewChorusLFO(rate float64, mode ChorusMode) *ChorusLFO {
	return &ChorusLFO{rate: rate, mode: mode, base: chorusFallbackHz}
}

// SetFrequencies sets the candidate list the LFO cycles across. The
// reference base frequency is the geometric mean of all candidates.
func (l *ChorusLFO) SetFrequencies(freqs []float64) {
	l.freqs = freqs
	switch len(freqs) {
	case 0:
		l.base = chorusFallbackHz
	case 1:
		l.base = freqs[0]
	default:
		sum := 0.0
		for _, f := range freqs {
			sum += math.Log2(f)
		}
		l.base = math.Pow(2.0, sum/float64(len(freqs)))
	}
}

// SetRate changes the sweep rate in Hz.
func (l *ChorusLFO) SetRate(rate float64) { l.rate = rate }

// SetMode changes the interpolation mode.
func (l *ChorusLFO) SetMode(mode ChorusMode) { l.mode = mode }

// Count returns the number of candidate frequencies.
func (l *ChorusLFO) Count() int { return len(l.freqs) }

// Base returns the reference frequency used for offset bookkeeping.
func (l *ChorusLFO) Base() float64 { return l.base }

// Update advances the phase by rate*dt and returns the current frequency.
func (l *ChorusLFO) Update(dt float64) float64 {
	if len(l.freqs) <= 1 {
		return l.Current()
	}
	l.phase = math.Mod(l.phase+l.rate*dt, 1.0)
	return l.Current()
}

// Current returns the frequency at the present phase without advancing it.
func (l *ChorusLFO) Current() float64 {
	switch len(l.freqs) {
	case 0:
		return chorusFallbackHz
	case 1:
		return l.freqs[0]
	}

	// Triangle wave 0 -> 1 -> 0 over one cycle.
	triangle := 1.0 - math.Abs(2.0*l.phase-1.0)
	n := len(l.freqs)

	if l.mode == ChorusStepped {
		idx := int(triangle * float64(n))
		if idx > n-1 {
			idx = n - 1
		}
		return l.freqs[idx]
	}

	// Smooth: interpolate between the two candidates bracketing the sweep
	// position, in log space so the glide is perceptually linear.
	position := triangle * float64(n-1)
	lower := int(position)
	upper := lower + 1
	if upper > n-1 {
		upper = n - 1
	}
	frac := position - float64(lower)
	logLower := math.Log2(l.freqs[lower])
	logUpper := math.Log2(l.freqs[upper])
	return math.Pow(2.0, logLower+frac*(logUpper-logLower))
}

// OffsetSemitones returns the current sweep position as a semitone offset
// from the reference base frequency.
func (l *ChorusLFO) OffsetSemitones() float64 {
	current := l.Current()
	if current <= 0 || l.base <= 0 {
		return 0
	}
	return 12.0 * math.Log2(current/l.base)
}
