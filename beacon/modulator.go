package beacon

// stableHz is the threshold below which fundamental movement is inaudible.
const stableHz = 0.01

// F1Modulator relaxes the fundamental toward a target by exponential
// smoothing, preventing audible jumps when the player moves the control.
type F1Modulator struct {
	value  float64
	target float64
	rate   float64
	min    float64
	max    float64
}

// NewF1Modulator creates a modulator starting at initial Hz. The smoothing
// rate is clamped into (0, 1]; initial is clamped into [min, max].
func NewF1Modulator(initial, rate, min, max float64) *F1Modulator {
	if rate <= 0 || rate > 1 {
		rate = 1
	}
	initial = clamp(initial, min, max)
	return &F1Modulator{value: initial, target: initial, rate: rate, min: min, max: max}
}

// SetTargetFromControl maps a normalized control value in [0, 1] linearly
// into the configured frequency range and stores it as the target.
func (m *F1Modulator) SetTargetFromControl(v float64) {
	v = clamp(v, 0, 1)
	m.target = m.min + v*(m.max-m.min)
}

// SetTargetDirect clamps an arbitrary frequency into range and stores it as
// the target.
func (m *F1Modulator) SetTargetDirect(freq float64) {
	m.target = clamp(freq, m.min, m.max)
}

// Snap sets current and target instantly, folding the frequency by octaves
// into the configured range first. Used by aftertouch re-centering, which
// wants an immediate jump rather than a glide.
func (m *F1Modulator) Snap(freq float64) {
	if freq <= 0 {
		return
	}
	for freq < m.min {
		freq *= 2.0
	}
	for freq > m.max {
		freq /= 2.0
	}
	m.value = freq
	m.target = freq
}

// Update performs one smoothing step toward the target and reports whether
// the value moved by more than the audible threshold, so callers can skip
// re-tuning work when nothing meaningfully changed. The step never
// overshoots: it moves a fixed fraction of the remaining distance.
func (m *F1Modulator) Update() bool {
	old := m.value
	m.value += (m.target - m.value) * m.rate
	return abs(m.value-old) > stableHz
}

// Stable reports whether the value has effectively reached the target.
func (m *F1Modulator) Stable() bool {
	return abs(m.value-m.target) < stableHz
}

// Value returns the current smoothed fundamental.
func (m *F1Modulator) Value() float64 { return m.value }

// Target returns the target fundamental.
func (m *F1Modulator) Target() float64 { return m.target }

// Bounds returns the configured [min, max] range.
func (m *F1Modulator) Bounds() (float64, float64) { return m.min, m.max }
