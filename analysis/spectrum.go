// Package analysis extracts spectral peaks from rendered audio so auditions
// can be verified against the frequencies the mapper promised.
package analysis

import (
	"fmt"
	"math"
	"math/cmplx"
	"sort"

	algofft "github.com/cwbudde/algo-fft"
)

// Spectrum is a single hann-windowed magnitude spectrum.
type Spectrum struct {
	Mags  []float64 // bins 0..fftSize/2-1
	BinHz float64
}

// Peak is one spectral maximum with its interpolated frequency.
type Peak struct {
	Frequency float64
	Magnitude float64
}

// MagnitudeSpectrum computes the magnitude spectrum of the first fftSize
// samples (zero-padded when shorter), hann-windowed.
func MagnitudeSpectrum(samples []float64, sampleRate, fftSize int) (*Spectrum, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("empty input")
	}
	plan, err := algofft.NewPlanReal64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("fft plan: %w", err)
	}

	buf := make([]float64, fftSize)
	n := len(samples)
	if n > fftSize {
		n = fftSize
	}
	for i := 0; i < n; i++ {
		hann := 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(fftSize-1))
		buf[i] = samples[i] * hann
	}

	spec := make([]complex128, fftSize/2+1)
	plan.Forward(spec, buf)

	nBins := fftSize / 2
	mags := make([]float64, nBins)
	for k := 0; k < nBins; k++ {
		mags[k] = cmplx.Abs(spec[k])
	}
	return &Spectrum{Mags: mags, BinHz: float64(sampleRate) / float64(fftSize)}, nil
}

// Peaks returns local maxima at least minRel of the strongest bin, strongest
// first, capped at maxPeaks. Bin frequencies are refined by parabolic
// interpolation over the neighboring magnitudes.
func (s *Spectrum) Peaks(maxPeaks int, minRel float64) []Peak {
	if len(s.Mags) < 3 || maxPeaks < 1 {
		return nil
	}
	maxMag := 0.0
	for _, m := range s.Mags {
		if m > maxMag {
			maxMag = m
		}
	}
	if maxMag == 0 {
		return nil
	}
	floor := minRel * maxMag

	var peaks []Peak
	for k := 1; k < len(s.Mags)-1; k++ {
		m := s.Mags[k]
		if m < floor || m <= s.Mags[k-1] || m < s.Mags[k+1] {
			continue
		}
		bin := float64(k)
		denom := s.Mags[k-1] - 2*m + s.Mags[k+1]
		if denom != 0 {
			delta := 0.5 * (s.Mags[k-1] - s.Mags[k+1]) / denom
			if delta > -1 && delta < 1 {
				bin += delta
			}
		}
		peaks = append(peaks, Peak{Frequency: bin * s.BinHz, Magnitude: m})
	}
	sort.Slice(peaks, func(i, j int) bool { return peaks[i].Magnitude > peaks[j].Magnitude })
	if len(peaks) > maxPeaks {
		peaks = peaks[:maxPeaks]
	}
	return peaks
}

// DominantFrequency returns the strongest peak's frequency.
func (s *Spectrum) DominantFrequency() (float64, bool) {
	peaks := s.Peaks(1, 0)
	if len(peaks) == 0 {
		return 0, false
	}
	return peaks[0].Frequency, true
}

// ContainsFrequency reports whether any peak lies within tolCents of freq.
func ContainsFrequency(peaks []Peak, freq, tolCents float64) bool {
	if freq <= 0 {
		return false
	}
	for _, p := range peaks {
		if p.Frequency <= 0 {
			continue
		}
		cents := 1200.0 * math.Abs(math.Log2(p.Frequency/freq))
		if cents <= tolCents {
			return true
		}
	}
	return false
}
