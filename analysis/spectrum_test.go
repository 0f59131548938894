package analysis

import (
	"math"
	"testing"
)

func tone(freq, amp float64, sampleRate, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2.0*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

func addTo(dst, src []float64) {
	for i := range src {
		dst[i] += src[i]
	}
}

func TestDominantFrequencyOfPureTone(t *testing.T) {
	const sr = 8000
	s, err := MagnitudeSpectrum(tone(162.0, 1.0, sr, sr), sr, 4096)
	if err != nil {
		t.Fatalf("spectrum: %v", err)
	}
	got, ok := s.DominantFrequency()
	if !ok {
		t.Fatalf("no dominant frequency found")
	}
	if math.Abs(got-162.0) > s.BinHz {
		t.Fatalf("dominant frequency = %g Hz, want 162 within one bin (%g Hz)", got, s.BinHz)
	}
}

func TestPeaksFindBothTones(t *testing.T) {
	const sr = 8000
	sig := tone(108.0, 1.0, sr, sr)
	addTo(sig, tone(432.0, 0.5, sr, sr))

	s, err := MagnitudeSpectrum(sig, sr, 4096)
	if err != nil {
		t.Fatalf("spectrum: %v", err)
	}
	peaks := s.Peaks(4, 0.1)
	if len(peaks) < 2 {
		t.Fatalf("expected at least two peaks, got %d", len(peaks))
	}
	if math.Abs(peaks[0].Frequency-108.0) > s.BinHz {
		t.Fatalf("strongest peak at %g Hz, want 108", peaks[0].Frequency)
	}
	if !ContainsFrequency(peaks, 432.0, 25.0) {
		t.Fatalf("432 Hz tone missing from peaks: %+v", peaks)
	}
	if ContainsFrequency(peaks, 250.0, 25.0) {
		t.Fatalf("no peak should sit near 250 Hz")
	}
}

func TestMagnitudeSpectrumZeroPadsShortInput(t *testing.T) {
	const sr = 8000
	s, err := MagnitudeSpectrum(tone(440.0, 1.0, sr, 1000), sr, 4096)
	if err != nil {
		t.Fatalf("spectrum: %v", err)
	}
	got, ok := s.DominantFrequency()
	if !ok || math.Abs(got-440.0) > 2*s.BinHz {
		t.Fatalf("short input dominant = %g Hz, ok=%v, want ~440", got, ok)
	}
}

func TestMagnitudeSpectrumRejectsEmptyInput(t *testing.T) {
	if _, err := MagnitudeSpectrum(nil, 8000, 4096); err == nil {
		t.Fatalf("expected error for empty input")
	}
}
