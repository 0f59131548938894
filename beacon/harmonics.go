// Package beacon maps keyboard input onto the natural harmonic series of a
// slowly varying fundamental and keeps a polyphonic set of synthesizer voices
// in tune with that fundamental without retriggering them.
package beacon

import (
	"fmt"
	"math"
)

// Reference for MIDI <-> frequency conversion (A4 = MIDI 69 = 440 Hz).
const (
	midiA4 = 69
	freqA4 = 440.0
)

// maxAudibleHz is the cutoff above which harmonics are never considered.
const maxAudibleHz = 20000.0

// HarmonicFrequency returns the frequency of harmonic n over fundamental f1.
// Panics for n < 1 or f1 <= 0; both are programming-contract violations.
func HarmonicFrequency(f1 float64, n int) float64 {
	if n < 1 {
		panic(fmt.Sprintf("beacon: harmonic number must be >= 1, got %d", n))
	}
	if f1 <= 0 {
		panic(fmt.Sprintf("beacon: fundamental must be positive, got %g", f1))
	}
	return f1 * float64(n)
}

// HarmonicCents returns the distance of harmonic n from the fundamental in
// cents (1200 cents = one octave). Panics for n < 1.
func HarmonicCents(n int) float64 {
	if n < 1 {
		panic(fmt.Sprintf("beacon: harmonic number must be >= 1, got %d", n))
	}
	return 1200.0 * math.Log2(float64(n))
}

// OctaveReduce halves n until the ratio lies in [1, 2) and returns the
// reduced ratio together with the number of octaves removed.
// Panics for n <= 0.
func OctaveReduce(n float64) (float64, int) {
	if n <= 0 {
		panic(fmt.Sprintf("beacon: cannot octave-reduce non-positive value %g", n))
	}
	octaves := 0
	ratio := n
	for ratio >= 2.0 {
		ratio /= 2.0
		octaves++
	}
	for ratio < 1.0 {
		ratio *= 2.0
		octaves--
	}
	return ratio, octaves
}

// FrequencyToMIDI converts a frequency in Hz to a fractional MIDI note
// number, allowing microtonal precision. Panics for freq <= 0.
func FrequencyToMIDI(freq float64) float64 {
	if freq <= 0 {
		panic(fmt.Sprintf("beacon: frequency must be positive, got %g", freq))
	}
	return midiA4 + 12.0*math.Log2(freq/freqA4)
}

// MIDIToFrequency converts a (possibly fractional) MIDI note number to Hz.
func MIDIToFrequency(note float64) float64 {
	return freqA4 * math.Pow(2.0, (note-midiA4)/12.0)
}

// CentsBetween returns the signed distance from fa to fb in cents.
// Positive means fb is sharp of fa. Panics if either frequency is <= 0.
func CentsBetween(fa, fb float64) float64 {
	if fa <= 0 || fb <= 0 {
		panic(fmt.Sprintf("beacon: frequencies must be positive, got %g and %g", fa, fb))
	}
	return 1200.0 * math.Log2(fb/fa)
}

// SemitonesBetween returns the signed distance from fa to fb in equal
// tempered semitones. Panics if either frequency is <= 0.
func SemitonesBetween(fa, fb float64) float64 {
	return CentsBetween(fa, fb) / 100.0
}

// PlayableFrequency transposes harmonic n of f1 by whole octaves so that it
// sounds as close as possible to the equal-tempered pitch of the given MIDI
// key. This is the "playable" layer: the harmonic's interval color in the
// register the player actually pressed.
func PlayableFrequency(f1 float64, n int, note int) float64 {
	raw := HarmonicFrequency(f1, n)
	target := MIDIToFrequency(float64(note))
	// Whole-octave shift minimizing the log-frequency distance to target.
	shift := math.Round(math.Log2(target / raw))
	return raw * math.Pow(2.0, shift)
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteName formats a MIDI note number as pitch name plus octave (C4 = 60).
func NoteName(note int) string {
	if note < 0 || note > 127 {
		return fmt.Sprintf("?%d", note)
	}
	return fmt.Sprintf("%s%d", noteNames[note%12], note/12-1)
}
