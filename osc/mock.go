package osc

import (
	"fmt"
	"io"
)

// Mock implements beacon.Sink by printing messages instead of sending them,
// for running the daemon without a synthesizer attached.
type Mock struct {
	w io.Writer
}

// NewMock creates a mock sink writing one line per message to w.
func NewMock(w io.Writer) *Mock {
	return &Mock{w: w}
}

func (m *Mock) NoteOn(voice int, freq, velocity float64) {
	fmt.Fprintf(m.w, "%s %.2f %.0f %d\n", addrNoteOn, freq, velocity*127.0, voice)
}

func (m *Mock) NoteOff(voice int, freq, release float64) {
	fmt.Fprintf(m.w, "%s %.2f %.0f %d\n", addrNoteOff, freq, release*127.0, voice)
}

func (m *Mock) PitchOffset(voice int, semitones float64) {
	fmt.Fprintf(m.w, "%s %d %+.3f\n", addrPitch, voice, semitones)
}

func (m *Mock) AllNotesOff() {
	fmt.Fprintf(m.w, "%s\n", addrAllNotesOff)
}
