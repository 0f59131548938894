// Package osc sends voice control messages to Surge XT over OSC. Exact
// frequencies go out via the /fnote interface, which is what makes the
// engine's microtonal output possible at all; plain MIDI notes cannot carry
// them.
package osc

import (
	"log/slog"

	goosc "github.com/hypebeast/go-osc/osc"
)

// Surge XT OSC addresses (v1.3+). All numeric arguments are float32.
const (
	addrNoteOn      = "/fnote"
	addrNoteOff     = "/fnote/rel"
	addrAllNotesOff = "/allnotesoff"
	addrPitch       = "/ne/pitch"
)

// Visualizer broadcast addresses, sent to a second port when enabled.
const (
	addrBroadcastF1     = "/beacon/f1"
	addrBroadcastAnchor = "/beacon/anchor"
)

// Sender implements beacon.Sink over UDP OSC. Send failures are logged and
// dropped; the tick loop must never stall on the network.
type Sender struct {
	client    *goosc.Client
	broadcast *goosc.Client
	log       *slog.Logger
}

// NewSender creates a sender targeting host:port.
func NewSender(host string, port int, log *slog.Logger) *Sender {
	if log == nil {
		log = slog.Default()
	}
	return &Sender{client: goosc.NewClient(host, port), log: log}
}

// EnableBroadcast mirrors engine state to a second port for visualizers.
func (s *Sender) EnableBroadcast(host string, port int) {
	s.broadcast = goosc.NewClient(host, port)
}

func (s *Sender) send(msg *goosc.Message) {
	if err := s.client.Send(msg); err != nil {
		s.log.Warn("osc send failed", "address", msg.Address, "err", err)
	}
}

// NoteOn starts a voice at an exact frequency. Surge expects velocity in
// 0..127, so the normalized velocity is scaled up.
func (s *Sender) NoteOn(voice int, freq, velocity float64) {
	msg := goosc.NewMessage(addrNoteOn)
	msg.Append(float32(freq))
	msg.Append(float32(velocity * 127.0))
	msg.Append(float32(voice))
	s.send(msg)
}

// NoteOff releases a voice. The frequency is carried for receivers that
// address notes by pitch rather than by note ID.
func (s *Sender) NoteOff(voice int, freq, release float64) {
	msg := goosc.NewMessage(addrNoteOff)
	msg.Append(float32(freq))
	msg.Append(float32(release * 127.0))
	msg.Append(float32(voice))
	s.send(msg)
}

// PitchOffset re-tunes a sounding voice by a semitone delta via Surge's
// per-note pitch expression.
func (s *Sender) PitchOffset(voice int, semitones float64) {
	msg := goosc.NewMessage(addrPitch)
	msg.Append(float32(voice))
	msg.Append(float32(semitones))
	s.send(msg)
}

// AllNotesOff releases every sounding note.
func (s *Sender) AllNotesOff() {
	s.send(goosc.NewMessage(addrAllNotesOff))
}

// BroadcastState mirrors the current fundamental and anchor to the
// visualizer port. A no-op unless EnableBroadcast was called.
func (s *Sender) BroadcastState(f1 float64, anchor int) {
	if s.broadcast == nil {
		return
	}
	f1Msg := goosc.NewMessage(addrBroadcastF1)
	f1Msg.Append(float32(f1))
	anchorMsg := goosc.NewMessage(addrBroadcastAnchor)
	anchorMsg.Append(int32(anchor))
	if err := s.broadcast.Send(f1Msg); err != nil {
		s.log.Warn("osc broadcast failed", "address", f1Msg.Address, "err", err)
		return
	}
	if err := s.broadcast.Send(anchorMsg); err != nil {
		s.log.Warn("osc broadcast failed", "address", anchorMsg.Address, "err", err)
	}
}
