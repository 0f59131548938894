package midiio

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/cwbudde/algo-beacon/beacon"
)

// MPE lower-zone layout: channel 1 is the master channel, channels 2-16 are
// member channels with one voice each (0-indexed here).
const (
	mpeMasterChannel      = 0
	mpeFirstMemberChannel = 1
	mpeMemberChannels     = 15

	// DefaultBendRange is the standard MPE pitch bend range in semitones.
	DefaultBendRange = 48

	// DefaultVirtualPortName names the virtual output port created when no
	// existing port is selected.
	DefaultVirtualPortName = "Harmonic Beacon MPE"
)

// MPEConfig selects the output port and tuning resolution of the MPE sender.
type MPEConfig struct {
	// PortPattern is a case-insensitive substring of an existing output port
	// name. Empty creates a virtual port instead.
	PortPattern string
	// VirtualName names the virtual port; empty uses DefaultVirtualPortName.
	VirtualName string
	// BendRange is the per-channel pitch bend range in semitones; zero uses
	// DefaultBendRange. Receivers are configured to the same range via RPN 0.
	BendRange int
}

// MPESender implements beacon.Sink over MIDI Polyphonic Expression: one
// member channel per voice, exact frequencies encoded as nearest-note plus
// per-channel pitch bend. Polyphony is capped at the 15 member channels;
// note-ons beyond that are dropped with a warning.
type MPESender struct {
	drv       *rtmididrv.Driver
	out       drivers.Out
	bendRange int
	log       *slog.Logger

	voiceChannel map[int]uint8   // voice ID -> member channel
	channelNote  map[uint8]uint8 // member channel -> sounding note
	channelBase  map[uint8]float64
	free         []uint8
}

// NewMPESender opens (or creates) the MIDI output port and configures the
// pitch bend range on every member channel.
func NewMPESender(cfg MPEConfig, log *slog.Logger) (*MPESender, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("init midi driver: %w", err)
	}

	var out drivers.Out
	if cfg.PortPattern == "" {
		name := cfg.VirtualName
		if name == "" {
			name = DefaultVirtualPortName
		}
		out, err = drv.OpenVirtualOut(name)
		if err != nil {
			_ = drv.Close()
			return nil, fmt.Errorf("create virtual midi output %q: %w", name, err)
		}
	} else {
		outs, err := drv.Outs()
		if err != nil {
			_ = drv.Close()
			return nil, fmt.Errorf("list midi outputs: %w", err)
		}
		pattern := strings.ToLower(cfg.PortPattern)
		for _, p := range outs {
			if strings.Contains(strings.ToLower(p.String()), pattern) {
				out = p
				break
			}
		}
		if out == nil {
			_ = drv.Close()
			return nil, fmt.Errorf("no midi output matches %q", cfg.PortPattern)
		}
		if err := out.Open(); err != nil {
			_ = drv.Close()
			return nil, fmt.Errorf("open midi output %q: %w", out.String(), err)
		}
	}

	s := newMPESenderWithPort(out, cfg.BendRange, log)
	s.drv = drv
	s.configure()
	s.log.Info("mpe output connected", "port", out.String(), "bend_range", s.bendRange)
	return s, nil
}

// newMPESenderWithPort wires the sender onto an already-open port.
func newMPESenderWithPort(out drivers.Out, bendRange int, log *slog.Logger) *MPESender {
	if bendRange <= 0 {
		bendRange = DefaultBendRange
	}
	if log == nil {
		log = slog.Default()
	}
	s := &MPESender{
		out:          out,
		bendRange:    bendRange,
		log:          log,
		voiceChannel: make(map[int]uint8),
		channelNote:  make(map[uint8]uint8),
		channelBase:  make(map[uint8]float64),
	}
	s.resetChannels()
	return s
}

func (s *MPESender) resetChannels() {
	s.free = s.free[:0]
	for ch := uint8(mpeFirstMemberChannel); ch < mpeFirstMemberChannel+mpeMemberChannels; ch++ {
		s.free = append(s.free, ch)
	}
}

// configure sets the pitch bend sensitivity on every member channel via
// RPN 0 so receivers interpret bends at the sender's range.
func (s *MPESender) configure() {
	for ch := uint8(mpeFirstMemberChannel); ch < mpeFirstMemberChannel+mpeMemberChannels; ch++ {
		s.send(midi.ControlChange(ch, 101, 0))
		s.send(midi.ControlChange(ch, 100, 0))
		s.send(midi.ControlChange(ch, 6, uint8(s.bendRange)))
		s.send(midi.ControlChange(ch, 38, 0))
		s.send(midi.ControlChange(ch, 101, 127))
		s.send(midi.ControlChange(ch, 100, 127))
	}
}

func (s *MPESender) send(msg midi.Message) {
	if err := s.out.Send(msg.Bytes()); err != nil {
		s.log.Warn("mpe send failed", "err", err)
	}
}

func (s *MPESender) allocate(voice int) (uint8, bool) {
	if ch, ok := s.voiceChannel[voice]; ok {
		return ch, true
	}
	if len(s.free) == 0 {
		s.log.Warn("mpe out of member channels", "voice", voice)
		return 0, false
	}
	ch := s.free[0]
	s.free = s.free[1:]
	s.voiceChannel[voice] = ch
	return ch, true
}

func (s *MPESender) release(voice int) (uint8, bool) {
	ch, ok := s.voiceChannel[voice]
	if !ok {
		return 0, false
	}
	delete(s.voiceChannel, voice)
	delete(s.channelNote, ch)
	delete(s.channelBase, ch)
	s.free = append(s.free, ch)
	return ch, true
}

// NoteOn starts a voice: bend first so the note never sounds at the tempered
// pitch, then the note-on at the nearest integer note.
func (s *MPESender) NoteOn(voice int, freq, velocity float64) {
	ch, ok := s.allocate(voice)
	if !ok {
		return
	}
	note, bend, base := FrequencyToNoteAndBend(freq, s.bendRange)
	vel := uint8(clampInt(int(velocity*127.0), 1, 127))

	s.send(midi.Pitchbend(ch, bend))
	s.send(midi.NoteOn(ch, note, vel))
	s.channelNote[ch] = note
	s.channelBase[ch] = base
}

// NoteOff releases a voice and returns its channel to the pool.
func (s *MPESender) NoteOff(voice int, freq, release float64) {
	ch, ok := s.voiceChannel[voice]
	if !ok {
		return
	}
	note, soundedHere := s.channelNote[ch]
	if !soundedHere {
		note, _, _ = FrequencyToNoteAndBend(freq, s.bendRange)
	}
	rel := uint8(clampInt(int(release*127.0), 0, 127))
	s.send(midi.NoteOffVelocity(ch, note, rel))
	s.release(voice)
}

// PitchOffset re-tunes a sounding voice. The semitone delta is relative to
// the voice's original frequency, so the channel's microtonal base offset is
// added back in before encoding.
func (s *MPESender) PitchOffset(voice int, semitones float64) {
	ch, ok := s.voiceChannel[voice]
	if !ok {
		return
	}
	s.send(midi.Pitchbend(ch, bendValue(s.channelBase[ch]+semitones, s.bendRange)))
}

// AllNotesOff sends CC 123 on the master and every member channel and resets
// the voice allocation.
func (s *MPESender) AllNotesOff() {
	s.send(midi.ControlChange(mpeMasterChannel, 123, 0))
	for ch := uint8(mpeFirstMemberChannel); ch < mpeFirstMemberChannel+mpeMemberChannels; ch++ {
		s.send(midi.ControlChange(ch, 123, 0))
	}
	s.voiceChannel = make(map[int]uint8)
	s.channelNote = make(map[uint8]uint8)
	s.channelBase = make(map[uint8]float64)
	s.resetChannels()
}

// ActiveVoices returns the number of allocated member channels.
func (s *MPESender) ActiveVoices() int { return len(s.voiceChannel) }

// Close releases all voices and the port.
func (s *MPESender) Close() error {
	s.AllNotesOff()
	if s.out != nil {
		_ = s.out.Close()
		s.out = nil
	}
	if s.drv != nil {
		return s.drv.Close()
	}
	return nil
}

// FrequencyToNoteAndBend encodes a frequency as the nearest MIDI note plus a
// relative 14-bit pitch bend. The returned base is the fractional semitone
// offset the bend encodes, needed to keep later pitch expression relative to
// the same note.
func FrequencyToNoteAndBend(freq float64, bendRange int) (note uint8, bend int16, base float64) {
	midiFloat := beacon.FrequencyToMIDI(freq)
	nearest := math.Round(midiFloat)
	if nearest < 0 {
		nearest = 0
	}
	if nearest > 127 {
		nearest = 127
	}
	base = midiFloat - nearest
	return uint8(nearest), bendValue(base, bendRange), base
}

// bendValue maps a semitone offset into the signed 14-bit bend range.
func bendValue(semitones float64, bendRange int) int16 {
	norm := semitones / float64(bendRange)
	if norm > 1 {
		norm = 1
	}
	if norm < -1 {
		norm = -1
	}
	return int16(math.Round(norm * 8191.0))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
