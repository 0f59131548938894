package midiio

import (
	"io"
	"log/slog"
	"testing"

	"gitlab.com/gomidi/midi/v2"

	"github.com/cwbudde/algo-beacon/beacon"
)

var _ beacon.Sink = (*MPESender)(nil)

// fakeOut captures sent messages instead of touching a MIDI device.
type fakeOut struct {
	msgs []midi.Message
}

func (f *fakeOut) Number() int              { return 0 }
func (f *fakeOut) String() string           { return "fake out" }
func (f *fakeOut) Underlying() interface{}  { return nil }
func (f *fakeOut) Open() error              { return nil }
func (f *fakeOut) Close() error             { return nil }
func (f *fakeOut) IsOpen() bool             { return true }
func (f *fakeOut) Send(data []byte) error {
	b := make([]byte, len(data))
	copy(b, data)
	f.msgs = append(f.msgs, midi.Message(b))
	return nil
}

func testMPESender() (*MPESender, *fakeOut) {
	out := &fakeOut{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return newMPESenderWithPort(out, DefaultBendRange, log), out
}

func noteOns(out *fakeOut) []midi.Message {
	var ons []midi.Message
	var ch, key, vel uint8
	for _, m := range out.msgs {
		if m.GetNoteStart(&ch, &key, &vel) {
			ons = append(ons, m)
		}
	}
	return ons
}

func TestFrequencyToNoteAndBend(t *testing.T) {
	note, bend, base := FrequencyToNoteAndBend(440.0, DefaultBendRange)
	if note != 69 || bend != 0 || base != 0 {
		t.Fatalf("440 Hz = note %d bend %d base %g, want 69/0/0", note, bend, base)
	}

	// A quarter tone above middle C needs a small upward bend.
	note, bend, base = FrequencyToNoteAndBend(beacon.MIDIToFrequency(60.25), DefaultBendRange)
	if note != 60 {
		t.Fatalf("quarter tone rounds to note %d, want 60", note)
	}
	if bend != 43 { // 0.25/48 * 8191
		t.Fatalf("quarter tone bend = %d, want 43", bend)
	}
	if base < 0.249 || base > 0.251 {
		t.Fatalf("base offset = %g, want 0.25", base)
	}

	// Offsets beyond the bend range saturate instead of wrapping.
	if b := bendValue(100.0, DefaultBendRange); b != 8191 {
		t.Fatalf("saturated bend = %d, want 8191", b)
	}
	if b := bendValue(-100.0, DefaultBendRange); b != -8191 {
		t.Fatalf("saturated bend = %d, want -8191", b)
	}
}

func TestMPENoteOnSendsBendBeforeNote(t *testing.T) {
	s, out := testMPESender()
	s.NoteOn(0, beacon.MIDIToFrequency(60.25), 1.0)

	if len(out.msgs) != 2 {
		t.Fatalf("note-on should send 2 messages, got %d", len(out.msgs))
	}
	var ch uint8
	var rel int16
	var abs uint16
	if !out.msgs[0].GetPitchBend(&ch, &rel, &abs) {
		t.Fatalf("first message should be the pitch bend, got %s", out.msgs[0])
	}
	if ch != mpeFirstMemberChannel || rel != 43 {
		t.Fatalf("bend = ch %d value %d, want ch %d value 43", ch, rel, mpeFirstMemberChannel)
	}
	var key, vel uint8
	if !out.msgs[1].GetNoteStart(&ch, &key, &vel) {
		t.Fatalf("second message should be the note-on, got %s", out.msgs[1])
	}
	if ch != mpeFirstMemberChannel || key != 60 || vel != 127 {
		t.Fatalf("note-on = ch %d key %d vel %d, want ch %d key 60 vel 127",
			ch, key, vel, mpeFirstMemberChannel)
	}
}

func TestMPENoteOffReleasesChannel(t *testing.T) {
	s, out := testMPESender()
	s.NoteOn(7, 220.0, 0.5)
	s.NoteOff(7, 220.0, 0)

	var ch, key, vel uint8
	found := false
	for _, m := range out.msgs {
		if m.GetNoteEnd(&ch, &key) {
			found = true
		}
	}
	if !found {
		t.Fatalf("no note-off was sent")
	}
	if s.ActiveVoices() != 0 {
		t.Fatalf("voice still allocated after note-off")
	}

	// The freed channel goes to the back of the pool; a fresh voice takes the
	// next member channel.
	out.msgs = nil
	s.NoteOn(8, 220.0, 0.5)
	if !out.msgs[1].GetNoteStart(&ch, &key, &vel) {
		t.Fatalf("expected a note-on, got %s", out.msgs[1])
	}
	if ch != mpeFirstMemberChannel+1 {
		t.Fatalf("fresh voice on channel %d, want %d", ch, mpeFirstMemberChannel+1)
	}
}

func TestMPEVoiceBeyondMemberChannelsDropped(t *testing.T) {
	s, out := testMPESender()
	for v := 0; v < mpeMemberChannels; v++ {
		s.NoteOn(v, 110.0, 0.5)
	}
	sent := len(noteOns(out))
	s.NoteOn(mpeMemberChannels, 110.0, 0.5)

	if got := len(noteOns(out)); got != sent {
		t.Fatalf("16th voice should be dropped, note-ons went %d -> %d", sent, got)
	}
	if s.ActiveVoices() != mpeMemberChannels {
		t.Fatalf("active voices = %d, want %d", s.ActiveVoices(), mpeMemberChannels)
	}
}

func TestMPEPitchOffsetKeepsMicrotonalBase(t *testing.T) {
	s, out := testMPESender()
	s.NoteOn(0, beacon.MIDIToFrequency(60.25), 1.0)
	out.msgs = nil

	s.PitchOffset(0, 1.0)

	var ch uint8
	var rel int16
	var abs uint16
	if len(out.msgs) != 1 || !out.msgs[0].GetPitchBend(&ch, &rel, &abs) {
		t.Fatalf("expected one pitch bend, got %v", out.msgs)
	}
	if rel != 213 { // (0.25 + 1.0)/48 * 8191
		t.Fatalf("bend = %d, want 213 (base offset plus expression)", rel)
	}
}

func TestMPEAllNotesOffResetsAllocation(t *testing.T) {
	s, out := testMPESender()
	s.NoteOn(0, 110.0, 0.5)
	s.NoteOn(1, 220.0, 0.5)
	out.msgs = nil

	s.AllNotesOff()

	var ch, cc, val uint8
	count := 0
	for _, m := range out.msgs {
		if m.GetControlChange(&ch, &cc, &val) && cc == 123 {
			count++
		}
	}
	if count != 1+mpeMemberChannels {
		t.Fatalf("CC 123 on %d channels, want master plus %d members", count, mpeMemberChannels)
	}
	if s.ActiveVoices() != 0 {
		t.Fatalf("allocation not cleared")
	}

	// The pool is full again.
	out.msgs = nil
	s.NoteOn(2, 110.0, 0.5)
	var key, vel uint8
	if !out.msgs[1].GetNoteStart(&ch, &key, &vel) || ch != mpeFirstMemberChannel {
		t.Fatalf("after reset the first member channel should be free again")
	}
}
