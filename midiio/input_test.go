package midiio

import (
	"testing"

	"gitlab.com/gomidi/midi/v2"

	"github.com/cwbudde/algo-beacon/beacon"
)

func omniConfig() Config {
	return Config{Channel: -1, AnchorChannel: -1, CC: DefaultCCMap()}
}

func TestDecodeNoteEvents(t *testing.T) {
	cfg := omniConfig()

	ev, ok := Decode(midi.NoteOn(0, 43, 100), cfg)
	if !ok || ev.Kind != beacon.EventNoteOn || ev.Note != 43 || ev.Velocity != 100 {
		t.Fatalf("note-on decoded to %+v, %v", ev, ok)
	}

	ev, ok = Decode(midi.NoteOff(0, 43), cfg)
	if !ok || ev.Kind != beacon.EventNoteOff || ev.Note != 43 {
		t.Fatalf("note-off decoded to %+v, %v", ev, ok)
	}

	// Running-status note-on with zero velocity is a release.
	ev, ok = Decode(midi.NoteOn(0, 43, 0), cfg)
	if !ok || ev.Kind != beacon.EventNoteOff {
		t.Fatalf("zero-velocity note-on should decode as note-off, got %+v, %v", ev, ok)
	}
}

func TestDecodeControlChangeRouting(t *testing.T) {
	cfg := omniConfig()

	ev, ok := Decode(midi.ControlChange(0, 1, 127), cfg)
	if !ok || ev.Kind != beacon.EventControl || ev.Control != beacon.ControlFundamental {
		t.Fatalf("mod wheel decoded to %+v, %v", ev, ok)
	}
	if ev.Value != 1.0 {
		t.Fatalf("CC value 127 should normalize to 1.0, got %g", ev.Value)
	}

	if _, ok := Decode(midi.ControlChange(0, 20, 64), cfg); ok {
		t.Fatalf("unmapped CC numbers must be dropped")
	}
}

func TestDecodeAftertouch(t *testing.T) {
	ev, ok := Decode(midi.AfterTouch(0, 96), omniConfig())
	if !ok || ev.Kind != beacon.EventAftertouch || ev.Velocity != 96 {
		t.Fatalf("aftertouch decoded to %+v, %v", ev, ok)
	}
}

func TestDecodeChannelFilter(t *testing.T) {
	cfg := omniConfig()
	cfg.Channel = 0

	if _, ok := Decode(midi.NoteOn(5, 60, 100), cfg); ok {
		t.Fatalf("events on other channels must be dropped")
	}
	if _, ok := Decode(midi.NoteOn(0, 60, 100), cfg); !ok {
		t.Fatalf("events on the configured channel must pass")
	}
}

func TestDecodeAnchorChannel(t *testing.T) {
	cfg := omniConfig()
	cfg.AnchorChannel = 9

	ev, ok := Decode(midi.NoteOn(9, 36, 100), cfg)
	if !ok || ev.Kind != beacon.EventAnchorNote || ev.Note != 36 {
		t.Fatalf("anchor-channel note-on decoded to %+v, %v", ev, ok)
	}
	// Releases on the anchor channel carry no meaning.
	if _, ok := Decode(midi.NoteOff(9, 36), cfg); ok {
		t.Fatalf("anchor-channel note-offs must be dropped")
	}
}
