package osc

import (
	"bytes"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/cwbudde/algo-beacon/beacon"
)

// udpSink opens a local UDP listener and returns its port plus a receive
// helper, so the sender can be exercised without a running synthesizer.
func udpSink(t *testing.T) (int, func() string) {
	t.Helper()
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	recv := func() string {
		buf := make([]byte, 2048)
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			t.Fatalf("receive: %v", err)
		}
		return string(buf[:n])
	}
	return conn.LocalAddr().(*net.UDPAddr).Port, recv
}

func TestSenderEmitsFrequencyNotes(t *testing.T) {
	port, recv := udpSink(t)
	s := NewSender("127.0.0.1", port, nil)

	s.NoteOn(3, 162.0, 1.0)
	if got := recv(); !strings.HasPrefix(got, addrNoteOn+"\x00") {
		t.Fatalf("note-on packet does not start with %s: %q", addrNoteOn, got)
	}

	s.NoteOff(3, 162.0, 0)
	if got := recv(); !strings.HasPrefix(got, addrNoteOff+"\x00") {
		t.Fatalf("note-off packet does not start with %s: %q", addrNoteOff, got)
	}

	s.PitchOffset(3, 0.5)
	if got := recv(); !strings.HasPrefix(got, addrPitch+"\x00") {
		t.Fatalf("pitch packet does not start with %s: %q", addrPitch, got)
	}

	s.AllNotesOff()
	if got := recv(); !strings.HasPrefix(got, addrAllNotesOff+"\x00") {
		t.Fatalf("all-notes-off packet does not start with %s: %q", addrAllNotesOff, got)
	}
}

func TestSenderImplementsSink(t *testing.T) {
	var _ beacon.Sink = (*Sender)(nil)
	var _ beacon.Sink = (*Mock)(nil)
}

func TestMockPrintsReadableLines(t *testing.T) {
	var buf bytes.Buffer
	m := NewMock(&buf)

	m.NoteOn(0, 54.0, 1.0)
	m.PitchOffset(0, -0.25)
	m.NoteOff(0, 54.0, 0)
	m.AllNotesOff()

	out := buf.String()
	for _, want := range []string{
		"/fnote 54.00 127 0",
		"/ne/pitch 0 -0.250",
		"/fnote/rel 54.00 0 0",
		"/allnotesoff",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("mock output missing %q:\n%s", want, out)
		}
	}
}
