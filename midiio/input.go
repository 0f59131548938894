// Package midiio adapts MIDI controllers to engine input events. It owns the
// rtmidi driver, port selection and hot-plug teardown; all musical decisions
// stay in the beacon package.
package midiio

import (
	"fmt"
	"log/slog"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/cwbudde/algo-beacon/beacon"
)

// CCMap routes control-change numbers to engine controls.
type CCMap map[uint8]beacon.Control

// DefaultCCMap returns the standard controller layout. CC 1 (mod wheel)
// drives the fundamental; the sound-controller block (71..79) carries the
// rest so the mapping survives generic keyboard presets.
func DefaultCCMap() CCMap {
	return CCMap{
		1:   beacon.ControlFundamental,
		71:  beacon.ControlTolerance,
		72:  beacon.ControlChorusRate,
		73:  beacon.ControlChorusMode,
		74:  beacon.ControlMultiHarmonic,
		75:  beacon.ControlSecondaryMix,
		76:  beacon.ControlAftertouchEnable,
		77:  beacon.ControlAftertouchThreshold,
		78:  beacon.ControlAnchorMode,
		123: beacon.ControlPanic,
	}
}

// Config selects the input port and the event routing.
type Config struct {
	// PortPattern is a case-insensitive substring of the port name. Empty
	// picks the first available port.
	PortPattern string
	// Channel filters note events to one MIDI channel; -1 accepts all.
	Channel int
	// AnchorChannel re-anchors the series on note-ons from this channel
	// instead of sounding them (secondary controller); -1 disables.
	AnchorChannel int
	// CC is the control-change routing table; nil uses DefaultCCMap.
	CC CCMap
}

// Input is an open MIDI input feeding decoded events into a push callback.
type Input struct {
	cfg  Config
	drv  *rtmididrv.Driver
	port drivers.In
	stop func()
	push func(beacon.InputEvent)
	log  *slog.Logger
}

// NewInput initializes the MIDI driver. No port is opened yet.
func NewInput(cfg Config, push func(beacon.InputEvent), log *slog.Logger) (*Input, error) {
	if push == nil {
		return nil, fmt.Errorf("nil event push callback")
	}
	if cfg.CC == nil {
		cfg.CC = DefaultCCMap()
	}
	if log == nil {
		log = slog.Default()
	}
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("init midi driver: %w", err)
	}
	return &Input{cfg: cfg, drv: drv, push: push, log: log}, nil
}

// Ports lists the names of all available input ports.
func (in *Input) Ports() ([]string, error) {
	ins, err := in.drv.Ins()
	if err != nil {
		return nil, fmt.Errorf("list midi inputs: %w", err)
	}
	names := make([]string, 0, len(ins))
	for _, p := range ins {
		names = append(names, p.String())
	}
	return names, nil
}

// Open connects to the configured port and starts listening. Decoded events
// are pushed from the driver's listener goroutine; the engine queue makes
// that safe.
func (in *Input) Open() error {
	ins, err := in.drv.Ins()
	if err != nil {
		return fmt.Errorf("list midi inputs: %w", err)
	}
	if len(ins) == 0 {
		return fmt.Errorf("no midi inputs available")
	}

	var port drivers.In
	if in.cfg.PortPattern == "" {
		port = ins[0]
	} else {
		pattern := strings.ToLower(in.cfg.PortPattern)
		for _, p := range ins {
			if strings.Contains(strings.ToLower(p.String()), pattern) {
				port = p
				break
			}
		}
		if port == nil {
			return fmt.Errorf("no midi input matches %q", in.cfg.PortPattern)
		}
	}

	if err := port.Open(); err != nil {
		return fmt.Errorf("open midi port %q: %w", port.String(), err)
	}

	stop, err := midi.ListenTo(port, func(msg midi.Message, timestampms int32) {
		if ev, ok := Decode(msg, in.cfg); ok {
			in.push(ev)
		}
	}, midi.HandleError(func(listenErr error) {
		in.log.Warn("midi listener error", "port", port.String(), "err", listenErr)
	}))
	if err != nil {
		_ = port.Close()
		return fmt.Errorf("listen on %q: %w", port.String(), err)
	}

	in.port = port
	in.stop = stop
	in.log.Info("midi input connected", "port", port.String())
	return nil
}

// PortName returns the name of the open port, or empty when closed.
func (in *Input) PortName() string {
	if in.port == nil {
		return ""
	}
	return in.port.String()
}

// Close stops the listener and releases the driver.
func (in *Input) Close() error {
	if in.stop != nil {
		in.stop()
		in.stop = nil
	}
	if in.port != nil {
		_ = in.port.Close()
		in.port = nil
	}
	return in.drv.Close()
}

// Decode translates one MIDI message into an engine event according to the
// routing config. ok=false means the message is filtered or unmapped.
func Decode(msg midi.Message, cfg Config) (beacon.InputEvent, bool) {
	var ch, key, vel, cc, val, pressure uint8

	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		if cfg.AnchorChannel >= 0 && int(ch) == cfg.AnchorChannel {
			return beacon.InputEvent{Kind: beacon.EventAnchorNote, Note: int(key)}, true
		}
		if !channelAccepted(cfg, ch) {
			return beacon.InputEvent{}, false
		}
		return beacon.InputEvent{Kind: beacon.EventNoteOn, Note: int(key), Velocity: int(vel)}, true

	case msg.GetNoteEnd(&ch, &key):
		if cfg.AnchorChannel >= 0 && int(ch) == cfg.AnchorChannel {
			return beacon.InputEvent{}, false
		}
		if !channelAccepted(cfg, ch) {
			return beacon.InputEvent{}, false
		}
		return beacon.InputEvent{Kind: beacon.EventNoteOff, Note: int(key)}, true

	case msg.GetControlChange(&ch, &cc, &val):
		if !channelAccepted(cfg, ch) {
			return beacon.InputEvent{}, false
		}
		control, ok := cfg.CC[cc]
		if !ok {
			return beacon.InputEvent{}, false
		}
		return beacon.InputEvent{
			Kind:    beacon.EventControl,
			Control: control,
			Value:   float64(val) / 127.0,
		}, true

	case msg.GetAfterTouch(&ch, &pressure):
		if !channelAccepted(cfg, ch) {
			return beacon.InputEvent{}, false
		}
		return beacon.InputEvent{Kind: beacon.EventAftertouch, Velocity: int(pressure)}, true
	}

	return beacon.InputEvent{}, false
}

func channelAccepted(cfg Config, ch uint8) bool {
	return cfg.Channel < 0 || int(ch) == cfg.Channel
}
