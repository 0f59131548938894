// beacon is the live daemon: MIDI controller in, Surge XT OSC out. It wires
// the transport packages around the engine tick loop and runs until
// interrupted.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwbudde/algo-beacon/beacon"
	"github.com/cwbudde/algo-beacon/midiio"
	"github.com/cwbudde/algo-beacon/osc"
	"github.com/cwbudde/algo-beacon/preset"
)

func main() {
	presetPath := flag.String("preset", "", "Preset JSON path (optional)")
	host := flag.String("host", "127.0.0.1", "Surge XT OSC host")
	port := flag.Int("port", 53280, "Surge XT OSC input port")
	listPorts := flag.Bool("list-ports", false, "List MIDI input ports and exit")
	portPattern := flag.String("port-pattern", "", "Case-insensitive substring of the MIDI input port name")
	channel := flag.Int("channel", -1, "MIDI channel to listen on (-1 for omni)")
	anchorChannel := flag.Int("anchor-channel", -1, "MIDI channel whose note-ons re-anchor the series (-1 disables)")
	tick := flag.Duration("tick", 5*time.Millisecond, "Engine tick interval")
	mock := flag.Bool("mock", false, "Print messages to stdout instead of sending OSC")
	mpe := flag.Bool("mpe", false, "Send MPE over a MIDI output instead of OSC")
	mpePort := flag.String("mpe-port", "", "MIDI output port substring for -mpe (empty creates a virtual port)")
	mpeBendRange := flag.Int("mpe-bend-range", midiio.DefaultBendRange, "MPE pitch bend range in semitones")
	broadcastPort := flag.Int("broadcast-port", 0, "Mirror f1 and anchor state to this OSC port (0 disables)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     logLevel,
		AddSource: *debug,
	}))
	slog.SetDefault(logger)

	params := beacon.NewDefaultParams()
	if *presetPath != "" {
		var err error
		params, err = preset.LoadJSON(*presetPath)
		if err != nil {
			logger.Error("preset load failed", "path", *presetPath, "err", err)
			os.Exit(1)
		}
		logger.Info("preset loaded", "path", *presetPath)
	}

	var sink beacon.Sink
	var sender *osc.Sender
	switch {
	case *mock:
		sink = osc.NewMock(os.Stdout)
		logger.Info("mock sink active, no OSC will be sent")
	case *mpe:
		mpeSender, err := midiio.NewMPESender(midiio.MPEConfig{
			PortPattern: *mpePort,
			BendRange:   *mpeBendRange,
		}, logger)
		if err != nil {
			logger.Error("mpe init failed", "err", err)
			os.Exit(1)
		}
		defer mpeSender.Close()
		sink = mpeSender
	default:
		sender = osc.NewSender(*host, *port, logger)
		if *broadcastPort > 0 {
			sender.EnableBroadcast(*host, *broadcastPort)
			logger.Info("state broadcast enabled", "port", *broadcastPort)
		}
		sink = sender
		logger.Info("osc target", "host", *host, "port", *port)
	}

	engine := beacon.NewEngine(params, sink)

	input, err := midiio.NewInput(midiio.Config{
		PortPattern:   *portPattern,
		Channel:       *channel,
		AnchorChannel: *anchorChannel,
	}, engine.Push, logger)
	if err != nil {
		logger.Error("midi init failed", "err", err)
		os.Exit(1)
	}
	defer input.Close()

	if *listPorts {
		names, err := input.Ports()
		if err != nil {
			logger.Error("midi port listing failed", "err", err)
			os.Exit(1)
		}
		if len(names) == 0 {
			fmt.Println("No MIDI input ports available.")
			return
		}
		for i, name := range names {
			fmt.Printf("%2d: %s\n", i, name)
		}
		return
	}

	if err := input.Open(); err != nil {
		logger.Error("midi open failed", "err", err)
		os.Exit(1)
	}

	logger.Info("engine running",
		"f1", params.F1,
		"anchor", beacon.NoteName(params.AnchorNote),
		"policy", params.Policy,
		"midi", input.PortName(),
		"tick", *tick)

	done := make(chan struct{})
	go func() {
		engine.Run(*tick)
		close(done)
	}()

	var stopBroadcast chan struct{}
	if sender != nil && *broadcastPort > 0 {
		stopBroadcast = make(chan struct{})
		go func() {
			ticker := time.NewTicker(100 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					sender.BroadcastState(engine.State())
				case <-stopBroadcast:
					return
				}
			}
		}()
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigs
	logger.Info("shutting down", "signal", sig)

	if stopBroadcast != nil {
		close(stopBroadcast)
	}
	engine.Stop()
	// Run emits the release sweep before returning.
	<-done
	logger.Info("stopped")
}
