package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/cwbudde/algo-beacon/analysis"
	"github.com/cwbudde/algo-beacon/audition"
	"github.com/cwbudde/algo-beacon/beacon"
	"github.com/cwbudde/algo-beacon/internal/wavio"
	"github.com/cwbudde/algo-beacon/preset"
)

func main() {
	cfg := audition.DefaultConfig()

	presetPath := flag.String("preset", "", "Preset JSON path (optional)")
	output := flag.String("output", "out/audition.wav", "Output WAV path")
	notesSpec := flag.String("notes", "", "Keys to render: 'lo-hi' range or comma list (default: full mapper range)")
	verify := flag.Bool("verify", false, "Read the render back and verify spectral peaks against the mapping")
	verifyTol := flag.Float64("verify-tolerance", 30.0, "Peak match tolerance in cents for -verify")
	flag.IntVar(&cfg.SampleRate, "sample-rate", cfg.SampleRate, "Render sample rate")
	flag.Float64Var(&cfg.NoteDurationS, "note-duration", cfg.NoteDurationS, "Seconds per key")
	flag.Float64Var(&cfg.GapS, "gap", cfg.GapS, "Silence between keys in seconds")
	flag.Float64Var(&cfg.DecayS, "decay", cfg.DecayS, "Amplitude decay time constant in seconds")
	flag.Float64Var(&cfg.NormalizePeak, "normalize", cfg.NormalizePeak, "Peak normalization target")
	flag.Parse()

	params := beacon.NewDefaultParams()
	if *presetPath != "" {
		var err error
		params, err = preset.LoadJSON(*presetPath)
		if err != nil {
			die("preset: %v", err)
		}
	}

	notes, err := parseNotes(*notesSpec, params)
	if err != nil {
		die("invalid -notes: %v", err)
	}

	res, err := audition.RenderKeys(cfg, params, notes)
	if err != nil {
		die("render: %v", err)
	}
	if err := wavio.WriteStereoWAVLR(*output, res.Left, res.Right, cfg.SampleRate); err != nil {
		die("wav write: %v", err)
	}

	direct, borrowed, silent := 0, 0, 0
	for _, seg := range res.Segments {
		switch {
		case seg.Silent:
			silent++
		case seg.Borrowed:
			borrowed++
		default:
			direct++
		}
	}
	fmt.Printf("Wrote %s\n", *output)
	fmt.Printf("Keys: %d direct, %d borrowed, %d silent  (%.1fs at %d Hz)\n",
		direct, borrowed, silent,
		float64(len(res.Left))/float64(cfg.SampleRate), cfg.SampleRate)

	if *verify {
		if err := verifyRender(*output, cfg, res.Segments, *verifyTol); err != nil {
			die("verify: %v", err)
		}
	}
}

// verifyRender reads the written file back and checks that each sounding
// key's window contains a spectral peak at the promised beacon frequency.
func verifyRender(path string, cfg audition.Config, segments []audition.Segment, tolCents float64) error {
	samples, rate, err := wavio.ReadWAVMono(path)
	if err != nil {
		return err
	}
	samples, err = wavio.ResampleIfNeeded(samples, rate, cfg.SampleRate)
	if err != nil {
		return err
	}

	noteSamples := int(math.Round(cfg.NoteDurationS * float64(cfg.SampleRate)))
	gapSamples := int(math.Round(cfg.GapS * float64(cfg.SampleRate)))
	fftSize := 1
	for fftSize < noteSamples && fftSize < 1<<16 {
		fftSize <<= 1
	}

	failures := 0
	checked := 0
	for i, seg := range segments {
		if seg.Silent {
			continue
		}
		start := i * (noteSamples + gapSamples)
		end := start + noteSamples
		if end > len(samples) {
			break
		}
		spec, err := analysis.MagnitudeSpectrum(samples[start:end], cfg.SampleRate, fftSize)
		if err != nil {
			return err
		}
		checked++
		peaks := spec.Peaks(8, 0.05)
		if !analysis.ContainsFrequency(peaks, seg.BeaconFreq, tolCents) {
			failures++
			fmt.Printf("FAIL %s: no peak within %.0f cents of %.3f Hz\n",
				beacon.NoteName(seg.Note), tolCents, seg.BeaconFreq)
		}
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d keys failed spectral verification", failures, checked)
	}
	fmt.Printf("Verified %d keys: all peaks within %.0f cents\n", checked, tolCents)
	return nil
}

func parseNotes(spec string, params *beacon.Params) ([]int, error) {
	if spec == "" {
		notes := make([]int, 0, params.HighestNote-params.LowestNote+1)
		for n := params.LowestNote; n <= params.HighestNote; n++ {
			notes = append(notes, n)
		}
		return notes, nil
	}
	if lo, hi, ok := strings.Cut(spec, "-"); ok {
		a, errA := strconv.Atoi(strings.TrimSpace(lo))
		b, errB := strconv.Atoi(strings.TrimSpace(hi))
		if errA != nil || errB != nil || a > b {
			return nil, fmt.Errorf("bad range %q", spec)
		}
		notes := make([]int, 0, b-a+1)
		for n := a; n <= b; n++ {
			notes = append(notes, n)
		}
		return notes, nil
	}
	var notes []int
	for _, part := range strings.Split(spec, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("bad note %q", part)
		}
		notes = append(notes, n)
	}
	return notes, nil
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "beacon-audition error: "+format+"\n", args...)
	os.Exit(1)
}
