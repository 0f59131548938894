package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/cwbudde/algo-beacon/beacon"
	"github.com/cwbudde/algo-beacon/preset"
)

func main() {
	presetPath := flag.String("preset", "", "Preset JSON path (optional)")
	f1 := flag.Float64("f1", 0, "Fundamental frequency in Hz (0 keeps preset/default)")
	anchor := flag.Int("anchor", -1, "Anchor MIDI note (-1 keeps preset/default)")
	tolerance := flag.Float64("tolerance", 0, "Match tolerance in cents (0 keeps preset/default)")
	policy := flag.String("policy", "", "Mapping policy: tolerance or prototype (empty keeps preset/default)")
	showAll := flag.Bool("all", false, "Also list every harmonic candidate per key")
	flag.Parse()

	params, err := loadParams(*presetPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "beacon-map error: %v\n", err)
		os.Exit(1)
	}
	if *f1 > 0 {
		params.F1 = *f1
	}
	if *anchor >= 0 {
		params.AnchorNote = *anchor
	}
	if *tolerance > 0 {
		params.ToleranceCents = *tolerance
	}
	switch *policy {
	case "":
	case "tolerance":
		params.Policy = beacon.PolicyTolerance
	case "prototype":
		params.Policy = beacon.PolicyPrototype
	default:
		fmt.Fprintf(os.Stderr, "beacon-map error: unknown policy %q\n", *policy)
		os.Exit(1)
	}

	var mapper beacon.Mapper
	switch params.Policy {
	case beacon.PolicyPrototype:
		mapper = beacon.NewPrototypeMapper(params)
	default:
		mapper = beacon.NewToleranceMapper(params)
	}
	borrower := beacon.NewOctaveBorrower(mapper)

	fmt.Printf("f1=%.3f Hz  anchor=%s (%d)  tolerance=%.1f cents  policy=%s\n\n",
		params.F1, beacon.NoteName(params.AnchorNote), params.AnchorNote,
		params.ToleranceCents, params.Policy)
	fmt.Printf("%-5s %-5s %-9s %-9s %-12s %-10s\n",
		"note", "name", "status", "harmonic", "freq (Hz)", "dev (cents)")

	direct, borrowed, silent := 0, 0, 0
	lo, hi := mapper.Range()
	for note := lo; note <= hi; note++ {
		if match, ok := mapper.Match(note); ok {
			direct++
			fmt.Printf("%-5d %-5s %-9s %-9d %-12.3f %+-10.1f\n",
				note, beacon.NoteName(note), "direct", match.Harmonic,
				match.Frequency, match.DeviationCents)
			if *showAll {
				for _, c := range mapper.Matches(note) {
					if c.Harmonic == match.Harmonic {
						continue
					}
					fmt.Printf("%-5s %-5s %-9s %-9d %-12.3f %+-10.1f\n",
						"", "", "  also", c.Harmonic, c.Frequency, c.DeviationCents)
				}
			}
			continue
		}
		if b, ok := borrower.Borrow(note); ok {
			borrowed++
			fmt.Printf("%-5d %-5s %-9s %-9d %-12.3f %-10s\n",
				note, beacon.NoteName(note), "borrowed", b.Harmonic, b.Frequency,
				fmt.Sprintf("from %s", beacon.NoteName(b.BorrowedNote)))
			continue
		}
		silent++
		fmt.Printf("%-5d %-5s %-9s\n", note, beacon.NoteName(note), "silent")
	}

	total := hi - lo + 1
	fmt.Printf("\n%d keys: %d direct, %d borrowed, %d silent\n", total, direct, borrowed, silent)
}

func loadParams(path string) (*beacon.Params, error) {
	if path == "" {
		return beacon.NewDefaultParams(), nil
	}
	return preset.LoadJSON(path)
}
