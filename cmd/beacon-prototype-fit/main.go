// beacon-prototype-fit searches for the 12-entry chromatic prototype table:
// for each interval class the harmonic number whose octave-reduced pitch
// lands closest to the 12-TET step, with a tunable preference for low
// harmonics. The exhaustive per-interval optimum exists in closed form; the
// mayfly search covers the joint objective where a shared low-n budget
// couples the choices.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/cwbudde/mayfly"

	"github.com/cwbudde/algo-beacon/beacon"
)

func main() {
	maxHarmonic := flag.Int("max-harmonic", 128, "Highest harmonic number to consider")
	lowNWeight := flag.Float64("low-n-weight", 0.5, "Cents penalty per octave of harmonic height")
	seed := flag.Int64("seed", 1, "Random seed")
	variant := flag.String("mayfly-variant", "desma", "Mayfly variant: ma|desma|olce|eobbma|gsasma|mpma|aoblmoa")
	pop := flag.Int("mayfly-pop", 20, "Male and female population size")
	iters := flag.Int("mayfly-iters", 200, "Mayfly iterations")
	output := flag.String("output", "", "Optional preset JSON path for the fitted table")
	flag.Parse()

	if *maxHarmonic < 12 {
		die("max-harmonic must be >= 12")
	}

	exhaustive := exhaustiveTable(*maxHarmonic, *lowNWeight)
	fmt.Println("Exhaustive per-interval optimum:")
	printTable(exhaustive, *lowNWeight)

	cfg, err := newMayflyConfig(strings.ToLower(*variant), *pop, 12, *iters)
	if err != nil {
		die("invalid mayfly variant: %v", err)
	}
	cfg.Rand = rand.New(rand.NewSource(*seed))

	// Best-so-far is tracked inside the objective; the optimizer result is
	// only consulted for errors.
	fitted := exhaustive
	fittedCost := math.Inf(1)
	cfg.ObjectiveFunc = func(pos []float64) float64 {
		table := fromNormalized(pos, *maxHarmonic)
		cost := tableCost(table, *lowNWeight)
		if cost < fittedCost {
			fittedCost = cost
			fitted = table
		}
		return cost
	}

	if _, err := runMayfly(cfg); err != nil {
		die("mayfly: %v", err)
	}

	fmt.Println("\nMayfly joint optimum:")
	printTable(fitted, *lowNWeight)

	best := fitted
	if tableCost(exhaustive, *lowNWeight) <= tableCost(fitted, *lowNWeight) {
		best = exhaustive
	}
	fmt.Printf("\nBest table: %v  (cost %.2f)\n", best, tableCost(best, *lowNWeight))

	if *output != "" {
		if err := writePresetFragment(*output, best); err != nil {
			die("write output: %v", err)
		}
		fmt.Printf("Wrote %s\n", *output)
	}
}

// intervalCost is the cyclic cents distance between a harmonic's
// octave-reduced pitch and the 12-TET interval, plus the low-n penalty.
func intervalCost(n, interval int, lowNWeight float64) float64 {
	cents := math.Mod(beacon.HarmonicCents(n), 1200.0)
	target := float64(interval) * 100.0
	diff := math.Abs(cents - target)
	if diff > 600.0 {
		diff = 1200.0 - diff
	}
	return diff + lowNWeight*math.Log2(float64(n))
}

func tableCost(table [12]int, lowNWeight float64) float64 {
	total := 0.0
	for interval, n := range table {
		total += intervalCost(n, interval, lowNWeight)
	}
	return total
}

// exhaustiveTable picks the best harmonic per interval independently.
func exhaustiveTable(maxHarmonic int, lowNWeight float64) [12]int {
	var table [12]int
	for interval := 0; interval < 12; interval++ {
		bestN, bestCost := 1, math.Inf(1)
		for n := 1; n <= maxHarmonic; n++ {
			if cost := intervalCost(n, interval, lowNWeight); cost < bestCost {
				bestCost = cost
				bestN = n
			}
		}
		table[interval] = bestN
	}
	return table
}

func fromNormalized(pos []float64, maxHarmonic int) [12]int {
	var table [12]int
	for i := 0; i < 12 && i < len(pos); i++ {
		v := pos[i]
		if v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		table[i] = 1 + int(math.Round(v*float64(maxHarmonic-1)))
	}
	for i := range table {
		if table[i] < 1 {
			table[i] = 1
		}
	}
	return table
}

func printTable(table [12]int, lowNWeight float64) {
	for interval, n := range table {
		reduced := math.Mod(beacon.HarmonicCents(n), 1200.0)
		target := float64(interval) * 100.0
		diff := reduced - target
		if diff > 600.0 {
			diff -= 1200.0
		}
		if diff < -600.0 {
			diff += 1200.0
		}
		fmt.Printf("  interval %2d: n=%3d  reduced=%7.2f cents  dev=%+6.2f cents  cost=%.2f\n",
			interval, n, reduced, diff, intervalCost(n, interval, lowNWeight))
	}
}

func newMayflyConfig(variant string, pop, dims, iters int) (*mayfly.Config, error) {
	var cfg *mayfly.Config
	switch variant {
	case "ma":
		cfg = mayfly.NewDefaultConfig()
	case "desma":
		cfg = mayfly.NewDESMAConfig()
	case "olce":
		cfg = mayfly.NewOLCEConfig()
	case "eobbma":
		cfg = mayfly.NewEOBBMAConfig()
	case "gsasma":
		cfg = mayfly.NewGSASMAConfig()
	case "mpma":
		cfg = mayfly.NewMPMAConfig()
	case "aoblmoa":
		cfg = mayfly.NewAOBLMOAConfig()
	default:
		return nil, fmt.Errorf("unsupported variant %q", variant)
	}
	cfg.ProblemSize = dims
	cfg.LowerBound = 0.0
	cfg.UpperBound = 1.0
	cfg.MaxIterations = iters
	cfg.NPop = pop
	cfg.NPopF = pop
	// Mayfly's implementation assumes NC/2 parent pairs are available from
	// both male and female populations.
	cfg.NC = 2 * pop
	cfg.NM = maxInt(1, int(math.Round(0.05*float64(pop))))
	return cfg, nil
}

func runMayfly(cfg *mayfly.Config) (_ *mayfly.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mayfly panic: %v", r)
		}
	}()
	return mayfly.Optimize(cfg)
}

func writePresetFragment(path string, table [12]int) error {
	fragment := struct {
		Policy         string `json:"policy"`
		PrototypeTable []int  `json:"prototype_table"`
	}{Policy: "prototype", PrototypeTable: table[:]}

	b, err := json.MarshalIndent(fragment, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "beacon-prototype-fit error: "+format+"\n", args...)
	os.Exit(1)
}
