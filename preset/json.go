package preset

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/cwbudde/algo-beacon/beacon"
)

// File is the JSON schema for engine presets. Every field is optional; absent
// fields keep their defaults so presets can be minimal overrides.
type File struct {
	F1                  *float64 `json:"f1"`
	F1Min               *float64 `json:"f1_min"`
	F1Max               *float64 `json:"f1_max"`
	SmoothingRate       *float64 `json:"smoothing_rate"`
	AnchorNote          *int     `json:"anchor_note"`
	LowestNote          *int     `json:"lowest_note"`
	HighestNote         *int     `json:"highest_note"`
	ToleranceCents      *float64 `json:"tolerance_cents"`
	MaxHarmonic         *int     `json:"max_harmonic"`
	Policy              string   `json:"policy"`
	PrototypeTable      []int    `json:"prototype_table"`
	MaxVoices           *int     `json:"max_voices"`
	PlayableLayer       *bool    `json:"playable_layer"`
	SecondaryMix        *float64 `json:"secondary_mix"`
	ChorusRate          *float64 `json:"chorus_rate"`
	ChorusMode          string   `json:"chorus_mode"`
	MultiHarmonic       *bool    `json:"multi_harmonic"`
	AftertouchEnabled   *bool    `json:"aftertouch_enabled"`
	AftertouchThreshold *int     `json:"aftertouch_threshold"`
	AnchorMode          string   `json:"anchor_mode"`
}

// LoadJSON loads a preset JSON file and applies it on top of default params.
func LoadJSON(path string) (*beacon.Params, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, err
	}

	p := beacon.NewDefaultParams()
	if err := ApplyFile(p, &f); err != nil {
		return nil, err
	}
	return p, nil
}

// ApplyFile applies a parsed preset file onto an existing params object.
func ApplyFile(dst *beacon.Params, f *File) error {
	if dst == nil {
		return fmt.Errorf("nil destination params")
	}
	if f == nil {
		return nil
	}

	if f.F1Min != nil {
		if *f.F1Min <= 0 {
			return fmt.Errorf("f1_min must be > 0")
		}
		dst.F1Min = *f.F1Min
	}
	if f.F1Max != nil {
		if *f.F1Max <= 0 {
			return fmt.Errorf("f1_max must be > 0")
		}
		dst.F1Max = *f.F1Max
	}
	if dst.F1Max <= dst.F1Min {
		return fmt.Errorf("f1_max must be > f1_min")
	}
	if f.F1 != nil {
		if *f.F1 < dst.F1Min || *f.F1 > dst.F1Max {
			return fmt.Errorf("f1 must be in [%g, %g]", dst.F1Min, dst.F1Max)
		}
		dst.F1 = *f.F1
	}
	if f.SmoothingRate != nil {
		if *f.SmoothingRate <= 0 || *f.SmoothingRate > 1 {
			return fmt.Errorf("smoothing_rate must be in (0, 1]")
		}
		dst.SmoothingRate = *f.SmoothingRate
	}
	if f.AnchorNote != nil {
		if *f.AnchorNote < 0 || *f.AnchorNote > 127 {
			return fmt.Errorf("anchor_note must be in 0..127")
		}
		dst.AnchorNote = *f.AnchorNote
	}
	if f.LowestNote != nil {
		dst.LowestNote = *f.LowestNote
	}
	if f.HighestNote != nil {
		dst.HighestNote = *f.HighestNote
	}
	if dst.LowestNote < 0 || dst.HighestNote > 127 || dst.LowestNote > dst.HighestNote {
		return fmt.Errorf("key range %d..%d is invalid", dst.LowestNote, dst.HighestNote)
	}
	if f.ToleranceCents != nil {
		if *f.ToleranceCents <= 0 || *f.ToleranceCents > 100 {
			return fmt.Errorf("tolerance_cents must be in (0, 100]")
		}
		dst.ToleranceCents = *f.ToleranceCents
	}
	if f.MaxHarmonic != nil {
		if *f.MaxHarmonic < 1 {
			return fmt.Errorf("max_harmonic must be >= 1")
		}
		dst.MaxHarmonic = *f.MaxHarmonic
	}
	if f.Policy != "" {
		switch strings.ToLower(strings.TrimSpace(f.Policy)) {
		case "tolerance":
			dst.Policy = beacon.PolicyTolerance
		case "prototype":
			dst.Policy = beacon.PolicyPrototype
		default:
			return fmt.Errorf("unknown policy %q (expected tolerance or prototype)", f.Policy)
		}
	}
	if f.PrototypeTable != nil {
		if len(f.PrototypeTable) != 12 {
			return fmt.Errorf("prototype_table must have 12 entries, got %d", len(f.PrototypeTable))
		}
		for i, n := range f.PrototypeTable {
			if n < 1 {
				return fmt.Errorf("prototype_table[%d] must be >= 1", i)
			}
			dst.PrototypeTable[i] = n
		}
	}
	if f.MaxVoices != nil {
		if *f.MaxVoices < 1 {
			return fmt.Errorf("max_voices must be >= 1")
		}
		dst.MaxVoices = *f.MaxVoices
	}
	if f.PlayableLayer != nil {
		dst.PlayableLayer = *f.PlayableLayer
	}
	if f.SecondaryMix != nil {
		if *f.SecondaryMix < 0 || *f.SecondaryMix > 1 {
			return fmt.Errorf("secondary_mix must be in [0, 1]")
		}
		dst.SecondaryMix = *f.SecondaryMix
	}
	if f.ChorusRate != nil {
		if *f.ChorusRate <= 0 {
			return fmt.Errorf("chorus_rate must be > 0")
		}
		dst.ChorusRate = *f.ChorusRate
	}
	if f.ChorusMode != "" {
		switch strings.ToLower(strings.TrimSpace(f.ChorusMode)) {
		case "smooth":
			dst.ChorusMode = beacon.ChorusSmooth
		case "stepped":
			dst.ChorusMode = beacon.ChorusStepped
		default:
			return fmt.Errorf("unknown chorus_mode %q (expected smooth or stepped)", f.ChorusMode)
		}
	}
	if f.MultiHarmonic != nil {
		dst.MultiHarmonic = *f.MultiHarmonic
	}
	if f.AftertouchEnabled != nil {
		dst.AftertouchEnabled = *f.AftertouchEnabled
	}
	if f.AftertouchThreshold != nil {
		if *f.AftertouchThreshold < 0 || *f.AftertouchThreshold > 127 {
			return fmt.Errorf("aftertouch_threshold must be in 0..127")
		}
		dst.AftertouchThreshold = *f.AftertouchThreshold
	}
	if f.AnchorMode != "" {
		switch strings.ToLower(strings.TrimSpace(f.AnchorMode)) {
		case "fixed":
			dst.AnchorMode = beacon.AnchorFixed
		case "follow":
			dst.AnchorMode = beacon.AnchorFollowKey
		default:
			return fmt.Errorf("unknown anchor_mode %q (expected fixed or follow)", f.AnchorMode)
		}
	}
	return nil
}
