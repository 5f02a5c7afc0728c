// Public domain.

package relcal

import (
	"fmt"
	"io"
	"os"

	"github.com/soniakeys/unit"
	"gopkg.in/yaml.v3"

	"relcal/calib"
)

// fileConfig is the YAML surface of calib.Config.  Pointer fields
// distinguish keys absent from the file from keys set to a zero value.
// Angles are given in arc seconds.
type fileConfig struct {
	MaxSeparation     *float64 `yaml:"max_separation"`
	ClipSigma         *float64 `yaml:"clip_sigma"`
	MaxClipIterations *int     `yaml:"max_clip_iterations"`
	MinMatches        *int     `yaml:"min_matches"`
	FitScalePosition  *bool    `yaml:"fit_scale_position"`
	TieMargin         *float64 `yaml:"tie_margin"`
	MinPeak           *float64 `yaml:"min_peak"`
	MaxRadius         *float64 `yaml:"max_radius"`
	FluxFloor         *float64 `yaml:"flux_floor"`
}

func (fc *fileConfig) apply(cfg *calib.Config) {
	if fc.MaxSeparation != nil {
		cfg.MaxSeparation = unit.AngleFromSec(*fc.MaxSeparation)
	}
	if fc.ClipSigma != nil {
		cfg.ClipSigma = *fc.ClipSigma
	}
	if fc.MaxClipIterations != nil {
		cfg.MaxClipIterations = *fc.MaxClipIterations
	}
	if fc.MinMatches != nil {
		cfg.MinMatches = *fc.MinMatches
	}
	if fc.FitScalePosition != nil {
		cfg.FitScalePosition = *fc.FitScalePosition
	}
	if fc.TieMargin != nil {
		cfg.TieMargin = *fc.TieMargin
	}
	if fc.MinPeak != nil {
		cfg.MinPeak = *fc.MinPeak
	}
	if fc.MaxRadius != nil {
		cfg.MaxRadius = unit.AngleFromSec(*fc.MaxRadius)
	}
	if fc.FluxFloor != nil {
		cfg.FluxFloor = *fc.FluxFloor
	}
}

// LoadConfig reads a YAML config file and returns the defaults overlaid
// with whatever keys the file sets.  An empty file yields the defaults.
// Unknown keys are an error; a misspelled key silently ignored would be
// worse than a complaint.
func LoadConfig(path string) (calib.Config, error) {
	cfg := calib.DefaultConfig()
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	d := yaml.NewDecoder(f)
	d.KnownFields(true)
	var fc fileConfig
	switch err = d.Decode(&fc); err {
	case nil:
		fc.apply(&cfg)
	case io.EOF:
		// empty file, defaults stand
	default:
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	if err = cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}
