// Public domain.

// Package sim generates matched pairs of synthetic source catalogs with
// a known normalization, for testing and for exercising the pipeline on
// data of any size.
package sim

import (
	"fmt"
	"math"
	"time"

	"github.com/soniakeys/unit"
	xrand "golang.org/x/exp/rand"

	"relcal/catalog"
)

// Config sets the field geometry and the normalization baked into a
// generated catalog pair.  The reference catalog is drawn uniformly over
// a Field by Field box; the target catalog repeats it with the offsets,
// scales, and noise applied.
type Config struct {
	N          int        // reference detections
	Field      unit.Angle // box side
	Off1       unit.Angle // target position offset, first coordinate
	Off2       unit.Angle // second coordinate
	FluxScale  float64    // target flux = FluxScale*ref + FluxZero
	FluxZero   float64
	SizeRatio  float64    // target FWHM over reference FWHM
	Jitter     unit.Angle // 1-sigma position noise per coordinate
	FluxJitter float64    // 1-sigma relative flux noise
	Transients int        // target detections with no counterpart
	Dropouts   int        // reference detections omitted from the target
	Epoch      time.Time  // reference epoch
	Baseline   time.Duration
}

// DefaultConfig returns a 40 detection square degree field with small
// offsets and mild noise.
func DefaultConfig() Config {
	return Config{
		N:          40,
		Field:      unit.AngleFromDeg(1),
		Off1:       unit.AngleFromSec(1.5),
		Off2:       unit.AngleFromSec(-.8),
		FluxScale:  1.04,
		SizeRatio:  1,
		Jitter:     unit.AngleFromSec(.05),
		FluxJitter: .02,
		Transients: 2,
		Dropouts:   2,
		Epoch:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Baseline:   24 * time.Hour,
	}
}

// New generates a target and reference catalog pair.  The same seed and
// config always generate the same pair.
func New(cfg Config, seed uint64) (targ, ref *catalog.Catalog, err error) {
	switch {
	case cfg.N < 1:
		return nil, nil, fmt.Errorf("sim.New: n must be positive")
	case !(cfg.Field > 0):
		return nil, nil, fmt.Errorf("sim.New: field must be positive")
	case !(cfg.FluxScale > 0):
		return nil, nil, fmt.Errorf("sim.New: flux scale must be positive")
	case !(cfg.SizeRatio > 0):
		return nil, nil, fmt.Errorf("sim.New: size ratio must be positive")
	case cfg.Jitter < 0 || cfg.FluxJitter < 0:
		return nil, nil, fmt.Errorf("sim.New: jitter must not be negative")
	case cfg.Transients < 0 || cfg.Dropouts < 0:
		return nil, nil, fmt.Errorf("sim.New: transients and dropouts must not be negative")
	case cfg.Dropouts >= cfg.N:
		return nil, nil, fmt.Errorf("sim.New: dropouts must leave at least one detection")
	}
	rnd := xrand.New(&xrand.PCGSource{})
	rnd.Seed(seed)

	rdet := make([]catalog.Detection, cfg.N)
	for i := range rdet {
		fwhm1 := unit.AngleFromSec(2 + 4*rnd.Float64())
		fwhm2 := unit.Angle(fwhm1.Rad() * (.9 + .2*rnd.Float64()))
		peak := .3 * math.Pow(100, rnd.Float64())
		rdet[i] = catalog.Detection{
			ID:      fmt.Sprintf("R%04d", i),
			Cen1:    unit.Angle(cfg.Field.Rad() * rnd.Float64()),
			Cen2:    unit.Angle(cfg.Field.Rad() * rnd.Float64()),
			CenErr:  cfg.Jitter,
			Peak:    peak,
			PeakErr: cfg.FluxJitter * peak,
			FWHM1:   fwhm1,
			FWHM2:   fwhm2,
		}
	}

	drop := make(map[int]bool, cfg.Dropouts)
	for _, i := range rnd.Perm(cfg.N)[:cfg.Dropouts] {
		drop[i] = true
	}

	tdet := make([]catalog.Detection, 0, cfg.N-cfg.Dropouts+cfg.Transients)
	for i, r := range rdet {
		if drop[i] {
			continue
		}
		peak := cfg.FluxScale*r.Peak + cfg.FluxZero
		if cfg.FluxJitter > 0 {
			peak += cfg.FluxJitter * peak * rnd.NormFloat64()
		}
		tdet = append(tdet, catalog.Detection{
			ID:      fmt.Sprintf("T%04d", len(tdet)),
			Cen1:    r.Cen1 + cfg.Off1 + jitter(rnd, cfg.Jitter),
			Cen2:    r.Cen2 + cfg.Off2 + jitter(rnd, cfg.Jitter),
			CenErr:  cfg.Jitter,
			Peak:    peak,
			PeakErr: cfg.FluxJitter * math.Abs(peak),
			FWHM1:   unit.Angle(r.FWHM1.Rad() * cfg.SizeRatio),
			FWHM2:   unit.Angle(r.FWHM2.Rad() * cfg.SizeRatio),
		})
	}
	for i := 0; i < cfg.Transients; i++ {
		fwhm1 := unit.AngleFromSec(2 + 4*rnd.Float64())
		peak := .3 * math.Pow(100, rnd.Float64())
		tdet = append(tdet, catalog.Detection{
			ID:      fmt.Sprintf("T%04d", len(tdet)),
			Cen1:    unit.Angle(cfg.Field.Rad() * rnd.Float64()),
			Cen2:    unit.Angle(cfg.Field.Rad() * rnd.Float64()),
			CenErr:  cfg.Jitter,
			Peak:    peak,
			PeakErr: cfg.FluxJitter * peak,
			FWHM1:   fwhm1,
			FWHM2:   unit.Angle(fwhm1.Rad() * (.9 + .2*rnd.Float64())),
		})
	}

	ref, err = catalog.New(rdet, cfg.Epoch, "icrs")
	if err != nil {
		return nil, nil, err
	}
	targ, err = catalog.New(tdet, cfg.Epoch.Add(cfg.Baseline), "icrs")
	if err != nil {
		return nil, nil, err
	}
	return targ, ref, nil
}

func jitter(rnd *xrand.Rand, sig unit.Angle) unit.Angle {
	if sig == 0 {
		return 0
	}
	return unit.Angle(sig.Rad() * rnd.NormFloat64())
}
