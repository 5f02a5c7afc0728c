// Public domain.

// Package calib derives the normalization constants tying a target
// catalog to a reference catalog from their matched detections:
// per-coordinate positional offsets, a multiplicative flux scale with
// additive zero point, a size ratio, and optionally a position scale.
// All statistics are fit robustly in the manner of package robust,
// by sigma clipping about medians.
package calib

import (
	"errors"
	"math"
	"sort"

	"github.com/soniakeys/unit"

	"relcal/robust"
	"relcal/xmatch"
)

// Config collects the matching and normalization tunables.  The zero
// value is not useful; start from DefaultConfig.
type Config struct {
	// MaxSeparation is the matching radius.
	MaxSeparation unit.Angle

	// ClipSigma and MaxClipIterations parameterize the sigma
	// clipping of all robust fits.
	ClipSigma         float64
	MaxClipIterations int

	// MinMatches is the minimum number of contributing pairs for a
	// fit to be attempted.
	MinMatches int

	// FitScalePosition additionally solves per-coordinate position
	// scale factors about the reference centroid.
	FitScalePosition bool

	// TieMargin is the matcher's ambiguity margin.  0 awards every
	// contest to the nearer pair.
	TieMargin float64

	// MinPeak and MaxRadius are the reference candidacy cuts: a pair
	// whose reference detection fails either contributes to no fit.
	MinPeak   float64
	MaxRadius unit.Angle

	// FluxFloor keeps near-zero reference fluxes out of ratio
	// denominators.
	FluxFloor float64
}

// DefaultConfig returns the standard survey configuration.
func DefaultConfig() Config {
	return Config{
		MaxSeparation:     unit.AngleFromSec(10),
		ClipSigma:         3,
		MaxClipIterations: 10,
		MinMatches:        3,
		MinPeak:           .2,
		MaxRadius:         unit.AngleFromSec(30),
		FluxFloor:         1e-9,
	}
}

// Validate reports the first unusable field.
func (c *Config) Validate() error {
	switch {
	case !(c.MaxSeparation > 0):
		return errors.New("config: max separation must be positive")
	case !(c.ClipSigma > 0):
		return errors.New("config: clip sigma must be positive")
	case c.MaxClipIterations < 1:
		return errors.New("config: max clip iterations must be positive")
	case c.MinMatches < 3:
		return errors.New("config: min matches must be at least 3")
	case math.IsNaN(c.TieMargin) || c.TieMargin < 0:
		return errors.New("config: tie margin must not be negative")
	case math.IsNaN(c.MinPeak):
		return errors.New("config: min peak must be a number")
	case !(c.MaxRadius > 0):
		return errors.New("config: max radius must be positive")
	case !(c.FluxFloor > 0):
		return errors.New("config: flux floor must be positive")
	}
	return nil
}

// Flag classifies one pair's part in one fitted statistic.
type Flag uint8

const (
	Skip Flag = iota // did not contribute
	In               // contributed and survived clipping
	Out              // contributed and was clipped
)

var flagStr = [...]string{"skip", "in", "out"}

func (f Flag) String() string { return flagStr[f] }

// PairStatus records how one matched pair fared across the fits.  A
// pair is Used when it contributed to at least one fit and was
// clipped from none.
type PairStatus struct {
	Pos, Flux, Size Flag
	Used            bool
}

// Normalization is the terminal result of a calibration run: the
// constants mapping the reference system onto the target system.
type Normalization struct {
	// positional offset, target minus reference, with robust scatter
	Off1, Off2       unit.Angle
	Off1Err, Off2Err unit.Angle

	// position scale about the reference centroid, 1 unless fit
	PosScale1, PosScale2 float64

	// target flux tracks FluxScale*reference flux + FluxZero
	FluxScale, FluxScaleErr float64
	FluxZero, FluxZeroErr   float64

	// ratio of effective radii, zero when sizes cannot be fit
	SizeRatio, SizeRatioErr float64

	// Used counts pairs inlying in every fit they contributed to,
	// Rejected the rest of the matched pairs.
	Used, Rejected int

	// Pairs is aligned with the match set's Matches.
	Pairs []PairStatus
}

// DegenerateFitError reports a statistic whose fit has no solution in
// the supplied pairs.
type DegenerateFitError struct {
	Stat string // "flux scale" or "position scale"
}

func (e *DegenerateFitError) Error() string {
	return "degenerate " + e.Stat + " fit"
}

// Normalize fits normalization constants to the matched pairs of ms.
// Pairs failing the reference candidacy cuts contribute to no fit.
// The position fit takes every surviving pair; the flux fits take
// pairs whose reference flux clears FluxFloor; the size fit takes
// pairs with positive finite radii on both sides and reports zeros
// rather than failing when sizes are unusable.
func Normalize(ms *xmatch.MatchSet, cfg Config) (*Normalization, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ropt := robust.Options{
		ClipSigma:     cfg.ClipSigma,
		MaxIterations: cfg.MaxClipIterations,
		MinSamples:    cfg.MinMatches,
	}
	ok := make([]bool, len(ms.Matches))
	for i := range ms.Matches {
		r := ms.Matches[i].Ref
		ok[i] = r.Peak >= cfg.MinPeak && !(r.Radius() > cfg.MaxRadius)
	}
	n := &Normalization{Pairs: make([]PairStatus, len(ms.Matches))}

	if err := n.fitPosition(ms, cfg, ropt, ok); err != nil {
		return nil, err
	}
	if err := n.fitFlux(ms, cfg, ropt, ok); err != nil {
		return nil, err
	}
	n.fitSize(ms, ropt, ok)

	for i := range n.Pairs {
		s := &n.Pairs[i]
		s.Used = (s.Pos != Skip || s.Flux != Skip || s.Size != Skip) &&
			s.Pos != Out && s.Flux != Out && s.Size != Out
		if s.Used {
			n.Used++
		}
	}
	n.Rejected = len(ms.Matches) - n.Used
	return n, nil
}

// fitPosition fits the per-coordinate offsets, either directly as the
// robust center of the coordinate differences or, with
// FitScalePosition, as the intercept of a clipped regression about
// the reference centroid.
func (n *Normalization) fitPosition(ms *xmatch.MatchSet, cfg Config,
	ropt robust.Options, ok []bool) error {
	var px []int
	var d1, d2 []float64         // offsets in arcseconds
	var t1, r1, t2, r2 []float64 // coordinates in arcseconds
	var sig [][2]float64
	for i := range ms.Matches {
		if !ok[i] {
			continue
		}
		m := &ms.Matches[i]
		px = append(px, i)
		d1 = append(d1, (m.Targ.Cen1 - m.Ref.Cen1).Sec())
		d2 = append(d2, (m.Targ.Cen2 - m.Ref.Cen2).Sec())
		t1 = append(t1, m.Targ.Cen1.Sec())
		r1 = append(r1, m.Ref.Cen1.Sec())
		t2 = append(t2, m.Targ.Cen2.Sec())
		r2 = append(r2, m.Ref.Cen2.Sec())
		sig = append(sig, [2]float64{m.Targ.CenErr.Sec(), m.Ref.CenErr.Sec()})
	}
	w := invvar(sig)

	n.PosScale1, n.PosScale2 = 1, 1
	var in1, in2 []bool
	if cfg.FitScalePosition {
		if len(px) < ropt.MinSamples {
			return &robust.InsufficientSamplesError{
				N: len(px), Min: ropt.MinSamples}
		}
		c1, c2 := med(r1), med(r2)
		shift(r1, c1)
		shift(t1, c1)
		shift(r2, c2)
		shift(t2, c2)
		var o1, o2, e1, e2 float64
		var err error
		n.PosScale1, o1, e1, in1, err = linfit(r1, t1, w, ropt)
		if err != nil {
			return err
		}
		n.PosScale2, o2, e2, in2, err = linfit(r2, t2, w, ropt)
		if err != nil {
			return err
		}
		n.Off1, n.Off1Err = unit.AngleFromSec(o1), unit.AngleFromSec(e1)
		n.Off2, n.Off2Err = unit.AngleFromSec(o2), unit.AngleFromSec(e2)
	} else {
		e1, err := robust.Fit(d1, w, ropt)
		if err != nil {
			return err
		}
		e2, err := robust.Fit(d2, w, ropt)
		if err != nil {
			return err
		}
		in1, in2 = e1.Inliers, e2.Inliers
		n.Off1 = unit.AngleFromSec(e1.Center)
		n.Off1Err = unit.AngleFromSec(e1.Scale)
		n.Off2 = unit.AngleFromSec(e2.Center)
		n.Off2Err = unit.AngleFromSec(e2.Scale)
	}
	for j, i := range px {
		if in1[j] && in2[j] {
			n.Pairs[i].Pos = In
		} else {
			n.Pairs[i].Pos = Out
		}
	}
	return nil
}

// fitFlux fits the flux scale as the robust center of target/reference
// peak ratios, then the zero point as the robust center of the scaled
// flux differences.  A zero point that cannot be fit is reported zero.
// A pair clipped from either fit carries the Out flag.
func (n *Normalization) fitFlux(ms *xmatch.MatchSet, cfg Config,
	ropt robust.Options, ok []bool) error {
	var fx []int
	var rat, fv []float64
	weighted := true
	for i := range ms.Matches {
		if !ok[i] {
			continue
		}
		m := &ms.Matches[i]
		if math.Abs(m.Ref.Peak) < cfg.FluxFloor {
			continue
		}
		q := m.Targ.Peak / m.Ref.Peak
		fx = append(fx, i)
		rat = append(rat, q)
		// propagated variance of the ratio
		v := (m.Targ.PeakErr*m.Targ.PeakErr +
			q*q*m.Ref.PeakErr*m.Ref.PeakErr) /
			(m.Ref.Peak * m.Ref.Peak)
		if !(v > 0) || math.IsInf(v, 0) {
			weighted = false
		}
		fv = append(fv, v)
	}
	if len(fx) == 0 {
		return &DegenerateFitError{Stat: "flux scale"}
	}
	ef, err := robust.Fit(rat, recip(fv, weighted), ropt)
	if err != nil {
		return err
	}
	n.FluxScale, n.FluxScaleErr = ef.Center, ef.Scale
	for j, i := range fx {
		if ef.Inliers[j] {
			n.Pairs[i].Flux = In
		} else {
			n.Pairs[i].Flux = Out
		}
	}

	z := make([]float64, len(fx))
	zv := make([]float64, len(fx))
	weighted = true
	for j, i := range fx {
		m := &ms.Matches[i]
		z[j] = m.Targ.Peak - ef.Center*m.Ref.Peak
		v := m.Targ.PeakErr*m.Targ.PeakErr +
			ef.Center*ef.Center*m.Ref.PeakErr*m.Ref.PeakErr
		if !(v > 0) || math.IsInf(v, 0) {
			weighted = false
		}
		zv[j] = v
	}
	if ez, err := robust.Fit(z, recip(zv, weighted), ropt); err == nil {
		n.FluxZero, n.FluxZeroErr = ez.Center, ez.Scale
		for j, i := range fx {
			if !ez.Inliers[j] {
				n.Pairs[i].Flux = Out
			}
		}
	}
	return nil
}

// fitSize fits the ratio of effective radii over pairs carrying usable
// sizes.  Unusable sizes are not an error; the ratio is left zero.
func (n *Normalization) fitSize(ms *xmatch.MatchSet, ropt robust.Options,
	ok []bool) {
	var sx []int
	var rat []float64
	for i := range ms.Matches {
		if !ok[i] {
			continue
		}
		m := &ms.Matches[i]
		tr, rr := m.Targ.Radius().Rad(), m.Ref.Radius().Rad()
		if !(tr > 0) || !(rr > 0) || math.IsInf(tr, 0) || math.IsInf(rr, 0) {
			continue
		}
		sx = append(sx, i)
		rat = append(rat, tr/rr)
	}
	es, err := robust.Fit(rat, nil, ropt)
	if err != nil {
		return
	}
	n.SizeRatio, n.SizeRatioErr = es.Center, es.Scale
	for j, i := range sx {
		if es.Inliers[j] {
			n.Pairs[i].Size = In
		} else {
			n.Pairs[i].Size = Out
		}
	}
}

// linfit fits y = scale*x + off by least squares with sigma clipping
// of residuals about their median, iterating in the manner of
// robust.Fit.  The returned scatter is the scaled MAD of the final
// residuals.
func linfit(x, y, w []float64, opt robust.Options) (scale, off, scatter float64, in []bool, err error) {
	in = make([]bool, len(x))
	for i := range in {
		in[i] = true
	}
	left := len(x)
	if left < opt.MinSamples {
		return 0, 0, 0, nil, &robust.InsufficientSamplesError{
			N: left, Min: opt.MinSamples}
	}
	res := make([]float64, 0, left)
	dev := make([]float64, 0, left)
	for it := 0; ; it++ {
		var sw, sx, sy, sxx, sxy float64
		for i := range x {
			if !in[i] {
				continue
			}
			wi := 1.
			if w != nil {
				wi = w[i]
			}
			sw += wi
			sx += wi * x[i]
			sy += wi * y[i]
			sxx += wi * x[i] * x[i]
			sxy += wi * x[i] * y[i]
		}
		den := sw*sxx - sx*sx
		if den == 0 {
			// no spread in x
			return 0, 0, 0, nil, &DegenerateFitError{Stat: "position scale"}
		}
		scale = (sw*sxy - sx*sy) / den
		off = (sy - scale*sx) / sw
		res = res[:0]
		for i := range x {
			if in[i] {
				res = append(res, y[i]-(scale*x[i]+off))
			}
		}
		m := med(res)
		dev = dev[:0]
		for _, r := range res {
			dev = append(dev, math.Abs(r-m))
		}
		scatter = robust.MADScale * med(dev)
		if it == opt.MaxIterations || scatter == 0 {
			break
		}
		lim := opt.ClipSigma * scatter
		removed := 0
		for i := range x {
			if in[i] && math.Abs(y[i]-(scale*x[i]+off)-m) > lim {
				in[i] = false
				removed++
			}
		}
		if removed == 0 {
			break
		}
		left -= removed
		if left < opt.MinSamples {
			return 0, 0, 0, nil, &robust.InsufficientSamplesError{
				N: left, Min: opt.MinSamples}
		}
	}
	return scale, off, scatter, in, nil
}

// med returns the median of v, leaving v unchanged.
func med(v []float64) float64 {
	s := append([]float64(nil), v...)
	sort.Float64s(s)
	h := len(s) / 2
	if len(s)%2 == 1 {
		return s[h]
	}
	return (s[h-1] + s[h]) * .5
}

// shift subtracts c from every element of v.
func shift(v []float64, c float64) {
	for i := range v {
		v[i] -= c
	}
}

// invvar builds inverse-variance weights from per-sample (target,
// reference) uncertainties, or nil when any sample lacks a positive
// finite uncertainty and the fit must go unweighted.
func invvar(sig [][2]float64) []float64 {
	w := make([]float64, len(sig))
	for i, s := range sig {
		v := s[0]*s[0] + s[1]*s[1]
		if !(v > 0) || math.IsInf(v, 0) {
			return nil
		}
		w[i] = 1 / v
	}
	return w
}

// recip inverts v in place into weights, or returns nil when the
// variances were unusable.
func recip(v []float64, usable bool) []float64 {
	if !usable {
		return nil
	}
	for i, x := range v {
		v[i] = 1 / x
	}
	return v
}
