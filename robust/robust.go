// Public domain.

// Package robust estimates location and scale of noisy samples by
// iterative sigma clipping about the median.
package robust

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// MADScale makes the median absolute deviation a consistent estimator
// of the standard deviation for normal data.
const MADScale = 1.4826

// Options control a fit.  The zero value is not useful; start from
// DefaultOptions.
type Options struct {
	ClipSigma     float64 // clip samples beyond this many scales from center
	MaxIterations int     // cap on clipping passes
	MinSamples    int     // fewer remaining samples than this is an error
}

// DefaultOptions returns the standard fit options.
func DefaultOptions() Options {
	return Options{ClipSigma: 3, MaxIterations: 10, MinSamples: 3}
}

// Estimate is the result of a fit.
type Estimate struct {
	Center     float64
	Scale      float64 // scaled MAD of the final inlier set
	Inliers    []bool  // aligned with the input samples
	Iterations int     // clipping passes performed
}

// N returns the number of inliers.
func (e *Estimate) N() (n int) {
	for _, in := range e.Inliers {
		if in {
			n++
		}
	}
	return
}

// InsufficientSamplesError reports a fit attempted on, or clipped down
// to, fewer samples than the configured minimum.
type InsufficientSamplesError struct {
	N   int // samples remaining
	Min int // configured floor
}

func (e *InsufficientSamplesError) Error() string {
	return fmt.Sprintf("robust fit needs at least %d samples, have %d",
		e.Min, e.N)
}

// ErrZeroWeight reports that the weights of the usable samples sum to
// zero, leaving the weighted median undefined.
var ErrZeroWeight = errors.New("robust fit: total weight is zero")

// Fit estimates a robust center and scale of samples by sigma clipping:
// center is the median of the current inliers, scale the scaled median
// absolute deviation about it, and samples farther than
// ClipSigma*scale from center are removed until the inlier set is
// stable or MaxIterations passes have run.
//
// Weights may be nil for an unweighted fit, otherwise one non-negative
// finite weight per sample; medians are then weighted.  NaN samples are
// excluded up front and reported as outliers in the mask.  The fit is
// deterministic for identical input ordering.
func Fit(samples, weights []float64, opt Options) (Estimate, error) {
	var est Estimate
	if opt.ClipSigma <= 0 || opt.MaxIterations < 1 || opt.MinSamples < 1 {
		return est, fmt.Errorf("robust fit: invalid options %+v", opt)
	}
	if weights != nil && len(weights) != len(samples) {
		return est, fmt.Errorf("robust fit: %d samples but %d weights",
			len(samples), len(weights))
	}
	for _, w := range weights {
		if w < 0 || math.IsInf(w, 0) || math.IsNaN(w) {
			return est, fmt.Errorf("robust fit: invalid weight %g", w)
		}
	}

	in := make([]bool, len(samples))
	n := 0
	for i, v := range samples {
		if !math.IsNaN(v) {
			in[i] = true
			n++
		}
	}
	if n < opt.MinSamples {
		return est, &InsufficientSamplesError{N: n, Min: opt.MinSamples}
	}

	// scratch reused across passes
	v := make([]float64, 0, n)
	w := make([]float64, 0, n)
	dev := make([]float64, 0, n)
	var center, scale float64
	for it := 0; ; it++ {
		v, w = v[:0], w[:0]
		for i, x := range samples {
			if !in[i] {
				continue
			}
			v = append(v, x)
			if weights != nil {
				w = append(w, weights[i])
			}
		}
		var err error
		if center, err = median(v, w); err != nil {
			return est, err
		}
		dev = dev[:0]
		for _, x := range v {
			dev = append(dev, math.Abs(x-center))
		}
		md, err := median(dev, w)
		if err != nil {
			return est, err
		}
		scale = MADScale * md

		est.Iterations = it
		if it == opt.MaxIterations || scale == 0 {
			break
		}
		lim := opt.ClipSigma * scale
		removed := 0
		for i, x := range samples {
			if in[i] && math.Abs(x-center) > lim {
				in[i] = false
				removed++
			}
		}
		if removed == 0 {
			break
		}
		n -= removed
		est.Iterations = it + 1
		if n < opt.MinSamples {
			return est, &InsufficientSamplesError{N: n, Min: opt.MinSamples}
		}
	}
	est.Center = center
	est.Scale = scale
	est.Inliers = in
	return est, nil
}

// median returns the (weighted) median of v.  With nil weights, even
// counts average the two central values.  v may be reordered.
func median(v, w []float64) (float64, error) {
	if len(w) == 0 {
		sort.Float64s(v)
		h := len(v) / 2
		if len(v)%2 == 1 {
			return v[h], nil
		}
		return (v[h-1] + v[h]) * .5, nil
	}
	ix := make([]int, len(v))
	for i := range ix {
		ix[i] = i
	}
	sort.Slice(ix, func(a, b int) bool { return v[ix[a]] < v[ix[b]] })
	tot := 0.
	for _, x := range w {
		tot += x
	}
	if tot == 0 {
		return 0, ErrZeroWeight
	}
	half := tot * .5
	cum := 0.
	for k, i := range ix {
		cum += w[i]
		if cum > half {
			return v[i], nil
		}
		if cum == half {
			// weight splits exactly; average with the next
			// weighted value
			for _, j := range ix[k+1:] {
				if w[j] > 0 {
					return (v[i] + v[j]) * .5, nil
				}
			}
			return v[i], nil
		}
	}
	return v[ix[len(ix)-1]], nil
}
