// Public domain.

package robust_test

import (
	"errors"
	"math"
	"testing"

	"relcal/robust"
)

func TestFitClean(t *testing.T) {
	// odd count, no outliers: center is the exact median
	s := []float64{4, 2, 8, 6, 10}
	e, err := robust.Fit(s, nil, robust.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if e.Center != 6 {
		t.Fatalf("center = %g, want 6", e.Center)
	}
	if e.N() != 5 {
		t.Fatalf("inliers = %d, want 5", e.N())
	}
	// mad of {2,4,0,2,4} about 6 is 2
	if want := 1.4826 * 2; math.Abs(e.Scale-want) > 1e-12 {
		t.Fatalf("scale = %g, want %g", e.Scale, want)
	}
}

func TestFitEvenCount(t *testing.T) {
	s := []float64{1, 2, 3, 4}
	e, err := robust.Fit(s, nil, robust.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if e.Center != 2.5 {
		t.Fatalf("center = %g, want 2.5", e.Center)
	}
}

func TestFitClipsOutlier(t *testing.T) {
	s := []float64{10, 10.1, 9.9, 10.05, 9.95, 10.02, 500}
	e, err := robust.Fit(s, nil, robust.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if e.Inliers[6] {
		t.Fatal("outlier survived clipping")
	}
	if e.N() != 6 {
		t.Fatalf("inliers = %d, want 6", e.N())
	}
	if math.Abs(e.Center-10) > 0.1 {
		t.Fatalf("center = %g", e.Center)
	}
	if e.Iterations < 1 {
		t.Fatal("no clipping pass recorded")
	}
}

func TestFitIdenticalValues(t *testing.T) {
	// zero spread stops iteration, clips nothing
	s := []float64{7, 7, 7, 7}
	e, err := robust.Fit(s, nil, robust.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if e.Center != 7 || e.Scale != 0 {
		t.Fatalf("center, scale = %g, %g", e.Center, e.Scale)
	}
	if e.N() != 4 || e.Iterations != 0 {
		t.Fatalf("n, iterations = %d, %d", e.N(), e.Iterations)
	}
}

func TestFitInsufficient(t *testing.T) {
	_, err := robust.Fit([]float64{1, 2}, nil, robust.DefaultOptions())
	var ise *robust.InsufficientSamplesError
	if !errors.As(err, &ise) {
		t.Fatalf("want InsufficientSamplesError, got %v", err)
	}
	if ise.N != 2 || ise.Min != 3 {
		t.Fatalf("n, min = %d, %d", ise.N, ise.Min)
	}

	// NaN samples do not count toward the floor
	_, err = robust.Fit([]float64{1, 2, math.NaN()}, nil, robust.DefaultOptions())
	if !errors.As(err, &ise) {
		t.Fatalf("want InsufficientSamplesError, got %v", err)
	}
}

func TestFitClippedBelowFloor(t *testing.T) {
	// tight cluster of 3 plus two far points with min samples 4:
	// the first clipping pass removes both far points
	opt := robust.Options{ClipSigma: 3, MaxIterations: 10, MinSamples: 4}
	_, err := robust.Fit([]float64{1, 1.01, 0.99, 50, -50}, nil, opt)
	var ise *robust.InsufficientSamplesError
	if !errors.As(err, &ise) {
		t.Fatalf("want InsufficientSamplesError, got %v", err)
	}
	if ise.N != 3 {
		t.Fatalf("n = %d, want 3", ise.N)
	}
}

func TestFitNaNMask(t *testing.T) {
	s := []float64{1, math.NaN(), 2, 3}
	e, err := robust.Fit(s, nil, robust.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if e.Inliers[1] {
		t.Fatal("NaN sample marked inlier")
	}
	if e.Center != 2 {
		t.Fatalf("center = %g, want 2", e.Center)
	}
}

func TestFitWeighted(t *testing.T) {
	s := []float64{1, 2, 10}
	w := []float64{1, 1, 10}
	e, err := robust.Fit(s, w, robust.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	// heavy weight drags the weighted median to 10
	if e.Center != 10 {
		t.Fatalf("center = %g, want 10", e.Center)
	}

	// equal weights reproduce the unweighted result
	s = []float64{4, 2, 8, 6, 10}
	e, err = robust.Fit(s, []float64{2, 2, 2, 2, 2}, robust.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if e.Center != 6 {
		t.Fatalf("center = %g, want 6", e.Center)
	}
}

func TestFitWeightErrors(t *testing.T) {
	s := []float64{1, 2, 3}
	if _, err := robust.Fit(s, []float64{1, 2}, robust.DefaultOptions()); err == nil {
		t.Fatal("length mismatch not reported")
	}
	if _, err := robust.Fit(s, []float64{1, -1, 2}, robust.DefaultOptions()); err == nil {
		t.Fatal("negative weight not reported")
	}
	_, err := robust.Fit(s, []float64{0, 0, 0}, robust.DefaultOptions())
	if !errors.Is(err, robust.ErrZeroWeight) {
		t.Fatalf("want ErrZeroWeight, got %v", err)
	}
}

func TestFitDeterministic(t *testing.T) {
	s := []float64{3, 1, 4, 1, 5, 9, 2, 6, 5, 3, 5}
	a, err := robust.Fit(s, nil, robust.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	b, err := robust.Fit(s, nil, robust.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if a.Center != b.Center || a.Scale != b.Scale || a.Iterations != b.Iterations {
		t.Fatal("identical input produced different estimates")
	}
}
