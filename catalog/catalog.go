// Public domain.

// Package catalog defines the source catalog model used by relcal and its
// commands: a typed, ordered list of detections with catalog metadata,
// loaded from the tabular files produced by the clump extraction stage.
package catalog

import (
	"fmt"
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/unit"
)

// Detection is one extracted clump.  Values are immutable once loaded.
//
// Positions Cen1, Cen2 are sky coordinates.  Peak is the fitted peak flux
// in Jy/beam and may be negative in noisy data.  CenErr, PeakErr are
// measurement uncertainties.  FWHM1, FWHM2 are the fitted widths along the
// two clump axes.  Any numeric field may be NaN where the extraction stage
// could not produce a value.
type Detection struct {
	ID      string
	Cen1    unit.Angle
	Cen2    unit.Angle
	CenErr  unit.Angle
	Peak    float64
	PeakErr float64
	FWHM1   unit.Angle
	FWHM2   unit.Angle
}

// Radius returns the effective radius, half the geometric mean of the two
// fitted widths.  NaN when either width is NaN.
func (d *Detection) Radius() unit.Angle {
	return unit.Angle(.5 * math.Sqrt(d.FWHM1.Rad()*d.FWHM2.Rad()))
}

// Valid reports whether the detection has defined position and flux.
// Detections failing Valid cannot enter matching.
func (d *Detection) Valid() bool {
	return !math.IsNaN(d.Cen1.Rad()) && !math.IsNaN(d.Cen2.Rad()) &&
		!math.IsNaN(d.Peak)
}

// Catalog is an ordered sequence of detections plus catalog metadata.
// Catalogs are read-only inputs: build one with New or ReadFile, then
// only read it.
type Catalog struct {
	Epoch time.Time // observation time, zero when the file carries none
	MJD   float64   // modified julian date of Epoch, 0 when Epoch is zero
	Frame string    // reference frame identifier, may be empty
	Det   []Detection

	index map[string]int
}

const mjdOffset = 2400000.5 // JD of MJD epoch

// New builds a catalog from detections already in memory.
// Detection identifiers must be unique and non-empty.
func New(det []Detection, epoch time.Time, frame string) (*Catalog, error) {
	c := &Catalog{
		Epoch: epoch,
		Frame: frame,
		Det:   det,
		index: make(map[string]int, len(det)),
	}
	if !epoch.IsZero() {
		c.MJD = julian.TimeToJD(epoch.UTC()) - mjdOffset
	}
	for i := range det {
		id := det[i].ID
		if id == "" {
			return nil, fmt.Errorf("detection %d: empty identifier", i)
		}
		if j, ok := c.index[id]; ok {
			return nil, fmt.Errorf("duplicate identifier %q (detections %d and %d)",
				id, j, i)
		}
		c.index[id] = i
	}
	return c, nil
}

// Len returns the number of detections.
func (c *Catalog) Len() int { return len(c.Det) }

// ByID returns the detection with the given identifier.
func (c *Catalog) ByID(id string) (*Detection, bool) {
	i, ok := c.index[id]
	if !ok {
		return nil, false
	}
	return &c.Det[i], true
}
