// Public domain.

// Package xmatch cross-matches two source catalogs into a one-to-one
// correspondence by spatial proximity.
package xmatch

import (
	"math"
	"sort"

	"github.com/soniakeys/coord"
	"github.com/soniakeys/unit"

	"relcal/catalog"
)

// Pair is a matched target and reference detection.
type Pair struct {
	Targ  *catalog.Detection
	Ref   *catalog.Detection
	TargX int // index in the target catalog
	RefX  int // index in the reference catalog
	Sep   unit.Angle
}

// Reason classifies why a detection ended up unmatched.
type Reason int

const (
	Outside   Reason = iota // no counterpart within the match radius
	Taken                   // all candidates were assigned to closer pairs
	Ambiguous               // rejected by the tie margin rule
	Invalid                 // NaN position or flux
	Culled                  // failed the reference candidacy cuts
)

var reasonStr = [...]string{"outside", "taken", "ambiguous", "invalid", "culled"}

func (r Reason) String() string { return reasonStr[r] }

// Unmatched is a detection without a counterpart, kept for diagnostics.
type Unmatched struct {
	Det    *catalog.Detection
	X      int // index in its catalog
	Reason Reason
}

// MatchSet is the outcome of matching one target catalog against one
// reference catalog.  Matches are ordered by the reference detection's
// catalog position.
type MatchSet struct {
	Matches       []Pair
	TargUnmatched []Unmatched
	RefUnmatched  []Unmatched
}

// Options control a matching run beyond the match radius.
type Options struct {
	MaxSep unit.Angle

	// TieMargin rejects contested pairs: a pair is ambiguous when
	// either side has another unassigned candidate within
	// (1+TieMargin) times the pair separation.  0 disables the rule
	// and contests go to the nearer pair.
	TieMargin float64

	// Cull, when non-nil, removes reference detections from candidacy
	// before matching.  Culled detections are reported unmatched.
	Cull func(*catalog.Detection) bool
}

// Match finds the best one-to-one correspondence between target and
// reference detections within maxSep.  An empty result is not an
// error; a catalog pair may simply share no sources.
func Match(targ, ref *catalog.Catalog, maxSep unit.Angle) *MatchSet {
	return Options{MaxSep: maxSep}.Match(targ, ref)
}

// cand is one target-reference pairing within the match radius.
type cand struct {
	ti, ri int
	sep    unit.Angle
}

// Match resolves the many-to-many candidate graph greedily: all
// candidate pairs within MaxSep are sorted by separation and accepted
// nearest first while both sides remain unassigned.  Ties in
// separation fall back to catalog order, reference first, so the
// result is deterministic.
func (o Options) Match(targ, ref *catalog.Catalog) *MatchSet {
	tv := make([]coord.Cart, targ.Len())
	for i := range targ.Det {
		tv[i] = cart(&targ.Det[i])
	}

	culled := make([]bool, ref.Len())
	var cands []cand
	for ri := range ref.Det {
		r := &ref.Det[ri]
		if !r.Valid() {
			continue
		}
		if o.Cull != nil && o.Cull(r) {
			culled[ri] = true
			continue
		}
		rv := cart(r)
		for ti := range targ.Det {
			if !targ.Det[ti].Valid() {
				continue
			}
			s := sep(&rv, &tv[ti])
			if s <= o.MaxSep {
				cands = append(cands, cand{ti, ri, s})
			}
		}
	}
	sort.Slice(cands, func(a, b int) bool {
		ca, cb := &cands[a], &cands[b]
		if ca.sep != cb.sep {
			return ca.sep < cb.sep
		}
		if ca.ri != cb.ri {
			return ca.ri < cb.ri
		}
		return ca.ti < cb.ti
	})

	tAss := fill(targ.Len(), -1)
	rAss := fill(ref.Len(), -1)
	tAmb := make([]bool, targ.Len())
	rAmb := make([]bool, ref.Len())
	rSep := make([]unit.Angle, ref.Len())
	for i := range cands {
		c := &cands[i]
		if tAss[c.ti] >= 0 || rAss[c.ri] >= 0 || tAmb[c.ti] || rAmb[c.ri] {
			continue
		}
		if o.TieMargin > 0 && o.contested(c, cands, tAss, rAss, tAmb, rAmb) {
			tAmb[c.ti] = true
			rAmb[c.ri] = true
			continue
		}
		tAss[c.ti] = c.ri
		rAss[c.ri] = c.ti
		rSep[c.ri] = c.sep
	}

	// candidacy map for distinguishing taken from outside
	tHad := make([]bool, targ.Len())
	rHad := make([]bool, ref.Len())
	for i := range cands {
		tHad[cands[i].ti] = true
		rHad[cands[i].ri] = true
	}

	ms := &MatchSet{}
	for ri := range ref.Det {
		ti := rAss[ri]
		if ti < 0 {
			continue
		}
		ms.Matches = append(ms.Matches, Pair{
			Targ: &targ.Det[ti], Ref: &ref.Det[ri],
			TargX: ti, RefX: ri, Sep: rSep[ri],
		})
	}
	for ti := range targ.Det {
		if tAss[ti] >= 0 {
			continue
		}
		ms.TargUnmatched = append(ms.TargUnmatched, Unmatched{
			Det: &targ.Det[ti], X: ti,
			Reason: reason(!targ.Det[ti].Valid(), false, tAmb[ti], tHad[ti]),
		})
	}
	for ri := range ref.Det {
		if rAss[ri] >= 0 {
			continue
		}
		ms.RefUnmatched = append(ms.RefUnmatched, Unmatched{
			Det: &ref.Det[ri], X: ri,
			Reason: reason(!ref.Det[ri].Valid(), culled[ri], rAmb[ri], rHad[ri]),
		})
	}
	return ms
}

// contested reports whether the pair has a near-tied unassigned
// alternative on either side.
func (o Options) contested(c *cand, cands []cand,
	tAss, rAss []int, tAmb, rAmb []bool) bool {
	lim := unit.Angle(float64(c.sep) * (1 + o.TieMargin))
	for i := range cands {
		a := &cands[i]
		if a.sep > lim {
			// sorted by separation, nothing closer follows
			break
		}
		switch {
		case a.ri == c.ri && a.ti != c.ti:
			if tAss[a.ti] < 0 && !tAmb[a.ti] {
				return true
			}
		case a.ti == c.ti && a.ri != c.ri:
			if rAss[a.ri] < 0 && !rAmb[a.ri] {
				return true
			}
		}
	}
	return false
}

func reason(invalid, culled, amb, had bool) Reason {
	switch {
	case invalid:
		return Invalid
	case culled:
		return Culled
	case amb:
		return Ambiguous
	case had:
		return Taken
	}
	return Outside
}

func fill(n, v int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = v
	}
	return s
}

// cart returns the unit vector of a detection's sky position.
func cart(d *catalog.Detection) coord.Cart {
	s2, c2 := math.Sincos(d.Cen2.Rad())
	s1, c1 := math.Sincos(d.Cen1.Rad())
	return coord.Cart{X: c1 * c2, Y: s1 * c2, Z: s2}
}

// sep returns the angular separation of two unit vectors.
func sep(a, b *coord.Cart) unit.Angle {
	d := a.Dot(b)
	// guard acos domain against rounding
	if d > 1 {
		d = 1
	} else if d < -1 {
		d = -1
	}
	return unit.Angle(math.Acos(d))
}

// Sep returns the angular separation between two detections.
func Sep(a, b *catalog.Detection) unit.Angle {
	av, bv := cart(a), cart(b)
	return sep(&av, &bv)
}
