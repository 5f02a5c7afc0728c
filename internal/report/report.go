// Public domain.

// Package report formats normalization results for people and machines.
package report

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	sexa "github.com/soniakeys/sexagesimal"

	"relcal/calib"
	"relcal/catalog"
	"relcal/xmatch"
)

// Summary returns a short fixed-layout block describing a fit, one
// statistic per line.  Statistics that were not fit are shown as n/a.
func Summary(n *calib.Normalization) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-12s %+.3f\" +/- %.3f\"\n", "offset cen1",
		n.Off1.Sec(), n.Off1Err.Sec())
	fmt.Fprintf(&b, "%-12s %+.3f\" +/- %.3f\"\n", "offset cen2",
		n.Off2.Sec(), n.Off2Err.Sec())
	if n.PosScale1 != 0 {
		fmt.Fprintf(&b, "%-12s %.8f %.8f\n", "pos scale",
			n.PosScale1, n.PosScale2)
	}
	fmt.Fprintf(&b, "%-12s %.6f +/- %.6f\n", "flux scale",
		n.FluxScale, n.FluxScaleErr)
	fmt.Fprintf(&b, "%-12s %+.4f +/- %.4f\n", "flux zero",
		n.FluxZero, n.FluxZeroErr)
	if n.SizeRatio != 0 {
		fmt.Fprintf(&b, "%-12s %.4f +/- %.4f\n", "size ratio",
			n.SizeRatio, n.SizeRatioErr)
	} else {
		fmt.Fprintf(&b, "%-12s n/a\n", "size ratio")
	}
	fmt.Fprintf(&b, "%-12s %d used, %d rejected\n", "pairs",
		n.Used, n.Rejected)
	return b.String()
}

var flagChar = map[calib.Flag]byte{
	calib.Skip: '.',
	calib.In:   '+',
	calib.Out:  '-',
}

// Table returns a per-detection listing of a match set: one row per
// matched pair followed by the unmatched detections of each catalog.
// When n is non-nil its pair flags are shown in a fit column, position
// then flux then size.
func Table(ms *xmatch.MatchSet, n *calib.Normalization) string {
	var b strings.Builder
	if n != nil {
		fmt.Fprintf(&b, "%-10s %-10s %-24s %7s %11s  fit\n",
			"target", "reference", "position", "sep\"", "flux ratio")
	} else {
		fmt.Fprintf(&b, "%-10s %-10s %-24s %7s %11s\n",
			"target", "reference", "position", "sep\"", "flux ratio")
	}
	for i, m := range ms.Matches {
		fmt.Fprintf(&b, "%-10s %-10s %-24s %7.3f %11s",
			m.Targ.ID, m.Ref.ID, pos(m.Ref), m.Sep.Sec(),
			ratio(m.Targ.Peak, m.Ref.Peak))
		if n != nil {
			p := n.Pairs[i]
			fmt.Fprintf(&b, "  %c%c%c", flagChar[p.Pos], flagChar[p.Flux],
				flagChar[p.Size])
			if p.Used {
				b.WriteString(" used")
			}
		}
		b.WriteByte('\n')
	}
	unmatched(&b, "unmatched target:", ms.TargUnmatched)
	unmatched(&b, "unmatched reference:", ms.RefUnmatched)
	return b.String()
}

func unmatched(b *strings.Builder, title string, u []xmatch.Unmatched) {
	if len(u) == 0 {
		return
	}
	b.WriteString(title)
	b.WriteByte('\n')
	for _, d := range u {
		fmt.Fprintf(b, "  %-10s %s  %s\n", d.Det.ID, pos(d.Det), d.Reason)
	}
}

func pos(d *catalog.Detection) string {
	return fmt.Sprintf("%s %s", sexa.FmtAngle(d.Cen1), sexa.FmtAngle(d.Cen2))
}

func ratio(t, r float64) string {
	q := t / r
	if math.IsNaN(q) || math.IsInf(q, 0) {
		return "-"
	}
	return fmt.Sprintf("%.4f", q)
}

type jsonView struct {
	Off1          float64 `json:"off1_sec"`
	Off1Err       float64 `json:"off1_err_sec"`
	Off2          float64 `json:"off2_sec"`
	Off2Err       float64 `json:"off2_err_sec"`
	PosScale1     float64 `json:"pos_scale1,omitempty"`
	PosScale2     float64 `json:"pos_scale2,omitempty"`
	FluxScale     float64 `json:"flux_scale"`
	FluxScaleErr  float64 `json:"flux_scale_err"`
	FluxZero      float64 `json:"flux_zero"`
	FluxZeroErr   float64 `json:"flux_zero_err"`
	SizeRatio     float64 `json:"size_ratio"`
	SizeRatioErr  float64 `json:"size_ratio_err"`
	Used          int     `json:"used"`
	Rejected      int     `json:"rejected"`
	Matched       int     `json:"matched"`
	TargUnmatched int     `json:"unmatched_target"`
	RefUnmatched  int     `json:"unmatched_reference"`
}

// JSON returns the fit and the match counts as indented JSON.  Angles
// are in arc seconds.
func JSON(ms *xmatch.MatchSet, n *calib.Normalization) ([]byte, error) {
	return json.MarshalIndent(jsonView{
		Off1:          n.Off1.Sec(),
		Off1Err:       n.Off1Err.Sec(),
		Off2:          n.Off2.Sec(),
		Off2Err:       n.Off2Err.Sec(),
		PosScale1:     n.PosScale1,
		PosScale2:     n.PosScale2,
		FluxScale:     n.FluxScale,
		FluxScaleErr:  n.FluxScaleErr,
		FluxZero:      n.FluxZero,
		FluxZeroErr:   n.FluxZeroErr,
		SizeRatio:     n.SizeRatio,
		SizeRatioErr:  n.SizeRatioErr,
		Used:          n.Used,
		Rejected:      n.Rejected,
		Matched:       len(ms.Matches),
		TargUnmatched: len(ms.TargUnmatched),
		RefUnmatched:  len(ms.RefUnmatched),
	}, "", "  ")
}
