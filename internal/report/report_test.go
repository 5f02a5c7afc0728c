// Public domain.

package report_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/soniakeys/unit"
	"github.com/stretchr/testify/require"

	"relcal/calib"
	"relcal/catalog"
	"relcal/internal/report"
	"relcal/xmatch"
)

func det(id string, cen1, cen2 unit.Angle, peak float64) *catalog.Detection {
	return &catalog.Detection{
		ID: id, Cen1: cen1, Cen2: cen2,
		CenErr: unit.AngleFromSec(.3), Peak: peak, PeakErr: .1,
		FWHM1: unit.AngleFromSec(14), FWHM2: unit.AngleFromSec(14),
	}
}

func testSet() (*xmatch.MatchSet, *calib.Normalization) {
	t0 := det("T0", unit.AngleFromDeg(10), unit.AngleFromDeg(-5), 105)
	r0 := det("R0", unit.AngleFromDeg(10), unit.AngleFromDeg(-5), 100)
	t1 := det("T1", unit.AngleFromDeg(11), unit.AngleFromDeg(-5), 210)
	r1 := det("R1", unit.AngleFromDeg(11), unit.AngleFromDeg(-5), 200)
	u := det("T9", unit.AngleFromDeg(12), unit.AngleFromDeg(-6), 50)
	ms := &xmatch.MatchSet{
		Matches: []xmatch.Pair{
			{Targ: t0, Ref: r0, TargX: 0, RefX: 0, Sep: unit.AngleFromSec(.4)},
			{Targ: t1, Ref: r1, TargX: 1, RefX: 1, Sep: unit.AngleFromSec(.6)},
		},
		TargUnmatched: []xmatch.Unmatched{
			{Det: u, X: 2, Reason: xmatch.Outside},
		},
	}
	n := &calib.Normalization{
		Off1:         unit.AngleFromSec(1.5),
		Off2:         unit.AngleFromSec(-.8),
		Off1Err:      unit.AngleFromSec(.021),
		Off2Err:      unit.AngleFromSec(.019),
		FluxScale:    1.04,
		FluxScaleErr: .0012,
		FluxZero:     .03,
		FluxZeroErr:  .11,
		SizeRatio:    1.002,
		SizeRatioErr: .008,
		Used:         2,
		Pairs: []calib.PairStatus{
			{Pos: calib.In, Flux: calib.In, Size: calib.Skip, Used: true},
			{Pos: calib.In, Flux: calib.Out, Size: calib.In},
		},
	}
	return ms, n
}

func TestSummary(t *testing.T) {
	_, n := testSet()
	s := report.Summary(n)
	for _, want := range []string{
		`offset cen1  +1.500" +/- 0.021"`,
		`offset cen2  -0.800" +/- 0.019"`,
		"flux scale   1.040000 +/- 0.001200",
		"flux zero    +0.0300 +/- 0.1100",
		"size ratio   1.0020 +/- 0.0080",
		"pairs        2 used, 0 rejected",
	} {
		require.Contains(t, s, want)
	}
	require.NotContains(t, s, "pos scale")

	n.PosScale1 = 1.00001
	n.PosScale2 = 1.00002
	require.Contains(t, report.Summary(n), "pos scale    1.00001000 1.00002000")

	n.SizeRatio = 0
	require.Contains(t, report.Summary(n), "size ratio   n/a")
}

func TestTable(t *testing.T) {
	ms, n := testSet()
	s := report.Table(ms, n)
	require.Contains(t, s, "fit")
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	require.Len(t, lines, 5)
	require.Contains(t, lines[0], "position")
	require.Contains(t, lines[1], "T0")
	require.Contains(t, lines[1], "R0")
	require.Contains(t, lines[1], "1.0500")
	require.Contains(t, lines[1], "++.")
	require.Contains(t, lines[1], "used")
	require.Contains(t, lines[2], "+-+")
	require.NotContains(t, lines[2], "used")
	require.Equal(t, "unmatched target:", lines[3])
	require.Contains(t, lines[4], "T9")
	require.Contains(t, lines[4], "outside")
}

func TestTableNoFit(t *testing.T) {
	ms, _ := testSet()
	s := report.Table(ms, nil)
	require.NotContains(t, s, "fit")
	require.Contains(t, s, "T0")
	require.Contains(t, s, "unmatched target:")
}

func TestTableRatioGuard(t *testing.T) {
	ms, n := testSet()
	ms.Matches[1].Ref.Peak = 0
	s := report.Table(ms, n)
	lines := strings.Split(s, "\n")
	require.Contains(t, lines[2], "-")
	require.NotContains(t, lines[2], "Inf")
}

func TestJSON(t *testing.T) {
	ms, n := testSet()
	b, err := report.JSON(ms, n)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	require.InDelta(t, 1.5, m["off1_sec"], 1e-12)
	require.InDelta(t, -.8, m["off2_sec"], 1e-12)
	require.InDelta(t, 1.04, m["flux_scale"], 1e-12)
	require.EqualValues(t, 2, m["matched"])
	require.EqualValues(t, 1, m["unmatched_target"])
	require.EqualValues(t, 0, m["unmatched_reference"])
	_, ok := m["pos_scale1"]
	require.False(t, ok)

	n.PosScale1 = 1.5
	b, err = report.JSON(ms, n)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, &m))
	require.InDelta(t, 1.5, m["pos_scale1"], 1e-12)
}
