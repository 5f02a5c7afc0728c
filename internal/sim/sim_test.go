// Public domain.

package sim_test

import (
	"testing"
	"time"

	"github.com/soniakeys/unit"
	"github.com/stretchr/testify/require"

	"relcal/internal/sim"
)

func TestNewDeterministic(t *testing.T) {
	cfg := sim.DefaultConfig()
	t1, r1, err := sim.New(cfg, 7)
	require.NoError(t, err)
	t2, r2, err := sim.New(cfg, 7)
	require.NoError(t, err)
	require.Equal(t, r1.Det, r2.Det)
	require.Equal(t, t1.Det, t2.Det)

	t3, _, err := sim.New(cfg, 8)
	require.NoError(t, err)
	require.NotEqual(t, t1.Det, t3.Det)
}

func TestNewCounts(t *testing.T) {
	cfg := sim.DefaultConfig()
	cfg.N = 25
	cfg.Transients = 3
	cfg.Dropouts = 4
	targ, ref, err := sim.New(cfg, 1)
	require.NoError(t, err)
	require.Equal(t, 25, ref.Len())
	require.Equal(t, 25-4+3, targ.Len())
	require.Equal(t, cfg.Epoch, ref.Epoch)
	require.Equal(t, cfg.Epoch.Add(24*time.Hour), targ.Epoch)
	require.InDelta(t, 1, targ.MJD-ref.MJD, 1e-9)
}

func TestNewBounds(t *testing.T) {
	cfg := sim.DefaultConfig()
	cfg.N = 200
	_, ref, err := sim.New(cfg, 3)
	require.NoError(t, err)
	for _, d := range ref.Det {
		require.True(t, d.Cen1 >= 0 && d.Cen1 <= cfg.Field, "cen1 %v", d.Cen1)
		require.True(t, d.Cen2 >= 0 && d.Cen2 <= cfg.Field, "cen2 %v", d.Cen2)
		require.True(t, d.Peak >= .3 && d.Peak < 30, "peak %v", d.Peak)
		require.True(t, d.FWHM1.Sec() >= 2 && d.FWHM1.Sec() <= 6)
		require.True(t, d.Valid())
	}
}

func TestNewExact(t *testing.T) {
	// No noise, no transients, no dropouts: target detections line up
	// with reference detections index for index.
	cfg := sim.DefaultConfig()
	cfg.N = 10
	cfg.Jitter = 0
	cfg.FluxJitter = 0
	cfg.Transients = 0
	cfg.Dropouts = 0
	cfg.SizeRatio = 1.1
	targ, ref, err := sim.New(cfg, 5)
	require.NoError(t, err)
	require.Equal(t, ref.Len(), targ.Len())
	for i, td := range targ.Det {
		rd := ref.Det[i]
		require.InDelta(t, cfg.Off1.Rad(), (td.Cen1 - rd.Cen1).Rad(), 1e-15)
		require.InDelta(t, cfg.Off2.Rad(), (td.Cen2 - rd.Cen2).Rad(), 1e-15)
		require.InDelta(t, cfg.FluxScale, td.Peak/rd.Peak, 1e-12)
		require.InDelta(t, cfg.SizeRatio, td.Radius().Rad()/rd.Radius().Rad(), 1e-12)
	}
}

func TestNewErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		mod  func(*sim.Config)
	}{
		{"zero n", func(c *sim.Config) { c.N = 0 }},
		{"zero field", func(c *sim.Config) { c.Field = 0 }},
		{"zero flux scale", func(c *sim.Config) { c.FluxScale = 0 }},
		{"zero size ratio", func(c *sim.Config) { c.SizeRatio = 0 }},
		{"negative jitter", func(c *sim.Config) { c.Jitter = unit.AngleFromSec(-1) }},
		{"negative transients", func(c *sim.Config) { c.Transients = -1 }},
		{"all dropped", func(c *sim.Config) { c.Dropouts = 40 }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := sim.DefaultConfig()
			tc.mod(&cfg)
			_, _, err := sim.New(cfg, 1)
			require.Error(t, err)
		})
	}
}
