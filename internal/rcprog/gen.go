// Public domain.

package rcprog

import (
	"fmt"

	"github.com/soniakeys/unit"
	"github.com/spf13/cobra"

	"relcal/catalog"
	"relcal/internal/sim"
)

func newGenCmd() *cobra.Command {
	dc := sim.DefaultConfig()
	var (
		seed                 uint64
		n, transients, drops int
		field                float64
		off1, off2, jit      float64
		scale, zero, size    float64
		fluxJit              float64
	)
	c := &cobra.Command{
		Use:   "gen <target-out> <reference-out>",
		Short: "generate a synthetic catalog pair",
		Long: `Gen writes a reference catalog and a target catalog derived from it
with a known normalization, for testing the fit.  A .gz output name
means gzip compression.  The same seed always generates the same pair.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := sim.Config{
				N:          n,
				Field:      unit.AngleFromDeg(field),
				Off1:       unit.AngleFromSec(off1),
				Off2:       unit.AngleFromSec(off2),
				FluxScale:  scale,
				FluxZero:   zero,
				SizeRatio:  size,
				Jitter:     unit.AngleFromSec(jit),
				FluxJitter: fluxJit,
				Transients: transients,
				Dropouts:   drops,
				Epoch:      dc.Epoch,
				Baseline:   dc.Baseline,
			}
			targ, ref, err := sim.New(cfg, seed)
			if err != nil {
				return err
			}
			if err := catalog.WriteFile(args[0], targ); err != nil {
				return err
			}
			if err := catalog.WriteFile(args[1], ref); err != nil {
				return err
			}
			fmt.Printf("wrote %s (%d detections), %s (%d detections)\n",
				args[0], targ.Len(), args[1], ref.Len())
			fmt.Printf("truth: off1 %+.3f\"  off2 %+.3f\"  flux scale %.6f"+
				"  flux zero %+.4f  size ratio %.4f\n",
				off1, off2, scale, zero, size)
			return nil
		},
	}
	c.Flags().Uint64Var(&seed, "seed", 3, "random seed")
	c.Flags().IntVarP(&n, "n", "n", dc.N, "reference detections")
	c.Flags().Float64Var(&field, "field", dc.Field.Deg(), "field size, degrees")
	c.Flags().Float64Var(&off1, "off1", dc.Off1.Sec(), "offset, arc seconds")
	c.Flags().Float64Var(&off2, "off2", dc.Off2.Sec(), "offset, arc seconds")
	c.Flags().Float64Var(&scale, "flux-scale", dc.FluxScale, "flux scale")
	c.Flags().Float64Var(&zero, "flux-zero", dc.FluxZero, "flux zero point")
	c.Flags().Float64Var(&size, "size-ratio", dc.SizeRatio, "source size ratio")
	c.Flags().Float64Var(&jit, "jitter", dc.Jitter.Sec(),
		"position noise, arc seconds")
	c.Flags().Float64Var(&fluxJit, "flux-jitter", dc.FluxJitter,
		"relative flux noise")
	c.Flags().IntVar(&transients, "transients", dc.Transients,
		"target detections with no counterpart")
	c.Flags().IntVar(&drops, "dropouts", dc.Dropouts,
		"reference detections omitted from the target")
	return c
}
