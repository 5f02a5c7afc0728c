// Public domain.

package rcprog

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"relcal/robust"
)

func newStatsCmd() *cobra.Command {
	var col, iters int
	var sigma float64
	c := &cobra.Command{
		Use:   "stats <file>",
		Short: "robust location and scale of a file column",
		Long: `Stats reads one numeric column of a comma separated file and prints
its sigma clipped location and scale.  Lines where the column is
missing or not a number are ignored, so a header line is harmless.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			samples, ignored, err := readColumn(args[0], col)
			if err != nil {
				return err
			}
			est, err := robust.Fit(samples, nil, robust.Options{
				ClipSigma:     sigma,
				MaxIterations: iters,
				MinSamples:    3,
			})
			if err != nil {
				return err
			}
			fmt.Println("File:          ", args[0])
			fmt.Println("Column:        ", col)
			fmt.Println("Values:        ", len(samples))
			if ignored != 0 {
				fmt.Println("Lines ignored: ", ignored)
			}
			fmt.Println()
			fmt.Printf("Location:       %g\n", est.Center)
			fmt.Printf("Scale:          %g\n", est.Scale)
			fmt.Printf("Inliers:        %d of %d\n", est.N(), len(samples))
			fmt.Println("Iterations:    ", est.Iterations)
			return nil
		},
	}
	c.Flags().IntVarP(&col, "column", "c", 1, "column to read, first is 1")
	c.Flags().Float64Var(&sigma, "sigma", 3, "clip threshold, sigmas")
	c.Flags().IntVar(&iters, "iters", 10, "clip iteration limit")
	return c
}

// readColumn reads a 1 based column of a comma separated file.  Rows
// where the column is missing or unparseable are counted, not fatal.
func readColumn(path string, col int) (samples []float64, ignored int, err error) {
	if col < 1 {
		return nil, 0, fmt.Errorf("stats: column must be positive")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.Comment = '#'
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	recs, err := r.ReadAll()
	if err != nil {
		return nil, 0, err
	}
	for _, rec := range recs {
		if len(rec) < col {
			ignored++
			continue
		}
		v, err := strconv.ParseFloat(rec[col-1], 64)
		if err != nil {
			ignored++
			continue
		}
		samples = append(samples, v)
	}
	return samples, ignored, nil
}
