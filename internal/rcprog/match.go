// Public domain.

package rcprog

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"relcal"
	"relcal/internal/report"
)

func newMatchCmd() *cobra.Command {
	var cfgPath string
	var table, asJSON bool
	var ff fitFlags
	c := &cobra.Command{
		Use:   "match <target> <reference>",
		Short: "fit one catalog against a reference",
		Long: `Match reads the two catalogs, pairs their detections by position,
and prints the fit of target relative to reference.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cfgPath)
			if err != nil {
				return err
			}
			if err := ff.apply(cmd, &cfg); err != nil {
				return err
			}
			n, ms, err := relcal.SourceMatch(args[0], args[1], cfg)
			if err != nil {
				return err
			}
			log.Debug().
				Int("matched", len(ms.Matches)).
				Int("target_unmatched", len(ms.TargUnmatched)).
				Int("reference_unmatched", len(ms.RefUnmatched)).
				Msg("matched")
			if asJSON {
				b, err := report.JSON(ms, n)
				if err != nil {
					return err
				}
				b = append(b, '\n')
				_, err = os.Stdout.Write(b)
				return err
			}
			if table {
				fmt.Print(report.Table(ms, n))
			}
			fmt.Print(report.Summary(n))
			return nil
		},
	}
	c.Flags().StringVarP(&cfgPath, "config", "c", "", "YAML config file")
	c.Flags().BoolVarP(&table, "table", "t", false, "per detection table")
	c.Flags().BoolVarP(&asJSON, "json", "j", false, "JSON output")
	ff.add(c)
	return c
}
