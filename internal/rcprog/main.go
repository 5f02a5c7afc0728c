// Public domain.

// Package rcprog implements the relcal command.
package rcprog

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/soniakeys/exit"
	"github.com/soniakeys/unit"
	"github.com/spf13/cobra"

	"relcal"
	"relcal/calib"
)

const versionString = "relcal version 0.3 Go source."
const copyrightString = "Public domain."

func Main() {
	defer exit.Handler()
	if err := newRootCmd().Execute(); err != nil {
		exit.Log(err)
	}
}

func newRootCmd() *cobra.Command {
	var verbose, logJSON bool
	root := &cobra.Command{
		Use:   "relcal",
		Short: "relative calibration of source catalogs",
		Long: `Relcal matches the detections of two source catalogs of the same
field and fits the astrometric offset, flux scale, and size ratio of
one relative to the other.  See go doc relcal for file formats.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			setupLogging(verbose, logJSON)
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"debug logging")
	root.PersistentFlags().BoolVar(&logJSON, "log-json", false,
		"machine readable logs")
	root.AddCommand(newMatchCmd(), newBatchCmd(), newGenCmd(),
		newStatsCmd(), newVersionCmd())
	return root
}

// setupLogging configures the global zerolog logger.  Logs go to stderr
// so that fit output on stdout stays clean.
func setupLogging(verbose, logJSON bool) {
	var w io.Writer = os.Stderr
	if !logJSON {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}

// loadConfig returns the defaults when no file is named.
func loadConfig(path string) (calib.Config, error) {
	if path == "" {
		return calib.DefaultConfig(), nil
	}
	return relcal.LoadConfig(path)
}

// fitFlags are the per-option overrides layered on top of the config
// file, applied only when set on the command line.
type fitFlags struct {
	maxSep    float64
	clipSigma float64
	minPeak   float64
	maxRadius float64
	scalePos  bool
}

func (ff *fitFlags) add(c *cobra.Command) {
	c.Flags().Float64Var(&ff.maxSep, "max-sep", 0,
		"match radius, arc seconds")
	c.Flags().Float64Var(&ff.clipSigma, "clip-sigma", 0,
		"clip threshold, sigmas")
	c.Flags().Float64Var(&ff.minPeak, "min-peak", 0,
		"faintest usable peak flux")
	c.Flags().Float64Var(&ff.maxRadius, "max-radius", 0,
		"largest usable source radius, arc seconds")
	c.Flags().BoolVar(&ff.scalePos, "fit-scale-position", false,
		"also fit a position scale per coordinate")
}

func (ff *fitFlags) apply(cmd *cobra.Command, cfg *calib.Config) error {
	fl := cmd.Flags()
	if fl.Changed("max-sep") {
		cfg.MaxSeparation = unit.AngleFromSec(ff.maxSep)
	}
	if fl.Changed("clip-sigma") {
		cfg.ClipSigma = ff.clipSigma
	}
	if fl.Changed("min-peak") {
		cfg.MinPeak = ff.minPeak
	}
	if fl.Changed("max-radius") {
		cfg.MaxRadius = unit.AngleFromSec(ff.maxRadius)
	}
	if fl.Changed("fit-scale-position") {
		cfg.FitScalePosition = ff.scalePos
	}
	return cfg.Validate()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print version and copyright",
		Run: func(*cobra.Command, []string) {
			fmt.Println(versionString)
			fmt.Println(copyrightString)
		},
	}
}
