// Public domain.

package rcprog

import (
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"relcal"
	"relcal/calib"
	"relcal/catalog"
)

func newBatchCmd() *cobra.Command {
	var cfgPath string
	var workers int
	var ff fitFlags
	c := &cobra.Command{
		Use:   "batch <reference> <target>...",
		Short: "fit many catalogs against one reference",
		Long: `Batch fits every target catalog against the one reference catalog,
in parallel, and prints a fit line per catalog in argument order.
Catalogs that cannot be read or fit are logged and skipped.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cfgPath)
			if err != nil {
				return err
			}
			if err := ff.apply(cmd, &cfg); err != nil {
				return err
			}
			ref, err := catalog.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reference catalog: %w", err)
			}
			runBatch(args[1:], ref, cfg, workers)
			return nil
		},
	}
	c.Flags().StringVarP(&cfgPath, "config", "c", "", "YAML config file")
	c.Flags().IntVarP(&workers, "workers", "w", runtime.GOMAXPROCS(0),
		"parallel fits")
	ff.add(c)
	return c
}

type pathSeq struct {
	path string
	rch  chan string
}

// runBatch constructs and starts the concurrent parts of a batch run.
func runBatch(paths []string, ref *catalog.Catalog, cfg calib.Config,
	maxWorkers int) {
	if maxWorkers < 1 {
		maxWorkers = 1
	}

	// prCh keeps results in submission order.  it is buffered so that a
	// fast worker can drop off its result without waiting for workers
	// ahead of it.  the size must be at least maxWorkers but otherwise
	// isn't critical.
	prCh := make(chan chan string, maxWorkers*2)
	seqCh := make(chan *pathSeq)

	// dispatcher.  for each catalog, attach a return channel that works
	// like a ticket for picking up the result.  wait for an available
	// worker, send the catalog to the worker and drop the ticket in the
	// queue for printing.
	go func() {
		for _, p := range paths {
			rch := make(chan string, 1)
			seqCh <- &pathSeq{p, rch}
			prCh <- rch
		}
		close(prCh)
	}()

	// start workers only as the dispatcher calls for them; there may be
	// more cores than catalogs.
	go func() {
		for n := 0; n < maxWorkers; n++ {
			s, ok := <-seqCh
			if !ok {
				return
			}
			go fitWorker(s, seqCh, ref, cfg)
		}
	}()

	// column headings, delayed until now so that a setup error can't
	// leave headings above an error message.
	fmt.Printf("%-24s %8s %8s %9s %4s %4s %6s\n",
		"catalog", "off1\"", "off2\"", "scale", "used", "rej", "days")

	// wait for results and print them as they become available, in
	// submission order.
	for rch := range prCh {
		if r := <-rch; r != "" {
			fmt.Println(r)
		}
	}
}

// worker process, fits catalogs.  the first catalog to fit is waiting
// in s; more are requested by receiving from seqCh.  it just runs until
// the program shuts down.
func fitWorker(s *pathSeq, seqCh chan *pathSeq, ref *catalog.Catalog,
	cfg calib.Config) {
	for ; ; s = <-seqCh {
		s.rch <- fitLine(s.path, ref, cfg)
	}
}

// fitLine fits one catalog and formats its result line.  An empty
// string means the catalog was skipped.
func fitLine(path string, ref *catalog.Catalog, cfg calib.Config) string {
	targ, err := catalog.ReadFile(path)
	if err != nil {
		log.Warn().Err(err).Str("catalog", path).Msg("skipped")
		return ""
	}
	n, _, err := relcal.SourceMatchCatalogs(targ, ref, cfg)
	if err != nil {
		log.Warn().Err(err).Str("catalog", path).Msg("no fit")
		return ""
	}
	days := "     -"
	if targ.MJD != 0 && ref.MJD != 0 {
		days = fmt.Sprintf("%+6.1f", targ.MJD-ref.MJD)
	}
	return fmt.Sprintf("%-24s %+8.3f %+8.3f %9.6f %4d %4d %s",
		filepath.Base(path), n.Off1.Sec(), n.Off2.Sec(), n.FluxScale,
		n.Used, n.Rejected, days)
}
