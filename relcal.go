// Public domain.

package relcal

import (
	"fmt"

	"relcal/calib"
	"relcal/catalog"
	"relcal/xmatch"
)

// SourceMatch reads the target and reference catalogs from disk, matches
// their detections, and fits the normalization of target relative to
// reference.  It is the one-call form of the pipeline; use the catalog,
// xmatch, and calib packages directly for finer control.
//
// The returned MatchSet is non-nil whenever matching ran, even if the
// normalization fit failed, so callers can still report which detections
// paired up.
func SourceMatch(targetPath, refPath string, cfg calib.Config) (*calib.Normalization, *xmatch.MatchSet, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	targ, err := catalog.ReadFile(targetPath)
	if err != nil {
		return nil, nil, fmt.Errorf("target catalog: %w", err)
	}
	ref, err := catalog.ReadFile(refPath)
	if err != nil {
		return nil, nil, fmt.Errorf("reference catalog: %w", err)
	}
	return SourceMatchCatalogs(targ, ref, cfg)
}

// SourceMatchCatalogs matches two in-memory catalogs and fits the
// normalization of target relative to reference.  Detections failing the
// configured peak and radius cuts are culled before matching so they
// cannot steal counterparts from clean detections.
func SourceMatchCatalogs(targ, ref *catalog.Catalog, cfg calib.Config) (*calib.Normalization, *xmatch.MatchSet, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	opt := xmatch.Options{
		MaxSep:    cfg.MaxSeparation,
		TieMargin: cfg.TieMargin,
		Cull: func(d *catalog.Detection) bool {
			return d.Peak < cfg.MinPeak || d.Radius() > cfg.MaxRadius
		},
	}
	ms := opt.Match(targ, ref)
	n, err := calib.Normalize(ms, cfg)
	if err != nil {
		return nil, ms, err
	}
	return n, ms, nil
}
