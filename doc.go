// Public domain.

/*
Package relcal computes the relative calibration between two source
catalogs of the same sky field.

Given a target catalog and a reference catalog, relcal matches their
detections by position and fits how the target is offset and scaled
relative to the reference: astrometric offsets in each coordinate,
a multiplicative flux scale with a zero point, and a source size ratio.
All fits are robust; detections that disagree with the bulk of the field
are clipped and reported rather than allowed to pull the solution.

Pipeline

The work splits across four packages, used together by SourceMatch or
separately for finer control.

  catalog  reading, writing, and holding detection lists
  xmatch   symmetric nearest neighbor matching of two catalogs
  robust   sigma clipped location and scale estimation
  calib    the normalization fits over a match set

Matching is greedy on separation over the whole field.  Candidate pairs
within the match radius are taken closest first, and each detection
joins at most one pair.  Detections left over are reported with the
reason they went unmatched.  The fits then run over the matched pairs,
weighted by the quoted measurement errors when they are present, with
iterated sigma clipping about the median.

Catalog files

A catalog file is comma separated text, one detection per line, with a
header line naming the columns.  Lines beginning with # before the
header carry file metadata.  A .gz name means gzip compression, both
reading and writing.

  # epoch: 2024-03-01T00:00:00Z
  # frame: icrs
  id,cen1,cen2,cen_err,peak,peak_err,fwhm1,fwhm2
  R0000,10.5,-3.25,0.05,120,2.4,4.2,4.0

Positions cen1 and cen2 are in degrees.  The position error cen_err and
the widths fwhm1 and fwhm2 are in arc seconds.  Peak flux is in
whatever linear unit the survey uses; only ratios of it are fit.
Unknown values may be left empty or written nan.  Column order is free
and header names are case insensitive.

Configuration

LoadConfig reads a YAML file and overlays it on the defaults.  Keys not
present keep their default; unknown keys are an error.

  max_separation       10     match radius, arc seconds
  clip_sigma            3     clip threshold, sigmas
  max_clip_iterations  10
  min_matches           3
  fit_scale_position   false  also fit a position scale per coordinate
  tie_margin            0     ambiguity margin, fraction of separation
  min_peak              0.2   faintest usable peak flux
  max_radius           30     largest usable source radius, arc seconds
  flux_floor            1e-9  smallest reference flux for flux fits

Command line usage

The relcal command in cmd/relcal runs the pipeline from a shell.

  relcal match night2.cat.gz master.cat

prints the fit of night2 relative to master:

  offset cen1  +1.483" +/- 0.052"
  offset cen2  -0.767" +/- 0.049"
  flux scale   1.038711 +/- 0.004219
  flux zero    +0.0341 +/- 0.0921
  size ratio   1.0007 +/- 0.0031
  pairs        38 used, 2 rejected

relcal batch fits many nightly catalogs against one reference in
parallel, relcal gen generates synthetic catalog pairs with a known
normalization, and relcal stats is a robust estimator over any numeric
column of a file.  See relcal -h for the full option list.

-------------
Public domain.
*/
package relcal
