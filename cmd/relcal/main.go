// Public domain.

// Command relcal fits the relative calibration between source catalogs.
// See go doc relcal for the full manual.
package main

import "relcal/internal/rcprog"

func main() { rcprog.Main() }
