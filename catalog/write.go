// Public domain.

package catalog

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/soniakeys/unit"
)

// Write emits a catalog in the file format accepted by Read.
// Numeric values are written with shortest round-trip precision.
func Write(w io.Writer, c *Catalog) error {
	bw := bufio.NewWriter(w)
	if !c.Epoch.IsZero() {
		fmt.Fprintf(bw, "# epoch: %s\n", c.Epoch.UTC().Format(time.RFC3339))
	}
	if c.Frame != "" {
		fmt.Fprintf(bw, "# frame: %s\n", c.Frame)
	}
	cw := csv.NewWriter(bw)
	cw.Write(reqCols)
	for i := range c.Det {
		d := &c.Det[i]
		cw.Write([]string{
			d.ID,
			deg(d.Cen1), deg(d.Cen2), sec(d.CenErr),
			num(d.Peak), num(d.PeakErr),
			sec(d.FWHM1), sec(d.FWHM2),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return bw.Flush()
}

// WriteFile writes a catalog file, gzip-compressed when the name ends
// in .gz.
func WriteFile(path string, c *Catalog) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if strings.HasSuffix(path, ".gz") {
		zw := gzip.NewWriter(f)
		if err := Write(zw, c); err != nil {
			f.Close()
			return err
		}
		if err := zw.Close(); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}
	if err := Write(f, c); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func deg(a unit.Angle) string { return num(a.Deg()) }
func sec(a unit.Angle) string { return num(a.Sec()) }

func num(v float64) string {
	if math.IsNaN(v) {
		return "nan"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
