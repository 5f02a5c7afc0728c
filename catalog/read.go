// Public domain.

package catalog

import (
	"bufio"
	"encoding/csv"
	"errors"
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

// MalformedError describes an input catalog that cannot be loaded:
// missing required columns, non-numeric data, duplicate or empty
// identifiers, or unparsable metadata.
type MalformedError struct {
	Path string // file name, empty when reading a stream
	Line int    // 1-based input line, 0 when not line-specific
	Col  string // column name, empty when not column-specific
	Msg  string
}

func (e *MalformedError) Error() string {
	s := "malformed catalog"
	if e.Path != "" {
		s += " " + e.Path
	}
	if e.Line > 0 {
		s += fmt.Sprintf(" line %d", e.Line)
	}
	if e.Col != "" {
		s += " column " + e.Col
	}
	return s + ": " + e.Msg
}

// Catalog files are CSV with a header row naming at least these columns.
// Cen1, cen2 are degrees; cen_err, fwhm1, fwhm2 arc seconds; peak and
// peak_err Jy/beam.  Column order is free and extra columns are ignored.
var reqCols = []string{
	"id", "cen1", "cen2", "cen_err", "peak", "peak_err", "fwhm1", "fwhm2",
}

// ReadFile loads a catalog file.  Files ending in .gz are decompressed
// transparently.
func ReadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		defer zr.Close()
		r = zr
	}
	c, err := Read(r)
	if err != nil {
		var me *MalformedError
		if errors.As(err, &me) && me.Path == "" {
			me.Path = path
		}
		return nil, err
	}
	return c, nil
}

// Read loads a catalog from a stream.
//
// Leading lines of the form "# key: value" carry catalog metadata.
// Recognized keys are "epoch" (RFC 3339 timestamp) and "frame";
// unrecognized keys and plain # comments are ignored.  The remainder is
// CSV as described at reqCols.
func Read(r io.Reader) (*Catalog, error) {
	br := bufio.NewReader(r)
	var epoch time.Time
	var frame string
	meta := 0 // lines consumed before the CSV section
	for {
		b, err := br.Peek(1)
		if err != nil || b[0] != '#' {
			break
		}
		s, err := br.ReadString('\n')
		meta++
		if e := metaLine(s, meta, &epoch, &frame); e != nil {
			return nil, e
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}

	cr := csv.NewReader(br)
	cr.TrimLeadingSpace = true
	hdr, err := cr.Read()
	if err == io.EOF {
		return nil, &MalformedError{Line: meta + 1, Msg: "no header row"}
	}
	if err != nil {
		return nil, csvMalformed(err, meta)
	}
	col := make(map[string]int, len(hdr))
	for i, name := range hdr {
		name = strings.ToLower(strings.TrimSpace(name))
		if _, ok := col[name]; ok {
			return nil, &MalformedError{Line: meta + 1, Col: name,
				Msg: "duplicate column"}
		}
		col[name] = i
	}
	for _, name := range reqCols {
		if _, ok := col[name]; !ok {
			return nil, &MalformedError{Line: meta + 1, Col: name,
				Msg: "required column missing"}
		}
	}

	var det []Detection
	seen := make(map[string]int)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, csvMalformed(err, meta)
		}
		line, _ := cr.FieldPos(0)
		line += meta
		num := func(name string) (float64, error) {
			s := strings.TrimSpace(rec[col[name]])
			if s == "" || strings.EqualFold(s, "nan") {
				return math.NaN(), nil
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return 0, &MalformedError{Line: line, Col: name,
					Msg: fmt.Sprintf("not numeric: %q", s)}
			}
			return v, nil
		}
		id := strings.TrimSpace(rec[col["id"]])
		if id == "" {
			return nil, &MalformedError{Line: line, Col: "id",
				Msg: "empty identifier"}
		}
		if first, ok := seen[id]; ok {
			return nil, &MalformedError{Line: line, Col: "id",
				Msg: fmt.Sprintf("duplicate identifier %q (first on line %d)",
					id, first)}
		}
		seen[id] = line
		c1, err := num("cen1")
		if err != nil {
			return nil, err
		}
		c2, err := num("cen2")
		if err != nil {
			return nil, err
		}
		ce, err := num("cen_err")
		if err != nil {
			return nil, err
		}
		pk, err := num("peak")
		if err != nil {
			return nil, err
		}
		pe, err := num("peak_err")
		if err != nil {
			return nil, err
		}
		f1, err := num("fwhm1")
		if err != nil {
			return nil, err
		}
		f2, err := num("fwhm2")
		if err != nil {
			return nil, err
		}
		det = append(det, Detection{
			ID:      id,
			Cen1:    unit.AngleFromDeg(c1),
			Cen2:    unit.AngleFromDeg(c2),
			CenErr:  unit.AngleFromSec(ce),
			Peak:    pk,
			PeakErr: pe,
			FWHM1:   unit.AngleFromSec(f1),
			FWHM2:   unit.AngleFromSec(f2),
		})
	}
	return New(det, epoch, frame)
}

// metaLine parses one leading # line.  Lines without a colon are plain
// comments.
func metaLine(s string, line int, epoch *time.Time, frame *string) error {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "#"))
	key, val, ok := strings.Cut(s, ":")
	if !ok {
		return nil
	}
	val = strings.TrimSpace(val)
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "epoch":
		t, err := time.Parse(time.RFC3339, val)
		if err != nil {
			return &MalformedError{Line: line, Msg: fmt.Sprintf("invalid epoch %q", val)}
		}
		*epoch = t
	case "frame":
		*frame = val
	}
	return nil
}

func csvMalformed(err error, meta int) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &MalformedError{Line: pe.Line + meta, Msg: pe.Err.Error()}
	}
	return err
}
