package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Load reads a CSV dataset from path.
func Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f, filepath.Base(path))
}

// Parse reads a CSV dataset. Rows with the wrong number of fields or with a
// feature that is not a number are skipped.
func Parse(r io.Reader, name string) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: %w", name, ErrNoData)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", name, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	if len(header)-1 < 2 {
		return nil, fmt.Errorf("%s: %w", name, ErrTooFewFeatures)
	}

	d := &Dataset{
		Source:   name,
		Features: header[:len(header)-1],
		Label:    header[len(header)-1],
	}
	seen := map[string]bool{}
	lines := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				lines++
				d.Dropped++
				continue
			}
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		lines++
		row, ok := parseRow(rec, len(header))
		if !ok {
			d.Dropped++
			continue
		}
		d.Rows = append(d.Rows, row)
		if !seen[row.Label] {
			seen[row.Label] = true
			d.Categories = append(d.Categories, row.Label)
		}
	}
	if lines == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrNoData)
	}
	if len(d.Rows) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrNoValidRows)
	}
	sort.Strings(d.Categories)
	return d, nil
}

func parseRow(rec []string, width int) (Row, bool) {
	if len(rec) != width {
		return Row{}, false
	}
	feats := make([]float64, width-1)
	for i := 0; i < width-1; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
		if err != nil || math.IsNaN(v) {
			return Row{}, false
		}
		feats[i] = v
	}
	return Row{Features: feats, Label: strings.TrimSpace(rec[width-1])}, true
}
