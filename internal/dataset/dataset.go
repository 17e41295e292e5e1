// Package dataset imports labeled tabular data for the classifier.
//
// The accepted format is comma-separated text with a header row. The last
// column is the category label, every other column is a numeric feature.
package dataset

import "errors"

var (
	// ErrNoData indicates the input has no header or no data lines.
	ErrNoData = errors.New("dataset: need a header row and at least one data row")
	// ErrTooFewFeatures indicates fewer than two feature columns.
	ErrTooFewFeatures = errors.New("dataset: at least two feature columns are required")
	// ErrNoValidRows indicates every data row was dropped.
	ErrNoValidRows = errors.New("dataset: no valid data rows")
)

// Row is one labeled sample in feature space.
type Row struct {
	Features []float64
	Label    string
}

// Dataset is an imported table. Rows keep source order.
type Dataset struct {
	Source     string
	Features   []string // feature column names, in column order
	Label      string   // label column name
	Rows       []Row
	Categories []string // unique labels, sorted
	Dropped    int      // rows skipped for a field-count or number mismatch
}

// FeatureIndex returns the column index of a feature name, or -1.
func (d *Dataset) FeatureIndex(name string) int {
	for i, f := range d.Features {
		if f == name {
			return i
		}
	}
	return -1
}

// Len returns the number of valid rows.
func (d *Dataset) Len() int { return len(d.Rows) }
