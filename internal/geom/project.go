package geom

import (
	"gonum.org/v1/gonum/floats"

	"knnviz/internal/dataset"
)

// Projection maps between the two selected feature axes and display space.
type Projection struct {
	BBox   BBox
	Bounds Bounds
}

// Fit computes the feature ranges of the rows whose label is in active. A nil
// active map accepts every label. ok is false when no row passes the filter.
func Fit(rows []dataset.Row, x, y int, active map[string]bool, b Bounds) (p Projection, ok bool) {
	xs := make([]float64, 0, len(rows))
	ys := make([]float64, 0, len(rows))
	for _, r := range rows {
		if !accepts(active, r.Label) {
			continue
		}
		xs = append(xs, r.Features[x])
		ys = append(ys, r.Features[y])
	}
	if len(xs) == 0 {
		return Projection{Bounds: b}, false
	}
	p = Projection{
		BBox: BBox{
			MinX: floats.Min(xs),
			MinY: floats.Min(ys),
			MaxX: floats.Max(xs),
			MaxY: floats.Max(ys),
		},
		Bounds: b,
	}
	return p, true
}

// Project filters rows to the active labels and maps the selected feature
// pair into display space. The result is empty, not an error, when nothing
// passes the filter.
func Project(rows []dataset.Row, x, y int, active map[string]bool, b Bounds) []LabeledPoint {
	p, ok := Fit(rows, x, y, active, b)
	if !ok {
		return nil
	}
	pts := make([]LabeledPoint, 0, len(rows))
	for _, r := range rows {
		if !accepts(active, r.Label) {
			continue
		}
		raw := Vec{r.Features[x], r.Features[y]}
		pts = append(pts, LabeledPoint{Pos: p.ToDisplay(raw), Raw: raw, Category: r.Label})
	}
	return pts
}

// ToDisplay maps a feature-space pair into display space. The vertical axis
// is inverted so larger values sit higher on screen. A constant axis maps to
// the middle of the drawable area.
func (p Projection) ToDisplay(raw Vec) Vec {
	nx := normalize(raw[0], p.BBox.MinX, p.BBox.MaxX)
	ny := normalize(raw[1], p.BBox.MinY, p.BBox.MaxY)
	pad := p.Bounds.Padding
	w := p.Bounds.Width - pad*2
	h := p.Bounds.Height - pad*2
	return Vec{pad + nx*w, p.Bounds.Height - pad - ny*h}
}

// ToFeature is the inverse of ToDisplay. A constant axis maps back to its
// single value.
func (p Projection) ToFeature(pos Vec) Vec {
	pad := p.Bounds.Padding
	w := p.Bounds.Width - pad*2
	h := p.Bounds.Height - pad*2
	var nx, ny float64
	if w > 0 {
		nx = (pos[0] - pad) / w
	}
	if h > 0 {
		ny = (p.Bounds.Height - pad - pos[1]) / h
	}
	return Vec{
		p.BBox.MinX + nx*(p.BBox.MaxX-p.BBox.MinX),
		p.BBox.MinY + ny*(p.BBox.MaxY-p.BBox.MinY),
	}
}

func normalize(v, lo, hi float64) float64 {
	if hi == lo {
		return 0.5
	}
	return (v - lo) / (hi - lo)
}

func accepts(active map[string]bool, label string) bool {
	return active == nil || active[label]
}
