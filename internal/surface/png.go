package surface

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"knnviz/internal/geom"
)

// PlotOptions controls WritePNG.
type PlotOptions struct {
	Title       string
	PointRadius float64  // in points; 0 uses 3
	Categories  []string // legend order; points of other categories are not drawn
}

// WritePNG draws img as the plot background with the points on top, one
// scatter per category, and saves it to path. Display space has y growing
// downwards, so point ordinates are flipped into plot space.
func WritePNG(path string, img *Image, points []geom.LabeledPoint, colors ColorMap, opts PlotOptions) error {
	w, h := float64(img.Width), float64(img.Height)
	radius := opts.PointRadius
	if radius <= 0 {
		radius = 3
	}

	p := plot.New()
	p.HideAxes()
	if opts.Title != "" {
		p.Title.Text = opts.Title
	}
	p.Add(plotter.NewImage(img.RGBA(), 0, 0, w, h))

	for _, cat := range opts.Categories {
		xys := make(plotter.XYs, 0, len(points))
		for _, pt := range points {
			if pt.Category == cat {
				xys = append(xys, plotter.XY{X: pt.Pos[0], Y: h - pt.Pos[1]})
			}
		}
		if len(xys) == 0 {
			continue
		}
		sc, err := plotter.NewScatter(xys)
		if err != nil {
			return fmt.Errorf("scatter %q: %w", cat, err)
		}
		sc.GlyphStyle.Color = colors[cat]
		sc.GlyphStyle.Radius = vg.Points(radius)
		p.Add(sc)
		p.Legend.Add(cat, sc)
	}
	p.Legend.Top = true

	p.X.Min, p.X.Max = 0, w
	p.Y.Min, p.Y.Max = 0, h

	// vgimg renders at 96 dpi by default; keep one image pixel per output pixel.
	if err := p.Save(vg.Length(w)*vg.Inch/96, vg.Length(h)*vg.Inch/96, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}
