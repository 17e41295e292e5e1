package surface

import (
	"fmt"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"

	"knnviz/internal/geom"
)

// DefaultPalette is assigned to categories in sorted order.
var DefaultPalette = []string{
	"#e74c3c", // red
	"#3498db", // blue
	"#f1c40f", // yellow
	"#2ecc71", // green
	"#9b59b6", // purple
	"#e67e22", // orange
	"#1abc9c", // teal
	"#e84393", // pink
	"#16a085", // dark teal
	"#d35400", // dark orange
}

// DefaultBackground fills pixels with no point data behind them.
var DefaultBackground = color.RGBA{R: 26, G: 26, B: 26, A: 255}

// ColorMap assigns a color to every category.
type ColorMap map[string]color.RGBA

// NewColorMap assigns palette entries to categories by position, wrapping
// around when there are more categories than colors.
func NewColorMap(categories []string, palette []color.RGBA) ColorMap {
	m := make(ColorMap, len(categories))
	if len(palette) == 0 {
		return m
	}
	for i, c := range categories {
		m[c] = palette[i%len(palette)]
	}
	return m
}

// Check reports the first point whose category has no entry.
func (m ColorMap) Check(points []geom.LabeledPoint) error {
	for _, p := range points {
		if _, ok := m[p.Category]; !ok {
			return fmt.Errorf("%w: %q", ErrMissingColor, p.Category)
		}
	}
	return nil
}

// Clone returns an independent copy.
func (m ColorMap) Clone() ColorMap {
	out := make(ColorMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ParseHex parses a #rrggbb color.
func ParseHex(s string) (color.RGBA, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrBadColor, s)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}

// ParsePalette parses a list of #rrggbb colors.
func ParsePalette(hexes []string) ([]color.RGBA, error) {
	out := make([]color.RGBA, 0, len(hexes))
	for _, h := range hexes {
		c, err := ParseHex(h)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Hex formats c as #rrggbb, ignoring alpha.
func Hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// TextColor picks a dark or a light foreground that stays readable on c.
func TextColor(c color.RGBA) color.RGBA {
	cf, _ := colorful.MakeColor(color.RGBA{R: c.R, G: c.G, B: c.B, A: 255})
	l, _, _ := cf.Lab()
	if l > 0.65 {
		return color.RGBA{R: 17, G: 17, B: 17, A: 255}
	}
	return color.RGBA{R: 255, G: 255, B: 255, A: 255}
}
