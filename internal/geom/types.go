package geom

// Vec is a 2D coordinate.
type Vec [2]float64

// BBox is an axis-aligned extent in feature space.
type BBox struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// Bounds describes the display area points are projected into. Padding is
// kept free on every side.
type Bounds struct {
	Width   float64
	Height  float64
	Padding float64
}

// DefaultPadding is the display margin used when none is configured.
const DefaultPadding = 60

// LabeledPoint is a projected sample. Pos is in display space (y grows
// downwards), Raw holds the two selected feature values.
type LabeledPoint struct {
	Pos      Vec
	Raw      Vec
	Category string
}
