// Package session holds the interactive state of a knnviz view: the dataset,
// the selected axes, the active categories, k, the sampling stride, the
// canvas size and whether the decision surface is shown.
//
// State only changes through Apply. Every command reports, as an Effect bit
// set, which derived state it invalidated and what the caller should do
// about the surface; the session itself never starts work.
package session

import (
	"image/color"
	"slices"

	"knnviz/internal/compute"
	"knnviz/internal/dataset"
	"knnviz/internal/geom"
	"knnviz/internal/knn"
	"knnviz/internal/surface"
)

// Defaults for a new session.
const (
	DefaultK      = 3
	DefaultStride = 10
)

// Effect is a bit set returned by Apply.
type Effect uint8

const (
	// PointsChanged: the projected point set was rebuilt.
	PointsChanged Effect = 1 << iota
	// SurfaceStale: the current surface image no longer matches the state
	// and must be discarded.
	SurfaceStale
	// RequestNow: start a surface job immediately.
	RequestNow
	// RequestDebounced: schedule a surface job after the quiet period.
	RequestDebounced
)

// Has reports whether all bits of f are set.
func (e Effect) Has(f Effect) bool { return e&f == f }

// Options seed a Session. Zero values select defaults.
type Options struct {
	K          int
	Stride     int
	Padding    float64
	Palette    []color.RGBA
	Background color.RGBA
}

// Session is the explicit view state. It is not safe for concurrent use;
// the display layer owns it.
type Session struct {
	padding    float64
	palette    []color.RGBA
	background color.RGBA

	data   *dataset.Dataset
	xAxis  int
	yAxis  int
	active map[string]bool
	colors surface.ColorMap

	k      int
	stride int
	width  int
	height int

	showSurface bool
	// surfaceValid is true while a surface for the current state exists or
	// has been requested.
	surfaceValid bool

	points  []geom.LabeledPoint
	proj    geom.Projection
	projOK  bool
	lastErr error
}

// New returns a session over data, which may be nil.
func New(data *dataset.Dataset, opts Options) *Session {
	if opts.K < 1 {
		opts.K = DefaultK
	}
	if opts.Stride < 1 {
		opts.Stride = DefaultStride
	}
	if opts.Padding < 0 {
		opts.Padding = 0
	}
	if len(opts.Palette) == 0 {
		pal, _ := surface.ParsePalette(surface.DefaultPalette)
		opts.Palette = pal
	}
	if opts.Background == (color.RGBA{}) {
		opts.Background = surface.DefaultBackground
	}
	s := &Session{
		padding:    opts.Padding,
		palette:    opts.Palette,
		background: opts.Background,
		k:          opts.K,
		stride:     opts.Stride,
	}
	s.load(data)
	s.rebuild()
	return s
}

// Command is implemented by the command types below.
type Command interface {
	command()
}

// LoadData replaces the dataset. Axes and category toggles survive when the
// new dataset has the same feature columns.
type LoadData struct{ Data *dataset.Dataset }

// SetAxes selects the feature columns for the horizontal and vertical axis.
type SetAxes struct{ X, Y int }

// Axis names one of the two projected axes.
type Axis int

const (
	AxisX Axis = iota
	AxisY
)

// CycleAxis moves one axis to the next (Delta > 0) or previous feature.
type CycleAxis struct {
	Axis  Axis
	Delta int
}

// ToggleCategory flips whether a category takes part in the point set.
type ToggleCategory struct{ Category string }

// AdjustK changes k by Delta.
type AdjustK struct{ Delta int }

// SetK sets k.
type SetK struct{ K int }

// SetStride sets the rasterizer block size.
type SetStride struct{ Stride int }

// Resize sets the canvas size in pixels.
type Resize struct{ Width, Height int }

// ToggleSurface shows or hides the decision surface.
type ToggleSurface struct{}

// InvalidateSurface forgets the surface request, e.g. after a failed job, so
// the next ToggleSurface asks again.
type InvalidateSurface struct{}

func (LoadData) command()          {}
func (SetAxes) command()           {}
func (CycleAxis) command()         {}
func (ToggleCategory) command()    {}
func (AdjustK) command()           {}
func (SetK) command()              {}
func (SetStride) command()         {}
func (Resize) command()            {}
func (ToggleSurface) command()     {}
func (InvalidateSurface) command() {}

// Apply runs cmd and reports its effects.
func (s *Session) Apply(cmd Command) Effect {
	switch c := cmd.(type) {
	case LoadData:
		s.load(c.Data)
		return s.pointsChanged()

	case SetAxes:
		n := s.featureCount()
		if c.X < 0 || c.X >= n || c.Y < 0 || c.Y >= n {
			return 0
		}
		if c.X == s.xAxis && c.Y == s.yAxis {
			return 0
		}
		s.xAxis, s.yAxis = c.X, c.Y
		return s.pointsChanged()

	case CycleAxis:
		n := s.featureCount()
		if n == 0 || c.Delta == 0 {
			return 0
		}
		ax := &s.xAxis
		if c.Axis == AxisY {
			ax = &s.yAxis
		}
		*ax = ((*ax+c.Delta)%n + n) % n
		return s.pointsChanged()

	case ToggleCategory:
		if s.active == nil {
			return 0
		}
		if _, ok := s.active[c.Category]; !ok {
			return 0
		}
		s.active[c.Category] = !s.active[c.Category]
		return s.pointsChanged()

	case AdjustK:
		return s.setK(s.k + c.Delta)

	case SetK:
		return s.setK(c.K)

	case SetStride:
		stride := max(c.Stride, 1)
		if stride == s.stride {
			return 0
		}
		s.stride = stride
		if s.showSurface {
			s.surfaceValid = true
			return RequestNow
		}
		s.surfaceValid = false
		return SurfaceStale

	case Resize:
		w, h := max(c.Width, 0), max(c.Height, 0)
		if w == s.width && h == s.height {
			return 0
		}
		s.width, s.height = w, h
		return s.pointsChanged()

	case ToggleSurface:
		s.showSurface = !s.showSurface
		if s.showSurface && !s.surfaceValid {
			s.surfaceValid = true
			return RequestNow
		}
		return 0

	case InvalidateSurface:
		s.surfaceValid = false
		return 0
	}
	return 0
}

func (s *Session) setK(k int) Effect {
	k = clampK(k, len(s.points))
	if k == s.k {
		return 0
	}
	s.k = k
	if s.showSurface {
		s.surfaceValid = true
		return SurfaceStale | RequestDebounced
	}
	s.surfaceValid = false
	return SurfaceStale
}

func (s *Session) pointsChanged() Effect {
	s.rebuild()
	eff := PointsChanged | SurfaceStale
	if s.showSurface {
		s.surfaceValid = true
		return eff | RequestNow
	}
	s.surfaceValid = false
	return eff
}

// load installs data, keeping axes and toggles when the feature columns are
// unchanged.
func (s *Session) load(data *dataset.Dataset) {
	prev := s.data
	prevActive := s.active
	s.data = data
	if data == nil {
		s.active = nil
		s.colors = surface.ColorMap{}
		return
	}

	sameColumns := prev != nil && slices.Equal(prev.Features, data.Features)
	if !sameColumns || s.xAxis >= len(data.Features) || s.yAxis >= len(data.Features) {
		s.xAxis, s.yAxis = 0, 1
	}

	s.active = make(map[string]bool, len(data.Categories))
	for _, c := range data.Categories {
		on, seen := prevActive[c]
		s.active[c] = !sameColumns || !seen || on
	}
	s.colors = surface.NewColorMap(data.Categories, s.palette)
}

// rebuild reprojects the active rows and clamps k against the result. k is
// left alone until there is both data and a canvas to project onto.
func (s *Session) rebuild() {
	s.points, s.projOK = nil, false
	if s.data == nil || s.width <= 0 || s.height <= 0 {
		return
	}
	b := geom.Bounds{
		Width:   float64(s.width),
		Height:  float64(s.height),
		Padding: s.effectivePadding(),
	}
	s.proj, s.projOK = geom.Fit(s.data.Rows, s.xAxis, s.yAxis, s.active, b)
	s.points = geom.Project(s.data.Rows, s.xAxis, s.yAxis, s.active, b)
	s.k = clampK(s.k, len(s.points))
}

// effectivePadding keeps at least half of the shorter canvas side drawable.
func (s *Session) effectivePadding() float64 {
	limit := float64(min(s.width, s.height)) / 4
	return min(s.padding, limit)
}

func (s *Session) featureCount() int {
	if s.data == nil {
		return 0
	}
	return len(s.data.Features)
}

// clampK bounds k to [1, n], and to 1 when there are no points.
func clampK(k, n int) int {
	if k > n {
		k = n
	}
	return max(k, 1)
}

// Classify runs the interactive k-NN query at a display position. ok is
// false when no points are active.
func (s *Session) Classify(pos geom.Vec) (res knn.Result, ok bool) {
	if len(s.points) == 0 {
		return knn.Result{}, false
	}
	return knn.Classify(pos, s.points, s.k), true
}

// ToFeature maps a display position back to feature space.
func (s *Session) ToFeature(pos geom.Vec) (geom.Vec, bool) {
	if !s.projOK {
		return geom.Vec{}, false
	}
	return s.proj.ToFeature(pos), true
}

// ToDisplay maps a feature-space position into display space.
func (s *Session) ToDisplay(raw geom.Vec) (geom.Vec, bool) {
	if !s.projOK {
		return geom.Vec{}, false
	}
	return s.proj.ToDisplay(raw), true
}

// Params returns the rasterizer parameters for the current state. Colors
// is shared with the session; use Job for a snapshot.
func (s *Session) Params() surface.Params {
	return surface.Params{
		K:          s.k,
		Stride:     s.stride,
		Width:      s.width,
		Height:     s.height,
		Colors:     s.colors,
		Background: s.background,
	}
}

// Job snapshots the current state for the compute coordinator.
func (s *Session) Job() compute.Job {
	return compute.NewJob(s.points, s.Params())
}

// Points returns the active point set. Callers must not modify it.
func (s *Session) Points() []geom.LabeledPoint { return s.points }

func (s *Session) K() int { return s.k }

func (s *Session) Stride() int { return s.stride }

// Size returns the canvas size in pixels.
func (s *Session) Size() (w, h int) { return s.width, s.height }

func (s *Session) ShowSurface() bool { return s.showSurface }

func (s *Session) Data() *dataset.Dataset { return s.data }

// Colors returns the category colors. Callers must not modify the map.
func (s *Session) Colors() surface.ColorMap { return s.colors }

func (s *Session) Background() color.RGBA { return s.background }

// Axes returns the selected feature indices.
func (s *Session) Axes() (x, y int) { return s.xAxis, s.yAxis }

// AxisNames returns the selected feature names, empty without data.
func (s *Session) AxisNames() (x, y string) {
	if s.data == nil {
		return "", ""
	}
	return s.data.Features[s.xAxis], s.data.Features[s.yAxis]
}

// Categories lists the dataset's categories in sorted order.
func (s *Session) Categories() []string {
	if s.data == nil {
		return nil
	}
	return s.data.Categories
}

// Active reports whether a category takes part in the point set.
func (s *Session) Active(category string) bool { return s.active[category] }

// SetError records the last load error for display; nil clears it.
func (s *Session) SetError(err error) { s.lastErr = err }

// Err returns the last recorded load error.
func (s *Session) Err() error { return s.lastErr }
