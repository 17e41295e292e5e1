package tui

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knnviz/internal/compute"
	"knnviz/internal/geom"
	"knnviz/internal/session"
	"knnviz/internal/surface"
)

const irisLike = `sepal_length,sepal_width,petal_length,species
5.1,3.5,1.4,setosa
4.9,3.0,1.4,setosa
4.7,3.2,1.3,setosa
7.0,3.2,4.7,versicolor
6.4,3.2,4.5,versicolor
6.9,3.1,4.9,versicolor
6.3,3.3,6.0,virginica
5.8,2.7,5.1,virginica
7.1,3.0,5.9,virginica
`

func testOptions() Options {
	return Options{
		Session:       session.Options{K: 3, Stride: 2, Padding: 2},
		StridePresets: []int{1, 3, 6},
		Debounce:      10 * time.Millisecond,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func newLoaded(t *testing.T) Model {
	t.Helper()
	return newLoadedWith(t, testOptions())
}

func newLoadedWith(t *testing.T, opts Options) Model {
	t.Helper()
	path := filepath.Join(t.TempDir(), "iris.csv")
	require.NoError(t, os.WriteFile(path, []byte(irisLike), 0644))
	m := NewWithPath(path, opts)
	t.Cleanup(m.Close)
	m = send(m, tea.WindowSizeMsg{Width: 80, Height: 24})
	require.Len(t, m.sess.Points(), 9)
	return m
}

func send(m Model, msg tea.Msg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel_LoadsDatasetAndSizesCanvas(t *testing.T) {
	m := newLoaded(t)
	w, h := m.sess.Size()
	assert.Equal(t, 80, w)
	assert.Equal(t, 2*(24-headerHeight-footerHeight), h)
	assert.Contains(t, m.status, "loaded: iris.csv")
	assert.Equal(t, []string{"setosa", "versicolor", "virginica"}, m.sess.Categories())
}

func TestModel_LoadErrorKeepsData(t *testing.T) {
	m := newLoaded(t)
	cmd := m.loadPath(filepath.Join(t.TempDir(), "missing.csv"), true)
	assert.Nil(t, cmd)
	assert.Contains(t, m.status, "load error")
	assert.Len(t, m.sess.Points(), 9)
	assert.Error(t, m.sess.Err())
}

func TestModel_KeysAdjustK(t *testing.T) {
	m := newLoaded(t)
	m = send(m, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 4, m.sess.K())
	for i := 0; i < 20; i++ {
		m = send(m, tea.KeyMsg{Type: tea.KeyUp})
	}
	assert.Equal(t, 9, m.sess.K())
	for i := 0; i < 20; i++ {
		m = send(m, tea.KeyMsg{Type: tea.KeyDown})
	}
	assert.Equal(t, 1, m.sess.K())

	m = send(m, tea.MouseMsg{Button: tea.MouseButtonWheelUp, Action: tea.MouseActionPress})
	assert.Equal(t, 2, m.sess.K())
}

func TestModel_StrideKeys(t *testing.T) {
	m := newLoaded(t)
	m = send(m, runes("3"))
	assert.Equal(t, 6, m.sess.Stride())
	m = send(m, runes("["))
	assert.Equal(t, 5, m.sess.Stride())
	m = send(m, runes("1"))
	m = send(m, runes("["))
	assert.Equal(t, 1, m.sess.Stride())
	m = send(m, runes("]"))
	assert.Equal(t, 2, m.sess.Stride())
}

func TestModel_AxisAndCategoryKeys(t *testing.T) {
	m := newLoaded(t)
	m = send(m, runes("x"))
	x, y := m.sess.Axes()
	assert.Equal(t, 1, x)
	assert.Equal(t, 1, y)
	m = send(m, runes("Y"))
	_, y = m.sess.Axes()
	assert.Equal(t, 0, y)

	m = send(m, tea.KeyMsg{Type: tea.KeyRight})
	m = send(m, runes("t"))
	assert.False(t, m.sess.Active("versicolor"))
	assert.Len(t, m.sess.Points(), 6)

	m = send(m, tea.KeyMsg{Type: tea.KeyLeft})
	m = send(m, tea.KeyMsg{Type: tea.KeyLeft})
	assert.Equal(t, 2, m.selCat)
}

func TestModel_SurfaceToggleRendersInBackground(t *testing.T) {
	m := newLoaded(t)
	m = send(m, runes(" "))
	require.True(t, m.sess.ShowSurface())

	var ev compute.Event
	require.Eventually(t, func() bool {
		select {
		case ev = <-m.coord.Events():
			return ev.Kind == compute.Completed
		default:
			return false
		}
	}, 2*time.Second, 5*time.Millisecond)
	m = send(m, surfaceMsg(ev))
	assert.Contains(t, m.status, "surface ready")

	w, h := m.sess.Size()
	assert.NotNil(t, m.surfaceImage(w, h))
	gen := m.coord.Generation()

	// resizing replaces the image with one of the new size
	m = send(m, tea.WindowSizeMsg{Width: 60, Height: 20})
	w, h = m.sess.Size()
	require.Eventually(t, func() bool { return m.coord.Generation() > gen }, 2*time.Second, 5*time.Millisecond)
	img := m.surfaceImage(w, h)
	require.NotNil(t, img)
	assert.Equal(t, 60, img.Width)
}

func TestModel_StrideChangeOverridesPendingKChange(t *testing.T) {
	opts := testOptions()
	opts.Debounce = 150 * time.Millisecond
	m := newLoadedWith(t, opts)
	m = send(m, runes(" "))
	require.Eventually(t, func() bool { return m.coord.Generation() > 0 }, 2*time.Second, 5*time.Millisecond)

	m = send(m, tea.KeyMsg{Type: tea.KeyUp})
	require.True(t, m.coord.Pending())
	m = send(m, runes("3"))
	require.Equal(t, 6, m.sess.Stride())
	require.Equal(t, 4, m.sess.K())

	require.Eventually(t, func() bool {
		return m.coord.Generation() > 0 && !m.coord.Busy() && !m.coord.Pending()
	}, 2*time.Second, 5*time.Millisecond)
	gen := m.coord.Generation()
	assert.Never(t, func() bool { return m.coord.Generation() != gen }, 300*time.Millisecond, 10*time.Millisecond)

	want, err := surface.Rasterize(m.sess.Points(), m.sess.Params())
	require.NoError(t, err)
	got, ok := m.coord.Surface()
	require.True(t, ok)
	assert.Equal(t, want.Pix, got.Pix)
}

func TestModel_StaleCompletionDoesNotReportReady(t *testing.T) {
	m := newLoaded(t)
	m.status = "k: 4"
	m = send(m, surfaceMsg{Kind: compute.Completed, Generation: 99})
	assert.Equal(t, "k: 4", m.status)
}

func TestModel_SurfaceOutcomeInFooter(t *testing.T) {
	m := newLoaded(t)
	m = send(m, runes(" "))
	m.coord.Discard()
	m.coord.Request(compute.Job{Params: surface.Params{K: 1, Stride: 0, Width: 4, Height: 4}})
	require.Eventually(t, func() bool { return !m.coord.Busy() }, 2*time.Second, 5*time.Millisecond)
	require.Equal(t, compute.Failed, m.coord.LastOutcome())
	assert.Contains(t, m.View(), "surface (failed)")
}

func TestModel_SurfaceFailureAllowsRetry(t *testing.T) {
	m := newLoaded(t)
	m = send(m, runes(" "))
	m = send(m, surfaceMsg{Kind: compute.Failed, Err: assert.AnError})
	assert.Contains(t, m.status, "surface failed")

	m = send(m, runes(" "))
	assert.Equal(t, session.RequestNow, m.sess.Apply(session.ToggleSurface{}))
}

func TestModel_MouseHoverClassifies(t *testing.T) {
	m := newLoaded(t)
	p := m.sess.Points()[0]
	cx, cy := int(p.Pos[0]), int(p.Pos[1])/2
	m = send(m, tea.MouseMsg{X: cx, Y: cy + headerHeight, Action: tea.MouseActionMotion})
	require.True(t, m.hovering)
	assert.Equal(t, geom.Vec{float64(cx) + 0.5, float64(2*cy) + 1}, m.cursor)

	view := m.View()
	assert.Contains(t, view, "k=3")
	assert.Contains(t, view, "pred=")
	assert.Contains(t, view, string(glyphCursor))

	m = send(m, tea.MouseMsg{X: 0, Y: 0, Action: tea.MouseActionMotion})
	assert.False(t, m.hovering)
}

func TestModel_NeighborTable(t *testing.T) {
	m := newLoaded(t)
	m = send(m, runes("c"))
	m = send(m, runes("n"))
	require.True(t, m.showNeighbors)
	view := m.View()
	assert.Contains(t, view, "distance")
	assert.Contains(t, view, "sepal_length")
}

func TestModel_PasteCSV(t *testing.T) {
	m := newLoaded(t)
	m = send(m, runes("p"))
	require.True(t, m.pasteMode)
	m.ta.SetValue("a,b,label\n1,2,x\n3,4,y\n5,6,x\n")
	m = send(m, tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.False(t, m.pasteMode)
	assert.Empty(t, m.selPath)
	assert.Len(t, m.sess.Points(), 3)
	assert.Equal(t, "pasted", m.sess.Data().Source)

	m = send(m, runes("p"))
	m.ta.SetValue("only,label\n1,x\n")
	m = send(m, tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.True(t, m.pasteMode)
	assert.Contains(t, m.status, "csv error")
	m = send(m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.pasteMode)
}

func TestModel_ReloadsOnFileChange(t *testing.T) {
	m := newLoaded(t)
	extra := irisLike + "6.0,2.2,5.0,virginica\n"
	require.NoError(t, os.WriteFile(m.selPath, []byte(extra), 0644))

	m = send(m, fileChangedMsg{path: m.selPath, ch: make(chan struct{})})
	assert.Len(t, m.sess.Points(), 10)

	// a watcher for another file is ignored
	m = send(m, fileChangedMsg{path: "/elsewhere.csv", ch: make(chan struct{})})
	assert.Len(t, m.sess.Points(), 10)
}

func TestModel_ViewWithoutData(t *testing.T) {
	m := New(testOptions())
	t.Cleanup(m.Close)
	assert.Empty(t, m.View())
	m = send(m, tea.WindowSizeMsg{Width: 70, Height: 16})
	view := m.View()
	assert.Contains(t, view, "open a CSV")
	assert.LessOrEqual(t, len(strings.Split(view, "\n")), 16)
}

func TestBraille_Circle(t *testing.T) {
	b := newBrailleBuf(10, 5)
	b.drawCircleMicro(10, 10, 4)
	// the four extreme dots of the circle
	assert.NotZero(t, b.mask(7, 2))  // (14,10)
	assert.NotZero(t, b.mask(3, 2))  // (6,10)
	assert.NotZero(t, b.mask(5, 3))  // (10,14)
	assert.NotZero(t, b.mask(5, 1))  // (10,6)
	assert.Zero(t, b.mask(5, 2)&0x01) // center cell's top-left dot (10,8) stays clear
	assert.Zero(t, b.mask(-1, 0))
}
