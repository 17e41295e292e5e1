// Package tui is the interactive terminal front end of knnviz.
//
// The canvas packs two vertical pixels into every terminal cell with the
// upper half block, so a cols x rows canvas is cols x 2*rows pixels in the
// session's display space.
package tui

import (
	"context"
	"log/slog"
	"os"
	"time"

	list "github.com/charmbracelet/bubbles/list"
	spinner "github.com/charmbracelet/bubbles/spinner"
	table "github.com/charmbracelet/bubbles/table"
	textarea "github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"knnviz/internal/compute"
	"knnviz/internal/geom"
	"knnviz/internal/session"
)

// Options configures a Model.
type Options struct {
	Session       session.Options
	StridePresets []int         // bound to keys 1, 2, 3
	Debounce      time.Duration // surface recompute debounce
	WatchDebounce time.Duration // dataset file change debounce
	Workers       int
	Logger        *slog.Logger
}

type Model struct {
	width  int
	height int

	showSidebar bool
	helpVisible bool

	status string
	logger *slog.Logger

	// File explorer
	cwd     string
	l       list.Model
	items   []list.Item
	selPath string

	sess          *session.Session
	coord         *compute.Coordinator
	stridePresets []int

	// dataset watcher for selPath
	watchDebounce time.Duration
	watchCancel   context.CancelFunc

	// last laid out canvas size in cells
	mapW int
	mapH int

	// paste mode
	pasteMode bool
	ta        textarea.Model

	// cursor in display pixels
	hovering bool
	cursor   geom.Vec

	// legend selection for category toggles
	selCat int

	// neighbor table
	showNeighbors bool
	tbl           table.Model

	spin spinner.Model

	initCmd tea.Cmd
}

func New(opts Options) Model {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	presets := opts.StridePresets
	if len(presets) == 0 {
		presets = []int{1, 4, 10}
	}
	if opts.WatchDebounce <= 0 {
		opts.WatchDebounce = 200 * time.Millisecond
	}
	m := Model{
		helpVisible:   true,
		status:        "knnviz ready",
		logger:        logger.With("component", "tui"),
		sess:          session.New(nil, opts.Session),
		stridePresets: presets,
		watchDebounce: opts.WatchDebounce,
		coord: compute.New(compute.Options{
			Debounce: opts.Debounce,
			Workers:  opts.Workers,
			Logger:   logger,
		}),
	}
	m.cwd, _ = os.Getwd()
	// list setup
	d := list.NewDefaultDelegate()
	d.ShowDescription = false
	m.l = list.New(nil, d, 0, 0)
	m.l.Title = "Datasets"
	m.l.SetShowHelp(false)
	m.l.SetShowStatusBar(false)
	m.l.SetFilteringEnabled(true)
	// textarea setup
	m.ta = textarea.New()
	m.ta.Placeholder = "Paste CSV here: header row, numeric features, label in the last column. Ctrl+S to load; Esc to cancel."
	m.ta.CharLimit = 0
	m.ta.SetWidth(50)
	m.ta.SetHeight(6)
	// neighbor table setup
	m.tbl = table.New(table.WithFocused(false))
	m.tbl.SetHeight(12)
	// busy indicator
	m.spin = spinner.New(spinner.WithSpinner(spinner.MiniDot), spinner.WithStyle(accentStyle))
	m.refreshDir()
	return m
}

// NewWithPath preloads and watches a dataset at launch.
func NewWithPath(path string, opts Options) Model {
	m := New(opts)
	m.initCmd = m.loadPath(path, true)
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, listenSurface(m.coord.Events()), m.initCmd)
}

// Close stops the dataset watcher and the compute coordinator.
func (m Model) Close() {
	if m.watchCancel != nil {
		m.watchCancel()
	}
	m.coord.Close()
}

// Session exposes the view state, mainly for the CLI and tests.
func (m Model) Session() *session.Session { return m.sess }

// apply runs a session command and carries out its surface effects.
func (m *Model) apply(cmd session.Command) session.Effect {
	eff := m.sess.Apply(cmd)
	if eff.Has(session.SurfaceStale) {
		m.coord.Discard()
	}
	switch {
	case eff.Has(session.RequestNow):
		m.coord.Request(m.sess.Job())
	case eff.Has(session.RequestDebounced):
		m.coord.Schedule(m.sess.Job())
	}
	if eff.Has(session.PointsChanged) {
		if n := len(m.sess.Categories()); m.selCat >= n {
			m.selCat = max(0, n-1)
		}
	}
	return eff
}
