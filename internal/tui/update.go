package tui

import (
	"fmt"
	"strings"

	list "github.com/charmbracelet/bubbles/list"
	spinner "github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"knnviz/internal/compute"
	"knnviz/internal/dataset"
	"knnviz/internal/geom"
	"knnviz/internal/session"
)

const (
	sidebarWidth = 28
	headerHeight = 1
	footerHeight = 2
)

// surfaceMsg carries a coordinator event into the update loop.
type surfaceMsg compute.Event

// fileChangedMsg reports a write to the watched dataset.
type fileChangedMsg struct {
	path string
	ch   <-chan struct{}
}

func listenSurface(ch <-chan compute.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return surfaceMsg(ev)
	}
}

func waitForChange(path string, ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return fileChangedMsg{path: path, ch: ch}
	}
}

// layout returns the canvas origin and size in cells; it must match View.
func (m Model) layout() (originX, originY, w, h int) {
	contentHeight := max(4, m.height-headerHeight-footerHeight)
	contentWidth := max(10, m.width)
	w = contentWidth
	if m.showSidebar {
		w = contentWidth - sidebarWidth - 1
		originX = sidebarWidth + 1
	}
	return originX, headerHeight, max(8, w), contentHeight
}

// resizeCanvas pushes the current layout into the session.
func (m *Model) resizeCanvas() {
	_, _, w, h := m.layout()
	m.mapW, m.mapH = w, h
	m.l.SetSize(sidebarWidth-2, h-2)
	m.apply(session.Resize{Width: w, Height: 2 * h})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeCanvas()

	case surfaceMsg:
		switch msg.Kind {
		case compute.Completed:
			// the image may already be discarded or replaced by a newer job
			if msg.Generation == m.coord.Generation() {
				m.status = fmt.Sprintf("surface ready  k=%d stride=%d", m.sess.K(), m.sess.Stride())
			}
		case compute.Failed:
			m.apply(session.InvalidateSurface{})
			m.status = "surface failed: " + msg.Err.Error()
		}
		return m, listenSurface(m.coord.Events())

	case fileChangedMsg:
		if msg.path != m.selPath {
			// watcher of a dataset that is no longer shown
			return m, nil
		}
		m.loadPath(msg.path, false)
		return m, waitForChange(msg.path, msg.ch)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		// If list is visible and filtering, send keys to list and ignore global commands
		if m.showSidebar && m.l.FilterState() == list.Filtering {
			var cmd tea.Cmd
			m.l, cmd = m.l.Update(msg)
			return m, cmd
		}
		if m.pasteMode {
			return m.updatePaste(msg)
		}
		switch msg.String() {
		case "ctrl+c", "q":
			m.Close()
			return m, tea.Quit
		case " ", "space":
			m.apply(session.ToggleSurface{})
			m.status = fmt.Sprintf("surface: %v", m.sess.ShowSurface())
		case "up":
			if m.showSidebar {
				break
			}
			m.apply(session.AdjustK{Delta: 1})
			m.status = fmt.Sprintf("k: %d", m.sess.K())
		case "down":
			if m.showSidebar {
				break
			}
			m.apply(session.AdjustK{Delta: -1})
			m.status = fmt.Sprintf("k: %d", m.sess.K())
		case "1", "2", "3":
			i := int(msg.Runes[0] - '1')
			if i < len(m.stridePresets) {
				m.apply(session.SetStride{Stride: m.stridePresets[i]})
				m.status = fmt.Sprintf("stride: %d", m.sess.Stride())
			}
		case "[":
			m.apply(session.SetStride{Stride: m.sess.Stride() - 1})
			m.status = fmt.Sprintf("stride: %d", m.sess.Stride())
		case "]":
			m.apply(session.SetStride{Stride: m.sess.Stride() + 1})
			m.status = fmt.Sprintf("stride: %d", m.sess.Stride())
		case "x", "X", "y", "Y":
			axis, delta := session.AxisX, 1
			if k := msg.String(); k == "y" || k == "Y" {
				axis = session.AxisY
			}
			if k := msg.String(); k == "X" || k == "Y" {
				delta = -1
			}
			m.apply(session.CycleAxis{Axis: axis, Delta: delta})
			xn, yn := m.sess.AxisNames()
			m.status = fmt.Sprintf("axes: %s × %s", xn, yn)
		case "left":
			if n := len(m.sess.Categories()); n > 0 {
				m.selCat = (m.selCat - 1 + n) % n
			}
		case "right":
			if n := len(m.sess.Categories()); n > 0 {
				m.selCat = (m.selCat + 1) % n
			}
		case "t":
			cats := m.sess.Categories()
			if m.selCat < len(cats) {
				c := cats[m.selCat]
				m.apply(session.ToggleCategory{Category: c})
				m.status = fmt.Sprintf("%s: %v  points=%d", c, m.sess.Active(c), len(m.sess.Points()))
			}
		case "shift+left":
			m.moveCursor(-1, 0)
		case "shift+right":
			m.moveCursor(1, 0)
		case "shift+up":
			m.moveCursor(0, -2)
		case "shift+down":
			m.moveCursor(0, 2)
		case "c":
			w, h := m.sess.Size()
			m.hovering = w > 0 && h > 0
			m.cursor = geom.Vec{float64(w) / 2, float64(h) / 2}
		case "n":
			m.showNeighbors = !m.showNeighbors
		case "tab":
			m.showSidebar = !m.showSidebar
			if m.showSidebar {
				m.refreshDir()
			}
			m.resizeCanvas()
		case "p":
			m.pasteMode = true
			m.ta.SetValue("")
			m.status = "paste mode"
			m.ta.Focus()
			return m, nil
		case "r":
			if m.selPath == "" {
				m.status = "nothing to reload"
				break
			}
			m.loadPath(m.selPath, false)
		case "h":
			m.helpVisible = !m.helpVisible
		case "esc":
			m.showNeighbors = false
			if m.showSidebar {
				m.showSidebar = false
				m.resizeCanvas()
			}
		case "enter":
			if m.showSidebar {
				if it, ok := m.l.SelectedItem().(fileItem); ok {
					cmd := m.loadPath(it.path, true)
					return m, cmd
				}
			}
		}

	case tea.MouseMsg:
		ox, oy, w, h := m.layout()
		cx, cy := msg.X-ox, msg.Y-oy
		inside := cx >= 0 && cx < w && cy >= 0 && cy < h
		switch {
		case msg.Button == tea.MouseButtonWheelUp && msg.Action == tea.MouseActionPress:
			m.apply(session.AdjustK{Delta: 1})
			m.status = fmt.Sprintf("k: %d", m.sess.K())
		case msg.Button == tea.MouseButtonWheelDown && msg.Action == tea.MouseActionPress:
			m.apply(session.AdjustK{Delta: -1})
			m.status = fmt.Sprintf("k: %d", m.sess.K())
		case inside:
			// center of the cell; its two pixels span rows 2cy and 2cy+1
			m.hovering = true
			m.cursor = geom.Vec{float64(cx) + 0.5, float64(2*cy) + 1}
		default:
			m.hovering = false
		}
	}
	// Pass messages to list when visible
	if m.showSidebar {
		var cmd tea.Cmd
		m.l, cmd = m.l.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) updatePaste(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.pasteMode = false
		m.ta.Blur()
		m.status = "view mode"
		return m, nil
	case "ctrl+s":
		text := strings.TrimSpace(m.ta.Value())
		if text == "" {
			m.status = "paste: empty"
			return m, nil
		}
		ds, err := dataset.Parse(strings.NewReader(text), "pasted")
		if err != nil {
			m.status = "csv error: " + err.Error()
			return m, nil
		}
		m.stopWatch()
		m.selPath = ""
		m.apply(session.LoadData{Data: ds})
		m.status = fmt.Sprintf("pasted: rows=%d dropped=%d categories=%d", ds.Len(), ds.Dropped, len(ds.Categories))
		m.pasteMode = false
		m.ta.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.ta, cmd = m.ta.Update(msg)
	return m, cmd
}

// moveCursor nudges the cursor by whole cells, starting at the canvas
// center when there is no cursor yet.
func (m *Model) moveCursor(dx, dy float64) {
	w, h := m.sess.Size()
	if w == 0 || h == 0 {
		return
	}
	if !m.hovering {
		m.hovering = true
		m.cursor = geom.Vec{float64(w) / 2, float64(h) / 2}
	}
	m.cursor[0] = clamp(m.cursor[0]+dx, 0, float64(w)-0.5)
	m.cursor[1] = clamp(m.cursor[1]+dy, 0, float64(h)-1)
}
