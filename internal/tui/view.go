package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"knnviz/internal/compute"
	"knnviz/internal/knn"
)

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	// Layout sizes
	_, _, mapWidth, mapHeight := m.layout()
	contentWidth := max(10, m.width)

	// Header
	source := "no dataset"
	if d := m.sess.Data(); d != nil {
		source = d.Source
	}
	header := titleStyle.Render(" knnviz ─ k-nearest-neighbor visualizer ") + dimStyle.Render(" "+source)
	header = lipgloss.NewStyle().MaxWidth(contentWidth).Render(header)

	// Sidebar
	var sidebar string
	if m.showSidebar {
		m.l.SetSize(sidebarWidth-2, mapHeight-2)
		sidebar = lipgloss.NewStyle().Width(sidebarWidth).Render(m.l.View())
	}

	// Interactive classification of the cursor, once per frame
	var res knn.Result
	classified := false
	if m.hovering {
		res, classified = m.sess.Classify(m.cursor)
	}

	var canvas string
	switch {
	case m.pasteMode:
		m.ta.SetWidth(mapWidth)
		m.ta.SetHeight(min(mapHeight, 12))
		canvas = m.ta.View()
	case m.showNeighbors:
		var inner string
		if classified {
			m.refreshNeighbors(res)
			m.tbl.SetHeight(min(mapHeight-2, len(res.Neighbors)+1))
			inner = m.tbl.View()
		} else {
			inner = dimStyle.Render("move the cursor over the canvas to list its neighbors")
		}
		box := boxStyle.MaxWidth(mapWidth).Render(inner)
		canvas = lipgloss.Place(mapWidth, mapHeight, lipgloss.Center, lipgloss.Center, box)
	case m.sess.Data() == nil:
		hint := dimStyle.Render("tab: open a CSV file   p: paste CSV")
		if err := m.sess.Err(); err != nil {
			hint = errStyle.Render(err.Error()) + "\n" + hint
		}
		canvas = lipgloss.Place(mapWidth, mapHeight, lipgloss.Center, lipgloss.Center, hint)
	default:
		canvas = m.renderCanvas(mapWidth, mapHeight, res, classified)
	}
	mapView := lipgloss.NewStyle().Width(mapWidth).Height(mapHeight).MaxHeight(mapHeight).Render(canvas)

	// Body row
	body := mapView
	if m.showSidebar {
		body = lipgloss.JoinHorizontal(lipgloss.Top, sidebar, " ", mapView)
	}

	// Footer: parameters and status, then legend and help
	clip := lipgloss.NewStyle().MaxWidth(contentWidth)
	params := m.renderParams(res, classified)
	status := dimStyle.Render(" " + m.status + " ")
	spacerW := max(0, contentWidth-lipgloss.Width(params)-lipgloss.Width(status))
	line1 := clip.Render(params + strings.Repeat(" ", spacerW) + status)
	line2 := clip.Render(m.renderLegend() + m.renderHelp())
	footer := lipgloss.JoinVertical(lipgloss.Left, line1, line2)

	ui := lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
	return appStyle.Width(contentWidth).Height(m.height).MaxHeight(m.height).Render(ui)
}

func (m Model) renderParams(res knn.Result, classified bool) string {
	xn, yn := m.sess.AxisNames()
	parts := []string{
		fmt.Sprintf("k=%d", m.sess.K()),
		fmt.Sprintf("stride=%d", m.sess.Stride()),
	}
	if xn != "" {
		parts = append(parts, fmt.Sprintf("%s × %s", xn, yn))
	}
	if classified {
		parts = append(parts, "pred="+swatch(m.sess.Colors()[res.Prediction], " "+res.Prediction+" "))
		if raw, ok := m.sess.ToFeature(m.cursor); ok {
			parts = append(parts, fmt.Sprintf("at (%.3g, %.3g)", raw[0], raw[1]))
		}
	}
	if m.sess.ShowSurface() {
		label := "surface"
		if _, ok := m.coord.Surface(); !ok && !m.coord.Busy() && !m.coord.Pending() {
			switch last := m.coord.LastOutcome(); last {
			case compute.Cancelled, compute.Failed:
				label += " (" + last.String() + ")"
			}
		}
		parts = append(parts, label)
	}
	out := " " + strings.Join(parts, "  ")
	if m.coord.Busy() || m.coord.Pending() {
		out += " " + m.spin.View()
	}
	return out
}

func (m Model) renderLegend() string {
	cats := m.sess.Categories()
	if len(cats) == 0 {
		return ""
	}
	colors := m.sess.Colors()
	items := make([]string, 0, len(cats))
	for i, c := range cats {
		label := " " + c + " "
		if i == m.selCat {
			label = "›" + c + "‹"
		}
		if m.sess.Active(c) {
			items = append(items, swatch(colors[c], label))
		} else {
			items = append(items, inactiveStyle.Render(label))
		}
	}
	return " " + strings.Join(items, " ")
}

func (m Model) renderHelp() string {
	if !m.helpVisible {
		return ""
	}
	keys := []string{
		"space surface",
		"↑↓ k",
		"1-3 [ ] stride",
		"x/y axes",
		"←→ t category",
		"n neighbors",
		"Tab files",
		"p paste",
		"r reload",
		"h help",
		"q quit",
	}
	return dimStyle.Render("  " + strings.Join(keys, "  "))
}
