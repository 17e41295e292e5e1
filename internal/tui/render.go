package tui

import (
	"image/color"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"knnviz/internal/geom"
	"knnviz/internal/knn"
	"knnviz/internal/surface"
)

const (
	glyphHalf   = '▀'
	glyphPoint  = '●'
	glyphCursor = '◯'
)

var (
	overlayFg  = color.RGBA{R: 208, G: 208, B: 208, A: 255}
	cursorIdle = color.RGBA{R: 255, G: 165, B: 0, A: 255}
)

type cell struct {
	glyph  rune
	fg, bg color.RGBA
}

// micro maps a display pixel to the braille microgrid. A pixel is one cell
// wide and half a cell tall, i.e. 2x2 dots.
func micro(p geom.Vec) (int, int) {
	return int(math.Round(p[0] * 2)), int(math.Round(p[1] * 2))
}

// surfaceImage returns the published surface when it is shown and matches
// the canvas.
func (m Model) surfaceImage(pw, ph int) *surface.Image {
	if !m.sess.ShowSurface() {
		return nil
	}
	img, ok := m.coord.Surface()
	if !ok || img.Width != pw || img.Height != ph {
		return nil
	}
	return img
}

// renderCanvas composes, bottom to top: surface or background half blocks,
// the braille neighborhood of the cursor, the points, and the cursor.
func (m Model) renderCanvas(w, h int, res knn.Result, classified bool) string {
	bg := m.sess.Background()
	img := m.surfaceImage(w, 2*h)
	pixel := func(x, y int) color.RGBA {
		if img == nil {
			return bg
		}
		return img.At(x, y)
	}
	at := func(p geom.Vec) (cx, cy int, ok bool) {
		if p[0] < 0 || p[1] < 0 {
			return 0, 0, false
		}
		cx, cy = int(p[0]), int(p[1])/2
		return cx, cy, cx < w && cy < h
	}

	cells := make([]cell, w*h)
	for cy := 0; cy < h; cy++ {
		for cx := 0; cx < w; cx++ {
			cells[cy*w+cx] = cell{glyph: glyphHalf, fg: pixel(cx, 2*cy), bg: pixel(cx, 2*cy+1)}
		}
	}

	if m.hovering && classified {
		br := newBrailleBuf(w, h)
		qx, qy := micro(m.cursor)
		for _, n := range res.Neighbors {
			nx, ny := micro(n.Point.Pos)
			br.drawLineMicro(qx, qy, nx, ny)
		}
		br.drawCircleMicro(qx, qy, int(math.Round(res.Radius*2)))
		for cy := 0; cy < h; cy++ {
			for cx := 0; cx < w; cx++ {
				if mask := br.mask(cx, cy); mask != 0 {
					cells[cy*w+cx] = cell{glyph: rune(0x2800 + int(mask)), fg: overlayFg, bg: pixel(cx, 2*cy)}
				}
			}
		}
	}

	colors := m.sess.Colors()
	for _, p := range m.sess.Points() {
		cx, cy, ok := at(p.Pos)
		if !ok {
			continue
		}
		cells[cy*w+cx] = cell{glyph: glyphPoint, fg: colors[p.Category], bg: pixel(cx, int(p.Pos[1]))}
	}

	if m.hovering {
		if cx, cy, ok := at(m.cursor); ok {
			fg := cursorIdle
			if classified {
				fg = colors[res.Prediction]
			}
			cells[cy*w+cx] = cell{glyph: glyphCursor, fg: fg, bg: pixel(cx, int(m.cursor[1]))}
		}
	}
	return joinCells(cells, w, h)
}

// joinCells renders rows, styling runs of equal colors at once.
func joinCells(cells []cell, w, h int) string {
	var sb strings.Builder
	run := make([]rune, 0, w)
	for y := 0; y < h; y++ {
		if y > 0 {
			sb.WriteByte('\n')
		}
		row := cells[y*w : (y+1)*w]
		for i := 0; i < len(row); {
			run = run[:0]
			j := i
			for j < len(row) && row[j].fg == row[i].fg && row[j].bg == row[i].bg {
				run = append(run, row[j].glyph)
				j++
			}
			sb.WriteString(cellStyle(row[i].fg, row[i].bg).Render(string(run)))
			i = j
		}
	}
	return sb.String()
}

func cellStyle(fg, bg color.RGBA) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(surface.Hex(fg))).
		Background(lipgloss.Color(surface.Hex(bg)))
}
