package tui

import (
	"image/color"

	"github.com/charmbracelet/lipgloss"

	"knnviz/internal/surface"
)

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// swatch renders text on a category color with a readable foreground.
func swatch(c color.RGBA, text string) string {
	return lipgloss.NewStyle().
		Background(lipgloss.Color(surface.Hex(c))).
		Foreground(lipgloss.Color(surface.Hex(surface.TextColor(c)))).
		Render(text)
}
