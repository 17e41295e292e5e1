package tui

import (
	"fmt"

	table "github.com/charmbracelet/bubbles/table"

	"knnviz/internal/knn"
)

// refreshNeighbors rebuilds the neighbor table for the current cursor result.
func (m *Model) refreshNeighbors(res knn.Result) {
	xn, yn := m.sess.AxisNames()
	cols := []string{"category", "distance", xn, yn}
	tcols := make([]table.Column, 0, len(cols)+1)
	tcols = append(tcols, table.Column{Title: "#", Width: 4})
	maxColW := 24
	total := 4 + 2
	for _, c := range cols {
		w := max(len(c)+2, 10)
		if w > maxColW {
			w = maxColW
		}
		tcols = append(tcols, table.Column{Title: c, Width: w})
		total += w + 2 // cell padding
	}
	trows := make([]table.Row, 0, len(res.Neighbors))
	for i, n := range res.Neighbors {
		trows = append(trows, table.Row{
			fmt.Sprintf("%d", i+1),
			n.Point.Category,
			fmt.Sprintf("%.2f", n.Distance),
			fmt.Sprintf("%.4g", n.Point.Raw[0]),
			fmt.Sprintf("%.4g", n.Point.Raw[1]),
		})
	}
	// Avoid transient mismatch: clear rows, set columns, then set rows
	m.tbl.SetRows(nil)
	m.tbl.SetColumns(tcols)
	m.tbl.SetRows(trows)
	m.tbl.SetWidth(total)
}
