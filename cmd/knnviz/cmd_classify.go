package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"knnviz/internal/geom"
	"knnviz/internal/surface"
)

var classifyAt string

var classifyCmd = &cobra.Command{
	Use:   "classify <file.csv> --at x,y",
	Short: "Predict the category of a point in feature space",
	Long: `Classify projects the dataset onto the export canvas, maps the query point
there and prints the k nearest neighbors with their vote.

Coordinates are given in the units of the selected feature columns.

Examples:
  knnviz classify iris.csv --at 5.8,3.0
  knnviz classify iris.csv --x petal_length --y petal_width --at 4.9,1.6 -k 7`,
	Args: cobra.ExactArgs(1),
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().StringVar(&classifyAt, "at", "", "query point as x,y in feature units")
	_ = classifyCmd.MarkFlagRequired("at")
}

// parseAt parses "x,y" into a feature-space vector.
func parseAt(s string) (geom.Vec, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return geom.Vec{}, fmt.Errorf("expected x,y, got %q", s)
	}
	var v geom.Vec
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geom.Vec{}, fmt.Errorf("invalid coordinate %q: %w", p, err)
		}
		v[i] = f
	}
	return v, nil
}

func runClassify(cmd *cobra.Command, args []string) error {
	raw, err := parseAt(classifyAt)
	if err != nil {
		return err
	}
	sess, err := exportSession(args[0], cfg.Export.Width, cfg.Export.Height)
	if err != nil {
		return err
	}
	pos, ok := sess.ToDisplay(raw)
	if !ok {
		return fmt.Errorf("%s: no projection for the selected axes", args[0])
	}
	res, ok := sess.Classify(pos)
	if !ok {
		return fmt.Errorf("%s: no active points", args[0])
	}

	xn, yn := sess.AxisNames()
	colors := sess.Colors()
	pred := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(surface.Hex(colors[res.Prediction])))
	fmt.Fprintf(cmd.OutOrStdout(), "%s=%g %s=%g  k=%d  prediction: %s\n",
		xn, raw[0], yn, raw[1], sess.K(), pred.Render(res.Prediction))

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "category", "distance", xn, yn)
	for i, n := range res.Neighbors {
		t.Row(
			strconv.Itoa(i+1),
			n.Point.Category,
			fmt.Sprintf("%.2f", n.Distance),
			fmt.Sprintf("%.4g", n.Point.Raw[0]),
			fmt.Sprintf("%.4g", n.Point.Raw[1]),
		)
	}
	fmt.Fprintln(cmd.OutOrStdout(), t.Render())
	logger.Debug("classified", "x", raw[0], "y", raw[1], "prediction", res.Prediction, "radius", res.Radius)
	return nil
}
