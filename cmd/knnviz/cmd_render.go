package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"knnviz/internal/dataset"
	"knnviz/internal/session"
	"knnviz/internal/surface"
)

var (
	renderOut    string
	renderWidth  int
	renderHeight int
	renderTitle  string
)

var renderCmd = &cobra.Command{
	Use:   "render <file.csv>",
	Short: "Render the decision surface of a dataset to a PNG file",
	Long: `Render classifies every block of the export canvas with the configured
k and stride, then draws the dataset points on top and saves the result
as a PNG.

Examples:
  knnviz render iris.csv -o iris.png
  knnviz render iris.csv -o iris.png --stride 1 -k 5 --width 1200 --height 900`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	f := renderCmd.Flags()
	f.StringVarP(&renderOut, "out", "o", "surface.png", "output PNG path")
	f.IntVar(&renderWidth, "width", 0, "canvas width in pixels (default from config)")
	f.IntVar(&renderHeight, "height", 0, "canvas height in pixels (default from config)")
	f.StringVar(&renderTitle, "title", "", "plot title (default: dataset name and parameters)")
}

// exportSession loads path into a session sized for PNG export.
func exportSession(path string, w, h int) (*session.Session, error) {
	ds, err := dataset.Load(path)
	if err != nil {
		return nil, err
	}
	if ds.Dropped > 0 {
		logger.Warn("dropped rows with missing values", "file", path, "dropped", ds.Dropped)
	}
	x, y, err := resolveAxes(ds)
	if err != nil {
		return nil, err
	}
	sopts, err := sessionOptions(cfg.Padding)
	if err != nil {
		return nil, err
	}
	sess := session.New(ds, sopts)
	sess.Apply(session.SetAxes{X: x, Y: y})
	sess.Apply(session.Resize{Width: w, Height: h})
	if len(sess.Points()) == 0 {
		return nil, fmt.Errorf("%s: no usable rows", path)
	}
	if err := sess.Colors().Check(sess.Points()); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sess, nil
}

func runRender(cmd *cobra.Command, args []string) error {
	w, h := cfg.Export.Width, cfg.Export.Height
	if renderWidth > 0 {
		w = renderWidth
	}
	if renderHeight > 0 {
		h = renderHeight
	}
	sess, err := exportSession(args[0], w, h)
	if err != nil {
		return err
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	defer stop()

	params := sess.Params()
	start := time.Now()
	img, err := surface.RasterizeContext(ctx, sess.Points(), params, cfg.Workers)
	if err != nil {
		return err
	}
	logger.Info("surface rendered",
		"file", args[0], "k", params.K, "stride", params.Stride,
		"width", w, "height", h, "took", time.Since(start))

	title := renderTitle
	if title == "" {
		xn, yn := sess.AxisNames()
		title = fmt.Sprintf("%s  %s × %s  k=%d", sess.Data().Source, xn, yn, params.K)
	}
	err = surface.WritePNG(renderOut, img, sess.Points(), sess.Colors(), surface.PlotOptions{
		Title:      title,
		Categories: sess.Categories(),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%dx%d, k=%d, stride=%d)\n", renderOut, w, h, params.K, params.Stride)
	return nil
}
