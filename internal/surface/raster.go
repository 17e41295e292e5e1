// Package surface renders k-NN decision surfaces into RGBA images.
package surface

import (
	"context"
	"fmt"
	"image/color"
	"runtime"

	"golang.org/x/sync/errgroup"

	"knnviz/internal/geom"
	"knnviz/internal/knn"
)

// Params controls one rasterization.
type Params struct {
	K          int
	Stride     int // pixel size of one sampled grid cell
	Width      int
	Height     int
	Colors     ColorMap
	Background color.RGBA
}

// Rasterize renders the decision surface on the calling goroutine.
func Rasterize(points []geom.LabeledPoint, p Params) (*Image, error) {
	return RasterizeContext(context.Background(), points, p, 1)
}

// RasterizeContext samples the classifier at every grid origin (x, y), with
// x and y multiples of p.Stride, and fills the Stride×Stride block starting
// there with the predicted category's color. Blocks on the right and bottom
// edges are clipped. Categories missing from p.Colors get p.Background.
//
// Grid rows are shared between workers goroutines (GOMAXPROCS when
// workers < 1). Output does not depend on the worker count. ctx is checked
// between grid rows; a cancelled run returns ctx.Err() and no image.
func RasterizeContext(ctx context.Context, points []geom.LabeledPoint, p Params, workers int) (*Image, error) {
	if p.Stride < 1 {
		return nil, ErrInvalidStride
	}
	if p.Width < 0 || p.Height < 0 {
		return nil, ErrInvalidSize
	}
	img := NewImage(p.Width, p.Height)
	if len(points) == 0 {
		img.Fill(p.Background)
		return img, nil
	}
	if p.K < 1 || p.K > len(points) {
		return nil, fmt.Errorf("%w: k=%d, points=%d", ErrInvalidK, p.K, len(points))
	}

	rows := (p.Height + p.Stride - 1) / p.Stride
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, rows)

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			s := knn.NewSearcher(points, p.K)
			for r := w; r < rows; r += workers {
				if err := ctx.Err(); err != nil {
					return err
				}
				y := r * p.Stride
				for x := 0; x < p.Width; x += p.Stride {
					c, ok := p.Colors[s.Predict(geom.Vec{float64(x), float64(y)})]
					if !ok {
						c = p.Background
					}
					img.fillRect(x, y, x+p.Stride, y+p.Stride, c)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return img, nil
}
