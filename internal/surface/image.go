package surface

import (
	"image"
	"image/color"
)

// Image is a dense RGBA pixel buffer, row-major, 4 bytes per pixel.
type Image struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewImage allocates a transparent w×h image.
func NewImage(w, h int) *Image {
	return &Image{Width: w, Height: h, Pix: make([]uint8, w*h*4)}
}

// At returns the pixel at (x, y). Out-of-range coordinates yield zero.
func (im *Image) At(x, y int) color.RGBA {
	if x < 0 || y < 0 || x >= im.Width || y >= im.Height {
		return color.RGBA{}
	}
	i := (y*im.Width + x) * 4
	return color.RGBA{R: im.Pix[i], G: im.Pix[i+1], B: im.Pix[i+2], A: im.Pix[i+3]}
}

// Fill paints every pixel with c.
func (im *Image) Fill(c color.RGBA) {
	im.fillRect(0, 0, im.Width, im.Height, c)
}

// fillRect paints [x0,x1)×[y0,y1) clipped to the image.
func (im *Image) fillRect(x0, y0, x1, y1 int, c color.RGBA) {
	x0, y0 = max(x0, 0), max(y0, 0)
	x1, y1 = min(x1, im.Width), min(y1, im.Height)
	if x0 >= x1 || y0 >= y1 {
		return
	}
	px := [4]uint8{c.R, c.G, c.B, c.A}
	for y := y0; y < y1; y++ {
		row := im.Pix[(y*im.Width+x0)*4 : (y*im.Width+x1)*4]
		for i := 0; i < len(row); i += 4 {
			copy(row[i:i+4], px[:])
		}
	}
}

// RGBA wraps the buffer as an *image.RGBA without copying.
func (im *Image) RGBA() *image.RGBA {
	return &image.RGBA{
		Pix:    im.Pix,
		Stride: im.Width * 4,
		Rect:   image.Rect(0, 0, im.Width, im.Height),
	}
}
