package tui

// brailleBuf is an overlay with 2x4 dots per terminal cell.
type brailleBuf struct {
	w, h int       // in cells
	m    [][]uint8 // per-cell 8-bit mask
}

func newBrailleBuf(w, h int) *brailleBuf {
	m := make([][]uint8, h)
	for i := range m {
		m[i] = make([]uint8, w)
	}
	return &brailleBuf{w: w, h: h, m: m}
}

// setPixel sets a micro-pixel at micro coords (2x4 per cell)
func (b *brailleBuf) setPixel(mx, my int) {
	if mx < 0 || my < 0 {
		return
	}
	cx, rx := mx/2, mx%2
	cy, ry := my/4, my%4
	if cy < 0 || cy >= b.h || cx < 0 || cx >= b.w {
		return
	}
	var bit uint8
	if rx == 0 {
		switch ry {
		case 0:
			bit = 0x01
		case 1:
			bit = 0x02
		case 2:
			bit = 0x04
		case 3:
			bit = 0x40
		}
	} else {
		switch ry {
		case 0:
			bit = 0x08
		case 1:
			bit = 0x10
		case 2:
			bit = 0x20
		case 3:
			bit = 0x80
		}
	}
	b.m[cy][cx] |= bit
}

// drawLineMicro draws a line on the microgrid using Bresenham
func (b *brailleBuf) drawLineMicro(x0, y0, x1, y1 int) {
	dx := abs(x1 - x0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -abs(y1 - y0)
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		b.setPixel(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// drawCircleMicro draws a circle outline on the microgrid (midpoint algorithm).
func (b *brailleBuf) drawCircleMicro(cx, cy, r int) {
	if r <= 0 {
		b.setPixel(cx, cy)
		return
	}
	x, y := r, 0
	err := 1 - r
	for x >= y {
		b.setPixel(cx+x, cy+y)
		b.setPixel(cx-x, cy+y)
		b.setPixel(cx+x, cy-y)
		b.setPixel(cx-x, cy-y)
		b.setPixel(cx+y, cy+x)
		b.setPixel(cx-y, cy+x)
		b.setPixel(cx+y, cy-x)
		b.setPixel(cx-y, cy-x)
		y++
		if err < 0 {
			err += 2*y + 1
		} else {
			x--
			err += 2*(y-x) + 1
		}
	}
}

// mask returns the dot pattern of a cell, 0 outside the buffer.
func (b *brailleBuf) mask(cx, cy int) uint8 {
	if cy < 0 || cy >= b.h || cx < 0 || cx >= b.w {
		return 0
	}
	return b.m[cy][cx]
}
