// Package raster provides the fixed-size row-major grids the growth model
// operates on: urban, delta, slope, exclusion and road layers.
package raster

import "fmt"

// Point is a pixel coordinate.
type Point struct {
	Row, Col int
}

// Grid stores rows×cols small unsigned values in row-major order.
// Zero means "not urban", "no road" or "no exclusion" depending on the layer.
type Grid struct {
	Rows, Cols int
	data       []uint8
}

// New allocates a zeroed grid.
func New(rows, cols int) *Grid {
	if rows < 0 {
		rows = 0
	}
	if cols < 0 {
		cols = 0
	}
	return &Grid{Rows: rows, Cols: cols, data: make([]uint8, rows*cols)}
}

// FromSlice wraps an existing buffer. The buffer length must be rows*cols.
func FromSlice(rows, cols int, data []uint8) (*Grid, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("invalid grid size %dx%d", rows, cols)
	}
	if len(data) != rows*cols {
		return nil, fmt.Errorf("grid buffer has %d cells, want %d", len(data), rows*cols)
	}
	return &Grid{Rows: rows, Cols: cols, data: data}, nil
}

// FromRows builds a grid from a slice of equal-length rows. Mostly useful in tests.
func FromRows(rows [][]uint8) *Grid {
	if len(rows) == 0 {
		return New(0, 0)
	}
	g := New(len(rows), len(rows[0]))
	for r, line := range rows {
		copy(g.data[r*g.Cols:(r+1)*g.Cols], line)
	}
	return g
}

// Cells exposes the backing slice for direct reads and writes.
func (g *Grid) Cells() []uint8 { return g.data }

// Total returns the number of pixels.
func (g *Grid) Total() int { return len(g.data) }

// Offset returns the linear index of (r, c).
func (g *Grid) Offset(r, c int) int { return r*g.Cols + c }

// At returns the value at (r, c).
func (g *Grid) At(r, c int) uint8 { return g.data[r*g.Cols+c] }

// Set writes v at (r, c).
func (g *Grid) Set(r, c int, v uint8) { g.data[r*g.Cols+c] = v }

// InBounds reports whether (r, c) lies inside the image.
func (g *Grid) InBounds(r, c int) bool {
	return r >= 0 && r < g.Rows && c >= 0 && c < g.Cols
}

// Interior reports whether (r, c) is inside the image and not on its border.
func (g *Grid) Interior(r, c int) bool {
	return r > 0 && r < g.Rows-1 && c > 0 && c < g.Cols-1
}

// SameShape reports whether o has the same dimensions as g.
func (g *Grid) SameShape(o *Grid) bool {
	return o != nil && g.Rows == o.Rows && g.Cols == o.Cols
}

// Clear fills the grid with zeros.
func (g *Grid) Clear() {
	clear(g.data)
}

// Clone returns a deep copy.
func (g *Grid) Clone() *Grid {
	c := &Grid{Rows: g.Rows, Cols: g.Cols, data: make([]uint8, len(g.data))}
	copy(c.data, g.data)
	return c
}

// CountNonZero returns the number of non-zero pixels.
func (g *Grid) CountNonZero() int {
	n := 0
	for _, v := range g.data {
		if v != 0 {
			n++
		}
	}
	return n
}

// CountAtLeast returns the number of pixels with value >= min.
func (g *Grid) CountAtLeast(min uint8) int {
	n := 0
	for _, v := range g.data {
		if v >= min {
			n++
		}
	}
	return n
}

// PointsAtLeast returns, in row-major order, every pixel with value >= min.
func (g *Grid) PointsAtLeast(min uint8) []Point {
	var pts []Point
	for r := 0; r < g.Rows; r++ {
		row := g.data[r*g.Cols : (r+1)*g.Cols]
		for c, v := range row {
			if v >= min {
				pts = append(pts, Point{Row: r, Col: c})
			}
		}
	}
	return pts
}
