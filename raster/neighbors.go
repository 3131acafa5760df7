package raster

// Ring lists the 8 neighbour offsets clockwise from the north-west corner.
// Rotation through the ring advances the index by one, wrapping at 8.
var Ring = [8]Point{
	{-1, -1}, {-1, 0}, {-1, 1},
	{0, 1},
	{1, 1}, {1, 0}, {1, -1},
	{0, -1},
}

// Walkabout is the fixed table used when a single neighbour is picked by
// direct index rather than by rotation.
var Walkabout = [8]Point{
	{-1, -1}, {-1, 0}, {-1, 1},
	{0, -1}, {0, 1},
	{1, -1}, {1, 0}, {1, 1},
}

// Orthogonal lists the 4-connected neighbour offsets.
var Orthogonal = [4]Point{{-1, 0}, {0, -1}, {0, 1}, {1, 0}}

// RingNeighbor returns the neighbour of (r, c) at ring position k (mod 8).
func RingNeighbor(r, c, k int) (int, int) {
	o := Ring[k&7]
	return r + o.Row, c + o.Col
}

// CountNeighborsAbove counts the 8-neighbours of (r, c) that are inside the
// image and hold a value greater than v.
func (g *Grid) CountNeighborsAbove(r, c int, v uint8) int {
	n := 0
	for _, o := range Ring {
		nr, nc := r+o.Row, c+o.Col
		if g.InBounds(nr, nc) && g.data[nr*g.Cols+nc] > v {
			n++
		}
	}
	return n
}
