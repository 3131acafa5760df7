package roadindex

import "github.com/tfcollins140/sleuth3rUGM/raster"

// BruteForceNearest scans every pixel of roads for the nearest road within
// Chebyshev radius of center. Candidates at equal distance are ordered the
// way FindNearest visits them: nearer row band first, upper row before lower,
// nearer column first, left before right.
//
// It exists to check FindNearest; the growth engine never calls it.
func BruteForceNearest(roads *raster.Grid, center raster.Point, radius int) Result {
	var best Result
	var bestKey [5]int

	for r := 0; r < roads.Rows; r++ {
		for c := 0; c < roads.Cols; c++ {
			if roads.At(r, c) == 0 {
				continue
			}
			dr, dc := r-center.Row, c-center.Col
			d := max(abs(dr), abs(dc))
			if d > radius {
				continue
			}
			key := [5]int{d, abs(dr), sideRank(dr), abs(dc), sideRank(dc)}
			if !best.Found || lessKey(key, bestKey) {
				best = Result{Found: true, Point: raster.Point{Row: r, Col: c}, Distance: d}
				bestKey = key
			}
		}
	}
	return best
}

// sideRank orders negative offsets (up, left) before positive ones.
func sideRank(d int) int {
	if d < 0 {
		return 0
	}
	return 1
}

func lessKey(a, b [5]int) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
