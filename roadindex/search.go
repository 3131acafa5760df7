package roadindex

import (
	"errors"
	"fmt"
	"math"

	"github.com/tfcollins140/sleuth3rUGM/raster"
)

// ErrNoSearchBand is returned when no search radius smaller than the raster's
// larger dimension covers the requested budget.
var ErrNoSearchBand = errors.New("no road search band within raster bounds")

// Result is the outcome of a nearest-road query.
type Result struct {
	Found    bool
	Point    raster.Point
	Distance int // Chebyshev distance from the query centre
}

// SearchRadius returns the smallest band radius N, starting from
// max(1, sqrt(budget/4)-1), whose covered area 4·N·(N+1) exceeds budget.
func SearchRadius(budget, rows, cols int) (int, error) {
	n := int(math.Sqrt(float64(budget/4))) - 1
	if n < 1 {
		n = 1
	}
	limit := max(rows, cols)
	for bn := n; bn < limit; bn++ {
		if 4*(1+bn)*bn > budget {
			return bn, nil
		}
	}
	return 0, fmt.Errorf("%w: budget=%d raster=%dx%d start=%d", ErrNoSearchBand, budget, rows, cols, n)
}

// FindNearest returns the road pixel closest to center in Chebyshev distance,
// looking no farther than the radius derived from budget.
//
// Bands are visited outward from the centre row, the upper row of each band
// first. Within a row the closest column wins and, on equal distance, the
// left one. A later row only replaces the best candidate when strictly
// closer, and the search stops as soon as the best distance equals the
// current band.
func (ix *Index) FindNearest(center raster.Point, budget int) (Result, error) {
	n, err := SearchRadius(budget, ix.rows, ix.cols)
	if err != nil {
		return Result{}, err
	}

	crow, ccol := center.Row, center.Col
	trow := max(crow-n, 0)
	brow := min(crow+n, ix.rows-1)
	lcol := max(ccol-n, 0)
	rcol := min(ccol+n, ix.cols-1)

	best := -1
	var bestPt raster.Point

	for srow := 0; srow <= n; srow++ {
		for side := 0; side < 2; side++ {
			r := crow - srow
			if side == 1 {
				if srow == 0 {
					break
				}
				r = crow + srow
			}
			if r < trow || r > brow {
				continue
			}
			m := ix.meta[r]
			if m.count == 0 || m.minCol > rcol || m.maxCol < lcol {
				continue
			}

			col := ix.closestInRow(m, ccol)
			d := max(srow, abs(col-ccol))
			if best < 0 || d < best {
				best = d
				bestPt = raster.Point{Row: r, Col: col}
			}
		}
		if best == srow {
			break
		}
	}

	if best >= 0 && best <= n {
		return Result{Found: true, Point: bestPt, Distance: best}, nil
	}
	return Result{}, nil
}

// closestInRow binary-searches a row partition for the column nearest ccol.
func (ix *Index) closestInRow(m rowMeta, ccol int) int {
	cols := ix.colPos[m.start : m.start+m.count]
	kmin, kmax := 0, len(cols)-1
	for kmax-kmin > 1 {
		k := (kmax + kmin) / 2
		if int(cols[k]) <= ccol {
			kmin = k
		} else {
			kmax = k
		}
	}
	if int(cols[kmax])-ccol < ccol-int(cols[kmin]) {
		return int(cols[kmax])
	}
	return int(cols[kmin])
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
