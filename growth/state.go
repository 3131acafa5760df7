package growth

import (
	"fmt"

	"github.com/tfcollins140/sleuth3rUGM/raster"
)

// Pixel-kind tags written into the delta raster and, after commit, into Z.
const (
	TagSeed        uint8 = 3 // urban at the start of a run
	TagSpontaneous uint8 = 4
	TagSpread      uint8 = 6
	TagOrganic     uint8 = 7
	TagRoad        uint8 = 8
)

// GridState owns the urban raster Z, the per-year candidate raster Delta and
// the two growth lists. Buffers are reused across years and runs.
type GridState struct {
	Z     *raster.Grid
	Delta *raster.Grid

	growth     []raster.Point // claimed this year, in claim order
	cumulative []raster.Point // every urban pixel of the run, seeds first

	lastReset int
}

// NewGridState allocates state for a rows×cols raster.
func NewGridState(rows, cols int) *GridState {
	return &GridState{
		Z:     raster.New(rows, cols),
		Delta: raster.New(rows, cols),
	}
}

// Rows returns the raster height.
func (s *GridState) Rows() int { return s.Z.Rows }

// Cols returns the raster width.
func (s *GridState) Cols() int { return s.Z.Cols }

// ResetRun clears all state and loads the seed urban raster. Every non-zero
// seed pixel becomes TagSeed in Z and enters the cumulative list in
// row-major order.
func (s *GridState) ResetRun(seed *raster.Grid) error {
	if !s.Z.SameShape(seed) {
		return fmt.Errorf("%w: seed %dx%d, state %dx%d", ErrShapeMismatch, seed.Rows, seed.Cols, s.Z.Rows, s.Z.Cols)
	}
	s.Z.Clear()
	s.Delta.Clear()
	s.growth = s.growth[:0]
	s.cumulative = s.cumulative[:0]
	s.lastReset = 0

	z := s.Z.Cells()
	for i, v := range seed.Cells() {
		if v == 0 {
			continue
		}
		z[i] = TagSeed
		s.cumulative = append(s.cumulative, raster.Point{Row: i / s.Z.Cols, Col: i % s.Z.Cols})
	}
	return nil
}

// ResetYear zeroes the delta cells claimed during the previous year and
// empties the growth list. It touches only those cells and returns how many.
func (s *GridState) ResetYear() int {
	d := s.Delta.Cells()
	cols := s.Delta.Cols
	for _, p := range s.growth {
		d[p.Row*cols+p.Col] = 0
	}
	n := len(s.growth)
	s.growth = s.growth[:0]
	s.lastReset = n
	return n
}

// LastResetCells returns the number of cells zeroed by the latest ResetYear.
func (s *GridState) LastResetCells() int { return s.lastReset }

// RecordGrowth marks p as claimed this year with tag. Zero tags are written
// to delta but not tracked.
func (s *GridState) RecordGrowth(p raster.Point, tag uint8) {
	s.Delta.Set(p.Row, p.Col, tag)
	if tag != 0 {
		s.growth = append(s.growth, p)
	}
}

// CommitResult summarises a committed year.
type CommitResult struct {
	NumGrowth    int
	AverageSlope float64
}

// CommitYear conditions delta and copies this year's claims into Z.
//
// Delta values above TagRoad are cleared, delta is zeroed on every excluded
// pixel (exclusion >= 100), and each listed pixel still unset in Z receives
// its delta tag and joins the cumulative list.
func (s *GridState) CommitYear(slope *raster.Grid, excluded []raster.Point) CommitResult {
	d := s.Delta.Cells()
	z := s.Z.Cells()
	cols := s.Z.Cols

	for _, p := range s.growth {
		if i := p.Row*cols + p.Col; d[i] > TagRoad {
			d[i] = 0
		}
	}
	for _, p := range excluded {
		d[p.Row*cols+p.Col] = 0
	}

	var res CommitResult
	var slopeSum float64
	for _, p := range s.growth {
		i := p.Row*cols + p.Col
		if z[i] == 0 && d[i] > 0 {
			slopeSum += float64(slope.Cells()[i])
			z[i] = d[i]
			s.cumulative = append(s.cumulative, p)
			res.NumGrowth++
		}
	}
	if res.NumGrowth > 0 {
		res.AverageSlope = slopeSum / float64(res.NumGrowth)
	}
	return res
}

// Growth returns this year's claimed pixels. The slice aliases state storage.
func (s *GridState) Growth() []raster.Point { return s.growth }

// Cumulative returns every urban pixel of the run. The slice aliases state storage.
func (s *GridState) Cumulative() []raster.Point { return s.cumulative }

// Population returns the number of urban pixels in Z.
func (s *GridState) Population() int { return len(s.cumulative) }
