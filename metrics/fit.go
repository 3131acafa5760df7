package metrics

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/tfcollins140/sleuth3rUGM/raster"
)

// ErrNoObservations is returned when a regression has nothing to fit.
var ErrNoObservations = errors.New("no observations")

// LeeSallee returns |A ∩ B| / |A ∪ B| over the non-zero pixels of a and b.
// Two empty footprints match perfectly.
func LeeSallee(a, b *raster.Grid) (float64, error) {
	if !a.SameShape(b) {
		return 0, fmt.Errorf("lee-sallee: %dx%d vs %dx%d", a.Rows, a.Cols, b.Rows, b.Cols)
	}
	var inter, union int
	bc := b.Cells()
	for i, v := range a.Cells() {
		x, y := v != 0, bc[i] != 0
		if x && y {
			inter++
		}
		if x || y {
			union++
		}
	}
	if union == 0 {
		return 1, nil
	}
	return float64(inter) / float64(union), nil
}

// Fit is a least-squares line and its squared correlation.
type Fit struct {
	Slope     float64
	Intercept float64
	R2        float64
}

// LineFit regresses independent on dependent. Slope and intercept describe
// independent = Slope·dependent + Intercept; R2 is the squared Pearson
// correlation, reported as 0 when either series has (near) zero variance.
func LineFit(dependent, independent []float64) (Fit, error) {
	n := len(dependent)
	if n == 0 || n != len(independent) {
		return Fit{}, fmt.Errorf("line fit over %d/%d values: %w", len(dependent), len(independent), ErrNoObservations)
	}

	depAvg := stat.Mean(dependent, nil)
	indepAvg := stat.Mean(independent, nil)

	dd := make([]float64, n)
	copy(dd, dependent)
	floats.AddConst(-depAvg, dd)
	di := make([]float64, n)
	copy(di, independent)
	floats.AddConst(-indepAvg, di)

	cross := floats.Dot(dd, di)
	sumDep := floats.Dot(dd, dd)
	sumIndep := floats.Dot(di, di)

	var f Fit
	if sumDep != 0 {
		f.Slope = cross / sumDep
		f.Intercept = indepAvg - f.Slope*depAvg
	}
	if sumDep*sumIndep >= 1e-11 {
		r := cross / math.Sqrt(sumDep*sumIndep)
		f.R2 = r * r
	}
	return f, nil
}
