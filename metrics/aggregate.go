package metrics

import (
	"fmt"
	"log/slog"
)

// Regression holds the per-metric fits of simulated averages against the
// observed statistics.
type Regression struct {
	Area            Fit
	Edges           Fit
	Clusters        Fit
	Pop             Fit
	XMean           Fit
	YMean           Fit
	Rad             Fit
	Slope           Fit
	MeanClusterSize Fit
	PercentUrban    Fit
}

// Regress fits every metric over observation indexes 1..n-1 of actual and
// average. Index 0 is the seed year and is not compared.
func Regress(actual, average []Values) (Regression, error) {
	nobs := len(actual) - 1
	if nobs <= 0 {
		return Regression{}, fmt.Errorf("regress: %d historical rasters: %w", len(actual), ErrNoObservations)
	}
	if len(average) < len(actual) {
		return Regression{}, fmt.Errorf("regress: %d averages for %d observations", len(average), len(actual))
	}

	dep := make([]float64, nobs)
	indep := make([]float64, nobs)
	fit := func(field func(Values) float64) (Fit, error) {
		for i := 1; i <= nobs; i++ {
			dep[i-1] = field(actual[i])
			indep[i-1] = field(average[i])
		}
		return LineFit(dep, indep)
	}

	var reg Regression
	for _, m := range []struct {
		dst   *Fit
		field func(Values) float64
	}{
		{&reg.Area, func(v Values) float64 { return v.Area }},
		{&reg.Edges, func(v Values) float64 { return v.Edges }},
		{&reg.Clusters, func(v Values) float64 { return v.Clusters }},
		{&reg.Pop, func(v Values) float64 { return v.Pop }},
		{&reg.XMean, func(v Values) float64 { return v.XMean }},
		{&reg.YMean, func(v Values) float64 { return v.YMean }},
		{&reg.Rad, func(v Values) float64 { return v.Rad }},
		{&reg.Slope, func(v Values) float64 { return v.Slope }},
		{&reg.MeanClusterSize, func(v Values) float64 { return v.MeanClusterSize }},
		{&reg.PercentUrban, func(v Values) float64 { return v.PercentUrban }},
	} {
		f, err := fit(m.field)
		if err != nil {
			return Regression{}, err
		}
		*m.dst = f
	}
	return reg, nil
}

// Aggregate is the single-run goodness-of-fit summary used to rank
// coefficient combinations.
type Aggregate struct {
	Product    float64
	Compare    float64
	LeeSallee  float64
	FMatch     float64
	Actual     float64
	Simulated  float64
	Regression Regression
}

// Score combines the population ratio of the final observed year, the mean
// Lee-Sallee over observed years after the seed, and the r² of every metric
// except area. fmatch multiplies in only when useFMatch is set.
func Score(actual, average []Values, fmatch float64, useFMatch bool) (Aggregate, error) {
	reg, err := Regress(actual, average)
	if err != nil {
		return Aggregate{}, err
	}

	last := len(actual) - 1
	agg := Aggregate{
		FMatch:     fmatch,
		Actual:     actual[last].Pop,
		Simulated:  average[last].Pop,
		Regression: reg,
	}
	for i := 1; i <= last; i++ {
		agg.LeeSallee += average[i].LeeSallee
	}
	agg.LeeSallee /= float64(last)

	hi, lo := agg.Actual, agg.Simulated
	if lo > hi {
		hi, lo = lo, hi
	}
	if hi == 0 {
		return Aggregate{}, fmt.Errorf("compare: actual %v simulated %v: %w", agg.Actual, agg.Simulated, ErrZeroPopulation)
	}
	agg.Compare = lo / hi

	match := 1.0
	if useFMatch {
		match = fmatch
	}
	agg.Product = agg.Compare * agg.LeeSallee *
		reg.Edges.R2 * reg.Clusters.R2 * reg.Pop.R2 *
		reg.XMean.R2 * reg.YMean.R2 * reg.Rad.R2 *
		reg.Slope.R2 * reg.MeanClusterSize.R2 * reg.PercentUrban.R2 *
		match
	return agg, nil
}

// LogValue implements slog.LogValuer.
func (a Aggregate) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Float64("product", a.Product),
		slog.Float64("compare", a.Compare),
		slog.Float64("leesalee", a.LeeSallee),
		slog.Float64("pop_r2", a.Regression.Pop.R2),
		slog.Float64("edges_r2", a.Regression.Edges.R2),
		slog.Float64("clusters_r2", a.Regression.Clusters.R2),
		slog.Float64("area_r2", a.Regression.Area.R2),
	)
}
