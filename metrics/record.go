package metrics

import (
	"log/slog"
	"math"
)

// Values are the per-year statistics of one simulated raster. Every field is
// a float so that totals, averages and deviations share the type. Field order
// is the on-disk record order.
type Values struct {
	SNG             float64 `csv:"sng"`
	SDG             float64 `csv:"sdg"` // no growth rule increments it; kept at zero
	SDC             float64 `csv:"sdc"`
	OG              float64 `csv:"og"`
	RT              float64 `csv:"rt"`
	Pop             float64 `csv:"pop"`
	Area            float64 `csv:"area"`
	Edges           float64 `csv:"edges"`
	Clusters        float64 `csv:"clusters"`
	XMean           float64 `csv:"xmean"`
	YMean           float64 `csv:"ymean"`
	Rad             float64 `csv:"rad"`
	Slope           float64 `csv:"slope"`
	MeanClusterSize float64 `csv:"mean_cluster_size"`
	Diffusion       float64 `csv:"diffusion"`
	Spread          float64 `csv:"spread"`
	Breed           float64 `csv:"breed"`
	SlopeResistance float64 `csv:"slope_resistance"`
	RoadGravity     float64 `csv:"road_gravity"`
	PercentUrban    float64 `csv:"percent_urban"`
	PercentRoad     float64 `csv:"percent_road"`
	GrowthRate      float64 `csv:"growth_rate"`
	LeeSallee       float64 `csv:"leesalee"`
	NumGrowthPix    float64 `csv:"num_growth_pix"`
}

const numValues = 24

func (v *Values) fields() [numValues]*float64 {
	return [numValues]*float64{
		&v.SNG, &v.SDG, &v.SDC, &v.OG, &v.RT, &v.Pop, &v.Area, &v.Edges, &v.Clusters,
		&v.XMean, &v.YMean, &v.Rad, &v.Slope, &v.MeanClusterSize,
		&v.Diffusion, &v.Spread, &v.Breed, &v.SlopeResistance, &v.RoadGravity,
		&v.PercentUrban, &v.PercentRoad, &v.GrowthRate, &v.LeeSallee, &v.NumGrowthPix,
	}
}

// SetSpatial copies raster measurements into v.
func (v *Values) SetSpatial(s Spatial) {
	v.Area = float64(s.Area)
	v.Edges = float64(s.Edges)
	v.Clusters = float64(s.Clusters)
	v.Pop = float64(s.Pop)
	v.XMean = s.XMean
	v.YMean = s.YMean
	v.Rad = s.Rad
	v.Slope = s.Slope
	v.MeanClusterSize = s.MeanClusterSize
}

func (v *Values) add(o Values) {
	dst, src := v.fields(), o.fields()
	for i := range dst {
		*dst[i] += *src[i]
	}
}

func (v *Values) scale(k float64) {
	for _, f := range v.fields() {
		*f *= k
	}
}

// deviation sets v to sqrt((x - avg)² / n) field by field.
func (v *Values) deviation(x, avg Values, n float64) {
	dst, xs, as := v.fields(), x.fields(), avg.fields()
	for i := range dst {
		d := *xs[i] - *as[i]
		*dst[i] = math.Sqrt(d * d / n)
	}
}

// Record is one stored (run, Monte Carlo iteration, year) measurement.
type Record struct {
	Run        int `csv:"run"`
	MonteCarlo int `csv:"monte_carlo"`
	Year       int `csv:"year"`
	Values
}

// LogValue implements slog.LogValuer.
func (r Record) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("run", r.Run),
		slog.Int("mc", r.MonteCarlo),
		slog.Int("year", r.Year),
		slog.Float64("pop", r.Pop),
		slog.Float64("edges", r.Edges),
		slog.Float64("clusters", r.Clusters),
		slog.Float64("growth_rate", r.GrowthRate),
		slog.Float64("percent_urban", r.PercentUrban),
		slog.Float64("leesalee", r.LeeSallee),
	)
}
