package telemetry

import (
	"log/slog"
	"slices"

	"gonum.org/v1/gonum/stat"

	"github.com/tfcollins140/sleuth3rUGM/growth"
)

// SweepSummary describes the distribution of product scores over the runs
// of a calibration sweep.
type SweepSummary struct {
	Runs        int     `csv:"runs"`
	ProductMean float64 `csv:"product_mean"`
	ProductStd  float64 `csv:"product_std"`
	ProductP10  float64 `csv:"product_p10"`
	ProductP50  float64 `csv:"product_p50"`
	ProductP90  float64 `csv:"product_p90"`
	ProductMax  float64 `csv:"product_max"`
	BestRun     int     `csv:"best_run"`

	// coefficients of the best run
	growth.Coefficients
}

// SweepStats collects run scores as they complete.
type SweepStats struct {
	products []float64
	bestRun  int
	best     growth.Coefficients
	bestProd float64
	top      *Leaderboard
}

// NewSweepStats creates an empty collector.
func NewSweepStats() *SweepStats {
	return &SweepStats{bestRun: -1, top: NewLeaderboard(DefaultLeaderboardSize)}
}

// Add records the product score of run.
func (s *SweepStats) Add(run int, product float64, c growth.Coefficients) {
	s.products = append(s.products, product)
	if s.bestRun < 0 || product > s.bestProd {
		s.bestRun = run
		s.bestProd = product
		s.best = c
	}
	s.top.Consider(run, product, c)
}

// Len returns the number of recorded runs.
func (s *SweepStats) Len() int { return len(s.products) }

// Top returns the best runs, rank 1 first.
func (s *SweepStats) Top() []LeaderEntry { return s.top.Entries() }

// Summary computes the distribution of the recorded scores.
func (s *SweepStats) Summary() SweepSummary {
	if len(s.products) == 0 {
		return SweepSummary{BestRun: -1}
	}
	sorted := slices.Clone(s.products)
	slices.Sort(sorted)

	mean, std := stat.MeanStdDev(sorted, nil)
	if len(sorted) < 2 {
		std = 0
	}
	return SweepSummary{
		Runs:         len(sorted),
		ProductMean:  mean,
		ProductStd:   std,
		ProductP10:   stat.Quantile(0.10, stat.Empirical, sorted, nil),
		ProductP50:   stat.Quantile(0.50, stat.Empirical, sorted, nil),
		ProductP90:   stat.Quantile(0.90, stat.Empirical, sorted, nil),
		ProductMax:   sorted[len(sorted)-1],
		BestRun:      s.bestRun,
		Coefficients: s.best,
	}
}

// LogValue implements slog.LogValuer for structured logging.
func (s SweepSummary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("runs", s.Runs),
		slog.Float64("product_mean", s.ProductMean),
		slog.Float64("product_std", s.ProductStd),
		slog.Float64("product_p10", s.ProductP10),
		slog.Float64("product_p50", s.ProductP50),
		slog.Float64("product_p90", s.ProductP90),
		slog.Float64("product_max", s.ProductMax),
		slog.Int("best_run", s.BestRun),
		slog.Any("best", s.Coefficients),
	)
}
