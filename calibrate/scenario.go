// Package calibrate drives Monte Carlo growth runs over coefficient
// combinations and scores them against the historical urban rasters.
package calibrate

import (
	"fmt"
	"log/slog"

	"github.com/tfcollins140/sleuth3rUGM/config"
	"github.com/tfcollins140/sleuth3rUGM/gridio"
	"github.com/tfcollins140/sleuth3rUGM/growth"
	"github.com/tfcollins140/sleuth3rUGM/metrics"
	"github.com/tfcollins140/sleuth3rUGM/roadindex"
)

// Settings are the run parameters shared by every combination.
type Settings struct {
	MonteCarlo int
	Seed       int64

	// Predict measures every year between PredictStart and PredictStop
	// instead of the historical urban years, and skips scoring.
	Predict      bool
	PredictStart int
	PredictStop  int

	Growth     growth.Options
	SelfMod    growth.SelfModification
	QueueLimit int

	UseLanduseMatch bool
	LanduseMatch    float64

	TraceCoefficients bool
	Timing            bool
}

// SettingsFromConfig maps a scenario configuration onto Settings. The seed
// is taken as configured; callers resolve a zero seed beforehand.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		MonteCarlo:        cfg.Scenario.MonteCarlo,
		Seed:              cfg.Scenario.Seed,
		Predict:           cfg.Scenario.Mode == config.ModePredict,
		PredictStart:      cfg.Scenario.PredictionStartYear,
		PredictStop:       cfg.Scenario.PredictionStopYear,
		Growth:            cfg.Growth.Options(),
		SelfMod:           cfg.SelfModification.Rule(),
		QueueLimit:        cfg.Stats.ClusterQueueLimit,
		UseLanduseMatch:   cfg.Stats.UseLanduseMatch,
		LanduseMatch:      cfg.Stats.LanduseMatch,
		TraceCoefficients: cfg.Output.WriteCoeff,
		Timing:            cfg.Output.WritePerf,
	}
}

// Scenario binds the input rasters to the run settings. It is read-only once
// built and shared by all runners.
type Scenario struct {
	repo  *gridio.Repository
	set   Settings
	store metrics.RecordStore
	cache *roadindex.Cache

	seed      gridio.Layer
	startYear int
	stopYear  int
	base      []metrics.Values
}

// NewScenario validates the year range, computes the statistics of every
// historical urban raster and prepares a shared road index cache. A nil
// store selects an in-memory store.
func NewScenario(repo *gridio.Repository, set Settings, store metrics.RecordStore) (*Scenario, error) {
	if set.MonteCarlo < 1 {
		return nil, fmt.Errorf("scenario: monte carlo iterations %d < 1", set.MonteCarlo)
	}
	if store == nil {
		store = metrics.NewMemoryStore(set.MonteCarlo)
	}
	sc := &Scenario{
		repo:  repo,
		set:   set,
		store: store,
		cache: roadindex.NewCache(),
	}

	urban := repo.Urban()
	if set.Predict {
		sc.seed = urban[0]
		for _, l := range urban {
			if l.Year <= set.PredictStart {
				sc.seed = l
			}
		}
		if set.PredictStart < sc.seed.Year {
			return nil, fmt.Errorf("scenario: prediction start %d precedes the earliest urban year %d", set.PredictStart, sc.seed.Year)
		}
		if set.PredictStop <= set.PredictStart {
			return nil, fmt.Errorf("scenario: prediction stop %d not after start %d", set.PredictStop, set.PredictStart)
		}
		sc.startYear, sc.stopYear = set.PredictStart, set.PredictStop
	} else {
		if len(urban) < 2 {
			return nil, fmt.Errorf("scenario: %d urban layers: %w", len(urban), metrics.ErrNoObservations)
		}
		sc.seed = urban[0]
		sc.startYear, sc.stopYear = urban[0].Year, urban[len(urban)-1].Year
	}

	base, err := BaseStats(repo, set.QueueLimit)
	if err != nil {
		return nil, err
	}
	sc.base = base

	slog.Info("scenario ready",
		"seed_year", sc.seed.Year,
		"start_year", sc.startYear,
		"stop_year", sc.stopYear,
		"monte_carlo", set.MonteCarlo,
		"predict", set.Predict,
	)
	return sc, nil
}

// Settings returns the run settings.
func (sc *Scenario) Settings() Settings { return sc.set }

// Years returns the first simulated year's predecessor and the last year.
func (sc *Scenario) Years() (start, stop int) { return sc.startYear, sc.stopYear }

// Base returns the statistics of the historical urban rasters, index 0 being
// the seed.
func (sc *Scenario) Base() []metrics.Values { return sc.base }

// RoadCache returns the road index cache shared by all runners.
func (sc *Scenario) RoadCache() *roadindex.Cache { return sc.cache }

// recordIndex reports whether year is measured and at which accumulator
// index. Prediction measures every year at index 0.
func (sc *Scenario) recordIndex(year int) (int, bool) {
	if sc.set.Predict {
		return 0, true
	}
	i, ok := sc.repo.UrbanIndex(year)
	return i, ok && i > 0
}

// BaseStats measures every historical urban raster. percent_urban uses the
// road raster in effect for the layer's year.
func BaseStats(repo *gridio.Repository, queueLimit int) ([]metrics.Values, error) {
	meter := metrics.NewMeter(repo.Rows, repo.Cols, queueLimit)
	urban := repo.Urban()
	out := make([]metrics.Values, len(urban))
	for i, l := range urban {
		sp, err := meter.Measure(l.Grid, nil, repo.Slope())
		if err != nil {
			return nil, fmt.Errorf("base stats %d: %w", l.Year, err)
		}
		roads := repo.RoadPixels(l.Year)
		v := &out[i]
		v.SetSpatial(sp)
		v.PercentUrban = metrics.PercentUrban(sp.Pop, roads, repo.ExcludedPixels(), repo.TotalPixels())
		v.PercentRoad = metrics.PercentRoad(roads, repo.ExcludedPixels(), repo.TotalPixels())
		v.LeeSallee = 1
		slog.Debug("base stats", "year", l.Year, "pop", sp.Pop, "clusters", sp.Clusters, "edges", sp.Edges)
	}
	return out, nil
}
