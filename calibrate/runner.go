package calibrate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tfcollins140/sleuth3rUGM/growth"
	"github.com/tfcollins140/sleuth3rUGM/metrics"
	"github.com/tfcollins140/sleuth3rUGM/raster"
	"github.com/tfcollins140/sleuth3rUGM/rng"
	"github.com/tfcollins140/sleuth3rUGM/telemetry"
)

// YearStats are the Monte Carlo average and deviation of one measured year.
type YearStats struct {
	Year    int
	Index   int
	Average metrics.Values
	StdDev  metrics.Values
}

// RunResult is everything one coefficient combination produced.
type RunResult struct {
	Run          int
	Worker       int
	Coefficients growth.Coefficients

	// Aggregate is set when Scored; prediction runs are not scored.
	Aggregate metrics.Aggregate
	Scored    bool

	Years []YearStats
	Tally growth.Tally

	// Trace holds the coefficients after self-modification per (mc, year)
	// when tracing is enabled.
	Trace []telemetry.CoeffRow

	// Perf is nil unless timing is enabled.
	Perf *telemetry.PerfStats

	// Probability is the percentage of Monte Carlo iterations in which each
	// pixel was urban at the stop year. Prediction only.
	Probability *raster.Grid

	Elapsed time.Duration
}

// LogValue implements slog.LogValuer.
func (r *RunResult) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int("run", r.Run),
		slog.Int("worker", r.Worker),
		slog.Any("coefficients", r.Coefficients),
		slog.Any("tally", r.Tally),
		slog.Duration("elapsed", r.Elapsed),
	}
	if r.Scored {
		attrs = append(attrs, slog.Any("score", r.Aggregate))
	}
	return slog.GroupValue(attrs...)
}

// Runner owns the mutable state of one worker: the grid, random source,
// engine and measuring buffers. Runners are not safe for concurrent use.
type Runner struct {
	sc     *Scenario
	worker int

	state  *growth.GridState
	src    *rng.Source
	engine *growth.Engine
	meter  *metrics.Meter
	acc    *metrics.Accumulator
	perf   *telemetry.PerfCollector
	prob   []int
}

// NewRunner allocates a runner for worker.
func (sc *Scenario) NewRunner(worker int) *Runner {
	rows, cols := sc.repo.Rows, sc.repo.Cols
	state := growth.NewGridState(rows, cols)
	src := rng.New(sc.set.Seed)

	indexes := len(sc.repo.Urban())
	if sc.set.Predict {
		indexes = 1
	}
	r := &Runner{
		sc:     sc,
		worker: worker,
		state:  state,
		src:    src,
		engine: growth.NewEngine(state, src, sc.cache, sc.set.Growth),
		meter:  metrics.NewMeter(rows, cols, sc.set.QueueLimit),
		acc:    metrics.NewAccumulator(sc.set.MonteCarlo, indexes),
	}
	if sc.set.Timing {
		r.perf = telemetry.NewPerfCollector(0)
		r.engine.SetPhaseTimer(r.perf)
	}
	if sc.set.Predict {
		r.prob = make([]int, rows*cols)
	}
	return r
}

// Run simulates every Monte Carlo iteration of one combination and
// summarizes it. The random source is reseeded once per combination; the
// iterations continue the same stream.
func (r *Runner) Run(ctx context.Context, run int, c growth.Coefficients) (*RunResult, error) {
	start := time.Now()
	sc := r.sc
	r.src.Reseed(sc.set.Seed)
	clear(r.prob)

	res := &RunResult{Run: run, Worker: r.worker, Coefficients: c}
	for mc := 0; mc < sc.set.MonteCarlo; mc++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := r.iterate(res, mc); err != nil {
			return nil, err
		}
	}

	if err := r.summarize(res); err != nil {
		return nil, &RunError{Run: run, MonteCarlo: -1, Coefficients: c, Err: err}
	}
	if r.perf != nil {
		stats := r.perf.Stats()
		res.Perf = &stats
	}
	if r.prob != nil {
		res.Probability = r.probability()
	}
	res.Elapsed = time.Since(start)
	return res, nil
}

// iterate runs one Monte Carlo iteration from the seed to the stop year.
func (r *Runner) iterate(res *RunResult, mc int) error {
	sc := r.sc
	repo := sc.repo
	fail := func(year int, c growth.Coefficients, err error) error {
		return &RunError{Run: res.Run, MonteCarlo: mc, Year: year, Coefficients: c, Err: err}
	}

	cur := res.Coefficients
	if err := r.state.ResetRun(sc.seed.Grid); err != nil {
		return fail(0, cur, err)
	}

	for year := sc.startYear + 1; year <= sc.stopYear; year++ {
		if r.perf != nil {
			r.perf.StartYear()
		}
		layers := growth.Layers{
			Slope:    repo.Slope(),
			Excluded: repo.Excluded(),
			Roads:    repo.RoadFor(year),
		}
		yr, err := r.engine.Grow(cur, layers)
		if err != nil {
			return fail(year, cur, err)
		}
		res.Tally.Merge(yr.Tally)

		roads := repo.RoadPixels(year)
		pctUrban := metrics.PercentUrban(yr.Population, roads, repo.ExcludedPixels(), repo.TotalPixels())
		rate := metrics.GrowthRate(yr.NumGrowth, yr.Population)

		if idx, ok := sc.recordIndex(year); ok {
			if r.perf != nil {
				r.perf.StartPhase(growth.PhaseMeasure)
			}
			rec, err := r.measure(res.Run, mc, year, idx, cur, yr)
			if err != nil {
				return fail(year, cur, err)
			}
			rec.PercentUrban = pctUrban
			rec.PercentRoad = metrics.PercentRoad(roads, repo.ExcludedPixels(), repo.TotalPixels())
			rec.GrowthRate = rate
			if err := sc.store.Put(rec); err != nil {
				return fail(year, cur, err)
			}
		}

		next := sc.set.SelfMod.Apply(cur, rate, pctUrban)
		if sc.set.TraceCoefficients {
			res.Trace = append(res.Trace, telemetry.CoeffRow{Run: res.Run, MonteCarlo: mc, Year: year, Coefficients: next})
		}
		slog.Debug("year grown", "run", res.Run, "mc", mc, "year", year, "result", yr, "growth_rate", rate)
		cur = next

		if r.perf != nil {
			r.perf.EndYear()
		}
	}

	if r.prob != nil {
		z := r.state.Z
		for _, p := range r.state.Cumulative() {
			r.prob[z.Offset(p.Row, p.Col)]++
		}
	}
	return nil
}

// measure builds the record of one simulated year. The coefficients stored
// are the ones the year was grown with.
func (r *Runner) measure(run, mc, year, idx int, c growth.Coefficients, yr growth.YearResult) (metrics.Record, error) {
	repo := r.sc.repo
	sp, err := r.meter.Measure(r.state.Z, r.state.Cumulative(), repo.Slope())
	if err != nil {
		return metrics.Record{}, err
	}

	rec := metrics.Record{Run: run, MonteCarlo: mc, Year: year}
	v := &rec.Values
	v.SetSpatial(sp)
	v.SNG = float64(yr.Counts.Spontaneous)
	v.SDC = float64(yr.Counts.Spread)
	v.OG = float64(yr.Counts.Organic)
	v.RT = float64(yr.Counts.Road)
	v.NumGrowthPix = float64(yr.NumGrowth)
	v.Diffusion = c.Diffusion
	v.Breed = c.Breed
	v.Spread = c.Spread
	v.SlopeResistance = c.SlopeResistance
	v.RoadGravity = c.RoadGravity

	if r.sc.set.Predict {
		v.LeeSallee = 1
	} else {
		ls, err := metrics.LeeSallee(r.state.Z, repo.Urban()[idx].Grid)
		if err != nil {
			return metrics.Record{}, err
		}
		v.LeeSallee = ls
	}
	return rec, nil
}

// summarize reads back the stored records, averages them per measured year
// and, outside prediction, scores the averages against the base statistics.
func (r *Runner) summarize(res *RunResult) error {
	sc := r.sc
	r.acc.Reset()

	collect := func(year, idx int) error {
		recs, err := sc.store.Records(res.Run, year)
		if err != nil {
			return err
		}
		avg, sd, err := r.acc.Summarize(idx, recs)
		if err != nil {
			return fmt.Errorf("year %d: %w", year, err)
		}
		res.Years = append(res.Years, YearStats{Year: year, Index: idx, Average: avg, StdDev: sd})
		return sc.store.Remove(res.Run, year)
	}

	if sc.set.Predict {
		for year := sc.startYear + 1; year <= sc.stopYear; year++ {
			r.acc.Reset()
			if err := collect(year, 0); err != nil {
				return err
			}
		}
		return nil
	}

	urban := sc.repo.Urban()
	for i := 1; i < len(urban); i++ {
		if err := collect(urban[i].Year, i); err != nil {
			return err
		}
	}
	agg, err := metrics.Score(sc.base, r.acc.Averages(), sc.set.LanduseMatch, sc.set.UseLanduseMatch)
	if err != nil {
		return err
	}
	res.Aggregate = agg
	res.Scored = true
	return nil
}

func (r *Runner) probability() *raster.Grid {
	g := raster.New(r.sc.repo.Rows, r.sc.repo.Cols)
	cells := g.Cells()
	n := r.sc.set.MonteCarlo
	for i, k := range r.prob {
		cells[i] = uint8(100 * k / n)
	}
	return g
}
