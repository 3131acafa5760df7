package calibrate

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tfcollins140/sleuth3rUGM/config"
	"github.com/tfcollins140/sleuth3rUGM/growth"
	"github.com/tfcollins140/sleuth3rUGM/telemetry"
)

// Combination is one point of the coefficient grid and its run index.
type Combination struct {
	Run          int
	Coefficients growth.Coefficients
}

// Combinations enumerates the coefficient grid with diffusion outermost,
// then breed, spread, slope resistance and road gravity innermost. Run
// indexes follow that order from 0.
func Combinations(cc config.CoefficientsConfig) []Combination {
	var out []Combination
	for _, d := range cc.Diffusion.Values() {
		for _, b := range cc.Breed.Values() {
			for _, s := range cc.Spread.Values() {
				for _, sl := range cc.SlopeResistance.Values() {
					for _, rg := range cc.RoadGravity.Values() {
						out = append(out, Combination{
							Run: len(out),
							Coefficients: growth.Coefficients{
								Diffusion:       d,
								Breed:           b,
								Spread:          s,
								SlopeResistance: sl,
								RoadGravity:     rg,
							},
						})
					}
				}
			}
		}
	}
	return out
}

// Plan returns the combinations a processing mode evaluates: the whole grid
// for calibrate and restart, its first point for test, and the best-fit
// coefficients for predict.
func Plan(cfg *config.Config) []Combination {
	switch cfg.Scenario.Mode {
	case config.ModePredict:
		return []Combination{{Run: 0, Coefficients: cfg.Coefficients.BestFit()}}
	case config.ModeTest:
		return Combinations(cfg.Coefficients)[:1]
	default:
		return Combinations(cfg.Coefficients)
	}
}

// Sweep evaluates combinations on a bounded pool of runners and reports each
// finished run. Runs are independent, so results arrive in completion order.
type Sweep struct {
	Scenario *Scenario
	Workers  int // <= 0 means one per CPU

	Output *telemetry.OutputManager
	Stats  *telemetry.SweepStats

	// Checkpoint, when set, skips completed runs and is saved to
	// CheckpointDir after every run.
	Checkpoint    *telemetry.Checkpoint
	CheckpointDir string

	// OnResult is called after a run has been reported, under the sweep lock.
	OnResult func(*RunResult)

	mu sync.Mutex
}

// Session returns the checkpoint session id, if any.
func (sw *Sweep) Session() string {
	if sw.Checkpoint == nil {
		return ""
	}
	return sw.Checkpoint.SessionID
}

// Run evaluates every pending combination. The first failing run cancels the
// rest and its error is returned.
func (sw *Sweep) Run(ctx context.Context, combos []Combination) error {
	workers := sw.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	pending := combos[:0:0]
	for _, cb := range combos {
		if sw.Checkpoint != nil && sw.Checkpoint.Done(cb.Run) {
			continue
		}
		pending = append(pending, cb)
	}
	workers = max(1, min(workers, len(pending)))
	slog.Info("sweep starting",
		"combinations", len(combos),
		"pending", len(pending),
		"workers", workers,
		"session", sw.Session(),
	)
	if len(pending) == 0 {
		return nil
	}

	runners := make(chan *Runner, workers)
	for w := 0; w < workers; w++ {
		runners <- sw.Scenario.NewRunner(w)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, cb := range pending {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			r := <-runners
			defer func() { runners <- r }()

			res, err := r.Run(ctx, cb.Run, cb.Coefficients)
			if err != nil {
				return err
			}
			return sw.finish(res)
		})
	}
	return g.Wait()
}

func (sw *Sweep) finish(res *RunResult) error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if err := Report(sw.Output, sw.Session(), res); err != nil {
		return fmt.Errorf("report run %d: %w", res.Run, err)
	}
	if sw.Stats != nil && res.Scored {
		sw.Stats.Add(res.Run, res.Aggregate.Product, res.Coefficients)
	}
	if sw.Checkpoint != nil {
		sw.Checkpoint.MarkDone(res.Run, res.Aggregate.Product, res.Coefficients)
		if sw.CheckpointDir != "" {
			if _, err := telemetry.SaveCheckpoint(sw.Checkpoint, sw.CheckpointDir); err != nil {
				return err
			}
		}
	}
	slog.Info("run complete", "result", res)
	if sw.OnResult != nil {
		sw.OnResult(res)
	}
	return nil
}

// Report writes a run's rows to the output files.
func Report(om *telemetry.OutputManager, session string, res *RunResult) error {
	if om == nil {
		return nil
	}
	if res.Scored {
		if err := om.WriteControl(telemetry.NewControlRow(session, res.Run, res.Aggregate, res.Coefficients)); err != nil {
			return err
		}
	}

	avg := make([]telemetry.YearRow, len(res.Years))
	sd := make([]telemetry.YearRow, len(res.Years))
	for i, y := range res.Years {
		avg[i] = telemetry.YearRow{Run: res.Run, Year: y.Year, Index: y.Index, Values: y.Average}
		sd[i] = telemetry.YearRow{Run: res.Run, Year: y.Year, Index: y.Index, Values: y.StdDev}
	}
	if err := om.WriteAverages(avg); err != nil {
		return err
	}
	if err := om.WriteStdDev(sd); err != nil {
		return err
	}
	if err := om.WriteCoefficients(res.Trace); err != nil {
		return err
	}
	if res.Perf != nil {
		if err := om.WritePerf(res.Perf.ToCSV(res.Run, res.Worker)); err != nil {
			return err
		}
	}
	return nil
}
