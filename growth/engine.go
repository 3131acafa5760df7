package growth

import (
	"fmt"
	"log/slog"

	"github.com/tfcollins140/sleuth3rUGM/raster"
	"github.com/tfcollins140/sleuth3rUGM/rng"
	"github.com/tfcollins140/sleuth3rUGM/roadindex"
)

// Phase names reported to a PhaseTimer.
const (
	PhaseReset   = "reset"
	PhaseSpread  = "phase1n3"
	PhaseOrganic = "phase4"
	PhaseRoad    = "phase5"
	PhaseCommit  = "commit"
	PhaseMeasure = "measure"
)

// PhaseTimer receives phase boundaries. telemetry.PerfCollector satisfies it.
type PhaseTimer interface {
	StartPhase(phase string)
}

// Layers are the read-only input rasters for one year. The engine borrows
// them; callers must not mutate a raster once it has been passed in.
type Layers struct {
	Slope    *raster.Grid
	Excluded *raster.Grid
	Roads    *raster.Grid
}

// YearResult is what Grow reports for one simulated year.
type YearResult struct {
	Counts       PhaseCounts
	Tally        Tally
	NumGrowth    int
	AverageSlope float64
	Population   int
	ResetCells   int
}

// LogValue implements slog.LogValuer.
func (y YearResult) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("sng", y.Counts.Spontaneous),
		slog.Int("sdc", y.Counts.Spread),
		slog.Int("og", y.Counts.Organic),
		slog.Int("rt", y.Counts.Road),
		slog.Int("num_growth", y.NumGrowth),
		slog.Float64("avg_slope", y.AverageSlope),
		slog.Int("pop", y.Population),
	)
}

type stage uint8

const (
	stageIdle stage = iota
	stageReset
	stageSpread
	stageOrganic
	stageRoad
)

// Engine advances a GridState one year at a time. An Engine is not safe for
// concurrent use; run one per worker and share the roadindex.Cache.
type Engine struct {
	state *GridState
	rng   *rng.Source
	roads *roadindex.Cache
	opts  Options
	timer PhaseTimer

	// per-year working set
	stage       stage
	coeffs      Coefficients
	layers      Layers
	weights     [256]float64
	roadIx      *roadindex.Index
	excluded    []raster.Point
	excludedFor *raster.Grid
	counts      PhaseCounts
	tally       Tally
	resetCells  int
}

// NewEngine wires an engine to its state, random source and road index cache.
func NewEngine(state *GridState, src *rng.Source, cache *roadindex.Cache, opts Options) *Engine {
	if cache == nil {
		cache = roadindex.NewCache()
	}
	if opts.MinNeighborsToSpread <= 0 {
		opts.MinNeighborsToSpread = DefaultOptions().MinNeighborsToSpread
	}
	return &Engine{
		state: state,
		rng:   src,
		roads: cache,
		opts:  opts,
	}
}

// SetPhaseTimer installs an optional phase timer. Nil disables timing.
func (e *Engine) SetPhaseTimer(t PhaseTimer) { e.timer = t }

// State returns the grid state the engine mutates.
func (e *Engine) State() *GridState { return e.state }

// Options returns the engine settings.
func (e *Engine) Options() Options { return e.opts }

// Grow runs one full year: reset, spontaneous and spread growth, organic
// growth, road-influenced growth, then commit.
func (e *Engine) Grow(c Coefficients, layers Layers) (YearResult, error) {
	if err := e.BeginYear(c, layers); err != nil {
		return YearResult{}, err
	}
	if err := e.SpontaneousAndSpread(); err != nil {
		return YearResult{}, err
	}
	if err := e.Organic(); err != nil {
		return YearResult{}, err
	}
	if err := e.RoadInfluenced(); err != nil {
		return YearResult{}, err
	}
	return e.Commit()
}

// BeginYear resets the per-year state and prepares the lookup tables for c.
func (e *Engine) BeginYear(c Coefficients, layers Layers) error {
	e.mark(PhaseReset)
	for _, l := range []struct {
		name string
		g    *raster.Grid
	}{{"slope", layers.Slope}, {"excluded", layers.Excluded}, {"roads", layers.Roads}} {
		name, g := l.name, l.g
		if g == nil {
			return fmt.Errorf("%w: %s layer missing", ErrShapeMismatch, name)
		}
		if !e.state.Z.SameShape(g) {
			return fmt.Errorf("%w: %s layer %dx%d, state %dx%d",
				ErrShapeMismatch, name, g.Rows, g.Cols, e.state.Rows(), e.state.Cols())
		}
	}

	e.resetCells = e.state.ResetYear()
	e.coeffs = c
	e.layers = layers
	e.weights = SlopeWeights(c.SlopeResistance, e.opts.CriticalSlope)
	e.roadIx = e.roads.Get(layers.Roads)
	if e.excludedFor != layers.Excluded {
		e.excluded = layers.Excluded.PointsAtLeast(uint8(MaxCoefficient))
		e.excludedFor = layers.Excluded
	}
	e.counts = PhaseCounts{}
	e.tally = Tally{}
	e.stage = stageReset
	return nil
}

// Urbanize attempts to claim p with tag. Checks run in a fixed order:
// already urban, already claimed this year, slope, exclusion. The slope and
// exclusion tests each consume one draw. counter is incremented on success.
func (e *Engine) Urbanize(p raster.Point, tag uint8, counter *int) Outcome {
	o := e.urbanize(p, tag)
	e.tally.Add(o)
	if o.OK() && counter != nil {
		*counter++
	}
	return o
}

func (e *Engine) urbanize(p raster.Point, tag uint8) Outcome {
	s := e.state
	i := p.Row*s.Z.Cols + p.Col
	if s.Z.Cells()[i] != 0 {
		return OutcomeAlreadyUrban
	}
	if s.Delta.Cells()[i] != 0 {
		return OutcomeAlreadyClaimed
	}
	if !(e.rng.UniformFloat01() > e.weights[e.layers.Slope.Cells()[i]]) {
		return OutcomeSlope
	}
	if !(int(e.layers.Excluded.Cells()[i]) < e.rng.UniformInt(int(MaxCoefficient))) {
		return OutcomeExcluded
	}
	s.RecordGrowth(p, tag)
	return OutcomeSuccess
}

// UrbanizeNeighbor picks a random starting position on the neighbour ring
// of center, rotates until it lands inside the image, and tries to urbanize
// that neighbour. attempted is false when center is outside the image or
// has no neighbour inside it.
func (e *Engine) UrbanizeNeighbor(center raster.Point, tag uint8, counter *int) (nb raster.Point, o Outcome, attempted bool) {
	g := e.state.Z
	if !g.InBounds(center.Row, center.Col) {
		return raster.Point{}, 0, false
	}
	k := e.rng.UniformInt(len(raster.Ring))
	for range len(raster.Ring) {
		r, c := raster.RingNeighbor(center.Row, center.Col, k)
		if g.InBounds(r, c) {
			nb = raster.Point{Row: r, Col: c}
			return nb, e.Urbanize(nb, tag, counter), true
		}
		k++
	}
	return raster.Point{}, 0, false
}

// Commit finalises the year and returns its result.
func (e *Engine) Commit() (YearResult, error) {
	if e.stage != stageRoad {
		return YearResult{}, fmt.Errorf("%w: commit after stage %d", ErrPhaseOrder, e.stage)
	}
	e.mark(PhaseCommit)
	cr := e.state.CommitYear(e.layers.Slope, e.excluded)
	e.stage = stageIdle
	return YearResult{
		Counts:       e.counts,
		Tally:        e.tally,
		NumGrowth:    cr.NumGrowth,
		AverageSlope: cr.AverageSlope,
		Population:   e.state.Population(),
		ResetCells:   e.resetCells,
	}, nil
}

func (e *Engine) mark(phase string) {
	if e.timer != nil {
		e.timer.StartPhase(phase)
	}
}
