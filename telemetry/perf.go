package telemetry

import (
	"log/slog"
	"time"

	"github.com/tfcollins140/sleuth3rUGM/growth"
)

// Phases reported by the growth engine and the calibration driver, in the
// order they run within one simulated year.
var Phases = []string{
	growth.PhaseReset,
	growth.PhaseSpread,
	growth.PhaseOrganic,
	growth.PhaseRoad,
	growth.PhaseCommit,
	growth.PhaseMeasure,
}

// PerfSample holds timing data for a single simulated year.
type PerfSample struct {
	YearDuration time.Duration
	Phases       map[string]time.Duration
}

// PerfCollector tracks per-year timing over a rolling window. It is not safe
// for concurrent use; each calibration worker owns one.
type PerfCollector struct {
	windowSize    int
	samples       []PerfSample
	writeIndex    int
	sampleCount   int
	totalYears    int
	currentPhases map[string]time.Duration
	yearStart     time.Time
	phaseStart    time.Time
	lastPhase     string
}

// NewPerfCollector creates a collector averaging over the last windowSize
// years.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 100
	}
	return &PerfCollector{
		windowSize:    windowSize,
		samples:       make([]PerfSample, windowSize),
		currentPhases: make(map[string]time.Duration),
	}
}

// StartYear begins timing a new simulated year.
func (p *PerfCollector) StartYear() {
	p.yearStart = time.Now()
	p.currentPhases = make(map[string]time.Duration)
	p.lastPhase = ""
}

// StartPhase begins timing a specific phase.
func (p *PerfCollector) StartPhase(phase string) {
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}
	p.phaseStart = now
	p.lastPhase = phase
}

// EndYear finishes timing the current year and records the sample.
func (p *PerfCollector) EndYear() {
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}

	p.samples[p.writeIndex] = PerfSample{
		YearDuration: now.Sub(p.yearStart),
		Phases:       p.currentPhases,
	}
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
	p.totalYears++
	p.lastPhase = ""
}

// Years returns how many years have been recorded since creation.
func (p *PerfCollector) Years() int { return p.totalYears }

// PerfStats holds aggregated performance statistics.
type PerfStats struct {
	AvgYearDuration time.Duration
	MinYearDuration time.Duration
	MaxYearDuration time.Duration

	// Phase breakdown (average durations)
	PhaseAvg map[string]time.Duration

	// Phase percentages of total year time
	PhasePct map[string]float64

	YearsPerSecond float64
}

// Stats computes aggregated statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	if p.sampleCount == 0 {
		return PerfStats{
			PhaseAvg: make(map[string]time.Duration),
			PhasePct: make(map[string]float64),
		}
	}

	var total, minYear, maxYear time.Duration
	phaseSum := make(map[string]time.Duration)

	for i := 0; i < p.sampleCount; i++ {
		s := p.samples[i]
		total += s.YearDuration

		if i == 0 || s.YearDuration < minYear {
			minYear = s.YearDuration
		}
		if s.YearDuration > maxYear {
			maxYear = s.YearDuration
		}
		for phase, dur := range s.Phases {
			phaseSum[phase] += dur
		}
	}

	avg := total / time.Duration(p.sampleCount)

	phaseAvg := make(map[string]time.Duration)
	phasePct := make(map[string]float64)
	for phase, sum := range phaseSum {
		phaseAvg[phase] = sum / time.Duration(p.sampleCount)
		if avg > 0 {
			phasePct[phase] = float64(phaseAvg[phase]) / float64(avg) * 100
		}
	}

	var perSec float64
	if avg > 0 {
		perSec = float64(time.Second) / float64(avg)
	}

	return PerfStats{
		AvgYearDuration: avg,
		MinYearDuration: minYear,
		MaxYearDuration: maxYear,
		PhaseAvg:        phaseAvg,
		PhasePct:        phasePct,
		YearsPerSecond:  perSec,
	}
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_year_us", s.AvgYearDuration.Microseconds()),
		slog.Int64("min_year_us", s.MinYearDuration.Microseconds()),
		slog.Int64("max_year_us", s.MaxYearDuration.Microseconds()),
		slog.Float64("years_per_sec", s.YearsPerSecond),
	}
	for _, phase := range Phases {
		if pct, ok := s.PhasePct[phase]; ok && pct > 0.1 {
			attrs = append(attrs, slog.Float64(phase+"_pct", float64(int(pct*10))/10))
		}
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is a flat struct for CSV export of performance stats.
type PerfStatsCSV struct {
	Run         int     `csv:"run"`
	Worker      int     `csv:"worker"`
	AvgYearUS   int64   `csv:"avg_year_us"`
	MinYearUS   int64   `csv:"min_year_us"`
	MaxYearUS   int64   `csv:"max_year_us"`
	YearsPerSec float64 `csv:"years_per_sec"`
	ResetPct    float64 `csv:"reset_pct"`
	SpreadPct   float64 `csv:"phase1n3_pct"`
	OrganicPct  float64 `csv:"phase4_pct"`
	RoadPct     float64 `csv:"phase5_pct"`
	CommitPct   float64 `csv:"commit_pct"`
	MeasurePct  float64 `csv:"measure_pct"`
}

// ToCSV converts PerfStats to a flat CSV-friendly struct.
func (s PerfStats) ToCSV(run, worker int) PerfStatsCSV {
	return PerfStatsCSV{
		Run:         run,
		Worker:      worker,
		AvgYearUS:   s.AvgYearDuration.Microseconds(),
		MinYearUS:   s.MinYearDuration.Microseconds(),
		MaxYearUS:   s.MaxYearDuration.Microseconds(),
		YearsPerSec: s.YearsPerSecond,
		ResetPct:    s.PhasePct[growth.PhaseReset],
		SpreadPct:   s.PhasePct[growth.PhaseSpread],
		OrganicPct:  s.PhasePct[growth.PhaseOrganic],
		RoadPct:     s.PhasePct[growth.PhaseRoad],
		CommitPct:   s.PhasePct[growth.PhaseCommit],
		MeasurePct:  s.PhasePct[growth.PhaseMeasure],
	}
}
