package telemetry

import (
	"testing"
	"time"

	"github.com/tfcollins140/sleuth3rUGM/growth"
)

func TestPerfCollector_BasicTiming(t *testing.T) {
	pc := NewPerfCollector(10)

	for i := 0; i < 5; i++ {
		pc.StartYear()
		pc.StartPhase(growth.PhaseSpread)
		time.Sleep(100 * time.Microsecond)
		pc.StartPhase(growth.PhaseRoad)
		time.Sleep(200 * time.Microsecond)
		pc.EndYear()
	}

	stats := pc.Stats()

	if stats.AvgYearDuration <= 0 {
		t.Error("expected positive average year duration")
	}
	if _, ok := stats.PhaseAvg[growth.PhaseSpread]; !ok {
		t.Error("expected phase1n3 to be tracked")
	}
	if _, ok := stats.PhaseAvg[growth.PhaseRoad]; !ok {
		t.Error("expected phase5 to be tracked")
	}
	if pc.Years() != 5 {
		t.Errorf("Years() = %d, want 5", pc.Years())
	}
}

func TestPerfCollector_RollingWindow(t *testing.T) {
	pc := NewPerfCollector(5)

	for i := 0; i < 10; i++ {
		pc.StartYear()
		pc.StartPhase(growth.PhaseCommit)
		time.Sleep(10 * time.Microsecond)
		pc.EndYear()
	}

	stats := pc.Stats()
	if stats.AvgYearDuration <= 0 {
		t.Error("expected positive average year duration after window filled")
	}
	if stats.YearsPerSecond <= 0 {
		t.Error("expected positive years per second")
	}
	if pc.Years() != 10 {
		t.Errorf("Years() = %d, want 10", pc.Years())
	}
}

func TestPerfCollector_PhasePercentages(t *testing.T) {
	pc := NewPerfCollector(10)

	for i := 0; i < 5; i++ {
		pc.StartYear()
		pc.StartPhase("fast")
		time.Sleep(10 * time.Microsecond)
		pc.StartPhase("slow")
		time.Sleep(100 * time.Microsecond)
		pc.EndYear()
	}

	stats := pc.Stats()
	fastPct := stats.PhasePct["fast"]
	slowPct := stats.PhasePct["slow"]
	if slowPct <= fastPct {
		t.Errorf("expected slow phase (%v%%) > fast phase (%v%%)", slowPct, fastPct)
	}
}

func TestPerfCollector_EmptyStats(t *testing.T) {
	pc := NewPerfCollector(10)

	stats := pc.Stats()
	if stats.AvgYearDuration != 0 {
		t.Error("expected zero avg year duration for empty collector")
	}
	if stats.PhaseAvg == nil || stats.PhasePct == nil {
		t.Error("expected non-nil phase maps")
	}
}

func TestPerfStatsToCSV(t *testing.T) {
	s := PerfStats{
		AvgYearDuration: 1500 * time.Microsecond,
		PhasePct:        map[string]float64{growth.PhaseRoad: 40, growth.PhaseMeasure: 10},
	}
	row := s.ToCSV(7, 2)
	if row.Run != 7 || row.Worker != 2 {
		t.Errorf("run/worker = %d/%d", row.Run, row.Worker)
	}
	if row.AvgYearUS != 1500 {
		t.Errorf("AvgYearUS = %d, want 1500", row.AvgYearUS)
	}
	if row.RoadPct != 40 || row.MeasurePct != 10 || row.SpreadPct != 0 {
		t.Errorf("phase columns = %+v", row)
	}
}
