package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tfcollins140/sleuth3rUGM/growth"
	"github.com/tfcollins140/sleuth3rUGM/metrics"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestOutputManagerDisabled(t *testing.T) {
	om, err := NewOutputManager("", OutputOptions{Control: true})
	if err != nil || om != nil {
		t.Fatalf("empty dir: om=%v err=%v", om, err)
	}
	// nil manager is a no-op
	if err := om.WriteControl(ControlRow{}); err != nil {
		t.Error(err)
	}
	if err := om.Close(); err != nil {
		t.Error(err)
	}
}

func TestOutputManagerHeadersOnce(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir, OutputOptions{Control: true, Avg: true})
	if err != nil {
		t.Fatalf("NewOutputManager: %v", err)
	}

	agg := metrics.Aggregate{Product: 0.5, Compare: 0.9, LeeSallee: 0.7}
	agg.Regression.Pop.R2 = 0.8
	c := growth.Coefficients{Diffusion: 1, Breed: 2, Spread: 3, SlopeResistance: 4, RoadGravity: 5}
	for run := 0; run < 3; run++ {
		if err := om.WriteControl(NewControlRow("s", run, agg, c)); err != nil {
			t.Fatalf("WriteControl: %v", err)
		}
	}
	rows := []YearRow{{Run: 0, Year: 1950, Index: 1}, {Run: 0, Year: 1970, Index: 2}}
	rows[1].Pop = 12
	if err := om.WriteAverages(rows); err != nil {
		t.Fatalf("WriteAverages: %v", err)
	}
	// disabled files are skipped silently
	if err := om.WriteStdDev(rows); err != nil {
		t.Errorf("WriteStdDev on disabled file: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	control := readLines(t, filepath.Join(dir, ControlFile))
	if len(control) != 4 {
		t.Fatalf("control has %d lines, want header + 3", len(control))
	}
	if !strings.HasPrefix(control[0], "session,run,product,compare,pop") {
		t.Errorf("control header = %q", control[0])
	}
	if !strings.HasSuffix(control[1], ",1,2,3,4,5") {
		t.Errorf("control row = %q", control[1])
	}

	avg := readLines(t, filepath.Join(dir, AvgFile))
	if len(avg) != 3 {
		t.Fatalf("avg has %d lines, want header + 2", len(avg))
	}
	if !strings.HasPrefix(avg[0], "run,year,index,sng,sdg,sdc,og,rt,pop") {
		t.Errorf("avg header = %q", avg[0])
	}
	if _, err := os.Stat(filepath.Join(dir, StdDevFile)); !os.IsNotExist(err) {
		t.Error("std_dev.csv created although disabled")
	}
}

func TestOutputManagerAppend(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 2; i++ {
		om, err := NewOutputManager(dir, OutputOptions{Control: true, Append: true})
		if err != nil {
			t.Fatal(err)
		}
		if err := om.WriteControl(ControlRow{Run: i}); err != nil {
			t.Fatal(err)
		}
		if err := om.Close(); err != nil {
			t.Fatal(err)
		}
	}
	lines := readLines(t, filepath.Join(dir, ControlFile))
	if len(lines) != 3 {
		t.Errorf("appended control has %d lines, want header + 2:\n%s", len(lines), strings.Join(lines, "\n"))
	}
}

func TestWriteSummary(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir, OutputOptions{})
	if err != nil {
		t.Fatal(err)
	}
	defer om.Close()

	s := NewSweepStats()
	s.Add(0, 0.3, growth.Coefficients{RoadGravity: 25})
	if err := om.WriteSummary(s.Summary()); err != nil {
		t.Fatalf("WriteSummary: %v", err)
	}
	lines := readLines(t, filepath.Join(dir, SummaryFile))
	if len(lines) != 2 || !strings.Contains(lines[0], "road_gravity") {
		t.Errorf("summary = %v", lines)
	}

	if err := om.WriteTop(s.Top()); err != nil {
		t.Fatalf("WriteTop: %v", err)
	}
	top := readLines(t, filepath.Join(dir, TopFile))
	if len(top) != 2 || !strings.HasPrefix(top[0], "rank,run,product") || !strings.HasPrefix(top[1], "1,0,") {
		t.Errorf("top runs = %v", top)
	}
}
