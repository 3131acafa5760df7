package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load defaults: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
	if cfg.Scenario.Mode != ModeCalibrate {
		t.Errorf("mode = %q, want calibrate", cfg.Scenario.Mode)
	}
	if got := cfg.Derived.SweepSize; got != 243 {
		t.Errorf("SweepSize = %d, want 243", got)
	}
	if got := cfg.Derived.UrbanYears; len(got) != 4 || got[0] != 1930 || got[3] != 1990 {
		t.Errorf("UrbanYears = %v", got)
	}
	if !cfg.SelfModification.Rule().Enabled {
		t.Error("self modification disabled by default")
	}
	if got := cfg.Growth.Options().MinNeighborsToSpread; got != 2 {
		t.Errorf("MinNeighborsToSpread = %d, want 2", got)
	}
}

func TestLoadOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.yaml")
	user := `
scenario:
  mode: predict
  monte_carlo: 10
inputs:
  urban:
    - {year: 1990, file: b.gif}
    - {year: 1970, file: a.gif}
coefficients:
  breed: {start: 10, stop: 20, step: 10, best_fit: 15}
`
	if err := os.WriteFile(path, []byte(user), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Scenario.MonteCarlo != 10 || cfg.Scenario.Mode != ModePredict {
		t.Errorf("scenario not overlaid: %+v", cfg.Scenario)
	}
	// untouched keys keep their defaults
	if cfg.Growth.CriticalSlope != 21 {
		t.Errorf("critical_slope = %v, want default 21", cfg.Growth.CriticalSlope)
	}
	if got := cfg.Derived.UrbanYears; len(got) != 2 || got[0] != 1970 {
		t.Errorf("UrbanYears = %v, want sorted [1970 1990]", got)
	}
	if got := cfg.Coefficients.BestFit().Breed; got != 15 {
		t.Errorf("best fit breed = %v, want 15", got)
	}
	if got := cfg.Derived.SweepSize; got != 2*3*3*3*3 {
		t.Errorf("SweepSize = %d, want 162", got)
	}
}

func TestCoefficientRangeValues(t *testing.T) {
	tests := []struct {
		name string
		r    CoefficientRange
		want []float64
	}{
		{"single", CoefficientRange{Start: 5, Stop: 5, Step: 1}, []float64{5}},
		{"zero step", CoefficientRange{Start: 5, Stop: 50}, []float64{5}},
		{"inclusive stop", CoefficientRange{Start: 0, Stop: 100, Step: 25}, []float64{0, 25, 50, 75, 100}},
		{"stop not on grid", CoefficientRange{Start: 1, Stop: 10, Step: 4}, []float64{1, 5, 9}},
		{"fractional", CoefficientRange{Start: 0, Stop: 0.3, Step: 0.1}, []float64{0, 0.1, 0.2, 0.3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.r.Values()
			if len(got) != len(tt.want) {
				t.Fatalf("Values() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if d := got[i] - tt.want[i]; d > 1e-9 || d < -1e-9 {
					t.Errorf("Values()[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestValidate(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Scenario.Mode = "explore"
	cfg.Scenario.MonteCarlo = 0
	cfg.Coefficients.Spread.Stop = 150
	cfg.Stats.RecordStore = "disk"

	err = cfg.Validate()
	if err == nil {
		t.Fatal("Validate accepted a broken config")
	}
	for _, want := range []string{"scenario.mode", "monte_carlo", "coefficients.spread", "record_store"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Scenario.Name = "roundtrip"
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}
	back, err := Load(path)
	if err != nil {
		t.Fatalf("Load written file: %v", err)
	}
	if back.Scenario.Name != "roundtrip" || back.Derived.SweepSize != cfg.Derived.SweepSize {
		t.Errorf("round trip lost data: %+v", back.Scenario)
	}
}

func TestCfgPanicsBeforeInit(t *testing.T) {
	saved := global
	global = nil
	defer func() {
		global = saved
		if recover() == nil {
			t.Error("Cfg() did not panic before Init")
		}
	}()
	Cfg()
}
