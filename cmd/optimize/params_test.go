package main

import (
	"math"
	"testing"

	"github.com/tfcollins140/sleuth3rUGM/config"
)

func testRanges() config.CoefficientsConfig {
	return config.CoefficientsConfig{
		Diffusion:       config.CoefficientRange{Start: 0, Stop: 100, Step: 25, BestFit: 40},
		Breed:           config.CoefficientRange{Start: 10, Stop: 60, Step: 10, BestFit: 80},
		Spread:          config.CoefficientRange{Start: 50, Stop: 50, Step: 1, BestFit: 50},
		SlopeResistance: config.CoefficientRange{Start: 0, Stop: 100, Step: 50, BestFit: 0},
		RoadGravity:     config.CoefficientRange{Start: 20, Stop: 40, Step: 5, BestFit: 30},
	}
}

func TestNewParamVector(t *testing.T) {
	pv := NewParamVector(testRanges())
	if pv.Dim() != 5 {
		t.Fatalf("Dim = %d, want 5", pv.Dim())
	}

	tests := []struct {
		name          string
		min, max, def float64
	}{
		{"diffusion", 0, 100, 40},
		{"breed", 10, 60, 60},  // best fit clamped to range
		{"spread", 0, 100, 50}, // degenerate range widened
		{"slope_resistance", 0, 100, 0},
		{"road_gravity", 20, 40, 30},
	}
	for i, tt := range tests {
		s := pv.Specs[i]
		if s.Name != tt.name || s.Min != tt.min || s.Max != tt.max || s.Default != tt.def {
			t.Errorf("spec %d = %+v, want %s [%v,%v] default %v", i, s, tt.name, tt.min, tt.max, tt.def)
		}
	}
}

func TestNormalizeRoundTrip(t *testing.T) {
	pv := NewParamVector(testRanges())
	raw := pv.DefaultVector()
	back := pv.Denormalize(pv.Normalize(raw))
	for i := range raw {
		if math.Abs(back[i]-raw[i]) > 1e-9 {
			t.Errorf("param %d: got %v, want %v", i, back[i], raw[i])
		}
	}
}

func TestCoefficientsClamp(t *testing.T) {
	pv := NewParamVector(testRanges())
	c := pv.Coefficients([]float64{-5, 99, 50, 120, 35})
	if c.Diffusion != 0 || c.Breed != 60 || c.Spread != 50 || c.SlopeResistance != 100 || c.RoadGravity != 35 {
		t.Errorf("Coefficients = %+v", c)
	}
}

func TestApplyToConfig(t *testing.T) {
	pv := NewParamVector(testRanges())
	cfg := &config.Config{Coefficients: testRanges()}
	pv.ApplyToConfig(cfg, []float64{12, 20, 30, 40, 25})

	got := pv.ExtractFromConfig(cfg)
	want := []float64{12, 20, 30, 40, 25}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("param %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestAgreement(t *testing.T) {
	if got := agreement([]float64{0.4, 0.4, 0.4}); got != 1 {
		t.Errorf("agreement(equal) = %v, want 1", got)
	}
	if got := agreement([]float64{0, 0}); got != 0 {
		t.Errorf("agreement(zero) = %v, want 0", got)
	}
	if got := agreement([]float64{0.2, 0.6}); got <= 0 || got >= 1 {
		t.Errorf("agreement(scattered) = %v, want in (0,1)", got)
	}
}
