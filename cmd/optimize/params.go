// Package main provides CMA-ES search for growth coefficients that maximize
// the calibration product score.
package main

import (
	"github.com/tfcollins140/sleuth3rUGM/config"
	"github.com/tfcollins140/sleuth3rUGM/growth"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Starting value
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector builds the five coefficient parameters from the configured
// ranges. A degenerate range (stop <= start) widens to the full 0..100 scale;
// the best-fit value is the starting point.
func NewParamVector(cc config.CoefficientsConfig) *ParamVector {
	spec := func(name string, r config.CoefficientRange) ParamSpec {
		lo, hi := r.Start, r.Stop
		if hi <= lo {
			lo, hi = 0, growth.MaxCoefficient
		}
		return ParamSpec{
			Name:    name,
			Path:    "coefficients." + name,
			Min:     lo,
			Max:     hi,
			Default: min(max(r.BestFit, lo), hi),
		}
	}
	return &ParamVector{
		Specs: []ParamSpec{
			spec("diffusion", cc.Diffusion),
			spec("breed", cc.Breed),
			spec("spread", cc.Spread),
			spec("slope_resistance", cc.SlopeResistance),
			spec("road_gravity", cc.RoadGravity),
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the starting parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// Coefficients converts clamped values to growth coefficients.
func (pv *ParamVector) Coefficients(values []float64) growth.Coefficients {
	c := pv.Clamp(values)
	return growth.Coefficients{
		Diffusion:       c[0],
		Breed:           c[1],
		Spread:          c[2],
		SlopeResistance: c[3],
		RoadGravity:     c[4],
	}
}

// ApplyToConfig stores values as the best-fit coefficients, which is what
// predict mode runs with.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	c := pv.Coefficients(values)
	cfg.Coefficients.Diffusion.BestFit = c.Diffusion
	cfg.Coefficients.Breed.BestFit = c.Breed
	cfg.Coefficients.Spread.BestFit = c.Spread
	cfg.Coefficients.SlopeResistance.BestFit = c.SlopeResistance
	cfg.Coefficients.RoadGravity.BestFit = c.RoadGravity
}

// ExtractFromConfig extracts the best-fit coefficients from a Config struct.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	b := cfg.Coefficients.BestFit()
	return []float64{b.Diffusion, b.Breed, b.Spread, b.SlopeResistance, b.RoadGravity}
}
