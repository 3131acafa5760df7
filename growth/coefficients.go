package growth

import (
	"log/slog"
	"math"
)

// Coefficient bounds.
const (
	MaxCoefficient     = 100.0
	MaxRoadValue       = 100.0
	MaxSlopeResistance = 100.0
)

// Coefficients are the five growth controls, each in [0, 100].
type Coefficients struct {
	Diffusion       float64 `yaml:"diffusion" json:"diffusion" csv:"diffusion"`
	Breed           float64 `yaml:"breed" json:"breed" csv:"breed"`
	Spread          float64 `yaml:"spread" json:"spread" csv:"spread"`
	SlopeResistance float64 `yaml:"slope_resistance" json:"slope_resistance" csv:"slope_resistance"`
	RoadGravity     float64 `yaml:"road_gravity" json:"road_gravity" csv:"road_gravity"`
}

// LogValue implements slog.LogValuer.
func (c Coefficients) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Float64("diffusion", c.Diffusion),
		slog.Float64("breed", c.Breed),
		slog.Float64("spread", c.Spread),
		slog.Float64("slope_resistance", c.SlopeResistance),
		slog.Float64("road_gravity", c.RoadGravity),
	)
}

// Options carries the scenario settings the engine needs besides coefficients.
type Options struct {
	CriticalSlope        float64
	MinNeighborsToSpread int

	// AuxDiffusionMult replaces the 0.005 diagonal multiplier when > 0.
	AuxDiffusionMult float64
	// AuxDiffusionCoeff and AuxBreedCoeff override the road-walk diffusion
	// and road-trip count. A negative value -m means m × the coefficient.
	AuxDiffusionCoeff float64
	AuxBreedCoeff     float64
}

// DefaultOptions returns the classic model settings.
func DefaultOptions() Options {
	return Options{
		CriticalSlope:        21,
		MinNeighborsToSpread: 2,
		AuxDiffusionMult:     0,
		AuxDiffusionCoeff:    -1,
		AuxBreedCoeff:        -1,
	}
}

// DiffusionValue scales the diffusion coefficient by the raster diagonal.
// At diffusion 100 with the default multiplier it is 50% of the diagonal.
func DiffusionValue(diffusion float64, rows, cols int, auxMult float64) float64 {
	diag := math.Sqrt(float64(rows*rows) + float64(cols*cols))
	mult := 0.005
	if auxMult > 0 {
		mult = auxMult
	}
	return diffusion * mult * diag
}

// RoadGravityValue converts road gravity into a search reach in pixels; at
// gravity 100 it is 1/16 of rows+cols.
func RoadGravityValue(roadGravity float64, rows, cols int) int {
	return int((roadGravity / MaxRoadValue) * (float64(rows+cols) / 16.0))
}

// SearchBudget is the pixel area the nearest-road search must cover for a
// given road gravity value: 8+16+...+8g, never less than either dimension.
func SearchBudget(gravityValue, rows, cols int) int {
	return max(4*gravityValue*(1+gravityValue), rows, cols)
}

// RoadBreedValue is the number of extra road trips per year.
func RoadBreedValue(breed, aux float64) float64 {
	if aux >= 0 {
		return aux
	}
	return -aux * breed
}

// RoadDiffusionValue controls how far a road walk travels.
func RoadDiffusionValue(diffusion, aux float64) float64 {
	if aux >= 0 {
		return aux
	}
	return -aux * diffusion
}
