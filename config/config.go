// Package config provides scenario configuration loading and access.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/tfcollins140/sleuth3rUGM/growth"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Processing modes.
const (
	ModeCalibrate = "calibrate"
	ModeTest      = "test"
	ModePredict   = "predict"
	ModeRestart   = "restart"
)

// Record store kinds.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
)

// Config holds all scenario configuration.
type Config struct {
	Scenario         ScenarioConfig         `yaml:"scenario"`
	Inputs           InputsConfig           `yaml:"inputs"`
	Coefficients     CoefficientsConfig     `yaml:"coefficients"`
	Growth           GrowthConfig           `yaml:"growth"`
	SelfModification SelfModificationConfig `yaml:"self_modification"`
	Stats            StatsConfig            `yaml:"stats"`
	Output           OutputConfig           `yaml:"output"`
	Calibration      CalibrationConfig      `yaml:"calibration"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScenarioConfig identifies the scenario and how it is processed.
type ScenarioConfig struct {
	Name                string `yaml:"name"`
	InputDir            string `yaml:"input_dir"`
	OutputDir           string `yaml:"output_dir"`
	Seed                int64  `yaml:"seed"`        // 0 = time-based
	MonteCarlo          int    `yaml:"monte_carlo"` // iterations per coefficient combination
	Mode                string `yaml:"mode"`        // calibrate, test, predict, restart
	PredictionStartYear int    `yaml:"prediction_start_year"`
	PredictionStopYear  int    `yaml:"prediction_stop_year"`
}

// LayerFile is one dated input raster.
type LayerFile struct {
	Year int    `yaml:"year"`
	File string `yaml:"file"`
}

// InputsConfig lists the input rasters, relative to Scenario.InputDir.
type InputsConfig struct {
	Slope    string      `yaml:"slope"`
	Excluded string      `yaml:"excluded"`
	Urban    []LayerFile `yaml:"urban"` // historical urban extents; the first is the seed
	Roads    []LayerFile `yaml:"roads"`
}

// CoefficientRange is the sweep range of one coefficient and its best-fit
// value for prediction.
type CoefficientRange struct {
	Start   float64 `yaml:"start"`
	Stop    float64 `yaml:"stop"`
	Step    float64 `yaml:"step"`
	BestFit float64 `yaml:"best_fit"`
}

// Values returns start, start+step, ... up to and including stop.
func (r CoefficientRange) Values() []float64 {
	if r.Step <= 0 || r.Stop <= r.Start {
		return []float64{r.Start}
	}
	var out []float64
	// tolerate accumulated float error at the upper bound
	for i := 0; ; i++ {
		v := r.Start + float64(i)*r.Step
		if v > r.Stop+1e-9 {
			break
		}
		out = append(out, math.Min(v, r.Stop))
	}
	return out
}

// CoefficientsConfig holds the five coefficient ranges.
type CoefficientsConfig struct {
	Diffusion       CoefficientRange `yaml:"diffusion"`
	Breed           CoefficientRange `yaml:"breed"`
	Spread          CoefficientRange `yaml:"spread"`
	SlopeResistance CoefficientRange `yaml:"slope_resistance"`
	RoadGravity     CoefficientRange `yaml:"road_gravity"`
}

// BestFit returns the prediction coefficients.
func (c CoefficientsConfig) BestFit() growth.Coefficients {
	return growth.Coefficients{
		Diffusion:       c.Diffusion.BestFit,
		Breed:           c.Breed.BestFit,
		Spread:          c.Spread.BestFit,
		SlopeResistance: c.SlopeResistance.BestFit,
		RoadGravity:     c.RoadGravity.BestFit,
	}
}

// Start returns the first combination of the sweep.
func (c CoefficientsConfig) Start() growth.Coefficients {
	return growth.Coefficients{
		Diffusion:       c.Diffusion.Start,
		Breed:           c.Breed.Start,
		Spread:          c.Spread.Start,
		SlopeResistance: c.SlopeResistance.Start,
		RoadGravity:     c.RoadGravity.Start,
	}
}

func (c CoefficientsConfig) ranges() []struct {
	name string
	r    CoefficientRange
} {
	return []struct {
		name string
		r    CoefficientRange
	}{
		{"diffusion", c.Diffusion},
		{"breed", c.Breed},
		{"spread", c.Spread},
		{"slope_resistance", c.SlopeResistance},
		{"road_gravity", c.RoadGravity},
	}
}

// GrowthConfig holds growth-rule settings.
type GrowthConfig struct {
	CriticalSlope        float64 `yaml:"critical_slope"`
	MinNeighborsToSpread int     `yaml:"min_neighbors_to_spread"`
	AuxDiffusionMult     float64 `yaml:"aux_diffusion_mult"`  // > 0 replaces the 0.005 diagonal multiplier
	AuxDiffusionCoeff    float64 `yaml:"aux_diffusion_coeff"` // road walk; negative = multiple of diffusion
	AuxBreedCoeff        float64 `yaml:"aux_breed_coeff"`     // road trips; negative = multiple of breed
}

// Options converts to engine options.
func (g GrowthConfig) Options() growth.Options {
	return growth.Options{
		CriticalSlope:        g.CriticalSlope,
		MinNeighborsToSpread: g.MinNeighborsToSpread,
		AuxDiffusionMult:     g.AuxDiffusionMult,
		AuxDiffusionCoeff:    g.AuxDiffusionCoeff,
		AuxBreedCoeff:        g.AuxBreedCoeff,
	}
}

// SelfModificationConfig holds the boom/bust parameters.
type SelfModificationConfig struct {
	Enabled                bool    `yaml:"enabled"`
	CriticalLow            float64 `yaml:"critical_low"`
	CriticalHigh           float64 `yaml:"critical_high"`
	Boom                   float64 `yaml:"boom"`
	Bust                   float64 `yaml:"bust"`
	SlopeSensitivity       float64 `yaml:"slope_sensitivity"`
	RoadGravitySensitivity float64 `yaml:"road_gravity_sensitivity"`
}

// Rule converts to the growth package rule.
func (s SelfModificationConfig) Rule() growth.SelfModification {
	return growth.SelfModification(s)
}

// StatsConfig holds scoring parameters.
type StatsConfig struct {
	UseLanduseMatch   bool    `yaml:"use_landuse_match"`
	LanduseMatch      float64 `yaml:"landuse_match"`       // external land-use match fraction
	ClusterQueueLimit int     `yaml:"cluster_queue_limit"` // 0 = unbounded
	RecordStore       string  `yaml:"record_store"`        // memory or file
}

// OutputConfig selects the files written to Scenario.OutputDir.
type OutputConfig struct {
	WriteAvg    bool   `yaml:"write_avg"`
	WriteStdDev bool   `yaml:"write_std_dev"`
	WriteCoeff  bool   `yaml:"write_coeff"`
	WritePerf   bool   `yaml:"write_perf"`
	Restart     bool   `yaml:"restart"` // write restart.json after each run
	LogLevel    string `yaml:"log_level"`
}

// CalibrationConfig holds sweep execution settings.
type CalibrationConfig struct {
	Workers int `yaml:"workers"` // 0 = one per CPU
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	UrbanYears []int // ascending
	RoadYears  []int // ascending
	SweepSize  int   // number of coefficient combinations in a full sweep
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Only overwrites fields present in the file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.computeDerived()
	return cfg, nil
}

// computeDerived sorts the dated layers and sizes the sweep.
func (c *Config) computeDerived() {
	slices.SortFunc(c.Inputs.Urban, func(a, b LayerFile) int { return a.Year - b.Year })
	slices.SortFunc(c.Inputs.Roads, func(a, b LayerFile) int { return a.Year - b.Year })

	c.Derived.UrbanYears = c.Derived.UrbanYears[:0]
	for _, l := range c.Inputs.Urban {
		c.Derived.UrbanYears = append(c.Derived.UrbanYears, l.Year)
	}
	c.Derived.RoadYears = c.Derived.RoadYears[:0]
	for _, l := range c.Inputs.Roads {
		c.Derived.RoadYears = append(c.Derived.RoadYears, l.Year)
	}

	c.Derived.SweepSize = 1
	for _, r := range c.Coefficients.ranges() {
		c.Derived.SweepSize *= len(r.r.Values())
	}
}

// Validate reports every problem with the configuration.
func (c *Config) Validate() error {
	var errs []error
	switch c.Scenario.Mode {
	case ModeCalibrate, ModeTest, ModePredict, ModeRestart:
	default:
		errs = append(errs, fmt.Errorf("scenario.mode %q: want calibrate, test, predict or restart", c.Scenario.Mode))
	}
	if c.Scenario.MonteCarlo < 1 {
		errs = append(errs, fmt.Errorf("scenario.monte_carlo must be at least 1, got %d", c.Scenario.MonteCarlo))
	}
	if c.Inputs.Slope == "" || c.Inputs.Excluded == "" {
		errs = append(errs, errors.New("inputs.slope and inputs.excluded are required"))
	}
	if len(c.Inputs.Urban) == 0 {
		errs = append(errs, errors.New("inputs.urban needs at least one raster"))
	}
	if len(c.Inputs.Roads) == 0 {
		errs = append(errs, errors.New("inputs.roads needs at least one raster"))
	}
	if c.Scenario.Mode != ModePredict && len(c.Inputs.Urban) < 2 {
		errs = append(errs, errors.New("calibration needs at least two urban rasters"))
	}
	if c.Scenario.Mode == ModePredict && c.Scenario.PredictionStopYear <= c.Scenario.PredictionStartYear {
		errs = append(errs, fmt.Errorf("prediction years %d..%d are empty",
			c.Scenario.PredictionStartYear, c.Scenario.PredictionStopYear))
	}
	for _, r := range c.Coefficients.ranges() {
		for _, v := range []float64{r.r.Start, r.r.Stop, r.r.BestFit} {
			if v < 0 || v > growth.MaxCoefficient {
				errs = append(errs, fmt.Errorf("coefficients.%s: %v outside [0,100]", r.name, v))
				break
			}
		}
		if r.r.Step < 0 {
			errs = append(errs, fmt.Errorf("coefficients.%s.step must not be negative", r.name))
		}
	}
	if c.Growth.CriticalSlope <= 0 {
		errs = append(errs, fmt.Errorf("growth.critical_slope must be positive, got %v", c.Growth.CriticalSlope))
	}
	switch c.Stats.RecordStore {
	case StoreMemory, StoreFile:
	default:
		errs = append(errs, fmt.Errorf("stats.record_store %q: want memory or file", c.Stats.RecordStore))
	}
	return errors.Join(errs...)
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
