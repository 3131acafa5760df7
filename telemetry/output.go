package telemetry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gocarina/gocsv"

	"github.com/tfcollins140/sleuth3rUGM/config"
	"github.com/tfcollins140/sleuth3rUGM/growth"
	"github.com/tfcollins140/sleuth3rUGM/metrics"
)

// Output file names inside the output directory.
const (
	ControlFile = "control_stats.csv"
	AvgFile     = "avg.csv"
	StdDevFile  = "std_dev.csv"
	CoeffFile   = "coeff.csv"
	PerfFile    = "perf.csv"
	SummaryFile = "sweep_summary.csv"
	TopFile     = "top_runs.csv"
)

// ControlRow is one line of control_stats.csv: the aggregate score of a run,
// the r² of each compared metric and the run's starting coefficients.
type ControlRow struct {
	Session    string  `csv:"session"`
	Run        int     `csv:"run"`
	Product    float64 `csv:"product"`
	Compare    float64 `csv:"compare"`
	Pop        float64 `csv:"pop"`
	Edges      float64 `csv:"edges"`
	Clusters   float64 `csv:"clusters"`
	Size       float64 `csv:"size"`
	LeeSallee  float64 `csv:"leesalee"`
	Slope      float64 `csv:"slope"`
	PctUrban   float64 `csv:"pct_urban"`
	XMean      float64 `csv:"xmean"`
	YMean      float64 `csv:"ymean"`
	Rad        float64 `csv:"rad"`
	FMatch     float64 `csv:"fmatch"`
	Diffusion  float64 `csv:"diff"`
	Breed      float64 `csv:"brd"`
	Spread     float64 `csv:"sprd"`
	SlopeResis float64 `csv:"slp"`
	RoadGrav   float64 `csv:"rg"`
}

// NewControlRow flattens a run's aggregate score.
func NewControlRow(session string, run int, agg metrics.Aggregate, c growth.Coefficients) ControlRow {
	reg := agg.Regression
	return ControlRow{
		Session:    session,
		Run:        run,
		Product:    agg.Product,
		Compare:    agg.Compare,
		Pop:        reg.Pop.R2,
		Edges:      reg.Edges.R2,
		Clusters:   reg.Clusters.R2,
		Size:       reg.MeanClusterSize.R2,
		LeeSallee:  agg.LeeSallee,
		Slope:      reg.Slope.R2,
		PctUrban:   reg.PercentUrban.R2,
		XMean:      reg.XMean.R2,
		YMean:      reg.YMean.R2,
		Rad:        reg.Rad.R2,
		FMatch:     agg.FMatch,
		Diffusion:  c.Diffusion,
		Breed:      c.Breed,
		Spread:     c.Spread,
		SlopeResis: c.SlopeResistance,
		RoadGrav:   c.RoadGravity,
	}
}

// YearRow is one line of avg.csv or std_dev.csv.
type YearRow struct {
	Run   int `csv:"run"`
	Year  int `csv:"year"`
	Index int `csv:"index"`
	metrics.Values
}

// CoeffRow is one line of coeff.csv: the coefficients in effect after
// self-modification at the end of a year.
type CoeffRow struct {
	Run        int `csv:"run"`
	MonteCarlo int `csv:"monte_carlo"`
	Year       int `csv:"year"`
	growth.Coefficients
}

// OutputOptions selects the optional output files.
type OutputOptions struct {
	Control bool
	Avg     bool
	StdDev  bool
	Coeff   bool
	Perf    bool

	// Append keeps existing files and their headers, used when resuming.
	Append bool
}

// OptionsFromConfig maps the output section of a scenario onto OutputOptions.
func OptionsFromConfig(cfg *config.Config) OutputOptions {
	return OutputOptions{
		Control: cfg.Scenario.Mode != config.ModePredict,
		Avg:     cfg.Output.WriteAvg,
		StdDev:  cfg.Output.WriteStdDev,
		Coeff:   cfg.Output.WriteCoeff,
		Perf:    cfg.Output.WritePerf,
		Append:  cfg.Scenario.Mode == config.ModeRestart,
	}
}

// csvFile is an append-only CSV sink that writes its header once.
type csvFile struct {
	f             *os.File
	headerWritten bool
}

func openCSV(dir, name string, appendMode bool) (*csvFile, error) {
	path := filepath.Join(dir, name)
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if appendMode {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", name, err)
	}
	cf := &csvFile{f: f}
	if appendMode {
		info, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("stat %s: %w", name, err)
		}
		cf.headerWritten = info.Size() > 0
	}
	return cf, nil
}

func writeRows[T any](cf *csvFile, rows []T) error {
	if cf == nil || len(rows) == 0 {
		return nil
	}
	if !cf.headerWritten {
		if err := gocsv.Marshal(rows, cf.f); err != nil {
			return err
		}
		cf.headerWritten = true
		return nil
	}
	return gocsv.MarshalWithoutHeaders(rows, cf.f)
}

// OutputManager writes the per-run CSV outputs. It is safe for concurrent
// use by calibration workers.
type OutputManager struct {
	dir string

	mu      sync.Mutex
	control *csvFile
	avg     *csvFile
	stdDev  *csvFile
	coeff   *csvFile
	perf    *csvFile
}

// NewOutputManager creates the output directory and opens the selected files.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string, opts OutputOptions) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}
	for _, sel := range []struct {
		on   bool
		name string
		dst  **csvFile
	}{
		{opts.Control, ControlFile, &om.control},
		{opts.Avg, AvgFile, &om.avg},
		{opts.StdDev, StdDevFile, &om.stdDev},
		{opts.Coeff, CoeffFile, &om.coeff},
		{opts.Perf, PerfFile, &om.perf},
	} {
		if !sel.on {
			continue
		}
		cf, err := openCSV(dir, sel.name, opts.Append)
		if err != nil {
			om.Close()
			return nil, err
		}
		*sel.dst = cf
	}
	return om, nil
}

// WriteConfig saves the effective configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteControl appends a run's score to control_stats.csv.
func (om *OutputManager) WriteControl(row ControlRow) error {
	if om == nil {
		return nil
	}
	om.mu.Lock()
	defer om.mu.Unlock()
	if err := writeRows(om.control, []ControlRow{row}); err != nil {
		return fmt.Errorf("writing control stats: %w", err)
	}
	return nil
}

// WriteAverages appends per-year averages to avg.csv.
func (om *OutputManager) WriteAverages(rows []YearRow) error {
	if om == nil {
		return nil
	}
	om.mu.Lock()
	defer om.mu.Unlock()
	if err := writeRows(om.avg, rows); err != nil {
		return fmt.Errorf("writing averages: %w", err)
	}
	return nil
}

// WriteStdDev appends per-year deviations to std_dev.csv.
func (om *OutputManager) WriteStdDev(rows []YearRow) error {
	if om == nil {
		return nil
	}
	om.mu.Lock()
	defer om.mu.Unlock()
	if err := writeRows(om.stdDev, rows); err != nil {
		return fmt.Errorf("writing std dev: %w", err)
	}
	return nil
}

// WriteCoefficients appends a run's coefficient trace to coeff.csv.
func (om *OutputManager) WriteCoefficients(rows []CoeffRow) error {
	if om == nil {
		return nil
	}
	om.mu.Lock()
	defer om.mu.Unlock()
	if err := writeRows(om.coeff, rows); err != nil {
		return fmt.Errorf("writing coefficients: %w", err)
	}
	return nil
}

// WritePerf appends a performance stats record to perf.csv.
func (om *OutputManager) WritePerf(row PerfStatsCSV) error {
	if om == nil {
		return nil
	}
	om.mu.Lock()
	defer om.mu.Unlock()
	if err := writeRows(om.perf, []PerfStatsCSV{row}); err != nil {
		return fmt.Errorf("writing perf: %w", err)
	}
	return nil
}

// WriteSummary writes the sweep summary to its own file, replacing any
// previous one.
func (om *OutputManager) WriteSummary(s SweepSummary) error {
	if om == nil {
		return nil
	}
	f, err := os.Create(filepath.Join(om.dir, SummaryFile))
	if err != nil {
		return fmt.Errorf("creating %s: %w", SummaryFile, err)
	}
	if err := gocsv.Marshal([]SweepSummary{s}, f); err != nil {
		f.Close()
		return fmt.Errorf("writing summary: %w", err)
	}
	return f.Close()
}

// WriteTop writes the leaderboard, replacing any previous one.
func (om *OutputManager) WriteTop(entries []LeaderEntry) error {
	if om == nil || len(entries) == 0 {
		return nil
	}
	f, err := os.Create(filepath.Join(om.dir, TopFile))
	if err != nil {
		return fmt.Errorf("creating %s: %w", TopFile, err)
	}
	if err := gocsv.Marshal(entries, f); err != nil {
		f.Close()
		return fmt.Errorf("writing top runs: %w", err)
	}
	return f.Close()
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}
	om.mu.Lock()
	defer om.mu.Unlock()

	var errs []error
	for _, cf := range []*csvFile{om.control, om.avg, om.stdDev, om.coeff, om.perf} {
		if cf == nil {
			continue
		}
		if err := cf.f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
