package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/tfcollins140/sleuth3rUGM/calibrate"
	"github.com/tfcollins140/sleuth3rUGM/config"
	"github.com/tfcollins140/sleuth3rUGM/gridio"
	"github.com/tfcollins140/sleuth3rUGM/metrics"
	"github.com/tfcollins140/sleuth3rUGM/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to scenario YAML (empty = use defaults)")
	mode := flag.String("mode", "", "Processing mode: calibrate, test, predict or restart (empty = use config)")
	inputDir := flag.String("input-dir", "", "Directory holding the input rasters (empty = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs, checkpoint and config snapshot")
	seed := flag.Int64("seed", 0, "RNG seed (0 = config, then time-based)")
	monteCarlo := flag.Int("monte-carlo", 0, "Monte Carlo iterations per combination (0 = use config)")
	workers := flag.Int("workers", -1, "Concurrent runs (-1 = use config, 0 = one per CPU)")
	logLevel := flag.String("log-level", "", "debug, info, warn or error (empty = use config)")

	flag.Parse()

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	if *mode != "" {
		cfg.Scenario.Mode = *mode
	}
	if *inputDir != "" {
		cfg.Scenario.InputDir = *inputDir
	}
	if *outputDir != "" {
		cfg.Scenario.OutputDir = *outputDir
	}
	if *seed != 0 {
		cfg.Scenario.Seed = *seed
	}
	if *monteCarlo > 0 {
		cfg.Scenario.MonteCarlo = *monteCarlo
	}
	if *workers >= 0 {
		cfg.Calibration.Workers = *workers
	}
	if *logLevel != "" {
		cfg.Output.LogLevel = *logLevel
	}

	// Set up slog (JSON to stdout for structured logging)
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Output.LogLevel)); err != nil {
		slog.Error("bad log level", "level", cfg.Output.LogLevel, "error", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Set up seed
	if cfg.Scenario.Seed == 0 {
		cfg.Scenario.Seed = time.Now().UnixNano()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	if err := run(ctx, cfg); err != nil {
		var re *calibrate.RunError
		if errors.As(err, &re) {
			slog.Error("run failed", "run", re)
		} else {
			slog.Error("failed", "error", err)
		}
		stop()
		os.Exit(1)
	}
	slog.Info("done", "mode", cfg.Scenario.Mode, "elapsed", time.Since(start).Round(time.Millisecond))
}

func run(ctx context.Context, cfg *config.Config) error {
	outDir := cfg.Scenario.OutputDir
	combos := calibrate.Plan(cfg)

	var cp *telemetry.Checkpoint
	switch {
	case cfg.Scenario.Mode == config.ModeRestart:
		loaded, err := telemetry.LoadCheckpoint(filepath.Join(outDir, telemetry.CheckpointFile))
		if err != nil {
			return err
		}
		if loaded.TotalRuns != len(combos) {
			return fmt.Errorf("checkpoint covers %d runs, config sweeps %d", loaded.TotalRuns, len(combos))
		}
		cp = loaded
		cfg.Scenario.Seed = cp.Seed
		slog.Info("resuming", "session", cp.SessionID, "next_run", cp.NextRun(), "remaining", cp.Remaining())
	case cfg.Scenario.Mode != config.ModePredict:
		cp = telemetry.NewCheckpoint(cfg.Scenario.Name, cfg.Scenario.Seed, len(combos))
	}

	repo, err := gridio.Load(cfg.Scenario.InputDir, cfg.Inputs)
	if err != nil {
		return err
	}

	var store metrics.RecordStore
	if cfg.Stats.RecordStore == config.StoreFile {
		fs, err := metrics.NewFileStore(filepath.Join(outDir, "records"), cfg.Scenario.MonteCarlo)
		if err != nil {
			return err
		}
		store = fs
	}
	sc, err := calibrate.NewScenario(repo, calibrate.SettingsFromConfig(cfg), store)
	if err != nil {
		return err
	}

	om, err := telemetry.NewOutputManager(outDir, telemetry.OptionsFromConfig(cfg))
	if err != nil {
		return err
	}
	defer om.Close()
	if err := om.WriteConfig(cfg); err != nil {
		return err
	}

	if cfg.Scenario.Mode == config.ModePredict {
		return predict(ctx, sc, om, combos[0])
	}

	stats := telemetry.NewSweepStats()
	sw := &calibrate.Sweep{
		Scenario:   sc,
		Workers:    cfg.Calibration.Workers,
		Output:     om,
		Stats:      stats,
		Checkpoint: cp,
	}
	if cfg.Output.Restart {
		sw.CheckpointDir = outDir
	}
	slog.Info("starting",
		"mode", cfg.Scenario.Mode,
		"scenario", cfg.Scenario.Name,
		"seed", cfg.Scenario.Seed,
		"session", sw.Session(),
		"combinations", len(combos),
	)
	if err := sw.Run(ctx, combos); err != nil {
		return err
	}

	summary := stats.Summary()
	slog.Info("sweep complete", "summary", summary)
	if err := om.WriteSummary(summary); err != nil {
		return err
	}
	return om.WriteTop(stats.Top())
}

// predict runs the best-fit coefficients forward and writes the yearly
// averages and the urban probability raster of the stop year.
func predict(ctx context.Context, sc *calibrate.Scenario, om *telemetry.OutputManager, cb calibrate.Combination) error {
	start, stop := sc.Years()
	slog.Info("predicting", "from", start, "to", stop, "coefficients", cb.Coefficients)

	res, err := sc.NewRunner(0).Run(ctx, cb.Run, cb.Coefficients)
	if err != nil {
		return err
	}
	if err := calibrate.Report(om, "", res); err != nil {
		return err
	}
	slog.Info("prediction complete", "result", res)

	if om == nil || res.Probability == nil {
		return nil
	}
	path := filepath.Join(om.Dir(), fmt.Sprintf("urban_probability_%d.png", stop))
	if err := gridio.WriteRaster(path, res.Probability); err != nil {
		return err
	}
	slog.Info("probability raster written", "path", path)
	return nil
}
