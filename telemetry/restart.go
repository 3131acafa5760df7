package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/tfcollins140/sleuth3rUGM/growth"
)

// CheckpointVersion is incremented when the format changes.
const CheckpointVersion = 1

// CheckpointFile is the checkpoint name inside the output directory.
const CheckpointFile = "restart.json"

// Checkpoint records sweep progress so an interrupted calibration can resume.
// Runs may finish out of order, so every completed run index is kept.
type Checkpoint struct {
	Version   int    `json:"version"`
	SessionID string `json:"session_id"`
	Scenario  string `json:"scenario"`
	Seed      int64  `json:"seed"`
	TotalRuns int    `json:"total_runs"`

	Completed []int `json:"completed_runs"`

	BestRun          int                 `json:"best_run"`
	BestProduct      float64             `json:"best_product"`
	BestCoefficients growth.Coefficients `json:"best_coefficients"`

	UpdatedAt time.Time `json:"updated_at"`
}

// NewCheckpoint starts a checkpoint for a fresh calibration session.
func NewCheckpoint(scenario string, seed int64, totalRuns int) *Checkpoint {
	return &Checkpoint{
		Version:   CheckpointVersion,
		SessionID: uuid.NewString(),
		Scenario:  scenario,
		Seed:      seed,
		TotalRuns: totalRuns,
		BestRun:   -1,
	}
}

// Done reports whether run has completed.
func (c *Checkpoint) Done(run int) bool {
	_, found := slices.BinarySearch(c.Completed, run)
	return found
}

// MarkDone records a completed run and its score.
func (c *Checkpoint) MarkDone(run int, product float64, coeffs growth.Coefficients) {
	i, found := slices.BinarySearch(c.Completed, run)
	if !found {
		c.Completed = slices.Insert(c.Completed, i, run)
	}
	if c.BestRun < 0 || product > c.BestProduct {
		c.BestRun = run
		c.BestProduct = product
		c.BestCoefficients = coeffs
	}
}

// NextRun returns the lowest run index not yet completed, or TotalRuns when
// the sweep is finished.
func (c *Checkpoint) NextRun() int {
	next := 0
	for _, r := range c.Completed {
		if r != next {
			break
		}
		next++
	}
	return next
}

// Remaining returns how many runs are still to do.
func (c *Checkpoint) Remaining() int { return c.TotalRuns - len(c.Completed) }

// SaveCheckpoint writes c to dir/restart.json through a temporary file so a
// crash mid-write leaves the previous checkpoint intact.
func SaveCheckpoint(c *Checkpoint, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create checkpoint dir: %w", err)
	}
	c.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal checkpoint: %w", err)
	}

	path := filepath.Join(dir, CheckpointFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", fmt.Errorf("write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("replace checkpoint: %w", err)
	}
	return path, nil
}

// LoadCheckpoint reads a checkpoint from disk.
func LoadCheckpoint(path string) (*Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}

	var c Checkpoint
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshal checkpoint: %w", err)
	}
	if c.Version != CheckpointVersion {
		return nil, fmt.Errorf("checkpoint %s: version %d, want %d", path, c.Version, CheckpointVersion)
	}
	slices.Sort(c.Completed)
	return &c, nil
}
