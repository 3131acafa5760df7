package telemetry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tfcollins140/sleuth3rUGM/growth"
)

func TestCheckpointSaveLoad(t *testing.T) {
	tmpDir := t.TempDir()

	cp := NewCheckpoint("demo", 42, 6)
	if cp.SessionID == "" {
		t.Fatal("NewCheckpoint did not assign a session id")
	}
	cp.MarkDone(2, 0.1, growth.Coefficients{Breed: 2})
	cp.MarkDone(0, 0.4, growth.Coefficients{Breed: 5})
	cp.MarkDone(1, 0.3, growth.Coefficients{Breed: 7})

	path, err := SaveCheckpoint(cp, tmpDir)
	if err != nil {
		t.Fatalf("SaveCheckpoint failed: %v", err)
	}
	if path != filepath.Join(tmpDir, CheckpointFile) {
		t.Errorf("path = %s", path)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary checkpoint file left behind")
	}

	loaded, err := LoadCheckpoint(path)
	if err != nil {
		t.Fatalf("LoadCheckpoint failed: %v", err)
	}
	if loaded.SessionID != cp.SessionID {
		t.Errorf("SessionID mismatch: got %s, want %s", loaded.SessionID, cp.SessionID)
	}
	if loaded.Seed != 42 || loaded.TotalRuns != 6 {
		t.Errorf("seed/total = %d/%d", loaded.Seed, loaded.TotalRuns)
	}
	if loaded.BestRun != 0 || loaded.BestCoefficients.Breed != 5 {
		t.Errorf("best = run %d %+v", loaded.BestRun, loaded.BestCoefficients)
	}
	if loaded.NextRun() != 3 || loaded.Remaining() != 3 {
		t.Errorf("NextRun/Remaining = %d/%d, want 3/3", loaded.NextRun(), loaded.Remaining())
	}
}

func TestCheckpointProgress(t *testing.T) {
	cp := NewCheckpoint("x", 1, 5)
	if cp.NextRun() != 0 {
		t.Errorf("fresh NextRun = %d", cp.NextRun())
	}

	cp.MarkDone(1, 0, growth.Coefficients{})
	cp.MarkDone(3, 0, growth.Coefficients{})
	cp.MarkDone(3, 0, growth.Coefficients{})
	if len(cp.Completed) != 2 {
		t.Errorf("Completed = %v, duplicate not ignored", cp.Completed)
	}
	if cp.NextRun() != 0 {
		t.Errorf("NextRun = %d with run 0 pending", cp.NextRun())
	}
	if !cp.Done(3) || cp.Done(2) {
		t.Error("Done disagrees with MarkDone")
	}
}

func TestLoadCheckpointVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), CheckpointFile)
	if err := os.WriteFile(path, []byte(`{"version": 99}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCheckpoint(path); err == nil {
		t.Error("loaded a checkpoint with an unknown version")
	}
}
