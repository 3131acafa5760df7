package calibrate

import (
	"fmt"
	"log/slog"

	"github.com/tfcollins140/sleuth3rUGM/growth"
)

// RunError is a fatal failure inside a run, carrying where it happened.
// Year is 0 when the failure is not tied to a simulated year.
type RunError struct {
	Run          int
	MonteCarlo   int
	Year         int
	Coefficients growth.Coefficients
	Err          error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run %d mc %d year %d: %v", e.Run, e.MonteCarlo, e.Year, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// LogValue implements slog.LogValuer.
func (e *RunError) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("run", e.Run),
		slog.Int("mc", e.MonteCarlo),
		slog.Int("year", e.Year),
		slog.Any("coefficients", e.Coefficients),
		slog.String("err", e.Err.Error()),
	)
}
