package growth

import (
	"errors"
	"log/slog"
)

var (
	// ErrShapeMismatch is returned when a layer does not match the state raster.
	ErrShapeMismatch = errors.New("raster shape mismatch")
	// ErrPhaseOrder is returned when a growth phase is called out of sequence.
	ErrPhaseOrder = errors.New("growth phase out of order")
)

// Outcome classifies one Urbanize attempt.
type Outcome uint8

const (
	OutcomeSuccess Outcome = iota
	OutcomeAlreadyUrban
	OutcomeAlreadyClaimed
	OutcomeSlope
	OutcomeExcluded
)

// OK reports whether the attempt claimed the pixel.
func (o Outcome) OK() bool { return o == OutcomeSuccess }

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeAlreadyUrban:
		return "already_urban"
	case OutcomeAlreadyClaimed:
		return "already_claimed"
	case OutcomeSlope:
		return "slope"
	case OutcomeExcluded:
		return "excluded"
	default:
		return "unknown"
	}
}

// Tally counts Urbanize outcomes.
type Tally struct {
	Success        int `csv:"success"`
	AlreadyUrban   int `csv:"already_urban"`
	AlreadyClaimed int `csv:"already_claimed"`
	Slope          int `csv:"slope_fail"`
	Excluded       int `csv:"excluded_fail"`
}

// Add records one outcome.
func (t *Tally) Add(o Outcome) {
	switch o {
	case OutcomeSuccess:
		t.Success++
	case OutcomeAlreadyUrban:
		t.AlreadyUrban++
	case OutcomeAlreadyClaimed:
		t.AlreadyClaimed++
	case OutcomeSlope:
		t.Slope++
	case OutcomeExcluded:
		t.Excluded++
	}
}

// Merge adds other into t.
func (t *Tally) Merge(other Tally) {
	t.Success += other.Success
	t.AlreadyUrban += other.AlreadyUrban
	t.AlreadyClaimed += other.AlreadyClaimed
	t.Slope += other.Slope
	t.Excluded += other.Excluded
}

// Attempts returns the total number of recorded outcomes.
func (t Tally) Attempts() int {
	return t.Success + t.AlreadyUrban + t.AlreadyClaimed + t.Slope + t.Excluded
}

// LogValue implements slog.LogValuer.
func (t Tally) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("success", t.Success),
		slog.Int("already_urban", t.AlreadyUrban),
		slog.Int("already_claimed", t.AlreadyClaimed),
		slog.Int("slope", t.Slope),
		slog.Int("excluded", t.Excluded),
	)
}

// PhaseCounts are the per-phase success counters for one year.
type PhaseCounts struct {
	Spontaneous int `csv:"sng"`
	Spread      int `csv:"sdc"`
	Organic     int `csv:"og"`
	Road        int `csv:"rt"`
}

// Total returns the number of claims across phases.
func (p PhaseCounts) Total() int {
	return p.Spontaneous + p.Spread + p.Organic + p.Road
}
