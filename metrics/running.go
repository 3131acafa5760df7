package metrics

import "fmt"

// Accumulator keeps running totals per year index for one run and derives
// averages and deviations once all Monte Carlo iterations are in.
type Accumulator struct {
	iterations int
	totals     []Values
	average    []Values
	stdDev     []Values
}

// NewAccumulator creates an accumulator for n year indexes and the given
// Monte Carlo iteration count.
func NewAccumulator(iterations, n int) *Accumulator {
	return &Accumulator{
		iterations: iterations,
		totals:     make([]Values, n),
		average:    make([]Values, n),
		stdDev:     make([]Values, n),
	}
}

// Len returns the number of year indexes.
func (a *Accumulator) Len() int { return len(a.totals) }

// Reset zeroes all totals, averages and deviations for a new run.
func (a *Accumulator) Reset() {
	clear(a.totals)
	clear(a.average)
	clear(a.stdDev)
}

// Add accumulates one iteration's values at index.
func (a *Accumulator) Add(index int, v Values) {
	a.totals[index].add(v)
}

// Summarize folds the stored records of one year index into the totals and
// computes the average and deviation for that index. The deviation is
// sqrt((x - avg)² / iterations) evaluated per record; the value kept is the
// one from the last record.
func (a *Accumulator) Summarize(index int, recs []Record) (avg, sd Values, err error) {
	if len(recs) > a.iterations {
		return Values{}, Values{}, fmt.Errorf("index %d: %d records for %d iterations", index, len(recs), a.iterations)
	}
	for _, r := range recs {
		a.Add(index, r.Values)
	}
	avg = a.totals[index]
	avg.scale(1 / float64(a.iterations))
	a.average[index] = avg

	for _, r := range recs {
		sd.deviation(r.Values, avg, float64(a.iterations))
	}
	a.stdDev[index] = sd
	return avg, sd, nil
}

// Average returns the average at index as of the last Summarize.
func (a *Accumulator) Average(index int) Values { return a.average[index] }

// StdDev returns the deviation at index as of the last Summarize.
func (a *Accumulator) StdDev(index int) Values { return a.stdDev[index] }

// Averages returns all averages. The slice aliases accumulator storage.
func (a *Accumulator) Averages() []Values { return a.average }
