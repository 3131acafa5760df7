package telemetry

import (
	"sort"

	"github.com/tfcollins140/sleuth3rUGM/growth"
)

// DefaultLeaderboardSize is how many combinations a sweep keeps ranked.
const DefaultLeaderboardSize = 10

// LeaderEntry is one ranked coefficient combination.
type LeaderEntry struct {
	Rank    int     `csv:"rank"`
	Run     int     `csv:"run"`
	Product float64 `csv:"product"`
	growth.Coefficients
}

// Leaderboard keeps the best combinations of a sweep, sorted by product
// descending. Ties keep the earlier run first.
type Leaderboard struct {
	entries []LeaderEntry
	maxSize int
}

// NewLeaderboard creates a leaderboard holding at most maxSize entries.
func NewLeaderboard(maxSize int) *Leaderboard {
	if maxSize <= 0 {
		maxSize = DefaultLeaderboardSize
	}
	return &Leaderboard{
		entries: make([]LeaderEntry, 0, maxSize),
		maxSize: maxSize,
	}
}

// Consider offers a scored run. Returns true if it made the board.
func (lb *Leaderboard) Consider(run int, product float64, c growth.Coefficients) bool {
	// Find insertion point (sorted descending by product)
	idx := sort.Search(len(lb.entries), func(i int) bool {
		return lb.entries[i].Product < product
	})

	// If full and entry would be last (lowest), skip it
	if len(lb.entries) >= lb.maxSize && idx >= lb.maxSize {
		return false
	}

	lb.entries = append(lb.entries, LeaderEntry{})
	copy(lb.entries[idx+1:], lb.entries[idx:])
	lb.entries[idx] = LeaderEntry{Run: run, Product: product, Coefficients: c}

	if len(lb.entries) > lb.maxSize {
		lb.entries = lb.entries[:lb.maxSize]
	}
	return true
}

// Len returns the number of entries.
func (lb *Leaderboard) Len() int { return len(lb.entries) }

// TopProduct returns the highest product on the board, or 0 when empty.
func (lb *Leaderboard) TopProduct() float64 {
	if len(lb.entries) == 0 {
		return 0
	}
	return lb.entries[0].Product
}

// Entries returns a ranked copy of the board, rank 1 first.
func (lb *Leaderboard) Entries() []LeaderEntry {
	out := make([]LeaderEntry, len(lb.entries))
	copy(out, lb.entries)
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
