// Package rng provides the deterministic random source used by the growth
// engine. Two sources seeded identically produce identical draw sequences.
package rng

import "math/rand/v2"

// Source is a reseedable PCG-backed random source.
type Source struct {
	pcg   *rand.PCG
	r     *rand.Rand
	seed  int64
	draws uint64
}

// New creates a source seeded with seed.
func New(seed int64) *Source {
	pcg := rand.NewPCG(uint64(seed), 0)
	return &Source{pcg: pcg, r: rand.New(pcg), seed: seed}
}

// Reseed restarts the sequence as if the source had just been created with seed.
func (s *Source) Reseed(seed int64) {
	s.pcg.Seed(uint64(seed), 0)
	s.seed = seed
	s.draws = 0
}

// Seed returns the seed of the current sequence.
func (s *Source) Seed() int64 { return s.seed }

// Draws returns how many values were drawn since the last (re)seed.
func (s *Source) Draws() uint64 { return s.draws }

// UniformInt returns a uniform integer in [0, n). It returns 0 when n <= 0
// without consuming a draw.
func (s *Source) UniformInt(n int) int {
	if n <= 0 {
		return 0
	}
	s.draws++
	return s.r.IntN(n)
}

// UniformFloat01 returns a uniform float in [0, 1).
func (s *Source) UniformFloat01() float64 {
	s.draws++
	return s.r.Float64()
}
