package main

import (
	"context"
	"log/slog"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/tfcollins140/sleuth3rUGM/calibrate"
	"github.com/tfcollins140/sleuth3rUGM/gridio"
	"github.com/tfcollins140/sleuth3rUGM/growth"
)

// FitnessEvaluator scores coefficient vectors by running the calibration
// driver once per seed.
type FitnessEvaluator struct {
	params    *ParamVector
	scenarios []*calibrate.Scenario
	runners   []*calibrate.Runner

	// Best run tracking
	mu          sync.Mutex
	evals       int
	bestFitness float64
	best        growth.Coefficients
	lastQuality float64 // seed agreement of the most recent Evaluate call
}

// NewFitnessEvaluator builds one scenario and runner per seed over repo.
func NewFitnessEvaluator(params *ParamVector, repo *gridio.Repository, base calibrate.Settings, seeds []int64) (*FitnessEvaluator, error) {
	fe := &FitnessEvaluator{
		params:      params,
		bestFitness: math.Inf(1),
	}
	for i, seed := range seeds {
		set := base
		set.Seed = seed
		set.Predict = false
		sc, err := calibrate.NewScenario(repo, set, nil)
		if err != nil {
			return nil, err
		}
		fe.scenarios = append(fe.scenarios, sc)
		fe.runners = append(fe.runners, sc.NewRunner(i))
	}
	return fe, nil
}

// Best returns the best coefficients seen and their fitness.
func (fe *FitnessEvaluator) Best() (growth.Coefficients, float64) {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.best, fe.bestFitness
}

// LastQuality returns the seed agreement from the most recent evaluation.
func (fe *FitnessEvaluator) LastQuality() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastQuality
}

// Evaluate computes fitness for a raw parameter vector (lower = better).
// Fitness is the negated mean product score over all seeds. A run that hits
// a fatal invariant scores zero for its seed.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	c := fe.params.Coefficients(x)

	fe.mu.Lock()
	run := fe.evals
	fe.evals++
	fe.mu.Unlock()

	products := make([]float64, len(fe.runners))
	var g errgroup.Group
	for i, r := range fe.runners {
		g.Go(func() error {
			res, err := r.Run(context.Background(), run, c)
			if err != nil {
				slog.Warn("evaluation failed", "seed_index", i, "error", err)
				return nil
			}
			products[i] = res.Aggregate.Product
			return nil
		})
	}
	_ = g.Wait()

	mean := stat.Mean(products, nil)
	fitness := -mean
	quality := agreement(products)

	fe.mu.Lock()
	if fitness < fe.bestFitness {
		fe.bestFitness = fitness
		fe.best = c
	}
	fe.lastQuality = quality
	fe.mu.Unlock()

	return fitness
}

// agreement is exp(-cv²) of the per-seed products: 1 when every seed agrees,
// falling towards 0 as they scatter.
func agreement(products []float64) float64 {
	if len(products) < 2 {
		return 1
	}
	mean, std := stat.PopMeanStdDev(products, nil)
	if mean == 0 {
		return 0
	}
	cv := std / mean
	return math.Exp(-cv * cv)
}
