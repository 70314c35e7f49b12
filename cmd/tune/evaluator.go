package main

import (
	"context"
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/flappy/config"
	"github.com/pthm-cable/flappy/game"
	"github.com/pthm-cable/flappy/neural"
)

// Evaluator flies a heuristic through seeded headless rounds.
// Objectives are lower-is-better: the negated mean fitness.
type Evaluator struct {
	cfg      *config.Config
	seeds    []int64
	maxTicks int

	mu        sync.Mutex
	best      float64
	bestH     neural.Heuristic
	lastScore float64
}

// NewEvaluator creates an evaluator. maxTicks bounds every round so that a
// perfect flyer still terminates.
func NewEvaluator(cfg *config.Config, seeds []int64, maxTicks int) *Evaluator {
	return &Evaluator{cfg: cfg, seeds: seeds, maxTicks: maxTicks, best: math.Inf(1)}
}

// seedResult holds the outcome of one seeded round.
type seedResult struct {
	fitness float64
	score   int
	err     error
}

// Evaluate runs every seed in parallel and returns the objective.
func (e *Evaluator) Evaluate(ctx context.Context, h neural.Heuristic) (float64, error) {
	results := make([]seedResult, len(e.seeds))
	var wg sync.WaitGroup
	for i, seed := range e.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			results[idx] = e.runRound(ctx, h, s)
		}(i, seed)
	}
	wg.Wait()

	fitness := make([]float64, len(results))
	scores := make([]float64, len(results))
	for i, r := range results {
		if r.err != nil {
			return 0, fmt.Errorf("seed %d: %w", e.seeds[i], r.err)
		}
		fitness[i] = r.fitness
		scores[i] = float64(r.score)
	}
	objective := -stat.Mean(fitness, nil)

	e.mu.Lock()
	if objective < e.best {
		e.best, e.bestH = objective, h
	}
	e.lastScore = stat.Mean(scores, nil)
	e.mu.Unlock()

	return objective, nil
}

func (e *Evaluator) runRound(ctx context.Context, h neural.Heuristic, seed int64) seedResult {
	var fitness float64
	round := game.NewRound(e.cfg, []game.Member{{ID: 1, Decider: h, Fitness: &fitness}}, game.RoundOptions{
		Stop:     e.cfg.Training.StopAtCap,
		MaxTicks: e.maxTicks,
		Workers:  1,
		Gaps:     game.NewRandomGaps(seed),
	})
	var runner game.Runner
	if err := runner.Play(ctx, round); err != nil {
		return seedResult{err: err}
	}
	return seedResult{fitness: fitness, score: round.Report().Score}
}

// Best returns the lowest objective seen and the heuristic that reached it.
func (e *Evaluator) Best() (float64, neural.Heuristic) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.best, e.bestH
}

// LastScore returns the mean score of the most recent evaluation.
func (e *Evaluator) LastScore() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastScore
}
