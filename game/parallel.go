package game

import (
	"context"
	"sync"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/flappy/components"
	"github.com/pthm-cable/flappy/config"
)

// parallelThreshold is the minimum bird count to fan out across workers.
// Below this, a single goroutine is faster.
const parallelThreshold = 64

// agentSnapshot captures read-only state for one bird.
type agentSnapshot struct {
	Entity   ecs.Entity
	MemberID int
	Body     components.Body
	Decider  components.Decider
}

// agentIntent is the computed outcome, applied after all birds have stepped.
type agentIntent struct {
	Y      float64
	Reward float64
	Fate   Fate
}

// stepper owns the per-tick buffers. Birds only read the shared pipe, and each
// writes its own intent slot, so chunks can run concurrently. Intents are
// applied in snapshot order regardless of worker count.
type stepper struct {
	snapshots  []agentSnapshot
	intents    []agentIntent
	scratches  [][]float64
	errs       []error
	numWorkers int
}

func newStepper(workers int) *stepper {
	if workers < 1 {
		workers = 1
	}
	scratches := make([][]float64, workers)
	for i := range scratches {
		scratches[i] = make([]float64, 0, NumInputs)
	}
	return &stepper{
		numWorkers: workers,
		scratches:  scratches,
		errs:       make([]error, workers),
		snapshots:  make([]agentSnapshot, 0, 64),
		intents:    make([]agentIntent, 0, 64),
	}
}

// snapshot drains the filter into the snapshot buffer.
func (s *stepper) snapshot(filter *ecs.Filter4[components.Body, components.Brain, components.Lineage, components.Plumage]) {
	s.snapshots = s.snapshots[:0]
	query := filter.Query()
	for query.Next() {
		body, brain, lineage, _ := query.Get()
		s.snapshots = append(s.snapshots, agentSnapshot{
			Entity:   query.Entity(),
			MemberID: lineage.MemberID,
			Body:     *body,
			Decider:  brain.Decider,
		})
	}

	n := len(s.snapshots)
	if cap(s.intents) < n {
		s.intents = make([]agentIntent, n)
	}
	s.intents = s.intents[:n]
}

// compute fills one intent per snapshot.
func (s *stepper) compute(ctx context.Context, cfg *config.Config, policy Policy, pipe Pipe, capped bool) error {
	n := len(s.snapshots)
	if n == 0 {
		return nil
	}
	if s.numWorkers == 1 || n < parallelThreshold {
		return s.computeChunk(ctx, 0, n, 0, cfg, policy, pipe, capped)
	}

	chunkSize := (n + s.numWorkers - 1) / s.numWorkers
	var wg sync.WaitGroup
	for w := 0; w < s.numWorkers; w++ {
		s.errs[w] = nil
		start := w * chunkSize
		end := min(start+chunkSize, n)
		if start >= end {
			continue
		}
		wg.Add(1)
		go func(w, start, end int) {
			defer wg.Done()
			s.errs[w] = s.computeChunk(ctx, start, end, w, cfg, policy, pipe, capped)
		}(w, start, end)
	}
	wg.Wait()

	// Report the error of the lowest chunk so the outcome does not depend on scheduling.
	for _, err := range s.errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *stepper) computeChunk(ctx context.Context, i0, i1, worker int, cfg *config.Config, policy Policy, pipe Pipe, capped bool) error {
	inputs := s.scratches[worker]
	for i := i0; i < i1; i++ {
		if ctx.Err() != nil {
			return ErrAborted
		}
		intent, buf, err := stepBird(cfg, policy, pipe, capped, &s.snapshots[i], inputs)
		inputs = buf
		if err != nil {
			return err
		}
		s.intents[i] = intent
	}
	s.scratches[worker] = inputs
	return nil
}
