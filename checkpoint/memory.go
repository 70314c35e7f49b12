package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore keeps checkpoints in process memory.
type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	byGen       map[int]Checkpoint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.byGen = make(map[int]Checkpoint)
	return nil
}

func (s *MemoryStore) Save(_ context.Context, cp Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errors.New("store is not initialized")
	}
	cp.Payload = append([]byte(nil), cp.Payload...)
	s.byGen[cp.Generation] = cp
	return nil
}

func (s *MemoryStore) Load(_ context.Context, generation int) (Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp, ok := s.byGen[generation]
	if !ok {
		return Checkpoint{}, fmt.Errorf("generation %d: %w", generation, ErrNotFound)
	}
	cp.Payload = append([]byte(nil), cp.Payload...)
	return cp, nil
}

func (s *MemoryStore) Latest(ctx context.Context) (Checkpoint, error) {
	gens, err := s.Generations(ctx)
	if err != nil {
		return Checkpoint{}, err
	}
	if len(gens) == 0 {
		return Checkpoint{}, ErrNotFound
	}
	return s.Load(ctx, gens[len(gens)-1])
}

func (s *MemoryStore) Generations(_ context.Context) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	gens := make([]int, 0, len(s.byGen))
	for gen := range s.byGen {
		gens = append(gens, gen)
	}
	sort.Ints(gens)
	return gens, nil
}

func (s *MemoryStore) Close() error { return nil }
