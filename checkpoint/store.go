// Package checkpoint persists population checkpoints and single genome blobs.
// Payloads are opaque bytes; callers decide what goes in them.
package checkpoint

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no checkpoint exists for a generation.
var ErrNotFound = errors.New("checkpoint not found")

// Checkpoint is one saved population, keyed by the generation it resumes at.
type Checkpoint struct {
	Generation int
	Payload    []byte
	CreatedAt  time.Time
}

// Store saves and loads checkpoints.
type Store interface {
	Init(ctx context.Context) error
	Save(ctx context.Context, cp Checkpoint) error
	Load(ctx context.Context, generation int) (Checkpoint, error)
	// Latest returns the checkpoint with the highest generation.
	Latest(ctx context.Context) (Checkpoint, error)
	// Generations lists saved generations in ascending order.
	Generations(ctx context.Context) ([]int, error)
	Close() error
}
