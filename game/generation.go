package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pthm-cable/flappy/components"
	"github.com/pthm-cable/flappy/config"
)

// Member is one population entry handed to a round: a stable id, the
// decider steering its bird and the fitness accumulator the round mutates.
type Member struct {
	ID      int
	Decider components.Decider
	Fitness *float64
}

// Evolver is the evolutionary collaborator driving the generation loop.
type Evolver interface {
	// Generation returns the number of the generation Members will evaluate.
	Generation() int
	// Members returns the population to evaluate, in a stable order.
	Members() ([]Member, error)
	// Evolve reads back every member's fitness and breeds the next generation.
	Evolve() error
}

// GenerationReport is passed to hooks after each generation has evolved.
type GenerationReport struct {
	Generation int
	Members    int
	Round      RoundReport
	Duration   time.Duration
}

// LogValue implements slog.LogValuer.
func (r GenerationReport) LogValue() slog.Value {
	pipe, bounds, capped, alive := r.Round.Deaths()
	return slog.GroupValue(
		slog.Int("generation", r.Generation),
		slog.Int("members", r.Members),
		slog.Int("score", r.Round.Score),
		slog.Int("ticks", r.Round.Ticks),
		slog.Int("deaths_pipe", pipe),
		slog.Int("deaths_bounds", bounds),
		slog.Int("capped", capped),
		slog.Int("survivors", alive),
		slog.Duration("duration", r.Duration),
	)
}

// GenerationHook observes finished generations. Returning an error stops the loop.
type GenerationHook func(ctx context.Context, report GenerationReport) error

// Trainer runs the population round loop. It holds no state across
// generations apart from the shared gap sampler.
type Trainer struct {
	Cfg     *config.Config
	Runner  *Runner
	Gaps    GapSampler
	Palette components.Palette
	Hooks   []GenerationHook
}

// NewTrainer creates a trainer with an unpaced, headless runner.
func NewTrainer(cfg *config.Config, gaps GapSampler, palette components.Palette) *Trainer {
	return &Trainer{
		Cfg:     cfg,
		Runner:  &Runner{},
		Gaps:    gaps,
		Palette: palette,
	}
}

// OnGeneration registers a hook.
func (t *Trainer) OnGeneration(h GenerationHook) {
	t.Hooks = append(t.Hooks, h)
}

// RunGenerations evaluates n generations. ErrAborted is returned unchanged.
func (t *Trainer) RunGenerations(ctx context.Context, evo Evolver, n int) error {
	t.Runner.setTickRate(t.Cfg.Training.TickRate)
	for i := 0; i < n; i++ {
		if err := t.runGeneration(ctx, evo); err != nil {
			return err
		}
	}
	return nil
}

func (t *Trainer) runGeneration(ctx context.Context, evo Evolver) error {
	start := time.Now()
	gen := evo.Generation()

	members, err := evo.Members()
	if err != nil {
		return fmt.Errorf("generation %d members: %w", gen, err)
	}
	for _, m := range members {
		if m.Fitness != nil {
			*m.Fitness = 0
		}
	}

	round := NewRound(t.Cfg, members, RoundOptions{
		Stop:       t.Cfg.Training.StopAtCap,
		MaxTicks:   t.Cfg.Training.MaxTicks,
		Workers:    t.Cfg.Training.Workers,
		Generation: gen,
		Gaps:       t.Gaps,
		Palette:    t.Palette,
	})
	if err := t.Runner.Play(ctx, round); err != nil {
		if errors.Is(err, ErrAborted) {
			return err
		}
		return fmt.Errorf("generation %d: %w", gen, err)
	}

	if err := evo.Evolve(); err != nil {
		return fmt.Errorf("generation %d evolve: %w", gen, err)
	}

	report := GenerationReport{
		Generation: gen,
		Members:    len(members),
		Round:      round.Report(),
		Duration:   time.Since(start),
	}
	for _, h := range t.Hooks {
		if err := h(ctx, report); err != nil {
			return fmt.Errorf("generation %d hook: %w", gen, err)
		}
	}
	return nil
}

// Replay runs a single member non-competitively: no score cap, replay pacing.
func (t *Trainer) Replay(ctx context.Context, m Member) (RoundReport, error) {
	t.Runner.setTickRate(t.Cfg.Replay.TickRate)
	if m.Fitness == nil {
		m.Fitness = new(float64)
	}
	*m.Fitness = 0

	round := NewRound(t.Cfg, []Member{m}, RoundOptions{
		Stop:     false,
		MaxTicks: t.Cfg.Replay.MaxTicks,
		Workers:  1,
		Gaps:     t.Gaps,
		Palette:  t.Palette,
	})
	err := t.Runner.Play(ctx, round)
	report := round.Report()
	report.Aborted = errors.Is(err, ErrAborted)
	return report, err
}
