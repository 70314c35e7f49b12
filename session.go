package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pthm-cable/flappy/checkpoint"
	"github.com/pthm-cable/flappy/components"
	"github.com/pthm-cable/flappy/config"
	"github.com/pthm-cable/flappy/game"
	"github.com/pthm-cable/flappy/neural"
	"github.com/pthm-cable/flappy/renderer"
	"github.com/pthm-cable/flappy/telemetry"
)

const windowTitle = "Flappy NEAT"

// session holds what every run mode shares.
type session struct {
	cfg       *config.Config
	seed      int64
	palette   components.Palette
	headless  bool
	outputDir string
}

// newTrainer wires a trainer to either a window or a headless ticker.
// The returned cleanup must be called once the run ends.
func (s *session) newTrainer(mode string, perf *telemetry.PerfCollector) (*game.Trainer, *renderer.Window, func()) {
	trainer := game.NewTrainer(s.cfg, game.NewRandomGaps(s.seed), s.palette)
	trainer.Runner.Perf = perf

	if s.headless {
		pacer := game.NewTickerPacer(s.cfg.Training.TickRate)
		trainer.Runner.Pacer = pacer
		return trainer, nil, pacer.Stop
	}

	w := renderer.Open(s.cfg, windowTitle, mode)
	w.Perf = perf
	trainer.Runner.Renderer = w
	trainer.Runner.Abort = w
	trainer.Runner.Pacer = w
	return trainer, w, w.Close
}

func (s *session) train(ctx context.Context, resumePath string, resumeGen int) error {
	pop, err := s.population(ctx, resumePath, resumeGen)
	if err != nil {
		return err
	}

	var store checkpoint.Store
	if s.cfg.Checkpoint.Interval > 0 {
		path := s.cfg.Checkpoint.Path
		if resumePath != "" {
			path = resumePath
		}
		if store, err = openStore(ctx, s.cfg.Checkpoint.Backend, path); err != nil {
			return err
		}
		defer store.Close()
	}

	out, err := telemetry.NewOutputManager(s.outputDir)
	if err != nil {
		return err
	}
	defer out.Close()
	if err := out.WriteConfig(s.cfg); err != nil {
		return fmt.Errorf("writing config snapshot: %w", err)
	}

	perf := telemetry.NewPerfCollector(s.cfg.Telemetry.PerfWindow)
	trainer, _, cleanup := s.newTrainer("training", perf)
	defer cleanup()

	trainer.OnGeneration(func(_ context.Context, r game.GenerationReport) error {
		stats := telemetry.ComputeGenerationStats(r, pop.SpeciesStats())
		stats.LogStats()
		if err := out.WriteGeneration(stats); err != nil {
			return err
		}
		return out.WriteDeaths(telemetry.DeathRecords(r.Generation, r.Round))
	})
	trainer.OnGeneration(func(_ context.Context, r game.GenerationReport) error {
		ps := perf.Stats()
		slog.Debug("perf", "generation", r.Generation, "stats", ps)
		return out.WritePerf(ps, r.Generation)
	})
	if store != nil {
		trainer.OnGeneration(func(ctx context.Context, _ game.GenerationReport) error {
			if pop.Generation()%s.cfg.Checkpoint.Interval != 0 {
				return nil
			}
			return saveCheckpoint(ctx, store, pop)
		})
	}

	slog.Info("training_start",
		"seed", s.seed,
		"generation", pop.Generation(),
		"generations", s.cfg.Training.Generations,
		"population", len(pop.Organisms()),
		"workers", s.cfg.Training.Workers,
		"headless", s.headless,
	)
	runErr := trainer.RunGenerations(ctx, pop, s.cfg.Training.Generations)

	// An aborted run still keeps the best genome found so far.
	if err := s.saveChampion(pop); err != nil {
		return errors.Join(runErr, err)
	}
	return runErr
}

// population builds a fresh population or restores one from a checkpoint.
func (s *session) population(ctx context.Context, path string, gen int) (*neural.Population, error) {
	if path == "" {
		return neural.NewPopulation(s.cfg.NEAT, s.seed)
	}

	store, err := openStore(ctx, s.cfg.Checkpoint.Backend, path)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	var cp checkpoint.Checkpoint
	if gen > 0 {
		cp, err = store.Load(ctx, gen)
	} else {
		cp, err = store.Latest(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("loading checkpoint from %s: %w", path, err)
	}
	pop, err := neural.RestoreCheckpoint(cp.Payload, s.cfg.NEAT)
	if err != nil {
		return nil, fmt.Errorf("restoring generation %d: %w", cp.Generation, err)
	}
	slog.Info("checkpoint_restored", "path", path, "generation", cp.Generation, "saved_at", cp.CreatedAt)
	return pop, nil
}

func openStore(ctx context.Context, kind, path string) (checkpoint.Store, error) {
	store, err := checkpoint.NewStore(kind, path)
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("opening checkpoint store: %w", err)
	}
	return store, nil
}

func saveCheckpoint(ctx context.Context, store checkpoint.Store, pop *neural.Population) error {
	data, err := pop.MarshalCheckpoint()
	if err != nil {
		return err
	}
	if err := store.Save(ctx, checkpoint.Checkpoint{Generation: pop.Generation(), Payload: data}); err != nil {
		return fmt.Errorf("saving checkpoint: %w", err)
	}
	slog.Info("checkpoint_saved", "generation", pop.Generation(), "bytes", len(data))
	return nil
}

func (s *session) saveChampion(pop *neural.Population) error {
	genome, fitness, ok := pop.Champion()
	if !ok || s.cfg.Checkpoint.BestPath == "" {
		return nil
	}
	data, err := neural.MarshalGenome(genome)
	if err != nil {
		return err
	}
	if err := checkpoint.WriteBlob(s.cfg.Checkpoint.BestPath, data); err != nil {
		return fmt.Errorf("saving champion: %w", err)
	}
	slog.Info("champion_saved", "path", s.cfg.Checkpoint.BestPath, "genome", genome.Id, "fitness", fitness)
	return nil
}

func (s *session) replay(ctx context.Context, path string) error {
	data, err := checkpoint.ReadBlob(path)
	if err != nil {
		return fmt.Errorf("reading genome: %w", err)
	}
	genome, err := neural.UnmarshalGenome(data)
	if err != nil {
		return fmt.Errorf("decoding genome %s: %w", path, err)
	}
	ctrl, err := neural.NewBrainController(genome)
	if err != nil {
		return err
	}
	slog.Info("genome_loaded", "path", path, "genome", genome.Id, "nodes", ctrl.NodeCount(), "links", ctrl.LinkCount())

	trainer, w, cleanup := s.newTrainer("replay", nil)
	defer cleanup()
	if w != nil {
		w.Inspect(ctrl.Decide)
	}
	return s.play(ctx, trainer, game.Member{ID: genome.Id, Decider: ctrl})
}

// manual is a replay with the player as the decider. Keyboard input needs
// the window, so manual play is never headless.
func (s *session) manual(ctx context.Context) error {
	if s.headless {
		return fmt.Errorf("manual play needs a window")
	}
	trainer, _, cleanup := s.newTrainer("manual", nil)
	defer cleanup()
	return s.play(ctx, trainer, game.Member{ID: 0, Decider: renderer.Keyboard{}})
}

func (s *session) play(ctx context.Context, trainer *game.Trainer, m game.Member) error {
	report, err := trainer.Replay(ctx, m)
	if report.Aborted {
		slog.Info("round_aborted", "tick", report.Ticks, "score", report.Score)
		return err
	}
	if err != nil {
		return err
	}
	fate := game.FateAlive
	if len(report.Results) > 0 {
		fate = report.Results[0].Fate
	}
	slog.Info("replay_complete", "ticks", report.Ticks, "score", report.Score, "fate", fate.String())
	return nil
}
