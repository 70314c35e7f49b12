package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pthm-cable/flappy/components"
	"github.com/pthm-cable/flappy/config"
	"github.com/pthm-cable/flappy/game"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	color := flag.String("color", "random", "Bird colour: random or one of "+strings.Join(components.PlumageNames(), ", "))
	generations := flag.Int("generations", 0, "Generations to train (0 = use config)")
	checkpointPath := flag.String("checkpoint", "", "Checkpoint database to resume from")
	checkpointGen := flag.Int("checkpoint-gen", 0, "Checkpoint generation to resume (0 = latest)")
	replayPath := flag.String("replay", "", "Replay a saved genome instead of training")
	manual := flag.Bool("manual", false, "Play with the keyboard instead of training")
	headless := flag.Bool("headless", false, "Run without graphics")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	workers := flag.Int("workers", 0, "Agent stepping goroutines (0 = use config)")
	maxTicks := flag.Int("max-ticks", 0, "Tick cap per round (0 = use config)")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()
	if *workers > 0 {
		cfg.Training.Workers = *workers
	}
	if *maxTicks > 0 {
		cfg.Training.MaxTicks = *maxTicks
		cfg.Replay.MaxTicks = *maxTicks
	}
	if *generations > 0 {
		cfg.Training.Generations = *generations
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid flags", "error", err)
		os.Exit(1)
	}

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	// Bird colours draw from their own rng so the pipe stream depends on the seed alone.
	palette, err := components.ParsePalette(*color, rngSeed+1)
	if err != nil {
		slog.Error("invalid colour", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := &session{
		cfg:       cfg,
		seed:      rngSeed,
		palette:   palette,
		headless:  *headless,
		outputDir: *outputDir,
	}

	switch {
	case *manual:
		err = s.manual(ctx)
	case *replayPath != "":
		err = s.replay(ctx, *replayPath)
	default:
		err = s.train(ctx, *checkpointPath, *checkpointGen)
	}

	if errors.Is(err, game.ErrAborted) {
		slog.Info("aborted")
		return
	}
	if err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
}
