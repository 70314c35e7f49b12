package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load defaults: %v", err)
	}

	if cfg.Screen.Width != 700 || cfg.Screen.Height != 1080 {
		t.Errorf("screen = %dx%d, want 700x1080", cfg.Screen.Width, cfg.Screen.Height)
	}
	if cfg.Bird.Gravity != 6 || cfg.Bird.Jump != 65 {
		t.Errorf("bird steps = (%v, %v), want (6, 65)", cfg.Bird.Gravity, cfg.Bird.Jump)
	}
	if cfg.Fitness.ScoreCap != 50 {
		t.Errorf("score cap = %d, want 50", cfg.Fitness.ScoreCap)
	}
	if !cfg.Training.StopAtCap {
		t.Error("training should stop at the score cap by default")
	}
}

func TestDerivedValues(t *testing.T) {
	cfg := Default()

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"start y", cfg.Derived.StartY, 540},
		{"min gap top", float64(cfg.Derived.MinGapTop), 360},
		{"max gap top", float64(cfg.Derived.MaxGapTop), 720},
		{"spawn x", cfg.Derived.SpawnX, 700},
		{"respawn x", cfg.Derived.RespawnX, 800},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestLoadOverridesOnlyNamedFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "override.yaml")
	data := []byte("fitness:\n  score_cap: 10\nneat:\n  population_size: 8\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Fitness.ScoreCap != 10 {
		t.Errorf("score cap = %d, want 10", cfg.Fitness.ScoreCap)
	}
	if cfg.NEAT.PopulationSize != 8 {
		t.Errorf("population = %d, want 8", cfg.NEAT.PopulationSize)
	}
	if cfg.Fitness.CapBonus != 20 {
		t.Errorf("cap bonus = %v, want default 20", cfg.Fitness.CapBonus)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
	if !strings.Contains(err.Error(), "reading config file") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero height", func(c *Config) { c.Screen.Height = 0 }},
		{"threshold one", func(c *Config) { c.Bird.JumpThreshold = 1 }},
		{"gap too large", func(c *Config) { c.Pipe.Gap = 800 }},
		{"gap one past a third", func(c *Config) { c.Pipe.Gap = 361 }},
		{"negative tick rate", func(c *Config) { c.Training.TickRate = -1 }},
		{"tick rate too high", func(c *Config) { c.Replay.TickRate = MaxTickRate + 1 }},
		{"no population", func(c *Config) { c.NEAT.PopulationSize = 0 }},
		{"negative workers", func(c *Config) { c.Training.Workers = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Pipe.Speed = 12

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Pipe.Speed != 12 {
		t.Errorf("pipe speed = %v, want 12", loaded.Pipe.Speed)
	}
}

func TestValidateAcceptsEdgeValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"gap of a third", func(c *Config) { c.Pipe.Gap = 360 }},
		{"unlimited tick rate", func(c *Config) { c.Training.TickRate = 0 }},
		{"max tick rate", func(c *Config) { c.Training.TickRate = MaxTickRate }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestLoadRejectsOversizedGap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gap.yaml")
	if err := os.WriteFile(path, []byte("pipe:\n  gap: 500\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for a gap pushing the lower column off-screen")
	}
}
