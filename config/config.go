// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation and evolution parameters.
type Config struct {
	Screen     ScreenConfig     `yaml:"screen"`
	Bird       BirdConfig       `yaml:"bird"`
	Pipe       PipeConfig       `yaml:"pipe"`
	Fitness    FitnessConfig    `yaml:"fitness"`
	Training   TrainingConfig   `yaml:"training"`
	Replay     ReplayConfig     `yaml:"replay"`
	NEAT       NEATConfig       `yaml:"neat"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings. Height also bounds the playfield.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// BirdConfig holds agent geometry and the flat per-tick movement steps.
type BirdConfig struct {
	StartX        float64 `yaml:"start_x"`
	Size          float64 `yaml:"size"`
	Gravity       float64 `yaml:"gravity"`        // downward step applied every tick
	Jump          float64 `yaml:"jump"`           // upward step applied on a jump
	JumpThreshold float64 `yaml:"jump_threshold"` // first decider output must exceed this
}

// PipeConfig holds obstacle geometry.
type PipeConfig struct {
	Width float64 `yaml:"width"`
	Gap   float64 `yaml:"gap"`
	Speed float64 `yaml:"speed"` // leftward step per tick
}

// FitnessConfig holds the fitness deltas written back to each member.
type FitnessConfig struct {
	SurvivalReward float64 `yaml:"survival_reward"` // per live tick
	DeathPenalty   float64 `yaml:"death_penalty"`
	CapBonus       float64 `yaml:"cap_bonus"`
	ScoreCap       int     `yaml:"score_cap"` // round stops once score exceeds this
}

// TrainingConfig holds parameters for evolution runs.
type TrainingConfig struct {
	TickRate    int  `yaml:"tick_rate"` // ticks per second (0 = unlimited)
	StopAtCap   bool `yaml:"stop_at_cap"`
	Generations int  `yaml:"generations"`
	Workers     int  `yaml:"workers"`   // agent stepping goroutines (1 = sequential)
	MaxTicks    int  `yaml:"max_ticks"` // per round (0 = unlimited)
}

// ReplayConfig holds parameters for single-genome replays.
type ReplayConfig struct {
	TickRate int `yaml:"tick_rate"`
	MaxTicks int `yaml:"max_ticks"`
}

// NEATConfig holds neuroevolution parameters.
type NEATConfig struct {
	PopulationSize        int     `yaml:"population_size"`
	InitialConnectionProb float64 `yaml:"initial_connection_prob"`

	// Weight mutation
	WeightMutPower        float64 `yaml:"weight_mut_power"`
	MutateLinkWeightsProb float64 `yaml:"mutate_link_weights_prob"`

	// Structural mutation rates
	MutateAddNodeProb      float64 `yaml:"mutate_add_node_prob"`
	MutateAddLinkProb      float64 `yaml:"mutate_add_link_prob"`
	MutateToggleEnableProb float64 `yaml:"mutate_toggle_enable_prob"`

	// Mating
	MutateOnlyProb float64 `yaml:"mutate_only_prob"` // offspring cloned and mutated, no crossover
	MateOnlyProb   float64 `yaml:"mate_only_prob"`   // crossover offspring left unmutated

	// Speciation
	CompatThreshold float64 `yaml:"compat_threshold"`
	DisjointCoeff   float64 `yaml:"disjoint_coeff"`
	ExcessCoeff     float64 `yaml:"excess_coeff"`
	MutdiffCoeff    float64 `yaml:"mutdiff_coeff"`

	// Species management
	DropOffAge     int     `yaml:"drop_off_age"`
	SurvivalThresh float64 `yaml:"survival_thresh"`
	Elitism        int     `yaml:"elitism"` // unchanged copies kept per species
}

// CheckpointConfig holds persistence settings.
type CheckpointConfig struct {
	Interval int    `yaml:"interval"` // generations between checkpoints (0 = off)
	Backend  string `yaml:"backend"`  // memory | sqlite
	Path     string `yaml:"path"`     // sqlite database path
	BestPath string `yaml:"best_path"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	PerfWindow int `yaml:"perf_window"` // ticks averaged by the perf collector
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	ScreenW   float64 // Screen.Width as float64
	ScreenH   float64 // Screen.Height as float64
	StartY    float64 // agents spawn at mid-height
	MinGapTop int     // lowest allowed gap top (height/3)
	MaxGapTop int     // highest allowed gap top (height - height/3)
	SpawnX    float64 // first obstacle x
	RespawnX  float64 // recycled obstacle x
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns the embedded defaults. Panics if they fail to parse,
// which would be a build defect.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

// MaxTickRate is the highest accepted tick rate; 0 means unlimited.
const MaxTickRate = 1_000_000

// Validate rejects configurations the simulation cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Screen.Width <= 0 || c.Screen.Height <= 0 {
		errs = append(errs, fmt.Errorf("screen size must be positive, got %dx%d", c.Screen.Width, c.Screen.Height))
	}
	if c.Bird.Size <= 0 || c.Bird.Gravity <= 0 || c.Bird.Jump <= 0 {
		errs = append(errs, errors.New("bird size, gravity and jump must be positive"))
	}
	if c.Bird.JumpThreshold <= 0 || c.Bird.JumpThreshold >= 1 {
		errs = append(errs, fmt.Errorf("jump threshold must be in (0,1), got %v", c.Bird.JumpThreshold))
	}
	if c.Pipe.Width <= 0 || c.Pipe.Gap <= 0 || c.Pipe.Speed <= 0 {
		errs = append(errs, errors.New("pipe width, gap and speed must be positive"))
	}
	// The gap top reaches H - H/3, so the lower column stays on-screen only
	// while the gap is at most H/3.
	if c.Screen.Height > 0 && c.Pipe.Gap > float64(c.Screen.Height/3) {
		errs = append(errs, fmt.Errorf("pipe gap %v leaves no lower column below the maximum gap top (at most %d)", c.Pipe.Gap, c.Screen.Height/3))
	}
	for _, r := range []struct {
		name string
		hz   int
	}{{"training", c.Training.TickRate}, {"replay", c.Replay.TickRate}} {
		if r.hz < 0 || r.hz > MaxTickRate {
			errs = append(errs, fmt.Errorf("%s tick rate must be in [0,%d], got %d", r.name, MaxTickRate, r.hz))
		}
	}
	if c.NEAT.PopulationSize <= 0 {
		errs = append(errs, fmt.Errorf("population size must be positive, got %d", c.NEAT.PopulationSize))
	}
	if c.Training.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Training.Workers))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.ScreenW = float64(c.Screen.Width)
	c.Derived.ScreenH = float64(c.Screen.Height)
	c.Derived.StartY = c.Derived.ScreenH / 2
	c.Derived.MinGapTop = c.Screen.Height / 3
	c.Derived.MaxGapTop = c.Screen.Height - c.Derived.MinGapTop
	c.Derived.SpawnX = c.Derived.ScreenW
	c.Derived.RespawnX = c.Derived.ScreenW + c.Pipe.Width
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
