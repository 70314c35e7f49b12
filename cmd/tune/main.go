// Command tune searches the scripted heuristic decider's parameters for the
// best mean fitness over a set of seeded headless rounds.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/optimize"
	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/flappy/config"
	"github.com/pthm-cable/flappy/neural"
)

// evalRow is one line of tune_log.csv.
type evalRow struct {
	Eval      int     `csv:"eval"`
	Objective float64 `csv:"objective"`
	Score     float64 `csv:"score_mean"`
	Margin    float64 `csv:"margin"`
	Clearance float64 `csv:"clearance"`
	Hover     float64 `csv:"hover"`
	Lookahead float64 `csv:"lookahead"`
}

// heuristicFile is the YAML form of the best parameters found.
type heuristicFile struct {
	Size      float64 `yaml:"size"`
	Margin    float64 `yaml:"margin"`
	Clearance float64 `yaml:"clearance"`
	Hover     float64 `yaml:"hover"`
	Lookahead float64 `yaml:"lookahead"`
	Objective float64 `yaml:"objective"`
}

// failedObjective stands in for evaluations that could not run.
const failedObjective = 1e12

// formatDuration formats a duration as HhMMmSSs or MmSSs for shorter durations.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

func main() {
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	maxTicks := flag.Int("max-ticks", 20000, "Tick cap per round")
	seeds := flag.Int("seeds", 5, "Number of seeded rounds per evaluation")
	maxEvals := flag.Int("max-evals", 200, "Maximum number of evaluations")
	method := flag.String("method", "nelder-mead", "Search method: nelder-mead or cmaes")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	if err := run(*configPath, *outputDir, *method, *maxTicks, *seeds, *maxEvals); err != nil {
		slog.Error("tune_failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath, outputDir, methodName string, maxTicks, seeds, maxEvals int) error {
	if outputDir == "" {
		return fmt.Errorf("--output is required")
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := config.Init(configPath); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg := config.Cfg()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	base := neural.DefaultHeuristic()
	base.Size = cfg.Bird.Size
	params := NewParamVector(base, cfg.Derived.ScreenH)

	evalSeeds := make([]int64, seeds)
	for i := range evalSeeds {
		evalSeeds[i] = int64(i*1000 + 42)
	}
	evaluator := NewEvaluator(cfg, evalSeeds, maxTicks)

	m, err := searchMethod(methodName, params.Dim())
	if err != nil {
		return err
	}

	logFile, err := os.Create(filepath.Join(outputDir, "tune_log.csv"))
	if err != nil {
		return fmt.Errorf("creating log file: %w", err)
	}
	defer logFile.Close()

	evalCount := 0
	headerWritten := false
	start := time.Now()

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			h := params.Heuristic(params.Denormalize(x))
			objective, err := evaluator.Evaluate(ctx, h)
			if err != nil {
				slog.Warn("eval_failed", "error", err)
				objective = failedObjective
			}
			evalCount++

			p := h.Params()
			rows := []evalRow{{
				Eval: evalCount, Objective: objective, Score: evaluator.LastScore(),
				Margin: p[0], Clearance: p[1], Hover: p[2], Lookahead: p[3],
			}}
			if !headerWritten {
				err = gocsv.Marshal(rows, logFile)
				headerWritten = true
			} else {
				err = gocsv.MarshalWithoutHeaders(rows, logFile)
			}
			if err != nil {
				slog.Warn("log_write_failed", "error", err)
			}

			elapsed := time.Since(start)
			remaining := time.Duration(maxEvals-evalCount) * (elapsed / time.Duration(evalCount))
			best, _ := evaluator.Best()
			slog.Info("eval",
				"n", evalCount,
				"objective", objective,
				"score_mean", evaluator.LastScore(),
				"best", best,
				"elapsed", formatDuration(elapsed),
				"eta", formatDuration(remaining),
			)
			return objective
		},
	}
	settings := &optimize.Settings{
		FuncEvaluations: maxEvals,
		Concurrent:      0,
	}

	slog.Info("tune_start", "method", methodName, "params", params.Dim(), "seeds", seeds, "max_evals", maxEvals)
	if _, err := optimize.Minimize(problem, params.Normalize(params.DefaultVector()), settings, m); err != nil {
		slog.Info("search_ended", "reason", err)
	}

	best, h := evaluator.Best()
	if evalCount == 0 || best >= failedObjective {
		return fmt.Errorf("no successful evaluation")
	}
	slog.Info("tune_complete", "evals", evalCount, "best", best, "duration", formatDuration(time.Since(start)))

	out := heuristicFile{
		Size: h.Size, Margin: h.Margin, Clearance: h.Clearance,
		Hover: h.Hover, Lookahead: h.Lookahead, Objective: best,
	}
	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("marshaling best heuristic: %w", err)
	}
	path := filepath.Join(outputDir, "best_heuristic.yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing best heuristic: %w", err)
	}
	slog.Info("best_saved", "path", path)
	return nil
}

// searchMethod picks the optimiser. Both work in the normalised unit cube.
func searchMethod(name string, dim int) (optimize.Method, error) {
	switch name {
	case "nelder-mead":
		return &optimize.NelderMead{SimplexSize: 0.2}, nil
	case "cmaes":
		return &optimize.CmaEsChol{
			InitStepSize: 0.3,
			Population:   4 + 3*dim/2,
		}, nil
	}
	return nil, fmt.Errorf("unknown method %q", name)
}
