package main

import (
	"context"
	"math"
	"testing"

	"github.com/pthm-cable/flappy/config"
	"github.com/pthm-cable/flappy/neural"
)

func TestParamVectorRoundTrip(t *testing.T) {
	pv := NewParamVector(neural.DefaultHeuristic(), 1000)
	raw := pv.DefaultVector()
	back := pv.Denormalize(pv.Normalize(raw))
	for i := range raw {
		if math.Abs(raw[i]-back[i]) > 1e-9 {
			t.Errorf("param %s: %v -> %v", pv.Specs[i].Name, raw[i], back[i])
		}
	}

	clamped := pv.Clamp([]float64{-5, 1e6, 0, 100})
	if clamped[0] != 0 || clamped[1] != 300 || clamped[2] != 250 || clamped[3] != 100 {
		t.Errorf("Clamp = %v", clamped)
	}
	if h := pv.Heuristic([]float64{-5, 10, 600, 200}); h.Margin != 0 || h.Clearance != 10 || h.Size != 50 {
		t.Errorf("Heuristic = %+v", h)
	}
}

func TestSearchMethod(t *testing.T) {
	for _, name := range []string{"nelder-mead", "cmaes"} {
		if _, err := searchMethod(name, 4); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
	if _, err := searchMethod("sa", 4); err == nil {
		t.Error("expected error for unknown method")
	}
}

func TestEvaluator(t *testing.T) {
	cfg := config.Default()
	e := NewEvaluator(cfg, []int64{1, 2}, 400)

	if best, _ := e.Best(); !math.IsInf(best, 1) {
		t.Errorf("best before any evaluation = %v", best)
	}

	def := neural.DefaultHeuristic()
	a, err := e.Evaluate(context.Background(), def)
	if err != nil {
		t.Fatal(err)
	}
	never := def
	never.Hover = 1e9
	never.Lookahead = -1
	b, err := e.Evaluate(context.Background(), never)
	if err != nil {
		t.Fatal(err)
	}

	best, h := e.Best()
	if best != min(a, b) {
		t.Errorf("best = %v, want min(%v, %v)", best, a, b)
	}
	want := def
	if b < a {
		want = never
	}
	if h != want {
		t.Errorf("best heuristic = %+v, want %+v", h, want)
	}
	if e.LastScore() < 0 {
		t.Errorf("negative mean score %v", e.LastScore())
	}

	again, err := e.Evaluate(context.Background(), def)
	if err != nil {
		t.Fatal(err)
	}
	if again != a {
		t.Errorf("evaluation not deterministic: %v vs %v", again, a)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Evaluate(ctx, def); err == nil {
		t.Error("expected error from cancelled context")
	}
}

func TestFormatDuration(t *testing.T) {
	if got := formatDuration(3725e9); got != "1h02m05s" {
		t.Errorf("got %q", got)
	}
	if got := formatDuration(65e9); got != "1m05s" {
		t.Errorf("got %q", got)
	}
}
