package game

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/pthm-cable/flappy/components"
	"github.com/pthm-cable/flappy/config"
)

// fakeEvolver hands out n never-jumping members and records what it saw.
type fakeEvolver struct {
	n        int
	gen      int
	fitness  []float64
	evolved  int
	seenBest []float64
}

func (f *fakeEvolver) Generation() int { return f.gen }

func (f *fakeEvolver) Members() ([]Member, error) {
	if f.fitness == nil {
		f.fitness = make([]float64, f.n)
	}
	members := make([]Member, f.n)
	for i := range members {
		f.fitness[i] = 99 // stale value the loop must clear
		members[i] = Member{ID: i, Decider: neverJump, Fitness: &f.fitness[i]}
	}
	return members, nil
}

func (f *fakeEvolver) Evolve() error {
	best := f.fitness[0]
	for _, v := range f.fitness {
		best = max(best, v)
	}
	f.seenBest = append(f.seenBest, best)
	f.evolved++
	f.gen++
	return nil
}

func fallConfig() *config.Config {
	cfg := config.Default()
	cfg.Training.Workers = 1
	return cfg
}

func TestRunGenerations(t *testing.T) {
	cfg := fallConfig()
	evo := &fakeEvolver{n: 4}
	tr := NewTrainer(cfg, FixedGap(720), nil)

	var reports []GenerationReport
	tr.OnGeneration(func(_ context.Context, r GenerationReport) error {
		reports = append(reports, r)
		return nil
	})

	if err := tr.RunGenerations(context.Background(), evo, 3); err != nil {
		t.Fatalf("RunGenerations: %v", err)
	}
	if evo.evolved != 3 {
		t.Errorf("evolved %d times, want 3", evo.evolved)
	}
	if len(reports) != 3 {
		t.Fatalf("hooks called %d times, want 3", len(reports))
	}

	var want float64
	for i := 0; i < 81; i++ {
		want += cfg.Fitness.SurvivalReward
	}
	want += cfg.Fitness.SurvivalReward - cfg.Fitness.DeathPenalty

	for i, r := range reports {
		if r.Generation != i {
			t.Errorf("report %d generation = %d", i, r.Generation)
		}
		if r.Members != 4 || len(r.Round.Results) != 4 {
			t.Errorf("report %d: members=%d results=%d", i, r.Members, len(r.Round.Results))
		}
		if evo.seenBest[i] != want {
			t.Errorf("generation %d best = %v, want %v (stale fitness not cleared?)", i, evo.seenBest[i], want)
		}
	}
}

func TestRunGenerationsAbort(t *testing.T) {
	cfg := fallConfig()
	evo := &fakeEvolver{n: 2}
	tr := NewTrainer(cfg, FixedGap(720), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := tr.RunGenerations(ctx, evo, 5)
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("err = %v, want ErrAborted", err)
	}
	if evo.evolved != 0 {
		t.Errorf("evolved %d times after abort", evo.evolved)
	}
}

func TestHookErrorStopsLoop(t *testing.T) {
	cfg := fallConfig()
	evo := &fakeEvolver{n: 2}
	tr := NewTrainer(cfg, FixedGap(720), nil)
	boom := errors.New("disk full")
	tr.OnGeneration(func(context.Context, GenerationReport) error { return boom })

	err := tr.RunGenerations(context.Background(), evo, 3)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped hook error", err)
	}
	if evo.evolved != 1 {
		t.Errorf("evolved %d times, want 1", evo.evolved)
	}
}

func TestReplayDisablesScoreCap(t *testing.T) {
	cfg := fallConfig()
	cfg.Replay.MaxTicks = 5000
	tr := NewTrainer(cfg, FixedGap(400), nil)

	fit := 123.0
	rep, err := tr.Replay(context.Background(), Member{ID: 1, Decider: jumpAbove(500), Fitness: &fit})
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if rep.Score != 55 {
		t.Errorf("score = %d, want 55", rep.Score)
	}
	if len(rep.Results) != 1 || rep.Results[0].Fate != FateAlive {
		t.Errorf("results = %+v", rep.Results)
	}
	if math.Abs(fit-5000*cfg.Fitness.SurvivalReward) > 1e-6 {
		t.Errorf("fitness = %v, want survival reward only", fit)
	}
}

type countingPacer struct {
	rate  int
	waits int
}

func (p *countingPacer) Wait(ctx context.Context) error {
	p.waits++
	return ctx.Err()
}

func (p *countingPacer) SetTickRate(hz int) { p.rate = hz }

type abortAfter struct {
	polls, after int
}

func (a *abortAfter) AbortRequested() bool {
	a.polls++
	return a.polls > a.after
}

type countingRenderer struct {
	frames []Frame
}

func (c *countingRenderer) Draw(f Frame) { c.frames = append(c.frames, f) }

func TestRunnerAbortSource(t *testing.T) {
	cfg := config.Default()
	pacer := &countingPacer{}
	rend := &countingRenderer{}
	rn := &Runner{Renderer: rend, Abort: &abortAfter{after: 3}, Pacer: pacer}

	r := NewRound(cfg, makeMembers(2, func(int) components.Decider { return jumpAbove(500) }), RoundOptions{Gaps: FixedGap(400)})
	err := rn.Play(context.Background(), r)
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("err = %v, want ErrAborted", err)
	}
	if r.Tick() != 3 || pacer.waits != 3 || len(rend.frames) != 3 {
		t.Errorf("tick=%d waits=%d frames=%d, want 3 each", r.Tick(), pacer.waits, len(rend.frames))
	}
	last := rend.frames[len(rend.frames)-1]
	if last.Tick != 3 || last.Alive != 2 || len(last.Birds) != 2 || len(last.Pipes) != 1 {
		t.Errorf("last frame = %+v", last)
	}
}

func TestTrainerSetsTickRates(t *testing.T) {
	cfg := fallConfig()
	pacer := &countingPacer{}
	tr := NewTrainer(cfg, FixedGap(720), nil)
	tr.Runner.Pacer = pacer

	if err := tr.RunGenerations(context.Background(), &fakeEvolver{n: 1}, 1); err != nil {
		t.Fatal(err)
	}
	if pacer.rate != cfg.Training.TickRate {
		t.Errorf("training rate = %d, want %d", pacer.rate, cfg.Training.TickRate)
	}

	if _, err := tr.Replay(context.Background(), Member{Decider: neverJump}); err != nil {
		t.Fatal(err)
	}
	if pacer.rate != cfg.Replay.TickRate {
		t.Errorf("replay rate = %d, want %d", pacer.rate, cfg.Replay.TickRate)
	}
}

func TestTickerPacer(t *testing.T) {
	p := NewTickerPacer(0)
	defer p.Stop()
	if err := p.Wait(context.Background()); err != nil {
		t.Errorf("unlimited Wait: %v", err)
	}

	p.SetTickRate(1000)
	if p.TickRate() != 1000 {
		t.Errorf("rate = %d", p.TickRate())
	}
	if err := p.Wait(context.Background()); err != nil {
		t.Errorf("Wait: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.SetTickRate(1)
	if err := p.Wait(ctx); err == nil {
		t.Error("Wait ignored a cancelled context")
	}
}

func TestTickerPacerClampsRate(t *testing.T) {
	tests := []struct {
		name string
		hz   int
		want int
	}{
		{"beyond nanosecond resolution", 2_000_000_000, config.MaxTickRate},
		{"negative", -5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewTickerPacer(tt.hz)
			defer p.Stop()
			if p.TickRate() != tt.want {
				t.Errorf("rate = %d, want %d", p.TickRate(), tt.want)
			}
			if err := p.Wait(context.Background()); err != nil {
				t.Errorf("Wait: %v", err)
			}
		})
	}
}
