package neural

import (
	"context"
	"testing"

	"github.com/pthm-cable/flappy/config"
	"github.com/pthm-cable/flappy/game"
)

func smallNEAT(size int) config.NEATConfig {
	c := config.Default().NEAT
	c.PopulationSize = size
	return c
}

func TestNewPopulation(t *testing.T) {
	if _, err := NewPopulation(smallNEAT(0), 1); err == nil {
		t.Error("expected error for empty population")
	}

	pop, err := NewPopulation(smallNEAT(12), 1)
	if err != nil {
		t.Fatal(err)
	}
	if pop.Generation() != 0 {
		t.Errorf("generation = %d", pop.Generation())
	}

	members, err := pop.Members()
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 12 {
		t.Fatalf("expected 12 members, got %d", len(members))
	}
	seen := map[int]bool{}
	for i, m := range members {
		if seen[m.ID] {
			t.Errorf("duplicate member id %d", m.ID)
		}
		seen[m.ID] = true
		if m.ID != pop.Organisms()[i].Genome.Id {
			t.Errorf("member %d out of order", i)
		}
		*m.Fitness = float64(i)
	}
	for i, org := range pop.Organisms() {
		if org.Fitness != float64(i) {
			t.Errorf("fitness pointer for organism %d does not write through", i)
		}
	}

	if _, _, ok := pop.Champion(); ok {
		t.Error("champion reported before first evolve")
	}
}

func TestPopulationEvolve(t *testing.T) {
	pop, err := NewPopulation(smallNEAT(20), 2)
	if err != nil {
		t.Fatal(err)
	}

	for gen := 0; gen < 5; gen++ {
		for i, org := range pop.Organisms() {
			org.Fitness = float64((i*7)%20) + float64(gen)
		}
		if err := pop.Evolve(); err != nil {
			t.Fatalf("generation %d: %v", gen, err)
		}
		if pop.Generation() != gen+1 {
			t.Errorf("generation = %d, want %d", pop.Generation(), gen+1)
		}
		if n := len(pop.Organisms()); n != 20 {
			t.Fatalf("population size %d after evolve", n)
		}
		if pop.SpeciesCount() < 1 {
			t.Error("no species after evolve")
		}
		stats := pop.SpeciesStats()
		if stats.Count != pop.SpeciesCount() || stats.SmallestSize > stats.LargestSize {
			t.Errorf("species stats %+v disagree with %d species", stats, pop.SpeciesCount())
		}
		if stats.TotalMembers < 1 || stats.TotalMembers > 20 {
			t.Errorf("species hold %d members of 20", stats.TotalMembers)
		}

		ids := map[int]bool{}
		for _, org := range pop.Organisms() {
			if ids[org.Genome.Id] {
				t.Errorf("duplicate genome id %d", org.Genome.Id)
			}
			ids[org.Genome.Id] = true
			if org.Fitness != 0 {
				t.Errorf("offspring starts with fitness %v", org.Fitness)
			}
		}
		if _, err := pop.Members(); err != nil {
			t.Fatalf("offspring phenotypes: %v", err)
		}
	}

	_, fit, ok := pop.Champion()
	if !ok {
		t.Fatal("no champion recorded")
	}
	if fit != 23 {
		t.Errorf("champion fitness = %v, want 23", fit)
	}
}

func TestPopulationDeterministic(t *testing.T) {
	run := func() []int {
		pop, err := NewPopulation(smallNEAT(15), 7)
		if err != nil {
			t.Fatal(err)
		}
		for gen := 0; gen < 3; gen++ {
			for i, org := range pop.Organisms() {
				org.Fitness = float64(i % 5)
			}
			if err := pop.Evolve(); err != nil {
				t.Fatal(err)
			}
		}
		var genes []int
		for _, org := range pop.Organisms() {
			genes = append(genes, len(org.Genome.Genes))
		}
		return genes
	}

	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("organism %d differs between runs: %d vs %d genes", i, a[i], b[i])
		}
	}
}

func TestTrainPopulationEndToEnd(t *testing.T) {
	cfg := config.Default()
	cfg.NEAT = smallNEAT(10)
	cfg.Training.MaxTicks = 300
	cfg.Replay.MaxTicks = 300

	pop, err := NewPopulation(cfg.NEAT, 3)
	if err != nil {
		t.Fatal(err)
	}

	trainer := game.NewTrainer(cfg, game.NewRandomGaps(3), nil)
	var reports []game.GenerationReport
	trainer.OnGeneration(func(_ context.Context, r game.GenerationReport) error {
		reports = append(reports, r)
		return nil
	})

	if err := trainer.RunGenerations(context.Background(), pop, 3); err != nil {
		t.Fatalf("RunGenerations: %v", err)
	}
	if len(reports) != 3 || pop.Generation() != 3 {
		t.Fatalf("reports=%d generation=%d", len(reports), pop.Generation())
	}
	for i, r := range reports {
		if r.Generation != i || r.Members != 10 {
			t.Errorf("report %d: %+v", i, r)
		}
		if len(r.Round.Results) != 10 {
			t.Errorf("report %d has %d results", i, len(r.Round.Results))
		}
	}

	genome, fit, ok := pop.Champion()
	if !ok {
		t.Fatal("no champion after training")
	}
	ctrl, err := NewBrainController(genome)
	if err != nil {
		t.Fatal(err)
	}
	fitness := 0.0
	report, err := trainer.Replay(context.Background(), game.Member{ID: genome.Id, Decider: ctrl, Fitness: &fitness})
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if report.Ticks == 0 || len(report.Results) != 1 {
		t.Errorf("replay report %+v", report)
	}
	if fit < -cfg.Fitness.DeathPenalty {
		t.Errorf("champion fitness %v below one death penalty", fit)
	}
}

func TestGenomeCodecRoundTrip(t *testing.T) {
	pop, err := NewPopulation(smallNEAT(8), 4)
	if err != nil {
		t.Fatal(err)
	}
	for i, org := range pop.Organisms() {
		org.Fitness = float64(i)
	}
	if err := pop.Evolve(); err != nil {
		t.Fatal(err)
	}

	genome, _, _ := pop.Champion()
	data, err := MarshalGenome(genome)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := UnmarshalGenome(data)
	if err != nil {
		t.Fatal(err)
	}

	a, err := NewBrainController(genome)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewBrainController(decoded)
	if err != nil {
		t.Fatal(err)
	}
	in := []float64{300, 120, 180, 400}
	outA, _ := a.Decide(in)
	outB, _ := b.Decide(in)
	if outA[0] != outB[0] {
		t.Errorf("decoded genome decides %v, original %v", outB[0], outA[0])
	}

	if _, err := UnmarshalGenome([]byte(`{"id":1,"nodes":[]}`)); err == nil {
		t.Error("expected error for genome without nodes")
	}
	if _, err := UnmarshalGenome([]byte(`{"id":1,"nodes":[{"id":1,"type":"input","activation":"bogus"}]}`)); err == nil {
		t.Error("expected error for unknown activation")
	}
	if _, err := MarshalGenome(nil); err == nil {
		t.Error("expected error for nil genome")
	}
}

func TestCheckpointResume(t *testing.T) {
	pop, err := NewPopulation(smallNEAT(10), 5)
	if err != nil {
		t.Fatal(err)
	}
	for gen := 0; gen < 2; gen++ {
		for i, org := range pop.Organisms() {
			org.Fitness = float64(i)
		}
		if err := pop.Evolve(); err != nil {
			t.Fatal(err)
		}
	}

	data, err := pop.MarshalCheckpoint()
	if err != nil {
		t.Fatal(err)
	}
	cfg := smallNEAT(999) // size comes from the checkpoint
	restored, err := RestoreCheckpoint(data, cfg)
	if err != nil {
		t.Fatal(err)
	}

	if restored.Generation() != 2 {
		t.Errorf("generation = %d, want 2", restored.Generation())
	}
	if len(restored.Organisms()) != 10 {
		t.Fatalf("restored %d organisms", len(restored.Organisms()))
	}
	if restored.SpeciesCount() != pop.SpeciesCount() {
		t.Errorf("species = %d, want %d", restored.SpeciesCount(), pop.SpeciesCount())
	}
	for i, org := range restored.Organisms() {
		orig := pop.Organisms()[i]
		if org.Genome.Id != orig.Genome.Id || len(org.Genome.Genes) != len(orig.Genome.Genes) {
			t.Errorf("organism %d differs after restore", i)
		}
	}
	_, fitA, _ := pop.Champion()
	_, fitB, ok := restored.Champion()
	if !ok || fitA != fitB {
		t.Errorf("champion fitness %v, want %v", fitB, fitA)
	}

	// Fresh ids keep counting from where the original left off.
	for _, org := range restored.Organisms() {
		org.Fitness = 1
	}
	if err := restored.Evolve(); err != nil {
		t.Fatalf("evolve after restore: %v", err)
	}
	if len(restored.Organisms()) != 10 {
		t.Errorf("size after restore and evolve = %d", len(restored.Organisms()))
	}
	for _, org := range restored.Organisms() {
		for _, old := range pop.Organisms() {
			if org.Genome.Id == old.Genome.Id {
				t.Fatalf("genome id %d reused after restore", org.Genome.Id)
			}
		}
	}

	if _, err := RestoreCheckpoint([]byte("not json"), cfg); err == nil {
		t.Error("expected error for corrupt checkpoint")
	}
}

func TestHeuristicDecide(t *testing.T) {
	h := DefaultHeuristic()
	tests := []struct {
		name string
		in   []float64
		want float64
	}{
		{"falls when high and far", []float64{300, 0, 0, 600}, 0},
		{"jumps below hover line", []float64{600, 0, 0, 600}, 1},
		{"jumps near lower column", []float64{500, 200, 60, 100}, 1},
		{"waits when roomy above lower column", []float64{500, 200, 150, 100}, 0},
		{"no jump into upper column", []float64{500, 40, 60, 100}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := h.Decide(tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if out[0] != tt.want {
				t.Errorf("Decide(%v) = %v, want %v", tt.in, out[0], tt.want)
			}
		})
	}

	if _, err := h.Decide([]float64{1}); err == nil {
		t.Error("expected error for short input")
	}

	p := h.Params()
	p[0] = 99
	if got := h.WithParams(p); got.Margin != 99 || got.Size != h.Size {
		t.Errorf("WithParams = %+v", got)
	}
	if h.Margin != 20 {
		t.Error("Params aliases the heuristic")
	}
}
