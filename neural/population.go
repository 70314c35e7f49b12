package neural

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/yaricom/goNEAT/v4/neat"
	"github.com/yaricom/goNEAT/v4/neat/genetics"

	"github.com/pthm-cable/flappy/config"
	"github.com/pthm-cable/flappy/game"
)

// Organism is one genome and the fitness its bird earned.
type Organism struct {
	Genome    *genetics.Genome
	Fitness   float64
	SpeciesID int
}

// Population is a generational NEAT population. It implements game.Evolver.
type Population struct {
	cfg        config.NEATConfig
	opts       *neat.Options
	rng        *rand.Rand
	seed       int64
	idGen      *GenomeIDGenerator
	species    *SpeciesManager
	organisms  []*Organism
	generation int

	champion *Organism // deep copy of the best organism ever evaluated
}

// NewPopulation seeds a population of cfg.PopulationSize founder genomes.
func NewPopulation(cfg config.NEATConfig, seed int64) (*Population, error) {
	if cfg.PopulationSize <= 0 {
		return nil, fmt.Errorf("population size must be positive, got %d", cfg.PopulationSize)
	}
	p := newEmptyPopulation(cfg, seed)
	p.organisms = make([]*Organism, 0, cfg.PopulationSize)
	for i := 0; i < cfg.PopulationSize; i++ {
		g := CreateBrainGenome(p.idGen.NextID(), cfg.InitialConnectionProb, p.rng)
		p.organisms = append(p.organisms, &Organism{Genome: g})
	}
	return p, nil
}

func newEmptyPopulation(cfg config.NEATConfig, seed int64) *Population {
	opts := Options(cfg)
	return &Population{
		cfg:     cfg,
		opts:    opts,
		rng:     rand.New(rand.NewSource(seed)),
		seed:    seed,
		idGen:   NewGenomeIDGenerator(),
		species: NewSpeciesManager(opts),
	}
}

// Generation returns the number of the generation Members evaluates.
func (p *Population) Generation() int { return p.generation }

// Organisms returns the current organisms in evaluation order.
func (p *Population) Organisms() []*Organism { return p.organisms }

// SpeciesCount returns the number of species after the last Evolve.
func (p *Population) SpeciesCount() int { return len(p.species.Species) }

// SpeciesStats returns species summary statistics.
func (p *Population) SpeciesStats() SpeciesStats { return p.species.GetStats() }

// Members builds one phenotype per organism. Fitness pointers refer to the
// organisms themselves, so the round writes straight into the population.
func (p *Population) Members() ([]game.Member, error) {
	members := make([]game.Member, 0, len(p.organisms))
	for _, org := range p.organisms {
		ctrl, err := NewBrainController(org.Genome)
		if err != nil {
			return nil, err
		}
		members = append(members, game.Member{
			ID:      org.Genome.Id,
			Decider: ctrl,
			Fitness: &org.Fitness,
		})
	}
	return members, nil
}

// Champion returns a copy of the best genome evaluated so far and its fitness.
// ok is false before the first Evolve.
func (p *Population) Champion() (genome *genetics.Genome, fitness float64, ok bool) {
	if p.champion == nil {
		return nil, 0, false
	}
	return p.champion.Genome, p.champion.Fitness, true
}

// Evolve breeds the next generation from the fitness values the round
// wrote into the organisms.
func (p *Population) Evolve() error {
	if len(p.organisms) == 0 {
		return fmt.Errorf("cannot evolve an empty population")
	}
	if err := p.recordChampion(); err != nil {
		return err
	}

	p.species.Speciate(p.organisms)
	p.species.EndGeneration()
	alloc := p.species.Allocate(p.cfg.PopulationSize)

	next := make([]*Organism, 0, p.cfg.PopulationSize)
	for _, sp := range p.species.Species {
		children, err := p.reproduce(sp, alloc[sp.ID])
		if err != nil {
			return fmt.Errorf("species %d: %w", sp.ID, err)
		}
		next = append(next, children...)
	}

	p.species.ChooseRepresentatives(p.rng)
	p.organisms = next
	p.generation++
	return nil
}

func (p *Population) recordChampion() error {
	best := p.organisms[0]
	for _, org := range p.organisms[1:] {
		if org.Fitness > best.Fitness {
			best = org
		}
	}
	if p.champion != nil && best.Fitness <= p.champion.Fitness {
		return nil
	}
	clone, err := CloneGenome(best.Genome, best.Genome.Id)
	if err != nil {
		return fmt.Errorf("recording champion: %w", err)
	}
	p.champion = &Organism{Genome: clone, Fitness: best.Fitness, SpeciesID: best.SpeciesID}
	return nil
}

// reproduce produces n children for one species: elites copied unchanged,
// the rest bred from the top SurvivalThresh fraction.
func (p *Population) reproduce(sp *Species, n int) ([]*Organism, error) {
	if n <= 0 {
		return nil, nil
	}

	ranked := append([]*Organism(nil), sp.Members...)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Fitness > ranked[j].Fitness })

	children := make([]*Organism, 0, n)

	elites := min(p.cfg.Elitism, len(ranked), n)
	for i := 0; i < elites; i++ {
		g, err := CloneGenome(ranked[i].Genome, p.idGen.NextID())
		if err != nil {
			return nil, err
		}
		children = append(children, &Organism{Genome: g})
	}

	pool := max(1, int(math.Ceil(p.opts.SurvivalThresh*float64(len(ranked)))))
	parents := ranked[:min(pool, len(ranked))]

	for len(children) < n {
		child, err := p.breed(parents)
		if err != nil {
			return nil, err
		}
		children = append(children, &Organism{Genome: child})
	}
	return children, nil
}

func (p *Population) breed(parents []*Organism) (*genetics.Genome, error) {
	mom := parents[p.rng.Intn(len(parents))]

	if len(parents) == 1 || p.rng.Float64() < p.opts.MutateOnlyProb {
		child, err := CloneGenome(mom.Genome, p.idGen.NextID())
		if err != nil {
			return nil, err
		}
		if _, err := MutateGenome(child, p.opts, p.idGen, p.rng); err != nil {
			return nil, err
		}
		return child, nil
	}

	dad := parents[p.rng.Intn(len(parents))]
	child, err := CrossoverGenomes(mom.Genome, dad.Genome, mom.Fitness, dad.Fitness, p.idGen.NextID(), p.rng)
	if err != nil {
		return nil, err
	}
	if p.rng.Float64() >= p.opts.MateOnlyProb {
		if _, err := MutateGenome(child, p.opts, p.idGen, p.rng); err != nil {
			return nil, err
		}
	} else {
		ensureOutputsConnected(child, p.idGen, p.rng)
	}
	return child, nil
}
