package neural

import (
	"math"
	"math/rand"
	"sort"

	"github.com/yaricom/goNEAT/v4/neat"
	"github.com/yaricom/goNEAT/v4/neat/genetics"
)

// Species groups genetically similar organisms.
type Species struct {
	ID             int
	Representative *genetics.Genome // compatibility reference for the next generation
	Members        []*Organism
	BestFitness    float64 // best fitness ever seen in this species
	MeanFitness    float64 // mean fitness of the last evaluated generation
	Age            int     // generations since creation
	Staleness      int     // generations without improving BestFitness
}

// SpeciesManager partitions each generation into species.
type SpeciesManager struct {
	Species       []*Species
	opts          *neat.Options
	nextSpeciesID int
	generation    int
}

// NewSpeciesManager creates a new species manager.
func NewSpeciesManager(opts *neat.Options) *SpeciesManager {
	return &SpeciesManager{
		Species:       make([]*Species, 0),
		opts:          opts,
		nextSpeciesID: 1,
	}
}

// Speciate clears membership and assigns every organism to the first
// species whose representative lies within the compatibility threshold,
// creating species as needed. Empty species are dropped.
func (sm *SpeciesManager) Speciate(organisms []*Organism) {
	for _, sp := range sm.Species {
		sp.Members = sp.Members[:0]
	}

	for _, org := range organisms {
		org.SpeciesID = sm.assign(org)
	}

	active := sm.Species[:0]
	for _, sp := range sm.Species {
		if len(sp.Members) > 0 {
			active = append(active, sp)
		}
	}
	sm.Species = active
}

func (sm *SpeciesManager) assign(org *Organism) int {
	for _, sp := range sm.Species {
		if sp.Representative == nil {
			continue
		}
		if GenomeCompatibility(org.Genome, sp.Representative, sm.opts) < sm.opts.CompatThreshold {
			sp.Members = append(sp.Members, org)
			return sp.ID
		}
	}

	sp := &Species{
		ID:             sm.nextSpeciesID,
		Representative: org.Genome,
		Members:        []*Organism{org},
		BestFitness:    math.Inf(-1),
	}
	sm.nextSpeciesID++
	sm.Species = append(sm.Species, sp)
	return sp.ID
}

// EndGeneration updates fitness bookkeeping, ages species and drops those
// stale for DropOffAge generations. The species holding the best organism
// always survives, so the population can never die out.
func (sm *SpeciesManager) EndGeneration() {
	sm.generation++

	var best *Species
	for _, sp := range sm.Species {
		sp.Age++

		top, total := math.Inf(-1), 0.0
		for _, m := range sp.Members {
			top = math.Max(top, m.Fitness)
			total += m.Fitness
		}
		sp.MeanFitness = total / float64(len(sp.Members))

		if top > sp.BestFitness {
			sp.BestFitness = top
			sp.Staleness = 0
		} else {
			sp.Staleness++
		}

		if best == nil || top > bestFitness(best) {
			best = sp
		}
	}

	active := make([]*Species, 0, len(sm.Species))
	for _, sp := range sm.Species {
		if sp == best || sm.opts.DropOffAge <= 0 || sp.Staleness < sm.opts.DropOffAge {
			active = append(active, sp)
		}
	}
	sm.Species = active
}

func bestFitness(sp *Species) float64 {
	top := math.Inf(-1)
	for _, m := range sp.Members {
		top = math.Max(top, m.Fitness)
	}
	return top
}

// Allocate divides total offspring between species in proportion to their
// mean shifted fitness (fitness minus the population minimum), so a species
// gains nothing from size alone. Every species gets at least one slot while
// slots remain; rounding remainders go to the largest fractions.
func (sm *SpeciesManager) Allocate(total int) map[int]int {
	alloc := make(map[int]int, len(sm.Species))
	if len(sm.Species) == 0 || total <= 0 {
		return alloc
	}

	low := math.Inf(1)
	for _, sp := range sm.Species {
		for _, m := range sp.Members {
			low = math.Min(low, m.Fitness)
		}
	}

	shares := make([]float64, len(sm.Species))
	sum := 0.0
	for i, sp := range sm.Species {
		s := 0.0
		for _, m := range sp.Members {
			s += m.Fitness - low
		}
		shares[i] = s/float64(len(sp.Members)) + 1e-6
		sum += shares[i]
	}

	type frac struct {
		idx  int
		rest float64
	}
	fracs := make([]frac, len(sm.Species))
	given := 0
	for i, sp := range sm.Species {
		exact := float64(total) * shares[i] / sum
		n := int(math.Floor(exact))
		alloc[sp.ID] = n
		given += n
		fracs[i] = frac{idx: i, rest: exact - float64(n)}
	}
	sort.SliceStable(fracs, func(a, b int) bool { return fracs[a].rest > fracs[b].rest })
	for i := 0; given < total; i = (i + 1) % len(fracs) {
		alloc[sm.Species[fracs[i].idx].ID]++
		given++
	}

	// Top up empty species from the largest allocation.
	for _, sp := range sm.Species {
		if alloc[sp.ID] > 0 {
			continue
		}
		donor := -1
		for _, other := range sm.Species {
			if alloc[other.ID] > 1 && (donor < 0 || alloc[other.ID] > alloc[donor]) {
				donor = other.ID
			}
		}
		if donor < 0 {
			break
		}
		alloc[donor]--
		alloc[sp.ID]++
	}
	return alloc
}

// ChooseRepresentatives picks a random member of each species as the
// compatibility reference for the next generation.
func (sm *SpeciesManager) ChooseRepresentatives(rng *rand.Rand) {
	for _, sp := range sm.Species {
		if len(sp.Members) > 0 {
			sp.Representative = sp.Members[rng.Intn(len(sp.Members))].Genome
		}
	}
}

// SpeciesStats contains summary statistics about all species.
type SpeciesStats struct {
	Count            int
	TotalMembers     int
	LargestSize      int
	SmallestSize     int
	AverageStaleness float64
	Generation       int
	BestFitness      float64
}

// GetStats returns summary statistics about species distribution.
func (sm *SpeciesManager) GetStats() SpeciesStats {
	stats := SpeciesStats{Count: len(sm.Species), Generation: sm.generation}
	if stats.Count == 0 {
		return stats
	}

	stats.SmallestSize = math.MaxInt
	stats.BestFitness = math.Inf(-1)
	totalStaleness := 0
	for _, sp := range sm.Species {
		size := len(sp.Members)
		stats.TotalMembers += size
		stats.LargestSize = max(stats.LargestSize, size)
		stats.SmallestSize = min(stats.SmallestSize, size)
		stats.BestFitness = math.Max(stats.BestFitness, sp.BestFitness)
		totalStaleness += sp.Staleness
	}
	stats.AverageStaleness = float64(totalStaleness) / float64(stats.Count)
	return stats
}
