package neural

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/yaricom/goNEAT/v4/neat/genetics"
	neatmath "github.com/yaricom/goNEAT/v4/neat/math"
	"github.com/yaricom/goNEAT/v4/neat/network"

	"github.com/pthm-cable/flappy/config"
)

// nodeRecord is the serialised form of a genome node.
type nodeRecord struct {
	ID         int    `json:"id"`
	Type       string `json:"type"`
	Activation string `json:"activation"`
}

// geneRecord is the serialised form of a connection gene.
type geneRecord struct {
	In         int     `json:"in"`
	Out        int     `json:"out"`
	Weight     float64 `json:"weight"`
	Enabled    bool    `json:"enabled"`
	Recurrent  bool    `json:"recurrent,omitempty"`
	Innovation int64   `json:"innovation"`
	Mutation   float64 `json:"mutation,omitempty"`
}

// genomeRecord is the serialised form of a genome.
type genomeRecord struct {
	ID    int          `json:"id"`
	Nodes []nodeRecord `json:"nodes"`
	Genes []geneRecord `json:"genes"`
}

var activationNames = map[neatmath.NodeActivationType]string{
	neatmath.SigmoidSteepenedActivation: "sigmoid_steepened",
	neatmath.TanhActivation:             "tanh",
	neatmath.LinearActivation:           "linear",
	neatmath.GaussianActivation:         "gaussian",
	neatmath.SineActivation:             "sine",
}

func activationByName(name string) (neatmath.NodeActivationType, error) {
	for t, n := range activationNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown activation %q", name)
}

func nodeType(n *network.NNode) (string, error) {
	switch n.NeuronType {
	case network.InputNeuron:
		return "input", nil
	case network.BiasNeuron:
		return "bias", nil
	case network.HiddenNeuron:
		return "hidden", nil
	case network.OutputNeuron:
		return "output", nil
	}
	return "", fmt.Errorf("node %d: unsupported neuron type %v", n.Id, n.NeuronType)
}

func newNodeOfType(id int, kind string) (*network.NNode, error) {
	switch kind {
	case "input":
		return network.NewNNode(id, network.InputNeuron), nil
	case "bias":
		return network.NewNNode(id, network.BiasNeuron), nil
	case "hidden":
		return network.NewNNode(id, network.HiddenNeuron), nil
	case "output":
		return network.NewNNode(id, network.OutputNeuron), nil
	}
	return nil, fmt.Errorf("node %d: unknown type %q", id, kind)
}

func encodeGenome(g *genetics.Genome) (genomeRecord, error) {
	rec := genomeRecord{
		ID:    g.Id,
		Nodes: make([]nodeRecord, 0, len(g.Nodes)),
		Genes: make([]geneRecord, 0, len(g.Genes)),
	}
	for _, n := range g.Nodes {
		kind, err := nodeType(n)
		if err != nil {
			return genomeRecord{}, err
		}
		act, ok := activationNames[n.ActivationType]
		if !ok {
			return genomeRecord{}, fmt.Errorf("node %d: unsupported activation %v", n.Id, n.ActivationType)
		}
		rec.Nodes = append(rec.Nodes, nodeRecord{ID: n.Id, Type: kind, Activation: act})
	}
	for _, gene := range g.Genes {
		rec.Genes = append(rec.Genes, geneRecord{
			In:         gene.Link.InNode.Id,
			Out:        gene.Link.OutNode.Id,
			Weight:     gene.Link.ConnectionWeight,
			Enabled:    gene.IsEnabled,
			Recurrent:  gene.Link.IsRecurrent,
			Innovation: gene.InnovationNum,
			Mutation:   gene.MutationNum,
		})
	}
	return rec, nil
}

func decodeGenome(rec genomeRecord) (*genetics.Genome, error) {
	nodes := make([]*network.NNode, 0, len(rec.Nodes))
	byID := make(map[int]*network.NNode, len(rec.Nodes))
	for _, nr := range rec.Nodes {
		if _, dup := byID[nr.ID]; dup {
			return nil, fmt.Errorf("genome %d: duplicate node %d", rec.ID, nr.ID)
		}
		n, err := newNodeOfType(nr.ID, nr.Type)
		if err != nil {
			return nil, fmt.Errorf("genome %d: %w", rec.ID, err)
		}
		act, err := activationByName(nr.Activation)
		if err != nil {
			return nil, fmt.Errorf("genome %d node %d: %w", rec.ID, nr.ID, err)
		}
		n.ActivationType = act
		nodes = append(nodes, n)
		byID[nr.ID] = n
	}

	genes := make([]*genetics.Gene, 0, len(rec.Genes))
	for _, gr := range rec.Genes {
		in, out := byID[gr.In], byID[gr.Out]
		if in == nil || out == nil {
			return nil, fmt.Errorf("genome %d: gene %d links missing node %d -> %d", rec.ID, gr.Innovation, gr.In, gr.Out)
		}
		gene := genetics.NewGeneWithTrait(nil, gr.Weight, in, out, gr.Recurrent, gr.Innovation, gr.Mutation)
		gene.IsEnabled = gr.Enabled
		genes = append(genes, gene)
	}
	return genetics.NewGenome(rec.ID, nil, nodes, genes), nil
}

// MarshalGenome encodes a single genome, e.g. the champion, as JSON.
func MarshalGenome(g *genetics.Genome) ([]byte, error) {
	if g == nil {
		return nil, fmt.Errorf("cannot marshal nil genome")
	}
	rec, err := encodeGenome(g)
	if err != nil {
		return nil, err
	}
	return json.Marshal(rec)
}

// UnmarshalGenome decodes a genome written by MarshalGenome.
func UnmarshalGenome(data []byte) (*genetics.Genome, error) {
	var rec genomeRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding genome: %w", err)
	}
	if len(rec.Nodes) == 0 {
		return nil, fmt.Errorf("decoding genome: no nodes")
	}
	return decodeGenome(rec)
}

type organismRecord struct {
	Genome    genomeRecord `json:"genome"`
	Fitness   float64      `json:"fitness"`
	SpeciesID int          `json:"species_id,omitempty"`
}

type speciesRecord struct {
	ID             int          `json:"id"`
	Representative genomeRecord `json:"representative"`
	BestFitness    float64      `json:"best_fitness"`
	Age            int          `json:"age"`
	Staleness      int          `json:"staleness"`
}

// populationSnapshot is the checkpoint payload.
type populationSnapshot struct {
	Generation     int              `json:"generation"`
	Seed           int64            `json:"seed"`
	NextGenomeID   int              `json:"next_genome_id"`
	NextInnovation int64            `json:"next_innovation"`
	NextSpeciesID  int              `json:"next_species_id"`
	Organisms      []organismRecord `json:"organisms"`
	Species        []speciesRecord  `json:"species"`
	Champion       *organismRecord  `json:"champion,omitempty"`
}

// MarshalCheckpoint snapshots the population between generations.
func (p *Population) MarshalCheckpoint() ([]byte, error) {
	snap := populationSnapshot{
		Generation:     p.generation,
		Seed:           p.seed,
		NextGenomeID:   p.idGen.nextID,
		NextInnovation: p.idGen.nextInnovNum,
		NextSpeciesID:  p.species.nextSpeciesID,
		Organisms:      make([]organismRecord, 0, len(p.organisms)),
	}
	for _, org := range p.organisms {
		rec, err := encodeGenome(org.Genome)
		if err != nil {
			return nil, err
		}
		snap.Organisms = append(snap.Organisms, organismRecord{Genome: rec, Fitness: org.Fitness, SpeciesID: org.SpeciesID})
	}
	for _, sp := range p.species.Species {
		rec, err := encodeGenome(sp.Representative)
		if err != nil {
			return nil, err
		}
		best := sp.BestFitness
		if math.IsInf(best, -1) {
			best = -math.MaxFloat64
		}
		snap.Species = append(snap.Species, speciesRecord{
			ID:             sp.ID,
			Representative: rec,
			BestFitness:    best,
			Age:            sp.Age,
			Staleness:      sp.Staleness,
		})
	}
	if p.champion != nil {
		rec, err := encodeGenome(p.champion.Genome)
		if err != nil {
			return nil, err
		}
		snap.Champion = &organismRecord{Genome: rec, Fitness: p.champion.Fitness, SpeciesID: p.champion.SpeciesID}
	}
	return json.Marshal(snap)
}

// RestoreCheckpoint rebuilds a population from MarshalCheckpoint output.
// cfg supplies the mutation and speciation parameters; the population size
// is taken from the checkpoint. The rng is reseeded from the stored seed and
// generation, so a resumed run is reproducible but does not replay the
// exact random stream of the original.
func RestoreCheckpoint(data []byte, cfg config.NEATConfig) (*Population, error) {
	var snap populationSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decoding checkpoint: %w", err)
	}
	if len(snap.Organisms) == 0 {
		return nil, fmt.Errorf("decoding checkpoint: no organisms")
	}

	cfg.PopulationSize = len(snap.Organisms)
	p := newEmptyPopulation(cfg, snap.Seed+int64(snap.Generation))
	p.seed = snap.Seed
	p.generation = snap.Generation
	p.idGen.nextID = snap.NextGenomeID
	p.idGen.nextInnovNum = snap.NextInnovation
	p.species.nextSpeciesID = snap.NextSpeciesID
	p.species.generation = snap.Generation

	for _, rec := range snap.Organisms {
		g, err := decodeGenome(rec.Genome)
		if err != nil {
			return nil, err
		}
		p.organisms = append(p.organisms, &Organism{Genome: g, Fitness: rec.Fitness, SpeciesID: rec.SpeciesID})
	}

	sort.Slice(snap.Species, func(i, j int) bool { return snap.Species[i].ID < snap.Species[j].ID })
	for _, rec := range snap.Species {
		rep, err := decodeGenome(rec.Representative)
		if err != nil {
			return nil, err
		}
		p.species.Species = append(p.species.Species, &Species{
			ID:             rec.ID,
			Representative: rep,
			BestFitness:    rec.BestFitness,
			Age:            rec.Age,
			Staleness:      rec.Staleness,
		})
	}

	if snap.Champion != nil {
		g, err := decodeGenome(snap.Champion.Genome)
		if err != nil {
			return nil, err
		}
		p.champion = &Organism{Genome: g, Fitness: snap.Champion.Fitness, SpeciesID: snap.Champion.SpeciesID}
	}
	return p, nil
}
