package neural

import (
	"fmt"
	"math/rand"

	"github.com/yaricom/goNEAT/v4/neat/genetics"
	neatmath "github.com/yaricom/goNEAT/v4/neat/math"
	"github.com/yaricom/goNEAT/v4/neat/network"
)

// BrainController wraps a goNEAT phenotype as a decider. Each controller
// owns its network, so controllers for different birds may run concurrently.
type BrainController struct {
	Genome  *genetics.Genome
	network *network.Network
	depth   int
}

// NewBrainController builds the phenotype network for genome.
func NewBrainController(genome *genetics.Genome) (*BrainController, error) {
	phenotype, err := genome.Genesis(genome.Id)
	if err != nil {
		return nil, fmt.Errorf("failed to build network from genome %d: %w", genome.Id, err)
	}

	depth, err := phenotype.MaxActivationDepth()
	if err != nil || depth < 1 {
		depth = 5 // fallback for networks with loops
	}

	return &BrainController{
		Genome:  genome,
		network: phenotype,
		depth:   depth,
	}, nil
}

// Decide feeds the sensor vector through the network and returns its outputs.
// The network is flushed afterwards; birds carry no memory between ticks.
func (b *BrainController) Decide(inputs []float64) ([]float64, error) {
	if len(inputs) != BrainInputs {
		return nil, fmt.Errorf("expected %d inputs, got %d", BrainInputs, len(inputs))
	}

	if err := b.network.LoadSensors(inputs); err != nil {
		return nil, fmt.Errorf("failed to load sensors: %w", err)
	}
	for i := 0; i < b.depth; i++ {
		if _, err := b.network.Activate(); err != nil {
			return nil, fmt.Errorf("activation failed: %w", err)
		}
	}

	outputs := append([]float64(nil), b.network.ReadOutputs()...)

	if _, err := b.network.Flush(); err != nil {
		return nil, fmt.Errorf("flush failed: %w", err)
	}
	return outputs, nil
}

// NodeCount returns the number of nodes in the network.
func (b *BrainController) NodeCount() int {
	return b.network.NodeCount()
}

// LinkCount returns the number of links in the network.
func (b *BrainController) LinkCount() int {
	return b.network.LinkCount()
}

// CreateBrainGenome creates a starting genome: linear inputs wired to a
// steepened-sigmoid output with probability connectionProb each. At least
// one link is always present. Innovation numbers 1..BrainInputs*BrainOutputs
// are reserved for these input-output links so every founder shares them.
func CreateBrainGenome(id int, connectionProb float64, rng *rand.Rand) *genetics.Genome {
	nodes := make([]*network.NNode, 0, BrainInputs+BrainOutputs)

	for i := 1; i <= BrainInputs; i++ {
		node := network.NewNNode(i, network.InputNeuron)
		node.ActivationType = neatmath.LinearActivation
		nodes = append(nodes, node)
	}
	for i := 1; i <= BrainOutputs; i++ {
		node := network.NewNNode(BrainInputs+i, network.OutputNeuron)
		node.ActivationType = neatmath.SigmoidSteepenedActivation
		nodes = append(nodes, node)
	}

	genes := make([]*genetics.Gene, 0, BrainInputs*BrainOutputs)
	for i := 0; i < BrainInputs; i++ {
		for j := 0; j < BrainOutputs; j++ {
			innov := int64(i*BrainOutputs + j + 1)
			if rng.Float64() < connectionProb {
				genes = append(genes, genetics.NewGeneWithTrait(
					nil,
					rng.Float64()*4-2, // [-2, 2]
					nodes[i],
					nodes[BrainInputs+j],
					false,
					innov,
					0,
				))
			}
		}
	}

	if len(genes) == 0 {
		i := rng.Intn(BrainInputs)
		genes = append(genes, genetics.NewGeneWithTrait(
			nil,
			rng.Float64()*2-1,
			nodes[i],
			nodes[BrainInputs],
			false,
			int64(i*BrainOutputs+1),
			0,
		))
	}

	return genetics.NewGenome(id, nil, nodes, genes)
}
