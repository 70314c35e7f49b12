package neural

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/yaricom/goNEAT/v4/neat"
	"github.com/yaricom/goNEAT/v4/neat/genetics"
	neatmath "github.com/yaricom/goNEAT/v4/neat/math"
	"github.com/yaricom/goNEAT/v4/neat/network"
)

// Mutation constants
const (
	perturbProb         = 0.9 // probability of perturbing vs replacing a weight
	maxConnectionWeight = 8.0
	maxLinkAttempts     = 20
	disableInheritProb  = 0.75 // matching gene disabled in either parent stays disabled
)

// GenomeIDGenerator hands out genome ids and innovation numbers.
type GenomeIDGenerator struct {
	nextID       int
	nextInnovNum int64
}

// NewGenomeIDGenerator creates a generator. Innovations start above the
// numbers reserved for founder links.
func NewGenomeIDGenerator() *GenomeIDGenerator {
	return &GenomeIDGenerator{
		nextID:       1,
		nextInnovNum: int64(BrainInputs*BrainOutputs) + 1,
	}
}

// NextID returns the next unique genome ID.
func (g *GenomeIDGenerator) NextID() int {
	id := g.nextID
	g.nextID++
	return id
}

// NextInnovation returns the next innovation number.
func (g *GenomeIDGenerator) NextInnovation() int64 {
	num := g.nextInnovNum
	g.nextInnovNum++
	return num
}

// hiddenActivators are the activation functions new hidden nodes draw from.
var hiddenActivators = []neatmath.NodeActivationType{
	neatmath.SigmoidSteepenedActivation,
	neatmath.TanhActivation,
	neatmath.LinearActivation,
}

// CrossoverGenomes performs NEAT crossover. Genes are aligned by innovation
// number; the fitter parent contributes its disjoint and excess genes, and
// with equal fitness both parents may.
func CrossoverGenomes(parent1, parent2 *genetics.Genome, fitness1, fitness2 float64, childID int, rng *rand.Rand) (*genetics.Genome, error) {
	if parent1 == nil || parent2 == nil {
		return nil, fmt.Errorf("cannot crossover nil genomes")
	}

	primary, secondary := parent1, parent2
	if fitness2 > fitness1 {
		primary, secondary = parent2, parent1
	}
	equal := fitness1 == fitness2

	primaryGenes := geneIndex(primary)
	secondaryGenes := geneIndex(secondary)

	innovations := make([]int64, 0, len(primaryGenes)+len(secondaryGenes))
	for innov := range primaryGenes {
		innovations = append(innovations, innov)
	}
	for innov := range secondaryGenes {
		if _, ok := primaryGenes[innov]; !ok {
			innovations = append(innovations, innov)
		}
	}
	sort.Slice(innovations, func(i, j int) bool { return innovations[i] < innovations[j] })

	childNodes := make(map[int]*network.NNode)
	for _, node := range primary.Nodes {
		childNodes[node.Id] = copyNode(node)
	}
	for _, node := range secondary.Nodes {
		if _, ok := childNodes[node.Id]; !ok {
			childNodes[node.Id] = copyNode(node)
		}
	}

	childGenes := make([]*genetics.Gene, 0, len(innovations))
	for _, innov := range innovations {
		pGene, sGene := primaryGenes[innov], secondaryGenes[innov]

		var selected *genetics.Gene
		enabled := true
		switch {
		case pGene != nil && sGene != nil:
			selected = pGene
			if rng.Float64() < 0.5 {
				selected = sGene
			}
			if (!pGene.IsEnabled || !sGene.IsEnabled) && rng.Float64() < disableInheritProb {
				enabled = false
			}
		case pGene != nil:
			selected = pGene
			enabled = pGene.IsEnabled
		case equal && rng.Float64() < 0.5:
			selected = sGene
			enabled = sGene.IsEnabled
		}
		if selected == nil {
			continue
		}

		inNode := childNodes[selected.Link.InNode.Id]
		outNode := childNodes[selected.Link.OutNode.Id]
		child := genetics.NewGeneWithTrait(
			nil,
			selected.Link.ConnectionWeight,
			inNode,
			outNode,
			selected.Link.IsRecurrent,
			selected.InnovationNum,
			selected.MutationNum,
		)
		child.IsEnabled = enabled
		childGenes = append(childGenes, child)
	}

	nodes := make([]*network.NNode, 0, len(childNodes))
	for _, node := range childNodes {
		nodes = append(nodes, node)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Id < nodes[j].Id })

	// Hidden links inherited from different parents can close a loop.
	return genetics.NewGenome(childID, nil, nodes, pruneCycles(childGenes)), nil
}

func geneIndex(g *genetics.Genome) map[int64]*genetics.Gene {
	idx := make(map[int64]*genetics.Gene, len(g.Genes))
	for _, gene := range g.Genes {
		idx[gene.InnovationNum] = gene
	}
	return idx
}

func copyNode(node *network.NNode) *network.NNode {
	newNode := network.NewNNode(node.Id, node.NeuronType)
	newNode.ActivationType = node.ActivationType
	return newNode
}

// pruneCycles keeps genes in order, dropping any whose link would close a
// loop among the genes already kept.
func pruneCycles(genes []*genetics.Gene) []*genetics.Gene {
	kept := make([]*genetics.Gene, 0, len(genes))
	adj := make(map[int][]int)
	for _, gene := range genes {
		in, out := gene.Link.InNode.Id, gene.Link.OutNode.Id
		if in == out || reachable(adj, out, in) {
			continue
		}
		adj[in] = append(adj[in], out)
		kept = append(kept, gene)
	}
	return kept
}

// reachable reports whether to can be reached from from following adj.
func reachable(adj map[int][]int, from, to int) bool {
	stack := []int{from}
	seen := map[int]bool{from: true}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == to {
			return true
		}
		for _, next := range adj[n] {
			if !seen[next] {
				seen[next] = true
				stack = append(stack, next)
			}
		}
	}
	return false
}

func adjacency(genome *genetics.Genome) map[int][]int {
	adj := make(map[int][]int)
	for _, gene := range genome.Genes {
		adj[gene.Link.InNode.Id] = append(adj[gene.Link.InNode.Id], gene.Link.OutNode.Id)
	}
	return adj
}

func mutateWeights(genome *genetics.Genome, power float64, rng *rand.Rand) {
	for _, gene := range genome.Genes {
		if rng.Float64() < perturbProb {
			gene.Link.ConnectionWeight += (rng.Float64()*2 - 1) * power
		} else {
			gene.Link.ConnectionWeight = rng.Float64()*4 - 2
		}
		gene.Link.ConnectionWeight = clampWeight(gene.Link.ConnectionWeight)
	}
}

// clampWeight clamps a connection weight to the valid range.
func clampWeight(w float64) float64 {
	return math.Max(-maxConnectionWeight, math.Min(maxConnectionWeight, w))
}

// addNode splits a random enabled link: in -> new (weight 1), new -> out (old weight).
func addNode(genome *genetics.Genome, idGen *GenomeIDGenerator, rng *rand.Rand) bool {
	enabled := make([]*genetics.Gene, 0, len(genome.Genes))
	for _, gene := range genome.Genes {
		if gene.IsEnabled {
			enabled = append(enabled, gene)
		}
	}
	if len(enabled) == 0 {
		return false
	}

	split := enabled[rng.Intn(len(enabled))]
	split.IsEnabled = false

	maxNodeID := 0
	for _, node := range genome.Nodes {
		maxNodeID = max(maxNodeID, node.Id)
	}
	hidden := network.NewNNode(maxNodeID+1, network.HiddenNeuron)
	hidden.ActivationType = hiddenActivators[rng.Intn(len(hiddenActivators))]

	in := genetics.NewGeneWithTrait(nil, 1.0, split.Link.InNode, hidden, false, idGen.NextInnovation(), 0)
	out := genetics.NewGeneWithTrait(nil, split.Link.ConnectionWeight, hidden, split.Link.OutNode, false, idGen.NextInnovation(), 0)

	genome.Nodes = append(genome.Nodes, hidden)
	genome.Genes = append(genome.Genes, in, out)
	return true
}

// addLink connects a random input or hidden node to a random hidden or
// output node. Links that would close a loop are rejected.
func addLink(genome *genetics.Genome, idGen *GenomeIDGenerator, rng *rand.Rand) bool {
	var sources, targets []*network.NNode
	for _, node := range genome.Nodes {
		switch node.NeuronType {
		case network.InputNeuron, network.BiasNeuron:
			sources = append(sources, node)
		case network.OutputNeuron:
			targets = append(targets, node)
		case network.HiddenNeuron:
			sources = append(sources, node)
			targets = append(targets, node)
		}
	}
	if len(sources) == 0 || len(targets) == 0 {
		return false
	}

	existing := make(map[int64]bool, len(genome.Genes))
	for _, gene := range genome.Genes {
		existing[connectionKey(gene.Link.InNode.Id, gene.Link.OutNode.Id)] = true
	}
	adj := adjacency(genome)

	for attempt := 0; attempt < maxLinkAttempts; attempt++ {
		source := sources[rng.Intn(len(sources))]
		target := targets[rng.Intn(len(targets))]
		if source.Id == target.Id || existing[connectionKey(source.Id, target.Id)] {
			continue
		}
		if reachable(adj, target.Id, source.Id) {
			continue
		}
		genome.Genes = append(genome.Genes, genetics.NewGeneWithTrait(
			nil,
			rng.Float64()*4-2,
			source,
			target,
			false,
			idGen.NextInnovation(),
			0,
		))
		return true
	}
	return false
}

// connectionKey creates a unique key for a connection between two nodes.
func connectionKey(inID, outID int) int64 {
	return int64(inID)<<32 | int64(outID)
}

func toggleEnable(genome *genetics.Genome, rng *rand.Rand) {
	if len(genome.Genes) == 0 {
		return
	}
	gene := genome.Genes[rng.Intn(len(genome.Genes))]
	gene.IsEnabled = !gene.IsEnabled
}

// ensureOutputsConnected guarantees every output is reachable from an input
// through enabled links, so the phenotype always activates. It re-enables a
// disabled link into the output when one exists and otherwise adds a fresh
// link from a random input.
func ensureOutputsConnected(genome *genetics.Genome, idGen *GenomeIDGenerator, rng *rand.Rand) {
	var inputs []*network.NNode
	for _, node := range genome.Nodes {
		if node.NeuronType == network.InputNeuron || node.NeuronType == network.BiasNeuron {
			inputs = append(inputs, node)
		}
	}
	if len(inputs) == 0 {
		return
	}

	for _, node := range genome.Nodes {
		if node.NeuronType != network.OutputNeuron {
			continue
		}
		live := liveNodes(genome)
		if live[node.Id] {
			continue
		}

		repaired := false
		for _, gene := range genome.Genes {
			if !gene.IsEnabled && gene.Link.OutNode.Id == node.Id && live[gene.Link.InNode.Id] {
				gene.IsEnabled = true
				repaired = true
				break
			}
		}
		if repaired {
			continue
		}

		src := inputs[rng.Intn(len(inputs))]
		var existing *genetics.Gene
		for _, gene := range genome.Genes {
			if gene.Link.InNode.Id == src.Id && gene.Link.OutNode.Id == node.Id {
				existing = gene
				break
			}
		}
		if existing != nil {
			existing.IsEnabled = true
			continue
		}
		genome.Genes = append(genome.Genes, genetics.NewGeneWithTrait(
			nil, rng.Float64()*2-1, src, node, false, idGen.NextInnovation(), 0,
		))
	}
}

// liveNodes returns the nodes reachable from any input over enabled links.
func liveNodes(genome *genetics.Genome) map[int]bool {
	adj := make(map[int][]int)
	for _, gene := range genome.Genes {
		if gene.IsEnabled {
			adj[gene.Link.InNode.Id] = append(adj[gene.Link.InNode.Id], gene.Link.OutNode.Id)
		}
	}
	live := make(map[int]bool)
	var stack []int
	for _, node := range genome.Nodes {
		if node.NeuronType == network.InputNeuron || node.NeuronType == network.BiasNeuron {
			live[node.Id] = true
			stack = append(stack, node.Id)
		}
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range adj[n] {
			if !live[next] {
				live[next] = true
				stack = append(stack, next)
			}
		}
	}
	return live
}

// MutateGenome applies weight, add-node, add-link and toggle mutations with
// the probabilities in opts, then repairs output connectivity.
func MutateGenome(genome *genetics.Genome, opts *neat.Options, idGen *GenomeIDGenerator, rng *rand.Rand) (bool, error) {
	if genome == nil {
		return false, fmt.Errorf("cannot mutate nil genome")
	}

	mutated := false
	if rng.Float64() < opts.MutateLinkWeightsProb {
		mutateWeights(genome, opts.WeightMutPower, rng)
		mutated = true
	}
	if rng.Float64() < opts.MutateAddNodeProb && addNode(genome, idGen, rng) {
		mutated = true
	}
	if rng.Float64() < opts.MutateAddLinkProb && addLink(genome, idGen, rng) {
		mutated = true
	}
	if rng.Float64() < opts.MutateToggleEnableProb {
		toggleEnable(genome, rng)
		mutated = true
	}

	ensureOutputsConnected(genome, idGen, rng)
	return mutated, nil
}

// CloneGenome creates a deep copy of a genome with a new ID.
func CloneGenome(genome *genetics.Genome, newID int) (*genetics.Genome, error) {
	if genome == nil {
		return nil, fmt.Errorf("cannot clone nil genome")
	}

	nodeMap := make(map[int]*network.NNode, len(genome.Nodes))
	nodes := make([]*network.NNode, 0, len(genome.Nodes))
	for _, node := range genome.Nodes {
		n := copyNode(node)
		nodeMap[node.Id] = n
		nodes = append(nodes, n)
	}

	genes := make([]*genetics.Gene, 0, len(genome.Genes))
	for _, gene := range genome.Genes {
		inNode, outNode := nodeMap[gene.Link.InNode.Id], nodeMap[gene.Link.OutNode.Id]
		if inNode == nil || outNode == nil {
			return nil, fmt.Errorf("genome %d: gene %d references a missing node", genome.Id, gene.InnovationNum)
		}
		g := genetics.NewGeneWithTrait(
			nil,
			gene.Link.ConnectionWeight,
			inNode,
			outNode,
			gene.Link.IsRecurrent,
			gene.InnovationNum,
			gene.MutationNum,
		)
		g.IsEnabled = gene.IsEnabled
		genes = append(genes, g)
	}

	return genetics.NewGenome(newID, nil, nodes, genes), nil
}

// GenomeCompatibility calculates the NEAT compatibility distance.
func GenomeCompatibility(g1, g2 *genetics.Genome, opts *neat.Options) float64 {
	if g1 == nil || g2 == nil {
		return math.MaxFloat64
	}

	genes1, genes2 := geneIndex(g1), geneIndex(g2)
	maxInnov := func(idx map[int64]*genetics.Gene) int64 {
		var m int64
		for innov := range idx {
			m = max(m, innov)
		}
		return m
	}
	max1, max2 := maxInnov(genes1), maxInnov(genes2)

	var matching, disjoint, excess int
	weightDiff := 0.0
	for innov, gene1 := range genes1 {
		if gene2, ok := genes2[innov]; ok {
			matching++
			weightDiff += math.Abs(gene1.Link.ConnectionWeight - gene2.Link.ConnectionWeight)
		} else if innov > max2 {
			excess++
		} else {
			disjoint++
		}
	}
	for innov := range genes2 {
		if _, ok := genes1[innov]; ok {
			continue
		}
		if innov > max1 {
			excess++
		} else {
			disjoint++
		}
	}

	n := float64(max(len(g1.Genes), len(g2.Genes)))
	if n < 20 {
		n = 1 // small genomes are not normalised
	}
	avgWeightDiff := 0.0
	if matching > 0 {
		avgWeightDiff = weightDiff / float64(matching)
	}

	return (opts.ExcessCoeff*float64(excess)+opts.DisjointCoeff*float64(disjoint))/n +
		opts.MutdiffCoeff*avgWeightDiff
}
