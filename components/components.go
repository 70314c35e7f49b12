// Package components defines ECS components for the simulation.
package components

// Decider maps a fixed-size sensor vector to output activations.
// The first output is read as the jump activation. Neural networks,
// scripted heuristics and keyboard adapters all satisfy it.
type Decider interface {
	Decide(inputs []float64) ([]float64, error)
}

// DeciderFunc adapts a plain function to Decider.
type DeciderFunc func(inputs []float64) ([]float64, error)

// Decide calls f.
func (f DeciderFunc) Decide(inputs []float64) ([]float64, error) {
	return f(inputs)
}

// Brain pairs a bird with the decision function steering it.
// The decider is owned by the caller; the bird only borrows it.
type Brain struct {
	Decider Decider
}

// Lineage ties a bird back to the population member it evaluates.
type Lineage struct {
	MemberID int
	Fitness  *float64 // accumulator owned by the evolutionary side
}

// Plumage is the colour a renderer uses for the bird.
type Plumage struct {
	R, G, B uint8
}
