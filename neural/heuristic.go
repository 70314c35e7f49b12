package neural

import "fmt"

// Heuristic is a scripted decider. Near a pipe it jumps when the bird's
// lower edge comes within Margin of the lower column and there is room
// above; away from pipes it holds the bird around the Hover line.
type Heuristic struct {
	Size      float64 // bird size
	Margin    float64 // clearance kept above the lower column
	Clearance float64 // room needed below the upper column before jumping
	Hover     float64 // y the bird falls back to between pipes
	Lookahead float64 // horizontal distance at which a pipe counts as near
}

// DefaultHeuristic returns parameters that clear most random pipe streams
// at the default geometry.
func DefaultHeuristic() Heuristic {
	return Heuristic{
		Size:      50,
		Margin:    20,
		Clearance: 70,
		Hover:     560,
		Lookahead: 260,
	}
}

// Decide implements components.Decider.
func (h Heuristic) Decide(in []float64) ([]float64, error) {
	if len(in) != BrainInputs {
		return nil, fmt.Errorf("expected %d inputs, got %d", BrainInputs, len(in))
	}
	y, toUpper, toLower, dx := in[0], in[1], in[2], in[3]

	jump := false
	if dx <= h.Lookahead {
		jump = toLower <= h.Size+h.Margin && toUpper > h.Clearance
	} else {
		jump = y > h.Hover
	}
	if jump {
		return []float64{1}, nil
	}
	return []float64{0}, nil
}

// Params returns the tunable parameters as a vector for optimisers.
func (h Heuristic) Params() []float64 {
	return []float64{h.Margin, h.Clearance, h.Hover, h.Lookahead}
}

// WithParams returns a copy with the tunable parameters replaced.
func (h Heuristic) WithParams(x []float64) Heuristic {
	h.Margin, h.Clearance, h.Hover, h.Lookahead = x[0], x[1], x[2], x[3]
	return h
}
