package neural

import (
	"github.com/yaricom/goNEAT/v4/neat"

	"github.com/pthm-cable/flappy/config"
)

// BrainInputs is the number of sensor inputs: y, distance to the upper
// column, distance to the lower column, horizontal distance to the pipe.
const BrainInputs = 4

// BrainOutputs is the number of outputs; the single output is the jump activation.
const BrainOutputs = 1

// Options maps the neat section of the config onto goNEAT options.
func Options(c config.NEATConfig) *neat.Options {
	return &neat.Options{
		WeightMutPower: c.WeightMutPower,

		MutateAddNodeProb:      c.MutateAddNodeProb,
		MutateAddLinkProb:      c.MutateAddLinkProb,
		MutateToggleEnableProb: c.MutateToggleEnableProb,
		MutateLinkWeightsProb:  c.MutateLinkWeightsProb,
		MutateOnlyProb:         c.MutateOnlyProb,
		MateOnlyProb:           c.MateOnlyProb,

		CompatThreshold: c.CompatThreshold,
		DisjointCoeff:   c.DisjointCoeff,
		ExcessCoeff:     c.ExcessCoeff,
		MutdiffCoeff:    c.MutdiffCoeff,

		DropOffAge:     c.DropOffAge,
		SurvivalThresh: c.SurvivalThresh,

		PopSize: c.PopulationSize,
	}
}
