package main

import "github.com/pthm-cable/flappy/neural"

// ParamSpec defines a single tunable heuristic parameter.
type ParamSpec struct {
	Name string
	Min  float64
	Max  float64
}

// ParamVector holds the tunable parameters, in Heuristic.Params order.
type ParamVector struct {
	Specs []ParamSpec
	base  neural.Heuristic
}

// NewParamVector creates the parameter set for a heuristic flying in a
// playfield of the given height.
func NewParamVector(base neural.Heuristic, screenH float64) *ParamVector {
	return &ParamVector{
		base: base,
		Specs: []ParamSpec{
			{Name: "margin", Min: 0, Max: 150},
			{Name: "clearance", Min: 0, Max: 300},
			{Name: "hover", Min: screenH / 4, Max: screenH - base.Size},
			{Name: "lookahead", Min: 0, Max: 800},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the base heuristic's parameters.
func (pv *ParamVector) DefaultVector() []float64 {
	return pv.base.Params()
}

// Normalize converts raw parameter values to the [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// Heuristic returns the base heuristic with raw (clamped) values applied.
func (pv *ParamVector) Heuristic(raw []float64) neural.Heuristic {
	return pv.base.WithParams(pv.Clamp(raw))
}
