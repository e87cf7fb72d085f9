// Package main provides CMA-ES optimization for scriptbots food and
// metabolism parameters.
package main

import (
	"math"

	"github.com/pthm-cable/scriptbots/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of optimizable parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Food field
			{Name: "food_intake", Path: "food.intake", Min: 0.0005, Max: 0.01, Default: 0.002},
			{Name: "food_waste", Path: "food.waste", Min: 0.0002, Max: 0.005, Default: 0.001},
			{Name: "food_max", Path: "food.max", Min: 0.5, Max: 3.0, Default: 1.5},
			{Name: "food_add_frequency", Path: "food.add_frequency", Min: 5, Max: 200, Default: 50},
			{Name: "food_initial_fill", Path: "food.initial_fill", Min: 0.02, Max: 0.5, Default: 0.1},
			{Name: "food_transfer", Path: "food.transfer", Min: 0, Max: 0.005, Default: 0.001},
			// Metabolism and reproduction
			{Name: "base_metabolism", Path: "agent.base_metabolism", Min: 0.00005, Max: 0.001, Default: 0.0002},
			{Name: "rep_mult", Path: "agent.rep_mult", Min: 1, Max: 10, Default: 5},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
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
		clamped[i] = math.Min(math.Max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// ApplyToConfig applies parameter values to a Config struct and refreshes
// its derived values.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)

	// Order must match Specs order
	i := 0
	next := func() float64 {
		v := clamped[i]
		i++
		return v
	}

	cfg.Food.Intake = next()
	cfg.Food.Waste = next()
	cfg.Food.Max = next()
	cfg.Food.AddFrequency = max(int(math.Round(next())), 1)
	cfg.Food.InitialFill = next()
	cfg.Food.Transfer = next()

	cfg.Agent.BaseMetabolism = next()
	cfg.Agent.RepMult = next()

	cfg.Refresh()
}

// ExtractFromConfig extracts current parameter values from a Config struct.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return []float64{
		cfg.Food.Intake,
		cfg.Food.Waste,
		cfg.Food.Max,
		float64(cfg.Food.AddFrequency),
		cfg.Food.InitialFill,
		cfg.Food.Transfer,
		cfg.Agent.BaseMetabolism,
		cfg.Agent.RepMult,
	}
}
