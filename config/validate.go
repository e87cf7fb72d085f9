package config

import "fmt"

// Fallback world geometry used when a config or save file carries
// non-positive dimensions.
const (
	FallbackCellSize = 10
	FallbackWidth    = 800
	FallbackHeight   = 600
)

// Warning describes a field that was replaced with a default.
type Warning struct {
	Field   string
	Value   string
	Default string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s replaced with %s", w.Field, w.Value, w.Default)
}

// Validate checks every field independently and replaces invalid values with
// safe defaults. It returns one Warning per replaced field. Derived values are
// recomputed.
func (c *Config) Validate() []Warning {
	def, err := Default()
	if err != nil {
		// Embedded defaults are compiled in; a parse failure is a build defect
		panic(err)
	}

	v := &validator{}

	v.positiveInt("world.cell_size", &c.World.CellSize, FallbackCellSize)
	v.positiveInt("world.width", &c.World.Width, FallbackWidth)
	v.positiveInt("world.height", &c.World.Height, FallbackHeight)
	if c.World.CellSize > c.World.Width || c.World.CellSize > c.World.Height {
		v.add("world.cell_size", c.World.CellSize, FallbackCellSize)
		c.World.CellSize = FallbackCellSize
	}

	v.positiveFloat("agent.radius", &c.Agent.Radius, def.Agent.Radius)
	v.nonNegativeFloat("agent.speed", &c.Agent.Speed, def.Agent.Speed)
	v.positiveFloat("agent.spike_speed", &c.Agent.SpikeSpeed, def.Agent.SpikeSpeed)
	v.nonNegativeFloat("agent.spike_mult", &c.Agent.SpikeMult, def.Agent.SpikeMult)
	v.nonNegativeInt("agent.babies", &c.Agent.Babies, def.Agent.Babies)
	v.positiveFloat("agent.boost_size_mult", &c.Agent.BoostSizeMult, def.Agent.BoostSizeMult)
	v.nonNegativeFloat("agent.rep_rate_h", &c.Agent.RepRateH, def.Agent.RepRateH)
	v.nonNegativeFloat("agent.rep_rate_c", &c.Agent.RepRateC, def.Agent.RepRateC)
	v.nonNegativeFloat("agent.rep_mult", &c.Agent.RepMult, def.Agent.RepMult)
	v.nonNegativeFloat("agent.base_metabolism", &c.Agent.BaseMetabolism, def.Agent.BaseMetabolism)

	v.positiveFloat("perception.distance", &c.Perception.Distance, def.Perception.Distance)
	v.nonNegativeFloat("perception.grid_cell_size", &c.Perception.GridCellSize, def.Perception.GridCellSize)

	v.nonNegativeFloat("evolution.meta_mut_rate1", &c.Evolution.MetaMutRate1, def.Evolution.MetaMutRate1)
	v.nonNegativeFloat("evolution.meta_mut_rate2", &c.Evolution.MetaMutRate2, def.Evolution.MetaMutRate2)

	v.nonNegativeFloat("food.intake", &c.Food.Intake, def.Food.Intake)
	v.nonNegativeFloat("food.waste", &c.Food.Waste, def.Food.Waste)
	v.positiveFloat("food.max", &c.Food.Max, def.Food.Max)
	v.positiveInt("food.add_frequency", &c.Food.AddFrequency, def.Food.AddFrequency)
	v.nonNegativeFloat("food.transfer", &c.Food.Transfer, def.Food.Transfer)
	v.nonNegativeFloat("food.sharing_distance", &c.Food.SharingDistance, def.Food.SharingDistance)
	v.nonNegativeFloat("food.distribution_radius", &c.Food.DistributionRadius, def.Food.DistributionRadius)
	if c.Food.InitialFill < 0 || c.Food.InitialFill > 1 {
		v.add("food.initial_fill", c.Food.InitialFill, def.Food.InitialFill)
		c.Food.InitialFill = def.Food.InitialFill
	}

	v.nonNegativeInt("simulation.num_bots", &c.Simulation.NumBots, def.Simulation.NumBots)
	v.nonNegativeInt("simulation.random_spawn_epoch_interval", &c.Simulation.RandomSpawnEpochInterval, def.Simulation.RandomSpawnEpochInterval)
	v.nonNegativeInt("simulation.random_spawn_count", &c.Simulation.RandomSpawnCount, def.Simulation.RandomSpawnCount)
	v.nonNegativeInt("simulation.herbivore_repopulation", &c.Simulation.HerbivoreRepopulation, def.Simulation.HerbivoreRepopulation)
	v.nonNegativeInt("simulation.carnivore_repopulation", &c.Simulation.CarnivoreRepopulation, def.Simulation.CarnivoreRepopulation)

	switch c.Neural.Kind {
	case "dwraon", "mlp", "assembly":
	default:
		v.add("neural.kind", c.Neural.Kind, def.Neural.Kind)
		c.Neural.Kind = def.Neural.Kind
	}
	// Sensor and actuator layouts are fixed; other sizes cannot be wired
	if c.Neural.Inputs != def.Neural.Inputs {
		v.add("neural.inputs", c.Neural.Inputs, def.Neural.Inputs)
		c.Neural.Inputs = def.Neural.Inputs
	}
	if c.Neural.Outputs != def.Neural.Outputs {
		v.add("neural.outputs", c.Neural.Outputs, def.Neural.Outputs)
		c.Neural.Outputs = def.Neural.Outputs
	}
	v.positiveInt("neural.size", &c.Neural.Size, def.Neural.Size)
	if c.Neural.Size <= c.Neural.Inputs+c.Neural.Outputs {
		v.add("neural.size", c.Neural.Size, def.Neural.Size)
		c.Neural.Size = def.Neural.Size
	}
	v.positiveInt("neural.connections", &c.Neural.Connections, def.Neural.Connections)
	v.positiveInt("neural.hidden", &c.Neural.Hidden, def.Neural.Hidden)

	v.positiveInt("telemetry.stats_window", &c.Telemetry.StatsWindow, def.Telemetry.StatsWindow)
	v.positiveInt("telemetry.perf_window", &c.Telemetry.PerfWindow, def.Telemetry.PerfWindow)
	v.positiveInt("telemetry.history_interval", &c.Telemetry.HistoryInterval, def.Telemetry.HistoryInterval)
	v.positiveInt("telemetry.history_length", &c.Telemetry.HistoryLength, def.Telemetry.HistoryLength)

	switch c.Storage.Kind {
	case "memory", "file", "sqlite":
	default:
		v.add("storage.kind", c.Storage.Kind, def.Storage.Kind)
		c.Storage.Kind = def.Storage.Kind
	}
	v.nonNegativeInt("storage.autosave_frequency", &c.Storage.AutosaveFrequency, def.Storage.AutosaveFrequency)

	v.positiveInt("server.broadcast_interval", &c.Server.BroadcastInterval, def.Server.BroadcastInterval)

	c.computeDerived()
	return v.warnings
}

type validator struct {
	warnings []Warning
}

func (v *validator) add(field string, value, def any) {
	v.warnings = append(v.warnings, Warning{
		Field:   field,
		Value:   fmt.Sprint(value),
		Default: fmt.Sprint(def),
	})
}

func (v *validator) positiveInt(field string, p *int, def int) {
	if *p <= 0 {
		v.add(field, *p, def)
		*p = def
	}
}

func (v *validator) nonNegativeInt(field string, p *int, def int) {
	if *p < 0 {
		v.add(field, *p, def)
		*p = def
	}
}

func (v *validator) positiveFloat(field string, p *float64, def float64) {
	if !(*p > 0) {
		v.add(field, *p, def)
		*p = def
	}
}

func (v *validator) nonNegativeFloat(field string, p *float64, def float64) {
	if !(*p >= 0) {
		v.add(field, *p, def)
		*p = def
	}
}
