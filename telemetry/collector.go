package telemetry

// Collector accumulates events within windows of ticks and produces WindowStats.
type Collector struct {
	windowTicks int64

	// Current window tracking
	windowStartTick int64

	// Event counters for current window
	herbBirths      int
	carnBirths      int
	crossoverBirths int
	randomSpawns    int
	herbDeaths      int
	carnDeaths      int
	starved         int
	hits            int
	kills           int
	foodShared      float64
	carcassFood     float64
}

// NewCollector creates a new stats collector flushing every windowTicks
// simulation steps.
func NewCollector(windowTicks int) *Collector {
	if windowTicks < 1 {
		windowTicks = 1
	}
	return &Collector{windowTicks: int64(windowTicks)}
}

// RecordBirth records an agent born from one or two parents.
func (c *Collector) RecordBirth(herbivore, crossover bool) {
	if herbivore {
		c.herbBirths++
	} else {
		c.carnBirths++
	}
	if crossover {
		c.crossoverBirths++
	}
}

// RecordSpawn records a randomly created agent.
func (c *Collector) RecordSpawn() {
	c.randomSpawns++
}

// RecordDeath records a death. killed is true when the agent was spiked on
// the tick it died.
func (c *Collector) RecordDeath(herbivore, killed bool) {
	if herbivore {
		c.herbDeaths++
	} else {
		c.carnDeaths++
	}
	if killed {
		c.kills++
	} else {
		c.starved++
	}
}

// RecordHit records a successful spike strike.
func (c *Collector) RecordHit() {
	c.hits++
}

// RecordShare records health handed to another agent.
func (c *Collector) RecordShare(amount float32) {
	c.foodShared += float64(amount)
}

// RecordCarcass records health distributed from a killed agent.
func (c *Collector) RecordCarcass(amount float32) {
	c.carcassFood += float64(amount)
}

// ShouldFlush returns true if enough steps have passed to flush the window.
func (c *Collector) ShouldFlush(step int64) bool {
	return step-c.windowStartTick >= c.windowTicks
}

// Sample is the population state observed at the end of a window.
type Sample struct {
	Epoch        int
	Herbivores   int
	Carnivores   int
	Hybrids      int
	Herbivore    []float64 // herbivore axis per agent
	Health       []float64
	Generation   []float64
	TotalFood    float64
	FoodCoverage float64
}

// Flush produces a WindowStats and resets counters for the next window.
func (c *Collector) Flush(step int64, s Sample) WindowStats {
	var killRate float64
	if c.hits > 0 {
		killRate = float64(c.kills) / float64(c.hits)
	}

	herb := Summarize(s.Herbivore)
	health := Summarize(s.Health)
	gen := Summarize(s.Generation)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   step,
		Epoch:           s.Epoch,

		Herbivores: s.Herbivores,
		Carnivores: s.Carnivores,
		Hybrids:    s.Hybrids,

		HerbBirths:      c.herbBirths,
		CarnBirths:      c.carnBirths,
		CrossoverBirths: c.crossoverBirths,
		RandomSpawns:    c.randomSpawns,
		HerbDeaths:      c.herbDeaths,
		CarnDeaths:      c.carnDeaths,
		Starved:         c.starved,

		Hits:     c.hits,
		Kills:    c.kills,
		KillRate: killRate,

		FoodShared:   c.foodShared,
		CarcassFood:  c.carcassFood,
		TotalFood:    s.TotalFood,
		FoodCoverage: s.FoodCoverage,

		HerbMean: herb.Mean,
		HerbStd:  herb.Std,
		HerbP10:  herb.P10,
		HerbP50:  herb.P50,
		HerbP90:  herb.P90,

		HealthMean: health.Mean,
		HealthP10:  health.P10,
		HealthP50:  health.P50,
		HealthP90:  health.P90,

		GenerationMean: gen.Mean,
		GenerationMax:  gen.Max,
	}

	// Reset for next window
	c.windowStartTick = step
	c.herbBirths = 0
	c.carnBirths = 0
	c.crossoverBirths = 0
	c.randomSpawns = 0
	c.herbDeaths = 0
	c.carnDeaths = 0
	c.starved = 0
	c.hits = 0
	c.kills = 0
	c.foodShared = 0
	c.carcassFood = 0

	return stats
}

// WindowTicks returns the number of steps per window.
func (c *Collector) WindowTicks() int64 {
	return c.windowTicks
}
