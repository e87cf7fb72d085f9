package game

import (
	"cmp"
	"slices"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/scriptbots/components"
)

// AgentView is a read-only copy of one agent's state.
type AgentView struct {
	Entity ecs.Entity `json:"-"`

	ID         uint32  `json:"id"`
	X          float32 `json:"x"`
	Y          float32 `json:"y"`
	Heading    float32 `json:"heading"`
	Health     float32 `json:"health"`
	Spike      float32 `json:"spike"`
	Boost      bool    `json:"boost"`
	Age        int32   `json:"age"`
	Red        float32 `json:"r"`
	Green      float32 `json:"g"`
	Blue       float32 `json:"b"`
	Left       float32 `json:"wl"`
	Right      float32 `json:"wr"`
	Shout      float32 `json:"shout"`
	Give       float32 `json:"give"`
	DFood      float32 `json:"dfood"`
	Indicator  float32 `json:"indicator"`
	IndicatorR float32 `json:"ir"`
	IndicatorG float32 `json:"ig"`
	IndicatorB float32 `json:"ib"`

	Herbivore  float32  `json:"herbivore"`
	MutRate1   float32  `json:"mutrate1"`
	MutRate2   float32  `json:"mutrate2"`
	RepCounter float32  `json:"repcounter"`
	Generation int32    `json:"gen"`
	Hybrid     bool     `json:"hybrid"`
	Selected   bool     `json:"selected"`
	Lineage    string   `json:"lineage,omitempty"`
	Mutations  []string `json:"mutations,omitempty"`
}

func makeView(e ecs.Entity, pos *components.Position, rot *components.Rotation, body *components.Body,
	genome *components.Genome, org *components.Organism, motor *components.Motor) AgentView {
	return AgentView{
		Entity:     e,
		ID:         org.ID,
		X:          pos.X,
		Y:          pos.Y,
		Heading:    rot.Heading,
		Health:     body.Health,
		Spike:      body.Spike,
		Boost:      body.Boost,
		Age:        body.Age,
		Red:        body.Red,
		Green:      body.Green,
		Blue:       body.Blue,
		Left:       motor.Left,
		Right:      motor.Right,
		Shout:      motor.Shout,
		Give:       motor.Give,
		DFood:      body.DFood,
		Indicator:  body.Indicator,
		IndicatorR: body.IndicatorR,
		IndicatorG: body.IndicatorG,
		IndicatorB: body.IndicatorB,
		Herbivore:  genome.Herbivore,
		MutRate1:   genome.MutRate1,
		MutRate2:   genome.MutRate2,
		RepCounter: org.RepCounter,
		Generation: org.Generation,
		Hybrid:     org.Hybrid,
		Selected:   org.Selected,
		Lineage:    org.Lineage,
		Mutations:  slices.Clone(org.Mutations),
	}
}

// Agents returns a view of every agent, ordered by id.
func (w *World) Agents() []AgentView {
	views := make([]AgentView, 0, w.NumAgents())
	query := w.agentFilter.Query()
	for query.Next() {
		pos, rot, body, genome, org, motor, _ := query.Get()
		views = append(views, makeView(query.Entity(), pos, rot, body, genome, org, motor))
	}
	slices.SortFunc(views, func(a, b AgentView) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return views
}

// Agent returns a view of a single agent.
func (w *World) Agent(e ecs.Entity) (AgentView, bool) {
	if !w.ecs.Alive(e) || !w.agentMapper.HasAll(e) {
		return AgentView{}, false
	}
	pos, rot, body, genome, org, motor, _ := w.agentMapper.Get(e)
	return makeView(e, pos, rot, body, genome, org, motor), true
}

// Genome returns a copy of an agent's genome.
func (w *World) Genome(e ecs.Entity) (components.Genome, bool) {
	if !w.ecs.Alive(e) || !w.genomeMap.HasAll(e) {
		return components.Genome{}, false
	}
	return *w.genomeMap.Get(e), true
}

// NumAgents returns the population size.
func (w *World) NumAgents() int {
	query := w.agentFilter.Query()
	n := query.Count()
	query.Close()
	return n
}

// Counts returns the number of herbivores (herbivore axis > 0.5) and
// carnivores.
func (w *World) Counts() (herbivores, carnivores int) {
	query := w.agentFilter.Query()
	for query.Next() {
		_, _, _, genome, _, _, _ := query.Get()
		if components.IsHerbivore(genome.Herbivore) {
			herbivores++
		} else {
			carnivores++
		}
	}
	return herbivores, carnivores
}

// FoodAt returns the food in the cell containing world position (x, y).
func (w *World) FoodAt(x, y float32) float32 {
	if len(w.food) == 0 {
		return 0
	}
	return w.food[w.foodCell(x, y)]
}

// FoodCell returns the food in cell (cx, cy), or 0 outside the grid.
func (w *World) FoodCell(cx, cy int) float32 {
	if cx < 0 || cy < 0 || cx >= w.foodW || cy >= w.foodH {
		return 0
	}
	return w.food[cy*w.foodW+cx]
}

// FoodDims returns the food grid size in cells.
func (w *World) FoodDims() (fw, fh int) {
	return w.foodW, w.foodH
}

// Food returns a copy of the row-major food grid.
func (w *World) Food() []float32 {
	return slices.Clone(w.food)
}

// TotalFood returns the sum of all food cells.
func (w *World) TotalFood() float64 {
	var sum float64
	for _, f := range w.food {
		sum += float64(f)
	}
	return sum
}

// FoodCoverage returns the percentage of cells holding any food.
func (w *World) FoodCoverage() float64 {
	if len(w.food) == 0 {
		return 0
	}
	n := 0
	for _, f := range w.food {
		if f > 0 {
			n++
		}
	}
	return 100 * float64(n) / float64(len(w.food))
}

// History returns copies of the herbivore and carnivore history buffers,
// oldest sample first.
func (w *World) History() (herbivores, carnivores []int) {
	return slices.Clone(w.histHerb), slices.Clone(w.histCarn)
}

// Tick returns the tick within the current epoch.
func (w *World) Tick() int { return w.tick }

// Epoch returns the current epoch.
func (w *World) Epoch() int { return w.epoch }

// Step returns the number of ticks run since construction or the last load.
func (w *World) Step() int64 { return w.step }

// Closed reports whether the world is closed to automatic spawning.
func (w *World) Closed() bool { return w.closed }
