package game

import (
	"log/slog"
	"math"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/scriptbots/components"
	"github.com/pthm-cable/scriptbots/systems"
)

// ageAgents increments the age of every agent.
func (w *World) ageAgents() {
	query := w.agentFilter.Query()
	for query.Next() {
		_, _, body, _, _, _, _ := query.Get()
		body.Age++
	}
}

// recordHistory shifts both history buffers left and appends the current
// population counts.
func (w *World) recordHistory() {
	herb, carn := w.Counts()
	n := len(w.histHerb)
	if n == 0 {
		return
	}
	copy(w.histHerb, w.histHerb[1:])
	copy(w.histCarn, w.histCarn[1:])
	w.histHerb[n-1] = herb
	w.histCarn[n-1] = carn
}

// rollEpoch starts a new epoch, injecting fresh agents and repopulating an
// extinct class.
func (w *World) rollEpoch() {
	sim := &w.cfg.Simulation
	w.tick = 0
	w.epoch++

	if sim.RandomSpawnEpochInterval > 0 && w.epoch%sim.RandomSpawnEpochInterval == 0 {
		w.addRandomAgents(sim.RandomSpawnCount, 0, 1)
	}

	herb, carn := w.Counts()
	if herb == 0 {
		w.addRandomAgents(sim.HerbivoreRepopulation, 0.9, 1)
	}
	if carn == 0 {
		w.addRandomAgents(sim.CarnivoreRepopulation, 0, 0.1)
	}

	slog.Info("epoch", "epoch", w.epoch, "herbivores", herb, "carnivores", carn, "step", w.step)
	w.LogWorldState()
}

// addFood sets one random cell to the food cap.
func (w *World) addFood() {
	if len(w.food) == 0 {
		return
	}
	w.food[w.rng.Intn(len(w.food))] = w.cfg.Derived.FoodMax32
}

// metabolize charges the base metabolic cost and decays indicators.
func (w *World) metabolize() {
	base := float32(w.cfg.Agent.BaseMetabolism)
	boostCost := base * float32(w.cfg.Agent.BoostSizeMult) * 1.3

	query := w.agentFilter.Query()
	for query.Next() {
		_, _, body, _, org, _, _ := query.Get()
		if body.Boost {
			body.Health -= boostCost
		} else {
			body.Health -= base
		}
		body.ClampHealth()
		w.lifetime.UpdateHealth(org.ID, body.Health)

		if body.Indicator > 0 {
			body.Indicator--
		}
	}
}

type deadAgent struct {
	entity ecs.Entity
	id     uint32
	x, y   float32
	age    int32
	herb   bool
	spiked bool
}

// resolveDeaths distributes the bodies of agents killed this tick among the
// living agents nearby, then removes every dead agent.
func (w *World) resolveDeaths() {
	w.dead = w.dead[:0]
	query := w.agentFilter.Query()
	for query.Next() {
		pos, _, body, genome, org, _, _ := query.Get()
		if body.Health > 0 {
			continue
		}
		w.dead = append(w.dead, deadAgent{
			entity: query.Entity(),
			id:     org.ID,
			x:      pos.X,
			y:      pos.Y,
			age:    body.Age,
			herb:   components.IsHerbivore(genome.Herbivore),
			spiked: body.Spiked,
		})
	}
	if len(w.dead) == 0 {
		return
	}

	radius := float32(w.cfg.Food.DistributionRadius)
	repMult := float32(w.cfg.Agent.RepMult)

	for _, d := range w.dead {
		if !d.spiked {
			continue
		}
		w.neighbors = w.grid.QueryRadiusInto(w.neighbors[:0], d.x, d.y, radius, d.entity)

		// Only living agents strictly inside the radius share the body
		living := w.neighbors[:0]
		for _, n := range w.neighbors {
			if n.DistSq < radius*radius && w.bodyMap.Get(n.E).Health > 0 {
				living = append(living, n)
			}
		}
		if len(living) == 0 {
			continue
		}

		ageMult := float32(1)
		if d.age < 5 {
			ageMult = systems.Clamp01(float32(d.age) * 0.2)
		}
		share := float32(1/math.Pow(float64(len(living)), 1.25)) * ageMult

		for _, n := range living {
			body := w.bodyMap.Get(n.E)
			org := w.orgMap.Get(n.E)
			carn := 1 - w.genomeMap.Get(n.E).Herbivore
			amount := 5 * carn * carn * share

			body.Health += amount
			body.ClampHealth()
			org.RepCounter -= repMult * amount
			body.InitEvent(30, 1, 1, 1)

			w.collector.RecordCarcass(amount)
			w.lifetime.RecordReceive(org.ID, amount)
		}
	}

	for _, d := range w.dead {
		w.collector.RecordDeath(d.herb, d.spiked)
		if attacker, ok := w.attackers[d.entity]; ok && d.spiked {
			w.lifetime.RecordKill(attacker)
		}
		w.removeAgent(d.entity, d.id)
	}
}

// removeAgent drops an agent from the grid, the brain table, the lifetime
// tracker and the ECS world.
func (w *World) removeAgent(e ecs.Entity, id uint32) {
	w.grid.Remove(e)
	delete(w.brains, id)
	delete(w.attackers, e)
	w.lifetime.Remove(id)
	w.ecs.RemoveEntity(e)
}

// reproduceAll lets every eligible agent give birth. Parents are collected
// first and litters spawned after the query.
func (w *World) reproduceAll() {
	if w.tick%ReproInterval != 0 {
		return
	}

	w.parents = w.parents[:0]
	query := w.agentFilter.Query()
	for query.Next() {
		_, _, body, _, org, _, _ := query.Get()
		if org.RepCounter < 0 && body.Health > ReproHealth && w.rng.Float64() < ReproChance {
			w.parents = append(w.parents, query.Entity())
		}
	}

	for _, p := range w.parents {
		w.reproduce(p)

		genome := w.genomeMap.Get(p)
		w.orgMap.Get(p).RepCounter = systems.RepCounter(w.rng, genome.Herbivore,
			float32(w.cfg.Agent.RepRateH), float32(w.cfg.Agent.RepRateC))
	}
}

// reproduce spawns a litter of mutated offspring of the parent.
func (w *World) reproduce(parent ecs.Entity) {
	genome := w.genomeMap.Get(parent)
	mr, mr2 := systems.BoostRates(w.rng, genome.MutRate1, genome.MutRate2)

	w.bodyMap.Get(parent).InitEvent(30, 0, 0.8, 0)

	for i := 0; i < w.cfg.Agent.Babies; i++ {
		// Component pointers do not survive NewEntity
		spec := w.childSpec(parent, mr, mr2)
		w.spawn(&spec)
		w.collector.RecordBirth(components.IsHerbivore(spec.genome.Herbivore), false)
	}
}

// pickCrossoverParents draws two random agents, each replaced while scanning
// the population by an older agent with probability 0.1.
func (w *World) pickCrossoverParents() (a, b ecs.Entity, ok bool) {
	w.parents = w.parents[:0]
	query := w.agentFilter.Query()
	for query.Next() {
		w.parents = append(w.parents, query.Entity())
	}
	n := len(w.parents)
	if n < 2 {
		return ecs.Entity{}, ecs.Entity{}, false
	}

	i1, i2 := w.rng.Intn(n), w.rng.Intn(n)
	for i, e := range w.parents {
		age := w.bodyMap.Get(e).Age
		if age > w.bodyMap.Get(w.parents[i1]).Age && w.rng.Float64() < 0.1 {
			i1 = i
		}
		if age > w.bodyMap.Get(w.parents[i2]).Age && w.rng.Float64() < 0.1 {
			i2 = i
		}
	}
	return w.parents[i1], w.parents[i2], true
}

// addCrossover creates one crossover offspring, or a random agent when the
// population is too small to pick two parents.
func (w *World) addCrossover() {
	a, b, ok := w.pickCrossoverParents()
	if !ok {
		w.addRandomAgents(1, 0, 1)
		return
	}
	spec := w.crossoverSpec(a, b)
	w.spawn(&spec)
	w.collector.RecordBirth(components.IsHerbivore(spec.genome.Herbivore), true)
}

// maintain keeps an open world populated.
func (w *World) maintain() {
	if w.closed {
		return
	}
	if w.NumAgents() < w.cfg.Simulation.NumBots {
		w.addRandomAgents(1, 0, 1)
	}
	if w.tick%MaintainInterval == 0 {
		if w.rng.Float64() < 0.5 {
			w.addRandomAgents(1, 0, 1)
		} else {
			w.addCrossover()
		}
	}
}
