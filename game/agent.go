package game

import (
	"math"
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/scriptbots/components"
	"github.com/pthm-cable/scriptbots/neural"
	"github.com/pthm-cable/scriptbots/systems"
)

// agentSpec is everything needed to create an agent entity.
type agentSpec struct {
	pos     components.Position
	rot     components.Rotation
	body    components.Body
	genome  components.Genome
	org     components.Organism
	motor   components.Motor
	brain   neural.Brain
	parents []uint32 // for lifetime bookkeeping

	// Set when restoring a saved agent
	keepID  bool
	in, out []float32
}

// spawn creates the entity, assigns a fresh id and registers it with the
// grid, the brain table and the lifetime tracker. Must not run inside a query.
func (w *World) spawn(s *agentSpec) ecs.Entity {
	if !s.keepID {
		s.org.ID = w.idCounter
		w.idCounter++
	}

	sensors := components.Sensors{
		In:  make([]float32, systems.NumInputs),
		Out: make([]float32, systems.NumOutputs),
	}
	copy(sensors.In, s.in)
	copy(sensors.Out, s.out)

	e := w.agentMapper.NewEntity(&s.pos, &s.rot, &s.body, &s.genome, &s.org, &s.motor, &sensors)
	w.brains[s.org.ID] = s.brain
	w.grid.Insert(e, s.pos.X, s.pos.Y)

	w.lifetime.Register(s.org.ID, w.step, int(s.org.Generation), s.genome.Herbivore, s.org.Hybrid)
	for _, p := range s.parents {
		w.lifetime.RecordChild(p)
	}
	return e
}

// randomSpec draws a fresh agent with the herbivore axis in [herbLo, herbHi).
func (w *World) randomSpec(herbLo, herbHi float32) agentSpec {
	cfg := w.cfg
	g := systems.RandomGenome(w.rng, herbLo, herbHi)
	return agentSpec{
		pos: components.Position{
			X: w.rng.Float32() * cfg.Derived.WorldW32,
			Y: w.rng.Float32() * cfg.Derived.WorldH32,
		},
		rot:  components.Rotation{Heading: systems.NormalizeAngle(uniform(w.rng, -math.Pi, math.Pi))},
		body: components.Body{Health: 1 + w.rng.Float32()*0.1},
		org: components.Organism{
			RepCounter: systems.RepCounter(w.rng, g.Herbivore, float32(cfg.Agent.RepRateH), float32(cfg.Agent.RepRateC)),
		},
		genome: g,
		brain:  neural.New(w.brainKind, w.rng, w.brainParams),
	}
}

// addRandomAgents creates n random agents with the herbivore axis in
// [herbLo, herbHi).
func (w *World) addRandomAgents(n int, herbLo, herbHi float32) {
	for i := 0; i < n; i++ {
		s := w.randomSpec(herbLo, herbHi)
		w.spawn(&s)
		w.collector.RecordSpawn()
	}
}

// childSpec builds one mutated offspring of the parent entity. mr and mr2 are
// the (possibly boosted) mutation rates for this litter.
func (w *World) childSpec(parent ecs.Entity, mr, mr2 float32) agentSpec {
	cfg := w.cfg
	pos := w.posMap.Get(parent)
	rot := w.rotMap.Get(parent)
	org := w.orgMap.Get(parent)
	genome := w.genomeMap.Get(parent)

	meta := systems.MetaRates{
		Rate1: float32(cfg.Evolution.MetaMutRate1),
		Rate2: float32(cfg.Evolution.MetaMutRate2),
	}
	g, log := systems.MutateGenome(w.rng, genome, mr, mr2, meta)

	// Spawn behind the parent so it does not run over its own young
	r := cfg.Derived.Radius32
	s, c := math.Sincos(float64(rot.Heading))
	x := pos.X - 2*r*float32(c) + uniform(w.rng, -r, r)
	y := pos.Y - 2*r*float32(s) + uniform(w.rng, -r, r)

	spec := agentSpec{
		pos: components.Position{
			X: systems.Wrap(x, cfg.Derived.WorldW32),
			Y: systems.Wrap(y, cfg.Derived.WorldH32),
		},
		rot:  components.Rotation{Heading: systems.NormalizeAngle(uniform(w.rng, -math.Pi, math.Pi))},
		body: components.Body{Health: 1 + w.rng.Float32()*0.1},
		org: components.Organism{
			RepCounter: systems.RepCounter(w.rng, g.Herbivore, float32(cfg.Agent.RepRateH), float32(cfg.Agent.RepRateC)),
			Generation: org.Generation + 1,
			Lineage:    org.Lineage,
		},
		genome:  g,
		parents: []uint32{org.ID},
	}
	for _, entry := range log {
		spec.org.LogMutation(entry)
	}

	brain := w.brains[org.ID].Clone()
	brain.Mutate(w.rng, mr, mr2)
	spec.brain = brain
	return spec
}

// crossoverSpec builds an offspring of two parents. The child is placed at
// a random position like a fresh agent.
func (w *World) crossoverSpec(a, b ecs.Entity) agentSpec {
	cfg := w.cfg
	orgA, orgB := w.orgMap.Get(a), w.orgMap.Get(b)
	g := systems.CrossoverGenome(w.rng, w.genomeMap.Get(a), w.genomeMap.Get(b))

	spec := w.randomSpec(0, 1)
	spec.genome = g
	spec.org = components.Organism{
		RepCounter: systems.RepCounter(w.rng, g.Herbivore, float32(cfg.Agent.RepRateH), float32(cfg.Agent.RepRateC)),
		Generation: min(orgA.Generation, orgB.Generation),
		Hybrid:     true,
		Lineage:    crossLineage(orgA.Lineage, orgB.Lineage),
	}
	spec.brain = w.brains[orgA.ID].Crossover(w.rng, w.brains[orgB.ID])
	spec.parents = []uint32{orgA.ID, orgB.ID}
	return spec
}

func crossLineage(a, b string) string {
	if a == "" && b == "" {
		return ""
	}
	return a + "x" + b
}

func uniform(rng *rand.Rand, lo, hi float32) float32 {
	return lo + rng.Float32()*(hi-lo)
}
