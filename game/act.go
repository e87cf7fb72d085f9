package game

import (
	"github.com/pthm-cable/scriptbots/systems"
)

// applyOutputs copies brain outputs into body and motor state and moves the
// spike toward its target.
func (w *World) applyOutputs() {
	spikeSpeed := float32(w.cfg.Agent.SpikeSpeed)

	for i := range w.parallel.snapshots {
		snap := &w.parallel.snapshots[i]
		body := w.bodyMap.Get(snap.Entity)
		motor := w.motorMap.Get(snap.Entity)
		out := snap.Out

		body.Red = out[systems.OutRed]
		body.Green = out[systems.OutGreen]
		body.Blue = out[systems.OutBlue]
		motor.Left = out[systems.OutLeft]
		motor.Right = out[systems.OutRight]
		body.Boost = out[systems.OutBoost] > 0.5
		motor.Shout = out[systems.OutShout]
		motor.Give = out[systems.OutGive]

		body.Spike = systems.GrowSpike(body.Spike, out[systems.OutSpike], spikeSpeed)
	}
}

// move drives every agent and relocates it in the grid.
func (w *World) move() {
	d := &w.cfg.Derived
	params := systems.DriveParams{
		Radius:    d.Radius32,
		Speed:     float32(w.cfg.Agent.Speed),
		BoostMult: float32(w.cfg.Agent.BoostSizeMult),
		Width:     d.WorldW32,
		Height:    d.WorldH32,
	}

	for i := range w.parallel.snapshots {
		e := w.parallel.snapshots[i].Entity
		pos := w.posMap.Get(e)
		rot := w.rotMap.Get(e)
		body := w.bodyMap.Get(e)
		motor := w.motorMap.Get(e)

		pos.X, pos.Y, rot.Heading = systems.Drive(pos.X, pos.Y, rot.Heading, motor.Left, motor.Right, body.Boost, params)
		w.grid.Move(e, pos.X, pos.Y)
	}
}

// graze lets every agent eat from the food cell under it.
func (w *World) graze() {
	if len(w.food) == 0 {
		return
	}
	intake := float32(w.cfg.Food.Intake)
	waste := float32(w.cfg.Food.Waste)

	for i := range w.parallel.snapshots {
		snap := &w.parallel.snapshots[i]
		pos := w.posMap.Get(snap.Entity)
		body := w.bodyMap.Get(snap.Entity)
		genome := w.genomeMap.Get(snap.Entity)
		motor := w.motorMap.Get(snap.Entity)
		org := w.orgMap.Get(snap.Entity)

		cell := w.foodCell(pos.X, pos.Y)
		gain, eaten := systems.Intake(w.food[cell], body.Health, genome.Herbivore, motor.Left, motor.Right, intake, waste)
		if eaten == 0 {
			continue
		}
		body.Health += gain
		body.ClampHealth()
		org.RepCounter -= 3 * gain
		w.food[cell] = max(w.food[cell]-eaten, 0)
		w.lifetime.RecordGraze(org.ID, gain)
	}
}

// share transfers health from every giving agent to the others in range.
// The giver pays for every agent in range; only those below full health gain.
func (w *World) share() {
	transfer := float32(w.cfg.Food.Transfer)
	radius := float32(w.cfg.Food.SharingDistance)

	for i := range w.parallel.snapshots {
		w.bodyMap.Get(w.parallel.snapshots[i].Entity).DFood = 0
	}

	for i := range w.parallel.snapshots {
		snap := &w.parallel.snapshots[i]
		giver := w.bodyMap.Get(snap.Entity)
		if w.motorMap.Get(snap.Entity).Give <= 0.5 {
			continue
		}
		pos := w.posMap.Get(snap.Entity)

		w.neighbors = w.grid.QueryRadiusInto(w.neighbors[:0], pos.X, pos.Y, radius, snap.Entity)
		for _, n := range w.neighbors {
			if n.DistSq >= radius*radius {
				continue
			}
			recv := w.bodyMap.Get(n.E)
			if recv.Health < 2 {
				recv.Health = min(recv.Health+transfer, 2)
				w.collector.RecordShare(transfer)
				w.lifetime.RecordShare(snap.ID, w.orgMap.Get(n.E).ID, transfer)
			}
			giver.Health = max(giver.Health-transfer, 0)
			recv.DFood += transfer
			giver.DFood -= transfer
		}
	}
}

// combat resolves spike strikes. An attacker lands at most one hit per tick
// since a hit retracts its spike.
func (w *World) combat() {
	params := systems.StrikeParams{
		Radius:    w.cfg.Derived.Radius32,
		SpikeMult: float32(w.cfg.Agent.SpikeMult),
		BoostMult: float32(w.cfg.Agent.BoostSizeMult),
	}
	reach := 2 * params.Radius

	for i := range w.parallel.snapshots {
		snap := &w.parallel.snapshots[i]
		e := snap.Entity
		body := w.bodyMap.Get(e)
		motor := w.motorMap.Get(e)
		genome := w.genomeMap.Get(e)
		if !systems.CanAttack(genome.Herbivore, body.Spike, motor.Left, motor.Right) {
			continue
		}
		pos := w.posMap.Get(e)
		rot := w.rotMap.Get(e)

		w.neighbors = w.grid.QueryRadiusInto(w.neighbors[:0], pos.X, pos.Y, reach, e)
		for _, n := range w.neighbors {
			dmg, ok := systems.StrikeDamage(rot.Heading, n.DX, n.DY, body.Spike, motor.Left, motor.Right, body.Boost, params)
			if !ok {
				continue
			}

			victim := w.bodyMap.Get(n.E)
			victim.Health -= dmg
			victim.ClampHealth()
			victim.Spiked = true
			if systems.FromBehind(rot.Heading, w.rotMap.Get(n.E).Heading) {
				victim.Spike = 0
			}

			body.ClampHealth()
			body.Spike = 0
			body.InitEvent(40*dmg, 1, 1, 0)

			w.attackers[n.E] = snap.ID
			w.collector.RecordHit()
			w.lifetime.RecordHit(snap.ID)
			break
		}
	}
}
