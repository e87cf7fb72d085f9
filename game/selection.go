package game

import (
	"log/slog"
	"math"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/scriptbots/systems"
)

// Interest kinds for PositionOfInterest.
const (
	InterestOldest   = 1
	InterestSelected = 2
)

// SelectNearest selects the agent closest to (x, y) and clears every other
// selection. It reports false when the world is empty.
func (w *World) SelectNearest(x, y float32) (ecs.Entity, bool) {
	d := &w.cfg.Derived

	var closest ecs.Entity
	closestDist := float32(math.MaxFloat32)
	found := false

	query := w.agentFilter.Query()
	for query.Next() {
		pos, _, _, _, org, _, _ := query.Get()
		org.Selected = false

		dx, dy := systems.ToroidalDelta(x, y, pos.X, pos.Y, d.WorldW32, d.WorldH32)
		if dist := dx*dx + dy*dy; dist < closestDist {
			closestDist = dist
			closest = query.Entity()
			found = true
		}
	}
	if !found {
		return ecs.Entity{}, false
	}

	org := w.orgMap.Get(closest)
	org.Selected = true
	genome := w.genomeMap.Get(closest)
	body := w.bodyMap.Get(closest)
	slog.Info("agent_selected",
		"id", org.ID,
		"generation", org.Generation,
		"herbivore", genome.Herbivore,
		"health", body.Health,
		"age", body.Age,
		"lineage", org.Lineage,
		"mutations", len(org.Mutations),
	)
	return closest, true
}

// Selected returns the selected agent, if any.
func (w *World) Selected() (ecs.Entity, bool) {
	query := w.agentFilter.Query()
	for query.Next() {
		_, _, _, _, org, _, _ := query.Get()
		if org.Selected {
			e := query.Entity()
			query.Close()
			return e, true
		}
	}
	return ecs.Entity{}, false
}

// PositionOfInterest returns the position of the oldest agent
// (InterestOldest) or the selected agent (InterestSelected). ok is false
// when no agent qualifies.
func (w *World) PositionOfInterest(kind int) (x, y float32, ok bool) {
	switch kind {
	case InterestOldest:
		maxAge := int32(-1)
		query := w.agentFilter.Query()
		for query.Next() {
			pos, _, body, _, _, _, _ := query.Get()
			if body.Age > maxAge {
				maxAge = body.Age
				x, y, ok = pos.X, pos.Y, true
			}
		}
	case InterestSelected:
		if e, found := w.Selected(); found {
			pos := w.posMap.Get(e)
			x, y, ok = pos.X, pos.Y, true
		}
	}
	return x, y, ok
}
