package game

import (
	"math"

	"github.com/pthm-cable/scriptbots/systems"
)

// syncGrid re-registers every agent at its current position and clears the
// per-tick Spiked flag.
func (w *World) syncGrid() {
	query := w.agentFilter.Query()
	for query.Next() {
		pos, _, body, _, _, _, _ := query.Get()
		w.grid.Move(query.Entity(), pos.X, pos.Y)
		body.Spiked = false
	}
}

// snapshot captures every agent's state for this tick.
func (w *World) snapshot() {
	snaps := w.parallel.snapshots[:0]
	clear(w.index)

	query := w.agentFilter.Query()
	for query.Next() {
		pos, rot, body, genome, org, motor, sensors := query.Get()
		snaps = append(snaps, agentSnapshot{
			Entity:   query.Entity(),
			ID:       org.ID,
			X:        pos.X,
			Y:        pos.Y,
			Heading:  rot.Heading,
			Health:   body.Health,
			Red:      body.Red,
			Green:    body.Green,
			Blue:     body.Blue,
			WheelMax: max(abs32(motor.Left), abs32(motor.Right)),
			Shout:    motor.Shout,
			Genome:   *genome,
			In:       sensors.In,
			Out:      sensors.Out,
			Brain:    w.brains[org.ID],
		})
	}

	for i := range snaps {
		w.index[snaps[i].Entity] = i
	}
	w.parallel.snapshots = snaps
}

// sense fills each agent's input vector from its surroundings.
func (w *World) sense() {
	dist := w.cfg.Derived.Distance32
	snaps := w.parallel.snapshots

	for i := range snaps {
		s := &snaps[i]
		w.neighbors = w.grid.QueryRadiusInto(w.neighbors[:0], s.X, s.Y, dist, s.Entity)

		w.observed = w.observed[:0]
		for _, n := range w.neighbors {
			j, ok := w.index[n.E]
			if !ok {
				continue
			}
			o := &snaps[j]
			w.observed = append(w.observed, systems.Observed{
				DX:       n.DX,
				DY:       n.DY,
				Dist:     float32(math.Sqrt(float64(n.DistSq))),
				WheelMax: o.WheelMax,
				Shout:    o.Shout,
				Health:   o.Health,
				Red:      o.Red,
				Green:    o.Green,
				Blue:     o.Blue,
			})
		}

		self := systems.SensorSelf{
			Heading:  s.Heading,
			Health:   s.Health,
			FoodFrac: w.foodFrac(s.X, s.Y),
			Tick:     w.tick,
			Genome:   &s.Genome,
		}
		systems.ComputeInputs(s.In, self, w.observed, dist)
	}
}

// foodCell returns the index of the food cell under (x, y).
func (w *World) foodCell(x, y float32) int {
	cs := w.cfg.Derived.CellSize32
	cx := min(max(int(x/cs), 0), w.foodW-1)
	cy := min(max(int(y/cs), 0), w.foodH-1)
	return cy*w.foodW + cx
}

func (w *World) foodFrac(x, y float32) float32 {
	fm := w.cfg.Derived.FoodMax32
	if len(w.food) == 0 || fm <= 0 {
		return 0
	}
	return w.food[w.foodCell(x, y)] / fm
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
