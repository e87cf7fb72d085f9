package game

import (
	"log/slog"

	"github.com/pthm-cable/scriptbots/components"
)

// LogWorldState logs a one-line population summary.
func (w *World) LogWorldState() {
	var (
		herb, carn, hybrids int
		healthSum           float64
		minGen, maxGen      int32
		oldest              int32
		n                   int
	)
	minGen = -1

	query := w.agentFilter.Query()
	for query.Next() {
		_, _, body, genome, org, _, _ := query.Get()
		n++
		if components.IsHerbivore(genome.Herbivore) {
			herb++
		} else {
			carn++
		}
		if org.Hybrid {
			hybrids++
		}
		healthSum += float64(body.Health)
		if minGen < 0 || org.Generation < minGen {
			minGen = org.Generation
		}
		maxGen = max(maxGen, org.Generation)
		oldest = max(oldest, body.Age)
	}

	var avgHealth float64
	if n > 0 {
		avgHealth = healthSum / float64(n)
	}
	grid := w.grid.Stats()

	slog.Info("world_state",
		"epoch", w.epoch,
		"tick", w.tick,
		"step", w.step,
		"agents", n,
		"herbivores", herb,
		"carnivores", carn,
		"hybrids", hybrids,
		"health_avg", avgHealth,
		"generation_min", max(minGen, 0),
		"generation_max", maxGen,
		"oldest_age", oldest,
		"food_total", w.TotalFood(),
		"food_coverage", w.FoodCoverage(),
		"closed", w.closed,
		"grid_occupied", grid.OccupiedCells,
		"grid_max_cell", grid.MaxAgentsInCell,
	)
}
