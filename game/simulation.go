package game

import (
	"github.com/pthm-cable/scriptbots/telemetry"
)

// Update advances the world by one tick.
func (w *World) Update() {
	w.applyCommands()

	w.perf.StartTick()

	w.perf.StartPhase(telemetry.PhaseHousekeeping)
	w.tick++
	w.step++
	w.housekeeping()

	w.perf.StartPhase(telemetry.PhaseSpatialGrid)
	w.syncGrid()
	clear(w.attackers)

	w.perf.StartPhase(telemetry.PhaseSense)
	w.snapshot()
	w.sense()

	w.perf.StartPhase(telemetry.PhaseThink)
	w.parallel.think()

	w.perf.StartPhase(telemetry.PhaseAct)
	w.applyOutputs()
	w.move()
	w.graze()
	w.share()
	if w.tick%CombatInterval == 0 {
		w.combat()
	}

	w.perf.StartPhase(telemetry.PhaseMetabolism)
	w.metabolize()

	w.perf.StartPhase(telemetry.PhaseDeath)
	w.resolveDeaths()

	w.perf.StartPhase(telemetry.PhaseReproduction)
	w.reproduceAll()

	w.perf.StartPhase(telemetry.PhaseMaintenance)
	w.maintain()

	w.perf.StartPhase(telemetry.PhaseTelemetry)
	w.flushTelemetry()

	w.perf.EndTick()
}

// housekeeping runs the periodic stages that precede the agent pipeline:
// aging, history sampling, epoch rollover, autosave and food replenishment.
func (w *World) housekeeping() {
	if w.tick%AgingInterval == 0 {
		w.ageAgents()
	}
	if hi := w.cfg.Telemetry.HistoryInterval; hi > 0 && w.tick%hi == 0 {
		w.recordHistory()
	}
	if w.tick >= EpochLength {
		w.rollEpoch()
	}
	if freq := w.cfg.Storage.AutosaveFrequency; freq > 0 && w.tick == 0 && w.epoch > 0 && w.epoch%freq == 0 {
		w.autosave()
	}
	if af := w.cfg.Food.AddFrequency; af > 0 && w.tick%af == 0 {
		w.addFood()
	}
}

// Run advances the world by n ticks.
func (w *World) Run(n int) {
	for i := 0; i < n; i++ {
		w.Update()
	}
}
