package telemetry

import (
	"log/slog"
	"slices"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Phase identifies one stage of the tick pipeline.
type Phase int

// Pipeline phases, in the order Update runs them.
const (
	PhaseHousekeeping Phase = iota // aging, history, epoch, autosave, food
	PhaseSpatialGrid
	PhaseSense
	PhaseThink
	PhaseAct
	PhaseMetabolism
	PhaseDeath
	PhaseReproduction
	PhaseMaintenance
	PhaseTelemetry
	numPhases
)

var phaseNames = [numPhases]string{
	"housekeeping", "spatial_grid", "sense", "think", "act",
	"metabolism", "death", "reproduction", "maintenance", "telemetry",
}

func (p Phase) String() string {
	if p < 0 || p >= numPhases {
		return "unknown"
	}
	return phaseNames[p]
}

// tickTiming is the wall time of one tick split by phase.
type tickTiming struct {
	total  time.Duration
	phases [numPhases]time.Duration
}

// PerfCollector keeps per-phase tick timings over a ring of recent ticks.
type PerfCollector struct {
	ring  []tickTiming
	next  int
	count int

	cur        tickTiming
	tickStart  time.Time
	phaseStart time.Time
	phase      Phase
	inPhase    bool

	// now is the clock; tests replace it
	now func() time.Time
}

// NewPerfCollector creates a collector averaging over the last window ticks.
func NewPerfCollector(window int) *PerfCollector {
	if window < 1 {
		window = 60
	}
	return &PerfCollector{
		ring: make([]tickTiming, window),
		now:  time.Now,
	}
}

// StartTick begins timing a tick.
func (p *PerfCollector) StartTick() {
	p.cur = tickTiming{}
	p.tickStart = p.now()
	p.inPhase = false
}

// StartPhase closes the running phase, if any, and opens ph.
func (p *PerfCollector) StartPhase(ph Phase) {
	t := p.now()
	p.closePhase(t)
	p.phase, p.phaseStart, p.inPhase = ph, t, true
}

func (p *PerfCollector) closePhase(t time.Time) {
	if p.inPhase {
		p.cur.phases[p.phase] += t.Sub(p.phaseStart)
	}
}

// EndTick closes the running phase and stores the tick in the ring.
func (p *PerfCollector) EndTick() {
	t := p.now()
	p.closePhase(t)
	p.inPhase = false
	p.cur.total = t.Sub(p.tickStart)

	p.ring[p.next] = p.cur
	p.next = (p.next + 1) % len(p.ring)
	p.count = min(p.count+1, len(p.ring))
}

// PerfStats summarizes the ticks currently in the ring.
type PerfStats struct {
	Ticks          int
	AvgTick        time.Duration
	MinTick        time.Duration
	MaxTick        time.Duration
	P95Tick        time.Duration
	TicksPerSecond float64

	// Mean time per phase and its share of the mean tick, in percent
	PhaseAvg [numPhases]time.Duration
	PhasePct [numPhases]float64
}

// Stats aggregates the ring.
func (p *PerfCollector) Stats() PerfStats {
	var s PerfStats
	s.Ticks = p.count
	if p.count == 0 {
		return s
	}

	totals := make([]float64, p.count)
	var sums [numPhases]time.Duration
	for i, t := range p.ring[:p.count] {
		totals[i] = float64(t.total)
		for ph, d := range t.phases {
			sums[ph] += d
		}
	}
	slices.Sort(totals)

	n := time.Duration(p.count)
	s.MinTick = time.Duration(totals[0])
	s.MaxTick = time.Duration(totals[len(totals)-1])
	s.AvgTick = time.Duration(stat.Mean(totals, nil))
	s.P95Tick = time.Duration(stat.Quantile(0.95, stat.Empirical, totals, nil))
	if s.AvgTick > 0 {
		s.TicksPerSecond = float64(time.Second) / float64(s.AvgTick)
	}
	for ph := range sums {
		s.PhaseAvg[ph] = sums[ph] / n
		if s.AvgTick > 0 {
			s.PhasePct[ph] = 100 * float64(s.PhaseAvg[ph]) / float64(s.AvgTick)
		}
	}
	return s
}

// LogStats logs the summary, skipping phases under 0.1% of the tick.
func (s PerfStats) LogStats() {
	slog.Info("perf", "perf", s)
}

// LogValue implements slog.LogValuer.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_tick_us", s.AvgTick.Microseconds()),
		slog.Int64("p95_tick_us", s.P95Tick.Microseconds()),
		slog.Int64("max_tick_us", s.MaxTick.Microseconds()),
		slog.Int("ticks_per_sec", int(s.TicksPerSecond)),
	}
	for ph, pct := range s.PhasePct {
		if pct > 0.1 {
			attrs = append(attrs, slog.Float64(Phase(ph).String()+"_pct", float64(int(pct*10))/10))
		}
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is one perf.csv row.
type PerfStatsCSV struct {
	WindowEnd       int64   `csv:"window_end"`
	AvgTickUS       int64   `csv:"avg_tick_us"`
	MinTickUS       int64   `csv:"min_tick_us"`
	MaxTickUS       int64   `csv:"max_tick_us"`
	P95TickUS       int64   `csv:"p95_tick_us"`
	TicksPerSec     float64 `csv:"ticks_per_sec"`
	HousekeepingPct float64 `csv:"housekeeping_pct"`
	SpatialGridPct  float64 `csv:"spatial_grid_pct"`
	SensePct        float64 `csv:"sense_pct"`
	ThinkPct        float64 `csv:"think_pct"`
	ActPct          float64 `csv:"act_pct"`
	MetabolismPct   float64 `csv:"metabolism_pct"`
	DeathPct        float64 `csv:"death_pct"`
	ReproductionPct float64 `csv:"reproduction_pct"`
	MaintenancePct  float64 `csv:"maintenance_pct"`
	TelemetryPct    float64 `csv:"telemetry_pct"`
}

// ToCSV flattens the summary for the window ending at windowEnd.
func (s PerfStats) ToCSV(windowEnd int64) PerfStatsCSV {
	pct := s.PhasePct
	return PerfStatsCSV{
		WindowEnd:       windowEnd,
		AvgTickUS:       s.AvgTick.Microseconds(),
		MinTickUS:       s.MinTick.Microseconds(),
		MaxTickUS:       s.MaxTick.Microseconds(),
		P95TickUS:       s.P95Tick.Microseconds(),
		TicksPerSec:     s.TicksPerSecond,
		HousekeepingPct: pct[PhaseHousekeeping],
		SpatialGridPct:  pct[PhaseSpatialGrid],
		SensePct:        pct[PhaseSense],
		ThinkPct:        pct[PhaseThink],
		ActPct:          pct[PhaseAct],
		MetabolismPct:   pct[PhaseMetabolism],
		DeathPct:        pct[PhaseDeath],
		ReproductionPct: pct[PhaseReproduction],
		MaintenancePct:  pct[PhaseMaintenance],
		TelemetryPct:    pct[PhaseTelemetry],
	}
}
