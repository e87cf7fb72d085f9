// Package game owns the simulated world: the agent population, the food
// field and the per-tick pipeline that advances them.
package game

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/scriptbots/components"
	"github.com/pthm-cable/scriptbots/config"
	"github.com/pthm-cable/scriptbots/neural"
	"github.com/pthm-cable/scriptbots/storage"
	"github.com/pthm-cable/scriptbots/systems"
	"github.com/pthm-cable/scriptbots/telemetry"
)

// Fixed simulation cadences.
const (
	EpochLength      = 10000 // ticks per epoch
	AgingInterval    = 100
	ReproInterval    = 15
	CombatInterval   = 2
	MaintainInterval = 100
	ReproHealth      = 0.65 // minimum health to reproduce
	ReproChance      = 0.1
	MaxAgentsOnLoad  = 10000
	AgentsAfterClamp = 1000
)

// Options configures a World beyond the simulation config.
type Options struct {
	Seed      int64
	LogStats  bool   // log telemetry windows via slog
	OutputDir string // CSV and parquet output (empty = disabled)

	// Store receives autosaves and bookmark snapshots. Nil disables both.
	Store storage.Store

	// StatsCallback is called after each telemetry window is flushed.
	StatsCallback func(telemetry.WindowStats)
}

// World holds the complete simulation state.
type World struct {
	cfg     *config.Config
	rng     *rand.Rand
	rngSeed int64

	ecs *ecs.World

	// Entity mapper and filter over the seven agent components
	agentMapper *ecs.Map7[
		components.Position,
		components.Rotation,
		components.Body,
		components.Genome,
		components.Organism,
		components.Motor,
		components.Sensors,
	]
	agentFilter *ecs.Filter7[
		components.Position,
		components.Rotation,
		components.Body,
		components.Genome,
		components.Organism,
		components.Motor,
		components.Sensors,
	]

	// Individual component mappers for lookups
	posMap    *ecs.Map1[components.Position]
	rotMap    *ecs.Map1[components.Rotation]
	bodyMap   *ecs.Map1[components.Body]
	genomeMap *ecs.Map1[components.Genome]
	orgMap    *ecs.Map1[components.Organism]
	motorMap  *ecs.Map1[components.Motor]

	// Brain storage (per agent by ID)
	brains      map[uint32]neural.Brain
	brainKind   neural.Kind
	brainParams neural.Params

	grid *systems.SpatialGrid

	// Food field, row-major FoodW x FoodH
	food         []float32
	foodW, foodH int

	// Population history, one sample per history interval
	histHerb []int
	histCarn []int

	// Counters
	tick      int
	epoch     int
	step      int64 // total ticks since construction or load
	idCounter uint32
	closed    bool

	// Per-tick working set
	parallel  *parallelState
	index     map[ecs.Entity]int
	observed  []systems.Observed
	neighbors []systems.Neighbor
	attackers map[ecs.Entity]uint32 // last attacker of each agent spiked this tick
	dead      []deadAgent
	parents   []ecs.Entity

	// Telemetry
	collector     *telemetry.Collector
	perf          *telemetry.PerfCollector
	output        *telemetry.OutputManager
	bookmarks     *telemetry.BookmarkDetector
	lifetime      *telemetry.LifetimeTracker
	logStats      bool
	statsCallback func(telemetry.WindowStats)

	store storage.Store

	// Commands queued by other goroutines, applied between ticks
	cmdMu    sync.Mutex
	commands []Command
}

// New creates a world populated with cfg.Simulation.NumBots random agents
// and an initial food fill.
func New(cfg *config.Config, opts Options) (*World, error) {
	if cfg == nil {
		var err error
		if cfg, err = config.Default(); err != nil {
			return nil, err
		}
	}
	kind, err := neural.ParseKind(cfg.Neural.Kind)
	if err != nil {
		return nil, err
	}

	world := ecs.NewWorld()
	w := &World{
		cfg:         cfg,
		rng:         rand.New(rand.NewSource(opts.Seed)),
		rngSeed:     opts.Seed,
		ecs:         world,
		brains:      make(map[uint32]neural.Brain),
		brainKind:   kind,
		brainParams: neural.ParamsFromConfig(cfg.Neural),
		agentMapper: ecs.NewMap7[
			components.Position,
			components.Rotation,
			components.Body,
			components.Genome,
			components.Organism,
			components.Motor,
			components.Sensors,
		](world),
		agentFilter: ecs.NewFilter7[
			components.Position,
			components.Rotation,
			components.Body,
			components.Genome,
			components.Organism,
			components.Motor,
			components.Sensors,
		](world),
		posMap:        ecs.NewMap1[components.Position](world),
		rotMap:        ecs.NewMap1[components.Rotation](world),
		bodyMap:       ecs.NewMap1[components.Body](world),
		genomeMap:     ecs.NewMap1[components.Genome](world),
		orgMap:        ecs.NewMap1[components.Organism](world),
		motorMap:      ecs.NewMap1[components.Motor](world),
		closed:        cfg.Simulation.InitialClosed,
		parallel:      newParallelState(),
		index:         make(map[ecs.Entity]int),
		attackers:     make(map[ecs.Entity]uint32),
		collector:     telemetry.NewCollector(cfg.Telemetry.StatsWindow),
		perf:          telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow),
		bookmarks:     telemetry.NewBookmarkDetector(10),
		lifetime:      telemetry.NewLifetimeTracker(),
		logStats:      opts.LogStats,
		statsCallback: opts.StatsCallback,
		store:         opts.Store,
	}

	if opts.OutputDir != "" {
		om, err := telemetry.NewOutputManager(opts.OutputDir)
		if err != nil {
			return nil, fmt.Errorf("creating output manager: %w", err)
		}
		if err := om.WriteConfig(cfg); err != nil {
			slog.Error("failed to write config", "error", err)
		}
		w.output = om
	}

	w.resetGeometry()
	w.fillInitialFood()
	w.addRandomAgents(cfg.Simulation.NumBots, 0, 1)

	return w, nil
}

// resetGeometry sizes the food field, history and spatial grid from cfg.
func (w *World) resetGeometry() {
	d := &w.cfg.Derived
	w.foodW, w.foodH = d.FoodW, d.FoodH
	w.food = make([]float32, w.foodW*w.foodH)

	n := w.cfg.Telemetry.HistoryLength
	w.histHerb = make([]int, n)
	w.histCarn = make([]int, n)

	w.grid = systems.NewSpatialGrid(d.WorldW32, d.WorldH32, d.GridCellSize)
}

// fillInitialFood sets a fraction of random cells to the food cap.
// Cells may be drawn twice, so the filled share is at most the fraction.
func (w *World) fillInitialFood() {
	n := int(float64(len(w.food)) * w.cfg.Food.InitialFill)
	for i := 0; i < n; i++ {
		w.food[w.rng.Intn(len(w.food))] = w.cfg.Derived.FoodMax32
	}
}

// Close stops the worker pool and flushes output files.
func (w *World) Close() error {
	w.parallel.stopWorkers()
	return w.output.Close()
}

// Config returns the active configuration.
func (w *World) Config() *config.Config {
	return w.cfg
}

// Store returns the snapshot store, or nil.
func (w *World) Store() storage.Store {
	return w.store
}

// RNGSeed returns the seed the world was created with.
func (w *World) RNGSeed() int64 {
	return w.rngSeed
}

// autosave serializes the world into the store.
func (w *World) autosave() {
	if w.store == nil {
		return
	}
	name := fmt.Sprintf("autosave_epoch_%d.sav", w.epoch)
	if err := w.SaveToStore(context.Background(), name); err != nil {
		slog.Error("autosave failed", "name", name, "error", err)
		return
	}
	slog.Info("autosave", "name", name, "epoch", w.epoch)
}
