package game

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/scriptbots/config"
	"github.com/pthm-cable/scriptbots/storage"
	"github.com/pthm-cable/scriptbots/systems"
)

// newTestWorld builds a small world. mutate may adjust the config before
// the world is created.
func newTestWorld(t *testing.T, bots int, mutate func(*config.Config)) *World {
	t.Helper()
	cfg := config.MustDefault()
	cfg.World.Width = 600
	cfg.World.Height = 400
	cfg.World.CellSize = 10
	cfg.Simulation.NumBots = bots
	cfg.Neural.Size = 30
	cfg.Storage.SaveDir = t.TempDir()
	if mutate != nil {
		mutate(cfg)
	}
	cfg.Refresh()

	w, err := New(cfg, Options{Seed: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { w.Close() })
	return w
}

// place spawns an agent with the given herbivore axis at (x, y).
func place(w *World, herb, x, y, heading float32) ecs.Entity {
	s := w.randomSpec(herb, herb)
	s.pos.X, s.pos.Y = x, y
	s.rot.Heading = heading
	return w.spawn(&s)
}

func TestNewPopulatesWorld(t *testing.T) {
	w := newTestWorld(t, 40, nil)

	if got := w.NumAgents(); got != 40 {
		t.Fatalf("NumAgents = %d, want 40", got)
	}
	if fw, fh := w.FoodDims(); fw != 60 || fh != 40 {
		t.Errorf("FoodDims = %dx%d, want 60x40", fw, fh)
	}
	if w.FoodCoverage() <= 0 {
		t.Error("no initial food")
	}
	if !w.Closed() {
		t.Error("world should start closed")
	}

	seen := make(map[uint32]bool)
	for _, a := range w.Agents() {
		if seen[a.ID] {
			t.Fatalf("duplicate id %d", a.ID)
		}
		seen[a.ID] = true
		if a.Health < 1 || a.Health > 1.1 {
			t.Errorf("agent %d health = %v", a.ID, a.Health)
		}
	}
}

func TestUpdateKeepsInvariants(t *testing.T) {
	w := newTestWorld(t, 80, func(c *config.Config) {
		c.Simulation.InitialClosed = false
	})
	d := w.Config().Derived

	for i := 0; i < 300; i++ {
		w.Update()

		query := w.agentFilter.Query()
		for query.Next() {
			pos, rot, body, genome, _, _, sensors := query.Get()
			if pos.X < 0 || pos.X >= d.WorldW32 || pos.Y < 0 || pos.Y >= d.WorldH32 {
				t.Fatalf("tick %d: position (%v, %v) outside world", i, pos.X, pos.Y)
			}
			if rot.Heading <= -math.Pi || rot.Heading > math.Pi {
				t.Fatalf("tick %d: heading %v", i, rot.Heading)
			}
			if body.Health <= 0 || body.Health > 2 {
				t.Fatalf("tick %d: living agent health %v", i, body.Health)
			}
			if body.Spike < 0 || body.Spike > 1 {
				t.Fatalf("tick %d: spike %v", i, body.Spike)
			}
			if genome.MutRate1 < systems.MinMutRate1 || genome.MutRate2 < systems.MinMutRate2 {
				t.Fatalf("tick %d: rates below floor: %v %v", i, genome.MutRate1, genome.MutRate2)
			}
			for _, v := range sensors.In {
				if v < 0 || v > 1 {
					t.Fatalf("tick %d: input %v outside [0,1]", i, v)
				}
			}
			for _, v := range sensors.Out {
				if v < 0 || v > 1 {
					t.Fatalf("tick %d: output %v outside [0,1]", i, v)
				}
			}
		}
	}

	if w.Tick() != 300 || w.Step() != 300 {
		t.Errorf("tick = %d, step = %d, want 300", w.Tick(), w.Step())
	}
	if w.grid.Len() != w.NumAgents() {
		t.Errorf("grid holds %d entries for %d agents", w.grid.Len(), w.NumAgents())
	}
	if len(w.brains) != w.NumAgents() {
		t.Errorf("%d brains for %d agents", len(w.brains), w.NumAgents())
	}
}

func TestOpenWorldRefillsPopulation(t *testing.T) {
	w := newTestWorld(t, 10, func(c *config.Config) {
		c.Simulation.InitialClosed = false
	})
	for _, a := range w.Agents()[:5] {
		w.removeAgent(a.Entity, a.ID)
	}

	w.Update()
	if got := w.NumAgents(); got != 6 {
		t.Errorf("NumAgents after one open tick = %d, want 6", got)
	}

	w.SetClosed(true)
	w.Update()
	if got := w.NumAgents(); got != 6 {
		t.Errorf("closed world grew to %d", got)
	}
}

func TestEpochRollover(t *testing.T) {
	w := newTestWorld(t, 0, nil)
	w.AddHerbivores(5)
	w.tick = EpochLength - 1

	w.Update()

	if w.Epoch() != 1 || w.Tick() != 0 {
		t.Fatalf("epoch = %d, tick = %d, want 1, 0", w.Epoch(), w.Tick())
	}
	herb, carn := w.Counts()
	want := w.Config().Simulation.CarnivoreRepopulation
	if herb != 5 || carn != want {
		t.Errorf("counts = %d/%d, want 5/%d", herb, carn, want)
	}
}

func TestAutosaveOnEpoch(t *testing.T) {
	store := storage.NewMemoryStore()
	cfg := config.MustDefault()
	cfg.World.Width, cfg.World.Height = 300, 300
	cfg.Simulation.NumBots = 5
	cfg.Storage.AutosaveFrequency = 1
	cfg.Refresh()

	w, err := New(cfg, Options{Seed: 3, Store: store})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	w.tick = EpochLength - 1
	w.Update()

	snaps, err := store.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 1 || snaps[0].Name != "autosave_epoch_1.sav" {
		t.Fatalf("snapshots = %+v", snaps)
	}
}

func TestHistorySampling(t *testing.T) {
	w := newTestWorld(t, 0, func(c *config.Config) {
		c.Telemetry.HistoryInterval = 10
		c.Telemetry.HistoryLength = 3
	})
	w.AddHerbivores(2)
	w.AddCarnivores(1)
	w.Run(10)

	herb, carn := w.History()
	if len(herb) != 3 || herb[2] != 2 || carn[2] != 1 || herb[1] != 0 {
		t.Errorf("history = %v / %v", herb, carn)
	}
}

func TestReproduce(t *testing.T) {
	w := newTestWorld(t, 0, nil)
	parent := place(w, 0.7, 5, 5, 0)
	org := w.orgMap.Get(parent)
	org.Generation = 4
	org.Lineage = "L"
	parentID := org.ID

	w.reproduce(parent)

	babies := w.Config().Agent.Babies
	if got := w.NumAgents(); got != 1+babies {
		t.Fatalf("NumAgents = %d, want %d", got, 1+babies)
	}
	if w.bodyMap.Get(parent).Indicator != 30 {
		t.Error("parent indicator not set")
	}
	if ls := w.lifetime.Get(parentID); ls == nil || ls.Children != babies {
		t.Errorf("lifetime children = %+v", ls)
	}

	d := w.Config().Derived
	for _, a := range w.Agents() {
		if a.ID == parentID {
			continue
		}
		if a.Generation != 5 || a.Lineage != "L" || a.Hybrid {
			t.Errorf("child = gen %d lineage %q hybrid %v", a.Generation, a.Lineage, a.Hybrid)
		}
		// Spawned behind a parent at the origin, so the child wraps
		if a.X < 0 || a.X >= d.WorldW32 || a.Y < 0 || a.Y >= d.WorldH32 {
			t.Errorf("child position (%v, %v) outside world", a.X, a.Y)
		}
		if a.MutRate1 < systems.MinMutRate1 || a.MutRate2 < systems.MinMutRate2 {
			t.Errorf("child rates %v %v below floor", a.MutRate1, a.MutRate2)
		}
	}
}

func TestCrossoverProvenance(t *testing.T) {
	w := newTestWorld(t, 0, nil)
	a := place(w, 0.2, 100, 100, 0)
	b := place(w, 0.8, 200, 100, 0)
	w.orgMap.Get(a).Generation = 3
	w.orgMap.Get(a).Lineage = "a"
	w.orgMap.Get(b).Generation = 5
	w.orgMap.Get(b).Lineage = "b"

	spec := w.crossoverSpec(a, b)
	w.spawn(&spec)

	if spec.org.Generation != 3 || !spec.org.Hybrid || spec.org.Lineage != "axb" {
		t.Errorf("child = gen %d hybrid %v lineage %q", spec.org.Generation, spec.org.Hybrid, spec.org.Lineage)
	}
	if h := spec.genome.Herbivore; h != 0.2 && h != 0.8 {
		t.Errorf("herbivore %v not inherited from either parent", h)
	}
	if w.NumAgents() != 3 {
		t.Errorf("NumAgents = %d, want 3", w.NumAgents())
	}
}

func TestCrossLineage(t *testing.T) {
	tests := []struct {
		a, b, want string
	}{
		{"", "", ""},
		{"x", "", "xx"},
		{"p", "q", "pxq"},
	}
	for _, tt := range tests {
		if got := crossLineage(tt.a, tt.b); got != tt.want {
			t.Errorf("crossLineage(%q, %q) = %q, want %q", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestAddCrossoverFallsBackToRandom(t *testing.T) {
	w := newTestWorld(t, 0, nil)
	w.AddCrossoverAgents(1)
	if w.NumAgents() != 1 {
		t.Fatalf("NumAgents = %d, want 1", w.NumAgents())
	}
	if w.Agents()[0].Hybrid {
		t.Error("fallback agent should not be hybrid")
	}

	w.AddRandomAgents(1)
	w.AddCrossoverAgents(2)
	hybrids := 0
	for _, a := range w.Agents() {
		if a.Hybrid {
			hybrids++
		}
	}
	if hybrids != 2 {
		t.Errorf("hybrids = %d, want 2", hybrids)
	}
}

func TestAddByDiet(t *testing.T) {
	w := newTestWorld(t, 0, nil)
	w.AddHerbivores(4)
	w.AddCarnivores(3)
	for _, a := range w.Agents() {
		if a.Herbivore >= 0.1 && a.Herbivore < 0.9 {
			t.Errorf("herbivore axis %v outside both ranges", a.Herbivore)
		}
	}
	if h, c := w.Counts(); h != 4 || c != 3 {
		t.Errorf("Counts = %d/%d, want 4/3", h, c)
	}
}

func TestSelectAndPositionOfInterest(t *testing.T) {
	w := newTestWorld(t, 0, nil)
	if _, ok := w.SelectNearest(0, 0); ok {
		t.Fatal("selected in empty world")
	}

	a := place(w, 0.5, 100, 100, 0)
	b := place(w, 0.5, 300, 200, 0)
	w.bodyMap.Get(b).Age = 7

	// (590, 395) is nearest to a only across the wrap
	if e, ok := w.SelectNearest(590, 395); !ok || e != a {
		t.Errorf("SelectNearest picked %v, want %v", e, a)
	}
	if e, ok := w.SelectNearest(290, 210); !ok || e != b {
		t.Errorf("SelectNearest picked %v, want %v", e, b)
	}
	if w.orgMap.Get(a).Selected {
		t.Error("previous selection not cleared")
	}

	if x, y, ok := w.PositionOfInterest(InterestSelected); !ok || x != 300 || y != 200 {
		t.Errorf("selected interest = (%v, %v, %v)", x, y, ok)
	}
	if x, y, ok := w.PositionOfInterest(InterestOldest); !ok || x != 300 || y != 200 {
		t.Errorf("oldest interest = (%v, %v, %v)", x, y, ok)
	}
	if _, _, ok := w.PositionOfInterest(0); ok {
		t.Error("unknown interest kind reported a position")
	}
}

func TestCommands(t *testing.T) {
	w := newTestWorld(t, 0, nil)
	w.Enqueue(Command{Cmd: CmdAddHerbivores, N: 3})
	w.Enqueue(Command{Cmd: CmdAddCarnivores})
	w.Enqueue(Command{Cmd: CmdToggleClosed})
	w.Update()

	if h, c := w.Counts(); h != 3 || c != 1 {
		t.Errorf("Counts = %d/%d, want 3/1", h, c)
	}
	if w.Closed() {
		t.Error("toggle_closed not applied")
	}

	if err := w.Apply(Command{Cmd: "explode"}); err == nil {
		t.Error("unknown command accepted")
	}

	if err := w.Apply(Command{Cmd: CmdSave, Name: "manual.sav"}); err != nil {
		t.Fatalf("save command: %v", err)
	}
	if err := w.LoadFromFile("manual.sav"); err != nil {
		t.Fatalf("loading saved command output: %v", err)
	}
}

func TestRandomHeadingRange(t *testing.T) {
	w := newTestWorld(t, 0, nil)
	for i := 0; i < 2000; i++ {
		s := w.randomSpec(0, 1)
		if h := s.rot.Heading; h <= -math.Pi || h > math.Pi {
			t.Fatalf("heading %v outside (-Pi, Pi]", h)
		}
	}
}

func TestCommandBounds(t *testing.T) {
	w := newTestWorld(t, 0, nil)
	outside := t.TempDir()

	names := []string{
		filepath.Join(outside, "evil.sav"),
		"../evil.sav",
		`..\evil.sav`,
		"..",
	}
	for _, name := range names {
		if err := w.Apply(Command{Cmd: CmdSave, Name: name}); err == nil {
			t.Errorf("save to %q accepted", name)
		}
	}
	if entries, _ := os.ReadDir(outside); len(entries) != 0 {
		t.Errorf("files written outside save dir: %v", entries)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(w.Config().Storage.SaveDir), "evil.sav")); err == nil {
		t.Error("save escaped the save directory")
	}

	if err := w.Apply(Command{Cmd: CmdAddRandom, N: 1_000_000_000}); err != nil {
		t.Fatal(err)
	}
	if got := w.NumAgents(); got != MaxCommandAgents {
		t.Errorf("NumAgents = %d, want cap %d", got, MaxCommandAgents)
	}
}

func TestReset(t *testing.T) {
	w := newTestWorld(t, 12, nil)
	maxID := uint32(0)
	for _, a := range w.Agents() {
		maxID = max(maxID, a.ID)
	}
	w.Reset()

	if w.NumAgents() != 12 {
		t.Fatalf("NumAgents = %d, want 12", w.NumAgents())
	}
	for _, a := range w.Agents() {
		if a.ID <= maxID {
			t.Errorf("id %d reused after reset", a.ID)
		}
	}
	if w.grid.Len() != 12 || len(w.brains) != 12 {
		t.Errorf("grid %d, brains %d after reset", w.grid.Len(), len(w.brains))
	}
}

func TestSanitizeOutputs(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))
	out := []float32{nan, inf, -inf, -0.5, 0.25, 1.5}
	sanitizeOutputs(out)
	want := []float32{0, 0, 0, 0, 0.25, 1}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("out[%d] = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestThinkParallel(t *testing.T) {
	w := newTestWorld(t, parallelThreshold*2, nil)
	w.syncGrid()
	w.snapshot()
	w.sense()
	w.parallel.think()

	if !w.parallel.running {
		t.Fatal("worker pool not started above threshold")
	}
	for _, s := range w.parallel.snapshots {
		for _, v := range s.Out {
			if !(v >= 0 && v <= 1) {
				t.Fatalf("agent %d output %v", s.ID, v)
			}
		}
	}

	w.parallel.stopWorkers()
	if w.parallel.running {
		t.Error("workers still running after stop")
	}
}
