package game

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pthm-cable/scriptbots/codec"
	"github.com/pthm-cable/scriptbots/components"
	"github.com/pthm-cable/scriptbots/config"
	"github.com/pthm-cable/scriptbots/neural"
	"github.com/pthm-cable/scriptbots/systems"
)

// Save file format.
const (
	saveMagic   = "SCRIPTBOTS_SAVE"
	SaveVersion = 1
)

// Bounds applied while decoding a save stream.
const (
	maxSavedHistory   = 1 << 16
	maxSavedFoodCells = 1 << 24
	maxSavedVector    = 1024
	maxSavedBrain     = 16 << 20
	maxSavedMutations = 1024
	maxSavedString    = 1024
)

// Fallback geometry for corrupt save headers.
const (
	fallbackCellSize = 10
	fallbackWidth    = 800
	fallbackHeight   = 600
)

var (
	// ErrBadHeader is returned when a stream does not start with the save magic.
	ErrBadHeader = errors.New("not a scriptbots save")
	// ErrUnsupportedVersion is returned for save versions this build cannot read.
	ErrUnsupportedVersion = errors.New("unsupported save version")
)

// WriteTo serializes the world to out.
func (w *World) WriteTo(out io.Writer) (int64, error) {
	cw := codec.NewWriter(out)
	cfg := w.cfg

	cw.Raw([]byte(saveMagic))
	cw.Uint32(SaveVersion)

	// Config scalars needed to reinterpret the rest of the stream
	cw.Int32(int32(cfg.World.Width))
	cw.Int32(int32(cfg.World.Height))
	cw.Int32(int32(cfg.World.CellSize))
	cw.Float32(cfg.Derived.FoodMax32)
	cw.Float32(cfg.Derived.Radius32)
	cw.Int32(int32(cfg.Neural.Inputs))
	cw.Int32(int32(cfg.Neural.Outputs))
	cw.Int32(int32(components.NumEyes))
	cw.Uint8(uint8(w.brainKind))

	cw.Int32(int32(w.tick))
	cw.Int32(int32(w.epoch))
	cw.Uint32(w.idCounter)
	cw.Bool(w.closed)

	cw.Int32(int32(w.foodW))
	cw.Int32(int32(w.foodH))
	for _, f := range w.food {
		cw.Float32(f)
	}

	cw.Uint32(uint32(len(w.histHerb)))
	for i := range w.histHerb {
		cw.Int32(int32(w.histHerb[i]))
		cw.Int32(int32(w.histCarn[i]))
	}

	cw.Uint32(uint32(w.NumAgents()))
	query := w.agentFilter.Query()
	for query.Next() {
		pos, rot, body, genome, org, motor, sensors := query.Get()
		writeAgent(cw, pos, rot, body, genome, org, motor, sensors, w.brains[org.ID])
	}

	if err := cw.Err(); err != nil {
		return cw.N(), fmt.Errorf("writing save: %w", err)
	}
	return cw.N(), nil
}

func writeAgent(cw *codec.Writer, pos *components.Position, rot *components.Rotation, body *components.Body,
	g *components.Genome, org *components.Organism, motor *components.Motor, sensors *components.Sensors, brain neural.Brain) {
	cw.Uint32(org.ID)
	cw.Float32(pos.X)
	cw.Float32(pos.Y)
	cw.Float32(body.Health)
	cw.Float32(rot.Heading)
	cw.Float32(body.Red)
	cw.Float32(body.Green)
	cw.Float32(body.Blue)
	cw.Float32(motor.Left)
	cw.Float32(motor.Right)
	cw.Bool(body.Boost)
	cw.Float32(body.Spike)
	cw.Int32(body.Age)
	cw.Bool(body.Spiked)
	cw.Float32s(sensors.In)
	cw.Float32s(sensors.Out)
	cw.Float32(org.RepCounter)
	cw.Int32(org.Generation)
	cw.Bool(org.Hybrid)
	cw.Float32(g.Clock1)
	cw.Float32(g.Clock2)
	cw.Float32(motor.Shout)
	cw.Float32(motor.Give)
	cw.Float32(body.Indicator)
	cw.Float32(body.IndicatorR)
	cw.Float32(body.IndicatorG)
	cw.Float32(body.IndicatorB)
	cw.Float32(body.DFood)
	cw.Bool(org.Selected)
	cw.Float32(g.Herbivore)
	cw.Float32(g.MutRate1)
	cw.Float32(g.MutRate2)
	cw.Float32(g.TempPreference)
	cw.Float32(g.SmellMod)
	cw.Float32(g.SoundMod)
	cw.Float32(g.HearMod)
	cw.Float32(g.EyeSens)
	cw.Float32(g.BloodMod)
	cw.Float32s(g.EyeFOV[:])
	cw.Float32s(g.EyeDir[:])

	var data []byte
	var kind neural.Kind
	if brain != nil {
		kind = brain.Kind()
		var err error
		if data, err = brain.MarshalBinary(); err != nil {
			slog.Error("brain encode failed", "id", org.ID, "error", err)
			data, kind = nil, 0
		}
	}
	cw.Uint8(uint8(kind))
	cw.Bytes(data)

	cw.String(org.Lineage)
	cw.Uint32(uint32(len(org.Mutations)))
	for _, m := range org.Mutations {
		cw.String(m)
	}
}

// loadState is a decoded save held aside until the whole header is valid.
type loadState struct {
	cfg          *config.Config
	tick, epoch  int
	idCounter    uint32
	closed       bool
	food         []float32
	foodW, foodH int
	histHerb     []int
	histCarn     []int
	agents       []agentSpec
}

// ReadFrom replaces the world with a save read from in. On a header or
// geometry error the world is left unchanged. A stream truncated inside the
// agent list keeps the agents decoded so far.
func (w *World) ReadFrom(in io.Reader) (int64, error) {
	r := codec.NewReader(in)
	st, err := w.decode(r)
	if err != nil {
		return r.N(), err
	}
	w.commit(st)
	slog.Info("loaded", "agents", len(st.agents), "epoch", st.epoch, "tick", st.tick, "bytes", r.N())
	return r.N(), nil
}

func (w *World) decode(r *codec.Reader) (*loadState, error) {
	magic := r.Raw(len(saveMagic))
	if r.Err() != nil || string(magic) != saveMagic {
		return nil, ErrBadHeader
	}
	if v := r.Uint32(); r.Err() != nil {
		return nil, ErrBadHeader
	} else if v != SaveVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}

	cfg := w.cfg.Clone()
	width := int(r.Int32())
	height := int(r.Int32())
	cellSize := int(r.Int32())
	foodMax := r.Float32()
	_ = r.Float32() // radius, informational
	_ = r.Int32()   // inputs
	_ = r.Int32()   // outputs
	numEyes := int(r.Int32())
	_ = r.Uint8() // brain kind at save time
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("reading save header: %w", err)
	}

	if cellSize <= 0 {
		slog.Warn("save_invalid", "field", "cell_size", "value", cellSize, "default", fallbackCellSize)
		cellSize = fallbackCellSize
	}
	if width <= 0 {
		slog.Warn("save_invalid", "field", "width", "value", width, "default", fallbackWidth)
		width = fallbackWidth
	}
	if height <= 0 {
		slog.Warn("save_invalid", "field", "height", "value", height, "default", fallbackHeight)
		height = fallbackHeight
	}
	if numEyes != components.NumEyes {
		slog.Warn("save_invalid", "field", "num_eyes", "value", numEyes, "default", components.NumEyes)
	}
	cfg.World.Width, cfg.World.Height, cfg.World.CellSize = width, height, cellSize
	if foodMax > 0 {
		cfg.Food.Max = float64(foodMax)
	}
	cfg.Refresh()

	st := &loadState{
		cfg:       cfg,
		tick:      int(r.Int32()),
		epoch:     int(r.Int32()),
		idCounter: r.Uint32(),
		closed:    r.Bool(),
	}
	if st.tick < 0 || st.tick >= EpochLength {
		slog.Warn("save_invalid", "field", "tick", "value", st.tick, "default", 0)
		st.tick = 0
	}
	if st.epoch < 0 {
		slog.Warn("save_invalid", "field", "epoch", "value", st.epoch, "default", 0)
		st.epoch = 0
	}

	// Food dims always come from the validated geometry
	st.foodW, st.foodH = cfg.Derived.FoodW, cfg.Derived.FoodH
	st.food = make([]float32, st.foodW*st.foodH)
	savedW, savedH := int(r.Int32()), int(r.Int32())
	if savedW < 0 || savedH < 0 || savedW*savedH > maxSavedFoodCells {
		return nil, fmt.Errorf("reading save: food grid %dx%d: %w", savedW, savedH, codec.ErrTooLarge)
	}
	if savedW != st.foodW || savedH != st.foodH {
		slog.Warn("save_invalid", "field", "food_dims", "value", fmt.Sprintf("%dx%d", savedW, savedH),
			"default", fmt.Sprintf("%dx%d", st.foodW, st.foodH))
	}
	for y := 0; y < savedH; y++ {
		for x := 0; x < savedW; x++ {
			f := r.Float32()
			if x < st.foodW && y < st.foodH {
				st.food[y*st.foodW+x] = systems.ClampFloat(f, 0, cfg.Derived.FoodMax32)
			}
		}
	}

	n := r.Len(maxSavedHistory)
	st.histHerb = make([]int, n)
	st.histCarn = make([]int, n)
	for i := 0; i < n; i++ {
		st.histHerb[i] = int(r.Int32())
		st.histCarn[i] = int(r.Int32())
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("reading save: %w", err)
	}

	count := int(r.Uint32())
	if r.Err() != nil {
		return nil, fmt.Errorf("reading save: agent count: %w", r.Err())
	}
	if count > MaxAgentsOnLoad {
		slog.Warn("save_invalid", "field", "agent_count", "value", count, "default", AgentsAfterClamp)
		count = AgentsAfterClamp
	}

	st.agents = make([]agentSpec, 0, count)
	seen := make(map[uint32]struct{}, count)
	var dups []int
	for i := 0; i < count; i++ {
		spec := readAgent(r, cfg)
		if err := r.Err(); err != nil {
			slog.Warn("save_agents_incomplete", "agents_read", i, "agents_expected", count, "error", err)
			break
		}
		if _, ok := seen[spec.org.ID]; ok {
			dups = append(dups, len(st.agents))
		}
		seen[spec.org.ID] = struct{}{}
		if spec.org.ID >= st.idCounter {
			st.idCounter = spec.org.ID + 1
		}
		st.agents = append(st.agents, spec)
	}

	// Duplicate ids would share one brain table slot
	for _, i := range dups {
		slog.Warn("save_invalid", "field", "agent_id", "value", st.agents[i].org.ID, "new", st.idCounter)
		st.agents[i].org.ID = st.idCounter
		st.idCounter++
	}
	return st, nil
}

func readAgent(r *codec.Reader, cfg *config.Config) agentSpec {
	d := &cfg.Derived
	var s agentSpec
	s.keepID = true

	s.org.ID = r.Uint32()
	s.pos.X = systems.Wrap(r.Float32(), d.WorldW32)
	s.pos.Y = systems.Wrap(r.Float32(), d.WorldH32)
	s.body.Health = r.Float32()
	s.rot.Heading = systems.NormalizeAngle(r.Float32())
	s.body.Red = r.Float32()
	s.body.Green = r.Float32()
	s.body.Blue = r.Float32()
	s.motor.Left = r.Float32()
	s.motor.Right = r.Float32()
	s.body.Boost = r.Bool()
	s.body.Spike = systems.Clamp01(r.Float32())
	s.body.Age = max(r.Int32(), 0)
	s.body.Spiked = r.Bool()
	s.in = r.Float32s(maxSavedVector)
	s.out = r.Float32s(maxSavedVector)
	s.org.RepCounter = r.Float32()
	s.org.Generation = r.Int32()
	s.org.Hybrid = r.Bool()

	g := &s.genome
	g.Clock1 = max(r.Float32(), systems.MinClock)
	g.Clock2 = max(r.Float32(), systems.MinClock)
	s.motor.Shout = r.Float32()
	s.motor.Give = r.Float32()
	s.body.Indicator = r.Float32()
	s.body.IndicatorR = r.Float32()
	s.body.IndicatorG = r.Float32()
	s.body.IndicatorB = r.Float32()
	s.body.DFood = r.Float32()
	s.org.Selected = r.Bool()
	g.Herbivore = systems.Clamp01(r.Float32())
	g.MutRate1 = max(r.Float32(), systems.MinMutRate1)
	g.MutRate2 = max(r.Float32(), systems.MinMutRate2)
	g.TempPreference = systems.Clamp01(r.Float32())
	g.SmellMod = r.Float32()
	g.SoundMod = r.Float32()
	g.HearMod = r.Float32()
	g.EyeSens = r.Float32()
	g.BloodMod = r.Float32()
	fov := r.Float32s(maxSavedVector)
	dir := r.Float32s(maxSavedVector)
	for q := 0; q < components.NumEyes; q++ {
		if q < len(fov) {
			g.EyeFOV[q] = max(fov[q], 0)
		}
		if q < len(dir) {
			g.EyeDir[q] = systems.NormalizeHeading(dir[q])
		}
	}
	s.body.ClampHealth()

	kind := neural.Kind(r.Uint8())
	data := r.Bytes(maxSavedBrain)

	s.org.Lineage = r.String(maxSavedString)
	nm := r.Len(maxSavedMutations)
	for i := 0; i < nm; i++ {
		s.org.LogMutation(r.String(maxSavedString))
	}
	if r.Err() != nil {
		return s
	}

	brain, err := neural.Decode(kind, data)
	if err != nil {
		r.Fail(err)
		return s
	}
	s.brain = brain
	return s
}

// commit swaps the decoded state into the world.
func (w *World) commit(st *loadState) {
	w.parents = w.parents[:0]
	query := w.agentFilter.Query()
	for query.Next() {
		w.parents = append(w.parents, query.Entity())
	}
	for _, e := range w.parents {
		w.removeAgent(e, w.orgMap.Get(e).ID)
	}
	w.lifetime.Reset()

	w.cfg = st.cfg
	w.resetGeometry()
	copy(w.food, st.food)
	if len(st.histHerb) > 0 {
		w.histHerb, w.histCarn = st.histHerb, st.histCarn
	}

	w.tick = st.tick
	w.epoch = st.epoch
	w.idCounter = st.idCounter
	w.closed = st.closed
	w.step = 0

	for i := range st.agents {
		w.spawn(&st.agents[i])
	}
}

// savePath resolves a bare file name against the configured save directory.
func (w *World) savePath(name string) string {
	if filepath.IsAbs(name) || strings.ContainsAny(name, `/\`) {
		return name
	}
	return filepath.Join(w.cfg.Storage.SaveDir, name)
}

// SaveToFile writes the world to a file. Bare names are placed in the
// configured save directory.
func (w *World) SaveToFile(name string) error {
	path := w.savePath(name)
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating save directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating save file: %w", err)
	}
	bw := bufio.NewWriter(f)
	if _, err := w.WriteTo(bw); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flushing save file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing save file: %w", err)
	}

	slog.Info("saved", "path", path, "epoch", w.epoch, "tick", w.tick)
	return nil
}

// LoadFromFile replaces the world with a save file.
func (w *World) LoadFromFile(name string) error {
	path := w.savePath(name)
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening save file: %w", err)
	}
	defer f.Close()

	if _, err := w.ReadFrom(bufio.NewReader(f)); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// SaveToStore serializes the world into the snapshot store.
func (w *World) SaveToStore(ctx context.Context, name string) error {
	if w.store == nil {
		return errors.New("no snapshot store configured")
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return err
	}
	return w.store.Put(ctx, name, buf.Bytes())
}

// LoadFromStore replaces the world with a snapshot from the store. An empty
// name loads the most recent snapshot.
func (w *World) LoadFromStore(ctx context.Context, name string) error {
	if w.store == nil {
		return errors.New("no snapshot store configured")
	}
	var data []byte
	var err error
	if name == "" {
		name, data, err = w.store.Latest(ctx)
	} else {
		data, err = w.store.Get(ctx, name)
	}
	if err != nil {
		return fmt.Errorf("fetching snapshot: %w", err)
	}
	if _, err := w.ReadFrom(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("loading snapshot %s: %w", name, err)
	}
	return nil
}
