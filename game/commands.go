package game

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// MaxCommandAgents caps the agent count of a single add_* command.
const MaxCommandAgents = 500

// Command names accepted by Apply.
const (
	CmdReset         = "reset"
	CmdToggleClosed  = "toggle_closed"
	CmdAddRandom     = "add_random"
	CmdAddCrossover  = "add_crossover"
	CmdAddHerbivores = "add_herbivores"
	CmdAddCarnivores = "add_carnivores"
	CmdSelect        = "select"
	CmdSave          = "save"
)

// KnownCommand reports whether name is a command Apply understands.
func KnownCommand(name string) bool {
	switch name {
	case CmdReset, CmdToggleClosed, CmdAddRandom, CmdAddCrossover,
		CmdAddHerbivores, CmdAddCarnivores, CmdSelect, CmdSave:
		return true
	}
	return false
}

// Command is a world mutation requested from outside the simulation loop.
type Command struct {
	Cmd  string  `json:"cmd"`
	N    int     `json:"n,omitempty"`    // agent count for add_* (default 1)
	X    float32 `json:"x,omitempty"`    // select position
	Y    float32 `json:"y,omitempty"`    // select position
	Name string  `json:"name,omitempty"` // save name
}

// Enqueue queues a command to run before the next tick. Safe for concurrent use.
func (w *World) Enqueue(c Command) {
	w.cmdMu.Lock()
	w.commands = append(w.commands, c)
	w.cmdMu.Unlock()
}

// applyCommands runs every queued command in arrival order.
func (w *World) applyCommands() {
	w.cmdMu.Lock()
	cmds := w.commands
	w.commands = nil
	w.cmdMu.Unlock()

	for _, c := range cmds {
		if err := w.Apply(c); err != nil {
			slog.Warn("command_failed", "cmd", c.Cmd, "error", err)
		}
	}
}

// Apply runs a command immediately. It must be called from the goroutine
// that drives Update.
func (w *World) Apply(c Command) error {
	n := min(max(c.N, 1), MaxCommandAgents)

	switch c.Cmd {
	case CmdReset:
		w.Reset()
	case CmdToggleClosed:
		w.ToggleClosed()
	case CmdAddRandom:
		w.AddRandomAgents(n)
	case CmdAddCrossover:
		w.AddCrossoverAgents(n)
	case CmdAddHerbivores:
		w.AddHerbivores(n)
	case CmdAddCarnivores:
		w.AddCarnivores(n)
	case CmdSelect:
		w.SelectNearest(c.X, c.Y)
	case CmdSave:
		name := c.Name
		if name == "" {
			name = fmt.Sprintf("manual_epoch_%d_tick_%d.sav", w.epoch, w.tick)
		}
		// Commands may only name files inside the save directory
		if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
			return fmt.Errorf("invalid save name %q", name)
		}
		if w.store != nil {
			return w.SaveToStore(context.Background(), name)
		}
		return w.SaveToFile(name)
	default:
		return fmt.Errorf("unknown command %q", c.Cmd)
	}
	return nil
}

// Reset removes every agent and seeds a fresh random population. Food,
// counters and history are kept.
func (w *World) Reset() {
	w.parents = w.parents[:0]
	query := w.agentFilter.Query()
	for query.Next() {
		w.parents = append(w.parents, query.Entity())
	}
	for _, e := range w.parents {
		w.removeAgent(e, w.orgMap.Get(e).ID)
	}
	w.addRandomAgents(w.cfg.Simulation.NumBots, 0, 1)
	slog.Info("reset", "agents", w.cfg.Simulation.NumBots)
}

// SetClosed sets whether the world is closed to automatic spawning.
func (w *World) SetClosed(closed bool) {
	w.closed = closed
}

// ToggleClosed flips the closed flag and returns the new value.
func (w *World) ToggleClosed() bool {
	w.closed = !w.closed
	slog.Info("closed", "closed", w.closed)
	return w.closed
}

// AddRandomAgents adds n random agents.
func (w *World) AddRandomAgents(n int) {
	w.addRandomAgents(n, 0, 1)
}

// AddCrossoverAgents adds n crossover offspring of existing agents.
func (w *World) AddCrossoverAgents(n int) {
	for i := 0; i < n; i++ {
		w.addCrossover()
	}
}

// AddCarnivores adds n random agents with herbivore axis in [0, 0.1).
func (w *World) AddCarnivores(n int) {
	w.addRandomAgents(n, 0, 0.1)
}

// AddHerbivores adds n random agents with herbivore axis in [0.9, 1).
func (w *World) AddHerbivores(n int) {
	w.addRandomAgents(n, 0.9, 1)
}
