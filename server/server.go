// Package server streams world state to websocket clients and feeds their
// commands back into the simulation.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/pthm-cable/scriptbots/config"
	"github.com/pthm-cable/scriptbots/game"
)

// Hello is the first message a client receives.
type Hello struct {
	Type   string  `json:"type"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Cell   int     `json:"cell"`
	Radius float32 `json:"radius"`
}

// Point is an optional world position.
type Point struct {
	X  float32 `json:"x"`
	Y  float32 `json:"y"`
	OK bool    `json:"ok"`
}

// Frame is one broadcast snapshot of the world.
type Frame struct {
	Type         string           `json:"type"`
	Epoch        int              `json:"epoch"`
	Tick         int              `json:"tick"`
	Step         int64            `json:"step"`
	Closed       bool             `json:"closed"`
	Herbivores   int              `json:"herbivores"`
	Carnivores   int              `json:"carnivores"`
	FoodCoverage float64          `json:"food_coverage"`
	Oldest       Point            `json:"oldest"`
	Selected     Point            `json:"selected"`
	Agents       []game.AgentView `json:"agents"`
}

// MakeFrame captures the world. Call it from the simulation goroutine.
func MakeFrame(w *game.World) Frame {
	herb, carn := w.Counts()
	f := Frame{
		Type:         "frame",
		Epoch:        w.Epoch(),
		Tick:         w.Tick(),
		Step:         w.Step(),
		Closed:       w.Closed(),
		Herbivores:   herb,
		Carnivores:   carn,
		FoodCoverage: w.FoodCoverage(),
		Agents:       w.Agents(),
	}
	f.Oldest.X, f.Oldest.Y, f.Oldest.OK = w.PositionOfInterest(game.InterestOldest)
	f.Selected.X, f.Selected.Y, f.Selected.OK = w.PositionOfInterest(game.InterestSelected)
	return f
}

// Server owns the HTTP listener and the broadcast loop.
type Server struct {
	cfg      config.ServerConfig
	hub      *Hub
	frames   chan Frame
	mux      *http.ServeMux
	interval int64
}

// New creates a server for a world of the given configuration.
func New(cfg *config.Config, sink CommandSink) *Server {
	hello := Hello{
		Type:   "hello",
		Width:  cfg.World.Width,
		Height: cfg.World.Height,
		Cell:   cfg.World.CellSize,
		Radius: cfg.Derived.Radius32,
	}
	s := &Server{
		cfg:      cfg.Server,
		hub:      NewHub(sink, func() any { return hello }, cfg.Derived.WorldW32, cfg.Derived.WorldH32, cfg.Derived.Radius32, cfg.Server.AllowAnyOrigin),
		frames:   make(chan Frame, 1),
		mux:      http.NewServeMux(),
		interval: int64(max(cfg.Server.BroadcastInterval, 1)),
	}
	s.mux.Handle("/ws", s.hub)
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return s
}

// Handler returns the HTTP handler serving /ws.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Hub returns the client hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Publish queues a frame every broadcast interval. Frames are dropped while
// the previous one is still being sent, so a slow client never stalls the
// simulation.
func (s *Server) Publish(w *game.World) {
	if w.Step()%s.interval != 0 || s.hub.Len() == 0 {
		return
	}
	select {
	case s.frames <- MakeFrame(w):
	default:
	}
}

// Broadcast sends queued frames until ctx is done.
func (s *Server) Broadcast(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-s.frames:
			s.hub.BroadcastFrame(f)
		}
	}
}

// Run serves HTTP and broadcasts frames until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.Broadcast(ctx)
	go func() {
		<-ctx.Done()
		s.hub.CloseAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("server shutdown", "error", err)
		}
	}()

	slog.Info("live feed listening", "addr", s.cfg.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
