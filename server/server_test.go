package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pthm-cable/scriptbots/config"
	"github.com/pthm-cable/scriptbots/game"
)

type recordingSink struct {
	mu   sync.Mutex
	cmds []game.Command
}

func (r *recordingSink) Enqueue(c game.Command) {
	r.mu.Lock()
	r.cmds = append(r.cmds, c)
	r.mu.Unlock()
}

func (r *recordingSink) commands() []game.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]game.Command(nil), r.cmds...)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.MustDefault()
	cfg.World.Width, cfg.World.Height = 400, 300
	cfg.World.CellSize = 10
	cfg.Simulation.NumBots = 5
	cfg.Server.BroadcastInterval = 2
	cfg.Refresh()
	return cfg
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHelloAndCommands(t *testing.T) {
	cfg := testConfig(t)
	sink := &recordingSink{}
	s := New(cfg, sink)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn := dial(t, srv)

	var hello Hello
	if err := conn.ReadJSON(&hello); err != nil {
		t.Fatalf("reading hello: %v", err)
	}
	if hello.Type != "hello" || hello.Width != 400 || hello.Height != 300 || hello.Cell != 10 {
		t.Errorf("hello = %+v", hello)
	}

	tests := []struct {
		cmd   game.Command
		reply string
	}{
		{game.Command{Cmd: game.CmdAddHerbivores, N: 3}, "ack"},
		{game.Command{Cmd: game.CmdSelect, X: 10, Y: 20}, "ack"},
		{game.Command{Cmd: "launch"}, "error"},
	}
	for _, tt := range tests {
		if err := conn.WriteJSON(tt.cmd); err != nil {
			t.Fatal(err)
		}
		var r Reply
		if err := conn.ReadJSON(&r); err != nil {
			t.Fatalf("reading reply: %v", err)
		}
		if r.Type != tt.reply || r.Cmd != tt.cmd.Cmd {
			t.Errorf("reply to %q = %+v, want %s", tt.cmd.Cmd, r, tt.reply)
		}
	}

	got := sink.commands()
	if len(got) != 2 || got[0].N != 3 || got[1].X != 10 || got[1].Y != 20 {
		t.Errorf("enqueued = %+v", got)
	}
}

func TestPublishBroadcastsFrames(t *testing.T) {
	cfg := testConfig(t)
	w, err := game.New(cfg, game.Options{Seed: 1})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	s := New(cfg, w)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Broadcast(ctx)

	// No clients, nothing queued
	w.Update()
	w.Update()
	s.Publish(w)
	if len(s.frames) != 0 {
		t.Fatal("frame queued with no clients")
	}

	conn := dial(t, srv)
	var hello Hello
	if err := conn.ReadJSON(&hello); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return s.Hub().Len() == 1 })

	// Step 3 is off the broadcast interval
	w.Update()
	s.Publish(w)
	if len(s.frames) != 0 {
		t.Fatal("frame queued off interval")
	}

	w.Update()
	s.Publish(w)

	var f Frame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("reading frame: %v", err)
	}
	if f.Type != "frame" || f.Step != 4 || len(f.Agents) != w.NumAgents() {
		t.Errorf("frame = type %q step %d agents %d", f.Type, f.Step, len(f.Agents))
	}
	if f.Herbivores+f.Carnivores != len(f.Agents) {
		t.Errorf("counts %d+%d for %d agents", f.Herbivores, f.Carnivores, len(f.Agents))
	}
}

func TestCommandsReachWorld(t *testing.T) {
	cfg := testConfig(t)
	w, err := game.New(cfg, game.Options{Seed: 2})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	s := New(cfg, w)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn := dial(t, srv)
	var hello Hello
	if err := conn.ReadJSON(&hello); err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteJSON(game.Command{Cmd: game.CmdAddCarnivores, N: 4}); err != nil {
		t.Fatal(err)
	}
	var r Reply
	if err := conn.ReadJSON(&r); err != nil || r.Type != "ack" {
		t.Fatalf("reply = %+v, err %v", r, err)
	}

	before := w.NumAgents()
	w.Update()
	if got := w.NumAgents(); got != before+4 {
		t.Errorf("NumAgents = %d, want %d", got, before+4)
	}
}

func TestHubDropsClosedClients(t *testing.T) {
	s := New(testConfig(t), &recordingSink{})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn := dial(t, srv)
	var hello Hello
	if err := conn.ReadJSON(&hello); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return s.Hub().Len() == 1 })

	conn.Close()
	waitFor(t, func() bool { return s.Hub().Len() == 0 })
}

func TestViewCullsFrames(t *testing.T) {
	cfg := testConfig(t)
	s := New(cfg, &recordingSink{})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn := dial(t, srv)
	var hello Hello
	if err := conn.ReadJSON(&hello); err != nil {
		t.Fatal(err)
	}

	frame := Frame{
		Type: "frame",
		Agents: []game.AgentView{
			{ID: 1, X: 50, Y: 50},
			{ID: 2, X: 395, Y: 295}, // across both seams from (50, 50)
			{ID: 3, X: 200, Y: 150},
		},
		Selected: Point{X: 200, Y: 150, OK: true},
	}

	tests := []struct {
		name string
		view clientMessage
		want []uint32
	}{
		{"no viewport", clientMessage{Command: game.Command{Cmd: CmdView}}, []uint32{1, 2, 3}},
		{"corner", clientMessage{Command: game.Command{Cmd: CmdView, X: 50, Y: 50}, W: 100, H: 100, Zoom: 1}, []uint32{1, 2}},
		{"follow selected", clientMessage{Command: game.Command{Cmd: CmdView, X: 50, Y: 50}, W: 100, H: 100, Zoom: 1, Follow: 2}, []uint32{3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := conn.WriteJSON(tt.view); err != nil {
				t.Fatal(err)
			}
			var r Reply
			if err := conn.ReadJSON(&r); err != nil || r.Type != "ack" {
				t.Fatalf("reply = %+v, err %v", r, err)
			}

			s.Hub().BroadcastFrame(frame)
			var f Frame
			if err := conn.ReadJSON(&f); err != nil {
				t.Fatal(err)
			}
			var got []uint32
			for _, a := range f.Agents {
				got = append(got, a.ID)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("agents = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOriginPolicy(t *testing.T) {
	tests := []struct {
		name      string
		allowAny  bool
		origin    string
		wantError bool
	}{
		{"no origin header", false, "", false},
		{"cross origin refused", false, "http://elsewhere.example", true},
		{"cross origin allowed", true, "http://elsewhere.example", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.Server.AllowAnyOrigin = tt.allowAny
			s := New(cfg, &recordingSink{})
			srv := httptest.NewServer(s.Handler())
			defer srv.Close()

			header := http.Header{}
			if tt.origin != "" {
				header.Set("Origin", tt.origin)
			}
			url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
			conn, _, err := websocket.DefaultDialer.Dial(url, header)
			if err == nil {
				conn.Close()
			}
			if (err != nil) != tt.wantError {
				t.Errorf("dial error = %v, want error %v", err, tt.wantError)
			}
		})
	}
}

func TestOversizedMessageDropsClient(t *testing.T) {
	sink := &recordingSink{}
	s := New(testConfig(t), sink)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn := dial(t, srv)
	var hello Hello
	if err := conn.ReadJSON(&hello); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return s.Hub().Len() == 1 })

	big := game.Command{Cmd: game.CmdSave, Name: strings.Repeat("x", 2*readLimit)}
	if err := conn.WriteJSON(big); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return s.Hub().Len() == 0 })
	if got := sink.commands(); len(got) != 0 {
		t.Errorf("oversized command forwarded: %d", len(got))
	}
}
