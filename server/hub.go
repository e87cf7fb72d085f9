package server

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pthm-cable/scriptbots/camera"
	"github.com/pthm-cable/scriptbots/game"
)

const (
	writeWait = 5 * time.Second
	// readLimit bounds one client message.
	readLimit = 4096
)

// CmdView sets the sending client's viewport. It is handled by the hub and
// never reaches the world.
const CmdView = "view"

// CommandSink receives commands sent by clients. *game.World satisfies it.
type CommandSink interface {
	Enqueue(game.Command)
}

// clientMessage is a world command or a viewport update.
type clientMessage struct {
	game.Command
	W      float32 `json:"w,omitempty"`
	H      float32 `json:"h,omitempty"`
	Zoom   float32 `json:"zoom,omitempty"`
	Follow int     `json:"follow,omitempty"`
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
	cam  *camera.Camera // nil until the client sends a view
}

func (c *client) send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

// Hub tracks connected websocket clients.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	sink    CommandSink
	hello   func() any

	upgrader websocket.Upgrader

	worldW, worldH float32
	radius         float32
}

// NewHub creates a hub forwarding client commands to sink. hello, if set,
// builds the first message sent to every new client. The world size and
// agent radius are used to cull frames for clients with a viewport.
// Cross-origin clients are refused unless allowAnyOrigin is set.
func NewHub(sink CommandSink, hello func() any, worldW, worldH, radius float32, allowAnyOrigin bool) *Hub {
	h := &Hub{
		clients: make(map[*client]struct{}),
		sink:    sink,
		hello:   hello,
		worldW:  worldW,
		worldH:  worldH,
		radius:  radius,
	}
	if allowAnyOrigin {
		h.upgrader.CheckOrigin = func(r *http.Request) bool { return true }
	}
	return h
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) list() []*client {
	h.mu.Lock()
	defer h.mu.Unlock()
	list := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		list = append(list, c)
	}
	return list
}

// Broadcast sends v to every client, dropping those that fail.
func (h *Hub) Broadcast(v any) {
	for _, c := range h.list() {
		if err := c.send(v); err != nil {
			slog.Debug("client send failed", "remote", c.conn.RemoteAddr().String(), "error", err)
			h.drop(c)
		}
	}
}

// BroadcastFrame sends f to every client. Clients with a viewport receive
// only the agents inside it.
func (h *Hub) BroadcastFrame(f Frame) {
	for _, c := range h.list() {
		if err := c.send(h.cull(c, f)); err != nil {
			slog.Debug("client send failed", "remote", c.conn.RemoteAddr().String(), "error", err)
			h.drop(c)
		}
	}
}

// cull applies the client's viewport to f.
func (h *Hub) cull(c *client, f Frame) Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	cam := c.cam
	if cam == nil {
		return f
	}

	switch cam.Follow {
	case camera.FollowOldest:
		if f.Oldest.OK {
			cam.CenterOn(f.Oldest.X, f.Oldest.Y)
		}
	case camera.FollowSelected:
		if f.Selected.OK {
			cam.CenterOn(f.Selected.X, f.Selected.Y)
		}
	}

	visible := make([]game.AgentView, 0, len(f.Agents))
	for _, a := range f.Agents {
		if cam.IsVisible(a.X, a.Y, h.radius) {
			visible = append(visible, a)
		}
	}
	f.Agents = visible
	return f
}

// setView creates or updates the client's viewport.
func (h *Hub) setView(c *client, m clientMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m.W <= 0 || m.H <= 0 {
		c.cam = nil
		return
	}
	if c.cam == nil {
		c.cam = camera.New(m.W, m.H, h.worldW, h.worldH)
	} else {
		c.cam.Resize(m.W, m.H)
	}
	c.cam.CenterOn(m.X, m.Y)
	if m.Zoom > 0 {
		c.cam.SetZoom(m.Zoom)
	}
	c.cam.Follow = m.Follow
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		c.conn.Close()
	}
}

// CloseAll disconnects every client.
func (h *Hub) CloseAll() {
	for _, c := range h.list() {
		h.drop(c)
	}
}

// ServeHTTP upgrades the request and reads commands until the client leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	conn.SetReadLimit(readLimit)
	c := &client{conn: conn}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	slog.Info("client connected", "remote", conn.RemoteAddr().String())

	if h.hello != nil {
		if err := c.send(h.hello()); err != nil {
			h.drop(c)
			return
		}
	}

	for {
		var m clientMessage
		if err := conn.ReadJSON(&m); err != nil {
			break
		}
		switch {
		case m.Cmd == CmdView:
			h.setView(c, m)
		case game.KnownCommand(m.Cmd):
			h.sink.Enqueue(m.Command)
		default:
			_ = c.send(Reply{Type: "error", Cmd: m.Cmd, Error: "unknown command"})
			continue
		}
		_ = c.send(Reply{Type: "ack", Cmd: m.Cmd})
	}

	h.drop(c)
	slog.Info("client disconnected", "remote", conn.RemoteAddr().String())
}

// Reply answers a client command.
type Reply struct {
	Type  string `json:"type"`
	Cmd   string `json:"cmd"`
	Error string `json:"error,omitempty"`
}
