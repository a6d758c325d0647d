// Package live serves canvas editing over websockets. Each connection gets
// its own editor session on one canvas; events come in, frames go out.
package live

import (
	"log/slog"
	"sync"

	"github.com/inamate/freecanvas/internal/workspace"
)

// Hub tracks connected clients so that registry changes reach all of them.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client // clientID -> client
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]*Client)}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ClientID] = c
	n := len(h.clients)
	h.mu.Unlock()

	slog.Info("client joined", "client", c.ClientID, "canvas", c.CanvasID, "clients", n)
}

// Unregister removes c and closes its send channel, which stops its write
// pump.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.ClientID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.ClientID)
	c.closeSend()
	h.mu.Unlock()

	slog.Info("client left", "client", c.ClientID, "canvas", c.CanvasID)
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Broadcast(msg *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		c.Send(msg)
	}
}

// BroadcastCanvasList sends the registry listing to every client.
func (h *Hub) BroadcastCanvasList(list []workspace.Summary) {
	msg, err := newMessage(TypeCanvasList, 0, list)
	if err != nil {
		slog.Error("marshal canvas list", "error", err)
		return
	}
	h.Broadcast(msg)
}

// CloseAll disconnects every client.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[string]*Client)
	for _, c := range clients {
		c.closeSend()
	}
	h.mu.Unlock()
}
