package live

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/inamate/freecanvas/internal/document"
	"github.com/inamate/freecanvas/internal/editor"
	"github.com/inamate/freecanvas/internal/interact"
	"github.com/inamate/freecanvas/internal/workspace"
)

// Canvases is the registry side a live session reads from and commits to.
type Canvases interface {
	Open(id string) (document.File, error)
	Commit(id string, snap editor.Snapshot)
	List() []workspace.Summary
}

type Options struct {
	HistoryLimit  int
	SnapThreshold float64
	// AllowedOrigins are full origins such as http://localhost:5173.
	AllowedOrigins []string
	Decoder        editor.ImageDecoder
}

// Handler upgrades /ws/canvas/{id} requests. Authorization happens in
// middleware before it.
type Handler struct {
	hub      *Hub
	canvases Canvases
	opts     Options
}

func NewHandler(hub *Hub, canvases Canvases, opts Options) *Handler {
	return &Handler{hub: hub, canvases: canvases, opts: opts}
}

// NewController loads canvas id into a fresh editing session. Commits are
// written back to the registry.
func (h *Handler) NewController(id string) (*interact.Controller, error) {
	file, err := h.canvases.Open(id)
	if err != nil {
		return nil, err
	}

	session := editor.New(
		editor.WithHistoryLimit(h.opts.HistoryLimit),
		editor.WithDecoder(h.opts.Decoder),
	)
	session.Load(file)
	session.SetOnCommit(func(snap editor.Snapshot) {
		h.canvases.Commit(id, snap)
	})

	var opts []interact.Option
	if h.opts.SnapThreshold > 0 {
		opts = append(opts, interact.WithSnapThreshold(h.opts.SnapThreshold))
	}
	return interact.New(session, opts...), nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	canvasID := mux.Vars(r)["id"]

	ctrl, err := h.NewController(canvasID)
	if err != nil {
		http.Error(w, "canvas not found", http.StatusNotFound)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originPatterns(h.opts.AllowedOrigins),
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	client := NewClient(h.hub, conn, uuid.New().String(), canvasID, ctrl)
	h.hub.Register(client)
	client.Greet(h.canvases.List())

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}

// Greet sends the welcome, the first frame and the canvas listing.
func (c *Client) Greet(list []workspace.Summary) {
	c.sendPayload(TypeWelcome, 0, WelcomePayload{ClientID: c.ClientID, CanvasID: c.CanvasID})
	c.mu.Lock()
	c.sendFrame(0)
	c.mu.Unlock()
	c.sendPayload(TypeCanvasList, 0, list)
}

// originPatterns turns origins into the host patterns websocket.Accept
// matches against.
func originPatterns(origins []string) []string {
	var out []string
	for _, o := range origins {
		if o == "*" {
			out = append(out, "*")
			continue
		}
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			out = append(out, o)
			continue
		}
		out = append(out, u.Host)
	}
	return out
}
