package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/inamate/freecanvas/internal/document"
	"github.com/inamate/freecanvas/internal/geom"
	"github.com/inamate/freecanvas/internal/interact"
)

const (
	writeWait      = 10 * time.Second
	pingPeriod     = 30 * time.Second
	maxMsgSize     = 16 << 20 // image data URLs arrive inline
	imageTimeout   = 30 * time.Second
	sendBufferSize = 256
)

// Client is one websocket connection editing one canvas. Messages from the
// read loop and finished image decodes are serialized by mu.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	ClientID string
	CanvasID string

	mu   sync.Mutex
	ctrl *interact.Controller
	wg   sync.WaitGroup

	sendMu sync.Mutex
	closed bool
}

func NewClient(hub *Hub, conn *websocket.Conn, clientID, canvasID string, ctrl *interact.Controller) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		ClientID: clientID,
		CanvasID: canvasID,
		ctrl:     ctrl,
	}
}

func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.wg.Wait()
		c.hub.Unregister(c)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	c.conn.SetReadLimit(maxMsgSize)

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
				websocket.CloseStatus(err) == websocket.StatusGoingAway {
				return
			}
			slog.Debug("read error", "error", err, "client", c.ClientID)
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("invalid message", "error", err, "client", c.ClientID)
			c.Notice(0, "error", "invalid message")
			continue
		}
		c.Handle(ctx, &msg)
	}
}

func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}

			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Write(writeCtx, websocket.MessageText, message)
			cancel()
			if err != nil {
				slog.Debug("write error", "error", err, "client", c.ClientID)
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) Send(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshal message", "error", err)
		return
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		slog.Warn("client send buffer full, dropping message", "client", c.ClientID, "type", msg.Type)
	}
}

func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) sendPayload(typ string, seq int64, payload any) {
	msg, err := newMessage(typ, seq, payload)
	if err != nil {
		slog.Error("marshal payload", "error", err, "type", typ)
		return
	}
	c.Send(msg)
}

func (c *Client) Notice(seq int64, level, text string) {
	c.sendPayload(TypeNotice, seq, NoticePayload{Level: level, Message: text})
}

// sendFrame must be called with c.mu held.
func (c *Client) sendFrame(seq int64) {
	c.sendPayload(TypeFrame, seq, c.ctrl.Frame())
}

// Handle applies one client message and replies with a frame when the
// canvas changed.
func (c *Client) Handle(ctx context.Context, msg *Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	changed, err := c.apply(ctx, msg)
	if err != nil {
		slog.Warn("rejected message", "error", err, "type", msg.Type, "client", c.ClientID)
		c.Notice(msg.Seq, "error", err.Error())
		return
	}
	if changed {
		c.sendFrame(msg.Seq)
	}
}

var errUnknown = errors.New("unknown")

func (c *Client) apply(ctx context.Context, msg *Message) (bool, error) {
	switch msg.Type {
	case TypePointer:
		var p PointerPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return false, fmt.Errorf("pointer payload: %w", err)
		}
		return c.pointer(p)

	case TypeKey:
		var ev interact.KeyEvent
		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			return false, fmt.Errorf("key payload: %w", err)
		}
		_, res := c.ctrl.HandleKey(ev)
		return res.Changed, nil

	case TypeTransform:
		var p TransformPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return false, fmt.Errorf("transform payload: %w", err)
		}
		switch p.Phase {
		case "move":
			return c.ctrl.TransformMove(p.TransformEvent).Changed, nil
		case "end":
			return c.ctrl.TransformEnd(p.TransformEvent).Changed, nil
		}
		return false, fmt.Errorf("transform phase %q: %w", p.Phase, errUnknown)

	case TypeCommand:
		var p CommandPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return false, fmt.Errorf("command payload: %w", err)
		}
		return c.command(ctx, msg.Seq, p)
	}
	return false, fmt.Errorf("message type %q: %w", msg.Type, errUnknown)
}

func (c *Client) pointer(p PointerPayload) (bool, error) {
	switch p.Phase {
	case PointerDown:
		return c.ctrl.PointerDown(p.PointerEvent).Changed, nil
	case PointerMove:
		return c.ctrl.PointerMove(p.PointerEvent).Changed, nil
	case PointerUp:
		return c.ctrl.PointerUp(p.PointerEvent).Changed, nil
	case PointerCancel:
		return c.ctrl.Cancel(), nil
	}
	return false, fmt.Errorf("pointer phase %q: %w", p.Phase, errUnknown)
}

func decodeArgs[T any](raw json.RawMessage) (T, error) {
	var v T
	if len(raw) == 0 {
		return v, errors.New("missing args")
	}
	err := json.Unmarshal(raw, &v)
	return v, err
}

func (c *Client) command(ctx context.Context, seq int64, p CommandPayload) (bool, error) {
	session := c.ctrl.Session()

	switch p.Name {
	case CmdFrame:
		return true, nil

	case CmdTool:
		args, err := decodeArgs[ToolArgs](p.Args)
		if err != nil {
			return false, fmt.Errorf("tool args: %w", err)
		}
		if !c.ctrl.SetTool(args.Tool) {
			return false, fmt.Errorf("tool %q: %w", args.Tool, errUnknown)
		}
		return true, nil

	case CmdStyle:
		args, err := decodeArgs[interact.Style](p.Args)
		if err != nil {
			return false, fmt.Errorf("style args: %w", err)
		}
		c.ctrl.SetStyle(args)
		return false, nil

	case CmdView:
		args, err := decodeArgs[ViewArgs](p.Args)
		if err != nil {
			return false, fmt.Errorf("view args: %w", err)
		}
		session.SetView(document.ViewPatch{
			Scale:       args.Scale,
			Position:    args.Position,
			GridVisible: args.GridVisible,
			GridSize:    args.GridSize,
			SnapToGrid:  args.SnapToGrid,
		})
		return true, nil

	case CmdZoom:
		args, err := decodeArgs[ZoomArgs](p.Args)
		if err != nil {
			return false, fmt.Errorf("zoom args: %w", err)
		}
		if args.Factor <= 0 {
			return false, errors.New("zoom factor must be positive")
		}
		session.ZoomAt(geom.Point{X: args.ScreenX, Y: args.ScreenY}, args.Factor)
		return true, nil

	case CmdSelect:
		args, err := decodeArgs[SelectArgs](p.Args)
		if err != nil {
			return false, fmt.Errorf("select args: %w", err)
		}
		session.SelectMany(args.IDs)
		return true, nil

	case CmdAddImage:
		args, err := decodeArgs[AddImageArgs](p.Args)
		if err != nil {
			return false, fmt.Errorf("addImage args: %w", err)
		}
		c.addImage(ctx, seq, args)
		return false, nil
	}

	if a := interact.Action(p.Name); a.Valid() {
		return c.ctrl.Dispatch(a).Changed, nil
	}
	return false, fmt.Errorf("command %q: %w", p.Name, errUnknown)
}

// addImage decodes in the background so that other events keep flowing.
// The document is only touched once the decode succeeds.
func (c *Client) addImage(ctx context.Context, seq int64, args AddImageArgs) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, imageTimeout)
		defer cancel()

		session := c.ctrl.Session()
		if _, err := session.AddImage(ctx, args.Src, geom.Point{X: args.X, Y: args.Y}); err != nil {
			slog.Warn("add image failed", "error", err, "client", c.ClientID)
			c.Notice(seq, "error", err.Error())
			return
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		c.sendFrame(seq)
	}()
}
