package live

import (
	"encoding/json"

	"github.com/inamate/freecanvas/internal/geom"
	"github.com/inamate/freecanvas/internal/interact"
)

type Message struct {
	Type    string          `json:"type"`
	Seq     int64           `json:"seq,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

const (
	// Client to server
	TypePointer   = "event.pointer"
	TypeKey       = "event.key"
	TypeTransform = "event.transform"
	TypeCommand   = "cmd"

	// Server to client
	TypeWelcome    = "welcome"
	TypeFrame      = "frame"
	TypeNotice     = "notice"
	TypeCanvasList = "canvas.list"
)

type PointerPhase string

const (
	PointerDown   PointerPhase = "down"
	PointerMove   PointerPhase = "move"
	PointerUp     PointerPhase = "up"
	PointerCancel PointerPhase = "cancel"
)

type PointerPayload struct {
	Phase PointerPhase `json:"phase"`
	interact.PointerEvent
}

type TransformPayload struct {
	// Phase is "move" while the handle is dragged and "end" on release.
	Phase string `json:"phase"`
	interact.TransformEvent
}

// CommandPayload names an editor command. Name is an interact.Action or one
// of the Cmd constants; Args depend on the command.
type CommandPayload struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

const (
	CmdTool     = "tool"
	CmdStyle    = "style"
	CmdView     = "view"
	CmdZoom     = "zoom"
	CmdSelect   = "select"
	CmdAddImage = "addImage"
	CmdFrame    = "frame"
)

type ToolArgs struct {
	Tool interact.Tool `json:"tool"`
}

type ViewArgs struct {
	Scale       *float64    `json:"scale,omitempty"`
	Position    *geom.Point `json:"position,omitempty"`
	GridVisible *bool       `json:"gridVisible,omitempty"`
	GridSize    *float64    `json:"gridSize,omitempty"`
	SnapToGrid  *bool       `json:"snapToGrid,omitempty"`
}

type ZoomArgs struct {
	ScreenX float64 `json:"screenX"`
	ScreenY float64 `json:"screenY"`
	Factor  float64 `json:"factor"`
}

type SelectArgs struct {
	IDs []string `json:"ids"`
}

type AddImageArgs struct {
	Src string  `json:"src"`
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
}

type WelcomePayload struct {
	ClientID string `json:"clientId"`
	CanvasID string `json:"canvasId"`
}

type NoticePayload struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

func newMessage(typ string, seq int64, payload any) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{Type: typ, Seq: seq, Payload: data}, nil
}
