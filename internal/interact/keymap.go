package interact

import (
	"slices"
	"strings"

	"github.com/inamate/freecanvas/internal/document"
)

// Action is a named editor command. Keyboard shortcuts resolve to actions and
// clients may also send them directly.
type Action string

const (
	ActionUndo         Action = "undo"
	ActionRedo         Action = "redo"
	ActionCopy         Action = "copy"
	ActionPaste        Action = "paste"
	ActionCut          Action = "cut"
	ActionDuplicate    Action = "duplicate"
	ActionSelectAll    Action = "selectAll"
	ActionDeselect     Action = "deselect"
	ActionDelete       Action = "delete"
	ActionCancel       Action = "cancel"
	ActionBringForward Action = "bringForward"
	ActionSendBackward Action = "sendBackward"
	ActionBringToFront Action = "bringToFront"
	ActionSendToBack   Action = "sendToBack"
	ActionNudgeLeft    Action = "nudgeLeft"
	ActionNudgeRight   Action = "nudgeRight"
	ActionNudgeUp      Action = "nudgeUp"
	ActionNudgeDown    Action = "nudgeDown"
	ActionToggleGrid   Action = "toggleGrid"
	ActionToggleSnap   Action = "toggleSnap"
)

// ToolAction returns the action that switches to t.
func ToolAction(t Tool) Action {
	return Action("tool." + string(t))
}

// Valid reports whether a names a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionUndo, ActionRedo, ActionCopy, ActionPaste, ActionCut, ActionDuplicate,
		ActionSelectAll, ActionDeselect, ActionDelete, ActionCancel,
		ActionBringForward, ActionSendBackward, ActionBringToFront, ActionSendToBack,
		ActionNudgeLeft, ActionNudgeRight, ActionNudgeUp, ActionNudgeDown,
		ActionToggleGrid, ActionToggleSnap:
		return true
	}
	t, ok := strings.CutPrefix(string(a), "tool.")
	return ok && Tool(t).Valid()
}

// NudgeStep and LargeNudgeStep are arrow key distances without and with
// Shift held.
const (
	NudgeStep      = 1.0
	LargeNudgeStep = 10.0
)

// KeyEvent is a key press. Key follows the DOM KeyboardEvent.key values.
// InTextInput is set when focus is inside an editable field.
type KeyEvent struct {
	Key         string `json:"key"`
	InTextInput bool   `json:"inTextInput,omitempty"`
	Modifiers
}

var toolKeys = map[string]Tool{
	"v": ToolSelect,
	"h": ToolPan,
	"r": ToolRectangle,
	"o": ToolCircle,
	"t": ToolText,
	"l": ToolLine,
	"p": ToolPen,
}

// Resolve maps a key press to an action. Inside a text input only Escape is
// handled, so typing and native clipboard keys are left to the field.
func Resolve(ev KeyEvent) (Action, bool) {
	key := ev.Key
	if len(key) == 1 {
		key = strings.ToLower(key)
	}
	if key == "Escape" {
		return ActionCancel, true
	}
	if ev.InTextInput {
		return "", false
	}

	if ev.Ctrl || ev.Meta {
		switch key {
		case "z":
			if ev.Shift {
				return ActionRedo, true
			}
			return ActionUndo, true
		case "y":
			return ActionRedo, true
		case "c":
			return ActionCopy, true
		case "v":
			return ActionPaste, true
		case "x":
			return ActionCut, true
		case "d":
			return ActionDuplicate, true
		case "a":
			return ActionSelectAll, true
		case "]":
			return ActionBringToFront, true
		case "[":
			return ActionSendToBack, true
		}
		return "", false
	}

	switch key {
	case "Delete", "Backspace":
		return ActionDelete, true
	case "]":
		return ActionBringForward, true
	case "[":
		return ActionSendBackward, true
	case "ArrowLeft":
		return ActionNudgeLeft, true
	case "ArrowRight":
		return ActionNudgeRight, true
	case "ArrowUp":
		return ActionNudgeUp, true
	case "ArrowDown":
		return ActionNudgeDown, true
	case "g":
		return ActionToggleGrid, true
	}
	if t, ok := toolKeys[key]; ok && !ev.Alt {
		return ToolAction(t), true
	}
	return "", false
}

// HandleKey resolves and dispatches a key press.
func (c *Controller) HandleKey(ev KeyEvent) (Action, Result) {
	a, ok := Resolve(ev)
	if !ok {
		return "", Result{}
	}
	step := NudgeStep
	if ev.Shift {
		step = LargeNudgeStep
	}
	return a, c.dispatch(a, step)
}

// Dispatch performs a named action. Unknown actions do nothing.
func (c *Controller) Dispatch(a Action) Result {
	return c.dispatch(a, NudgeStep)
}

func (c *Controller) dispatch(a Action, step float64) Result {
	s := c.session
	changed := true

	switch a {
	case ActionUndo:
		c.Cancel()
		changed = s.Undo()
	case ActionRedo:
		c.Cancel()
		changed = s.Redo()
	case ActionCopy:
		s.Copy()
		changed = false
	case ActionPaste:
		changed = len(s.Paste()) > 0
	case ActionCut:
		changed = s.Cut() > 0
	case ActionDuplicate:
		changed = len(s.Duplicate()) > 0
	case ActionSelectAll:
		s.SelectAll()
	case ActionDeselect:
		s.ClearSelection()
	case ActionCancel:
		if !c.Cancel() {
			s.ClearSelection()
		}
	case ActionDelete:
		if c.Busy() {
			return Result{}
		}
		changed = s.DeleteSelected() > 0
	case ActionBringForward, ActionBringToFront, ActionSendBackward, ActionSendToBack:
		changed = c.reorderSelection(a)
	case ActionNudgeLeft:
		changed = s.MoveSelection(-step, 0)
	case ActionNudgeRight:
		changed = s.MoveSelection(step, 0)
	case ActionNudgeUp:
		changed = s.MoveSelection(0, -step)
	case ActionNudgeDown:
		changed = s.MoveSelection(0, step)
	case ActionToggleGrid:
		on := !s.View().GridVisible
		s.SetView(document.ViewPatch{GridVisible: &on})
	case ActionToggleSnap:
		on := !s.View().SnapToGrid
		s.SetView(document.ViewPatch{SnapToGrid: &on})
	default:
		t, ok := strings.CutPrefix(string(a), "tool.")
		if !ok {
			return Result{}
		}
		changed = c.SetTool(Tool(t))
	}
	return Result{Changed: changed}
}

// reorderSelection applies a z-order action to each selected element, walking
// the selection so that the relative order of the selected elements holds.
func (c *Controller) reorderSelection(a Action) bool {
	s := c.session
	var op func(string) bool
	switch a {
	case ActionBringForward:
		op = s.BringForward
	case ActionBringToFront:
		op = s.BringToFront
	case ActionSendBackward:
		op = s.SendBackward
	case ActionSendToBack:
		op = s.SendToBack
	}

	// Bottom-up for front and backward, top-down for back and forward.
	sel := s.SelectedElements()
	if a == ActionSendToBack || a == ActionBringForward {
		slices.Reverse(sel)
	}

	changed := false
	for _, el := range sel {
		if op(el.ID) {
			changed = true
		}
	}
	return changed
}
