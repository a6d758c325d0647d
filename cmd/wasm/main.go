//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"syscall/js"
	"time"

	"github.com/inamate/freecanvas/internal/asset"
	"github.com/inamate/freecanvas/internal/document"
	"github.com/inamate/freecanvas/internal/editor"
	"github.com/inamate/freecanvas/internal/engine"
	"github.com/inamate/freecanvas/internal/geom"
	"github.com/inamate/freecanvas/internal/interact"
)

var (
	session *editor.Session
	ctrl    *interact.Controller
)

func main() {
	// Only data URLs decode in the browser; there is no asset directory.
	session = editor.New(
		editor.WithDecoder(asset.NewDecoder("")),
		editor.WithOnCommit(func(snap editor.Snapshot) {
			if cb := js.Global().Get("freecanvasOnCommit"); cb.Type() == js.TypeFunction {
				if data, err := json.Marshal(snap.File(time.Now())); err == nil {
					cb.Invoke(string(data))
				}
			}
		}),
	)
	ctrl = interact.New(session)

	api := js.Global().Get("Object").New()

	// --- Commands (frontend → editor) ---
	api.Set("loadDocument", js.FuncOf(loadDocument))
	api.Set("pointerDown", js.FuncOf(pointerHandler(ctrl.PointerDown)))
	api.Set("pointerMove", js.FuncOf(pointerHandler(ctrl.PointerMove)))
	api.Set("pointerUp", js.FuncOf(pointerHandler(ctrl.PointerUp)))
	api.Set("cancel", js.FuncOf(cancel))
	api.Set("key", js.FuncOf(key))
	api.Set("transform", js.FuncOf(transform))
	api.Set("action", js.FuncOf(action))
	api.Set("setTool", js.FuncOf(setTool))
	api.Set("zoomAt", js.FuncOf(zoomAt))
	api.Set("addImage", js.FuncOf(addImage))

	// --- Queries (frontend ← editor) ---
	api.Set("render", js.FuncOf(render))
	api.Set("getDocument", js.FuncOf(getDocument))
	api.Set("thumbnail", js.FuncOf(thumbnail))

	js.Global().Set("freecanvas", api)
	js.Global().Set("freecanvasWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func errorResult(err error) interface{} {
	return js.ValueOf(map[string]interface{}{"error": err.Error()})
}

func okResult(changed bool) interface{} {
	return js.ValueOf(map[string]interface{}{"ok": true, "changed": changed})
}

func missingArg(name string) interface{} {
	return js.ValueOf(map[string]interface{}{"error": "missing " + name})
}

func loadDocument(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return missingArg("document JSON")
	}
	f, err := document.Decode([]byte(args[0].String()))
	if err != nil {
		return errorResult(err)
	}
	session.Load(*f)
	return okResult(true)
}

func pointerHandler(fn func(interact.PointerEvent) interact.Result) func(js.Value, []js.Value) interface{} {
	return func(this js.Value, args []js.Value) interface{} {
		if len(args) < 1 {
			return missingArg("pointer event JSON")
		}
		var ev interact.PointerEvent
		if err := json.Unmarshal([]byte(args[0].String()), &ev); err != nil {
			return errorResult(err)
		}
		return okResult(fn(ev).Changed)
	}
}

func cancel(this js.Value, args []js.Value) interface{} {
	return okResult(ctrl.Cancel())
}

func key(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return missingArg("key event JSON")
	}
	var ev interact.KeyEvent
	if err := json.Unmarshal([]byte(args[0].String()), &ev); err != nil {
		return errorResult(err)
	}
	a, res := ctrl.HandleKey(ev)
	return js.ValueOf(map[string]interface{}{"ok": true, "changed": res.Changed, "action": string(a)})
}

// transform(phase, eventJSON) where phase is "move" or "end".
func transform(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return missingArg("phase or transform JSON")
	}
	var ev interact.TransformEvent
	if err := json.Unmarshal([]byte(args[1].String()), &ev); err != nil {
		return errorResult(err)
	}
	if args[0].String() == "end" {
		return okResult(ctrl.TransformEnd(ev).Changed)
	}
	return okResult(ctrl.TransformMove(ev).Changed)
}

func action(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return missingArg("action")
	}
	a := interact.Action(args[0].String())
	if !a.Valid() {
		return js.ValueOf(map[string]interface{}{"error": "unknown action " + string(a)})
	}
	return okResult(ctrl.Dispatch(a).Changed)
}

func setTool(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return missingArg("tool")
	}
	return okResult(ctrl.SetTool(interact.Tool(args[0].String())))
}

func zoomAt(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return missingArg("screenX, screenY or factor")
	}
	session.ZoomAt(geom.Point{X: args[0].Float(), Y: args[1].Float()}, args[2].Float())
	return okResult(true)
}

// addImage(src, x, y, callback) decodes asynchronously and calls back with
// an error string or null.
func addImage(this js.Value, args []js.Value) interface{} {
	if len(args) < 4 {
		return missingArg("src, x, y or callback")
	}
	src, at, cb := args[0].String(), geom.Point{X: args[1].Float(), Y: args[2].Float()}, args[3]
	go func() {
		if _, err := session.AddImage(context.Background(), src, at); err != nil {
			cb.Invoke(err.Error())
			return
		}
		cb.Invoke(js.Null())
	}()
	return nil
}

func render(this js.Value, args []js.Value) interface{} {
	s, err := engine.FrameToJSON(ctrl.Frame())
	if err != nil {
		return errorResult(err)
	}
	return js.ValueOf(s)
}

func getDocument(this js.Value, args []js.Value) interface{} {
	data, err := json.Marshal(session.File())
	if err != nil {
		return errorResult(err)
	}
	return js.ValueOf(string(data))
}

func thumbnail(this js.Value, args []js.Value) interface{} {
	w, h := 160, 120
	if len(args) >= 2 {
		w, h = args[0].Int(), args[1].Int()
	}
	url, err := engine.ThumbnailDataURL(session.Elements(), w, h)
	if err != nil {
		return errorResult(err)
	}
	return js.ValueOf(url)
}
