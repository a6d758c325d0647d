package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// SchemaVersion is written into every serialized scene document.
const SchemaVersion = "1.0.0"

var (
	ErrUnknownKind  = errors.New("unknown element kind")
	ErrDuplicateID  = errors.New("duplicate element id")
	ErrMissingID    = errors.New("element without id")
	ErrBadTimestamp = errors.New("invalid timestamp")
)

// File is the persisted/exported form of a scene document.
type File struct {
	Version     string
	Elements    []Element
	CanvasState View
	Timestamp   time.Time
}

type elementJSON struct {
	ID       string          `json:"id"`
	Kind     Kind            `json:"kind"`
	X        float64         `json:"x"`
	Y        float64         `json:"y"`
	Width    *float64        `json:"width,omitempty"`
	Height   *float64        `json:"height,omitempty"`
	Rotation *float64        `json:"rotation,omitempty"`
	ScaleX   *float64        `json:"scaleX,omitempty"`
	ScaleY   *float64        `json:"scaleY,omitempty"`
	Opacity  *float64        `json:"opacity,omitempty"`
	Visible  *bool           `json:"visible,omitempty"`
	Locked   *bool           `json:"locked,omitempty"`
	ZIndex   int             `json:"zIndex"`
	Data     json.RawMessage `json:"data"`
}

// MarshalJSON writes the element in the scene document schema.
func (e Element) MarshalJSON() ([]byte, error) {
	e.MustValidate()

	data, err := json.Marshal(e.Data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", e.Kind(), err)
	}

	w := elementJSON{
		ID:       e.ID,
		Kind:     e.Kind(),
		X:        e.X,
		Y:        e.Y,
		Rotation: &e.Rotation,
		ScaleX:   &e.ScaleX,
		ScaleY:   &e.ScaleY,
		Opacity:  &e.Opacity,
		Visible:  &e.Visible,
		Locked:   &e.Locked,
		ZIndex:   e.ZIndex,
		Data:     data,
	}
	// Circles and lines derive their box from the payload; a size set on
	// them anyway is still written so that it survives a round trip.
	if e.UsesSize() || e.Width != 0 || e.Height != 0 {
		w.Width, w.Height = &e.Width, &e.Height
	}
	return json.Marshal(w)
}

// UnmarshalJSON reads an element, applying schema defaults for absent
// optional fields.
func (e *Element) UnmarshalJSON(b []byte) error {
	var w elementJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	if w.ID == "" {
		return ErrMissingID
	}

	data, err := decodePayload(w.Kind, w.Data)
	if err != nil {
		return fmt.Errorf("element %s: %w", w.ID, err)
	}

	*e = Element{
		ID:       w.ID,
		X:        w.X,
		Y:        w.Y,
		Width:    deref(w.Width, 0),
		Height:   deref(w.Height, 0),
		Rotation: deref(w.Rotation, 0),
		ScaleX:   deref(w.ScaleX, 1),
		ScaleY:   deref(w.ScaleY, 1),
		Opacity:  deref(w.Opacity, 1),
		Visible:  deref(w.Visible, true),
		Locked:   deref(w.Locked, false),
		ZIndex:   w.ZIndex,
		Data:     data,
	}
	return nil
}

func decodePayload(kind Kind, raw json.RawMessage) (Payload, error) {
	var p Payload
	switch kind {
	case KindRectangle:
		p = &RectData{}
	case KindCircle:
		p = &CircleData{}
	case KindText:
		p = &TextData{}
	case KindLine:
		p = &LineData{}
	case KindImage:
		p = &ImageData{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	if len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		if err := json.Unmarshal(raw, p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", kind, err)
		}
	}

	// Payloads are stored by value.
	switch d := p.(type) {
	case *RectData:
		return *d, nil
	case *CircleData:
		return *d, nil
	case *TextData:
		return *d, nil
	case *LineData:
		return *d, nil
	default:
		return *p.(*ImageData), nil
	}
}

type fileJSON struct {
	Version     string          `json:"version"`
	Elements    []Element       `json:"elements"`
	CanvasState *View           `json:"canvasState,omitempty"`
	Timestamp   json.RawMessage `json:"timestamp,omitempty"`
}

// MarshalJSON writes the document with an RFC 3339 timestamp.
func (f File) MarshalJSON() ([]byte, error) {
	version := f.Version
	if version == "" {
		version = SchemaVersion
	}
	elements := f.Elements
	if elements == nil {
		elements = []Element{}
	}
	ts, err := json.Marshal(f.Timestamp.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, err
	}
	view := f.CanvasState
	return json.Marshal(fileJSON{
		Version:     version,
		Elements:    elements,
		CanvasState: &view,
		Timestamp:   ts,
	})
}

// UnmarshalJSON reads a document, accepting either an ISO-8601 string or
// epoch milliseconds as the timestamp, and rejects duplicate element ids.
func (f *File) UnmarshalJSON(b []byte) error {
	// Absent view fields keep their defaults.
	view := DefaultView()
	w := fileJSON{CanvasState: &view}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}

	ts, err := parseTimestamp(w.Timestamp)
	if err != nil {
		return err
	}
	if err := checkUniqueIDs(w.Elements); err != nil {
		return err
	}

	view = view.normalize()
	version := w.Version
	if version == "" {
		version = SchemaVersion
	}

	*f = File{
		Version:     version,
		Elements:    w.Elements,
		CanvasState: view,
		Timestamp:   ts,
	}
	if f.Elements == nil {
		f.Elements = []Element{}
	}
	return nil
}

// Decode parses a serialized scene document.
func Decode(b []byte) (*File, error) {
	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &f, nil
}

func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q", ErrBadTimestamp, s)
		}
		return t, nil
	}

	ms, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		var f float64
		if ferr := json.Unmarshal(raw, &f); ferr != nil {
			return time.Time{}, fmt.Errorf("%w: %s", ErrBadTimestamp, raw)
		}
		ms = int64(f)
	}
	return time.UnixMilli(ms).UTC(), nil
}

func checkUniqueIDs(elements []Element) error {
	seen := make(map[string]struct{}, len(elements))
	for _, el := range elements {
		if _, dup := seen[el.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateID, el.ID)
		}
		seen[el.ID] = struct{}{}
	}
	return nil
}

func deref[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}
