package document

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFile() File {
	text := NewText(10, 20, 200, 0, TextData{
		Text:       "hello\nworld",
		FontFamily: "Inter",
		FontSize:   24,
		FontWeight: "bold",
		Fill:       "#111",
	})
	text.ID, text.ZIndex = "el_text", 3

	circle := NewCircle(200, 100, CircleData{Radius: 50, Fill: "#0f0"})
	circle.ID, circle.ZIndex = "el_circle", 2
	circle.Locked = true

	line := NewLine(5, 5, LineData{Points: []float64{0, 0, 30, 40}, Stroke: "#000", StrokeWidth: 2, Freehand: true})
	line.ID, line.ZIndex = "el_line", 4
	line.Rotation = 45

	img := NewImage(0, 0, 64, 32, ImageData{Src: "data:image/png;base64,AAAA", NaturalWidth: 128, NaturalHeight: 64})
	img.ID, img.ZIndex = "el_img", 5
	img.Opacity = 0.5
	img.Visible = false

	r := rect(0, 0, 100, 100)
	r.ID, r.ZIndex = "el_rect", 1
	r.ScaleX = 2

	return File{
		Version:  SchemaVersion,
		Elements: []Element{r, circle, text, line, img},
		CanvasState: View{
			Scale:       1.5,
			Position:    pt(-30, 12.5),
			GridVisible: true,
			GridSize:    25,
			SnapToGrid:  true,
		},
		Timestamp: time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC),
	}
}

func TestFileRoundTrip(t *testing.T) {
	want := sampleFile()

	b, err := json.Marshal(want)
	require.NoError(t, err)

	got, err := Decode(b)
	require.NoError(t, err)

	assert.Empty(t, cmp.Diff(want.Elements, got.Elements))
	assert.Equal(t, want.CanvasState, got.CanvasState)
	assert.True(t, want.Timestamp.Equal(got.Timestamp))
	assert.Equal(t, SchemaVersion, got.Version)
}

func TestElementWireShape(t *testing.T) {
	b, err := json.Marshal(sampleFile().Elements[1])
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	assert.Equal(t, "circle", raw["kind"])
	assert.NotContains(t, raw, "width", "circles carry a radius, not a size")
	assert.Equal(t, 50.0, raw["data"].(map[string]any)["radius"])
}

func TestPatchedSizeOnCircleAndLineSurvives(t *testing.T) {
	s := NewScene()
	circle := s.Add(NewCircle(0, 0, CircleData{Radius: 10}))
	line := s.Add(NewLine(0, 0, LineData{Points: []float64{0, 0, 5, 5}}))
	s.Update(circle.ID, Patch{Width: Ptr(30.0), Height: Ptr(40.0)})
	s.Update(line.ID, Patch{Width: Ptr(12.0)})

	b, err := json.Marshal(File{Elements: s.Elements(), CanvasState: s.View()})
	require.NoError(t, err)
	got, err := Decode(b)
	require.NoError(t, err)

	if diff := cmp.Diff(s.Elements(), got.Elements); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeAppliesDefaults(t *testing.T) {
	f, err := Decode([]byte(`{
		"version": "1.0.0",
		"elements": [{"id": "a", "kind": "rectangle", "x": 1, "y": 2, "width": 3, "height": 4, "zIndex": 1, "data": {"fill": "red"}}],
		"timestamp": 1700000000000
	}`))
	require.NoError(t, err)
	require.Len(t, f.Elements, 1)

	el := f.Elements[0]
	assert.Equal(t, 1.0, el.ScaleX)
	assert.Equal(t, 1.0, el.ScaleY)
	assert.Equal(t, 1.0, el.Opacity)
	assert.True(t, el.Visible)
	assert.False(t, el.Locked)
	assert.Equal(t, RectData{Fill: "red"}, el.Data)
	assert.Equal(t, DefaultView(), f.CanvasState)
	assert.Equal(t, int64(1700000000000), f.Timestamp.UnixMilli())
}

func TestDecodePartialViewKeepsDefaults(t *testing.T) {
	f, err := Decode([]byte(`{"elements": [], "canvasState": {"gridVisible": true, "position": {"x": 40, "y": -8}}}`))
	require.NoError(t, err)

	want := DefaultView()
	want.GridVisible = true
	want.Position.X, want.Position.Y = 40, -8
	assert.Equal(t, want, f.CanvasState)
	assert.Equal(t, 1.0, f.CanvasState.Scale)

	f, err = Decode([]byte(`{"elements": [], "canvasState": null}`))
	require.NoError(t, err)
	assert.Equal(t, DefaultView(), f.CanvasState)
}

func TestDecodeRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"corrupt json":    `{"elements": [`,
		"unknown kind":    `{"elements": [{"id": "a", "kind": "star", "zIndex": 1}]}`,
		"missing id":      `{"elements": [{"kind": "circle", "zIndex": 1}]}`,
		"duplicate ids":   `{"elements": [{"id": "a", "kind": "circle", "zIndex": 1}, {"id": "a", "kind": "circle", "zIndex": 2}]}`,
		"bad timestamp":   `{"elements": [], "timestamp": "yesterday"}`,
		"payload mistype": `{"elements": [{"id": "a", "kind": "circle", "zIndex": 1, "data": {"radius": "big"}}]}`,
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(input))
			assert.Error(t, err)
		})
	}
}

func TestDecodeErrorsAreInspectable(t *testing.T) {
	_, err := Decode([]byte(`{"elements": [{"id": "a", "kind": "star"}]}`))
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = Decode([]byte(`{"elements": [{"id": "a", "kind": "text"}, {"id": "a", "kind": "text"}]}`))
	assert.ErrorIs(t, err, ErrDuplicateID)
}
