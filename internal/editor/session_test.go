package editor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/freecanvas/internal/document"
	"github.com/inamate/freecanvas/internal/geom"
)

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("el_%d", n)
	}
}

func newSession(opts ...Option) *Session {
	return New(append([]Option{WithIDGenerator(seqIDs())}, opts...)...)
}

func rect(x, y, w, h float64) document.Element {
	return document.NewRect(x, y, w, h, document.RectData{Fill: "#000"})
}

type fakeDecoder struct {
	info ImageInfo
	err  error
}

func (d fakeDecoder) Decode(_ context.Context, src string) (ImageInfo, error) {
	if d.err != nil {
		return ImageInfo{}, d.err
	}
	return d.info, nil
}

func TestAddElementSelectsAndCheckpoints(t *testing.T) {
	s := newSession()
	require.False(t, s.CanUndo())

	el := s.AddElement(rect(0, 0, 100, 100))
	assert.Equal(t, "el_1", el.ID)
	assert.Equal(t, 1, el.ZIndex)
	assert.Equal(t, []string{"el_1"}, s.Selected())
	assert.True(t, s.CanUndo())

	second := s.AddElement(rect(10, 10, 5, 5))
	assert.Equal(t, 2, second.ZIndex)
	assert.Equal(t, []string{"el_2"}, s.Selected())
}

func TestUndoRedoInverseLaw(t *testing.T) {
	s := newSession()
	before := s.Snapshot()

	a := s.AddElement(rect(0, 0, 10, 10))
	b := s.AddElement(rect(50, 50, 10, 10))
	s.CommitElement(a.ID, document.MoveTo(30, 40))
	s.BringToFront(a.ID)
	s.DeleteElements(b.ID)
	after := s.Snapshot()
	const n = 5

	for i := 0; i < n; i++ {
		require.True(t, s.Undo(), "undo %d", i)
	}
	assert.False(t, s.Undo())
	if diff := cmp.Diff(before, s.Snapshot()); diff != "" {
		t.Errorf("state after undoing everything (-want +got):\n%s", diff)
	}

	for i := 0; i < n; i++ {
		require.True(t, s.Redo(), "redo %d", i)
	}
	assert.False(t, s.Redo())
	if diff := cmp.Diff(after, s.Snapshot()); diff != "" {
		t.Errorf("state after redoing everything (-want +got):\n%s", diff)
	}
}

func TestLiveUpdatesAreNotCheckpointed(t *testing.T) {
	s := newSession()
	el := s.AddElement(rect(0, 0, 10, 10))

	for x := 1.0; x <= 10; x++ {
		s.UpdateElement(el.ID, document.MoveTo(x, 0))
	}
	s.Checkpoint()

	require.True(t, s.Undo())
	got, ok := s.Element(el.ID)
	require.True(t, ok)
	assert.Equal(t, 0.0, got.X, "one undo skips every live frame")
}

func TestNewEditAfterUndoDiscardsRedo(t *testing.T) {
	s := newSession()
	s.AddElement(rect(0, 0, 10, 10))
	s.AddElement(rect(0, 0, 10, 10))
	s.Undo()
	s.Undo()

	s.AddElement(rect(5, 5, 10, 10))
	assert.False(t, s.CanRedo())
	assert.Len(t, s.Elements(), 1)
}

func TestStaleIDsAreIgnored(t *testing.T) {
	s := newSession()
	s.AddElement(rect(0, 0, 10, 10))

	assert.False(t, s.CommitElement("missing", document.MoveTo(1, 1)))
	assert.Equal(t, 0, s.DeleteElements("missing"))
	assert.False(t, s.BringToFront("missing"))
	s.Select("missing", true)
	assert.Equal(t, []string{"el_1"}, s.Selected())

	s.Undo()
	assert.False(t, s.CanUndo(), "no-ops add no checkpoints")
}

func TestCommitNormalizesText(t *testing.T) {
	s := newSession()
	el := s.AddElement(document.NewText(0, 0, 100, 20, document.TextData{Text: "hi", FontSize: 16}))

	s.CommitElement(el.ID, document.Patch{ScaleX: document.Ptr(2.0), ScaleY: document.Ptr(1.5)})

	got, _ := s.Element(el.ID)
	assert.Equal(t, 200.0, got.Width)
	assert.Equal(t, 30.0, got.Height)
	assert.Equal(t, 1.0, got.ScaleX)
	assert.Equal(t, 1.0, got.ScaleY)
}

func TestBringToFrontExceedsEveryOther(t *testing.T) {
	s := newSession()
	a := s.AddElement(rect(0, 0, 10, 10))
	s.AddElement(rect(0, 0, 10, 10))
	s.AddElement(rect(0, 0, 10, 10))

	require.True(t, s.BringToFront(a.ID))
	front, _ := s.Element(a.ID)
	for _, el := range s.Elements() {
		if el.ID != a.ID {
			assert.Greater(t, front.ZIndex, el.ZIndex)
		}
	}
	assert.False(t, s.BringToFront(a.ID), "already in front")
}

func TestMoveSelectionSkipsLocked(t *testing.T) {
	s := newSession()
	a := s.AddElement(rect(0, 0, 10, 10))
	b := s.AddElement(rect(0, 0, 10, 10))
	s.CommitElement(b.ID, document.Patch{Locked: document.Ptr(true)})
	s.SelectAll()

	require.True(t, s.MoveSelection(10, -5))

	got, _ := s.Element(a.ID)
	assert.Equal(t, geom.Point{X: 10, Y: -5}, geom.Point{X: got.X, Y: got.Y})
	locked, _ := s.Element(b.ID)
	assert.Equal(t, 0.0, locked.X)
}

func TestViewChangesAreNotRecorded(t *testing.T) {
	var commits int
	s := newSession(WithOnCommit(func(Snapshot) { commits++ }))

	s.SetView(document.ViewPatch{Scale: document.Ptr(50.0)})
	assert.Equal(t, float64(document.MaxScale), s.View().Scale)
	s.Pan(10, 20)
	assert.Equal(t, geom.Point{X: 10, Y: 20}, s.View().Position)

	assert.False(t, s.CanUndo())
	assert.Equal(t, 2, commits)
}

func TestZoomAtKeepsAnchor(t *testing.T) {
	s := newSession()
	s.Pan(100, 50)
	anchor := s.View().ToDocument(geom.Point{X: 300, Y: 200})

	s.ZoomAt(geom.Point{X: 300, Y: 200}, 2)

	v := s.View()
	assert.Equal(t, 2.0, v.Scale)
	assert.InDelta(t, anchor.X, v.ToDocument(geom.Point{X: 300, Y: 200}).X, 1e-9)
	assert.InDelta(t, anchor.Y, v.ToDocument(geom.Point{X: 300, Y: 200}).Y, 1e-9)
}

func TestOnCommitReceivesCopies(t *testing.T) {
	var got []Snapshot
	s := newSession(WithOnCommit(func(snap Snapshot) { got = append(got, snap) }))

	el := s.AddElement(rect(0, 0, 10, 10))
	s.UpdateElement(el.ID, document.MoveTo(99, 99))
	require.Len(t, got, 1, "live updates do not fire the hook")
	assert.Equal(t, 0.0, got[0].Elements[0].X)

	s.Undo()
	assert.Len(t, got, 2)
	assert.Empty(t, got[1].Elements)
}

func TestCommittedSnapshotSerializesWithTimestamp(t *testing.T) {
	var got Snapshot
	s := newSession(WithOnCommit(func(snap Snapshot) { got = snap }))
	s.AddElement(rect(0, 0, 10, 10))

	at := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	data, err := json.Marshal(got.File(at))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"timestamp":"2024-05-06T07:08:09Z"`)
	assert.NotContains(t, string(data), "0001-01-01")

	f, err := document.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, document.SchemaVersion, f.Version)
	assert.Len(t, f.Elements, 1)
	assert.True(t, f.Timestamp.Equal(at))
}

func TestLoadResetsHistory(t *testing.T) {
	s := newSession()
	s.AddElement(rect(0, 0, 10, 10))
	s.Copy()

	other := rect(5, 5, 1, 1)
	other.ID = "loaded"
	other.ZIndex = 7
	view := document.DefaultView()
	view.Scale = 2
	s.Load(document.File{Elements: []document.Element{other}, CanvasState: view})

	assert.False(t, s.CanUndo())
	assert.Empty(t, s.Selected())
	assert.Equal(t, 0, s.ClipboardLen())
	assert.Equal(t, 2.0, s.View().Scale)

	f := s.File()
	assert.Equal(t, document.SchemaVersion, f.Version)
	require.Len(t, f.Elements, 1)
	assert.Equal(t, "loaded", f.Elements[0].ID)
}

func TestFrameReportsHistory(t *testing.T) {
	s := newSession()
	s.AddElement(rect(0, 0, 10, 10))

	f := s.Frame()
	assert.True(t, f.CanUndo)
	assert.False(t, f.CanRedo)
	assert.Equal(t, []string{"el_1"}, f.Selection)
	require.Len(t, f.Items, 1)
}

func TestAddImage(t *testing.T) {
	s := newSession(WithDecoder(fakeDecoder{info: ImageInfo{Width: 1600, Height: 400}}))

	el, err := s.AddImage(context.Background(), "data:image/png;base64,AAAA", geom.Point{X: 10, Y: 20})
	require.NoError(t, err)
	assert.Equal(t, document.KindImage, el.Kind())
	assert.Equal(t, 800.0, el.Width)
	assert.Equal(t, 200.0, el.Height)
	data := el.Data.(document.ImageData)
	assert.Equal(t, 1600.0, data.NaturalWidth)
	assert.Equal(t, "data:image/png;base64,AAAA", data.Src)
}

func TestAddImageFailureLeavesDocument(t *testing.T) {
	s := newSession(WithDecoder(fakeDecoder{err: errors.New("truncated")}))

	_, err := s.AddImage(context.Background(), "data:image/png;base64,", geom.Point{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrImageDecode)
	assert.Empty(t, s.Elements())
	assert.False(t, s.CanUndo())

	_, err = newSession().AddImage(context.Background(), "x", geom.Point{})
	assert.ErrorIs(t, err, ErrImageDecode)
}
