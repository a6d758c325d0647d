package snap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/freecanvas/internal/document"
	"github.com/inamate/freecanvas/internal/geom"
)

func box(id string, x, y, w, h float64) document.Element {
	el := document.NewRect(x, y, w, h, document.RectData{})
	el.ID = id
	return el
}

func circle(id string, cx, cy, r float64) document.Element {
	el := document.NewCircle(cx, cy, document.CircleData{Radius: r})
	el.ID = id
	return el
}

func guidesOf(res DragResult, o Orientation) []Guide {
	var out []Guide
	for _, g := range res.Guides {
		if g.Orientation == o {
			out = append(out, g)
		}
	}
	return out
}

func TestDragSnapsRightEdgeToCircleLeftEdge(t *testing.T) {
	moving := box("rect", 0, 0, 100, 100)
	sibling := circle("circle", 200, 100, 50)

	res := Drag(moving, []document.Element{sibling}, 52, 0, Options{Scale: 1})

	require.True(t, res.SnappedX)
	assert.Equal(t, 50.0, res.Position.X)
	assert.Equal(t, 0.0, res.Position.Y)
	assert.Equal(t, -2.0, res.Correction.X)
	assert.False(t, res.SnappedY)

	vertical := guidesOf(res, Vertical)
	require.Len(t, vertical, 1)
	assert.Equal(t, 150.0, vertical[0].Position)
	assert.Equal(t, AnchorEnd, vertical[0].Moving)
	assert.Equal(t, AnchorStart, vertical[0].Target)
	assert.Equal(t, -10.0, vertical[0].Start)
	assert.Equal(t, 160.0, vertical[0].End)
	assert.Empty(t, guidesOf(res, Horizontal))
}

func TestDragAlreadyAlignedHasZeroCorrection(t *testing.T) {
	moving := box("a", 10, 300, 40, 40)
	sibling := box("b", 10, 0, 80, 80)

	res := Drag(moving, []document.Element{sibling}, 0, 0, Options{Scale: 1})

	require.True(t, res.SnappedX)
	assert.Equal(t, 0.0, res.Correction.X)
	assert.Equal(t, moving.X, res.Position.X)
	assert.Equal(t, moving.Y, res.Position.Y)
}

func TestDragOutsideThresholdKeepsDropPosition(t *testing.T) {
	moving := box("a", 0, 0, 10, 10)
	sibling := box("b", 100, 100, 30, 30)

	res := Drag(moving, []document.Element{sibling}, 7, 3, Options{Scale: 1})

	assert.False(t, res.SnappedX)
	assert.False(t, res.SnappedY)
	assert.Equal(t, geom.Point{X: 7, Y: 3}, res.Position)
	assert.Empty(t, res.Guides)
}

func TestDragThresholdScalesWithZoom(t *testing.T) {
	moving := box("a", 0, 0, 10, 10)
	sibling := box("b", 13, 200, 10, 10)

	// Three document units is 6 screen pixels at 2x zoom: no snap.
	assert.False(t, Drag(moving, []document.Element{sibling}, 0, 0, Options{Scale: 2}).SnappedX)
	// At 0.5x it is 1.5 screen pixels: snap.
	res := Drag(moving, []document.Element{sibling}, 0, 0, Options{Scale: 0.5})
	assert.True(t, res.SnappedX)
	assert.Equal(t, 3.0, res.Position.X, "right edge meets the sibling's left edge")
}

func TestDragFirstCandidatePerAxisWins(t *testing.T) {
	moving := box("m", 0, 0, 10, 10)
	first := box("first", 2, 500, 10, 10)
	second := box("second", -1, 800, 10, 10)

	res := Drag(moving, []document.Element{first, second}, 0, 0, Options{Scale: 1})

	assert.Equal(t, 2.0, res.Position.X)
	assert.GreaterOrEqual(t, len(guidesOf(res, Vertical)), 2, "every alignment is reported")
}

func TestDragSkipsSelfAndHidden(t *testing.T) {
	moving := box("m", 0, 0, 10, 10)
	hidden := box("h", 1, 1, 10, 10)
	hidden.Visible = false

	res := Drag(moving, []document.Element{moving, hidden}, 0, 0, Options{Scale: 1})
	assert.Empty(t, res.Guides)
	assert.Empty(t, res.SizeGuides)
}

func TestDragGridFallback(t *testing.T) {
	moving := box("m", 0, 0, 10, 10)

	res := Drag(moving, nil, 33, 47, Options{Scale: 1, GridSize: 20, SnapToGrid: true})
	assert.Equal(t, geom.Point{X: 40, Y: 40}, res.Position)
	assert.True(t, res.GridX)
	assert.True(t, res.GridY)

	// An alignment on X suppresses the grid on that axis only.
	sibling := box("s", 35, 500, 10, 10)
	res = Drag(moving, []document.Element{sibling}, 33, 47, Options{Scale: 1, GridSize: 20, SnapToGrid: true})
	assert.Equal(t, 35.0, res.Position.X)
	assert.False(t, res.GridX)
	assert.Equal(t, 40.0, res.Position.Y)
	assert.True(t, res.GridY)
}

func TestDragSizeGuidesAreAdvisory(t *testing.T) {
	moving := box("m", 0, 0, 100, 40)
	sibling := box("s", 400, 400, 102, 300)

	res := Drag(moving, []document.Element{sibling}, 0, 0, Options{Scale: 1})

	require.Len(t, res.SizeGuides, 1)
	g := res.SizeGuides[0]
	assert.Equal(t, Width, g.Dimension)
	assert.Equal(t, 102.0, g.Value)
	assert.Equal(t, geom.Point{X: 250.5, Y: 285}, g.Label)
	assert.Equal(t, geom.Point{}, res.Position)
}

func TestResizeComparesSizesOnly(t *testing.T) {
	moving := box("m", 0, 0, 50, 50)
	moving.ScaleX = 2.02
	sibling := box("s", 0, 0, 100, 30)

	res := Resize(moving, []document.Element{sibling}, Options{Scale: 1})

	require.Len(t, res.SizeGuides, 1)
	require.NotNil(t, res.MatchedWidth)
	assert.Equal(t, 100.0, *res.MatchedWidth)
	assert.Nil(t, res.MatchedHeight)
}
