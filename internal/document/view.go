package document

import "github.com/inamate/freecanvas/internal/geom"

const (
	MinScale        = 0.1
	MaxScale        = 10
	DefaultGridSize = 20
)

// View is the document-level viewport state.
type View struct {
	Scale       float64    `json:"scale"`
	Position    geom.Point `json:"position"`
	GridVisible bool       `json:"gridVisible"`
	GridSize    float64    `json:"gridSize"`
	SnapToGrid  bool       `json:"snapToGrid"`
}

// DefaultView returns the view of a freshly created document.
func DefaultView() View {
	return View{
		Scale:    1,
		GridSize: DefaultGridSize,
	}
}

// ViewPatch is a partial view update. Nil fields are left untouched.
type ViewPatch struct {
	Scale       *float64
	Position    *geom.Point
	GridVisible *bool
	GridSize    *float64
	SnapToGrid  *bool
}

// Apply merges the patch into v, clamping the scale and ignoring a
// non-positive grid size.
func (p ViewPatch) Apply(v View) View {
	if p.Scale != nil {
		v.Scale = *p.Scale
	}
	if p.Position != nil {
		v.Position = *p.Position
	}
	if p.GridVisible != nil {
		v.GridVisible = *p.GridVisible
	}
	if p.GridSize != nil && *p.GridSize > 0 {
		v.GridSize = *p.GridSize
	}
	if p.SnapToGrid != nil {
		v.SnapToGrid = *p.SnapToGrid
	}
	return v.normalize()
}

func (v View) normalize() View {
	v.Scale = geom.Clamp(v.Scale, MinScale, MaxScale)
	if v.GridSize <= 0 {
		v.GridSize = DefaultGridSize
	}
	return v
}

// Matrix returns the document-to-screen transform.
func (v View) Matrix() geom.Matrix2D {
	return geom.Translate(v.Position.X, v.Position.Y).Multiply(geom.Scale(v.Scale, v.Scale))
}

// ToDocument converts a screen point to document coordinates.
func (v View) ToDocument(screen geom.Point) geom.Point {
	return v.Matrix().Invert().TransformPoint(screen)
}

// ZoomAt scales the view by factor while keeping the document point under the
// screen point fixed.
func (v View) ZoomAt(screen geom.Point, factor float64) View {
	anchor := v.ToDocument(screen)
	v.Scale = geom.Clamp(v.Scale*factor, MinScale, MaxScale)
	v.Position = geom.Point{
		X: screen.X - anchor.X*v.Scale,
		Y: screen.Y - anchor.Y*v.Scale,
	}
	return v
}
