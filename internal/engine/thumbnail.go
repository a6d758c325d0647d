package engine

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/vector"

	"github.com/inamate/freecanvas/internal/document"
	"github.com/inamate/freecanvas/internal/geom"
)

const (
	// Thumbnails are rasterized at this multiple and scaled down.
	supersample    = 2
	thumbPadding   = 8
	circleSegments = 48
)

var (
	thumbBackground = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	fallbackFill    = color.NRGBA{R: 0xcc, G: 0xcc, B: 0xcc, A: 0xff}
	imageFill       = color.NRGBA{R: 0xd0, G: 0xd8, B: 0xe8, A: 0xff}
)

// Thumbnail renders a coarse preview of the visible elements fitted into a
// width x height image. Text and images are drawn as filled boxes.
func Thumbnail(elements []document.Element, width, height int) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(out, out.Bounds(), image.NewUniform(thumbBackground), image.Point{}, draw.Src)

	ordered := make([]document.Element, 0, len(elements))
	var content geom.Rect
	for _, el := range elements {
		if !el.Visible || el.Data == nil {
			continue
		}
		ordered = append(ordered, el.Clone())
		content = content.Union(el.Bounds())
	}
	if len(ordered) == 0 || width <= 0 || height <= 0 {
		return out
	}
	document.SortPaintOrder(ordered)

	sw, sh := width*supersample, height*supersample
	big := image.NewRGBA(image.Rect(0, 0, sw, sh))
	draw.Draw(big, big.Bounds(), image.NewUniform(thumbBackground), image.Point{}, draw.Src)

	fit := fitTransform(content, float64(sw), float64(sh), thumbPadding*supersample)
	r := vector.NewRasterizer(sw, sh)
	for _, el := range ordered {
		paintElement(r, big, fit, el)
	}

	draw.BiLinear.Scale(out, out.Bounds(), big, big.Bounds(), draw.Src, nil)
	return out
}

// ThumbnailDataURL renders a thumbnail and encodes it as a PNG data URL.
func ThumbnailDataURL(elements []document.Element, width, height int) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, Thumbnail(elements, width, height)); err != nil {
		return "", fmt.Errorf("encode thumbnail: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// fitTransform maps content into a w x h canvas with padding, preserving
// aspect ratio and centering the result.
func fitTransform(content geom.Rect, w, h, pad float64) geom.Matrix2D {
	cw, ch := math.Max(content.Width, 1), math.Max(content.Height, 1)
	s := math.Min((w-2*pad)/cw, (h-2*pad)/ch)
	if s <= 0 || math.IsInf(s, 0) || math.IsNaN(s) {
		s = 1
	}
	ox := (w - cw*s) / 2
	oy := (h - ch*s) / 2
	return geom.Translate(ox, oy).
		Multiply(geom.Scale(s, s)).
		Multiply(geom.Translate(-content.X, -content.Y))
}

func paintElement(r *vector.Rasterizer, dst draw.Image, fit geom.Matrix2D, el document.Element) {
	m := fit.Multiply(el.Transform())
	scale := math.Sqrt(math.Abs(m.Determinant()))

	switch d := el.Data.(type) {
	case document.RectData:
		box := boxPolygon(el.Width, el.Height)
		fillPolygon(r, dst, m, box, parseColor(d.Fill, el.Opacity))
		if d.Stroke != "" && d.StrokeWidth > 0 {
			strokePolyline(r, dst, m, append(box, box[0]), d.StrokeWidth*scale, parseColor(d.Stroke, el.Opacity))
		}
	case document.CircleData:
		ring := circlePolygon(d.Radius)
		fillPolygon(r, dst, m, ring, parseColor(d.Fill, el.Opacity))
		if d.Stroke != "" && d.StrokeWidth > 0 {
			strokePolyline(r, dst, m, append(ring, ring[0]), d.StrokeWidth*scale, parseColor(d.Stroke, el.Opacity))
		}
	case document.TextData:
		w, h := el.Size()
		fillPolygon(r, dst, m, boxPolygon(w, h), parseColor(d.Fill, el.Opacity*0.35))
	case document.ImageData:
		fillPolygon(r, dst, m, boxPolygon(el.Width, el.Height), withOpacity(imageFill, el.Opacity))
	case document.LineData:
		pts := geom.FlatPoints(d.Points)
		if d.Closed && len(pts) > 2 {
			pts = append(pts, pts[0])
		}
		strokePolyline(r, dst, m, pts, math.Max(d.StrokeWidth, 1)*scale, parseColor(d.Stroke, el.Opacity))
	}
}

func boxPolygon(w, h float64) []geom.Point {
	return []geom.Point{{X: 0, Y: 0}, {X: w, Y: 0}, {X: w, Y: h}, {X: 0, Y: h}}
}

func circlePolygon(radius float64) []geom.Point {
	pts := make([]geom.Point, circleSegments)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / circleSegments
		pts[i] = geom.Point{X: radius * math.Cos(a), Y: radius * math.Sin(a)}
	}
	return pts
}

func fillPolygon(r *vector.Rasterizer, dst draw.Image, m geom.Matrix2D, poly []geom.Point, c color.NRGBA) {
	if len(poly) < 3 || c.A == 0 {
		return
	}
	b := dst.Bounds()
	r.Reset(b.Dx(), b.Dy())
	for i, p := range poly {
		q := m.TransformPoint(p)
		if i == 0 {
			r.MoveTo(float32(q.X), float32(q.Y))
			continue
		}
		r.LineTo(float32(q.X), float32(q.Y))
	}
	r.ClosePath()
	r.Draw(dst, b, image.NewUniform(c), image.Point{})
}

// strokePolyline draws each segment as a quad of the given pixel width.
func strokePolyline(r *vector.Rasterizer, dst draw.Image, m geom.Matrix2D, pts []geom.Point, width float64, c color.NRGBA) {
	if len(pts) < 2 || c.A == 0 {
		return
	}
	hw := math.Max(width, 0.75*supersample) / 2
	b := dst.Bounds()
	r.Reset(b.Dx(), b.Dy())

	for i := 1; i < len(pts); i++ {
		a, z := m.TransformPoint(pts[i-1]), m.TransformPoint(pts[i])
		dx, dy := z.X-a.X, z.Y-a.Y
		l := math.Hypot(dx, dy)
		if l == 0 {
			continue
		}
		nx, ny := -dy/l*hw, dx/l*hw
		r.MoveTo(float32(a.X+nx), float32(a.Y+ny))
		r.LineTo(float32(z.X+nx), float32(z.Y+ny))
		r.LineTo(float32(z.X-nx), float32(z.Y-ny))
		r.LineTo(float32(a.X-nx), float32(a.Y-ny))
		r.ClosePath()
	}
	r.Draw(dst, b, image.NewUniform(c), image.Point{})
}

// parseColor understands #rgb, #rrggbb and #rrggbbaa; anything else renders
// with a neutral fallback, and "transparent" or "" not at all.
func parseColor(s string, opacity float64) color.NRGBA {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" || s == "transparent" || s == "none" {
		return color.NRGBA{}
	}

	c := fallbackFill
	if hex, ok := strings.CutPrefix(s, "#"); ok {
		if len(hex) == 3 {
			hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
		}
		if len(hex) == 6 {
			hex += "ff"
		}
		if v, err := strconv.ParseUint(hex, 16, 32); err == nil && len(hex) == 8 {
			c = color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}
		}
	}
	return withOpacity(c, opacity)
}

func withOpacity(c color.NRGBA, opacity float64) color.NRGBA {
	c.A = uint8(math.Round(float64(c.A) * geom.Clamp(opacity, 0, 1)))
	return c
}
