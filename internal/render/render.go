// Package render projects an annotation document onto a display of a given
// pixel size. The output is plain data (paths and positioned labels) that a
// UI toolkit, the PDF exporter or the PNG rasterizer can draw.
package render

import (
	"strconv"
	"strings"

	"github.com/golang/geo/r2"

	"github.com/clinicboard/annotator/internal/state"
)

// LabelSize is the font size, in display pixels, used for text labels.
const LabelSize = 20

// ReferenceWidth is the display width, in pixels, that stroke widths and
// LabelSize are chosen for. Exports at other sizes scale them by
// width/ReferenceWidth.
const ReferenceWidth = 400

// OpKind distinguishes the two path operations.
type OpKind int

const (
	MoveTo OpKind = iota
	LineTo
)

// Op is one path operation in display pixels.
type Op struct {
	Kind OpKind
	X, Y float64
}

// Path is a stroke projected onto the display.
type Path struct {
	StrokeID string
	Color    string
	Width    float64
	Ops      []Op
	Bounds   r2.Rect
}

// Glyph is a text label projected onto the display. (X, Y) is the baseline
// origin.
type Glyph struct {
	LabelID string
	Text    string
	X, Y    float64
	Color   string
	Size    float64
}

// Frame is everything to draw for one document on one display.
type Frame struct {
	Width, Height float64
	Paths         []Path
	Glyphs        []Glyph
	// Draft is the stroke still being drawn, nil when there is none.
	Draft *Path
}

// Render builds the frame for doc shown at width×height pixels. draft may be
// nil.
func Render(doc state.Document, draft *state.Stroke, width, height float64) Frame {
	f := Frame{
		Width:  width,
		Height: height,
		Paths:  make([]Path, 0, len(doc.Strokes)),
		Glyphs: make([]Glyph, 0, len(doc.Texts)),
	}
	for _, s := range doc.Strokes {
		f.Paths = append(f.Paths, strokePath(s, width, height))
	}
	for _, t := range doc.Texts {
		x, y := state.Denormalize(t.X, t.Y, width, height)
		f.Glyphs = append(f.Glyphs, Glyph{
			LabelID: t.ID,
			Text:    t.Text,
			X:       x,
			Y:       y,
			Color:   t.Color,
			Size:    LabelSize,
		})
	}
	if draft != nil {
		p := strokePath(*draft, width, height)
		f.Draft = &p
	}
	return f
}

func strokePath(s state.Stroke, width, height float64) Path {
	p := Path{
		StrokeID: s.ID,
		Color:    s.Color,
		Width:    s.Width,
		Ops:      make([]Op, 0, len(s.Points)),
		Bounds:   r2.EmptyRect(),
	}
	for i, pt := range s.Points {
		x, y := state.Denormalize(pt.X, pt.Y, width, height)
		kind := LineTo
		if i == 0 {
			kind = MoveTo
		}
		p.Ops = append(p.Ops, Op{Kind: kind, X: x, Y: y})
		p.Bounds = p.Bounds.AddPoint(r2.Point{X: x, Y: y})
	}
	return p
}

// SVG returns the path in SVG path-data syntax, e.g. "M 1 2 L 3 4".
func (p Path) SVG() string {
	var b strings.Builder
	for i, op := range p.Ops {
		if i > 0 {
			b.WriteByte(' ')
		}
		if op.Kind == MoveTo {
			b.WriteString("M ")
		} else {
			b.WriteString("L ")
		}
		b.WriteString(strconv.FormatFloat(op.X, 'f', -1, 64))
		b.WriteByte(' ')
		b.WriteString(strconv.FormatFloat(op.Y, 'f', -1, 64))
	}
	return b.String()
}

// Segments calls fn for every line segment of the path. A single-point path
// yields one zero-length segment so that dots are still drawn.
func (p Path) Segments(fn func(x0, y0, x1, y1 float64)) {
	if len(p.Ops) == 1 {
		fn(p.Ops[0].X, p.Ops[0].Y, p.Ops[0].X, p.Ops[0].Y)
		return
	}
	for i := 1; i < len(p.Ops); i++ {
		fn(p.Ops[i-1].X, p.Ops[i-1].Y, p.Ops[i].X, p.Ops[i].Y)
	}
}

// Bounds is the union of all path bounds, padded by half the stroke width,
// and the label origins. It is empty for an empty frame.
func (f Frame) Bounds() r2.Rect {
	b := r2.EmptyRect()
	for _, p := range f.Paths {
		if len(p.Ops) == 0 {
			continue
		}
		b = b.Union(p.Bounds.ExpandedByMargin(p.Width / 2))
	}
	for _, g := range f.Glyphs {
		b = b.AddPoint(r2.Point{X: g.X, Y: g.Y})
	}
	return b
}

// ScaleStrokes returns a copy of f with stroke widths and label sizes
// multiplied by k. Positions are unchanged.
func (f Frame) ScaleStrokes(k float64) Frame {
	out := f
	out.Paths = make([]Path, len(f.Paths))
	for i, p := range f.Paths {
		p.Width *= k
		out.Paths[i] = p
	}
	out.Glyphs = make([]Glyph, len(f.Glyphs))
	for i, g := range f.Glyphs {
		g.Size *= k
		out.Glyphs[i] = g
	}
	if f.Draft != nil {
		d := *f.Draft
		d.Width *= k
		out.Draft = &d
	}
	return out
}
