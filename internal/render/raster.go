package render

import (
	"image"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/clinicboard/annotator/internal/state"
)

// discSegments is the number of edges used to approximate round joins and
// caps.
const discSegments = 16

// Rasterize draws f onto a new RGBA image of the frame's size. When base is
// non-nil it is scaled to fill the frame first; base itself is not modified.
func Rasterize(f Frame, base image.Image) *image.RGBA {
	w, h := int(math.Ceil(f.Width)), int(math.Ceil(f.Height))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	switch {
	case base == nil:
	case base.Bounds().Size() == dst.Bounds().Size():
		draw.Draw(dst, dst.Bounds(), base, base.Bounds().Min, draw.Src)
	default:
		draw.CatmullRom.Scale(dst, dst.Bounds(), base, base.Bounds(), draw.Src, nil)
	}

	z := vector.NewRasterizer(w, h)
	paths := f.Paths
	if f.Draft != nil {
		paths = append(paths[:len(paths):len(paths)], *f.Draft)
	}
	for _, p := range paths {
		if len(p.Ops) == 0 {
			continue
		}
		z.Reset(w, h)
		tracePath(z, p)
		z.Draw(dst, dst.Bounds(), image.NewUniform(state.RGBA(p.Color)), image.Point{})
	}
	for _, g := range f.Glyphs {
		drawGlyph(dst, g)
	}
	return dst
}

// tracePath adds the outline of a round-joined, round-capped polyline to z.
// Every sub-shape is wound the same way so overlaps do not cancel out.
func tracePath(z *vector.Rasterizer, p Path) {
	r := p.Width / 2
	if r < 0.5 {
		r = 0.5
	}
	p.Segments(func(x0, y0, x1, y1 float64) {
		dx, dy := x1-x0, y1-y0
		l := math.Hypot(dx, dy)
		if l == 0 {
			return
		}
		nx, ny := -dy/l*r, dx/l*r
		polygon(z, []float64{
			x0 + nx, y0 + ny,
			x1 + nx, y1 + ny,
			x1 - nx, y1 - ny,
			x0 - nx, y0 - ny,
		})
	})
	for _, op := range p.Ops {
		disc(z, op.X, op.Y, r)
	}
}

func disc(z *vector.Rasterizer, cx, cy, r float64) {
	pts := make([]float64, 0, 2*discSegments)
	for i := 0; i < discSegments; i++ {
		a := 2 * math.Pi * float64(i) / discSegments
		pts = append(pts, cx+r*math.Cos(a), cy-r*math.Sin(a))
	}
	polygon(z, pts)
}

func polygon(z *vector.Rasterizer, xy []float64) {
	z.MoveTo(float32(xy[0]), float32(xy[1]))
	for i := 2; i+1 < len(xy); i += 2 {
		z.LineTo(float32(xy[i]), float32(xy[i+1]))
	}
	z.ClosePath()
}

// drawGlyph renders the label with the fixed 7x13 face and scales it to the
// glyph size.
func drawGlyph(dst *image.RGBA, g Glyph) {
	face := basicfont.Face7x13
	adv := font.MeasureString(face, g.Text).Ceil()
	if adv == 0 {
		return
	}
	mask := image.NewAlpha(image.Rect(0, 0, adv, face.Height))
	d := font.Drawer{Dst: mask, Src: image.Opaque, Face: face, Dot: fixed.P(0, face.Ascent)}
	d.DrawString(g.Text)

	scale := g.Size / float64(face.Height)
	sw := int(math.Ceil(float64(adv) * scale))
	sh := int(math.Ceil(float64(face.Height) * scale))
	scaled := image.NewAlpha(image.Rect(0, 0, sw, sh))
	draw.BiLinear.Scale(scaled, scaled.Bounds(), mask, mask.Bounds(), draw.Src, nil)

	x0 := int(math.Round(g.X))
	y0 := int(math.Round(g.Y - float64(face.Ascent)*scale))
	r := image.Rect(x0, y0, x0+sw, y0+sh)
	draw.DrawMask(dst, r, image.NewUniform(state.RGBA(g.Color)), image.Point{}, scaled, image.Point{}, draw.Over)
}
