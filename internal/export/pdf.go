// Package export draws an annotation document, optionally over its base
// image, into a PDF report or a PNG.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/clinicboard/annotator/internal/render"
	"github.com/clinicboard/annotator/internal/state"
)

// ErrNoSize is returned when neither a base image nor image dimensions are
// given.
var ErrNoSize = errors.New("export: image size unknown")

// Options describes the image the annotations belong to.
type Options struct {
	// Title is printed above the image in PDF reports.
	Title string
	// Base is drawn under the annotations when set.
	Base image.Image
	// ImageWidth and ImageHeight are the image size in pixels. They are
	// taken from Base when it is set.
	ImageWidth, ImageHeight float64
	// Crop limits PNG output to the annotated area.
	Crop bool
	// Created is stamped into the PDF. Zero means now.
	Created time.Time
}

func (o Options) size() (float64, float64, error) {
	if o.Base != nil {
		b := o.Base.Bounds()
		return float64(b.Dx()), float64(b.Dy()), nil
	}
	if o.ImageWidth <= 0 || o.ImageHeight <= 0 {
		return 0, 0, ErrNoSize
	}
	return o.ImageWidth, o.ImageHeight, nil
}

const (
	pageMargin  = 15.0 // mm
	titleHeight = 10.0 // mm
	mmPerPt     = 25.4 / 72
)

// PDF writes a one-page A4 report with the annotated image fitted inside the
// margins.
func PDF(w io.Writer, doc state.Document, opts Options) error {
	imgW, imgH, err := opts.size()
	if err != nil {
		return err
	}

	p := gofpdf.New("P", "mm", "A4", "")
	p.SetTitle(opts.Title, true)
	p.SetCreator("annotator", true)
	if !opts.Created.IsZero() {
		p.SetCreationDate(opts.Created)
	}
	p.SetMargins(pageMargin, pageMargin, pageMargin)
	p.AddPage()
	tr := p.UnicodeTranslatorFromDescriptor("")

	pageW, pageH := p.GetPageSize()
	x0, y0 := pageMargin, pageMargin
	if opts.Title != "" {
		p.SetFont("Helvetica", "B", 14)
		p.CellFormat(0, titleHeight, tr(opts.Title), "", 1, "L", false, 0, "")
		y0 += titleHeight
	}
	w0, h0 := state.DisplaySize(imgW, imgH, pageW-2*pageMargin, pageH-pageMargin-y0)

	if opts.Base != nil {
		var buf bytes.Buffer
		if err := png.Encode(&buf, opts.Base); err != nil {
			return fmt.Errorf("encode base image: %w", err)
		}
		imgOpts := gofpdf.ImageOptions{ImageType: "PNG"}
		p.RegisterImageOptionsReader("base", imgOpts, &buf)
		p.ImageOptions("base", x0, y0, w0, h0, false, imgOpts, 0, "")
	}

	// stroke widths are display pixels on a ReferenceWidth-wide view
	frame := render.Render(doc, nil, w0, h0).ScaleStrokes(w0 / render.ReferenceWidth)

	p.SetLineCapStyle("round")
	p.SetLineJoinStyle("round")
	for _, path := range frame.Paths {
		if len(path.Ops) == 0 {
			continue
		}
		c := state.RGBA(path.Color)
		p.SetDrawColor(int(c.R), int(c.G), int(c.B))
		p.SetLineWidth(path.Width)
		for i, op := range path.Ops {
			if i == 0 {
				p.MoveTo(x0+op.X, y0+op.Y)
			}
			// a lone MoveTo strokes nothing; repeat the point so dots show
			p.LineTo(x0+op.X, y0+op.Y)
		}
		p.DrawPath("D")
	}
	for _, g := range frame.Glyphs {
		c := state.RGBA(g.Color)
		p.SetTextColor(int(c.R), int(c.G), int(c.B))
		p.SetFont("Helvetica", "", g.Size/mmPerPt)
		p.Text(x0+g.X, y0+g.Y, tr(g.Text))
	}

	if err := p.Error(); err != nil {
		return fmt.Errorf("build pdf: %w", err)
	}
	return p.Output(w)
}
