package export

import (
	"image"
	"image/png"
	"io"
	"math"

	"github.com/clinicboard/annotator/internal/render"
	"github.com/clinicboard/annotator/internal/state"
)

// cropMargin is added around the annotated area when cropping, in pixels.
const cropMargin = 16

// PNG writes the annotations at the image's own pixel size, over Base when it
// is set.
func PNG(w io.Writer, doc state.Document, opts Options) error {
	img, err := Image(doc, opts)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}

// Image rasterizes the annotations like PNG but returns the image.
func Image(doc state.Document, opts Options) (image.Image, error) {
	imgW, imgH, err := opts.size()
	if err != nil {
		return nil, err
	}
	frame := render.Render(doc, nil, imgW, imgH).ScaleStrokes(imgW / render.ReferenceWidth)
	out := render.Rasterize(frame, opts.Base)
	if !opts.Crop {
		return out, nil
	}
	b := frame.Bounds()
	if b.IsEmpty() {
		return out, nil
	}
	b = b.ExpandedByMargin(cropMargin)
	r := image.Rect(
		int(math.Floor(b.X.Lo)), int(math.Floor(b.Y.Lo)),
		int(math.Ceil(b.X.Hi)), int(math.Ceil(b.Y.Hi)),
	).Intersect(out.Bounds())
	return out.SubImage(r), nil
}
