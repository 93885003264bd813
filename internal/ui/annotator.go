package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"github.com/clinicboard/annotator/internal/render"
	"github.com/clinicboard/annotator/internal/session"
	"github.com/clinicboard/annotator/internal/state"
)

// Annotator is the drawing surface laid over the image. It turns taps and
// drags into session commands and draws the session's frame.
type Annotator struct {
	widget.BaseWidget
	session  *session.Session
	dragging bool

	// OnChange runs after every gesture or command that may have edited
	// the document.
	OnChange func()
	// OnTextRequest runs when the text tool has placed an anchor and needs
	// the label text. Answer with ConfirmText or CancelText.
	OnTextRequest func()
}

var _ fyne.Widget = (*Annotator)(nil)
var _ fyne.Draggable = (*Annotator)(nil)
var _ fyne.Tappable = (*Annotator)(nil)

func NewAnnotator(s *session.Session) *Annotator {
	a := &Annotator{session: s}
	a.ExtendBaseWidget(a)
	return a
}

func (a *Annotator) Session() *session.Session { return a.session }

// Edit runs fn against the session and redraws.
func (a *Annotator) Edit(fn func(s *session.Session)) {
	fn(a.session)
	a.changed()
}

func (a *Annotator) changed() {
	a.Refresh()
	if a.OnChange != nil {
		a.OnChange()
	}
}

// Tapped is a gesture without movement: a dot for the pen, an anchor for the
// text tool, a removal for the eraser.
func (a *Annotator) Tapped(e *fyne.PointEvent) {
	a.session.PointerDown(float64(e.Position.X), float64(e.Position.Y))
	a.finish()
}

func (a *Annotator) Dragged(e *fyne.DragEvent) {
	if !a.dragging {
		a.dragging = true
		a.session.PointerDown(float64(e.Position.X-e.Dragged.DX), float64(e.Position.Y-e.Dragged.DY))
	}
	a.session.PointerMove(float64(e.Position.X), float64(e.Position.Y))
	a.Refresh()
}

func (a *Annotator) DragEnd() {
	if !a.dragging {
		return
	}
	a.dragging = false
	a.finish()
}

func (a *Annotator) finish() {
	a.session.PointerUp()
	a.changed()
	if a.session.PendingText() != nil && a.OnTextRequest != nil {
		a.OnTextRequest()
	}
}

// ConfirmText places text at the pending anchor. Blank text places nothing.
func (a *Annotator) ConfirmText(text string) {
	a.session.ConfirmText(text)
	a.changed()
}

func (a *Annotator) CancelText() {
	a.session.CancelText()
	a.changed()
}

func (a *Annotator) CreateRenderer() fyne.WidgetRenderer {
	r := &annotatorRenderer{annotator: a}
	r.rebuild()
	return r
}

type annotatorRenderer struct {
	annotator *Annotator
	objects   []fyne.CanvasObject
}

func (r *annotatorRenderer) Layout(size fyne.Size) {
	r.annotator.session.SetDisplaySize(float64(size.Width), float64(size.Height))
	r.rebuild()
}

func (r *annotatorRenderer) MinSize() fyne.Size { return fyne.NewSize(200, 150) }

func (r *annotatorRenderer) Objects() []fyne.CanvasObject { return r.objects }

func (r *annotatorRenderer) Refresh() {
	r.rebuild()
	canvas.Refresh(r.annotator)
}

func (r *annotatorRenderer) Destroy() {}

// rebuild turns the current frame into canvas objects. Stroke widths follow
// the display width the same way exports do.
func (r *annotatorRenderer) rebuild() {
	f := r.annotator.session.Frame()
	if f.Width <= 0 || f.Height <= 0 {
		r.objects = nil
		return
	}
	f = f.ScaleStrokes(f.Width / render.ReferenceWidth)

	objects := make([]fyne.CanvasObject, 0, len(f.Paths)+len(f.Glyphs))
	addPath := func(p render.Path) {
		c := state.RGBA(p.Color)
		w := float32(p.Width)
		p.Segments(func(x0, y0, x1, y1 float64) {
			if x0 == x1 && y0 == y1 {
				dot := canvas.NewCircle(c)
				dot.Resize(fyne.NewSize(w, w))
				dot.Move(fyne.NewPos(float32(x0)-w/2, float32(y0)-w/2))
				objects = append(objects, dot)
				return
			}
			line := canvas.NewLine(c)
			line.StrokeWidth = w
			line.Position1 = fyne.NewPos(float32(x0), float32(y0))
			line.Position2 = fyne.NewPos(float32(x1), float32(y1))
			objects = append(objects, line)
		})
	}
	for _, p := range f.Paths {
		addPath(p)
	}
	if f.Draft != nil {
		addPath(*f.Draft)
	}
	for _, g := range f.Glyphs {
		t := canvas.NewText(g.Text, state.RGBA(g.Color))
		t.TextSize = float32(g.Size)
		t.TextStyle = fyne.TextStyle{Bold: true}
		// canvas.Text is positioned by its top left corner
		t.Move(fyne.NewPos(float32(g.X), float32(g.Y-g.Size)))
		objects = append(objects, t)
	}
	r.objects = objects
}
