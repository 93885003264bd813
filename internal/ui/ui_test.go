package ui

import (
	"context"
	"errors"
	"testing"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/test"
	"fyne.io/fyne/v2/widget"
	"github.com/stretchr/testify/require"

	"github.com/clinicboard/annotator/internal/session"
	"github.com/clinicboard/annotator/internal/state"
	"github.com/clinicboard/annotator/internal/store"
)

var key = store.ImageKey{ClinicID: "c1", PatientID: "p1", ImageID: "img1"}

func openSession(t *testing.T, st store.Store) *session.Session {
	t.Helper()
	s, err := session.Open(context.Background(), st, key)
	require.NoError(t, err)
	return s
}

func newAnnotator(t *testing.T, st store.Store) *Annotator {
	t.Helper()
	a := test.NewApp()
	t.Cleanup(a.Quit)
	w := NewAnnotator(openSession(t, st))
	w.Resize(fyne.NewSize(200, 100))
	return w
}

// drag moves through pts as one gesture.
func drag(a *Annotator, pts ...fyne.Position) {
	for i := 1; i < len(pts); i++ {
		a.Dragged(&fyne.DragEvent{
			PointEvent: fyne.PointEvent{Position: pts[i]},
			Dragged:    fyne.NewDelta(pts[i].X-pts[i-1].X, pts[i].Y-pts[i-1].Y),
		})
	}
	a.DragEnd()
}

func countLines(objs []fyne.CanvasObject) int {
	n := 0
	for _, o := range objs {
		if _, ok := o.(*canvas.Line); ok {
			n++
		}
	}
	return n
}

func TestAnnotatorDrawsStroke(t *testing.T) {
	a := newAnnotator(t, store.NewMemoryStore())
	changes := 0
	a.OnChange = func() { changes++ }

	drag(a, fyne.NewPos(20, 10), fyne.NewPos(40, 20), fyne.NewPos(60, 30))

	doc := a.Session().Current()
	require.Len(t, doc.Strokes, 1)
	pts := doc.Strokes[0].Points
	require.Len(t, pts, 3)
	require.InDelta(t, 0.1, pts[0].X, 1e-9)
	require.InDelta(t, 0.3, pts[2].Y, 1e-9)
	require.Equal(t, 1, changes)

	objs := test.WidgetRenderer(a).Objects()
	require.Equal(t, 2, countLines(objs))
}

func TestAnnotatorTapTools(t *testing.T) {
	a := newAnnotator(t, store.NewMemoryStore())
	asked := 0
	a.OnTextRequest = func() { asked++ }

	// a pen tap leaves a dot
	a.Tapped(&fyne.PointEvent{Position: fyne.NewPos(50, 50)})
	require.Len(t, a.Session().Current().Strokes, 1)
	require.Zero(t, asked)

	a.Edit(func(s *session.Session) { s.SetTool(state.ToolText) })
	a.Tapped(&fyne.PointEvent{Position: fyne.NewPos(100, 30)})
	require.Equal(t, 1, asked)
	a.ConfirmText("Cavity")

	doc := a.Session().Current()
	require.Len(t, doc.Texts, 1)
	require.Equal(t, "Cavity", doc.Texts[0].Text)
	require.InDelta(t, 0.5, doc.Texts[0].X, 1e-9)
	require.InDelta(t, 0.3, doc.Texts[0].Y, 1e-9)

	var texts int
	for _, o := range test.WidgetRenderer(a).Objects() {
		if _, ok := o.(*canvas.Text); ok {
			texts++
		}
	}
	require.Equal(t, 1, texts)

	a.Edit(func(s *session.Session) { s.SetTool(state.ToolEraser) })
	a.Tapped(&fyne.PointEvent{Position: fyne.NewPos(10, 10)})
	require.Empty(t, a.Session().Current().Strokes)
	require.Len(t, a.Session().Current().Texts, 1)
}

func TestAnnotatorCancelText(t *testing.T) {
	a := newAnnotator(t, store.NewMemoryStore())
	a.Edit(func(s *session.Session) { s.SetTool(state.ToolText) })
	a.Tapped(&fyne.PointEvent{Position: fyne.NewPos(100, 30)})
	require.NotNil(t, a.Session().PendingText())
	a.CancelText()
	require.Nil(t, a.Session().PendingText())
	require.True(t, a.Session().Current().IsEmpty())
}

func TestToolbarHistoryButtons(t *testing.T) {
	a := newAnnotator(t, store.NewMemoryStore())
	tb := NewToolbar(a, func() {})
	a.OnChange = tb.Update
	require.True(t, tb.undo.Disabled())
	require.True(t, tb.redo.Disabled())

	drag(a, fyne.NewPos(20, 10), fyne.NewPos(60, 30))
	require.False(t, tb.undo.Disabled())

	test.Tap(tb.undo)
	require.True(t, a.Session().Current().IsEmpty())
	require.False(t, tb.redo.Disabled())
	require.True(t, tb.undo.Disabled())

	test.Tap(tb.redo)
	require.Len(t, a.Session().Current().Strokes, 1)

	tb.tools.SetSelected("Eraser")
	require.Equal(t, state.ToolEraser, a.Session().Tool())
	tb.widths.SetSelected("8")
	require.Equal(t, 8.0, a.Session().Width())
}

type failingStore struct{ store.MemoryStore }

func (failingStore) Save(context.Context, store.ImageKey, state.Document) error {
	return errors.New("disk full")
}

func newEditor(t *testing.T, st store.Store) *Editor {
	t.Helper()
	a := test.NewApp()
	t.Cleanup(a.Quit)
	w := test.NewWindow(widget.NewLabel(""))
	t.Cleanup(w.Close)
	e := NewEditor(context.Background(), w, openSession(t, st), nil)
	w.SetContent(e.Content())
	w.Resize(fyne.NewSize(800, 600))
	return e
}

func TestEditorSave(t *testing.T) {
	mem := store.NewMemoryStore()
	e := newEditor(t, mem)
	drag(e.annotator, fyne.NewPos(20, 10), fyne.NewPos(60, 30))
	require.Equal(t, "Unsaved changes", e.Status())

	e.Save()
	require.Eventually(t, func() bool { return e.Status() == "Saved" }, 2*time.Second, 10*time.Millisecond)
	require.False(t, e.session.Dirty())
	require.False(t, e.toolbar.save.Disabled())

	got, err := mem.Load(context.Background(), key)
	require.NoError(t, err)
	require.Equal(t, e.session.Current(), *got)
}

func TestEditorSaveFailure(t *testing.T) {
	e := newEditor(t, &failingStore{})
	drag(e.annotator, fyne.NewPos(20, 10), fyne.NewPos(60, 30))

	e.Save()
	require.Eventually(t, func() bool { return e.Status() == "Save failed: disk full" }, 2*time.Second, 10*time.Millisecond)
	require.True(t, e.session.Dirty())
	require.Len(t, e.session.Current().Strokes, 1)
}
