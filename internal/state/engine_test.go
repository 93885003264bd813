package state

import (
	"fmt"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

// seqIDs returns an IDSource producing kind_1, kind_2, ...
func seqIDs() IDSource {
	n := 0
	return func(kind string) string {
		n++
		return fmt.Sprintf("%s_%d", kind, n)
	}
}

func newTestEngine() *Engine {
	return NewEngine(Empty(), WithIDSource(seqIDs()))
}

func draw(e *Engine, pts ...Point) {
	e.BeginStroke(pts[0])
	for _, p := range pts[1:] {
		e.AddPoint(p)
	}
	e.EndStroke()
}

func TestPenCommitsStroke(t *testing.T) {
	e := newTestEngine()
	e.BeginStroke(Point{X: 0.1, Y: 0.1})
	e.AddPoint(Point{X: 0.2, Y: 0.2})
	e.AddPoint(Point{X: 0.2, Y: 0.2})

	draft, ok := e.Draft()
	require.True(t, ok)
	require.Len(t, draft.Points, 3, "moves are appended without deduplication")
	require.True(t, e.Current().IsEmpty(), "draft is not part of the document")
	require.False(t, e.CanUndo())

	require.True(t, e.EndStroke())
	_, ok = e.Draft()
	require.False(t, ok)

	doc := e.Current()
	require.Len(t, doc.Strokes, 1)
	require.Equal(t, Stroke{
		ID:     "stroke_1",
		Color:  DefaultColor,
		Width:  DefaultWidth,
		Points: []Point{{X: 0.1, Y: 0.1}, {X: 0.2, Y: 0.2}, {X: 0.2, Y: 0.2}},
	}, doc.Strokes[0])
	require.True(t, e.CanUndo())
}

func TestSinglePointStrokeIsKept(t *testing.T) {
	e := newTestEngine()
	draw(e, Point{X: 0.5, Y: 0.5})
	require.Len(t, e.Current().Strokes, 1)
}

func TestStrokeUsesCurrentStyle(t *testing.T) {
	e := newTestEngine()
	e.SetColor("#ff0000")
	e.SetWidth(8)
	draw(e, Point{X: 0, Y: 0}, Point{X: 1, Y: 1})

	s := e.Current().Strokes[0]
	require.Equal(t, "#FF0000", s.Color)
	require.Equal(t, 8.0, s.Width)

	e.SetColor("red")
	e.SetWidth(-1)
	require.Equal(t, "#FF0000", e.Color())
	require.Equal(t, 8.0, e.Width())
}

func TestNonFiniteWidthIgnored(t *testing.T) {
	e := newTestEngine()
	e.SetWidth(math.Inf(1))
	e.SetWidth(math.NaN())
	require.Equal(t, DefaultWidth, e.Width())

	draw(e, Point{X: 0.1, Y: 0.1}, Point{X: 0.2, Y: 0.2})
	require.Equal(t, DefaultWidth, e.Current().Strokes[0].Width)
	_, err := Marshal(e.Current())
	require.NoError(t, err)

	require.False(t, ValidWidth(math.Inf(-1)))
	require.False(t, ValidWidth(0))
	require.True(t, ValidWidth(0.5))
}

func TestPointsAreClamped(t *testing.T) {
	e := newTestEngine()
	draw(e, Point{X: -0.5, Y: 2}, Point{X: 1.5, Y: 0.5})
	require.Equal(t, []Point{{X: 0, Y: 1}, {X: 1, Y: 0.5}}, e.Current().Strokes[0].Points)
}

func TestToolChangeDiscardsDraft(t *testing.T) {
	e := newTestEngine()
	e.BeginStroke(Point{X: 0.1, Y: 0.1})
	e.AddPoint(Point{X: 0.3, Y: 0.3})

	e.SetTool(ToolEraser)
	_, ok := e.Draft()
	require.False(t, ok)

	// pointer-up of the interrupted gesture now belongs to the eraser and
	// there is nothing to erase
	require.False(t, e.EndStroke())
	require.True(t, e.Current().IsEmpty())
	require.False(t, e.CanUndo())
	require.Equal(t, 1, e.State().History.Len())
}

func TestSameToolKeepsDraft(t *testing.T) {
	e := newTestEngine()
	e.BeginStroke(Point{X: 0.1, Y: 0.1})
	e.SetTool(ToolPen)
	_, ok := e.Draft()
	require.True(t, ok)
}

func TestPenEventsIgnoredByOtherTools(t *testing.T) {
	for _, tool := range []Tool{ToolText, ToolEraser} {
		e := newTestEngine()
		e.SetTool(tool)
		e.BeginStroke(Point{X: 0.1, Y: 0.1})
		e.AddPoint(Point{X: 0.2, Y: 0.2})
		_, ok := e.Draft()
		require.False(t, ok, tool)
	}
}

func TestEraserRemovesLastStroke(t *testing.T) {
	e := newTestEngine()
	draw(e, Point{X: 0.1, Y: 0.1}, Point{X: 0.2, Y: 0.2})
	draw(e, Point{X: 0.8, Y: 0.8}, Point{X: 0.9, Y: 0.9})

	e.SetTool(ToolEraser)
	// the touch location does not matter, the newest stroke goes
	e.BeginStroke(Point{X: 0.1, Y: 0.1})
	require.True(t, e.EndStroke())

	doc := e.Current()
	require.Len(t, doc.Strokes, 1)
	require.Equal(t, "stroke_1", doc.Strokes[0].ID)

	e.Undo()
	require.Len(t, e.Current().Strokes, 2)
}

func TestEraserWithoutStrokesIsNoOp(t *testing.T) {
	e := newTestEngine()
	require.True(t, e.AddText(0.5, 0.5, "keep"))
	e.SetTool(ToolEraser)

	before := e.State().History
	require.False(t, e.EndStroke())
	require.False(t, e.Erase())
	after := e.State().History

	require.Equal(t, before.Len(), after.Len())
	require.Equal(t, before.Index(), after.Index())
	require.Len(t, e.Current().Texts, 1, "labels are not erased")
}

func TestTextFlow(t *testing.T) {
	e := newTestEngine()
	e.SetTool(ToolText)
	e.TapText(Point{X: 0.5, Y: 0.3})
	require.NotNil(t, e.PendingText())

	require.True(t, e.ConfirmText("  Cavity "))
	require.Nil(t, e.PendingText())
	require.Equal(t, []TextLabel{{ID: "text_1", Text: "Cavity", X: 0.5, Y: 0.3, Color: DefaultColor}}, e.Current().Texts)
}

func TestTextRejectsBlankAndCancel(t *testing.T) {
	e := newTestEngine()
	e.SetTool(ToolText)
	before := e.Current()

	e.TapText(Point{X: 0.2, Y: 0.2})
	require.False(t, e.ConfirmText(" \t\n"))

	e.TapText(Point{X: 0.2, Y: 0.2})
	e.CancelText()
	require.False(t, e.ConfirmText("late"), "confirm after cancel has no anchor")

	require.False(t, e.AddText(0.1, 0.1, "   "))

	if diff := cmp.Diff(before, e.Current()); diff != "" {
		t.Errorf("document changed (-before +after):\n%s", diff)
	}
	require.Equal(t, 1, e.State().History.Len())
}

func TestTapIgnoredOutsideTextTool(t *testing.T) {
	e := newTestEngine()
	e.TapText(Point{X: 0.2, Y: 0.2})
	require.Nil(t, e.PendingText())
}

func TestToolChangeDropsPendingText(t *testing.T) {
	e := newTestEngine()
	e.SetTool(ToolText)
	e.TapText(Point{X: 0.2, Y: 0.2})
	e.SetTool(ToolPen)
	require.Nil(t, e.PendingText())
}

func TestTextUndoRedoScenario(t *testing.T) {
	e := newTestEngine()
	pre := e.Current()
	require.True(t, e.AddText(0.5, 0.3, "Cavity"))
	label := e.Current().Texts[0]

	e.Undo()
	if diff := cmp.Diff(pre, e.Current()); diff != "" {
		t.Errorf("undo (-want +got):\n%s", diff)
	}
	e.Redo()
	require.Equal(t, []TextLabel{label}, e.Current().Texts)
	require.Equal(t, 0.5, e.Current().Texts[0].X)
	require.Equal(t, 0.3, e.Current().Texts[0].Y)
}

func TestUndoDiscardsDraft(t *testing.T) {
	e := newTestEngine()
	draw(e, Point{X: 0.1, Y: 0.1})
	e.BeginStroke(Point{X: 0.4, Y: 0.4})
	e.Undo()
	_, ok := e.Draft()
	require.False(t, ok)
	require.True(t, e.Current().IsEmpty())
}

func TestDuplicateIDsRejected(t *testing.T) {
	e := NewEngine(Empty(), WithIDSource(func(string) string { return "same" }))
	draw(e, Point{X: 0.1, Y: 0.1})
	draw(e, Point{X: 0.2, Y: 0.2})
	require.Len(t, e.Current().Strokes, 1)
	require.False(t, e.AddText(0.1, 0.1, "x"))
}

func TestCurrentIsACopy(t *testing.T) {
	e := newTestEngine()
	draw(e, Point{X: 0.1, Y: 0.1}, Point{X: 0.2, Y: 0.2})
	doc := e.Current()
	doc.Strokes[0].Points[0].X = 0.9
	require.Equal(t, 0.1, e.Current().Strokes[0].Points[0].X)
}

func TestReduceLeavesInputStateUntouched(t *testing.T) {
	s := NewState(Empty())
	s = Reduce(s, BeginStroke{ID: "a", At: Point{X: 0.1, Y: 0.1}})
	s = Reduce(s, ExtendStroke{At: Point{X: 0.2, Y: 0.2}})
	snapshot := s
	next := Reduce(s, ExtendStroke{At: Point{X: 0.3, Y: 0.3}})
	next = Reduce(next, EndStroke{})

	require.Equal(t, 2, snapshot.Draft.Len())
	require.True(t, snapshot.Document().IsEmpty())
	require.Len(t, next.Document().Strokes[0].Points, 3)
}
