package state

import "strings"

// Tool selects how pointer input is interpreted.
type Tool string

const (
	ToolPen    Tool = "pen"
	ToolText   Tool = "text"
	ToolEraser Tool = "eraser"
)

// Tools lists the tools in toolbar order.
var Tools = []Tool{ToolPen, ToolText, ToolEraser}

// Valid reports whether t is one of the known tools.
func (t Tool) Valid() bool {
	switch t {
	case ToolPen, ToolText, ToolEraser:
		return true
	}
	return false
}

// Action is a discrete, platform independent command. Hosts translate their
// gesture callbacks into actions and feed them to Reduce.
type Action interface {
	isAction()
}

type (
	// SetTool switches the active tool. Any open draft or pending text
	// anchor is dropped.
	SetTool struct{ Tool Tool }

	// SetColor changes the colour used for new strokes and labels.
	SetColor struct{ Color string }

	// SetWidth changes the width used for new strokes.
	SetWidth struct{ Width float64 }

	// BeginStroke is pointer-down.
	BeginStroke struct {
		ID string
		At Point
	}

	// ExtendStroke is pointer-move.
	ExtendStroke struct{ At Point }

	// EndStroke is pointer-up.
	EndStroke struct{}

	// TapText records where the next label goes and opens text entry.
	TapText struct{ At Point }

	// ConfirmText finishes text entry at the pending anchor.
	ConfirmText struct {
		ID   string
		Text string
	}

	// CancelText abandons text entry.
	CancelText struct{}

	// AddText places a label directly, independent of the active tool.
	AddText struct {
		ID   string
		At   Point
		Text string
	}

	// Erase removes the most recently added stroke.
	Erase struct{}

	Undo  struct{}
	Redo  struct{}
	Clear struct{}
)

func (SetTool) isAction()      {}
func (SetColor) isAction()     {}
func (SetWidth) isAction()     {}
func (BeginStroke) isAction()  {}
func (ExtendStroke) isAction() {}
func (EndStroke) isAction()    {}
func (TapText) isAction()      {}
func (ConfirmText) isAction()  {}
func (CancelText) isAction()   {}
func (AddText) isAction()      {}
func (Erase) isAction()        {}
func (Undo) isAction()         {}
func (Redo) isAction()         {}
func (Clear) isAction()        {}

// State is everything the annotation engine knows about one editing
// session.
type State struct {
	History     History
	Draft       *Draft
	Tool        Tool
	PendingText *Point
	Color       string
	Width       float64
}

// NewState opens a session on doc with the pen tool and default style.
func NewState(doc Document) State {
	return State{
		History: NewHistory(doc),
		Tool:    ToolPen,
		Color:   DefaultColor,
		Width:   DefaultWidth,
	}
}

// Document is the document at the history pointer.
func (s State) Document() Document {
	return s.History.Current()
}

// Reduce applies a to s and returns the resulting state. It never fails:
// invalid input and boundary operations leave s as it was.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case SetTool:
		if !a.Tool.Valid() || a.Tool == s.Tool {
			return s
		}
		s.Tool = a.Tool
		s.Draft = nil
		s.PendingText = nil
	case SetColor:
		if c, ok := CanonicalColor(a.Color); ok {
			s.Color = c
		}
	case SetWidth:
		if ValidWidth(a.Width) {
			s.Width = a.Width
		}
	case BeginStroke:
		if s.Tool != ToolPen || a.ID == "" || s.Document().HasID(a.ID) {
			return s
		}
		s.Draft = StartDraft(a.ID, s.Color, s.Width, a.At)
	case ExtendStroke:
		if s.Tool != ToolPen || s.Draft == nil {
			return s
		}
		s.Draft = s.Draft.Extend(a.At)
	case EndStroke:
		switch s.Tool {
		case ToolPen:
			if s.Draft == nil {
				return s
			}
			doc := s.Document().WithStroke(s.Draft.Stroke())
			s.History = s.History.Push(doc)
			s.Draft = nil
		case ToolEraser:
			return erase(s)
		}
	case TapText:
		if s.Tool != ToolText {
			return s
		}
		p := ClampPoint(a.At)
		s.PendingText = &p
	case ConfirmText:
		if s.PendingText == nil {
			return s
		}
		at := *s.PendingText
		s.PendingText = nil
		return addText(s, a.ID, at, a.Text)
	case CancelText:
		s.PendingText = nil
	case AddText:
		return addText(s, a.ID, a.At, a.Text)
	case Erase:
		s.Draft = nil
		return erase(s)
	case Undo:
		s.Draft = nil
		s.History = s.History.Undo()
	case Redo:
		s.Draft = nil
		s.History = s.History.Redo()
	case Clear:
		s.Draft = nil
		s.History = s.History.Clear()
	}
	return s
}

func erase(s State) State {
	doc, ok := s.Document().WithoutLastStroke()
	if !ok {
		return s
	}
	s.History = s.History.Push(doc)
	return s
}

func addText(s State, id string, at Point, text string) State {
	text = strings.TrimSpace(text)
	if text == "" || id == "" || s.Document().HasID(id) {
		return s
	}
	at = ClampPoint(at)
	label := TextLabel{ID: id, Text: text, X: at.X, Y: at.Y, Color: s.Color}
	s.History = s.History.Push(s.Document().WithText(label))
	return s
}
