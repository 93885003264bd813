package state

// Engine is the mutable front end to Reduce. It owns a State, generates ids
// for new strokes and labels, and exposes the operations a host UI calls.
// Coordinates passed to an Engine are already normalized.
//
// An Engine is not safe for concurrent use; session.Session adds locking.
type Engine struct {
	state State
	ids   IDSource
}

// Option configures an Engine.
type Option func(*Engine)

// WithIDSource replaces the uuid based id generator.
func WithIDSource(src IDSource) Option {
	return func(e *Engine) {
		if src != nil {
			e.ids = src
		}
	}
}

// WithStyle sets the initial colour and width. Invalid values are ignored.
func WithStyle(color string, width float64) Option {
	return func(e *Engine) {
		e.state = Reduce(e.state, SetColor{Color: color})
		e.state = Reduce(e.state, SetWidth{Width: width})
	}
}

// NewEngine opens an editing session whose first history entry is doc.
func NewEngine(doc Document, opts ...Option) *Engine {
	e := &Engine{state: NewState(doc), ids: NewID}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Dispatch applies a and reports whether the displayed document changed.
func (e *Engine) Dispatch(a Action) bool {
	before := e.state.History.Revision()
	e.state = Reduce(e.state, a)
	return e.state.History.Revision() != before
}

// State returns a snapshot of the full engine state.
func (e *Engine) State() State { return e.state }

func (e *Engine) SetTool(t Tool)      { e.Dispatch(SetTool{Tool: t}) }
func (e *Engine) SetColor(c string)   { e.Dispatch(SetColor{Color: c}) }
func (e *Engine) SetWidth(w float64)  { e.Dispatch(SetWidth{Width: w}) }
func (e *Engine) BeginStroke(p Point) { e.Dispatch(BeginStroke{ID: e.ids("stroke"), At: p}) }
func (e *Engine) AddPoint(p Point)    { e.Dispatch(ExtendStroke{At: p}) }
func (e *Engine) EndStroke() bool     { return e.Dispatch(EndStroke{}) }
func (e *Engine) TapText(p Point)     { e.Dispatch(TapText{At: p}) }
func (e *Engine) CancelText()         { e.Dispatch(CancelText{}) }
func (e *Engine) Erase() bool         { return e.Dispatch(Erase{}) }
func (e *Engine) Undo() bool          { return e.Dispatch(Undo{}) }
func (e *Engine) Redo() bool          { return e.Dispatch(Redo{}) }
func (e *Engine) Clear() bool         { return e.Dispatch(Clear{}) }
func (e *Engine) Tool() Tool          { return e.state.Tool }
func (e *Engine) CanUndo() bool       { return e.state.History.CanUndo() }
func (e *Engine) CanRedo() bool       { return e.state.History.CanRedo() }
func (e *Engine) Revision() uint64    { return e.state.History.Revision() }
func (e *Engine) Current() Document   { return e.state.Document().Clone() }
func (e *Engine) Color() string       { return e.state.Color }
func (e *Engine) Width() float64      { return e.state.Width }
func (e *Engine) PendingText() *Point { return e.state.PendingText }

// ConfirmText completes text entry started by TapText.
func (e *Engine) ConfirmText(text string) bool {
	return e.Dispatch(ConfirmText{ID: e.ids("text"), Text: text})
}

// AddText places a label at (x, y). Blank text is ignored.
func (e *Engine) AddText(x, y float64, text string) bool {
	return e.Dispatch(AddText{ID: e.ids("text"), At: Point{X: x, Y: y}, Text: text})
}

// Draft returns the stroke being drawn, if any.
func (e *Engine) Draft() (Stroke, bool) {
	if e.state.Draft == nil {
		return Stroke{}, false
	}
	return e.state.Draft.Stroke(), true
}
