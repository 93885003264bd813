// Package session binds an annotation engine to one image, its display size
// and a store. All methods are safe for concurrent use; Save may run on its
// own goroutine while the user keeps drawing.
package session

import (
	"context"
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/clinicboard/annotator/internal/render"
	"github.com/clinicboard/annotator/internal/state"
	"github.com/clinicboard/annotator/internal/store"
)

type Session struct {
	mu     sync.Mutex
	engine *state.Engine
	store  store.Store
	key    store.ImageKey

	width, height float64

	saved    uint64
	inFlight int
}

// Open loads the document for key and starts a session on it. Nothing
// stored yet is not an error: the session starts from an empty document.
func Open(ctx context.Context, st store.Store, key store.ImageKey, opts ...state.Option) (*Session, error) {
	doc, err := st.Load(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		doc, err = nil, nil
	}
	if err != nil {
		return nil, err
	}
	if doc == nil {
		empty := state.Empty()
		doc = &empty
	}
	e := state.NewEngine(*doc, opts...)
	log.WithField("key", key.Path()).Debugf("[SESSION] opened with %d strokes, %d labels", len(doc.Strokes), len(doc.Texts))
	return &Session{
		engine: e,
		store:  st,
		key:    key,
		saved:  e.Revision(),
	}, nil
}

func (s *Session) Key() store.ImageKey { return s.key }

// SetDisplaySize sets the pixel size the image is currently shown at. Pointer
// positions are interpreted against it.
func (s *Session) SetDisplaySize(w, h float64) {
	s.mu.Lock()
	s.width, s.height = w, h
	s.mu.Unlock()
}

func (s *Session) DisplaySize() (float64, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

func (s *Session) point(px, py float64) state.Point {
	return state.NormalizePoint(px, py, s.width, s.height)
}

// PointerDown starts a gesture at display pixel (px, py): a stroke for the
// pen, an anchor for the text tool. The eraser acts on PointerUp.
func (s *Session) PointerDown(px, py float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.point(px, py)
	if s.engine.Tool() == state.ToolText {
		s.engine.TapText(p)
		return
	}
	s.engine.BeginStroke(p)
}

func (s *Session) PointerMove(px, py float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.AddPoint(s.point(px, py))
}

// PointerUp ends the gesture and reports whether the document changed.
func (s *Session) PointerUp() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.EndStroke()
}

func (s *Session) with(fn func(e *state.Engine)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.engine)
}

func (s *Session) changed(fn func(e *state.Engine) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.engine)
}

func (s *Session) SetTool(t state.Tool)      { s.with(func(e *state.Engine) { e.SetTool(t) }) }
func (s *Session) SetColor(c string)         { s.with(func(e *state.Engine) { e.SetColor(c) }) }
func (s *Session) SetWidth(w float64)        { s.with(func(e *state.Engine) { e.SetWidth(w) }) }
func (s *Session) BeginStroke(p state.Point) { s.with(func(e *state.Engine) { e.BeginStroke(p) }) }
func (s *Session) AddPoint(p state.Point)    { s.with(func(e *state.Engine) { e.AddPoint(p) }) }
func (s *Session) TapText(p state.Point)     { s.with(func(e *state.Engine) { e.TapText(p) }) }
func (s *Session) CancelText()               { s.with(func(e *state.Engine) { e.CancelText() }) }

func (s *Session) EndStroke() bool {
	return s.changed(func(e *state.Engine) bool { return e.EndStroke() })
}

func (s *Session) ConfirmText(text string) bool {
	return s.changed(func(e *state.Engine) bool { return e.ConfirmText(text) })
}

// AddText places a label at normalized (x, y) regardless of the active tool.
func (s *Session) AddText(x, y float64, text string) bool {
	return s.changed(func(e *state.Engine) bool { return e.AddText(x, y, text) })
}

func (s *Session) Erase() bool { return s.changed(func(e *state.Engine) bool { return e.Erase() }) }
func (s *Session) Undo() bool  { return s.changed(func(e *state.Engine) bool { return e.Undo() }) }
func (s *Session) Redo() bool  { return s.changed(func(e *state.Engine) bool { return e.Redo() }) }
func (s *Session) Clear() bool { return s.changed(func(e *state.Engine) bool { return e.Clear() }) }

func (s *Session) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.CanUndo()
}

func (s *Session) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.CanRedo()
}

func (s *Session) Tool() state.Tool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Tool()
}

func (s *Session) Color() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Color()
}

func (s *Session) Width() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Width()
}

// PendingText is the normalized anchor waiting for label text, or nil.
func (s *Session) PendingText() *state.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p := s.engine.PendingText(); p != nil {
		cp := *p
		return &cp
	}
	return nil
}

// Current returns a copy of the committed document.
func (s *Session) Current() state.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Current()
}

func (s *Session) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Revision()
}

// Frame renders the document and any open stroke at the display size.
func (s *Session) Frame() render.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	var draft *state.Stroke
	if d, ok := s.engine.Draft(); ok {
		draft = &d
	}
	return render.Render(s.engine.Current(), draft, s.width, s.height)
}

// Save writes the current document. The document and its revision are taken
// when Save is called; edits made while the write is in flight are not part
// of it and keep the session dirty. A failed save never touches history.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	doc := s.engine.Current()
	rev := s.engine.Revision()
	s.inFlight++
	s.mu.Unlock()

	err := s.store.Save(ctx, s.key, doc)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight--
	entry := log.WithField("key", s.key.Path()).WithField("revision", rev)
	if err != nil {
		entry.WithError(err).Error("[SESSION] save failed")
		return err
	}
	if rev > s.saved {
		s.saved = rev
	}
	if cur := s.engine.Revision(); cur != rev {
		entry.WithField("current", cur).Info("[SESSION] document changed while saving, still dirty")
		return nil
	}
	entry.Debug("[SESSION] saved")
	return nil
}

// SaveAsync runs Save on a new goroutine. The channel receives its result
// and is then closed.
func (s *Session) SaveAsync(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- s.Save(ctx)
		close(done)
	}()
	return done
}

// Saving reports whether a save is in flight.
func (s *Session) Saving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight > 0
}

// Dirty reports whether the current revision differs from the last one
// saved successfully.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Revision() != s.saved
}
