package state

import (
	"encoding/json"
	"maps"
)

// CurrentVersion is the schema version written by this package.
const CurrentVersion = 1

// Point is a position on the image expressed as fractions of its width and
// height, so it is independent of the screen the image is shown on.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Stroke is one continuous pen gesture.
type Stroke struct {
	ID     string  `json:"id"`
	Color  string  `json:"color"`
	Width  float64 `json:"width"`
	Points []Point `json:"points"`
}

// TextLabel is a short note anchored at a normalized position.
type TextLabel struct {
	ID    string  `json:"id"`
	Text  string  `json:"text"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Color string  `json:"color"`
}

// Document is the complete annotation of one image at one point in its edit
// history. A Document is a value: the transition methods below return new
// documents and never write into the receiver's slices.
type Document struct {
	Version int         `json:"version"`
	Strokes []Stroke    `json:"strokes"`
	Texts   []TextLabel `json:"texts"`

	// Extra holds top-level fields this version does not know, as read.
	// Marshal writes them back. It is shared between documents derived from
	// each other and must not be modified.
	Extra map[string]json.RawMessage `json:"-"`
}

// Empty returns the canonical document used when nothing has been stored.
func Empty() Document {
	return Document{
		Version: CurrentVersion,
		Strokes: []Stroke{},
		Texts:   []TextLabel{},
	}
}

// IsEmpty reports whether the document has no strokes and no labels.
func (d Document) IsEmpty() bool {
	return len(d.Strokes) == 0 && len(d.Texts) == 0
}

// Clone returns a deep copy of d. Nil slices come back empty.
func (d Document) Clone() Document {
	out := Document{
		Version: d.Version,
		Strokes: make([]Stroke, len(d.Strokes)),
		Texts:   make([]TextLabel, len(d.Texts)),
	}
	if d.Extra != nil {
		out.Extra = maps.Clone(d.Extra)
	}
	for i, s := range d.Strokes {
		out.Strokes[i] = s.clone()
	}
	copy(out.Texts, d.Texts)
	return out
}

// WithStroke returns a copy of d with s appended.
func (d Document) WithStroke(s Stroke) Document {
	strokes := make([]Stroke, 0, len(d.Strokes)+1)
	strokes = append(strokes, d.Strokes...)
	strokes = append(strokes, s.clone())
	return Document{Version: d.Version, Strokes: strokes, Texts: d.textsCopy(), Extra: d.Extra}
}

// WithText returns a copy of d with t appended.
func (d Document) WithText(t TextLabel) Document {
	texts := make([]TextLabel, 0, len(d.Texts)+1)
	texts = append(texts, d.Texts...)
	texts = append(texts, t)
	return Document{Version: d.Version, Strokes: d.strokesCopy(), Texts: texts, Extra: d.Extra}
}

// WithoutLastStroke returns a copy of d minus its most recently added
// stroke. ok is false, and d is returned unchanged, when there are no strokes.
func (d Document) WithoutLastStroke() (Document, bool) {
	if len(d.Strokes) == 0 {
		return d, false
	}
	strokes := make([]Stroke, len(d.Strokes)-1)
	copy(strokes, d.Strokes[:len(d.Strokes)-1])
	return Document{Version: d.Version, Strokes: strokes, Texts: d.textsCopy(), Extra: d.Extra}, true
}

// HasID reports whether a stroke or label in d already uses id.
func (d Document) HasID(id string) bool {
	for _, s := range d.Strokes {
		if s.ID == id {
			return true
		}
	}
	for _, t := range d.Texts {
		if t.ID == id {
			return true
		}
	}
	return false
}

func (d Document) strokesCopy() []Stroke {
	out := make([]Stroke, len(d.Strokes))
	copy(out, d.Strokes)
	return out
}

func (d Document) textsCopy() []TextLabel {
	out := make([]TextLabel, len(d.Texts))
	copy(out, d.Texts)
	return out
}

func (s Stroke) clone() Stroke {
	pts := make([]Point, len(s.Points))
	copy(pts, s.Points)
	s.Points = pts
	return s
}
