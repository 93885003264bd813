package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

// knownFields are the top-level fields of the persisted form.
var knownFields = []string{"version", "strokes", "texts"}

// Marshal encodes doc in its persisted form. The output is canonical: empty
// collections are written as [], known fields come first in a fixed order and
// Extra fields follow sorted by name, so Marshal(Unmarshal(b)) reproduces b
// for anything Marshal wrote.
func Marshal(doc Document) ([]byte, error) {
	doc = doc.Clone()
	if doc.Version <= 0 {
		doc.Version = CurrentVersion
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode annotations: %w", err)
	}
	if len(doc.Extra) == 0 {
		return data, nil
	}

	var buf bytes.Buffer
	buf.Write(data[:len(data)-1])
	keys := make([]string, 0, len(doc.Extra))
	for k := range doc.Extra {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if isKnownField(k) {
			continue
		}
		buf.WriteByte(',')
		name, _ := json.Marshal(k)
		buf.Write(name)
		buf.WriteByte(':')
		if err := json.Compact(&buf, doc.Extra[k]); err != nil {
			return nil, fmt.Errorf("encode annotations: field %q: %w", k, err)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// isKnownField matches the way encoding/json maps keys to struct fields.
func isKnownField(k string) bool {
	for _, f := range knownFields {
		if strings.EqualFold(k, f) {
			return true
		}
	}
	return false
}

// Unmarshal decodes a persisted document. It accepts anything that looks
// like an annotation document and repairs it rather than failing: a missing
// version means version 1, newer versions keep their number and unknown
// top-level fields are kept in Extra, coordinates are clamped, blank labels
// are dropped and missing or duplicate ids are replaced. Only malformed JSON
// is an error. The literal null decodes to the empty document.
func Unmarshal(data []byte) (Document, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return Empty(), nil
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("decode annotations: %w", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Document{}, fmt.Errorf("decode annotations: %w", err)
	}
	maps.DeleteFunc(fields, func(k string, _ json.RawMessage) bool { return isKnownField(k) })
	if len(fields) > 0 {
		doc.Extra = fields
	}
	return migrate(doc), nil
}

func migrate(doc Document) Document {
	switch {
	case doc.Version <= 0:
		doc.Version = CurrentVersion
	case doc.Version > CurrentVersion:
		log.WithField("version", doc.Version).Warn("[CODEC] newer annotation schema, keeping fields it does not know")
	}

	// Replacement ids depend only on the document, so loading the same
	// bytes twice gives the same ids.
	taken := make(map[string]bool, len(doc.Strokes)+len(doc.Texts))
	for _, s := range doc.Strokes {
		taken[s.ID] = true
	}
	for _, t := range doc.Texts {
		taken[t.ID] = true
	}
	seen := make(map[string]bool, len(taken))
	unique := func(id, kind string, i int) string {
		if id != "" && !seen[id] {
			seen[id] = true
			return id
		}
		for n := i; ; n++ {
			id = kind + "_" + strconv.Itoa(n)
			if !taken[id] && !seen[id] {
				seen[id] = true
				return id
			}
		}
	}

	strokes := make([]Stroke, 0, len(doc.Strokes))
	for i, s := range doc.Strokes {
		s.ID = unique(s.ID, "stroke", i)
		if c, ok := CanonicalColor(s.Color); ok {
			s.Color = c
		}
		if !ValidWidth(s.Width) {
			s.Width = DefaultWidth
		}
		pts := make([]Point, len(s.Points))
		for i, p := range s.Points {
			pts[i] = ClampPoint(p)
		}
		s.Points = pts
		strokes = append(strokes, s)
	}

	texts := make([]TextLabel, 0, len(doc.Texts))
	for i, t := range doc.Texts {
		t.Text = strings.TrimSpace(t.Text)
		if t.Text == "" {
			continue
		}
		t.ID = unique(t.ID, "text", i)
		if c, ok := CanonicalColor(t.Color); ok {
			t.Color = c
		}
		t.X, t.Y = Clamp01(t.X), Clamp01(t.Y)
		texts = append(texts, t)
	}

	return Document{Version: doc.Version, Strokes: strokes, Texts: texts, Extra: doc.Extra}
}
