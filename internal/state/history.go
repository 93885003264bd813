package state

// History is a linear undo/redo stack of document snapshots. The entry at
// Index is the document currently shown. The zero value is not usable; start
// from NewHistory.
//
// History is a value type: the methods return updated copies and share the
// (never written) snapshot array with the receiver.
type History struct {
	entries  []Document
	index    int
	revision uint64
}

// NewHistory starts a history whose only entry is doc.
func NewHistory(doc Document) History {
	return History{entries: []Document{doc.Clone()}}
}

// Current returns the document at the history pointer.
func (h History) Current() Document {
	if len(h.entries) == 0 {
		return Empty()
	}
	return h.entries[h.index]
}

// Push drops any redo branch, appends doc and moves the pointer to it.
func (h History) Push(doc Document) History {
	if len(h.entries) == 0 {
		return NewHistory(doc)
	}
	entries := make([]Document, h.index+1, h.index+2)
	copy(entries, h.entries[:h.index+1])
	entries = append(entries, doc)
	return History{entries: entries, index: len(entries) - 1, revision: h.revision + 1}
}

// Undo steps back one entry. It is a no-op on the first entry.
func (h History) Undo() History {
	if !h.CanUndo() {
		return h
	}
	h.index--
	h.revision++
	return h
}

// Redo steps forward one entry. It is a no-op on the last entry.
func (h History) Redo() History {
	if !h.CanRedo() {
		return h
	}
	h.index++
	h.revision++
	return h
}

// Clear pushes an empty document, so it can itself be undone. A newer
// schema version and its unknown fields are kept.
func (h History) Clear() History {
	empty := Empty()
	if cur := h.Current(); cur.Version > CurrentVersion {
		empty.Version, empty.Extra = cur.Version, cur.Extra
	}
	return h.Push(empty)
}

func (h History) CanUndo() bool { return h.index > 0 }

func (h History) CanRedo() bool { return h.index < len(h.entries)-1 }

// Len is the number of snapshots, including the redo branch.
func (h History) Len() int { return len(h.entries) }

// Index is the position of the current snapshot.
func (h History) Index() int { return h.index }

// At returns snapshot i, or false when i is out of range.
func (h History) At(i int) (Document, bool) {
	if i < 0 || i >= len(h.entries) {
		return Document{}, false
	}
	return h.entries[i], true
}

// Revision increases every time the current snapshot changes.
func (h History) Revision() uint64 { return h.revision }
