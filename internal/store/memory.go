package store

import (
	"context"
	"sync"

	"github.com/clinicboard/annotator/internal/state"
)

// MemoryStore keeps encoded documents in a map. It is safe for concurrent use.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[ImageKey][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[ImageKey][]byte)}
}

func (m *MemoryStore) Load(ctx context.Context, key ImageKey) (*state.Document, error) {
	if err := key.Validate(); err != nil {
		return nil, wrap("load", key, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, wrap("load", key, err)
	}
	m.mu.RLock()
	data, ok := m.docs[key]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	doc, err := state.Unmarshal(data)
	if err != nil {
		return nil, wrap("load", key, err)
	}
	return &doc, nil
}

func (m *MemoryStore) Save(ctx context.Context, key ImageKey, doc state.Document) error {
	if err := key.Validate(); err != nil {
		return wrap("save", key, err)
	}
	if err := ctx.Err(); err != nil {
		return wrap("save", key, err)
	}
	data, err := state.Marshal(doc)
	if err != nil {
		return wrap("save", key, err)
	}
	m.mu.Lock()
	m.docs[key] = data
	m.mu.Unlock()
	return nil
}

// Raw returns the stored bytes for key.
func (m *MemoryStore) Raw(key ImageKey) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.docs[key]
	return append([]byte(nil), data...), ok
}
