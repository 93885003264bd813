package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/clinicboard/annotator/internal/state"
)

const (
	// FileName is the document file inside an image directory.
	FileName = "annotations.json"
	// SealedFileName is used instead of FileName when a Sealer is set.
	SealedFileName = FileName + ".enc"
)

// FileStore keeps one file per image under
// <root>/clinics/<c>/patients/<p>/images/<i>/.
type FileStore struct {
	root   string
	sealer *Sealer
}

type FileOption func(*FileStore)

// WithSealer encrypts documents at rest.
func WithSealer(s *Sealer) FileOption {
	return func(f *FileStore) { f.sealer = s }
}

func NewFileStore(root string, opts ...FileOption) *FileStore {
	f := &FileStore{root: root}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *FileStore) Root() string { return f.root }

// FilePath is where the document for key lives.
func (f *FileStore) FilePath(key ImageKey) string {
	name := FileName
	if f.sealer != nil {
		name = SealedFileName
	}
	return filepath.Join(f.root, filepath.FromSlash(key.Path()), name)
}

// KeyForFile maps a document file under the root back to its image key.
func (f *FileStore) KeyForFile(path string) (ImageKey, bool) {
	rel, err := filepath.Rel(f.root, path)
	if err != nil {
		return ImageKey{}, false
	}
	dir, name := filepath.Split(filepath.ToSlash(rel))
	if name != FileName && name != SealedFileName {
		return ImageKey{}, false
	}
	key, err := ParseImageKey(strings.TrimSuffix(dir, "/"))
	if err != nil {
		return ImageKey{}, false
	}
	return key, true
}

func (f *FileStore) Load(ctx context.Context, key ImageKey) (*state.Document, error) {
	if err := key.Validate(); err != nil {
		return nil, wrap("load", key, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, wrap("load", key, err)
	}
	data, err := os.ReadFile(f.FilePath(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("load", key, err)
	}
	if f.sealer != nil {
		if data, err = f.sealer.Open(key, data); err != nil {
			return nil, wrap("load", key, err)
		}
	}
	doc, err := state.Unmarshal(data)
	if err != nil {
		return nil, wrap("load", key, err)
	}
	return &doc, nil
}

func (f *FileStore) Save(ctx context.Context, key ImageKey, doc state.Document) error {
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
	if f.sealer != nil {
		if data, err = f.sealer.Seal(key, data); err != nil {
			return wrap("save", key, err)
		}
	}
	path := f.FilePath(key)
	if err := writeAtomic(path, data); err != nil {
		return wrap("save", key, err)
	}
	log.WithField("key", key.Path()).Debugf("[STORE] wrote %d bytes", len(data))
	return nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".annotations-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
