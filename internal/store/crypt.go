package store

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// ErrKeyLength is returned when a master key is not 32 bytes.
var ErrKeyLength = errors.New("master key must be 32 bytes (64 hex chars)")

const sealInfo = "annotations-v1"

// Sealer encrypts documents at rest. Every image gets its own key derived
// from the master key, and the image path is bound as associated data so a
// file copied under another image fails to open.
type Sealer struct {
	master []byte
}

func NewSealer(master []byte) (*Sealer, error) {
	if len(master) != chacha20poly1305.KeySize {
		return nil, ErrKeyLength
	}
	return &Sealer{master: append([]byte(nil), master...)}, nil
}

// ParseMasterKey decodes a hex master key.
func ParseMasterKey(hexKey string) ([]byte, error) {
	b, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("master key hex decode error: %w", err)
	}
	if len(b) != chacha20poly1305.KeySize {
		return nil, ErrKeyLength
	}
	return b, nil
}

func (s *Sealer) keyFor(key ImageKey) ([]byte, error) {
	h := hkdf.New(sha256.New, s.master, []byte(key.Path()), []byte(sealInfo))
	out := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(h, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Seal returns nonce || ciphertext.
func (s *Sealer) Seal(key ImageKey, plain []byte) ([]byte, error) {
	k, err := s.keyFor(key)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(k)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plain)+aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plain, []byte(key.Path())), nil
}

func (s *Sealer) Open(key ImageKey, blob []byte) ([]byte, error) {
	k, err := s.keyFor(key)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(k)
	if err != nil {
		return nil, err
	}
	if len(blob) < aead.NonceSize() {
		return nil, errors.New("sealed document too short")
	}
	nonce, ct := blob[:aead.NonceSize()], blob[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ct, []byte(key.Path()))
	if err != nil {
		return nil, fmt.Errorf("open sealed document: %w", err)
	}
	return plain, nil
}
