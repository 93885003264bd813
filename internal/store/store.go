// Package store persists annotation documents, one per clinic image.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/clinicboard/annotator/internal/state"
)

var (
	// ErrNotFound is returned by backends that distinguish a missing
	// document from an empty one. Load itself reports absence as (nil, nil).
	ErrNotFound = errors.New("annotations not found")
	// ErrInvalidKey is returned for image keys with empty or unsafe parts.
	ErrInvalidKey = errors.New("invalid image key")
)

// Store loads and saves the annotation document of one image.
//
// Load returns (nil, nil) when nothing has been stored for key. Save is an
// idempotent overwrite.
type Store interface {
	Load(ctx context.Context, key ImageKey) (*state.Document, error)
	Save(ctx context.Context, key ImageKey, doc state.Document) error
}

// ImageKey identifies the image an annotation document belongs to.
type ImageKey struct {
	ClinicID  string
	PatientID string
	ImageID   string
}

// Path returns "clinics/<c>/patients/<p>/images/<i>".
func (k ImageKey) Path() string {
	return "clinics/" + k.ClinicID + "/patients/" + k.PatientID + "/images/" + k.ImageID
}

func (k ImageKey) String() string { return k.Path() }

// Validate reports ErrInvalidKey when a part is empty, contains a slash or
// backslash, or is a dot segment.
func (k ImageKey) Validate() error {
	for _, part := range []string{k.ClinicID, k.PatientID, k.ImageID} {
		if part == "" || part == "." || part == ".." || strings.ContainsAny(part, `/\`) {
			return fmt.Errorf("%w: %q", ErrInvalidKey, k.Path())
		}
	}
	return nil
}

// ParseImageKey is the inverse of ImageKey.Path. A leading or trailing slash
// is tolerated.
func ParseImageKey(s string) (ImageKey, error) {
	parts := strings.Split(strings.Trim(s, "/"), "/")
	if len(parts) != 6 || parts[0] != "clinics" || parts[2] != "patients" || parts[4] != "images" {
		return ImageKey{}, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	k := ImageKey{ClinicID: parts[1], PatientID: parts[3], ImageID: parts[5]}
	if err := k.Validate(); err != nil {
		return ImageKey{}, err
	}
	return k, nil
}

// Error records a failed store operation.
type Error struct {
	Op  string
	Key ImageKey
	Err error
}

func (e *Error) Error() string {
	return e.Op + " " + e.Key.Path() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func wrap(op string, key ImageKey, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return &Error{Op: op, Key: key, Err: err}
}
