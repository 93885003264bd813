package state

import "github.com/google/uuid"

// IDSource hands out ids for new strokes and labels. kind is "stroke" or
// "text".
type IDSource func(kind string) string

// NewID is the default IDSource.
func NewID(kind string) string {
	return kind + "_" + uuid.NewString()
}
