// Package common holds cross-layer value types shared by the capline
// domain, application, and interface layers.
package common

import (
	"github.com/google/uuid"
)

// ID is a string alias for UUID v4.
type ID string

// NewID generates a fresh random ID.
func NewID() ID {
	return ID(uuid.NewString())
}

// String returns the ID as a plain string.
func (id ID) String() string {
	return string(id)
}

// IsZero reports whether the ID is unset.
func (id ID) IsZero() bool {
	return id == ""
}
