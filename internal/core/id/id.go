// Package id provides UUIDv7 identifiers for rate cards, items and organizations.
// UUIDv7 is time-ordered, so newer rate card versions also sort later.
package id

import (
	"github.com/google/uuid"

	"quoteengine/internal/core/apperror"
)

// ID is a type alias for UUID.
type ID = uuid.UUID

// New generates a new UUIDv7.
func New() ID {
	v, err := uuid.NewV7()
	if err != nil {
		// V7 only fails when the random source does
		return uuid.New()
	}
	return v
}

// Parse converts string to ID. A malformed value is a validation error on field.
func Parse(s, field string) (ID, error) {
	v, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, apperror.NewValidation("malformed identifier").
			WithField(field).
			WithDetail(apperror.DetailValue, s)
	}
	return v, nil
}

// MustParse converts string to ID, panics on error.
// Use only for constants and tests.
func MustParse(s string) ID {
	return uuid.MustParse(s)
}

// IsNil checks if ID is zero-value.
func IsNil(v ID) bool {
	return v == uuid.Nil
}
