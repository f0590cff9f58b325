// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"quoteengine/internal/core/id"
)

// ErrorResponse is the body rendered for every failed request.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ListResponse wraps list results.
type ListResponse[T any] struct {
	Items []T `json:"items"`
}

// parseOptionalID parses an optional id field.
func parseOptionalID(s *string, field string) (*id.ID, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	v, err := id.Parse(*s, field)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
