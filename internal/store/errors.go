package store

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrGroupNotFound = fmt.Errorf("group %w", ErrNotFound)
	ErrRaidNotFound  = fmt.Errorf("raid %w", ErrNotFound)
	ErrNameRequired  = errors.New("name is required")
)

// ValidationError names the offending input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func fieldRequired(field string) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf("field %s is required", field)}
}
