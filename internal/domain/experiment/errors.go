package experiment

import (
	"errors"
	"fmt"
)

var (
	// ErrExperimentNotFound indicates the experiment doesn't exist for the tenant.
	ErrExperimentNotFound = errors.New("experiment not found")
	// ErrInvalidDefinition indicates a malformed experiment definition.
	ErrInvalidDefinition = errors.New("invalid experiment definition")
	// ErrInvalidTransition indicates a status change outside the lifecycle graph.
	ErrInvalidTransition = errors.New("invalid experiment status transition")
)

// ValidationError names the constraint a definition violated.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalidDefinition, e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidDefinition
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
