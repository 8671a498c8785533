package domain

import (
	"errors"
	"strings"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// It is usually carried inside a *ValidationErrors listing each violated rule.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrEmptyOwnerID is returned when a task is assigned a blank owner.
	ErrEmptyOwnerID = errors.New("owner ID cannot be empty")

	// ErrOwnerAlreadyAssigned is returned when a task's owner would change after assignment.
	ErrOwnerAlreadyAssigned = errors.New("task owner is already assigned")

	// ErrUnauthorized is returned when an operation is not permitted.
	ErrUnauthorized = errors.New("unauthorized operation")
)

// ValidationErrors reports every rule a value violated, not only the first.
// It matches ErrValidation under errors.Is.
type ValidationErrors struct {
	Violations []string
}

// Error implements the error interface.
func (e *ValidationErrors) Error() string {
	return ErrValidation.Error() + ": " + strings.Join(e.Violations, "; ")
}

// Unwrap allows errors.Is(err, ErrValidation).
func (e *ValidationErrors) Unwrap() error {
	return ErrValidation
}

// Add records a violation.
func (e *ValidationErrors) Add(msg string) {
	e.Violations = append(e.Violations, msg)
}

// ErrOrNil returns e as an error when at least one violation was recorded.
func (e *ValidationErrors) ErrOrNil() error {
	if e == nil || len(e.Violations) == 0 {
		return nil
	}
	return e
}
