package domain

import (
	"errors"
	"net/http"
)

// Domain errors - use with errors.Is()
var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a unique constraint violation
	ErrConflict = errors.New("already exists")

	// ErrValidation indicates invalid input
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized indicates authentication failure
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates authorization failure
	ErrForbidden = errors.New("forbidden")

	// ErrSessionBusy indicates a concurrent /chat/continue lost the race
	// for a session's mutex.
	ErrSessionBusy = errors.New("session is busy with another request")

	// ErrCheckpointMiss indicates /chat/continue found neither a live
	// graph instance nor a checkpoint for the conversation.
	ErrCheckpointMiss = errors.New("no live session or checkpoint for conversation")
)

// HTTPError lets a domain error carry its own HTTP status code, so
// handlers can map new error types without editing a central switch.
type HTTPError interface {
	error
	StatusCode() int
}

// ConflictError carries the identity of the resource a create collided with.
type ConflictError struct {
	Message      string
	ResourceType string
	ResourceID   string
}

func (e *ConflictError) Error() string { return e.Message }

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

func (e *ConflictError) StatusCode() int { return http.StatusConflict }

// ValidationError carries a field-level validation failure message.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func (e *ValidationError) StatusCode() int { return http.StatusBadRequest }
