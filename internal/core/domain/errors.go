package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrExtraction indicates the document bytes are not a well-formed
	// document of a supported format. Never retried: malformed input
	// is not transient.
	ErrExtraction = errors.New("extraction failed")

	// ErrEmbeddingService indicates the remote embedding call failed.
	// The caller decides whether to abort or skip; there is no
	// automatic retry.
	ErrEmbeddingService = errors.New("embedding service error")

	// ErrCompletionService indicates the remote completion call failed.
	// Callers surface an apology to the user rather than crashing.
	ErrCompletionService = errors.New("completion service error")

	// ErrDimensionMismatch indicates an embedding-model mismatch
	// between stored and query vectors. This is a programming/data
	// error and is fatal for the operation.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrEmbeddingUnavailable indicates no embedding service is
	// configured. Nothing can be ingested or searched without one.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrCompletionUnavailable indicates no completion service is
	// configured. Queries degrade to retrieval-only answers.
	ErrCompletionUnavailable = errors.New("completion service unavailable")
)

// ServiceError carries the HTTP status and upstream message from a
// failed remote call, wrapping the matching sentinel so callers can
// branch with errors.Is.
type ServiceError struct {
	// Kind is ErrEmbeddingService or ErrCompletionService.
	Kind error

	// StatusCode is the upstream HTTP status, 0 for transport errors.
	StatusCode int

	// Message is the upstream error message.
	Message string
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%v: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%v (status %d): %s", e.Kind, e.StatusCode, e.Message)
}

// Unwrap exposes the sentinel for errors.Is.
func (e *ServiceError) Unwrap() error {
	return e.Kind
}
