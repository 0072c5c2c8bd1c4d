// Package errors provides standardized domain errors that express business intent
// rather than infrastructure details. These errors should be used by use cases
// and mapped to appropriate HTTP status codes by handlers.
package errors

import (
	"errors"
	"fmt"
)

// Standard domain errors that can be used across all domain modules.
var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a conflict with existing data (e.g., duplicate key).
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indicates the input data is invalid or fails validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates the request lacks valid authentication credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the authenticated user doesn't have permission.
	ErrForbidden = errors.New("forbidden")
)

// Audit chain errors. The append path must surface these to the caller: a business
// operation whose mandatory audit event cannot be recorded has to fail, never
// proceed silently.
var (
	// ErrInvalidField indicates a hash-relevant event field is missing or malformed.
	// This is a caller bug and must not be retried.
	ErrInvalidField = errors.New("invalid event field")

	// ErrChainContention indicates a concurrent append on the same chain won the
	// race and bounded retries were exhausted. Retryable with fresh chain state.
	ErrChainContention = errors.New("chain contention")

	// ErrGap indicates one or more block numbers are missing from a verification
	// range and no purged-range record explains them.
	ErrGap = errors.New("unexplained gap in chain")

	// ErrLegalHold indicates a purge attempted to delete an event under legal hold.
	ErrLegalHold = errors.New("event under legal hold")

	// ErrNotVerified indicates an export was requested for a range that failed
	// integrity verification.
	ErrNotVerified = errors.New("range failed verification")

	// ErrPurgeSuspended indicates a purge run received an emergency-stop signal.
	ErrPurgeSuspended = errors.New("purge suspended")
)

// New creates a new error with the given message.
// This is a convenience wrapper around errors.New for consistency.
func New(message string) error {
	return errors.New(message)
}

// Wrap wraps an error with additional context while preserving the error chain.
// Use this to add context at each layer without losing the original error type.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is reports whether any error in err's tree matches target.
// This is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
// This is a convenience wrapper around errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}
