package domain

import (
	"github.com/allisson/auditchain/internal/errors"
)

// Audit chain domain errors.
var (
	// ErrChainNotFound indicates no chain state exists for the requested chain ID.
	ErrChainNotFound = errors.Wrap(errors.ErrNotFound, "chain not found")

	// ErrEventNotFound indicates an audit event with the specified ID was not found.
	ErrEventNotFound = errors.Wrap(errors.ErrNotFound, "audit event not found")

	// ErrUnknownEventType indicates an event type outside the closed set.
	ErrUnknownEventType = errors.Wrap(errors.ErrInvalidField, "unknown event type")

	// ErrUnknownAction indicates an action outside the closed set.
	ErrUnknownAction = errors.Wrap(errors.ErrInvalidField, "unknown action")

	// ErrUnknownOutcome indicates an outcome outside the closed set.
	ErrUnknownOutcome = errors.Wrap(errors.ErrInvalidField, "unknown outcome")

	// ErrStateConflict indicates the chain state compare-and-set lost a race with a
	// concurrent append.
	ErrStateConflict = errors.Wrap(errors.ErrConflict, "chain state was modified concurrently")
)
