package domain

import (
	apperrors "github.com/allisson/auditchain/internal/errors"
)

var (
	// ErrPolicyNotFound indicates no retention policy exists for an event type.
	// Events without a policy are never purge-eligible.
	ErrPolicyNotFound = apperrors.Wrap(apperrors.ErrNotFound, "retention policy not found")

	// ErrHoldNotFound indicates no legal hold exists for a resource.
	ErrHoldNotFound = apperrors.Wrap(apperrors.ErrNotFound, "legal hold not found")

	// ErrRunNotFound indicates the purge run does not exist.
	ErrRunNotFound = apperrors.Wrap(apperrors.ErrNotFound, "purge run not found")

	// ErrInvalidTransition indicates a purge run state change the state machine
	// does not allow.
	ErrInvalidTransition = apperrors.Wrap(apperrors.ErrConflict, "invalid purge run transition")

	// ErrNotAwaitingApproval indicates an approval for a run that is not paused
	// for sign-off.
	ErrNotAwaitingApproval = apperrors.Wrap(apperrors.ErrConflict, "purge run is not awaiting approval")
)
