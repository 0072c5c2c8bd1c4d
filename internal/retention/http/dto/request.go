// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	validation "github.com/jellydator/validation"

	customValidation "github.com/allisson/auditchain/internal/validation"
)

// SetPolicyRequest contains the parameters for creating or replacing a retention
// policy. The event type is extracted from the URL parameter.
type SetPolicyRequest struct {
	MinRetentionSeconds int64 `json:"min_retention_seconds"`
	LegalHold           bool  `json:"legal_hold"`
}

// Validate checks if the set policy request is valid.
func (r *SetPolicyRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.MinRetentionSeconds, validation.Min(0)),
	)
}

// SetLegalHoldRequest contains the parameters for placing a legal hold. The
// resource ID is extracted from the URL parameter.
type SetLegalHoldRequest struct {
	Reason string `json:"reason"`
}

// Validate checks if the set legal hold request is valid.
func (r *SetLegalHoldRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Reason, validation.Required, customValidation.NotBlank),
	)
}

// RunPurgeRequest contains the parameters for triggering a purge pass.
type RunPurgeRequest struct {
	DryRun bool `json:"dry_run"`
}
