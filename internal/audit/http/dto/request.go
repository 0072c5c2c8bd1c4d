// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	"encoding/base64"
	"time"

	validation "github.com/jellydator/validation"

	auditDomain "github.com/allisson/auditchain/internal/audit/domain"
	apperrors "github.com/allisson/auditchain/internal/errors"
	auditUsecase "github.com/allisson/auditchain/internal/audit/usecase"
	customValidation "github.com/allisson/auditchain/internal/validation"
)

// RecordEventRequest contains the classification fields for appending one audit
// event. The chain ID is extracted from the URL parameter, not the request body.
// SensitivePayload is base64-encoded; it is encrypted at rest and never returned
// by any read or export endpoint.
type RecordEventRequest struct {
	EventType        string     `json:"event_type"`
	ActorID          string     `json:"actor_id"`
	ResourceType     string     `json:"resource_type"`
	ResourceID       string     `json:"resource_id"`
	Action           string     `json:"action"`
	Outcome          string     `json:"outcome"`
	OccurredAt       *time.Time `json:"occurred_at,omitempty"`
	SensitivePayload string     `json:"sensitive_payload,omitempty"`
}

// Validate checks if the record event request is valid.
func (r *RecordEventRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.EventType, validation.Required),
		validation.Field(&r.ActorID, validation.Required, customValidation.NotBlank),
		validation.Field(&r.ResourceType, validation.Required, customValidation.NotBlank),
		validation.Field(&r.ResourceID, validation.Required, customValidation.NotBlank),
		validation.Field(&r.Action, validation.Required),
		validation.Field(&r.Outcome, validation.Required),
	)
}

// ToInput converts the request into the appender's input, parsing the closed
// enums and decoding the payload. Enum violations surface as invalid-field errors.
func (r *RecordEventRequest) ToInput() (auditUsecase.RecordEventInput, error) {
	var input auditUsecase.RecordEventInput

	eventType, err := auditDomain.ParseEventType(r.EventType)
	if err != nil {
		return input, err
	}
	action, err := auditDomain.ParseAction(r.Action)
	if err != nil {
		return input, err
	}
	outcome, err := auditDomain.ParseOutcome(r.Outcome)
	if err != nil {
		return input, err
	}

	var payload []byte
	if r.SensitivePayload != "" {
		payload, err = base64.StdEncoding.DecodeString(r.SensitivePayload)
		if err != nil {
			return input, apperrors.Wrap(apperrors.ErrInvalidInput, "sensitive_payload is not valid base64")
		}
	}

	input = auditUsecase.RecordEventInput{
		EventType:        eventType,
		ActorID:          r.ActorID,
		ResourceType:     r.ResourceType,
		ResourceID:       r.ResourceID,
		Action:           action,
		Outcome:          outcome,
		SensitivePayload: payload,
	}
	if r.OccurredAt != nil {
		input.OccurredAt = *r.OccurredAt
	}
	return input, nil
}
