package dto

import (
	"time"

	retentionDomain "github.com/allisson/auditchain/internal/retention/domain"
)

// PolicyResponse represents a retention policy in API responses.
type PolicyResponse struct {
	EventType           string    `json:"event_type"`
	MinRetentionSeconds int64     `json:"min_retention_seconds"`
	LegalHold           bool      `json:"legal_hold"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// MapPolicyToResponse converts a domain retention policy to an API response.
func MapPolicyToResponse(policy *retentionDomain.RetentionPolicy) PolicyResponse {
	return PolicyResponse{
		EventType:           string(policy.EventType),
		MinRetentionSeconds: int64(policy.MinRetention / time.Second),
		LegalHold:           policy.LegalHold,
		UpdatedAt:           policy.UpdatedAt,
	}
}

// ListPoliciesResponse represents the full policy set in API responses.
type ListPoliciesResponse struct {
	Data []PolicyResponse `json:"data"`
}

// MapPoliciesToListResponse converts domain policies to a list response.
func MapPoliciesToListResponse(policies []*retentionDomain.RetentionPolicy) ListPoliciesResponse {
	data := make([]PolicyResponse, 0, len(policies))
	for _, policy := range policies {
		data = append(data, MapPolicyToResponse(policy))
	}
	return ListPoliciesResponse{Data: data}
}

// LegalHoldResponse represents a legal hold in API responses.
type LegalHoldResponse struct {
	ResourceID string    `json:"resource_id"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"created_at"`
}

// MapHoldToResponse converts a domain legal hold to an API response.
func MapHoldToResponse(hold *retentionDomain.LegalHold) LegalHoldResponse {
	return LegalHoldResponse{
		ResourceID: hold.ResourceID,
		Reason:     hold.Reason,
		CreatedAt:  hold.CreatedAt,
	}
}

// PurgeRunResponse represents a purge run in API responses.
type PurgeRunResponse struct {
	ID            string    `json:"id"`
	Status        string    `json:"status"`
	Cutoff        time.Time `json:"cutoff"`
	BatchSize     int       `json:"batch_size"`
	EventsDeleted int64     `json:"events_deleted"`
	EventsSkipped int64     `json:"events_skipped"`
	LastChainID   string    `json:"last_chain_id,omitempty"`
	LastBlock     int64     `json:"last_block"`
	LastError     string    `json:"last_error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// MapRunToResponse converts a domain purge run to an API response.
func MapRunToResponse(run *retentionDomain.PurgeRun) PurgeRunResponse {
	return PurgeRunResponse{
		ID:            run.ID.String(),
		Status:        string(run.Status),
		Cutoff:        run.Cutoff,
		BatchSize:     run.BatchSize,
		EventsDeleted: run.EventsDeleted,
		EventsSkipped: run.EventsSkipped,
		LastChainID:   run.LastChainID,
		LastBlock:     run.LastBlock,
		LastError:     run.LastError,
		CreatedAt:     run.CreatedAt,
		UpdatedAt:     run.UpdatedAt,
	}
}

// ListRunsResponse represents a paginated list of purge runs.
type ListRunsResponse struct {
	Data []PurgeRunResponse `json:"data"`
}

// MapRunsToListResponse converts domain purge runs to a list response.
func MapRunsToListResponse(runs []*retentionDomain.PurgeRun) ListRunsResponse {
	data := make([]PurgeRunResponse, 0, len(runs))
	for _, run := range runs {
		data = append(data, MapRunToResponse(run))
	}
	return ListRunsResponse{Data: data}
}

// PurgeResultResponse summarizes one purge pass or dry run.
type PurgeResultResponse struct {
	RunID         string `json:"run_id,omitempty"`
	Status        string `json:"status,omitempty"`
	EventsDeleted int64  `json:"events_deleted"`
	EventsSkipped int64  `json:"events_skipped"`
	DryRun        bool   `json:"dry_run"`
}

// MapResultToResponse converts a domain purge result to an API response.
func MapResultToResponse(result *retentionDomain.PurgeResult) PurgeResultResponse {
	response := PurgeResultResponse{
		Status:        string(result.Status),
		EventsDeleted: result.EventsDeleted,
		EventsSkipped: result.EventsSkipped,
		DryRun:        result.DryRun,
	}
	if !result.DryRun {
		response.RunID = result.RunID.String()
	}
	return response
}
