package dto

import (
	"encoding/hex"
	"time"

	auditDomain "github.com/allisson/auditchain/internal/audit/domain"
)

// EventResponse represents an audit event in API responses. Hashes are
// hex-encoded; the encrypted payload is never included.
type EventResponse struct {
	ID                string    `json:"id"`
	ChainID           string    `json:"chain_id"`
	BlockNumber       int64     `json:"block_number"`
	OccurredAt        time.Time `json:"occurred_at"`
	RecordedAt        time.Time `json:"recorded_at"`
	EventType         string    `json:"event_type"`
	ActorID           string    `json:"actor_id"`
	ResourceType      string    `json:"resource_type"`
	ResourceID        string    `json:"resource_id"`
	Action            string    `json:"action"`
	Outcome           string    `json:"outcome"`
	HashSchemeVersion int32     `json:"hash_scheme_version"`
	PayloadDigest     string    `json:"payload_digest,omitempty"`
	PreviousHash      string    `json:"previous_hash"`
	CurrentHash       string    `json:"current_hash"`
}

// MapEventToResponse converts a domain audit event to an API response.
func MapEventToResponse(event *auditDomain.AuditEvent) EventResponse {
	return EventResponse{
		ID:                event.ID.String(),
		ChainID:           event.ChainID,
		BlockNumber:       event.BlockNumber,
		OccurredAt:        event.OccurredAt,
		RecordedAt:        event.RecordedAt,
		EventType:         string(event.EventType),
		ActorID:           event.ActorID,
		ResourceType:      event.ResourceType,
		ResourceID:        event.ResourceID,
		Action:            string(event.Action),
		Outcome:           string(event.Outcome),
		HashSchemeVersion: event.HashSchemeVersion,
		PayloadDigest:     hex.EncodeToString(event.PayloadDigest),
		PreviousHash:      hex.EncodeToString(event.PreviousHash),
		CurrentHash:       hex.EncodeToString(event.CurrentHash),
	}
}

// ListEventsResponse represents a paginated list of audit events.
type ListEventsResponse struct {
	Data []EventResponse `json:"data"`
}

// MapEventsToListResponse converts a slice of domain events to a list response.
func MapEventsToListResponse(events []*auditDomain.AuditEvent) ListEventsResponse {
	data := make([]EventResponse, 0, len(events))
	for _, event := range events {
		data = append(data, MapEventToResponse(event))
	}
	return ListEventsResponse{Data: data}
}

// ChainStateResponse represents the tail of a chain in API responses.
type ChainStateResponse struct {
	ChainID         string    `json:"chain_id"`
	LastBlockNumber int64     `json:"last_block_number"`
	LastHash        string    `json:"last_hash"`
	LastOccurredAt  time.Time `json:"last_occurred_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// MapChainStateToResponse converts domain chain state to an API response.
func MapChainStateToResponse(state *auditDomain.ChainState) ChainStateResponse {
	return ChainStateResponse{
		ChainID:         state.ChainID,
		LastBlockNumber: state.LastBlockNumber,
		LastHash:        hex.EncodeToString(state.LastHash),
		LastOccurredAt:  state.LastOccurredAt,
		UpdatedAt:       state.UpdatedAt,
	}
}

// PurgedRangeResponse represents an expected gap in API responses.
type PurgedRangeResponse struct {
	FromBlock  int64  `json:"from_block"`
	ToBlock    int64  `json:"to_block"`
	TailHash   string `json:"tail_hash"`
	PurgeRunID string `json:"purge_run_id"`
}

// VerificationReportResponse represents a verification report in API responses.
type VerificationReportResponse struct {
	ChainID              string                `json:"chain_id"`
	FromBlock            int64                 `json:"from_block"`
	ToBlock              int64                 `json:"to_block"`
	Valid                bool                  `json:"valid"`
	FirstBrokenBlock     *int64                `json:"first_broken_block,omitempty"`
	BrokenBlocks         []int64               `json:"broken_blocks,omitempty"`
	LinkedToTrustedPrior bool                  `json:"linked_to_trusted_prior"`
	ExpectedGaps         []PurgedRangeResponse `json:"expected_gaps,omitempty"`
	BlocksChecked        int64                 `json:"blocks_checked"`
	LastCheckedBlock     int64                 `json:"last_checked_block"`
	StartedAt            time.Time             `json:"started_at"`
	CompletedAt          time.Time             `json:"completed_at"`
}

// MapReportToResponse converts a domain verification report to an API response.
func MapReportToResponse(report *auditDomain.VerificationReport) VerificationReportResponse {
	gaps := make([]PurgedRangeResponse, 0, len(report.ExpectedGaps))
	for _, gap := range report.ExpectedGaps {
		gaps = append(gaps, PurgedRangeResponse{
			FromBlock:  gap.FromBlock,
			ToBlock:    gap.ToBlock,
			TailHash:   hex.EncodeToString(gap.TailHash),
			PurgeRunID: gap.PurgeRunID,
		})
	}

	return VerificationReportResponse{
		ChainID:              report.ChainID,
		FromBlock:            report.FromBlock,
		ToBlock:              report.ToBlock,
		Valid:                report.Valid,
		FirstBrokenBlock:     report.FirstBrokenBlock,
		BrokenBlocks:         report.BrokenBlocks,
		LinkedToTrustedPrior: report.LinkedToTrustedPrior,
		ExpectedGaps:         gaps,
		BlocksChecked:        report.BlocksChecked,
		LastCheckedBlock:     report.LastCheckedBlock,
		StartedAt:            report.StartedAt,
		CompletedAt:          report.CompletedAt,
	}
}
