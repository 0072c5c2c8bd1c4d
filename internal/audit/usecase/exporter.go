package usecase

import (
	"context"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	auditDomain "github.com/allisson/auditchain/internal/audit/domain"
	auditService "github.com/allisson/auditchain/internal/audit/service"
	apperrors "github.com/allisson/auditchain/internal/errors"
)

const (
	// ExportFormatJSON streams one JSON object per line.
	ExportFormatJSON = "json"
	// ExportFormatCSV streams a header row followed by one row per block.
	ExportFormatCSV = "csv"
)

// exporterUseCase implements ExporterUseCase. Exports are verify-then-stream:
// a range that fails verification is never exported, so downstream auditors can
// treat any received export as integrity-checked at generation time.
type exporterUseCase struct {
	config    VerifierConfig
	eventRepo EventRepository
	verifier  VerifierUseCase
	signer    auditService.ExportSigner
}

// NewExporterUseCase creates a new ExporterUseCase. signer may be nil, in which
// case exports carry no signature trailer.
func NewExporterUseCase(
	config VerifierConfig,
	eventRepo EventRepository,
	verifier VerifierUseCase,
	signer auditService.ExportSigner,
) ExporterUseCase {
	if config.BatchSize < 1 {
		config.BatchSize = 500
	}
	return &exporterUseCase{
		config:    config,
		eventRepo: eventRepo,
		verifier:  verifier,
		signer:    signer,
	}
}

// exportedEvent is the wire shape of one block in an export. Payload ciphertext
// is deliberately absent; the plaintext digest lets auditors confirm payload
// integrity without seeing contents.
type exportedEvent struct {
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

func newExportedEvent(event *auditDomain.AuditEvent) exportedEvent {
	return exportedEvent{
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

// Export verifies the range and, only if it is valid, streams it to w.
func (e *exporterUseCase) Export(
	ctx context.Context,
	chainID string,
	fromBlock, toBlock int64,
	format string,
	w io.Writer,
) (*auditDomain.VerificationReport, error) {
	if format != ExportFormatJSON && format != ExportFormatCSV {
		return nil, apperrors.Wrap(
			apperrors.ErrInvalidInput,
			fmt.Sprintf("unsupported export format %q", format),
		)
	}

	report, err := e.verifier.Verify(ctx, chainID, fromBlock, toBlock, nil)
	if err != nil {
		return nil, err
	}
	if !report.Valid {
		return report, apperrors.Wrap(
			apperrors.ErrNotVerified,
			fmt.Sprintf("chain %s blocks %d-%d failed verification", chainID, fromBlock, toBlock),
		)
	}

	out := w
	var signing auditService.SigningWriter
	if e.signer != nil {
		signing, err = e.signer.NewWriter(w)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to initialize export signer")
		}
		out = signing
	}

	if err := e.stream(ctx, chainID, fromBlock, toBlock, format, out); err != nil {
		return nil, err
	}

	if signing != nil {
		// Trailer lines are written past the signing writer; the signature covers
		// everything before them.
		if _, err := fmt.Fprintf(w, "# signature: %s\n", hex.EncodeToString(signing.Sum())); err != nil {
			return nil, apperrors.Wrap(err, "failed to write export signature")
		}
	}

	return report, nil
}

func (e *exporterUseCase) stream(
	ctx context.Context,
	chainID string,
	fromBlock, toBlock int64,
	format string,
	w io.Writer,
) error {
	var writeEvent func(event *auditDomain.AuditEvent) error
	var flush func() error

	switch format {
	case ExportFormatJSON:
		encoder := json.NewEncoder(w)
		writeEvent = func(event *auditDomain.AuditEvent) error {
			return encoder.Encode(newExportedEvent(event))
		}
		flush = func() error { return nil }
	case ExportFormatCSV:
		cw := csv.NewWriter(w)
		header := []string{
			"id", "chain_id", "block_number", "occurred_at", "recorded_at",
			"event_type", "actor_id", "resource_type", "resource_id", "action",
			"outcome", "hash_scheme_version", "payload_digest", "previous_hash",
			"current_hash",
		}
		if err := cw.Write(header); err != nil {
			return apperrors.Wrap(err, "failed to write export header")
		}
		writeEvent = func(event *auditDomain.AuditEvent) error {
			row := newExportedEvent(event)
			return cw.Write([]string{
				row.ID,
				row.ChainID,
				strconv.FormatInt(row.BlockNumber, 10),
				row.OccurredAt.Format(time.RFC3339Nano),
				row.RecordedAt.Format(time.RFC3339Nano),
				row.EventType,
				row.ActorID,
				row.ResourceType,
				row.ResourceID,
				row.Action,
				row.Outcome,
				strconv.FormatInt(int64(row.HashSchemeVersion), 10),
				row.PayloadDigest,
				row.PreviousHash,
				row.CurrentHash,
			})
		}
		flush = func() error {
			cw.Flush()
			return cw.Error()
		}
	}

	cursor := fromBlock
	for cursor <= toBlock {
		if err := ctx.Err(); err != nil {
			return err
		}

		events, err := e.eventRepo.ListRange(ctx, chainID, cursor, toBlock, e.config.BatchSize)
		if err != nil {
			return apperrors.Wrap(err, "failed to load events for export")
		}
		if len(events) == 0 {
			break
		}

		for _, event := range events {
			if err := writeEvent(event); err != nil {
				return apperrors.Wrap(err, "failed to write export row")
			}
		}

		cursor = events[len(events)-1].BlockNumber + 1
	}

	if err := flush(); err != nil {
		return apperrors.Wrap(err, "failed to flush export")
	}
	return nil
}
