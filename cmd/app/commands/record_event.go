package commands

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	auditDomain "github.com/allisson/auditchain/internal/audit/domain"
	auditUsecase "github.com/allisson/auditchain/internal/audit/usecase"
)

// RunRecordEvent appends one audit event to a chain from the command line.
// The sensitive payload, if any, is passed base64-encoded and is encrypted at
// rest; it never appears in the output.
func RunRecordEvent(
	ctx context.Context,
	appender auditUsecase.AppenderUseCase,
	logger *slog.Logger,
	writer io.Writer,
	chainID, eventType, actorID, resourceType, resourceID, action, outcome string,
	payloadBase64 string,
	format string,
) error {
	parsedEventType, err := auditDomain.ParseEventType(eventType)
	if err != nil {
		return fmt.Errorf("invalid event type: %w", err)
	}
	parsedAction, err := auditDomain.ParseAction(action)
	if err != nil {
		return fmt.Errorf("invalid action: %w", err)
	}
	parsedOutcome, err := auditDomain.ParseOutcome(outcome)
	if err != nil {
		return fmt.Errorf("invalid outcome: %w", err)
	}

	var payload []byte
	if payloadBase64 != "" {
		payload, err = base64.StdEncoding.DecodeString(payloadBase64)
		if err != nil {
			return fmt.Errorf("invalid payload: expected base64: %w", err)
		}
	}

	event, err := appender.Record(ctx, chainID, auditUsecase.RecordEventInput{
		EventType:        parsedEventType,
		ActorID:          actorID,
		ResourceType:     resourceType,
		ResourceID:       resourceID,
		Action:           parsedAction,
		Outcome:          parsedOutcome,
		SensitivePayload: payload,
	})
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}

	logger.Info("event recorded",
		slog.String("chain_id", event.ChainID),
		slog.Int64("block_number", event.BlockNumber),
	)

	if format == "json" {
		return outputEventJSON(writer, event)
	}
	outputEventText(writer, event)
	return nil
}

// outputEventText outputs the recorded event in human-readable text format.
func outputEventText(writer io.Writer, event *auditDomain.AuditEvent) {
	_, _ = fmt.Fprintf(writer, "Audit Event Recorded\n")
	_, _ = fmt.Fprintf(writer, "====================\n\n")
	_, _ = fmt.Fprintf(writer, "ID:            %s\n", event.ID)
	_, _ = fmt.Fprintf(writer, "Chain ID:      %s\n", event.ChainID)
	_, _ = fmt.Fprintf(writer, "Block Number:  %d\n", event.BlockNumber)
	_, _ = fmt.Fprintf(writer, "Event Type:    %s\n", event.EventType)
	_, _ = fmt.Fprintf(writer, "Occurred At:   %s\n", event.OccurredAt.Format("2006-01-02 15:04:05"))
	_, _ = fmt.Fprintf(writer, "Previous Hash: %s\n", hex.EncodeToString(event.PreviousHash))
	_, _ = fmt.Fprintf(writer, "Current Hash:  %s\n", hex.EncodeToString(event.CurrentHash))
}

// outputEventJSON outputs the recorded event in JSON format for machine consumption.
func outputEventJSON(writer io.Writer, event *auditDomain.AuditEvent) error {
	result := map[string]interface{}{
		"id":            event.ID.String(),
		"chain_id":      event.ChainID,
		"block_number":  event.BlockNumber,
		"event_type":    string(event.EventType),
		"occurred_at":   event.OccurredAt,
		"recorded_at":   event.RecordedAt,
		"previous_hash": hex.EncodeToString(event.PreviousHash),
		"current_hash":  hex.EncodeToString(event.CurrentHash),
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}
