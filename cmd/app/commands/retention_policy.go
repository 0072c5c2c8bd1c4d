package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	auditDomain "github.com/allisson/auditchain/internal/audit/domain"
	retentionDomain "github.com/allisson/auditchain/internal/retention/domain"
	retentionUsecase "github.com/allisson/auditchain/internal/retention/usecase"
)

// RunSetRetentionPolicy creates or replaces the retention policy for an event
// type. The mutation is recorded on the system audit chain before it applies.
func RunSetRetentionPolicy(
	ctx context.Context,
	policyUseCase retentionUsecase.PolicyUseCase,
	logger *slog.Logger,
	writer io.Writer,
	actorID, eventType string,
	minRetentionDays int,
	legalHold bool,
	format string,
) error {
	if minRetentionDays < 0 {
		return fmt.Errorf("minimum retention days must not be negative")
	}

	policy, err := policyUseCase.SetPolicy(ctx, actorID, retentionUsecase.SetPolicyInput{
		EventType:    auditDomain.EventType(eventType),
		MinRetention: time.Duration(minRetentionDays) * 24 * time.Hour,
		LegalHold:    legalHold,
	})
	if err != nil {
		return fmt.Errorf("failed to set retention policy: %w", err)
	}

	logger.Info("retention policy set",
		slog.String("event_type", string(policy.EventType)),
		slog.String("actor_id", actorID),
		slog.Duration("min_retention", policy.MinRetention),
		slog.Bool("legal_hold", policy.LegalHold),
	)

	if format == "json" {
		return outputPolicyJSON(writer, policy)
	}
	outputPolicyText(writer, policy)
	return nil
}

// outputPolicyText outputs the retention policy in human-readable text format.
func outputPolicyText(writer io.Writer, policy *retentionDomain.RetentionPolicy) {
	_, _ = fmt.Fprintf(writer, "Retention Policy\n")
	_, _ = fmt.Fprintf(writer, "================\n\n")
	_, _ = fmt.Fprintf(writer, "Event Type:    %s\n", policy.EventType)
	_, _ = fmt.Fprintf(writer, "Min Retention: %s\n", policy.MinRetention)
	_, _ = fmt.Fprintf(writer, "Legal Hold:    %t\n", policy.LegalHold)
}

// outputPolicyJSON outputs the retention policy in JSON format.
func outputPolicyJSON(writer io.Writer, policy *retentionDomain.RetentionPolicy) error {
	out := map[string]interface{}{
		"event_type":            string(policy.EventType),
		"min_retention_seconds": int64(policy.MinRetention / time.Second),
		"legal_hold":            policy.LegalHold,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}
