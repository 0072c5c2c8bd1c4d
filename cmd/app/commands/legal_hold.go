package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	retentionUsecase "github.com/allisson/auditchain/internal/retention/usecase"
)

// RunSetLegalHold places or refreshes a legal hold on one resource, shielding
// its events from retention purges. The hold is recorded on the system chain.
func RunSetLegalHold(
	ctx context.Context,
	policyUseCase retentionUsecase.PolicyUseCase,
	logger *slog.Logger,
	writer io.Writer,
	actorID, resourceID, reason string,
) error {
	hold, err := policyUseCase.SetLegalHold(ctx, actorID, resourceID, reason)
	if err != nil {
		return fmt.Errorf("failed to set legal hold: %w", err)
	}

	logger.Info("legal hold set",
		slog.String("resource_id", hold.ResourceID),
		slog.String("actor_id", actorID),
	)

	_, _ = fmt.Fprintf(writer, "Legal hold placed on %s\n", hold.ResourceID)
	_, _ = fmt.Fprintf(writer, "Reason: %s\n", hold.Reason)
	return nil
}

// RunReleaseLegalHold lifts the legal hold on one resource. The release is
// recorded on the system chain.
func RunReleaseLegalHold(
	ctx context.Context,
	policyUseCase retentionUsecase.PolicyUseCase,
	logger *slog.Logger,
	writer io.Writer,
	actorID, resourceID string,
) error {
	if err := policyUseCase.ReleaseLegalHold(ctx, actorID, resourceID); err != nil {
		return fmt.Errorf("failed to release legal hold: %w", err)
	}

	logger.Info("legal hold released",
		slog.String("resource_id", resourceID),
		slog.String("actor_id", actorID),
	)

	_, _ = fmt.Fprintf(writer, "Legal hold released on %s\n", resourceID)
	return nil
}
