package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	retentionDomain "github.com/allisson/auditchain/internal/retention/domain"
	retentionUsecase "github.com/allisson/auditchain/internal/retention/usecase"
)

// RunPurge executes one purge coordinator pass, or a dry run that only evaluates
// which events would be purge-eligible under current policies and holds.
func RunPurge(
	ctx context.Context,
	coordinator retentionUsecase.CoordinatorUseCase,
	logger *slog.Logger,
	writer io.Writer,
	dryRun bool,
	format string,
) error {
	logger.Info("running purge pass", slog.Bool("dry_run", dryRun))

	result, err := coordinator.RunOnce(ctx, dryRun)
	if err != nil {
		return fmt.Errorf("failed to run purge: %w", err)
	}

	if format == "json" {
		if err := outputPurgeResultJSON(writer, result); err != nil {
			return fmt.Errorf("failed to output JSON: %w", err)
		}
	} else {
		outputPurgeResultText(writer, result)
	}

	logger.Info("purge pass completed",
		slog.Int64("events_deleted", result.EventsDeleted),
		slog.Int64("events_skipped", result.EventsSkipped),
	)

	return nil
}

// RunApprovePurgeRun releases a purge run parked in awaiting_approval. Deletion
// happens on the next coordinator pass.
func RunApprovePurgeRun(
	ctx context.Context,
	coordinator retentionUsecase.CoordinatorUseCase,
	logger *slog.Logger,
	writer io.Writer,
	actorID, runIDStr string,
	format string,
) error {
	runID, err := uuid.Parse(runIDStr)
	if err != nil {
		return fmt.Errorf("invalid run id: %w", err)
	}

	run, err := coordinator.Approve(ctx, actorID, runID)
	if err != nil {
		return fmt.Errorf("failed to approve purge run: %w", err)
	}

	logger.Info("purge run approved",
		slog.String("run_id", run.ID.String()),
		slog.String("actor_id", actorID),
	)

	if format == "json" {
		return outputPurgeRunJSON(writer, run)
	}
	outputPurgeRunText(writer, run)
	return nil
}

// RunSuspendPurgeRun emergency-stops a purge run. An in-flight pass aborts at
// its next batch boundary.
func RunSuspendPurgeRun(
	ctx context.Context,
	coordinator retentionUsecase.CoordinatorUseCase,
	logger *slog.Logger,
	writer io.Writer,
	actorID, runIDStr string,
	format string,
) error {
	runID, err := uuid.Parse(runIDStr)
	if err != nil {
		return fmt.Errorf("invalid run id: %w", err)
	}

	run, err := coordinator.Suspend(ctx, actorID, runID)
	if err != nil {
		return fmt.Errorf("failed to suspend purge run: %w", err)
	}

	logger.Warn("purge run suspended",
		slog.String("run_id", run.ID.String()),
		slog.String("actor_id", actorID),
	)

	if format == "json" {
		return outputPurgeRunJSON(writer, run)
	}
	outputPurgeRunText(writer, run)
	return nil
}

// outputPurgeResultText outputs the purge pass result in human-readable text format.
func outputPurgeResultText(writer io.Writer, result *retentionDomain.PurgeResult) {
	if result.DryRun {
		_, _ = fmt.Fprintf(writer, "Purge Dry Run\n")
		_, _ = fmt.Fprintf(writer, "=============\n\n")
		_, _ = fmt.Fprintf(writer, "Events Eligible: %d\n", result.EventsDeleted)
		_, _ = fmt.Fprintf(writer, "Events Skipped:  %d (legal holds)\n", result.EventsSkipped)
		_, _ = fmt.Fprintf(writer, "\nNo events were deleted.\n")
		return
	}

	_, _ = fmt.Fprintf(writer, "Purge Pass\n")
	_, _ = fmt.Fprintf(writer, "==========\n\n")
	_, _ = fmt.Fprintf(writer, "Run ID:         %s\n", result.RunID)
	_, _ = fmt.Fprintf(writer, "Status:         %s\n", result.Status)
	_, _ = fmt.Fprintf(writer, "Events Deleted: %d\n", result.EventsDeleted)
	_, _ = fmt.Fprintf(writer, "Events Skipped: %d (legal holds)\n", result.EventsSkipped)

	if result.Status == retentionDomain.PurgeRunStatusAwaitingApproval {
		_, _ = fmt.Fprintf(writer, "\nRun is awaiting approval. Approve it to start deletion.\n")
	}
}

// outputPurgeResultJSON outputs the purge pass result in JSON format.
func outputPurgeResultJSON(writer io.Writer, result *retentionDomain.PurgeResult) error {
	out := map[string]interface{}{
		"status":         string(result.Status),
		"events_deleted": result.EventsDeleted,
		"events_skipped": result.EventsSkipped,
		"dry_run":        result.DryRun,
	}
	if !result.DryRun {
		out["run_id"] = result.RunID.String()
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

// outputPurgeRunText outputs one purge run in human-readable text format.
func outputPurgeRunText(writer io.Writer, run *retentionDomain.PurgeRun) {
	_, _ = fmt.Fprintf(writer, "Purge Run\n")
	_, _ = fmt.Fprintf(writer, "=========\n\n")
	_, _ = fmt.Fprintf(writer, "ID:             %s\n", run.ID)
	_, _ = fmt.Fprintf(writer, "Status:         %s\n", run.Status)
	_, _ = fmt.Fprintf(writer, "Cutoff:         %s\n", run.Cutoff.Format("2006-01-02 15:04:05"))
	_, _ = fmt.Fprintf(writer, "Events Deleted: %d\n", run.EventsDeleted)
	_, _ = fmt.Fprintf(writer, "Events Skipped: %d\n", run.EventsSkipped)
	if run.LastError != "" {
		_, _ = fmt.Fprintf(writer, "Last Error:     %s\n", run.LastError)
	}
}

// outputPurgeRunJSON outputs one purge run in JSON format.
func outputPurgeRunJSON(writer io.Writer, run *retentionDomain.PurgeRun) error {
	out := map[string]interface{}{
		"id":             run.ID.String(),
		"status":         string(run.Status),
		"cutoff":         run.Cutoff,
		"events_deleted": run.EventsDeleted,
		"events_skipped": run.EventsSkipped,
	}
	if run.LastError != "" {
		out["last_error"] = run.LastError
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}
