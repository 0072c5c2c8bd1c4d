package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/auditchain/internal/audit/domain"
	auditUsecase "github.com/allisson/auditchain/internal/audit/usecase"
	"github.com/allisson/auditchain/internal/database"
	apperrors "github.com/allisson/auditchain/internal/errors"
	retentionDomain "github.com/allisson/auditchain/internal/retention/domain"
)

// CoordinatorConfig holds purge coordinator configuration.
type CoordinatorConfig struct {
	// Interval is how often the background loop evaluates retention policies.
	Interval time.Duration

	// BatchSize is the maximum number of events deleted per batch.
	BatchSize int

	// RequireApproval parks runs with a non-empty scope in awaiting_approval
	// until an administrator signs off.
	RequireApproval bool
}

// coordinatorUseCase implements CoordinatorUseCase. One run at a time: the most
// recent non-terminal run is resumed before a new one is scheduled, so a crash
// mid-purge picks up where it left off instead of leaving an orphan.
type coordinatorUseCase struct {
	config     CoordinatorConfig
	txManager  database.TxManager
	runRepo    PurgeRunRepository
	policyRepo RetentionPolicyRepository
	holdRepo   LegalHoldRepository
	eventRepo  auditUsecase.EventRepository
	stateRepo  auditUsecase.ChainStateRepository
	rangeRepo  auditUsecase.PurgedRangeRepository
	appender   auditUsecase.AppenderUseCase
	logger     *slog.Logger
	now        func() time.Time
}

// NewCoordinatorUseCase creates a new CoordinatorUseCase with the provided
// dependencies.
func NewCoordinatorUseCase(
	config CoordinatorConfig,
	txManager database.TxManager,
	runRepo PurgeRunRepository,
	policyRepo RetentionPolicyRepository,
	holdRepo LegalHoldRepository,
	eventRepo auditUsecase.EventRepository,
	stateRepo auditUsecase.ChainStateRepository,
	rangeRepo auditUsecase.PurgedRangeRepository,
	appender auditUsecase.AppenderUseCase,
	logger *slog.Logger,
) CoordinatorUseCase {
	if config.Interval <= 0 {
		config.Interval = time.Hour
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 1000
	}
	return &coordinatorUseCase{
		config:     config,
		txManager:  txManager,
		runRepo:    runRepo,
		policyRepo: policyRepo,
		holdRepo:   holdRepo,
		eventRepo:  eventRepo,
		stateRepo:  stateRepo,
		rangeRepo:  rangeRepo,
		appender:   appender,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Start runs the periodic purge loop until the context is cancelled.
func (c *coordinatorUseCase) Start(ctx context.Context) error {
	if c.logger != nil {
		c.logger.Info("starting purge coordinator",
			slog.Duration("interval", c.config.Interval),
			slog.Int("batch_size", c.config.BatchSize),
			slog.Bool("require_approval", c.config.RequireApproval),
		)
	}

	ticker := time.NewTicker(c.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if c.logger != nil {
				c.logger.Info("stopping purge coordinator")
			}
			return ctx.Err()
		case <-ticker.C:
			result, err := c.RunOnce(ctx, false)
			if err != nil {
				if c.logger != nil {
					c.logger.Error("purge pass failed", slog.Any("error", err))
				}
				continue
			}
			if c.logger != nil && result != nil {
				c.logger.Info("purge pass finished",
					slog.String("run_id", result.RunID.String()),
					slog.String("status", string(result.Status)),
					slog.Int64("events_deleted", result.EventsDeleted),
					slog.Int64("events_skipped", result.EventsSkipped),
				)
			}
		}
	}
}

// RunOnce resumes the open purge run or schedules a new one, and advances it as
// far as the state machine allows in a single pass.
func (c *coordinatorUseCase) RunOnce(ctx context.Context, dryRun bool) (*retentionDomain.PurgeResult, error) {
	if dryRun {
		eligible, skipped, err := c.evaluate(ctx, c.now())
		if err != nil {
			return nil, err
		}
		return &retentionDomain.PurgeResult{
			EventsDeleted: eligible,
			EventsSkipped: skipped,
			DryRun:        true,
		}, nil
	}

	run, err := c.runRepo.GetResumable(ctx)
	if err != nil {
		if !apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		run = retentionDomain.NewPurgeRun(c.now(), c.config.BatchSize)
		if err := c.runRepo.Create(ctx, run); err != nil {
			return nil, err
		}
	}

	result, err := c.advance(ctx, run)
	if err != nil && !apperrors.Is(err, apperrors.ErrPurgeSuspended) && ctx.Err() == nil {
		c.fail(ctx, run, err)
	}
	return result, err
}

// advance pushes the run through its state machine: evaluate, optionally pause
// for approval, then purge. A failed run is retried from the point it reached;
// a pass over a run already parked in awaiting_approval makes no progress.
func (c *coordinatorUseCase) advance(
	ctx context.Context,
	run *retentionDomain.PurgeRun,
) (*retentionDomain.PurgeResult, error) {
	if run.Status == retentionDomain.PurgeRunStatusFailed {
		// Retry a failed run rather than abandoning its scope. A run that never
		// deleted anything restarts from evaluation so the approval gate still
		// applies; a run that failed mid-purge goes straight back to purging.
		next := retentionDomain.PurgeRunStatusPurging
		if run.LastBlock < 0 && run.EventsDeleted == 0 {
			next = retentionDomain.PurgeRunStatusEvaluating
		}
		run.LastError = ""
		if err := run.TransitionTo(next); err != nil {
			return nil, err
		}
		if err := c.runRepo.Update(ctx, run); err != nil {
			return nil, err
		}
	}

	if run.Status == retentionDomain.PurgeRunStatusScheduled {
		if err := run.TransitionTo(retentionDomain.PurgeRunStatusEvaluating); err != nil {
			return nil, err
		}
		if err := c.runRepo.Update(ctx, run); err != nil {
			return nil, err
		}
	}

	if run.Status == retentionDomain.PurgeRunStatusEvaluating {
		eligible, skipped, err := c.evaluate(ctx, run.Cutoff)
		if err != nil {
			return nil, err
		}

		if err := c.recordRunEvent(ctx, auditDomain.EventTypePurgeInitiated, run, map[string]any{
			"run_id":          run.ID.String(),
			"cutoff":          run.Cutoff,
			"events_eligible": eligible,
			"events_skipped":  skipped,
		}); err != nil {
			return nil, err
		}

		switch {
		case eligible == 0:
			run.EventsSkipped = skipped
			if err := c.complete(ctx, run); err != nil {
				return nil, err
			}
			return resultOf(run), nil
		case c.config.RequireApproval:
			if err := run.TransitionTo(retentionDomain.PurgeRunStatusAwaitingApproval); err != nil {
				return nil, err
			}
			if err := c.runRepo.Update(ctx, run); err != nil {
				return nil, err
			}
			return resultOf(run), nil
		default:
			if err := run.TransitionTo(retentionDomain.PurgeRunStatusPurging); err != nil {
				return nil, err
			}
			if err := c.runRepo.Update(ctx, run); err != nil {
				return nil, err
			}
		}
	}

	if run.Status == retentionDomain.PurgeRunStatusPurging {
		if err := c.purge(ctx, run); err != nil {
			return resultOf(run), err
		}
		if err := c.complete(ctx, run); err != nil {
			return nil, err
		}
	}

	return resultOf(run), nil
}

// evaluate counts purge-eligible and hold-skipped events across every chain
// without touching anything. Counts for event types under a type-wide hold are
// omitted entirely since their policy shields the whole type.
func (c *coordinatorUseCase) evaluate(ctx context.Context, asOf time.Time) (eligible, skipped int64, err error) {
	policies, heldResources, chainIDs, err := c.loadScope(ctx)
	if err != nil {
		return 0, 0, err
	}

	for _, chainID := range chainIDs {
		// The system chain is the purge's own audit trail and is never purged.
		if chainID == auditDomain.SystemChainID {
			continue
		}
		for _, policy := range policies {
			if policy.LegalHold {
				continue
			}
			cutoff := policy.Cutoff(asOf)
			after := int64(-1)
			for {
				candidates, err := c.eventRepo.ListPurgeCandidates(
					ctx, chainID, policy.EventType, cutoff, after, c.config.BatchSize)
				if err != nil {
					return 0, 0, err
				}
				if len(candidates) == 0 {
					break
				}
				for _, event := range candidates {
					if heldResources[event.ResourceID] {
						skipped++
					} else {
						eligible++
					}
				}
				after = candidates[len(candidates)-1].BlockNumber
				if len(candidates) < c.config.BatchSize {
					break
				}
			}
		}
	}
	return eligible, skipped, nil
}

// purge deletes eligible events batch by batch. Each batch commits the deletion,
// the purged-range ledger entries, and the run's progress in one transaction, so
// a crash never leaves a gap the verifier cannot explain. The run's stored status
// is re-read at every batch boundary to honor an emergency suspend.
func (c *coordinatorUseCase) purge(ctx context.Context, run *retentionDomain.PurgeRun) error {
	policies, heldResources, chainIDs, err := c.loadScope(ctx)
	if err != nil {
		return err
	}

	// Held events survive every pass, so the skipped counter is recomputed from
	// scratch instead of accumulated across resumes.
	var skipped int64

	for _, chainID := range chainIDs {
		if chainID == auditDomain.SystemChainID {
			continue
		}
		for _, policy := range policies {
			if policy.LegalHold {
				continue
			}
			cutoff := policy.Cutoff(run.Cutoff)
			after := int64(-1)
			for {
				suspended, err := c.isSuspended(ctx, run)
				if err != nil {
					return err
				}
				if suspended {
					run.Status = retentionDomain.PurgeRunStatusSuspended
					return apperrors.Wrap(apperrors.ErrPurgeSuspended, "purge run suspended mid-pass")
				}

				candidates, err := c.eventRepo.ListPurgeCandidates(
					ctx, chainID, policy.EventType, cutoff, after, run.BatchSize)
				if err != nil {
					return err
				}
				if len(candidates) == 0 {
					break
				}
				after = candidates[len(candidates)-1].BlockNumber

				var batch []*auditDomain.AuditEvent
				for _, event := range candidates {
					if heldResources[event.ResourceID] {
						skipped++
						continue
					}
					batch = append(batch, event)
				}

				if len(batch) > 0 {
					if err := c.deleteBatch(ctx, run, chainID, batch, skipped); err != nil {
						return err
					}
				}

				if len(candidates) < run.BatchSize {
					break
				}
			}
		}
	}

	run.EventsSkipped = skipped
	return nil
}

// deleteBatch removes one batch of eligible events and records the resulting
// gaps. The tail hash of each contiguous group is captured before deletion so
// the verifier can re-anchor across the gap.
func (c *coordinatorUseCase) deleteBatch(
	ctx context.Context,
	run *retentionDomain.PurgeRun,
	chainID string,
	batch []*auditDomain.AuditEvent,
	skipped int64,
) error {
	ids := make([]uuid.UUID, len(batch))
	for i, event := range batch {
		ids[i] = event.ID
	}

	return c.txManager.WithTx(ctx, func(ctx context.Context) error {
		deleted, err := c.eventRepo.DeleteByIDs(ctx, ids)
		if err != nil {
			return err
		}

		for _, group := range contiguousGroups(batch) {
			purgedRange := &auditDomain.PurgedRange{
				ChainID:    chainID,
				FromBlock:  group[0].BlockNumber,
				ToBlock:    group[len(group)-1].BlockNumber,
				TailHash:   group[len(group)-1].CurrentHash,
				PurgeRunID: run.ID.String(),
				CreatedAt:  c.now(),
			}
			if err := c.rangeRepo.Create(ctx, purgedRange); err != nil {
				return err
			}
		}

		run.EventsDeleted += deleted
		run.EventsSkipped = skipped
		run.LastChainID = chainID
		run.LastBlock = batch[len(batch)-1].BlockNumber
		run.UpdatedAt = c.now()
		return c.runRepo.Update(ctx, run)
	})
}

// complete records the final counts on the system chain and closes the run.
func (c *coordinatorUseCase) complete(ctx context.Context, run *retentionDomain.PurgeRun) error {
	if err := c.recordRunEvent(ctx, auditDomain.EventTypePurgeCompleted, run, map[string]any{
		"run_id":         run.ID.String(),
		"events_deleted": run.EventsDeleted,
		"events_skipped": run.EventsSkipped,
	}); err != nil {
		return err
	}

	if err := run.TransitionTo(retentionDomain.PurgeRunStatusCompleted); err != nil {
		return err
	}
	return c.runRepo.Update(ctx, run)
}

// fail moves the run into the failed state, keeping the original error for
// operators. Best effort: the caller's error is what surfaces.
func (c *coordinatorUseCase) fail(ctx context.Context, run *retentionDomain.PurgeRun, cause error) {
	run.LastError = cause.Error()
	if err := run.TransitionTo(retentionDomain.PurgeRunStatusFailed); err != nil {
		return
	}
	if err := c.runRepo.Update(ctx, run); err != nil && c.logger != nil {
		c.logger.Error("failed to persist purge run failure",
			slog.String("run_id", run.ID.String()),
			slog.Any("error", err),
		)
	}
}

// Approve releases a run paused in awaiting_approval into purging.
func (c *coordinatorUseCase) Approve(
	ctx context.Context,
	actorID string,
	runID uuid.UUID,
) (*retentionDomain.PurgeRun, error) {
	run, err := c.runRepo.Get(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run.Status != retentionDomain.PurgeRunStatusAwaitingApproval {
		return nil, retentionDomain.ErrNotAwaitingApproval
	}
	if err := run.TransitionTo(retentionDomain.PurgeRunStatusPurging); err != nil {
		return nil, err
	}
	if err := c.runRepo.Update(ctx, run); err != nil {
		return nil, err
	}

	if c.logger != nil {
		c.logger.Info("purge run approved",
			slog.String("run_id", run.ID.String()),
			slog.String("actor_id", actorID),
		)
	}
	return run, nil
}

// Suspend emergency-stops a run from any live state.
func (c *coordinatorUseCase) Suspend(
	ctx context.Context,
	actorID string,
	runID uuid.UUID,
) (*retentionDomain.PurgeRun, error) {
	run, err := c.runRepo.Get(ctx, runID)
	if err != nil {
		return nil, err
	}
	if err := run.TransitionTo(retentionDomain.PurgeRunStatusSuspended); err != nil {
		return nil, err
	}
	if err := c.runRepo.Update(ctx, run); err != nil {
		return nil, err
	}

	if c.logger != nil {
		c.logger.Warn("purge run suspended",
			slog.String("run_id", run.ID.String()),
			slog.String("actor_id", actorID),
		)
	}
	return run, nil
}

// GetRun retrieves one purge run.
func (c *coordinatorUseCase) GetRun(ctx context.Context, id uuid.UUID) (*retentionDomain.PurgeRun, error) {
	return c.runRepo.Get(ctx, id)
}

// ListRuns retrieves runs newest-first with pagination.
func (c *coordinatorUseCase) ListRuns(
	ctx context.Context,
	offset, limit int,
) ([]*retentionDomain.PurgeRun, error) {
	return c.runRepo.List(ctx, offset, limit)
}

// loadScope gathers the inputs of one purge pass: active policies, the set of
// held resource IDs, and every known chain.
func (c *coordinatorUseCase) loadScope(
	ctx context.Context,
) ([]*retentionDomain.RetentionPolicy, map[string]bool, []string, error) {
	policies, err := c.policyRepo.List(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	resourceIDs, err := c.holdRepo.ListResourceIDs(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	heldResources := make(map[string]bool, len(resourceIDs))
	for _, id := range resourceIDs {
		heldResources[id] = true
	}

	chainIDs, err := c.stateRepo.ListChainIDs(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	return policies, heldResources, chainIDs, nil
}

// isSuspended re-reads the run's stored status.
func (c *coordinatorUseCase) isSuspended(ctx context.Context, run *retentionDomain.PurgeRun) (bool, error) {
	fresh, err := c.runRepo.Get(ctx, run.ID)
	if err != nil {
		return false, err
	}
	return fresh.Status == retentionDomain.PurgeRunStatusSuspended, nil
}

// recordRunEvent appends a purge lifecycle event to the system chain.
func (c *coordinatorUseCase) recordRunEvent(
	ctx context.Context,
	eventType auditDomain.EventType,
	run *retentionDomain.PurgeRun,
	payload map[string]any,
) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return apperrors.Wrap(err, "failed to encode purge payload")
	}

	_, err = c.appender.Record(ctx, auditDomain.SystemChainID, auditUsecase.RecordEventInput{
		EventType:        eventType,
		ActorID:          "purge-coordinator",
		ResourceType:     "purge_run",
		ResourceID:       run.ID.String(),
		Action:           auditDomain.ActionPurge,
		Outcome:          auditDomain.OutcomeSuccess,
		SensitivePayload: encoded,
	})
	if err != nil {
		return apperrors.Wrap(err, "failed to audit purge run")
	}
	return nil
}

// contiguousGroups splits block-ascending events into maximal runs of adjacent
// block numbers. Each group becomes one purged-range ledger entry.
func contiguousGroups(events []*auditDomain.AuditEvent) [][]*auditDomain.AuditEvent {
	var groups [][]*auditDomain.AuditEvent
	var current []*auditDomain.AuditEvent

	for _, event := range events {
		if len(current) > 0 && event.BlockNumber != current[len(current)-1].BlockNumber+1 {
			groups = append(groups, current)
			current = nil
		}
		current = append(current, event)
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

// resultOf snapshots the run into a result.
func resultOf(run *retentionDomain.PurgeRun) *retentionDomain.PurgeResult {
	return &retentionDomain.PurgeResult{
		RunID:         run.ID,
		Status:        run.Status,
		EventsDeleted: run.EventsDeleted,
		EventsSkipped: run.EventsSkipped,
	}
}
