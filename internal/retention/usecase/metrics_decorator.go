package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/auditchain/internal/audit/domain"
	"github.com/allisson/auditchain/internal/metrics"
	retentionDomain "github.com/allisson/auditchain/internal/retention/domain"
)

// policyUseCaseWithMetrics decorates PolicyUseCase with metrics instrumentation.
type policyUseCaseWithMetrics struct {
	next    PolicyUseCase
	metrics metrics.BusinessMetrics
}

// NewPolicyUseCaseWithMetrics wraps a PolicyUseCase with metrics recording.
func NewPolicyUseCaseWithMetrics(useCase PolicyUseCase, m metrics.BusinessMetrics) PolicyUseCase {
	return &policyUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (p *policyUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	p.metrics.RecordOperation(ctx, "retention", operation, status)
	p.metrics.RecordDuration(ctx, "retention", operation, time.Since(start), status)
}

// SetPolicy records metrics for policy mutations.
func (p *policyUseCaseWithMetrics) SetPolicy(
	ctx context.Context,
	actorID string,
	input SetPolicyInput,
) (*retentionDomain.RetentionPolicy, error) {
	start := time.Now()
	policy, err := p.next.SetPolicy(ctx, actorID, input)
	p.record(ctx, "policy_set", start, err)
	return policy, err
}

// GetPolicy records metrics for policy reads.
func (p *policyUseCaseWithMetrics) GetPolicy(
	ctx context.Context,
	eventType auditDomain.EventType,
) (*retentionDomain.RetentionPolicy, error) {
	start := time.Now()
	policy, err := p.next.GetPolicy(ctx, eventType)
	p.record(ctx, "policy_get", start, err)
	return policy, err
}

// ListPolicies records metrics for policy listing.
func (p *policyUseCaseWithMetrics) ListPolicies(ctx context.Context) ([]*retentionDomain.RetentionPolicy, error) {
	start := time.Now()
	policies, err := p.next.ListPolicies(ctx)
	p.record(ctx, "policy_list", start, err)
	return policies, err
}

// SetLegalHold records metrics for hold placement.
func (p *policyUseCaseWithMetrics) SetLegalHold(
	ctx context.Context,
	actorID, resourceID, reason string,
) (*retentionDomain.LegalHold, error) {
	start := time.Now()
	hold, err := p.next.SetLegalHold(ctx, actorID, resourceID, reason)
	p.record(ctx, "legal_hold_set", start, err)
	return hold, err
}

// ReleaseLegalHold records metrics for hold release.
func (p *policyUseCaseWithMetrics) ReleaseLegalHold(ctx context.Context, actorID, resourceID string) error {
	start := time.Now()
	err := p.next.ReleaseLegalHold(ctx, actorID, resourceID)
	p.record(ctx, "legal_hold_release", start, err)
	return err
}

// coordinatorUseCaseWithMetrics decorates CoordinatorUseCase with metrics
// instrumentation. Start is passed through untouched; the loop's passes surface
// through RunOnce.
type coordinatorUseCaseWithMetrics struct {
	next    CoordinatorUseCase
	metrics metrics.BusinessMetrics
}

// NewCoordinatorUseCaseWithMetrics wraps a CoordinatorUseCase with metrics recording.
func NewCoordinatorUseCaseWithMetrics(useCase CoordinatorUseCase, m metrics.BusinessMetrics) CoordinatorUseCase {
	return &coordinatorUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (c *coordinatorUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	c.metrics.RecordOperation(ctx, "retention", operation, status)
	c.metrics.RecordDuration(ctx, "retention", operation, time.Since(start), status)
}

// Start runs the purge loop of the decorated coordinator.
func (c *coordinatorUseCaseWithMetrics) Start(ctx context.Context) error {
	return c.next.Start(ctx)
}

// RunOnce records metrics for purge passes.
func (c *coordinatorUseCaseWithMetrics) RunOnce(
	ctx context.Context,
	dryRun bool,
) (*retentionDomain.PurgeResult, error) {
	start := time.Now()
	result, err := c.next.RunOnce(ctx, dryRun)

	operation := "purge_run"
	if dryRun {
		operation = "purge_dry_run"
	}
	c.record(ctx, operation, start, err)

	return result, err
}

// Approve records metrics for purge run approvals.
func (c *coordinatorUseCaseWithMetrics) Approve(
	ctx context.Context,
	actorID string,
	runID uuid.UUID,
) (*retentionDomain.PurgeRun, error) {
	start := time.Now()
	run, err := c.next.Approve(ctx, actorID, runID)
	c.record(ctx, "purge_approve", start, err)
	return run, err
}

// Suspend records metrics for purge run suspensions.
func (c *coordinatorUseCaseWithMetrics) Suspend(
	ctx context.Context,
	actorID string,
	runID uuid.UUID,
) (*retentionDomain.PurgeRun, error) {
	start := time.Now()
	run, err := c.next.Suspend(ctx, actorID, runID)
	c.record(ctx, "purge_suspend", start, err)
	return run, err
}

// GetRun retrieves one purge run.
func (c *coordinatorUseCaseWithMetrics) GetRun(
	ctx context.Context,
	id uuid.UUID,
) (*retentionDomain.PurgeRun, error) {
	return c.next.GetRun(ctx, id)
}

// ListRuns retrieves runs newest-first with pagination.
func (c *coordinatorUseCaseWithMetrics) ListRuns(
	ctx context.Context,
	offset, limit int,
) ([]*retentionDomain.PurgeRun, error) {
	return c.next.ListRuns(ctx, offset, limit)
}
