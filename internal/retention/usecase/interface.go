// Package usecase implements retention business logic: policy administration,
// legal holds, and the purge coordinator.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/auditchain/internal/audit/domain"
	retentionDomain "github.com/allisson/auditchain/internal/retention/domain"
)

// RetentionPolicyRepository defines persistence for retention policies.
type RetentionPolicyRepository interface {
	// Get retrieves the policy for an event type. Returns ErrPolicyNotFound when
	// none exists; events without a policy are never purge-eligible.
	Get(ctx context.Context, eventType auditDomain.EventType) (*retentionDomain.RetentionPolicy, error)

	// Upsert creates or replaces the policy for an event type.
	Upsert(ctx context.Context, policy *retentionDomain.RetentionPolicy) error

	// List retrieves all policies ordered by event type.
	List(ctx context.Context) ([]*retentionDomain.RetentionPolicy, error)
}

// LegalHoldRepository defines persistence for per-resource legal holds.
type LegalHoldRepository interface {
	// Get retrieves the hold for a resource. Returns ErrHoldNotFound when none exists.
	Get(ctx context.Context, resourceID string) (*retentionDomain.LegalHold, error)

	// Upsert places or refreshes a hold.
	Upsert(ctx context.Context, hold *retentionDomain.LegalHold) error

	// Delete lifts a hold. Returns ErrHoldNotFound when none exists.
	Delete(ctx context.Context, resourceID string) error

	// ListResourceIDs returns every held resource ID.
	ListResourceIDs(ctx context.Context) ([]string, error)
}

// PurgeRunRepository defines persistence for purge runs.
type PurgeRunRepository interface {
	Create(ctx context.Context, run *retentionDomain.PurgeRun) error
	Get(ctx context.Context, id uuid.UUID) (*retentionDomain.PurgeRun, error)

	// Update persists status, counters, and the batch boundary.
	Update(ctx context.Context, run *retentionDomain.PurgeRun) error

	// List retrieves runs newest-first with pagination.
	List(ctx context.Context, offset, limit int) ([]*retentionDomain.PurgeRun, error)

	// GetResumable returns the most recent non-terminal run, or ErrRunNotFound.
	GetResumable(ctx context.Context) (*retentionDomain.PurgeRun, error)
}

// SetPolicyInput carries one retention policy mutation.
type SetPolicyInput struct {
	EventType    auditDomain.EventType
	MinRetention time.Duration
	LegalHold    bool
}

// PolicyUseCase administers retention policies and legal holds. Every mutation is
// itself recorded as an audit event on the system chain before it is applied; a
// failed append fails the whole operation.
type PolicyUseCase interface {
	SetPolicy(ctx context.Context, actorID string, input SetPolicyInput) (*retentionDomain.RetentionPolicy, error)
	GetPolicy(ctx context.Context, eventType auditDomain.EventType) (*retentionDomain.RetentionPolicy, error)
	ListPolicies(ctx context.Context) ([]*retentionDomain.RetentionPolicy, error)
	SetLegalHold(ctx context.Context, actorID, resourceID, reason string) (*retentionDomain.LegalHold, error)
	ReleaseLegalHold(ctx context.Context, actorID, resourceID string) error
}

// CoordinatorUseCase drives purge runs through their state machine.
type CoordinatorUseCase interface {
	// Start runs the periodic purge loop until the context is cancelled.
	Start(ctx context.Context) error

	// RunOnce resumes the open purge run or schedules a new one, and advances it as
	// far as the state machine allows. dryRun evaluates eligibility without
	// scheduling, deleting, or recording anything.
	RunOnce(ctx context.Context, dryRun bool) (*retentionDomain.PurgeResult, error)

	// Approve releases a run paused in awaiting_approval into purging. Deletion
	// happens on the next coordinator pass.
	Approve(ctx context.Context, actorID string, runID uuid.UUID) (*retentionDomain.PurgeRun, error)

	// Suspend emergency-stops a run. An in-flight pass aborts with
	// ErrPurgeSuspended at its next batch boundary.
	Suspend(ctx context.Context, actorID string, runID uuid.UUID) (*retentionDomain.PurgeRun, error)

	GetRun(ctx context.Context, id uuid.UUID) (*retentionDomain.PurgeRun, error)
	ListRuns(ctx context.Context, offset, limit int) ([]*retentionDomain.PurgeRun, error)
}
