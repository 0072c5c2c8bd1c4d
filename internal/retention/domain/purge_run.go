package domain

import (
	"time"

	"github.com/google/uuid"
)

// PurgeRunStatus represents the lifecycle state of one purge run.
type PurgeRunStatus string

const (
	// PurgeRunStatusScheduled marks a run created but not yet started.
	PurgeRunStatusScheduled PurgeRunStatus = "scheduled"

	// PurgeRunStatusEvaluating marks a run scanning for purge-eligible events.
	PurgeRunStatusEvaluating PurgeRunStatus = "evaluating"

	// PurgeRunStatusAwaitingApproval marks a run paused for administrator sign-off
	// on the evaluated scope.
	PurgeRunStatusAwaitingApproval PurgeRunStatus = "awaiting_approval"

	// PurgeRunStatusPurging marks a run deleting eligible events in batches.
	PurgeRunStatusPurging PurgeRunStatus = "purging"

	// PurgeRunStatusCompleted marks a run that finished deleting everything in scope.
	PurgeRunStatusCompleted PurgeRunStatus = "completed"

	// PurgeRunStatusSuspended marks an emergency stop. Reachable from any live state.
	PurgeRunStatusSuspended PurgeRunStatus = "suspended"

	// PurgeRunStatusFailed marks a run aborted by a storage or chain error.
	// Failed runs are retried: the next pass resumes them instead of
	// scheduling new work around the undeleted scope.
	PurgeRunStatusFailed PurgeRunStatus = "failed"
)

// purgeRunTransitions is the closed transition table of the run state machine.
var purgeRunTransitions = map[PurgeRunStatus][]PurgeRunStatus{
	PurgeRunStatusScheduled:        {PurgeRunStatusEvaluating, PurgeRunStatusSuspended},
	PurgeRunStatusEvaluating:       {PurgeRunStatusAwaitingApproval, PurgeRunStatusPurging, PurgeRunStatusCompleted, PurgeRunStatusSuspended, PurgeRunStatusFailed},
	PurgeRunStatusAwaitingApproval: {PurgeRunStatusPurging, PurgeRunStatusSuspended},
	PurgeRunStatusPurging:          {PurgeRunStatusCompleted, PurgeRunStatusSuspended, PurgeRunStatusFailed},
	PurgeRunStatusSuspended:        {PurgeRunStatusEvaluating, PurgeRunStatusPurging},
	PurgeRunStatusCompleted:        {},
	PurgeRunStatusFailed:           {PurgeRunStatusEvaluating, PurgeRunStatusPurging, PurgeRunStatusSuspended},
}

// PurgeRun is the durable record of one retention purge. Batch boundaries
// (LastChainID, LastBlock) persist after every batch so an interrupted run
// resumes without re-deleting or double-counting.
type PurgeRun struct {
	ID            uuid.UUID
	Status        PurgeRunStatus
	Cutoff        time.Time
	BatchSize     int
	EventsDeleted int64
	EventsSkipped int64
	LastChainID   string
	LastBlock     int64
	LastError     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewPurgeRun creates a scheduled purge run evaluated against the given time.
func NewPurgeRun(cutoff time.Time, batchSize int) *PurgeRun {
	now := time.Now().UTC()
	return &PurgeRun{
		ID:        uuid.Must(uuid.NewV7()),
		Status:    PurgeRunStatusScheduled,
		Cutoff:    cutoff,
		BatchSize: batchSize,
		LastBlock: -1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CanTransitionTo reports whether the state machine allows moving to next.
func (r *PurgeRun) CanTransitionTo(next PurgeRunStatus) bool {
	for _, allowed := range purgeRunTransitions[r.Status] {
		if allowed == next {
			return true
		}
	}
	return false
}

// TransitionTo moves the run to next, or returns ErrInvalidTransition.
func (r *PurgeRun) TransitionTo(next PurgeRunStatus) error {
	if !r.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	r.Status = next
	r.UpdatedAt = time.Now().UTC()
	return nil
}

// IsTerminal reports whether the run can make no further progress.
func (r *PurgeRun) IsTerminal() bool {
	return r.Status == PurgeRunStatusCompleted
}

// PurgeResult summarizes what one run (or dry run) did. It never carries event
// payloads.
type PurgeResult struct {
	RunID         uuid.UUID
	Status        PurgeRunStatus
	EventsDeleted int64
	EventsSkipped int64
	DryRun        bool
}
