package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/allisson/auditchain/internal/audit/domain"
	apperrors "github.com/allisson/auditchain/internal/errors"
)

func TestNewPurgeRun(t *testing.T) {
	cutoff := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	run := NewPurgeRun(cutoff, 500)

	assert.Equal(t, PurgeRunStatusScheduled, run.Status)
	assert.Equal(t, cutoff, run.Cutoff)
	assert.Equal(t, 500, run.BatchSize)
	assert.Equal(t, int64(-1), run.LastBlock)
	assert.False(t, run.IsTerminal())
}

func TestPurgeRun_TransitionTo(t *testing.T) {
	t.Run("Success_HappyPathWithApproval", func(t *testing.T) {
		run := NewPurgeRun(time.Now().UTC(), 500)

		require.NoError(t, run.TransitionTo(PurgeRunStatusEvaluating))
		require.NoError(t, run.TransitionTo(PurgeRunStatusAwaitingApproval))
		require.NoError(t, run.TransitionTo(PurgeRunStatusPurging))
		require.NoError(t, run.TransitionTo(PurgeRunStatusCompleted))
		assert.True(t, run.IsTerminal())
	})

	t.Run("Success_HappyPathWithoutApproval", func(t *testing.T) {
		run := NewPurgeRun(time.Now().UTC(), 500)

		require.NoError(t, run.TransitionTo(PurgeRunStatusEvaluating))
		require.NoError(t, run.TransitionTo(PurgeRunStatusPurging))
		require.NoError(t, run.TransitionTo(PurgeRunStatusCompleted))
	})

	t.Run("Success_SuspendFromAnyLiveState", func(t *testing.T) {
		for _, status := range []PurgeRunStatus{
			PurgeRunStatusScheduled,
			PurgeRunStatusEvaluating,
			PurgeRunStatusAwaitingApproval,
			PurgeRunStatusPurging,
		} {
			run := NewPurgeRun(time.Now().UTC(), 500)
			run.Status = status
			assert.NoError(t, run.TransitionTo(PurgeRunStatusSuspended), string(status))
		}
	})

	t.Run("Success_ResumeFromSuspended", func(t *testing.T) {
		run := NewPurgeRun(time.Now().UTC(), 500)
		run.Status = PurgeRunStatusSuspended

		assert.NoError(t, run.TransitionTo(PurgeRunStatusPurging))
	})

	t.Run("Success_RetryFromFailed", func(t *testing.T) {
		for _, next := range []PurgeRunStatus{PurgeRunStatusEvaluating, PurgeRunStatusPurging} {
			run := NewPurgeRun(time.Now().UTC(), 500)
			run.Status = PurgeRunStatusFailed

			assert.False(t, run.IsTerminal())
			assert.NoError(t, run.TransitionTo(next), string(next))
		}
	})

	t.Run("Error_CompletedIsFinal", func(t *testing.T) {
		run := NewPurgeRun(time.Now().UTC(), 500)
		run.Status = PurgeRunStatusCompleted

		require.True(t, run.IsTerminal())
		err := run.TransitionTo(PurgeRunStatusPurging)
		assert.True(t, apperrors.Is(err, apperrors.ErrConflict))
	})

	t.Run("Error_SkippingStates", func(t *testing.T) {
		run := NewPurgeRun(time.Now().UTC(), 500)

		err := run.TransitionTo(PurgeRunStatusCompleted)
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.Equal(t, PurgeRunStatusScheduled, run.Status)
	})
}

func TestRetentionPolicy_Cutoff(t *testing.T) {
	policy := RetentionPolicy{
		EventType:    auditDomain.EventTypePHIAccessed,
		MinRetention: 30 * 24 * time.Hour,
	}

	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, now.Add(-30*24*time.Hour), policy.Cutoff(now))
}
