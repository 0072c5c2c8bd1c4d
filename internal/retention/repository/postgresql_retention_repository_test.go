package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/allisson/auditchain/internal/audit/domain"
	apperrors "github.com/allisson/auditchain/internal/errors"
	retentionDomain "github.com/allisson/auditchain/internal/retention/domain"
	"github.com/allisson/auditchain/internal/testutil"
)

func TestPostgreSQLRetentionPolicyRepository(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLRetentionPolicyRepository(db)
	ctx := context.Background()

	t.Run("Error_MissingPolicy", func(t *testing.T) {
		_, err := repo.Get(ctx, auditDomain.EventTypePHIAccessed)
		assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	})

	t.Run("Success_UpsertAndGet", func(t *testing.T) {
		policy := &retentionDomain.RetentionPolicy{
			EventType:    auditDomain.EventTypePHIAccessed,
			MinRetention: 30 * 24 * time.Hour,
			LegalHold:    false,
			UpdatedAt:    time.Now().UTC().Truncate(time.Microsecond),
		}
		require.NoError(t, repo.Upsert(ctx, policy))

		read, err := repo.Get(ctx, auditDomain.EventTypePHIAccessed)
		require.NoError(t, err)
		assert.Equal(t, policy.MinRetention, read.MinRetention)
		assert.False(t, read.LegalHold)

		// Second upsert replaces.
		policy.MinRetention = 7 * 24 * time.Hour
		policy.LegalHold = true
		require.NoError(t, repo.Upsert(ctx, policy))

		read, err = repo.Get(ctx, auditDomain.EventTypePHIAccessed)
		require.NoError(t, err)
		assert.Equal(t, 7*24*time.Hour, read.MinRetention)
		assert.True(t, read.LegalHold)
	})

	t.Run("Success_List", func(t *testing.T) {
		require.NoError(t, repo.Upsert(ctx, &retentionDomain.RetentionPolicy{
			EventType:    auditDomain.EventTypeLogin,
			MinRetention: 24 * time.Hour,
			UpdatedAt:    time.Now().UTC(),
		}))

		policies, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Len(t, policies, 2)
	})
}

func TestPostgreSQLLegalHoldRepository(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLLegalHoldRepository(db)
	ctx := context.Background()

	t.Run("Success_UpsertGetDelete", func(t *testing.T) {
		hold := &retentionDomain.LegalHold{
			ResourceID: "rec-001",
			Reason:     "litigation 2026-044",
			CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
		}
		require.NoError(t, repo.Upsert(ctx, hold))

		read, err := repo.Get(ctx, "rec-001")
		require.NoError(t, err)
		assert.Equal(t, hold.Reason, read.Reason)

		require.NoError(t, repo.Delete(ctx, "rec-001"))

		_, err = repo.Get(ctx, "rec-001")
		assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

		err = repo.Delete(ctx, "rec-001")
		assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	})

	t.Run("Success_ListResourceIDs", func(t *testing.T) {
		for _, id := range []string{"rec-b", "rec-a"} {
			require.NoError(t, repo.Upsert(ctx, &retentionDomain.LegalHold{
				ResourceID: id,
				Reason:     "audit",
				CreatedAt:  time.Now().UTC(),
			}))
		}

		ids, err := repo.ListResourceIDs(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"rec-a", "rec-b"}, ids)
	})
}

func TestPostgreSQLPurgeRunRepository(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLPurgeRunRepository(db)
	ctx := context.Background()

	t.Run("Success_CreateGetUpdate", func(t *testing.T) {
		run := retentionDomain.NewPurgeRun(time.Now().UTC().Truncate(time.Microsecond), 500)
		require.NoError(t, repo.Create(ctx, run))

		read, err := repo.Get(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, retentionDomain.PurgeRunStatusScheduled, read.Status)
		assert.Equal(t, int64(-1), read.LastBlock)

		require.NoError(t, run.TransitionTo(retentionDomain.PurgeRunStatusEvaluating))
		run.EventsDeleted = 42
		run.EventsSkipped = 3
		run.LastChainID = "patient-42"
		run.LastBlock = 7
		require.NoError(t, repo.Update(ctx, run))

		read, err = repo.Get(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, retentionDomain.PurgeRunStatusEvaluating, read.Status)
		assert.Equal(t, int64(42), read.EventsDeleted)
		assert.Equal(t, int64(3), read.EventsSkipped)
		assert.Equal(t, "patient-42", read.LastChainID)
		assert.Equal(t, int64(7), read.LastBlock)
	})

	t.Run("Error_UnknownRun", func(t *testing.T) {
		_, err := repo.Get(ctx, uuid.Must(uuid.NewV7()))
		assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	})

	t.Run("Success_GetResumable", func(t *testing.T) {
		testutil.CleanupPostgresDB(t, db)

		done := retentionDomain.NewPurgeRun(time.Now().UTC(), 500)
		done.Status = retentionDomain.PurgeRunStatusCompleted
		require.NoError(t, repo.Create(ctx, done))

		_, err := repo.GetResumable(ctx)
		assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

		open := retentionDomain.NewPurgeRun(time.Now().UTC(), 500)
		open.Status = retentionDomain.PurgeRunStatusPurging
		require.NoError(t, repo.Create(ctx, open))

		resumable, err := repo.GetResumable(ctx)
		require.NoError(t, err)
		assert.Equal(t, open.ID, resumable.ID)
	})

	t.Run("Success_List", func(t *testing.T) {
		runs, err := repo.List(ctx, 0, 10)
		require.NoError(t, err)
		assert.NotEmpty(t, runs)
	})
}
