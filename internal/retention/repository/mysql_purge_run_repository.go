package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/allisson/auditchain/internal/database"
	apperrors "github.com/allisson/auditchain/internal/errors"
	retentionDomain "github.com/allisson/auditchain/internal/retention/domain"
)

// MySQLPurgeRunRepository implements purge run persistence for MySQL.
type MySQLPurgeRunRepository struct {
	db *sql.DB
}

// NewMySQLPurgeRunRepository creates a new MySQLPurgeRunRepository.
func NewMySQLPurgeRunRepository(db *sql.DB) *MySQLPurgeRunRepository {
	return &MySQLPurgeRunRepository{db: db}
}

// Create inserts a new purge run.
func (m *MySQLPurgeRunRepository) Create(
	ctx context.Context,
	run *retentionDomain.PurgeRun,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO purge_runs (` + purgeRunColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx,
		query,
		run.ID.String(),
		run.Status,
		run.Cutoff,
		run.BatchSize,
		run.EventsDeleted,
		run.EventsSkipped,
		run.LastChainID,
		run.LastBlock,
		run.LastError,
		run.CreatedAt,
		run.UpdatedAt,
	)
	if err != nil {
		if isMySQLDuplicateEntry(err) {
			return apperrors.Wrap(apperrors.ErrConflict, "purge run already exists")
		}
		return apperrors.Wrap(err, "failed to create purge run")
	}
	return nil
}

// Get retrieves a purge run by ID.
func (m *MySQLPurgeRunRepository) Get(
	ctx context.Context,
	id uuid.UUID,
) (*retentionDomain.PurgeRun, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + purgeRunColumns + ` FROM purge_runs WHERE id = ?`

	run, err := scanPurgeRun(querier.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, retentionDomain.ErrRunNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get purge run")
	}
	return run, nil
}

// Update persists the run's status, counters, and batch boundary.
func (m *MySQLPurgeRunRepository) Update(
	ctx context.Context,
	run *retentionDomain.PurgeRun,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE purge_runs
			  SET status = ?, events_deleted = ?, events_skipped = ?,
				  last_chain_id = ?, last_block = ?, last_error = ?, updated_at = ?
			  WHERE id = ?`

	result, err := querier.ExecContext(
		ctx,
		query,
		run.Status,
		run.EventsDeleted,
		run.EventsSkipped,
		run.LastChainID,
		run.LastBlock,
		run.LastError,
		run.UpdatedAt,
		run.ID.String(),
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update purge run")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read affected row count")
	}
	if affected == 0 {
		return retentionDomain.ErrRunNotFound
	}
	return nil
}

// List retrieves purge runs newest-first with pagination.
func (m *MySQLPurgeRunRepository) List(
	ctx context.Context,
	offset, limit int,
) ([]*retentionDomain.PurgeRun, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + purgeRunColumns + `
			  FROM purge_runs
			  ORDER BY created_at DESC
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list purge runs")
	}
	defer func() { _ = rows.Close() }()

	var runs []*retentionDomain.PurgeRun
	for rows.Next() {
		run, err := scanPurgeRun(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan purge run")
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate purge runs")
	}
	return runs, nil
}

// GetResumable returns the most recent non-terminal run, or ErrRunNotFound.
func (m *MySQLPurgeRunRepository) GetResumable(
	ctx context.Context,
) (*retentionDomain.PurgeRun, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + purgeRunColumns + `
			  FROM purge_runs
			  WHERE status IN ('scheduled', 'evaluating', 'awaiting_approval', 'purging', 'failed')
			  ORDER BY created_at DESC
			  LIMIT 1`

	run, err := scanPurgeRun(querier.QueryRowContext(ctx, query))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, retentionDomain.ErrRunNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get resumable purge run")
	}
	return run, nil
}
