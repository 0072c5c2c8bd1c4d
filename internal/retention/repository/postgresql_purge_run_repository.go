package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/allisson/auditchain/internal/database"
	apperrors "github.com/allisson/auditchain/internal/errors"
	retentionDomain "github.com/allisson/auditchain/internal/retention/domain"
)

const purgeRunColumns = `id, status, cutoff, batch_size, events_deleted, events_skipped,
	last_chain_id, last_block, last_error, created_at, updated_at`

// PostgreSQLPurgeRunRepository implements purge run persistence for PostgreSQL.
type PostgreSQLPurgeRunRepository struct {
	db *sql.DB
}

// NewPostgreSQLPurgeRunRepository creates a new PostgreSQLPurgeRunRepository.
func NewPostgreSQLPurgeRunRepository(db *sql.DB) *PostgreSQLPurgeRunRepository {
	return &PostgreSQLPurgeRunRepository{db: db}
}

// Create inserts a new purge run.
func (p *PostgreSQLPurgeRunRepository) Create(
	ctx context.Context,
	run *retentionDomain.PurgeRun,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO purge_runs (` + purgeRunColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := querier.ExecContext(
		ctx,
		query,
		run.ID,
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
		if isPostgresUniqueViolation(err) {
			return apperrors.Wrap(apperrors.ErrConflict, "purge run already exists")
		}
		return apperrors.Wrap(err, "failed to create purge run")
	}
	return nil
}

// Get retrieves a purge run by ID.
func (p *PostgreSQLPurgeRunRepository) Get(
	ctx context.Context,
	id uuid.UUID,
) (*retentionDomain.PurgeRun, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + purgeRunColumns + ` FROM purge_runs WHERE id = $1`

	run, err := scanPurgeRun(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, retentionDomain.ErrRunNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get purge run")
	}
	return run, nil
}

// Update persists the run's status, counters, and batch boundary.
func (p *PostgreSQLPurgeRunRepository) Update(
	ctx context.Context,
	run *retentionDomain.PurgeRun,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE purge_runs
			  SET status = $1, events_deleted = $2, events_skipped = $3,
				  last_chain_id = $4, last_block = $5, last_error = $6, updated_at = $7
			  WHERE id = $8`

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
		run.ID,
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
func (p *PostgreSQLPurgeRunRepository) List(
	ctx context.Context,
	offset, limit int,
) ([]*retentionDomain.PurgeRun, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + purgeRunColumns + `
			  FROM purge_runs
			  ORDER BY created_at DESC
			  OFFSET $1
			  LIMIT $2`

	rows, err := querier.QueryContext(ctx, query, offset, limit)
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

// GetResumable returns the most recent non-terminal run, or ErrRunNotFound. The
// coordinator finishes interrupted and failed work before scheduling new runs.
func (p *PostgreSQLPurgeRunRepository) GetResumable(
	ctx context.Context,
) (*retentionDomain.PurgeRun, error) {
	querier := database.GetTx(ctx, p.db)

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

// rowScanner abstracts *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPurgeRun(row rowScanner) (*retentionDomain.PurgeRun, error) {
	var run retentionDomain.PurgeRun
	err := row.Scan(
		&run.ID,
		&run.Status,
		&run.Cutoff,
		&run.BatchSize,
		&run.EventsDeleted,
		&run.EventsSkipped,
		&run.LastChainID,
		&run.LastBlock,
		&run.LastError,
		&run.CreatedAt,
		&run.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &run, nil
}
