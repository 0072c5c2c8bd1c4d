package repository

import (
	"context"
	"database/sql"

	"github.com/allisson/auditchain/internal/database"
	apperrors "github.com/allisson/auditchain/internal/errors"
	retentionDomain "github.com/allisson/auditchain/internal/retention/domain"
)

// PostgreSQLLegalHoldRepository implements legal hold persistence for PostgreSQL.
type PostgreSQLLegalHoldRepository struct {
	db *sql.DB
}

// NewPostgreSQLLegalHoldRepository creates a new PostgreSQLLegalHoldRepository.
func NewPostgreSQLLegalHoldRepository(db *sql.DB) *PostgreSQLLegalHoldRepository {
	return &PostgreSQLLegalHoldRepository{db: db}
}

// Get retrieves the hold for a resource.
func (p *PostgreSQLLegalHoldRepository) Get(
	ctx context.Context,
	resourceID string,
) (*retentionDomain.LegalHold, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT resource_id, reason, created_at FROM legal_holds WHERE resource_id = $1`

	var hold retentionDomain.LegalHold
	err := querier.QueryRowContext(ctx, query, resourceID).Scan(
		&hold.ResourceID,
		&hold.Reason,
		&hold.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, retentionDomain.ErrHoldNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get legal hold")
	}

	return &hold, nil
}

// Upsert places or refreshes a hold on a resource.
func (p *PostgreSQLLegalHoldRepository) Upsert(
	ctx context.Context,
	hold *retentionDomain.LegalHold,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO legal_holds (resource_id, reason, created_at)
			  VALUES ($1, $2, $3)
			  ON CONFLICT (resource_id)
			  DO UPDATE SET reason = $2, created_at = $3`

	_, err := querier.ExecContext(ctx, query, hold.ResourceID, hold.Reason, hold.CreatedAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to upsert legal hold")
	}
	return nil
}

// Delete lifts the hold on a resource.
func (p *PostgreSQLLegalHoldRepository) Delete(ctx context.Context, resourceID string) error {
	querier := database.GetTx(ctx, p.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM legal_holds WHERE resource_id = $1`, resourceID)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete legal hold")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read affected row count")
	}
	if affected == 0 {
		return retentionDomain.ErrHoldNotFound
	}
	return nil
}

// ListResourceIDs returns every held resource ID. Purge evaluation loads the full
// set once per run instead of one query per event.
func (p *PostgreSQLLegalHoldRepository) ListResourceIDs(ctx context.Context) ([]string, error) {
	querier := database.GetTx(ctx, p.db)

	rows, err := querier.QueryContext(ctx, `SELECT resource_id FROM legal_holds ORDER BY resource_id ASC`)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list legal holds")
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan legal hold")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate legal holds")
	}
	return ids, nil
}
