package repository

import (
	"context"
	"database/sql"

	"github.com/allisson/auditchain/internal/database"
	apperrors "github.com/allisson/auditchain/internal/errors"
	retentionDomain "github.com/allisson/auditchain/internal/retention/domain"
)

// MySQLLegalHoldRepository implements legal hold persistence for MySQL.
type MySQLLegalHoldRepository struct {
	db *sql.DB
}

// NewMySQLLegalHoldRepository creates a new MySQLLegalHoldRepository.
func NewMySQLLegalHoldRepository(db *sql.DB) *MySQLLegalHoldRepository {
	return &MySQLLegalHoldRepository{db: db}
}

// Get retrieves the hold for a resource.
func (m *MySQLLegalHoldRepository) Get(
	ctx context.Context,
	resourceID string,
) (*retentionDomain.LegalHold, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT resource_id, reason, created_at FROM legal_holds WHERE resource_id = ?`

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
func (m *MySQLLegalHoldRepository) Upsert(
	ctx context.Context,
	hold *retentionDomain.LegalHold,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO legal_holds (resource_id, reason, created_at)
			  VALUES (?, ?, ?)
			  ON DUPLICATE KEY UPDATE
				  reason = VALUES(reason),
				  created_at = VALUES(created_at)`

	_, err := querier.ExecContext(ctx, query, hold.ResourceID, hold.Reason, hold.CreatedAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to upsert legal hold")
	}
	return nil
}

// Delete lifts the hold on a resource.
func (m *MySQLLegalHoldRepository) Delete(ctx context.Context, resourceID string) error {
	querier := database.GetTx(ctx, m.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM legal_holds WHERE resource_id = ?`, resourceID)
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

// ListResourceIDs returns every held resource ID.
func (m *MySQLLegalHoldRepository) ListResourceIDs(ctx context.Context) ([]string, error) {
	querier := database.GetTx(ctx, m.db)

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
