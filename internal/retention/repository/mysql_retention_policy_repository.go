package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"

	auditDomain "github.com/allisson/auditchain/internal/audit/domain"
	"github.com/allisson/auditchain/internal/database"
	apperrors "github.com/allisson/auditchain/internal/errors"
	retentionDomain "github.com/allisson/auditchain/internal/retention/domain"
)

// MySQLRetentionPolicyRepository implements policy persistence for MySQL.
type MySQLRetentionPolicyRepository struct {
	db *sql.DB
}

// NewMySQLRetentionPolicyRepository creates a new MySQLRetentionPolicyRepository.
func NewMySQLRetentionPolicyRepository(db *sql.DB) *MySQLRetentionPolicyRepository {
	return &MySQLRetentionPolicyRepository{db: db}
}

// Get retrieves the policy for an event type.
func (m *MySQLRetentionPolicyRepository) Get(
	ctx context.Context,
	eventType auditDomain.EventType,
) (*retentionDomain.RetentionPolicy, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT event_type, min_retention_seconds, legal_hold, updated_at
			  FROM retention_policies
			  WHERE event_type = ?`

	var policy retentionDomain.RetentionPolicy
	var seconds int64
	err := querier.QueryRowContext(ctx, query, eventType).Scan(
		&policy.EventType,
		&seconds,
		&policy.LegalHold,
		&policy.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, retentionDomain.ErrPolicyNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get retention policy")
	}

	policy.MinRetention = time.Duration(seconds) * time.Second
	return &policy, nil
}

// Upsert creates or replaces the policy for an event type.
func (m *MySQLRetentionPolicyRepository) Upsert(
	ctx context.Context,
	policy *retentionDomain.RetentionPolicy,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO retention_policies (event_type, min_retention_seconds, legal_hold, updated_at)
			  VALUES (?, ?, ?, ?)
			  ON DUPLICATE KEY UPDATE
				  min_retention_seconds = VALUES(min_retention_seconds),
				  legal_hold = VALUES(legal_hold),
				  updated_at = VALUES(updated_at)`

	_, err := querier.ExecContext(
		ctx,
		query,
		policy.EventType,
		int64(policy.MinRetention/time.Second),
		policy.LegalHold,
		policy.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to upsert retention policy")
	}
	return nil
}

// List retrieves all policies ordered by event type.
func (m *MySQLRetentionPolicyRepository) List(
	ctx context.Context,
) ([]*retentionDomain.RetentionPolicy, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT event_type, min_retention_seconds, legal_hold, updated_at
			  FROM retention_policies
			  ORDER BY event_type ASC`

	rows, err := querier.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list retention policies")
	}
	defer func() { _ = rows.Close() }()

	return scanPolicies(rows)
}

// isMySQLDuplicateEntry reports whether the error is a unique constraint
// violation (MySQL error 1062, ER_DUP_ENTRY).
func isMySQLDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}
