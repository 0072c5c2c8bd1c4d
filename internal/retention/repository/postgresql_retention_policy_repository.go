// Package repository implements retention persistence for PostgreSQL and MySQL:
// retention policies, legal holds, and purge runs.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	auditDomain "github.com/allisson/auditchain/internal/audit/domain"
	"github.com/allisson/auditchain/internal/database"
	apperrors "github.com/allisson/auditchain/internal/errors"
	retentionDomain "github.com/allisson/auditchain/internal/retention/domain"
)

// PostgreSQLRetentionPolicyRepository implements policy persistence for PostgreSQL.
type PostgreSQLRetentionPolicyRepository struct {
	db *sql.DB
}

// NewPostgreSQLRetentionPolicyRepository creates a new PostgreSQLRetentionPolicyRepository.
func NewPostgreSQLRetentionPolicyRepository(db *sql.DB) *PostgreSQLRetentionPolicyRepository {
	return &PostgreSQLRetentionPolicyRepository{db: db}
}

// Get retrieves the policy for an event type.
func (p *PostgreSQLRetentionPolicyRepository) Get(
	ctx context.Context,
	eventType auditDomain.EventType,
) (*retentionDomain.RetentionPolicy, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT event_type, min_retention_seconds, legal_hold, updated_at
			  FROM retention_policies
			  WHERE event_type = $1`

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
func (p *PostgreSQLRetentionPolicyRepository) Upsert(
	ctx context.Context,
	policy *retentionDomain.RetentionPolicy,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO retention_policies (event_type, min_retention_seconds, legal_hold, updated_at)
			  VALUES ($1, $2, $3, $4)
			  ON CONFLICT (event_type)
			  DO UPDATE SET min_retention_seconds = $2, legal_hold = $3, updated_at = $4`

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
func (p *PostgreSQLRetentionPolicyRepository) List(
	ctx context.Context,
) ([]*retentionDomain.RetentionPolicy, error) {
	querier := database.GetTx(ctx, p.db)

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

// scanPolicies drains rows into retention policies.
func scanPolicies(rows *sql.Rows) ([]*retentionDomain.RetentionPolicy, error) {
	var policies []*retentionDomain.RetentionPolicy
	for rows.Next() {
		var policy retentionDomain.RetentionPolicy
		var seconds int64
		err := rows.Scan(&policy.EventType, &seconds, &policy.LegalHold, &policy.UpdatedAt)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan retention policy")
		}
		policy.MinRetention = time.Duration(seconds) * time.Second
		policies = append(policies, &policy)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate retention policies")
	}
	return policies, nil
}

// isPostgresUniqueViolation reports whether the error is a unique constraint
// violation (SQLSTATE 23505).
func isPostgresUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
