// Package repository implements audit chain persistence for PostgreSQL and MySQL.
// All operations are transaction-aware through context-carried transactions.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	auditDomain "github.com/allisson/auditchain/internal/audit/domain"
	"github.com/allisson/auditchain/internal/database"
	apperrors "github.com/allisson/auditchain/internal/errors"
)

const eventColumns = `id, chain_id, block_number, occurred_at, recorded_at, event_type,
	actor_id, resource_type, resource_id, action, outcome, hash_scheme_version,
	payload_digest, encrypted_payload, previous_hash, current_hash`

// PostgreSQLEventRepository implements audit event persistence for PostgreSQL.
type PostgreSQLEventRepository struct {
	db *sql.DB
}

// NewPostgreSQLEventRepository creates a new PostgreSQLEventRepository.
func NewPostgreSQLEventRepository(db *sql.DB) *PostgreSQLEventRepository {
	return &PostgreSQLEventRepository{db: db}
}

// Create inserts a new audit event. The unique (chain_id, block_number) index
// turns double-assignment of a block into ErrConflict.
func (p *PostgreSQLEventRepository) Create(ctx context.Context, event *auditDomain.AuditEvent) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO audit_events (` + eventColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err := querier.ExecContext(
		ctx,
		query,
		event.ID,
		event.ChainID,
		event.BlockNumber,
		event.OccurredAt,
		event.RecordedAt,
		event.EventType,
		event.ActorID,
		event.ResourceType,
		event.ResourceID,
		event.Action,
		event.Outcome,
		event.HashSchemeVersion,
		event.PayloadDigest,
		event.EncryptedPayload,
		event.PreviousHash,
		event.CurrentHash,
	)
	if err != nil {
		if isPostgresUniqueViolation(err) {
			return apperrors.Wrap(apperrors.ErrConflict, "block number already assigned")
		}
		return apperrors.Wrap(err, "failed to create audit event")
	}
	return nil
}

// ListRange retrieves events with block_number in [fromBlock, toBlock] ordered
// ascending, at most limit rows.
func (p *PostgreSQLEventRepository) ListRange(
	ctx context.Context,
	chainID string,
	fromBlock, toBlock int64,
	limit int,
) ([]*auditDomain.AuditEvent, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + eventColumns + `
			  FROM audit_events
			  WHERE chain_id = $1 AND block_number >= $2 AND block_number <= $3
			  ORDER BY block_number ASC
			  LIMIT $4`

	rows, err := querier.QueryContext(ctx, query, chainID, fromBlock, toBlock, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit events by range")
	}
	defer func() { _ = rows.Close() }()

	return scanEvents(rows)
}

// List retrieves events for one chain ordered newest-first with pagination.
func (p *PostgreSQLEventRepository) List(
	ctx context.Context,
	chainID string,
	offset, limit int,
) ([]*auditDomain.AuditEvent, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + eventColumns + `
			  FROM audit_events
			  WHERE chain_id = $1
			  ORDER BY block_number DESC
			  OFFSET $2
			  LIMIT $3`

	rows, err := querier.QueryContext(ctx, query, chainID, offset, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit events")
	}
	defer func() { _ = rows.Close() }()

	return scanEvents(rows)
}

// ListPurgeCandidates retrieves events of one type older than the cutoff, ordered
// by block_number ascending so contiguous runs can be detected. afterBlock pages
// past blocks already handled.
func (p *PostgreSQLEventRepository) ListPurgeCandidates(
	ctx context.Context,
	chainID string,
	eventType auditDomain.EventType,
	cutoff time.Time,
	afterBlock int64,
	limit int,
) ([]*auditDomain.AuditEvent, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + eventColumns + `
			  FROM audit_events
			  WHERE chain_id = $1 AND event_type = $2 AND occurred_at < $3 AND block_number > $4
			  ORDER BY block_number ASC
			  LIMIT $5`

	rows, err := querier.QueryContext(ctx, query, chainID, eventType, cutoff, afterBlock, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list purge candidates")
	}
	defer func() { _ = rows.Close() }()

	return scanEvents(rows)
}

// DeleteByIDs removes events by primary key and returns the number of rows deleted.
func (p *PostgreSQLEventRepository) DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM audit_events WHERE id = ANY($1)`

	result, err := querier.ExecContext(ctx, query, pq.Array(ids))
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete audit events")
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to read deleted row count")
	}
	return deleted, nil
}

// scanEvents drains rows into audit events.
func scanEvents(rows *sql.Rows) ([]*auditDomain.AuditEvent, error) {
	var events []*auditDomain.AuditEvent
	for rows.Next() {
		var event auditDomain.AuditEvent
		err := rows.Scan(
			&event.ID,
			&event.ChainID,
			&event.BlockNumber,
			&event.OccurredAt,
			&event.RecordedAt,
			&event.EventType,
			&event.ActorID,
			&event.ResourceType,
			&event.ResourceID,
			&event.Action,
			&event.Outcome,
			&event.HashSchemeVersion,
			&event.PayloadDigest,
			&event.EncryptedPayload,
			&event.PreviousHash,
			&event.CurrentHash,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan audit event")
		}
		events = append(events, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate audit events")
	}
	return events, nil
}

// isPostgresUniqueViolation reports whether the error is a unique constraint
// violation (SQLSTATE 23505).
func isPostgresUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
