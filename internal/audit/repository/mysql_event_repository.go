package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	auditDomain "github.com/allisson/auditchain/internal/audit/domain"
	"github.com/allisson/auditchain/internal/database"
	apperrors "github.com/allisson/auditchain/internal/errors"
)

// MySQLEventRepository implements audit event persistence for MySQL.
type MySQLEventRepository struct {
	db *sql.DB
}

// NewMySQLEventRepository creates a new MySQLEventRepository.
func NewMySQLEventRepository(db *sql.DB) *MySQLEventRepository {
	return &MySQLEventRepository{db: db}
}

// Create inserts a new audit event. The unique (chain_id, block_number) index
// turns double-assignment of a block into ErrConflict.
func (m *MySQLEventRepository) Create(ctx context.Context, event *auditDomain.AuditEvent) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO audit_events (` + eventColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx,
		query,
		event.ID.String(),
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
		if isMySQLDuplicateEntry(err) {
			return apperrors.Wrap(apperrors.ErrConflict, "block number already assigned")
		}
		return apperrors.Wrap(err, "failed to create audit event")
	}
	return nil
}

// ListRange retrieves events with block_number in [fromBlock, toBlock] ordered
// ascending, at most limit rows.
func (m *MySQLEventRepository) ListRange(
	ctx context.Context,
	chainID string,
	fromBlock, toBlock int64,
	limit int,
) ([]*auditDomain.AuditEvent, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + eventColumns + `
			  FROM audit_events
			  WHERE chain_id = ? AND block_number >= ? AND block_number <= ?
			  ORDER BY block_number ASC
			  LIMIT ?`

	rows, err := querier.QueryContext(ctx, query, chainID, fromBlock, toBlock, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit events by range")
	}
	defer func() { _ = rows.Close() }()

	return scanEvents(rows)
}

// List retrieves events for one chain ordered newest-first with pagination.
func (m *MySQLEventRepository) List(
	ctx context.Context,
	chainID string,
	offset, limit int,
) ([]*auditDomain.AuditEvent, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + eventColumns + `
			  FROM audit_events
			  WHERE chain_id = ?
			  ORDER BY block_number DESC
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, chainID, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit events")
	}
	defer func() { _ = rows.Close() }()

	return scanEvents(rows)
}

// ListPurgeCandidates retrieves events of one type older than the cutoff, ordered
// by block_number ascending so contiguous runs can be detected. afterBlock pages
// past blocks already handled.
func (m *MySQLEventRepository) ListPurgeCandidates(
	ctx context.Context,
	chainID string,
	eventType auditDomain.EventType,
	cutoff time.Time,
	afterBlock int64,
	limit int,
) ([]*auditDomain.AuditEvent, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + eventColumns + `
			  FROM audit_events
			  WHERE chain_id = ? AND event_type = ? AND occurred_at < ? AND block_number > ?
			  ORDER BY block_number ASC
			  LIMIT ?`

	rows, err := querier.QueryContext(ctx, query, chainID, eventType, cutoff, afterBlock, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list purge candidates")
	}
	defer func() { _ = rows.Close() }()

	return scanEvents(rows)
}

// DeleteByIDs removes events by primary key and returns the number of rows deleted.
func (m *MySQLEventRepository) DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	querier := database.GetTx(ctx, m.db)

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id.String()
	}

	query := `DELETE FROM audit_events WHERE id IN (` + strings.Join(placeholders, ", ") + `)`

	result, err := querier.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete audit events")
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to read deleted row count")
	}
	return deleted, nil
}

// isMySQLDuplicateEntry reports whether the error is a unique constraint
// violation (MySQL error 1062, ER_DUP_ENTRY).
func isMySQLDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}
