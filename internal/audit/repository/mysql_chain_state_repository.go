package repository

import (
	"context"
	"database/sql"

	auditDomain "github.com/allisson/auditchain/internal/audit/domain"
	"github.com/allisson/auditchain/internal/database"
	apperrors "github.com/allisson/auditchain/internal/errors"
)

// MySQLChainStateRepository implements chain tail persistence for MySQL.
type MySQLChainStateRepository struct {
	db *sql.DB
}

// NewMySQLChainStateRepository creates a new MySQLChainStateRepository.
func NewMySQLChainStateRepository(db *sql.DB) *MySQLChainStateRepository {
	return &MySQLChainStateRepository{db: db}
}

// Get retrieves the tail state for a chain.
func (m *MySQLChainStateRepository) Get(
	ctx context.Context,
	chainID string,
) (*auditDomain.ChainState, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT chain_id, last_block_number, last_hash, last_occurred_at, updated_at
			  FROM chain_states
			  WHERE chain_id = ?`

	var state auditDomain.ChainState
	err := querier.QueryRowContext(ctx, query, chainID).Scan(
		&state.ChainID,
		&state.LastBlockNumber,
		&state.LastHash,
		&state.LastOccurredAt,
		&state.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, auditDomain.ErrChainNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get chain state")
	}

	return &state, nil
}

// Create inserts the state row for a brand-new chain. A concurrent first append
// surfaces as ErrStateConflict through the primary key.
func (m *MySQLChainStateRepository) Create(
	ctx context.Context,
	state *auditDomain.ChainState,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO chain_states (chain_id, last_block_number, last_hash, last_occurred_at, updated_at)
			  VALUES (?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx,
		query,
		state.ChainID,
		state.LastBlockNumber,
		state.LastHash,
		state.LastOccurredAt,
		state.UpdatedAt,
	)
	if err != nil {
		if isMySQLDuplicateEntry(err) {
			return auditDomain.ErrStateConflict
		}
		return apperrors.Wrap(err, "failed to create chain state")
	}
	return nil
}

// CompareAndSwap updates the tail only if last_block_number still matches. Zero
// rows affected means another appender won the race.
func (m *MySQLChainStateRepository) CompareAndSwap(
	ctx context.Context,
	state *auditDomain.ChainState,
	expectedLastBlock int64,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE chain_states
			  SET last_block_number = ?, last_hash = ?, last_occurred_at = ?, updated_at = ?
			  WHERE chain_id = ? AND last_block_number = ?`

	result, err := querier.ExecContext(
		ctx,
		query,
		state.LastBlockNumber,
		state.LastHash,
		state.LastOccurredAt,
		state.UpdatedAt,
		state.ChainID,
		expectedLastBlock,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update chain state")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read affected row count")
	}
	if affected == 0 {
		return auditDomain.ErrStateConflict
	}
	return nil
}

// ListChainIDs returns every known chain ID ordered alphabetically.
func (m *MySQLChainStateRepository) ListChainIDs(ctx context.Context) ([]string, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT chain_id FROM chain_states ORDER BY chain_id ASC`

	rows, err := querier.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list chain ids")
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan chain id")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate chain ids")
	}
	return ids, nil
}
