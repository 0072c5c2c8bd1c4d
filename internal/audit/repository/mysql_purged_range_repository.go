package repository

import (
	"context"
	"database/sql"

	auditDomain "github.com/allisson/auditchain/internal/audit/domain"
	"github.com/allisson/auditchain/internal/database"
	apperrors "github.com/allisson/auditchain/internal/errors"
)

// MySQLPurgedRangeRepository implements the purge-gap ledger for MySQL.
type MySQLPurgedRangeRepository struct {
	db *sql.DB
}

// NewMySQLPurgedRangeRepository creates a new MySQLPurgedRangeRepository.
func NewMySQLPurgedRangeRepository(db *sql.DB) *MySQLPurgedRangeRepository {
	return &MySQLPurgedRangeRepository{db: db}
}

// Create records one contiguous purged block range.
func (m *MySQLPurgedRangeRepository) Create(
	ctx context.Context,
	purgedRange *auditDomain.PurgedRange,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO purged_ranges (chain_id, from_block, to_block, tail_hash, purge_run_id, created_at)
			  VALUES (?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx,
		query,
		purgedRange.ChainID,
		purgedRange.FromBlock,
		purgedRange.ToBlock,
		purgedRange.TailHash,
		purgedRange.PurgeRunID,
		purgedRange.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create purged range")
	}
	return nil
}

// ListOverlapping retrieves purged ranges intersecting [fromBlock, toBlock],
// ordered by from_block ascending.
func (m *MySQLPurgedRangeRepository) ListOverlapping(
	ctx context.Context,
	chainID string,
	fromBlock, toBlock int64,
) ([]*auditDomain.PurgedRange, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT chain_id, from_block, to_block, tail_hash, purge_run_id, created_at
			  FROM purged_ranges
			  WHERE chain_id = ? AND from_block <= ? AND to_block >= ?
			  ORDER BY from_block ASC`

	rows, err := querier.QueryContext(ctx, query, chainID, toBlock, fromBlock)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list purged ranges")
	}
	defer func() { _ = rows.Close() }()

	var ranges []*auditDomain.PurgedRange
	for rows.Next() {
		var r auditDomain.PurgedRange
		err := rows.Scan(
			&r.ChainID,
			&r.FromBlock,
			&r.ToBlock,
			&r.TailHash,
			&r.PurgeRunID,
			&r.CreatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan purged range")
		}
		ranges = append(ranges, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate purged ranges")
	}
	return ranges, nil
}
