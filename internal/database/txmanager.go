// Package database manages the SQL connection pool and context-carried
// transactions shared by the audit and retention repositories.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNestedTransaction indicates WithTx was called while the context already
// carries a transaction. One transaction per context; callers that need both
// an audit append and a policy mutation run them as separate transactions.
var ErrNestedTransaction = errors.New("transaction already in progress")

// txKey is the context key under which the active transaction is stored.
type txKey struct{}

// Querier is the subset of *sql.DB and *sql.Tx the repositories execute
// against. Repositories obtain one via GetTx so the same method works inside
// and outside a transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxManager runs a function inside a single database transaction. The chain
// appender relies on it to make the event insert and the chain state
// compare-and-set visible as one atomic unit.
type TxManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type sqlTxManager struct {
	db *sql.DB
}

// NewTxManager creates a TxManager backed by the given connection pool.
func NewTxManager(db *sql.DB) TxManager {
	return &sqlTxManager{db: db}
}

// WithTx begins a transaction, stores it in the context passed to fn, and
// commits when fn returns nil. Any error from fn rolls the transaction back
// and is returned to the caller. Transactions cannot nest.
func (m *sqlTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return ErrNestedTransaction
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	ctx = context.WithValue(ctx, txKey{}, tx)

	if err := fn(ctx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetTx returns the transaction carried by the context, or the bare
// connection pool when no transaction is active.
func GetTx(ctx context.Context, db *sql.DB) Querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return db
}
