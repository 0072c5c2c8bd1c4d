// Package usecase defines business logic interfaces for the audit chain: the
// chain appender, verifier, and compliance exporter.
package usecase

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/auditchain/internal/audit/domain"
)

// EventRepository defines persistence operations for audit events.
// Implementations must support transaction-aware operations via context propagation.
type EventRepository interface {
	// Create stores a new audit event. Returns ErrConflict when the
	// (chain_id, block_number) pair already exists.
	Create(ctx context.Context, event *auditDomain.AuditEvent) error

	// ListRange retrieves events for one chain with block_number in
	// [fromBlock, toBlock], ordered ascending, at most limit rows.
	ListRange(
		ctx context.Context,
		chainID string,
		fromBlock, toBlock int64,
		limit int,
	) ([]*auditDomain.AuditEvent, error)

	// List retrieves events for one chain ordered by block_number descending
	// (newest first) with pagination.
	List(ctx context.Context, chainID string, offset, limit int) ([]*auditDomain.AuditEvent, error)

	// ListPurgeCandidates retrieves events of the given type with block_number
	// greater than afterBlock that occurred before the cutoff, ordered by
	// block_number ascending, at most limit rows. afterBlock pages through
	// candidates without re-reading skipped blocks.
	ListPurgeCandidates(
		ctx context.Context,
		chainID string,
		eventType auditDomain.EventType,
		cutoff time.Time,
		afterBlock int64,
		limit int,
	) ([]*auditDomain.AuditEvent, error)

	// DeleteByIDs removes events by primary key and returns the number of rows
	// actually deleted. Only the purge coordinator calls this, inside an audited
	// purge run.
	DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int64, error)
}

// ChainStateRepository defines persistence operations for per-chain tail state.
type ChainStateRepository interface {
	// Get retrieves the state for a chain. Returns ErrChainNotFound if the chain
	// has no blocks yet.
	Get(ctx context.Context, chainID string) (*auditDomain.ChainState, error)

	// Create inserts the state row for a brand-new chain. Returns ErrStateConflict
	// if a concurrent append created it first.
	Create(ctx context.Context, state *auditDomain.ChainState) error

	// CompareAndSwap updates the state only if last_block_number still equals
	// expectedLastBlock. Returns ErrStateConflict when the compare fails.
	CompareAndSwap(
		ctx context.Context,
		state *auditDomain.ChainState,
		expectedLastBlock int64,
	) error

	// ListChainIDs returns every known chain ID.
	ListChainIDs(ctx context.Context) ([]string, error)
}

// PurgedRangeRepository defines persistence for the audited purge-gap ledger.
type PurgedRangeRepository interface {
	// Create records one contiguous purged block range.
	Create(ctx context.Context, purgedRange *auditDomain.PurgedRange) error

	// ListOverlapping retrieves purged ranges intersecting [fromBlock, toBlock]
	// for a chain, ordered by from_block ascending.
	ListOverlapping(
		ctx context.Context,
		chainID string,
		fromBlock, toBlock int64,
	) ([]*auditDomain.PurgedRange, error)
}

// RecordEventInput carries the caller-supplied classification fields for one
// audit event. OccurredAt is filled with the current time when zero.
type RecordEventInput struct {
	EventType        auditDomain.EventType
	ActorID          string
	ResourceType     string
	ResourceID       string
	Action           auditDomain.Action
	Outcome          auditDomain.Outcome
	OccurredAt       time.Time
	SensitivePayload []byte
}

// AppenderUseCase atomically extends exactly one chain by exactly one block per
// call. The returned event includes the assigned block number and hashes.
//
// Failure contract: an error here means the event was NOT durably recorded and
// the triggering business operation must fail or be flagged. Errors are never
// swallowed into logs.
type AppenderUseCase interface {
	// Record appends one event to the chain, filling occurred_at at call time if
	// unset. Returns ErrChainContention after bounded retries lose the race for
	// the chain tail, ErrInvalidField for malformed classification input.
	Record(
		ctx context.Context,
		chainID string,
		input RecordEventInput,
	) (*auditDomain.AuditEvent, error)

	// State returns the current tail of a chain.
	State(ctx context.Context, chainID string) (*auditDomain.ChainState, error)

	// List retrieves persisted events newest-first with pagination.
	List(ctx context.Context, chainID string, offset, limit int) ([]*auditDomain.AuditEvent, error)
}

// VerifierUseCase confirms a persisted chain range has not been tampered with.
type VerifierUseCase interface {
	// Verify walks [fromBlock, toBlock] in block order, recomputing every hash
	// from stored fields and the previous block's stored current_hash.
	// trustedPriorHash anchors ranges starting past block 0; pass nil to check
	// internal consistency only. Missing blocks covered by the purged-range
	// ledger are expected gaps; any other missing block returns ErrGap.
	Verify(
		ctx context.Context,
		chainID string,
		fromBlock, toBlock int64,
		trustedPriorHash []byte,
	) (*auditDomain.VerificationReport, error)
}

// ExporterUseCase streams verified ranges for compliance export.
type ExporterUseCase interface {
	// Export verifies [fromBlock, toBlock] and, only if the range is valid,
	// streams it to w in the requested format ("json" or "csv"), excluding
	// payload ciphertext, followed by an HMAC trailer when a signer is
	// configured. Returns ErrNotVerified when verification fails.
	Export(
		ctx context.Context,
		chainID string,
		fromBlock, toBlock int64,
		format string,
		w io.Writer,
	) (*auditDomain.VerificationReport, error)
}
