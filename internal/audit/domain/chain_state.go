package domain

import (
	"time"
)

// ChainState tracks the tail of one chain: the last assigned block number, its
// hash, and its timestamp. Owned exclusively by the chain appender and updated
// atomically with every event insert via compare-and-set on LastBlockNumber.
type ChainState struct {
	ChainID         string
	LastBlockNumber int64
	LastHash        []byte

	// LastOccurredAt is the previous block's occurred_at. New events are clamped to
	// be no earlier, keeping occurred_at monotonic within the chain.
	LastOccurredAt time.Time

	UpdatedAt time.Time
}

// PurgedRange records one maximal contiguous run of blocks deleted by an audited
// retention purge. TailHash is the current_hash of the last purged block, captured
// before deletion, so the verifier can re-anchor its running hash across the gap.
type PurgedRange struct {
	ChainID    string
	FromBlock  int64
	ToBlock    int64
	TailHash   []byte
	PurgeRunID string
	CreatedAt  time.Time
}

// Contains reports whether block n falls inside the purged range.
func (r *PurgedRange) Contains(n int64) bool {
	return n >= r.FromBlock && n <= r.ToBlock
}
