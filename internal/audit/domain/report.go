package domain

import (
	"time"
)

// VerificationReport is the operator-facing result of walking a chain range. It
// carries enough block-level detail to drive remediation without ever exposing
// payload contents.
type VerificationReport struct {
	ChainID   string
	FromBlock int64
	ToBlock   int64

	// Valid is true only when every checked block's hash recomputed correctly and,
	// if a trusted prior hash was supplied, the range links to it.
	Valid bool

	// FirstBrokenBlock is the lowest block whose stored current_hash did not match
	// recomputation. Nil when no mismatch was found.
	FirstBrokenBlock *int64

	// BrokenBlocks lists every mismatched block in the range. Verification keeps
	// walking past the first break so operators see the full blast radius; blocks
	// after a break are re-linked on stored hashes and reported, not trusted.
	BrokenBlocks []int64

	// LinkedToTrustedPrior distinguishes "internally consistent" from "linked to
	// prior trusted state". False when no trusted prior hash was available for a
	// range starting past block 0.
	LinkedToTrustedPrior bool

	// ExpectedGaps are block ranges missing because an audited purge removed them.
	ExpectedGaps []PurgedRange

	BlocksChecked    int64
	LastCheckedBlock int64
	StartedAt        time.Time
	CompletedAt      time.Time
}

// MarkBroken records a hash mismatch at block n.
func (r *VerificationReport) MarkBroken(n int64) {
	r.Valid = false
	if r.FirstBrokenBlock == nil {
		first := n
		r.FirstBrokenBlock = &first
	}
	r.BrokenBlocks = append(r.BrokenBlocks, n)
}
