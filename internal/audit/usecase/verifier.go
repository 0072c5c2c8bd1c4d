package usecase

import (
	"bytes"
	"context"
	"fmt"
	"time"

	auditDomain "github.com/allisson/auditchain/internal/audit/domain"
	auditService "github.com/allisson/auditchain/internal/audit/service"
	apperrors "github.com/allisson/auditchain/internal/errors"
)

// VerifierConfig holds chain verifier tuning.
type VerifierConfig struct {
	// BatchSize is the number of events loaded per storage round-trip. Chains can
	// be arbitrarily long; batching keeps verification cancellable between loads.
	BatchSize int
}

// verifierUseCase implements VerifierUseCase. It never trusts a field it is
// validating: every current_hash is recomputed from stored fields plus the
// previous block's stored current_hash, never the event's own previous_hash.
type verifierUseCase struct {
	config          VerifierConfig
	eventRepo       EventRepository
	purgedRangeRepo PurgedRangeRepository
	hasher          auditService.EventHasher
	now             func() time.Time
}

// NewVerifierUseCase creates a new VerifierUseCase with the provided dependencies.
func NewVerifierUseCase(
	config VerifierConfig,
	eventRepo EventRepository,
	purgedRangeRepo PurgedRangeRepository,
	hasher auditService.EventHasher,
) VerifierUseCase {
	if config.BatchSize < 1 {
		config.BatchSize = 500
	}
	return &verifierUseCase{
		config:          config,
		eventRepo:       eventRepo,
		purgedRangeRepo: purgedRangeRepo,
		hasher:          hasher,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// Verify walks the requested range. A hash mismatch does not abort the walk: the
// verifier re-links on the stored hash and keeps reporting, so the report shows
// the full blast radius. An unexplained missing block aborts with ErrGap.
func (v *verifierUseCase) Verify(
	ctx context.Context,
	chainID string,
	fromBlock, toBlock int64,
	trustedPriorHash []byte,
) (*auditDomain.VerificationReport, error) {
	if chainID == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "chain id is required")
	}
	if fromBlock < 0 || toBlock < fromBlock {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "invalid block range")
	}

	report := &auditDomain.VerificationReport{
		ChainID:          chainID,
		FromBlock:        fromBlock,
		ToBlock:          toBlock,
		Valid:            true,
		LastCheckedBlock: fromBlock - 1,
		StartedAt:        v.now(),
	}

	purgedRanges, err := v.purgedRangeRepo.ListOverlapping(ctx, chainID, fromBlock, toBlock)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load purged ranges")
	}

	// runningHash is the trusted linkage input for the next block. nil means the
	// range start is unanchored and the first event's stored previous_hash seeds
	// it, which only proves internal consistency.
	var runningHash []byte
	switch {
	case fromBlock == 0:
		runningHash = auditDomain.GenesisHash()
		report.LinkedToTrustedPrior = true
	case len(trustedPriorHash) == auditDomain.HashSize:
		runningHash = trustedPriorHash
		report.LinkedToTrustedPrior = true
	case len(trustedPriorHash) != 0:
		return nil, apperrors.Wrap(
			apperrors.ErrInvalidInput,
			fmt.Sprintf("trusted prior hash must be %d bytes", auditDomain.HashSize),
		)
	}

	expected := fromBlock
	for expected <= toBlock {
		if err := ctx.Err(); err != nil {
			// Cancelled mid-walk: the report carries LastCheckedBlock so the
			// caller can resume from there.
			report.CompletedAt = v.now()
			return report, err
		}

		batchEnd := expected + int64(v.config.BatchSize) - 1
		if batchEnd > toBlock {
			batchEnd = toBlock
		}

		events, err := v.eventRepo.ListRange(ctx, chainID, expected, batchEnd, v.config.BatchSize)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to load events")
		}

		idx := 0
		for expected <= batchEnd {
			if idx < len(events) && events[idx].BlockNumber == expected {
				event := events[idx]
				idx++

				seed := runningHash
				if seed == nil {
					// Unanchored start: take the first event's stored linkage as
					// the anchor for internal consistency checking.
					seed = event.PreviousHash
				}

				recomputed, err := v.hasher.ComputeHash(auditDomain.HashFieldsOf(event), seed)
				if err != nil {
					return nil, apperrors.Wrap(err, fmt.Sprintf("failed to rehash block %d", event.BlockNumber))
				}

				if !bytes.Equal(recomputed, event.CurrentHash) {
					report.MarkBroken(event.BlockNumber)
				}

				// Re-link on the stored hash either way; blocks past a break are
				// checked and reported, not trusted.
				runningHash = event.CurrentHash
				report.BlocksChecked++
				report.LastCheckedBlock = expected
				expected++
				continue
			}

			// Block missing from storage: acceptable only when an audited purge
			// recorded it, in which case the range's tail hash re-anchors linkage.
			purged := findPurgedRange(purgedRanges, expected)
			if purged == nil {
				return nil, apperrors.Wrap(
					apperrors.ErrGap,
					fmt.Sprintf("chain %s block %d missing without purge record", chainID, expected),
				)
			}

			report.ExpectedGaps = append(report.ExpectedGaps, *purged)
			runningHash = purged.TailHash
			report.LastCheckedBlock = min64(purged.ToBlock, toBlock)
			expected = purged.ToBlock + 1
		}
	}

	report.CompletedAt = v.now()
	return report, nil
}

// findPurgedRange returns the purged range containing block n, or nil.
func findPurgedRange(ranges []*auditDomain.PurgedRange, n int64) *auditDomain.PurgedRange {
	for _, r := range ranges {
		if r.Contains(n) {
			return r
		}
	}
	return nil
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
