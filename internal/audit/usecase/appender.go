package usecase

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/auditchain/internal/audit/domain"
	auditService "github.com/allisson/auditchain/internal/audit/service"
	"github.com/allisson/auditchain/internal/database"
	apperrors "github.com/allisson/auditchain/internal/errors"
)

// AppenderConfig holds chain appender tuning.
type AppenderConfig struct {
	// MaxRetries is the number of append attempts before surfacing
	// ErrChainContention.
	MaxRetries int
	// RetryBaseDelay is the base delay between attempts; jitter is added per attempt.
	RetryBaseDelay time.Duration
}

// appenderUseCase implements AppenderUseCase. It is the only writer of chain
// state; the event insert and the compare-and-set state update share one
// transaction, so either both are visible or neither is.
type appenderUseCase struct {
	config         AppenderConfig
	txManager      database.TxManager
	eventRepo      EventRepository
	chainStateRepo ChainStateRepository
	hasher         auditService.EventHasher
	payloadCipher  auditService.PayloadCipher
	now            func() time.Time
}

// NewAppenderUseCase creates a new AppenderUseCase with the provided dependencies.
func NewAppenderUseCase(
	config AppenderConfig,
	txManager database.TxManager,
	eventRepo EventRepository,
	chainStateRepo ChainStateRepository,
	hasher auditService.EventHasher,
	payloadCipher auditService.PayloadCipher,
) AppenderUseCase {
	if config.MaxRetries < 1 {
		config.MaxRetries = 1
	}
	return &appenderUseCase{
		config:         config,
		txManager:      txManager,
		eventRepo:      eventRepo,
		chainStateRepo: chainStateRepo,
		hasher:         hasher,
		payloadCipher:  payloadCipher,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Record appends one audit event. The payload is encrypted before the
// transaction opens; the hash covers the plaintext digest, so tampering with
// the stored ciphertext is detectable.
func (a *appenderUseCase) Record(
	ctx context.Context,
	chainID string,
	input RecordEventInput,
) (*auditDomain.AuditEvent, error) {
	if chainID == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidField, "chain id is required")
	}

	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = a.now()
	}
	// The timestamp columns hold microseconds, so the hash input must be
	// truncated to survive the storage round-trip.
	occurredAt = occurredAt.UTC().Truncate(time.Microsecond)

	ciphertext, digest, err := a.payloadCipher.Encrypt(ctx, input.SensitivePayload)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to encrypt sensitive payload")
	}

	var event *auditDomain.AuditEvent
	for attempt := 0; attempt < a.config.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := a.backoff(ctx, attempt); err != nil {
				return nil, err
			}
		}

		event, err = a.tryAppend(ctx, chainID, input, occurredAt, ciphertext, digest)
		if err == nil {
			return event, nil
		}
		if !apperrors.Is(err, apperrors.ErrConflict) {
			// Invalid fields and storage failures are not contention; surface them
			// immediately so the triggering operation fails loudly.
			return nil, err
		}
	}

	return nil, apperrors.Wrap(
		apperrors.ErrChainContention,
		"append retries exhausted for chain "+chainID,
	)
}

// tryAppend performs one transactional append attempt. A compare-and-set miss on
// the chain state surfaces as ErrStateConflict and the caller retries with fresh
// state.
func (a *appenderUseCase) tryAppend(
	ctx context.Context,
	chainID string,
	input RecordEventInput,
	occurredAt time.Time,
	ciphertext, digest []byte,
) (*auditDomain.AuditEvent, error) {
	var event *auditDomain.AuditEvent

	err := a.txManager.WithTx(ctx, func(ctx context.Context) error {
		state, err := a.chainStateRepo.Get(ctx, chainID)

		var blockNumber int64
		var previousHash []byte
		newChain := false

		switch {
		case err == nil:
			blockNumber = state.LastBlockNumber + 1
			previousHash = state.LastHash
			// occurred_at is monotonic non-decreasing within a chain by policy.
			if occurredAt.Before(state.LastOccurredAt) {
				occurredAt = state.LastOccurredAt.UTC().Truncate(time.Microsecond)
			}
		case apperrors.Is(err, apperrors.ErrNotFound):
			blockNumber = 0
			previousHash = auditDomain.GenesisHash()
			newChain = true
		default:
			return apperrors.Wrap(err, "failed to read chain state")
		}

		fields := auditDomain.HashFields{
			ChainID:           chainID,
			BlockNumber:       blockNumber,
			OccurredAt:        occurredAt,
			EventType:         input.EventType,
			ActorID:           input.ActorID,
			ResourceType:      input.ResourceType,
			ResourceID:        input.ResourceID,
			Action:            input.Action,
			Outcome:           input.Outcome,
			HashSchemeVersion: auditDomain.HashSchemeVersion,
			PayloadDigest:     digest,
		}

		currentHash, err := a.hasher.ComputeHash(fields, previousHash)
		if err != nil {
			return err
		}

		now := a.now()
		event = &auditDomain.AuditEvent{
			ID:                uuid.Must(uuid.NewV7()),
			ChainID:           chainID,
			BlockNumber:       blockNumber,
			OccurredAt:        occurredAt,
			RecordedAt:        now,
			EventType:         input.EventType,
			ActorID:           input.ActorID,
			ResourceType:      input.ResourceType,
			ResourceID:        input.ResourceID,
			Action:            input.Action,
			Outcome:           input.Outcome,
			HashSchemeVersion: auditDomain.HashSchemeVersion,
			PayloadDigest:     digest,
			EncryptedPayload:  ciphertext,
			PreviousHash:      previousHash,
			CurrentHash:       currentHash,
		}

		if err := a.eventRepo.Create(ctx, event); err != nil {
			return apperrors.Wrap(err, "failed to create audit event")
		}

		newState := &auditDomain.ChainState{
			ChainID:         chainID,
			LastBlockNumber: blockNumber,
			LastHash:        currentHash,
			LastOccurredAt:  occurredAt,
			UpdatedAt:       now,
		}

		if newChain {
			if err := a.chainStateRepo.Create(ctx, newState); err != nil {
				return err
			}
			return nil
		}

		return a.chainStateRepo.CompareAndSwap(ctx, newState, blockNumber-1)
	})
	if err != nil {
		return nil, err
	}

	return event, nil
}

// backoff sleeps for a jittered, linearly growing delay between append attempts,
// honoring context cancellation.
func (a *appenderUseCase) backoff(ctx context.Context, attempt int) error {
	delay := a.config.RetryBaseDelay * time.Duration(attempt)
	if delay > 0 {
		delay += time.Duration(rand.Int63n(int64(delay)))
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// State returns the current tail of a chain.
func (a *appenderUseCase) State(ctx context.Context, chainID string) (*auditDomain.ChainState, error) {
	state, err := a.chainStateRepo.Get(ctx, chainID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to read chain state")
	}
	return state, nil
}

// List retrieves persisted events newest-first with pagination.
func (a *appenderUseCase) List(
	ctx context.Context,
	chainID string,
	offset, limit int,
) ([]*auditDomain.AuditEvent, error) {
	events, err := a.eventRepo.List(ctx, chainID, offset, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit events")
	}
	return events, nil
}
