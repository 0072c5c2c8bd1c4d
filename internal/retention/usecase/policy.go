package usecase

import (
	"context"
	"encoding/json"
	"time"

	auditDomain "github.com/allisson/auditchain/internal/audit/domain"
	auditUsecase "github.com/allisson/auditchain/internal/audit/usecase"
	apperrors "github.com/allisson/auditchain/internal/errors"
	retentionDomain "github.com/allisson/auditchain/internal/retention/domain"
)

// policyUseCase implements PolicyUseCase. Mutations are audited on the system
// chain before they are applied: if the audit event cannot be recorded, the
// administrative change does not happen.
type policyUseCase struct {
	policyRepo RetentionPolicyRepository
	holdRepo   LegalHoldRepository
	appender   auditUsecase.AppenderUseCase
	now        func() time.Time
}

// NewPolicyUseCase creates a new PolicyUseCase with the provided dependencies.
func NewPolicyUseCase(
	policyRepo RetentionPolicyRepository,
	holdRepo LegalHoldRepository,
	appender auditUsecase.AppenderUseCase,
) PolicyUseCase {
	return &policyUseCase{
		policyRepo: policyRepo,
		holdRepo:   holdRepo,
		appender:   appender,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SetPolicy creates or replaces the retention policy for an event type.
func (p *policyUseCase) SetPolicy(
	ctx context.Context,
	actorID string,
	input SetPolicyInput,
) (*retentionDomain.RetentionPolicy, error) {
	if _, err := auditDomain.ParseEventType(string(input.EventType)); err != nil {
		return nil, err
	}
	if input.MinRetention < 0 {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "min retention must not be negative")
	}

	payload, err := json.Marshal(map[string]any{
		"event_type":            input.EventType,
		"min_retention_seconds": int64(input.MinRetention / time.Second),
		"legal_hold":            input.LegalHold,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to encode policy payload")
	}

	if err := p.auditMutation(ctx, actorID, auditDomain.EventTypePolicyChanged,
		"retention_policy", string(input.EventType), payload); err != nil {
		return nil, err
	}

	policy := &retentionDomain.RetentionPolicy{
		EventType:    input.EventType,
		MinRetention: input.MinRetention,
		LegalHold:    input.LegalHold,
		UpdatedAt:    p.now(),
	}
	if err := p.policyRepo.Upsert(ctx, policy); err != nil {
		return nil, err
	}
	return policy, nil
}

// GetPolicy retrieves the policy for an event type.
func (p *policyUseCase) GetPolicy(
	ctx context.Context,
	eventType auditDomain.EventType,
) (*retentionDomain.RetentionPolicy, error) {
	return p.policyRepo.Get(ctx, eventType)
}

// ListPolicies retrieves all policies.
func (p *policyUseCase) ListPolicies(ctx context.Context) ([]*retentionDomain.RetentionPolicy, error) {
	return p.policyRepo.List(ctx)
}

// SetLegalHold places a hold on one resource.
func (p *policyUseCase) SetLegalHold(
	ctx context.Context,
	actorID, resourceID, reason string,
) (*retentionDomain.LegalHold, error) {
	if resourceID == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "resource id is required")
	}

	payload, err := json.Marshal(map[string]any{"action": "set", "reason": reason})
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to encode legal hold payload")
	}

	if err := p.auditMutation(ctx, actorID, auditDomain.EventTypeLegalHoldSet,
		"legal_hold", resourceID, payload); err != nil {
		return nil, err
	}

	hold := &retentionDomain.LegalHold{
		ResourceID: resourceID,
		Reason:     reason,
		CreatedAt:  p.now(),
	}
	if err := p.holdRepo.Upsert(ctx, hold); err != nil {
		return nil, err
	}
	return hold, nil
}

// ReleaseLegalHold lifts the hold on one resource.
func (p *policyUseCase) ReleaseLegalHold(ctx context.Context, actorID, resourceID string) error {
	if resourceID == "" {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "resource id is required")
	}

	// Confirm the hold exists before recording the release.
	if _, err := p.holdRepo.Get(ctx, resourceID); err != nil {
		return err
	}

	payload, err := json.Marshal(map[string]any{"action": "release"})
	if err != nil {
		return apperrors.Wrap(err, "failed to encode legal hold payload")
	}

	if err := p.auditMutation(ctx, actorID, auditDomain.EventTypeLegalHoldSet,
		"legal_hold", resourceID, payload); err != nil {
		return err
	}

	return p.holdRepo.Delete(ctx, resourceID)
}

// auditMutation appends the administrative event to the system chain.
func (p *policyUseCase) auditMutation(
	ctx context.Context,
	actorID string,
	eventType auditDomain.EventType,
	resourceType, resourceID string,
	payload []byte,
) error {
	_, err := p.appender.Record(ctx, auditDomain.SystemChainID, auditUsecase.RecordEventInput{
		EventType:        eventType,
		ActorID:          actorID,
		ResourceType:     resourceType,
		ResourceID:       resourceID,
		Action:           auditDomain.ActionUpdate,
		Outcome:          auditDomain.OutcomeSuccess,
		SensitivePayload: payload,
	})
	if err != nil {
		return apperrors.Wrap(err, "failed to audit administrative change")
	}
	return nil
}
