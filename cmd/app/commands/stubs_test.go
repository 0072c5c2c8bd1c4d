package commands

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/auditchain/internal/audit/domain"
	auditUsecase "github.com/allisson/auditchain/internal/audit/usecase"
	retentionDomain "github.com/allisson/auditchain/internal/retention/domain"
	retentionUsecase "github.com/allisson/auditchain/internal/retention/usecase"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubAppender struct {
	event *auditDomain.AuditEvent
	err   error

	gotChainID string
	gotInput   auditUsecase.RecordEventInput
}

func (s *stubAppender) Record(
	ctx context.Context, chainID string, input auditUsecase.RecordEventInput,
) (*auditDomain.AuditEvent, error) {
	s.gotChainID = chainID
	s.gotInput = input
	if s.err != nil {
		return nil, s.err
	}
	return s.event, nil
}

func (s *stubAppender) State(ctx context.Context, chainID string) (*auditDomain.ChainState, error) {
	return nil, s.err
}

func (s *stubAppender) List(
	ctx context.Context, chainID string, offset, limit int,
) ([]*auditDomain.AuditEvent, error) {
	return nil, s.err
}

type stubVerifier struct {
	report *auditDomain.VerificationReport
	err    error

	gotPrior []byte
}

func (s *stubVerifier) Verify(
	ctx context.Context, chainID string, fromBlock, toBlock int64, trustedPriorHash []byte,
) (*auditDomain.VerificationReport, error) {
	s.gotPrior = trustedPriorHash
	if s.err != nil {
		return nil, s.err
	}
	return s.report, nil
}

type stubExporter struct {
	report *auditDomain.VerificationReport
	body   string
	err    error
}

func (s *stubExporter) Export(
	ctx context.Context, chainID string, fromBlock, toBlock int64, format string, w io.Writer,
) (*auditDomain.VerificationReport, error) {
	if s.err != nil {
		return nil, s.err
	}
	_, _ = io.WriteString(w, s.body)
	return s.report, nil
}

type stubCoordinator struct {
	result *retentionDomain.PurgeResult
	run    *retentionDomain.PurgeRun
	err    error

	gotDryRun  bool
	gotActorID string
}

func (s *stubCoordinator) Start(ctx context.Context) error { return nil }

func (s *stubCoordinator) RunOnce(
	ctx context.Context, dryRun bool,
) (*retentionDomain.PurgeResult, error) {
	s.gotDryRun = dryRun
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubCoordinator) Approve(
	ctx context.Context, actorID string, runID uuid.UUID,
) (*retentionDomain.PurgeRun, error) {
	s.gotActorID = actorID
	if s.err != nil {
		return nil, s.err
	}
	return s.run, nil
}

func (s *stubCoordinator) Suspend(
	ctx context.Context, actorID string, runID uuid.UUID,
) (*retentionDomain.PurgeRun, error) {
	s.gotActorID = actorID
	if s.err != nil {
		return nil, s.err
	}
	return s.run, nil
}

func (s *stubCoordinator) GetRun(
	ctx context.Context, id uuid.UUID,
) (*retentionDomain.PurgeRun, error) {
	return s.run, s.err
}

func (s *stubCoordinator) ListRuns(
	ctx context.Context, offset, limit int,
) ([]*retentionDomain.PurgeRun, error) {
	return nil, s.err
}

type stubPolicyUseCase struct {
	policy *retentionDomain.RetentionPolicy
	hold   *retentionDomain.LegalHold
	err    error

	gotActorID string
	gotInput   retentionUsecase.SetPolicyInput
}

func (s *stubPolicyUseCase) SetPolicy(
	ctx context.Context, actorID string, input retentionUsecase.SetPolicyInput,
) (*retentionDomain.RetentionPolicy, error) {
	s.gotActorID = actorID
	s.gotInput = input
	if s.err != nil {
		return nil, s.err
	}
	return s.policy, nil
}

func (s *stubPolicyUseCase) GetPolicy(
	ctx context.Context, eventType auditDomain.EventType,
) (*retentionDomain.RetentionPolicy, error) {
	return s.policy, s.err
}

func (s *stubPolicyUseCase) ListPolicies(
	ctx context.Context,
) ([]*retentionDomain.RetentionPolicy, error) {
	return nil, s.err
}

func (s *stubPolicyUseCase) SetLegalHold(
	ctx context.Context, actorID, resourceID, reason string,
) (*retentionDomain.LegalHold, error) {
	s.gotActorID = actorID
	if s.err != nil {
		return nil, s.err
	}
	return s.hold, nil
}

func (s *stubPolicyUseCase) ReleaseLegalHold(ctx context.Context, actorID, resourceID string) error {
	s.gotActorID = actorID
	return s.err
}

func sampleEvent() *auditDomain.AuditEvent {
	return &auditDomain.AuditEvent{
		ID:                uuid.Must(uuid.NewV7()),
		ChainID:           "patient-42",
		BlockNumber:       3,
		OccurredAt:        time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC),
		RecordedAt:        time.Date(2026, 8, 20, 10, 0, 1, 0, time.UTC),
		EventType:         auditDomain.EventTypePHIAccessed,
		ActorID:           "clinician-7",
		ResourceType:      "medical_record",
		ResourceID:        "rec-42",
		Action:            auditDomain.ActionView,
		Outcome:           auditDomain.OutcomeSuccess,
		HashSchemeVersion: auditDomain.HashSchemeVersion,
		PreviousHash:      make([]byte, 32),
		CurrentHash:       make([]byte, 32),
	}
}
