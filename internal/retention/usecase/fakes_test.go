package usecase

import (
	"context"
	"crypto/sha256"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/auditchain/internal/audit/domain"
	auditUsecase "github.com/allisson/auditchain/internal/audit/usecase"
	retentionDomain "github.com/allisson/auditchain/internal/retention/domain"
)

// fakeTxManager runs the function directly; the in-memory fakes are their own
// source of truth.
type fakeTxManager struct{}

func (fakeTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// fakeAppender records audit events in memory per chain, assigning sequential
// block numbers. failNext makes one Record call fail, for fail-closed tests;
// failAfter delays the failure past that many successful calls.
type fakeAppender struct {
	mu        sync.Mutex
	events    map[string][]*auditDomain.AuditEvent
	failNext  error
	failAfter int
}

func newFakeAppender() *fakeAppender {
	return &fakeAppender{events: make(map[string][]*auditDomain.AuditEvent)}
}

func (f *fakeAppender) Record(
	ctx context.Context,
	chainID string,
	input auditUsecase.RecordEventInput,
) (*auditDomain.AuditEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failNext != nil {
		if f.failAfter > 0 {
			f.failAfter--
		} else {
			err := f.failNext
			f.failNext = nil
			return nil, err
		}
	}

	digest := sha256.Sum256(input.SensitivePayload)
	event := &auditDomain.AuditEvent{
		ID:            uuid.Must(uuid.NewV7()),
		ChainID:       chainID,
		BlockNumber:   int64(len(f.events[chainID])),
		OccurredAt:    time.Now().UTC(),
		RecordedAt:    time.Now().UTC(),
		EventType:     input.EventType,
		ActorID:       input.ActorID,
		ResourceType:  input.ResourceType,
		ResourceID:    input.ResourceID,
		Action:        input.Action,
		Outcome:       input.Outcome,
		PayloadDigest: digest[:],
	}
	f.events[chainID] = append(f.events[chainID], event)
	return event, nil
}

func (f *fakeAppender) State(ctx context.Context, chainID string) (*auditDomain.ChainState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	events := f.events[chainID]
	if len(events) == 0 {
		return nil, auditDomain.ErrChainNotFound
	}
	tail := events[len(events)-1]
	return &auditDomain.ChainState{
		ChainID:         chainID,
		LastBlockNumber: tail.BlockNumber,
		LastHash:        tail.CurrentHash,
		LastOccurredAt:  tail.OccurredAt,
	}, nil
}

func (f *fakeAppender) List(
	ctx context.Context,
	chainID string,
	offset, limit int,
) ([]*auditDomain.AuditEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	events := f.events[chainID]
	var out []*auditDomain.AuditEvent
	for i := len(events) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, events[i])
	}
	return out, nil
}

// systemEvents returns the events recorded on the system chain, oldest first.
func (f *fakeAppender) systemEvents() []*auditDomain.AuditEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*auditDomain.AuditEvent(nil), f.events[auditDomain.SystemChainID]...)
}

func sha256Of(b []byte) []byte {
	digest := sha256.Sum256(b)
	return digest[:]
}

// fakePolicyRepo is an in-memory RetentionPolicyRepository.
type fakePolicyRepo struct {
	mu       sync.Mutex
	policies map[auditDomain.EventType]*retentionDomain.RetentionPolicy
	listErr  error
}

func newFakePolicyRepo() *fakePolicyRepo {
	return &fakePolicyRepo{policies: make(map[auditDomain.EventType]*retentionDomain.RetentionPolicy)}
}

func (f *fakePolicyRepo) Get(
	ctx context.Context,
	eventType auditDomain.EventType,
) (*retentionDomain.RetentionPolicy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	policy, ok := f.policies[eventType]
	if !ok {
		return nil, retentionDomain.ErrPolicyNotFound
	}
	copied := *policy
	return &copied, nil
}

func (f *fakePolicyRepo) Upsert(ctx context.Context, policy *retentionDomain.RetentionPolicy) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	copied := *policy
	f.policies[policy.EventType] = &copied
	return nil
}

func (f *fakePolicyRepo) List(ctx context.Context) ([]*retentionDomain.RetentionPolicy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.listErr != nil {
		return nil, f.listErr
	}

	out := make([]*retentionDomain.RetentionPolicy, 0, len(f.policies))
	for _, policy := range f.policies {
		copied := *policy
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventType < out[j].EventType })
	return out, nil
}

// fakeHoldRepo is an in-memory LegalHoldRepository.
type fakeHoldRepo struct {
	mu    sync.Mutex
	holds map[string]*retentionDomain.LegalHold
}

func newFakeHoldRepo() *fakeHoldRepo {
	return &fakeHoldRepo{holds: make(map[string]*retentionDomain.LegalHold)}
}

func (f *fakeHoldRepo) Get(ctx context.Context, resourceID string) (*retentionDomain.LegalHold, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	hold, ok := f.holds[resourceID]
	if !ok {
		return nil, retentionDomain.ErrHoldNotFound
	}
	copied := *hold
	return &copied, nil
}

func (f *fakeHoldRepo) Upsert(ctx context.Context, hold *retentionDomain.LegalHold) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	copied := *hold
	f.holds[hold.ResourceID] = &copied
	return nil
}

func (f *fakeHoldRepo) Delete(ctx context.Context, resourceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.holds[resourceID]; !ok {
		return retentionDomain.ErrHoldNotFound
	}
	delete(f.holds, resourceID)
	return nil
}

func (f *fakeHoldRepo) ListResourceIDs(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ids := make([]string, 0, len(f.holds))
	for id := range f.holds {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// fakeRunRepo is an in-memory PurgeRunRepository. suspendAfterGets, when
// positive, flips the stored run to suspended after that many Get calls,
// simulating an operator suspending mid-pass.
type fakeRunRepo struct {
	mu               sync.Mutex
	runs             map[uuid.UUID]*retentionDomain.PurgeRun
	order            []uuid.UUID
	getCalls         int
	suspendAfterGets int
}

func newFakeRunRepo() *fakeRunRepo {
	return &fakeRunRepo{runs: make(map[uuid.UUID]*retentionDomain.PurgeRun)}
}

func (f *fakeRunRepo) Create(ctx context.Context, run *retentionDomain.PurgeRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	copied := *run
	f.runs[run.ID] = &copied
	f.order = append(f.order, run.ID)
	return nil
}

func (f *fakeRunRepo) Get(ctx context.Context, id uuid.UUID) (*retentionDomain.PurgeRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	run, ok := f.runs[id]
	if !ok {
		return nil, retentionDomain.ErrRunNotFound
	}

	f.getCalls++
	if f.suspendAfterGets > 0 && f.getCalls >= f.suspendAfterGets {
		run.Status = retentionDomain.PurgeRunStatusSuspended
	}

	copied := *run
	return &copied, nil
}

func (f *fakeRunRepo) Update(ctx context.Context, run *retentionDomain.PurgeRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.runs[run.ID]; !ok {
		return retentionDomain.ErrRunNotFound
	}
	copied := *run
	f.runs[run.ID] = &copied
	return nil
}

func (f *fakeRunRepo) List(ctx context.Context, offset, limit int) ([]*retentionDomain.PurgeRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*retentionDomain.PurgeRun
	for i := len(f.order) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		copied := *f.runs[f.order[i]]
		out = append(out, &copied)
	}
	return out, nil
}

func (f *fakeRunRepo) GetResumable(ctx context.Context) (*retentionDomain.PurgeRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := len(f.order) - 1; i >= 0; i-- {
		run := f.runs[f.order[i]]
		switch run.Status {
		case retentionDomain.PurgeRunStatusScheduled,
			retentionDomain.PurgeRunStatusEvaluating,
			retentionDomain.PurgeRunStatusAwaitingApproval,
			retentionDomain.PurgeRunStatusPurging,
			retentionDomain.PurgeRunStatusFailed:
			copied := *run
			return &copied, nil
		}
	}
	return nil, retentionDomain.ErrRunNotFound
}

// fakeChainEventRepo is an in-memory audit event repository seeded directly by
// tests.
type fakeChainEventRepo struct {
	mu     sync.Mutex
	chains map[string]map[int64]*auditDomain.AuditEvent
}

func newFakeChainEventRepo() *fakeChainEventRepo {
	return &fakeChainEventRepo{chains: make(map[string]map[int64]*auditDomain.AuditEvent)}
}

// seed inserts an event with a deterministic hash derived from its block number.
func (f *fakeChainEventRepo) seed(
	chainID string,
	blockNumber int64,
	eventType auditDomain.EventType,
	resourceID string,
	occurredAt time.Time,
) *auditDomain.AuditEvent {
	f.mu.Lock()
	defer f.mu.Unlock()

	hash := sha256.Sum256([]byte(chainID + "/" + strconv.FormatInt(blockNumber, 10)))
	event := &auditDomain.AuditEvent{
		ID:           uuid.Must(uuid.NewV7()),
		ChainID:      chainID,
		BlockNumber:  blockNumber,
		OccurredAt:   occurredAt,
		RecordedAt:   occurredAt,
		EventType:    eventType,
		ActorID:      "dr-house",
		ResourceType: "medical_record",
		ResourceID:   resourceID,
		Action:       auditDomain.ActionView,
		Outcome:      auditDomain.OutcomeSuccess,
		CurrentHash:  hash[:],
	}

	chain, ok := f.chains[chainID]
	if !ok {
		chain = make(map[int64]*auditDomain.AuditEvent)
		f.chains[chainID] = chain
	}
	chain[blockNumber] = event
	return event
}

func (f *fakeChainEventRepo) count(chainID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.chains[chainID])
}

func (f *fakeChainEventRepo) has(chainID string, blockNumber int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.chains[chainID][blockNumber]
	return ok
}

func (f *fakeChainEventRepo) Create(ctx context.Context, event *auditDomain.AuditEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	chain, ok := f.chains[event.ChainID]
	if !ok {
		chain = make(map[int64]*auditDomain.AuditEvent)
		f.chains[event.ChainID] = chain
	}
	chain[event.BlockNumber] = event
	return nil
}

func (f *fakeChainEventRepo) ListRange(
	ctx context.Context,
	chainID string,
	fromBlock, toBlock int64,
	limit int,
) ([]*auditDomain.AuditEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*auditDomain.AuditEvent
	for n := fromBlock; n <= toBlock && len(out) < limit; n++ {
		if event, ok := f.chains[chainID][n]; ok {
			out = append(out, event)
		}
	}
	return out, nil
}

func (f *fakeChainEventRepo) List(
	ctx context.Context,
	chainID string,
	offset, limit int,
) ([]*auditDomain.AuditEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	blocks := make([]int64, 0, len(f.chains[chainID]))
	for n := range f.chains[chainID] {
		blocks = append(blocks, n)
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i] > blocks[j] })

	var out []*auditDomain.AuditEvent
	for i := offset; i < len(blocks) && len(out) < limit; i++ {
		out = append(out, f.chains[chainID][blocks[i]])
	}
	return out, nil
}

func (f *fakeChainEventRepo) ListPurgeCandidates(
	ctx context.Context,
	chainID string,
	eventType auditDomain.EventType,
	cutoff time.Time,
	afterBlock int64,
	limit int,
) ([]*auditDomain.AuditEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	blocks := make([]int64, 0, len(f.chains[chainID]))
	for n := range f.chains[chainID] {
		blocks = append(blocks, n)
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i] < blocks[j] })

	var out []*auditDomain.AuditEvent
	for _, n := range blocks {
		if len(out) >= limit {
			break
		}
		if n <= afterBlock {
			continue
		}
		event := f.chains[chainID][n]
		if event.EventType == eventType && event.OccurredAt.Before(cutoff) {
			out = append(out, event)
		}
	}
	return out, nil
}

func (f *fakeChainEventRepo) DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	wanted := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	var deleted int64
	for _, chain := range f.chains {
		for n, event := range chain {
			if wanted[event.ID] {
				delete(chain, n)
				deleted++
			}
		}
	}
	return deleted, nil
}

// fakeChainStateRepo exposes the chain IDs the coordinator iterates.
type fakeChainStateRepo struct {
	chainIDs []string
}

func (f *fakeChainStateRepo) Get(ctx context.Context, chainID string) (*auditDomain.ChainState, error) {
	return nil, auditDomain.ErrChainNotFound
}

func (f *fakeChainStateRepo) Create(ctx context.Context, state *auditDomain.ChainState) error {
	return nil
}

func (f *fakeChainStateRepo) CompareAndSwap(
	ctx context.Context,
	state *auditDomain.ChainState,
	expectedLastBlock int64,
) error {
	return nil
}

func (f *fakeChainStateRepo) ListChainIDs(ctx context.Context) ([]string, error) {
	return f.chainIDs, nil
}

// fakeRangeRepo is an in-memory PurgedRangeRepository.
type fakeRangeRepo struct {
	mu     sync.Mutex
	ranges []*auditDomain.PurgedRange
}

func (f *fakeRangeRepo) Create(ctx context.Context, purgedRange *auditDomain.PurgedRange) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	copied := *purgedRange
	f.ranges = append(f.ranges, &copied)
	return nil
}

func (f *fakeRangeRepo) ListOverlapping(
	ctx context.Context,
	chainID string,
	fromBlock, toBlock int64,
) ([]*auditDomain.PurgedRange, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*auditDomain.PurgedRange
	for _, r := range f.ranges {
		if r.ChainID == chainID && r.FromBlock <= toBlock && r.ToBlock >= fromBlock {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FromBlock < out[j].FromBlock })
	return out, nil
}

func (f *fakeRangeRepo) all() []*auditDomain.PurgedRange {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*auditDomain.PurgedRange(nil), f.ranges...)
}
