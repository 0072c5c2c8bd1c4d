package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/auditchain/internal/audit/domain"
	apperrors "github.com/allisson/auditchain/internal/errors"
)

// fakeTxManager runs the function directly; the fakes below are their own
// source of truth, so there is nothing to commit or roll back.
type fakeTxManager struct{}

func (fakeTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// fakeEventRepo is an in-memory EventRepository keyed by (chain_id, block_number).
type fakeEventRepo struct {
	mu     sync.Mutex
	chains map[string]map[int64]*auditDomain.AuditEvent
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{chains: make(map[string]map[int64]*auditDomain.AuditEvent)}
}

func (f *fakeEventRepo) Create(ctx context.Context, event *auditDomain.AuditEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	chain, ok := f.chains[event.ChainID]
	if !ok {
		chain = make(map[int64]*auditDomain.AuditEvent)
		f.chains[event.ChainID] = chain
	}
	if _, exists := chain[event.BlockNumber]; exists {
		return apperrors.Wrap(apperrors.ErrConflict, "duplicate block number")
	}
	chain[event.BlockNumber] = event
	return nil
}

func (f *fakeEventRepo) ListRange(
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

func (f *fakeEventRepo) List(
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

func (f *fakeEventRepo) ListPurgeCandidates(
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

func (f *fakeEventRepo) DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
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

// microsecondEventRepo mimics the resolution of the timestamp columns:
// events come back from reads with occurred_at truncated to microseconds.
type microsecondEventRepo struct {
	*fakeEventRepo
}

func (r *microsecondEventRepo) ListRange(
	ctx context.Context,
	chainID string,
	fromBlock, toBlock int64,
	limit int,
) ([]*auditDomain.AuditEvent, error) {
	events, err := r.fakeEventRepo.ListRange(ctx, chainID, fromBlock, toBlock, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*auditDomain.AuditEvent, len(events))
	for i, event := range events {
		copied := *event
		copied.OccurredAt = copied.OccurredAt.Truncate(time.Microsecond)
		copied.RecordedAt = copied.RecordedAt.Truncate(time.Microsecond)
		out[i] = &copied
	}
	return out, nil
}

// deleteBlocks removes blocks directly, simulating either a purge or tampering.
func (f *fakeEventRepo) deleteBlocks(chainID string, from, to int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for n := from; n <= to; n++ {
		delete(f.chains[chainID], n)
	}
}

func (f *fakeEventRepo) get(chainID string, block int64) *auditDomain.AuditEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chains[chainID][block]
}

// fakeChainStateRepo is an in-memory ChainStateRepository with optional injected
// compare-and-set conflicts for contention tests.
type fakeChainStateRepo struct {
	mu             sync.Mutex
	states         map[string]*auditDomain.ChainState
	forcedConflict int
}

func newFakeChainStateRepo() *fakeChainStateRepo {
	return &fakeChainStateRepo{states: make(map[string]*auditDomain.ChainState)}
}

func (f *fakeChainStateRepo) Get(ctx context.Context, chainID string) (*auditDomain.ChainState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	state, ok := f.states[chainID]
	if !ok {
		return nil, auditDomain.ErrChainNotFound
	}
	copied := *state
	return &copied, nil
}

func (f *fakeChainStateRepo) Create(ctx context.Context, state *auditDomain.ChainState) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.forcedConflict > 0 {
		f.forcedConflict--
		return auditDomain.ErrStateConflict
	}
	if _, exists := f.states[state.ChainID]; exists {
		return auditDomain.ErrStateConflict
	}
	copied := *state
	f.states[state.ChainID] = &copied
	return nil
}

func (f *fakeChainStateRepo) CompareAndSwap(
	ctx context.Context,
	state *auditDomain.ChainState,
	expectedLastBlock int64,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.forcedConflict > 0 {
		f.forcedConflict--
		return auditDomain.ErrStateConflict
	}
	current, ok := f.states[state.ChainID]
	if !ok || current.LastBlockNumber != expectedLastBlock {
		return auditDomain.ErrStateConflict
	}
	copied := *state
	f.states[state.ChainID] = &copied
	return nil
}

func (f *fakeChainStateRepo) ListChainIDs(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ids := make([]string, 0, len(f.states))
	for id := range f.states {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// fakePurgedRangeRepo is an in-memory PurgedRangeRepository.
type fakePurgedRangeRepo struct {
	mu     sync.Mutex
	ranges []*auditDomain.PurgedRange
}

func newFakePurgedRangeRepo() *fakePurgedRangeRepo {
	return &fakePurgedRangeRepo{}
}

func (f *fakePurgedRangeRepo) Create(ctx context.Context, purgedRange *auditDomain.PurgedRange) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *purgedRange
	f.ranges = append(f.ranges, &copied)
	return nil
}

func (f *fakePurgedRangeRepo) ListOverlapping(
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
