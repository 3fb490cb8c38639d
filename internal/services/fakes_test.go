package services

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"sfa-workflow/internal/chain"
	"sfa-workflow/internal/entities"
	"sfa-workflow/internal/repositories"
	"sfa-workflow/pkg/constants"
	apperrors "sfa-workflow/pkg/errors"
	"sfa-workflow/pkg/types"
)

// fakeWorkflowRepo хранит цепочки в памяти по ключу области.
type fakeWorkflowRepo struct {
	mu        sync.Mutex
	chains    map[string][]entities.ApprovalChainEntry
	nextID    uint64
	failOn    string
	summaries []entities.ApprovalWorkflowSummary
	users     map[uint64]entities.User
	onLock    func(scope chain.Scope)
}

func newFakeWorkflowRepo(users map[uint64]entities.User) *fakeWorkflowRepo {
	return &fakeWorkflowRepo{chains: map[string][]entities.ApprovalChainEntry{}, users: users}
}

func (f *fakeWorkflowRepo) snapshot() map[string][]entities.ApprovalChainEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := make(map[string][]entities.ApprovalChainEntry, len(f.chains))
	for k, v := range f.chains {
		copied[k] = append([]entities.ApprovalChainEntry(nil), v...)
	}
	return copied
}

func (f *fakeWorkflowRepo) restore(state map[string][]entities.ApprovalChainEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chains = state
}

func (f *fakeWorkflowRepo) FindByScope(_ context.Context, _ pgx.Tx, scope chain.Scope, activeOnly bool) ([]entities.ApprovalChainEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]entities.ApprovalChainEntry, 0)
	for _, e := range f.chains[scope.Key()] {
		if activeOnly && e.IsActive != constants.FlagYes {
			continue
		}
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Sequence < result[j].Sequence })
	return result, nil
}

func (f *fakeWorkflowRepo) LockScope(_ context.Context, _ pgx.Tx, scope chain.Scope) error {
	if f.onLock != nil {
		f.onLock(scope)
	}
	return nil
}

func (f *fakeWorkflowRepo) DeleteByScope(_ context.Context, _ pgx.Tx, scope chain.Scope) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := int64(len(f.chains[scope.Key()]))
	delete(f.chains, scope.Key())
	return n, nil
}

func (f *fakeWorkflowRepo) InsertEntries(_ context.Context, _ pgx.Tx, entries []entities.ApprovalChainEntry, createdBy uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range entries {
		key := chain.ScopeOf(e).Key()
		if key == f.failOn {
			return errors.New("insert failed")
		}
		for _, existing := range f.chains[key] {
			if existing.ApproverID == e.ApproverID {
				return apperrors.ErrDuplicateApprover
			}
		}
		f.nextID++
		e.ID = f.nextID
		e.CreatedBy = &createdBy
		e.ApproverFio = f.users[e.ApproverID].Fio
		now := time.Now()
		e.CreatedAt, e.UpdatedAt = &now, &now
		f.chains[key] = append(f.chains[key], e)
	}
	return nil
}

func (f *fakeWorkflowRepo) DeleteByRequestType(_ context.Context, _ pgx.Tx, requestType string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for key, entries := range f.chains {
		if strings.HasPrefix(key, requestType+":") {
			n += int64(len(entries))
			delete(f.chains, key)
		}
	}
	return n, nil
}

func (f *fakeWorkflowRepo) SetScopeActive(_ context.Context, _ pgx.Tx, scope chain.Scope, flag string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries := f.chains[scope.Key()]
	for i := range entries {
		entries[i].IsActive = flag
	}
	return int64(len(entries)), nil
}

func (f *fakeWorkflowRepo) Summary(context.Context, types.Filter) ([]entities.ApprovalWorkflowSummary, uint64, error) {
	return f.summaries, uint64(len(f.summaries)), nil
}

// fakeTx отличает вызовы внутри транзакции от вызовов через пул.
type fakeTx struct {
	pgx.Tx
}

// fakeTxManager откатывает fakeWorkflowRepo к снимку, если fn вернула ошибку.
type fakeTxManager struct {
	repo *fakeWorkflowRepo
}

func (m *fakeTxManager) RunInTransaction(_ context.Context, fn func(tx pgx.Tx) error) error {
	before := m.repo.snapshot()
	if err := fn(&fakeTx{}); err != nil {
		m.repo.restore(before)
		return err
	}
	return nil
}

type fakeUserRepo struct {
	users        map[uint64]entities.User
	activeLookup []pgx.Tx
}

func (f *fakeUserRepo) FindByID(_ context.Context, _ pgx.Tx, id uint64) (*entities.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &u, nil
}

func (f *fakeUserRepo) FindActiveByIDs(_ context.Context, tx pgx.Tx, ids []uint64) (map[uint64]entities.User, error) {
	f.activeLookup = append(f.activeLookup, tx)
	result := make(map[uint64]entities.User)
	for _, id := range ids {
		if u, ok := f.users[id]; ok && u.IsActive == constants.FlagYes {
			result[id] = u
		}
	}
	return result, nil
}

func (f *fakeUserRepo) ListActive(_ context.Context, _ types.Filter, excludeIDs []uint64) ([]entities.User, uint64, error) {
	excluded := make(map[uint64]bool, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = true
	}
	result := make([]entities.User, 0)
	for _, u := range f.users {
		if u.IsActive == constants.FlagYes && !excluded[u.ID] {
			result = append(result, u)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, uint64(len(result)), nil
}

type fakeZoneRepo struct {
	zones map[uint64]entities.Zone
}

func (f *fakeZoneRepo) FindByID(_ context.Context, _ pgx.Tx, id uint64) (*entities.Zone, error) {
	z, ok := f.zones[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &z, nil
}

func (f *fakeZoneRepo) GetAll(context.Context, types.Filter) ([]entities.Zone, uint64, error) {
	result := make([]entities.Zone, 0, len(f.zones))
	for _, z := range f.zones {
		result = append(result, z)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, uint64(len(result)), nil
}

type fakeDepotRepo struct {
	depots map[uint64]entities.Depot
}

func (f *fakeDepotRepo) FindByID(_ context.Context, _ pgx.Tx, id uint64) (*entities.Depot, error) {
	d, ok := f.depots[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &d, nil
}

func (f *fakeDepotRepo) GetAll(context.Context, types.Filter) ([]entities.Depot, uint64, error) {
	result := make([]entities.Depot, 0, len(f.depots))
	for _, d := range f.depots {
		result = append(result, d)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, uint64(len(result)), nil
}

type fakeAuditRepo struct {
	records []entities.ApprovalWorkflowAudit
}

func (f *fakeAuditRepo) Create(_ context.Context, _ pgx.Tx, audit entities.ApprovalWorkflowAudit) error {
	f.records = append(f.records, audit)
	return nil
}

func (f *fakeAuditRepo) ListByRequestType(_ context.Context, requestType string, _ types.Filter) ([]entities.ApprovalWorkflowAudit, uint64, error) {
	result := make([]entities.ApprovalWorkflowAudit, 0)
	for _, r := range f.records {
		if r.RequestType == requestType {
			result = append(result, r)
		}
	}
	return result, uint64(len(result)), nil
}

// fakeCache - CacheRepositoryInterface в памяти, TTL не учитывается.
type fakeCache struct {
	mu     sync.Mutex
	values map[string]string
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: map[string]string{}}
}

func toString(value interface{}) string {
	switch v := value.(type) {
	case []byte:
		return string(v)
	case string:
		return v
	default:
		return ""
	}
}

func (c *fakeCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = toString(value)
	return nil
}

func (c *fakeCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	if !ok {
		return "", repositories.ErrCacheMiss
	}
	return v, nil
}

func (c *fakeCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.values, k)
	}
	return nil
}

func (c *fakeCache) Incr(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, _ := strconv.ParseInt(c.values[key], 10, 64)
	n++
	c.values[key] = strconv.FormatInt(n, 10)
	return n, nil
}

func (c *fakeCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.values[key]
	return ok
}
