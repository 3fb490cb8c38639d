package services

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sfa-workflow/internal/chain"
	"sfa-workflow/internal/dto"
	"sfa-workflow/internal/entities"
	"sfa-workflow/internal/events"
	"sfa-workflow/internal/repositories"
	apperrors "sfa-workflow/pkg/errors"
	"sfa-workflow/pkg/eventbus"
	"sfa-workflow/pkg/types"
	"sfa-workflow/pkg/utils"
)

type workflowFixture struct {
	service ApprovalWorkflowServiceInterface
	repo    *fakeWorkflowRepo
	cache   *fakeCache
	bus     *eventbus.Bus
	users   *fakeUserRepo
	audit   *fakeAuditRepo
	zones   *fakeZoneRepo
	depots  *fakeDepotRepo

	mu        sync.Mutex
	published []eventbus.Event
}

func u64(v uint64) *uint64 { return &v }

func actorCtx() context.Context {
	return utils.WithActor(context.Background(), 1, []string{"superuser"})
}

func newWorkflowFixture(t *testing.T) *workflowFixture {
	t.Helper()
	users := map[uint64]entities.User{
		1: {ID: 1, Fio: "Иванов", IsActive: "Y"},
		2: {ID: 2, Fio: "Петров", IsActive: "Y"},
		3: {ID: 3, Fio: "Сидорова", IsActive: "Y"},
		4: {ID: 4, Fio: "Уволен", IsActive: "N"},
	}
	repo := newFakeWorkflowRepo(users)
	f := &workflowFixture{
		repo:  repo,
		cache: newFakeCache(),
		bus:   eventbus.New(zap.NewNop()),
		users: &fakeUserRepo{users: users},
		audit: &fakeAuditRepo{},
	}
	f.zones = &fakeZoneRepo{zones: map[uint64]entities.Zone{
		5: {ID: 5, Name: "Север"},
		7: {ID: 7, Name: "Юг"},
	}}
	f.depots = &fakeDepotRepo{depots: map[uint64]entities.Depot{
		10: {ID: 10, Name: "Депо Север-1", ZoneID: u64(5)},
		11: {ID: 11, Name: "Депо без зоны"},
	}}
	for _, name := range []string{events.ApprovalChainReplaced, events.ApprovalChainDeleted, events.ApprovalChainStatusChanged} {
		f.bus.Subscribe(name, func(_ context.Context, e eventbus.Event) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.published = append(f.published, e)
			return nil
		})
	}
	f.withRepo(repo)
	return f
}

// withRepo пересобирает сервис поверх обёртки над f.repo.
func (f *workflowFixture) withRepo(repo repositories.ApprovalWorkflowRepositoryInterface) {
	f.service = NewApprovalWorkflowService(repo, f.users, f.zones, f.depots, f.audit, &fakeTxManager{repo: f.repo}, f.cache, f.bus, time.Minute, zap.NewNop())
}

func (f *workflowFixture) publishedEvents(t *testing.T) []eventbus.Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, f.bus.Wait(ctx))
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]eventbus.Event(nil), f.published...)
}

func entry(requestType string, approverID uint64, zoneID, depotID *uint64) dto.ApprovalChainEntryDTO {
	e := dto.ApprovalChainEntryDTO{RequestType: requestType, ApproverID: approverID, IsActive: "Y"}
	if zoneID != nil {
		e.ZoneID = null.IntFrom(int(*zoneID))
	}
	if depotID != nil {
		e.DepotID = null.IntFrom(int(*depotID))
	}
	return e
}

func resolvedIDs(chain []dto.ApprovalChainEntryResponseDTO) []uint64 {
	ids := make([]uint64, len(chain))
	for i, e := range chain {
		ids[i] = e.ApproverID
	}
	return ids
}

func TestSave_ReplacesWholeChain(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := actorCtx()

	_, err := f.service.Save(ctx, []dto.ApprovalChainEntryDTO{
		entry("ORDER_APPROVAL", 1, nil, nil),
		entry("ORDER_APPROVAL", 2, nil, nil),
		entry("ORDER_APPROVAL", 3, nil, nil),
	})
	require.NoError(t, err)

	resp, err := f.service.Save(ctx, []dto.ApprovalChainEntryDTO{
		entry("ORDER_APPROVAL", 2, nil, nil),
		entry("ORDER_APPROVAL", 1, nil, nil),
	})
	require.NoError(t, err)
	require.Len(t, resp.Scopes, 1)
	assert.Len(t, resp.Scopes[0].Entries, 2)

	resolved, err := f.service.Resolve(ctx, dto.ResolveChainQueryDTO{RequestType: "ORDER_APPROVAL"})
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 1}, resolvedIDs(resolved))
	assert.Equal(t, 1, resolved[0].Sequence)
	assert.Equal(t, 2, resolved[1].Sequence)
	assert.Equal(t, "Петров", resolved[0].ApproverFio)
}

func TestSave_IgnoresSubmittedSequence(t *testing.T) {
	f := newWorkflowFixture(t)
	first := entry("ORDER_APPROVAL", 1, nil, nil)
	first.Sequence = 7
	second := entry("ORDER_APPROVAL", 2, nil, nil)
	second.Sequence = 3

	resp, err := f.service.Save(actorCtx(), []dto.ApprovalChainEntryDTO{first, second})
	require.NoError(t, err)
	entries := resp.Scopes[0].Entries
	assert.Equal(t, uint64(1), entries[0].ApproverID)
	assert.Equal(t, 1, entries[0].Sequence)
	assert.Equal(t, 2, entries[1].Sequence)
}

func TestSave_ZoneAndGlobalCoexist(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := actorCtx()

	_, err := f.service.Save(ctx, []dto.ApprovalChainEntryDTO{
		entry("ASSET_MOVEMENT", 1, nil, nil),
		entry("ASSET_MOVEMENT", 2, u64(5), nil),
		entry("ASSET_MOVEMENT", 3, u64(5), nil),
	})
	require.NoError(t, err)

	global, err := f.service.Resolve(ctx, dto.ResolveChainQueryDTO{RequestType: "ASSET_MOVEMENT"})
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, resolvedIDs(global))

	zone, err := f.service.Resolve(ctx, dto.ResolveChainQueryDTO{RequestType: "ASSET_MOVEMENT", ZoneID: null.IntFrom(5)})
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 3}, resolvedIDs(zone))

	// точное совпадение: у зоны 7 нет своей цепочки, глобальная не подставляется
	other, err := f.service.Resolve(ctx, dto.ResolveChainQueryDTO{RequestType: "ASSET_MOVEMENT", ZoneID: null.IntFrom(7)})
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestSave_Validation(t *testing.T) {
	tests := []struct {
		name    string
		entries []dto.ApprovalChainEntryDTO
		target  error
		code    int
	}{
		{name: "пустой список", entries: nil, target: apperrors.ErrEmptyChain},
		{name: "без request_type", entries: []dto.ApprovalChainEntryDTO{entry("", 1, nil, nil)}, target: apperrors.ErrRequestTypeRequired},
		{
			name:    "дубль согласующего",
			entries: []dto.ApprovalChainEntryDTO{entry("ORDER_APPROVAL", 1, nil, nil), entry("ORDER_APPROVAL", 1, nil, nil)},
			target:  apperrors.ErrDuplicateApprover,
			code:    http.StatusConflict,
		},
		{
			name:    "неактивный согласующий",
			entries: []dto.ApprovalChainEntryDTO{entry("ORDER_APPROVAL", 4, nil, nil)},
			target:  apperrors.ErrInactiveApprover,
			code:    http.StatusBadRequest,
		},
		{name: "неизвестная зона", entries: []dto.ApprovalChainEntryDTO{entry("ORDER_APPROVAL", 1, u64(99), nil)}, code: http.StatusBadRequest},
		{name: "депо из другой зоны", entries: []dto.ApprovalChainEntryDTO{entry("ORDER_APPROVAL", 1, u64(7), u64(10))}, code: http.StatusBadRequest},
		{name: "депо без зоны при указанной зоне", entries: []dto.ApprovalChainEntryDTO{entry("ORDER_APPROVAL", 1, u64(5), u64(11))}, code: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newWorkflowFixture(t)
			_, err := f.service.Save(actorCtx(), tt.entries)
			require.Error(t, err)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
			if tt.code != 0 {
				var httpErr *apperrors.HttpError
				require.True(t, errors.As(err, &httpErr))
				assert.Equal(t, tt.code, httpErr.Code)
			}
			assert.Empty(t, f.repo.snapshot())
		})
	}
}

func TestSave_DepotOnlyScope(t *testing.T) {
	f := newWorkflowFixture(t)
	_, err := f.service.Save(actorCtx(), []dto.ApprovalChainEntryDTO{entry("ORDER_APPROVAL", 1, nil, u64(10))})
	require.NoError(t, err)

	resolved, err := f.service.Resolve(actorCtx(), dto.ResolveChainQueryDTO{RequestType: "ORDER_APPROVAL", DepotID: null.IntFrom(10)})
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, resolvedIDs(resolved))
}

func TestSave_RollsBackAllScopesOnFailure(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := actorCtx()
	_, err := f.service.Save(ctx, []dto.ApprovalChainEntryDTO{entry("ORDER_APPROVAL", 1, nil, nil)})
	require.NoError(t, err)

	f.repo.failOn = chain.Scope{RequestType: "ORDER_APPROVAL", ZoneID: u64(5)}.Key()
	_, err = f.service.Save(ctx, []dto.ApprovalChainEntryDTO{
		entry("ORDER_APPROVAL", 2, nil, nil),
		entry("ORDER_APPROVAL", 3, u64(5), nil),
	})
	require.Error(t, err)

	resolved, err := f.service.Resolve(ctx, dto.ResolveChainQueryDTO{RequestType: "ORDER_APPROVAL"})
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, resolvedIDs(resolved), "старая цепочка должна остаться")
}

func TestSave_RequiresActor(t *testing.T) {
	f := newWorkflowFixture(t)
	_, err := f.service.Save(context.Background(), []dto.ApprovalChainEntryDTO{entry("ORDER_APPROVAL", 1, nil, nil)})
	assert.ErrorIs(t, err, apperrors.ErrUserIDNotFoundInContext)
}

func TestSave_PublishesEventPerScope(t *testing.T) {
	f := newWorkflowFixture(t)
	_, err := f.service.Save(actorCtx(), []dto.ApprovalChainEntryDTO{
		entry("ORDER_APPROVAL", 1, nil, nil),
		entry("ORDER_APPROVAL", 2, u64(5), nil),
		entry("ORDER_APPROVAL", 3, nil, nil),
	})
	require.NoError(t, err)

	published := f.publishedEvents(t)
	require.Len(t, published, 2)
	byKey := map[string]events.ApprovalChainReplacedEvent{}
	for _, e := range published {
		replaced, ok := e.(events.ApprovalChainReplacedEvent)
		require.True(t, ok)
		byKey[replaced.Scope.Key()] = replaced
	}
	assert.Equal(t, []uint64{1, 3}, byKey["ORDER_APPROVAL:*:*"].ApproverIDs)
	assert.Equal(t, []uint64{2}, byKey["ORDER_APPROVAL:5:*"].ApproverIDs)
	assert.Equal(t, uint64(1), byKey["ORDER_APPROVAL:5:*"].ActorID)
}

func TestResolve_CachesAndInvalidates(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := actorCtx()
	query := dto.ResolveChainQueryDTO{RequestType: "ORDER_APPROVAL", ZoneID: null.IntFrom(5)}

	_, err := f.service.Save(ctx, []dto.ApprovalChainEntryDTO{entry("ORDER_APPROVAL", 1, u64(5), nil)})
	require.NoError(t, err)

	_, err = f.service.Resolve(ctx, query)
	require.NoError(t, err)
	assert.True(t, f.cache.has("approval_chain:ORDER_APPROVAL:5:*"))

	// изменение в обход сервиса не видно, пока кеш жив
	f.repo.restore(map[string][]entities.ApprovalChainEntry{})
	cached, err := f.service.Resolve(ctx, query)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, resolvedIDs(cached))

	_, err = f.service.Save(ctx, []dto.ApprovalChainEntryDTO{entry("ORDER_APPROVAL", 2, u64(5), nil)})
	require.NoError(t, err)
	assert.False(t, f.cache.has("approval_chain:ORDER_APPROVAL:5:*"))

	fresh, err := f.service.Resolve(ctx, query)
	require.NoError(t, err)
	assert.Equal(t, []uint64{2}, resolvedIDs(fresh))
}

func TestResolve_ActiveOnly(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := actorCtx()
	inactive := entry("ORDER_APPROVAL", 2, nil, nil)
	inactive.IsActive = "N"
	_, err := f.service.Save(ctx, []dto.ApprovalChainEntryDTO{entry("ORDER_APPROVAL", 1, nil, nil), inactive})
	require.NoError(t, err)

	all, err := f.service.Resolve(ctx, dto.ResolveChainQueryDTO{RequestType: "ORDER_APPROVAL"})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := f.service.Resolve(ctx, dto.ResolveChainQueryDTO{RequestType: "ORDER_APPROVAL", ActiveOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, resolvedIDs(active))
}

func TestResolve_RequiresRequestType(t *testing.T) {
	f := newWorkflowFixture(t)
	_, err := f.service.Resolve(actorCtx(), dto.ResolveChainQueryDTO{})
	assert.ErrorIs(t, err, apperrors.ErrRequestTypeRequired)
}

func TestDeleteByRequestType_Idempotent(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := actorCtx()
	_, err := f.service.Save(ctx, []dto.ApprovalChainEntryDTO{
		entry("ORDER_APPROVAL", 1, nil, nil),
		entry("ORDER_APPROVAL", 2, u64(5), nil),
		entry("ASSET_MOVEMENT", 3, nil, nil),
	})
	require.NoError(t, err)
	_, err = f.service.Resolve(ctx, dto.ResolveChainQueryDTO{RequestType: "ORDER_APPROVAL"})
	require.NoError(t, err)

	resp, err := f.service.DeleteByRequestType(ctx, "ORDER_APPROVAL")
	require.NoError(t, err)
	assert.EqualValues(t, 2, resp.Deleted)

	gone, err := f.service.Resolve(ctx, dto.ResolveChainQueryDTO{RequestType: "ORDER_APPROVAL"})
	require.NoError(t, err)
	assert.Empty(t, gone)

	resp, err = f.service.DeleteByRequestType(ctx, "ORDER_APPROVAL")
	require.NoError(t, err)
	assert.Zero(t, resp.Deleted)

	rest, err := f.service.Resolve(ctx, dto.ResolveChainQueryDTO{RequestType: "ASSET_MOVEMENT"})
	require.NoError(t, err)
	assert.Len(t, rest, 1)

	deletedEvents := 0
	for _, e := range f.publishedEvents(t) {
		if e.Name() == events.ApprovalChainDeleted {
			deletedEvents++
		}
	}
	assert.Equal(t, 1, deletedEvents)
}

func TestUpdateStatus(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := actorCtx()
	_, err := f.service.Save(ctx, []dto.ApprovalChainEntryDTO{entry("ORDER_APPROVAL", 1, u64(5), nil), entry("ORDER_APPROVAL", 2, u64(5), nil)})
	require.NoError(t, err)

	resp, err := f.service.UpdateStatus(ctx, "ORDER_APPROVAL", dto.UpdateChainStatusDTO{ZoneID: null.IntFrom(5), IsActive: "N"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, resp.Updated)

	active, err := f.service.Resolve(ctx, dto.ResolveChainQueryDTO{RequestType: "ORDER_APPROVAL", ZoneID: null.IntFrom(5), ActiveOnly: true})
	require.NoError(t, err)
	assert.Empty(t, active)

	statusEvents := 0
	for _, e := range f.publishedEvents(t) {
		if e.Name() == events.ApprovalChainStatusChanged {
			statusEvents++
		}
	}
	assert.Equal(t, 1, statusEvents)
}

func TestUpdateStatus_UnconfiguredScopeIsNoop(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := actorCtx()
	_, err := f.service.Save(ctx, []dto.ApprovalChainEntryDTO{entry("ORDER_APPROVAL", 1, nil, nil)})
	require.NoError(t, err)
	_, err = f.service.Resolve(ctx, dto.ResolveChainQueryDTO{RequestType: "ORDER_APPROVAL"})
	require.NoError(t, err)
	generation, err := f.cache.Get(ctx, "approval_chain_gen:ORDER_APPROVAL")
	require.NoError(t, err)

	resp, err := f.service.UpdateStatus(ctx, "NEVER_CONFIGURED", dto.UpdateChainStatusDTO{IsActive: "N"})
	require.NoError(t, err)
	assert.Zero(t, resp.Updated)
	assert.Equal(t, "NEVER_CONFIGURED", resp.RequestType)

	resp, err = f.service.UpdateStatus(ctx, "ORDER_APPROVAL", dto.UpdateChainStatusDTO{ZoneID: null.IntFrom(7), IsActive: "N"})
	require.NoError(t, err)
	assert.Zero(t, resp.Updated)

	after, err := f.cache.Get(ctx, "approval_chain_gen:ORDER_APPROVAL")
	require.NoError(t, err)
	assert.Equal(t, generation, after)
	assert.False(t, f.cache.has("approval_chain_gen:NEVER_CONFIGURED"))
	assert.True(t, f.cache.has("approval_chain:ORDER_APPROVAL:*:*"))

	for _, e := range f.publishedEvents(t) {
		assert.NotEqual(t, events.ApprovalChainStatusChanged, e.Name())
	}
}

// pausingWorkflowRepo задерживает одно чтение области уже после выборки из БД.
type pausingWorkflowRepo struct {
	*fakeWorkflowRepo
	armed   atomic.Bool
	read    chan struct{}
	release chan struct{}
}

func (r *pausingWorkflowRepo) FindByScope(ctx context.Context, tx pgx.Tx, scope chain.Scope, activeOnly bool) ([]entities.ApprovalChainEntry, error) {
	entries, err := r.fakeWorkflowRepo.FindByScope(ctx, tx, scope, activeOnly)
	if r.armed.CompareAndSwap(true, false) {
		close(r.read)
		<-r.release
	}
	return entries, err
}

func TestResolve_SlowReadDoesNotCacheReplacedChain(t *testing.T) {
	f := newWorkflowFixture(t)
	repo := &pausingWorkflowRepo{fakeWorkflowRepo: f.repo, read: make(chan struct{}), release: make(chan struct{})}
	f.withRepo(repo)
	ctx := actorCtx()
	query := dto.ResolveChainQueryDTO{RequestType: "ORDER_APPROVAL"}

	_, err := f.service.Save(ctx, []dto.ApprovalChainEntryDTO{
		entry("ORDER_APPROVAL", 1, nil, nil),
		entry("ORDER_APPROVAL", 2, nil, nil),
		entry("ORDER_APPROVAL", 3, nil, nil),
	})
	require.NoError(t, err)

	repo.armed.Store(true)
	done := make(chan []dto.ApprovalChainEntryResponseDTO)
	go func() {
		stale, err := f.service.Resolve(ctx, query)
		assert.NoError(t, err)
		done <- stale
	}()
	<-repo.read

	_, err = f.service.Save(ctx, []dto.ApprovalChainEntryDTO{
		entry("ORDER_APPROVAL", 2, nil, nil),
		entry("ORDER_APPROVAL", 1, nil, nil),
	})
	require.NoError(t, err)
	close(repo.release)
	assert.Equal(t, []uint64{1, 2, 3}, resolvedIDs(<-done))

	fresh, err := f.service.Resolve(ctx, query)
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 1}, resolvedIDs(fresh))

	cached, err := f.service.Resolve(ctx, query)
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 1}, resolvedIDs(cached))
}

func TestSave_ChecksReferencesUnderScopeLock(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := actorCtx()
	// увольнение согласующего, пока сохранение ждёт блокировку области
	f.repo.onLock = func(chain.Scope) {
		u := f.users.users[2]
		u.IsActive = "N"
		f.users.users[2] = u
	}

	_, err := f.service.Save(ctx, []dto.ApprovalChainEntryDTO{
		entry("ORDER_APPROVAL", 1, nil, nil),
		entry("ORDER_APPROVAL", 2, nil, nil),
	})
	assert.ErrorIs(t, err, apperrors.ErrInactiveApprover)
	require.NotEmpty(t, f.users.activeLookup)
	assert.NotNil(t, f.users.activeLookup[len(f.users.activeLookup)-1])

	f.repo.onLock = nil
	saved, err := f.service.Resolve(ctx, dto.ResolveChainQueryDTO{RequestType: "ORDER_APPROVAL"})
	require.NoError(t, err)
	assert.Empty(t, saved)
}

func TestAvailableApprovers_ExcludesAssigned(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := actorCtx()
	_, err := f.service.Save(ctx, []dto.ApprovalChainEntryDTO{entry("ORDER_APPROVAL", 1, nil, nil)})
	require.NoError(t, err)

	users, total, err := f.service.AvailableApprovers(ctx, dto.ResolveChainQueryDTO{RequestType: "ORDER_APPROVAL"}, types.Filter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	ids := []uint64{users[0].ID, users[1].ID}
	assert.Equal(t, []uint64{2, 3}, ids)
}

func TestGetSummary_MapsRows(t *testing.T) {
	f := newWorkflowFixture(t)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	f.repo.summaries = []entities.ApprovalWorkflowSummary{{
		RequestType:   "ORDER_APPROVAL",
		Zones:         []entities.ScopeRef{{ID: 5, Name: "Север"}},
		NoOfApprovers: 3,
		ScopeCount:    2,
		ActiveCount:   1,
		IsActive:      "Y",
		UpdatedAt:     &now,
	}}

	rows, total, err := f.service.GetSummary(actorCtx(), types.Filter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, []dto.ShortScopeDTO{{ID: 5, Name: "Север"}}, rows[0].Zones)
	assert.Empty(t, rows[0].Depots)
	assert.NotNil(t, rows[0].Depots)
	assert.Equal(t, "2026-01-02T03:04:05Z", rows[0].UpdatedAt)
}
