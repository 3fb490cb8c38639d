package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"sfa-workflow/internal/chain"
	"sfa-workflow/internal/dto"
	"sfa-workflow/internal/entities"
	"sfa-workflow/internal/events"
	"sfa-workflow/internal/repositories"
	"sfa-workflow/pkg/constants"
	apperrors "sfa-workflow/pkg/errors"
	"sfa-workflow/pkg/eventbus"
	"sfa-workflow/pkg/metrics"
	"sfa-workflow/pkg/types"
	"sfa-workflow/pkg/utils"
)

const (
	chainCachePrefix      = "approval_chain:"
	chainGenerationPrefix = "approval_chain_gen:"
)

// chainCacheKey - отдельный ключ на область, у каждого свой TTL.
func chainCacheKey(scope chain.Scope) string {
	return chainCachePrefix + scope.Key()
}

// chainGenerationKey - счётчик поколения кеша типа заявки, без TTL.
func chainGenerationKey(requestType string) string {
	return chainGenerationPrefix + requestType
}

// cachedChain действителен, пока Generation совпадает с текущим поколением типа заявки.
type cachedChain struct {
	Generation int64                               `json:"generation"`
	Entries    []dto.ApprovalChainEntryResponseDTO `json:"entries"`
}

type ApprovalWorkflowServiceInterface interface {
	Save(ctx context.Context, entries []dto.ApprovalChainEntryDTO) (*dto.SaveApprovalChainResponseDTO, error)
	SaveChain(ctx context.Context, b *chain.Builder) (*dto.ApprovalChainScopeDTO, error)
	Resolve(ctx context.Context, query dto.ResolveChainQueryDTO) ([]dto.ApprovalChainEntryResponseDTO, error)
	FindScopeEntries(ctx context.Context, scope chain.Scope) ([]entities.ApprovalChainEntry, error)
	DeleteByRequestType(ctx context.Context, requestType string) (*dto.DeleteApprovalChainResponseDTO, error)
	UpdateStatus(ctx context.Context, requestType string, statusDTO dto.UpdateChainStatusDTO) (*dto.UpdateChainStatusResponseDTO, error)
	GetSummary(ctx context.Context, filter types.Filter) ([]dto.ApprovalWorkflowSummaryDTO, uint64, error)
	AvailableApprovers(ctx context.Context, query dto.ResolveChainQueryDTO, filter types.Filter) ([]dto.UserShortDTO, uint64, error)
	GetAudit(ctx context.Context, requestType string, filter types.Filter) ([]dto.ApprovalWorkflowAuditDTO, uint64, error)
	CheckApprover(ctx context.Context, approverID uint64) error
}

type ApprovalWorkflowService struct {
	*BaseService
	repo      repositories.ApprovalWorkflowRepositoryInterface
	userRepo  repositories.UserRepositoryInterface
	zoneRepo  repositories.ZoneRepositoryInterface
	depotRepo repositories.DepotRepositoryInterface
	auditRepo repositories.ApprovalWorkflowAuditRepositoryInterface
	txManager repositories.TxManagerInterface
	bus       *eventbus.Bus
	cacheTTL  time.Duration
	logger    *zap.Logger
}

func NewApprovalWorkflowService(
	repo repositories.ApprovalWorkflowRepositoryInterface,
	userRepo repositories.UserRepositoryInterface,
	zoneRepo repositories.ZoneRepositoryInterface,
	depotRepo repositories.DepotRepositoryInterface,
	auditRepo repositories.ApprovalWorkflowAuditRepositoryInterface,
	txManager repositories.TxManagerInterface,
	cache repositories.CacheRepositoryInterface,
	bus *eventbus.Bus,
	cacheTTL time.Duration,
	logger *zap.Logger,
) ApprovalWorkflowServiceInterface {
	return &ApprovalWorkflowService{
		BaseService: NewBaseService(cache, logger),
		repo:        repo,
		userRepo:    userRepo,
		zoneRepo:    zoneRepo,
		depotRepo:   depotRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		bus:         bus,
		cacheTTL:    cacheTTL,
		logger:      logger,
	}
}

// Save заменяет цепочки всех областей, встреченных в entries.
// Строки группируются по области в порядке появления; sequence берётся из позиции в массиве.
func (s *ApprovalWorkflowService) Save(ctx context.Context, entries []dto.ApprovalChainEntryDTO) (*dto.SaveApprovalChainResponseDTO, error) {
	if len(entries) == 0 {
		return nil, apperrors.ErrEmptyChain
	}

	builders, err := groupByScope(entries)
	if err != nil {
		return nil, err
	}

	scopes, err := s.replace(ctx, builders)
	if err != nil {
		return nil, err
	}
	return &dto.SaveApprovalChainResponseDTO{Scopes: scopes}, nil
}

// SaveChain сохраняет цепочку одной области, собранную билдером (отправка черновика).
func (s *ApprovalWorkflowService) SaveChain(ctx context.Context, b *chain.Builder) (*dto.ApprovalChainScopeDTO, error) {
	if err := b.Scope().Validate(); err != nil {
		return nil, err
	}
	if b.Len() == 0 {
		return nil, apperrors.ErrEmptyChain
	}
	scopes, err := s.replace(ctx, []*chain.Builder{b})
	if err != nil {
		return nil, err
	}
	return &scopes[0], nil
}

func groupByScope(entries []dto.ApprovalChainEntryDTO) ([]*chain.Builder, error) {
	var builders []*chain.Builder
	byKey := make(map[string]*chain.Builder)

	for i, e := range entries {
		scope, err := scopeFromIDs(e.RequestType, e.ZoneID, e.DepotID)
		if err != nil {
			return nil, fmt.Errorf("строка %d: %w", i+1, err)
		}
		if e.IsActive != "" && e.IsActive != constants.FlagYes && e.IsActive != constants.FlagNo {
			return nil, apperrors.NewInvalidInputError("строка %d: is_active должен быть 'Y' или 'N'", i+1)
		}

		b, ok := byKey[scope.Key()]
		if !ok {
			b = chain.NewBuilder(scope)
			byKey[scope.Key()] = b
			builders = append(builders, b)
		}
		if err := b.InsertAt(b.Len(), e.ApproverID); err != nil {
			if errors.Is(err, apperrors.ErrDuplicateApprover) {
				return nil, apperrors.NewHttpError(http.StatusConflict,
					fmt.Sprintf("Согласующий %d указан дважды в цепочке %s", e.ApproverID, scope.Key()),
					apperrors.ErrDuplicateApprover, nil)
			}
			return nil, err
		}
		if err := b.SetActive(e.ApproverID, constants.IsActiveFlag(e.IsActive) == constants.FlagYes); err != nil {
			return nil, err
		}
	}
	return builders, nil
}

// replace в одной транзакции проверяет справочники и заменяет цепочки областей.
func (s *ApprovalWorkflowService) replace(ctx context.Context, builders []*chain.Builder) (result []dto.ApprovalChainScopeDTO, err error) {
	defer func() { metrics.RecordChainWrite("save", err) }()

	actorID, err := utils.GetUserIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}

	// Блокировки берутся в порядке ключей, чтобы параллельные сохранения нескольких областей не взаимоблокировались.
	ordered := append([]*chain.Builder(nil), builders...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Scope().Key() < ordered[j].Scope().Key() })

	saved := make(map[string][]entities.ApprovalChainEntry, len(builders))
	err = s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		for _, b := range ordered {
			if err := s.repo.LockScope(ctx, tx, b.Scope()); err != nil {
				return err
			}
		}
		// Справочники проверяются под блокировками в той же транзакции.
		if err := s.checkReferences(ctx, tx, builders); err != nil {
			return err
		}
		for _, b := range ordered {
			scope := b.Scope()
			if _, err := s.repo.DeleteByScope(ctx, tx, scope); err != nil {
				return err
			}
			if err := s.repo.InsertEntries(ctx, tx, b.ToPayload(), actorID); err != nil {
				return err
			}
			entries, err := s.repo.FindByScope(ctx, tx, scope, false)
			if err != nil {
				return err
			}
			saved[scope.Key()] = entries
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Ошибка при сохранении цепочек согласования", zap.Error(err))
		return nil, err
	}

	bumped := make(map[string]bool)
	result = make([]dto.ApprovalChainScopeDTO, 0, len(builders))
	for _, b := range builders {
		scope := b.Scope()
		if !bumped[scope.RequestType] {
			s.bumpGeneration(ctx, scope.RequestType)
			bumped[scope.RequestType] = true
		}
		s.CacheDel(ctx, chainCacheKey(scope))
		s.bus.Publish(ctx, events.ApprovalChainReplacedEvent{
			Scope:       scope,
			ApproverIDs: b.ApproverIDs(),
			ActorID:     actorID,
		})
		s.logger.Info("Цепочка согласования заменена",
			zap.String("scope", scope.Key()),
			zap.Int("approvers", b.Len()),
			zap.Uint64("actor", actorID),
		)
		result = append(result, toScopeDTO(scope, saved[scope.Key()]))
	}
	return result, nil
}

// checkReferences: согласующие активны, зоны и депо существуют, депо относится к зоне.
func (s *ApprovalWorkflowService) checkReferences(ctx context.Context, tx pgx.Tx, builders []*chain.Builder) error {
	var approverIDs []uint64
	seen := make(map[uint64]bool)
	for _, b := range builders {
		for _, id := range b.ApproverIDs() {
			if !seen[id] {
				seen[id] = true
				approverIDs = append(approverIDs, id)
			}
		}
	}

	active, err := s.userRepo.FindActiveByIDs(ctx, tx, approverIDs)
	if err != nil {
		return err
	}
	for _, id := range approverIDs {
		if _, ok := active[id]; !ok {
			return apperrors.NewHttpError(http.StatusBadRequest,
				fmt.Sprintf("Согласующий %d не найден или неактивен", id), apperrors.ErrInactiveApprover, nil)
		}
	}

	checkedZones := make(map[uint64]bool)
	for _, b := range builders {
		scope := b.Scope()
		if scope.ZoneID != nil && !checkedZones[*scope.ZoneID] {
			if _, err := s.zoneRepo.FindByID(ctx, tx, *scope.ZoneID); err != nil {
				if errors.Is(err, apperrors.ErrNotFound) {
					return apperrors.NewBadRequestError(fmt.Sprintf("Зона %d не найдена", *scope.ZoneID))
				}
				return err
			}
			checkedZones[*scope.ZoneID] = true
		}
		if scope.DepotID != nil {
			depot, err := s.depotRepo.FindByID(ctx, tx, *scope.DepotID)
			if err != nil {
				if errors.Is(err, apperrors.ErrNotFound) {
					return apperrors.NewBadRequestError(fmt.Sprintf("Депо %d не найдено", *scope.DepotID))
				}
				return err
			}
			if scope.ZoneID != nil && (depot.ZoneID == nil || *depot.ZoneID != *scope.ZoneID) {
				return apperrors.NewBadRequestError(fmt.Sprintf("Депо %d не относится к зоне %d", *scope.DepotID, *scope.ZoneID))
			}
		}
	}
	return nil
}

// Resolve возвращает цепочку ровно для указанной области, без подстановки глобальной.
func (s *ApprovalWorkflowService) Resolve(ctx context.Context, query dto.ResolveChainQueryDTO) ([]dto.ApprovalChainEntryResponseDTO, error) {
	scope, err := scopeFromIDs(query.RequestType, query.ZoneID, query.DepotID)
	if err != nil {
		return nil, err
	}

	// Поколение читается до похода в БД: запись, закоммиченная позже, сделает наш снимок устаревшим.
	generation, cacheable := s.chainGeneration(ctx, scope.RequestType)
	var cached cachedChain
	hit := cacheable && s.CacheGet(ctx, chainCacheKey(scope), &cached) && cached.Generation == generation
	metrics.RecordCacheLookup(hit)
	if !hit {
		entries, err := s.repo.FindByScope(ctx, nil, scope, false)
		if err != nil {
			s.logger.Error("Ошибка при получении цепочки", zap.String("scope", scope.Key()), zap.Error(err))
			return nil, err
		}
		cached = cachedChain{Generation: generation, Entries: toEntryResponseDTOs(entries)}
		if cacheable {
			s.CacheSet(ctx, chainCacheKey(scope), cached, s.cacheTTL)
		}
	}

	if !query.ActiveOnly {
		return cached.Entries, nil
	}
	active := make([]dto.ApprovalChainEntryResponseDTO, 0, len(cached.Entries))
	for _, e := range cached.Entries {
		if e.IsActive == constants.FlagYes {
			active = append(active, e)
		}
	}
	return active, nil
}

// chainGeneration - текущее поколение кеша типа заявки. false - кешем пользоваться нельзя.
func (s *ApprovalWorkflowService) chainGeneration(ctx context.Context, requestType string) (int64, bool) {
	raw, err := s.cache.Get(ctx, chainGenerationKey(requestType))
	if errors.Is(err, repositories.ErrCacheMiss) {
		return 0, true
	}
	if err != nil {
		s.logger.Warn("Ошибка чтения поколения кеша", zap.String("request_type", requestType), zap.Error(err))
		return 0, false
	}
	generation, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		s.logger.Warn("Повреждённое поколение кеша", zap.String("request_type", requestType), zap.Error(err))
		return 0, false
	}
	return generation, true
}

// bumpGeneration делает недействительными все закешированные области типа заявки.
func (s *ApprovalWorkflowService) bumpGeneration(ctx context.Context, requestType string) {
	if _, err := s.cache.Incr(ctx, chainGenerationKey(requestType)); err != nil {
		s.logger.Warn("Не удалось сменить поколение кеша", zap.String("request_type", requestType), zap.Error(err))
	}
}

func (s *ApprovalWorkflowService) FindScopeEntries(ctx context.Context, scope chain.Scope) ([]entities.ApprovalChainEntry, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	return s.repo.FindByScope(ctx, nil, scope, false)
}

// DeleteByRequestType удаляет все варианты цепочки типа заявки. Повторный вызов - no-op.
func (s *ApprovalWorkflowService) DeleteByRequestType(ctx context.Context, requestType string) (result *dto.DeleteApprovalChainResponseDTO, err error) {
	defer func() { metrics.RecordChainWrite("delete", err) }()

	if err := (chain.Scope{RequestType: requestType}).Validate(); err != nil {
		return nil, err
	}
	actorID, err := utils.GetUserIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}

	var deleted int64
	err = s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		n, err := s.repo.DeleteByRequestType(ctx, tx, requestType)
		deleted = n
		return err
	})
	if err != nil {
		s.logger.Error("Ошибка при удалении цепочек", zap.String("request_type", requestType), zap.Error(err))
		return nil, err
	}

	s.bumpGeneration(ctx, requestType)
	if deleted > 0 {
		s.bus.Publish(ctx, events.ApprovalChainDeletedEvent{RequestType: requestType, Deleted: deleted, ActorID: actorID})
	}
	s.logger.Info("Цепочки согласования удалены", zap.String("request_type", requestType), zap.Int64("deleted", deleted))
	return &dto.DeleteApprovalChainResponseDTO{RequestType: requestType, Deleted: deleted}, nil
}

// UpdateStatus включает или отключает все строки цепочки области.
func (s *ApprovalWorkflowService) UpdateStatus(ctx context.Context, requestType string, statusDTO dto.UpdateChainStatusDTO) (result *dto.UpdateChainStatusResponseDTO, err error) {
	defer func() { metrics.RecordChainWrite("status", err) }()

	scope, err := scopeFromIDs(requestType, statusDTO.ZoneID, statusDTO.DepotID)
	if err != nil {
		return nil, err
	}
	if statusDTO.IsActive != constants.FlagYes && statusDTO.IsActive != constants.FlagNo {
		return nil, apperrors.NewInvalidInputError("is_active должен быть 'Y' или 'N'")
	}
	actorID, err := utils.GetUserIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.SetScopeActive(ctx, nil, scope, statusDTO.IsActive)
	if err != nil {
		s.logger.Error("Ошибка при смене статуса цепочки", zap.String("scope", scope.Key()), zap.Error(err))
		return nil, err
	}
	// Отсутствующая цепочка - no-op: кеш и аудит не трогаем.
	if updated > 0 {
		s.bumpGeneration(ctx, scope.RequestType)
		s.CacheDel(ctx, chainCacheKey(scope))
		s.bus.Publish(ctx, events.ApprovalChainStatusChangedEvent{Scope: scope, IsActive: statusDTO.IsActive, ActorID: actorID})
	}

	return &dto.UpdateChainStatusResponseDTO{
		RequestType: scope.RequestType,
		ZoneID:      statusDTO.ZoneID,
		DepotID:     statusDTO.DepotID,
		IsActive:    statusDTO.IsActive,
		Updated:     updated,
	}, nil
}

func (s *ApprovalWorkflowService) GetSummary(ctx context.Context, filter types.Filter) ([]dto.ApprovalWorkflowSummaryDTO, uint64, error) {
	rows, total, err := s.repo.Summary(ctx, filter)
	if err != nil {
		s.logger.Error("Ошибка при получении сводки цепочек", zap.Error(err))
		return nil, 0, err
	}
	result := make([]dto.ApprovalWorkflowSummaryDTO, len(rows))
	for i, row := range rows {
		result[i] = toSummaryDTO(row)
	}
	return result, total, nil
}

// AvailableApprovers - активные пользователи, ещё не назначенные в цепочку области.
func (s *ApprovalWorkflowService) AvailableApprovers(ctx context.Context, query dto.ResolveChainQueryDTO, filter types.Filter) ([]dto.UserShortDTO, uint64, error) {
	scope, err := scopeFromIDs(query.RequestType, query.ZoneID, query.DepotID)
	if err != nil {
		return nil, 0, err
	}
	entries, err := s.repo.FindByScope(ctx, nil, scope, false)
	if err != nil {
		return nil, 0, err
	}
	assigned := make([]uint64, len(entries))
	for i, e := range entries {
		assigned[i] = e.ApproverID
	}

	users, total, err := s.userRepo.ListActive(ctx, filter, assigned)
	if err != nil {
		return nil, 0, err
	}
	result := make([]dto.UserShortDTO, len(users))
	for i, u := range users {
		result[i] = toUserShortDTO(u)
	}
	return result, total, nil
}

func (s *ApprovalWorkflowService) GetAudit(ctx context.Context, requestType string, filter types.Filter) ([]dto.ApprovalWorkflowAuditDTO, uint64, error) {
	if err := (chain.Scope{RequestType: requestType}).Validate(); err != nil {
		return nil, 0, err
	}
	records, total, err := s.auditRepo.ListByRequestType(ctx, requestType, filter)
	if err != nil {
		return nil, 0, err
	}
	result := make([]dto.ApprovalWorkflowAuditDTO, len(records))
	for i, r := range records {
		result[i] = toAuditDTO(r)
	}
	return result, total, nil
}

// CheckApprover - пользователь существует и активен.
func (s *ApprovalWorkflowService) CheckApprover(ctx context.Context, approverID uint64) error {
	active, err := s.userRepo.FindActiveByIDs(ctx, nil, []uint64{approverID})
	if err != nil {
		return err
	}
	if _, ok := active[approverID]; !ok {
		return apperrors.NewHttpError(http.StatusBadRequest,
			fmt.Sprintf("Согласующий %d не найден или неактивен", approverID), apperrors.ErrInactiveApprover, nil)
	}
	return nil
}
