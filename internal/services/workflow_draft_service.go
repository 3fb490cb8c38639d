package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sfa-workflow/internal/chain"
	"sfa-workflow/internal/dto"
	"sfa-workflow/internal/repositories"
	"sfa-workflow/pkg/constants"
	apperrors "sfa-workflow/pkg/errors"
	"sfa-workflow/pkg/utils"
)

const draftKeyPrefix = "workflow_draft:"

type WorkflowDraftServiceInterface interface {
	Create(ctx context.Context, createDTO dto.CreateDraftDTO) (*dto.DraftResponseDTO, error)
	Get(ctx context.Context, id string) (*dto.DraftResponseDTO, error)
	InsertApprover(ctx context.Context, id string, insertDTO dto.InsertDraftApproverDTO) (*dto.DraftResponseDTO, error)
	RemoveApprover(ctx context.Context, id string, approverID uint64) (*dto.DraftResponseDTO, error)
	Reorder(ctx context.Context, id string, reorderDTO dto.ReorderDraftDTO) (*dto.DraftResponseDTO, error)
	Submit(ctx context.Context, id string) (*dto.ApprovalChainScopeDTO, error)
	Discard(ctx context.Context, id string) error
}

// draftRecord - то, что лежит в Redis под ключом черновика.
type draftRecord struct {
	State     chain.State `json:"state"`
	CreatedBy uint64      `json:"created_by"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// WorkflowDraftService - серверные сессии редактирования цепочки.
// Каждое изменение перезаписывает черновик и продлевает его TTL.
type WorkflowDraftService struct {
	cache    repositories.CacheRepositoryInterface
	service  ApprovalWorkflowServiceInterface
	userRepo repositories.UserRepositoryInterface
	ttl      time.Duration
	logger   *zap.Logger
}

func NewWorkflowDraftService(
	cache repositories.CacheRepositoryInterface,
	service ApprovalWorkflowServiceInterface,
	userRepo repositories.UserRepositoryInterface,
	ttl time.Duration,
	logger *zap.Logger,
) WorkflowDraftServiceInterface {
	return &WorkflowDraftService{
		cache:    cache,
		service:  service,
		userRepo: userRepo,
		ttl:      ttl,
		logger:   logger,
	}
}

func draftKey(id string) string { return draftKeyPrefix + id }

func (s *WorkflowDraftService) Create(ctx context.Context, createDTO dto.CreateDraftDTO) (*dto.DraftResponseDTO, error) {
	actorID, err := utils.GetUserIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	scope, err := scopeFromIDs(createDTO.RequestType, createDTO.ZoneID, createDTO.DepotID)
	if err != nil {
		return nil, err
	}

	b := chain.NewBuilder(scope)
	if createDTO.LoadExisting {
		entries, err := s.service.FindScopeEntries(ctx, scope)
		if err != nil {
			return nil, err
		}
		if b, err = chain.FromEntries(scope, entries); err != nil {
			return nil, err
		}
	}

	id := uuid.NewString()
	record := &draftRecord{State: b.State(), CreatedBy: actorID}
	if err := s.store(ctx, id, record); err != nil {
		return nil, err
	}
	s.logger.Info("Создан черновик цепочки", zap.String("draft_id", id), zap.String("scope", scope.Key()))
	return s.toResponse(ctx, id, record)
}

func (s *WorkflowDraftService) Get(ctx context.Context, id string) (*dto.DraftResponseDTO, error) {
	record, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toResponse(ctx, id, record)
}

// InsertApprover вставляет согласующего на позицию (0-based); без позиции - в конец.
func (s *WorkflowDraftService) InsertApprover(ctx context.Context, id string, insertDTO dto.InsertDraftApproverDTO) (*dto.DraftResponseDTO, error) {
	if err := s.service.CheckApprover(ctx, insertDTO.ApproverID); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(b *chain.Builder) error {
		position := b.Len()
		if insertDTO.Position.Valid {
			position = insertDTO.Position.Int
		}
		return b.InsertAt(position, insertDTO.ApproverID)
	})
}

func (s *WorkflowDraftService) RemoveApprover(ctx context.Context, id string, approverID uint64) (*dto.DraftResponseDTO, error) {
	return s.mutate(ctx, id, func(b *chain.Builder) error {
		return b.Remove(approverID)
	})
}

func (s *WorkflowDraftService) Reorder(ctx context.Context, id string, reorderDTO dto.ReorderDraftDTO) (*dto.DraftResponseDTO, error) {
	return s.mutate(ctx, id, func(b *chain.Builder) error {
		return b.Reorder(reorderDTO.From, reorderDTO.To)
	})
}

// Submit сохраняет цепочку черновика через сервис цепочек и удаляет черновик.
func (s *WorkflowDraftService) Submit(ctx context.Context, id string) (*dto.ApprovalChainScopeDTO, error) {
	record, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	b, err := chain.Restore(record.State)
	if err != nil {
		return nil, err
	}

	saved, err := s.service.SaveChain(ctx, b)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Del(ctx, draftKey(id)); err != nil {
		s.logger.Warn("Не удалось удалить отправленный черновик", zap.String("draft_id", id), zap.Error(err))
	}
	return saved, nil
}

func (s *WorkflowDraftService) Discard(ctx context.Context, id string) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	return s.cache.Del(ctx, draftKey(id))
}

func (s *WorkflowDraftService) mutate(ctx context.Context, id string, fn func(b *chain.Builder) error) (*dto.DraftResponseDTO, error) {
	record, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	b, err := chain.Restore(record.State)
	if err != nil {
		return nil, err
	}
	if err := fn(b); err != nil {
		return nil, err
	}
	record.State = b.State()
	if err := s.store(ctx, id, record); err != nil {
		return nil, err
	}
	return s.toResponse(ctx, id, record)
}

// load отдаёт черновик только его автору; чужой черновик неотличим от отсутствующего.
func (s *WorkflowDraftService) load(ctx context.Context, id string) (*draftRecord, error) {
	actorID, err := utils.GetUserIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.ErrDraftNotFound
	}
	raw, err := s.cache.Get(ctx, draftKey(id))
	if err != nil {
		if errors.Is(err, repositories.ErrCacheMiss) {
			return nil, apperrors.ErrDraftNotFound
		}
		return nil, fmt.Errorf("ошибка чтения черновика %s: %w", id, err)
	}
	var record draftRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, fmt.Errorf("повреждённый черновик %s: %w", id, err)
	}
	if record.CreatedBy != actorID {
		return nil, apperrors.ErrDraftNotFound
	}
	return &record, nil
}

func (s *WorkflowDraftService) store(ctx context.Context, id string, record *draftRecord) error {
	record.ExpiresAt = time.Now().Add(s.ttl)
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("ошибка сериализации черновика: %w", err)
	}
	if err := s.cache.Set(ctx, draftKey(id), raw, s.ttl); err != nil {
		return fmt.Errorf("ошибка сохранения черновика %s: %w", id, err)
	}
	return nil
}

func (s *WorkflowDraftService) toResponse(ctx context.Context, id string, record *draftRecord) (*dto.DraftResponseDTO, error) {
	ids := make([]uint64, len(record.State.Approvers))
	for i, a := range record.State.Approvers {
		ids[i] = a.ApproverID
	}
	users, err := s.userRepo.FindActiveByIDs(ctx, nil, ids)
	if err != nil {
		return nil, err
	}

	approvers := make([]dto.DraftApproverDTO, len(record.State.Approvers))
	for i, a := range record.State.Approvers {
		approvers[i] = dto.DraftApproverDTO{
			Sequence:    i + 1,
			ApproverID:  a.ApproverID,
			ApproverFio: users[a.ApproverID].Fio,
			IsActive:    constants.BoolToFlag(a.IsActive),
		}
	}

	scope := record.State.Scope
	return &dto.DraftResponseDTO{
		ID:          id,
		RequestType: scope.RequestType,
		ZoneID:      utils.IDPtrToNullInt(scope.ZoneID),
		DepotID:     utils.IDPtrToNullInt(scope.DepotID),
		Approvers:   approvers,
		ExpiresAt:   record.ExpiresAt.Format(time.RFC3339),
	}, nil
}
