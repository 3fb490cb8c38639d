package listeners

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"sfa-workflow/internal/entities"
	"sfa-workflow/internal/events"
	"sfa-workflow/internal/repositories"
	"sfa-workflow/pkg/constants"
	"sfa-workflow/pkg/eventbus"
)

// AuditListener пишет изменения цепочек согласования в approval_workflow_audit.
type AuditListener struct {
	auditRepo repositories.ApprovalWorkflowAuditRepositoryInterface
	logger    *zap.Logger
}

func NewAuditListener(auditRepo repositories.ApprovalWorkflowAuditRepositoryInterface, logger *zap.Logger) *AuditListener {
	return &AuditListener{auditRepo: auditRepo, logger: logger}
}

func (l *AuditListener) Register(bus *eventbus.Bus) {
	bus.Subscribe(events.ApprovalChainReplaced, l.handle)
	bus.Subscribe(events.ApprovalChainDeleted, l.handle)
	bus.Subscribe(events.ApprovalChainStatusChanged, l.handle)
	l.logger.Info("AuditListener подписан на события цепочек согласования")
}

func (l *AuditListener) handle(ctx context.Context, event eventbus.Event) error {
	record, err := toAudit(event)
	if err != nil {
		return err
	}
	if err := l.auditRepo.Create(ctx, nil, record); err != nil {
		return err
	}
	l.logger.Debug("Записан журнал цепочки",
		zap.String("request_type", record.RequestType),
		zap.String("action", record.Action),
	)
	return nil
}

func toAudit(event eventbus.Event) (entities.ApprovalWorkflowAudit, error) {
	switch e := event.(type) {
	case events.ApprovalChainReplacedEvent:
		return entities.ApprovalWorkflowAudit{
			RequestType: e.Scope.RequestType,
			ZoneID:      e.Scope.ZoneID,
			DepotID:     e.Scope.DepotID,
			Action:      string(constants.AuditChainReplaced),
			PerformedBy: actorPtr(e.ActorID),
			ApproverIDs: e.ApproverIDs,
		}, nil
	case events.ApprovalChainDeletedEvent:
		return entities.ApprovalWorkflowAudit{
			RequestType: e.RequestType,
			Action:      string(constants.AuditChainDeleted),
			PerformedBy: actorPtr(e.ActorID),
		}, nil
	case events.ApprovalChainStatusChangedEvent:
		return entities.ApprovalWorkflowAudit{
			RequestType: e.Scope.RequestType,
			ZoneID:      e.Scope.ZoneID,
			DepotID:     e.Scope.DepotID,
			Action:      string(constants.AuditChainStatusChange) + ":" + e.IsActive,
			PerformedBy: actorPtr(e.ActorID),
		}, nil
	default:
		return entities.ApprovalWorkflowAudit{}, fmt.Errorf("неожиданное событие %s", event.Name())
	}
}

func actorPtr(id uint64) *uint64 {
	if id == 0 {
		return nil
	}
	return &id
}
