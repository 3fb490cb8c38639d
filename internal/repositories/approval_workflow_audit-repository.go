package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"sfa-workflow/internal/entities"
	"sfa-workflow/pkg/types"
)

const (
	auditTable  = "approval_workflow_audit"
	auditFields = "id, request_type, zone_id, depot_id, action, performed_by, approver_ids, created_at"
)

type ApprovalWorkflowAuditRepositoryInterface interface {
	Create(ctx context.Context, tx pgx.Tx, audit entities.ApprovalWorkflowAudit) error
	ListByRequestType(ctx context.Context, requestType string, filter types.Filter) ([]entities.ApprovalWorkflowAudit, uint64, error)
}

type approvalWorkflowAuditRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewApprovalWorkflowAuditRepository(storage *pgxpool.Pool, logger *zap.Logger) ApprovalWorkflowAuditRepositoryInterface {
	return &approvalWorkflowAuditRepository{storage: storage, logger: logger}
}

func (r *approvalWorkflowAuditRepository) getQuerier(tx pgx.Tx) Querier {
	if tx != nil {
		return tx
	}
	return r.storage
}

func (r *approvalWorkflowAuditRepository) Create(ctx context.Context, tx pgx.Tx, audit entities.ApprovalWorkflowAudit) error {
	ids := audit.ApproverIDs
	if ids == nil {
		ids = []uint64{}
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("ошибка сериализации approver_ids: %w", err)
	}

	query, args, err := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Insert(auditTable).
		Columns("request_type", "zone_id", "depot_id", "action", "performed_by", "approver_ids", "created_at").
		Values(audit.RequestType, audit.ZoneID, audit.DepotID, audit.Action, audit.PerformedBy, string(raw), sq.Expr("NOW()")).
		ToSql()
	if err != nil {
		return fmt.Errorf("ошибка сборки SQL для Create: %w", err)
	}

	if _, err := r.getQuerier(tx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("ошибка записи журнала цепочек: %w", err)
	}
	return nil
}

func (r *approvalWorkflowAuditRepository) ListByRequestType(ctx context.Context, requestType string, filter types.Filter) ([]entities.ApprovalWorkflowAudit, uint64, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	where := sq.Eq{"request_type": requestType}

	countQuery, countArgs, err := psql.Select("COUNT(id)").From(auditTable).Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка сборки SQL count: %w", err)
	}
	var total uint64
	if err := r.storage.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ошибка выполнения count: %w", err)
	}
	if total == 0 {
		return []entities.ApprovalWorkflowAudit{}, 0, nil
	}

	selectBuilder := psql.Select(auditFields).From(auditTable).Where(where).OrderBy("created_at DESC", "id DESC")
	if filter.WithPagination {
		if filter.Limit > 0 {
			selectBuilder = selectBuilder.Limit(uint64(filter.Limit))
		}
		if filter.Offset > 0 {
			selectBuilder = selectBuilder.Offset(uint64(filter.Offset))
		}
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка сборки SQL select: %w", err)
	}
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка выполнения select: %w", err)
	}
	defer rows.Close()

	result := make([]entities.ApprovalWorkflowAudit, 0)
	for rows.Next() {
		var a entities.ApprovalWorkflowAudit
		var idsRaw []byte
		if err := rows.Scan(&a.ID, &a.RequestType, &a.ZoneID, &a.DepotID, &a.Action, &a.PerformedBy, &idsRaw, &a.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("ошибка сканирования журнала: %w", err)
		}
		if err := json.Unmarshal(idsRaw, &a.ApproverIDs); err != nil {
			return nil, 0, fmt.Errorf("некорректный approver_ids: %w", err)
		}
		result = append(result, a)
	}
	return result, total, rows.Err()
}
