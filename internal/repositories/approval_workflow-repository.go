package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"sfa-workflow/internal/chain"
	"sfa-workflow/internal/entities"
	"sfa-workflow/pkg/constants"
	apperrors "sfa-workflow/pkg/errors"
	"sfa-workflow/pkg/types"
)

const (
	approvalWorkflowTable  = "approval_workflows"
	approvalWorkflowFields = "aw.id, aw.request_type, aw.sequence, aw.approver_id, aw.zone_id, aw.depot_id, aw.is_active, aw.created_by, aw.created_at, aw.updated_at, u.fio"

	uxScopeApprover = "ux_approval_workflows_scope_approver"
)

// allowedSummarySortFields - белый список сортировки сводки
var allowedSummarySortFields = map[string]string{
	"request_type":    "aw.request_type",
	"no_of_approvers": "no_of_approvers",
	"scope_count":     "scope_count",
	"updated_at":      "updated_at",
}

type ApprovalWorkflowRepositoryInterface interface {
	FindByScope(ctx context.Context, tx pgx.Tx, scope chain.Scope, activeOnly bool) ([]entities.ApprovalChainEntry, error)
	LockScope(ctx context.Context, tx pgx.Tx, scope chain.Scope) error
	DeleteByScope(ctx context.Context, tx pgx.Tx, scope chain.Scope) (int64, error)
	InsertEntries(ctx context.Context, tx pgx.Tx, entries []entities.ApprovalChainEntry, createdBy uint64) error
	DeleteByRequestType(ctx context.Context, tx pgx.Tx, requestType string) (int64, error)
	SetScopeActive(ctx context.Context, tx pgx.Tx, scope chain.Scope, flag string) (int64, error)
	Summary(ctx context.Context, filter types.Filter) ([]entities.ApprovalWorkflowSummary, uint64, error)
}

type approvalWorkflowRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewApprovalWorkflowRepository(storage *pgxpool.Pool, logger *zap.Logger) ApprovalWorkflowRepositoryInterface {
	return &approvalWorkflowRepository{storage: storage, logger: logger}
}

func (r *approvalWorkflowRepository) getQuerier(tx pgx.Tx) Querier {
	if tx != nil {
		return tx
	}
	return r.storage
}

// scopeWhere - точное совпадение области. NULL сравнивается через IS NULL,
// поэтому глобальная цепочка не смешивается с зональными.
func scopeWhere(prefix string, scope chain.Scope) sq.Eq {
	where := sq.Eq{prefix + "request_type": scope.RequestType}
	if scope.ZoneID != nil {
		where[prefix+"zone_id"] = *scope.ZoneID
	} else {
		where[prefix+"zone_id"] = nil
	}
	if scope.DepotID != nil {
		where[prefix+"depot_id"] = *scope.DepotID
	} else {
		where[prefix+"depot_id"] = nil
	}
	return where
}

func (r *approvalWorkflowRepository) FindByScope(ctx context.Context, tx pgx.Tx, scope chain.Scope, activeOnly bool) ([]entities.ApprovalChainEntry, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	builder := psql.Select(approvalWorkflowFields).
		From(approvalWorkflowTable + " aw").
		Join("users u ON u.id = aw.approver_id").
		Where(scopeWhere("aw.", scope)).
		OrderBy("aw.sequence ASC")
	if activeOnly {
		builder = builder.Where(sq.Eq{"aw.is_active": constants.FlagYes})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки SQL для FindByScope: %w", err)
	}

	rows, err := r.getQuerier(tx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки цепочки %s: %w", scope.Key(), err)
	}
	defer rows.Close()

	entries := make([]entities.ApprovalChainEntry, 0)
	for rows.Next() {
		var e entities.ApprovalChainEntry
		if err := rows.Scan(
			&e.ID, &e.RequestType, &e.Sequence, &e.ApproverID, &e.ZoneID, &e.DepotID,
			&e.IsActive, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt, &e.ApproverFio,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования approval_workflows: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// LockScope берёт транзакционную advisory-блокировку на область.
// Параллельные замены одной области выполняются по очереди.
func (r *approvalWorkflowRepository) LockScope(ctx context.Context, tx pgx.Tx, scope chain.Scope) error {
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", scope.Key()); err != nil {
		return fmt.Errorf("не удалось заблокировать область %s: %w", scope.Key(), err)
	}
	return nil
}

func (r *approvalWorkflowRepository) DeleteByScope(ctx context.Context, tx pgx.Tx, scope chain.Scope) (int64, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	query, args, err := psql.Delete(approvalWorkflowTable).Where(scopeWhere("", scope)).ToSql()
	if err != nil {
		return 0, fmt.Errorf("ошибка сборки SQL для DeleteByScope: %w", err)
	}

	result, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("ошибка удаления цепочки %s: %w", scope.Key(), err)
	}
	return result.RowsAffected(), nil
}

// InsertEntries вставляет строки одним INSERT. Пустой список - no-op.
func (r *approvalWorkflowRepository) InsertEntries(ctx context.Context, tx pgx.Tx, entries []entities.ApprovalChainEntry, createdBy uint64) error {
	if len(entries) == 0 {
		return nil
	}

	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	builder := psql.Insert(approvalWorkflowTable).
		Columns("request_type", "sequence", "approver_id", "zone_id", "depot_id", "is_active", "created_by", "created_at", "updated_at")
	for _, e := range entries {
		builder = builder.Values(
			e.RequestType, e.Sequence, e.ApproverID, e.ZoneID, e.DepotID,
			constants.IsActiveFlag(e.IsActive), createdBy, sq.Expr("NOW()"), sq.Expr("NOW()"),
		)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("ошибка сборки SQL для InsertEntries: %w", err)
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				if pgErr.ConstraintName == uxScopeApprover {
					return apperrors.ErrDuplicateApprover
				}
				return fmt.Errorf("цепочка области изменена параллельно: %w", apperrors.ErrConflict)
			case "23503":
				return apperrors.NewHttpError(http.StatusBadRequest, "Согласующий, зона или депо не найдены", err, nil)
			}
		}
		return fmt.Errorf("ошибка вставки approval_workflows: %w", err)
	}
	return nil
}

func (r *approvalWorkflowRepository) DeleteByRequestType(ctx context.Context, tx pgx.Tx, requestType string) (int64, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	query, args, err := psql.Delete(approvalWorkflowTable).Where(sq.Eq{"request_type": requestType}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("ошибка сборки SQL для DeleteByRequestType: %w", err)
	}

	result, err := r.getQuerier(tx).Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("ошибка удаления цепочек %s: %w", requestType, err)
	}
	return result.RowsAffected(), nil
}

func (r *approvalWorkflowRepository) SetScopeActive(ctx context.Context, tx pgx.Tx, scope chain.Scope, flag string) (int64, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	query, args, err := psql.Update(approvalWorkflowTable).
		Set("is_active", flag).
		Set("updated_at", sq.Expr("NOW()")).
		Where(scopeWhere("", scope)).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("ошибка сборки SQL для SetScopeActive: %w", err)
	}

	result, err := r.getQuerier(tx).Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("ошибка обновления статуса цепочки %s: %w", scope.Key(), err)
	}
	return result.RowsAffected(), nil
}

// summaryBase - сгруппированный по request_type запрос с фильтрами сводки.
// Плейсхолдеры остаются "?", нумерацию делает внешний запрос.
func summaryBase(filter types.Filter) sq.SelectBuilder {
	builder := sq.Select(
		"aw.request_type",
		`COALESCE(jsonb_agg(DISTINCT jsonb_build_object('id', z.id, 'name', z.name)) FILTER (WHERE z.id IS NOT NULL), '[]'::jsonb) AS zones`,
		`COALESCE(jsonb_agg(DISTINCT jsonb_build_object('id', d.id, 'name', d.name)) FILTER (WHERE d.id IS NOT NULL), '[]'::jsonb) AS depots`,
		"COUNT(DISTINCT (COALESCE(aw.zone_id, 0), COALESCE(aw.depot_id, 0))) AS scope_count",
		"COUNT(*) AS no_of_approvers",
		"COUNT(*) FILTER (WHERE aw.is_active = 'Y') AS active_count",
		"CASE WHEN bool_or(aw.is_active = 'Y') THEN 'Y' ELSE 'N' END AS is_active",
		"MAX(aw.updated_at) AS updated_at",
	).
		From(approvalWorkflowTable + " aw").
		LeftJoin("zones z ON z.id = aw.zone_id").
		LeftJoin("depots d ON d.id = aw.depot_id").
		GroupBy("aw.request_type")

	if search := strings.TrimSpace(filter.Search); search != "" {
		builder = builder.Where(sq.ILike{"aw.request_type": "%" + search + "%"})
	}

	if value, ok := filter.Filter["is_active"]; ok {
		switch fmt.Sprint(value) {
		case constants.FlagYes:
			builder = builder.Having("bool_or(aw.is_active = 'Y')")
		case constants.FlagNo:
			builder = builder.Having("NOT bool_or(aw.is_active = 'Y')")
		}
	}
	return builder
}

func (r *approvalWorkflowRepository) Summary(ctx context.Context, filter types.Filter) ([]entities.ApprovalWorkflowSummary, uint64, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	countQuery, countArgs, err := psql.Select("COUNT(*)").FromSelect(summaryBase(filter), "s").ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка сборки SQL count: %w", err)
	}

	var total uint64
	if err := r.storage.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ошибка выполнения count: %w", err)
	}
	if total == 0 {
		return []entities.ApprovalWorkflowSummary{}, 0, nil
	}

	selectBuilder := summaryBase(filter).PlaceholderFormat(sq.Dollar)
	sorted := false
	for field, direction := range filter.Sort {
		if column, ok := allowedSummarySortFields[field]; ok {
			safeDirection := "ASC"
			if strings.ToUpper(direction) == "DESC" {
				safeDirection = "DESC"
			}
			selectBuilder = selectBuilder.OrderBy(column + " " + safeDirection)
			sorted = true
		}
	}
	if !sorted {
		selectBuilder = selectBuilder.OrderBy("aw.request_type ASC")
	}

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

	result := make([]entities.ApprovalWorkflowSummary, 0)
	for rows.Next() {
		var s entities.ApprovalWorkflowSummary
		var zonesRaw, depotsRaw []byte
		if err := rows.Scan(
			&s.RequestType, &zonesRaw, &depotsRaw, &s.ScopeCount,
			&s.NoOfApprovers, &s.ActiveCount, &s.IsActive, &s.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("ошибка сканирования сводки: %w", err)
		}
		if err := json.Unmarshal(zonesRaw, &s.Zones); err != nil {
			return nil, 0, fmt.Errorf("некорректный список зон: %w", err)
		}
		if err := json.Unmarshal(depotsRaw, &s.Depots); err != nil {
			return nil, 0, fmt.Errorf("некорректный список депо: %w", err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return result, total, nil
}
