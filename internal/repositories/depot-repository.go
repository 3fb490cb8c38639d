package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"sfa-workflow/internal/entities"
	apperrors "sfa-workflow/pkg/errors"
	"sfa-workflow/pkg/types"
)

const (
	depotTable  = "depots"
	depotFields = "id, name, code, zone_id, is_active, created_at, updated_at"
)

var allowedDepotFilters = map[string]string{
	"zone_id":   "zone_id",
	"is_active": "is_active",
	"code":      "code",
}

type DepotRepositoryInterface interface {
	FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Depot, error)
	GetAll(ctx context.Context, filter types.Filter) ([]entities.Depot, uint64, error)
}

type depotRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewDepotRepository(storage *pgxpool.Pool, logger *zap.Logger) DepotRepositoryInterface {
	return &depotRepository{storage: storage, logger: logger}
}

func (r *depotRepository) getQuerier(tx pgx.Tx) Querier {
	if tx != nil {
		return tx
	}
	return r.storage
}

func scanDepot(row pgx.Row) (*entities.Depot, error) {
	var d entities.Depot
	if err := row.Scan(&d.ID, &d.Name, &d.Code, &d.ZoneID, &d.IsActive, &d.CreatedAt, &d.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка сканирования depots: %w", err)
	}
	return &d, nil
}

func (r *depotRepository) FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Depot, error) {
	query, args, err := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Select(depotFields).From(depotTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки SQL для FindByID: %w", err)
	}
	return scanDepot(r.getQuerier(tx).QueryRow(ctx, query, args...))
}

func (r *depotRepository) GetAll(ctx context.Context, filter types.Filter) ([]entities.Depot, uint64, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	where := sq.And{}
	if search := strings.TrimSpace(filter.Search); search != "" {
		where = append(where, sq.ILike{"name": "%" + search + "%"})
	}
	for key, value := range filter.Filter {
		column, ok := allowedDepotFilters[key]
		if !ok {
			continue
		}
		if items, ok := value.(string); ok && strings.Contains(items, ",") {
			where = append(where, sq.Eq{column: strings.Split(items, ",")})
		} else {
			where = append(where, sq.Eq{column: value})
		}
	}

	countQuery, countArgs, err := psql.Select("COUNT(id)").From(depotTable).Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка сборки SQL count: %w", err)
	}
	var total uint64
	if err := r.storage.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ошибка выполнения count: %w", err)
	}
	if total == 0 {
		return []entities.Depot{}, 0, nil
	}

	selectBuilder := psql.Select(depotFields).From(depotTable).Where(where).OrderBy("name ASC")
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

	depots := make([]entities.Depot, 0)
	for rows.Next() {
		d, err := scanDepot(rows)
		if err != nil {
			return nil, 0, err
		}
		depots = append(depots, *d)
	}
	return depots, total, rows.Err()
}
