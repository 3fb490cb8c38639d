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
	zoneTable  = "zones"
	zoneFields = "id, name, code, is_active, created_at, updated_at"
)

var allowedZoneFilters = map[string]string{
	"is_active": "is_active",
	"code":      "code",
}

type ZoneRepositoryInterface interface {
	FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Zone, error)
	GetAll(ctx context.Context, filter types.Filter) ([]entities.Zone, uint64, error)
}

type zoneRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewZoneRepository(storage *pgxpool.Pool, logger *zap.Logger) ZoneRepositoryInterface {
	return &zoneRepository{storage: storage, logger: logger}
}

func (r *zoneRepository) getQuerier(tx pgx.Tx) Querier {
	if tx != nil {
		return tx
	}
	return r.storage
}

func scanZone(row pgx.Row) (*entities.Zone, error) {
	var z entities.Zone
	if err := row.Scan(&z.ID, &z.Name, &z.Code, &z.IsActive, &z.CreatedAt, &z.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка сканирования zones: %w", err)
	}
	return &z, nil
}

func (r *zoneRepository) FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Zone, error) {
	query, args, err := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Select(zoneFields).From(zoneTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки SQL для FindByID: %w", err)
	}
	return scanZone(r.getQuerier(tx).QueryRow(ctx, query, args...))
}

func (r *zoneRepository) GetAll(ctx context.Context, filter types.Filter) ([]entities.Zone, uint64, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	where := sq.And{}
	if search := strings.TrimSpace(filter.Search); search != "" {
		where = append(where, sq.ILike{"name": "%" + search + "%"})
	}
	for key, value := range filter.Filter {
		if column, ok := allowedZoneFilters[key]; ok {
			where = append(where, sq.Eq{column: value})
		}
	}

	countQuery, countArgs, err := psql.Select("COUNT(id)").From(zoneTable).Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка сборки SQL count: %w", err)
	}
	var total uint64
	if err := r.storage.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ошибка выполнения count: %w", err)
	}
	if total == 0 {
		return []entities.Zone{}, 0, nil
	}

	selectBuilder := psql.Select(zoneFields).From(zoneTable).Where(where).OrderBy("name ASC")
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

	zones := make([]entities.Zone, 0)
	for rows.Next() {
		z, err := scanZone(rows)
		if err != nil {
			return nil, 0, err
		}
		zones = append(zones, *z)
	}
	return zones, total, rows.Err()
}
