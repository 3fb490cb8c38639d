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
	"sfa-workflow/pkg/constants"
	apperrors "sfa-workflow/pkg/errors"
	"sfa-workflow/pkg/types"
)

const (
	userTable  = "users"
	userFields = "id, fio, email, is_active, created_at, updated_at"
)

var userAllowedSortFields = map[string]bool{"id": true, "fio": true, "created_at": true}

type UserRepositoryInterface interface {
	FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.User, error)
	FindActiveByIDs(ctx context.Context, tx pgx.Tx, ids []uint64) (map[uint64]entities.User, error)
	ListActive(ctx context.Context, filter types.Filter, excludeIDs []uint64) ([]entities.User, uint64, error)
}

type UserRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewUserRepository(storage *pgxpool.Pool, logger *zap.Logger) UserRepositoryInterface {
	return &UserRepository{storage: storage, logger: logger}
}

func (r *UserRepository) getQuerier(tx pgx.Tx) Querier {
	if tx != nil {
		return tx
	}
	return r.storage
}

func scanUser(row pgx.Row) (*entities.User, error) {
	var user entities.User
	err := row.Scan(&user.ID, &user.Fio, &user.Email, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.User, error) {
	query, args, err := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Select(userFields).From(userTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки SQL для FindByID: %w", err)
	}
	return scanUser(r.getQuerier(tx).QueryRow(ctx, query, args...))
}

// FindActiveByIDs возвращает найденных активных пользователей; отсутствующих id в карте нет.
func (r *UserRepository) FindActiveByIDs(ctx context.Context, tx pgx.Tx, ids []uint64) (map[uint64]entities.User, error) {
	result := make(map[uint64]entities.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	builder := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Select(userFields).
		From(userTable).
		Where(sq.Eq{"id": ids, "is_active": constants.FlagYes})
	// В транзакции строки держатся до коммита: деактивация подождёт сохранения цепочки.
	if tx != nil {
		builder = builder.Suffix("FOR SHARE")
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки SQL для FindActiveByIDs: %w", err)
	}

	rows, err := r.getQuerier(tx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки пользователей: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result[user.ID] = *user
	}
	return result, rows.Err()
}

// ListActive - активные пользователи, кроме excludeIDs. Поиск по ФИО и email.
func (r *UserRepository) ListActive(ctx context.Context, filter types.Filter, excludeIDs []uint64) ([]entities.User, uint64, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	where := sq.And{sq.Eq{"is_active": constants.FlagYes}}
	if len(excludeIDs) > 0 {
		where = append(where, sq.NotEq{"id": excludeIDs})
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + search + "%"
		where = append(where, sq.Or{sq.ILike{"fio": pattern}, sq.ILike{"email": pattern}})
	}

	countQuery, countArgs, err := psql.Select("COUNT(id)").From(userTable).Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка сборки SQL count: %w", err)
	}
	var total uint64
	if err := r.storage.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ошибка выполнения count: %w", err)
	}
	if total == 0 {
		return []entities.User{}, 0, nil
	}

	selectBuilder := psql.Select(userFields).From(userTable).Where(where)
	sorted := false
	for field, direction := range filter.Sort {
		if userAllowedSortFields[field] {
			safeDirection := "ASC"
			if strings.ToUpper(direction) == "DESC" {
				safeDirection = "DESC"
			}
			selectBuilder = selectBuilder.OrderBy(field + " " + safeDirection)
			sorted = true
		}
	}
	if !sorted {
		selectBuilder = selectBuilder.OrderBy("fio ASC")
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

	users := make([]entities.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *user)
	}
	return users, total, rows.Err()
}
