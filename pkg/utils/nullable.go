package utils

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/aarondl/null/v8"

	apperrors "sfa-workflow/pkg/errors"
)

// NullIntToIDPtr переводит null.Int в *uint64. Неположительный id - ошибка ввода.
func NullIntToIDPtr(n null.Int, field string) (*uint64, error) {
	if !n.Valid {
		return nil, nil
	}
	if n.Int <= 0 {
		return nil, apperrors.NewInvalidInputError("поле %s должно быть положительным числом", field)
	}
	v := uint64(n.Int)
	return &v, nil
}

func IDPtrToNullInt(id *uint64) null.Int {
	if id == nil {
		return null.Int{}
	}
	return null.IntFrom(int(*id))
}

// ParseOptionalID читает необязательный id из query. Пустое значение и "null" - отсутствие.
func ParseOptionalID(values url.Values, key string) (null.Int, error) {
	raw := values.Get(key)
	if raw == "" || raw == "null" {
		return null.Int{}, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return null.Int{}, apperrors.NewBadRequestError(fmt.Sprintf("Некорректный параметр %s", key))
	}
	return null.IntFrom(v), nil
}
