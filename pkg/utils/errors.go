package utils

import (
	"net/http"

	apperrors "sfa-workflow/pkg/errors"
)

// ErrorList - соответствие известных ошибок HTTP-кодам.
// Порядок важен: проверяется первое совпадение через errors.Is.
var ErrorList = []struct {
	Err  error
	Code int
}{
	{apperrors.ErrNotFound, http.StatusNotFound},
	{apperrors.ErrDraftNotFound, http.StatusNotFound},
	{apperrors.ErrApproverNotInChain, http.StatusNotFound},
	{apperrors.ErrConflict, http.StatusConflict},
	{apperrors.ErrDuplicateApprover, http.StatusConflict},
	{apperrors.ErrEmptyChain, http.StatusBadRequest},
	{apperrors.ErrRequestTypeRequired, http.StatusBadRequest},
	{apperrors.ErrInactiveApprover, http.StatusBadRequest},
	{apperrors.ErrPositionOutOfRange, http.StatusBadRequest},
	{apperrors.ErrBadRequest, http.StatusBadRequest},
	{apperrors.ErrForbidden, http.StatusForbidden},
	{apperrors.ErrUnauthorized, http.StatusUnauthorized},
	{apperrors.ErrEmptyAuthHeader, http.StatusUnauthorized},
	{apperrors.ErrInvalidAuthHeader, http.StatusUnauthorized},
	{apperrors.ErrInvalidToken, http.StatusUnauthorized},
	{apperrors.ErrTokenExpired, http.StatusUnauthorized},
	{apperrors.ErrInvalidSigningMethod, http.StatusUnauthorized},
	{apperrors.ErrUserIDNotFoundInContext, http.StatusUnauthorized},
}
