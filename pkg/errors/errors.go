package errors

import (
	"fmt"
	"net/http"
)

var (
	// JWT и токены
	ErrInvalidSigningMethod = fmt.Errorf("неверный метод подписи токена")
	ErrInvalidToken         = fmt.Errorf("недопустимый токен")
	ErrTokenExpired         = fmt.Errorf("срок действия токена истёк")

	// Авторизация
	ErrEmptyAuthHeader   = fmt.Errorf("заголовок авторизации отсутствует")
	ErrInvalidAuthHeader = fmt.Errorf("неверный формат заголовка авторизации")
	ErrUnauthorized      = fmt.Errorf("неавторизован")
	ErrForbidden         = fmt.Errorf("доступ запрещён")

	// Контекст
	ErrUserIDNotFoundInContext = fmt.Errorf("UserID не найден в контексте запроса")

	// Общие
	ErrNotFound   = fmt.Errorf("запись не найдена")
	ErrBadRequest = fmt.Errorf("неверный запрос")
	ErrConflict   = fmt.Errorf("конфликт данных")

	// Цепочки согласования
	ErrEmptyChain          = fmt.Errorf("цепочка согласования должна содержать хотя бы одного согласующего")
	ErrRequestTypeRequired = fmt.Errorf("не указан тип заявки (request_type)")
	ErrDuplicateApprover   = fmt.Errorf("согласующий уже присутствует в цепочке")
	ErrInactiveApprover    = fmt.Errorf("согласующий не найден или неактивен")
	ErrDraftNotFound       = fmt.Errorf("черновик цепочки не найден или истёк")
	ErrApproverNotInChain  = fmt.Errorf("согласующий отсутствует в цепочке")
	ErrPositionOutOfRange  = fmt.Errorf("позиция вне диапазона цепочки")
)

// HttpError - ошибка с HTTP-кодом и сообщением для клиента.
// Err - исходная причина, попадает только в лог.
type HttpError struct {
	Code    int
	Message string
	Err     error
	Context map[string]interface{}
	Details interface{}
}

func (e *HttpError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *HttpError) Unwrap() error { return e.Err }

func NewHttpError(code int, message string, err error, context map[string]interface{}) *HttpError {
	return &HttpError{Code: code, Message: message, Err: err, Context: context}
}

func NewBadRequestError(message string) *HttpError {
	return &HttpError{Code: http.StatusBadRequest, Message: message}
}

// NewValidationError - ошибка валидации, причина оборачивается для errors.Is.
func NewValidationError(message string, cause error) *HttpError {
	return &HttpError{Code: http.StatusBadRequest, Message: message, Err: cause}
}

// Кастомные типы ошибок
type InvalidInputError struct {
	Message string
}

func (e *InvalidInputError) Error() string { return e.Message }

func NewInvalidInputError(format string, args ...interface{}) error {
	return &InvalidInputError{Message: fmt.Sprintf(format, args...)}
}
