// Файл: pkg/customvalidator/validators.go

package customvalidator

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var requestTypeRe = regexp.MustCompile(`^[A-Z][A-Z0-9_]{1,63}$`)

// RegisterCustomValidations регистрирует кастомные правила валидации
// в переданном экземпляре валидатора.
func RegisterCustomValidations(v *validator.Validate) error {
	if err := v.RegisterValidation("request_type", isRequestType); err != nil {
		return err
	}
	if err := v.RegisterValidation("yn", isYesNoFlag); err != nil {
		return err
	}
	return nil
}

// isRequestType - тег процесса в формате UPPER_SNAKE_CASE, например ORDER_APPROVAL.
func isRequestType(fl validator.FieldLevel) bool {
	return requestTypeRe.MatchString(fl.Field().String())
}

// isYesNoFlag - флаг 'Y'/'N'. Пустое значение допускается, по умолчанию подставляется 'Y'.
func isYesNoFlag(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "", "Y", "N":
		return true
	}
	return false
}
