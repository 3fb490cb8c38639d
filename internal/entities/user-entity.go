// Файл: internal/entities/user_entity.go
package entities

import "sfa-workflow/pkg/types"

// User - пользователь из справочника, кандидат в согласующие.
type User struct {
	ID       uint64  `json:"id" db:"id"`
	Fio      string  `json:"fio" db:"fio"`
	Email    *string `json:"email" db:"email"`
	IsActive string  `json:"is_active" db:"is_active"`

	types.BaseEntity
}
