package entities

import "sfa-workflow/pkg/types"

type Zone struct {
	ID       uint64 `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	Code     string `json:"code" db:"code"`
	IsActive string `json:"is_active" db:"is_active"`

	types.BaseEntity
}
