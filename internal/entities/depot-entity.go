package entities

import "sfa-workflow/pkg/types"

type Depot struct {
	ID       uint64  `json:"id" db:"id"`
	Name     string  `json:"name" db:"name"`
	Code     string  `json:"code" db:"code"`
	ZoneID   *uint64 `json:"zone_id" db:"zone_id"`
	IsActive string  `json:"is_active" db:"is_active"`

	types.BaseEntity
}
