package dto

import "github.com/aarondl/null/v8"

type UserShortDTO struct {
	ID    uint64      `json:"id"`
	Fio   string      `json:"fio"`
	Email null.String `json:"email"`
}

type ZoneDTO struct {
	ID       uint64 `json:"id"`
	Name     string `json:"name"`
	Code     string `json:"code"`
	IsActive string `json:"is_active"`
}

type DepotDTO struct {
	ID       uint64   `json:"id"`
	Name     string   `json:"name"`
	Code     string   `json:"code"`
	ZoneID   null.Int `json:"zone_id"`
	IsActive string   `json:"is_active"`
}
