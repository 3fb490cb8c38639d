package dto

import "github.com/aarondl/null/v8"

type CreateDraftDTO struct {
	RequestType  string   `json:"request_type" validate:"required,request_type"`
	ZoneID       null.Int `json:"zone_id"`
	DepotID      null.Int `json:"depot_id"`
	LoadExisting bool     `json:"load_existing"`
}

// InsertDraftApproverDTO - position 0-based; если не указан, согласующий добавляется в конец.
type InsertDraftApproverDTO struct {
	ApproverID uint64   `json:"approver_id" validate:"required"`
	Position   null.Int `json:"position"`
}

type ReorderDraftDTO struct {
	From int `json:"from" validate:"min=0"`
	To   int `json:"to" validate:"min=0"`
}

type DraftApproverDTO struct {
	Sequence    int    `json:"sequence"`
	ApproverID  uint64 `json:"approver_id"`
	ApproverFio string `json:"approver_fio,omitempty"`
	IsActive    string `json:"is_active"`
}

type DraftResponseDTO struct {
	ID          string             `json:"id"`
	RequestType string             `json:"request_type"`
	ZoneID      null.Int           `json:"zone_id"`
	DepotID     null.Int           `json:"depot_id"`
	Approvers   []DraftApproverDTO `json:"approvers"`
	ExpiresAt   string             `json:"expires_at"`
}
