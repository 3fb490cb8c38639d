package dto

import (
	"github.com/aarondl/null/v8"
)

// ApprovalChainEntryDTO - одна строка в запросе на сохранение цепочки.
// sequence можно не присылать: он вычисляется из порядка в массиве.
type ApprovalChainEntryDTO struct {
	RequestType string   `json:"request_type" validate:"required,request_type"`
	Sequence    int      `json:"sequence" validate:"omitempty,min=1"`
	ApproverID  uint64   `json:"approver_id" validate:"required"`
	ZoneID      null.Int `json:"zone_id"`
	DepotID     null.Int `json:"depot_id"`
	IsActive    string   `json:"is_active" validate:"yn"`
}

// SaveApprovalChainDTO - тело POST /approval-workflows.
type SaveApprovalChainDTO struct {
	Entries []ApprovalChainEntryDTO `json:"entries" validate:"dive"`
}

// ResolveChainQueryDTO - параметры запроса цепочки конкретной области.
// Заполняется контроллером из query-строки.
type ResolveChainQueryDTO struct {
	RequestType string `validate:"required,request_type"`
	ZoneID      null.Int
	DepotID     null.Int
	ActiveOnly  bool
}

// UpdateChainStatusDTO - PATCH /approval-workflows/:request_type/status.
type UpdateChainStatusDTO struct {
	ZoneID   null.Int `json:"zone_id"`
	DepotID  null.Int `json:"depot_id"`
	IsActive string   `json:"is_active" validate:"required,yn"`
}

type ApprovalChainEntryResponseDTO struct {
	ID          uint64   `json:"id"`
	RequestType string   `json:"request_type"`
	Sequence    int      `json:"sequence"`
	ApproverID  uint64   `json:"approver_id"`
	ApproverFio string   `json:"approver_fio,omitempty"`
	ZoneID      null.Int `json:"zone_id"`
	DepotID     null.Int `json:"depot_id"`
	IsActive    string   `json:"is_active"`
	CreatedAt   string   `json:"created_at,omitempty"`
	UpdatedAt   string   `json:"updated_at,omitempty"`
}

type SaveApprovalChainResponseDTO struct {
	Scopes []ApprovalChainScopeDTO `json:"scopes"`
}

// ApprovalChainScopeDTO - сохранённая цепочка одной области.
type ApprovalChainScopeDTO struct {
	RequestType string                          `json:"request_type"`
	ZoneID      null.Int                        `json:"zone_id"`
	DepotID     null.Int                        `json:"depot_id"`
	Entries     []ApprovalChainEntryResponseDTO `json:"entries"`
}

type DeleteApprovalChainResponseDTO struct {
	RequestType string `json:"request_type"`
	Deleted     int64  `json:"deleted"`
}

type UpdateChainStatusResponseDTO struct {
	RequestType string   `json:"request_type"`
	ZoneID      null.Int `json:"zone_id"`
	DepotID     null.Int `json:"depot_id"`
	IsActive    string   `json:"is_active"`
	Updated     int64    `json:"updated"`
}

// ApprovalWorkflowSummaryDTO - строка списка настроенных процессов.
type ApprovalWorkflowSummaryDTO struct {
	RequestType   string          `json:"request_type"`
	Zones         []ShortScopeDTO `json:"zones"`
	Depots        []ShortScopeDTO `json:"depots"`
	ScopeCount    int             `json:"scope_count"`
	NoOfApprovers int             `json:"no_of_approvers"`
	ActiveCount   int             `json:"active_count"`
	IsActive      string          `json:"is_active"`
	UpdatedAt     string          `json:"updated_at,omitempty"`
}

type ShortScopeDTO struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

type ApprovalWorkflowAuditDTO struct {
	ID          uint64   `json:"id"`
	RequestType string   `json:"request_type"`
	ZoneID      null.Int `json:"zone_id"`
	DepotID     null.Int `json:"depot_id"`
	Action      string   `json:"action"`
	PerformedBy null.Int `json:"performed_by"`
	ApproverIDs []uint64 `json:"approver_ids"`
	CreatedAt   string   `json:"created_at"`
}
