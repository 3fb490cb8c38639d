package entities

import "sfa-workflow/pkg/types"

// ApprovalChainEntry - позиция одного согласующего в цепочке одной области
// (request_type, zone_id, depot_id). NULL зоны/депо означает "для всех".
type ApprovalChainEntry struct {
	ID          uint64  `json:"id" db:"id"`
	RequestType string  `json:"request_type" db:"request_type"`
	Sequence    int     `json:"sequence" db:"sequence"`
	ApproverID  uint64  `json:"approver_id" db:"approver_id"`
	ZoneID      *uint64 `json:"zone_id" db:"zone_id"`
	DepotID     *uint64 `json:"depot_id" db:"depot_id"`
	IsActive    string  `json:"is_active" db:"is_active"`
	CreatedBy   *uint64 `json:"created_by,omitempty" db:"created_by"`

	// Заполняется при чтении через JOIN users
	ApproverFio string `json:"approver_fio,omitempty" db:"approver_fio"`

	types.BaseEntity
}
