package entities

import "time"

type ApprovalWorkflowAudit struct {
	ID          uint64    `json:"id" db:"id"`
	RequestType string    `json:"request_type" db:"request_type"`
	ZoneID      *uint64   `json:"zone_id" db:"zone_id"`
	DepotID     *uint64   `json:"depot_id" db:"depot_id"`
	Action      string    `json:"action" db:"action"`
	PerformedBy *uint64   `json:"performed_by" db:"performed_by"`
	ApproverIDs []uint64  `json:"approver_ids" db:"approver_ids"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
