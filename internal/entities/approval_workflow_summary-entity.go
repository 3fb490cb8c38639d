package entities

import "time"

// ScopeRef - ссылка на зону или депо с названием для отображения.
type ScopeRef struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

// ApprovalWorkflowSummary - агрегат по одному request_type.
type ApprovalWorkflowSummary struct {
	RequestType   string     `db:"request_type"`
	Zones         []ScopeRef `db:"zones"`
	Depots        []ScopeRef `db:"depots"`
	ScopeCount    int        `db:"scope_count"`
	NoOfApprovers int        `db:"no_of_approvers"`
	ActiveCount   int        `db:"active_count"`
	IsActive      string     `db:"is_active"`
	UpdatedAt     *time.Time `db:"updated_at"`
}
