package services

import (
	"time"

	"github.com/aarondl/null/v8"

	"sfa-workflow/internal/chain"
	"sfa-workflow/internal/dto"
	"sfa-workflow/internal/entities"
	"sfa-workflow/pkg/utils"
)

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func toEntryResponseDTO(e entities.ApprovalChainEntry) dto.ApprovalChainEntryResponseDTO {
	return dto.ApprovalChainEntryResponseDTO{
		ID:          e.ID,
		RequestType: e.RequestType,
		Sequence:    e.Sequence,
		ApproverID:  e.ApproverID,
		ApproverFio: e.ApproverFio,
		ZoneID:      utils.IDPtrToNullInt(e.ZoneID),
		DepotID:     utils.IDPtrToNullInt(e.DepotID),
		IsActive:    e.IsActive,
		CreatedAt:   formatTime(e.CreatedAt),
		UpdatedAt:   formatTime(e.UpdatedAt),
	}
}

func toEntryResponseDTOs(entries []entities.ApprovalChainEntry) []dto.ApprovalChainEntryResponseDTO {
	result := make([]dto.ApprovalChainEntryResponseDTO, len(entries))
	for i, e := range entries {
		result[i] = toEntryResponseDTO(e)
	}
	return result
}

func toScopeDTO(scope chain.Scope, entries []entities.ApprovalChainEntry) dto.ApprovalChainScopeDTO {
	return dto.ApprovalChainScopeDTO{
		RequestType: scope.RequestType,
		ZoneID:      utils.IDPtrToNullInt(scope.ZoneID),
		DepotID:     utils.IDPtrToNullInt(scope.DepotID),
		Entries:     toEntryResponseDTOs(entries),
	}
}

func toShortScopeDTOs(refs []entities.ScopeRef) []dto.ShortScopeDTO {
	result := make([]dto.ShortScopeDTO, len(refs))
	for i, r := range refs {
		result[i] = dto.ShortScopeDTO{ID: r.ID, Name: r.Name}
	}
	return result
}

func toSummaryDTO(s entities.ApprovalWorkflowSummary) dto.ApprovalWorkflowSummaryDTO {
	return dto.ApprovalWorkflowSummaryDTO{
		RequestType:   s.RequestType,
		Zones:         toShortScopeDTOs(s.Zones),
		Depots:        toShortScopeDTOs(s.Depots),
		ScopeCount:    s.ScopeCount,
		NoOfApprovers: s.NoOfApprovers,
		ActiveCount:   s.ActiveCount,
		IsActive:      s.IsActive,
		UpdatedAt:     formatTime(s.UpdatedAt),
	}
}

func toAuditDTO(a entities.ApprovalWorkflowAudit) dto.ApprovalWorkflowAuditDTO {
	ids := a.ApproverIDs
	if ids == nil {
		ids = []uint64{}
	}
	return dto.ApprovalWorkflowAuditDTO{
		ID:          a.ID,
		RequestType: a.RequestType,
		ZoneID:      utils.IDPtrToNullInt(a.ZoneID),
		DepotID:     utils.IDPtrToNullInt(a.DepotID),
		Action:      a.Action,
		PerformedBy: utils.IDPtrToNullInt(a.PerformedBy),
		ApproverIDs: ids,
		CreatedAt:   a.CreatedAt.Format(time.RFC3339),
	}
}

func toUserShortDTO(u entities.User) dto.UserShortDTO {
	return dto.UserShortDTO{ID: u.ID, Fio: u.Fio, Email: null.StringFromPtr(u.Email)}
}

// scopeFromIDs собирает и проверяет область из request_type и необязательных id.
func scopeFromIDs(requestType string, zoneID, depotID null.Int) (chain.Scope, error) {
	zone, err := utils.NullIntToIDPtr(zoneID, "zone_id")
	if err != nil {
		return chain.Scope{}, err
	}
	depot, err := utils.NullIntToIDPtr(depotID, "depot_id")
	if err != nil {
		return chain.Scope{}, err
	}
	scope := chain.Scope{RequestType: requestType, ZoneID: zone, DepotID: depot}
	if err := scope.Validate(); err != nil {
		return chain.Scope{}, err
	}
	return scope, nil
}
