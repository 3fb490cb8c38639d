package chain

import (
	"strconv"
	"strings"

	apperrors "sfa-workflow/pkg/errors"
)

// Scope - область действия цепочки: тип заявки, зона и депо.
// nil в ZoneID/DepotID означает "для всех зон"/"для всех депо".
type Scope struct {
	RequestType string  `json:"request_type"`
	ZoneID      *uint64 `json:"zone_id"`
	DepotID     *uint64 `json:"depot_id"`
}

// Key - стабильное строковое представление области, например "ORDER_APPROVAL:5:*".
func (s Scope) Key() string {
	return s.RequestType + ":" + s.VariantKey()
}

// VariantKey - часть ключа без request_type: "zone:depot", где "*" обозначает NULL.
func (s Scope) VariantKey() string {
	return idOrStar(s.ZoneID) + ":" + idOrStar(s.DepotID)
}

// Validate проверяет, что указан тип заявки.
func (s Scope) Validate() error {
	if strings.TrimSpace(s.RequestType) == "" {
		return apperrors.ErrRequestTypeRequired
	}
	return nil
}

// Equal сравнивает области по значению.
func (s Scope) Equal(other Scope) bool {
	return s.RequestType == other.RequestType &&
		equalID(s.ZoneID, other.ZoneID) &&
		equalID(s.DepotID, other.DepotID)
}

// IsGlobal - область без привязки к зоне и депо.
func (s Scope) IsGlobal() bool {
	return s.ZoneID == nil && s.DepotID == nil
}

func idOrStar(id *uint64) string {
	if id == nil {
		return "*"
	}
	return strconv.FormatUint(*id, 10)
}

func equalID(a, b *uint64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func copyID(id *uint64) *uint64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
