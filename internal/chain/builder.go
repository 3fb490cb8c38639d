// Package chain - упорядоченный список согласующих одной области,
// который редактируется в памяти до сохранения.
package chain

import (
	"fmt"
	"sort"

	"sfa-workflow/internal/entities"
	"sfa-workflow/pkg/constants"
	apperrors "sfa-workflow/pkg/errors"
)

var (
	ErrDuplicateApprover  = apperrors.ErrDuplicateApprover
	ErrApproverNotInChain = apperrors.ErrApproverNotInChain
	ErrPositionOutOfRange = apperrors.ErrPositionOutOfRange
)

// Assignment - согласующий на своей позиции. Номер шага вычисляется из индекса.
type Assignment struct {
	ApproverID uint64 `json:"approver_id"`
	IsActive   bool   `json:"is_active"`
}

// State - сериализуемый снимок билдера (для черновиков).
type State struct {
	Scope     Scope        `json:"scope"`
	Approvers []Assignment `json:"approvers"`
}

// Builder хранит цепочку одной области. Не потокобезопасен.
type Builder struct {
	scope     Scope
	approvers []Assignment
}

func NewBuilder(scope Scope) *Builder {
	return &Builder{scope: scope}
}

// FromEntries восстанавливает билдер из сохранённых строк области.
// Строки сортируются по sequence; строки другой области отбрасываются.
func FromEntries(scope Scope, entries []entities.ApprovalChainEntry) (*Builder, error) {
	sorted := make([]entities.ApprovalChainEntry, 0, len(entries))
	for _, e := range entries {
		if ScopeOf(e).Equal(scope) {
			sorted = append(sorted, e)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Sequence < sorted[j].Sequence })

	b := NewBuilder(scope)
	for _, e := range sorted {
		if err := b.InsertAt(b.Len(), e.ApproverID); err != nil {
			return nil, fmt.Errorf("approver %d: %w", e.ApproverID, err)
		}
		b.approvers[b.Len()-1].IsActive = e.IsActive != constants.FlagNo
	}
	return b, nil
}

// Restore собирает билдер из снимка, повторно проверяя уникальность согласующих.
func Restore(state State) (*Builder, error) {
	b := NewBuilder(state.Scope)
	for _, a := range state.Approvers {
		if err := b.InsertAt(b.Len(), a.ApproverID); err != nil {
			return nil, fmt.Errorf("approver %d: %w", a.ApproverID, err)
		}
		b.approvers[b.Len()-1].IsActive = a.IsActive
	}
	return b, nil
}

func (b *Builder) Scope() Scope { return b.scope }

func (b *Builder) Len() int { return len(b.approvers) }

func (b *Builder) Contains(approverID uint64) bool {
	return b.indexOf(approverID) >= 0
}

// ApproverIDs - согласующие в порядке согласования.
func (b *Builder) ApproverIDs() []uint64 {
	ids := make([]uint64, len(b.approvers))
	for i, a := range b.approvers {
		ids[i] = a.ApproverID
	}
	return ids
}

// InsertAt вставляет согласующего на позицию position (0..Len()).
// Новые согласующие активны.
func (b *Builder) InsertAt(position int, approverID uint64) error {
	if b.Contains(approverID) {
		return ErrDuplicateApprover
	}
	if position < 0 || position > len(b.approvers) {
		return fmt.Errorf("%w: %d (длина %d)", ErrPositionOutOfRange, position, len(b.approvers))
	}
	b.approvers = append(b.approvers, Assignment{})
	copy(b.approvers[position+1:], b.approvers[position:])
	b.approvers[position] = Assignment{ApproverID: approverID, IsActive: true}
	return nil
}

// Remove убирает согласующего; остальные сдвигаются без пропусков.
func (b *Builder) Remove(approverID uint64) error {
	idx := b.indexOf(approverID)
	if idx < 0 {
		return ErrApproverNotInChain
	}
	b.approvers = append(b.approvers[:idx], b.approvers[idx+1:]...)
	return nil
}

// Reorder перемещает согласующего с позиции from на позицию to.
func (b *Builder) Reorder(from, to int) error {
	n := len(b.approvers)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("%w: %d -> %d (длина %d)", ErrPositionOutOfRange, from, to, n)
	}
	if from == to {
		return nil
	}
	moved := b.approvers[from]
	if from < to {
		copy(b.approvers[from:to], b.approvers[from+1:to+1])
	} else {
		copy(b.approvers[to+1:from+1], b.approvers[to:from])
	}
	b.approvers[to] = moved
	return nil
}

// SetActive включает или отключает согласующего, не убирая его из цепочки.
func (b *Builder) SetActive(approverID uint64, active bool) error {
	idx := b.indexOf(approverID)
	if idx < 0 {
		return ErrApproverNotInChain
	}
	b.approvers[idx].IsActive = active
	return nil
}

// ToPayload - строки для сохранения: sequence = индекс + 1, область билдера.
func (b *Builder) ToPayload() []entities.ApprovalChainEntry {
	payload := make([]entities.ApprovalChainEntry, len(b.approvers))
	for i, a := range b.approvers {
		payload[i] = entities.ApprovalChainEntry{
			RequestType: b.scope.RequestType,
			Sequence:    i + 1,
			ApproverID:  a.ApproverID,
			ZoneID:      copyID(b.scope.ZoneID),
			DepotID:     copyID(b.scope.DepotID),
			IsActive:    constants.BoolToFlag(a.IsActive),
		}
	}
	return payload
}

func (b *Builder) State() State {
	return State{
		Scope:     b.scope,
		Approvers: append([]Assignment(nil), b.approvers...),
	}
}

func (b *Builder) indexOf(approverID uint64) int {
	for i, a := range b.approvers {
		if a.ApproverID == approverID {
			return i
		}
	}
	return -1
}

// ScopeOf - область строки цепочки.
func ScopeOf(e entities.ApprovalChainEntry) Scope {
	return Scope{RequestType: e.RequestType, ZoneID: e.ZoneID, DepotID: e.DepotID}
}
