package events

import "sfa-workflow/internal/chain"

const (
	ApprovalChainReplaced      = "approval_chain.replaced"
	ApprovalChainDeleted       = "approval_chain.deleted"
	ApprovalChainStatusChanged = "approval_chain.status_changed"
)

// ApprovalChainReplacedEvent - цепочка области заменена целиком (после коммита).
type ApprovalChainReplacedEvent struct {
	Scope       chain.Scope
	ApproverIDs []uint64
	ActorID     uint64
}

func (e ApprovalChainReplacedEvent) Name() string { return ApprovalChainReplaced }

// ApprovalChainDeletedEvent - удалены все цепочки типа заявки.
type ApprovalChainDeletedEvent struct {
	RequestType string
	Deleted     int64
	ActorID     uint64
}

func (e ApprovalChainDeletedEvent) Name() string { return ApprovalChainDeleted }

type ApprovalChainStatusChangedEvent struct {
	Scope    chain.Scope
	IsActive string
	ActorID  uint64
}

func (e ApprovalChainStatusChangedEvent) Name() string { return ApprovalChainStatusChanged }
