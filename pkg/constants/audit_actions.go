package constants

// AuditAction - действие над цепочкой согласования, пишется в журнал.
type AuditAction string

const (
	AuditChainReplaced     AuditAction = "REPLACED"
	AuditChainDeleted      AuditAction = "DELETED"
	AuditChainStatusChange AuditAction = "STATUS_CHANGED"
)
