// internal/authz/permissions.go
package authz

// --- СПИСОК ВСЕХ ПЕРМИШЕНОВ В СИСТЕМЕ ---

const (
	// Глобальные
	Superuser = "superuser"

	// Цепочки согласования (Approval workflows)
	ApprovalWorkflowView   = "approval_workflow:view"
	ApprovalWorkflowCreate = "approval_workflow:create"
	ApprovalWorkflowUpdate = "approval_workflow:update"
	ApprovalWorkflowDelete = "approval_workflow:delete"

	// Справочники зон и депо
	MasterDataView = "master_data:view"
)

// All - все права приложения, для сидера и dev-токена.
var All = []string{
	ApprovalWorkflowView,
	ApprovalWorkflowCreate,
	ApprovalWorkflowUpdate,
	ApprovalWorkflowDelete,
	MasterDataView,
}
