package routes

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"sfa-workflow/internal/authz"
	"sfa-workflow/internal/controllers"
	"sfa-workflow/internal/services"
	"sfa-workflow/pkg/middleware"
)

func runApprovalWorkflowRouter(
	secureGroup *echo.Group,
	workflowService services.ApprovalWorkflowServiceInterface,
	logger *zap.Logger,
	authMW *middleware.AuthMiddleware,
) {
	ctrl := controllers.NewApprovalWorkflowController(workflowService, logger)

	workflows := secureGroup.Group("/approval-workflows")
	{
		workflows.GET("", ctrl.GetSummary, authMW.AuthorizeAny(authz.ApprovalWorkflowView))
		workflows.POST("", ctrl.Save, authMW.AuthorizeAny(authz.ApprovalWorkflowCreate, authz.ApprovalWorkflowUpdate))
		workflows.GET("/chain", ctrl.Resolve, authMW.AuthorizeAny(authz.ApprovalWorkflowView))
		workflows.GET("/export", ctrl.Export, authMW.AuthorizeAny(authz.ApprovalWorkflowView))
		workflows.GET("/available-approvers", ctrl.AvailableApprovers, authMW.AuthorizeAny(authz.ApprovalWorkflowView))
		workflows.DELETE("/:request_type", ctrl.Delete, authMW.AuthorizeAny(authz.ApprovalWorkflowDelete))
		workflows.PATCH("/:request_type/status", ctrl.UpdateStatus, authMW.AuthorizeAny(authz.ApprovalWorkflowUpdate))
		workflows.GET("/:request_type/audit", ctrl.GetAudit, authMW.AuthorizeAny(authz.ApprovalWorkflowView))
	}
}
