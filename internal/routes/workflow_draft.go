package routes

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"sfa-workflow/internal/authz"
	"sfa-workflow/internal/controllers"
	"sfa-workflow/internal/services"
	"sfa-workflow/pkg/middleware"
)

func runWorkflowDraftRouter(
	secureGroup *echo.Group,
	draftService services.WorkflowDraftServiceInterface,
	logger *zap.Logger,
	authMW *middleware.AuthMiddleware,
) {
	ctrl := controllers.NewWorkflowDraftController(draftService, logger)
	canEdit := authMW.AuthorizeAny(authz.ApprovalWorkflowCreate, authz.ApprovalWorkflowUpdate)

	drafts := secureGroup.Group("/workflow-drafts", canEdit)
	{
		drafts.POST("", ctrl.Create)
		drafts.GET("/:id", ctrl.Get)
		drafts.DELETE("/:id", ctrl.Discard)
		drafts.POST("/:id/approvers", ctrl.InsertApprover)
		drafts.DELETE("/:id/approvers/:approver_id", ctrl.RemoveApprover)
		drafts.POST("/:id/reorder", ctrl.Reorder)
		drafts.POST("/:id/submit", ctrl.Submit)
	}
}
