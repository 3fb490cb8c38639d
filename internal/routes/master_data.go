package routes

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"sfa-workflow/internal/authz"
	"sfa-workflow/internal/controllers"
	"sfa-workflow/internal/services"
	"sfa-workflow/pkg/middleware"
)

func runMasterDataRouter(
	secureGroup *echo.Group,
	masterDataService services.MasterDataServiceInterface,
	logger *zap.Logger,
	authMW *middleware.AuthMiddleware,
) {
	ctrl := controllers.NewMasterDataController(masterDataService, logger)
	canView := authMW.AuthorizeAny(authz.MasterDataView, authz.ApprovalWorkflowView)

	secureGroup.GET("/zones", ctrl.GetZones, canView)
	secureGroup.GET("/depots", ctrl.GetDepots, canView)
}
