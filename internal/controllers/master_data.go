package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"sfa-workflow/internal/services"
	"sfa-workflow/pkg/utils"
)

type MasterDataController struct {
	service services.MasterDataServiceInterface
	logger  *zap.Logger
}

func NewMasterDataController(service services.MasterDataServiceInterface, logger *zap.Logger) *MasterDataController {
	return &MasterDataController{service: service, logger: logger}
}

// GetZones - GET /zones
func (c *MasterDataController) GetZones(ctx echo.Context) error {
	filter := utils.ParseFilterFromQuery(ctx.Request().URL.Query())

	result, total, err := c.service.GetZones(ctx.Request().Context(), filter)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "Список зон получен", http.StatusOK, total)
}

// GetDepots - GET /depots?filter[zone_id]=
func (c *MasterDataController) GetDepots(ctx echo.Context) error {
	filter := utils.ParseFilterFromQuery(ctx.Request().URL.Query())

	result, total, err := c.service.GetDepots(ctx.Request().Context(), filter)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "Список депо получен", http.StatusOK, total)
}
