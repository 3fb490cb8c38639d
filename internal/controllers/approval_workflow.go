// Файл: internal/controllers/approval_workflow.go

package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"sfa-workflow/internal/dto"
	"sfa-workflow/internal/services"
	apperrors "sfa-workflow/pkg/errors"
	"sfa-workflow/pkg/utils"
)

var summaryHeaders = []interface{}{
	"Тип заявки", "Зоны", "Депо", "Областей", "Согласующих", "Активных", "Статус", "Обновлено",
}

type ApprovalWorkflowController struct {
	service services.ApprovalWorkflowServiceInterface
	logger  *zap.Logger
}

func NewApprovalWorkflowController(service services.ApprovalWorkflowServiceInterface, logger *zap.Logger) *ApprovalWorkflowController {
	return &ApprovalWorkflowController{service: service, logger: logger}
}

// Save - POST /approval-workflows. Тело: массив строк или {"entries": [...]}.
func (c *ApprovalWorkflowController) Save(ctx echo.Context) error {
	raw, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Не удалось прочитать тело запроса", err, nil), c.logger)
	}

	var saveDTO dto.SaveApprovalChainDTO
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &saveDTO.Entries)
	} else {
		err = json.Unmarshal(trimmed, &saveDTO)
	}
	if err != nil {
		c.logger.Warn("Ошибка разбора тела запроса цепочки", zap.Error(err))
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Неверные данные в теле запроса", err, nil), c.logger)
	}

	if err := ctx.Validate(&saveDTO); err != nil {
		c.logger.Warn("Ошибка валидации цепочки", zap.Error(err))
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	result, err := c.service.Save(ctx.Request().Context(), saveDTO.Entries)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "Цепочка согласования сохранена", http.StatusOK)
}

// resolveQuery читает область из query: request_type, zone_id, depot_id, active_only.
func (c *ApprovalWorkflowController) resolveQuery(ctx echo.Context) (dto.ResolveChainQueryDTO, error) {
	values := ctx.QueryParams()
	query := dto.ResolveChainQueryDTO{RequestType: strings.TrimSpace(values.Get("request_type"))}

	var err error
	if query.ZoneID, err = utils.ParseOptionalID(values, "zone_id"); err != nil {
		return query, err
	}
	if query.DepotID, err = utils.ParseOptionalID(values, "depot_id"); err != nil {
		return query, err
	}
	if raw := values.Get("active_only"); raw != "" {
		if query.ActiveOnly, err = strconv.ParseBool(raw); err != nil {
			return query, apperrors.NewBadRequestError("Некорректный параметр active_only")
		}
	}
	if err := ctx.Validate(&query); err != nil {
		return query, err
	}
	return query, nil
}

// Resolve - GET /approval-workflows/chain.
func (c *ApprovalWorkflowController) Resolve(ctx echo.Context) error {
	query, err := c.resolveQuery(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	result, err := c.service.Resolve(ctx.Request().Context(), query)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "Цепочка согласования получена", http.StatusOK)
}

// Delete - DELETE /approval-workflows/:request_type. Повторное удаление возвращает deleted: 0.
func (c *ApprovalWorkflowController) Delete(ctx echo.Context) error {
	result, err := c.service.DeleteByRequestType(ctx.Request().Context(), ctx.Param("request_type"))
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "Цепочки согласования удалены", http.StatusOK)
}

// UpdateStatus - PATCH /approval-workflows/:request_type/status.
func (c *ApprovalWorkflowController) UpdateStatus(ctx echo.Context) error {
	var statusDTO dto.UpdateChainStatusDTO
	if err := ctx.Bind(&statusDTO); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Неверные данные в теле запроса", err, nil), c.logger)
	}
	if err := ctx.Validate(&statusDTO); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	result, err := c.service.UpdateStatus(ctx.Request().Context(), ctx.Param("request_type"), statusDTO)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "Статус цепочки обновлён", http.StatusOK)
}

// GetSummary - GET /approval-workflows?search=&filter[is_active]=.
func (c *ApprovalWorkflowController) GetSummary(ctx echo.Context) error {
	filter := utils.ParseFilterFromQuery(ctx.Request().URL.Query())

	result, total, err := c.service.GetSummary(ctx.Request().Context(), filter)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "Список процессов согласования получен", http.StatusOK, total)
}

// Export - GET /approval-workflows/export, та же сводка без пагинации в XLSX.
func (c *ApprovalWorkflowController) Export(ctx echo.Context) error {
	filter := utils.ParseFilterFromQuery(ctx.Request().URL.Query())
	filter.WithPagination = false

	rows, _, err := c.service.GetSummary(ctx.Request().Context(), filter)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return c.respondWithXLSX(ctx, rows)
}

func scopeNames(scopes []dto.ShortScopeDTO) string {
	names := make([]string, len(scopes))
	for i, s := range scopes {
		names[i] = s.Name
	}
	return strings.Join(names, ", ")
}

func (c *ApprovalWorkflowController) respondWithXLSX(ctx echo.Context, rows []dto.ApprovalWorkflowSummaryDTO) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Процессы согласования"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	if err := f.SetSheetRow(sheet, "A1", &summaryHeaders); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	style, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	_ = f.SetCellStyle(sheet, "A1", "H1", style)

	for i, item := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []interface{}{
			item.RequestType, scopeNames(item.Zones), scopeNames(item.Depots), item.ScopeCount,
			item.NoOfApprovers, item.ActiveCount, item.IsActive, item.UpdatedAt,
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return utils.ErrorResponse(ctx, err, c.logger)
		}
	}
	_ = f.SetColWidth(sheet, "A", "A", 25)
	_ = f.SetColWidth(sheet, "B", "C", 40)
	_ = f.SetColWidth(sheet, "H", "H", 22)

	fileName := fmt.Sprintf("approval_workflows_%s.xlsx", time.Now().Format("2006-01-02"))
	ctx.Response().Header().Set(echo.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename="+fileName)
	ctx.Response().WriteHeader(http.StatusOK)
	return f.Write(ctx.Response().Writer)
}

// AvailableApprovers - GET /approval-workflows/available-approvers.
func (c *ApprovalWorkflowController) AvailableApprovers(ctx echo.Context) error {
	query, err := c.resolveQuery(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	filter := utils.ParseFilterFromQuery(ctx.Request().URL.Query())

	result, total, err := c.service.AvailableApprovers(ctx.Request().Context(), query, filter)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "Доступные согласующие получены", http.StatusOK, total)
}

// GetAudit - GET /approval-workflows/:request_type/audit.
func (c *ApprovalWorkflowController) GetAudit(ctx echo.Context) error {
	filter := utils.ParseFilterFromQuery(ctx.Request().URL.Query())

	result, total, err := c.service.GetAudit(ctx.Request().Context(), ctx.Param("request_type"), filter)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "Журнал изменений получен", http.StatusOK, total)
}
