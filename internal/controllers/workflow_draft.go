package controllers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"sfa-workflow/internal/dto"
	"sfa-workflow/internal/services"
	apperrors "sfa-workflow/pkg/errors"
	"sfa-workflow/pkg/utils"
)

// WorkflowDraftController - редактирование цепочки по шагам до сохранения.
type WorkflowDraftController struct {
	service services.WorkflowDraftServiceInterface
	logger  *zap.Logger
}

func NewWorkflowDraftController(service services.WorkflowDraftServiceInterface, logger *zap.Logger) *WorkflowDraftController {
	return &WorkflowDraftController{service: service, logger: logger}
}

func (c *WorkflowDraftController) Create(ctx echo.Context) error {
	var createDTO dto.CreateDraftDTO
	if err := ctx.Bind(&createDTO); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Неверные данные в теле запроса", err, nil), c.logger)
	}
	if err := ctx.Validate(&createDTO); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	result, err := c.service.Create(ctx.Request().Context(), createDTO)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "Черновик цепочки создан", http.StatusCreated)
}

func (c *WorkflowDraftController) Get(ctx echo.Context) error {
	result, err := c.service.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "Черновик цепочки получен", http.StatusOK)
}

func (c *WorkflowDraftController) InsertApprover(ctx echo.Context) error {
	var insertDTO dto.InsertDraftApproverDTO
	if err := ctx.Bind(&insertDTO); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Неверные данные в теле запроса", err, nil), c.logger)
	}
	if err := ctx.Validate(&insertDTO); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	result, err := c.service.InsertApprover(ctx.Request().Context(), ctx.Param("id"), insertDTO)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "Согласующий добавлен", http.StatusOK)
}

func (c *WorkflowDraftController) RemoveApprover(ctx echo.Context) error {
	approverID, err := strconv.ParseUint(ctx.Param("approver_id"), 10, 64)
	if err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Неверный ID согласующего", err, nil), c.logger)
	}

	result, err := c.service.RemoveApprover(ctx.Request().Context(), ctx.Param("id"), approverID)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "Согласующий удалён", http.StatusOK)
}

func (c *WorkflowDraftController) Reorder(ctx echo.Context) error {
	var reorderDTO dto.ReorderDraftDTO
	if err := ctx.Bind(&reorderDTO); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Неверные данные в теле запроса", err, nil), c.logger)
	}
	if err := ctx.Validate(&reorderDTO); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	result, err := c.service.Reorder(ctx.Request().Context(), ctx.Param("id"), reorderDTO)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "Порядок согласующих изменён", http.StatusOK)
}

// Submit сохраняет черновик как цепочку области.
func (c *WorkflowDraftController) Submit(ctx echo.Context) error {
	result, err := c.service.Submit(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "Цепочка согласования сохранена", http.StatusOK)
}

func (c *WorkflowDraftController) Discard(ctx echo.Context) error {
	if err := c.service.Discard(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, struct{}{}, "Черновик удалён", http.StatusOK)
}
