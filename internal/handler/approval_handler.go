package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/parkops/parkops-api/internal/dto"
	"github.com/parkops/parkops-api/internal/middleware"
	"github.com/parkops/parkops-api/internal/models"
	"github.com/parkops/parkops-api/internal/service"
	appErrors "github.com/parkops/parkops-api/pkg/errors"
	"github.com/parkops/parkops-api/pkg/response"
)

type approvalService interface {
	List(ctx context.Context, actor *models.ActorClaims) (*dto.ApprovalsResponse, error)
	Export(ctx context.Context, actor *models.ActorClaims, format string) (*service.ExportFile, error)
}

// ApprovalHandler serves the approvals queue.
type ApprovalHandler struct {
	service       approvalService
	exportEnabled bool
}

// NewApprovalHandler builds a new handler.
func NewApprovalHandler(service approvalService, exportEnabled bool) *ApprovalHandler {
	return &ApprovalHandler{service: service, exportEnabled: exportEnabled}
}

// List godoc
// @Summary List pending approvals
// @Description Returns reassignment proposals and restock requests visible to the caller and resets the notification baseline.
// @Tags Approvals
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /approvals [get]
func (h *ApprovalHandler) List(c *gin.Context) {
	result, err := h.service.List(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	// Viewing the queue resets the baseline, so the badge computed on the way in is stale.
	c.Header(middleware.HeaderNotificationsCount, strconv.Itoa(result.VisibleCount))
	c.Header(middleware.HeaderNotificationsNew, "0")
	response.JSON(c, http.StatusOK, result, nil)
}

// Export godoc
// @Summary Download pending approvals
// @Tags Approvals
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf" Enums(csv, pdf)
// @Success 200 {file} file
// @Router /approvals/export [get]
func (h *ApprovalHandler) Export(c *gin.Context) {
	if !h.exportEnabled {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "exports are disabled"))
		return
	}
	var req dto.ApprovalsExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export query"))
		return
	}
	file, err := h.service.Export(c.Request.Context(), claimsFromContext(c), req.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
