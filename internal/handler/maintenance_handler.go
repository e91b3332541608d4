package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/parkops/parkops-api/internal/dto"
	"github.com/parkops/parkops-api/internal/middleware"
	"github.com/parkops/parkops-api/internal/models"
	appErrors "github.com/parkops/parkops-api/pkg/errors"
	"github.com/parkops/parkops-api/pkg/response"
)

type maintenanceService interface {
	Report(ctx context.Context, req dto.ReportDefectRequest, actor *models.ActorClaims) (*models.WorkOrder, error)
	ListMine(ctx context.Context, actor *models.ActorClaims) ([]models.WorkOrder, error)
	GetForReassign(ctx context.Context, id string, actor *models.ActorClaims) (*models.WorkOrder, error)
	Reassign(ctx context.Context, id string, req dto.ReassignRequest, actor *models.ActorClaims) (*dto.ReassignResponse, error)
	ApproveProposal(ctx context.Context, id string, req dto.ResolveProposalRequest, actor *models.ActorClaims) (*models.WorkOrder, error)
	RejectProposal(ctx context.Context, id string, req dto.ResolveProposalRequest, actor *models.ActorClaims) (*models.WorkOrder, error)
	Complete(ctx context.Context, id string, req dto.CompleteWorkOrderRequest, actor *models.ActorClaims) (*models.WorkOrder, error)
}

// MaintenanceHandler exposes work order and reassignment endpoints.
type MaintenanceHandler struct {
	service maintenanceService
	links   Links
}

// NewMaintenanceHandler builds a new handler.
func NewMaintenanceHandler(service maintenanceService, links Links) *MaintenanceHandler {
	return &MaintenanceHandler{service: service, links: links}
}

// Report godoc
// @Summary Report a ride defect
// @Tags Maintenance
// @Accept json
// @Produce json
// @Param payload body dto.ReportDefectRequest true "Defect report"
// @Success 201 {object} response.Envelope
// @Router /maintenance/report [post]
func (h *MaintenanceHandler) Report(c *gin.Context) {
	var req dto.ReportDefectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid defect report"))
		return
	}
	order, err := h.service.Report(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, order, middleware.ExtractMeta(c))
}

// ListMine godoc
// @Summary List my open work orders
// @Tags Maintenance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /maintenance/mine [get]
func (h *MaintenanceHandler) ListMine(c *gin.Context) {
	orders, err := h.service.ListMine(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, orders, nil, middleware.ExtractMeta(c))
}

// GetReassign godoc
// @Summary Load a work order for reassignment
// @Tags Maintenance
// @Produce json
// @Param id path string true "Work order ID"
// @Success 200 {object} response.Envelope
// @Router /maintenance/reassign/{id} [get]
func (h *MaintenanceHandler) GetReassign(c *gin.Context) {
	order, err := h.service.GetForReassign(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, order, nil)
}

// Reassign godoc
// @Summary Propose or apply a reassignment
// @Description Maintenance workers file a proposal; managers assign directly.
// @Tags Maintenance
// @Accept json
// @Produce json
// @Param id path string true "Work order ID"
// @Param payload body dto.ReassignRequest true "Candidate employee"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /maintenance/reassign/{id} [post]
func (h *MaintenanceHandler) Reassign(c *gin.Context) {
	var req dto.ReassignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reassignment payload"))
		return
	}
	result, err := h.service.Reassign(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Processed(c, err, h.links.MyWorkOrder)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ApproveProposal godoc
// @Summary Approve a pending reassignment proposal
// @Tags Approvals
// @Accept json
// @Produce json
// @Param id path string true "Work order ID"
// @Param payload body dto.ResolveProposalRequest false "Candidate pin"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /approve/reassignment/{id} [post]
func (h *MaintenanceHandler) ApproveProposal(c *gin.Context) {
	h.resolve(c, h.service.ApproveProposal)
}

// RejectProposal godoc
// @Summary Reject a pending reassignment proposal
// @Tags Approvals
// @Accept json
// @Produce json
// @Param id path string true "Work order ID"
// @Param payload body dto.ResolveProposalRequest false "Candidate pin"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /reject/reassignment/{id} [post]
func (h *MaintenanceHandler) RejectProposal(c *gin.Context) {
	h.resolve(c, h.service.RejectProposal)
}

// Complete godoc
// @Summary Close a work order
// @Tags Maintenance
// @Accept json
// @Produce json
// @Param id path string true "Work order ID"
// @Param payload body dto.CompleteWorkOrderRequest true "Completion details"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /maintenance/complete/{id} [post]
func (h *MaintenanceHandler) Complete(c *gin.Context) {
	var req dto.CompleteWorkOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid completion payload"))
		return
	}
	order, err := h.service.Complete(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Processed(c, err, h.links.MyWorkOrder)
		return
	}
	response.JSON(c, http.StatusOK, order, nil)
}

type resolveFunc func(ctx context.Context, id string, req dto.ResolveProposalRequest, actor *models.ActorClaims) (*models.WorkOrder, error)

// resolve accepts an empty body; a pin is only bound when one is sent.
func (h *MaintenanceHandler) resolve(c *gin.Context, fn resolveFunc) {
	var req dto.ResolveProposalRequest
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid proposal decision payload"))
			return
		}
	}
	order, err := fn(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Processed(c, err, h.links.Approvals)
		return
	}
	response.JSON(c, http.StatusOK, order, nil)
}
