package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/parkops/parkops-api/internal/dto"
	"github.com/parkops/parkops-api/internal/middleware"
	"github.com/parkops/parkops-api/internal/models"
	appErrors "github.com/parkops/parkops-api/pkg/errors"
	"github.com/parkops/parkops-api/pkg/response"
)

type inventoryRequestService interface {
	Create(ctx context.Context, req dto.CreateInventoryRequest, actor *models.ActorClaims) (*models.InventoryRequest, error)
	ListMine(ctx context.Context, query dto.InventoryRequestQuery, actor *models.ActorClaims) ([]models.InventoryRequest, error)
	GetForEdit(ctx context.Context, id string, actor *models.ActorClaims) (*models.InventoryRequest, error)
	Edit(ctx context.Context, id string, req dto.EditInventoryRequest, actor *models.ActorClaims) (*models.InventoryRequest, error)
	Approve(ctx context.Context, id string, actor *models.ActorClaims) (*dto.InventoryDecisionResponse, error)
	Reject(ctx context.Context, id string, actor *models.ActorClaims) (*dto.InventoryDecisionResponse, error)
	Stock(ctx context.Context, vendorID, itemID string, actor *models.ActorClaims) (*models.StockLevel, error)
}

// InventoryHandler exposes the restock request workflow.
type InventoryHandler struct {
	service inventoryRequestService
	links   Links
}

// NewInventoryHandler builds a new handler.
func NewInventoryHandler(service inventoryRequestService, links Links) *InventoryHandler {
	return &InventoryHandler{service: service, links: links}
}

// Create godoc
// @Summary File a restock request
// @Tags Inventory
// @Accept json
// @Produce json
// @Param payload body dto.CreateInventoryRequest true "Restock payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /inventory/request [post]
func (h *InventoryHandler) Create(c *gin.Context) {
	var req dto.CreateInventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid inventory request payload"))
		return
	}
	created, err := h.service.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created, middleware.ExtractMeta(c))
}

// ListMine godoc
// @Summary List my restock requests
// @Tags Inventory
// @Produce json
// @Param status query string false "Comma separated statuses (Pending,Approved,Rejected)"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /inventory/requests/mine [get]
func (h *InventoryHandler) ListMine(c *gin.Context) {
	query := dto.InventoryRequestQuery{
		Limit:  queryInt(c, "limit", 50),
		Offset: queryInt(c, "offset", 0),
	}
	statuses, err := parseStatuses(c.Query("status"))
	if err != nil {
		response.Error(c, err)
		return
	}
	query.Status = statuses
	items, err := h.service.ListMine(c.Request.Context(), query, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil, middleware.ExtractMeta(c))
}

// GetEdit godoc
// @Summary Load a Pending request for editing
// @Tags Inventory
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /inventory/request/edit/{id} [get]
func (h *InventoryHandler) GetEdit(c *gin.Context) {
	item, err := h.service.GetForEdit(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Processed(c, err, h.links.MyRequests)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Edit godoc
// @Summary Change the quantity of a Pending request
// @Tags Inventory
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.EditInventoryRequest true "New quantity"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /inventory/request/edit/{id} [post]
func (h *InventoryHandler) Edit(c *gin.Context) {
	var req dto.EditInventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid edit payload"))
		return
	}
	item, err := h.service.Edit(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Processed(c, err, h.links.MyRequests)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Approve godoc
// @Summary Approve a restock request and add its quantity to stock
// @Tags Approvals
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /approve/inventory/{id} [post]
func (h *InventoryHandler) Approve(c *gin.Context) {
	result, err := h.service.Approve(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Processed(c, err, h.links.Approvals)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Reject godoc
// @Summary Reject a restock request
// @Tags Approvals
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /reject/inventory/{id} [post]
func (h *InventoryHandler) Reject(c *gin.Context) {
	result, err := h.service.Reject(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Processed(c, err, h.links.Approvals)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Stock godoc
// @Summary Current stock for a vendor item
// @Tags Inventory
// @Produce json
// @Param vendorId path string true "Vendor ID"
// @Param itemId path string true "Item ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /inventory/stock/{vendorId}/{itemId} [get]
func (h *InventoryHandler) Stock(c *gin.Context) {
	level, err := h.service.Stock(c.Request.Context(), c.Param("vendorId"), c.Param("itemId"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, level, nil)
}

func parseStatuses(raw string) ([]models.InventoryRequestStatus, error) {
	if raw == "" {
		return nil, nil
	}
	var statuses []models.InventoryRequestStatus
	for _, part := range strings.Split(raw, ",") {
		switch status := models.InventoryRequestStatus(strings.TrimSpace(part)); status {
		case models.InventoryRequestPending, models.InventoryRequestApproved, models.InventoryRequestRejected:
			statuses = append(statuses, status)
		case "":
		default:
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown status "+string(status))
		}
	}
	return statuses, nil
}
