package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/parkops/parkops-api/internal/models"
	appErrors "github.com/parkops/parkops-api/pkg/errors"
	"github.com/parkops/parkops-api/pkg/response"
)

type notificationService interface {
	Refresh(ctx context.Context, actor *models.ActorClaims) models.NotificationSummary
}

// NotificationHandler exposes the approvals badge.
type NotificationHandler struct {
	service notificationService
}

// NewNotificationHandler builds a new handler.
func NewNotificationHandler(service notificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// Get godoc
// @Summary Approvals badge for the caller
// @Description Visible pending count and how many arrived since the approvals page was last opened. Never fails; store errors yield a degraded zero badge.
// @Tags Notifications
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /notifications [get]
func (h *NotificationHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	response.JSON(c, http.StatusOK, h.service.Refresh(c.Request.Context(), claims), nil)
}
