package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/parkops/parkops-api/internal/scope"
	appErrors "github.com/parkops/parkops-api/pkg/errors"
	"github.com/parkops/parkops-api/pkg/response"
)

// AuthHandler exposes the resolved identity of the caller.
type AuthHandler struct{}

// NewAuthHandler creates a new handler.
func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

// Me godoc
// @Summary Describe the authenticated actor
// @Description Returns the actor's role, location and capability set
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	actorScope := scope.For(claims)
	location, inventoryVisible := actorScope.InventoryFilter()
	payload := gin.H{
		"userId":           claims.UserID,
		"role":             claims.Role,
		"locationId":       claims.LocationID,
		"capabilities":     scope.CapabilitiesOf(claims.Role).String(),
		"approvals":        actorScope.CanViewApprovals(),
		"proposalsVisible": actorScope.ProposalsVisible(),
		"inventoryVisible": inventoryVisible,
		"inventoryScope":   location,
	}
	if claims.ExpiresAt != nil {
		payload["expiresAt"] = claims.ExpiresAt.Time
	}
	response.JSON(c, http.StatusOK, payload, nil)
}
