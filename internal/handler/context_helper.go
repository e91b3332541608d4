package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/parkops/parkops-api/internal/middleware"
	"github.com/parkops/parkops-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.ActorClaims {
	return middleware.Actor(c)
}

// Links holds the list pages clients are sent back to after a conflicting transition.
type Links struct {
	Approvals   string
	MyRequests  string
	MyWorkOrder string
}

// NewLinks builds the redirect targets under apiPrefix.
func NewLinks(apiPrefix string) Links {
	prefix := strings.TrimRight(apiPrefix, "/")
	return Links{
		Approvals:   prefix + "/approvals",
		MyRequests:  prefix + "/inventory/requests/mine",
		MyWorkOrder: prefix + "/maintenance/mine",
	}
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
