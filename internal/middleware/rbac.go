package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/parkops/parkops-api/internal/scope"
	appErrors "github.com/parkops/parkops-api/pkg/errors"
	"github.com/parkops/parkops-api/pkg/response"
)

// RequireAny lets the request through when the actor holds at least one of caps.
// Row level checks stay in the services; this only blocks roles that can never act.
func RequireAny(caps ...scope.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := Actor(c)
		if actor == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		actorScope := scope.For(actor)
		for _, capability := range caps {
			if actorScope.Has(capability) {
				c.Next()
				return
			}
		}
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "role "+string(actor.Role)+" may not use this endpoint"))
		c.Abort()
	}
}

// RequireApprover admits actors that have an approvals queue.
func RequireApprover() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := Actor(c)
		if actor == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !scope.For(actor).CanViewApprovals() {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "no approval queue for role "+string(actor.Role)))
			c.Abort()
			return
		}
		c.Next()
	}
}
