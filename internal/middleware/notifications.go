package middleware

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/parkops/parkops-api/internal/models"
)

const (
	HeaderNotificationsCount = "X-Notifications-Count"
	HeaderNotificationsNew   = "X-Notifications-New"
)

// BadgeRefresher computes the approvals badge for an actor.
type BadgeRefresher interface {
	Refresh(ctx context.Context, actor *models.ActorClaims) models.NotificationSummary
}

// NotificationBadge attaches the actor's approvals badge to every authenticated
// response. It runs before the handler so the headers reach the client even for
// streamed bodies; the refresh never fails the request.
func NotificationBadge(refresher BadgeRefresher) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := Actor(c)
		if refresher == nil || actor == nil {
			c.Next()
			return
		}
		summary := refresher.Refresh(c.Request.Context(), actor)
		c.Header(HeaderNotificationsCount, strconv.Itoa(summary.VisibleCount))
		c.Header(HeaderNotificationsNew, strconv.Itoa(summary.NewSinceBaseline))
		SetNotificationMeta(c, summary)
		c.Next()
	}
}
