package models

import "github.com/golang-jwt/jwt/v5"

// Role names the staff roles recognised by the workflow engine.
type Role string

const (
	RoleAdmin           Role = "ADMIN"
	RoleParkManager     Role = "PARK_MANAGER"
	RoleLocationManager Role = "LOCATION_MANAGER"
	RoleMaintenance     Role = "MAINTENANCE"
	RoleStaff           Role = "STAFF"
)

// ActorClaims is the authenticated actor descriptor carried by access tokens.
type ActorClaims struct {
	UserID     string `json:"user_id"`
	Role       Role   `json:"role"`
	LocationID string `json:"location_id,omitempty"`
	jwt.RegisteredClaims
}

// SessionKey identifies the session the actor is using. Tokens minted without a
// session id fall back to the user id, giving one baseline per actor.
func (c *ActorClaims) SessionKey() string {
	if c == nil {
		return ""
	}
	if c.ID != "" {
		return c.UserID + ":" + c.ID
	}
	return c.UserID
}
