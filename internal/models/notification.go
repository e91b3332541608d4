package models

// NotificationSummary is the badge payload for the approvals surface.
type NotificationSummary struct {
	VisibleCount     int `json:"visibleCount"`
	NewSinceBaseline int `json:"newSinceBaseline"`
	// AssignedOpen is the maintenance actor's own open work orders. It is kept
	// apart from the shared approvals count.
	AssignedOpen int  `json:"assignedOpen"`
	Degraded     bool `json:"degraded,omitempty"`
}
