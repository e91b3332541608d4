package dto

import "github.com/parkops/parkops-api/internal/models"

// ApprovalsResponse is the approvals queue visible to one actor.
type ApprovalsResponse struct {
	Proposals         []models.WorkOrder        `json:"proposals"`
	InventoryRequests []models.InventoryRequest `json:"inventoryRequests"`
	VisibleCount      int                       `json:"visibleCount"`
}

// ApprovalsExportRequest selects the export format.
type ApprovalsExportRequest struct {
	Format string `form:"format" validate:"omitempty,oneof=csv pdf"`
}
