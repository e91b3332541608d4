package dto

import "github.com/parkops/parkops-api/internal/models"

// CreateInventoryRequest payload for a restock ask.
type CreateInventoryRequest struct {
	VendorID string `json:"vendorId" validate:"required"`
	ItemID   string `json:"itemId" validate:"required"`
	Quantity int    `json:"quantity" validate:"gt=0"`
}

// EditInventoryRequest changes the requested quantity of a Pending request.
type EditInventoryRequest struct {
	Quantity int `json:"quantity" validate:"gt=0"`
}

// InventoryRequestQuery mirrors supported listing filters for the requester's own requests.
type InventoryRequestQuery struct {
	Status []models.InventoryRequestStatus
	Limit  int
	Offset int
}

// InventoryDecisionResponse is returned after approve or reject.
type InventoryDecisionResponse struct {
	Request *models.InventoryRequest `json:"request"`
	Stock   *models.StockLevel       `json:"stock,omitempty"`
}
