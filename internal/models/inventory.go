package models

import "time"

// InventoryRequestStatus captures the restock workflow states.
type InventoryRequestStatus string

const (
	InventoryRequestPending  InventoryRequestStatus = "Pending"
	InventoryRequestApproved InventoryRequestStatus = "Approved"
	InventoryRequestRejected InventoryRequestStatus = "Rejected"
)

// InventoryRequest is a restock ask for a quantity of an item at a vendor.
type InventoryRequest struct {
	ID             string                 `db:"id" json:"id"`
	VendorID       string                 `db:"vendor_id" json:"vendorId"`
	ItemID         string                 `db:"item_id" json:"itemId"`
	RequestedCount int                    `db:"requested_count" json:"requestedCount"`
	RequestedByID  string                 `db:"requested_by_id" json:"requestedById"`
	LocationID     string                 `db:"location_id" json:"locationId"`
	Status         InventoryRequestStatus `db:"status" json:"status"`
	RequestDate    time.Time              `db:"request_date" json:"requestDate"`
	ReviewedByID   *string                `db:"reviewed_by_id" json:"reviewedById,omitempty"`
	ReviewedAt     *time.Time             `db:"reviewed_at" json:"reviewedAt,omitempty"`
}

// InventoryRequestFilter constrains listing queries.
type InventoryRequestFilter struct {
	Status      []InventoryRequestStatus
	LocationID  string
	RequestedBy string
	Limit       int
	Offset      int
}

// StockLevel is the current counter for a vendor/item pair.
type StockLevel struct {
	VendorID string `db:"vendor_id" json:"vendorId"`
	ItemID   string `db:"item_id" json:"itemId"`
	Count    int    `db:"count" json:"count"`
}
