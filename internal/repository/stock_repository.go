package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/parkops/parkops-api/internal/models"
)

// StockRepository reads the vendor/item inventory counters. Counters are only ever
// written by InventoryRequestRepository.Decide.
type StockRepository struct {
	db *sqlx.DB
}

// NewStockRepository constructs the repository.
func NewStockRepository(db *sqlx.DB) *StockRepository {
	return &StockRepository{db: db}
}

// Get returns the counter for vendorID/itemID. A pair never restocked reads as zero.
func (r *StockRepository) Get(ctx context.Context, vendorID, itemID string) (*models.StockLevel, error) {
	const query = `SELECT vendor_id, item_id, count FROM inventory WHERE vendor_id = $1 AND item_id = $2`
	var level models.StockLevel
	if err := r.db.GetContext(ctx, &level, query, vendorID, itemID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.StockLevel{VendorID: vendorID, ItemID: itemID}, nil
		}
		return nil, fmt.Errorf("get stock level: %w", err)
	}
	return &level, nil
}
