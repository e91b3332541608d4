package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/parkops/parkops-api/internal/models"
	"github.com/parkops/parkops-api/pkg/database"
)

const inventoryRequestColumns = `id, vendor_id, item_id, requested_count, requested_by_id, location_id, status, request_date, reviewed_by_id, reviewed_at`

// InventoryRequestRepository persists restock requests and applies their decisions.
type InventoryRequestRepository struct {
	db     *sqlx.DB
	runner *database.Runner
}

// NewInventoryRequestRepository constructs the repository. A nil runner runs
// transactions without a timeout.
func NewInventoryRequestRepository(db *sqlx.DB, runner *database.Runner) *InventoryRequestRepository {
	if runner == nil {
		runner = database.NewRunner(db, 0, nil)
	}
	return &InventoryRequestRepository{db: db, runner: runner}
}

// Create inserts a Pending request. The location is copied from the vendor row so
// approvals can be scoped without a join; an unknown vendor yields sql.ErrNoRows.
func (r *InventoryRequestRepository) Create(ctx context.Context, req *models.InventoryRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.RequestDate.IsZero() {
		req.RequestDate = time.Now().UTC()
	}
	req.Status = models.InventoryRequestPending
	const query = `INSERT INTO inventory_requests
	(id, vendor_id, item_id, requested_count, requested_by_id, location_id, status, request_date)
	SELECT $1, v.id, $3, $4::int, $5, v.location_id, $6, $7::timestamptz FROM vendors v WHERE v.id = $2
	RETURNING location_id`
	var location string
	err := r.db.GetContext(ctx, &location, query,
		req.ID, req.VendorID, req.ItemID, req.RequestedCount, req.RequestedByID, req.Status, req.RequestDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return fmt.Errorf("create inventory request: %w", err)
	}
	req.LocationID = location
	return nil
}

// GetByID fetches a request by identifier.
func (r *InventoryRequestRepository) GetByID(ctx context.Context, id string) (*models.InventoryRequest, error) {
	query := `SELECT ` + inventoryRequestColumns + ` FROM inventory_requests WHERE id = $1`
	var req models.InventoryRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// List returns requests matching the filter, oldest first for Pending queues.
func (r *InventoryRequestRepository) List(ctx context.Context, filter models.InventoryRequestFilter) ([]models.InventoryRequest, error) {
	builder := strings.Builder{}
	builder.WriteString(`SELECT ` + inventoryRequestColumns + ` FROM inventory_requests`)
	where, args := inventoryRequestConditions(filter)
	builder.WriteString(where)
	if filter.RequestedBy != "" {
		builder.WriteString(" ORDER BY request_date DESC")
	} else {
		builder.WriteString(" ORDER BY request_date ASC")
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var requests []models.InventoryRequest
	if err := r.db.SelectContext(ctx, &requests, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list inventory requests: %w", err)
	}
	return requests, nil
}

// CountPending counts Pending requests, restricted to locationID when set.
func (r *InventoryRequestRepository) CountPending(ctx context.Context, locationID string) (int, error) {
	where, args := inventoryRequestConditions(models.InventoryRequestFilter{
		Status:     []models.InventoryRequestStatus{models.InventoryRequestPending},
		LocationID: locationID,
	})
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM inventory_requests`+where, args...); err != nil {
		return 0, fmt.Errorf("count pending inventory requests: %w", err)
	}
	return count, nil
}

// UpdateQuantity edits the requested count. The update only matches while the row is
// Pending and owned by requesterID.
func (r *InventoryRequestRepository) UpdateQuantity(ctx context.Context, id, requesterID string, quantity int) (*models.InventoryRequest, error) {
	query := `UPDATE inventory_requests SET requested_count = $3
	WHERE id = $1 AND requested_by_id = $2 AND status = 'Pending'
	RETURNING ` + inventoryRequestColumns
	var req models.InventoryRequest
	if err := r.db.GetContext(ctx, &req, query, id, requesterID, quantity); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAlreadyProcessed
		}
		return nil, fmt.Errorf("update inventory request quantity: %w", err)
	}
	return &req, nil
}

// DecisionParams describes an approve or reject transition.
type DecisionParams struct {
	ID         string
	Status     models.InventoryRequestStatus
	ReviewerID string
	ReviewedAt time.Time
	// LocationID restricts the transition to rows of that location; empty means park-wide.
	LocationID string
}

// Decide moves a Pending request to Approved or Rejected. Approval also adds the
// requested count to the vendor/item stock counter. Both writes share one
// transaction, and the status update only matches a row that is still Pending (and
// in the approver's location), so a request is applied at most once no matter how
// many approvers race on it.
func (r *InventoryRequestRepository) Decide(ctx context.Context, params DecisionParams) (*models.InventoryRequest, *models.StockLevel, error) {
	if params.Status != models.InventoryRequestApproved && params.Status != models.InventoryRequestRejected {
		return nil, nil, fmt.Errorf("decide inventory request: unsupported status %q", params.Status)
	}
	if params.ReviewedAt.IsZero() {
		params.ReviewedAt = time.Now().UTC()
	}

	var (
		decided models.InventoryRequest
		stock   *models.StockLevel
	)
	err := r.runner.InTx(ctx, "inventory_request_decide", func(ctx context.Context, tx *sqlx.Tx) error {
		args := []interface{}{params.ID, params.Status, params.ReviewerID, params.ReviewedAt}
		query := `UPDATE inventory_requests SET status = $2, reviewed_by_id = $3, reviewed_at = $4
	WHERE id = $1 AND status = 'Pending'`
		if params.LocationID != "" {
			args = append(args, params.LocationID)
			query += ` AND location_id = $5`
		}
		query += ` RETURNING ` + inventoryRequestColumns

		if err := tx.GetContext(ctx, &decided, query, args...); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return classifyInventoryRequest(ctx, tx, params)
			}
			return fmt.Errorf("transition inventory request: %w", err)
		}

		if decided.Status != models.InventoryRequestApproved {
			return nil
		}
		const upsert = `INSERT INTO inventory (vendor_id, item_id, count) VALUES ($1, $2, $3)
	ON CONFLICT (vendor_id, item_id) DO UPDATE SET count = inventory.count + EXCLUDED.count
	RETURNING vendor_id, item_id, count`
		var level models.StockLevel
		if err := tx.GetContext(ctx, &level, upsert, decided.VendorID, decided.ItemID, decided.RequestedCount); err != nil {
			return fmt.Errorf("increment inventory: %w", err)
		}
		stock = &level
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &decided, stock, nil
}

// classifyInventoryRequest explains why a conditional transition matched nothing.
func classifyInventoryRequest(ctx context.Context, tx *sqlx.Tx, params DecisionParams) error {
	var current struct {
		Status     models.InventoryRequestStatus `db:"status"`
		LocationID string                        `db:"location_id"`
	}
	const query = `SELECT status, location_id FROM inventory_requests WHERE id = $1`
	if err := tx.GetContext(ctx, &current, query, params.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sql.ErrNoRows
		}
		return fmt.Errorf("reload inventory request: %w", err)
	}
	if params.LocationID != "" && current.LocationID != params.LocationID {
		return ErrOutOfScope
	}
	return ErrAlreadyProcessed
}

func inventoryRequestConditions(filter models.InventoryRequestFilter) (string, []interface{}) {
	args := make([]interface{}, 0, 4)
	conditions := make([]string, 0, 3)
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.LocationID != "" {
		args = append(args, filter.LocationID)
		conditions = append(conditions, fmt.Sprintf("location_id = $%d", len(args)))
	}
	if filter.RequestedBy != "" {
		args = append(args, filter.RequestedBy)
		conditions = append(conditions, fmt.Sprintf("requested_by_id = $%d", len(args)))
	}
	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}
