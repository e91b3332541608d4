package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/parkops/parkops-api/internal/models"
	"github.com/parkops/parkops-api/pkg/database"
)

const workOrderColumns = `id, ride_id, summary, employee_id, pending_employee_id, assignment_requested_by, report_date, start_date, end_date, cost`

// MaintenanceRepository persists ride work orders and their reassignment workflow.
type MaintenanceRepository struct {
	db     *sqlx.DB
	runner *database.Runner
}

// NewMaintenanceRepository constructs the repository.
func NewMaintenanceRepository(db *sqlx.DB, runner *database.Runner) *MaintenanceRepository {
	if runner == nil {
		runner = database.NewRunner(db, 0, nil)
	}
	return &MaintenanceRepository{db: db, runner: runner}
}

// Create records a reported defect and marks the ride broken in the same
// transaction. An unknown ride yields sql.ErrNoRows and nothing is written.
func (r *MaintenanceRepository) Create(ctx context.Context, order *models.WorkOrder) error {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if order.ReportDate.IsZero() {
		order.ReportDate = time.Now().UTC()
	}
	return r.runner.InTx(ctx, "work_order_create", func(ctx context.Context, tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `UPDATE rides SET status = $2 WHERE id = $1`, order.RideID, models.RideStatusBroken)
		if err != nil {
			return fmt.Errorf("mark ride broken: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("check ride update rows: %w", err)
		}
		if rows == 0 {
			return sql.ErrNoRows
		}
		const insert = `INSERT INTO maintenance (id, ride_id, summary, employee_id, report_date)
	VALUES (:id, :ride_id, :summary, :employee_id, :report_date)`
		if _, err := tx.NamedExecContext(ctx, insert, order); err != nil {
			return fmt.Errorf("create work order: %w", err)
		}
		return nil
	})
}

// GetByID fetches a work order by identifier.
func (r *MaintenanceRepository) GetByID(ctx context.Context, id string) (*models.WorkOrder, error) {
	query := `SELECT ` + workOrderColumns + ` FROM maintenance WHERE id = $1`
	var order models.WorkOrder
	if err := r.db.GetContext(ctx, &order, query, id); err != nil {
		return nil, err
	}
	return &order, nil
}

// ListPendingProposals returns open work orders with a reassignment awaiting decision.
func (r *MaintenanceRepository) ListPendingProposals(ctx context.Context, limit int) ([]models.WorkOrder, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM maintenance
	WHERE pending_employee_id IS NOT NULL AND end_date IS NULL
	ORDER BY report_date ASC LIMIT %d`, workOrderColumns, limit)
	var orders []models.WorkOrder
	if err := r.db.SelectContext(ctx, &orders, query); err != nil {
		return nil, fmt.Errorf("list pending proposals: %w", err)
	}
	return orders, nil
}

// CountPendingProposals counts open work orders in the ProposalPending state.
func (r *MaintenanceRepository) CountPendingProposals(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM maintenance WHERE pending_employee_id IS NOT NULL AND end_date IS NULL`
	var count int
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("count pending proposals: %w", err)
	}
	return count, nil
}

// ListOpenAssigned returns the open work orders currently owned by employeeID.
func (r *MaintenanceRepository) ListOpenAssigned(ctx context.Context, employeeID string) ([]models.WorkOrder, error) {
	query := `SELECT ` + workOrderColumns + ` FROM maintenance
	WHERE employee_id = $1 AND end_date IS NULL ORDER BY report_date ASC`
	var orders []models.WorkOrder
	if err := r.db.SelectContext(ctx, &orders, query, employeeID); err != nil {
		return nil, fmt.Errorf("list assigned work orders: %w", err)
	}
	return orders, nil
}

// CountOpenAssigned counts the open work orders owned by employeeID.
func (r *MaintenanceRepository) CountOpenAssigned(ctx context.Context, employeeID string) (int, error) {
	const query = `SELECT COUNT(*) FROM maintenance WHERE employee_id = $1 AND end_date IS NULL`
	var count int
	if err := r.db.GetContext(ctx, &count, query, employeeID); err != nil {
		return 0, fmt.Errorf("count assigned work orders: %w", err)
	}
	return count, nil
}

// IsMaintenanceEmployee reports whether employeeID is an active maintenance worker.
func (r *MaintenanceRepository) IsMaintenanceEmployee(ctx context.Context, employeeID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM employees WHERE id = $1 AND role = $2 AND active)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, employeeID, models.RoleMaintenance); err != nil {
		return false, fmt.Errorf("check maintenance employee: %w", err)
	}
	return exists, nil
}

// Propose records a reassignment suggestion. It only matches an open work order
// without a pending proposal and never touches the current assignee.
func (r *MaintenanceRepository) Propose(ctx context.Context, id, candidateID, proposerID string) (*models.WorkOrder, error) {
	query := `UPDATE maintenance SET pending_employee_id = $2, assignment_requested_by = $3
	WHERE id = $1 AND pending_employee_id IS NULL AND end_date IS NULL
	RETURNING ` + workOrderColumns
	return r.transition(ctx, "work_order_propose", id, query, id, candidateID, proposerID)
}

// AssignDirect sets the assignee of an open work order and drops any pending proposal.
func (r *MaintenanceRepository) AssignDirect(ctx context.Context, id, assigneeID string) (*models.WorkOrder, error) {
	query := `UPDATE maintenance SET employee_id = $2, pending_employee_id = NULL, assignment_requested_by = NULL
	WHERE id = $1 AND end_date IS NULL
	RETURNING ` + workOrderColumns
	return r.transition(ctx, "work_order_assign", id, query, id, assigneeID)
}

// ResolveProposal approves or rejects the pending proposal for expectedCandidate.
// The predicate pins the candidate the approver saw, so a proposal withdrawn and
// re-filed in between is not decided blindly.
func (r *MaintenanceRepository) ResolveProposal(ctx context.Context, id, expectedCandidate string, approve bool) (*models.WorkOrder, error) {
	set := `pending_employee_id = NULL, assignment_requested_by = NULL`
	label := "work_order_reject_proposal"
	if approve {
		set = `employee_id = pending_employee_id, ` + set
		label = "work_order_approve_proposal"
	}
	query := `UPDATE maintenance SET ` + set + `
	WHERE id = $1 AND pending_employee_id = $2
	RETURNING ` + workOrderColumns
	return r.transition(ctx, label, id, query, id, expectedCandidate)
}

// CompleteParams closes a work order.
type CompleteParams struct {
	ID        string
	StartDate time.Time
	EndDate   time.Time
	Cost      float64
}

// Complete closes an open work order, clears any pending proposal and returns the
// ride to service once it has no other open work order.
func (r *MaintenanceRepository) Complete(ctx context.Context, params CompleteParams) (*models.WorkOrder, error) {
	var order models.WorkOrder
	err := r.runner.InTx(ctx, "work_order_complete", func(ctx context.Context, tx *sqlx.Tx) error {
		query := `UPDATE maintenance SET start_date = $2, end_date = $3, cost = $4,
	pending_employee_id = NULL, assignment_requested_by = NULL
	WHERE id = $1 AND end_date IS NULL
	RETURNING ` + workOrderColumns
		if err := tx.GetContext(ctx, &order, query, params.ID, params.StartDate, params.EndDate, params.Cost); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return classifyWorkOrder(ctx, tx, params.ID)
			}
			return fmt.Errorf("complete work order: %w", err)
		}
		const ride = `UPDATE rides SET status = $2 WHERE id = $1
	AND NOT EXISTS (SELECT 1 FROM maintenance WHERE ride_id = $1 AND end_date IS NULL)`
		if _, err := tx.ExecContext(ctx, ride, order.RideID, models.RideStatusOperational); err != nil {
			return fmt.Errorf("restore ride status: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *MaintenanceRepository) transition(ctx context.Context, label, id, query string, args ...interface{}) (*models.WorkOrder, error) {
	var order models.WorkOrder
	err := r.runner.InTx(ctx, label, func(ctx context.Context, tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &order, query, args...); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return classifyWorkOrder(ctx, tx, id)
			}
			return fmt.Errorf("%s: %w", label, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// classifyWorkOrder explains why a conditional work order transition matched nothing.
func classifyWorkOrder(ctx context.Context, tx *sqlx.Tx, id string) error {
	var endDate sql.NullTime
	if err := tx.GetContext(ctx, &endDate, `SELECT end_date FROM maintenance WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sql.ErrNoRows
		}
		return fmt.Errorf("reload work order: %w", err)
	}
	if endDate.Valid {
		return ErrWorkOrderClosed
	}
	return ErrAlreadyProcessed
}
