package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parkops/parkops-api/internal/models"
)

func newWorkflowRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var inventoryRequestCols = []string{"id", "vendor_id", "item_id", "requested_count", "requested_by_id", "location_id", "status", "request_date", "reviewed_by_id", "reviewed_at"}

func TestInventoryRequestRepositoryCreateCopiesVendorLocation(t *testing.T) {
	db, mock, cleanup := newWorkflowRepoMock(t)
	defer cleanup()

	repo := NewInventoryRequestRepository(db, nil)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO inventory_requests")).
		WithArgs(sqlmock.AnyArg(), "vendor-1", "item-1", 10, "staff-1", models.InventoryRequestPending, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"location_id"}).AddRow("loc-a"))

	req := &models.InventoryRequest{VendorID: "vendor-1", ItemID: "item-1", RequestedCount: 10, RequestedByID: "staff-1"}
	require.NoError(t, repo.Create(context.Background(), req))
	assert.NotEmpty(t, req.ID)
	assert.Equal(t, "loc-a", req.LocationID)
	assert.Equal(t, models.InventoryRequestPending, req.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoryRequestRepositoryCreateUnknownVendor(t *testing.T) {
	db, mock, cleanup := newWorkflowRepoMock(t)
	defer cleanup()

	repo := NewInventoryRequestRepository(db, nil)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO inventory_requests")).
		WillReturnRows(sqlmock.NewRows([]string{"location_id"}))

	err := repo.Create(context.Background(), &models.InventoryRequest{VendorID: "ghost", ItemID: "item-1", RequestedCount: 1, RequestedByID: "staff-1"})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoryRequestRepositoryListScopesByLocation(t *testing.T) {
	db, mock, cleanup := newWorkflowRepoMock(t)
	defer cleanup()

	repo := NewInventoryRequestRepository(db, nil)
	rows := sqlmock.NewRows(inventoryRequestCols).
		AddRow("req-1", "vendor-1", "item-1", 4, "staff-1", "loc-a", "Pending", time.Now(), nil, nil)
	mock.ExpectQuery(`SELECT id, vendor_id, item_id.* FROM inventory_requests WHERE status IN \(\$1\) AND location_id = \$2 ORDER BY request_date ASC LIMIT 50 OFFSET 0`).
		WithArgs(models.InventoryRequestPending, "loc-a").
		WillReturnRows(rows)

	list, err := repo.List(context.Background(), models.InventoryRequestFilter{
		Status:     []models.InventoryRequestStatus{models.InventoryRequestPending},
		LocationID: "loc-a",
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "loc-a", list[0].LocationID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoryRequestRepositoryCountPendingParkWide(t *testing.T) {
	db, mock, cleanup := newWorkflowRepoMock(t)
	defer cleanup()

	repo := NewInventoryRequestRepository(db, nil)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM inventory_requests WHERE status IN \(\$1\)$`).
		WithArgs(models.InventoryRequestPending).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.CountPending(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoryRequestRepositoryUpdateQuantityAfterDecision(t *testing.T) {
	db, mock, cleanup := newWorkflowRepoMock(t)
	defer cleanup()

	repo := NewInventoryRequestRepository(db, nil)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE inventory_requests SET requested_count = $3")).
		WithArgs("req-1", "staff-1", 7).
		WillReturnRows(sqlmock.NewRows(inventoryRequestCols))

	_, err := repo.UpdateQuantity(context.Background(), "req-1", "staff-1", 7)
	require.ErrorIs(t, err, ErrAlreadyProcessed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoryRequestRepositoryApproveIncrementsStock(t *testing.T) {
	db, mock, cleanup := newWorkflowRepoMock(t)
	defer cleanup()

	repo := NewInventoryRequestRepository(db, nil)
	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE inventory_requests SET status = \$2, reviewed_by_id = \$3, reviewed_at = \$4\s+WHERE id = \$1 AND status = 'Pending' RETURNING`).
		WithArgs("req-1", models.InventoryRequestApproved, "manager-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(inventoryRequestCols).
			AddRow("req-1", "vendor-1", "item-1", 10, "staff-1", "loc-a", "Approved", now, "manager-1", now))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO inventory (vendor_id, item_id, count) VALUES ($1, $2, $3)")).
		WithArgs("vendor-1", "item-1", 10).
		WillReturnRows(sqlmock.NewRows([]string{"vendor_id", "item_id", "count"}).AddRow("vendor-1", "item-1", 15))
	mock.ExpectCommit()

	req, stock, err := repo.Decide(context.Background(), DecisionParams{
		ID:         "req-1",
		Status:     models.InventoryRequestApproved,
		ReviewerID: "manager-1",
	})
	require.NoError(t, err)
	assert.Equal(t, models.InventoryRequestApproved, req.Status)
	require.NotNil(t, stock)
	assert.Equal(t, 15, stock.Count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoryRequestRepositoryApproveAlreadyProcessed(t *testing.T) {
	db, mock, cleanup := newWorkflowRepoMock(t)
	defer cleanup()

	repo := NewInventoryRequestRepository(db, nil)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE inventory_requests SET status = $2")).
		WillReturnRows(sqlmock.NewRows(inventoryRequestCols))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, location_id FROM inventory_requests WHERE id = $1")).
		WithArgs("req-1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "location_id"}).AddRow("Approved", "loc-a"))
	mock.ExpectRollback()

	_, stock, err := repo.Decide(context.Background(), DecisionParams{
		ID:         "req-1",
		Status:     models.InventoryRequestApproved,
		ReviewerID: "manager-2",
	})
	require.ErrorIs(t, err, ErrAlreadyProcessed)
	assert.Nil(t, stock)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoryRequestRepositoryDecideOutOfScope(t *testing.T) {
	db, mock, cleanup := newWorkflowRepoMock(t)
	defer cleanup()

	repo := NewInventoryRequestRepository(db, nil)
	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE inventory_requests SET status = \$2.* AND location_id = \$5 RETURNING`).
		WithArgs("req-1", models.InventoryRequestRejected, "lm-a", sqlmock.AnyArg(), "loc-a").
		WillReturnRows(sqlmock.NewRows(inventoryRequestCols))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, location_id FROM inventory_requests")).
		WillReturnRows(sqlmock.NewRows([]string{"status", "location_id"}).AddRow("Pending", "loc-b"))
	mock.ExpectRollback()

	_, _, err := repo.Decide(context.Background(), DecisionParams{
		ID:         "req-1",
		Status:     models.InventoryRequestRejected,
		ReviewerID: "lm-a",
		LocationID: "loc-a",
	})
	require.ErrorIs(t, err, ErrOutOfScope)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoryRequestRepositoryRejectLeavesStock(t *testing.T) {
	db, mock, cleanup := newWorkflowRepoMock(t)
	defer cleanup()

	repo := NewInventoryRequestRepository(db, nil)
	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE inventory_requests SET status = $2")).
		WillReturnRows(sqlmock.NewRows(inventoryRequestCols).
			AddRow("req-1", "vendor-1", "item-1", 10, "staff-1", "loc-a", "Rejected", now, "manager-1", now))
	mock.ExpectCommit()

	req, stock, err := repo.Decide(context.Background(), DecisionParams{ID: "req-1", Status: models.InventoryRequestRejected, ReviewerID: "manager-1"})
	require.NoError(t, err)
	assert.Equal(t, models.InventoryRequestRejected, req.Status)
	assert.Nil(t, stock)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoryRequestRepositoryIncrementFailureRollsBack(t *testing.T) {
	db, mock, cleanup := newWorkflowRepoMock(t)
	defer cleanup()

	repo := NewInventoryRequestRepository(db, nil)
	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE inventory_requests SET status = $2")).
		WillReturnRows(sqlmock.NewRows(inventoryRequestCols).
			AddRow("req-1", "vendor-1", "item-1", 10, "staff-1", "loc-a", "Approved", now, "manager-1", now))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO inventory")).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, _, err := repo.Decide(context.Background(), DecisionParams{ID: "req-1", Status: models.InventoryRequestApproved, ReviewerID: "manager-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "increment inventory")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoryRequestRepositoryDecideRejectsPendingTarget(t *testing.T) {
	repo := NewInventoryRequestRepository(nil, nil)
	_, _, err := repo.Decide(context.Background(), DecisionParams{ID: "req-1", Status: models.InventoryRequestPending})
	require.Error(t, err)
}

func TestStockRepositoryMissingPairReadsZero(t *testing.T) {
	db, mock, cleanup := newWorkflowRepoMock(t)
	defer cleanup()

	repo := NewStockRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT vendor_id, item_id, count FROM inventory")).
		WithArgs("vendor-1", "item-9").
		WillReturnRows(sqlmock.NewRows([]string{"vendor_id", "item_id", "count"}))

	level, err := repo.Get(context.Background(), "vendor-1", "item-9")
	require.NoError(t, err)
	assert.Equal(t, 0, level.Count)
	assert.Equal(t, "item-9", level.ItemID)
	require.NoError(t, mock.ExpectationsWereMet())
}
