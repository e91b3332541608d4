package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parkops/parkops-api/internal/models"
)

func TestStockRepositoryGet(t *testing.T) {
	db, mock, cleanup := newWorkflowRepoMock(t)
	defer cleanup()

	repo := NewStockRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT vendor_id, item_id, count FROM inventory")).
		WithArgs("vendor-1", "item-1").
		WillReturnRows(sqlmock.NewRows([]string{"vendor_id", "item_id", "count"}).AddRow("vendor-1", "item-1", 15))

	level, err := repo.Get(context.Background(), "vendor-1", "item-1")
	require.NoError(t, err)
	assert.Equal(t, 15, level.Count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStockRepositoryGetUnknownPairReadsZero(t *testing.T) {
	db, mock, cleanup := newWorkflowRepoMock(t)
	defer cleanup()

	repo := NewStockRepository(db)
	mock.ExpectQuery("FROM inventory").WithArgs("vendor-1", "item-9").WillReturnError(sql.ErrNoRows)

	level, err := repo.Get(context.Background(), "vendor-1", "item-9")
	require.NoError(t, err)
	assert.Equal(t, models.StockLevel{VendorID: "vendor-1", ItemID: "item-9"}, *level)
}

func TestAuditRepositoryCreateAuditLog(t *testing.T) {
	db, mock, cleanup := newWorkflowRepoMock(t)
	defer cleanup()

	repo := NewAuditRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	user := "mgr-1"
	entry := &models.AuditLog{UserID: &user, Action: models.AuditActionInventoryApprove, Resource: "inventory_request"}
	require.NoError(t, repo.CreateAuditLog(context.Background(), entry))
	assert.NotEmpty(t, entry.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepositoryWrapsErrors(t *testing.T) {
	db, mock, cleanup := newWorkflowRepoMock(t)
	defer cleanup()

	repo := NewAuditRepository(db)
	mock.ExpectExec("INSERT INTO audit_logs").WillReturnError(errors.New("disk full"))

	err := repo.CreateAuditLog(context.Background(), &models.AuditLog{Action: models.AuditActionDefectReport})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create audit log")
}
