package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parkops/parkops-api/internal/dto"
	"github.com/parkops/parkops-api/internal/middleware"
	"github.com/parkops/parkops-api/internal/models"
	appErrors "github.com/parkops/parkops-api/pkg/errors"
	"github.com/parkops/parkops-api/pkg/response"
)

type inventoryServiceMock struct {
	createReq  dto.CreateInventoryRequest
	createResp *models.InventoryRequest
	listQuery  dto.InventoryRequestQuery
	listResp   []models.InventoryRequest
	editReq    dto.EditInventoryRequest
	editErr    error
	decideResp *dto.InventoryDecisionResponse
	decideErr  error
	decidedID  string
	stockResp  *models.StockLevel
	err        error
}

func (m *inventoryServiceMock) Create(ctx context.Context, req dto.CreateInventoryRequest, actor *models.ActorClaims) (*models.InventoryRequest, error) {
	m.createReq = req
	return m.createResp, m.err
}

func (m *inventoryServiceMock) ListMine(ctx context.Context, query dto.InventoryRequestQuery, actor *models.ActorClaims) ([]models.InventoryRequest, error) {
	m.listQuery = query
	return m.listResp, m.err
}

func (m *inventoryServiceMock) GetForEdit(ctx context.Context, id string, actor *models.ActorClaims) (*models.InventoryRequest, error) {
	return &models.InventoryRequest{ID: id}, m.editErr
}

func (m *inventoryServiceMock) Edit(ctx context.Context, id string, req dto.EditInventoryRequest, actor *models.ActorClaims) (*models.InventoryRequest, error) {
	m.editReq = req
	if m.editErr != nil {
		return nil, m.editErr
	}
	return &models.InventoryRequest{ID: id, RequestedCount: req.Quantity}, nil
}

func (m *inventoryServiceMock) Approve(ctx context.Context, id string, actor *models.ActorClaims) (*dto.InventoryDecisionResponse, error) {
	m.decidedID = id
	return m.decideResp, m.decideErr
}

func (m *inventoryServiceMock) Reject(ctx context.Context, id string, actor *models.ActorClaims) (*dto.InventoryDecisionResponse, error) {
	m.decidedID = id
	return m.decideResp, m.decideErr
}

func (m *inventoryServiceMock) Stock(ctx context.Context, vendorID, itemID string, actor *models.ActorClaims) (*models.StockLevel, error) {
	return m.stockResp, m.err
}

var testLinks = NewLinks("/api/v1/")

func newTestContext(method, target string, body []byte, actor *models.ActorClaims) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.Request = req
	if actor != nil {
		c.Set(middleware.ContextUserKey, actor)
	}
	return c, w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) response.Envelope {
	t.Helper()
	var env response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestInventoryHandlerCreate(t *testing.T) {
	mockSvc := &inventoryServiceMock{createResp: &models.InventoryRequest{ID: "req-1", Status: models.InventoryRequestPending}}
	handler := NewInventoryHandler(mockSvc, testLinks)

	payload, _ := json.Marshal(dto.CreateInventoryRequest{VendorID: "vendor-1", ItemID: "item-1", Quantity: 10})
	c, w := newTestContext(http.MethodPost, "/inventory/request", payload, &models.ActorClaims{UserID: "staff-1", Role: models.RoleStaff})

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 10, mockSvc.createReq.Quantity)
}

func TestInventoryHandlerCreateInvalidBody(t *testing.T) {
	handler := NewInventoryHandler(&inventoryServiceMock{}, testLinks)
	c, w := newTestContext(http.MethodPost, "/inventory/request", []byte(`{"vendorId":`), &models.ActorClaims{UserID: "staff-1", Role: models.RoleStaff})

	handler.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInventoryHandlerListMineParsesFilters(t *testing.T) {
	mockSvc := &inventoryServiceMock{listResp: []models.InventoryRequest{{ID: "req-1"}}}
	handler := NewInventoryHandler(mockSvc, testLinks)
	c, w := newTestContext(http.MethodGet, "/inventory/requests/mine?status=Pending,Approved&limit=10&offset=20", nil, &models.ActorClaims{UserID: "staff-1", Role: models.RoleStaff})

	handler.ListMine(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []models.InventoryRequestStatus{models.InventoryRequestPending, models.InventoryRequestApproved}, mockSvc.listQuery.Status)
	assert.Equal(t, 10, mockSvc.listQuery.Limit)
	assert.Equal(t, 20, mockSvc.listQuery.Offset)
}

func TestInventoryHandlerListMineRejectsUnknownStatus(t *testing.T) {
	handler := NewInventoryHandler(&inventoryServiceMock{}, testLinks)
	c, w := newTestContext(http.MethodGet, "/inventory/requests/mine?status=Shipped", nil, &models.ActorClaims{UserID: "staff-1", Role: models.RoleStaff})

	handler.ListMine(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInventoryHandlerApprove(t *testing.T) {
	mockSvc := &inventoryServiceMock{decideResp: &dto.InventoryDecisionResponse{
		Request: &models.InventoryRequest{ID: "req-1", Status: models.InventoryRequestApproved},
		Stock:   &models.StockLevel{VendorID: "vendor-1", ItemID: "item-1", Count: 15},
	}}
	handler := NewInventoryHandler(mockSvc, testLinks)
	c, w := newTestContext(http.MethodPost, "/approve/inventory/req-1", nil, &models.ActorClaims{UserID: "mgr-1", Role: models.RoleParkManager})
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}

	handler.Approve(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-1", mockSvc.decidedID)
	assert.Contains(t, w.Body.String(), `"count":15`)
}

func TestInventoryHandlerApproveAlreadyProcessedPointsBack(t *testing.T) {
	mockSvc := &inventoryServiceMock{decideErr: appErrors.Clone(appErrors.ErrAlreadyProcessed, "inventory request already Approved")}
	handler := NewInventoryHandler(mockSvc, testLinks)
	c, w := newTestContext(http.MethodPost, "/approve/inventory/req-1", nil, &models.ActorClaims{UserID: "mgr-1", Role: models.RoleParkManager})
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}

	handler.Approve(c)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "/api/v1/approvals", w.Header().Get("Location"))
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, appErrors.ErrAlreadyProcessed.Code, env.Error.Code)
}

func TestInventoryHandlerRejectOutOfScope(t *testing.T) {
	mockSvc := &inventoryServiceMock{decideErr: appErrors.Clone(appErrors.ErrForbidden, "inventory request belongs to another location")}
	handler := NewInventoryHandler(mockSvc, testLinks)
	c, w := newTestContext(http.MethodPost, "/reject/inventory/req-9", nil, &models.ActorClaims{UserID: "lm-1", Role: models.RoleLocationManager, LocationID: "loc-a"})
	c.Params = gin.Params{{Key: "id", Value: "req-9"}}

	handler.Reject(c)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Header().Get("Location"))
}

func TestInventoryHandlerEditAfterDecision(t *testing.T) {
	mockSvc := &inventoryServiceMock{editErr: appErrors.Clone(appErrors.ErrAlreadyProcessed, "inventory request already Approved")}
	handler := NewInventoryHandler(mockSvc, testLinks)
	c, w := newTestContext(http.MethodPost, "/inventory/request/edit/req-1", []byte(`{"quantity":3}`), &models.ActorClaims{UserID: "staff-1", Role: models.RoleStaff})
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}

	handler.Edit(c)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "/api/v1/inventory/requests/mine", w.Header().Get("Location"))
	assert.Equal(t, 3, mockSvc.editReq.Quantity)
}
