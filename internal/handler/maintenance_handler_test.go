package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parkops/parkops-api/internal/dto"
	"github.com/parkops/parkops-api/internal/models"
	appErrors "github.com/parkops/parkops-api/pkg/errors"
)

type maintenanceServiceMock struct {
	reassignReq  dto.ReassignRequest
	reassignResp *dto.ReassignResponse
	resolveReq   dto.ResolveProposalRequest
	resolveCalls int
	completeReq  dto.CompleteWorkOrderRequest
	err          error
}

func (m *maintenanceServiceMock) Report(ctx context.Context, req dto.ReportDefectRequest, actor *models.ActorClaims) (*models.WorkOrder, error) {
	return &models.WorkOrder{ID: "wo-1", RideID: req.RideID}, m.err
}

func (m *maintenanceServiceMock) ListMine(ctx context.Context, actor *models.ActorClaims) ([]models.WorkOrder, error) {
	return []models.WorkOrder{{ID: "wo-1"}}, m.err
}

func (m *maintenanceServiceMock) GetForReassign(ctx context.Context, id string, actor *models.ActorClaims) (*models.WorkOrder, error) {
	return &models.WorkOrder{ID: id}, m.err
}

func (m *maintenanceServiceMock) Reassign(ctx context.Context, id string, req dto.ReassignRequest, actor *models.ActorClaims) (*dto.ReassignResponse, error) {
	m.reassignReq = req
	return m.reassignResp, m.err
}

func (m *maintenanceServiceMock) ApproveProposal(ctx context.Context, id string, req dto.ResolveProposalRequest, actor *models.ActorClaims) (*models.WorkOrder, error) {
	m.resolveCalls++
	m.resolveReq = req
	if m.err != nil {
		return nil, m.err
	}
	return &models.WorkOrder{ID: id}, nil
}

func (m *maintenanceServiceMock) RejectProposal(ctx context.Context, id string, req dto.ResolveProposalRequest, actor *models.ActorClaims) (*models.WorkOrder, error) {
	return m.ApproveProposal(ctx, id, req, actor)
}

func (m *maintenanceServiceMock) Complete(ctx context.Context, id string, req dto.CompleteWorkOrderRequest, actor *models.ActorClaims) (*models.WorkOrder, error) {
	m.completeReq = req
	if m.err != nil {
		return nil, m.err
	}
	return &models.WorkOrder{ID: id}, nil
}

func TestMaintenanceHandlerReassignProposes(t *testing.T) {
	mockSvc := &maintenanceServiceMock{reassignResp: &dto.ReassignResponse{Mode: dto.ReassignModeProposed, WorkOrder: &models.WorkOrder{ID: "wo-1"}}}
	handler := NewMaintenanceHandler(mockSvc, testLinks)
	c, w := newTestContext(http.MethodPost, "/maintenance/reassign/wo-1", []byte(`{"employeeId":"emp-2"}`), &models.ActorClaims{UserID: "emp-1", Role: models.RoleMaintenance})
	c.Params = gin.Params{{Key: "id", Value: "wo-1"}}

	handler.Reassign(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "emp-2", mockSvc.reassignReq.EmployeeID)
	assert.Contains(t, w.Body.String(), `"mode":"proposed"`)
}

func TestMaintenanceHandlerApproveWithoutBody(t *testing.T) {
	mockSvc := &maintenanceServiceMock{}
	handler := NewMaintenanceHandler(mockSvc, testLinks)
	c, w := newTestContext(http.MethodPost, "/approve/reassignment/wo-1", nil, &models.ActorClaims{UserID: "mgr-1", Role: models.RoleParkManager})
	c.Params = gin.Params{{Key: "id", Value: "wo-1"}}

	handler.ApproveProposal(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, mockSvc.resolveCalls)
	assert.Empty(t, mockSvc.resolveReq.EmployeeID)
}

func TestMaintenanceHandlerApproveWithPin(t *testing.T) {
	mockSvc := &maintenanceServiceMock{}
	handler := NewMaintenanceHandler(mockSvc, testLinks)
	c, w := newTestContext(http.MethodPost, "/approve/reassignment/wo-1", []byte(`{"employeeId":"emp-2"}`), &models.ActorClaims{UserID: "mgr-1", Role: models.RoleParkManager})
	c.Params = gin.Params{{Key: "id", Value: "wo-1"}}

	handler.ApproveProposal(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "emp-2", mockSvc.resolveReq.EmployeeID)
}

func TestMaintenanceHandlerRejectAlreadyProcessed(t *testing.T) {
	mockSvc := &maintenanceServiceMock{err: appErrors.Clone(appErrors.ErrAlreadyProcessed, "no pending proposal")}
	handler := NewMaintenanceHandler(mockSvc, testLinks)
	c, w := newTestContext(http.MethodPost, "/reject/reassignment/wo-1", nil, &models.ActorClaims{UserID: "mgr-1", Role: models.RoleParkManager})
	c.Params = gin.Params{{Key: "id", Value: "wo-1"}}

	handler.RejectProposal(c)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "/api/v1/approvals", w.Header().Get("Location"))
}

func TestMaintenanceHandlerCompleteBindsDates(t *testing.T) {
	mockSvc := &maintenanceServiceMock{}
	handler := NewMaintenanceHandler(mockSvc, testLinks)
	body := []byte(`{"startDate":"2026-05-01T08:00:00Z","endDate":"2026-05-01T12:00:00Z","cost":120.5}`)
	c, w := newTestContext(http.MethodPost, "/maintenance/complete/wo-1", body, &models.ActorClaims{UserID: "emp-1", Role: models.RoleMaintenance})
	c.Params = gin.Params{{Key: "id", Value: "wo-1"}}

	handler.Complete(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, mockSvc.completeReq.EndDate)
	assert.Equal(t, 120.5, mockSvc.completeReq.Cost)
	assert.Equal(t, 8, mockSvc.completeReq.StartDate.Hour())
}

func TestMaintenanceHandlerReportInvalidBody(t *testing.T) {
	handler := NewMaintenanceHandler(&maintenanceServiceMock{}, testLinks)
	c, w := newTestContext(http.MethodPost, "/maintenance/report", []byte(`[]`), &models.ActorClaims{UserID: "staff-1", Role: models.RoleStaff})

	handler.Report(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
