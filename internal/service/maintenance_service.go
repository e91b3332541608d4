package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/parkops/parkops-api/internal/dto"
	"github.com/parkops/parkops-api/internal/models"
	"github.com/parkops/parkops-api/internal/repository"
	"github.com/parkops/parkops-api/internal/scope"
	appErrors "github.com/parkops/parkops-api/pkg/errors"
)

const kindWorkOrder = "work_order"

type maintenanceStore interface {
	Create(ctx context.Context, order *models.WorkOrder) error
	GetByID(ctx context.Context, id string) (*models.WorkOrder, error)
	ListOpenAssigned(ctx context.Context, employeeID string) ([]models.WorkOrder, error)
	IsMaintenanceEmployee(ctx context.Context, employeeID string) (bool, error)
	Propose(ctx context.Context, id, candidateID, proposerID string) (*models.WorkOrder, error)
	AssignDirect(ctx context.Context, id, assigneeID string) (*models.WorkOrder, error)
	ResolveProposal(ctx context.Context, id, expectedCandidate string, approve bool) (*models.WorkOrder, error)
	Complete(ctx context.Context, params repository.CompleteParams) (*models.WorkOrder, error)
}

// MaintenanceService drives work orders from defect report through reassignment to
// completion.
type MaintenanceService struct {
	repo      maintenanceStore
	audit     auditLogger
	metrics   transitionRecorder
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewMaintenanceService constructs the service.
func NewMaintenanceService(repo maintenanceStore, audit auditLogger, metrics transitionRecorder, validate *validator.Validate, logger *zap.Logger) *MaintenanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MaintenanceService{
		repo:      repo,
		audit:     audit,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Report opens a work order for a broken ride.
func (s *MaintenanceService) Report(ctx context.Context, req dto.ReportDefectRequest, actor *models.ActorClaims) (*models.WorkOrder, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := scope.For(actor).Require(scope.CapReportDefect); err != nil {
		return nil, err
	}
	req.Summary = strings.TrimSpace(req.Summary)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "ride and summary are required")
	}
	order := &models.WorkOrder{RideID: req.RideID, Summary: req.Summary, ReportDate: s.now()}
	if req.AssigneeID != "" {
		if err := s.checkCandidate(ctx, req.AssigneeID); err != nil {
			return nil, err
		}
		assignee := req.AssigneeID
		order.AssigneeID = &assignee
	}
	if err := s.repo.Create(ctx, order); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown ride")
		}
		return nil, storeError(err, "failed to report defect")
	}
	s.emitAudit(ctx, actor.UserID, models.AuditActionDefectReport, order.ID, nil, order)
	return order, nil
}

// ListMine returns the open work orders assigned to the actor.
func (s *MaintenanceService) ListMine(ctx context.Context, actor *models.ActorClaims) ([]models.WorkOrder, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	orders, err := s.repo.ListOpenAssigned(ctx, actor.UserID)
	if err != nil {
		return nil, storeError(err, "failed to list work orders")
	}
	return orders, nil
}

// GetForReassign loads a work order the actor may propose or assign on.
func (s *MaintenanceService) GetForReassign(ctx context.Context, id string, actor *models.ActorClaims) (*models.WorkOrder, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if _, err := reassignMode(scope.For(actor)); err != nil {
		return nil, err
	}
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "failed to load work order")
	}
	return order, nil
}

// Reassign proposes a new assignee when the actor is a maintenance worker and
// assigns directly when the actor is a manager.
func (s *MaintenanceService) Reassign(ctx context.Context, id string, req dto.ReassignRequest, actor *models.ActorClaims) (result *dto.ReassignResponse, err error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	mode, err := reassignMode(scope.For(actor))
	action := "propose"
	if mode == dto.ReassignModeAssigned {
		action = "direct_assign"
	}
	defer func() { s.record(action, err) }()
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "employeeId is required")
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "failed to load work order")
	}
	if !current.Open() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "work order is already closed")
	}
	if current.IsAssignedTo(req.EmployeeID) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "employee already owns this work order")
	}
	if mode == dto.ReassignModeProposed && current.State() == models.ReassignmentPending {
		return nil, appErrors.Clone(appErrors.ErrAlreadyProcessed, "a reassignment proposal is already pending")
	}
	if err := s.checkCandidate(ctx, req.EmployeeID); err != nil {
		return nil, err
	}

	var updated *models.WorkOrder
	auditAction := models.AuditActionReassignPropose
	if mode == dto.ReassignModeProposed {
		updated, err = s.repo.Propose(ctx, id, req.EmployeeID, actor.UserID)
	} else {
		auditAction = models.AuditActionReassignDirect
		updated, err = s.repo.AssignDirect(ctx, id, req.EmployeeID)
	}
	if err != nil {
		return nil, storeError(err, "failed to reassign work order")
	}
	s.emitAudit(ctx, actor.UserID, auditAction, id, assignmentSnapshot(current), assignmentSnapshot(updated))
	return &dto.ReassignResponse{Mode: mode, WorkOrder: updated}, nil
}

// ApproveProposal moves the proposed assignee into the assignee slot.
func (s *MaintenanceService) ApproveProposal(ctx context.Context, id string, req dto.ResolveProposalRequest, actor *models.ActorClaims) (*models.WorkOrder, error) {
	return s.resolve(ctx, id, req, true, actor)
}

// RejectProposal discards the pending proposal and keeps the assignee.
func (s *MaintenanceService) RejectProposal(ctx context.Context, id string, req dto.ResolveProposalRequest, actor *models.ActorClaims) (*models.WorkOrder, error) {
	return s.resolve(ctx, id, req, false, actor)
}

// Complete closes a work order. Only its assignee or a manager may close it.
func (s *MaintenanceService) Complete(ctx context.Context, id string, req dto.CompleteWorkOrderRequest, actor *models.ActorClaims) (result *models.WorkOrder, err error) {
	defer func() { s.record("complete", err) }()
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	actorScope := scope.For(actor)
	if err := actorScope.Require(scope.CapCompleteWorkOrder); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "startDate is required and cost must not be negative")
	}
	end := s.now()
	if req.EndDate != nil {
		end = req.EndDate.UTC()
	}
	if end.Before(req.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "endDate must not precede startDate")
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "failed to load work order")
	}
	if actorScope.Has(scope.CapHoldAssignments) && !current.IsAssignedTo(actor.UserID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the assignee may complete this work order")
	}
	if !current.Open() {
		return nil, appErrors.Clone(appErrors.ErrAlreadyProcessed, "work order already closed")
	}
	updated, err := s.repo.Complete(ctx, repository.CompleteParams{ID: id, StartDate: req.StartDate.UTC(), EndDate: end, Cost: req.Cost})
	if err != nil {
		if errors.Is(err, repository.ErrWorkOrderClosed) {
			return nil, appErrors.Clone(appErrors.ErrAlreadyProcessed, "work order already closed")
		}
		return nil, storeError(err, "failed to complete work order")
	}
	s.emitAudit(ctx, actor.UserID, models.AuditActionWorkOrderComplete, id, nil, updated)
	return updated, nil
}

func (s *MaintenanceService) resolve(ctx context.Context, id string, req dto.ResolveProposalRequest, approve bool, actor *models.ActorClaims) (result *models.WorkOrder, err error) {
	action, auditAction := "reject", models.AuditActionReassignReject
	if approve {
		action, auditAction = "approve", models.AuditActionReassignApprove
	}
	defer func() { s.record(action, err) }()
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := scope.For(actor).AuthorizeProposalDecision(); err != nil {
		return nil, err
	}
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "failed to load work order")
	}
	if current.State() != models.ReassignmentPending {
		return nil, appErrors.Clone(appErrors.ErrAlreadyProcessed, "no reassignment proposal is pending")
	}
	expected := *current.ProposedAssignee
	if req.EmployeeID != "" && req.EmployeeID != expected {
		return nil, appErrors.Clone(appErrors.ErrAlreadyProcessed, "the pending proposal changed since it was reviewed")
	}
	updated, err := s.repo.ResolveProposal(ctx, id, expected, approve)
	if err != nil {
		return nil, storeError(err, "failed to resolve reassignment proposal")
	}
	s.emitAudit(ctx, actor.UserID, auditAction, id, assignmentSnapshot(current), assignmentSnapshot(updated))
	return updated, nil
}

func (s *MaintenanceService) checkCandidate(ctx context.Context, employeeID string) error {
	ok, err := s.repo.IsMaintenanceEmployee(ctx, employeeID)
	if err != nil {
		return storeError(err, "failed to verify employee")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrValidation, "employee is not an active maintenance worker")
	}
	return nil
}

// reassignMode picks the transition a reassign call runs for the actor.
func reassignMode(actorScope scope.Scope) (string, error) {
	switch {
	case actorScope.Has(scope.CapDirectAssign):
		return dto.ReassignModeAssigned, nil
	case actorScope.Has(scope.CapProposeReassignment):
		return dto.ReassignModeProposed, nil
	default:
		return "", actorScope.Require(scope.CapProposeReassignment)
	}
}

func assignmentSnapshot(order *models.WorkOrder) map[string]*string {
	if order == nil {
		return nil
	}
	return map[string]*string{
		"assigneeId":         order.AssigneeID,
		"proposedAssigneeId": order.ProposedAssignee,
		"proposedBy":         order.ProposedBy,
	}
}

func (s *MaintenanceService) record(action string, err error) {
	if s.metrics != nil {
		s.metrics.RecordTransition(kindWorkOrder, action, outcomeOf(err))
	}
}

func (s *MaintenanceService) emitAudit(ctx context.Context, userID, action, orderID string, oldValues, newValues interface{}) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "work_order",
		ResourceID: &orderID,
		IPAddress:  "system",
		UserAgent:  "maintenance-service",
	}
	if oldValues != nil {
		entry.OldValues, _ = json.Marshal(oldValues)
	}
	if newValues != nil {
		entry.NewValues, _ = json.Marshal(newValues)
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}
