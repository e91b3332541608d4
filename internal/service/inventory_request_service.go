package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/parkops/parkops-api/internal/dto"
	"github.com/parkops/parkops-api/internal/models"
	"github.com/parkops/parkops-api/internal/repository"
	"github.com/parkops/parkops-api/internal/scope"
	appErrors "github.com/parkops/parkops-api/pkg/errors"
)

const kindInventory = "inventory"

type inventoryRequestStore interface {
	Create(ctx context.Context, req *models.InventoryRequest) error
	GetByID(ctx context.Context, id string) (*models.InventoryRequest, error)
	List(ctx context.Context, filter models.InventoryRequestFilter) ([]models.InventoryRequest, error)
	UpdateQuantity(ctx context.Context, id, requesterID string, quantity int) (*models.InventoryRequest, error)
	Decide(ctx context.Context, params repository.DecisionParams) (*models.InventoryRequest, *models.StockLevel, error)
}

type stockReader interface {
	Get(ctx context.Context, vendorID, itemID string) (*models.StockLevel, error)
}

// InventoryRequestService runs the restock workflow: Pending requests are edited by
// their requester and decided once by an in-scope approver.
type InventoryRequestService struct {
	repo      inventoryRequestStore
	stock     stockReader
	audit     auditLogger
	metrics   transitionRecorder
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewInventoryRequestService constructs the service.
func NewInventoryRequestService(repo inventoryRequestStore, stock stockReader, audit auditLogger, metrics transitionRecorder, validate *validator.Validate, logger *zap.Logger) *InventoryRequestService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryRequestService{
		repo:      repo,
		stock:     stock,
		audit:     audit,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create files a Pending restock request for the actor.
func (s *InventoryRequestService) Create(ctx context.Context, req dto.CreateInventoryRequest, actor *models.ActorClaims) (*models.InventoryRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := scope.For(actor).Require(scope.CapRequestInventory); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "quantity must be positive and vendor and item are required")
	}
	request := &models.InventoryRequest{
		VendorID:       req.VendorID,
		ItemID:         req.ItemID,
		RequestedCount: req.Quantity,
		RequestedByID:  actor.UserID,
		RequestDate:    s.now(),
	}
	if err := s.repo.Create(ctx, request); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown vendor")
		}
		return nil, storeError(err, "failed to create inventory request")
	}
	s.emitAudit(ctx, actor.UserID, models.AuditActionInventoryCreate, request.ID, nil, request)
	return request, nil
}

// ListMine returns the actor's own requests, newest first.
func (s *InventoryRequestService) ListMine(ctx context.Context, query dto.InventoryRequestQuery, actor *models.ActorClaims) ([]models.InventoryRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	requests, err := s.repo.List(ctx, models.InventoryRequestFilter{
		Status:      query.Status,
		RequestedBy: actor.UserID,
		Limit:       query.Limit,
		Offset:      query.Offset,
	})
	if err != nil {
		return nil, storeError(err, "failed to list inventory requests")
	}
	return requests, nil
}

// GetForEdit loads a request the actor may edit.
func (s *InventoryRequestService) GetForEdit(ctx context.Context, id string, actor *models.ActorClaims) (*models.InventoryRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "failed to load inventory request")
	}
	if err := checkEditable(request, actor); err != nil {
		return nil, err
	}
	return request, nil
}

// Edit changes the quantity of a Pending request. A request that already left
// Pending reports AlreadyProcessed whoever asks; only then is the requester checked.
func (s *InventoryRequestService) Edit(ctx context.Context, id string, req dto.EditInventoryRequest, actor *models.ActorClaims) (result *models.InventoryRequest, err error) {
	defer func() { s.record("edit", err) }()
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "failed to load inventory request")
	}
	if err := checkEditable(current, actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "quantity must be positive")
	}
	updated, err := s.repo.UpdateQuantity(ctx, id, actor.UserID, req.Quantity)
	if err != nil {
		return nil, storeError(err, "failed to edit inventory request")
	}
	s.emitAudit(ctx, actor.UserID, models.AuditActionInventoryEdit, id,
		map[string]int{"requestedCount": current.RequestedCount},
		map[string]int{"requestedCount": updated.RequestedCount})
	return updated, nil
}

// Approve moves a Pending request to Approved and adds its quantity to stock.
func (s *InventoryRequestService) Approve(ctx context.Context, id string, actor *models.ActorClaims) (*dto.InventoryDecisionResponse, error) {
	return s.decide(ctx, id, models.InventoryRequestApproved, actor)
}

// Reject moves a Pending request to Rejected. Stock is untouched.
func (s *InventoryRequestService) Reject(ctx context.Context, id string, actor *models.ActorClaims) (*dto.InventoryDecisionResponse, error) {
	return s.decide(ctx, id, models.InventoryRequestRejected, actor)
}

// Stock returns the counter for a vendor/item pair.
func (s *InventoryRequestService) Stock(ctx context.Context, vendorID, itemID string, actor *models.ActorClaims) (*models.StockLevel, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if s.stock == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "stock reader not configured")
	}
	level, err := s.stock.Get(ctx, vendorID, itemID)
	if err != nil {
		return nil, storeError(err, "failed to load stock level")
	}
	return level, nil
}

func (s *InventoryRequestService) decide(ctx context.Context, id string, status models.InventoryRequestStatus, actor *models.ActorClaims) (result *dto.InventoryDecisionResponse, err error) {
	action := "approve"
	auditAction := models.AuditActionInventoryApprove
	if status == models.InventoryRequestRejected {
		action = "reject"
		auditAction = models.AuditActionInventoryReject
	}
	defer func() { s.record(action, err) }()

	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	actorScope := scope.For(actor)
	if err := actorScope.Require(scope.CapDecideInventory); err != nil {
		return nil, err
	}
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "failed to load inventory request")
	}
	if err := actorScope.AuthorizeInventoryDecision(current); err != nil {
		return nil, err
	}
	if current.Status != models.InventoryRequestPending {
		return nil, appErrors.Clone(appErrors.ErrAlreadyProcessed, "inventory request already "+string(current.Status))
	}

	decided, stock, err := s.repo.Decide(ctx, repository.DecisionParams{
		ID:         id,
		Status:     status,
		ReviewerID: actor.UserID,
		ReviewedAt: s.now(),
		LocationID: actorScope.DecisionLocation(),
	})
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyProcessed) {
			s.logger.Info("inventory request decided concurrently",
				zap.String("request_id", id), zap.String("actor", actor.UserID))
		}
		return nil, storeError(err, "failed to decide inventory request")
	}
	s.emitAudit(ctx, actor.UserID, auditAction, id,
		map[string]string{"status": string(models.InventoryRequestPending)},
		map[string]interface{}{"status": decided.Status, "stock": stock})
	return &dto.InventoryDecisionResponse{Request: decided, Stock: stock}, nil
}

func checkEditable(request *models.InventoryRequest, actor *models.ActorClaims) error {
	if request.Status != models.InventoryRequestPending {
		return appErrors.Clone(appErrors.ErrAlreadyProcessed, "inventory request already "+string(request.Status))
	}
	if request.RequestedByID != actor.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "only the requester may edit this request")
	}
	return nil
}

func (s *InventoryRequestService) record(action string, err error) {
	if s.metrics != nil {
		s.metrics.RecordTransition(kindInventory, action, outcomeOf(err))
	}
}

func (s *InventoryRequestService) emitAudit(ctx context.Context, userID, action, requestID string, oldValues, newValues interface{}) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "inventory_request",
		ResourceID: &requestID,
		IPAddress:  "system",
		UserAgent:  "inventory-request-service",
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
