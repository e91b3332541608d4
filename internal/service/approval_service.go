package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/parkops/parkops-api/internal/dto"
	"github.com/parkops/parkops-api/internal/models"
	"github.com/parkops/parkops-api/internal/scope"
	appErrors "github.com/parkops/parkops-api/pkg/errors"
	"github.com/parkops/parkops-api/pkg/export"
)

const approvalsPageSize = 200

type pendingInventoryLister interface {
	List(ctx context.Context, filter models.InventoryRequestFilter) ([]models.InventoryRequest, error)
}

type proposalLister interface {
	ListPendingProposals(ctx context.Context, limit int) ([]models.WorkOrder, error)
}

type approvalsNotifier interface {
	VisibleCount(ctx context.Context, actorScope scope.Scope) (int, error)
	MarkSeen(ctx context.Context, actor *models.ActorClaims, count int) error
}

// ApprovalService assembles the approvals queue for an actor.
type ApprovalService struct {
	inventory pendingInventoryLister
	proposals proposalLister
	notifier  approvalsNotifier
	exporter  *export.Exporter
	logger    *zap.Logger
	now       func() time.Time
}

// NewApprovalService constructs the service.
func NewApprovalService(inventory pendingInventoryLister, proposals proposalLister, notifier approvalsNotifier, exporter *export.Exporter, logger *zap.Logger) *ApprovalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if exporter == nil {
		exporter = export.New()
	}
	return &ApprovalService{
		inventory: inventory,
		proposals: proposals,
		notifier:  notifier,
		exporter:  exporter,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// List returns the pending items visible to the actor and resets the actor's
// notification baseline to the visible count.
func (s *ApprovalService) List(ctx context.Context, actor *models.ActorClaims) (*dto.ApprovalsResponse, error) {
	result, err := s.queue(ctx, actor)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		if err := s.notifier.MarkSeen(ctx, actor, result.VisibleCount); err != nil {
			s.logger.Warn("failed to reset notification baseline", zap.String("actor", actor.UserID), zap.Error(err))
		}
	}
	return result, nil
}

// ExportFile is a rendered approvals export.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// Export renders the actor's approvals queue as CSV or PDF. The baseline is left alone.
func (s *ApprovalService) Export(ctx context.Context, actor *models.ActorClaims, format string) (*ExportFile, error) {
	exportFormat, err := export.ParseFormat(format)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	result, err := s.queue(ctx, actor)
	if err != nil {
		return nil, err
	}
	body, err := s.exporter.Render(exportFormat, approvalsDataset(result), "Pending approvals")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("approvals-%s.%s", s.now().Format("20060102-150405"), exportFormat),
		ContentType: exportFormat.ContentType(),
		Body:        body,
	}, nil
}

func (s *ApprovalService) queue(ctx context.Context, actor *models.ActorClaims) (*dto.ApprovalsResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	actorScope := scope.For(actor)
	if !actorScope.CanViewApprovals() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "no approval queue for role "+string(actor.Role))
	}

	result := &dto.ApprovalsResponse{
		Proposals:         []models.WorkOrder{},
		InventoryRequests: []models.InventoryRequest{},
	}
	if actorScope.ProposalsVisible() {
		proposals, err := s.proposals.ListPendingProposals(ctx, approvalsPageSize)
		if err != nil {
			return nil, storeError(err, "failed to list reassignment proposals")
		}
		if proposals != nil {
			result.Proposals = proposals
		}
	}
	if location, visible := actorScope.InventoryFilter(); visible {
		requests, err := s.inventory.List(ctx, models.InventoryRequestFilter{
			Status:     []models.InventoryRequestStatus{models.InventoryRequestPending},
			LocationID: location,
			Limit:      approvalsPageSize,
		})
		if err != nil {
			return nil, storeError(err, "failed to list inventory requests")
		}
		if requests != nil {
			result.InventoryRequests = requests
		}
	}

	result.VisibleCount = len(result.Proposals) + len(result.InventoryRequests)
	if s.notifier != nil && (len(result.Proposals) == approvalsPageSize || len(result.InventoryRequests) == approvalsPageSize) {
		if count, err := s.notifier.VisibleCount(ctx, actorScope); err == nil {
			result.VisibleCount = count
		}
	}
	return result, nil
}

func approvalsDataset(result *dto.ApprovalsResponse) export.Dataset {
	headers := []string{"Kind", "ID", "Subject", "Detail", "Requested By", "Location", "Date"}
	rows := make([]map[string]string, 0, result.VisibleCount)
	for _, order := range result.Proposals {
		rows = append(rows, map[string]string{
			"Kind":         "Reassignment",
			"ID":           order.ID,
			"Subject":      order.RideID,
			"Detail":       "to " + deref(order.ProposedAssignee) + " from " + deref(order.AssigneeID),
			"Requested By": deref(order.ProposedBy),
			"Date":         order.ReportDate.Format("2006-01-02"),
		})
	}
	for _, req := range result.InventoryRequests {
		rows = append(rows, map[string]string{
			"Kind":         "Restock",
			"ID":           req.ID,
			"Subject":      req.VendorID + "/" + req.ItemID,
			"Detail":       "qty " + strconv.Itoa(req.RequestedCount),
			"Requested By": req.RequestedByID,
			"Location":     req.LocationID,
			"Date":         req.RequestDate.Format("2006-01-02"),
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

func deref(value *string) string {
	if value == nil {
		return "-"
	}
	return *value
}
