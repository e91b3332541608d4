package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/parkops/parkops-api/internal/models"
	"github.com/parkops/parkops-api/internal/scope"
	appErrors "github.com/parkops/parkops-api/pkg/errors"
)

type pendingCounter interface {
	CountPending(ctx context.Context, locationID string) (int, error)
}

type proposalCounter interface {
	CountPendingProposals(ctx context.Context) (int, error)
	CountOpenAssigned(ctx context.Context, employeeID string) (int, error)
}

// BaselineStore keeps the last observed approvals count per session.
type BaselineStore interface {
	Get(ctx context.Context, sessionKey string) (int, error)
	Set(ctx context.Context, sessionKey string, value int) error
}

type notificationMetrics interface {
	RecordDegraded()
	RecordBaselineLookup(hit bool)
}

// NotificationService computes the approvals badge. It is the only writer of the
// session baseline.
type NotificationService struct {
	inventory pendingCounter
	orders    proposalCounter
	baselines BaselineStore
	metrics   notificationMetrics
	logger    *zap.Logger
}

// NewNotificationService constructs the service.
func NewNotificationService(inventory pendingCounter, orders proposalCounter, baselines BaselineStore, metrics notificationMetrics, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{inventory: inventory, orders: orders, baselines: baselines, metrics: metrics, logger: logger}
}

// Refresh returns the visible approvals count and how many arrived since the actor
// last viewed the queue. Read failures degrade the badge to zero instead of failing
// the request.
func (s *NotificationService) Refresh(ctx context.Context, actor *models.ActorClaims) models.NotificationSummary {
	if actor == nil {
		return models.NotificationSummary{}
	}
	actorScope := scope.For(actor)
	visible, err := s.VisibleCount(ctx, actorScope)
	if err != nil {
		s.degrade(actor, err)
		return models.NotificationSummary{Degraded: true}
	}
	summary := models.NotificationSummary{VisibleCount: visible}

	if actorScope.Has(scope.CapHoldAssignments) && s.orders != nil {
		assigned, err := s.orders.CountOpenAssigned(ctx, actor.UserID)
		if err != nil {
			s.degrade(actor, err)
			summary.Degraded = true
		} else {
			summary.AssignedOpen = assigned
		}
	}

	summary.NewSinceBaseline = s.newSince(ctx, actor.SessionKey(), visible)
	return summary
}

// VisibleCount counts the pending proposals and inventory requests within the scope.
func (s *NotificationService) VisibleCount(ctx context.Context, actorScope scope.Scope) (int, error) {
	total := 0
	if actorScope.ProposalsVisible() && s.orders != nil {
		count, err := s.orders.CountPendingProposals(ctx)
		if err != nil {
			return 0, err
		}
		total += count
	}
	if location, visible := actorScope.InventoryFilter(); visible && s.inventory != nil {
		count, err := s.inventory.CountPending(ctx, location)
		if err != nil {
			return 0, err
		}
		total += count
	}
	return total, nil
}

// MarkSeen records count as the actor's baseline.
func (s *NotificationService) MarkSeen(ctx context.Context, actor *models.ActorClaims, count int) error {
	if actor == nil || s.baselines == nil {
		return nil
	}
	if count < 0 {
		count = 0
	}
	if err := s.baselines.Set(ctx, actor.SessionKey(), count); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store notification baseline")
	}
	return nil
}

func (s *NotificationService) newSince(ctx context.Context, sessionKey string, visible int) int {
	if s.baselines == nil {
		return visible
	}
	baseline, err := s.baselines.Get(ctx, sessionKey)
	switch {
	case err == nil:
		s.recordLookup(true)
	case errors.Is(err, appErrors.ErrCacheMiss):
		s.recordLookup(false)
		baseline = 0
	default:
		s.logger.Warn("notification baseline unavailable", zap.String("session", sessionKey), zap.Error(err))
		return 0
	}
	if delta := visible - baseline; delta > 0 {
		return delta
	}
	return 0
}

func (s *NotificationService) degrade(actor *models.ActorClaims, err error) {
	s.logger.Warn("notification refresh degraded", zap.String("actor", actor.UserID), zap.Error(err))
	if s.metrics != nil {
		s.metrics.RecordDegraded()
	}
}

func (s *NotificationService) recordLookup(hit bool) {
	if s.metrics != nil {
		s.metrics.RecordBaselineLookup(hit)
	}
}
