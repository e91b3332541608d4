package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parkops/parkops-api/internal/models"
	"github.com/parkops/parkops-api/internal/repository"
	appErrors "github.com/parkops/parkops-api/pkg/errors"
)

func newApprovalFixture() (*ApprovalService, *NotificationService, *inventoryStoreStub) {
	inventory, orders := seededStores()
	notifier := NewNotificationService(inventory, orders, repository.NewMemoryBaselineRepository(time.Hour), nil, nil)
	return NewApprovalService(inventory, orders, notifier, nil, nil), notifier, inventory
}

func TestApprovalServiceListBySeniorResetsBaseline(t *testing.T) {
	svc, notifier, _ := newApprovalFixture()
	ctx := context.Background()
	senior := newActor("pm-1", models.RoleParkManager, "")

	before := notifier.Refresh(ctx, senior)
	require.Equal(t, 4, before.NewSinceBaseline)

	queue, err := svc.List(ctx, senior)
	require.NoError(t, err)
	assert.Len(t, queue.Proposals, 1)
	assert.Len(t, queue.InventoryRequests, 3)
	assert.Equal(t, 4, queue.VisibleCount)

	after := notifier.Refresh(ctx, senior)
	assert.Equal(t, 4, after.VisibleCount)
	assert.Equal(t, 0, after.NewSinceBaseline)
}

func TestApprovalServiceLocationManagerSeesOwnLocationOnly(t *testing.T) {
	svc, _, inventory := newApprovalFixture()

	queue, err := svc.List(context.Background(), newActor("lm-b", models.RoleLocationManager, "loc-b"))
	require.NoError(t, err)
	assert.Empty(t, queue.Proposals)
	require.Len(t, queue.InventoryRequests, 1)
	assert.Equal(t, "b1", queue.InventoryRequests[0].ID)
	assert.Equal(t, "loc-b", inventory.filter.LocationID)
}

func TestApprovalServiceForbiddenRoles(t *testing.T) {
	svc, _, _ := newApprovalFixture()
	for _, actor := range []*models.ActorClaims{
		newActor("staff-1", models.RoleStaff, "loc-a"),
		newActor("emp-m", models.RoleMaintenance, ""),
		newActor("lm-x", models.RoleLocationManager, ""),
	} {
		_, err := svc.List(context.Background(), actor)
		require.True(t, appErrors.Is(err, appErrors.ErrForbidden), "role %s", actor.Role)
	}
	_, err := svc.List(context.Background(), nil)
	require.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}

func TestApprovalServiceExport(t *testing.T) {
	svc, notifier, _ := newApprovalFixture()
	ctx := context.Background()
	senior := newActor("pm-1", models.RoleParkManager, "")

	file, err := svc.Export(ctx, senior, "csv")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(file.Filename, ".csv"))
	lines := strings.Split(strings.TrimSpace(string(file.Body)), "\n")
	assert.Len(t, lines, 5)
	assert.Equal(t, 4, notifier.Refresh(ctx, senior).NewSinceBaseline)

	pdf, err := svc.Export(ctx, senior, "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", pdf.ContentType)
	assert.True(t, bytes.HasPrefix(pdf.Body, []byte("%PDF")))

	_, err = svc.Export(ctx, senior, "docx")
	require.True(t, appErrors.Is(err, appErrors.ErrValidation))
}
