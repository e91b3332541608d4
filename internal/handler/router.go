package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/parkops/parkops-api/internal/middleware"
	"github.com/parkops/parkops-api/internal/scope"
)

// Routes groups the handlers and middleware mounted under the API prefix.
type Routes struct {
	Auth          *AuthHandler
	Approvals     *ApprovalHandler
	Inventory     *InventoryHandler
	Maintenance   *MaintenanceHandler
	Notifications *NotificationHandler

	Tokens      middleware.TokenValidator
	Badge       middleware.BadgeRefresher
	RateLimiter *middleware.ActorRateLimiter
}

// Register mounts the workflow endpoints on group. Every route needs a valid
// token; state changing routes are rate limited per actor.
func (r Routes) Register(group *gin.RouterGroup) {
	api := group.Group("")
	api.Use(middleware.JWT(r.Tokens), middleware.NotificationBadge(r.Badge))
	limited := middleware.RateLimit(r.RateLimiter)

	api.GET("/auth/me", r.Auth.Me)
	api.GET("/notifications", r.Notifications.Get)

	approvals := api.Group("", middleware.RequireApprover())
	approvals.GET("/approvals", r.Approvals.List)
	approvals.GET("/approvals/export", r.Approvals.Export)

	arbitrate := middleware.RequireAny(scope.CapArbitrateReassignment)
	api.POST("/approve/reassignment/:id", arbitrate, limited, r.Maintenance.ApproveProposal)
	api.POST("/reject/reassignment/:id", arbitrate, limited, r.Maintenance.RejectProposal)

	decide := middleware.RequireAny(scope.CapDecideInventory)
	api.POST("/approve/inventory/:id", decide, limited, r.Inventory.Approve)
	api.POST("/reject/inventory/:id", decide, limited, r.Inventory.Reject)
	api.GET("/inventory/stock/:vendorId/:itemId", decide, r.Inventory.Stock)

	request := middleware.RequireAny(scope.CapRequestInventory)
	api.POST("/inventory/request", request, limited, r.Inventory.Create)
	api.GET("/inventory/requests/mine", request, r.Inventory.ListMine)
	api.GET("/inventory/request/edit/:id", request, r.Inventory.GetEdit)
	api.POST("/inventory/request/edit/:id", request, limited, r.Inventory.Edit)

	reassign := middleware.RequireAny(scope.CapProposeReassignment, scope.CapDirectAssign)
	api.GET("/maintenance/reassign/:id", reassign, r.Maintenance.GetReassign)
	api.POST("/maintenance/reassign/:id", reassign, limited, r.Maintenance.Reassign)
	api.POST("/maintenance/report", middleware.RequireAny(scope.CapReportDefect), limited, r.Maintenance.Report)
	api.POST("/maintenance/complete/:id", middleware.RequireAny(scope.CapCompleteWorkOrder), limited, r.Maintenance.Complete)
	api.GET("/maintenance/mine", middleware.RequireAny(scope.CapHoldAssignments), r.Maintenance.ListMine)
}
