package dto

import (
	"time"

	"github.com/parkops/parkops-api/internal/models"
)

// ReportDefectRequest opens a work order for a broken ride.
type ReportDefectRequest struct {
	RideID     string `json:"rideId" validate:"required"`
	Summary    string `json:"summary" validate:"required,max=500"`
	AssigneeID string `json:"assigneeId"`
}

// ReassignRequest names the employee a work order should move to. Maintenance
// workers file it as a proposal; managers apply it directly.
type ReassignRequest struct {
	EmployeeID string `json:"employeeId" validate:"required"`
}

// ResolveProposalRequest pins the candidate the approver reviewed. When empty the
// currently stored candidate is used.
type ResolveProposalRequest struct {
	EmployeeID string `json:"employeeId"`
}

// CompleteWorkOrderRequest closes a work order.
type CompleteWorkOrderRequest struct {
	StartDate time.Time  `json:"startDate" validate:"required"`
	EndDate   *time.Time `json:"endDate"`
	Cost      float64    `json:"cost" validate:"gte=0"`
}

// ReassignResponse reports which transition a reassign call ran.
type ReassignResponse struct {
	Mode      string            `json:"mode"`
	WorkOrder *models.WorkOrder `json:"workOrder"`
}

// Reassign modes.
const (
	ReassignModeProposed = "proposed"
	ReassignModeAssigned = "assigned"
)
