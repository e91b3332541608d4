package models

import "time"

// ReassignmentState is derived from the proposal columns of a work order.
type ReassignmentState string

const (
	ReassignmentStable  ReassignmentState = "Stable"
	ReassignmentPending ReassignmentState = "ProposalPending"
)

// Ride statuses written as a side effect of reporting and closing work orders.
const (
	RideStatusBroken      = "Broken"
	RideStatusOperational = "Operational"
)

// WorkOrder is a maintenance record tracking a reported ride defect through repair.
type WorkOrder struct {
	ID               string     `db:"id" json:"id"`
	RideID           string     `db:"ride_id" json:"rideId"`
	Summary          string     `db:"summary" json:"summary"`
	AssigneeID       *string    `db:"employee_id" json:"assigneeId,omitempty"`
	ProposedAssignee *string    `db:"pending_employee_id" json:"proposedAssigneeId,omitempty"`
	ProposedBy       *string    `db:"assignment_requested_by" json:"proposedBy,omitempty"`
	ReportDate       time.Time  `db:"report_date" json:"reportDate"`
	StartDate        *time.Time `db:"start_date" json:"startDate,omitempty"`
	EndDate          *time.Time `db:"end_date" json:"endDate,omitempty"`
	Cost             *float64   `db:"cost" json:"cost,omitempty"`
}

// Open reports whether the underlying defect is still unresolved.
func (w *WorkOrder) Open() bool {
	return w.EndDate == nil
}

// State returns the reassignment state of the work order.
func (w *WorkOrder) State() ReassignmentState {
	if w.ProposedAssignee != nil {
		return ReassignmentPending
	}
	return ReassignmentStable
}

// IsAssignedTo reports whether employeeID currently owns the work order.
func (w *WorkOrder) IsAssignedTo(employeeID string) bool {
	return w.AssigneeID != nil && *w.AssigneeID == employeeID
}
