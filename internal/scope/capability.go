// Package scope maps an actor's role and location to what they may see and do
// on the approval surfaces.
package scope

import (
	"strings"

	"github.com/parkops/parkops-api/internal/models"
)

// Capability is a single permission bit in the role matrix.
type Capability uint16

const (
	// CapArbitrateReassignment allows seeing and deciding reassignment proposals.
	CapArbitrateReassignment Capability = 1 << iota
	// CapDecideInventory allows approving and rejecting restock requests.
	CapDecideInventory
	// CapParkWide lifts the location restriction on inventory decisions.
	CapParkWide
	CapProposeReassignment
	CapDirectAssign
	CapRequestInventory
	CapReportDefect
	CapCompleteWorkOrder
	// CapHoldAssignments marks roles that receive work orders and a personal badge.
	CapHoldAssignments
)

var capabilityNames = map[Capability]string{
	CapArbitrateReassignment: "arbitrate_reassignment",
	CapDecideInventory:       "decide_inventory",
	CapParkWide:              "park_wide",
	CapProposeReassignment:   "propose_reassignment",
	CapDirectAssign:          "direct_assign",
	CapRequestInventory:      "request_inventory",
	CapReportDefect:          "report_defect",
	CapCompleteWorkOrder:     "complete_work_order",
	CapHoldAssignments:       "hold_assignments",
}

const senior = CapArbitrateReassignment | CapDecideInventory | CapParkWide | CapDirectAssign |
	CapRequestInventory | CapReportDefect | CapCompleteWorkOrder

// matrix is the single source of role permissions.
var matrix = map[models.Role]Capability{
	models.RoleAdmin:           senior,
	models.RoleParkManager:     senior,
	models.RoleLocationManager: CapDecideInventory | CapDirectAssign | CapRequestInventory | CapReportDefect | CapCompleteWorkOrder,
	models.RoleMaintenance:     CapProposeReassignment | CapReportDefect | CapCompleteWorkOrder | CapHoldAssignments,
	models.RoleStaff:           CapRequestInventory | CapReportDefect,
}

// CapabilitiesOf returns the capability set for role. Unknown roles get none.
func CapabilitiesOf(role models.Role) Capability {
	return matrix[role]
}

// RolesWith lists every role holding all of caps.
func RolesWith(caps Capability) []models.Role {
	roles := make([]models.Role, 0, len(matrix))
	for _, role := range []models.Role{
		models.RoleAdmin,
		models.RoleParkManager,
		models.RoleLocationManager,
		models.RoleMaintenance,
		models.RoleStaff,
	} {
		if matrix[role]&caps == caps {
			roles = append(roles, role)
		}
	}
	return roles
}

func (c Capability) String() string {
	if c == 0 {
		return "none"
	}
	names := make([]string, 0, len(capabilityNames))
	for bit := Capability(1); bit != 0 && bit <= CapHoldAssignments; bit <<= 1 {
		if c&bit != 0 {
			names = append(names, capabilityNames[bit])
		}
	}
	return strings.Join(names, "|")
}
