package scope

import (
	"github.com/parkops/parkops-api/internal/models"
	appErrors "github.com/parkops/parkops-api/pkg/errors"
)

// Scope is the resolved visibility and authority of one actor.
type Scope struct {
	Role       models.Role
	LocationID string
	caps       Capability
}

// Resolve builds the scope for a role bound to locationID.
func Resolve(role models.Role, locationID string) Scope {
	return Scope{Role: role, LocationID: locationID, caps: CapabilitiesOf(role)}
}

// For resolves the scope of an authenticated actor. A nil actor has no scope.
func For(actor *models.ActorClaims) Scope {
	if actor == nil {
		return Scope{}
	}
	return Resolve(actor.Role, actor.LocationID)
}

// Has reports whether the scope holds every capability in c.
func (s Scope) Has(c Capability) bool {
	return c != 0 && s.caps&c == c
}

// Require returns an authorization error unless the scope holds c.
func (s Scope) Require(c Capability) error {
	if s.Has(c) {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "role "+string(s.Role)+" lacks "+c.String())
}

// CanViewApprovals reports whether the actor has any approval surface at all.
func (s Scope) CanViewApprovals() bool {
	return s.Has(CapArbitrateReassignment) || s.inventoryVisible()
}

// ProposalsVisible reports whether reassignment proposals are visible. Only park-wide
// arbitrators see them; location managers never do.
func (s Scope) ProposalsVisible() bool {
	return s.Has(CapArbitrateReassignment)
}

// InventoryFilter returns the location restriction for inventory requests. visible is
// false when the actor may not see any request; an empty locationID with visible true
// means park-wide.
func (s Scope) InventoryFilter() (locationID string, visible bool) {
	if !s.inventoryVisible() {
		return "", false
	}
	if s.Has(CapParkWide) {
		return "", true
	}
	return s.LocationID, true
}

// CanSeeInventoryRequest applies the visibility predicate to a single row.
func (s Scope) CanSeeInventoryRequest(req *models.InventoryRequest) bool {
	if req == nil {
		return false
	}
	location, visible := s.InventoryFilter()
	if !visible {
		return false
	}
	return location == "" || location == req.LocationID
}

// AuthorizeInventoryDecision checks that the actor may approve or reject req.
func (s Scope) AuthorizeInventoryDecision(req *models.InventoryRequest) error {
	if err := s.Require(CapDecideInventory); err != nil {
		return err
	}
	if !s.CanSeeInventoryRequest(req) {
		return appErrors.Clone(appErrors.ErrForbidden, "inventory request belongs to another location")
	}
	return nil
}

// AuthorizeProposalDecision checks that the actor may approve or reject a reassignment proposal.
func (s Scope) AuthorizeProposalDecision() error {
	return s.Require(CapArbitrateReassignment)
}

// DecisionLocation is the location predicate the store must re-check when the actor
// decides an inventory request. Park-wide actors return an empty string.
func (s Scope) DecisionLocation() string {
	if s.Has(CapParkWide) {
		return ""
	}
	return s.LocationID
}

func (s Scope) inventoryVisible() bool {
	if !s.Has(CapDecideInventory) {
		return false
	}
	return s.Has(CapParkWide) || s.LocationID != ""
}
