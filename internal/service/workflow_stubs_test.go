package service

import (
	"context"
	"database/sql"
	"sync"

	"github.com/parkops/parkops-api/internal/models"
	"github.com/parkops/parkops-api/internal/repository"
)

type auditRecorder struct {
	mu   sync.Mutex
	logs []*models.AuditLog
}

func (a *auditRecorder) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, log)
	return nil
}

func (a *auditRecorder) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.logs))
	for _, log := range a.logs {
		out = append(out, log.Action)
	}
	return out
}

type transitionKey struct{ kind, action, outcome string }

type transitionStub struct {
	mu     sync.Mutex
	counts map[transitionKey]int
}

func (t *transitionStub) RecordTransition(kind, action, outcome string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.counts == nil {
		t.counts = make(map[transitionKey]int)
	}
	t.counts[transitionKey{kind, action, outcome}]++
}

func (t *transitionStub) count(kind, action, outcome string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[transitionKey{kind, action, outcome}]
}

// inventoryStoreStub mimics the conditional update of the SQL store: the mutex
// stands in for the row lock, and Decide only matches a Pending row.
type inventoryStoreStub struct {
	mu       sync.Mutex
	requests map[string]*models.InventoryRequest
	stock    map[[2]string]int
	vendors  map[string]string
	filter   models.InventoryRequestFilter
	err      error
}

func newInventoryStoreStub() *inventoryStoreStub {
	return &inventoryStoreStub{
		requests: make(map[string]*models.InventoryRequest),
		stock:    make(map[[2]string]int),
		vendors:  map[string]string{"vendor-1": "loc-a", "vendor-2": "loc-b"},
	}
}

func (s *inventoryStoreStub) Create(_ context.Context, req *models.InventoryRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	location, ok := s.vendors[req.VendorID]
	if !ok {
		return sql.ErrNoRows
	}
	if req.ID == "" {
		req.ID = "req-" + req.VendorID + "-" + req.ItemID
	}
	req.LocationID = location
	req.Status = models.InventoryRequestPending
	copy := *req
	s.requests[req.ID] = &copy
	return nil
}

func (s *inventoryStoreStub) GetByID(_ context.Context, id string) (*models.InventoryRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	req, ok := s.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *req
	return &copy, nil
}

func (s *inventoryStoreStub) List(_ context.Context, filter models.InventoryRequestFilter) ([]models.InventoryRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = filter
	if s.err != nil {
		return nil, s.err
	}
	result := make([]models.InventoryRequest, 0, len(s.requests))
	for _, req := range s.requests {
		if filter.LocationID != "" && req.LocationID != filter.LocationID {
			continue
		}
		if filter.RequestedBy != "" && req.RequestedByID != filter.RequestedBy {
			continue
		}
		if len(filter.Status) > 0 && !containsStatus(filter.Status, req.Status) {
			continue
		}
		result = append(result, *req)
	}
	return result, nil
}

func (s *inventoryStoreStub) CountPending(_ context.Context, locationID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	count := 0
	for _, req := range s.requests {
		if req.Status == models.InventoryRequestPending && (locationID == "" || req.LocationID == locationID) {
			count++
		}
	}
	return count, nil
}

func (s *inventoryStoreStub) UpdateQuantity(_ context.Context, id, requesterID string, quantity int) (*models.InventoryRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok || req.RequestedByID != requesterID || req.Status != models.InventoryRequestPending {
		return nil, repository.ErrAlreadyProcessed
	}
	req.RequestedCount = quantity
	copy := *req
	return &copy, nil
}

func (s *inventoryStoreStub) Decide(_ context.Context, params repository.DecisionParams) (*models.InventoryRequest, *models.StockLevel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[params.ID]
	if !ok {
		return nil, nil, sql.ErrNoRows
	}
	if params.LocationID != "" && req.LocationID != params.LocationID {
		return nil, nil, repository.ErrOutOfScope
	}
	if req.Status != models.InventoryRequestPending {
		return nil, nil, repository.ErrAlreadyProcessed
	}
	req.Status = params.Status
	reviewer := params.ReviewerID
	req.ReviewedByID = &reviewer
	copy := *req
	if params.Status != models.InventoryRequestApproved {
		return &copy, nil, nil
	}
	key := [2]string{req.VendorID, req.ItemID}
	s.stock[key] += req.RequestedCount
	return &copy, &models.StockLevel{VendorID: req.VendorID, ItemID: req.ItemID, Count: s.stock[key]}, nil
}

func (s *inventoryStoreStub) Get(_ context.Context, vendorID, itemID string) (*models.StockLevel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &models.StockLevel{VendorID: vendorID, ItemID: itemID, Count: s.stock[[2]string{vendorID, itemID}]}, nil
}

func (s *inventoryStoreStub) seed(req models.InventoryRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copy := req
	if copy.Status == "" {
		copy.Status = models.InventoryRequestPending
	}
	s.requests[req.ID] = &copy
}

func containsStatus(list []models.InventoryRequestStatus, status models.InventoryRequestStatus) bool {
	for _, s := range list {
		if s == status {
			return true
		}
	}
	return false
}

func newActor(id string, role models.Role, location string) *models.ActorClaims {
	return &models.ActorClaims{UserID: id, Role: role, LocationID: location}
}
