package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/upkeephq/upkeep/domains/requests/be/service"
)

// MemoryRepository is a simple in-memory implementation suitable for tests and early development.
type MemoryRepository struct {
	mu   sync.RWMutex
	byID map[uuid.UUID]service.TenantRequest
}

// NewMemoryRepository constructs a MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[uuid.UUID]service.TenantRequest)}
}

func (r *MemoryRepository) Create(ctx context.Context, req service.TenantRequest) (service.TenantRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	req.CreatedAt = now
	req.UpdatedAt = now
	r.byID[req.ID] = req
	return req, nil
}

func (r *MemoryRepository) Get(ctx context.Context, id uuid.UUID) (service.TenantRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	req, ok := r.byID[id]
	if !ok {
		return service.TenantRequest{}, service.ErrNotFound
	}
	return req, nil
}

func (r *MemoryRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]service.TenantRequest, error) {
	return r.list(func(req service.TenantRequest) bool { return req.TenantID == tenantID })
}

func (r *MemoryRepository) ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]service.TenantRequest, error) {
	return r.list(func(req service.TenantRequest) bool { return req.PropertyID == propertyID })
}

func (r *MemoryRepository) list(match func(service.TenantRequest) bool) ([]service.TenantRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var items []service.TenantRequest
	for _, req := range r.byID {
		if match(req) {
			items = append(items, req)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	return items, nil
}

func (r *MemoryRepository) Save(ctx context.Context, req service.TenantRequest) (service.TenantRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[req.ID]; !ok {
		return service.TenantRequest{}, service.ErrNotFound
	}
	req.UpdatedAt = time.Now().UTC()
	r.byID[req.ID] = req
	return req, nil
}

// Ensure interface compliance.
var _ service.Repository = (*MemoryRepository)(nil)
