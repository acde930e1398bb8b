package repo

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/upkeephq/upkeep/domains/workers/be/service"
)

// MemoryRepository is an in-memory worker store honoring the same optimistic
// version semantics as the postgres implementation.
type MemoryRepository struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]service.Worker
	byEmail map[string]uuid.UUID
}

// NewMemoryRepository constructs a MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:    make(map[uuid.UUID]service.Worker),
		byEmail: make(map[string]uuid.UUID),
	}
}

func (r *MemoryRepository) Create(ctx context.Context, w service.Worker) (service.Worker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[w.Email]; exists {
		return service.Worker{}, service.ErrConflictEmail
	}
	w.Version = 1
	r.byID[w.ID] = cloneWorker(w)
	r.byEmail[w.Email] = w.ID
	return w, nil
}

func (r *MemoryRepository) Get(ctx context.Context, id uuid.UUID) (service.Worker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	w, ok := r.byID[id]
	if !ok {
		return service.Worker{}, service.ErrNotFound
	}
	return cloneWorker(w), nil
}

func (r *MemoryRepository) FindByEmail(ctx context.Context, email string) (service.Worker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return service.Worker{}, service.ErrNotFound
	}
	return cloneWorker(r.byID[id]), nil
}

func (r *MemoryRepository) ListActive(ctx context.Context) ([]service.Worker, error) {
	return r.list(func(w service.Worker) bool { return w.Active })
}

func (r *MemoryRepository) ListAll(ctx context.Context) ([]service.Worker, error) {
	return r.list(func(service.Worker) bool { return true })
}

func (r *MemoryRepository) list(match func(service.Worker) bool) ([]service.Worker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var items []service.Worker
	for _, w := range r.byID {
		if match(w) {
			items = append(items, cloneWorker(w))
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Email < items[j].Email })
	return items, nil
}

// Save applies the optimistic version check: the stored version must match the
// loaded one or the write is refused with ErrStaleWorker.
func (r *MemoryRepository) Save(ctx context.Context, w service.Worker) (service.Worker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[w.ID]
	if !ok {
		return service.Worker{}, service.ErrNotFound
	}
	if current.Version != w.Version {
		return service.Worker{}, service.ErrStaleWorker
	}
	w.Version++
	r.byID[w.ID] = cloneWorker(w)
	return w, nil
}

func cloneWorker(w service.Worker) service.Worker {
	out := w
	out.Assignments = make([]service.Assignment, len(w.Assignments))
	copy(out.Assignments, w.Assignments)
	return out
}

// Ensure interface compliance.
var _ service.Repository = (*MemoryRepository)(nil)
