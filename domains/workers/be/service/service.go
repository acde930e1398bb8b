package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Errors returned by the service layer.
var (
	ErrNotFound       = errors.New("worker not found")
	ErrConflictEmail  = errors.New("worker email already exists")
	ErrStaleWorker    = errors.New("worker was modified concurrently")
	ErrWorkerInactive = errors.New("worker is inactive")
)

// Repository abstracts worker persistence. Save enforces the optimistic
// version token: it must fail with ErrStaleWorker when the stored version no
// longer matches the loaded one.
type Repository interface {
	Create(ctx context.Context, w Worker) (Worker, error)
	Get(ctx context.Context, id uuid.UUID) (Worker, error)
	FindByEmail(ctx context.Context, email string) (Worker, error)
	ListActive(ctx context.Context) ([]Worker, error)
	// ListAll includes inactive workers: their non-terminal assignments still
	// block units even though the workers take no new work.
	ListAll(ctx context.Context) ([]Worker, error)
	Save(ctx context.Context, w Worker) (Worker, error)
}

// CreateInput represents the request to register a worker.
type CreateInput struct {
	Email          string
	Name           string
	Phone          string
	Specialization string
}

// Service provides worker directory operations.
type Service struct {
	repo Repository
}

// New constructs a Service with required dependencies.
func New(repo Repository) *Service {
	if repo == nil {
		panic("workers repo is required")
	}
	return &Service{repo: repo}
}

// Create registers a new active worker.
func (s *Service) Create(ctx context.Context, input CreateInput) (Worker, error) {
	w, err := NewWorker(input.Email, input.Name, input.Phone, ParseSpecialization(input.Specialization))
	if err != nil {
		return Worker{}, err
	}
	return s.repo.Create(ctx, w)
}

// Get returns a worker by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Worker, error) {
	return s.repo.Get(ctx, id)
}

// FindByEmail returns a worker by email.
func (s *Service) FindByEmail(ctx context.Context, email string) (Worker, error) {
	return s.repo.FindByEmail(ctx, email)
}

// ListActive returns all active workers with their assignments loaded.
func (s *Service) ListActive(ctx context.Context) ([]Worker, error) {
	return s.repo.ListActive(ctx)
}

// ChangeSpecialization sets a new trade on the worker. The change is
// independent of any in-flight assignment.
func (s *Service) ChangeSpecialization(ctx context.Context, id uuid.UUID, spec string) (Worker, error) {
	w, err := s.repo.Get(ctx, id)
	if err != nil {
		return Worker{}, err
	}
	parsed := ParseSpecialization(spec)
	if parsed.IsZero() {
		parsed = General
	}
	w.Specialization = parsed
	return s.repo.Save(ctx, w)
}

// Deactivate flags the worker as inactive; an inactive worker reports zero
// availability and drops out of ranking.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) (Worker, error) {
	w, err := s.repo.Get(ctx, id)
	if err != nil {
		return Worker{}, err
	}
	w.Active = false
	return s.repo.Save(ctx, w)
}

// UpdateAssignmentStatus advances the worker's active assignment for a request
// and persists the aggregate.
func (s *Service) UpdateAssignmentStatus(ctx context.Context, workerEmail string, requestID uuid.UUID, next AssignmentStatus) (Worker, error) {
	w, err := s.repo.FindByEmail(ctx, workerEmail)
	if err != nil {
		return Worker{}, err
	}
	if err := w.UpdateAssignmentStatus(requestID, next); err != nil {
		return Worker{}, err
	}
	return s.repo.Save(ctx, w)
}

// CloseAssignment moves the worker's active assignment for the request to
// Completed or Failed and persists the aggregate. A version conflict is
// retried once against a fresh snapshot. Satisfies the requests service's
// AssignmentCloser so completion reports release the booking.
func (s *Service) CloseAssignment(ctx context.Context, workerEmail string, requestID uuid.UUID, success bool) error {
	err := s.closeAssignment(ctx, workerEmail, requestID, success)
	if errors.Is(err, ErrStaleWorker) {
		err = s.closeAssignment(ctx, workerEmail, requestID, success)
	}
	return err
}

func (s *Service) closeAssignment(ctx context.Context, workerEmail string, requestID uuid.UUID, success bool) error {
	w, err := s.repo.FindByEmail(ctx, workerEmail)
	if err != nil {
		return err
	}
	if err := w.CompleteAssignment(requestID, success); err != nil {
		return err
	}
	_, err = s.repo.Save(ctx, w)
	return err
}
