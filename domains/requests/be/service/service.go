package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upkeephq/upkeep/platform/go/clock"
)

// Errors returned by the service layer.
var (
	ErrNotFound = errors.New("maintenance request not found")
)

// Repository abstracts request persistence.
type Repository interface {
	Create(ctx context.Context, r TenantRequest) (TenantRequest, error)
	Get(ctx context.Context, id uuid.UUID) (TenantRequest, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]TenantRequest, error)
	ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]TenantRequest, error)
	Save(ctx context.Context, r TenantRequest) (TenantRequest, error)
}

// NotificationSink consumes lifecycle events after a successful state change.
// Delivery mechanics (email, push) live behind this boundary.
type NotificationSink interface {
	Notify(ctx context.Context, event Event)
}

// LogSink is a NotificationSink that records events on the structured log.
// It stands in wherever real delivery is not wired.
type LogSink struct {
	Logger *zap.Logger
}

func (s LogSink) Notify(ctx context.Context, event Event) {
	if s.Logger != nil {
		s.Logger.Info("lifecycle event", zap.String("kind", event.Kind()), zap.Any("event", event))
	}
}

// AssignmentCloser releases the assigned worker's booking when scheduled work
// is reported complete. The worker directory satisfies it; a nil closer leaves
// worker bookings untouched.
type AssignmentCloser interface {
	CloseAssignment(ctx context.Context, workerEmail string, requestID uuid.UUID, success bool) error
}

// SubmitInput represents a tenant's submission intent.
type SubmitInput struct {
	PropertyID  uuid.UUID
	TenantID    uuid.UUID
	Title       string
	Description string
	Urgency     Urgency
}

// Service provides maintenance request lifecycle operations.
type Service struct {
	repo        Repository
	sink        NotificationSink
	clk         clock.Clock
	rateLimit   RateLimitConfig
	assignments AssignmentCloser
}

// New constructs a Service with required dependencies.
func New(repo Repository, sink NotificationSink, clk clock.Clock, rateLimit RateLimitConfig) *Service {
	if repo == nil {
		panic("requests repo is required")
	}
	if sink == nil {
		panic("notification sink is required")
	}
	if clk == nil {
		panic("clock is required")
	}
	return &Service{repo: repo, sink: sink, clk: clk, rateLimit: rateLimit}
}

// WithAssignmentCloser wires the worker directory so completion reports
// release the worker's booking alongside the request transition.
func (s *Service) WithAssignmentCloser(closer AssignmentCloser) *Service {
	s.assignments = closer
	return s
}

// Submit checks the rate-limit policy and, when admitted, creates the request
// and submits it for review in one step. The decision is returned either way;
// a refused submission creates nothing.
func (s *Service) Submit(ctx context.Context, input SubmitInput) (TenantRequest, SubmissionDecision, error) {
	existing, err := s.repo.ListByTenant(ctx, input.TenantID)
	if err != nil {
		return TenantRequest{}, SubmissionDecision{}, err
	}

	decision := EvaluateSubmission(existing, input.Urgency, s.rateLimit, s.clk.Now())
	if !decision.Allowed {
		return TenantRequest{}, decision, nil
	}

	req, err := NewTenantRequest(input.PropertyID, input.TenantID, input.Title, input.Description, input.Urgency)
	if err != nil {
		return TenantRequest{}, decision, err
	}
	if err := req.SubmitForReview(); err != nil {
		return TenantRequest{}, decision, err
	}

	// The outbox is drained before the aggregate reaches the repository so no
	// stored copy carries pending events; delivery waits for the save.
	events := req.DrainEvents()
	saved, err := s.repo.Create(ctx, req)
	if err != nil {
		return TenantRequest{}, decision, err
	}
	s.notify(ctx, events)
	return saved, decision, nil
}

// Get returns a request by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (TenantRequest, error) {
	return s.repo.Get(ctx, id)
}

// ListByTenant returns all requests filed by a tenant, newest first.
func (s *Service) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]TenantRequest, error) {
	return s.repo.ListByTenant(ctx, tenantID)
}

// Decline refuses a submitted request with a reason.
func (s *Service) Decline(ctx context.Context, id uuid.UUID, reason string) (TenantRequest, error) {
	return s.mutate(ctx, id, func(r *TenantRequest) error {
		return r.DeclineRequest(reason)
	})
}

// ReportCompletion records the outcome of scheduled work and releases the
// worker's booking for the request. The worker save goes first; a failure
// there leaves the request untouched and still Scheduled.
func (s *Service) ReportCompletion(ctx context.Context, id uuid.UUID, success bool, notes string) (TenantRequest, error) {
	req, err := s.repo.Get(ctx, id)
	if err != nil {
		return TenantRequest{}, err
	}
	if err := req.ReportWorkCompleted(success, notes); err != nil {
		return TenantRequest{}, err
	}
	if s.assignments != nil && req.AssignedWorkerEmail != nil {
		if err := s.assignments.CloseAssignment(ctx, *req.AssignedWorkerEmail, req.ID, success); err != nil {
			return TenantRequest{}, err
		}
	}
	events := req.DrainEvents()
	saved, err := s.repo.Save(ctx, req)
	if err != nil {
		return TenantRequest{}, err
	}
	s.notify(ctx, events)
	return saved, nil
}

// Close finishes a done or declined request.
func (s *Service) Close(ctx context.Context, id uuid.UUID, notes string) (TenantRequest, error) {
	return s.mutate(ctx, id, func(r *TenantRequest) error {
		return r.CloseRequest(notes)
	})
}

// mutate loads, applies one lifecycle operation, drains the outbox, persists,
// then delivers the drained events.
func (s *Service) mutate(ctx context.Context, id uuid.UUID, op func(*TenantRequest) error) (TenantRequest, error) {
	req, err := s.repo.Get(ctx, id)
	if err != nil {
		return TenantRequest{}, err
	}
	if err := op(&req); err != nil {
		return TenantRequest{}, err
	}
	events := req.DrainEvents()
	saved, err := s.repo.Save(ctx, req)
	if err != nil {
		return TenantRequest{}, err
	}
	s.notify(ctx, events)
	return saved, nil
}

func (s *Service) notify(ctx context.Context, events []Event) {
	for _, e := range events {
		s.sink.Notify(ctx, e)
	}
}
