package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	requestsvc "github.com/upkeephq/upkeep/domains/requests/be/service"
	workersvc "github.com/upkeephq/upkeep/domains/workers/be/service"
	"github.com/upkeephq/upkeep/platform/go/clock"
)

// ErrConcurrentUpdate is surfaced after the single allowed retry also hits a
// version conflict. Callers present it as a user-visible "please retry".
var ErrConcurrentUpdate = errors.New("scheduling conflict, please retry")

// ScheduleCommand describes one scheduling attempt.
type ScheduleCommand struct {
	RequestID       uuid.UUID
	WorkerEmail     string
	PropertyCode    string
	UnitNumber      string
	ScheduledDate   time.Time
	WorkOrderNumber string
	// RequiredSpecialization overrides keyword inference when set.
	RequiredSpecialization string
	EmergencyOverride      bool
}

// ScheduleOutcome is the structured result of a scheduling attempt. A refused
// attempt is an expected outcome, not an error: Validation carries the
// unit-engine reason and DayCapExceeded flags the global per-day cap.
type ScheduleOutcome struct {
	Scheduled      bool
	Validation     ValidationResult
	DayCapExceeded bool
	Request        requestsvc.TenantRequest
}

// Scheduler composes the unit validation engine, the worker's global per-day
// cap and the request lifecycle into the single scheduling operation. Both
// caps must pass: the emergency override relaxes only the unit-scoped rule,
// never the per-day cap.
type Scheduler struct {
	requests       requestsvc.Repository
	workers        workersvc.Repository
	sink           requestsvc.NotificationSink
	clk            clock.Clock
	logger         *zap.Logger
	metrics        *Metrics
	inferenceRules []workersvc.InferenceRule
}

// NewScheduler constructs a Scheduler with required dependencies. Metrics may
// be nil.
func NewScheduler(requests requestsvc.Repository, workers workersvc.Repository, sink requestsvc.NotificationSink, clk clock.Clock, logger *zap.Logger, metrics *Metrics) *Scheduler {
	if requests == nil {
		panic("requests repo is required")
	}
	if workers == nil {
		panic("workers repo is required")
	}
	if sink == nil {
		panic("notification sink is required")
	}
	if clk == nil {
		panic("clock is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Scheduler{
		requests:       requests,
		workers:        workers,
		sink:           sink,
		clk:            clk,
		logger:         logger,
		metrics:        metrics,
		inferenceRules: workersvc.DefaultInferenceRules(),
	}
}

// WithInferenceRules replaces the keyword mapping used to derive a request's
// required specialization from its text.
func (s *Scheduler) WithInferenceRules(rules []workersvc.InferenceRule) *Scheduler {
	s.inferenceRules = rules
	return s
}

// ScheduleRequest runs the full check-then-act sequence: load snapshot,
// validate, transition, persist. A version conflict on the worker save means
// another scheduler raced us; the snapshot is reloaded and re-validated
// exactly once before giving up with ErrConcurrentUpdate.
func (s *Scheduler) ScheduleRequest(ctx context.Context, cmd ScheduleCommand) (ScheduleOutcome, error) {
	outcome, err := s.attempt(ctx, cmd)
	if err == nil || !errors.Is(err, workersvc.ErrStaleWorker) {
		return outcome, err
	}

	s.logger.Warn("worker snapshot raced, revalidating once",
		zap.String("worker", cmd.WorkerEmail),
		zap.String("request_id", cmd.RequestID.String()))

	outcome, err = s.attempt(ctx, cmd)
	if errors.Is(err, workersvc.ErrStaleWorker) {
		s.metrics.observe("conflict")
		return ScheduleOutcome{}, ErrConcurrentUpdate
	}
	return outcome, err
}

func (s *Scheduler) attempt(ctx context.Context, cmd ScheduleCommand) (ScheduleOutcome, error) {
	req, err := s.requests.Get(ctx, cmd.RequestID)
	if err != nil {
		return ScheduleOutcome{}, err
	}

	worker, err := s.workers.FindByEmail(ctx, cmd.WorkerEmail)
	if err != nil {
		return ScheduleOutcome{}, err
	}
	if !worker.Active {
		return ScheduleOutcome{}, workersvc.ErrWorkerInactive
	}

	snapshot, err := s.propertySnapshot(ctx, cmd.PropertyCode)
	if err != nil {
		return ScheduleOutcome{}, err
	}

	required := workersvc.ParseSpecialization(cmd.RequiredSpecialization)
	if required.IsZero() {
		required = workersvc.InferSpecialization(s.inferenceRules, req.Title+" "+req.Description)
	}

	validation := ValidateAssignment(ValidationInput{
		WorkerEmail:            worker.Email,
		WorkerSpecialization:   worker.Specialization,
		RequiredSpecialization: required,
		PropertyCode:           cmd.PropertyCode,
		UnitNumber:             cmd.UnitNumber,
		Date:                   cmd.ScheduledDate,
		Existing:               snapshot,
		EmergencyOverride:      cmd.EmergencyOverride,
	})
	if !validation.Admitted {
		s.metrics.observe(string(validation.Reason))
		return ScheduleOutcome{Validation: validation, Request: req}, nil
	}

	// Both caps must pass. An emergency admit from the unit engine can still
	// be refused here: no override exists for the global per-day cap.
	if !worker.IsAvailableForWork(cmd.ScheduledDate) {
		s.metrics.observe("worker_day_limit_exceeded")
		return ScheduleOutcome{Validation: validation, DayCapExceeded: true, Request: req}, nil
	}

	if err := req.ScheduleWork(worker.Email, cmd.ScheduledDate, cmd.WorkOrderNumber, s.clk.Today()); err != nil {
		return ScheduleOutcome{}, err
	}
	worker.AddAssignment(req.ID, cmd.PropertyCode, cmd.UnitNumber, cmd.ScheduledDate)

	// The outbox is drained before persisting so the stored request never
	// carries pending events; delivery waits until both saves land.
	events := req.DrainEvents()

	// The worker save carries the version token, so it goes first: losing the
	// race here aborts before the request row changes.
	savedWorker, err := s.workers.Save(ctx, worker)
	if err != nil {
		return ScheduleOutcome{}, err
	}
	saved, err := s.requests.Save(ctx, req)
	if err != nil {
		s.logger.Error("request save failed after worker assignment was persisted, cancelling booking",
			zap.String("request_id", req.ID.String()), zap.Error(err))
		if cancelErr := s.cancelBooking(ctx, savedWorker, req.ID); cancelErr != nil {
			s.logger.Error("booking compensation failed, worker holds capacity for an unscheduled request",
				zap.String("request_id", req.ID.String()),
				zap.String("worker", worker.Email),
				zap.Error(cancelErr))
		}
		return ScheduleOutcome{}, err
	}

	for _, e := range events {
		s.sink.Notify(ctx, e)
	}

	s.metrics.observe("scheduled")
	return ScheduleOutcome{Scheduled: true, Validation: validation, Request: saved}, nil
}

// cancelBooking compensates a half-applied schedule: the worker's just-added
// assignment is cancelled so it stops consuming capacity.
func (s *Scheduler) cancelBooking(ctx context.Context, w workersvc.Worker, requestID uuid.UUID) error {
	if err := w.UpdateAssignmentStatus(requestID, workersvc.AssignmentCancelled); err != nil {
		return err
	}
	_, err := s.workers.Save(ctx, w)
	return err
}

// RankCandidates orders the active workers able to take the request.
func (s *Scheduler) RankCandidates(ctx context.Context, required string, from time.Time, horizonDays int, isEmergency bool) ([]WorkerAvailability, error) {
	workers, err := s.workers.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	return RankWorkers(workers, workersvc.ParseSpecialization(required), clock.DateOf(from), horizonDays, isEmergency), nil
}

// propertySnapshot projects every worker's assignments for the property into
// the engine's input shape. Inactive workers stay in: their open assignments
// still occupy units.
func (s *Scheduler) propertySnapshot(ctx context.Context, propertyCode string) ([]PropertyAssignment, error) {
	all, err := s.workers.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	var snapshot []PropertyAssignment
	for i := range all {
		w := &all[i]
		for _, a := range w.Assignments {
			if a.PropertyCode != propertyCode {
				continue
			}
			snapshot = append(snapshot, PropertyAssignment{
				WorkerEmail: w.Email,
				UnitNumber:  a.UnitNumber,
				Date:        a.Date,
				Status:      a.Status,
			})
		}
	}
	return snapshot, nil
}
