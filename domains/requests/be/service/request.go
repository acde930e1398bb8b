package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/upkeephq/upkeep/platform/go/clock"
)

// Status is the lifecycle state of a maintenance request.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusScheduled Status = "scheduled"
	StatusDone      Status = "done"
	StatusFailed    Status = "failed"
	StatusDeclined  Status = "declined"
	StatusClosed    Status = "closed"
)

// Terminal reports whether the request reached its final state. Closed is the
// only terminal status; Done and Declined requests still await closure.
func (s Status) Terminal() bool { return s == StatusClosed }

// Pending reports whether the request counts toward the tenant's pending cap.
// Everything short of Closed counts, including Done and Declined.
func (s Status) Pending() bool { return !s.Terminal() }

// Urgency is an ordered severity level.
type Urgency int

const (
	UrgencyNormal Urgency = iota
	UrgencyUrgent
	UrgencyEmergency
)

func (u Urgency) String() string {
	switch u {
	case UrgencyUrgent:
		return "urgent"
	case UrgencyEmergency:
		return "emergency"
	default:
		return "normal"
	}
}

// ParseUrgency maps stored strings back to the ordered level; unknown values
// default to normal.
func ParseUrgency(s string) Urgency {
	switch s {
	case "urgent":
		return UrgencyUrgent
	case "emergency":
		return UrgencyEmergency
	default:
		return UrgencyNormal
	}
}

// ErrInvalidTransition is the sentinel wrapped by every TransitionError.
var ErrInvalidTransition = errors.New("invalid lifecycle transition")

// ErrInvalidSchedule flags malformed scheduling input: a past date or a
// missing worker or work order. Handlers map it to a client error.
var ErrInvalidSchedule = errors.New("invalid schedule")

// TransitionError identifies the state and operation of a rejected lifecycle
// move. These are business-rule violations, never retryable.
type TransitionError struct {
	From Status
	Op   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s a request in status %q", e.Op, e.From)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// TenantRequest is the aggregate for a tenant-filed maintenance request. State
// changes only through the named lifecycle operations below; each appends
// exactly one event to the outbox for the caller to drain after persisting.
type TenantRequest struct {
	ID          uuid.UUID
	PropertyID  uuid.UUID
	TenantID    uuid.UUID
	Title       string
	Description string
	Urgency     Urgency
	Status      Status

	AssignedWorkerEmail *string
	ScheduledDate       *time.Time
	WorkOrderNumber     *string
	CompletionNotes     string
	ClosureNotes        string
	DeclineReason       string

	// Timestamps are owned by the persistence boundary.
	CreatedAt time.Time
	UpdatedAt time.Time

	events []Event
}

// NewTenantRequest creates a request in Draft. The caller must have run the
// submission rate-limit policy first.
func NewTenantRequest(propertyID, tenantID uuid.UUID, title, description string, urgency Urgency) (TenantRequest, error) {
	if title == "" {
		return TenantRequest{}, fmt.Errorf("request title is required")
	}
	return TenantRequest{
		ID:          uuid.New(),
		PropertyID:  propertyID,
		TenantID:    tenantID,
		Title:       title,
		Description: description,
		Urgency:     urgency,
		Status:      StatusDraft,
	}, nil
}

// SubmitForReview moves Draft -> Submitted.
func (r *TenantRequest) SubmitForReview() error {
	if r.Status != StatusDraft {
		return &TransitionError{From: r.Status, Op: "submit"}
	}
	r.Status = StatusSubmitted
	r.record(RequestSubmitted{RequestID: r.ID, TenantID: r.TenantID, Urgency: r.Urgency})
	return nil
}

// ScheduleWork moves Submitted -> Scheduled, or Failed -> Scheduled on a
// reschedule. The date check compares calendar days only: scheduling for today
// is valid no matter the current wall-clock time.
func (r *TenantRequest) ScheduleWork(workerEmail string, scheduledDate time.Time, workOrderNumber string, today time.Time) error {
	if r.Status != StatusSubmitted && r.Status != StatusFailed {
		return &TransitionError{From: r.Status, Op: "schedule"}
	}
	if workerEmail == "" {
		return fmt.Errorf("%w: worker email is required", ErrInvalidSchedule)
	}
	if workOrderNumber == "" {
		return fmt.Errorf("%w: work order number is required", ErrInvalidSchedule)
	}
	day := clock.DateOf(scheduledDate)
	if day.Before(clock.DateOf(today)) {
		return fmt.Errorf("%w: scheduled date %s is in the past", ErrInvalidSchedule, day.Format("2006-01-02"))
	}

	r.Status = StatusScheduled
	r.AssignedWorkerEmail = &workerEmail
	r.ScheduledDate = &day
	r.WorkOrderNumber = &workOrderNumber
	r.record(WorkScheduled{
		RequestID:       r.ID,
		WorkerEmail:     workerEmail,
		ScheduledDate:   day,
		WorkOrderNumber: workOrderNumber,
	})
	return nil
}

// ReportWorkCompleted moves Scheduled -> Done on success or Scheduled -> Failed
// otherwise. Notes are stored verbatim; empty notes are allowed.
func (r *TenantRequest) ReportWorkCompleted(success bool, notes string) error {
	if r.Status != StatusScheduled {
		return &TransitionError{From: r.Status, Op: "report completion"}
	}
	if success {
		r.Status = StatusDone
	} else {
		r.Status = StatusFailed
	}
	r.CompletionNotes = notes
	r.record(WorkCompleted{RequestID: r.ID, Success: success, Notes: notes})
	return nil
}

// DeclineRequest moves Submitted -> Declined. A reason is required.
func (r *TenantRequest) DeclineRequest(reason string) error {
	if r.Status != StatusSubmitted {
		return &TransitionError{From: r.Status, Op: "decline"}
	}
	if reason == "" {
		return fmt.Errorf("decline reason is required")
	}
	r.Status = StatusDeclined
	r.DeclineReason = reason
	r.record(RequestDeclined{RequestID: r.ID, Reason: reason})
	return nil
}

// CloseRequest moves Done or Declined -> Closed. Closed is terminal; the row
// is retained forever.
func (r *TenantRequest) CloseRequest(closureNotes string) error {
	if r.Status != StatusDone && r.Status != StatusDeclined {
		return &TransitionError{From: r.Status, Op: "close"}
	}
	r.Status = StatusClosed
	r.ClosureNotes = closureNotes
	r.record(RequestClosed{RequestID: r.ID, Notes: closureNotes})
	return nil
}

func (r *TenantRequest) record(e Event) {
	r.events = append(r.events, e)
}

// Events returns the pending outbox entries.
func (r *TenantRequest) Events() []Event {
	return r.events
}

// DrainEvents returns and clears the outbox. Callers drain before handing the
// aggregate to a repository, so no stored copy ever carries pending events,
// and deliver only after the save succeeds. Events notify, they never rebuild
// state.
func (r *TenantRequest) DrainEvents() []Event {
	out := r.events
	r.events = nil
	return out
}
