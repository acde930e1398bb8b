package service

import (
	"time"

	"github.com/google/uuid"
)

// Event is a lifecycle notification emitted by TenantRequest transitions.
// Events feed downstream notification and audit consumers; aggregate state is
// the source of truth and events are never replayed to reconstruct it.
type Event interface {
	Kind() string
}

// RequestSubmitted signals Draft -> Submitted.
type RequestSubmitted struct {
	RequestID uuid.UUID
	TenantID  uuid.UUID
	Urgency   Urgency
}

func (RequestSubmitted) Kind() string { return "request.submitted" }

// WorkScheduled signals Submitted/Failed -> Scheduled.
type WorkScheduled struct {
	RequestID       uuid.UUID
	WorkerEmail     string
	ScheduledDate   time.Time
	WorkOrderNumber string
}

func (WorkScheduled) Kind() string { return "request.scheduled" }

// WorkCompleted signals Scheduled -> Done or Scheduled -> Failed.
type WorkCompleted struct {
	RequestID uuid.UUID
	Success   bool
	Notes     string
}

func (WorkCompleted) Kind() string { return "request.work_completed" }

// RequestDeclined signals Submitted -> Declined.
type RequestDeclined struct {
	RequestID uuid.UUID
	Reason    string
}

func (RequestDeclined) Kind() string { return "request.declined" }

// RequestClosed signals Done/Declined -> Closed.
type RequestClosed struct {
	RequestID uuid.UUID
	Notes     string
}

func (RequestClosed) Kind() string { return "request.closed" }
