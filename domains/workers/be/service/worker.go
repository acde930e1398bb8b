package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/upkeephq/upkeep/platform/go/clock"
)

// AssignmentStatus tracks an assignment through its life. Only Scheduled and
// InProgress count toward any capacity rule.
type AssignmentStatus string

const (
	AssignmentScheduled  AssignmentStatus = "scheduled"
	AssignmentInProgress AssignmentStatus = "in_progress"
	AssignmentCompleted  AssignmentStatus = "completed"
	AssignmentCancelled  AssignmentStatus = "cancelled"
	AssignmentFailed     AssignmentStatus = "failed"
)

// Active reports whether the status counts toward capacity.
func (s AssignmentStatus) Active() bool {
	return s == AssignmentScheduled || s == AssignmentInProgress
}

// Terminal reports whether the status frees capacity permanently.
func (s AssignmentStatus) Terminal() bool {
	return s == AssignmentCompleted || s == AssignmentCancelled || s == AssignmentFailed
}

// Assignment records one unit of work booked against a worker. Immutable once
// created except for its status.
type Assignment struct {
	RequestID    uuid.UUID
	PropertyCode string
	UnitNumber   string
	Date         time.Time // calendar date, midnight UTC
	Status       AssignmentStatus
}

// assignmentTransitions enumerates the legal status moves.
var assignmentTransitions = map[AssignmentStatus][]AssignmentStatus{
	AssignmentScheduled:  {AssignmentInProgress, AssignmentCancelled},
	AssignmentInProgress: {AssignmentCompleted, AssignmentFailed, AssignmentCancelled},
}

// MaxActivePerDay is the global per-day cap: a worker at or above this many
// active assignments on a date, across all units and properties, reports
// unavailable for new work. No override exists at this layer; the emergency
// override in the unit validation engine relaxes only the unit-scoped cap.
const MaxActivePerDay = 2

// Worker is the aggregate for a maintenance worker and the assignments booked
// against them.
type Worker struct {
	ID             uuid.UUID
	Email          string
	Name           string
	Phone          string
	Specialization Specialization
	Active         bool
	// Version is the optimistic-concurrency token owned by the persistence
	// boundary; business logic reads it only to pass it back on save.
	Version     int64
	Assignments []Assignment
}

// NewWorker constructs an active worker with no assignments.
func NewWorker(email, name, phone string, spec Specialization) (Worker, error) {
	if email == "" {
		return Worker{}, fmt.Errorf("worker email is required")
	}
	if spec.IsZero() {
		spec = General
	}
	return Worker{
		ID:             uuid.New(),
		Email:          email,
		Name:           name,
		Phone:          phone,
		Specialization: spec,
		Active:         true,
		Version:        1,
	}, nil
}

// CanHandle reports whether this worker's trade covers the required one.
func (w *Worker) CanHandle(required Specialization) bool {
	return w.Specialization.CanHandle(required)
}

// AddAssignment appends a new Scheduled assignment. The collection is
// append-only; assignments are never removed, only moved to terminal statuses.
func (w *Worker) AddAssignment(requestID uuid.UUID, propertyCode, unitNumber string, date time.Time) {
	w.Assignments = append(w.Assignments, Assignment{
		RequestID:    requestID,
		PropertyCode: propertyCode,
		UnitNumber:   unitNumber,
		Date:         clock.DateOf(date),
		Status:       AssignmentScheduled,
	})
}

// UpdateAssignmentStatus moves the first active assignment for the request to
// the given status, validating the transition.
func (w *Worker) UpdateAssignmentStatus(requestID uuid.UUID, next AssignmentStatus) error {
	for i := range w.Assignments {
		a := &w.Assignments[i]
		if a.RequestID != requestID || !a.Status.Active() {
			continue
		}
		for _, allowed := range assignmentTransitions[a.Status] {
			if allowed == next {
				a.Status = next
				return nil
			}
		}
		return fmt.Errorf("assignment for request %s cannot move %s -> %s", requestID, a.Status, next)
	}
	return fmt.Errorf("no active assignment for request %s", requestID)
}

// CompleteAssignment moves the active assignment for the request to Completed
// or Failed, freeing the worker's capacity on that date. A still-Scheduled
// assignment passes through InProgress so the transition table holds.
func (w *Worker) CompleteAssignment(requestID uuid.UUID, success bool) error {
	for i := range w.Assignments {
		a := &w.Assignments[i]
		if a.RequestID != requestID || !a.Status.Active() {
			continue
		}
		if a.Status == AssignmentScheduled {
			a.Status = AssignmentInProgress
		}
		if success {
			a.Status = AssignmentCompleted
		} else {
			a.Status = AssignmentFailed
		}
		return nil
	}
	return fmt.Errorf("no active assignment for request %s", requestID)
}

// ActiveAssignmentsOn counts non-terminal assignments on the given calendar
// date across all units and properties.
func (w *Worker) ActiveAssignmentsOn(date time.Time) int {
	day := clock.DateOf(date)
	count := 0
	for _, a := range w.Assignments {
		if a.Status.Active() && a.Date.Equal(day) {
			count++
		}
	}
	return count
}

// IsAvailableForWork applies the global per-day cap. Inactive workers are
// never available.
func (w *Worker) IsAvailableForWork(date time.Time) bool {
	if !w.Active {
		return false
	}
	return w.ActiveAssignmentsOn(date) < MaxActivePerDay
}

// BookedDatesInRange returns the calendar dates in [start, end] on which the
// worker is fully booked. With the emergency override the threshold rises from
// 2 to 3 active assignments.
func (w *Worker) BookedDatesInRange(start, end time.Time, emergencyOverride bool) []time.Time {
	threshold := 2
	if emergencyOverride {
		threshold = 3
	}
	return w.datesInRangeWhere(start, end, func(n int) bool { return n >= threshold })
}

// PartiallyBookedDatesInRange returns dates with exactly one active assignment.
func (w *Worker) PartiallyBookedDatesInRange(start, end time.Time) []time.Time {
	return w.datesInRangeWhere(start, end, func(n int) bool { return n == 1 })
}

func (w *Worker) datesInRangeWhere(start, end time.Time, match func(int) bool) []time.Time {
	var dates []time.Time
	for day := clock.DateOf(start); !day.After(clock.DateOf(end)); day = day.AddDate(0, 0, 1) {
		if match(w.ActiveAssignmentsOn(day)) {
			dates = append(dates, day)
		}
	}
	return dates
}

// AvailabilityScoreForDate grades a single date: 0 fully booked, 1 partially
// booked, 2 fully free. Inactive workers and past dates always score 0.
func (w *Worker) AvailabilityScoreForDate(date time.Time, isEmergency bool, today time.Time) int {
	if !w.Active {
		return 0
	}
	day := clock.DateOf(date)
	if day.Before(clock.DateOf(today)) {
		return 0
	}
	threshold := 2
	if isEmergency {
		threshold = 3
	}
	switch n := w.ActiveAssignmentsOn(day); {
	case n >= threshold:
		return 0
	case n >= 1:
		return 1
	default:
		return 2
	}
}

// NextFullyAvailableDate returns the first date >= from within the lookahead
// window with zero active assignments, or nil when none exists. Inactive
// workers have no availability.
func (w *Worker) NextFullyAvailableDate(from time.Time, maxLookaheadDays int) *time.Time {
	if !w.Active {
		return nil
	}
	start := clock.DateOf(from)
	for offset := 0; offset <= maxLookaheadDays; offset++ {
		day := start.AddDate(0, 0, offset)
		if w.ActiveAssignmentsOn(day) == 0 {
			return &day
		}
	}
	return nil
}

// CurrentWorkload counts all non-terminal assignments regardless of date.
func (w *Worker) CurrentWorkload() int {
	count := 0
	for _, a := range w.Assignments {
		if a.Status.Active() {
			count++
		}
	}
	return count
}

// RankingScore orders candidate workers for presentation: soonest fully-free
// date first, ties broken by lighter overall load. Lower is better. A worker
// with no free date inside the lookahead window scores past the horizon so
// they sort last but still appear.
func (w *Worker) RankingScore(referenceDate time.Time, maxLookaheadDays int) int {
	days := maxLookaheadDays + 1
	if next := w.NextFullyAvailableDate(referenceDate, maxLookaheadDays); next != nil {
		days = int(next.Sub(clock.DateOf(referenceDate)).Hours() / 24)
	}
	return days*100 + w.CurrentWorkload()
}
