package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func day(offset int) time.Time {
	base := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)
	return base.AddDate(0, 0, offset)
}

func testWorker(t *testing.T, spec Specialization) Worker {
	t.Helper()
	w, err := NewWorker("plumber@x", "Pat Doe", "", spec)
	require.NoError(t, err)
	return w
}

func withAssignment(w *Worker, unit string, date time.Time, status AssignmentStatus) {
	w.Assignments = append(w.Assignments, Assignment{
		RequestID:    uuid.New(),
		PropertyCode: "P-100",
		UnitNumber:   unit,
		Date:         date,
		Status:       status,
	})
}

func TestNewWorkerDefaults(t *testing.T) {
	w := testWorker(t, "")
	require.Equal(t, General, w.Specialization)
	require.True(t, w.Active)
	require.EqualValues(t, 1, w.Version)

	_, err := NewWorker("", "No Email", "", Plumbing)
	require.Error(t, err)
}

func TestInactiveWorkerScoresZeroEverywhere(t *testing.T) {
	w := testWorker(t, Plumbing)
	w.Active = false

	for offset := -2; offset <= 5; offset++ {
		require.Zero(t, w.AvailabilityScoreForDate(day(offset), false, day(0)))
		require.Zero(t, w.AvailabilityScoreForDate(day(offset), true, day(0)))
	}
	require.False(t, w.IsAvailableForWork(day(1)))
	require.Nil(t, w.NextFullyAvailableDate(day(0), 14))
}

func TestPastDatesScoreZero(t *testing.T) {
	w := testWorker(t, Plumbing)
	require.Zero(t, w.AvailabilityScoreForDate(day(-1), false, day(0)))
	require.Equal(t, 2, w.AvailabilityScoreForDate(day(0), false, day(0)))
}

func TestAvailabilityScoreThresholds(t *testing.T) {
	w := testWorker(t, Plumbing)

	require.Equal(t, 2, w.AvailabilityScoreForDate(day(1), false, day(0)))

	withAssignment(&w, "101", day(1), AssignmentScheduled)
	require.Equal(t, 1, w.AvailabilityScoreForDate(day(1), false, day(0)))

	withAssignment(&w, "102", day(1), AssignmentInProgress)
	require.Zero(t, w.AvailabilityScoreForDate(day(1), false, day(0)))

	// Emergency raises the fully-booked threshold to three.
	require.Equal(t, 1, w.AvailabilityScoreForDate(day(1), true, day(0)))
}

func TestTerminalAssignmentsFreeCapacity(t *testing.T) {
	w := testWorker(t, Plumbing)
	withAssignment(&w, "101", day(1), AssignmentCompleted)
	withAssignment(&w, "101", day(1), AssignmentCancelled)
	withAssignment(&w, "101", day(1), AssignmentFailed)

	require.Zero(t, w.ActiveAssignmentsOn(day(1)))
	require.True(t, w.IsAvailableForWork(day(1)))
	require.Equal(t, 2, w.AvailabilityScoreForDate(day(1), false, day(0)))
}

func TestGlobalDayCapAcrossUnits(t *testing.T) {
	w := testWorker(t, Plumbing)

	// Two different units of the same property on one day is a legitimate
	// booking; only the global cap limits a third anywhere.
	withAssignment(&w, "101", day(2), AssignmentScheduled)
	require.True(t, w.IsAvailableForWork(day(2)))

	withAssignment(&w, "102", day(2), AssignmentScheduled)
	require.False(t, w.IsAvailableForWork(day(2)))
	require.True(t, w.IsAvailableForWork(day(3)))
}

func TestBookedAndPartiallyBookedDates(t *testing.T) {
	w := testWorker(t, Plumbing)
	withAssignment(&w, "101", day(1), AssignmentScheduled)
	withAssignment(&w, "102", day(1), AssignmentScheduled)
	withAssignment(&w, "101", day(3), AssignmentScheduled)

	booked := w.BookedDatesInRange(day(0), day(5), false)
	require.Equal(t, []time.Time{day(1)}, booked)

	partial := w.PartiallyBookedDatesInRange(day(0), day(5))
	require.Equal(t, []time.Time{day(3)}, partial)

	// With the emergency override the threshold moves to three, so two
	// assignments no longer count as fully booked.
	require.Empty(t, w.BookedDatesInRange(day(0), day(5), true))
}

func TestNextFullyAvailableDate(t *testing.T) {
	w := testWorker(t, Plumbing)
	withAssignment(&w, "101", day(0), AssignmentScheduled)
	withAssignment(&w, "101", day(1), AssignmentScheduled)

	next := w.NextFullyAvailableDate(day(0), 14)
	require.NotNil(t, next)
	require.True(t, next.Equal(day(2)))
}

func TestNextFullyAvailableDateNilWhenSaturated(t *testing.T) {
	w := testWorker(t, Plumbing)
	for offset := 0; offset <= 3; offset++ {
		withAssignment(&w, "101", day(offset), AssignmentScheduled)
	}
	require.Nil(t, w.NextFullyAvailableDate(day(0), 3))
}

func TestRankingScore(t *testing.T) {
	free := testWorker(t, Plumbing)
	require.Zero(t, free.RankingScore(day(0), 14))

	busyToday := testWorker(t, Plumbing)
	withAssignment(&busyToday, "101", day(0), AssignmentScheduled)
	// Next free day is tomorrow, one active assignment in total.
	require.Equal(t, 101, busyToday.RankingScore(day(0), 14))

	saturated := testWorker(t, Plumbing)
	for offset := 0; offset <= 14; offset++ {
		withAssignment(&saturated, "101", day(offset), AssignmentScheduled)
	}
	require.Equal(t, 15*100+15, saturated.RankingScore(day(0), 14))
}

func TestAddAssignmentTruncatesToCalendarDay(t *testing.T) {
	w := testWorker(t, Plumbing)
	w.AddAssignment(uuid.New(), "P-100", "101", time.Date(2026, 8, 26, 17, 30, 0, 0, time.UTC))

	require.Len(t, w.Assignments, 1)
	require.True(t, w.Assignments[0].Date.Equal(day(0)))
	require.Equal(t, AssignmentScheduled, w.Assignments[0].Status)
}

func TestUpdateAssignmentStatus(t *testing.T) {
	w := testWorker(t, Plumbing)
	requestID := uuid.New()
	w.AddAssignment(requestID, "P-100", "101", day(1))

	require.NoError(t, w.UpdateAssignmentStatus(requestID, AssignmentInProgress))
	require.NoError(t, w.UpdateAssignmentStatus(requestID, AssignmentCompleted))

	// Terminal assignments are no longer addressable.
	require.Error(t, w.UpdateAssignmentStatus(requestID, AssignmentFailed))
}

func TestCompleteAssignmentFreesCapacity(t *testing.T) {
	w := testWorker(t, Plumbing)
	requestID := uuid.New()
	w.AddAssignment(requestID, "P-100", "101", day(1))
	w.AddAssignment(uuid.New(), "P-100", "102", day(1))
	require.False(t, w.IsAvailableForWork(day(1)))

	require.NoError(t, w.CompleteAssignment(requestID, true))
	require.Equal(t, AssignmentCompleted, w.Assignments[0].Status)
	require.True(t, w.IsAvailableForWork(day(1)))

	// Terminal assignments cannot be completed again.
	require.Error(t, w.CompleteAssignment(requestID, true))
	require.Error(t, w.CompleteAssignment(uuid.New(), true))
}

func TestCompleteAssignmentFailureKeepsRequestReschedulable(t *testing.T) {
	w := testWorker(t, Plumbing)
	requestID := uuid.New()
	w.AddAssignment(requestID, "P-100", "101", day(1))

	require.NoError(t, w.CompleteAssignment(requestID, false))
	require.Equal(t, AssignmentFailed, w.Assignments[0].Status)

	// A reschedule books a fresh assignment; only it is active afterwards.
	w.AddAssignment(requestID, "P-100", "101", day(2))
	require.Equal(t, 1, w.CurrentWorkload())
}

func TestCompleteAssignmentFromInProgress(t *testing.T) {
	w := testWorker(t, Plumbing)
	requestID := uuid.New()
	w.AddAssignment(requestID, "P-100", "101", day(1))
	require.NoError(t, w.UpdateAssignmentStatus(requestID, AssignmentInProgress))

	require.NoError(t, w.CompleteAssignment(requestID, true))
	require.Equal(t, AssignmentCompleted, w.Assignments[0].Status)
}

func TestUpdateAssignmentStatusRejectsIllegalMove(t *testing.T) {
	w := testWorker(t, Plumbing)
	requestID := uuid.New()
	w.AddAssignment(requestID, "P-100", "101", day(1))

	require.Error(t, w.UpdateAssignmentStatus(requestID, AssignmentCompleted))
	require.Error(t, w.UpdateAssignmentStatus(uuid.New(), AssignmentInProgress))
}
