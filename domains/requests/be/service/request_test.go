package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newDraft(t *testing.T) TenantRequest {
	t.Helper()
	req, err := NewTenantRequest(uuid.New(), uuid.New(), "Leaking kitchen faucet", "drips constantly", UrgencyNormal)
	require.NoError(t, err)
	return req
}

func newSubmitted(t *testing.T) TenantRequest {
	t.Helper()
	req := newDraft(t)
	require.NoError(t, req.SubmitForReview())
	req.DrainEvents()
	return req
}

func TestNewTenantRequestRequiresTitle(t *testing.T) {
	_, err := NewTenantRequest(uuid.New(), uuid.New(), "", "", UrgencyNormal)
	require.Error(t, err)
}

func TestSubmitForReview(t *testing.T) {
	req := newDraft(t)

	require.NoError(t, req.SubmitForReview())
	require.Equal(t, StatusSubmitted, req.Status)

	events := req.Events()
	require.Len(t, events, 1)
	submitted, ok := events[0].(RequestSubmitted)
	require.True(t, ok)
	require.Equal(t, req.ID, submitted.RequestID)
}

func TestSubmitForReviewTwiceFails(t *testing.T) {
	req := newSubmitted(t)

	err := req.SubmitForReview()
	require.ErrorIs(t, err, ErrInvalidTransition)

	var transition *TransitionError
	require.ErrorAs(t, err, &transition)
	require.Equal(t, StatusSubmitted, transition.From)
}

func TestScheduleWorkSameDayAllowed(t *testing.T) {
	req := newSubmitted(t)

	// Late in the evening wall-clock; the scheduled date is midnight of the
	// same day. Calendar-date comparison must admit this.
	now := time.Date(2026, 8, 26, 23, 45, 0, 0, time.UTC)
	date := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)

	require.NoError(t, req.ScheduleWork("plumber@x", date, "WO-100", now))
	require.Equal(t, StatusScheduled, req.Status)
	require.NotNil(t, req.AssignedWorkerEmail)
	require.Equal(t, "plumber@x", *req.AssignedWorkerEmail)
	require.NotNil(t, req.ScheduledDate)
	require.True(t, req.ScheduledDate.Equal(date))
	require.NotNil(t, req.WorkOrderNumber)

	events := req.Events()
	require.Len(t, events, 1)
	scheduled, ok := events[0].(WorkScheduled)
	require.True(t, ok)
	require.Equal(t, "WO-100", scheduled.WorkOrderNumber)
}

func TestScheduleWorkPastDateRejected(t *testing.T) {
	req := newSubmitted(t)

	today := time.Date(2026, 8, 26, 0, 0, 1, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)

	err := req.ScheduleWork("plumber@x", yesterday, "WO-100", today)
	require.ErrorIs(t, err, ErrInvalidSchedule)
	require.Equal(t, StatusSubmitted, req.Status)
	require.Empty(t, req.Events())
}

func TestScheduleWorkRequiresWorkerAndOrder(t *testing.T) {
	today := time.Now().UTC()

	req := newSubmitted(t)
	require.ErrorIs(t, req.ScheduleWork("", today, "WO-100", today), ErrInvalidSchedule)

	req = newSubmitted(t)
	require.ErrorIs(t, req.ScheduleWork("plumber@x", today, "", today), ErrInvalidSchedule)
}

func TestScheduleWorkFromDraftFails(t *testing.T) {
	req := newDraft(t)
	err := req.ScheduleWork("plumber@x", time.Now().UTC(), "WO-100", time.Now().UTC())
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestRescheduleAfterFailure(t *testing.T) {
	req := newSubmitted(t)
	today := time.Now().UTC()

	require.NoError(t, req.ScheduleWork("plumber@x", today, "WO-100", today))
	require.NoError(t, req.ReportWorkCompleted(false, "part missing"))
	require.Equal(t, StatusFailed, req.Status)
	require.Equal(t, "part missing", req.CompletionNotes)

	tomorrow := today.AddDate(0, 0, 1)
	require.NoError(t, req.ScheduleWork("plumber@x", tomorrow, "WO-101", today))
	require.Equal(t, StatusScheduled, req.Status)
}

func TestReportWorkCompletedSuccess(t *testing.T) {
	req := newSubmitted(t)
	today := time.Now().UTC()
	require.NoError(t, req.ScheduleWork("plumber@x", today, "WO-100", today))
	req.DrainEvents()

	require.NoError(t, req.ReportWorkCompleted(true, ""))
	require.Equal(t, StatusDone, req.Status)
	require.Len(t, req.Events(), 1)
}

func TestReportWorkCompletedRequiresScheduled(t *testing.T) {
	req := newSubmitted(t)
	err := req.ReportWorkCompleted(true, "done")
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestDeclineRequest(t *testing.T) {
	req := newSubmitted(t)
	require.NoError(t, req.DeclineRequest("duplicate of an open request"))
	require.Equal(t, StatusDeclined, req.Status)
	require.Equal(t, "duplicate of an open request", req.DeclineReason)
}

func TestDeclineRequiresReason(t *testing.T) {
	req := newSubmitted(t)
	require.Error(t, req.DeclineRequest(""))
	require.Equal(t, StatusSubmitted, req.Status)
}

func TestCloseFromDraftFails(t *testing.T) {
	req := newDraft(t)

	err := req.CloseRequest("all done")
	require.ErrorIs(t, err, ErrInvalidTransition)

	var transition *TransitionError
	require.ErrorAs(t, err, &transition)
	require.Equal(t, StatusDraft, transition.From)
	require.Equal(t, "close", transition.Op)
}

func TestCloseAfterDoneAndDeclined(t *testing.T) {
	today := time.Now().UTC()

	done := newSubmitted(t)
	require.NoError(t, done.ScheduleWork("plumber@x", today, "WO-100", today))
	require.NoError(t, done.ReportWorkCompleted(true, "fixed"))
	require.NoError(t, done.CloseRequest("tenant confirmed"))
	require.Equal(t, StatusClosed, done.Status)
	require.Equal(t, "tenant confirmed", done.ClosureNotes)

	declined := newSubmitted(t)
	require.NoError(t, declined.DeclineRequest("not our unit"))
	require.NoError(t, declined.CloseRequest(""))
	require.Equal(t, StatusClosed, declined.Status)
}

func TestCloseIsTerminal(t *testing.T) {
	req := newSubmitted(t)
	require.NoError(t, req.DeclineRequest("nope"))
	require.NoError(t, req.CloseRequest(""))

	require.ErrorIs(t, req.SubmitForReview(), ErrInvalidTransition)
	require.ErrorIs(t, req.ScheduleWork("plumber@x", time.Now(), "WO-1", time.Now()), ErrInvalidTransition)
	require.ErrorIs(t, req.CloseRequest(""), ErrInvalidTransition)
}

func TestEveryTransitionEmitsExactlyOneEvent(t *testing.T) {
	req := newDraft(t)
	today := time.Now().UTC()

	require.NoError(t, req.SubmitForReview())
	require.Len(t, req.DrainEvents(), 1)

	require.NoError(t, req.ScheduleWork("plumber@x", today, "WO-100", today))
	require.Len(t, req.DrainEvents(), 1)

	require.NoError(t, req.ReportWorkCompleted(true, ""))
	require.Len(t, req.DrainEvents(), 1)

	require.NoError(t, req.CloseRequest(""))
	require.Len(t, req.DrainEvents(), 1)

	require.Empty(t, req.Events())
}

func TestDrainEventsClearsOutbox(t *testing.T) {
	req := newDraft(t)
	require.NoError(t, req.SubmitForReview())

	first := req.DrainEvents()
	require.Len(t, first, 1)
	require.Empty(t, req.DrainEvents())
}
