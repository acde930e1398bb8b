package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	workersvc "github.com/upkeephq/upkeep/domains/workers/be/service"
)

func rankedWorker(t *testing.T, email string, spec workersvc.Specialization) workersvc.Worker {
	t.Helper()
	w, err := workersvc.NewWorker(email, email, "", spec)
	require.NoError(t, err)
	return w
}

func book(w *workersvc.Worker, unit string, date time.Time) {
	w.AddAssignment(uuid.New(), "P-100", unit, date)
}

func TestRankWorkersOrdering(t *testing.T) {
	from := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	free := rankedWorker(t, "free@x", workersvc.Plumbing)

	busyToday := rankedWorker(t, "busy@x", workersvc.Plumbing)
	book(&busyToday, "101", from)
	book(&busyToday, "102", from)

	ranked := RankWorkers([]workersvc.Worker{busyToday, free}, workersvc.Plumbing, from, 14, false)
	require.Len(t, ranked, 2)
	require.Equal(t, "free@x", ranked[0].Email)
	require.Equal(t, "busy@x", ranked[1].Email)
	require.Less(t, ranked[0].RankingScore, ranked[1].RankingScore)
}

func TestRankWorkersTieBrokenByEmail(t *testing.T) {
	from := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	b := rankedWorker(t, "beta@x", workersvc.Plumbing)
	a := rankedWorker(t, "alpha@x", workersvc.Plumbing)

	ranked := RankWorkers([]workersvc.Worker{b, a}, workersvc.Plumbing, from, 14, false)
	require.Equal(t, "alpha@x", ranked[0].Email)
	require.Equal(t, "beta@x", ranked[1].Email)
}

func TestRankWorkersFiltersInactiveAndMismatched(t *testing.T) {
	from := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	inactive := rankedWorker(t, "inactive@x", workersvc.Plumbing)
	inactive.Active = false

	electrician := rankedWorker(t, "electrician@x", workersvc.Electrical)
	generalist := rankedWorker(t, "generalist@x", workersvc.General)
	plumber := rankedWorker(t, "plumber@x", workersvc.Plumbing)

	ranked := RankWorkers([]workersvc.Worker{inactive, electrician, generalist, plumber}, workersvc.Plumbing, from, 14, false)
	require.Len(t, ranked, 2)
	require.Equal(t, "generalist@x", ranked[0].Email)
	require.Equal(t, "plumber@x", ranked[1].Email)
}

func TestRankWorkersAnnotations(t *testing.T) {
	from := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	w := rankedWorker(t, "plumber@x", workersvc.Plumbing)
	book(&w, "101", from)
	book(&w, "102", from)
	book(&w, "101", from.AddDate(0, 0, 2))

	ranked := RankWorkers([]workersvc.Worker{w}, workersvc.Plumbing, from, 14, false)
	require.Len(t, ranked, 1)

	c := ranked[0]
	require.Equal(t, []time.Time{from}, c.BookedDates)
	require.Equal(t, []time.Time{from.AddDate(0, 0, 2)}, c.PartiallyBookedDates)
	require.NotNil(t, c.NextAvailableDate)
	require.True(t, c.NextAvailableDate.Equal(from.AddDate(0, 0, 1)))
	require.Equal(t, 1*100+3, c.RankingScore)
}
