package repo

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/upkeephq/upkeep/domains/workers/be/service"
)

func newStoredWorker(t *testing.T, repo *MemoryRepository, email string) service.Worker {
	t.Helper()
	w, err := service.NewWorker(email, "Pat Doe", "", service.Plumbing)
	require.NoError(t, err)
	saved, err := repo.Create(context.Background(), w)
	require.NoError(t, err)
	return saved
}

func TestMemoryCreateRejectsDuplicateEmail(t *testing.T) {
	repo := NewMemoryRepository()
	newStoredWorker(t, repo, "plumber@x")

	w, err := service.NewWorker("plumber@x", "Other", "", service.General)
	require.NoError(t, err)
	_, err = repo.Create(context.Background(), w)
	require.ErrorIs(t, err, service.ErrConflictEmail)
}

func TestMemorySaveBumpsVersion(t *testing.T) {
	repo := NewMemoryRepository()
	w := newStoredWorker(t, repo, "plumber@x")
	require.EqualValues(t, 1, w.Version)

	w.AddAssignment(uuid.New(), "P-100", "101", time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC))
	saved, err := repo.Save(context.Background(), w)
	require.NoError(t, err)
	require.EqualValues(t, 2, saved.Version)

	stored, err := repo.Get(context.Background(), w.ID)
	require.NoError(t, err)
	require.Len(t, stored.Assignments, 1)
}

func TestMemorySaveRefusesStaleVersion(t *testing.T) {
	repo := NewMemoryRepository()
	w := newStoredWorker(t, repo, "plumber@x")

	first := w
	second := w

	_, err := repo.Save(context.Background(), first)
	require.NoError(t, err)

	// The second writer still holds the old version token.
	_, err = repo.Save(context.Background(), second)
	require.ErrorIs(t, err, service.ErrStaleWorker)
}

func TestMemoryReturnsIsolatedCopies(t *testing.T) {
	repo := NewMemoryRepository()
	w := newStoredWorker(t, repo, "plumber@x")

	loaded, err := repo.Get(context.Background(), w.ID)
	require.NoError(t, err)
	loaded.AddAssignment(uuid.New(), "P-100", "101", time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC))

	stored, err := repo.Get(context.Background(), w.ID)
	require.NoError(t, err)
	require.Empty(t, stored.Assignments)
}

func TestMemoryListActiveFiltersAndSorts(t *testing.T) {
	repo := NewMemoryRepository()
	newStoredWorker(t, repo, "zeta@x")
	newStoredWorker(t, repo, "alpha@x")
	inactive := newStoredWorker(t, repo, "gone@x")

	inactive.Active = false
	_, err := repo.Save(context.Background(), inactive)
	require.NoError(t, err)

	active, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, active, 2)
	require.Equal(t, "alpha@x", active[0].Email)
	require.Equal(t, "zeta@x", active[1].Email)

	all, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestMemoryNotFound(t *testing.T) {
	repo := NewMemoryRepository()

	_, err := repo.Get(context.Background(), uuid.New())
	require.ErrorIs(t, err, service.ErrNotFound)

	_, err = repo.FindByEmail(context.Background(), "nobody@x")
	require.ErrorIs(t, err, service.ErrNotFound)

	w, err := service.NewWorker("ghost@x", "Ghost", "", service.General)
	require.NoError(t, err)
	_, err = repo.Save(context.Background(), w)
	require.ErrorIs(t, err, service.ErrNotFound)
}
