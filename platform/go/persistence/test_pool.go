package persistence

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/upkeephq/upkeep/database"
)

// MustTestPool creates a test database connection pool and applies the schema DDL.
// Tests calling it are skipped unless TEST_DATABASE_URL points at a disposable
// Postgres instance.
func MustTestPool(t *testing.T) (*pgxpool.Pool, func()) {
	t.Helper()

	url, ok := os.LookupEnv("TEST_DATABASE_URL")
	if !ok || url == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping postgres-backed test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Fatalf("create test pool: %v", err)
	}

	for _, ddl := range []string{database.RequestsSQL, database.WorkersSQL} {
		if _, err := pool.Exec(ctx, ddl); err != nil {
			pool.Close()
			t.Fatalf("apply schema: %v", err)
		}
	}

	cleanup := func() {
		pool.Close()
	}

	return pool, cleanup
}
