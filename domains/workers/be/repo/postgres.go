package repo

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/upkeephq/upkeep/domains/workers/be/service"
)

// PostgresRepository persists the worker aggregate across the workers and
// worker_assignments tables. Saves are transactional and guarded by the
// version token on the workers row.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs a repository backed by a pgx pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("pgx pool is required")
	}
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Create(ctx context.Context, w service.Worker) (service.Worker, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO workers (worker_id, email, name, phone, specialization, active, version)
		VALUES ($1,$2,$3,$4,$5,$6,1)`,
		w.ID, w.Email, w.Name, w.Phone, w.Specialization.String(), w.Active,
	)
	if err != nil {
		return service.Worker{}, mapConflict(err)
	}
	w.Version = 1
	return w, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (service.Worker, error) {
	return r.one(ctx, `WHERE worker_id = $1`, id)
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (service.Worker, error) {
	return r.one(ctx, `WHERE email = $1`, email)
}

func (r *PostgresRepository) one(ctx context.Context, where string, arg any) (service.Worker, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT worker_id, email, name, phone, specialization, active, version FROM workers `+where, arg)
	w, err := scanWorker(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return service.Worker{}, service.ErrNotFound
	}
	if err != nil {
		return service.Worker{}, err
	}
	if err := r.loadAssignments(ctx, []*service.Worker{&w}); err != nil {
		return service.Worker{}, err
	}
	return w, nil
}

func (r *PostgresRepository) ListActive(ctx context.Context) ([]service.Worker, error) {
	return r.list(ctx, `WHERE active ORDER BY email`)
}

func (r *PostgresRepository) ListAll(ctx context.Context) ([]service.Worker, error) {
	return r.list(ctx, `ORDER BY email`)
}

func (r *PostgresRepository) list(ctx context.Context, tail string) ([]service.Worker, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT worker_id, email, name, phone, specialization, active, version FROM workers `+tail)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []service.Worker
	for rows.Next() {
		w, err := scanWorker(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	refs := make([]*service.Worker, len(items))
	for i := range items {
		refs[i] = &items[i]
	}
	if err := r.loadAssignments(ctx, refs); err != nil {
		return nil, err
	}
	return items, nil
}

// Save rewrites the aggregate inside one transaction. The version predicate on
// the workers update gives the at-most-one-writer guarantee: a zero-row update
// means another scheduler advanced the aggregate first.
func (r *PostgresRepository) Save(ctx context.Context, w service.Worker) (service.Worker, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return service.Worker{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE workers SET name = $2, phone = $3, specialization = $4, active = $5, version = version + 1
		WHERE worker_id = $1 AND version = $6`,
		w.ID, w.Name, w.Phone, w.Specialization.String(), w.Active, w.Version,
	)
	if err != nil {
		return service.Worker{}, err
	}
	if tag.RowsAffected() == 0 {
		return service.Worker{}, service.ErrStaleWorker
	}

	// Assignments are rewritten wholesale; the collection is small and
	// append-only with status-only mutation, so diffing buys nothing.
	if _, err := tx.Exec(ctx, `DELETE FROM worker_assignments WHERE worker_id = $1`, w.ID); err != nil {
		return service.Worker{}, err
	}
	for _, a := range w.Assignments {
		if _, err := tx.Exec(ctx, `
			INSERT INTO worker_assignments (worker_id, request_id, property_code, unit_number, scheduled_date, status)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			w.ID, a.RequestID, a.PropertyCode, a.UnitNumber, a.Date, string(a.Status),
		); err != nil {
			return service.Worker{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return service.Worker{}, err
	}
	w.Version++
	return w, nil
}

func (r *PostgresRepository) loadAssignments(ctx context.Context, workers []*service.Worker) error {
	if len(workers) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(workers))
	byID := make(map[uuid.UUID]*service.Worker, len(workers))
	for i, w := range workers {
		ids[i] = w.ID
		byID[w.ID] = w
	}

	rows, err := r.pool.Query(ctx, `
		SELECT worker_id, request_id, property_code, unit_number, scheduled_date, status
		FROM worker_assignments WHERE worker_id = ANY($1) ORDER BY assignment_id`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			workerID uuid.UUID
			a        service.Assignment
			status   string
		)
		if err := rows.Scan(&workerID, &a.RequestID, &a.PropertyCode, &a.UnitNumber, &a.Date, &status); err != nil {
			return err
		}
		a.Status = service.AssignmentStatus(status)
		a.Date = a.Date.UTC()
		if w, ok := byID[workerID]; ok {
			w.Assignments = append(w.Assignments, a)
		}
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorker(row rowScanner) (service.Worker, error) {
	var (
		w    service.Worker
		spec string
	)
	if err := row.Scan(&w.ID, &w.Email, &w.Name, &w.Phone, &spec, &w.Active, &w.Version); err != nil {
		return service.Worker{}, err
	}
	w.Specialization = service.ParseSpecialization(spec)
	return w, nil
}

func mapConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" && strings.Contains(pgErr.ConstraintName, "email") {
			return service.ErrConflictEmail
		}
	}
	return err
}

// Ensure interface compliance.
var _ service.Repository = (*PostgresRepository)(nil)
