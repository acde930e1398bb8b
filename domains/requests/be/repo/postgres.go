package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/upkeephq/upkeep/domains/requests/be/service"
)

const requestColumns = `request_id, property_id, tenant_id, title, description, urgency,
	status, worker_email, scheduled_date, work_order_number,
	completion_notes, closure_notes, decline_reason, created_at, updated_at`

// PostgresRepository persists maintenance requests in the maintenance_requests table.
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

func (r *PostgresRepository) Create(ctx context.Context, req service.TenantRequest) (service.TenantRequest, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO maintenance_requests (
			request_id, property_id, tenant_id, title, description, urgency,
			status, worker_email, scheduled_date, work_order_number,
			completion_notes, closure_notes, decline_reason
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING `+requestColumns,
		req.ID, req.PropertyID, req.TenantID, req.Title, req.Description, req.Urgency.String(),
		string(req.Status), req.AssignedWorkerEmail, req.ScheduledDate, req.WorkOrderNumber,
		req.CompletionNotes, req.ClosureNotes, req.DeclineReason,
	)
	return scanRequest(row)
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (service.TenantRequest, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+requestColumns+` FROM maintenance_requests WHERE request_id = $1`, id)
	req, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return service.TenantRequest{}, service.ErrNotFound
	}
	return req, err
}

func (r *PostgresRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]service.TenantRequest, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+requestColumns+` FROM maintenance_requests
		 WHERE tenant_id = $1 ORDER BY created_at DESC`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRequests(rows)
}

func (r *PostgresRepository) ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]service.TenantRequest, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+requestColumns+` FROM maintenance_requests
		 WHERE property_id = $1 ORDER BY created_at DESC`, propertyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRequests(rows)
}

func (r *PostgresRepository) Save(ctx context.Context, req service.TenantRequest) (service.TenantRequest, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE maintenance_requests SET
			status = $2, worker_email = $3, scheduled_date = $4, work_order_number = $5,
			completion_notes = $6, closure_notes = $7, decline_reason = $8, updated_at = now()
		WHERE request_id = $1
		RETURNING `+requestColumns,
		req.ID, string(req.Status), req.AssignedWorkerEmail, req.ScheduledDate, req.WorkOrderNumber,
		req.CompletionNotes, req.ClosureNotes, req.DeclineReason,
	)
	out, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return service.TenantRequest{}, service.ErrNotFound
	}
	return out, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (service.TenantRequest, error) {
	var (
		req           service.TenantRequest
		urgency       string
		status        string
		scheduledDate *time.Time
	)
	err := row.Scan(
		&req.ID, &req.PropertyID, &req.TenantID, &req.Title, &req.Description, &urgency,
		&status, &req.AssignedWorkerEmail, &scheduledDate, &req.WorkOrderNumber,
		&req.CompletionNotes, &req.ClosureNotes, &req.DeclineReason, &req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		return service.TenantRequest{}, err
	}
	req.Urgency = service.ParseUrgency(urgency)
	req.Status = service.Status(status)
	if scheduledDate != nil {
		d := scheduledDate.UTC()
		req.ScheduledDate = &d
	}
	return req, nil
}

func collectRequests(rows pgx.Rows) ([]service.TenantRequest, error) {
	var items []service.TenantRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, req)
	}
	return items, rows.Err()
}

// Ensure interface compliance.
var _ service.Repository = (*PostgresRepository)(nil)
