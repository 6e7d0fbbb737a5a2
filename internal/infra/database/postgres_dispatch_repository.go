// internal/infra/database/postgres_dispatch_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"routine_notification_bot/internal/domain/notification"
	"time"
)

type PostgresDispatchRepository struct {
	db *sql.DB
}

func NewPostgresDispatchRepository(db *sql.DB) *PostgresDispatchRepository {
	return &PostgresDispatchRepository{db: db}
}

func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (r *PostgresDispatchRepository) CreateDispatch(ctx context.Context, d *notification.Dispatch) error {
	query := `INSERT INTO routine_dispatches (company_id, window_start, kind, recipients)
               VALUES ($1, $2, $3, $4)
               RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, d.CompanyID, dateOnly(d.WindowStart), string(d.Kind), d.Recipients).
		Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "routine_dispatch_unique") {
			return ErrDuplicateDispatch
		}
		return fmt.Errorf("error creating routine dispatch: %w", err)
	}
	return nil
}

func (r *PostgresDispatchRepository) GetDispatch(ctx context.Context, companyID string, windowStart time.Time, kind notification.MessageType) (*notification.Dispatch, error) {
	query := `SELECT id, company_id, window_start, kind, recipients, created_at
               FROM routine_dispatches
               WHERE company_id = $1 AND window_start = $2 AND kind = $3`
	d := notification.Dispatch{}
	var k string
	err := r.db.QueryRowContext(ctx, query, companyID, dateOnly(windowStart), string(kind)).
		Scan(&d.ID, &d.CompanyID, &d.WindowStart, &k, &d.Recipients, &d.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrDispatchNotFound
		}
		return nil, fmt.Errorf("error getting routine dispatch: %w", err)
	}
	d.Kind = notification.MessageType(k)
	return &d, nil
}

func (r *PostgresDispatchRepository) ListDispatches(ctx context.Context, companyID string, limit int) ([]*notification.Dispatch, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, company_id, window_start, kind, recipients, created_at
               FROM routine_dispatches
               WHERE company_id = $1
               ORDER BY window_start DESC, kind
               LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, companyID, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying routine dispatches: %w", err)
	}
	defer rows.Close()

	dispatches := make([]*notification.Dispatch, 0)
	for rows.Next() {
		d := notification.Dispatch{}
		var k string
		if err := rows.Scan(&d.ID, &d.CompanyID, &d.WindowStart, &k, &d.Recipients, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning routine dispatch row: %w", err)
		}
		d.Kind = notification.MessageType(k)
		dispatches = append(dispatches, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating routine dispatch rows: %w", err)
	}
	return dispatches, nil
}
