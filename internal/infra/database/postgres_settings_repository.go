// internal/infra/database/postgres_settings_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"routine_notification_bot/internal/domain/routine"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const settingsColumns = `id, company_id, cron, disabled_teams, created_at, updated_at`

type PostgresSettingsRepository struct {
	db *sql.DB
}

func NewPostgresSettingsRepository(db *sql.DB) *PostgresSettingsRepository {
	return &PostgresSettingsRepository{db: db}
}

func scanSettings(row interface{ Scan(...any) error }) (*routine.Settings, error) {
	s := routine.Settings{}
	err := row.Scan(&s.ID, &s.CompanyID, &s.Cron, pq.Array(&s.DisabledTeams), &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if s.DisabledTeams == nil {
		s.DisabledTeams = []string{}
	}
	return &s, nil
}

func (r *PostgresSettingsRepository) GetByCompanyID(ctx context.Context, companyID string) (*routine.Settings, error) {
	query := `SELECT ` + settingsColumns + ` FROM routine_settings WHERE company_id = $1`
	s, err := scanSettings(r.db.QueryRowContext(ctx, query, companyID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSettingsNotFound
		}
		return nil, fmt.Errorf("error getting routine settings for company %s: %w", companyID, err)
	}
	return s, nil
}

func (r *PostgresSettingsRepository) ListAll(ctx context.Context) ([]*routine.Settings, error) {
	query := `SELECT ` + settingsColumns + ` FROM routine_settings ORDER BY company_id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying routine settings: %w", err)
	}
	defer rows.Close()

	all := make([]*routine.Settings, 0)
	for rows.Next() {
		s, err := scanSettings(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning routine settings row: %w", err)
		}
		all = append(all, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating routine settings rows: %w", err)
	}
	return all, nil
}

func (r *PostgresSettingsRepository) Upsert(ctx context.Context, s *routine.Settings) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.DisabledTeams == nil {
		s.DisabledTeams = []string{}
	}
	query := `INSERT INTO routine_settings (id, company_id, cron, disabled_teams, created_at, updated_at)
               VALUES ($1, $2, $3, $4, NOW(), NOW())
               ON CONFLICT (company_id) DO UPDATE
               SET cron = EXCLUDED.cron, disabled_teams = EXCLUDED.disabled_teams, updated_at = NOW()
               RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, s.ID, s.CompanyID, s.Cron, pq.Array(s.DisabledTeams)).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error upserting routine settings for company %s: %w", s.CompanyID, err)
	}
	return nil
}

func (r *PostgresSettingsRepository) UpdateDisabledTeams(ctx context.Context, companyID string, disabledTeams []string) (*routine.Settings, error) {
	if disabledTeams == nil {
		disabledTeams = []string{}
	}
	query := `UPDATE routine_settings SET disabled_teams = $1, updated_at = NOW()
               WHERE company_id = $2
               RETURNING ` + settingsColumns
	s, err := scanSettings(r.db.QueryRowContext(ctx, query, pq.Array(disabledTeams), companyID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSettingsNotFound
		}
		return nil, fmt.Errorf("error updating disabled teams for company %s: %w", companyID, err)
	}
	return s, nil
}
