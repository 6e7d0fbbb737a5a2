// internal/domain/routine/settings.go
package routine

import (
	"context"
	"time"
)

// Settings is the per-company routine configuration.
// Corresponds to the 'routine_settings' table.
type Settings struct {
	ID            string
	CompanyID     string
	Cron          string   // standard 5-field cron expression, evaluated in UTC
	DisabledTeams []string // teams that opted out of the routine
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SettingsRepository persists routine settings.
type SettingsRepository interface {
	GetByCompanyID(ctx context.Context, companyID string) (*Settings, error)
	ListAll(ctx context.Context) ([]*Settings, error)
	// Upsert creates or replaces the settings of s.CompanyID.
	Upsert(ctx context.Context, s *Settings) error
	UpdateDisabledTeams(ctx context.Context, companyID string, disabledTeams []string) (*Settings, error)
}
