// internal/app/settings_service.go
package app

import (
	"context"
	"fmt"

	"routine_notification_bot/internal/domain/directory"
	"routine_notification_bot/internal/domain/routine"
	"routine_notification_bot/internal/domain/schedule"

	"github.com/sirupsen/logrus"
)

// JobRegistrar (re)registers the notification and reminder jobs of a company.
type JobRegistrar interface {
	ScheduleCompany(s *routine.Settings) error
}

// SettingsService manages per-company routine settings.
type SettingsService interface {
	GetSettings(ctx context.Context, companyID string) (*routine.Settings, error)
	ListSettings(ctx context.Context) ([]*routine.Settings, error)
	CreateSettings(ctx context.Context, companyID, cron string, disabledTeams []string) (*routine.Settings, error)
	UpdateDisabledTeams(ctx context.Context, companyID string, disabledTeams []string) (*routine.Settings, error)
	// SeedAllCompanies applies the same cron and opt-outs to every company
	// and returns how many were written.
	SeedAllCompanies(ctx context.Context, cron string, disabledTeams []string) (int, error)
}

type SettingsServiceImpl struct {
	settingsRepo routine.SettingsRepository
	dir          directory.Directory
	registrar    JobRegistrar // nil when no scheduler runs in this process
	clock        schedule.Clock
	log          *logrus.Entry
}

func NewSettingsServiceImpl(sr routine.SettingsRepository, dir directory.Directory, registrar JobRegistrar, clock schedule.Clock, log *logrus.Entry) *SettingsServiceImpl {
	return &SettingsServiceImpl{settingsRepo: sr, dir: dir, registrar: registrar, clock: clock, log: log}
}

func (s *SettingsServiceImpl) GetSettings(ctx context.Context, companyID string) (*routine.Settings, error) {
	return s.settingsRepo.GetByCompanyID(ctx, companyID)
}

func (s *SettingsServiceImpl) ListSettings(ctx context.Context) ([]*routine.Settings, error) {
	return s.settingsRepo.ListAll(ctx)
}

func (s *SettingsServiceImpl) CreateSettings(ctx context.Context, companyID, cron string, disabledTeams []string) (*routine.Settings, error) {
	if companyID == "" {
		return nil, fmt.Errorf("%w: empty company id", schedule.ErrInvalidArgument)
	}
	if _, err := schedule.ParseCadence(cron, s.clock.Now()); err != nil {
		return nil, err
	}

	settings := &routine.Settings{CompanyID: companyID, Cron: cron, DisabledTeams: disabledTeams}
	if err := s.settingsRepo.Upsert(ctx, settings); err != nil {
		return nil, fmt.Errorf("failed to save routine settings: %w", err)
	}
	s.log.WithFields(logrus.Fields{"company_id": companyID, "cron": cron}).Info("Routine settings saved")

	s.schedule(settings)
	return settings, nil
}

func (s *SettingsServiceImpl) UpdateDisabledTeams(ctx context.Context, companyID string, disabledTeams []string) (*routine.Settings, error) {
	settings, err := s.settingsRepo.UpdateDisabledTeams(ctx, companyID, disabledTeams)
	if err != nil {
		return nil, fmt.Errorf("failed to update disabled teams of company %s: %w", companyID, err)
	}
	s.log.WithFields(logrus.Fields{"company_id": companyID, "disabled_teams": disabledTeams}).Info("Routine opt-outs updated")

	s.schedule(settings)
	return settings, nil
}

func (s *SettingsServiceImpl) SeedAllCompanies(ctx context.Context, cron string, disabledTeams []string) (int, error) {
	companies, err := s.dir.ListCompanies(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list companies: %w", err)
	}

	written := 0
	for _, company := range companies {
		if _, err := s.CreateSettings(ctx, company.ID, cron, disabledTeams); err != nil {
			s.log.WithError(err).WithField("company_id", company.ID).Error("Failed to seed routine settings")
			continue
		}
		written++
	}
	return written, nil
}

// schedule hands the settings to the scheduler. A failure here is logged
// and the next settings sync retries it.
func (s *SettingsServiceImpl) schedule(settings *routine.Settings) {
	if s.registrar == nil {
		return
	}
	if err := s.registrar.ScheduleCompany(settings); err != nil {
		s.log.WithError(err).WithField("company_id", settings.CompanyID).Error("Failed to schedule routine jobs")
	}
}
