package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"routine_notification_bot/internal/app"
	"routine_notification_bot/internal/domain/routine"
	"routine_notification_bot/internal/domain/schedule"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const defaultJobTimeout = 5 * time.Minute

// companyJobs are the cron entries registered for one company.
type companyJobs struct {
	cron         string
	reminderCron string
	notifyID     cron.EntryID
	reminderID   cron.EntryID
}

// RoutineScheduler runs each company's routine notification and reminder on
// the company's own cadence, evaluated in UTC.
type RoutineScheduler struct {
	cronEngine         *cron.Cron
	notifService       app.NotificationService
	settingsRepo       routine.SettingsRepository
	clock              schedule.Clock
	log                *logrus.Entry
	syncSpec           string
	reminderOffsetDays int
	jobTimeout         time.Duration

	mu   sync.Mutex
	jobs map[string]companyJobs
}

var _ app.JobRegistrar = (*RoutineScheduler)(nil)

func NewRoutineScheduler(
	notifService app.NotificationService,
	settingsRepo routine.SettingsRepository,
	clock schedule.Clock,
	log *logrus.Entry,
	syncSpec string, // e.g., "*/10 * * * *"
	reminderOffsetDays int, // reminder fires this many days after the routine
) *RoutineScheduler {
	return &RoutineScheduler{
		cronEngine:         cron.New(cron.WithLocation(time.UTC)),
		notifService:       notifService,
		settingsRepo:       settingsRepo,
		clock:              clock,
		log:                log,
		syncSpec:           syncSpec,
		reminderOffsetDays: reminderOffsetDays,
		jobTimeout:         defaultJobTimeout,
		jobs:               make(map[string]companyJobs),
	}
}

// Start registers the jobs of every stored company plus the settings sync
// job, then starts the cron engine.
func (s *RoutineScheduler) Start(ctx context.Context) error {
	s.log.Info("Starting routine scheduler...")

	if err := s.Sync(ctx); err != nil {
		s.log.WithError(err).Error("Initial settings sync failed, relying on the sync job")
	}

	_, err := s.cronEngine.AddFunc(s.syncSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
		defer cancel()
		if err := s.Sync(ctx); err != nil {
			s.log.WithError(err).Error("Settings sync failed")
		}
	})
	if err != nil {
		return fmt.Errorf("could not add settings sync job %q: %w", s.syncSpec, err)
	}

	s.cronEngine.Start()
	s.log.WithField("companies", s.Companies()).Info("Routine scheduler started")
	return nil
}

// AddMaintenanceJob runs fn on spec alongside the routine jobs.
func (s *RoutineScheduler) AddMaintenanceJob(spec, name string, fn func()) error {
	_, err := s.cronEngine.AddFunc(spec, func() {
		s.log.WithField("job", name).Debug("Running maintenance job")
		fn()
	})
	if err != nil {
		return fmt.Errorf("could not add maintenance job %s %q: %w", name, spec, err)
	}
	return nil
}

// ScheduleCompany registers or replaces the company's jobs. Settings whose
// crons did not change keep their entries.
func (s *RoutineScheduler) ScheduleCompany(settings *routine.Settings) error {
	reminderCron, err := schedule.AddDaysToCadence(settings.Cron, s.reminderOffsetDays)
	if err != nil {
		return fmt.Errorf("could not derive reminder cron for company %s: %w", settings.CompanyID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	companyID := settings.CompanyID
	if existing, ok := s.jobs[companyID]; ok {
		if existing.cron == settings.Cron && existing.reminderCron == reminderCron {
			return nil
		}
		s.cronEngine.Remove(existing.notifyID)
		s.cronEngine.Remove(existing.reminderID)
		delete(s.jobs, companyID)
	}

	notifyID, err := s.cronEngine.AddFunc(settings.Cron, func() { s.runNotification(companyID) })
	if err != nil {
		return fmt.Errorf("could not add routine job for company %s: %w", companyID, err)
	}
	reminderID, err := s.cronEngine.AddFunc(reminderCron, func() { s.runReminder(companyID) })
	if err != nil {
		s.cronEngine.Remove(notifyID)
		return fmt.Errorf("could not add reminder job for company %s: %w", companyID, err)
	}

	s.jobs[companyID] = companyJobs{
		cron:         settings.Cron,
		reminderCron: reminderCron,
		notifyID:     notifyID,
		reminderID:   reminderID,
	}
	s.log.WithFields(logrus.Fields{
		"company_id":    companyID,
		"cron":          settings.Cron,
		"reminder_cron": reminderCron,
	}).Info("Routine jobs scheduled")
	return nil
}

// RemoveCompany drops the company's jobs, if any.
func (s *RoutineScheduler) RemoveCompany(companyID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.jobs[companyID]; ok {
		s.cronEngine.Remove(existing.notifyID)
		s.cronEngine.Remove(existing.reminderID)
		delete(s.jobs, companyID)
		s.log.WithField("company_id", companyID).Info("Routine jobs removed")
	}
}

// Sync reconciles registered jobs with the stored settings.
func (s *RoutineScheduler) Sync(ctx context.Context) error {
	all, err := s.settingsRepo.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("could not list routine settings: %w", err)
	}

	seen := make(map[string]bool, len(all))
	for _, settings := range all {
		seen[settings.CompanyID] = true
		if err := s.ScheduleCompany(settings); err != nil {
			s.log.WithError(err).WithField("company_id", settings.CompanyID).Error("Could not schedule company")
		}
	}
	for _, companyID := range s.Companies() {
		if !seen[companyID] {
			s.RemoveCompany(companyID)
		}
	}
	return nil
}

// Companies lists the companies with registered jobs.
func (s *RoutineScheduler) Companies() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.jobs))
	for id := range s.jobs {
		ids = append(ids, id)
	}
	return ids
}

// NextRun returns when the company's routine job fires next.
func (s *RoutineScheduler) NextRun(companyID string) (time.Time, bool) {
	s.mu.Lock()
	jobs, ok := s.jobs[companyID]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	entry := s.cronEngine.Entry(jobs.notifyID)
	if !entry.Valid() {
		return time.Time{}, false
	}
	return entry.Schedule.Next(s.clock.Now().UTC()), true
}

func (s *RoutineScheduler) runNotification(companyID string) {
	log := s.log.WithField("company_id", companyID)
	log.Info("Cron job triggered for routine notification.")
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()
	if _, err := s.notifService.RoutineNotification(ctx, companyID); err != nil {
		log.WithError(err).Error("Error during routine notification")
	}
}

func (s *RoutineScheduler) runReminder(companyID string) {
	log := s.log.WithField("company_id", companyID)
	log.Info("Cron job triggered for routine reminder.")
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()
	if _, err := s.notifService.RoutineReminder(ctx, companyID); err != nil {
		log.WithError(err).Error("Error during routine reminder")
	}
}

func (s *RoutineScheduler) Stop() {
	s.log.Info("Stopping routine scheduler...")
	ctx := s.cronEngine.Stop() // Stops the scheduler from adding new jobs, waits for running jobs.
	<-ctx.Done()
	s.log.Info("Routine scheduler gracefully stopped.")
}
