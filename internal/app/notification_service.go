// internal/app/notification_service.go
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"routine_notification_bot/internal/domain/answer"
	"routine_notification_bot/internal/domain/directory"
	"routine_notification_bot/internal/domain/notification"
	"routine_notification_bot/internal/domain/routine"
	"routine_notification_bot/internal/domain/schedule"
	idb "routine_notification_bot/internal/infra/database"

	"github.com/sirupsen/logrus"
)

// NotificationService runs the scheduled routine notifications of a company.
// Both runs return the number of messages published.
type NotificationService interface {
	RoutineNotification(ctx context.Context, companyID string) (int, error)
	RoutineReminder(ctx context.Context, companyID string) (int, error)
}

type NotificationServiceImpl struct {
	settingsRepo routine.SettingsRepository
	answerRepo   answer.Repository
	dispatchRepo notification.Repository
	dir          directory.Directory
	publisher    notification.Publisher
	clock        schedule.Clock
	log          *logrus.Entry
}

func NewNotificationServiceImpl(
	sr routine.SettingsRepository,
	ar answer.Repository,
	dr notification.Repository,
	dir directory.Directory,
	pub notification.Publisher,
	clock schedule.Clock,
	log *logrus.Entry,
) *NotificationServiceImpl {
	return &NotificationServiceImpl{
		settingsRepo: sr,
		answerRepo:   ar,
		dispatchRepo: dr,
		dir:          dir,
		publisher:    pub,
		clock:        clock,
		log:          log,
	}
}

// population is the state of a company's current routine window.
type population struct {
	windowStart  time.Time
	companyUsers []*directory.User
	eligible     []*directory.User // users with at least one enabled team, disabled teams removed
	pending      []*directory.User
	answered     int
}

func (s *NotificationServiceImpl) loadPopulation(ctx context.Context, companyID string) (*population, error) {
	settings, err := s.settingsRepo.GetByCompanyID(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load routine settings of company %s: %w", companyID, err)
	}
	interval, err := schedule.ParseCadence(settings.Cron, s.clock.Now())
	if err != nil {
		return nil, err
	}
	p := &population{windowStart: interval.Current()}

	p.companyUsers, err = s.dir.UsersForTeam(ctx, companyID, directory.Options{ResolveSubteams: true})
	if err != nil {
		return nil, fmt.Errorf("failed to load users of company %s: %w", companyID, err)
	}
	for _, u := range p.companyUsers {
		if routine.UserHasActiveTeam(u, settings.DisabledTeams) {
			p.eligible = append(p.eligible, routine.RemoveDisabledTeams(u, settings.DisabledTeams))
		}
	}

	groups, err := s.answerRepo.FindGroups(ctx, answer.GroupFilter{CompanyID: companyID, From: p.windowStart})
	if err != nil {
		return nil, fmt.Errorf("failed to load answers of company %s: %w", companyID, err)
	}
	p.answered = len(groups)
	answeredBy := make(map[string]bool, len(groups))
	for _, g := range groups {
		answeredBy[g.UserID] = true
	}
	for _, u := range p.eligible {
		if !answeredBy[u.ID] {
			p.pending = append(p.pending, u)
		}
	}
	return p, nil
}

// alreadyDispatched reports whether the window was notified for kind.
func (s *NotificationServiceImpl) alreadyDispatched(ctx context.Context, companyID string, windowStart time.Time, kind notification.MessageType) (bool, error) {
	_, err := s.dispatchRepo.GetDispatch(ctx, companyID, windowStart, kind)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, idb.ErrDispatchNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check routine dispatch: %w", err)
}

// publishAll sends one message per (user, enabled team) and returns how many succeeded.
func (s *NotificationServiceImpl) publishAll(ctx context.Context, kind notification.MessageType, users []*directory.User) int {
	now := s.clock.Now()
	sent := 0
	for _, u := range users {
		for _, team := range u.Teams {
			msg := notification.NewMessage(kind, now, u, team)
			entry := s.log.WithFields(logrus.Fields{
				"message_id": msg.ID.String(),
				"type":       kind,
				"user_id":    u.ID,
				"team_id":    team.ID,
			})
			if err := s.publisher.Publish(ctx, msg); err != nil {
				entry.WithError(err).Error("Failed to publish notification")
				continue
			}
			entry.Debug("Notification published")
			sent++
		}
	}
	return sent
}

func (s *NotificationServiceImpl) recordDispatch(ctx context.Context, companyID string, windowStart time.Time, kind notification.MessageType, sent int) {
	d := &notification.Dispatch{CompanyID: companyID, WindowStart: windowStart, Kind: kind, Recipients: sent}
	if err := s.dispatchRepo.CreateDispatch(ctx, d); err != nil {
		if errors.Is(err, idb.ErrDuplicateDispatch) {
			s.log.WithField("company_id", companyID).Warn("Routine dispatch recorded concurrently")
			return
		}
		s.log.WithError(err).WithField("company_id", companyID).Error("Failed to record routine dispatch")
	}
}

// RoutineNotification asks every pending user of the company to answer the
// current routine and reports the pendencies. It runs once per window.
func (s *NotificationServiceImpl) RoutineNotification(ctx context.Context, companyID string) (int, error) {
	log := s.log.WithFields(logrus.Fields{"company_id": companyID, "kind": notification.MessageTypeRoutine})

	p, err := s.loadPopulation(ctx, companyID)
	if errors.Is(err, idb.ErrSettingsNotFound) {
		log.Info("Company has no routine settings, nothing to send")
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	done, err := s.alreadyDispatched(ctx, companyID, p.windowStart, notification.MessageTypeRoutine)
	if err != nil {
		return 0, err
	}
	if done {
		log.WithField("window_start", p.windowStart).Info("Routine already notified for this window, skipping")
		return 0, nil
	}

	report := notification.PendenciesReport{
		CompanyID:    companyID,
		WindowStart:  p.windowStart,
		CompanyUsers: len(p.companyUsers),
		Pending:      p.pending,
	}
	if err := s.publisher.PublishPendencies(ctx, report); err != nil {
		log.WithError(err).Error("Failed to publish pendencies report")
	}

	sent := s.publishAll(ctx, notification.MessageTypeRoutine, p.pending)
	s.recordDispatch(ctx, companyID, p.windowStart, notification.MessageTypeRoutine, sent)
	log.WithFields(logrus.Fields{"pending": len(p.pending), "sent": sent}).Info("Routine notification finished")
	return sent, nil
}

// RoutineReminder nudges users who still owe the current routine. Nothing is
// sent while nobody in the company has answered yet.
func (s *NotificationServiceImpl) RoutineReminder(ctx context.Context, companyID string) (int, error) {
	log := s.log.WithFields(logrus.Fields{"company_id": companyID, "kind": notification.MessageTypeRoutineReminder})

	p, err := s.loadPopulation(ctx, companyID)
	if errors.Is(err, idb.ErrSettingsNotFound) {
		log.Info("Company has no routine settings, nothing to send")
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if p.answered == 0 {
		log.Info("No answers in the current window yet, reminder skipped")
		return 0, nil
	}
	done, err := s.alreadyDispatched(ctx, companyID, p.windowStart, notification.MessageTypeRoutineReminder)
	if err != nil {
		return 0, err
	}
	if done {
		log.WithField("window_start", p.windowStart).Info("Reminder already sent for this window, skipping")
		return 0, nil
	}

	sent := s.publishAll(ctx, notification.MessageTypeRoutineReminder, p.pending)
	s.recordDispatch(ctx, companyID, p.windowStart, notification.MessageTypeRoutineReminder, sent)
	log.WithFields(logrus.Fields{"pending": len(p.pending), "sent": sent}).Info("Routine reminder finished")
	return sent, nil
}
