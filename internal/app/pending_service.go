// internal/app/pending_service.go
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"routine_notification_bot/internal/domain/answer"
	"routine_notification_bot/internal/domain/directory"
	"routine_notification_bot/internal/domain/routine"
	"routine_notification_bot/internal/domain/schedule"
	idb "routine_notification_bot/internal/infra/database"

	"github.com/sirupsen/logrus"
)

// PendingStatus carries the user's latest reply, if any.
type PendingStatus struct {
	LatestReply *time.Time `json:"latestReply,omitempty"`
}

// PendingRoutine is a routine the user still owes for the current window.
type PendingRoutine struct {
	routine.Routine
	DaysOutdated int           `json:"daysOutdated"`
	Status       PendingStatus `json:"status"`
}

// PendingService lists the routines a user has to answer.
type PendingService interface {
	PendingRoutines(ctx context.Context, user *directory.User) ([]PendingRoutine, error)
}

type PendingServiceImpl struct {
	settingsRepo routine.SettingsRepository
	answerRepo   answer.Repository
	parser       *schedule.Parser
	evaluator    *schedule.Evaluator
	log          *logrus.Entry
}

func NewPendingServiceImpl(sr routine.SettingsRepository, ar answer.Repository, clock schedule.Clock, log *logrus.Entry) *PendingServiceImpl {
	r := routine.Default()
	return &PendingServiceImpl{
		settingsRepo: sr,
		answerRepo:   ar,
		parser:       schedule.NewParser(clock),
		evaluator:    schedule.NewEvaluator(clock, r.PeriodDays()),
		log:          log,
	}
}

func (s *PendingServiceImpl) PendingRoutines(ctx context.Context, user *directory.User) ([]PendingRoutine, error) {
	none := []PendingRoutine{}

	company, ok := user.Company()
	if !ok {
		return none, nil
	}

	settings, err := s.settingsRepo.GetByCompanyID(ctx, company.ID)
	if err != nil {
		if errors.Is(err, idb.ErrSettingsNotFound) {
			return none, nil
		}
		return nil, fmt.Errorf("failed to load routine settings: %w", err)
	}

	if routine.AllTeamsOptedOut(settings.DisabledTeams, user.TeamIDs()) {
		return none, nil
	}

	interval, err := s.parser.Parse(settings.Cron)
	if err != nil {
		return nil, err
	}
	daysOutdated := s.evaluator.DaysOutdated(interval)
	pending := PendingRoutine{Routine: routine.Default(), DaysOutdated: daysOutdated}

	latest, err := s.answerRepo.LatestGroupFromUser(ctx, user.ID)
	if err != nil {
		if errors.Is(err, idb.ErrAnswerGroupNotFound) {
			return []PendingRoutine{pending}, nil
		}
		return nil, fmt.Errorf("failed to load latest answer: %w", err)
	}

	answeredAt := latest.Timestamp.UTC()
	if s.evaluator.AnsweredWithinTimeSpan(answeredAt) {
		return none, nil
	}

	s.log.WithFields(logrus.Fields{"user_id": user.ID, "days_outdated": daysOutdated}).Debug("Routine pending")
	pending.Status.LatestReply = &answeredAt
	return []PendingRoutine{pending}, nil
}
