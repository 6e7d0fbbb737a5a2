// internal/app/answer_service.go
package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"routine_notification_bot/internal/domain/answer"
	"routine_notification_bot/internal/domain/directory"
	"routine_notification_bot/internal/domain/form"
	"routine_notification_bot/internal/domain/routine"
	"routine_notification_bot/internal/domain/schedule"
	idb "routine_notification_bot/internal/infra/database"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const previousGroupsInDetail = 4

// AnswerPoint is one value of a question's series.
type AnswerPoint struct {
	Value     *string   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// QuestionAnswer is a question of the form together with the user's reply.
// Series questions carry Values, the rest carry Value.
type QuestionAnswer struct {
	ID        string            `json:"id"`
	Heading   string            `json:"heading"`
	Type      form.QuestionType `json:"type"`
	DependsOn string            `json:"dependsOn,omitempty"`
	Value     *string           `json:"value,omitempty"`
	Values    []AnswerPoint     `json:"values,omitempty"`
}

// AnswerDetails is the full view of one answer group.
type AnswerDetails struct {
	History []schedule.HistoryEntry `json:"history"`
	Answers []QuestionAnswer        `json:"answers"`
}

// AnswerOverview is one team member's line in a team summary.
type AnswerOverview struct {
	GroupID           *string    `json:"id,omitempty"`
	Name              string     `json:"name"`
	Picture           string     `json:"picture"`
	Timestamp         *time.Time `json:"timestamp,omitempty"`
	LatestStatusReply *int       `json:"latestStatusReply,omitempty"`
}

// TrendPoint is the company average of a numeric question over one window.
type TrendPoint struct {
	Window  schedule.Window `json:"window"`
	Answers int             `json:"answers"`
	Average decimal.Decimal `json:"average"`
}

// AnswerService records and reads routine answers.
type AnswerService interface {
	RegisterAnswers(ctx context.Context, user *directory.User, submissions []answer.Submission) ([]directory.Team, error)
	DetailedAnswer(ctx context.Context, user *directory.User, groupID string) (*AnswerDetails, error)
	TeamSummary(ctx context.Context, user *directory.User, teamID string, from, to time.Time, includeSubteams bool) ([]AnswerOverview, error)
	UserLastRoutine(ctx context.Context, user *directory.User) ([]*answer.Group, error)
	QuestionTrend(ctx context.Context, companyID, questionID string, windows int) ([]TrendPoint, error)
}

// AnswerOptions tune how answers are presented.
type AnswerOptions struct {
	Language       form.Language
	HistoryWindows int
	Normalizer     schedule.Normalizer
}

type AnswerServiceImpl struct {
	answerRepo   answer.Repository
	settingsRepo routine.SettingsRepository
	dir          directory.Directory
	catalogue    *form.Catalogue
	opts         AnswerOptions
	clock        schedule.Clock
	log          *logrus.Entry
}

func NewAnswerServiceImpl(
	ar answer.Repository,
	sr routine.SettingsRepository,
	dir directory.Directory,
	catalogue *form.Catalogue,
	opts AnswerOptions,
	clock schedule.Clock,
	log *logrus.Entry,
) *AnswerServiceImpl {
	if opts.HistoryWindows <= 0 {
		opts.HistoryWindows = 5
	}
	if opts.Normalizer == nil {
		opts.Normalizer = schedule.CadenceAnchored{}
	}
	if opts.Language == "" {
		opts.Language = form.LanguagePtBR
	}
	return &AnswerServiceImpl{
		answerRepo:   ar,
		settingsRepo: sr,
		dir:          dir,
		catalogue:    catalogue,
		opts:         opts,
		clock:        clock,
		log:          log,
	}
}

func (s *AnswerServiceImpl) RegisterAnswers(ctx context.Context, user *directory.User, submissions []answer.Submission) ([]directory.Team, error) {
	company, ok := user.Company()
	if !ok {
		return nil, ErrNoCompany
	}

	byQuestion := make(map[string]answer.Submission, len(submissions))
	for _, sub := range submissions {
		if _, seen := byQuestion[sub.QuestionID]; !seen {
			byQuestion[sub.QuestionID] = sub
		}
	}
	for _, id := range s.catalogue.Required(s.opts.Language) {
		sub, found := byQuestion[id]
		if !found || (!sub.Hidden && sub.Value == "") {
			return nil, fmt.Errorf("%w: question %s", ErrMissingRequiredAnswers, id)
		}
	}

	group := &answer.Group{UserID: user.ID, CompanyID: company.ID, Timestamp: s.clock.Now()}
	for _, sub := range submissions {
		if sub.Hidden {
			continue
		}
		value := sub.Value
		group.Answers = append(group.Answers, &answer.Answer{QuestionID: sub.QuestionID, Value: &value})
	}

	if err := s.answerRepo.CreateGroup(ctx, group); err != nil {
		return nil, fmt.Errorf("failed to store answers: %w", err)
	}
	s.log.WithFields(logrus.Fields{
		"user_id":    user.ID,
		"company_id": company.ID,
		"group_id":   group.ID,
		"answers":    len(group.Answers),
	}).Info("Routine answered")
	return user.Teams, nil
}

func (s *AnswerServiceImpl) intervalFor(ctx context.Context, companyID string) (*routine.Settings, *schedule.Interval, error) {
	settings, err := s.settingsRepo.GetByCompanyID(ctx, companyID)
	if err != nil {
		return nil, nil, err
	}
	interval, err := schedule.ParseCadence(settings.Cron, s.clock.Now())
	if err != nil {
		return nil, nil, err
	}
	return settings, interval, nil
}

func (s *AnswerServiceImpl) DetailedAnswer(ctx context.Context, user *directory.User, groupID string) (*AnswerDetails, error) {
	group, err := s.answerRepo.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !user.BelongsToCompany(group.CompanyID) {
		return nil, ErrNotCompanyMember
	}

	// Without settings there is no cadence to lay windows on: the history stays
	// empty and only the answers are returned.
	var windows []schedule.Window
	cadence := ""
	settings, interval, err := s.intervalFor(ctx, group.CompanyID)
	switch {
	case errors.Is(err, idb.ErrSettingsNotFound):
	case err != nil:
		return nil, fmt.Errorf("failed to load routine of company %s: %w", group.CompanyID, err)
	default:
		cadence = settings.Cron
		windows, err = schedule.MultipleWindows(interval, s.opts.HistoryWindows, schedule.OldestFirst)
		if err != nil {
			return nil, err
		}
	}

	previous, err := s.answerRepo.FindGroups(ctx, answer.GroupFilter{
		UserIDs:     []string{group.UserID},
		Before:      group.Timestamp,
		Limit:       previousGroupsInDetail,
		NewestFirst: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load previous answers: %w", err)
	}

	records := make([]schedule.Record, 0, len(previous)+1)
	timestamps := make(map[string]time.Time, len(previous))
	previousIDs := make([]string, 0, len(previous))
	for _, g := range previous {
		records = append(records, schedule.Record{ID: g.ID, Timestamp: g.Timestamp})
		timestamps[g.ID] = g.Timestamp
		previousIDs = append(previousIDs, g.ID)
	}
	records = append(records, schedule.Record{ID: group.ID, Timestamp: group.Timestamp})

	history := []schedule.HistoryEntry{}
	if len(windows) > 0 {
		history, err = schedule.Reconstruct(windows, records, schedule.WithinWindow(s.opts.Normalizer, cadence))
		if err != nil {
			return nil, err
		}
	}

	var previousAnswers []*answer.Answer
	if len(previousIDs) > 0 {
		previousAnswers, err = s.answerRepo.FindAnswers(ctx, answer.AnswerFilter{GroupIDs: previousIDs})
		if err != nil {
			return nil, fmt.Errorf("failed to load previous answers: %w", err)
		}
	}

	details := &AnswerDetails{History: history, Answers: make([]QuestionAnswer, 0)}
	for _, q := range s.catalogue.Form(s.opts.Language) {
		if q.Type == form.TypeReadingText {
			continue
		}
		qa := QuestionAnswer{ID: q.ID, Heading: q.Heading, Type: q.Type}
		if q.Conditional != nil {
			qa.DependsOn = q.Conditional.DependsOn
		}
		current := findAnswer(group.Answers, q.ID)

		if !q.HasHistory() {
			if current != nil {
				qa.Value = current.Value
			}
			details.Answers = append(details.Answers, qa)
			continue
		}

		for _, a := range previousAnswers {
			if a.QuestionID == q.ID {
				qa.Values = append(qa.Values, AnswerPoint{Value: a.Value, Timestamp: timestamps[a.AnswerGroupID]})
			}
		}
		sort.SliceStable(qa.Values, func(i, j int) bool {
			return qa.Values[i].Timestamp.Before(qa.Values[j].Timestamp)
		})
		point := AnswerPoint{Timestamp: group.Timestamp}
		if current != nil {
			point.Value = current.Value
		}
		qa.Values = append(qa.Values, point)
		details.Answers = append(details.Answers, qa)
	}
	return details, nil
}

func findAnswer(answers []*answer.Answer, questionID string) *answer.Answer {
	for _, a := range answers {
		if a.QuestionID == questionID {
			return a
		}
	}
	return nil
}

func (s *AnswerServiceImpl) TeamSummary(ctx context.Context, user *directory.User, teamID string, from, to time.Time, includeSubteams bool) ([]AnswerOverview, error) {
	if !user.BelongsToTeam(teamID) {
		return nil, ErrNotTeamMember
	}

	members, err := s.dir.UsersForTeam(ctx, teamID, directory.Options{ResolveSubteams: includeSubteams})
	if err != nil {
		return nil, fmt.Errorf("failed to load members of team %s: %w", teamID, err)
	}
	feeling, ok := s.catalogue.FirstOfType(s.opts.Language, form.TypeEmojiScale)
	if !ok {
		return nil, fmt.Errorf("form %s has no %s question", s.opts.Language, form.TypeEmojiScale)
	}

	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ID)
	}
	overview := make([]AnswerOverview, 0, len(members))
	if len(ids) == 0 {
		return overview, nil
	}

	groups, err := s.answerRepo.FindGroups(ctx, answer.GroupFilter{
		UserIDs:     ids,
		From:        from,
		To:          to,
		NewestFirst: true,
		QuestionIDs: []string{feeling.ID},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load team answers: %w", err)
	}
	latest := make(map[string]*answer.Group, len(members))
	for _, g := range groups {
		if _, seen := latest[g.UserID]; !seen {
			latest[g.UserID] = g
		}
	}

	for _, m := range members {
		line := AnswerOverview{Name: m.FullName(), Picture: m.Picture}
		if g, ok := latest[m.ID]; ok {
			id, at := g.ID, g.Timestamp
			line.GroupID = &id
			line.Timestamp = &at
			if len(g.Answers) > 0 && g.Answers[0].Value != nil {
				if v, err := strconv.Atoi(*g.Answers[0].Value); err == nil {
					line.LatestStatusReply = &v
				}
			}
		}
		overview = append(overview, line)
	}
	return overview, nil
}

func (s *AnswerServiceImpl) UserLastRoutine(ctx context.Context, user *directory.User) ([]*answer.Group, error) {
	company, ok := user.Company()
	if !ok {
		return []*answer.Group{}, nil
	}
	_, interval, err := s.intervalFor(ctx, company.ID)
	if err != nil {
		if errors.Is(err, idb.ErrSettingsNotFound) {
			return []*answer.Group{}, nil
		}
		return nil, err
	}
	window := schedule.WindowFor(interval)

	return s.answerRepo.FindGroups(ctx, answer.GroupFilter{
		UserIDs:     []string{user.ID},
		From:        window.StartDate,
		To:          endOfDay(window.FinishDate),
		QuestionIDs: s.catalogue.HistoryQuestionIDs(s.opts.Language),
	})
}

func endOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)
}

func (s *AnswerServiceImpl) QuestionTrend(ctx context.Context, companyID, questionID string, windows int) ([]TrendPoint, error) {
	settings, interval, err := s.intervalFor(ctx, companyID)
	if errors.Is(err, idb.ErrSettingsNotFound) {
		return []TrendPoint{}, nil
	}
	if err != nil {
		return nil, err
	}
	ws, err := schedule.MultipleWindows(interval, windows, schedule.OldestFirst)
	if err != nil {
		return nil, err
	}
	points := make([]TrendPoint, len(ws))
	for i, w := range ws {
		points[i] = TrendPoint{Window: w, Average: decimal.Zero}
	}
	if len(ws) == 0 {
		return points, nil
	}

	groups, err := s.answerRepo.FindGroups(ctx, answer.GroupFilter{
		CompanyID:   companyID,
		From:        ws[0].StartDate,
		QuestionIDs: []string{questionID},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load answers of company %s: %w", companyID, err)
	}

	sums := make([]decimal.Decimal, len(ws))
	for _, g := range groups {
		at, err := s.opts.Normalizer.Normalize(g.Timestamp, settings.Cron)
		if err != nil {
			continue
		}
		for i, w := range ws {
			if !w.Contains(at) {
				continue
			}
			for _, a := range g.Answers {
				if a.Value == nil {
					continue
				}
				v, err := decimal.NewFromString(*a.Value)
				if err != nil {
					continue
				}
				sums[i] = sums[i].Add(v)
				points[i].Answers++
			}
			break
		}
	}
	for i := range points {
		if points[i].Answers > 0 {
			points[i].Average = sums[i].Div(decimal.NewFromInt(int64(points[i].Answers))).Round(2)
		}
	}
	return points, nil
}
