package app

import (
	"context"
	"io"
	"sort"
	"strconv"
	"sync"
	"time"

	"routine_notification_bot/internal/domain/answer"
	"routine_notification_bot/internal/domain/directory"
	"routine_notification_bot/internal/domain/notification"
	"routine_notification_bot/internal/domain/routine"
	idb "routine_notification_bot/internal/infra/database"

	"github.com/sirupsen/logrus"
)

func quietLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func day(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

type fakeSettingsRepo struct {
	byCompany map[string]*routine.Settings
}

func newFakeSettingsRepo(settings ...*routine.Settings) *fakeSettingsRepo {
	r := &fakeSettingsRepo{byCompany: make(map[string]*routine.Settings)}
	for _, s := range settings {
		r.byCompany[s.CompanyID] = s
	}
	return r
}

func (r *fakeSettingsRepo) GetByCompanyID(_ context.Context, companyID string) (*routine.Settings, error) {
	s, ok := r.byCompany[companyID]
	if !ok {
		return nil, idb.ErrSettingsNotFound
	}
	return s, nil
}

func (r *fakeSettingsRepo) ListAll(_ context.Context) ([]*routine.Settings, error) {
	all := make([]*routine.Settings, 0, len(r.byCompany))
	for _, s := range r.byCompany {
		all = append(all, s)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CompanyID < all[j].CompanyID })
	return all, nil
}

func (r *fakeSettingsRepo) Upsert(_ context.Context, s *routine.Settings) error {
	if existing, ok := r.byCompany[s.CompanyID]; ok {
		s.ID = existing.ID
	} else if s.ID == "" {
		s.ID = "settings-" + s.CompanyID
	}
	r.byCompany[s.CompanyID] = s
	return nil
}

func (r *fakeSettingsRepo) UpdateDisabledTeams(_ context.Context, companyID string, teams []string) (*routine.Settings, error) {
	s, ok := r.byCompany[companyID]
	if !ok {
		return nil, idb.ErrSettingsNotFound
	}
	s.DisabledTeams = teams
	return s, nil
}

type fakeAnswerRepo struct {
	groups []*answer.Group
	seq    int
}

func (r *fakeAnswerRepo) add(id, userID, companyID string, at time.Time, values map[string]string) *answer.Group {
	g := &answer.Group{ID: id, UserID: userID, CompanyID: companyID, Timestamp: at}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, q := range keys {
		v := values[q]
		g.Answers = append(g.Answers, &answer.Answer{
			ID: id + "-" + q, AnswerGroupID: id, QuestionID: q, Value: &v, Timestamp: at, UserID: userID,
		})
	}
	r.groups = append(r.groups, g)
	return g
}

func (r *fakeAnswerRepo) CreateGroup(_ context.Context, g *answer.Group) error {
	r.seq++
	g.ID = "group-" + strconv.Itoa(r.seq)
	for _, a := range g.Answers {
		a.AnswerGroupID = g.ID
		a.Timestamp = g.Timestamp
		a.UserID = g.UserID
	}
	r.groups = append(r.groups, g)
	return nil
}

func (r *fakeAnswerRepo) GetGroup(_ context.Context, id string) (*answer.Group, error) {
	for _, g := range r.groups {
		if g.ID == id {
			return g, nil
		}
	}
	return nil, idb.ErrAnswerGroupNotFound
}

func (r *fakeAnswerRepo) LatestGroupFromUser(_ context.Context, userID string) (*answer.Group, error) {
	var latest *answer.Group
	for _, g := range r.groups {
		if g.UserID == userID && (latest == nil || g.Timestamp.After(latest.Timestamp)) {
			latest = g
		}
	}
	if latest == nil {
		return nil, idb.ErrAnswerGroupNotFound
	}
	return latest, nil
}

func contains(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func (r *fakeAnswerRepo) FindGroups(_ context.Context, f answer.GroupFilter) ([]*answer.Group, error) {
	var out []*answer.Group
	for _, g := range r.groups {
		switch {
		case len(f.UserIDs) > 0 && !contains(f.UserIDs, g.UserID):
		case f.CompanyID != "" && g.CompanyID != f.CompanyID:
		case !f.From.IsZero() && g.Timestamp.Before(f.From):
		case !f.To.IsZero() && g.Timestamp.After(f.To):
		case !f.Before.IsZero() && !g.Timestamp.Before(f.Before):
		default:
			copied := *g
			copied.Answers = nil
			if len(f.QuestionIDs) > 0 {
				for _, a := range g.Answers {
					if contains(f.QuestionIDs, a.QuestionID) {
						copied.Answers = append(copied.Answers, a)
					}
				}
			}
			out = append(out, &copied)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if f.NewestFirst {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *fakeAnswerRepo) FindAnswers(_ context.Context, f answer.AnswerFilter) ([]*answer.Answer, error) {
	var out []*answer.Answer
	for _, g := range r.groups {
		if !contains(f.GroupIDs, g.ID) {
			continue
		}
		for _, a := range g.Answers {
			if len(f.QuestionIDs) == 0 || contains(f.QuestionIDs, a.QuestionID) {
				out = append(out, a)
			}
		}
	}
	return out, nil
}

type fakeDispatchRepo struct {
	dispatches []*notification.Dispatch
}

func (r *fakeDispatchRepo) CreateDispatch(_ context.Context, d *notification.Dispatch) error {
	d.ID = int64(len(r.dispatches) + 1)
	r.dispatches = append(r.dispatches, d)
	return nil
}

func (r *fakeDispatchRepo) GetDispatch(_ context.Context, companyID string, windowStart time.Time, kind notification.MessageType) (*notification.Dispatch, error) {
	for _, d := range r.dispatches {
		if d.CompanyID == companyID && d.WindowStart.Equal(windowStart) && d.Kind == kind {
			return d, nil
		}
	}
	return nil, idb.ErrDispatchNotFound
}

func (r *fakeDispatchRepo) ListDispatches(_ context.Context, companyID string, _ int) ([]*notification.Dispatch, error) {
	var out []*notification.Dispatch
	for _, d := range r.dispatches {
		if d.CompanyID == companyID {
			out = append(out, d)
		}
	}
	return out, nil
}

type fakeDirectory struct {
	companies []directory.Team
	members   map[string][]*directory.User
}

func (d *fakeDirectory) UsersForTeam(_ context.Context, teamID string, _ directory.Options) ([]*directory.User, error) {
	return d.members[teamID], nil
}

func (d *fakeDirectory) GetUser(_ context.Context, id string) (*directory.User, error) {
	for _, users := range d.members {
		for _, u := range users {
			if u.ID == id {
				return u, nil
			}
		}
	}
	return nil, idb.ErrUserNotFound
}

func (d *fakeDirectory) GetUserByTelegramID(_ context.Context, telegramID int64) (*directory.User, error) {
	for _, users := range d.members {
		for _, u := range users {
			if u.TelegramID == telegramID {
				return u, nil
			}
		}
	}
	return nil, idb.ErrUserNotFound
}

func (d *fakeDirectory) ListCompanies(_ context.Context) ([]directory.Team, error) {
	return d.companies, nil
}

type recordingPublisher struct {
	mu         sync.Mutex
	messages   []notification.Message
	pendencies []notification.PendenciesReport
}

func (p *recordingPublisher) Publish(_ context.Context, msg notification.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
	return nil
}

func (p *recordingPublisher) PublishPendencies(_ context.Context, report notification.PendenciesReport) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pendencies = append(p.pendencies, report)
	return nil
}

type recordingRegistrar struct {
	scheduled []*routine.Settings
}

func (r *recordingRegistrar) ScheduleCompany(s *routine.Settings) error {
	r.scheduled = append(r.scheduled, s)
	return nil
}
