package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"routine_notification_bot/internal/domain/answer"
	"routine_notification_bot/internal/domain/directory"
	"routine_notification_bot/internal/domain/form"
	"routine_notification_bot/internal/domain/routine"
	"routine_notification_bot/internal/domain/schedule"

	"github.com/shopspring/decimal"
)

const (
	qFeeling    = "44bd7498-e528-4f96-b45e-3a2374790373"
	qProductive = "9a56911a-61c1-49af-87a8-7a35a1804f6b"
	qRoadBlock  = "cf785f20-5a0b-4c4c-b882-9e3949589df2"
	qHighlights = "d81e7754-79be-4638-89f3-a74875772d00"
)

func newAnswerService(t *testing.T, now time.Time, answers *fakeAnswerRepo, dir *fakeDirectory) *AnswerServiceImpl {
	t.Helper()
	catalogue, err := form.LoadCatalogue()
	if err != nil {
		t.Fatalf("LoadCatalogue: %v", err)
	}
	settings := newFakeSettingsRepo(&routine.Settings{ID: "s1", CompanyID: "acme", Cron: fridayCron})
	if dir == nil {
		dir = &fakeDirectory{}
	}
	return NewAnswerServiceImpl(answers, settings, dir, catalogue,
		AnswerOptions{Language: form.LanguagePtBR, HistoryWindows: 5, Normalizer: schedule.CadenceAnchored{}},
		schedule.FixedClock{At: now}, quietLog())
}

func TestRegisterAnswers(t *testing.T) {
	now := day(2024, time.March, 6, 10)
	user := acmeUser("u1", "eng")

	t.Run("missing required answer", func(t *testing.T) {
		repo := &fakeAnswerRepo{}
		svc := newAnswerService(t, now, repo, nil)
		_, err := svc.RegisterAnswers(context.Background(), user, []answer.Submission{
			{QuestionID: qFeeling, Value: "4"},
			{QuestionID: qProductive, Value: ""},
			{QuestionID: qRoadBlock, Value: "n"},
		})
		if !errors.Is(err, ErrMissingRequiredAnswers) {
			t.Fatalf("expected ErrMissingRequiredAnswers, got %v", err)
		}
		if len(repo.groups) != 0 {
			t.Errorf("nothing should be stored")
		}
	})

	t.Run("hidden answers are accepted and dropped", func(t *testing.T) {
		repo := &fakeAnswerRepo{}
		svc := newAnswerService(t, now, repo, nil)
		teams, err := svc.RegisterAnswers(context.Background(), user, []answer.Submission{
			{QuestionID: qFeeling, Value: "4"},
			{QuestionID: qProductive, Value: "3"},
			{QuestionID: qRoadBlock, Hidden: true},
			{QuestionID: qHighlights, Value: "shipped"},
		})
		if err != nil {
			t.Fatalf("RegisterAnswers: %v", err)
		}
		if len(teams) != 1 || teams[0].ID != "eng" {
			t.Errorf("teams = %+v", teams)
		}
		if len(repo.groups) != 1 {
			t.Fatalf("groups = %d, want 1", len(repo.groups))
		}
		g := repo.groups[0]
		if g.CompanyID != "acme" || !g.Timestamp.Equal(now) {
			t.Errorf("group = %+v", g)
		}
		if len(g.Answers) != 3 {
			t.Fatalf("answers = %d, want 3", len(g.Answers))
		}
		for _, a := range g.Answers {
			if a.QuestionID == qRoadBlock {
				t.Errorf("hidden answer was stored")
			}
		}
	})

	t.Run("user without company", func(t *testing.T) {
		svc := newAnswerService(t, now, &fakeAnswerRepo{}, nil)
		if _, err := svc.RegisterAnswers(context.Background(), &directory.User{ID: "x"}, nil); !errors.Is(err, ErrNoCompany) {
			t.Fatalf("expected ErrNoCompany, got %v", err)
		}
	})
}

func TestDetailedAnswer(t *testing.T) {
	now := day(2024, time.March, 13, 10)
	repo := &fakeAnswerRepo{}
	repo.add("g-feb17", "u1", "acme", day(2024, time.February, 17, 9), map[string]string{qFeeling: "3"})
	repo.add("g-mar02", "u1", "acme", day(2024, time.March, 2, 9), map[string]string{qFeeling: "4"})
	repo.add("g-mar09", "u1", "acme", day(2024, time.March, 9, 9), map[string]string{qFeeling: "5", qHighlights: "demo day"})
	svc := newAnswerService(t, now, repo, nil)

	details, err := svc.DetailedAnswer(context.Background(), acmeUser("viewer", "eng"), "g-mar09")
	if err != nil {
		t.Fatalf("DetailedAnswer: %v", err)
	}

	if len(details.History) != 5 {
		t.Fatalf("history length = %d, want 5", len(details.History))
	}
	wantIDs := []string{"", "g-feb17", "", "g-mar02", "g-mar09"}
	wantStarts := []time.Time{
		day(2024, time.February, 9, 0),
		day(2024, time.February, 16, 0),
		day(2024, time.February, 23, 0),
		day(2024, time.March, 1, 0),
		day(2024, time.March, 8, 0),
	}
	for i, entry := range details.History {
		if !entry.Window.StartDate.Equal(wantStarts[i]) {
			t.Errorf("history[%d] starts %v, want %v", i, entry.Window.StartDate, wantStarts[i])
		}
		got := ""
		if entry.ID != nil {
			got = *entry.ID
		}
		if got != wantIDs[i] {
			t.Errorf("history[%d] id = %q, want %q", i, got, wantIDs[i])
		}
	}

	var feeling, highlights *QuestionAnswer
	for i := range details.Answers {
		switch details.Answers[i].ID {
		case qFeeling:
			feeling = &details.Answers[i]
		case qHighlights:
			highlights = &details.Answers[i]
		}
		if details.Answers[i].Type == form.TypeReadingText {
			t.Errorf("reading text question included")
		}
	}
	if feeling == nil || len(feeling.Values) != 3 {
		t.Fatalf("feeling series = %+v", feeling)
	}
	for i, want := range []string{"3", "4", "5"} {
		if feeling.Values[i].Value == nil || *feeling.Values[i].Value != want {
			t.Errorf("feeling[%d] = %v, want %s", i, feeling.Values[i].Value, want)
		}
	}
	if highlights == nil || highlights.Value == nil || *highlights.Value != "demo day" {
		t.Errorf("highlights = %+v", highlights)
	}
}

func TestDetailedAnswerRejectsOtherCompany(t *testing.T) {
	repo := &fakeAnswerRepo{}
	repo.add("g1", "u1", "acme", day(2024, time.March, 9, 9), nil)
	svc := newAnswerService(t, day(2024, time.March, 13, 10), repo, nil)

	outsider := &directory.User{ID: "x", Companies: []directory.Team{{ID: "globex"}}}
	if _, err := svc.DetailedAnswer(context.Background(), outsider, "g1"); !errors.Is(err, ErrNotCompanyMember) {
		t.Fatalf("expected ErrNotCompanyMember, got %v", err)
	}
}

func TestTeamSummary(t *testing.T) {
	repo := &fakeAnswerRepo{}
	repo.add("g-old", "u1", "acme", day(2024, time.March, 2, 9), map[string]string{qFeeling: "2"})
	repo.add("g-new", "u1", "acme", day(2024, time.March, 9, 9), map[string]string{qFeeling: "4"})
	dir := &fakeDirectory{members: map[string][]*directory.User{
		"eng": {acmeUser("u1", "eng"), acmeUser("u4", "eng")},
	}}
	svc := newAnswerService(t, day(2024, time.March, 13, 10), repo, dir)

	summary, err := svc.TeamSummary(context.Background(), acmeUser("u1", "eng"), "eng",
		day(2024, time.March, 1, 0), day(2024, time.March, 13, 0), false)
	if err != nil {
		t.Fatalf("TeamSummary: %v", err)
	}
	if len(summary) != 2 {
		t.Fatalf("summary lines = %d, want 2", len(summary))
	}
	if summary[0].GroupID == nil || *summary[0].GroupID != "g-new" {
		t.Errorf("u1 latest group = %v", summary[0].GroupID)
	}
	if summary[0].LatestStatusReply == nil || *summary[0].LatestStatusReply != 4 {
		t.Errorf("u1 latest reply = %v", summary[0].LatestStatusReply)
	}
	if summary[1].GroupID != nil || summary[1].LatestStatusReply != nil {
		t.Errorf("u4 never answered, got %+v", summary[1])
	}

	if _, err := svc.TeamSummary(context.Background(), acmeUser("u9", "ops"), "eng", time.Time{}, time.Time{}, false); !errors.Is(err, ErrNotTeamMember) {
		t.Errorf("expected ErrNotTeamMember, got %v", err)
	}
}

func TestUserLastRoutine(t *testing.T) {
	repo := &fakeAnswerRepo{}
	repo.add("g-prev", "u1", "acme", day(2024, time.March, 2, 9), map[string]string{qFeeling: "3"})
	repo.add("g-cur", "u1", "acme", day(2024, time.March, 14, 18), map[string]string{qFeeling: "5", qHighlights: "x"})
	svc := newAnswerService(t, day(2024, time.March, 13, 10), repo, nil)

	groups, err := svc.UserLastRoutine(context.Background(), acmeUser("u1", "eng"))
	if err != nil {
		t.Fatalf("UserLastRoutine: %v", err)
	}
	if len(groups) != 1 || groups[0].ID != "g-cur" {
		t.Fatalf("groups = %+v", groups)
	}
	if len(groups[0].Answers) != 1 || groups[0].Answers[0].QuestionID != qFeeling {
		t.Errorf("only series questions should be loaded, got %+v", groups[0].Answers)
	}
}

func TestQuestionTrend(t *testing.T) {
	repo := &fakeAnswerRepo{}
	repo.add("a", "u1", "acme", day(2024, time.March, 2, 9), map[string]string{qFeeling: "4"})
	repo.add("b", "u4", "acme", day(2024, time.March, 3, 9), map[string]string{qFeeling: "3"})
	repo.add("c", "u1", "acme", day(2024, time.March, 9, 9), map[string]string{qFeeling: "5"})
	repo.add("d", "u4", "acme", day(2024, time.March, 10, 9), map[string]string{qFeeling: "n/a"})
	svc := newAnswerService(t, day(2024, time.March, 13, 10), repo, nil)

	points, err := svc.QuestionTrend(context.Background(), "acme", qFeeling, 3)
	if err != nil {
		t.Fatalf("QuestionTrend: %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("points = %d, want 3", len(points))
	}
	want := []struct {
		answers int
		average string
	}{
		{0, "0"},
		{2, "3.5"},
		{1, "5"},
	}
	for i, w := range want {
		if points[i].Answers != w.answers {
			t.Errorf("points[%d].Answers = %d, want %d", i, points[i].Answers, w.answers)
		}
		if !points[i].Average.Equal(decimal.RequireFromString(w.average)) {
			t.Errorf("points[%d].Average = %s, want %s", i, points[i].Average, w.average)
		}
	}
}

func TestDetailedAnswerWithoutSettings(t *testing.T) {
	repo := &fakeAnswerRepo{}
	repo.add("g-old", "u1", "globex", day(2024, time.March, 2, 9), map[string]string{qFeeling: "2"})
	repo.add("g1", "u1", "globex", day(2024, time.March, 9, 9), map[string]string{qFeeling: "4", qHighlights: "launch"})
	svc := newAnswerService(t, day(2024, time.March, 13, 10), repo, nil)

	viewer := &directory.User{ID: "u1", Companies: []directory.Team{{ID: "globex"}}}
	details, err := svc.DetailedAnswer(context.Background(), viewer, "g1")
	if err != nil {
		t.Fatalf("DetailedAnswer: %v", err)
	}
	if details.History == nil || len(details.History) != 0 {
		t.Errorf("history = %+v, want empty", details.History)
	}

	found := false
	for _, a := range details.Answers {
		switch a.ID {
		case qFeeling:
			found = true
			if len(a.Values) != 2 || *a.Values[0].Value != "2" || *a.Values[1].Value != "4" {
				t.Errorf("feeling series = %+v", a.Values)
			}
		case qHighlights:
			if a.Value == nil || *a.Value != "launch" {
				t.Errorf("highlights = %v", a.Value)
			}
		}
	}
	if !found {
		t.Error("answers should still be returned")
	}
}

func TestQuestionTrendWithoutSettings(t *testing.T) {
	repo := &fakeAnswerRepo{}
	repo.add("a", "u1", "globex", day(2024, time.March, 2, 9), map[string]string{qFeeling: "4"})
	svc := newAnswerService(t, day(2024, time.March, 13, 10), repo, nil)

	points, err := svc.QuestionTrend(context.Background(), "globex", qFeeling, 3)
	if err != nil {
		t.Fatalf("QuestionTrend: %v", err)
	}
	if points == nil || len(points) != 0 {
		t.Errorf("points = %+v, want empty", points)
	}
}
