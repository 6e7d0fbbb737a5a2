package telegram

import (
	"errors"
	"strings"
	"testing"
	"time"

	"routine_notification_bot/internal/app"
	"routine_notification_bot/internal/domain/form"
	"routine_notification_bot/internal/domain/notification"
	"routine_notification_bot/internal/domain/routine"
)

func sampleForm() []form.Question {
	return []form.Question{
		{ID: "intro", Type: form.TypeReadingText, Heading: "Bem-vindo"},
		{ID: "feeling", Type: form.TypeEmojiScale, Required: true, Heading: "Como foi?"},
		{ID: "why", Type: form.TypeLongText, Heading: "Por quê?"},
		{ID: "productivity", Type: form.TypeValueRange, Required: true, Heading: "Produtividade",
			Properties: &form.ValueRangeProperties{Steps: 3}},
		{ID: "blockers", Type: form.TypeLongText, Heading: "O que atrapalhou?",
			Conditional: &form.Conditional{DependsOn: "productivity", Type: form.TypeValueRange}},
		{ID: "roadblock", Type: form.TypeRoadBlock, Required: true, Heading: "Algum bloqueio?"},
	}
}

func TestParseAnswerPayload(t *testing.T) {
	payload := "1: 4\n2 = cansado\n\n3: 2\n5: não"

	got, err := parseAnswerPayload(payload, sampleForm())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]struct {
		value  string
		hidden bool
	}{
		"feeling":      {value: "4"},
		"why":          {value: "cansado"},
		"productivity": {value: "2"},
		"blockers":     {hidden: true},
		"roadblock":    {value: "n"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d submissions, want %d: %+v", len(got), len(want), got)
	}
	for _, s := range got {
		w, ok := want[s.QuestionID]
		if !ok {
			t.Errorf("unexpected submission for %s", s.QuestionID)
			continue
		}
		if s.Value != w.value || s.Hidden != w.hidden {
			t.Errorf("%s: got (%q, hidden=%v), want (%q, hidden=%v)", s.QuestionID, s.Value, s.Hidden, w.value, w.hidden)
		}
	}
}

func TestParseAnswerPayloadErrors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr error
	}{
		{name: "no separator", payload: "1 4", wantErr: ErrInvalidAnswerValue},
		{name: "question out of range", payload: "9: 1", wantErr: ErrUnknownQuestion},
		{name: "zero question", payload: "0: 1", wantErr: ErrUnknownQuestion},
		{name: "emoji above scale", payload: "1: 6", wantErr: ErrInvalidAnswerValue},
		{name: "value range above steps", payload: "3: 4", wantErr: ErrInvalidAnswerValue},
		{name: "road block not yes or no", payload: "5: talvez", wantErr: ErrInvalidAnswerValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseAnswerPayload(tt.payload, sampleForm())
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got error %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNormalizeValue(t *testing.T) {
	questions := sampleForm()
	tests := []struct {
		name string
		q    form.Question
		raw  string
		want string
	}{
		{name: "emoji keeps number", q: questions[1], raw: "05", want: "5"},
		{name: "long text untouched", q: questions[2], raw: "tudo certo", want: "tudo certo"},
		{name: "road block sim", q: questions[5], raw: "Sim", want: "y"},
		{name: "road block nao without accent", q: questions[5], raw: "nao", want: "n"},
		{name: "road block english", q: questions[5], raw: "yes", want: "y"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeValue(tt.q, tt.raw)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormTextNumbersAnswerableQuestions(t *testing.T) {
	text := formText(sampleForm())

	if !strings.HasPrefix(text, "Bem-vindo") {
		t.Errorf("form should open with the reading text, got %q", text)
	}
	if !strings.Contains(text, "1. Como foi? *") {
		t.Errorf("first answerable question should be number 1 and required: %q", text)
	}
	if !strings.Contains(text, "3. Produtividade *\n   (1 a 3)") {
		t.Errorf("value range should show its steps: %q", text)
	}
	if strings.Contains(text, "6.") {
		t.Errorf("reading text must not be numbered: %q", text)
	}
}

func TestPendingText(t *testing.T) {
	if got := pendingText(nil); !strings.Contains(got, "Nenhuma") {
		t.Errorf("empty list should say nothing is pending, got %q", got)
	}

	latest := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	got := pendingText([]app.PendingRoutine{
		{Routine: routine.Default(), DaysOutdated: 0},
		{Routine: routine.Default(), DaysOutdated: 3, Status: app.PendingStatus{LatestReply: &latest}},
	})
	lines := strings.Split(strings.TrimSpace(got), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), got)
	}
	if !strings.Contains(lines[0], "liberada hoje") {
		t.Errorf("line 0: %q", lines[0])
	}
	if !strings.Contains(lines[1], "3 dias") || !strings.Contains(lines[1], "01/03/2024") {
		t.Errorf("line 1: %q", lines[1])
	}
}

func TestDispatchesText(t *testing.T) {
	got := dispatchesText("acme", time.Time{}, false, nil)
	if !strings.Contains(got, "Sem agenda") || !strings.Contains(got, "Nenhum envio") {
		t.Errorf("empty report: %q", got)
	}

	next := time.Date(2024, time.March, 8, 0, 0, 0, 0, time.UTC)
	got = dispatchesText("acme", next, true, []*notification.Dispatch{
		{CompanyID: "acme", WindowStart: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
			Kind: notification.MessageTypeRoutineReminder, Recipients: 2, CreatedAt: time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)},
		{CompanyID: "acme", WindowStart: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
			Kind: notification.MessageTypeRoutine, Recipients: 5, CreatedAt: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)},
	})
	lines := strings.Split(strings.TrimSpace(got), "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d lines, want 5: %q", len(lines), got)
	}
	if !strings.Contains(lines[1], "08/03/2024 00:00") {
		t.Errorf("next run line: %q", lines[1])
	}
	if !strings.Contains(lines[3], "lembrete") || !strings.Contains(lines[3], "2 destinatários") {
		t.Errorf("reminder line: %q", lines[3])
	}
	if !strings.Contains(lines[4], "notificação") || !strings.Contains(lines[4], "5 destinatários") {
		t.Errorf("routine line: %q", lines[4])
	}
}
