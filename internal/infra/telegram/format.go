// internal/infra/telegram/format.go
package telegram

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"routine_notification_bot/internal/app"
	"routine_notification_bot/internal/domain/answer"
	"routine_notification_bot/internal/domain/form"
	"routine_notification_bot/internal/domain/notification"
)

const dateLayout = "02/01/2006"

var ErrUnknownQuestion = fmt.Errorf("unknown question number")
var ErrInvalidAnswerValue = fmt.Errorf("invalid answer value")

func routineMessageText(msg notification.Message) string {
	switch msg.Type {
	case notification.MessageTypeRoutineReminder:
		return fmt.Sprintf("Lembrete: a retrospectiva do time %s ainda está pendente. Use /form para ver as perguntas.", msg.Team.Name)
	default:
		return fmt.Sprintf("Chegou a hora da retrospectiva da semana do time %s! Use /form para ver as perguntas e /answer para responder.", msg.Team.Name)
	}
}

func pendenciesText(report notification.PendenciesReport) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Retrospectiva de %s (empresa %s)\n", report.WindowStart.Format(dateLayout), report.CompanyID))
	sb.WriteString(fmt.Sprintf("Pendentes: %d de %d pessoas\n", len(report.Pending), report.CompanyUsers))
	for _, u := range report.Pending {
		sb.WriteString("- ")
		sb.WriteString(u.FullName())
		sb.WriteString("\n")
	}
	return sb.String()
}

// answerable lists the questions a user can reply to, in form order. Reply
// numbers are 1-based positions in this list.
func answerable(questions []form.Question) []form.Question {
	out := make([]form.Question, 0, len(questions))
	for _, q := range questions {
		if q.Type != form.TypeReadingText {
			out = append(out, q)
		}
	}
	return out
}

func formText(questions []form.Question) string {
	var sb strings.Builder
	for _, q := range questions {
		if q.Type == form.TypeReadingText {
			sb.WriteString(q.Heading)
			sb.WriteString("\n\n")
			break
		}
	}
	for n, q := range answerable(questions) {
		marker := ""
		if q.Required {
			marker = " *"
		}
		sb.WriteString(fmt.Sprintf("%d. %s%s\n", n+1, q.Heading, marker))
		switch q.Type {
		case form.TypeEmojiScale:
			sb.WriteString("   (1 a 5)\n")
		case form.TypeValueRange:
			steps := 5
			if q.Properties != nil && q.Properties.Steps > 0 {
				steps = q.Properties.Steps
			}
			sb.WriteString(fmt.Sprintf("   (1 a %d)\n", steps))
		case form.TypeRoadBlock:
			sb.WriteString("   (sim ou não)\n")
		}
	}
	sb.WriteString("\nResponda com /answer e uma linha por pergunta, por exemplo:\n/answer\n1: 4\n3: 5\n7: não")
	return sb.String()
}

// parseAnswerPayload reads "N: value" lines. Conditional questions that were
// not answered are submitted as hidden.
func parseAnswerPayload(payload string, questions []form.Question) ([]answer.Submission, error) {
	list := answerable(questions)
	given := make(map[int]string)
	for _, line := range strings.Split(payload, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		sep := strings.IndexAny(line, ":=")
		if sep < 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAnswerValue, line)
		}
		n, err := strconv.Atoi(strings.TrimSpace(line[:sep]))
		if err != nil || n < 1 || n > len(list) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownQuestion, line[:sep])
		}
		given[n-1] = strings.TrimSpace(line[sep+1:])
	}

	submissions := make([]answer.Submission, 0, len(list))
	for i, q := range list {
		raw, ok := given[i]
		if !ok {
			if q.Conditional != nil {
				submissions = append(submissions, answer.Submission{QuestionID: q.ID, Hidden: true})
			}
			continue
		}
		value, err := normalizeValue(q, raw)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		submissions = append(submissions, answer.Submission{QuestionID: q.ID, Value: value})
	}
	return submissions, nil
}

func normalizeValue(q form.Question, raw string) (string, error) {
	switch q.Type {
	case form.TypeEmojiScale, form.TypeValueRange:
		limit := 5
		if q.Properties != nil && q.Properties.Steps > 0 {
			limit = q.Properties.Steps
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > limit {
			return "", fmt.Errorf("%w: %q is not between 1 and %d", ErrInvalidAnswerValue, raw, limit)
		}
		return strconv.Itoa(v), nil
	case form.TypeRoadBlock:
		switch strings.ToLower(raw) {
		case "sim", "s", "yes", "y":
			return "y", nil
		case "não", "nao", "n", "no":
			return "n", nil
		}
		return "", fmt.Errorf("%w: %q is not yes or no", ErrInvalidAnswerValue, raw)
	default:
		return raw, nil
	}
}

func pendingText(pending []app.PendingRoutine) string {
	if len(pending) == 0 {
		return "Nenhuma retrospectiva pendente. Bom trabalho!"
	}
	var sb strings.Builder
	for _, p := range pending {
		sb.WriteString(fmt.Sprintf("%s pendente", p.Name))
		if p.DaysOutdated == 0 {
			sb.WriteString(" (liberada hoje)")
		} else {
			sb.WriteString(fmt.Sprintf(" (próxima em %d dias)", p.DaysOutdated))
		}
		if p.Status.LatestReply != nil {
			sb.WriteString(fmt.Sprintf(", última resposta em %s", p.Status.LatestReply.Format(dateLayout)))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func historyText(details *app.AnswerDetails) string {
	var sb strings.Builder
	sb.WriteString("Histórico:\n")
	for _, h := range details.History {
		mark := "○"
		if h.ID != nil {
			mark = "●"
		}
		sb.WriteString(fmt.Sprintf("%s %s a %s\n", mark, h.Window.StartDate.Format(dateLayout), h.Window.FinishDate.Format(dateLayout)))
	}
	sb.WriteString("\n")
	for _, a := range details.Answers {
		switch {
		case len(a.Values) > 0:
			values := make([]string, 0, len(a.Values))
			for _, v := range a.Values {
				values = append(values, valueOrDash(v.Value))
			}
			sb.WriteString(fmt.Sprintf("%s\n   %s\n", a.Heading, strings.Join(values, " → ")))
		case a.Value != nil:
			sb.WriteString(fmt.Sprintf("%s\n   %s\n", a.Heading, *a.Value))
		}
	}
	return sb.String()
}

func trendText(questionHeading string, points []app.TrendPoint) string {
	var sb strings.Builder
	sb.WriteString(questionHeading)
	sb.WriteString("\n")
	for _, p := range points {
		avg := "-"
		if p.Answers > 0 {
			avg = p.Average.StringFixed(2)
		}
		sb.WriteString(fmt.Sprintf("%s: %s (%d respostas)\n", p.Window.StartDate.Format(dateLayout), avg, p.Answers))
	}
	return sb.String()
}

// dispatchesText lists recent notification runs of a company, newest first,
// headed by the next scheduled run when one is registered.
func dispatchesText(companyID string, next time.Time, scheduled bool, dispatches []*notification.Dispatch) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Empresa %s\n", companyID))
	if scheduled {
		sb.WriteString(fmt.Sprintf("Próxima retrospectiva: %s UTC\n", next.Format(dateLayout+" 15:04")))
	} else {
		sb.WriteString("Sem agenda registrada neste processo.\n")
	}
	if len(dispatches) == 0 {
		sb.WriteString("Nenhum envio registrado.\n")
		return sb.String()
	}
	sb.WriteString("Envios recentes:\n")
	for _, d := range dispatches {
		kind := "notificação"
		if d.Kind == notification.MessageTypeRoutineReminder {
			kind = "lembrete"
		}
		sb.WriteString(fmt.Sprintf("- %s %s: %d destinatários (%s)\n",
			d.WindowStart.Format(dateLayout), kind, d.Recipients, d.CreatedAt.Format(dateLayout+" 15:04")))
	}
	return sb.String()
}

func valueOrDash(v *string) string {
	if v == nil || *v == "" {
		return "-"
	}
	return *v
}
