// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"routine_notification_bot/internal/app"
	"routine_notification_bot/internal/domain/directory"
	"routine_notification_bot/internal/domain/form"
	"routine_notification_bot/internal/domain/notification"
	"routine_notification_bot/internal/domain/schedule"
	"routine_notification_bot/internal/infra/config"
	idb "routine_notification_bot/internal/infra/database"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// Services bundles what the bot handlers call into.
type Services struct {
	Directory     directory.Directory
	Linker        directory.Linker
	Pending       app.PendingService
	Answers       app.AnswerService
	Settings      app.SettingsService
	Notifications app.NotificationService
	Catalogue     *form.Catalogue
	Language      form.Language
	Clock         schedule.Clock
	Dispatches    notification.Repository
	Runs          RunSchedule
}

// RunSchedule reports when a company's routine fires next.
type RunSchedule interface {
	NextRun(companyID string) (time.Time, bool)
}

const notLinkedText = "Sua conta do Telegram ainda não está vinculada. Peça ao administrador para vinculá-la com /link."

func RegisterBotCommands(
	ctx context.Context,
	b *telebot.Bot,
	cfg *config.AppConfig, // For AdminTelegramID
	svc Services,
	baseLogger *logrus.Entry, // For contextual logging
) {
	userLogger := baseLogger.WithField("handler_group", "user_commands")

	// resolve finds the directory user behind the sender. ok is false when a
	// reply was already sent.
	resolve := func(c telebot.Context, logCtx *logrus.Entry) (*directory.User, bool, error) {
		user, err := svc.Directory.GetUserByTelegramID(ctx, c.Sender().ID)
		if err == nil {
			return user, true, nil
		}
		if errors.Is(err, idb.ErrUserNotFound) {
			logCtx.Info("User is unknown")
			return nil, false, c.Send(notLinkedText)
		}
		logCtx.WithError(err).Error("Error resolving user")
		return nil, false, c.Send("Ocorreu um erro ao identificar você. Tente novamente mais tarde.")
	}

	b.Handle("/start", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := userLogger.WithField("command", "/start").WithField("sender_id", senderID)
		logCtx.Info("Processing /start command")

		if senderID == cfg.AdminTelegramID {
			logCtx.Info("User identified as Admin")
			return c.Send(fmt.Sprintf("Olá, %s! Você é o administrador. Use /help para ver os comandos.", c.Sender().FirstName))
		}

		user, ok, err := resolve(c, logCtx)
		if !ok {
			return err
		}
		logCtx.WithField("user_id", user.ID).Info("User identified")
		return c.Send(fmt.Sprintf("Olá, %s! Vou avisar quando a retrospectiva da semana estiver disponível. Use /help para ver os comandos.", user.FirstName))
	})

	b.Handle("/help", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := userLogger.WithField("command", "/help").WithField("sender_id", senderID)
		logCtx.Info("Processing /help command")

		var helpText strings.Builder
		helpText.WriteString("Comandos disponíveis:\n\n")
		helpText.WriteString("/pending - retrospectivas pendentes\n")
		helpText.WriteString("/form - perguntas da retrospectiva\n")
		helpText.WriteString("/answer - responder a retrospectiva\n")
		helpText.WriteString("/history - suas respostas recentes\n")
		helpText.WriteString("/summary <time> - humor do time nas últimas semanas\n")
		if senderID == cfg.AdminTelegramID {
			helpText.WriteString("\nAdministração:\n\n")
			helpText.WriteString("/link <userID> <TelegramID> - vincular uma conta do Telegram\n")
			helpText.WriteString("/set_routine <empresa> <cron> - definir a agenda da retrospectiva\n")
			helpText.WriteString("/optout <empresa> [time,...] - times fora da retrospectiva\n")
			helpText.WriteString("/notify_now <empresa> - disparar a notificação agora\n")
			helpText.WriteString("/trend <empresa> [semanas] [pergunta] - média de uma pergunta\n")
			helpText.WriteString("/dispatches <empresa> - próxima retrospectiva e envios recentes\n")
		}
		return c.Send(helpText.String())
	})

	b.Handle("/pending", func(c telebot.Context) error {
		logCtx := userLogger.WithField("command", "/pending").WithField("sender_id", c.Sender().ID)
		user, ok, err := resolve(c, logCtx)
		if !ok {
			return err
		}
		pending, err := svc.Pending.PendingRoutines(ctx, user)
		if err != nil {
			logCtx.WithError(err).Error("Failed to list pending routines")
			return c.Send("Não foi possível verificar suas pendências agora.")
		}
		logCtx.WithField("pending", len(pending)).Info("Pending routines listed")
		return c.Send(pendingText(pending))
	})

	b.Handle("/form", func(c telebot.Context) error {
		userLogger.WithField("command", "/form").WithField("sender_id", c.Sender().ID).Info("Processing /form command")
		return c.Send(formText(svc.Catalogue.Form(svc.Language)))
	})

	b.Handle("/answer", func(c telebot.Context) error {
		logCtx := userLogger.WithField("command", "/answer").WithField("sender_id", c.Sender().ID)
		user, ok, err := resolve(c, logCtx)
		if !ok {
			return err
		}

		submissions, err := parseAnswerPayload(c.Message().Payload, svc.Catalogue.Form(svc.Language))
		if err != nil {
			logCtx.WithError(err).Warn("Invalid answer payload")
			return c.Send(fmt.Sprintf("Não entendi sua resposta: %v. Use /form para ver o formato.", err))
		}

		teams, err := svc.Answers.RegisterAnswers(ctx, user, submissions)
		if err != nil {
			switch {
			case errors.Is(err, app.ErrMissingRequiredAnswers):
				logCtx.WithError(err).Warn("Required answers missing")
				return c.Send("Responda todas as perguntas obrigatórias (marcadas com *).")
			case errors.Is(err, app.ErrNoCompany):
				logCtx.Warn("User without company")
				return c.Send("Você não faz parte de nenhuma empresa.")
			default:
				logCtx.WithError(err).Error("Failed to register answers")
				return c.Send("Não foi possível salvar suas respostas. Tente novamente mais tarde.")
			}
		}
		names := make([]string, 0, len(teams))
		for _, t := range teams {
			names = append(names, t.Name)
		}
		logCtx.WithField("user_id", user.ID).Info("Answers registered")
		return c.Send(fmt.Sprintf("Obrigado! Respostas enviadas para: %s", strings.Join(names, ", ")))
	})

	b.Handle("/history", func(c telebot.Context) error {
		logCtx := userLogger.WithField("command", "/history").WithField("sender_id", c.Sender().ID)
		user, ok, err := resolve(c, logCtx)
		if !ok {
			return err
		}

		groupID := ""
		if args := c.Args(); len(args) > 0 {
			groupID = args[0]
		} else {
			groups, err := svc.Answers.UserLastRoutine(ctx, user)
			if err != nil {
				logCtx.WithError(err).Error("Failed to load last routine")
				return c.Send("Não foi possível carregar suas respostas.")
			}
			if len(groups) == 0 {
				return c.Send("Você ainda não respondeu a retrospectiva desta semana.")
			}
			groupID = groups[len(groups)-1].ID
		}

		details, err := svc.Answers.DetailedAnswer(ctx, user, groupID)
		if err != nil {
			switch {
			case errors.Is(err, idb.ErrAnswerGroupNotFound):
				return c.Send("Resposta não encontrada.")
			case errors.Is(err, app.ErrNotCompanyMember):
				logCtx.Warn("Access to another company's answers denied")
				return c.Send("Você não tem acesso a essas respostas.")
			default:
				logCtx.WithError(err).Error("Failed to load answer details")
				return c.Send("Não foi possível carregar suas respostas.")
			}
		}
		return c.Send(historyText(details))
	})

	b.Handle("/summary", func(c telebot.Context) error {
		logCtx := userLogger.WithField("command", "/summary").WithField("sender_id", c.Sender().ID)
		user, ok, err := resolve(c, logCtx)
		if !ok {
			return err
		}
		args := c.Args()
		if len(args) != 1 {
			return c.Send("Use: /summary <time>")
		}

		to := svc.Clock.Now()
		from := to.AddDate(0, 0, -28)
		summary, err := svc.Answers.TeamSummary(ctx, user, args[0], from, to, true)
		if err != nil {
			if errors.Is(err, app.ErrNotTeamMember) {
				return c.Send("Você não faz parte desse time.")
			}
			logCtx.WithError(err).Error("Failed to build team summary")
			return c.Send("Não foi possível montar o resumo do time.")
		}

		var sb strings.Builder
		for _, line := range summary {
			reply := "-"
			if line.LatestStatusReply != nil {
				reply = fmt.Sprintf("%d", *line.LatestStatusReply)
			}
			sb.WriteString(fmt.Sprintf("%s: %s\n", line.Name, reply))
		}
		if sb.Len() == 0 {
			return c.Send("O time não tem membros.")
		}
		return c.Send(sb.String())
	})
}
