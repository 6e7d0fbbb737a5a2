package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"routine_notification_bot/internal/domain/form"
	"routine_notification_bot/internal/domain/schedule"
	idb "routine_notification_bot/internal/infra/database"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const (
	unauthorizedText = "Erro: você não tem permissão para executar este comando."
	defaultTrendSpan = 8
	dispatchesShown  = 10
)

// RegisterAdminHandlers registers handlers for admin commands.
// Every command is refused unless it comes from adminTelegramID.
func RegisterAdminHandlers(ctx context.Context, b *telebot.Bot, svc Services, adminTelegramID int64, baseLogger *logrus.Entry) {
	// guard logs the command and reports whether the sender may run it.
	guard := func(c telebot.Context, command string) (*logrus.Entry, bool) {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   command,
			"sender_id": c.Sender().ID,
		})
		handlerLogger.Info("Command received")
		if c.Sender().ID != adminTelegramID {
			handlerLogger.Warn("Unauthorized access attempt")
			return handlerLogger, false
		}
		return handlerLogger, true
	}

	b.Handle("/link", func(c telebot.Context) error {
		handlerLogger, ok := guard(c, "/link")
		if !ok {
			return c.Send(unauthorizedText)
		}

		args := c.Args()
		// Expected format: /link <userID> <TelegramID>
		if len(args) != 2 {
			handlerLogger.WithField("args_count", len(args)).Warn("Invalid command format")
			return c.Send("Formato inválido. Use: /link <userID> <TelegramID>")
		}
		telegramID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil || telegramID <= 0 {
			return c.Send("Erro: o Telegram ID deve ser um número positivo.")
		}
		handlerLogger = handlerLogger.WithFields(logrus.Fields{
			"user_id":     args[0],
			"telegram_id": telegramID,
		})

		if err := svc.Linker.LinkTelegram(ctx, args[0], telegramID); err != nil {
			logWithError := handlerLogger.WithError(err)
			switch {
			case errors.Is(err, idb.ErrUserNotFound):
				logWithError.Warn("User to link not found")
				return c.Send(fmt.Sprintf("Usuário %s não encontrado.", args[0]))
			case errors.Is(err, idb.ErrDuplicateTelegramID):
				logWithError.Warn("Telegram ID already linked")
				return c.Send(fmt.Sprintf("O Telegram ID %d já está vinculado a outro usuário.", telegramID))
			default:
				logWithError.Error("Failed to link Telegram account")
				return c.Send(fmt.Sprintf("Ocorreu um erro ao vincular a conta: %s", err.Error()))
			}
		}
		handlerLogger.Info("Telegram account linked")
		return c.Send(fmt.Sprintf("Usuário %s vinculado ao Telegram ID %d.", args[0], telegramID))
	})

	b.Handle("/set_routine", func(c telebot.Context) error {
		handlerLogger, ok := guard(c, "/set_routine")
		if !ok {
			return c.Send(unauthorizedText)
		}

		args := c.Args()
		// Expected format: /set_routine <companyID> <min> <hour> <dom> <month> <dow>
		if len(args) != 6 {
			handlerLogger.WithField("args_count", len(args)).Warn("Invalid command format")
			return c.Send("Formato inválido. Use: /set_routine <empresa> <min> <hora> <dia> <mês> <dia da semana>")
		}
		companyID := args[0]
		cron := strings.Join(args[1:], " ")
		handlerLogger = handlerLogger.WithFields(logrus.Fields{"company_id": companyID, "cron": cron})

		var disabled []string
		current, err := svc.Settings.GetSettings(ctx, companyID)
		switch {
		case err == nil:
			disabled = current.DisabledTeams
		case !errors.Is(err, idb.ErrSettingsNotFound):
			handlerLogger.WithError(err).Error("Failed to load current settings")
			return c.Send(fmt.Sprintf("Ocorreu um erro ao carregar a configuração: %s", err.Error()))
		}

		settings, err := svc.Settings.CreateSettings(ctx, companyID, cron, disabled)
		if err != nil {
			handlerLogger.WithError(err).Warn("Failed to save routine settings")
			return c.Send(fmt.Sprintf("Não foi possível salvar a agenda: %s", err.Error()))
		}
		handlerLogger.WithField("settings_id", settings.ID).Info("Routine settings saved")
		return c.Send(fmt.Sprintf("Agenda da empresa %s definida para \"%s\".", companyID, settings.Cron))
	})

	b.Handle("/optout", func(c telebot.Context) error {
		handlerLogger, ok := guard(c, "/optout")
		if !ok {
			return c.Send(unauthorizedText)
		}

		args := c.Args()
		// Expected format: /optout <companyID> [team1,team2,...]
		if len(args) < 1 || len(args) > 2 {
			return c.Send("Formato inválido. Use: /optout <empresa> [time1,time2,...]")
		}
		teams := []string{}
		if len(args) == 2 {
			for _, t := range strings.Split(args[1], ",") {
				if t = strings.TrimSpace(t); t != "" {
					teams = append(teams, t)
				}
			}
		}
		handlerLogger = handlerLogger.WithFields(logrus.Fields{"company_id": args[0], "disabled_teams": teams})

		if _, err := svc.Settings.UpdateDisabledTeams(ctx, args[0], teams); err != nil {
			logWithError := handlerLogger.WithError(err)
			if errors.Is(err, idb.ErrSettingsNotFound) {
				logWithError.Warn("Settings not found")
				return c.Send(fmt.Sprintf("A empresa %s ainda não tem agenda. Use /set_routine primeiro.", args[0]))
			}
			logWithError.Error("Failed to update disabled teams")
			return c.Send(fmt.Sprintf("Ocorreu um erro ao atualizar os times: %s", err.Error()))
		}
		handlerLogger.Info("Disabled teams updated")
		if len(teams) == 0 {
			return c.Send("Todos os times participam da retrospectiva.")
		}
		return c.Send(fmt.Sprintf("Times fora da retrospectiva: %s", strings.Join(teams, ", ")))
	})

	b.Handle("/notify_now", func(c telebot.Context) error {
		handlerLogger, ok := guard(c, "/notify_now")
		if !ok {
			return c.Send(unauthorizedText)
		}

		args := c.Args()
		if len(args) != 1 {
			return c.Send("Formato inválido. Use: /notify_now <empresa>")
		}
		handlerLogger = handlerLogger.WithField("company_id", args[0])

		sent, err := svc.Notifications.RoutineNotification(ctx, args[0])
		if err != nil {
			handlerLogger.WithError(err).Error("Manual notification failed")
			return c.Send(fmt.Sprintf("Falha ao enviar notificações: %s", err.Error()))
		}
		handlerLogger.WithField("sent", sent).Info("Manual notification finished")
		if sent == 0 {
			return c.Send("Nenhuma notificação enviada (janela já notificada ou ninguém pendente).")
		}
		return c.Send(fmt.Sprintf("%d notificações enviadas.", sent))
	})

	b.Handle("/trend", func(c telebot.Context) error {
		handlerLogger, ok := guard(c, "/trend")
		if !ok {
			return c.Send(unauthorizedText)
		}

		args := c.Args()
		// Expected format: /trend <companyID> [windows] [questionID]
		if len(args) < 1 || len(args) > 3 {
			return c.Send("Formato inválido. Use: /trend <empresa> [semanas] [pergunta]")
		}
		windows := defaultTrendSpan
		if len(args) >= 2 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n <= 0 || n > schedule.MaxWindows {
				return c.Send(fmt.Sprintf("Erro: o número de semanas deve ser um inteiro entre 1 e %d.", schedule.MaxWindows))
			}
			windows = n
		}

		question, found := svc.Catalogue.FirstOfType(svc.Language, form.TypeEmojiScale)
		if len(args) == 3 {
			found = false
			for _, q := range svc.Catalogue.Form(svc.Language) {
				if q.ID == args[2] {
					question, found = q, true
					break
				}
			}
		}
		if !found {
			return c.Send("Pergunta não encontrada.")
		}
		handlerLogger = handlerLogger.WithFields(logrus.Fields{
			"company_id":  args[0],
			"question_id": question.ID,
			"windows":     windows,
		})

		points, err := svc.Answers.QuestionTrend(ctx, args[0], question.ID, windows)
		if err != nil {
			handlerLogger.WithError(err).Error("Failed to compute trend")
			return c.Send(fmt.Sprintf("Ocorreu um erro ao calcular a tendência: %s", err.Error()))
		}
		if len(points) == 0 {
			handlerLogger.Info("Company has no routine settings")
			return c.Send(fmt.Sprintf("A empresa %s ainda não tem agenda.", args[0]))
		}
		handlerLogger.WithField("points", len(points)).Info("Trend computed")
		return c.Send(trendText(question.Heading, points))
	})

	b.Handle("/dispatches", func(c telebot.Context) error {
		handlerLogger, ok := guard(c, "/dispatches")
		if !ok {
			return c.Send(unauthorizedText)
		}

		args := c.Args()
		if len(args) != 1 {
			return c.Send("Formato inválido. Use: /dispatches <empresa>")
		}
		handlerLogger = handlerLogger.WithField("company_id", args[0])

		dispatches, err := svc.Dispatches.ListDispatches(ctx, args[0], dispatchesShown)
		if err != nil {
			handlerLogger.WithError(err).Error("Failed to list dispatches")
			return c.Send(fmt.Sprintf("Ocorreu um erro ao buscar os envios: %s", err.Error()))
		}
		var next time.Time
		scheduled := false
		if svc.Runs != nil {
			next, scheduled = svc.Runs.NextRun(args[0])
		}
		handlerLogger.WithFields(logrus.Fields{"dispatches": len(dispatches), "scheduled": scheduled}).Info("Dispatches listed")
		return c.Send(dispatchesText(args[0], next, scheduled, dispatches))
	})
}
