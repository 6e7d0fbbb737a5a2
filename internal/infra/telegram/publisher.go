// internal/infra/telegram/publisher.go
package telegram

import (
	"context"
	"fmt"

	"routine_notification_bot/internal/domain/notification"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

var ErrNoTelegramAccount = fmt.Errorf("recipient has no linked Telegram account")

// sender is the part of *telebot.Bot the adapter uses.
type sender interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// TelebotAdapter implements notification.Publisher using the gopkg.in/telebot.v3 library.
type TelebotAdapter struct {
	bot             sender
	adminTelegramID int64
	log             *logrus.Entry
}

var _ notification.Publisher = (*TelebotAdapter)(nil)

func NewTelebotAdapter(b sender, adminTelegramID int64, log *logrus.Entry) *TelebotAdapter {
	return &TelebotAdapter{bot: b, adminTelegramID: adminTelegramID, log: log}
}

// Publish sends the routine message to the recipient's private chat.
func (tba *TelebotAdapter) Publish(ctx context.Context, msg notification.Message) error {
	if msg.TelegramID == 0 {
		return ErrNoTelegramAccount
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	recipient := &telebot.User{ID: msg.TelegramID}
	if _, err := tba.bot.Send(recipient, routineMessageText(msg), &telebot.SendOptions{ParseMode: telebot.ModeDefault}); err != nil {
		return fmt.Errorf("failed to send %s message %s: %w", msg.Type, msg.ID, err)
	}
	return nil
}

// PublishPendencies sends the report to the admin chat. Without a configured
// admin the report is only logged.
func (tba *TelebotAdapter) PublishPendencies(ctx context.Context, report notification.PendenciesReport) error {
	log := tba.log.WithFields(logrus.Fields{
		"company_id": report.CompanyID,
		"pending":    len(report.Pending),
		"users":      report.CompanyUsers,
	})
	if tba.adminTelegramID == 0 {
		log.Info("Pendencies report (no admin chat configured)")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := tba.bot.Send(&telebot.User{ID: tba.adminTelegramID}, pendenciesText(report)); err != nil {
		return fmt.Errorf("failed to send pendencies report: %w", err)
	}
	log.Info("Pendencies report sent to admin")
	return nil
}
