// internal/domain/notification/message.go
package notification

import (
	"time"

	"github.com/google/uuid"

	"routine_notification_bot/internal/domain/directory"
)

// MessageType identifies what a notification asks the recipient to do.
type MessageType string

const (
	MessageTypeRoutine         MessageType = "routine"
	MessageTypeRoutineReminder MessageType = "routineReminder"
)

// Message is one notification for one user about one team.
type Message struct {
	ID          uuid.UUID
	Type        MessageType
	Timestamp   time.Time
	RecipientID string // directory AuthzSub
	TelegramID  int64
	Team        directory.Team
}

// NewMessage stamps a fresh message id.
func NewMessage(t MessageType, at time.Time, recipient *directory.User, team directory.Team) Message {
	return Message{
		ID:          uuid.New(),
		Type:        t,
		Timestamp:   at,
		RecipientID: recipient.AuthzSub,
		TelegramID:  recipient.TelegramID,
		Team:        team,
	}
}

// PendenciesReport summarizes who still owes the current routine.
type PendenciesReport struct {
	CompanyID    string
	WindowStart  time.Time
	CompanyUsers int
	Pending      []*directory.User
}
