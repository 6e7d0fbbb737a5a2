// internal/domain/notification/dispatch.go
package notification

import (
	"context"
	"time"
)

// Dispatch records that a notification run happened for one routine window.
// Corresponds to the 'routine_dispatches' table.
type Dispatch struct {
	ID          int64
	CompanyID   string
	WindowStart time.Time   // start of the routine window the run belongs to
	Kind        MessageType // routine or routineReminder
	Recipients  int
	CreatedAt   time.Time
}

// Repository tracks dispatches so a window is notified at most once per kind.
type Repository interface {
	CreateDispatch(ctx context.Context, d *Dispatch) error
	GetDispatch(ctx context.Context, companyID string, windowStart time.Time, kind MessageType) (*Dispatch, error)
	ListDispatches(ctx context.Context, companyID string, limit int) ([]*Dispatch, error)
}
