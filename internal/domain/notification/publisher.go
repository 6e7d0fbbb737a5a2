package notification

import "context"

// Publisher delivers notifications.
// This helps in decoupling the application logic from the delivery channel.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	PublishPendencies(ctx context.Context, report PendenciesReport) error
}
