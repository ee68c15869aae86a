package notification

import "context"

// TypeNotifySend is the asynq task type for queued notification delivery.
const TypeNotifySend = "notify:send"

// NotificationService informs a party of a booking state change. Delivery is
// fire-and-forget: the booking flow never waits on it, never retries it, and
// a failure here must not block a confirmation.
type NotificationService interface {
	Notify(ctx context.Context, userID, eventType string, data map[string]string)
}

// NullNotificationService drops everything. Used in tests.
type NullNotificationService struct{}

func (NullNotificationService) Notify(context.Context, string, string, map[string]string) {}

var _ NotificationService = NullNotificationService{}
