package driven

import (
	"context"

	"github.com/ericfisherdev/reviewmod/internal/domain/model"
)

// Notifier is the fire-and-forget notification sink. Delivery is best-effort;
// Notify never blocks on delivery and has no failure path visible to callers.
type Notifier interface {
	Notify(ctx context.Context, n model.Notification)
}

// NotificationStore persists delivered notifications as the admin inbox.
type NotificationStore interface {
	Insert(ctx context.Context, entry model.InboxEntry) error
	ListRecent(ctx context.Context, limit int) ([]model.InboxEntry, error)
}
