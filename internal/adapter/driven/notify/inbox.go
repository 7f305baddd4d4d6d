package notify

import (
	"context"

	"github.com/ericfisherdev/reviewmod/internal/domain/model"
	"github.com/ericfisherdev/reviewmod/internal/domain/port/driven"
)

// InboxSender persists notifications to the admin inbox with a rendered HTML body.
type InboxSender struct {
	store driven.NotificationStore
}

// NewInboxSender creates an InboxSender backed by store.
func NewInboxSender(store driven.NotificationStore) *InboxSender {
	return &InboxSender{store: store}
}

func (s *InboxSender) Name() string { return "inbox" }

// Send stores n. Inserting the same notification twice is harmless.
func (s *InboxSender) Send(ctx context.Context, n model.Notification) error {
	return s.store.Insert(ctx, model.InboxEntry{
		Notification: n,
		BodyHTML:     RenderMarkdown(n.Message),
	})
}
