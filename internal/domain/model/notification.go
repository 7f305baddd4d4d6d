package model

import "time"

// Recipient is a selector resolved by the notification sink. ID is the
// author, business, or reporter id; it is zero for the moderation queue.
type Recipient struct {
	Kind RecipientKind
	ID   int64
}

// ModerationQueue addresses all moderators.
func ModerationQueue() Recipient {
	return Recipient{Kind: RecipientModerationQueue}
}

// Notification is a best-effort alert emitted by moderation operations.
// Message is markdown.
type Notification struct {
	ID        string
	Type      NotificationType
	Recipient Recipient
	Title     string
	Message   string
	Payload   map[string]any
	CreatedAt time.Time
}

// InboxEntry is a notification persisted to the admin inbox with its rendered body.
type InboxEntry struct {
	Notification
	BodyHTML string
}
