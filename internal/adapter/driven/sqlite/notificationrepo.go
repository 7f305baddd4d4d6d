package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ericfisherdev/reviewmod/internal/domain/model"
	"github.com/ericfisherdev/reviewmod/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.NotificationStore = (*NotificationRepo)(nil)

// DefaultInboxLimit caps ListRecent when the caller passes a non-positive limit.
const DefaultInboxLimit = 50

// NotificationRepo persists delivered notifications as the admin inbox.
type NotificationRepo struct {
	db *DB
}

// NewNotificationRepo creates a new NotificationRepo backed by the given DB.
func NewNotificationRepo(db *DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

// Insert stores an inbox entry. Re-inserting the same notification ID is a no-op.
func (r *NotificationRepo) Insert(ctx context.Context, entry model.InboxEntry) error {
	payload := entry.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload for notification %s: %w", entry.ID, err)
	}

	const query = `
		INSERT INTO notifications (id, type, recipient_kind, recipient_id, title, message, body_html, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`

	_, err = r.db.Writer.ExecContext(ctx, query,
		entry.ID, string(entry.Type), string(entry.Recipient.Kind), entry.Recipient.ID,
		entry.Title, entry.Message, entry.BodyHTML, string(payloadJSON), formatTime(entry.CreatedAt),
	)
	if err != nil {
		return storeError(fmt.Sprintf("insert notification %s", entry.ID), err)
	}

	return nil
}

// ListRecent returns the newest inbox entries first.
func (r *NotificationRepo) ListRecent(ctx context.Context, limit int) ([]model.InboxEntry, error) {
	if limit <= 0 {
		limit = DefaultInboxLimit
	}

	const query = `
		SELECT id, type, recipient_kind, recipient_id, title, message, body_html, payload, created_at
		FROM notifications
		ORDER BY created_at DESC, id
		LIMIT ?
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, storeError("list notifications", err)
	}
	defer rows.Close()

	entries := []model.InboxEntry{}
	for rows.Next() {
		var e model.InboxEntry
		var typ, kind, payloadJSON, createdAt string

		if err := rows.Scan(
			&e.ID, &typ, &kind, &e.Recipient.ID, &e.Title, &e.Message, &e.BodyHTML, &payloadJSON, &createdAt,
		); err != nil {
			return nil, storeError("scan notification", err)
		}

		e.Type = model.NotificationType(typ)
		e.Recipient.Kind = model.RecipientKind(kind)

		if err := json.Unmarshal([]byte(payloadJSON), &e.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal payload for notification %s: %w", e.ID, err)
		}

		e.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at for notification %s: %w", e.ID, err)
		}

		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("iterate notifications", err)
	}

	return entries, nil
}
