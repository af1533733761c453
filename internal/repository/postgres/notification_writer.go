package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/jobboard-messaging/internal/model"
	"github.com/jwalitptl/jobboard-messaging/internal/realtime"
	"github.com/jwalitptl/jobboard-messaging/internal/repository"
)

type notificationWriter struct {
	BaseRepository
	outbox *outboxRepository
}

// NewNotificationWriter needs the elevated connection: end users may not
// insert rows addressed to someone else.
func NewNotificationWriter(db *ServiceDB) repository.NotificationWriter {
	base := NewBaseRepository(db.DB)
	return &notificationWriter{
		BaseRepository: base,
		outbox:         &outboxRepository{base},
	}
}

// Create inserts the notification and its realtime event atomically.
func (w *notificationWriter) Create(ctx context.Context, n *model.Notification) error {
	query := `
		INSERT INTO notifications (
			id, user_id, sender_id, type, title, message, link,
			related_id, related_type, metadata, is_read, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	metadata := n.Metadata
	if len(metadata) == 0 {
		metadata = []byte(`{}`)
	}

	return w.WithinTx(ctx, func(ctx context.Context) error {
		_, err := w.conn(ctx).ExecContext(ctx, query,
			n.ID,
			n.UserID,
			n.SenderID,
			n.Type,
			n.Title,
			n.Message,
			n.Link,
			n.RelatedID,
			n.RelatedType,
			string(metadata),
			n.IsRead,
			n.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create notification: %w", err)
		}

		event, err := realtime.NotificationInserted(n)
		if err != nil {
			return err
		}
		return w.outbox.Create(ctx, event)
	})
}
