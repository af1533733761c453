package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/jobboard-messaging/internal/model"
	"github.com/jwalitptl/jobboard-messaging/internal/repository"
)

type messageRepository struct {
	BaseRepository
}

func NewMessageRepository(base BaseRepository) repository.MessageRepository {
	return &messageRepository{base}
}

func (r *messageRepository) Create(ctx context.Context, msg *model.Message) error {
	query := `
		INSERT INTO messages (id, conversation_id, sender_id, content, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	_, err := r.conn(ctx).ExecContext(ctx, query,
		msg.ID,
		msg.ConversationID,
		msg.SenderID,
		msg.Content,
		msg.IsRead,
		msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func (r *messageRepository) ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]*model.MessageWithSender, error) {
	query := `
		SELECT
			m.id, m.conversation_id, m.sender_id, m.content, m.is_read, m.created_at,
			COALESCE(p.full_name, '') AS sender_name,
			p.avatar_url AS sender_avatar_url
		FROM messages m
		LEFT JOIN profiles p ON p.id = m.sender_id
		WHERE m.conversation_id = $1
		ORDER BY m.created_at ASC, m.id ASC
	`

	var messages []*model.MessageWithSender
	if err := sqlx.SelectContext(ctx, r.conn(ctx), &messages, query, conversationID); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

func (r *messageRepository) MarkConversationRead(ctx context.Context, conversationID, readerID uuid.UUID) (int64, error) {
	query := `
		UPDATE messages
		SET is_read = TRUE
		WHERE conversation_id = $1 AND sender_id <> $2 AND NOT is_read
	`

	res, err := r.conn(ctx).ExecContext(ctx, query, conversationID, readerID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages read: %w", err)
	}
	return res.RowsAffected()
}
