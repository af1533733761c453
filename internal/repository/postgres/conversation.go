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

type conversationRepository struct {
	BaseRepository
}

func NewConversationRepository(base BaseRepository) repository.ConversationRepository {
	return &conversationRepository{base}
}

// GetOrCreate leans on the unique (job_id, seeker_id, employer_id)
// constraint: the no-op update makes RETURNING yield the existing row.
func (r *conversationRepository) GetOrCreate(ctx context.Context, jobID, seekerID, employerID uuid.UUID) (*model.Conversation, bool, error) {
	query := `
		INSERT INTO conversations (id, job_id, seeker_id, employer_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (job_id, seeker_id, employer_id)
		DO UPDATE SET updated_at = conversations.updated_at
		RETURNING id, job_id, seeker_id, employer_id, created_at, updated_at, (xmax = 0) AS inserted
	`

	var row struct {
		model.Conversation
		Inserted bool `db:"inserted"`
	}
	err := sqlx.GetContext(ctx, r.conn(ctx), &row, query,
		uuid.New(), jobID, seekerID, employerID, time.Now().UTC())
	if err != nil {
		return nil, false, fmt.Errorf("failed to get or create conversation: %w", err)
	}
	return &row.Conversation, row.Inserted, nil
}

func (r *conversationRepository) Get(ctx context.Context, id uuid.UUID) (*model.Conversation, error) {
	query := `
		SELECT id, job_id, seeker_id, employer_id, created_at, updated_at
		FROM conversations
		WHERE id = $1
	`

	var c model.Conversation
	if err := sqlx.GetContext(ctx, r.conn(ctx), &c, query, id); err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", notFound(err))
	}
	return &c, nil
}

func (r *conversationRepository) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE conversations SET updated_at = $2 WHERE id = $1`

	res, err := r.conn(ctx).ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to touch conversation: %w", repository.ErrNotFound)
	}
	return nil
}

type conversationSummaryRow struct {
	model.ConversationSummary
	LastMessageID        *uuid.UUID `db:"last_message_id"`
	LastMessageSenderID  *uuid.UUID `db:"last_message_sender_id"`
	LastMessageContent   *string    `db:"last_message_content"`
	LastMessageIsRead    *bool      `db:"last_message_is_read"`
	LastMessageCreatedAt *time.Time `db:"last_message_created_at"`
}

func (r *conversationRepository) ListForParticipant(ctx context.Context, userID uuid.UUID) ([]*model.ConversationSummary, error) {
	query := `
		SELECT
			c.id, c.job_id, c.seeker_id, c.employer_id, c.created_at, c.updated_at,
			COALESCE(j.title, '') AS job_title,
			CASE WHEN c.seeker_id = $1 THEN c.employer_id ELSE c.seeker_id END AS counterparty_id,
			COALESCE(p.full_name, '') AS counterparty_name,
			lm.id AS last_message_id,
			lm.sender_id AS last_message_sender_id,
			lm.content AS last_message_content,
			lm.is_read AS last_message_is_read,
			lm.created_at AS last_message_created_at,
			COALESCE(uc.unread, 0) AS unread_count
		FROM conversations c
		LEFT JOIN jobs j ON j.id = c.job_id
		LEFT JOIN profiles p ON p.id = CASE WHEN c.seeker_id = $1 THEN c.employer_id ELSE c.seeker_id END
		LEFT JOIN LATERAL (
			SELECT m.id, m.sender_id, m.content, m.is_read, m.created_at
			FROM messages m
			WHERE m.conversation_id = c.id
			ORDER BY m.created_at DESC, m.id DESC
			LIMIT 1
		) lm ON TRUE
		LEFT JOIN LATERAL (
			SELECT COUNT(*) AS unread
			FROM messages m
			WHERE m.conversation_id = c.id AND m.sender_id <> $1 AND NOT m.is_read
		) uc ON TRUE
		WHERE c.seeker_id = $1 OR c.employer_id = $1
		ORDER BY c.updated_at DESC, c.id DESC
	`

	var rows []conversationSummaryRow
	if err := sqlx.SelectContext(ctx, r.conn(ctx), &rows, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	summaries := make([]*model.ConversationSummary, 0, len(rows))
	for i := range rows {
		row := rows[i]
		s := row.ConversationSummary
		if row.LastMessageID != nil {
			s.LastMessage = &model.Message{
				ID:             *row.LastMessageID,
				ConversationID: s.ID,
				SenderID:       derefUUID(row.LastMessageSenderID),
				Content:        derefString(row.LastMessageContent),
				IsRead:         row.LastMessageIsRead != nil && *row.LastMessageIsRead,
				CreatedAt:      derefTime(row.LastMessageCreatedAt),
			}
		}
		summaries = append(summaries, &s)
	}
	return summaries, nil
}

func derefUUID(id *uuid.UUID) uuid.UUID {
	if id == nil {
		return uuid.Nil
	}
	return *id
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
