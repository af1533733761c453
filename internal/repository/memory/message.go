package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/jwalitptl/jobboard-messaging/internal/model"
	"github.com/jwalitptl/jobboard-messaging/internal/repository"
)

type messageRepository struct {
	s *Store
}

func (r *messageRepository) Create(_ context.Context, msg *model.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.conversations[msg.ConversationID]; !ok {
		return fmt.Errorf("failed to create message: %w", repository.ErrNotFound)
	}
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = r.s.now()
	}
	r.s.messages = append(r.s.messages, *msg)
	return nil
}

func (r *messageRepository) ListByConversation(_ context.Context, conversationID uuid.UUID) ([]*model.MessageWithSender, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*model.MessageWithSender
	for _, m := range r.s.messages {
		if m.ConversationID != conversationID {
			continue
		}
		sender := r.s.profiles[m.SenderID]
		out = append(out, &model.MessageWithSender{
			Message:         m,
			SenderName:      sender.FullName,
			SenderAvatarURL: sender.AvatarURL,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *messageRepository) MarkConversationRead(_ context.Context, conversationID, readerID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for i := range r.s.messages {
		m := &r.s.messages[i]
		if m.ConversationID == conversationID && m.SenderID != readerID && !m.IsRead {
			m.IsRead = true
			n++
		}
	}
	return n, nil
}
