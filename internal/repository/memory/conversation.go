package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/jobboard-messaging/internal/model"
	"github.com/jwalitptl/jobboard-messaging/internal/repository"
)

type conversationRepository struct {
	s *Store
}

func (r *conversationRepository) GetOrCreate(_ context.Context, jobID, seekerID, employerID uuid.UUID) (*model.Conversation, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := triple{jobID, seekerID, employerID}
	if id, ok := r.s.byTriple[key]; ok {
		c := r.s.conversations[id]
		return &c, false, nil
	}

	now := r.s.now()
	c := model.Conversation{
		ID:         uuid.New(),
		JobID:      jobID,
		SeekerID:   seekerID,
		EmployerID: employerID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	r.s.conversations[c.ID] = c
	r.s.byTriple[key] = c.ID
	return &c, true, nil
}

func (r *conversationRepository) Get(_ context.Context, id uuid.UUID) (*model.Conversation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.conversations[id]
	if !ok {
		return nil, fmt.Errorf("failed to get conversation: %w", repository.ErrNotFound)
	}
	return &c, nil
}

func (r *conversationRepository) Touch(_ context.Context, id uuid.UUID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.conversations[id]
	if !ok {
		return fmt.Errorf("failed to touch conversation: %w", repository.ErrNotFound)
	}
	c.UpdatedAt = at
	r.s.conversations[id] = c
	return nil
}

func (r *conversationRepository) ListForParticipant(_ context.Context, userID uuid.UUID) ([]*model.ConversationSummary, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*model.ConversationSummary
	for _, c := range r.s.conversations {
		if !c.HasParticipant(userID) {
			continue
		}
		counterparty, _ := c.Counterparty(userID)
		summary := &model.ConversationSummary{
			Conversation:     c,
			JobTitle:         r.s.jobs[c.JobID].Title,
			CounterpartyID:   counterparty,
			CounterpartyName: r.s.profiles[counterparty].FullName,
		}
		for i := range r.s.messages {
			m := r.s.messages[i]
			if m.ConversationID != c.ID {
				continue
			}
			if summary.LastMessage == nil || !m.CreatedAt.Before(summary.LastMessage.CreatedAt) {
				last := m
				summary.LastMessage = &last
			}
			if m.SenderID != userID && !m.IsRead {
				summary.UnreadCount++
			}
		}
		out = append(out, summary)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID.String() > out[j].ID.String()
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}
