package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/jobboard-messaging/internal/model"
	"github.com/jwalitptl/jobboard-messaging/internal/repository"
)

type outboxRepository struct {
	s *Store
}

func (s *Store) appendOutbox(event *model.OutboxEvent) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	now := s.now()
	event.CreatedAt = now
	event.UpdatedAt = now
	event.Status = model.OutboxStatusPending
	s.outbox = append(s.outbox, *event)
}

func (r *outboxRepository) Create(_ context.Context, event *model.OutboxEvent) error {
	if event == nil || event.Payload == nil {
		return fmt.Errorf("event payload cannot be nil")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.appendOutbox(event)
	return nil
}

func (r *outboxRepository) ClaimPending(_ context.Context, limit int) ([]*model.OutboxEvent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	now := r.s.now()
	var out []*model.OutboxEvent
	for i := range r.s.outbox {
		if len(out) >= limit {
			break
		}
		e := r.s.outbox[i]
		if e.Status != model.OutboxStatusPending && e.Status != model.OutboxStatusRetry {
			continue
		}
		if e.RetryAt != nil && e.RetryAt.After(now) {
			continue
		}
		out = append(out, &e)
	}
	return out, nil
}

func (r *outboxRepository) UpdateStatus(_ context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string, retryAt *time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for i := range r.s.outbox {
		e := &r.s.outbox[i]
		if e.ID != id {
			continue
		}
		now := r.s.now()
		e.Status = status
		e.ErrorMessage = errorMessage
		e.RetryAt = retryAt
		e.UpdatedAt = now
		if status == model.OutboxStatusRetry {
			e.RetryCount++
		}
		if status == model.OutboxStatusProcessed {
			e.ProcessedAt = &now
		}
		return nil
	}
	return fmt.Errorf("failed to update outbox event: %w", repository.ErrNotFound)
}

func (r *outboxRepository) MoveToDeadLetter(_ context.Context, event *model.OutboxEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.deadLetter = append(r.s.deadLetter, *event)
	return nil
}

func (r *outboxRepository) DeleteProcessedBefore(_ context.Context, before time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	kept := r.s.outbox[:0]
	var deleted int64
	for _, e := range r.s.outbox {
		if e.Status == model.OutboxStatusProcessed && e.ProcessedAt != nil && e.ProcessedAt.Before(before) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	r.s.outbox = kept
	return deleted, nil
}
