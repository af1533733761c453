package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/jwalitptl/jobboard-messaging/internal/model"
	"github.com/jwalitptl/jobboard-messaging/internal/realtime"
)

type notificationRepository struct {
	s *Store
}

func (r *notificationRepository) List(_ context.Context, userID uuid.UUID, filter model.NotificationFilter) ([]*model.Notification, error) {
	filter.Pagination = filter.Pagination.Normalize()
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var matched []*model.Notification
	for i := range r.s.notifications {
		n := r.s.notifications[i]
		if n.UserID != userID || n.DeletedAt != nil {
			continue
		}
		if filter.UnreadOnly && n.IsRead {
			continue
		}
		matched = append(matched, &n)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID.String() > matched[j].ID.String()
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if filter.Offset >= len(matched) {
		return nil, nil
	}
	end := filter.Offset + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[filter.Offset:end], nil
}

func (r *notificationRepository) UnreadCount(_ context.Context, userID uuid.UUID) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	count := 0
	for _, n := range r.s.notifications {
		if n.UserID == userID && !n.IsRead && n.DeletedAt == nil {
			count++
		}
	}
	return count, nil
}

func (r *notificationRepository) MarkAsRead(_ context.Context, userID, id uuid.UUID) (*model.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for i := range r.s.notifications {
		n := &r.s.notifications[i]
		if n.ID != id {
			continue
		}
		if n.UserID != userID || n.IsRead || n.DeletedAt != nil {
			return nil, nil
		}
		r.s.markRead(n)
		flipped := *n
		return &flipped, nil
	}
	return nil, nil
}

func (r *notificationRepository) MarkAllAsRead(_ context.Context, userID uuid.UUID) ([]*model.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var flipped []*model.Notification
	for i := range r.s.notifications {
		n := &r.s.notifications[i]
		if n.UserID != userID || n.IsRead || n.DeletedAt != nil {
			continue
		}
		r.s.markRead(n)
		copied := *n
		flipped = append(flipped, &copied)
	}
	return flipped, nil
}

func (s *Store) markRead(n *model.Notification) {
	now := s.now()
	n.IsRead = true
	n.ReadAt = &now
}

type notificationWriter struct {
	s *Store
}

// Create stores the notification together with its realtime event.
func (w *notificationWriter) Create(_ context.Context, n *model.Notification) error {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()

	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = w.s.now()
	}
	if len(n.Metadata) == 0 {
		n.Metadata = []byte(`{}`)
	}

	event, err := realtime.NotificationInserted(n)
	if err != nil {
		return err
	}
	w.s.notifications = append(w.s.notifications, *n)
	w.s.appendOutbox(event)
	return nil
}
