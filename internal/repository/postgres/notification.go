package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/jobboard-messaging/internal/model"
	"github.com/jwalitptl/jobboard-messaging/internal/repository"
)

const notificationColumns = `
	id, user_id, sender_id, type, title, message, link, related_id, related_type,
	metadata, is_read, created_at, read_at, deleted_at
`

// notificationRepository runs on the end-user pool. Every statement is
// scoped to the caller through asUser so row-level policies apply.
type notificationRepository struct {
	BaseRepository
}

func NewNotificationRepository(base BaseRepository) repository.NotificationRepository {
	return &notificationRepository{base}
}

func (r *notificationRepository) List(ctx context.Context, userID uuid.UUID, filter model.NotificationFilter) ([]*model.Notification, error) {
	filter.Pagination = filter.Pagination.Normalize()

	query := `SELECT ` + notificationColumns + `
		FROM notifications
		WHERE user_id = $1 AND deleted_at IS NULL`
	if filter.UnreadOnly {
		query += ` AND NOT is_read`
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`

	var notifications []*model.Notification
	err := r.asUser(ctx, userID, func(ctx context.Context, q sqlx.ExtContext) error {
		return sqlx.SelectContext(ctx, q, &notifications, query, userID, filter.Limit, filter.Offset)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

func (r *notificationRepository) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM notifications
		WHERE user_id = $1 AND NOT is_read AND deleted_at IS NULL
	`

	var count int
	err := r.asUser(ctx, userID, func(ctx context.Context, q sqlx.ExtContext) error {
		return sqlx.GetContext(ctx, q, &count, query, userID)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

func (r *notificationRepository) MarkAsRead(ctx context.Context, userID, id uuid.UUID) (*model.Notification, error) {
	query := `
		UPDATE notifications
		SET is_read = TRUE, read_at = $3
		WHERE id = $1 AND user_id = $2 AND NOT is_read AND deleted_at IS NULL
		RETURNING ` + notificationColumns

	var n model.Notification
	err := r.asUser(ctx, userID, func(ctx context.Context, q sqlx.ExtContext) error {
		return sqlx.GetContext(ctx, q, &n, query, id, userID, time.Now().UTC())
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to mark notification read: %w", err)
	}
	return &n, nil
}

func (r *notificationRepository) MarkAllAsRead(ctx context.Context, userID uuid.UUID) ([]*model.Notification, error) {
	query := `
		UPDATE notifications
		SET is_read = TRUE, read_at = $2
		WHERE user_id = $1 AND NOT is_read AND deleted_at IS NULL
		RETURNING ` + notificationColumns

	var flipped []*model.Notification
	err := r.asUser(ctx, userID, func(ctx context.Context, q sqlx.ExtContext) error {
		return sqlx.SelectContext(ctx, q, &flipped, query, userID, time.Now().UTC())
	})
	if err != nil {
		return nil, fmt.Errorf("failed to mark all notifications read: %w", err)
	}
	return flipped, nil
}
