package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/jobboard-messaging/internal/model"
)

// ErrNotFound is returned by Get-style lookups when no row matches.
var ErrNotFound = errors.New("record not found")

// Transactor runs fn in a single transaction. Repositories called with the
// ctx passed to fn take part in that transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// All repository interfaces in one file
type (
	ConversationRepository interface {
		// GetOrCreate returns the conversation for the triple, creating it
		// if needed, and whether this call created it. Concurrent callers
		// receive the same row.
		GetOrCreate(ctx context.Context, jobID, seekerID, employerID uuid.UUID) (*model.Conversation, bool, error)
		Get(ctx context.Context, id uuid.UUID) (*model.Conversation, error)
		Touch(ctx context.Context, id uuid.UUID, at time.Time) error
		ListForParticipant(ctx context.Context, userID uuid.UUID) ([]*model.ConversationSummary, error)
	}

	MessageRepository interface {
		Create(ctx context.Context, msg *model.Message) error
		// ListByConversation returns the whole history, oldest first.
		ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]*model.MessageWithSender, error)
		// MarkConversationRead flags every message not sent by readerID as read.
		MarkConversationRead(ctx context.Context, conversationID, readerID uuid.UUID) (int64, error)
	}

	// NotificationRepository runs with the end user's credential and only
	// ever sees that user's rows.
	NotificationRepository interface {
		List(ctx context.Context, userID uuid.UUID, filter model.NotificationFilter) ([]*model.Notification, error)
		UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
		// MarkAsRead returns the row it flipped, or nil when nothing changed.
		MarkAsRead(ctx context.Context, userID, id uuid.UUID) (*model.Notification, error)
		// MarkAllAsRead returns every row it flipped.
		MarkAllAsRead(ctx context.Context, userID uuid.UUID) ([]*model.Notification, error)
	}

	// NotificationWriter inserts notifications for any recipient. Only the
	// elevated service credential can back it.
	NotificationWriter interface {
		Create(ctx context.Context, n *model.Notification) error
	}

	ApplicationRepository interface {
		Create(ctx context.Context, app *model.Application) error
		Get(ctx context.Context, id uuid.UUID) (*model.Application, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.ApplicationStatus) (*model.Application, error)
	}

	JobRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Job, error)
	}

	ProfileRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Profile, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		// ClaimPending locks up to limit due events for the surrounding
		// transaction, skipping rows other relays hold.
		ClaimPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string, retryAt *time.Time) error
		MoveToDeadLetter(ctx context.Context, event *model.OutboxEvent) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)

// Repositories bundles one backend's implementations.
type Repositories struct {
	Tx            Transactor
	Conversations ConversationRepository
	Messages      MessageRepository
	Notifications NotificationRepository
	Writer        NotificationWriter
	Applications  ApplicationRepository
	Jobs          JobRepository
	Profiles      ProfileRepository
	Outbox        OutboxRepository
}
