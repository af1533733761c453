package notification

import (
	"context"
	stderrors "errors"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/jwalitptl/jobboard-messaging/internal/model"
	"github.com/jwalitptl/jobboard-messaging/internal/notify"
	"github.com/jwalitptl/jobboard-messaging/internal/realtime"
	"github.com/jwalitptl/jobboard-messaging/internal/repository"
	"github.com/jwalitptl/jobboard-messaging/pkg/errors"
	"github.com/jwalitptl/jobboard-messaging/pkg/logger"
	"github.com/jwalitptl/jobboard-messaging/pkg/metrics"
)

// ErrDispatchFailed is the soft result of a notification that could not be
// stored. Callers log it and carry on with their primary action.
var ErrDispatchFailed = stderrors.New("failed to dispatch notification")

const previewLength = 100

// Request describes one notification to dispatch.
type Request struct {
	UserID   uuid.UUID
	SenderID *uuid.UUID
	Type     model.NotificationType
	Title    string
	Message  string
	Link     *string
	Payload  model.NotificationPayload
}

func (r Request) validate() error {
	if r.UserID == uuid.Nil {
		return fmt.Errorf("recipient is required")
	}
	if !r.Type.Valid() {
		return fmt.Errorf("unknown notification type %q", r.Type)
	}
	if r.Payload != nil && !model.PayloadTypeMatches(r.Type, r.Payload) {
		return fmt.Errorf("payload %T does not match type %q", r.Payload, r.Type)
	}
	return nil
}

type Service struct {
	writer  repository.NotificationWriter
	repo    repository.NotificationRepository
	outbox  repository.OutboxRepository
	tx      repository.Transactor
	metrics *metrics.Metrics
	logger  *logger.Logger
}

func NewService(
	writer repository.NotificationWriter,
	repo repository.NotificationRepository,
	outbox repository.OutboxRepository,
	tx repository.Transactor,
	m *metrics.Metrics,
	log *logger.Logger,
) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		writer:  writer,
		repo:    repo,
		outbox:  outbox,
		tx:      tx,
		metrics: m,
		logger:  log,
	}
}

// Send stores one unread notification through the elevated writer. Any
// failure, including a panic below it, is logged and reported as
// ErrDispatchFailed.
func (s *Service) Send(ctx context.Context, req Request) (n *model.Notification, err error) {
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error(fmt.Errorf("panic: %v", p), "notification dispatch panicked",
				"user_id", req.UserID.String(), "type", string(req.Type))
			n, err = nil, ErrDispatchFailed
		}
		s.observeDispatch(req.Type, err)
	}()

	if err := req.validate(); err != nil {
		s.logger.Warn("rejected notification", "user_id", req.UserID.String(), "error", err.Error())
		return nil, fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}

	n = &model.Notification{
		UserID:   req.UserID,
		SenderID: req.SenderID,
		Type:     req.Type,
		Title:    req.Title,
		Message:  req.Message,
		Link:     req.Link,
		IsRead:   false,
	}
	if req.Payload != nil {
		if err := n.SetPayload(req.Payload); err != nil {
			s.logger.Error(err, "failed to encode notification payload", "user_id", req.UserID.String())
			return nil, fmt.Errorf("%w: %v", ErrDispatchFailed, err)
		}
	}

	if err := s.writer.Create(ctx, n); err != nil {
		s.logger.Error(err, "failed to dispatch notification",
			"user_id", req.UserID.String(), "type", string(req.Type))
		return nil, fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}
	return n, nil
}

func (s *Service) observeDispatch(t model.NotificationType, err error) {
	if s.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failed"
	}
	s.metrics.NotificationsDispatched.WithLabelValues(string(t), status).Inc()
}

// NotifyNewMessage tells recipient that sender wrote in conv.
func (s *Service) NotifyNewMessage(ctx context.Context, conv *model.Conversation, sender *model.Profile, senderID, recipientID uuid.UUID, content string) (*model.Notification, error) {
	return s.Send(ctx, Request{
		UserID:   recipientID,
		SenderID: &senderID,
		Type:     model.NotificationTypeNewMessage,
		Title:    "New message",
		Message:  fmt.Sprintf("%s: %s", sender.DisplayName(), preview(content)),
		Payload:  model.NewMessagePayload{ConversationID: conv.ID, JobID: conv.JobID},
	})
}

// NotifyNewApplication tells the job's employer that a seeker applied.
func (s *Service) NotifyNewApplication(ctx context.Context, job *model.Job, app *model.Application, seeker *model.Profile) (*model.Notification, error) {
	return s.Send(ctx, Request{
		UserID:   job.EmployerID,
		SenderID: &app.SeekerID,
		Type:     model.NotificationTypeNewApplication,
		Title:    "New application",
		Message:  fmt.Sprintf("%s applied for %s", seeker.DisplayName(), job.Title),
		Payload:  model.NewApplicationPayload{ApplicationID: app.ID, JobID: job.ID},
	})
}

// NotifyApplicationStatus tells the seeker their application changed status.
func (s *Service) NotifyApplicationStatus(ctx context.Context, job *model.Job, app *model.Application) (*model.Notification, error) {
	return s.Send(ctx, Request{
		UserID:   app.SeekerID,
		SenderID: &job.EmployerID,
		Type:     model.NotificationTypeApplicationUpdate,
		Title:    "Application update",
		Message:  fmt.Sprintf("Your application for %s is now %s", job.Title, app.Status),
		Payload: model.ApplicationUpdatePayload{
			ApplicationID: app.ID,
			JobID:         job.ID,
			Status:        app.Status,
		},
	})
}

// MarkAsRead flags one of userID's notifications as read. Marking a row
// that is already read, or that belongs to someone else, changes nothing.
func (s *Service) MarkAsRead(ctx context.Context, userID, id uuid.UUID) error {
	if userID == uuid.Nil {
		return errors.Unauthorized(nil)
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		flipped, err := s.repo.MarkAsRead(ctx, userID, id)
		if err != nil || flipped == nil {
			return err
		}
		return s.publishRead(ctx, flipped)
	})
	if err != nil {
		s.logger.Error(err, "failed to mark notification read",
			"user_id", userID.String(), "notification_id", id.String())
		return errors.InternalMessage("failed to mark notification as read", err)
	}
	return nil
}

// MarkAllAsRead flags every unread notification of userID and returns how
// many rows changed.
func (s *Service) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, errors.Unauthorized(nil)
	}

	var changed int64
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		flipped, err := s.repo.MarkAllAsRead(ctx, userID)
		if err != nil {
			return err
		}
		for _, n := range flipped {
			if err := s.publishRead(ctx, n); err != nil {
				return err
			}
		}
		changed = int64(len(flipped))
		return nil
	})
	if err != nil {
		s.logger.Error(err, "failed to mark all notifications read", "user_id", userID.String())
		return 0, errors.InternalMessage("failed to mark notifications as read", err)
	}
	return changed, nil
}

// publishRead queues the UPDATE change event for a row flipped to read.
func (s *Service) publishRead(ctx context.Context, after *model.Notification) error {
	before := *after
	before.IsRead = false
	before.ReadAt = nil

	event, err := realtime.NotificationUpdated(&before, after)
	if err != nil {
		return err
	}
	if err := s.outbox.Create(ctx, event); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.NotificationsRead.Inc()
	}
	return nil
}

// List returns userID's notifications, newest first, with links resolved
// for role.
func (s *Service) List(ctx context.Context, userID uuid.UUID, role model.Role, filter model.NotificationFilter) ([]*model.Notification, error) {
	if userID == uuid.Nil {
		return nil, errors.Unauthorized(nil)
	}
	notifications, err := s.repo.List(ctx, userID, filter)
	if err != nil {
		s.logger.Error(err, "failed to list notifications", "user_id", userID.String())
		return nil, errors.InternalMessage("failed to load notifications", err)
	}
	notify.Attach(notifications, role)
	return notifications, nil
}

func (s *Service) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	if userID == uuid.Nil {
		return 0, errors.Unauthorized(nil)
	}
	count, err := s.repo.UnreadCount(ctx, userID)
	if err != nil {
		s.logger.Error(err, "failed to count unread notifications", "user_id", userID.String())
		return 0, errors.InternalMessage("failed to load notifications", err)
	}
	return count, nil
}

func preview(content string) string {
	if utf8.RuneCountInString(content) <= previewLength {
		return content
	}
	runes := []rune(content)
	return string(runes[:previewLength]) + "…"
}
