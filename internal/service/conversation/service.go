package conversation

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/jwalitptl/jobboard-messaging/internal/model"
	"github.com/jwalitptl/jobboard-messaging/internal/realtime"
	"github.com/jwalitptl/jobboard-messaging/internal/repository"
	"github.com/jwalitptl/jobboard-messaging/pkg/errors"
	"github.com/jwalitptl/jobboard-messaging/pkg/logger"
	"github.com/jwalitptl/jobboard-messaging/pkg/metrics"
)

// MaxMessageLength is the longest message body accepted, in characters.
const MaxMessageLength = 5000

// Notifier dispatches the best-effort new_message notification.
type Notifier interface {
	NotifyNewMessage(ctx context.Context, conv *model.Conversation, sender *model.Profile, senderID, recipientID uuid.UUID, content string) (*model.Notification, error)
}

// SendResult is the outcome of SendMessage. Notified is false when the
// message was stored but the recipient's notification could not be.
type SendResult struct {
	Message  *model.Message `json:"message"`
	Notified bool           `json:"notified"`
}

type Service struct {
	tx            repository.Transactor
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	jobs          repository.JobRepository
	profiles      repository.ProfileRepository
	outbox        repository.OutboxRepository
	notifier      Notifier
	metrics       *metrics.Metrics
	logger        *logger.Logger
}

func NewService(repos *repository.Repositories, notifier Notifier, m *metrics.Metrics, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		tx:            repos.Tx,
		conversations: repos.Conversations,
		messages:      repos.Messages,
		jobs:          repos.Jobs,
		profiles:      repos.Profiles,
		outbox:        repos.Outbox,
		notifier:      notifier,
		metrics:       m,
		logger:        log,
	}
}

// GetOrCreateConversation returns the conversation for the triple, creating
// it on first contact. The actor must be the seeker or the employer, and
// the job must belong to the employer.
func (s *Service) GetOrCreateConversation(ctx context.Context, actorID, jobID, seekerID, employerID uuid.UUID) (*model.Conversation, error) {
	if actorID == uuid.Nil {
		return nil, errors.Unauthorized(nil)
	}
	if jobID == uuid.Nil || seekerID == uuid.Nil || employerID == uuid.Nil {
		return nil, errors.BadRequest("job_id, seeker_id and employer_id are required", nil)
	}
	if seekerID == employerID {
		return nil, errors.BadRequest("seeker and employer must be different users", nil)
	}
	if actorID != seekerID && actorID != employerID {
		return nil, errors.Forbidden("you can only start conversations you take part in", nil)
	}

	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFound("job", nil)
		}
		s.logger.Error(err, "failed to load job", "job_id", jobID.String())
		return nil, errors.InternalMessage("failed to start conversation", err)
	}
	if job.EmployerID != employerID {
		return nil, errors.NotFound("job", nil)
	}

	conv, created, err := s.conversations.GetOrCreate(ctx, jobID, seekerID, employerID)
	if err != nil {
		s.logger.Error(err, "failed to start conversation",
			"job_id", jobID.String(), "seeker_id", seekerID.String(), "employer_id", employerID.String())
		return nil, errors.InternalMessage("failed to start conversation", err)
	}
	if created && s.metrics != nil {
		s.metrics.ConversationsStarted.Inc()
	}
	return conv, nil
}

// SendMessage appends content to the conversation as actorID, then notifies
// the other participant. A failed notification never fails the send.
func (s *Service) SendMessage(ctx context.Context, actorID, conversationID uuid.UUID, content string) (*SendResult, error) {
	if actorID == uuid.Nil {
		return nil, errors.Unauthorized(nil)
	}

	conv, err := s.loadForParticipant(ctx, actorID, conversationID)
	if err != nil {
		return nil, err
	}
	recipientID, ok := conv.Counterparty(actorID)
	if !ok {
		return nil, errors.InternalMessage("conversation has no recipient", nil)
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errors.BadRequest("message content is required", nil)
	}
	if utf8.RuneCountInString(content) > MaxMessageLength {
		return nil, errors.BadRequest(fmt.Sprintf("message content exceeds %d characters", MaxMessageLength), nil)
	}

	msg := &model.Message{
		ID:             uuid.New(),
		ConversationID: conv.ID,
		SenderID:       actorID,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.messages.Create(ctx, msg); err != nil {
			return err
		}
		if err := s.conversations.Touch(ctx, conv.ID, msg.CreatedAt); err != nil {
			return err
		}
		event, err := realtime.MessageInserted(msg)
		if err != nil {
			return err
		}
		return s.outbox.Create(ctx, event)
	})
	if err != nil {
		s.logger.Error(err, "failed to send message",
			"conversation_id", conv.ID.String(), "sender_id", actorID.String())
		return nil, errors.InternalMessage("failed to send message", err)
	}
	if s.metrics != nil {
		s.metrics.MessagesSent.Inc()
	}

	sender, err := s.profiles.Get(ctx, actorID)
	if err != nil {
		s.logger.Warn("sender profile unavailable", "user_id", actorID.String(), "error", err.Error())
	}

	result := &SendResult{Message: msg}
	if _, err := s.notifier.NotifyNewMessage(ctx, conv, sender, actorID, recipientID, content); err == nil {
		result.Notified = true
	}
	return result, nil
}

// FetchMessages returns the full history, oldest first.
func (s *Service) FetchMessages(ctx context.Context, actorID, conversationID uuid.UUID) ([]*model.MessageWithSender, error) {
	if actorID == uuid.Nil {
		return nil, errors.Unauthorized(nil)
	}
	if _, err := s.loadForParticipant(ctx, actorID, conversationID); err != nil {
		return nil, err
	}

	messages, err := s.messages.ListByConversation(ctx, conversationID)
	if err != nil {
		s.logger.Error(err, "failed to fetch messages", "conversation_id", conversationID.String())
		return nil, errors.InternalMessage("failed to load messages", err)
	}
	return messages, nil
}

// ListConversations returns the actor's conversations, most recently active first.
func (s *Service) ListConversations(ctx context.Context, actorID uuid.UUID) ([]*model.ConversationSummary, error) {
	if actorID == uuid.Nil {
		return nil, errors.Unauthorized(nil)
	}
	summaries, err := s.conversations.ListForParticipant(ctx, actorID)
	if err != nil {
		s.logger.Error(err, "failed to list conversations", "user_id", actorID.String())
		return nil, errors.InternalMessage("failed to load conversations", err)
	}
	return summaries, nil
}

// MarkConversationRead flags every message the actor received in the
// conversation as read.
func (s *Service) MarkConversationRead(ctx context.Context, actorID, conversationID uuid.UUID) (int64, error) {
	if actorID == uuid.Nil {
		return 0, errors.Unauthorized(nil)
	}
	if _, err := s.loadForParticipant(ctx, actorID, conversationID); err != nil {
		return 0, err
	}

	n, err := s.messages.MarkConversationRead(ctx, conversationID, actorID)
	if err != nil {
		s.logger.Error(err, "failed to mark conversation read", "conversation_id", conversationID.String())
		return 0, errors.InternalMessage("failed to mark messages as read", err)
	}
	return n, nil
}

// loadForParticipant hides whether a conversation exists from anyone who
// is not part of it.
func (s *Service) loadForParticipant(ctx context.Context, actorID, conversationID uuid.UUID) (*model.Conversation, error) {
	conv, err := s.conversations.Get(ctx, conversationID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFound("conversation", nil)
		}
		s.logger.Error(err, "failed to load conversation", "conversation_id", conversationID.String())
		return nil, errors.InternalMessage("failed to load conversation", err)
	}
	if !conv.HasParticipant(actorID) {
		return nil, errors.NotFound("conversation", nil)
	}
	return conv, nil
}
