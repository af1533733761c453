package conversation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/jobboard-messaging/internal/model"
	"github.com/jwalitptl/jobboard-messaging/internal/repository"
	"github.com/jwalitptl/jobboard-messaging/internal/repository/memory"
	"github.com/jwalitptl/jobboard-messaging/internal/service/notification"
	apperrors "github.com/jwalitptl/jobboard-messaging/pkg/errors"
	"github.com/jwalitptl/jobboard-messaging/pkg/metrics"
)

type failingWriter struct{}

func (failingWriter) Create(context.Context, *model.Notification) error {
	return errors.New("service credential rejected")
}

type fixture struct {
	store      *memory.Store
	repos      *repository.Repositories
	svc        *Service
	notifier   *notification.Service
	employerID uuid.UUID
	seekerID   uuid.UUID
	jobID      uuid.UUID
}

func newFixture(t *testing.T, writer repository.NotificationWriter) *fixture {
	t.Helper()
	store := memory.NewStore()
	repos := store.Repositories()
	if writer != nil {
		repos.Writer = writer
	}

	f := &fixture{
		store:      store,
		repos:      repos,
		employerID: uuid.New(),
		seekerID:   uuid.New(),
		jobID:      uuid.New(),
	}
	store.SeedProfile(model.Profile{ID: f.employerID, FullName: "Acme HR", Role: model.RoleEmployer})
	store.SeedProfile(model.Profile{ID: f.seekerID, FullName: "Sam Seeker", Role: model.RoleSeeker})
	store.SeedJob(model.Job{ID: f.jobID, EmployerID: f.employerID, Title: "Go Developer"})

	m := metrics.NewNop()
	f.notifier = notification.NewService(repos.Writer, repos.Notifications, repos.Outbox, repos.Tx, m, nil)
	f.svc = NewService(repos, f.notifier, m, nil)
	return f
}

func (f *fixture) conversation(t *testing.T) *model.Conversation {
	t.Helper()
	c, err := f.svc.GetOrCreateConversation(context.Background(), f.seekerID, f.jobID, f.seekerID, f.employerID)
	require.NoError(t, err)
	return c
}

func TestGetOrCreateConversationIsIdempotent(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	first, err := f.svc.GetOrCreateConversation(ctx, f.seekerID, f.jobID, f.seekerID, f.employerID)
	require.NoError(t, err)
	second, err := f.svc.GetOrCreateConversation(ctx, f.employerID, f.jobID, f.seekerID, f.employerID)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
}

func TestGetOrCreateConversationValidation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	stranger := uuid.New()

	cases := []struct {
		name  string
		actor uuid.UUID
		job   uuid.UUID
		seek  uuid.UUID
		emp   uuid.UUID
		code  apperrors.ErrorCode
	}{
		{"no session", uuid.Nil, f.jobID, f.seekerID, f.employerID, apperrors.ErrUnauthorized},
		{"missing job", f.seekerID, uuid.Nil, f.seekerID, f.employerID, apperrors.ErrBadRequest},
		{"missing seeker", f.employerID, f.jobID, uuid.Nil, f.employerID, apperrors.ErrBadRequest},
		{"outsider", stranger, f.jobID, f.seekerID, f.employerID, apperrors.ErrForbidden},
		{"unknown job", f.seekerID, uuid.New(), f.seekerID, f.employerID, apperrors.ErrNotFound},
		{"job of another employer", stranger, f.jobID, f.seekerID, stranger, apperrors.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.GetOrCreateConversation(ctx, tc.actor, tc.job, tc.seek, tc.emp)
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, tc.code), "got %v", err)
		})
	}
}

// Employer E posts job J, seeker S opens a conversation and says "Hello".
func TestSendMessageNotifiesCounterparty(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	conv := f.conversation(t)

	res, err := f.svc.SendMessage(ctx, f.seekerID, conv.ID, "  Hello  ")
	require.NoError(t, err)
	assert.True(t, res.Notified)
	assert.Equal(t, "Hello", res.Message.Content)
	assert.Equal(t, f.seekerID, res.Message.SenderID)

	msgs, err := f.svc.FetchMessages(ctx, f.employerID, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Hello", msgs[0].Content)
	assert.Equal(t, "Sam Seeker", msgs[0].SenderName)

	employerNotes, err := f.repos.Notifications.List(ctx, f.employerID, model.NotificationFilter{})
	require.NoError(t, err)
	require.Len(t, employerNotes, 1)
	assert.Equal(t, model.NotificationTypeNewMessage, employerNotes[0].Type)
	assert.Contains(t, employerNotes[0].Message, "Sam Seeker")
	assert.False(t, employerNotes[0].IsRead)

	seekerNotes, err := f.repos.Notifications.List(ctx, f.seekerID, model.NotificationFilter{})
	require.NoError(t, err)
	assert.Empty(t, seekerNotes)
}

func TestSendMessageQueuesRealtimeEventAndTouchesConversation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	conv := f.conversation(t)

	res, err := f.svc.SendMessage(ctx, f.employerID, conv.ID, "When can you start?")
	require.NoError(t, err)

	reloaded, err := f.repos.Conversations.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.UpdatedAt.Equal(res.Message.CreatedAt))

	var types []string
	for _, ev := range f.store.OutboxEvents() {
		types = append(types, ev.EventType)
	}
	assert.Equal(t, []string{"messages.INSERT", "notifications.INSERT"}, types)
}

func TestSendMessageByOutsiderInsertsNothing(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	conv := f.conversation(t)

	_, err := f.svc.SendMessage(ctx, uuid.New(), conv.ID, "let me in")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	// same answer as for a conversation that does not exist
	_, missingErr := f.svc.SendMessage(ctx, f.seekerID, uuid.New(), "hello?")
	assert.Equal(t, err.Error(), missingErr.Error())

	msgs, err := f.repos.Messages.ListByConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestSendMessageSurvivesNotificationFailure(t *testing.T) {
	f := newFixture(t, failingWriter{})
	ctx := context.Background()
	conv := f.conversation(t)

	res, err := f.svc.SendMessage(ctx, f.seekerID, conv.ID, "Hello")
	require.NoError(t, err)
	assert.False(t, res.Notified)

	msgs, err := f.svc.FetchMessages(ctx, f.seekerID, conv.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestSendMessageContentRules(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	conv := f.conversation(t)

	_, err := f.svc.SendMessage(ctx, f.seekerID, conv.ID, " \n\t ")
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))

	_, err = f.svc.SendMessage(ctx, f.seekerID, conv.ID, strings.Repeat("é", MaxMessageLength+1))
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))

	_, err = f.svc.SendMessage(ctx, f.seekerID, conv.ID, strings.Repeat("é", MaxMessageLength))
	assert.NoError(t, err)

	_, err = f.svc.SendMessage(ctx, uuid.Nil, conv.ID, "hi")
	assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized))
}

func TestFetchMessagesOrderIsStable(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	conv := f.conversation(t)

	for _, content := range []string{"one", "two", "three"} {
		_, err := f.svc.SendMessage(ctx, f.seekerID, conv.ID, content)
		require.NoError(t, err)
	}

	first, err := f.svc.FetchMessages(ctx, f.seekerID, conv.ID)
	require.NoError(t, err)
	second, err := f.svc.FetchMessages(ctx, f.employerID, conv.ID)
	require.NoError(t, err)

	require.Len(t, first, 3)
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		if i > 0 {
			assert.False(t, first[i].CreatedAt.Before(first[i-1].CreatedAt))
		}
	}
}

func TestListConversationsAndMarkRead(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	conv := f.conversation(t)

	_, err := f.svc.SendMessage(ctx, f.employerID, conv.ID, "Hi Sam")
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	_, err = f.svc.SendMessage(ctx, f.employerID, conv.ID, "Are you there?")
	require.NoError(t, err)

	summaries, err := f.svc.ListConversations(ctx, f.seekerID)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 2, summaries[0].UnreadCount)
	assert.Equal(t, "Acme HR", summaries[0].CounterpartyName)
	assert.Equal(t, "Go Developer", summaries[0].JobTitle)
	require.NotNil(t, summaries[0].LastMessage)
	assert.Equal(t, "Are you there?", summaries[0].LastMessage.Content)

	n, err := f.svc.MarkConversationRead(ctx, f.seekerID, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	summaries, err = f.svc.ListConversations(ctx, f.seekerID)
	require.NoError(t, err)
	assert.Equal(t, 0, summaries[0].UnreadCount)
}
