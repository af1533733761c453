package notification

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/jobboard-messaging/internal/model"
	"github.com/jwalitptl/jobboard-messaging/internal/repository"
	"github.com/jwalitptl/jobboard-messaging/internal/repository/memory"
	apperrors "github.com/jwalitptl/jobboard-messaging/pkg/errors"
	"github.com/jwalitptl/jobboard-messaging/pkg/metrics"
)

type stubWriter struct {
	err   error
	panic bool
}

func (w stubWriter) Create(context.Context, *model.Notification) error {
	if w.panic {
		panic("writer exploded")
	}
	return w.err
}

func newTestService(t *testing.T, writer repository.NotificationWriter) (*Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	repos := store.Repositories()
	if writer == nil {
		writer = repos.Writer
	}
	return NewService(writer, repos.Notifications, repos.Outbox, repos.Tx, metrics.NewNop(), nil), store
}

func TestSendStoresUnreadNotification(t *testing.T) {
	svc, store := newTestService(t, nil)
	ctx := context.Background()
	userID := uuid.New()
	convID := uuid.New()

	n, err := svc.Send(ctx, Request{
		UserID:  userID,
		Type:    model.NotificationTypeNewMessage,
		Title:   "New message",
		Message: "Sam: Hello",
		Payload: model.NewMessagePayload{ConversationID: convID, JobID: uuid.New()},
	})
	require.NoError(t, err)
	assert.False(t, n.IsRead)
	require.NotNil(t, n.RelatedID)
	assert.Equal(t, convID, *n.RelatedID)

	count, err := svc.UnreadCount(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	events := store.OutboxEvents()
	require.Len(t, events, 1)
	assert.Equal(t, "notifications.INSERT", events[0].EventType)
}

func TestSendFailuresAreSoft(t *testing.T) {
	cases := []struct {
		name   string
		writer repository.NotificationWriter
		req    Request
	}{
		{
			name:   "writer error",
			writer: stubWriter{err: errors.New("permission denied")},
			req:    Request{UserID: uuid.New(), Type: model.NotificationTypeSystem, Title: "t", Message: "m"},
		},
		{
			name:   "writer panic",
			writer: stubWriter{panic: true},
			req:    Request{UserID: uuid.New(), Type: model.NotificationTypeSystem, Title: "t", Message: "m"},
		},
		{
			name: "unknown type",
			req:  Request{UserID: uuid.New(), Type: "carrier_pigeon", Title: "t", Message: "m"},
		},
		{
			name: "no recipient",
			req:  Request{Type: model.NotificationTypeSystem, Title: "t", Message: "m"},
		},
		{
			name: "payload of another type",
			req: Request{
				UserID:  uuid.New(),
				Type:    model.NotificationTypeNewMessage,
				Payload: model.NewApplicationPayload{ApplicationID: uuid.New()},
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, store := newTestService(t, tc.writer)
			n, err := svc.Send(context.Background(), tc.req)
			assert.Nil(t, n)
			assert.ErrorIs(t, err, ErrDispatchFailed)
			assert.Empty(t, store.OutboxEvents())
		})
	}
}

func TestMarkAllAsReadIsIdempotent(t *testing.T) {
	svc, store := newTestService(t, nil)
	ctx := context.Background()
	userID := uuid.New()
	other := uuid.New()

	for i := 0; i < 3; i++ {
		_, err := svc.Send(ctx, Request{UserID: userID, Type: model.NotificationTypeSystem, Title: "t", Message: "m"})
		require.NoError(t, err)
	}
	_, err := svc.Send(ctx, Request{UserID: other, Type: model.NotificationTypeSystem, Title: "t", Message: "m"})
	require.NoError(t, err)

	changed, err := svc.MarkAllAsRead(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), changed)

	count, err := svc.UnreadCount(ctx, userID)
	require.NoError(t, err)
	assert.Zero(t, count)

	changed, err = svc.MarkAllAsRead(ctx, userID)
	require.NoError(t, err)
	assert.Zero(t, changed)

	count, err = svc.UnreadCount(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	updates := 0
	for _, ev := range store.OutboxEvents() {
		if ev.EventType == "notifications.UPDATE" {
			updates++
		}
	}
	assert.Equal(t, 3, updates)
}

func TestMarkAsReadOnlyTouchesOwnRows(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()
	owner := uuid.New()

	n, err := svc.Send(ctx, Request{UserID: owner, Type: model.NotificationTypeSystem, Title: "t", Message: "m"})
	require.NoError(t, err)

	require.NoError(t, svc.MarkAsRead(ctx, uuid.New(), n.ID))
	count, err := svc.UnreadCount(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, svc.MarkAsRead(ctx, owner, n.ID))
	require.NoError(t, svc.MarkAsRead(ctx, owner, n.ID))
	count, err = svc.UnreadCount(ctx, owner)
	require.NoError(t, err)
	assert.Zero(t, count)

	assert.True(t, apperrors.Is(svc.MarkAsRead(ctx, uuid.Nil, n.ID), apperrors.ErrUnauthorized))
}

func TestListResolvesLinksForRole(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()
	seeker := uuid.New()
	convID := uuid.New()

	_, err := svc.Send(ctx, Request{
		UserID:  seeker,
		Type:    model.NotificationTypeNewMessage,
		Title:   "New message",
		Message: "Acme: hi",
		Payload: model.NewMessagePayload{ConversationID: convID, JobID: uuid.New()},
	})
	require.NoError(t, err)

	list, err := svc.List(ctx, seeker, model.RoleSeeker, model.NotificationFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "/dashboard/seeker/messages/"+convID.String(), list[0].ResolvedLink)
}

func TestNotifyNewMessagePreview(t *testing.T) {
	svc, _ := newTestService(t, nil)
	conv := &model.Conversation{ID: uuid.New(), JobID: uuid.New()}
	sender := &model.Profile{FullName: "Sam Seeker"}

	n, err := svc.NotifyNewMessage(context.Background(), conv, sender, uuid.New(), uuid.New(), strings.Repeat("a", 150))
	require.NoError(t, err)
	assert.Equal(t, "Sam Seeker: "+strings.Repeat("a", previewLength)+"…", n.Message)

	n, err = svc.NotifyNewMessage(context.Background(), conv, nil, uuid.New(), uuid.New(), "Hello")
	require.NoError(t, err)
	assert.Equal(t, "Someone: Hello", n.Message)
}
