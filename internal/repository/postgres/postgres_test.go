package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/jobboard-messaging/internal/config"
	"github.com/jwalitptl/jobboard-messaging/internal/model"
	"github.com/jwalitptl/jobboard-messaging/internal/repository"
	apperrors "github.com/jwalitptl/jobboard-messaging/pkg/errors"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return sqlx.NewDb(db, "sqlmock"), mock
}

func q(s string) string {
	return regexp.QuoteMeta(s)
}

func TestWithinTxCommitsAndRollsBack(t *testing.T) {
	db, mock := newMock(t)
	base := NewBaseRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE conversations SET updated_at")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := NewConversationRepository(base)
	err := base.WithinTx(context.Background(), func(ctx context.Context) error {
		return repo.Touch(ctx, uuid.New(), time.Now())
	})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectRollback()
	boom := errors.New("boom")
	err = base.WithinTx(context.Background(), func(ctx context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestWithinTxJoinsOuterTransaction(t *testing.T) {
	db, mock := newMock(t)
	base := NewBaseRepository(db)

	mock.ExpectBegin()
	mock.ExpectCommit()

	calls := 0
	err := base.WithinTx(context.Background(), func(ctx context.Context) error {
		return base.WithinTx(ctx, func(context.Context) error {
			calls++
			return nil
		})
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestConversationGetOrCreate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewConversationRepository(NewBaseRepository(db))

	convID, jobID, seekerID, employerID := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	now := time.Now()
	cols := []string{"id", "job_id", "seeker_id", "employer_id", "created_at", "updated_at", "inserted"}

	mock.ExpectQuery(q("ON CONFLICT (job_id, seeker_id, employer_id)")).
		WithArgs(sqlmock.AnyArg(), jobID, seekerID, employerID, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(convID.String(), jobID.String(), seekerID.String(), employerID.String(), now, now, true))
	mock.ExpectQuery(q("ON CONFLICT (job_id, seeker_id, employer_id)")).
		WithArgs(sqlmock.AnyArg(), jobID, seekerID, employerID, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(convID.String(), jobID.String(), seekerID.String(), employerID.String(), now, now, false))

	first, created, err := repo.GetOrCreate(context.Background(), jobID, seekerID, employerID)
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := repo.GetOrCreate(context.Background(), jobID, seekerID, employerID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func TestConversationGetNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewConversationRepository(NewBaseRepository(db))

	mock.ExpectQuery(q("FROM conversations")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestConversationListForParticipant(t *testing.T) {
	db, mock := newMock(t)
	repo := NewConversationRepository(NewBaseRepository(db))

	userID, employerID := uuid.New(), uuid.New()
	withMsg, empty := uuid.New(), uuid.New()
	msgID := uuid.New()
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"id", "job_id", "seeker_id", "employer_id", "created_at", "updated_at",
		"job_title", "counterparty_id", "counterparty_name",
		"last_message_id", "last_message_sender_id", "last_message_content",
		"last_message_is_read", "last_message_created_at", "unread_count",
	}).
		AddRow(withMsg.String(), uuid.NewString(), userID.String(), employerID.String(), now, now, "Go Developer", employerID.String(), "Acme HR",
			msgID.String(), employerID.String(), "Hello", false, now, 1).
		AddRow(empty.String(), uuid.NewString(), userID.String(), employerID.String(), now, now, "Designer", employerID.String(), "Acme HR",
			nil, nil, nil, nil, nil, 0)

	mock.ExpectQuery(q("LEFT JOIN LATERAL")).WithArgs(userID).WillReturnRows(rows)

	summaries, err := repo.ListForParticipant(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	require.NotNil(t, summaries[0].LastMessage)
	assert.Equal(t, "Hello", summaries[0].LastMessage.Content)
	assert.Equal(t, 1, summaries[0].UnreadCount)
	assert.Equal(t, "Acme HR", summaries[0].CounterpartyName)
	assert.Nil(t, summaries[1].LastMessage)
}

func TestMessageListByConversationOrdersAscending(t *testing.T) {
	db, mock := newMock(t)
	repo := NewMessageRepository(NewBaseRepository(db))

	convID := uuid.New()
	mock.ExpectQuery(q("ORDER BY m.created_at ASC, m.id ASC")).
		WithArgs(convID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "conversation_id", "sender_id", "content", "is_read", "created_at",
			"sender_name", "sender_avatar_url",
		}).AddRow(uuid.NewString(), convID.String(), uuid.NewString(), "Hello", false, time.Now(), "Alice", nil))

	msgs, err := repo.ListByConversation(context.Background(), convID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Alice", msgs[0].SenderName)
}

func TestNotificationMarkAsReadIsScopedAndIdempotent(t *testing.T) {
	db, mock := newMock(t)
	repo := NewNotificationRepository(NewBaseRepository(db))
	userID, id := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(q("SELECT set_config('app.current_user_id', $1, true)")).
		WithArgs(userID.String()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(q("UPDATE notifications")).
		WithArgs(id, userID, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	n, err := repo.MarkAsRead(context.Background(), userID, id)
	require.NoError(t, err)
	assert.Nil(t, n)
}

func TestNotificationUnreadCount(t *testing.T) {
	db, mock := newMock(t)
	repo := NewNotificationRepository(NewBaseRepository(db))
	userID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(q("set_config")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(q("SELECT COUNT(*)")).WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectCommit()

	count, err := repo.UnreadCount(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestNotificationWriterInsertsRowAndEventTogether(t *testing.T) {
	db, mock := newMock(t)
	writer := NewNotificationWriter(&ServiceDB{DB: db})

	n := &model.Notification{
		UserID:  uuid.New(),
		Type:    model.NotificationTypeNewMessage,
		Title:   "New message",
		Message: "Alice: Hello",
	}
	require.NoError(t, n.SetPayload(model.NewMessagePayload{ConversationID: uuid.New(), JobID: uuid.New()}))

	mock.ExpectBegin()
	mock.ExpectExec(q("INSERT INTO notifications")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("INSERT INTO outbox_events")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, writer.Create(context.Background(), n))
	assert.NotEqual(t, uuid.Nil, n.ID)
}

func TestNotificationWriterRollsBackWhenEventFails(t *testing.T) {
	db, mock := newMock(t)
	writer := NewNotificationWriter(&ServiceDB{DB: db})

	mock.ExpectBegin()
	mock.ExpectExec(q("INSERT INTO notifications")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("INSERT INTO outbox_events")).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := writer.Create(context.Background(), &model.Notification{UserID: uuid.New(), Type: model.NotificationTypeSystem})
	assert.Error(t, err)
}

func TestNewServiceDBRequiresCredential(t *testing.T) {
	_, err := NewServiceDB("", config.DatabaseConfig{})
	assert.ErrorIs(t, err, ErrMissingServiceCredential)
}

func TestApplicationCreateConflict(t *testing.T) {
	db, mock := newMock(t)
	repo := NewApplicationRepository(NewBaseRepository(db))

	mock.ExpectExec(q("INSERT INTO applications")).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value"})

	err := repo.Create(context.Background(), &model.Application{JobID: uuid.New(), SeekerID: uuid.New()})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))
}

func TestOutboxClaimPendingLocksRows(t *testing.T) {
	db, mock := newMock(t)
	repo := NewOutboxRepository(NewBaseRepository(db))

	id := uuid.New()
	mock.ExpectQuery(q("FOR UPDATE SKIP LOCKED")).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "event_type", "payload", "channels", "status", "error_message", "created_at",
			"processed_at", "updated_at", "retry_count", "retry_at",
		}).AddRow(id.String(), "messages.INSERT", []byte(`{"type":"INSERT"}`), "{realtime:messages:conversation_id=eq.1}",
			"pending", nil, time.Now(), nil, time.Now(), 0, nil))

	events, err := repo.ClaimPending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, []string{"realtime:messages:conversation_id=eq.1"}, []string(events[0].Channels))
	assert.Equal(t, model.OutboxStatusPending, events[0].Status)
}

func TestCachedProfileRepository(t *testing.T) {
	db, mock := newMock(t)
	cached := NewCachedProfileRepository(NewProfileRepository(NewBaseRepository(db)), time.Minute)
	id := uuid.New()

	mock.ExpectQuery(q("FROM profiles")).WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "full_name", "role", "avatar_url"}).
			AddRow(id.String(), "Alice", "seeker", nil))

	for i := 0; i < 3; i++ {
		p, err := cached.Get(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, "Alice", p.FullName)
	}
}
