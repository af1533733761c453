package postgres

import (
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/jobboard-messaging/internal/repository"
)

// NewRepositories wires repositories on the end-user pool, except for the
// notification writer which needs the service connection.
func NewRepositories(db *sqlx.DB, service *ServiceDB, profileTTL time.Duration) *repository.Repositories {
	base := NewBaseRepository(db)
	return &repository.Repositories{
		Tx:            &base,
		Conversations: NewConversationRepository(base),
		Messages:      NewMessageRepository(base),
		Notifications: NewNotificationRepository(base),
		Writer:        NewNotificationWriter(service),
		Applications:  NewApplicationRepository(base),
		Jobs:          NewJobRepository(base),
		Profiles:      NewCachedProfileRepository(NewProfileRepository(base), profileTTL),
		Outbox:        NewOutboxRepository(base),
	}
}
