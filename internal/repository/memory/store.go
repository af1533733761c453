// Package memory is an in-process backend for every repository. It backs
// local runs with database.driver set to memory, and service tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/jobboard-messaging/internal/model"
	"github.com/jwalitptl/jobboard-messaging/internal/repository"
)

type triple struct {
	jobID, seekerID, employerID uuid.UUID
}

// Store holds all rows. Transactions are not isolated and writes made
// before a failing step inside WithinTx are not rolled back.
type Store struct {
	mu sync.RWMutex

	profiles      map[uuid.UUID]model.Profile
	jobs          map[uuid.UUID]model.Job
	applications  map[uuid.UUID]model.Application
	conversations map[uuid.UUID]model.Conversation
	byTriple      map[triple]uuid.UUID
	messages      []model.Message
	notifications []model.Notification
	outbox        []model.OutboxEvent
	deadLetter    []model.OutboxEvent

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		profiles:      make(map[uuid.UUID]model.Profile),
		jobs:          make(map[uuid.UUID]model.Job),
		applications:  make(map[uuid.UUID]model.Application),
		conversations: make(map[uuid.UUID]model.Conversation),
		byTriple:      make(map[triple]uuid.UUID),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// SeedProfile stores a profile owned by the external profile module.
func (s *Store) SeedProfile(p model.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.ID] = p
}

// SeedJob stores a job owned by the external jobs module.
func (s *Store) SeedJob(j model.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[j.ID] = j
}

// OutboxEvents returns a copy of every outbox event, oldest first.
func (s *Store) OutboxEvents() []model.OutboxEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.OutboxEvent, len(s.outbox))
	copy(out, s.outbox)
	return out
}

// DeadLetters returns a copy of the dead-lettered events.
func (s *Store) DeadLetters() []model.OutboxEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.OutboxEvent, len(s.deadLetter))
	copy(out, s.deadLetter)
	return out
}

// WithinTx runs fn directly.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Repositories exposes the store through the repository interfaces.
func (s *Store) Repositories() *repository.Repositories {
	return &repository.Repositories{
		Tx:            s,
		Conversations: &conversationRepository{s},
		Messages:      &messageRepository{s},
		Notifications: &notificationRepository{s},
		Writer:        &notificationWriter{s},
		Applications:  &applicationRepository{s},
		Jobs:          &jobRepository{s},
		Profiles:      &profileRepository{s},
		Outbox:        &outboxRepository{s},
	}
}
