package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/jobboard-messaging/internal/model"
	"github.com/jwalitptl/jobboard-messaging/internal/repository"
	"github.com/jwalitptl/jobboard-messaging/pkg/errors"
)

type applicationRepository struct {
	s *Store
}

func (r *applicationRepository) Create(_ context.Context, app *model.Application) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.applications {
		if existing.JobID == app.JobID && existing.SeekerID == app.SeekerID {
			return errors.Conflict("application", nil)
		}
	}
	app.ID = uuid.New()
	app.CreatedAt = r.s.now()
	app.UpdatedAt = app.CreatedAt
	if app.Status == "" {
		app.Status = model.ApplicationStatusPending
	}
	r.s.applications[app.ID] = *app
	return nil
}

func (r *applicationRepository) Get(_ context.Context, id uuid.UUID) (*model.Application, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	app, ok := r.s.applications[id]
	if !ok {
		return nil, fmt.Errorf("failed to get application: %w", repository.ErrNotFound)
	}
	return &app, nil
}

func (r *applicationRepository) UpdateStatus(_ context.Context, id uuid.UUID, status model.ApplicationStatus) (*model.Application, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	app, ok := r.s.applications[id]
	if !ok {
		return nil, fmt.Errorf("failed to update application status: %w", repository.ErrNotFound)
	}
	app.Status = status
	app.UpdatedAt = r.s.now()
	r.s.applications[id] = app
	return &app, nil
}

type jobRepository struct {
	s *Store
}

func (r *jobRepository) Get(_ context.Context, id uuid.UUID) (*model.Job, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	job, ok := r.s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("failed to get job: %w", repository.ErrNotFound)
	}
	return &job, nil
}

type profileRepository struct {
	s *Store
}

func (r *profileRepository) Get(_ context.Context, id uuid.UUID) (*model.Profile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.profiles[id]
	if !ok {
		return nil, fmt.Errorf("failed to get profile: %w", repository.ErrNotFound)
	}
	return &p, nil
}
