package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/jobboard-messaging/internal/model"
	"github.com/jwalitptl/jobboard-messaging/internal/repository"
	"github.com/jwalitptl/jobboard-messaging/pkg/errors"
)

type applicationRepository struct {
	BaseRepository
}

func NewApplicationRepository(base BaseRepository) repository.ApplicationRepository {
	return &applicationRepository{base}
}

func (r *applicationRepository) Create(ctx context.Context, app *model.Application) error {
	query := `
		INSERT INTO applications (
			id, job_id, seeker_id, status, cover_letter, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	app.ID = uuid.New()
	app.CreatedAt = time.Now().UTC()
	app.UpdatedAt = app.CreatedAt
	if app.Status == "" {
		app.Status = model.ApplicationStatusPending
	}

	_, err := r.conn(ctx).ExecContext(ctx, query,
		app.ID,
		app.JobID,
		app.SeekerID,
		app.Status,
		app.CoverLetter,
		app.CreatedAt,
		app.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return errors.Conflict("application", err)
	}
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	return nil
}

func (r *applicationRepository) Get(ctx context.Context, id uuid.UUID) (*model.Application, error) {
	query := `
		SELECT id, job_id, seeker_id, status, cover_letter, created_at, updated_at
		FROM applications
		WHERE id = $1
	`

	var app model.Application
	if err := sqlx.GetContext(ctx, r.conn(ctx), &app, query, id); err != nil {
		return nil, fmt.Errorf("failed to get application: %w", notFound(err))
	}
	return &app, nil
}

func (r *applicationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.ApplicationStatus) (*model.Application, error) {
	query := `
		UPDATE applications
		SET status = $2, updated_at = $3
		WHERE id = $1
		RETURNING id, job_id, seeker_id, status, cover_letter, created_at, updated_at
	`

	var app model.Application
	if err := sqlx.GetContext(ctx, r.conn(ctx), &app, query, id, status, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("failed to update application status: %w", notFound(err))
	}
	return &app, nil
}
