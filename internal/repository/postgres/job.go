package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/jobboard-messaging/internal/model"
	"github.com/jwalitptl/jobboard-messaging/internal/repository"
)

type jobRepository struct {
	BaseRepository
}

func NewJobRepository(base BaseRepository) repository.JobRepository {
	return &jobRepository{base}
}

func (r *jobRepository) Get(ctx context.Context, id uuid.UUID) (*model.Job, error) {
	query := `SELECT id, employer_id, title FROM jobs WHERE id = $1`

	var job model.Job
	if err := sqlx.GetContext(ctx, r.conn(ctx), &job, query, id); err != nil {
		return nil, fmt.Errorf("failed to get job: %w", notFound(err))
	}
	return &job, nil
}
