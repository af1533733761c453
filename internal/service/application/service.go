package application

import (
	"context"
	stderrors "errors"

	"github.com/google/uuid"

	"github.com/jwalitptl/jobboard-messaging/internal/model"
	"github.com/jwalitptl/jobboard-messaging/internal/repository"
	"github.com/jwalitptl/jobboard-messaging/pkg/errors"
	"github.com/jwalitptl/jobboard-messaging/pkg/logger"
)

// Notifier dispatches the best-effort application notifications.
type Notifier interface {
	NotifyNewApplication(ctx context.Context, job *model.Job, app *model.Application, seeker *model.Profile) (*model.Notification, error)
	NotifyApplicationStatus(ctx context.Context, job *model.Job, app *model.Application) (*model.Notification, error)
}

type Service struct {
	applications repository.ApplicationRepository
	jobs         repository.JobRepository
	profiles     repository.ProfileRepository
	notifier     Notifier
	logger       *logger.Logger
}

func NewService(repos *repository.Repositories, notifier Notifier, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		applications: repos.Applications,
		jobs:         repos.Jobs,
		profiles:     repos.Profiles,
		notifier:     notifier,
		logger:       log,
	}
}

// Submit files a pending application by seekerID for jobID and notifies
// the job's employer.
func (s *Service) Submit(ctx context.Context, seekerID, jobID uuid.UUID, coverLetter *string) (*model.Application, error) {
	if seekerID == uuid.Nil {
		return nil, errors.Unauthorized(nil)
	}

	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.EmployerID == seekerID {
		return nil, errors.BadRequest("employers cannot apply to their own jobs", nil)
	}

	seeker, err := s.profiles.Get(ctx, seekerID)
	if err != nil && !stderrors.Is(err, repository.ErrNotFound) {
		s.logger.Warn("seeker profile unavailable", "user_id", seekerID.String(), "error", err.Error())
	}
	if seeker != nil && seeker.Role != model.RoleSeeker {
		return nil, errors.Forbidden("only seekers can apply to jobs", nil)
	}

	app := &model.Application{
		JobID:       jobID,
		SeekerID:    seekerID,
		Status:      model.ApplicationStatusPending,
		CoverLetter: coverLetter,
	}
	if err := s.applications.Create(ctx, app); err != nil {
		if errors.Is(err, errors.ErrConflict) {
			return nil, err
		}
		s.logger.Error(err, "failed to submit application", "job_id", jobID.String(), "seeker_id", seekerID.String())
		return nil, errors.InternalMessage("failed to submit application", err)
	}

	_, _ = s.notifier.NotifyNewApplication(ctx, job, app, seeker)
	return app, nil
}

// UpdateStatus sets the status of an application on one of employerID's
// jobs. Any known status may follow any other.
func (s *Service) UpdateStatus(ctx context.Context, employerID, applicationID uuid.UUID, status model.ApplicationStatus) (*model.Application, error) {
	if employerID == uuid.Nil {
		return nil, errors.Unauthorized(nil)
	}
	if !status.Valid() {
		return nil, errors.BadRequest("unknown application status", nil)
	}

	app, err := s.applications.Get(ctx, applicationID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFound("application", nil)
		}
		s.logger.Error(err, "failed to load application", "application_id", applicationID.String())
		return nil, errors.InternalMessage("failed to update application", err)
	}

	job, err := s.jobs.Get(ctx, app.JobID)
	if err != nil && !stderrors.Is(err, repository.ErrNotFound) {
		s.logger.Error(err, "failed to load job", "job_id", app.JobID.String())
		return nil, errors.InternalMessage("failed to update application", err)
	}
	if job == nil || job.EmployerID != employerID {
		return nil, errors.NotFound("application", nil)
	}

	updated, err := s.applications.UpdateStatus(ctx, applicationID, status)
	if err != nil {
		s.logger.Error(err, "failed to update application status", "application_id", applicationID.String())
		return nil, errors.InternalMessage("failed to update application", err)
	}

	_, _ = s.notifier.NotifyApplicationStatus(ctx, job, updated)
	return updated, nil
}

func (s *Service) loadJob(ctx context.Context, jobID uuid.UUID) (*model.Job, error) {
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFound("job", nil)
		}
		s.logger.Error(err, "failed to load job", "job_id", jobID.String())
		return nil, errors.InternalMessage("failed to load job", err)
	}
	return job, nil
}
