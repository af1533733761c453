package application

import (
	"context"
	"testing"

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

type fixture struct {
	repos      *repository.Repositories
	svc        *Service
	notifier   *notification.Service
	employerID uuid.UUID
	seekerID   uuid.UUID
	jobID      uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	repos := store.Repositories()
	f := &fixture{
		repos:      repos,
		employerID: uuid.New(),
		seekerID:   uuid.New(),
		jobID:      uuid.New(),
	}
	store.SeedProfile(model.Profile{ID: f.employerID, FullName: "Acme HR", Role: model.RoleEmployer})
	store.SeedProfile(model.Profile{ID: f.seekerID, FullName: "Sam Seeker", Role: model.RoleSeeker})
	store.SeedJob(model.Job{ID: f.jobID, EmployerID: f.employerID, Title: "Go Developer"})

	f.notifier = notification.NewService(repos.Writer, repos.Notifications, repos.Outbox, repos.Tx, metrics.NewNop(), nil)
	f.svc = NewService(repos, f.notifier, nil)
	return f
}

func TestSubmitNotifiesEmployer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	app, err := f.svc.Submit(ctx, f.seekerID, f.jobID, nil)
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationStatusPending, app.Status)

	list, err := f.notifier.List(ctx, f.employerID, model.RoleEmployer, model.NotificationFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, model.NotificationTypeNewApplication, list[0].Type)
	assert.Equal(t, "Sam Seeker applied for Go Developer", list[0].Message)
	assert.Equal(t, "/dashboard/employer/jobs/"+f.jobID.String()+"/applicants", list[0].ResolvedLink)
}

func TestSubmitRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, f.seekerID, uuid.New(), nil)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	_, err = f.svc.Submit(ctx, f.employerID, f.jobID, nil)
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))

	_, err = f.svc.Submit(ctx, f.seekerID, f.jobID, nil)
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, f.seekerID, f.jobID, nil)
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))

	_, err = f.svc.Submit(ctx, uuid.Nil, f.jobID, nil)
	assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized))
}

func TestUpdateStatusNotifiesSeeker(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	app, err := f.svc.Submit(ctx, f.seekerID, f.jobID, nil)
	require.NoError(t, err)

	updated, err := f.svc.UpdateStatus(ctx, f.employerID, app.ID, model.ApplicationStatusShortlisted)
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationStatusShortlisted, updated.Status)

	list, err := f.notifier.List(ctx, f.seekerID, model.RoleSeeker, model.NotificationFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, model.NotificationTypeApplicationUpdate, list[0].Type)
	assert.Contains(t, list[0].Message, "shortlisted")
	assert.Equal(t, "/dashboard/seeker/applications", list[0].ResolvedLink)
}

func TestUpdateStatusRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	app, err := f.svc.Submit(ctx, f.seekerID, f.jobID, nil)
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, f.employerID, app.ID, "archived")
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))

	_, err = f.svc.UpdateStatus(ctx, uuid.New(), app.ID, model.ApplicationStatusRejected)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	_, err = f.svc.UpdateStatus(ctx, f.employerID, uuid.New(), model.ApplicationStatusRejected)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	// no transition graph
	_, err = f.svc.UpdateStatus(ctx, f.employerID, app.ID, model.ApplicationStatusHired)
	require.NoError(t, err)
	back, err := f.svc.UpdateStatus(ctx, f.employerID, app.ID, model.ApplicationStatusPending)
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationStatusPending, back.Status)
}
