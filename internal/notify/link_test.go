package notify

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/jobboard-messaging/internal/model"
)

func notificationWith(t *testing.T, typ model.NotificationType, p model.NotificationPayload) *model.Notification {
	t.Helper()
	n := &model.Notification{ID: uuid.New(), Type: typ}
	require.NoError(t, n.SetPayload(p))
	return n
}

func TestResolveLink(t *testing.T) {
	convID, jobID, appID := uuid.New(), uuid.New(), uuid.New()

	cases := []struct {
		name string
		n    *model.Notification
		role model.Role
		want string
	}{
		{
			name: "message for employer opens applicants with chat anchor",
			n:    notificationWith(t, model.NotificationTypeNewMessage, model.NewMessagePayload{ConversationID: convID, JobID: jobID}),
			role: model.RoleEmployer,
			want: "/dashboard/employer/jobs/" + jobID.String() + "/applicants?chat=" + convID.String(),
		},
		{
			name: "message for seeker opens the conversation",
			n:    notificationWith(t, model.NotificationTypeNewMessage, model.NewMessagePayload{ConversationID: convID, JobID: jobID}),
			role: model.RoleSeeker,
			want: "/dashboard/seeker/messages/" + convID.String(),
		},
		{
			name: "new application for employer",
			n:    notificationWith(t, model.NotificationTypeNewApplication, model.NewApplicationPayload{ApplicationID: appID, JobID: jobID}),
			role: model.RoleEmployer,
			want: "/dashboard/employer/jobs/" + jobID.String() + "/applicants",
		},
		{
			name: "status update for seeker",
			n:    notificationWith(t, model.NotificationTypeApplicationUpdate, model.ApplicationUpdatePayload{ApplicationID: appID, JobID: jobID, Status: "shortlisted"}),
			role: model.RoleSeeker,
			want: "/dashboard/seeker/applications",
		},
		{
			name: "system falls back",
			n:    notificationWith(t, model.NotificationTypeSystem, model.SystemPayload{}),
			role: model.RoleSeeker,
			want: DashboardLink,
		},
		{
			name: "employer message without job falls back",
			n:    notificationWith(t, model.NotificationTypeNewMessage, model.NewMessagePayload{ConversationID: convID}),
			role: model.RoleEmployer,
			want: DashboardLink,
		},
		{
			name: "unknown role falls back",
			n:    notificationWith(t, model.NotificationTypeNewApplication, model.NewApplicationPayload{JobID: jobID}),
			role: model.Role("admin"),
			want: DashboardLink,
		},
		{
			name: "nil notification",
			n:    nil,
			role: model.RoleEmployer,
			want: DashboardLink,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ResolveLink(tc.n, tc.role))
		})
	}
}

func TestResolveLinkPrefersStoredLink(t *testing.T) {
	link := "/jobs/123"
	n := notificationWith(t, model.NotificationTypeNewMessage, model.NewMessagePayload{ConversationID: uuid.New()})
	n.Link = &link

	assert.Equal(t, link, ResolveLink(n, model.RoleSeeker))
}

// Every type/role/metadata combination must produce a link.
func TestResolveLinkIsTotal(t *testing.T) {
	types := []model.NotificationType{
		model.NotificationTypeNewMessage,
		model.NotificationTypeNewApplication,
		model.NotificationTypeApplicationUpdate,
		model.NotificationTypeSystem,
		model.NotificationTypeStatusChange,
		model.NotificationType("bogus"),
	}
	roles := []model.Role{model.RoleEmployer, model.RoleSeeker, ""}
	metadata := []json.RawMessage{
		nil,
		json.RawMessage(`{}`),
		json.RawMessage(`not json`),
		json.RawMessage(`{"job_id":"` + uuid.NewString() + `","conversation_id":"` + uuid.NewString() + `"}`),
	}

	for _, typ := range types {
		for _, role := range roles {
			for _, md := range metadata {
				n := &model.Notification{Type: typ, Metadata: md}
				link := ResolveLink(n, role)
				assert.True(t, strings.HasPrefix(link, DashboardLink), "type=%s role=%s link=%s", typ, role, link)
			}
		}
	}
}
