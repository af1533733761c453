// Package notify turns notifications into navigable dashboard links.
package notify

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/jobboard-messaging/internal/model"
)

// DashboardLink is the fallback for anything that cannot be routed more precisely.
const DashboardLink = "/dashboard"

const (
	seekerApplicationsLink = "/dashboard/seeker/applications"
	seekerMessagesLink     = "/dashboard/seeker/messages"
	employerJobsLink       = "/dashboard/employer/jobs"
)

// ResolveLink returns the deep link for n as seen by a user acting in role.
// A stored link always wins. The function never fails: unknown or
// incomplete input falls back to the dashboard.
func ResolveLink(n *model.Notification, role model.Role) string {
	if n == nil {
		return DashboardLink
	}
	if n.Link != nil && *n.Link != "" {
		return *n.Link
	}

	switch p := n.Payload().(type) {
	case model.NewMessagePayload:
		return messageLink(p, role)
	case model.NewApplicationPayload:
		return applicationLink(p.JobID, role)
	case model.ApplicationUpdatePayload:
		return applicationLink(p.JobID, role)
	case model.SystemPayload:
		return DashboardLink
	}
	return DashboardLink
}

func messageLink(p model.NewMessagePayload, role model.Role) string {
	switch role {
	case model.RoleEmployer:
		if p.JobID == uuid.Nil {
			return DashboardLink
		}
		link := fmt.Sprintf("%s/%s/applicants", employerJobsLink, p.JobID)
		if p.ConversationID != uuid.Nil {
			link += "?chat=" + p.ConversationID.String()
		}
		return link
	case model.RoleSeeker:
		if p.ConversationID == uuid.Nil {
			return seekerMessagesLink
		}
		return fmt.Sprintf("%s/%s", seekerMessagesLink, p.ConversationID)
	}
	return DashboardLink
}

func applicationLink(jobID uuid.UUID, role model.Role) string {
	switch role {
	case model.RoleEmployer:
		if jobID == uuid.Nil {
			return DashboardLink
		}
		return fmt.Sprintf("%s/%s/applicants", employerJobsLink, jobID)
	case model.RoleSeeker:
		return seekerApplicationsLink
	}
	return DashboardLink
}

// Attach fills ResolvedLink on every notification for the given role.
func Attach(notifications []*model.Notification, role model.Role) {
	for _, n := range notifications {
		n.ResolvedLink = ResolveLink(n, role)
	}
}
