package realtime

import (
	"github.com/google/uuid"

	"github.com/jwalitptl/jobboard-messaging/internal/model"
	"github.com/jwalitptl/jobboard-messaging/internal/notify"
)

// recentLimit caps the notifications an Inbox keeps in memory.
const recentLimit = 50

// Alert is the toast shown when a notification arrives.
type Alert struct {
	NotificationID uuid.UUID `json:"notification_id"`
	Title          string    `json:"title"`
	Message        string    `json:"message"`
	Link           string    `json:"link"`
}

// Inbox is the unread state of one open tab. It is seeded once from the
// store and afterwards only changes by applying change events. An Inbox is
// owned by a single goroutine and is not safe for concurrent use.
type Inbox struct {
	role   model.Role
	unread int
	recent []*model.Notification
}

// NewInbox seeds an inbox with the stored unread count and the most recent
// notifications, newest first.
func NewInbox(role model.Role, unread int, recent []*model.Notification) *Inbox {
	if unread < 0 {
		unread = 0
	}
	items := make([]*model.Notification, 0, len(recent))
	for _, n := range recent {
		if n == nil {
			continue
		}
		n.ResolvedLink = notify.ResolveLink(n, role)
		items = append(items, n)
	}
	if len(items) > recentLimit {
		items = items[:recentLimit]
	}
	return &Inbox{role: role, unread: unread, recent: items}
}

func (i *Inbox) Unread() int {
	return i.unread
}

// Recent returns the notifications currently held, newest first.
func (i *Inbox) Recent() []*model.Notification {
	out := make([]*model.Notification, len(i.recent))
	copy(out, i.recent)
	return out
}

// Apply folds one notifications event into the inbox. It returns the
// affected notification, plus an alert for inserts. Unrelated or
// undecodable events leave the inbox untouched and return nil.
func (i *Inbox) Apply(ev ChangeEvent) (*model.Notification, *Alert) {
	if ev.Table != TableNotifications {
		return nil, nil
	}
	after, before, err := ev.DecodeNotifications()
	if err != nil {
		return nil, nil
	}
	after.ResolvedLink = notify.ResolveLink(after, i.role)

	switch ev.Type {
	case EventInsert:
		return i.applyInsert(after)
	case EventUpdate:
		return i.applyUpdate(before, after), nil
	}
	return nil, nil
}

func (i *Inbox) applyInsert(n *model.Notification) (*model.Notification, *Alert) {
	if i.indexOf(n.ID) >= 0 {
		return nil, nil
	}
	i.recent = append([]*model.Notification{n}, i.recent...)
	if len(i.recent) > recentLimit {
		i.recent = i.recent[:recentLimit]
	}
	if !n.IsRead {
		i.unread++
	}
	return n, &Alert{
		NotificationID: n.ID,
		Title:          n.Title,
		Message:        n.Message,
		Link:           n.ResolvedLink,
	}
}

func (i *Inbox) applyUpdate(before, after *model.Notification) *model.Notification {
	idx := i.indexOf(after.ID)

	wasRead, known := false, false
	switch {
	case before != nil:
		wasRead, known = before.IsRead, true
	case idx >= 0:
		wasRead, known = i.recent[idx].IsRead, true
	}

	if known && wasRead != after.IsRead {
		if after.IsRead {
			i.unread--
		} else {
			i.unread++
		}
	}
	if i.unread < 0 {
		i.unread = 0
	}
	if idx >= 0 {
		i.recent[idx] = after
	}
	return after
}

func (i *Inbox) indexOf(id uuid.UUID) int {
	for idx, n := range i.recent {
		if n.ID == id {
			return idx
		}
	}
	return -1
}
