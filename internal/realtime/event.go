// Package realtime carries row-level change events from the outbox relay to
// connected browser tabs and reconciles per-tab unread state.
package realtime

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/jobboard-messaging/internal/model"
)

type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
)

const (
	TableMessages      = "messages"
	TableNotifications = "notifications"
)

// ChangeEvent describes one committed row change. OldRecord is set on updates.
type ChangeEvent struct {
	Type            EventType       `json:"type"`
	Table           string          `json:"table"`
	Record          json.RawMessage `json:"record"`
	OldRecord       json.RawMessage `json:"old_record,omitempty"`
	CommitTimestamp time.Time       `json:"commit_timestamp"`
}

// Filter selects the events of one table whose Column equals Value.
type Filter struct {
	Table  string
	Column string
	Value  string
}

// Channel is the broker channel events matching f are published on.
func (f Filter) Channel() string {
	return fmt.Sprintf("realtime:%s:%s=eq.%s", f.Table, f.Column, f.Value)
}

// ConversationMessages filters message inserts for one conversation.
func ConversationMessages(conversationID uuid.UUID) Filter {
	return Filter{Table: TableMessages, Column: "conversation_id", Value: conversationID.String()}
}

// UserNotifications filters notification changes for one recipient.
func UserNotifications(userID uuid.UUID) Filter {
	return Filter{Table: TableNotifications, Column: "user_id", Value: userID.String()}
}

// MessageInserted builds the outbox event for a new message.
func MessageInserted(m *model.Message) (*model.OutboxEvent, error) {
	record, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}
	return newOutboxEvent(ChangeEvent{
		Type:            EventInsert,
		Table:           TableMessages,
		Record:          record,
		CommitTimestamp: m.CreatedAt,
	}, ConversationMessages(m.ConversationID))
}

// NotificationInserted builds the outbox event for a new notification.
func NotificationInserted(n *model.Notification) (*model.OutboxEvent, error) {
	record, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("failed to encode notification: %w", err)
	}
	return newOutboxEvent(ChangeEvent{
		Type:            EventInsert,
		Table:           TableNotifications,
		Record:          record,
		CommitTimestamp: n.CreatedAt,
	}, UserNotifications(n.UserID))
}

// NotificationUpdated builds the outbox event for a changed notification.
func NotificationUpdated(before, after *model.Notification) (*model.OutboxEvent, error) {
	record, err := json.Marshal(after)
	if err != nil {
		return nil, fmt.Errorf("failed to encode notification: %w", err)
	}
	old, err := json.Marshal(before)
	if err != nil {
		return nil, fmt.Errorf("failed to encode notification: %w", err)
	}
	ts := time.Now().UTC()
	if after.ReadAt != nil {
		ts = *after.ReadAt
	}
	return newOutboxEvent(ChangeEvent{
		Type:            EventUpdate,
		Table:           TableNotifications,
		Record:          record,
		OldRecord:       old,
		CommitTimestamp: ts,
	}, UserNotifications(after.UserID))
}

func newOutboxEvent(ev ChangeEvent, filters ...Filter) (*model.OutboxEvent, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to encode change event: %w", err)
	}
	channels := make([]string, 0, len(filters))
	for _, f := range filters {
		channels = append(channels, f.Channel())
	}
	return &model.OutboxEvent{
		ID:        uuid.New(),
		EventType: ev.Table + "." + string(ev.Type),
		Payload:   payload,
		Channels:  channels,
		Status:    model.OutboxStatusPending,
	}, nil
}

// DecodeMessage returns the message carried by a messages event.
func (e ChangeEvent) DecodeMessage() (*model.Message, error) {
	if e.Table != TableMessages {
		return nil, fmt.Errorf("unexpected table %q", e.Table)
	}
	var m model.Message
	if err := json.Unmarshal(e.Record, &m); err != nil {
		return nil, fmt.Errorf("failed to decode message record: %w", err)
	}
	return &m, nil
}

// DecodeNotifications returns the new row and, for updates, the old row.
func (e ChangeEvent) DecodeNotifications() (after, before *model.Notification, err error) {
	if e.Table != TableNotifications {
		return nil, nil, fmt.Errorf("unexpected table %q", e.Table)
	}
	after = &model.Notification{}
	if err := json.Unmarshal(e.Record, after); err != nil {
		return nil, nil, fmt.Errorf("failed to decode notification record: %w", err)
	}
	if len(e.OldRecord) > 0 {
		before = &model.Notification{}
		if err := json.Unmarshal(e.OldRecord, before); err != nil {
			return nil, nil, fmt.Errorf("failed to decode old notification record: %w", err)
		}
	}
	return after, before, nil
}
