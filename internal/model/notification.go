package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationTypeNewMessage        NotificationType = "new_message"
	NotificationTypeNewApplication    NotificationType = "new_application"
	NotificationTypeApplicationUpdate NotificationType = "application_update"
	NotificationTypeSystem            NotificationType = "system"
	NotificationTypeStatusChange      NotificationType = "status_change"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationTypeNewMessage,
		NotificationTypeNewApplication,
		NotificationTypeApplicationUpdate,
		NotificationTypeSystem,
		NotificationTypeStatusChange:
		return true
	}
	return false
}

// RelatedType names the entity a notification points at.
type RelatedType string

const (
	RelatedConversation RelatedType = "conversation"
	RelatedApplication  RelatedType = "application"
)

type Notification struct {
	ID          uuid.UUID        `json:"id" db:"id"`
	UserID      uuid.UUID        `json:"user_id" db:"user_id"`
	SenderID    *uuid.UUID       `json:"sender_id,omitempty" db:"sender_id"`
	Type        NotificationType `json:"type" db:"type"`
	Title       string           `json:"title" db:"title"`
	Message     string           `json:"message" db:"message"`
	Link        *string          `json:"link,omitempty" db:"link"`
	RelatedID   *uuid.UUID       `json:"related_id,omitempty" db:"related_id"`
	RelatedType *RelatedType     `json:"related_type,omitempty" db:"related_type"`
	Metadata    json.RawMessage  `json:"metadata,omitempty" db:"metadata"`
	IsRead      bool             `json:"is_read" db:"is_read"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
	ReadAt      *time.Time       `json:"read_at,omitempty" db:"read_at"`
	DeletedAt   *time.Time       `json:"deleted_at,omitempty" db:"deleted_at"`

	// ResolvedLink is filled per caller on read paths.
	ResolvedLink string `json:"resolved_link,omitempty" db:"-"`
}

// NotificationFilter narrows a notification listing.
type NotificationFilter struct {
	Pagination
	UnreadOnly bool `form:"unread_only"`
}

// NotificationPayload is the typed content of a notification's metadata.
// The concrete variant is fixed by the notification type.
type NotificationPayload interface {
	related() (RelatedType, uuid.UUID, bool)
}

type NewMessagePayload struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	JobID          uuid.UUID `json:"job_id"`
}

type NewApplicationPayload struct {
	ApplicationID uuid.UUID `json:"application_id"`
	JobID         uuid.UUID `json:"job_id"`
}

// ApplicationUpdatePayload backs both application_update and status_change.
type ApplicationUpdatePayload struct {
	ApplicationID uuid.UUID         `json:"application_id"`
	JobID         uuid.UUID         `json:"job_id"`
	Status        ApplicationStatus `json:"status"`
}

type SystemPayload struct{}

func (p NewMessagePayload) related() (RelatedType, uuid.UUID, bool) {
	return RelatedConversation, p.ConversationID, p.ConversationID != uuid.Nil
}

func (p NewApplicationPayload) related() (RelatedType, uuid.UUID, bool) {
	return RelatedApplication, p.ApplicationID, p.ApplicationID != uuid.Nil
}

func (p ApplicationUpdatePayload) related() (RelatedType, uuid.UUID, bool) {
	return RelatedApplication, p.ApplicationID, p.ApplicationID != uuid.Nil
}

func (SystemPayload) related() (RelatedType, uuid.UUID, bool) {
	return "", uuid.Nil, false
}

// PayloadTypeMatches reports whether p is the variant required by t.
func PayloadTypeMatches(t NotificationType, p NotificationPayload) bool {
	switch p.(type) {
	case NewMessagePayload:
		return t == NotificationTypeNewMessage
	case NewApplicationPayload:
		return t == NotificationTypeNewApplication
	case ApplicationUpdatePayload:
		return t == NotificationTypeApplicationUpdate || t == NotificationTypeStatusChange
	case SystemPayload:
		return t == NotificationTypeSystem
	}
	return false
}

// SetPayload stores p in the metadata column and fills the related reference.
func (n *Notification) SetPayload(p NotificationPayload) error {
	if p == nil {
		p = SystemPayload{}
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	n.Metadata = raw
	if rt, id, ok := p.related(); ok {
		n.RelatedType = &rt
		n.RelatedID = &id
	} else {
		n.RelatedType = nil
		n.RelatedID = nil
	}
	return nil
}

// Payload decodes the metadata column into the variant fixed by the type.
// Missing or malformed metadata yields the zero value of that variant.
func (n *Notification) Payload() NotificationPayload {
	switch n.Type {
	case NotificationTypeNewMessage:
		var p NewMessagePayload
		decodeMetadata(n.Metadata, &p)
		if p.ConversationID == uuid.Nil && n.RelatedID != nil && n.relatedIs(RelatedConversation) {
			p.ConversationID = *n.RelatedID
		}
		return p
	case NotificationTypeNewApplication:
		var p NewApplicationPayload
		decodeMetadata(n.Metadata, &p)
		if p.ApplicationID == uuid.Nil && n.RelatedID != nil && n.relatedIs(RelatedApplication) {
			p.ApplicationID = *n.RelatedID
		}
		return p
	case NotificationTypeApplicationUpdate, NotificationTypeStatusChange:
		var p ApplicationUpdatePayload
		decodeMetadata(n.Metadata, &p)
		if p.ApplicationID == uuid.Nil && n.RelatedID != nil && n.relatedIs(RelatedApplication) {
			p.ApplicationID = *n.RelatedID
		}
		return p
	}
	return SystemPayload{}
}

func (n *Notification) relatedIs(rt RelatedType) bool {
	return n.RelatedType != nil && *n.RelatedType == rt
}

func decodeMetadata(raw json.RawMessage, dst interface{}) {
	if len(raw) == 0 {
		return
	}
	_ = json.Unmarshal(raw, dst)
}
