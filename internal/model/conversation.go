package model

import (
	"time"

	"github.com/google/uuid"
)

// Conversation is the unique channel between one seeker and one employer
// about one job.
type Conversation struct {
	ID         uuid.UUID `json:"id" db:"id"`
	JobID      uuid.UUID `json:"job_id" db:"job_id"`
	SeekerID   uuid.UUID `json:"seeker_id" db:"seeker_id"`
	EmployerID uuid.UUID `json:"employer_id" db:"employer_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// HasParticipant reports whether userID is the seeker or the employer.
func (c *Conversation) HasParticipant(userID uuid.UUID) bool {
	return userID != uuid.Nil && (userID == c.SeekerID || userID == c.EmployerID)
}

// Counterparty returns the participant who is not userID.
func (c *Conversation) Counterparty(userID uuid.UUID) (uuid.UUID, bool) {
	switch userID {
	case c.SeekerID:
		return c.EmployerID, c.EmployerID != uuid.Nil
	case c.EmployerID:
		return c.SeekerID, c.SeekerID != uuid.Nil
	}
	return uuid.Nil, false
}

// RoleOf returns the role userID plays in the conversation.
func (c *Conversation) RoleOf(userID uuid.UUID) Role {
	if userID == c.EmployerID {
		return RoleEmployer
	}
	return RoleSeeker
}

type Message struct {
	ID             uuid.UUID `json:"id" db:"id"`
	ConversationID uuid.UUID `json:"conversation_id" db:"conversation_id"`
	SenderID       uuid.UUID `json:"sender_id" db:"sender_id"`
	Content        string    `json:"content" db:"content"`
	IsRead         bool      `json:"is_read" db:"is_read"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// MessageWithSender is a message joined with its sender's display profile.
type MessageWithSender struct {
	Message
	SenderName      string  `json:"sender_name" db:"sender_name"`
	SenderAvatarURL *string `json:"sender_avatar_url,omitempty" db:"sender_avatar_url"`
}

// ConversationSummary is one row of a participant's inbox.
type ConversationSummary struct {
	Conversation
	JobTitle         string    `json:"job_title" db:"job_title"`
	CounterpartyID   uuid.UUID `json:"counterparty_id" db:"counterparty_id"`
	CounterpartyName string    `json:"counterparty_name" db:"counterparty_name"`
	LastMessage      *Message  `json:"last_message,omitempty" db:"-"`
	UnreadCount      int       `json:"unread_count" db:"unread_count"`
}
