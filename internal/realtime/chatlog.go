package realtime

import (
	"github.com/google/uuid"

	"github.com/jwalitptl/jobboard-messaging/internal/model"
)

// ChatLog is the message list of one open conversation. Inserted messages
// are appended in arrival order and de-duplicated by id.
type ChatLog struct {
	conversationID uuid.UUID
	messages       []model.Message
	seen           map[uuid.UUID]struct{}
}

func NewChatLog(conversationID uuid.UUID, history []model.Message) *ChatLog {
	l := &ChatLog{
		conversationID: conversationID,
		messages:       make([]model.Message, 0, len(history)),
		seen:           make(map[uuid.UUID]struct{}, len(history)),
	}
	for _, m := range history {
		l.add(m)
	}
	return l
}

func (l *ChatLog) ConversationID() uuid.UUID {
	return l.conversationID
}

func (l *ChatLog) Messages() []model.Message {
	out := make([]model.Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// Apply appends the message carried by ev. It returns nil when the event is
// not an insert for this conversation or the message is already present.
func (l *ChatLog) Apply(ev ChangeEvent) *model.Message {
	if ev.Type != EventInsert || ev.Table != TableMessages {
		return nil
	}
	m, err := ev.DecodeMessage()
	if err != nil || m.ConversationID != l.conversationID {
		return nil
	}
	if !l.add(*m) {
		return nil
	}
	return m
}

func (l *ChatLog) add(m model.Message) bool {
	if _, dup := l.seen[m.ID]; dup {
		return false
	}
	l.seen[m.ID] = struct{}{}
	l.messages = append(l.messages, m)
	return true
}
