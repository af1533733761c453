package realtime

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/jobboard-messaging/internal/model"
)

func messageEvent(t *testing.T, m *model.Message) ChangeEvent {
	t.Helper()
	ev, err := MessageInserted(m)
	require.NoError(t, err)
	var change ChangeEvent
	require.NoError(t, json.Unmarshal(ev.Payload, &change))
	return change
}

func TestChatLogAppendsInArrivalOrder(t *testing.T) {
	convID := uuid.New()
	first := model.Message{ID: uuid.New(), ConversationID: convID, Content: "first", CreatedAt: time.Now()}
	log := NewChatLog(convID, []model.Message{first})

	second := &model.Message{ID: uuid.New(), ConversationID: convID, Content: "second", CreatedAt: time.Now()}
	require.NotNil(t, log.Apply(messageEvent(t, second)))

	msgs := log.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].Content)
	assert.Equal(t, "second", msgs[1].Content)
}

func TestChatLogDeduplicatesByID(t *testing.T) {
	convID := uuid.New()
	m := model.Message{ID: uuid.New(), ConversationID: convID, Content: "hi"}
	log := NewChatLog(convID, []model.Message{m})

	assert.Nil(t, log.Apply(messageEvent(t, &m)))
	assert.Len(t, log.Messages(), 1)
}

func TestChatLogIgnoresOtherConversations(t *testing.T) {
	log := NewChatLog(uuid.New(), nil)
	other := &model.Message{ID: uuid.New(), ConversationID: uuid.New(), Content: "elsewhere"}

	assert.Nil(t, log.Apply(messageEvent(t, other)))
	assert.Empty(t, log.Messages())
}
