package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/jobboard-messaging/internal/model"
	"github.com/jwalitptl/jobboard-messaging/pkg/messaging"
)

func TestFeedDeliversDecodedEvents(t *testing.T) {
	broker := messaging.NewLocalBroker()
	defer broker.Close()
	feed := NewFeed(broker, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	convID := uuid.New()
	events, err := feed.Subscribe(ctx, ConversationMessages(convID))
	require.NoError(t, err)

	require.NoError(t, feed.Publish(ctx, ConversationMessages(convID).Channel(), []byte("not json")))

	out, err := MessageInserted(&model.Message{ID: uuid.New(), ConversationID: convID, Content: "Hello"})
	require.NoError(t, err)
	require.NoError(t, feed.Publish(ctx, out.Channels[0], out.Payload))

	select {
	case ev := <-events:
		assert.Equal(t, EventInsert, ev.Type)
		m, err := ev.DecodeMessage()
		require.NoError(t, err)
		assert.Equal(t, "Hello", m.Content)
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}
