package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalBrokerFanOutToAllSubscribers(t *testing.T) {
	b := NewLocalBroker()
	defer b.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tab1, err := b.Subscribe(ctx, "realtime:notifications:user_id=eq.u")
	require.NoError(t, err)
	tab2, err := b.Subscribe(ctx, "realtime:notifications:user_id=eq.u")
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, "realtime:notifications:user_id=eq.u", map[string]int{"n": 1}))

	for _, ch := range []<-chan []byte{tab1, tab2} {
		select {
		case payload := <-ch:
			assert.JSONEq(t, `{"n":1}`, string(payload))
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive message")
		}
	}
}

func TestLocalBrokerUnsubscribeOnCancel(t *testing.T) {
	b := NewLocalBroker()
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := b.Subscribe(ctx, "c")
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
	assert.NoError(t, b.Publish(context.Background(), "c", "x"))
}

func TestLocalBrokerClosed(t *testing.T) {
	b := NewLocalBroker()
	require.NoError(t, b.Close())

	_, err := b.Subscribe(context.Background(), "c")
	assert.ErrorIs(t, err, ErrBrokerClosed)
	assert.ErrorIs(t, b.Publish(context.Background(), "c", "x"), ErrBrokerClosed)
}
