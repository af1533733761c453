package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// ErrBrokerClosed is returned by a closed LocalBroker.
var ErrBrokerClosed = errors.New("broker closed")

// LocalBroker is an in-process Broker for single-node runs and tests.
// Slow subscribers drop messages rather than block publishers, matching
// the no-replay guarantee of the Redis broker.
type LocalBroker struct {
	mu     sync.RWMutex
	subs   map[string]map[chan []byte]struct{}
	closed bool
	buffer int
}

func NewLocalBroker() *LocalBroker {
	return &LocalBroker{
		subs:   make(map[string]map[chan []byte]struct{}),
		buffer: 100,
	}
}

func (b *LocalBroker) Publish(_ context.Context, channel string, message interface{}) error {
	var payload []byte
	switch m := message.(type) {
	case []byte:
		payload = m
	case json.RawMessage:
		payload = m
	default:
		var err error
		payload, err = json.Marshal(message)
		if err != nil {
			return fmt.Errorf("failed to marshal message: %w", err)
		}
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBrokerClosed
	}
	for ch := range b.subs[channel] {
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

func (b *LocalBroker) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBrokerClosed
	}

	ch := make(chan []byte, b.buffer)
	set, ok := b.subs[channel]
	if !ok {
		set = make(map[chan []byte]struct{})
		b.subs[channel] = set
	}
	set[ch] = struct{}{}

	go func() {
		<-ctx.Done()
		b.unsubscribe(channel, ch)
	}()

	return ch, nil
}

func (b *LocalBroker) unsubscribe(channel string, ch chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	set, ok := b.subs[channel]
	if !ok {
		return
	}
	if _, exists := set[ch]; !exists {
		return
	}
	delete(set, ch)
	close(ch)
	if len(set) == 0 {
		delete(b.subs, channel)
	}
}

func (b *LocalBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for channel, set := range b.subs {
		for ch := range set {
			close(ch)
		}
		delete(b.subs, channel)
	}
	return nil
}
