package messaging

import (
	"context"
)

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	// Subscribe returns a stream of raw payloads for channel. The stream is
	// closed once ctx is cancelled or the broker is closed.
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}
