package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/jwalitptl/jobboard-messaging/pkg/logger"
)

// OutboxChannel is the NOTIFY channel the outbox trigger signals on.
const OutboxChannel = "outbox_events"

// ListenOutbox wakes the returned channel whenever a new outbox row is
// committed. Wakeups coalesce: a pending signal absorbs later ones. The
// listener is closed when ctx ends.
func ListenOutbox(ctx context.Context, dsn string, log *logger.Logger) (<-chan struct{}, error) {
	if log == nil {
		log = logger.Nop()
	}

	listener := pq.NewListener(dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.Warn("outbox listener event", "event", int(ev), "error", err.Error())
		}
	})
	if err := listener.Listen(OutboxChannel); err != nil {
		listener.Close()
		return nil, fmt.Errorf("failed to listen on %s: %w", OutboxChannel, err)
	}

	wake := make(chan struct{}, 1)
	go func() {
		defer listener.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case <-listener.Notify:
				// a nil notification follows a reconnect and still wakes the relay
				select {
				case wake <- struct{}{}:
				default:
				}
			case <-time.After(90 * time.Second):
				go listener.Ping()
			}
		}
	}()
	return wake, nil
}
