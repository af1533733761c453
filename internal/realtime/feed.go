package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jwalitptl/jobboard-messaging/pkg/logger"
	"github.com/jwalitptl/jobboard-messaging/pkg/messaging"
)

// Feed exposes broker channels as typed change-event streams.
type Feed struct {
	broker messaging.Broker
	log    *logger.Logger
}

func NewFeed(broker messaging.Broker, log *logger.Logger) *Feed {
	if log == nil {
		log = logger.Nop()
	}
	return &Feed{broker: broker, log: log}
}

// Subscribe streams events matching f until ctx is done. Events published
// before the call returns are not replayed.
func (f *Feed) Subscribe(ctx context.Context, filter Filter) (<-chan ChangeEvent, error) {
	raw, err := f.broker.Subscribe(ctx, filter.Channel())
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", filter.Channel(), err)
	}

	out := make(chan ChangeEvent, 16)
	go func() {
		defer close(out)
		for payload := range raw {
			var ev ChangeEvent
			if err := json.Unmarshal(payload, &ev); err != nil {
				f.log.Warn("dropping malformed change event",
					"channel", filter.Channel(), "error", err.Error())
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Publish sends an encoded change event to one channel.
func (f *Feed) Publish(ctx context.Context, channel string, payload json.RawMessage) error {
	return f.broker.Publish(ctx, channel, payload)
}
