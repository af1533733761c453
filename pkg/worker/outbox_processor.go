package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/jobboard-messaging/internal/model"
	"github.com/jwalitptl/jobboard-messaging/internal/repository"
	"github.com/jwalitptl/jobboard-messaging/pkg/logger"
	"github.com/jwalitptl/jobboard-messaging/pkg/messaging"
	"github.com/jwalitptl/jobboard-messaging/pkg/metrics"
)

const maxRetryDelay = 5 * time.Minute

type OutboxProcessorConfig struct {
	BatchSize    int
	PollInterval time.Duration
	// RetryAttempts is the number of publish attempts within one pass.
	RetryAttempts int
	RetryDelay    time.Duration
	// MaxRetries is the number of failed passes after which an event is
	// dead-lettered.
	MaxRetries int
}

// OutboxProcessor relays committed change events to their realtime
// channels. Several processors may run against one database.
type OutboxProcessor struct {
	tx      repository.Transactor
	repo    repository.OutboxRepository
	broker  messaging.Broker
	config  OutboxProcessorConfig
	wake    <-chan struct{}
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewOutboxProcessor(
	tx repository.Transactor,
	repo repository.OutboxRepository,
	broker messaging.Broker,
	config OutboxProcessorConfig,
	log *logger.Logger,
	m *metrics.Metrics,
) *OutboxProcessor {
	// Config validation instead of defaults
	if config.BatchSize <= 0 {
		panic("BatchSize must be greater than 0")
	}
	if config.PollInterval <= 0 {
		panic("PollInterval must be greater than 0")
	}
	if config.RetryAttempts <= 0 {
		panic("RetryAttempts must be greater than 0")
	}
	if config.RetryDelay <= 0 {
		panic("RetryDelay must be greater than 0")
	}
	if config.MaxRetries <= 0 {
		panic("MaxRetries must be greater than 0")
	}
	if log == nil {
		log = logger.Nop()
	}
	if m == nil {
		m = metrics.NewNop()
	}

	return &OutboxProcessor{
		tx:      tx,
		repo:    repo,
		broker:  broker,
		config:  config,
		logger:  log,
		metrics: m,
	}
}

// WithWakeup makes the processor run a pass whenever wake fires, on top of
// the poll interval.
func (p *OutboxProcessor) WithWakeup(wake <-chan struct{}) *OutboxProcessor {
	p.wake = wake
	return p
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info("Starting outbox processor", "batch_size", p.config.BatchSize)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Shutting down outbox processor")
			return
		case <-ticker.C:
		case <-p.wake:
		}
		if _, err := p.ProcessBatch(ctx); err != nil {
			p.logger.Error(err, "Failed to process events")
		}
	}
}

// ProcessBatch claims one batch of due events and relays them. It returns
// the number of events claimed.
func (p *OutboxProcessor) ProcessBatch(ctx context.Context) (int, error) {
	timer := prometheus.NewTimer(p.metrics.OutboxProcessingLatency)
	defer timer.ObserveDuration()

	claimed := 0
	err := p.tx.WithinTx(ctx, func(ctx context.Context) error {
		events, err := p.repo.ClaimPending(ctx, p.config.BatchSize)
		if err != nil {
			p.metrics.DatabaseOperations.WithLabelValues("claim_pending_events", "error").Inc()
			return fmt.Errorf("failed to get pending events: %w", err)
		}
		p.metrics.DatabaseOperations.WithLabelValues("claim_pending_events", "success").Inc()
		claimed = len(events)

		for _, event := range events {
			if err := p.processEvent(ctx, event); err != nil {
				return err
			}
		}
		return nil
	})
	return claimed, err
}

// processEvent only returns an error when the event's status could not be
// recorded. Publish failures are handled by scheduling a retry.
func (p *OutboxProcessor) processEvent(ctx context.Context, event *model.OutboxEvent) error {
	err := retry(p.config.RetryAttempts, p.config.RetryDelay, func() error {
		return p.publish(ctx, event)
	})
	if err == nil {
		p.metrics.OutboxEventsProcessed.Inc()
		if err := p.repo.UpdateStatus(ctx, event.ID, model.OutboxStatusProcessed, nil, nil); err != nil {
			return fmt.Errorf("failed to update event status: %w", err)
		}
		return nil
	}

	errStr := err.Error()
	p.logger.Warn("Failed to publish event",
		"event_id", event.ID.String(),
		"event_type", event.EventType,
		"retry_count", event.RetryCount,
		"error", errStr)

	if event.RetryCount+1 >= p.config.MaxRetries {
		p.metrics.OutboxEventsFailed.Inc()
		event.ErrorMessage = &errStr
		if err := p.repo.MoveToDeadLetter(ctx, event); err != nil {
			return err
		}
		if err := p.repo.UpdateStatus(ctx, event.ID, model.OutboxStatusFailed, &errStr, nil); err != nil {
			return fmt.Errorf("failed to update event status: %w", err)
		}
		p.logger.Error(err, "Event moved to dead letter",
			"event_id", event.ID.String(),
			"event_type", event.EventType)
		return nil
	}

	p.metrics.OutboxRetries.WithLabelValues(event.EventType).Inc()
	retryAt := time.Now().UTC().Add(p.backoff(event.RetryCount))
	if err := p.repo.UpdateStatus(ctx, event.ID, model.OutboxStatusRetry, &errStr, &retryAt); err != nil {
		return fmt.Errorf("failed to update event status: %w", err)
	}
	return nil
}

func (p *OutboxProcessor) publish(ctx context.Context, event *model.OutboxEvent) error {
	payload := json.RawMessage(event.Payload)
	for _, channel := range event.Channels {
		if err := p.broker.Publish(ctx, channel, payload); err != nil {
			return fmt.Errorf("publish to %s: %w", channel, err)
		}
	}
	return nil
}

// backoff doubles the retry delay per failed pass, capped at five minutes.
func (p *OutboxProcessor) backoff(retryCount int) time.Duration {
	d := p.config.RetryDelay
	for i := 0; i < retryCount && d < maxRetryDelay; i++ {
		d *= 2
	}
	if d > maxRetryDelay {
		d = maxRetryDelay
	}
	return d
}

// Helper retry function
func retry(attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < attempts-1 {
			time.Sleep(delay)
		}
	}
	return err
}
