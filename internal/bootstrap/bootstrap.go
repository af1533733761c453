// Package bootstrap builds the process-level dependencies shared by the
// api and worker binaries.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/jobboard-messaging/internal/config"
	"github.com/jwalitptl/jobboard-messaging/internal/handler/health"
	"github.com/jwalitptl/jobboard-messaging/internal/repository"
	"github.com/jwalitptl/jobboard-messaging/internal/repository/memory"
	"github.com/jwalitptl/jobboard-messaging/internal/repository/postgres"
	"github.com/jwalitptl/jobboard-messaging/pkg/logger"
	"github.com/jwalitptl/jobboard-messaging/pkg/messaging"
	"github.com/jwalitptl/jobboard-messaging/pkg/messaging/redis"
)

// NewLogger builds the application logger and points the global zerolog
// logger used by the HTTP middleware at the same sink.
func NewLogger(cfg config.LogConfig) *logger.Logger {
	l := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		JSON:       cfg.JSON,
	})
	log.Logger = *l.Zerolog()
	return l
}

// InitSentry enables error reporting when a DSN is configured. The returned
// function flushes buffered events.
func InitSentry(secrets config.Secrets, release string) (func(), error) {
	if secrets.SentryDSN == "" {
		return func() {}, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         secrets.SentryDSN,
		Environment: secrets.Environment,
		Release:     release,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sentry: %w", err)
	}
	return func() { sentry.Flush(2 * time.Second) }, nil
}

// Store is an opened persistence backend.
type Store struct {
	Repos *repository.Repositories
	// DB is the end-user pool; nil for the memory driver.
	DB      *sqlx.DB
	Checks  map[string]health.Check
	closers []func() error
}

func (s *Store) Close() error {
	var first error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// OpenStore connects the configured database driver.
func OpenStore(cfg *config.Config, log *logger.Logger) (*Store, error) {
	if cfg.Database.Driver == "memory" {
		log.Warn("using in-memory store, data is lost on restart")
		return &Store{Repos: memory.NewStore().Repositories(), Checks: map[string]health.Check{}}, nil
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		return nil, err
	}
	service, err := postgres.NewServiceDB(cfg.Secrets.ServiceDatabaseURL, cfg.Database)
	if err != nil {
		db.Close()
		return nil, err
	}

	checks := map[string]health.Check{
		"database":         db.PingContext,
		"service_database": service.PingContext,
	}
	return &Store{
		Repos:   postgres.NewRepositories(db, service, cfg.Database.ProfileCacheTTL),
		DB:      db,
		Checks:  checks,
		closers: []func() error{db.Close, service.Close},
	}, nil
}

// OpenBroker connects to Redis, or returns an in-process broker when no
// Redis URL is configured.
func OpenBroker(cfg config.RedisConfig, log *logger.Logger) (messaging.Broker, error) {
	if cfg.URL == "" {
		log.Warn("no redis url configured, realtime fan-out is process local")
		return messaging.NewLocalBroker(), nil
	}
	return redis.NewRedisBroker(cfg.ToBrokerConfig(), log)
}

// OutboxWakeup subscribes to outbox inserts when enabled and backed by
// postgres. A nil channel leaves the relay on its poll interval.
func OutboxWakeup(ctx context.Context, cfg *config.Config, log *logger.Logger) <-chan struct{} {
	if !cfg.Outbox.Listen || cfg.Database.Driver != "postgres" {
		return nil
	}
	wake, err := postgres.ListenOutbox(ctx, cfg.Database.DSN(), log)
	if err != nil {
		log.Error(err, "outbox listener unavailable, falling back to polling")
		return nil
	}
	return wake
}
