package main

import (
	"context"
	"flag"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/jobboard-messaging/internal/bootstrap"
	"github.com/jwalitptl/jobboard-messaging/internal/config"
	"github.com/jwalitptl/jobboard-messaging/internal/handler/health"
	"github.com/jwalitptl/jobboard-messaging/internal/handler/prometheus"
	cleanup "github.com/jwalitptl/jobboard-messaging/internal/worker"
	"github.com/jwalitptl/jobboard-messaging/pkg/logger"
	"github.com/jwalitptl/jobboard-messaging/pkg/metrics"
	"github.com/jwalitptl/jobboard-messaging/pkg/worker"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	healthAddr := flag.String("health-addr", ":8081", "address for health and metrics endpoints")
	flag.Parse()

	// Load config
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if cfg.Database.Driver != "postgres" {
		log.Fatal().Str("driver", cfg.Database.Driver).Msg("The outbox worker requires the postgres driver")
	}
	logger := bootstrap.NewLogger(cfg.Log).WithFields(map[string]interface{}{"component": "outbox-worker"})

	flushSentry, err := bootstrap.InitSentry(cfg.Secrets, "worker")
	if err != nil {
		logger.Fatal(err, "Failed to initialize error reporting")
	}
	defer flushSentry()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := bootstrap.OpenStore(cfg, logger)
	if err != nil {
		logger.Fatal(err, "Failed to connect to database")
	}
	defer store.Close()

	broker, err := bootstrap.OpenBroker(cfg.Redis, logger)
	if err != nil {
		logger.Fatal(err, "Failed to create message broker")
	}
	defer broker.Close()

	registry := prom.NewRegistry()
	m := metrics.NewMetrics(registry, "jobboard", "outbox")

	processor := worker.NewOutboxProcessor(
		store.Repos.Tx,
		store.Repos.Outbox,
		broker,
		cfg.Outbox.ToWorkerConfig(),
		logger,
		m,
	).WithWakeup(bootstrap.OutboxWakeup(ctx, cfg, logger))

	janitor := cleanup.NewOutboxCleanupWorker(
		store.Repos.Outbox,
		cfg.Outbox.Retention,
		cfg.Outbox.CleanupInterval,
		logger,
		m,
	)

	srv := setupHealthCheck(*healthAddr, store.Checks, registry, logger)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		processor.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		janitor.Start(ctx)
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(err, "Health server forced to shutdown")
	}
	wg.Wait()
}

func setupHealthCheck(addr string, checks map[string]health.Check, registry *prom.Registry, logger *logger.Logger) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	health.NewHandler(checks).RegisterRoutes(engine)
	engine.GET("/metrics", prometheus.New(registry).Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error(err, "Health check server failed", "addr", addr)
		}
	}()
	return srv
}
