package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/jobboard-messaging/internal/bootstrap"
	"github.com/jwalitptl/jobboard-messaging/internal/config"
	applicationHandler "github.com/jwalitptl/jobboard-messaging/internal/handler/application"
	conversationHandler "github.com/jwalitptl/jobboard-messaging/internal/handler/conversation"
	"github.com/jwalitptl/jobboard-messaging/internal/handler/health"
	notificationHandler "github.com/jwalitptl/jobboard-messaging/internal/handler/notification"
	"github.com/jwalitptl/jobboard-messaging/internal/handler/prometheus"
	realtimeHandler "github.com/jwalitptl/jobboard-messaging/internal/handler/realtime"
	"github.com/jwalitptl/jobboard-messaging/internal/middleware"
	"github.com/jwalitptl/jobboard-messaging/internal/realtime"
	"github.com/jwalitptl/jobboard-messaging/internal/router"
	applicationService "github.com/jwalitptl/jobboard-messaging/internal/service/application"
	conversationService "github.com/jwalitptl/jobboard-messaging/internal/service/conversation"
	notificationService "github.com/jwalitptl/jobboard-messaging/internal/service/notification"
	"github.com/jwalitptl/jobboard-messaging/pkg/auth"
	"github.com/jwalitptl/jobboard-messaging/pkg/metrics"
	"github.com/jwalitptl/jobboard-messaging/pkg/tracing"
	"github.com/jwalitptl/jobboard-messaging/pkg/worker"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger := bootstrap.NewLogger(cfg.Log)

	flushSentry, err := bootstrap.InitSentry(cfg.Secrets, version)
	if err != nil {
		logger.Fatal(err, "failed to initialize error reporting")
	}
	defer flushSentry()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		ServiceName: cfg.Tracing.ServiceName,
		Environment: cfg.Secrets.Environment,
		SampleRatio: cfg.Tracing.SampleRatio,
	})
	if err != nil {
		logger.Fatal(err, "failed to initialize tracing")
	}

	// Initialize storage and broker
	store, err := bootstrap.OpenStore(cfg, logger)
	if err != nil {
		logger.Fatal(err, "failed to open store", "driver", cfg.Database.Driver)
	}
	defer store.Close()
	repos := store.Repos

	broker, err := bootstrap.OpenBroker(cfg.Redis, logger)
	if err != nil {
		logger.Fatal(err, "failed to connect to message broker")
	}
	defer broker.Close()

	registry := prom.NewRegistry()
	m := metrics.NewMetrics(registry, "jobboard", "")

	// Initialize services
	notifier := notificationService.NewService(repos.Writer, repos.Notifications, repos.Outbox, repos.Tx, m, logger)
	conversations := conversationService.NewService(repos, notifier, m, logger)
	applications := applicationService.NewService(repos, notifier, logger)
	gateway := realtime.NewGateway(
		realtime.NewFeed(broker, logger),
		notifier,
		conversations,
		cfg.Realtime.ToGatewayConfig(),
		m,
		logger,
	)

	// Initialize handlers
	tokens := auth.NewJWTService(cfg.Secrets.JWTSecret, cfg.Secrets.JWTIssuer)
	if err := middleware.RegisterValidators(); err != nil {
		logger.Fatal(err, "failed to register validators")
	}

	routerConfig := router.RouterConfig{
		RequestTimeout: cfg.Server.RequestTimeout,
		CORSConfig:     corsConfig(cfg.Security),
		ReleaseMode:    cfg.Secrets.Environment == "production",
	}
	if cfg.RateLimit.Enabled {
		routerConfig.RateLimit = rate.Limit(cfg.RateLimit.RequestsPerSecond)
		routerConfig.RateBurst = cfg.RateLimit.Burst
	}
	if cfg.Tracing.Enabled {
		routerConfig.TracingService = cfg.Tracing.ServiceName
	}

	r := router.NewRouter(
		middleware.NewAuthMiddleware(tokens),
		conversationHandler.NewHandler(conversations),
		notificationHandler.NewHandler(notifier),
		applicationHandler.NewHandler(applications),
		realtimeHandler.NewHandler(gateway),
		health.NewHandler(store.Checks),
		prometheus.New(registry),
		routerConfig,
	)

	// The memory store is only visible to this process, so its relay must
	// run here too.
	if cfg.Server.RunOutbox || cfg.Database.Driver == "memory" {
		processor := worker.NewOutboxProcessor(repos.Tx, repos.Outbox, broker, cfg.Outbox.ToWorkerConfig(), logger, m).
			WithWakeup(bootstrap.OutboxWakeup(ctx, cfg, logger))
		go processor.Start(ctx)
		logger.Info("outbox relay running in-process")
	}

	// Create server
	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        r.Setup(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr, "version", version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error(err, "server failed")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(err, "server forced to shutdown")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error(err, "failed to flush traces")
	}

	logger.Info("server exited properly")
}

func corsConfig(sec config.SecurityConfig) middleware.CORSConfig {
	c := middleware.DefaultCORSConfig()
	if len(sec.AllowedOrigins) > 0 {
		c.AllowOrigins = sec.AllowedOrigins
	}
	if len(sec.AllowedMethods) > 0 {
		c.AllowMethods = sec.AllowedMethods
	}
	if len(sec.AllowedHeaders) > 0 {
		c.AllowHeaders = sec.AllowedHeaders
	}
	return c
}
