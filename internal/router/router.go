package router

import (
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/jobboard-messaging/internal/handler/application"
	"github.com/jwalitptl/jobboard-messaging/internal/handler/conversation"
	"github.com/jwalitptl/jobboard-messaging/internal/handler/health"
	"github.com/jwalitptl/jobboard-messaging/internal/handler/notification"
	"github.com/jwalitptl/jobboard-messaging/internal/handler/prometheus"
	"github.com/jwalitptl/jobboard-messaging/internal/handler/realtime"
	"github.com/jwalitptl/jobboard-messaging/internal/middleware"
)

const (
	apiPrefix    = "/api/v1"
	realtimePath = apiPrefix + "/realtime"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Router struct {
	engine        *gin.Engine
	auth          *middleware.AuthMiddleware
	conversationH Handler
	notificationH Handler
	realtimeH     Handler
	applicationH  *application.Handler
	healthH       *health.Handler
	metricsH      *prometheus.Handler
	config        RouterConfig
}

type RouterConfig struct {
	RateLimit      rate.Limit
	RateBurst      int
	RequestTimeout time.Duration
	CORSConfig     middleware.CORSConfig
	// TracingService enables otelgin spans under this service name.
	TracingService string
	ReleaseMode    bool
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	conversationH *conversation.Handler,
	notificationH *notification.Handler,
	applicationH *application.Handler,
	realtimeH *realtime.Handler,
	healthH *health.Handler,
	metricsH *prometheus.Handler,
	config RouterConfig,
) *Router {
	if config.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New() // Use New() instead of Default() for more control

	r := &Router{
		engine:        engine,
		auth:          auth,
		conversationH: conversationH,
		notificationH: notificationH,
		realtimeH:     realtimeH,
		applicationH:  applicationH,
		healthH:       healthH,
		metricsH:      metricsH,
		config:        config,
	}

	// Add core middlewares
	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logger(),
		middleware.ErrorHandler(),
		metricsH.Middleware(),
	)
	if config.TracingService != "" {
		engine.Use(otelgin.Middleware(config.TracingService))
	}
	engine.Use(
		middleware.CORS(config.CORSConfig),
		gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{realtimePath, "/metrics"})),
	)

	return r
}

func (r *Router) Setup() *gin.Engine {
	r.healthH.RegisterRoutes(r.engine)
	r.engine.GET("/metrics", r.metricsH.Handler())

	timeout := r.config.RequestTimeout
	if timeout <= 0 {
		timeout = middleware.DefaultTimeoutConfig().Duration
	}

	api := r.engine.Group(apiPrefix)
	api.Use(
		middleware.Timeout(middleware.TimeoutConfig{Duration: timeout, SkipPaths: []string{realtimePath}}),
		middleware.SizeLimit(middleware.DefaultSizeLimitConfig()),
		r.auth.Authenticate(),
	)
	if r.config.RateLimit > 0 {
		// after Authenticate so buckets are per user
		limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  r.config.RateLimit,
			Burst: r.config.RateBurst,
		})
		api.Use(limiter.RateLimit())
	}

	r.conversationH.RegisterRoutes(api)
	r.notificationH.RegisterRoutes(api)
	r.applicationH.RegisterRoutes(api, r.auth)
	r.realtimeH.RegisterRoutes(api)

	return r.engine
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
