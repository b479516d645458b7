package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/visitor-api/internal/handler/health"
	"github.com/jwalitptl/visitor-api/internal/handler/prometheus"
	"github.com/jwalitptl/visitor-api/internal/middleware"
)

// Handler is implemented by every resource handler. admin guards routes that
// require an operator token.
type Handler interface {
	RegisterRoutes(rg *gin.RouterGroup, admin ...gin.HandlerFunc)
}

type Router struct {
	engine       *gin.Engine
	config       RouterConfig
	auth         *middleware.AuthMiddleware
	healthH      *health.Handler
	metricsH     *prometheus.Handler
	appointmentH Handler
	userH        Handler
}

type RouterConfig struct {
	Mode           string
	RateLimit      rate.Limit
	RateBurst      int
	RateClientTTL  time.Duration
	RateEnabled    bool
	CORSConfig     middleware.CORSConfig
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	// AuthRequired puts the admin routes behind auth.
	AuthRequired bool
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	healthH *health.Handler,
	metricsH *prometheus.Handler,
	appointmentH Handler,
	userH Handler,
	logger zerolog.Logger,
	config RouterConfig,
) *Router {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}

	engine := gin.New()

	r := &Router{
		engine:       engine,
		config:       config,
		auth:         auth,
		healthH:      healthH,
		metricsH:     metricsH,
		appointmentH: appointmentH,
		userH:        userH,
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(logger),
		middleware.Logger(logger),
		metricsH.Middleware(),
		middleware.CORS(config.CORSConfig),
	)

	if config.RateEnabled {
		rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:      config.RateLimit,
			Burst:     config.RateBurst,
			ClientTTL: config.RateClientTTL,
		})
		engine.Use(rateLimiter.RateLimit())
	}

	return r
}

func (r *Router) Setup() {
	r.engine.GET("/metrics", r.metricsH.Handler())

	api := r.engine.Group("/api/v1")
	api.Use(
		middleware.Timeout(r.config.RequestTimeout),
		middleware.SizeLimit(r.config.MaxBodyBytes),
	)

	r.healthH.RegisterRoutes(api)

	var admin []gin.HandlerFunc
	if r.config.AuthRequired && r.auth != nil {
		admin = append(admin, r.auth.Authenticate())
	}

	r.appointmentH.RegisterRoutes(api, admin...)
	r.userH.RegisterRoutes(api, admin...)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
