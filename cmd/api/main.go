package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/visitor-api/config"
	"github.com/jwalitptl/visitor-api/internal/email"
	appointmentHandler "github.com/jwalitptl/visitor-api/internal/handler/appointment"
	"github.com/jwalitptl/visitor-api/internal/handler/health"
	promHandler "github.com/jwalitptl/visitor-api/internal/handler/prometheus"
	userHandler "github.com/jwalitptl/visitor-api/internal/handler/user"
	"github.com/jwalitptl/visitor-api/internal/middleware"
	"github.com/jwalitptl/visitor-api/internal/repository"
	"github.com/jwalitptl/visitor-api/internal/repository/memory"
	"github.com/jwalitptl/visitor-api/internal/repository/postgres"
	"github.com/jwalitptl/visitor-api/internal/router"
	"github.com/jwalitptl/visitor-api/internal/seed"
	appointmentService "github.com/jwalitptl/visitor-api/internal/service/appointment"
	"github.com/jwalitptl/visitor-api/internal/service/notification"
	userService "github.com/jwalitptl/visitor-api/internal/service/user"
	"github.com/jwalitptl/visitor-api/pkg/logger"
	"github.com/jwalitptl/visitor-api/pkg/messaging/redis"
	"github.com/jwalitptl/visitor-api/pkg/metrics"
	"github.com/jwalitptl/visitor-api/pkg/worker"
)

type repositories struct {
	users        repository.UserRepository
	appointments repository.AppointmentRepository
	health       repository.HealthChecker
	close        func() error
}

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLog := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics("sfs", registry)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repos, err := openRepositories(ctx, cfg.Database)
	if err != nil {
		appLog.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("failed to open repositories")
	}
	defer repos.close()

	if cfg.Seed.Enabled {
		seeder := seed.NewSeeder(repos.users, repos.appointments, logger.Component("seed"))
		if _, err := seeder.Run(ctx); err != nil {
			appLog.Fatal().Err(err).Msg("failed to seed sample data")
		}
	}

	// Notifications
	notifier, stopNotifier, err := newNotifier(ctx, cfg, repos.users, m)
	if err != nil {
		appLog.Fatal().Err(err).Str("driver", cfg.Notification.Driver).Msg("failed to set up notifications")
	}

	// Initialize services
	apptSvc := appointmentService.NewService(repos.appointments, repos.users, notifier, logger.Component("appointment"), m)
	userSvc := userService.NewService(repos.users, logger.Component("user"))

	// Setup router
	authMiddleware := middleware.NewAuthMiddleware(middleware.AuthConfig{
		Issuer:   cfg.Auth.Issuer,
		Audience: cfg.Auth.Audience,
		Key:      cfg.Auth.Key,
	})

	corsConfig := middleware.DefaultCORSConfig()
	if len(cfg.CORS.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.CORS.AllowedOrigins
	}

	r := router.NewRouter(
		authMiddleware,
		health.NewHandler(repos.health),
		promHandler.New(registry, m),
		appointmentHandler.NewHandler(apptSvc),
		userHandler.NewHandler(userSvc),
		logger.Component("http"),
		router.RouterConfig{
			Mode:           cfg.Server.Mode,
			RateEnabled:    cfg.RateLimit.Enabled,
			RateLimit:      rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:      cfg.RateLimit.Burst,
			RateClientTTL:  cfg.RateLimit.ClientTTL,
			CORSConfig:     corsConfig,
			RequestTimeout: cfg.Server.RequestTimeout,
			MaxBodyBytes:   cfg.Server.MaxBodyBytes,
			AuthRequired:   cfg.Auth.Required,
		},
	)
	r.Setup()

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		appLog.Info().Str("addr", srv.Addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info().Msg("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error().Err(err).Msg("server forced to shutdown")
	}
	if err := stopNotifier(shutdownCtx); err != nil {
		appLog.Error().Err(err).Msg("pending notifications were not delivered")
	}
	cancel()

	appLog.Info().Msg("server exited properly")
}

func openRepositories(ctx context.Context, cfg config.DatabaseConfig) (*repositories, error) {
	switch cfg.Driver {
	case "memory":
		store := memory.NewStore()
		return &repositories{
			users:        memory.NewUserRepository(store),
			appointments: memory.NewAppointmentRepository(store),
			health:       store,
			close:        func() error { return nil },
		}, nil
	default:
		db, err := postgres.NewDB(cfg)
		if err != nil {
			return nil, err
		}
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		return postgresRepositories(db), nil
	}
}

func postgresRepositories(db *sqlx.DB) *repositories {
	return &repositories{
		users:        postgres.NewUserRepository(db),
		appointments: postgres.NewAppointmentRepository(db),
		health:       postgres.NewHealthChecker(db),
		close:        db.Close,
	}
}

// newNotifier wires the configured mail back-end. The returned stop function
// waits for queued mail to be handed off and, for the inline pool, sent.
func newNotifier(ctx context.Context, cfg *config.Config, users repository.UserRepository, m *metrics.Metrics) (notification.Notifier, func(context.Context) error, error) {
	nc := cfg.Notification
	nlog := logger.Component("notification")

	switch nc.Driver {
	case "none":
		return notification.NopNotifier{}, func(context.Context) error { return nil }, nil

	case "redis":
		queue, err := redis.NewQueue(ctx, redis.Config{
			URL:           cfg.Redis.URL,
			QueueKey:      nc.QueueKey,
			DeadLetterKey: nc.DeadLetterKey,
		})
		if err != nil {
			return nil, nil, err
		}
		svc := notification.NewService(users, queue, nc.DispatchTimeout, nlog, m)
		stop := func(context.Context) error {
			svc.Wait()
			return queue.Close()
		}
		return svc, stop, nil

	default:
		sender := email.NewSMTPService(cfg.SMTP, email.DefaultBreakerSettings())
		deliverer := notification.NewDeliverer(sender, notification.DeliveryConfig{
			MaxAttempts:    nc.MaxAttempts,
			InitialBackoff: nc.InitialBackoff,
		}, nlog, m)

		pool := worker.NewMailPool(worker.MailPoolConfig{
			Workers:    nc.Workers,
			BufferSize: nc.BufferSize,
		}, deliverer.Deliver, nlog, m)
		pool.Start(ctx)

		svc := notification.NewService(users, pool, nc.DispatchTimeout, nlog, m)
		stop := func(ctx context.Context) error {
			svc.Wait()
			return pool.Shutdown(ctx)
		}
		return svc, stop, nil
	}
}
