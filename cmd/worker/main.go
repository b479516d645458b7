package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/visitor-api/config"
	"github.com/jwalitptl/visitor-api/internal/email"
	"github.com/jwalitptl/visitor-api/internal/service/notification"
	"github.com/jwalitptl/visitor-api/pkg/logger"
	"github.com/jwalitptl/visitor-api/pkg/messaging/redis"
	"github.com/jwalitptl/visitor-api/pkg/metrics"
	"github.com/jwalitptl/visitor-api/pkg/worker"
)

const depthInterval = 15 * time.Second

func setupHealthCheck(addr string, queue *redis.Queue, registry *prometheus.Registry, logger zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if _, err := queue.Len(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("health check server failed")
		}
	}()
	return srv
}

// reportDepth publishes the queue length until ctx is cancelled.
func reportDepth(ctx context.Context, queue *redis.Queue, m *metrics.Metrics, logger zerolog.Logger) {
	ticker := time.NewTicker(depthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := queue.Len(ctx)
			if err != nil {
				logger.Warn().Err(err).Msg("failed to read queue depth")
				continue
			}
			m.MailQueueDepth.Set(float64(n))
		}
	}
}

func main() {
	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	wlog := logger.Component("mail-worker")

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	m := metrics.NewMetrics("sfs_worker", registry)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queue, err := redis.NewQueue(ctx, redis.Config{
		URL:           cfg.Redis.URL,
		QueueKey:      cfg.Notification.QueueKey,
		DeadLetterKey: cfg.Notification.DeadLetterKey,
	})
	if err != nil {
		wlog.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer queue.Close()

	sender := email.NewSMTPService(cfg.SMTP, email.DefaultBreakerSettings())
	deliverer := notification.NewDeliverer(sender, notification.DeliveryConfig{
		MaxAttempts:    cfg.Notification.MaxAttempts,
		InitialBackoff: cfg.Notification.InitialBackoff,
	}, wlog, m)

	healthSrv := setupHealthCheck(cfg.Notification.WorkerAddr, queue, registry, wlog)

	workers := cfg.Notification.Workers
	if workers <= 0 {
		workers = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		consumer := worker.NewMailConsumer(queue, deliverer.Deliver, worker.MailConsumerConfig{}, wlog.With().Int("consumer", i).Logger())
		wg.Add(1)
		go func() {
			defer wg.Done()
			consumer.Run(ctx)
		}()
	}
	go reportDepth(ctx, queue, m, wlog)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	wlog.Info().Msg("shutting down...")
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(cfg.Server.ShutdownTimeout):
		wlog.Warn().Msg("consumers did not stop in time")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = healthSrv.Shutdown(shutdownCtx)
}
