package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/visitor-api/internal/email"
	"github.com/jwalitptl/visitor-api/internal/model"
	"github.com/jwalitptl/visitor-api/pkg/metrics"
)

type DeliveryConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
}

// Deliverer sends queued jobs through an email.Service, retrying with
// exponential backoff.
type Deliverer struct {
	sender  email.Service
	config  DeliveryConfig
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

func NewDeliverer(sender email.Service, config DeliveryConfig, logger zerolog.Logger, m *metrics.Metrics) *Deliverer {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = time.Second
	}
	return &Deliverer{sender: sender, config: config, logger: logger, metrics: m}
}

// Deliver satisfies worker.Handler.
func (d *Deliverer) Deliver(ctx context.Context, job *model.EmailJob) error {
	timer := prometheus.NewTimer(d.metrics.NotificationLatency)
	defer timer.ObserveDuration()

	msg := &email.Message{
		To:       job.To,
		ToName:   job.ToName,
		Subject:  job.Subject,
		HTMLBody: job.HTMLBody,
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = d.config.InitialBackoff
	exp.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(d.config.MaxAttempts-1)), ctx)

	op := func() error {
		job.Attempts++
		err := d.sender.Send(ctx, msg)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return backoff.Permanent(err)
		}
		return err
	}
	onRetry := func(err error, wait time.Duration) {
		d.logger.Warn().
			Err(err).
			Str("job_id", job.ID.String()).
			Int("attempt", job.Attempts).
			Dur("retry_in", wait).
			Msg("email delivery failed, retrying")
	}

	if err := backoff.RetryNotify(op, policy, onRetry); err != nil {
		d.metrics.Notifications.WithLabelValues(string(job.Kind), resultFailed).Inc()
		return fmt.Errorf("email %s not delivered after %d attempts: %w", job.ID, job.Attempts, err)
	}

	d.metrics.Notifications.WithLabelValues(string(job.Kind), resultSent).Inc()
	d.logger.Info().
		Str("job_id", job.ID.String()).
		Str("kind", string(job.Kind)).
		Str("appointment_id", job.AppointmentID.String()).
		Int("attempts", job.Attempts).
		Msg("email delivered")
	return nil
}
