package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/visitor-api/pkg/messaging"
)

type MailConsumerConfig struct {
	PollTimeout  time.Duration
	ErrorBackoff time.Duration
}

// MailConsumer drains a JobSource and parks jobs that fail delivery in the
// dead-letter list.
type MailConsumer struct {
	source  messaging.JobSource
	handler Handler
	config  MailConsumerConfig
	logger  zerolog.Logger
}

func NewMailConsumer(source messaging.JobSource, handler Handler, config MailConsumerConfig, logger zerolog.Logger) *MailConsumer {
	if config.PollTimeout <= 0 {
		config.PollTimeout = 5 * time.Second
	}
	if config.ErrorBackoff <= 0 {
		config.ErrorBackoff = time.Second
	}

	return &MailConsumer{
		source:  source,
		handler: handler,
		config:  config,
		logger:  logger,
	}
}

// Run blocks until ctx is cancelled.
func (c *MailConsumer) Run(ctx context.Context) {
	c.logger.Info().Msg("starting mail consumer")

	for {
		if ctx.Err() != nil {
			c.logger.Info().Msg("shutting down mail consumer")
			return
		}

		job, err := c.source.Dequeue(ctx, c.config.PollTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			c.logger.Error().Err(err).Msg("failed to dequeue email job")
			c.sleep(ctx, c.config.ErrorBackoff)
			continue
		}
		if job == nil {
			continue
		}

		if err := c.handler(ctx, job); err != nil {
			job.LastError = err.Error()
			if dlErr := c.source.DeadLetter(context.WithoutCancel(ctx), job); dlErr != nil {
				c.logger.Error().Err(dlErr).Str("job_id", job.ID.String()).Msg("failed to dead-letter email job")
				continue
			}
			c.logger.Warn().Err(err).Str("job_id", job.ID.String()).Msg("email job moved to dead-letter list")
		}
	}
}

func (c *MailConsumer) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
