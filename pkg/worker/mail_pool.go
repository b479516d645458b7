package worker

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/visitor-api/internal/model"
	"github.com/jwalitptl/visitor-api/pkg/messaging"
	"github.com/jwalitptl/visitor-api/pkg/metrics"
)

// Handler delivers one email job.
type Handler func(ctx context.Context, job *model.EmailJob) error

type MailPoolConfig struct {
	Workers    int
	BufferSize int
}

// MailPool is an in-process bounded email queue drained by a fixed number of
// goroutines. Enqueue never blocks.
type MailPool struct {
	config  MailPoolConfig
	handler Handler
	logger  zerolog.Logger
	metrics *metrics.Metrics

	mu     sync.RWMutex
	closed bool
	jobs   chan *model.EmailJob
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

var _ messaging.JobQueue = (*MailPool)(nil)

func NewMailPool(config MailPoolConfig, handler Handler, logger zerolog.Logger, m *metrics.Metrics) *MailPool {
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.BufferSize <= 0 {
		config.BufferSize = 1
	}

	return &MailPool{
		config:  config,
		handler: handler,
		logger:  logger,
		metrics: m,
		jobs:    make(chan *model.EmailJob, config.BufferSize),
		cancel:  func() {},
	}
}

func (p *MailPool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)

	p.logger.Info().Int("workers", p.config.Workers).Msg("starting mail pool")
	for i := 0; i < p.config.Workers; i++ {
		p.wg.Add(1)
		go p.run(ctx)
	}
}

func (p *MailPool) run(ctx context.Context) {
	defer p.wg.Done()

	for job := range p.jobs {
		p.metrics.MailQueueDepth.Dec()
		if err := p.handler(ctx, job); err != nil {
			p.logger.Error().
				Err(err).
				Str("job_id", job.ID.String()).
				Str("kind", string(job.Kind)).
				Msg("dropping email after failed delivery")
		}
	}
}

func (p *MailPool) Enqueue(_ context.Context, job *model.EmailJob) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return messaging.ErrQueueClosed
	}

	p.metrics.MailQueueDepth.Inc()
	select {
	case p.jobs <- job:
		return nil
	default:
		p.metrics.MailQueueDepth.Dec()
		return messaging.ErrQueueFull
	}
}

// Shutdown stops accepting jobs and waits for queued ones to be delivered.
// When ctx expires first, in-flight deliveries are cancelled.
func (p *MailPool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return ctx.Err()
	}
}
