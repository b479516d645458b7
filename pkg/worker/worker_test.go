package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/visitor-api/internal/model"
	"github.com/jwalitptl/visitor-api/pkg/messaging"
	"github.com/jwalitptl/visitor-api/pkg/metrics"
)

type recorder struct {
	mu   sync.Mutex
	jobs []*model.EmailJob
}

func (r *recorder) handle(_ context.Context, job *model.EmailJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, job)
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

func TestMailPoolDeliversAndDrains(t *testing.T) {
	rec := &recorder{}
	pool := NewMailPool(MailPoolConfig{Workers: 2, BufferSize: 10}, rec.handle, zerolog.Nop(), metrics.NewNoop())
	pool.Start(context.Background())

	for i := 0; i < 5; i++ {
		require.NoError(t, pool.Enqueue(context.Background(), &model.EmailJob{ID: uuid.New()}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, pool.Shutdown(ctx))

	assert.Equal(t, 5, rec.count())
	assert.ErrorIs(t, pool.Enqueue(context.Background(), &model.EmailJob{}), messaging.ErrQueueClosed)
}

func TestMailPoolRejectsWhenFull(t *testing.T) {
	release := make(chan struct{})
	blocking := func(ctx context.Context, _ *model.EmailJob) error {
		<-release
		return nil
	}

	pool := NewMailPool(MailPoolConfig{Workers: 1, BufferSize: 1}, blocking, zerolog.Nop(), metrics.NewNoop())

	// Not started yet: the single buffer slot fills and the next job is refused.
	require.NoError(t, pool.Enqueue(context.Background(), &model.EmailJob{ID: uuid.New()}))
	assert.ErrorIs(t, pool.Enqueue(context.Background(), &model.EmailJob{ID: uuid.New()}), messaging.ErrQueueFull)

	pool.Start(context.Background())
	close(release)
	require.NoError(t, pool.Shutdown(context.Background()))
}

type fakeSource struct {
	mu   sync.Mutex
	jobs []*model.EmailJob
	dead []*model.EmailJob
}

func (s *fakeSource) Dequeue(ctx context.Context, _ time.Duration) (*model.EmailJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.jobs) == 0 {
		return nil, nil
	}
	job := s.jobs[0]
	s.jobs = s.jobs[1:]
	return job, nil
}

func (s *fakeSource) DeadLetter(_ context.Context, job *model.EmailJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dead = append(s.dead, job)
	return nil
}

func (s *fakeSource) deadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.dead)
}

func TestMailConsumerDeadLettersFailures(t *testing.T) {
	good := &model.EmailJob{ID: uuid.New(), To: "ok@x.com"}
	bad := &model.EmailJob{ID: uuid.New(), To: "bounce@x.com"}
	src := &fakeSource{jobs: []*model.EmailJob{good, bad}}

	var delivered sync.Map
	handler := func(_ context.Context, job *model.EmailJob) error {
		if job.To == "bounce@x.com" {
			return errors.New("550 mailbox unavailable")
		}
		delivered.Store(job.ID, true)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	consumer := NewMailConsumer(src, handler, MailConsumerConfig{PollTimeout: 10 * time.Millisecond}, zerolog.Nop())

	done := make(chan struct{})
	go func() {
		consumer.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return src.deadCount() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	_, ok := delivered.Load(good.ID)
	assert.True(t, ok)
	assert.Equal(t, "550 mailbox unavailable", src.dead[0].LastError)
}
