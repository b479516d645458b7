package messaging

import (
	"context"
	"errors"
	"time"

	"github.com/jwalitptl/visitor-api/internal/model"
)

var (
	ErrQueueFull   = errors.New("messaging: queue is full")
	ErrQueueClosed = errors.New("messaging: queue is closed")
)

// JobQueue accepts email jobs for later delivery.
type JobQueue interface {
	Enqueue(ctx context.Context, job *model.EmailJob) error
}

// JobSource hands out queued email jobs to a consumer.
type JobSource interface {
	// Dequeue blocks up to timeout and returns nil, nil when no job arrived.
	Dequeue(ctx context.Context, timeout time.Duration) (*model.EmailJob, error)
	// DeadLetter parks a job that exhausted its delivery attempts.
	DeadLetter(ctx context.Context, job *model.EmailJob) error
}
