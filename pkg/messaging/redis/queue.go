package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwalitptl/visitor-api/internal/model"
	"github.com/jwalitptl/visitor-api/pkg/messaging"
)

// Queue is a Redis list used as a FIFO of email jobs. Producers LPUSH and
// consumers BRPOP.
type Queue struct {
	client        *redis.Client
	key           string
	deadLetterKey string
}

var (
	_ messaging.JobQueue  = (*Queue)(nil)
	_ messaging.JobSource = (*Queue)(nil)
)

type Config struct {
	URL           string
	QueueKey      string
	DeadLetterKey string
}

func NewQueue(ctx context.Context, config Config) (*Queue, error) {
	opts, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewQueueWithClient(client, config.QueueKey, config.DeadLetterKey), nil
}

func NewQueueWithClient(client *redis.Client, key, deadLetterKey string) *Queue {
	return &Queue{client: client, key: key, deadLetterKey: deadLetterKey}
}

func (q *Queue) Enqueue(ctx context.Context, job *model.EmailJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}
	return nil
}

func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*model.EmailJob, error) {
	res, err := q.client.BRPop(ctx, timeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue job: %w", err)
	}

	// res is [key, value]
	var job model.EmailJob
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		// The payload is already popped; park it as-is.
		if dlErr := q.client.LPush(context.WithoutCancel(ctx), q.deadLetterKey, res[1]).Err(); dlErr != nil {
			return nil, fmt.Errorf("failed to unmarshal job: %w (dead-letter: %v)", err, dlErr)
		}
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}

func (q *Queue) DeadLetter(ctx context.Context, job *model.EmailJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	if err := q.client.LPush(ctx, q.deadLetterKey, payload).Err(); err != nil {
		return fmt.Errorf("failed to dead-letter job: %w", err)
	}
	return nil
}

// Len returns the number of jobs waiting.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}

func (q *Queue) Close() error {
	return q.client.Close()
}
