package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrQueueEmpty is returned by Pop when nothing arrived within the wait.
var ErrQueueEmpty = errors.New("queue empty")

// Queue is a FIFO list of string jobs. Pop moves a job onto a processing
// list with BLMOVE and Ack removes it, so a consumer that dies between the
// two leaves the job recoverable with Requeue. Jobs can be delivered more
// than once and must be idempotent.
type Queue struct {
	client     redis.UniversalClient
	key        string
	processing string
	wait       time.Duration
}

func NewQueue(client redis.UniversalClient, key string, wait time.Duration) *Queue {
	if wait <= 0 {
		wait = 5 * time.Second
	}
	return &Queue{client: client, key: key, processing: key + ":processing", wait: wait}
}

func (q *Queue) Push(ctx context.Context, job string) error {
	if err := q.client.LPush(ctx, q.key, job).Err(); err != nil {
		return fmt.Errorf("push %s: %w", q.key, err)
	}
	return nil
}

// Pop blocks up to the configured wait for the next job and parks it on
// the processing list until Ack.
func (q *Queue) Pop(ctx context.Context) (string, error) {
	job, err := q.client.BLMove(ctx, q.key, q.processing, "RIGHT", "LEFT", q.wait).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrQueueEmpty
	}
	if err != nil {
		return "", fmt.Errorf("pop %s: %w", q.key, err)
	}
	return job, nil
}

// Ack drops a finished job from the processing list.
func (q *Queue) Ack(ctx context.Context, job string) error {
	if err := q.client.LRem(ctx, q.processing, 1, job).Err(); err != nil {
		return fmt.Errorf("ack %s: %w", q.processing, err)
	}
	return nil
}

// Requeue moves every unacknowledged job back onto the queue, oldest
// first. Call it before consuming.
func (q *Queue) Requeue(ctx context.Context) (int, error) {
	n := 0
	for {
		_, err := q.client.LMove(ctx, q.processing, q.key, "LEFT", "RIGHT").Result()
		if errors.Is(err, redis.Nil) {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("requeue %s: %w", q.processing, err)
		}
		n++
	}
}

// Len reports the number of jobs waiting.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}

// InFlight reports the number of popped, unacknowledged jobs.
func (q *Queue) InFlight(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.processing).Result()
}
