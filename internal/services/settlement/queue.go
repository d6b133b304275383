package settlement

import (
	"context"
	"time"

	"digipay/internal/repositories/cache"
)

// ErrQueueEmpty is returned by Dequeue when no job arrived within the wait.
var ErrQueueEmpty = cache.ErrQueueEmpty

// RedisQueue is the production queue, backed by a Redis list.
type RedisQueue struct {
	q *cache.Queue
}

func NewRedisQueue(q *cache.Queue) *RedisQueue {
	return &RedisQueue{q: q}
}

func (r *RedisQueue) Enqueue(ctx context.Context, settlementID string) error {
	return r.q.Push(ctx, settlementID)
}

func (r *RedisQueue) Dequeue(ctx context.Context) (string, error) {
	return r.q.Pop(ctx)
}

func (r *RedisQueue) Ack(ctx context.Context, settlementID string) error {
	return r.q.Ack(ctx, settlementID)
}

// Requeue returns jobs a dead consumer popped but never acknowledged.
func (r *RedisQueue) Requeue(ctx context.Context) (int, error) {
	return r.q.Requeue(ctx)
}

// ChannelQueue is an in-process queue for single-instance deployments
// and tests. Jobs are lost on restart; the worker's stale sweep enqueues
// their settlements again.
type ChannelQueue struct {
	jobs chan string
	wait time.Duration
}

func NewChannelQueue(size int, wait time.Duration) *ChannelQueue {
	if size <= 0 {
		size = 256
	}
	if wait <= 0 {
		wait = time.Second
	}
	return &ChannelQueue{jobs: make(chan string, size), wait: wait}
}

func (c *ChannelQueue) Enqueue(ctx context.Context, settlementID string) error {
	select {
	case c.jobs <- settlementID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *ChannelQueue) Dequeue(ctx context.Context) (string, error) {
	timer := time.NewTimer(c.wait)
	defer timer.Stop()

	select {
	case id := <-c.jobs:
		return id, nil
	case <-timer.C:
		return "", ErrQueueEmpty
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *ChannelQueue) Ack(context.Context, string) error { return nil }

// Len reports the number of buffered jobs.
func (c *ChannelQueue) Len() int {
	return len(c.jobs)
}
