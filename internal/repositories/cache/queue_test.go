package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T) *Queue {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewQueue(client, "test:settlements", time.Second)
}

func TestQueue_FIFO(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Push(ctx, "STL_1"))
	require.NoError(t, q.Push(ctx, "STL_2"))

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	first, err := q.Pop(ctx)
	require.NoError(t, err)
	second, err := q.Pop(ctx)
	require.NoError(t, err)

	assert.Equal(t, "STL_1", first)
	assert.Equal(t, "STL_2", second)
}

func TestQueue_PopEmpty(t *testing.T) {
	q := newTestQueue(t)

	_, err := q.Pop(context.Background())
	assert.ErrorIs(t, err, ErrQueueEmpty)
}

func TestHealthCheck(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	assert.NoError(t, HealthCheck(context.Background(), client))
}

func TestQueue_PopParksUntilAck(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Push(ctx, "STL_1"))

	job, err := q.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, "STL_1", job)

	inFlight, err := q.InFlight(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), inFlight)

	require.NoError(t, q.Ack(ctx, job))

	inFlight, err = q.InFlight(ctx)
	require.NoError(t, err)
	assert.Zero(t, inFlight)
}

func TestQueue_RequeueAfterCrash(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	for _, id := range []string{"STL_1", "STL_2", "STL_3"} {
		require.NoError(t, q.Push(ctx, id))
	}

	// two jobs popped by a consumer that died before acking
	_, err := q.Pop(ctx)
	require.NoError(t, err)
	_, err = q.Pop(ctx)
	require.NoError(t, err)

	n, err := q.Requeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	inFlight, err := q.InFlight(ctx)
	require.NoError(t, err)
	assert.Zero(t, inFlight)

	var order []string
	for i := 0; i < 3; i++ {
		job, err := q.Pop(ctx)
		require.NoError(t, err)
		order = append(order, job)
	}
	assert.Equal(t, []string{"STL_1", "STL_2", "STL_3"}, order)
}
