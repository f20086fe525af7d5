package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryQueueFIFO(t *testing.T) {
	q := NewMemoryQueue(4)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Enqueue(ctx, Job{DocumentID: id}))
	}

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	for _, want := range []string{"a", "b", "c"} {
		job, err := q.Dequeue(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, job.DocumentID)
	}
}

func TestMemoryQueueFullAfterDeadline(t *testing.T) {
	q := NewMemoryQueue(1)
	require.NoError(t, q.Enqueue(context.Background(), Job{DocumentID: "first"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := q.Enqueue(ctx, Job{DocumentID: "second"})
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestMemoryQueueEnqueueWaitsForSpace(t *testing.T) {
	q := NewMemoryQueue(1)
	require.NoError(t, q.Enqueue(context.Background(), Job{DocumentID: "first"}))

	go func() {
		time.Sleep(20 * time.Millisecond)
		q.Dequeue(context.Background())
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, q.Enqueue(ctx, Job{DocumentID: "second"}))
}

func TestMemoryQueueDequeueCancelled(t *testing.T) {
	q := NewMemoryQueue(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := q.Dequeue(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryQueueClose(t *testing.T) {
	q := NewMemoryQueue(1)
	require.NoError(t, q.Close())
	require.NoError(t, q.Close())

	assert.ErrorIs(t, q.Enqueue(context.Background(), Job{DocumentID: "x"}), ErrClosed)
	_, err := q.Dequeue(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}
