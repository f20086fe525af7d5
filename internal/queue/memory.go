package queue

import (
	"context"
	"fmt"
	"sync"
)

// MemoryQueue is a bounded in-process queue. Jobs waiting in it are lost on
// restart; their files stay in the file store.
type MemoryQueue struct {
	jobs   chan Job
	done   chan struct{}
	closed sync.Once
}

// NewMemoryQueue creates a queue holding at most size waiting jobs.
func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = DefaultSize
	}
	return &MemoryQueue{
		jobs: make(chan Job, size),
		done: make(chan struct{}),
	}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, job Job) error {
	select {
	case <-q.done:
		return ErrClosed
	default:
	}

	select {
	case q.jobs <- job:
		return nil
	case <-q.done:
		return ErrClosed
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrQueueFull, ctx.Err())
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (Job, error) {
	select {
	case job := <-q.jobs:
		return job, nil
	case <-q.done:
		return Job{}, ErrClosed
	case <-ctx.Done():
		return Job{}, ctx.Err()
	}
}

func (q *MemoryQueue) Len(context.Context) (int, error) {
	return len(q.jobs), nil
}

// Close stops the queue. The jobs channel is never closed, so a racing
// Enqueue cannot panic.
func (q *MemoryQueue) Close() error {
	q.closed.Do(func() { close(q.done) })
	return nil
}
