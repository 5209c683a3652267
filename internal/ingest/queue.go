package ingest

import (
	"context"

	"github.com/kurochkinivan/table_import/internal/domain"
)

// DefaultQueueCapacity bounds how many submissions may wait for a worker
// before enqueueing blocks.
const DefaultQueueCapacity = 100

// Queue is a bounded FIFO of pending ingestion tasks. Enqueue blocks while
// the queue is full, pushing backpressure onto submitters; Dequeue blocks
// while it is empty. Both respect context cancellation. Any number of
// writers may enqueue concurrently.
type Queue struct {
	tasks chan *domain.QueuedTask
}

func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}

	return &Queue{tasks: make(chan *domain.QueuedTask, capacity)}
}

func (q *Queue) Enqueue(ctx context.Context, task *domain.QueuedTask) error {
	select {
	case q.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) Dequeue(ctx context.Context) (*domain.QueuedTask, error) {
	select {
	case task := <-q.tasks:
		return task, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Pending is the number of queued tasks not yet picked up by a worker.
func (q *Queue) Pending() int {
	return len(q.tasks)
}
