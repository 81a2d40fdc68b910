package queue

import (
	"context"
	"sync"
	"time"

	"probo/internal/domain"
	id "probo/pkg/domain"
	"probo/pkg/platform/sentinel"
)

// MemoryQueue is the in-memory recovery task queue. FIFO among ready tasks;
// delayed tasks become eligible at their ReadyAt deadline.
type MemoryQueue struct {
	mu         sync.Mutex
	tasks      []*domain.RecoveryTask
	deadLetter []*domain.RecoveryTask
	now        func() time.Time
}

// NewMemoryQueue creates an empty in-memory queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{now: time.Now}
}

// WithNow overrides the clock; tests use it to make delayed tasks ready.
func (q *MemoryQueue) WithNow(now func() time.Time) *MemoryQueue {
	q.now = now
	return q
}

func (q *MemoryQueue) Enqueue(ctx context.Context, task *domain.RecoveryTask) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, task)
	return nil
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (*domain.RecoveryTask, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := q.now()
	for i, task := range q.tasks {
		if !task.ReadyAt.After(now) {
			q.tasks = append(q.tasks[:i], q.tasks[i+1:]...)
			return task, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// Complete is a no-op for the memory queue; Dequeue already removed the task.
func (q *MemoryQueue) Complete(ctx context.Context, task *domain.RecoveryTask) error {
	return nil
}

func (q *MemoryQueue) Requeue(ctx context.Context, task *domain.RecoveryTask, delay time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	task.ReadyAt = q.now().Add(delay)
	q.tasks = append(q.tasks, task)
	return nil
}

func (q *MemoryQueue) Remove(ctx context.Context, coinID id.CoinID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, task := range q.tasks {
		if task.CoinID == coinID {
			q.tasks = append(q.tasks[:i], q.tasks[i+1:]...)
			return nil
		}
	}
	return sentinel.ErrNotFound
}

func (q *MemoryQueue) DeadLetter(ctx context.Context, task *domain.RecoveryTask) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.deadLetter = append(q.deadLetter, task)
	return nil
}

func (q *MemoryQueue) Len(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks), nil
}

func (q *MemoryQueue) DeadLetterLen(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.deadLetter), nil
}
