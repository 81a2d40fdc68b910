// Package ports defines the interfaces shared between the recovery engine,
// the mint service that feeds its queue, and the stores behind them.
package ports

import (
	"context"
	"time"

	"probo/internal/domain"
	id "probo/pkg/domain"
)

// Queue is the restart-safe FIFO of recovery tasks. Ordering is best-effort
// FIFO among ready tasks; delayed re-enqueues become ready at their backoff
// deadline.
type Queue interface {
	// Enqueue appends a task.
	Enqueue(ctx context.Context, task *domain.RecoveryTask) error

	// Dequeue pops the oldest ready task, or sentinel.ErrNotFound when no
	// task is ready. A dequeued task is considered in-flight until Complete
	// or Requeue.
	Dequeue(ctx context.Context) (*domain.RecoveryTask, error)

	// Complete acknowledges an in-flight task.
	Complete(ctx context.Context, task *domain.RecoveryTask) error

	// Requeue returns an in-flight task to the queue, ready after delay.
	Requeue(ctx context.Context, task *domain.RecoveryTask, delay time.Duration) error

	// Remove cancels a queued (not in-flight) task for the given coin.
	Remove(ctx context.Context, coinID id.CoinID) error

	// DeadLetter parks a task that exhausted its attempts.
	DeadLetter(ctx context.Context, task *domain.RecoveryTask) error

	// Len returns the number of queued tasks (ready plus delayed).
	Len(ctx context.Context) (int, error)

	// DeadLetterLen returns the number of parked tasks.
	DeadLetterLen(ctx context.Context) (int, error)
}

// OwnerDirectory resolves the owner signals the strategy policy reads.
type OwnerDirectory interface {
	Profile(ctx context.Context, owner id.OwnerID) (domain.OwnerProfile, error)
}

// Outcome decides whether a strategy attempt succeeds. Production uses a
// seedable stochastic implementation; tests script outcomes directly.
type Outcome interface {
	Attempt(ctx context.Context, task *domain.RecoveryTask, strategy domain.Strategy) (bool, error)
}
