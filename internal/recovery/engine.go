// Package recovery runs the background process that works minted value back
// out of circulation. A scheduled loop drains a bounded batch of tasks from
// the queue each tick, selects a strategy per task through a deterministic
// policy, and either marks the coin recovered or re-enqueues with backoff.
package recovery

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cenkalti/backoff/v4"

	"probo/internal/domain"
	"probo/internal/events"
	"probo/internal/ledger"
	ledgerports "probo/internal/ledger/ports"
	"probo/internal/recovery/metrics"
	"probo/internal/recovery/ports"
	id "probo/pkg/domain"
	"probo/pkg/platform/sentinel"
)

// Config tunes the engine.
type Config struct {
	Interval       time.Duration
	BatchSize      int
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultConfig matches the documented schedule: a ten minute drain interval
// with a bounded batch and capped retries.
func DefaultConfig() Config {
	return Config{
		Interval:       10 * time.Minute,
		BatchSize:      10,
		MaxAttempts:    5,
		InitialBackoff: time.Minute,
		MaxBackoff:     time.Hour,
	}
}

// Engine is the background recovery consumer.
type Engine struct {
	cfg     Config
	queue   ports.Queue
	coins   ledgerports.CoinStore
	state   *ledger.State
	policy  Policy
	outcome ports.Outcome
	owners  ports.OwnerDirectory
	emitter events.Emitter
	metrics *metrics.Metrics
	logger  *slog.Logger
	clock   clock.Clock

	inflight keyedLocks

	mu        sync.Mutex
	attempts  int
	successes int
}

// Option configures an Engine.
type Option func(*Engine)

func WithClock(c clock.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

func WithPolicy(p Policy) Option {
	return func(e *Engine) { e.policy = p }
}

func WithOutcome(o ports.Outcome) Option {
	return func(e *Engine) { e.outcome = o }
}

func WithEmitter(em events.Emitter) Option {
	return func(e *Engine) { e.emitter = em }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// New builds an Engine. The default outcome roller is seeded from the clock;
// pass WithOutcome for reproducible runs.
func New(cfg Config, queue ports.Queue, coins ledgerports.CoinStore, state *ledger.State, owners ports.OwnerDirectory, opts ...Option) *Engine {
	e := &Engine{
		cfg:    cfg,
		queue:  queue,
		coins:  coins,
		state:  state,
		owners: owners,
		policy: TierPolicy{},
		logger: slog.Default(),
		clock:  clock.New(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.outcome == nil {
		e.outcome = NewStochasticOutcome(e.clock.Now().UnixNano())
	}
	return e
}

// Run drains the queue on the configured interval until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	ticker := e.clock.Ticker(e.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := e.ProcessBatch(ctx); err != nil {
				e.logger.ErrorContext(ctx, "recovery batch failed", "error", err.Error())
			}
		}
	}
}

// ProcessBatch drains up to BatchSize ready tasks. Exported so tests and
// operational tooling can drive the engine without the scheduler.
func (e *Engine) ProcessBatch(ctx context.Context) error {
	for i := 0; i < e.cfg.BatchSize; i++ {
		task, err := e.queue.Dequeue(ctx)
		if errors.Is(err, sentinel.ErrNotFound) {
			break
		}
		if err != nil {
			return err
		}
		e.process(ctx, task)
	}

	if n, err := e.queue.Len(ctx); err == nil {
		e.metrics.SetQueueDepth(n)
	}
	return nil
}

// process runs one attempt for one task. The per-coin lock guarantees a task
// for a given coin is never executed by two workers simultaneously.
func (e *Engine) process(ctx context.Context, task *domain.RecoveryTask) {
	unlock := e.inflight.lock(task.CoinID)
	defer unlock()

	now := e.clock.Now()
	profile, err := e.owners.Profile(ctx, task.Owner)
	if err != nil {
		e.logger.WarnContext(ctx, "owner profile lookup failed, using zero profile",
			"owner", task.Owner.String(), "error", err.Error())
		profile = domain.OwnerProfile{Owner: task.Owner}
	}

	strategy := e.policy.Select(task, profile, now)
	task.LastStrategy = strategy

	success, err := e.outcome.Attempt(ctx, task, strategy)
	if err != nil {
		e.logger.WarnContext(ctx, "strategy attempt errored",
			"coin_id", task.CoinID.String(), "strategy", string(strategy), "error", err.Error())
		success = false
	}
	e.recordAttempt(success)
	e.metrics.ObserveAttempt(string(strategy), success)

	if success {
		e.succeed(ctx, task, strategy, now)
		return
	}
	e.fail(ctx, task)
}

func (e *Engine) succeed(ctx context.Context, task *domain.RecoveryTask, strategy domain.Strategy, now time.Time) {
	err := e.coins.MarkRecovered(ctx, task.CoinID, strategy, now)
	switch {
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		// Recovered by an earlier attempt whose ack was lost. Do not touch
		// the counters again.
		_ = e.queue.Complete(ctx, task)
		return
	case err != nil:
		e.logger.ErrorContext(ctx, "mark recovered failed, re-enqueueing",
			"coin_id", task.CoinID.String(), "error", err.Error())
		e.fail(ctx, task)
		return
	}

	if err := e.state.RecordRecovery(task.Value); err != nil {
		e.logger.ErrorContext(ctx, "supply conservation violated on recovery",
			"coin_id", task.CoinID.String(), "error", err.Error())
	}
	if err := e.queue.Complete(ctx, task); err != nil {
		e.logger.WarnContext(ctx, "completing recovered task failed",
			"coin_id", task.CoinID.String(), "error", err.Error())
	}

	e.logger.InfoContext(ctx, "coin recovered",
		"coin_id", task.CoinID.String(),
		"strategy", string(strategy),
		"value", task.Value.String(),
		"attempts", task.Attempts+1,
	)
	if e.emitter != nil {
		e.emitter.Emit(events.Event{
			Type:     events.TypeCoinRecovered,
			CoinID:   task.CoinID.String(),
			Owner:    task.Owner.String(),
			Value:    task.Value.String(),
			Strategy: string(strategy),
		})
	}
}

func (e *Engine) fail(ctx context.Context, task *domain.RecoveryTask) {
	task.Attempts++
	if task.Attempts >= e.cfg.MaxAttempts {
		if err := e.queue.DeadLetter(ctx, task); err != nil {
			e.logger.ErrorContext(ctx, "dead-lettering task failed",
				"coin_id", task.CoinID.String(), "error", err.Error())
			return
		}
		e.metrics.ObserveDeadLetter()
		e.logger.WarnContext(ctx, "recovery task dead-lettered",
			"coin_id", task.CoinID.String(), "attempts", task.Attempts)
		return
	}

	delay := e.backoffDelay(task.Attempts)
	if err := e.queue.Requeue(ctx, task, delay); err != nil {
		e.logger.ErrorContext(ctx, "re-enqueueing task failed",
			"coin_id", task.CoinID.String(), "error", err.Error())
	}
}

// backoffDelay computes the exponential delay for the given attempt count.
func (e *Engine) backoffDelay(attempts int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.cfg.InitialBackoff
	b.MaxInterval = e.cfg.MaxBackoff
	b.RandomizationFactor = 0 // deterministic schedule; jitter adds nothing here
	b.Reset()
	delay := b.NextBackOff()
	for i := 1; i < attempts; i++ {
		delay = b.NextBackOff()
	}
	if delay == backoff.Stop || delay > e.cfg.MaxBackoff {
		return e.cfg.MaxBackoff
	}
	return delay
}

// Cancel removes a queued task before execution. In-flight attempts are
// atomic and cannot be interrupted.
func (e *Engine) Cancel(ctx context.Context, coinID id.CoinID) error {
	return e.queue.Remove(ctx, coinID)
}

// Status reports the queue and success aggregates for getRecoveryStatus.
func (e *Engine) Status(ctx context.Context) (*domain.RecoveryStatus, error) {
	queued, err := e.queue.Len(ctx)
	if err != nil {
		return nil, err
	}
	dead, err := e.queue.DeadLetterLen(ctx)
	if err != nil {
		return nil, err
	}
	recovered, err := e.coins.CountRecovered(ctx)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	attempts, successes := e.attempts, e.successes
	e.mu.Unlock()

	rate := 0.0
	if attempts > 0 {
		rate = float64(successes) / float64(attempts)
	}
	return &domain.RecoveryStatus{
		QueueLength:        queued,
		RecoveredCoinCount: recovered,
		SuccessRate:        rate,
		DeadLetterCount:    dead,
	}, nil
}

func (e *Engine) recordAttempt(success bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.attempts++
	if success {
		e.successes++
	}
}

// keyedLocks provides per-coin mutual exclusion.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[id.CoinID]*sync.Mutex
}

func (k *keyedLocks) lock(coinID id.CoinID) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[id.CoinID]*sync.Mutex)
	}
	m, ok := k.locks[coinID]
	if !ok {
		m = &sync.Mutex{}
		k.locks[coinID] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
