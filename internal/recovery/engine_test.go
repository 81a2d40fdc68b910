package recovery

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"probo/internal/domain"
	"probo/internal/ledger"
	coinstore "probo/internal/ledger/store/coin"
	queuestore "probo/internal/recovery/store/queue"
	id "probo/pkg/domain"
)

// fixedOutcome resolves every attempt the same way.
type fixedOutcome struct {
	success bool
}

func (o fixedOutcome) Attempt(ctx context.Context, task *domain.RecoveryTask, strategy domain.Strategy) (bool, error) {
	return o.success, nil
}

type EngineSuite struct {
	suite.Suite
	ctx   context.Context
	coins *coinstore.MemoryStore
	queue *queuestore.MemoryQueue
	state *ledger.State
}

func (s *EngineSuite) SetupSuite() {
	s.ctx = context.Background()
}

func (s *EngineSuite) SetupTest() {
	s.coins = coinstore.NewMemoryStore()
	s.queue = queuestore.NewMemoryQueue()
	s.state = ledger.NewState()
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

// mintCoin seeds a queued coin plus its recovery task, mirroring what the
// mint service does.
func (s *EngineSuite) mintCoin(value int64) *domain.Coin {
	now := time.Now().UTC()
	coin := &domain.Coin{
		ID:            id.NewCoinID(),
		FootprintID:   id.NewFootprintID(),
		Owner:         id.OwnerID("org-7"),
		Value:         big.NewInt(value),
		MintedAt:      now,
		RecoveryState: domain.RecoveryQueued,
	}
	s.Require().NoError(s.coins.Insert(s.ctx, coin))
	s.Require().NoError(s.state.RecordMint(coin.Value))
	s.Require().NoError(s.queue.Enqueue(s.ctx, &domain.RecoveryTask{
		CoinID:     coin.ID,
		Value:      new(big.Int).Set(coin.Value),
		Owner:      coin.Owner,
		EnqueuedAt: now,
		ReadyAt:    now,
	}))
	return coin
}

func (s *EngineSuite) newEngine(outcome fixedOutcome, cfg Config) *Engine {
	return New(cfg, s.queue, s.coins, s.state, NewStaticDirectory(nil),
		WithOutcome(outcome))
}

func (s *EngineSuite) TestSuccessfulRecovery() {
	coin := s.mintCoin(7618)
	engine := s.newEngine(fixedOutcome{success: true}, DefaultConfig())

	s.Require().NoError(engine.ProcessBatch(s.ctx))

	s.Run("coin is marked recovered with the selected strategy", func() {
		got, err := s.coins.Get(s.ctx, coin.ID)
		s.Require().NoError(err)
		s.Equal(domain.RecoveryRecovered, got.RecoveryState)
		s.Equal(domain.StrategyIncentiveBased, got.RecoveredStrategy)
	})

	s.Run("circulation drops by the coin value, total is unchanged", func() {
		snap := s.state.Snapshot()
		s.Equal("7618", snap.Total.String())
		s.Equal("0", snap.Circulating.String())
		s.Equal("7618", snap.Recovered.String())
	})

	s.Run("queue is drained", func() {
		n, err := s.queue.Len(s.ctx)
		s.Require().NoError(err)
		s.Zero(n)
	})

	s.Run("status reports the success", func() {
		status, err := engine.Status(s.ctx)
		s.Require().NoError(err)
		s.Equal(1, status.RecoveredCoinCount)
		s.Equal(float64(1), status.SuccessRate)
		s.Zero(status.DeadLetterCount)
	})
}

func (s *EngineSuite) TestFailedAttemptRequeuesWithBackoff() {
	s.mintCoin(7618)
	engine := s.newEngine(fixedOutcome{success: false}, DefaultConfig())

	s.Require().NoError(engine.ProcessBatch(s.ctx))

	n, err := s.queue.Len(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, n, "failed task returns to the queue")

	// The re-enqueued task is delayed, so an immediate second batch is a no-op.
	s.Require().NoError(engine.ProcessBatch(s.ctx))
	status, err := engine.Status(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, status.QueueLength)
	s.Zero(status.RecoveredCoinCount)
	s.Zero(status.SuccessRate)
}

func (s *EngineSuite) TestExhaustedTaskIsDeadLettered() {
	coin := s.mintCoin(7618)
	cfg := DefaultConfig()
	cfg.MaxAttempts = 2

	// Requeue schedules ReadyAt from the queue clock, so the clock must move
	// past the backoff between batches or the retry never becomes ready.
	current := time.Now().UTC()
	s.queue.WithNow(func() time.Time { return current })

	engine := s.newEngine(fixedOutcome{success: false}, cfg)

	s.Require().NoError(engine.ProcessBatch(s.ctx))
	current = current.Add(cfg.MaxBackoff + time.Minute)
	s.Require().NoError(engine.ProcessBatch(s.ctx))

	status, err := engine.Status(s.ctx)
	s.Require().NoError(err)
	s.Zero(status.QueueLength)
	s.Equal(1, status.DeadLetterCount)

	got, err := s.coins.Get(s.ctx, coin.ID)
	s.Require().NoError(err)
	s.Equal(domain.RecoveryQueued, got.RecoveryState, "dead-lettered coins stay unrecovered")

	snap := s.state.Snapshot()
	s.Equal("7618", snap.Circulating.String(), "no recovery, no counter movement")
}

// A restart keeps durable coins and queued tasks but loses the in-memory
// counters. Replaying a surviving task against counters seeded from the coin
// store must not drive circulation negative.
func (s *EngineSuite) TestRecoveryAfterRestartConservesSupply() {
	s.mintCoin(7618)

	restarted := ledger.NewState()
	total, recovered, err := s.coins.SupplyTotals(s.ctx)
	s.Require().NoError(err)
	s.Require().NoError(restarted.Rehydrate(total, recovered, new(big.Int)))
	s.state = restarted

	engine := s.newEngine(fixedOutcome{success: true}, DefaultConfig())
	s.Require().NoError(engine.ProcessBatch(s.ctx))

	snap := s.state.Snapshot()
	s.Equal("7618", snap.Total.String())
	s.Equal("0", snap.Circulating.String())
	s.Equal("7618", snap.Recovered.String())
	s.GreaterOrEqual(snap.Circulating.Sign(), 0, "replayed recovery must never go negative")
}

func (s *EngineSuite) TestBatchSizeBoundsWork() {
	for i := 0; i < 5; i++ {
		s.mintCoin(100)
	}
	cfg := DefaultConfig()
	cfg.BatchSize = 2
	engine := s.newEngine(fixedOutcome{success: true}, cfg)

	s.Require().NoError(engine.ProcessBatch(s.ctx))

	n, err := s.queue.Len(s.ctx)
	s.Require().NoError(err)
	s.Equal(3, n, "one batch drains at most BatchSize tasks")
}

func (s *EngineSuite) TestCancelRemovesQueuedTask() {
	coin := s.mintCoin(7618)
	engine := s.newEngine(fixedOutcome{success: true}, DefaultConfig())

	s.Require().NoError(engine.Cancel(s.ctx, coin.ID))

	s.Require().NoError(engine.ProcessBatch(s.ctx))
	got, err := s.coins.Get(s.ctx, coin.ID)
	s.Require().NoError(err)
	s.Equal(domain.RecoveryQueued, got.RecoveryState, "cancelled task is never attempted")
}

func (s *EngineSuite) TestAlreadyRecoveredCoinDoesNotDoubleCount() {
	coin := s.mintCoin(7618)
	s.Require().NoError(s.coins.MarkRecovered(s.ctx, coin.ID, domain.StrategyIncentiveBased, time.Now().UTC()))
	s.Require().NoError(s.state.RecordRecovery(coin.Value))

	engine := s.newEngine(fixedOutcome{success: true}, DefaultConfig())
	s.Require().NoError(engine.ProcessBatch(s.ctx))

	snap := s.state.Snapshot()
	s.Equal("7618", snap.Recovered.String(), "a lost ack must not move counters twice")
	s.Equal("0", snap.Circulating.String())
}

func (s *EngineSuite) TestBackoffScheduleIsExponentialAndCapped() {
	cfg := DefaultConfig()
	cfg.InitialBackoff = time.Minute
	cfg.MaxBackoff = 10 * time.Minute
	engine := s.newEngine(fixedOutcome{}, cfg)

	first := engine.backoffDelay(1)
	second := engine.backoffDelay(2)
	s.Equal(time.Minute, first)
	s.Greater(second, first)

	s.LessOrEqual(engine.backoffDelay(50), cfg.MaxBackoff)
}

func (s *EngineSuite) TestStrategySelectionFollowsOwnerProfile() {
	now := time.Now().UTC()
	coin := &domain.Coin{
		ID:            id.NewCoinID(),
		FootprintID:   id.NewFootprintID(),
		Owner:         id.OwnerID("org-active"),
		Value:         big.NewInt(50000),
		MintedAt:      now,
		RecoveryState: domain.RecoveryQueued,
	}
	s.Require().NoError(s.coins.Insert(s.ctx, coin))
	s.Require().NoError(s.state.RecordMint(coin.Value))
	s.Require().NoError(s.queue.Enqueue(s.ctx, &domain.RecoveryTask{
		CoinID: coin.ID, Value: new(big.Int).Set(coin.Value),
		Owner: coin.Owner, EnqueuedAt: now, ReadyAt: now,
	}))

	directory := NewStaticDirectory(map[id.OwnerID]domain.OwnerProfile{
		"org-active": {Owner: "org-active", LastActiveAt: now.Add(-24 * time.Hour)},
	})
	engine := New(DefaultConfig(), s.queue, s.coins, s.state, directory,
		WithOutcome(fixedOutcome{success: true}))

	s.Require().NoError(engine.ProcessBatch(s.ctx))

	got, err := s.coins.Get(s.ctx, coin.ID)
	s.Require().NoError(err)
	s.Equal(domain.StrategyNetworkConsensus, got.RecoveredStrategy,
		"high value and recent activity select network consensus")
}
