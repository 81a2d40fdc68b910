package security

import (
	"context"
	"log/slog"
	"math/big"
	"time"

	"github.com/benbjohnson/clock"

	"probo/internal/ledger"
	ledgerports "probo/internal/ledger/ports"
	"probo/internal/security/metrics"
)

// ComplianceRefresher recomputes the compliance score from ledger aggregates
// on a fixed interval. Read-only: it folds the score into the ledger state
// and touches nothing else.
type ComplianceRefresher struct {
	footprints ledgerports.FootprintStore
	coins      ledgerports.CoinStore
	state      *ledger.State
	metrics    *metrics.Metrics
	logger     *slog.Logger
	clock      clock.Clock
	interval   time.Duration
}

// NewComplianceRefresher builds a refresher running every interval.
func NewComplianceRefresher(footprints ledgerports.FootprintStore, coins ledgerports.CoinStore, state *ledger.State, interval time.Duration, opts ...MonitorOption) *ComplianceRefresher {
	// Reuse monitor options through a shim so both observers configure the
	// same way in main.
	shim := &Monitor{logger: slog.Default(), clock: clock.New()}
	for _, opt := range opts {
		opt(shim)
	}
	return &ComplianceRefresher{
		footprints: footprints,
		coins:      coins,
		state:      state,
		metrics:    shim.metrics,
		logger:     shim.logger,
		clock:      shim.clock,
		interval:   interval,
	}
}

// Run refreshes on the configured interval until ctx is cancelled.
func (r *ComplianceRefresher) Run(ctx context.Context) error {
	ticker := r.clock.Ticker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.Refresh(ctx); err != nil {
				r.logger.ErrorContext(ctx, "compliance refresh failed", "error", err.Error())
			}
		}
	}
}

// Refresh recomputes the score once. The score blends the share of
// compliance-tagged footprints (weight 70) with recovery health (weight 30):
// a ledger full of compliance evidence whose recovery pipeline is keeping up
// scores 100.
func (r *ComplianceRefresher) Refresh(ctx context.Context) error {
	total, err := r.footprints.Count(ctx)
	if err != nil {
		return err
	}
	if total == 0 {
		r.state.SetComplianceScore(100)
		r.metrics.SetComplianceScore(100)
		return nil
	}

	tagged, err := r.footprints.CountByComplianceTag(ctx)
	if err != nil {
		return err
	}
	taggedShare := float64(tagged) / float64(total)

	snap := r.state.Snapshot()
	recoveryHealth := 1.0
	if snap.Total.Sign() > 0 {
		// Recovered share of total supply, full marks from 50% up.
		ratio, _ := new(big.Rat).SetFrac(snap.Recovered, snap.Total).Float64()
		recoveryHealth = ratio * 2
		if recoveryHealth > 1 {
			recoveryHealth = 1
		}
	}

	score := 70*taggedShare + 30*recoveryHealth
	r.state.SetComplianceScore(score)
	r.metrics.SetComplianceScore(score)

	r.logger.DebugContext(ctx, "compliance score refreshed", "score", score)
	return nil
}
