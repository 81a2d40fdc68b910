package recovery

import (
	"context"
	"math/rand"
	"sync"

	"probo/internal/domain"
	"probo/internal/recovery/ports"
)

// StochasticOutcome resolves strategy attempts against the documented
// success-rate tiers using a seedable generator, so runs are reproducible
// when a fixed seed is supplied. This stands in for the external outreach a
// real deployment would perform; swapping in an implementation with real I/O
// requires a bounded timeout per attempt, with timeout treated as failure.
type StochasticOutcome struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewStochasticOutcome builds an outcome roller from a seed.
func NewStochasticOutcome(seed int64) *StochasticOutcome {
	return &StochasticOutcome{rng: rand.New(rand.NewSource(seed))}
}

func (o *StochasticOutcome) Attempt(ctx context.Context, task *domain.RecoveryTask, strategy domain.Strategy) (bool, error) {
	profile, ok := Profiles[strategy]
	if !ok {
		return false, nil
	}
	o.mu.Lock()
	roll := o.rng.Float64()
	o.mu.Unlock()
	return roll < profile.SuccessRate, nil
}

var _ ports.Outcome = (*StochasticOutcome)(nil)
