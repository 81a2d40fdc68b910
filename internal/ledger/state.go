package ledger

import (
	"math/big"
	"sync"

	"probo/internal/domain"
	"probo/pkg/platform/sentinel"
)

// State is the single owned home of the process-wide ledger counters. All
// mutation goes through serialized methods, and every mutation re-checks the
// conservation invariant circulating + recovered == total before committing.
type State struct {
	mu sync.Mutex

	total            *big.Int
	circulating      *big.Int
	recovered        *big.Int
	informationTotal *big.Int

	complianceScore float64
	securityScore   float64
}

// NewState returns a zeroed ledger state.
func NewState() *State {
	return &State{
		total:            new(big.Int),
		circulating:      new(big.Int),
		recovered:        new(big.Int),
		informationTotal: new(big.Int),
		complianceScore:  100,
		securityScore:    100,
	}
}

// Rehydrate seeds the counters from durable store sums at boot, so a restart
// against persistent stores does not restart supply at zero while coins and
// queued recovery tasks survive. Circulating is derived as total − recovered;
// a recovered sum exceeding total means the store is corrupt and is rejected.
func (s *State) Rehydrate(total, recovered, informationTotal *big.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if recovered.Cmp(total) > 0 {
		return sentinel.ErrInvalidState
	}
	s.total.Set(total)
	s.recovered.Set(recovered)
	s.circulating.Sub(total, recovered)
	s.informationTotal.Set(informationTotal)
	return s.checkConservation()
}

// RecordStore adds a footprint's information value to the running total.
func (s *State) RecordStore(value *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.informationTotal.Add(s.informationTotal, value)
}

// RecordMint adds a freshly minted coin's value to both supply counters.
// Callers must have already won the minted-flag transition; this method is
// called exactly once per coin.
func (s *State) RecordMint(value *big.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total.Add(s.total, value)
	s.circulating.Add(s.circulating, value)
	return s.checkConservation()
}

// RecordRecovery removes a recovered coin's value from circulation. Total
// supply is untouched.
func (s *State) RecordRecovery(value *big.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.circulating.Sub(s.circulating, value)
	s.recovered.Add(s.recovered, value)
	return s.checkConservation()
}

// SetComplianceScore clamps and records the compliance score.
func (s *State) SetComplianceScore(score float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.complianceScore = clamp(score)
}

// SetSecurityScore clamps and records the security score.
func (s *State) SetSecurityScore(score float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.securityScore = clamp(score)
}

// Snapshot returns a consistent copy of the counters.
func (s *State) Snapshot() domain.SupplySnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.SupplySnapshot{
		Total:            new(big.Int).Set(s.total),
		Circulating:      new(big.Int).Set(s.circulating),
		InformationTotal: new(big.Int).Set(s.informationTotal),
		Recovered:        new(big.Int).Set(s.recovered),
	}
}

// Scores returns the current compliance and security scores.
func (s *State) Scores() (compliance, security float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.complianceScore, s.securityScore
}

// checkConservation must be called with the lock held.
func (s *State) checkConservation() error {
	sum := new(big.Int).Add(s.circulating, s.recovered)
	if sum.Cmp(s.total) != 0 {
		return sentinel.ErrInvalidState
	}
	return nil
}

func clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
