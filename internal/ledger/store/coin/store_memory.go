package coin

import (
	"context"
	"math/big"
	"sync"
	"time"

	"probo/internal/domain"
	id "probo/pkg/domain"
	"probo/pkg/platform/sentinel"
)

// MemoryStore is the in-memory CoinStore.
type MemoryStore struct {
	mu    sync.RWMutex
	byID  map[id.CoinID]*domain.Coin
	order []id.CoinID // mint order, newest appended last
}

// NewMemoryStore creates an empty in-memory coin store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID: make(map[id.CoinID]*domain.Coin),
	}
}

func (s *MemoryStore) Insert(ctx context.Context, c *domain.Coin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[c.ID]; exists {
		return sentinel.ErrConflict
	}
	s.byID[c.ID] = copyCoin(c)
	s.order = append(s.order, c.ID)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, coinID id.CoinID) (*domain.Coin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byID[coinID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyCoin(c), nil
}

func (s *MemoryStore) MarkRecovered(ctx context.Context, coinID id.CoinID, strategy domain.Strategy, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[coinID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if c.RecoveryState == domain.RecoveryRecovered {
		return sentinel.ErrAlreadyUsed
	}
	c.RecoveryState = domain.RecoveryRecovered
	c.RecoveredAt = at
	c.RecoveredStrategy = strategy
	return nil
}

func (s *MemoryStore) CountRecovered(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, c := range s.byID {
		if c.RecoveryState == domain.RecoveryRecovered {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) RecentValues(ctx context.Context, n int) ([]*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*big.Int
	for i := len(s.order) - 1; i >= 0 && len(out) < n; i-- {
		c := s.byID[s.order[i]]
		out = append(out, new(big.Int).Set(c.Value))
	}
	return out, nil
}

func (s *MemoryStore) SupplyTotals(ctx context.Context) (total, recovered *big.Int, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total, recovered = new(big.Int), new(big.Int)
	for _, c := range s.byID {
		total.Add(total, c.Value)
		if c.RecoveryState == domain.RecoveryRecovered {
			recovered.Add(recovered, c.Value)
		}
	}
	return total, recovered, nil
}

func copyCoin(c *domain.Coin) *domain.Coin {
	cp := *c
	if c.Value != nil {
		cp.Value = new(big.Int).Set(c.Value)
	}
	return &cp
}
