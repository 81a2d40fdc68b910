package footprint

import (
	"context"
	"math/big"
	"strings"
	"sync"

	"probo/internal/domain"
	id "probo/pkg/domain"
	"probo/pkg/platform/sentinel"
)

// MemoryStore is the in-memory FootprintStore. It is the default store and
// the unit-test substrate; production deployments point at PostgresStore.
type MemoryStore struct {
	mu    sync.RWMutex
	byID  map[id.FootprintID]*domain.Footprint
	order []id.FootprintID // insertion order, for stable period listings
}

// NewMemoryStore creates an empty in-memory footprint store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID: make(map[id.FootprintID]*domain.Footprint),
	}
}

func (s *MemoryStore) Insert(ctx context.Context, fp *domain.Footprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[fp.ID]; exists {
		return sentinel.ErrConflict
	}
	s.byID[fp.ID] = copyFootprint(fp)
	s.order = append(s.order, fp.ID)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, fpID id.FootprintID) (*domain.Footprint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fp, ok := s.byID[fpID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyFootprint(fp), nil
}

// MarkMinted flips minted false→true under the write lock; this is the
// linearization point for mint idempotency in the memory store.
func (s *MemoryStore) MarkMinted(ctx context.Context, fpID id.FootprintID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fp, ok := s.byID[fpID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if fp.Minted {
		return sentinel.ErrAlreadyUsed
	}
	fp.Minted = true
	return nil
}

// UnmarkMinted reverses MarkMinted. Idempotent so a compensation retried
// after a partial failure cannot itself fail.
func (s *MemoryStore) UnmarkMinted(ctx context.Context, fpID id.FootprintID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fp, ok := s.byID[fpID]
	if !ok {
		return sentinel.ErrNotFound
	}
	fp.Minted = false
	return nil
}

func (s *MemoryStore) ListCommitmentsByPeriod(ctx context.Context, period string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for _, fpID := range s.order {
		if fp := s.byID[fpID]; fp.Period == period {
			out = append(out, fp.FinalCommitment)
		}
	}
	return out, nil
}

func (s *MemoryStore) HasCommitmentPrefix(ctx context.Context, prefix string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, fp := range s.byID {
		if strings.HasPrefix(fp.FinalCommitment, prefix) {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID), nil
}

func (s *MemoryStore) CountByComplianceTag(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, fp := range s.byID {
		if fp.DataType.ComplianceTagged() {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) SumInformationValue(ctx context.Context) (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum := new(big.Int)
	for _, fp := range s.byID {
		sum.Add(sum, fp.InformationValue)
	}
	return sum, nil
}

// copyFootprint deep-copies so callers can never mutate stored state through
// a returned pointer.
func copyFootprint(fp *domain.Footprint) *domain.Footprint {
	cp := *fp
	cp.Layers = append([]domain.HashLayer(nil), fp.Layers...)
	cp.Signatures = append([]domain.SignatureRecord(nil), fp.Signatures...)
	cp.MerkleProof = append([]domain.MerkleProofStep(nil), fp.MerkleProof...)
	if fp.InformationValue != nil {
		cp.InformationValue = new(big.Int).Set(fp.InformationValue)
	}
	return &cp
}
