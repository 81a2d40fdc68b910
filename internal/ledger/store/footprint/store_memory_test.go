package footprint

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"probo/internal/domain"
	id "probo/pkg/domain"
	"probo/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *MemoryStore
}

func (s *MemoryStoreSuite) SetupSuite() {
	s.ctx = context.Background()
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewMemoryStore()
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func testFootprint(commitment, period string) *domain.Footprint {
	return &domain.Footprint{
		ID:               id.NewFootprintID(),
		DataType:         domain.DataTypeCompliance,
		Owner:            id.OwnerID("org-7"),
		CreatedAt:        time.Now().UTC(),
		FinalCommitment:  commitment,
		InformationValue: big.NewInt(7618),
		Period:           period,
	}
}

func (s *MemoryStoreSuite) TestInsertAndGet() {
	fp := testFootprint("aa11", "2026-09-01")
	s.Require().NoError(s.store.Insert(s.ctx, fp))

	found, err := s.store.Get(s.ctx, fp.ID)
	s.Require().NoError(err)
	s.Equal(fp.FinalCommitment, found.FinalCommitment)
	s.Equal(fp.Owner, found.Owner)

	s.Run("returned footprint is a copy", func() {
		found.InformationValue.SetInt64(1)
		again, err := s.store.Get(s.ctx, fp.ID)
		s.Require().NoError(err)
		s.Equal("7618", again.InformationValue.String())
	})

	s.Run("duplicate insert conflicts", func() {
		s.Require().ErrorIs(s.store.Insert(s.ctx, fp), sentinel.ErrConflict)
	})

	s.Run("missing footprint is not found", func() {
		_, err := s.store.Get(s.ctx, id.NewFootprintID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *MemoryStoreSuite) TestMarkMinted() {
	fp := testFootprint("bb22", "2026-09-01")
	s.Require().NoError(s.store.Insert(s.ctx, fp))

	s.Require().NoError(s.store.MarkMinted(s.ctx, fp.ID))

	found, err := s.store.Get(s.ctx, fp.ID)
	s.Require().NoError(err)
	s.True(found.Minted)

	s.Run("second mark reports already used", func() {
		s.Require().ErrorIs(s.store.MarkMinted(s.ctx, fp.ID), sentinel.ErrAlreadyUsed)
	})

	s.Run("unknown footprint is not found", func() {
		s.Require().ErrorIs(s.store.MarkMinted(s.ctx, id.NewFootprintID()), sentinel.ErrNotFound)
	})
}

func (s *MemoryStoreSuite) TestUnmarkMinted() {
	fp := testFootprint("dd44", "2026-09-01")
	s.Require().NoError(s.store.Insert(s.ctx, fp))
	s.Require().NoError(s.store.MarkMinted(s.ctx, fp.ID))

	s.Require().NoError(s.store.UnmarkMinted(s.ctx, fp.ID))

	found, err := s.store.Get(s.ctx, fp.ID)
	s.Require().NoError(err)
	s.False(found.Minted)

	s.Run("footprint is mintable again", func() {
		s.Require().NoError(s.store.MarkMinted(s.ctx, fp.ID))
	})

	s.Run("unmarking an unminted footprint is a no-op", func() {
		s.Require().NoError(s.store.UnmarkMinted(s.ctx, fp.ID))
		s.Require().NoError(s.store.UnmarkMinted(s.ctx, fp.ID))
	})

	s.Run("unknown footprint is not found", func() {
		s.Require().ErrorIs(s.store.UnmarkMinted(s.ctx, id.NewFootprintID()), sentinel.ErrNotFound)
	})
}

// TestMarkMintedRace drives concurrent mints of the same footprint; exactly
// one caller may win the flag transition.
func (s *MemoryStoreSuite) TestMarkMintedRace() {
	fp := testFootprint("cc33", "2026-09-01")
	s.Require().NoError(s.store.Insert(s.ctx, fp))

	const workers = 32
	var wg sync.WaitGroup
	wins := make(chan struct{}, workers)
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			if err := s.store.MarkMinted(s.ctx, fp.ID); err == nil {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	won := 0
	for range wins {
		won++
	}
	s.Equal(1, won, "exactly one concurrent caller wins the minted flag")
}

func (s *MemoryStoreSuite) TestListCommitmentsByPeriod() {
	s.Require().NoError(s.store.Insert(s.ctx, testFootprint("aa", "2026-09-01")))
	s.Require().NoError(s.store.Insert(s.ctx, testFootprint("bb", "2026-09-01")))
	s.Require().NoError(s.store.Insert(s.ctx, testFootprint("cc", "2026-09-02")))

	today, err := s.store.ListCommitmentsByPeriod(s.ctx, "2026-09-01")
	s.Require().NoError(err)
	s.Equal([]string{"aa", "bb"}, today)

	tomorrow, err := s.store.ListCommitmentsByPeriod(s.ctx, "2026-09-02")
	s.Require().NoError(err)
	s.Equal([]string{"cc"}, tomorrow)

	empty, err := s.store.ListCommitmentsByPeriod(s.ctx, "2026-09-03")
	s.Require().NoError(err)
	s.Empty(empty)
}

func (s *MemoryStoreSuite) TestHasCommitmentPrefix() {
	s.Require().NoError(s.store.Insert(s.ctx, testFootprint("deadbeef99", "2026-09-01")))

	dup, err := s.store.HasCommitmentPrefix(s.ctx, "deadbeef")
	s.Require().NoError(err)
	s.True(dup)

	none, err := s.store.HasCommitmentPrefix(s.ctx, "cafef00d")
	s.Require().NoError(err)
	s.False(none)
}

func (s *MemoryStoreSuite) TestCounts() {
	s.Require().NoError(s.store.Insert(s.ctx, testFootprint("aa", "2026-09-01")))

	telemetry := testFootprint("bb", "2026-09-01")
	telemetry.DataType = domain.DataTypeTelemetry
	s.Require().NoError(s.store.Insert(s.ctx, telemetry))

	total, err := s.store.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, total)

	tagged, err := s.store.CountByComplianceTag(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, tagged)
}

func (s *MemoryStoreSuite) TestSumInformationValue() {
	empty, err := s.store.SumInformationValue(s.ctx)
	s.Require().NoError(err)
	s.Equal("0", empty.String())

	s.Require().NoError(s.store.Insert(s.ctx, testFootprint("aa", "2026-09-01")))
	s.Require().NoError(s.store.Insert(s.ctx, testFootprint("bb", "2026-09-01")))

	sum, err := s.store.SumInformationValue(s.ctx)
	s.Require().NoError(err)
	s.Equal("15236", sum.String())
}
