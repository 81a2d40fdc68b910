package security

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"probo/internal/domain"
	"probo/internal/ledger"
	coinstore "probo/internal/ledger/store/coin"
	id "probo/pkg/domain"
)

// approveAll applies every recorded advancement. Tests use it to exercise
// the score bonus path; production runs NoopApprover.
type approveAll struct{}

func (approveAll) Approve(ctx context.Context, adv domain.Advancement) (bool, error) {
	return true, nil
}

type MonitorSuite struct {
	suite.Suite
	ctx   context.Context
	coins *coinstore.MemoryStore
	state *ledger.State
}

func (s *MonitorSuite) SetupSuite() {
	s.ctx = context.Background()
}

func (s *MonitorSuite) SetupTest() {
	s.coins = coinstore.NewMemoryStore()
	s.state = ledger.NewState()
}

func TestMonitorSuite(t *testing.T) {
	suite.Run(t, new(MonitorSuite))
}

func (s *MonitorSuite) insertCoin(value int64) {
	s.Require().NoError(s.coins.Insert(s.ctx, &domain.Coin{
		ID:            id.NewCoinID(),
		FootprintID:   id.NewFootprintID(),
		Owner:         id.OwnerID("org-7"),
		Value:         big.NewInt(value),
		MintedAt:      time.Now().UTC(),
		RecoveryState: domain.RecoverySecure,
	}))
}

func (s *MonitorSuite) newMonitor(health StaticNodeHealth, opts ...MonitorOption) *Monitor {
	return NewMonitor(s.coins, s.state, health, time.Minute, opts...)
}

func healthyNodes() StaticNodeHealth {
	return StaticNodeHealth{Active: 10, Expected: 10}
}

func (s *MonitorSuite) TestQuietLedgerScoresFull() {
	for i := 0; i < 5; i++ {
		s.insertCoin(100)
	}
	m := s.newMonitor(healthyNodes())

	s.Require().NoError(m.Scan(s.ctx))

	status, err := m.Status(s.ctx)
	s.Require().NoError(err)
	s.Equal(float64(100), status.SecurityScore)
	s.Empty(status.ThreatsDetected)
	s.Zero(status.AdvancementsApplied)
}

func (s *MonitorSuite) TestAnomalousValueDetection() {
	s.Run("over 10x trailing average is high severity", func() {
		s.SetupTest()
		for i := 0; i < 5; i++ {
			s.insertCoin(100)
		}
		s.insertCoin(1500) // newest

		m := s.newMonitor(healthyNodes())
		s.Require().NoError(m.Scan(s.ctx))

		status, err := m.Status(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(status.ThreatsDetected, 1)
		s.Equal("high", status.ThreatsDetected[0].Severity)
		s.Equal("anomalous_transaction", status.ThreatsDetected[0].Kind)
		s.Equal(float64(95), status.SecurityScore)
	})

	s.Run("over 100x trailing average is critical", func() {
		s.SetupTest()
		for i := 0; i < 5; i++ {
			s.insertCoin(100)
		}
		s.insertCoin(50000) // newest

		m := s.newMonitor(healthyNodes())
		s.Require().NoError(m.Scan(s.ctx))

		status, err := m.Status(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(status.ThreatsDetected, 1)
		s.Equal("critical", status.ThreatsDetected[0].Severity)
		s.Equal(float64(90), status.SecurityScore)
	})

	s.Run("single coin has no trailing average to violate", func() {
		s.SetupTest()
		s.insertCoin(1000000)

		m := s.newMonitor(healthyNodes())
		s.Require().NoError(m.Scan(s.ctx))

		status, err := m.Status(s.ctx)
		s.Require().NoError(err)
		s.Empty(status.ThreatsDetected)
	})
}

func (s *MonitorSuite) TestDegradedNetworkDetection() {
	m := s.newMonitor(StaticNodeHealth{Active: 8, Expected: 10})
	s.Require().NoError(m.Scan(s.ctx))

	status, err := m.Status(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(status.ThreatsDetected, 1)
	s.Equal("degraded_network", status.ThreatsDetected[0].Kind)
	s.Equal("high", status.ThreatsDetected[0].Severity)
}

func (s *MonitorSuite) TestScoreFoldsIntoLedgerState() {
	m := s.newMonitor(StaticNodeHealth{Active: 5, Expected: 10})
	s.Require().NoError(m.Scan(s.ctx))

	_, security := s.state.Scores()
	s.Equal(float64(95), security)
}

// seedCriticalAnomaly arranges a scan score of 90: a critical transaction
// anomaly against healthy nodes, which sits below the advancement threshold.
func (s *MonitorSuite) seedCriticalAnomaly() {
	for i := 0; i < 5; i++ {
		s.insertCoin(100)
	}
	s.insertCoin(50000)
}

func (s *MonitorSuite) TestAdvancementsAreAdvisoryByDefault() {
	s.seedCriticalAnomaly()
	m := s.newMonitor(healthyNodes())

	s.Require().NoError(m.Scan(s.ctx))
	s.Require().NoError(m.Scan(s.ctx))

	status, err := m.Status(s.ctx)
	s.Require().NoError(err)
	s.Zero(status.AdvancementsApplied, "NoopApprover never applies proposals")
	s.Equal(float64(90), status.SecurityScore)
}

func (s *MonitorSuite) TestApprovedAdvancementsEarnScoreBonus() {
	s.seedCriticalAnomaly()
	m := s.newMonitor(healthyNodes(), WithApprover(approveAll{}))

	// First scan records and applies one advancement; the second scan's score
	// includes its bonus.
	s.Require().NoError(m.Scan(s.ctx))
	first, err := m.Status(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, first.AdvancementsApplied)
	s.Equal(float64(90), first.SecurityScore)

	s.Require().NoError(m.Scan(s.ctx))
	second, err := m.Status(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, second.AdvancementsApplied)
	s.Equal(float64(92), second.SecurityScore, "applied advancements earn two points each")
}
