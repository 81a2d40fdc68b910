package recovery

import (
	"context"
	"math/big"
	"time"

	"probo/internal/domain"
	"probo/internal/recovery/ports"
	id "probo/pkg/domain"
)

// ValueThreshold splits low-value from high-value recoveries.
var ValueThreshold = big.NewInt(10000)

// RecentActivityWindow bounds what "recently active" means for owners.
const RecentActivityWindow = 30 * 24 * time.Hour

// StrategyProfile documents the success-probability tier and cost tier of a
// strategy. The probabilities drive the default stochastic outcome; the
// policy itself never rolls dice.
type StrategyProfile struct {
	SuccessRate float64
	Cost        domain.CostTier
}

// Profiles is the documented strategy table.
var Profiles = map[domain.Strategy]StrategyProfile{
	domain.StrategyIncentiveBased:     {SuccessRate: 0.30, Cost: domain.CostLow},
	domain.StrategyComplianceLeverage: {SuccessRate: 0.50, Cost: domain.CostMedium},
	domain.StrategyInformationValue:   {SuccessRate: 0.70, Cost: domain.CostHigh},
	domain.StrategyNetworkConsensus:   {SuccessRate: 0.80, Cost: domain.CostVeryHigh},
}

// Policy selects a strategy for a task. Implementations must be
// deterministic over (task, profile, now).
type Policy interface {
	Select(task *domain.RecoveryTask, profile domain.OwnerProfile, now time.Time) domain.Strategy
}

// TierPolicy is the default deterministic policy:
//
//	value ≤ threshold                         → incentive_based
//	owner has outstanding compliance action   → compliance_leverage
//	value > threshold, owner not recently active → information_value
//	value > threshold, owner recently active  → network_consensus
type TierPolicy struct{}

func (TierPolicy) Select(task *domain.RecoveryTask, profile domain.OwnerProfile, now time.Time) domain.Strategy {
	if task.Value.Cmp(ValueThreshold) <= 0 {
		if profile.ComplianceActionRequired {
			return domain.StrategyComplianceLeverage
		}
		return domain.StrategyIncentiveBased
	}
	if profile.ComplianceActionRequired {
		return domain.StrategyComplianceLeverage
	}
	if profile.RecentlyActive(now, RecentActivityWindow) {
		return domain.StrategyNetworkConsensus
	}
	return domain.StrategyInformationValue
}

// StaticDirectory is an in-memory OwnerDirectory. Owners absent from the map
// resolve to a zero profile (no compliance action, never active).
type StaticDirectory struct {
	profiles map[id.OwnerID]domain.OwnerProfile
}

// NewStaticDirectory builds a directory over the given profiles.
func NewStaticDirectory(profiles map[id.OwnerID]domain.OwnerProfile) *StaticDirectory {
	if profiles == nil {
		profiles = make(map[id.OwnerID]domain.OwnerProfile)
	}
	return &StaticDirectory{profiles: profiles}
}

func (d *StaticDirectory) Profile(ctx context.Context, owner id.OwnerID) (domain.OwnerProfile, error) {
	if p, ok := d.profiles[owner]; ok {
		return p, nil
	}
	return domain.OwnerProfile{Owner: owner}, nil
}

var _ ports.OwnerDirectory = (*StaticDirectory)(nil)
