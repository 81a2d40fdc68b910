package domain

import (
	"math/big"
	"time"

	id "probo/pkg/domain"
)

// Strategy names one of the ranked recovery approaches. Selection is a
// deterministic policy over task value and owner profile.
type Strategy string

const (
	StrategyIncentiveBased     Strategy = "incentive_based"
	StrategyComplianceLeverage Strategy = "compliance_leverage"
	StrategyInformationValue   Strategy = "information_value"
	StrategyNetworkConsensus   Strategy = "network_consensus"
)

// CostTier is the documented cost band of a strategy.
type CostTier string

const (
	CostLow      CostTier = "LOW"
	CostMedium   CostTier = "MEDIUM"
	CostHigh     CostTier = "HIGH"
	CostVeryHigh CostTier = "VERY_HIGH"
)

// RecoveryTask is the unit of work the recovery engine drains. Exactly one
// task is enqueued per minted coin; retries re-enqueue the same task with
// Attempts incremented.
type RecoveryTask struct {
	CoinID       id.CoinID  `json:"coin_id"`
	Value        *big.Int   `json:"-"`
	RawValue     string     `json:"value"` // decimal string form of Value for queue payloads
	Owner        id.OwnerID `json:"owner"`
	EnqueuedAt   time.Time  `json:"enqueued_at"`
	Attempts     int        `json:"attempts"`
	LastStrategy Strategy   `json:"last_strategy,omitempty"`
	ReadyAt      time.Time  `json:"ready_at"`
}

// EncodeValue mirrors Value into RawValue before serialization.
func (t *RecoveryTask) EncodeValue() {
	if t.Value != nil {
		t.RawValue = t.Value.String()
	}
}

// DecodeValue restores Value from RawValue after deserialization.
func (t *RecoveryTask) DecodeValue() {
	v, ok := new(big.Int).SetString(t.RawValue, 10)
	if !ok {
		v = new(big.Int)
	}
	t.Value = v
}

// OwnerProfile carries the owner signals the strategy policy reads.
type OwnerProfile struct {
	Owner                    id.OwnerID
	ComplianceActionRequired bool
	LastActiveAt             time.Time
}

// RecentlyActive reports whether the owner was active within window of now.
func (p OwnerProfile) RecentlyActive(now time.Time, window time.Duration) bool {
	if p.LastActiveAt.IsZero() {
		return false
	}
	return now.Sub(p.LastActiveAt) <= window
}
