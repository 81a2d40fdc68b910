package domain

import (
	"math/big"
	"time"

	id "probo/pkg/domain"
)

// RecoveryState tracks where a coin sits in the recovery lifecycle.
type RecoveryState string

const (
	RecoverySecure    RecoveryState = "secure"
	RecoveryQueued    RecoveryState = "queued"
	RecoveryRecovered RecoveryState = "recovered"
)

// Coin is a minted, ownable unit of value derived from exactly one footprint.
// Value is copied from the footprint's information value at mint time and
// frozen thereafter.
type Coin struct {
	ID            id.CoinID
	FootprintID   id.FootprintID
	Owner         id.OwnerID
	Value         *big.Int
	MintedAt      time.Time
	RecoveryState RecoveryState

	// Set when RecoveryState is RecoveryRecovered.
	RecoveredAt       time.Time
	RecoveredStrategy Strategy
}
