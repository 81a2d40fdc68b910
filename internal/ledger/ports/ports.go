// Package ports defines the store interfaces shared by the ledger, mint,
// recovery, and security modules. Interfaces live here when consumed by more
// than one service to avoid duplication.
package ports

import (
	"context"
	"math/big"
	"time"

	"probo/internal/domain"
	id "probo/pkg/domain"
)

// FootprintStore persists footprints. Implementations return
// pkg/platform/sentinel errors for factual store states.
type FootprintStore interface {
	// Insert appends a new footprint. Returns sentinel.ErrConflict when the
	// ID already exists.
	Insert(ctx context.Context, fp *domain.Footprint) error

	// Get returns the footprint or sentinel.ErrNotFound.
	Get(ctx context.Context, fpID id.FootprintID) (*domain.Footprint, error)

	// MarkMinted atomically flips the minted flag false→true. Returns
	// sentinel.ErrAlreadyUsed if the footprint was already minted and
	// sentinel.ErrNotFound if it does not exist. This is the linearization
	// point for mint idempotency.
	MarkMinted(ctx context.Context, fpID id.FootprintID) error

	// UnmarkMinted flips the minted flag back to false. Compensation for a
	// mint whose coin write failed after MarkMinted succeeded; the footprint
	// becomes mintable again. Idempotent: unmarking an unminted footprint is
	// a no-op. Returns sentinel.ErrNotFound if the footprint does not exist.
	UnmarkMinted(ctx context.Context, fpID id.FootprintID) error

	// ListCommitmentsByPeriod returns the commitments recorded in a period,
	// in store order. The ledger sorts before building the tree.
	ListCommitmentsByPeriod(ctx context.Context, period string) ([]string, error)

	// HasCommitmentPrefix reports whether any stored commitment shares the
	// given hex prefix. Feeds the oracle uniqueness factor.
	HasCommitmentPrefix(ctx context.Context, prefix string) (bool, error)

	// Count returns the total number of stored footprints.
	Count(ctx context.Context) (int, error)

	// CountByComplianceTag returns how many stored footprints carry a
	// compliance-tagged data type. Feeds the compliance score refresher.
	CountByComplianceTag(ctx context.Context) (int, error)

	// SumInformationValue returns the sum of all stored information values.
	// Feeds counter rehydration at boot.
	SumInformationValue(ctx context.Context) (*big.Int, error)
}

// CoinStore persists coins.
type CoinStore interface {
	// Insert appends a new coin. Returns sentinel.ErrConflict when the ID
	// already exists.
	Insert(ctx context.Context, c *domain.Coin) error

	// Get returns the coin or sentinel.ErrNotFound.
	Get(ctx context.Context, coinID id.CoinID) (*domain.Coin, error)

	// MarkRecovered atomically transitions the coin to recovered. Returns
	// sentinel.ErrAlreadyUsed if the coin was already recovered and
	// sentinel.ErrNotFound if it does not exist.
	MarkRecovered(ctx context.Context, coinID id.CoinID, strategy domain.Strategy, at time.Time) error

	// CountRecovered returns how many coins have been recovered.
	CountRecovered(ctx context.Context) (int, error)

	// RecentValues returns the values of the most recently minted coins,
	// newest first, up to n. Feeds the security monitor's trailing average.
	RecentValues(ctx context.Context, n int) ([]*big.Int, error)

	// SupplyTotals returns the sum of all coin values and the sum of
	// recovered coin values. Feeds counter rehydration at boot: durable
	// coins outlive the in-memory supply counters across restarts.
	SupplyTotals(ctx context.Context) (total, recovered *big.Int, err error)
}
