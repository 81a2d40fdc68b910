package coin

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"probo/internal/domain"
	"probo/internal/platform/postgres"
	id "probo/pkg/domain"
	"probo/pkg/platform/sentinel"
)

// PostgresStore is the durable CoinStore.
type PostgresStore struct {
	pool *postgres.Pool
}

// NewPostgresStore creates a coin store backed by the given pool.
func NewPostgresStore(pool *postgres.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Schema is the DDL this store expects.
const Schema = `
CREATE TABLE IF NOT EXISTS coins (
	id UUID PRIMARY KEY,
	footprint_id UUID NOT NULL UNIQUE,
	owner_id TEXT NOT NULL,
	value NUMERIC NOT NULL,
	minted_at TIMESTAMPTZ NOT NULL,
	recovery_state TEXT NOT NULL,
	recovered_at TIMESTAMPTZ,
	recovered_strategy TEXT
);
CREATE INDEX IF NOT EXISTS coins_minted_at_idx ON coins (minted_at DESC);
`

func (s *PostgresStore) Insert(ctx context.Context, c *domain.Coin) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO coins (id, footprint_id, owner_id, value, minted_at, recovery_state)
		VALUES ($1, $2, $3, $4::numeric, $5, $6)`,
		c.ID.String(), c.FootprintID.String(), c.Owner.String(),
		c.Value.String(), c.MintedAt, string(c.RecoveryState),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("%w: insert coin: %v", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, coinID id.CoinID) (*domain.Coin, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, footprint_id, owner_id, value::text, minted_at, recovery_state, recovered_at, recovered_strategy
		FROM coins WHERE id = $1`, coinID.String())

	var (
		c          domain.Coin
		cIDStr     string
		fpIDStr    string
		owner      string
		valueStr   string
		state      string
		recAt      *time.Time
		recStrat   *string
	)
	err := row.Scan(&cIDStr, &fpIDStr, &owner, &valueStr, &c.MintedAt, &state, &recAt, &recStrat)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: scan coin: %v", sentinel.ErrUnavailable, err)
	}

	cID, err := id.ParseCoinID(cIDStr)
	if err != nil {
		return nil, fmt.Errorf("parse stored coin id: %w", err)
	}
	fpID, err := id.ParseFootprintID(fpIDStr)
	if err != nil {
		return nil, fmt.Errorf("parse stored footprint id: %w", err)
	}
	value, ok := new(big.Int).SetString(valueStr, 10)
	if !ok {
		return nil, fmt.Errorf("parse stored coin value %q", valueStr)
	}

	c.ID = cID
	c.FootprintID = fpID
	c.Owner = id.OwnerID(owner)
	c.Value = value
	c.RecoveryState = domain.RecoveryState(state)
	if recAt != nil {
		c.RecoveredAt = *recAt
	}
	if recStrat != nil {
		c.RecoveredStrategy = domain.Strategy(*recStrat)
	}
	return &c, nil
}

// MarkRecovered uses the same row-predicate pattern as the footprint minted
// flag so concurrent recovery attempts serialize in the database.
func (s *PostgresStore) MarkRecovered(ctx context.Context, coinID id.CoinID, strategy domain.Strategy, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE coins SET recovery_state = $1, recovered_at = $2, recovered_strategy = $3
		WHERE id = $4 AND recovery_state <> $1`,
		string(domain.RecoveryRecovered), at, string(strategy), coinID.String())
	if err != nil {
		return fmt.Errorf("%w: mark recovered: %v", sentinel.ErrUnavailable, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var state string
	err = s.pool.QueryRow(ctx, `SELECT recovery_state FROM coins WHERE id = $1`, coinID.String()).Scan(&state)
	if errors.Is(err, pgx.ErrNoRows) {
		return sentinel.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: mark recovered recheck: %v", sentinel.ErrUnavailable, err)
	}
	return sentinel.ErrAlreadyUsed
}

func (s *PostgresStore) CountRecovered(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM coins WHERE recovery_state = $1`,
		string(domain.RecoveryRecovered)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: count recovered: %v", sentinel.ErrUnavailable, err)
	}
	return n, nil
}

func (s *PostgresStore) SupplyTotals(ctx context.Context) (total, recovered *big.Int, err error) {
	var totalStr, recoveredStr string
	err = s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(value), 0)::text,
		       COALESCE(SUM(value) FILTER (WHERE recovery_state = $1), 0)::text
		FROM coins`,
		string(domain.RecoveryRecovered)).Scan(&totalStr, &recoveredStr)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: supply totals: %v", sentinel.ErrUnavailable, err)
	}

	total, ok := new(big.Int).SetString(totalStr, 10)
	if !ok {
		return nil, nil, fmt.Errorf("parse supply total %q", totalStr)
	}
	recovered, ok = new(big.Int).SetString(recoveredStr, 10)
	if !ok {
		return nil, nil, fmt.Errorf("parse recovered total %q", recoveredStr)
	}
	return total, recovered, nil
}

func (s *PostgresStore) RecentValues(ctx context.Context, n int) ([]*big.Int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT value::text FROM coins ORDER BY minted_at DESC LIMIT $1`, n)
	if err != nil {
		return nil, fmt.Errorf("%w: recent values: %v", sentinel.ErrUnavailable, err)
	}
	defer rows.Close()

	var out []*big.Int
	for rows.Next() {
		var valueStr string
		if err := rows.Scan(&valueStr); err != nil {
			return nil, fmt.Errorf("scan value: %w", err)
		}
		v, ok := new(big.Int).SetString(valueStr, 10)
		if !ok {
			return nil, fmt.Errorf("parse stored coin value %q", valueStr)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
