package footprint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"probo/internal/domain"
	"probo/internal/platform/postgres"
	id "probo/pkg/domain"
	"probo/pkg/platform/sentinel"
)

// PostgresStore is the durable FootprintStore. Layers, signatures, and proof
// steps are stored as JSONB; the information value as NUMERIC rendered to a
// decimal string on the wire.
type PostgresStore struct {
	pool *postgres.Pool
}

// NewPostgresStore creates a footprint store backed by the given pool.
func NewPostgresStore(pool *postgres.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Schema is the DDL this store expects. Applied by migrations; exposed so
// integration tests can bootstrap a container database.
const Schema = `
CREATE TABLE IF NOT EXISTS footprints (
	id UUID PRIMARY KEY,
	data_type TEXT NOT NULL,
	owner_id TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	period TEXT NOT NULL,
	layers JSONB NOT NULL,
	signatures JSONB NOT NULL,
	final_commitment TEXT NOT NULL,
	information_value NUMERIC NOT NULL,
	minted BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS footprints_period_idx ON footprints (period);
CREATE INDEX IF NOT EXISTS footprints_commitment_idx ON footprints (final_commitment text_pattern_ops);
`

func (s *PostgresStore) Insert(ctx context.Context, fp *domain.Footprint) error {
	layers, err := json.Marshal(fp.Layers)
	if err != nil {
		return fmt.Errorf("marshal layers: %w", err)
	}
	sigs, err := json.Marshal(fp.Signatures)
	if err != nil {
		return fmt.Errorf("marshal signatures: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO footprints
			(id, data_type, owner_id, created_at, period, layers, signatures, final_commitment, information_value, minted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::numeric, $10)`,
		fp.ID.String(), string(fp.DataType), fp.Owner.String(), fp.CreatedAt, fp.Period,
		layers, sigs, fp.FinalCommitment, fp.InformationValue.String(), fp.Minted,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("%w: insert footprint: %v", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, fpID id.FootprintID) (*domain.Footprint, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, data_type, owner_id, created_at, period, layers, signatures, final_commitment, information_value::text, minted
		FROM footprints WHERE id = $1`, fpID.String())
	return scanFootprint(row)
}

// MarkMinted relies on the row-level predicate for linearizability: the
// UPDATE only matches an unminted row, so exactly one concurrent caller
// observes a rows-affected count of one.
func (s *PostgresStore) MarkMinted(ctx context.Context, fpID id.FootprintID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE footprints SET minted = TRUE WHERE id = $1 AND minted = FALSE`, fpID.String())
	if err != nil {
		return fmt.Errorf("%w: mark minted: %v", sentinel.ErrUnavailable, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	// Zero rows: either already minted or missing.
	var minted bool
	err = s.pool.QueryRow(ctx, `SELECT minted FROM footprints WHERE id = $1`, fpID.String()).Scan(&minted)
	if errors.Is(err, pgx.ErrNoRows) {
		return sentinel.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: mark minted recheck: %v", sentinel.ErrUnavailable, err)
	}
	return sentinel.ErrAlreadyUsed
}

// UnmarkMinted reverses MarkMinted so a footprint whose coin write failed
// can be minted again. Unminted rows are a no-op.
func (s *PostgresStore) UnmarkMinted(ctx context.Context, fpID id.FootprintID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE footprints SET minted = FALSE WHERE id = $1 AND minted = TRUE`, fpID.String())
	if err != nil {
		return fmt.Errorf("%w: unmark minted: %v", sentinel.ErrUnavailable, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	err = s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM footprints WHERE id = $1)`, fpID.String()).Scan(&exists)
	if err != nil {
		return fmt.Errorf("%w: unmark minted recheck: %v", sentinel.ErrUnavailable, err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListCommitmentsByPeriod(ctx context.Context, period string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT final_commitment FROM footprints WHERE period = $1 ORDER BY created_at, id`, period)
	if err != nil {
		return nil, fmt.Errorf("%w: list commitments: %v", sentinel.ErrUnavailable, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan commitment: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) HasCommitmentPrefix(ctx context.Context, prefix string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM footprints WHERE final_commitment LIKE $1 || '%')`, prefix).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: commitment prefix check: %v", sentinel.ErrUnavailable, err)
	}
	return exists, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM footprints`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count footprints: %v", sentinel.ErrUnavailable, err)
	}
	return n, nil
}

func (s *PostgresStore) CountByComplianceTag(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM footprints WHERE data_type = ANY($1)`,
		[]string{
			string(domain.DataTypeCompliance),
			string(domain.DataTypeAuditTrail),
			string(domain.DataTypeKYCRecord),
		}).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: count compliance footprints: %v", sentinel.ErrUnavailable, err)
	}
	return n, nil
}

func (s *PostgresStore) SumInformationValue(ctx context.Context) (*big.Int, error) {
	var sumStr string
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(information_value), 0)::text FROM footprints`).Scan(&sumStr)
	if err != nil {
		return nil, fmt.Errorf("%w: sum information value: %v", sentinel.ErrUnavailable, err)
	}
	sum, ok := new(big.Int).SetString(sumStr, 10)
	if !ok {
		return nil, fmt.Errorf("parse information value sum %q", sumStr)
	}
	return sum, nil
}

func scanFootprint(row pgx.Row) (*domain.Footprint, error) {
	var (
		fp       domain.Footprint
		fpIDStr  string
		dataType string
		owner    string
		layers   []byte
		sigs     []byte
		valueStr string
	)
	err := row.Scan(&fpIDStr, &dataType, &owner, &fp.CreatedAt, &fp.Period,
		&layers, &sigs, &fp.FinalCommitment, &valueStr, &fp.Minted)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: scan footprint: %v", sentinel.ErrUnavailable, err)
	}

	fpID, err := id.ParseFootprintID(fpIDStr)
	if err != nil {
		return nil, fmt.Errorf("parse stored footprint id: %w", err)
	}
	fp.ID = fpID
	fp.DataType = domain.DataType(dataType)
	fp.Owner = id.OwnerID(owner)

	if err := json.Unmarshal(layers, &fp.Layers); err != nil {
		return nil, fmt.Errorf("unmarshal layers: %w", err)
	}
	if err := json.Unmarshal(sigs, &fp.Signatures); err != nil {
		return nil, fmt.Errorf("unmarshal signatures: %w", err)
	}

	value, ok := new(big.Int).SetString(valueStr, 10)
	if !ok {
		return nil, fmt.Errorf("parse stored information value %q", valueStr)
	}
	fp.InformationValue = value
	return &fp, nil
}
