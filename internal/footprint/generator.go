// Package footprint builds cryptographic commitments for submitted data.
// The commitment chains three independent hash algorithms so a break in any
// single algorithm does not void the commitment, then attaches two
// provenance signatures over the final layer.
package footprint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"golang.org/x/crypto/sha3"
	"lukechampine.com/blake3"

	"probo/internal/domain"
	"probo/internal/oracle"
	id "probo/pkg/domain"
	dErrors "probo/pkg/domain-errors"
)

// Generator produces footprints. It is pure with respect to ledger state:
// Generate returns the struct and mutates nothing.
type Generator struct {
	oracle *oracle.Oracle
	signer Signer
	logger *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithSigner swaps the provenance signer. See Signer for why a deployment
// would bind long-term keys here.
func WithSigner(s Signer) Option {
	return func(g *Generator) { g.signer = s }
}

func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) { g.logger = logger }
}

// New builds a Generator around the valuation oracle.
func New(o *oracle.Oracle, opts ...Option) *Generator {
	g := &Generator{
		oracle: o,
		signer: NewEphemeralSigner(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate builds a footprint for the given data. The final commitment is a
// pure function of (data, dataType): re-running against an unchanged ledger
// reproduces it exactly. Signatures are regenerated per call and differ.
func (g *Generator) Generate(ctx context.Context, data []byte, dataType domain.DataType, owner id.OwnerID) (*domain.Footprint, error) {
	if len(data) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "empty data")
	}
	if !dataType.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid data type")
	}

	layers := hashLayers(data, dataType)
	commitment := layers[len(layers)-1].Digest

	now := time.Now().UTC()
	value, err := g.oracle.Value(ctx, data, dataType, commitment, now)
	if err != nil {
		return nil, err
	}

	finalDigest, err := hex.DecodeString(commitment)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "decode commitment")
	}
	sigs, err := g.signer.Sign(finalDigest)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "sign commitment")
	}

	fp := &domain.Footprint{
		ID:               id.NewFootprintID(),
		DataType:         dataType,
		Owner:            owner,
		CreatedAt:        now,
		Layers:           layers,
		Signatures:       sigs,
		FinalCommitment:  commitment,
		InformationValue: value,
		Period:           now.Format("2006-01-02"),
	}

	g.logger.DebugContext(ctx, "footprint generated",
		"footprint_id", fp.ID.String(),
		"data_type", string(dataType),
		"commitment", commitment,
	)
	return fp, nil
}

// hashLayers chains sha256 → sha3-256 → blake3-256. Each layer hashes the
// data concatenated with the previous layer's digest, plus the data type on
// the first layer so identical bytes under different types commit differently.
func hashLayers(data []byte, dataType domain.DataType) []domain.HashLayer {
	l1 := sha256.Sum256(append(append([]byte{}, data...), []byte(dataType)...))

	l2in := append(append([]byte{}, data...), l1[:]...)
	l2 := sha3.Sum256(l2in)

	l3in := append(append([]byte{}, data...), l2[:]...)
	l3 := blake3.Sum256(l3in)

	return []domain.HashLayer{
		{Algorithm: "sha256", Digest: hex.EncodeToString(l1[:])},
		{Algorithm: "sha3-256", Digest: hex.EncodeToString(l2[:])},
		{Algorithm: "blake3-256", Digest: hex.EncodeToString(l3[:])},
	}
}

// Commitment computes the final commitment for (data, dataType) without
// building a footprint. Lets callers pre-check duplicates cheaply.
func Commitment(data []byte, dataType domain.DataType) string {
	layers := hashLayers(data, dataType)
	return layers[len(layers)-1].Digest
}
