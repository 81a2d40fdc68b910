// Package oracle converts submitted data into an information value. The
// computation is fully deterministic: identical (data, dataType) against an
// unchanged ledger view always yields the same value. All arithmetic is
// big.Int over basis-point factors; no floats anywhere on the value path.
package oracle

import (
	"bytes"
	"context"
	"math/big"
	"time"
	"unicode"

	"probo/internal/domain"
	dErrors "probo/pkg/domain-errors"
)

// bps is the fixed-point scale for scoring factors: 10000 == 1.0.
const bps = 10000

// uniquePrefixLen is the commitment prefix length (hex chars) compared when
// checking for near-duplicates.
const uniquePrefixLen = 8

// baseValues fixes the per-type starting value in integer units.
// Compliance-tagged types weigh highest.
var baseValues = map[domain.DataType]int64{
	domain.DataTypeCompliance:  10000,
	domain.DataTypeKYCRecord:   9000,
	domain.DataTypeAuditTrail:  8000,
	domain.DataTypeTransaction: 5000,
	domain.DataTypeOperational: 2000,
	domain.DataTypeTelemetry:   1000,
}

// complianceKeywords drive the relevance factor for non-compliance-tagged
// types. Each match adds matchWeight, capped below the tagged maximum.
var complianceKeywords = [][]byte{
	[]byte("kyc"), []byte("aml"), []byte("audit"), []byte("compliance"),
	[]byte("regulation"), []byte("sanction"), []byte("consent"), []byte("gdpr"),
}

const (
	matchWeight       = 1500
	relevanceUncapped = 9000 // keyword relevance never reaches the tagged 10000
)

// LedgerView is the read-only ledger surface the uniqueness factor needs.
type LedgerView interface {
	// HasCommitmentPrefix reports whether any stored footprint commitment
	// shares the given hex prefix.
	HasCommitmentPrefix(ctx context.Context, prefix string) (bool, error)
}

// Oracle computes information values against a ledger view.
type Oracle struct {
	view LedgerView
}

// New builds an Oracle. A nil view treats every commitment as unique; only
// tests should run without a ledger behind the oracle.
func New(view LedgerView) *Oracle {
	return &Oracle{view: view}
}

// Value computes the information value for data of the given type whose
// commitment has already been derived. commitment is the hex final commitment
// and feeds the uniqueness factor.
func (o *Oracle) Value(ctx context.Context, data []byte, dataType domain.DataType, commitment string, createdAt time.Time) (*big.Int, error) {
	if len(data) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "empty data")
	}
	if !dataType.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid data type")
	}

	base := big.NewInt(baseValues[dataType])

	quality := qualityScore(data, createdAt)
	uniqueness, err := o.uniquenessScore(ctx, commitment)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "ledger view unavailable")
	}
	relevance := complianceRelevance(data, dataType)

	// value = base × quality × uniqueness × relevance, each factor in
	// basis points, so divide the product back down by bps³.
	v := new(big.Int).Mul(base, big.NewInt(quality))
	v.Mul(v, big.NewInt(uniqueness))
	v.Mul(v, big.NewInt(relevance))
	v.Div(v, big.NewInt(bps*bps))
	v.Div(v, big.NewInt(bps))
	return v, nil
}

// qualityScore averages four bounded heuristics, each in [0, bps].
func qualityScore(data []byte, createdAt time.Time) int64 {
	c := completeness(data)
	a := accuracyProxy(data)
	s := consistencyProxy(data)
	t := timelinessProxy(createdAt)
	return (c + a + s + t) / 4
}

// completeness rewards payload length up to 200 bytes.
func completeness(data []byte) int64 {
	score := int64(len(data)) * 50
	if score > bps {
		return bps
	}
	return score
}

// accuracyProxy is the printable-byte ratio. Binary noise scores low.
func accuracyProxy(data []byte) int64 {
	printable := 0
	for _, b := range data {
		if b == '\n' || b == '\t' || unicode.IsPrint(rune(b)) {
			printable++
		}
	}
	return int64(printable) * bps / int64(len(data))
}

// consistencyProxy rewards moderate symbol diversity: a payload of one
// repeated byte or of uniformly random bytes both score below structured text.
func consistencyProxy(data []byte) int64 {
	var seen [256]bool
	distinct := 0
	for _, b := range data {
		if !seen[b] {
			seen[b] = true
			distinct++
		}
	}
	// Full marks at 16+ distinct symbols.
	score := int64(distinct) * bps / 16
	if score > bps {
		return bps
	}
	return score
}

// timelinessProxy scores how fresh the submission timestamp is. Footprints
// are valued at store time, so this is bps unless a caller backdates. Decays
// linearly from full marks at one hour to half marks at thirty days.
func timelinessProxy(createdAt time.Time) int64 {
	age := time.Since(createdAt)
	if age <= time.Hour {
		return bps
	}
	span := 30*24*time.Hour - time.Hour
	if age >= 30*24*time.Hour {
		return bps / 2
	}
	return bps - int64(age-time.Hour)*(bps/2)/int64(span)
}

// uniquenessScore returns full marks unless a near-duplicate commitment
// prefix already exists in the ledger.
func (o *Oracle) uniquenessScore(ctx context.Context, commitment string) (int64, error) {
	if o.view == nil || len(commitment) < uniquePrefixLen {
		return bps, nil
	}
	dup, err := o.view.HasCommitmentPrefix(ctx, commitment[:uniquePrefixLen])
	if err != nil {
		return 0, err
	}
	if dup {
		return bps / 2, nil
	}
	return bps, nil
}

// complianceRelevance pins compliance-tagged types to full relevance and
// scores everything else by keyword match, capped below the tagged maximum.
func complianceRelevance(data []byte, dataType domain.DataType) int64 {
	if dataType.ComplianceTagged() {
		return bps
	}
	lower := bytes.ToLower(data)
	var score int64
	for _, kw := range complianceKeywords {
		if bytes.Contains(lower, kw) {
			score += matchWeight
		}
	}
	if score > relevanceUncapped {
		return relevanceUncapped
	}
	if score == 0 {
		// Untagged data with no compliance signal still has some value.
		return bps / 4
	}
	return score
}
