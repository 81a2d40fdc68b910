package oracle

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"probo/internal/domain"
	dErrors "probo/pkg/domain-errors"
)

type staticView struct {
	dup bool
	err error
}

func (v staticView) HasCommitmentPrefix(ctx context.Context, prefix string) (bool, error) {
	return v.dup, v.err
}

type OracleSuite struct {
	suite.Suite
	ctx context.Context
}

func (s *OracleSuite) SetupSuite() {
	s.ctx = context.Background()
}

func TestOracleSuite(t *testing.T) {
	suite.Run(t, new(OracleSuite))
}

const testCommitment = "d2c1a9f40e7b3c5612348765fedcba980123456789abcdef0123456789abcdef"

func (s *OracleSuite) TestDeterminism() {
	o := New(staticView{})
	data := []byte("KYC passed for user U1")
	now := time.Now()

	first, err := o.Value(s.ctx, data, domain.DataTypeCompliance, testCommitment, now)
	s.Require().NoError(err)
	second, err := o.Value(s.ctx, data, domain.DataTypeCompliance, testCommitment, now)
	s.Require().NoError(err)

	s.Zero(first.Cmp(second), "identical inputs against an unchanged view must value identically")
}

func (s *OracleSuite) TestComplianceDataHasPositiveValue() {
	o := New(staticView{})
	v, err := o.Value(s.ctx, []byte("KYC passed for user U1"), domain.DataTypeCompliance, testCommitment, time.Now())
	s.Require().NoError(err)
	s.Equal(1, v.Sign(), "fresh compliance evidence must carry positive value")
}

func (s *OracleSuite) TestValueBounds() {
	o := New(staticView{})
	now := time.Now()

	for dt, base := range baseValues {
		s.Run(string(dt), func() {
			v, err := o.Value(s.ctx, []byte("aml audit consent regulation sanction evidence payload with enough length to score"), dt, testCommitment, now)
			s.Require().NoError(err)
			s.True(v.Sign() >= 0)
			s.True(v.Cmp(big.NewInt(base)) <= 0, "every factor is ≤ 1.0 so value never exceeds base")
		})
	}
}

func (s *OracleSuite) TestTypeOrdering() {
	// Same payload, compliance-tagged types must outrank telemetry.
	o := New(staticView{})
	data := []byte("kyc audit compliance record for subject 42, reviewed and approved")
	now := time.Now()

	compliance, err := o.Value(s.ctx, data, domain.DataTypeCompliance, testCommitment, now)
	s.Require().NoError(err)
	telemetry, err := o.Value(s.ctx, data, domain.DataTypeTelemetry, testCommitment, now)
	s.Require().NoError(err)

	s.Equal(1, compliance.Cmp(telemetry))
}

func (s *OracleSuite) TestDuplicateCommitmentHalvesUniqueness() {
	data := []byte("kyc audit compliance record for subject 42, reviewed and approved")
	now := time.Now()

	unique, err := New(staticView{dup: false}).Value(s.ctx, data, domain.DataTypeCompliance, testCommitment, now)
	s.Require().NoError(err)
	dup, err := New(staticView{dup: true}).Value(s.ctx, data, domain.DataTypeCompliance, testCommitment, now)
	s.Require().NoError(err)

	s.Equal(1, unique.Cmp(dup), "near-duplicate data must value below unique data")

	// The half-uniqueness factor lands the duplicate at floor(unique/2).
	doubled := new(big.Int).Mul(dup, big.NewInt(2))
	diff := new(big.Int).Sub(unique, doubled)
	s.True(diff.Sign() >= 0 && diff.Cmp(big.NewInt(1)) <= 0)
}

func (s *OracleSuite) TestKeywordRelevance() {
	o := New(staticView{})
	now := time.Now()

	keyworded, err := o.Value(s.ctx, []byte("routine telemetry mentioning aml and sanction screening results"), domain.DataTypeTelemetry, testCommitment, now)
	s.Require().NoError(err)
	plain, err := o.Value(s.ctx, []byte("routine telemetry with fan speeds and temperatures for rack nine"), domain.DataTypeTelemetry, testCommitment, now)
	s.Require().NoError(err)

	s.Equal(1, keyworded.Cmp(plain))
	s.Equal(1, plain.Sign(), "untagged data without keywords still has a value floor")
}

func (s *OracleSuite) TestTimelinessDecay() {
	o := New(staticView{})
	data := []byte("kyc record 42")

	fresh, err := o.Value(s.ctx, data, domain.DataTypeKYCRecord, testCommitment, time.Now())
	s.Require().NoError(err)
	stale, err := o.Value(s.ctx, data, domain.DataTypeKYCRecord, testCommitment, time.Now().Add(-60*24*time.Hour))
	s.Require().NoError(err)

	s.Equal(1, fresh.Cmp(stale), "backdated submissions score below fresh ones")
}

func (s *OracleSuite) TestInvalidInput() {
	o := New(staticView{})

	s.Run("empty data", func() {
		_, err := o.Value(s.ctx, nil, domain.DataTypeCompliance, testCommitment, time.Now())
		s.Require().Error(err)
		s.True(dErrors.Is(err, dErrors.CodeInvalidInput))
	})

	s.Run("unknown data type", func() {
		_, err := o.Value(s.ctx, []byte("x"), domain.DataType("BOGUS"), testCommitment, time.Now())
		s.Require().Error(err)
		s.True(dErrors.Is(err, dErrors.CodeInvalidInput))
	})
}

func (s *OracleSuite) TestViewFailurePropagates() {
	o := New(staticView{err: context.DeadlineExceeded})
	_, err := o.Value(s.ctx, []byte("x"), domain.DataTypeCompliance, testCommitment, time.Now())
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeUnavailable))
}

func (s *OracleSuite) TestNilViewTreatsDataAsUnique() {
	o := New(nil)
	v, err := o.Value(s.ctx, []byte("kyc record"), domain.DataTypeKYCRecord, testCommitment, time.Now())
	s.Require().NoError(err)
	s.Equal(1, v.Sign())
}
