// Package domain holds the shared model types for the compliance ledger.
// Keep these transport-agnostic so stores, services, and handlers can share
// them without import cycles.
package domain

import (
	"math/big"
	"time"

	id "probo/pkg/domain"
)

// DataType classifies submitted compliance data and selects the base value
// the valuation oracle starts from.
type DataType string

const (
	DataTypeCompliance  DataType = "COMPLIANCE_DATA"
	DataTypeAuditTrail  DataType = "AUDIT_TRAIL"
	DataTypeKYCRecord   DataType = "KYC_RECORD"
	DataTypeTransaction DataType = "TRANSACTION_RECORD"
	DataTypeOperational DataType = "OPERATIONAL_DATA"
	DataTypeTelemetry   DataType = "TELEMETRY"
)

// IsValid reports whether the data type is a known member of the enum.
func (t DataType) IsValid() bool {
	switch t {
	case DataTypeCompliance, DataTypeAuditTrail, DataTypeKYCRecord,
		DataTypeTransaction, DataTypeOperational, DataTypeTelemetry:
		return true
	}
	return false
}

// ComplianceTagged reports whether the type counts as compliance evidence,
// which pins the relevance factor to its maximum during valuation.
func (t DataType) ComplianceTagged() bool {
	switch t {
	case DataTypeCompliance, DataTypeAuditTrail, DataTypeKYCRecord:
		return true
	}
	return false
}

// HashLayer records one link of the commitment hash chain.
type HashLayer struct {
	Algorithm string `json:"algorithm"`
	Digest    string `json:"digest"` // hex
}

// SignatureRecord is one provenance signature over the final hash layer.
// Signatures attest who produced the footprint; they are not part of the
// commitment determinism contract.
type SignatureRecord struct {
	Algorithm string `json:"algorithm"`
	PublicKey string `json:"public_key"` // hex
	Signature string `json:"signature"`  // hex
}

// MerkleProofStep is one sibling hash on the inclusion path. Left indicates
// the sibling sits to the left of the running hash.
type MerkleProofStep struct {
	Hash string `json:"hash"` // hex
	Left bool   `json:"left"`
}

// Footprint is a cryptographic commitment to submitted data plus its
// assessed information value. Immutable once created except for the Minted
// flag and an attached proof.
type Footprint struct {
	ID               id.FootprintID
	DataType         DataType
	Owner            id.OwnerID
	CreatedAt        time.Time
	Layers           []HashLayer
	Signatures       []SignatureRecord
	FinalCommitment  string // hex; pure function of (data, dataType)
	InformationValue *big.Int
	Minted           bool
	MerkleProof      []MerkleProofStep
	Period           string // UTC calendar day, e.g. "2026-09-01"
}
