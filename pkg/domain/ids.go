// Package domain holds typed identifiers shared across modules. Typed IDs
// prevent cross-type assignment at compile time; parse helpers enforce the
// invariant that IDs are valid, non-empty, non-nil UUIDs at trust boundaries.
package domain

import (
	"github.com/google/uuid"

	dErrors "probo/pkg/domain-errors"
)

// FootprintID identifies a stored footprint.
type FootprintID uuid.UUID

// CoinID identifies a minted coin.
type CoinID uuid.UUID

// OwnerID identifies the submitting party. Owners are external principals, so
// the ID is an opaque string rather than a UUID we control.
type OwnerID string

// NewFootprintID returns a fresh random FootprintID.
func NewFootprintID() FootprintID {
	return FootprintID(uuid.New())
}

// NewCoinID returns a fresh random CoinID.
func NewCoinID() CoinID {
	return CoinID(uuid.New())
}

// ParseFootprintID parses and validates a footprint ID string.
func ParseFootprintID(s string) (FootprintID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return FootprintID{}, err
	}
	return FootprintID(u), nil
}

// ParseCoinID parses and validates a coin ID string.
func ParseCoinID(s string) (CoinID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return CoinID{}, err
	}
	return CoinID(u), nil
}

// ParseOwnerID validates an owner identifier. Owners are opaque but must be
// non-empty and bounded so they are safe as store keys and queue payloads.
func ParseOwnerID(s string) (OwnerID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "owner is required")
	}
	if len(s) > 128 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "owner exceeds 128 characters")
	}
	return OwnerID(s), nil
}

func (id FootprintID) String() string { return uuid.UUID(id).String() }
func (id CoinID) String() string      { return uuid.UUID(id).String() }
func (id OwnerID) String() string     { return string(id) }

func (id FootprintID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id CoinID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }

// Text round-trips keep typed IDs as canonical UUID strings in JSON payloads
// and queue records.

func (id FootprintID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *FootprintID) UnmarshalText(b []byte) error {
	parsed, err := ParseFootprintID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id CoinID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *CoinID) UnmarshalText(b []byte) error {
	parsed, err := ParseCoinID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "malformed id")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "nil id")
	}
	return u, nil
}
