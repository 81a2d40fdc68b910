package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "probo/pkg/domain-errors"
)

// TestParseUUID_Invariants validates the parsing invariant:
// "IDs must be valid, non-empty, non-nil UUIDs"
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseFootprintID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseFootprintID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseFootprintID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseFootprintID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, FootprintID(validUUID), id)
	})

	t.Run("coin IDs share the same invariant", func(t *testing.T) {
		_, err := ParseCoinID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

		validUUID := uuid.New()
		id, err := ParseCoinID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, CoinID(validUUID), id)
	})
}

func TestParseOwnerID(t *testing.T) {
	t.Run("rejects empty owner", func(t *testing.T) {
		_, err := ParseOwnerID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects oversized owner", func(t *testing.T) {
		_, err := ParseOwnerID(strings.Repeat("a", 129))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts bounded opaque identifier", func(t *testing.T) {
		owner, err := ParseOwnerID("did:example:holder-42")
		require.NoError(t, err)
		assert.Equal(t, OwnerID("did:example:holder-42"), owner)
	})

	t.Run("accepts owner at the length bound", func(t *testing.T) {
		raw := strings.Repeat("b", 128)
		owner, err := ParseOwnerID(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, owner.String())
	})
}

// TestTypeDistinction verifies the compiler enforces type safety.
// This is a compile-time check - if this compiles, the invariant holds.
func TestTypeDistinction(t *testing.T) {
	footprintID := FootprintID(uuid.New())
	coinID := CoinID(uuid.New())

	// These would fail to compile if types were interchangeable:
	// var _ FootprintID = coinID   // compile error
	// var _ CoinID = footprintID   // compile error

	// Verify they're distinct at runtime too
	assert.NotEqual(t, uuid.UUID(footprintID), uuid.UUID(coinID))
}

func TestIDTextRoundTrip(t *testing.T) {
	t.Run("footprint ID marshals as canonical UUID", func(t *testing.T) {
		id := NewFootprintID()

		raw, err := json.Marshal(id)
		require.NoError(t, err)
		assert.Equal(t, `"`+id.String()+`"`, string(raw))

		var decoded FootprintID
		require.NoError(t, json.Unmarshal(raw, &decoded))
		assert.Equal(t, id, decoded)
	})

	t.Run("coin ID marshals as canonical UUID", func(t *testing.T) {
		id := NewCoinID()

		raw, err := json.Marshal(id)
		require.NoError(t, err)
		assert.Equal(t, `"`+id.String()+`"`, string(raw))

		var decoded CoinID
		require.NoError(t, json.Unmarshal(raw, &decoded))
		assert.Equal(t, id, decoded)
	})

	t.Run("unmarshal rejects malformed input", func(t *testing.T) {
		var decoded FootprintID
		err := json.Unmarshal([]byte(`"not-a-uuid"`), &decoded)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestIsNil(t *testing.T) {
	assert.True(t, FootprintID{}.IsNil())
	assert.True(t, CoinID{}.IsNil())
	assert.False(t, NewFootprintID().IsNil())
	assert.False(t, NewCoinID().IsNil())
}
