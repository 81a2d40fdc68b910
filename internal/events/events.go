// Package events publishes ledger lifecycle records to a Kafka topic for
// downstream compliance consumers. The stream is append-only and advisory:
// nothing in the engine reads it back, and a missing broker never blocks a
// store or mint call.
package events

import "time"

// Type enumerates the lifecycle records.
type Type string

const (
	TypeFootprintStored Type = "footprint_stored"
	TypeCoinMinted      Type = "coin_minted"
	TypeCoinRecovered   Type = "coin_recovered"
)

// Event is one lifecycle record. Value fields are decimal strings.
type Event struct {
	Type        Type      `json:"type"`
	FootprintID string    `json:"footprint_id,omitempty"`
	CoinID      string    `json:"coin_id,omitempty"`
	Owner       string    `json:"owner,omitempty"`
	Value       string    `json:"value,omitempty"`
	Strategy    string    `json:"strategy,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Emitter is the surface services publish through. A nil Emitter is valid
// everywhere and drops events.
type Emitter interface {
	Emit(event Event)
}
