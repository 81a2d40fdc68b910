package domain

import (
	"math/big"
	"time"
)

// Stats is the point-in-time aggregate exposed by getStats. Value fields are
// decimal strings of arbitrary-precision integers; floats would drift across
// repeated multiplicative scoring.
type Stats struct {
	TotalSupply           string  `json:"total_supply"`
	CirculatingSupply     string  `json:"circulating_supply"`
	InformationValueTotal string  `json:"information_value_total"`
	ComplianceScore       float64 `json:"compliance_score"`
	SecurityScore         float64 `json:"security_score"`
	RecoveredCoinCount    int     `json:"recovered_coin_count"`
	ActiveFootprintCount  int     `json:"active_footprint_count"`
	MerkleRoot            string  `json:"merkle_root"`
}

// Threat is one detected anomaly from a security scan.
type Threat struct {
	Severity    string    `json:"severity"` // "critical" or "high"
	Kind        string    `json:"kind"`
	Description string    `json:"description"`
	DetectedAt  time.Time `json:"detected_at"`
}

// Advancement is a recorded set of proposed policy changes. Advancements are
// advisory: nothing applies them to live cryptographic parameters without an
// explicit approval step.
type Advancement struct {
	Proposals  []string  `json:"proposals"`
	Score      float64   `json:"score"`
	RecordedAt time.Time `json:"recorded_at"`
	Approved   bool      `json:"approved"`
}

// SecurityStatus is the getSecurityStatus response shape.
type SecurityStatus struct {
	SecurityScore       float64  `json:"security_score"`
	ThreatsDetected     []Threat `json:"threats_detected"`
	AdvancementsApplied int      `json:"advancements_applied"`
}

// RecoveryStatus is the getRecoveryStatus response shape.
type RecoveryStatus struct {
	QueueLength        int     `json:"queue_length"`
	RecoveredCoinCount int     `json:"recovered_coin_count"`
	SuccessRate        float64 `json:"success_rate"`
	DeadLetterCount    int     `json:"dead_letter_count"`
}

// SupplySnapshot is an atomic read of the ledger counters, used by observers
// that must see a consistent triple.
type SupplySnapshot struct {
	Total            *big.Int
	Circulating      *big.Int
	InformationTotal *big.Int
	Recovered        *big.Int
}
