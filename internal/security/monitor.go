// Package security runs the read-only background observers: the security
// monitor and the compliance score refresher. Neither mutates footprint or
// coin state; they only fold aggregate scores back into the ledger state.
package security

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"probo/internal/domain"
	"probo/internal/ledger"
	ledgerports "probo/internal/ledger/ports"
	"probo/internal/security/metrics"
)

const (
	// anomalyFactor flags a transaction whose value exceeds this multiple of
	// the trailing average; criticalFactor escalates the severity.
	anomalyFactor  = 10
	criticalFactor = 100

	// networkHealthFloor is the minimum healthy active/expected node ratio.
	networkHealthFloor = 0.90

	// advancementThreshold is the score below which an advisory advancement
	// is recorded.
	advancementThreshold = 95

	// trailingWindow is how many recent coin values feed the average.
	trailingWindow = 50
)

// NodeHealth reports cluster liveness. The static implementation reads
// deployment config; a real mesh would poll peers.
type NodeHealth interface {
	Nodes(ctx context.Context) (active, expected int, err error)
}

// StaticNodeHealth returns fixed node counts from configuration.
type StaticNodeHealth struct {
	Active   int
	Expected int
}

func (h StaticNodeHealth) Nodes(ctx context.Context) (int, int, error) {
	return h.Active, h.Expected, nil
}

// Approver gates application of recorded advancements. The default
// NoopApprover never approves: advancements stay advisory and live
// cryptographic parameters are never auto-mutated.
type Approver interface {
	Approve(ctx context.Context, adv domain.Advancement) (bool, error)
}

// NoopApprover rejects every advancement.
type NoopApprover struct{}

func (NoopApprover) Approve(ctx context.Context, adv domain.Advancement) (bool, error) {
	return false, nil
}

// Monitor computes the security score on a fixed interval.
type Monitor struct {
	coins    ledgerports.CoinStore
	state    *ledger.State
	health   NodeHealth
	approver Approver
	metrics  *metrics.Metrics
	logger   *slog.Logger
	clock    clock.Clock
	interval time.Duration

	mu           sync.Mutex
	threats      []domain.Threat
	advancements []domain.Advancement
	applied      int
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

func WithClock(c clock.Clock) MonitorOption {
	return func(m *Monitor) { m.clock = c }
}

func WithApprover(a Approver) MonitorOption {
	return func(m *Monitor) { m.approver = a }
}

func WithMetrics(mm *metrics.Metrics) MonitorOption {
	return func(m *Monitor) { m.metrics = mm }
}

func WithLogger(logger *slog.Logger) MonitorOption {
	return func(m *Monitor) { m.logger = logger }
}

// NewMonitor builds a Monitor scanning every interval.
func NewMonitor(coins ledgerports.CoinStore, state *ledger.State, health NodeHealth, interval time.Duration, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		coins:    coins,
		state:    state,
		health:   health,
		approver: NoopApprover{},
		logger:   slog.Default(),
		clock:    clock.New(),
		interval: interval,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run scans on the configured interval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := m.clock.Ticker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := m.Scan(ctx); err != nil {
				m.logger.ErrorContext(ctx, "security scan failed", "error", err.Error())
			}
		}
	}
}

// Scan runs one scoring pass. Exported so tests drive it directly.
func (m *Monitor) Scan(ctx context.Context) error {
	threats, err := m.detectThreats(ctx)
	if err != nil {
		return err
	}

	critical, high := 0, 0
	for _, t := range threats {
		switch t.Severity {
		case "critical":
			critical++
		case "high":
			high++
		}
		m.metrics.ObserveThreat(t.Severity)
	}

	m.mu.Lock()
	applied := m.applied
	m.mu.Unlock()

	bonus := 2 * float64(applied)
	if bonus > 20 {
		bonus = 20
	}
	score := 100 - 10*float64(critical) - 5*float64(high) + bonus
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	m.state.SetSecurityScore(score)
	m.metrics.SetSecurityScore(score)

	m.mu.Lock()
	m.threats = threats
	m.mu.Unlock()

	if score < advancementThreshold {
		m.recordAdvancement(ctx, score, threats)
	}

	m.logger.InfoContext(ctx, "security scan complete",
		"score", score, "critical", critical, "high", high)
	return nil
}

// detectThreats applies the documented heuristics over recent coin values
// and node health.
func (m *Monitor) detectThreats(ctx context.Context) ([]domain.Threat, error) {
	now := m.clock.Now()
	var threats []domain.Threat

	values, err := m.coins.RecentValues(ctx, trailingWindow)
	if err != nil {
		return nil, fmt.Errorf("recent values: %w", err)
	}
	if len(values) >= 2 {
		// Trailing average excludes the newest value being judged.
		trailing := new(big.Int)
		for _, v := range values[1:] {
			trailing.Add(trailing, v)
		}
		trailing.Div(trailing, big.NewInt(int64(len(values)-1)))

		if trailing.Sign() > 0 {
			newest := values[0]
			if newest.Cmp(new(big.Int).Mul(trailing, big.NewInt(criticalFactor))) > 0 {
				threats = append(threats, domain.Threat{
					Severity:    "critical",
					Kind:        "anomalous_transaction",
					Description: fmt.Sprintf("value %s exceeds %d× trailing average %s", newest, criticalFactor, trailing),
					DetectedAt:  now,
				})
			} else if newest.Cmp(new(big.Int).Mul(trailing, big.NewInt(anomalyFactor))) > 0 {
				threats = append(threats, domain.Threat{
					Severity:    "high",
					Kind:        "anomalous_transaction",
					Description: fmt.Sprintf("value %s exceeds %d× trailing average %s", newest, anomalyFactor, trailing),
					DetectedAt:  now,
				})
			}
		}
	}

	active, expected, err := m.health.Nodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("node health: %w", err)
	}
	if expected > 0 && float64(active)/float64(expected) < networkHealthFloor {
		threats = append(threats, domain.Threat{
			Severity:    "high",
			Kind:        "degraded_network",
			Description: fmt.Sprintf("%d of %d expected nodes active", active, expected),
			DetectedAt:  now,
		})
	}
	return threats, nil
}

// recordAdvancement appends an advisory advancement and runs it past the
// approver. Approval only increments the applied counter feeding the score
// bonus; nothing here mutates live parameters.
func (m *Monitor) recordAdvancement(ctx context.Context, score float64, threats []domain.Threat) {
	proposals := []string{"rotate commitment signing keys", "raise anomaly review threshold"}
	for _, t := range threats {
		if t.Kind == "degraded_network" {
			proposals = append(proposals, "provision standby ledger nodes")
		}
	}
	adv := domain.Advancement{
		Proposals:  proposals,
		Score:      score,
		RecordedAt: m.clock.Now(),
	}

	approved, err := m.approver.Approve(ctx, adv)
	if err != nil {
		m.logger.WarnContext(ctx, "advancement approval errored", "error", err.Error())
	}
	adv.Approved = approved

	m.mu.Lock()
	m.advancements = append(m.advancements, adv)
	if approved {
		m.applied++
	}
	m.mu.Unlock()

	m.metrics.ObserveAdvancement()
	m.logger.InfoContext(ctx, "security advancement recorded",
		"score", score, "approved", approved, "proposals", len(proposals))
}

// Status reports the latest scan results for getSecurityStatus.
func (m *Monitor) Status(ctx context.Context) (*domain.SecurityStatus, error) {
	_, security := m.state.Scores()
	m.mu.Lock()
	defer m.mu.Unlock()
	threats := append([]domain.Threat(nil), m.threats...)
	return &domain.SecurityStatus{
		SecurityScore:       security,
		ThreatsDetected:     threats,
		AdvancementsApplied: m.applied,
	}, nil
}
