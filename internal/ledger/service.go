// Package ledger owns the append-only footprint/coin ledger: the supply
// counters, the per-period Merkle tree over footprint commitments, and the
// store operation that feeds both.
package ledger

import (
	"context"
	"encoding/hex"
	"errors"
	"log/slog"
	"math/big"
	"sort"
	"sync"

	"github.com/benbjohnson/clock"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"probo/internal/domain"
	"probo/internal/events"
	"probo/internal/footprint"
	"probo/internal/ledger/merkle"
	"probo/internal/ledger/metrics"
	"probo/internal/ledger/ports"
	id "probo/pkg/domain"
	dErrors "probo/pkg/domain-errors"
	"probo/pkg/platform/sentinel"
)

// StoreResult is returned to store() callers.
type StoreResult struct {
	FootprintID      id.FootprintID
	InformationValue *big.Int
	MerkleRoot       string
}

// ProofResult couples an inclusion path with the root it verifies against.
type ProofResult struct {
	FootprintID id.FootprintID
	Commitment  string
	Path        []domain.MerkleProofStep
	Root        string
}

// Service coordinates footprint generation, persistence, and the period
// tree. Rebuilds serialize on rebuildMu so a list-then-swap never publishes
// a tree built from a stale listing; readers only ever observe a fully
// built tree because rebuilds swap the pointer after building.
type Service struct {
	generator  *footprint.Generator
	footprints ports.FootprintStore
	coins      ports.CoinStore
	state      *State
	emitter    events.Emitter
	metrics    *metrics.Metrics
	logger     *slog.Logger
	tracer     trace.Tracer
	clk        clock.Clock

	rebuildMu sync.Mutex
	tree      *periodTree
}

// Option configures a Service.
type Option func(*Service)

func WithEmitter(e events.Emitter) Option {
	return func(s *Service) { s.emitter = e }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithClock overrides the wall clock driving period rollover. Tests use a
// mock to cross a calendar-day boundary deterministically.
func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clk = c }
}

// New builds the ledger service.
func New(gen *footprint.Generator, footprints ports.FootprintStore, coins ports.CoinStore, state *State, opts ...Option) *Service {
	s := &Service{
		generator:  gen,
		footprints: footprints,
		coins:      coins,
		state:      state,
		logger:     slog.Default(),
		tracer:     otel.Tracer("probo/ledger"),
		clk:        clock.New(),
		tree:       newPeriodTree(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State exposes the counters for collaborating services (mint, recovery).
func (s *Service) State() *State { return s.state }

// Store generates and persists a footprint for the submitted data, folds its
// commitment into the current period tree, and returns the new root. Backing
// store failures reject the call; nothing financial proceeds unpersisted.
func (s *Service) Store(ctx context.Context, data []byte, dataType domain.DataType, owner id.OwnerID) (*StoreResult, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.store")
	defer span.End()

	fp, err := s.generator.Generate(ctx, data, dataType, owner)
	if err != nil {
		return nil, err
	}

	if err := s.footprints.Insert(ctx, fp); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "footprint already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "footprint store rejected write")
	}

	s.state.RecordStore(fp.InformationValue)

	root, err := s.rebuild(ctx, fp.Period)
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementFootprintsStored()
	s.logger.InfoContext(ctx, "footprint stored",
		"footprint_id", fp.ID.String(),
		"data_type", string(fp.DataType),
		"owner", fp.Owner.String(),
		"information_value", fp.InformationValue.String(),
	)
	if s.emitter != nil {
		s.emitter.Emit(events.Event{
			Type:        events.TypeFootprintStored,
			FootprintID: fp.ID.String(),
			Owner:       fp.Owner.String(),
			Value:       fp.InformationValue.String(),
		})
	}

	return &StoreResult{
		FootprintID:      fp.ID,
		InformationValue: fp.InformationValue,
		MerkleRoot:       root,
	}, nil
}

// Footprint returns a stored footprint.
func (s *Service) Footprint(ctx context.Context, fpID id.FootprintID) (*domain.Footprint, error) {
	fp, err := s.footprints.Get(ctx, fpID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "footprint not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "footprint store unavailable")
	}
	return fp, nil
}

// Proof returns the Merkle inclusion proof for a footprint. Valid only while
// the footprint remains a member of the currently retained period tree.
func (s *Service) Proof(ctx context.Context, fpID id.FootprintID) (*ProofResult, error) {
	fp, err := s.Footprint(ctx, fpID)
	if err != nil {
		return nil, err
	}

	if err := s.ensureCurrent(ctx); err != nil {
		return nil, err
	}

	leaf, err := hex.DecodeString(fp.FinalCommitment)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "decode commitment")
	}

	tree, root := s.tree.load()
	path, err := tree.Proof(leaf)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeConflict, "footprint is not in the retained period tree")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "build proof")
	}

	steps := make([]domain.MerkleProofStep, len(path))
	for i, p := range path {
		steps[i] = domain.MerkleProofStep{Hash: hex.EncodeToString(p.Hash), Left: p.Left}
	}
	return &ProofResult{
		FootprintID: fpID,
		Commitment:  fp.FinalCommitment,
		Path:        steps,
		Root:        root,
	}, nil
}

// Root returns the active period's Merkle root, or the zero sentinel when no
// footprints have been recorded this period.
func (s *Service) Root(ctx context.Context) (string, error) {
	if err := s.ensureCurrent(ctx); err != nil {
		return "", err
	}
	_, root := s.tree.load()
	return root, nil
}

// Stats assembles the process-wide aggregate view.
func (s *Service) Stats(ctx context.Context) (*domain.Stats, error) {
	snap := s.state.Snapshot()
	compliance, security := s.state.Scores()

	recovered, err := s.coins.CountRecovered(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "coin store unavailable")
	}
	active, err := s.footprints.Count(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "footprint store unavailable")
	}
	root, err := s.Root(ctx)
	if err != nil {
		return nil, err
	}

	return &domain.Stats{
		TotalSupply:           snap.Total.String(),
		CirculatingSupply:     snap.Circulating.String(),
		InformationValueTotal: snap.InformationTotal.String(),
		ComplianceScore:       compliance,
		SecurityScore:         security,
		RecoveredCoinCount:    recovered,
		ActiveFootprintCount:  active,
		MerkleRoot:            root,
	}, nil
}

// rebuild reconstructs the period tree from the store and swaps it in.
// rebuildMu covers the whole list-build-swap sequence: without it, a writer
// that listed before a later insert could swap last and publish a tree
// missing commitments the store already holds.
func (s *Service) rebuild(ctx context.Context, period string) (string, error) {
	s.rebuildMu.Lock()
	defer s.rebuildMu.Unlock()

	commitments, err := s.footprints.ListCommitmentsByPeriod(ctx, period)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "footprint store unavailable")
	}

	// Sorted leaf set makes the root independent of insertion order.
	sort.Strings(commitments)
	leaves := make([][]byte, 0, len(commitments))
	for _, c := range commitments {
		leaf, err := hex.DecodeString(c)
		if err != nil {
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "decode stored commitment")
		}
		leaves = append(leaves, leaf)
	}

	root := s.tree.swap(period, merkle.Build(leaves))
	s.metrics.ObserveRebuild(len(leaves))
	return root, nil
}

// ensureCurrent rolls the tree over to the current period when the calendar
// day has changed since the last rebuild.
func (s *Service) ensureCurrent(ctx context.Context) error {
	period := s.currentPeriod()
	if s.tree.period() == period {
		return nil
	}
	_, err := s.rebuild(ctx, period)
	return err
}

func (s *Service) currentPeriod() string {
	return s.clk.Now().UTC().Format("2006-01-02")
}
