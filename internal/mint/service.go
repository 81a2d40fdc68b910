// Package mint converts stored, unminted footprints into coins. The minted
// flag transition in the footprint store is the linearization point: under
// concurrent racing calls exactly one caller wins it, and only the winner
// touches supply counters or the recovery queue.
package mint

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"probo/internal/domain"
	"probo/internal/events"
	"probo/internal/ledger"
	ledgermetrics "probo/internal/ledger/metrics"
	ledgerports "probo/internal/ledger/ports"
	recoveryports "probo/internal/recovery/ports"
	id "probo/pkg/domain"
	dErrors "probo/pkg/domain-errors"
	"probo/pkg/platform/sentinel"
)

// Result is returned to mint() callers.
type Result struct {
	CoinID      id.CoinID
	FootprintID id.FootprintID
	Owner       id.OwnerID
	Value       *big.Int
}

// Service mints coins.
type Service struct {
	footprints ledgerports.FootprintStore
	coins      ledgerports.CoinStore
	state      *ledger.State
	queue      recoveryports.Queue
	emitter    events.Emitter
	metrics    *ledgermetrics.Metrics
	logger     *slog.Logger
	tracer     trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

func WithEmitter(e events.Emitter) Option {
	return func(s *Service) { s.emitter = e }
}

func WithMetrics(m *ledgermetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// New builds the mint service.
func New(footprints ledgerports.FootprintStore, coins ledgerports.CoinStore, state *ledger.State, queue recoveryports.Queue, opts ...Option) *Service {
	s := &Service{
		footprints: footprints,
		coins:      coins,
		state:      state,
		queue:      queue,
		logger:     slog.Default(),
		tracer:     otel.Tracer("probo/mint"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mint creates a coin from an unminted footprint owned by owner. Repeated
// calls for the same footprint are idempotent no-ops surfacing CodeConflict;
// supply counters never double-increment.
func (s *Service) Mint(ctx context.Context, fpID id.FootprintID, owner id.OwnerID) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "mint.mint")
	defer span.End()

	fp, err := s.footprints.Get(ctx, fpID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "footprint not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "footprint store unavailable")
	}

	if fp.Owner != owner {
		s.logger.WarnContext(ctx, "mint rejected: owner mismatch",
			"footprint_id", fpID.String(),
			"caller", owner.String(),
		)
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller does not own footprint")
	}

	// Linearization point: exactly one concurrent caller flips the flag.
	if err := s.footprints.MarkMinted(ctx, fpID); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrAlreadyUsed):
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "footprint already minted")
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "footprint not found")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "footprint store unavailable")
		}
	}

	now := time.Now().UTC()
	coin := &domain.Coin{
		ID:            id.NewCoinID(),
		FootprintID:   fpID,
		Owner:         owner,
		Value:         new(big.Int).Set(fp.InformationValue),
		MintedAt:      now,
		RecoveryState: domain.RecoveryQueued,
	}

	if err := s.coins.Insert(ctx, coin); err != nil {
		// Release the flag so the footprint stays mintable; otherwise a
		// retry hits AlreadyMinted with no coin ever written.
		if unmarkErr := s.footprints.UnmarkMinted(ctx, fpID); unmarkErr != nil {
			s.logger.ErrorContext(ctx, "mint compensation failed: footprint stuck minted",
				"footprint_id", fpID.String(),
				"error", unmarkErr.Error(),
			)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "coin store rejected write")
	}

	if err := s.state.RecordMint(coin.Value); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "supply conservation violated")
	}

	task := &domain.RecoveryTask{
		CoinID:     coin.ID,
		Value:      new(big.Int).Set(coin.Value),
		Owner:      owner,
		EnqueuedAt: now,
		ReadyAt:    now,
	}
	if err := s.queue.Enqueue(ctx, task); err != nil {
		// The coin exists and supply counted; unwinding a persisted coin is
		// worse than a delayed recovery. Log loudly for operator replay.
		s.logger.ErrorContext(ctx, "recovery task enqueue failed",
			"coin_id", coin.ID.String(),
			"error", err.Error(),
		)
	}

	s.metrics.IncrementCoinsMinted()
	s.logger.InfoContext(ctx, "coin minted",
		"coin_id", coin.ID.String(),
		"footprint_id", fpID.String(),
		"owner", owner.String(),
		"value", coin.Value.String(),
	)
	if s.emitter != nil {
		s.emitter.Emit(events.Event{
			Type:        events.TypeCoinMinted,
			FootprintID: fpID.String(),
			CoinID:      coin.ID.String(),
			Owner:       owner.String(),
			Value:       coin.Value.String(),
		})
	}

	return &Result{
		CoinID:      coin.ID,
		FootprintID: fpID,
		Owner:       owner,
		Value:       coin.Value,
	}, nil
}
