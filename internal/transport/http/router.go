// Package httptransport is the thin HTTP layer. Handlers decode, delegate to
// domain services, and encode; no business logic lives here.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"probo/internal/domain"
	"probo/internal/ledger"
	"probo/internal/mint"
	"probo/internal/platform/middleware"
	id "probo/pkg/domain"
)

// LedgerService is the slice of the ledger the transport needs.
type LedgerService interface {
	Store(ctx context.Context, data []byte, dataType domain.DataType, owner id.OwnerID) (*ledger.StoreResult, error)
	Proof(ctx context.Context, fpID id.FootprintID) (*ledger.ProofResult, error)
	Stats(ctx context.Context) (*domain.Stats, error)
}

// MintService mints coins from stored footprints.
type MintService interface {
	Mint(ctx context.Context, fpID id.FootprintID, owner id.OwnerID) (*mint.Result, error)
}

// RecoveryService reports recovery pipeline status.
type RecoveryService interface {
	Status(ctx context.Context) (*domain.RecoveryStatus, error)
}

// SecurityService reports monitor status.
type SecurityService interface {
	Status(ctx context.Context) (*domain.SecurityStatus, error)
}

// HealthChecker is implemented by backing-store wrappers. Nil checkers are
// skipped so memory-only deployments stay healthy.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Handler holds the services the routes delegate to.
type Handler struct {
	ledger   LedgerService
	mint     MintService
	recovery RecoveryService
	security SecurityService
	checks   map[string]HealthChecker
	logger   *slog.Logger
}

// NewHandler builds the transport handler. checks maps a dependency name to
// its health probe; pass nil values for dependencies that are not configured.
func NewHandler(ledgerSvc LedgerService, mintSvc MintService, recoverySvc RecoveryService, securitySvc SecurityService, checks map[string]HealthChecker, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		ledger:   ledgerSvc,
		mint:     mintSvc,
		recovery: recoverySvc,
		security: securitySvc,
		checks:   checks,
		logger:   logger,
	}
}

// NewRouter wires all public endpoints behind the shared middleware chain.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(h.logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(h.logger))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Post("/ledger/footprints", h.handleStoreFootprint)
	r.Get("/ledger/footprints/{footprintID}/proof", h.handleProof)
	r.Post("/ledger/coins", h.handleMintCoin)
	r.Get("/ledger/stats", h.handleStats)
	r.Get("/security/status", h.handleSecurityStatus)
	r.Get("/recovery/status", h.handleRecoveryStatus)
	r.Get("/healthz", h.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}
