package httptransport

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"probo/internal/domain"
	"probo/internal/platform/middleware"
	id "probo/pkg/domain"
	dErrors "probo/pkg/domain-errors"
	"probo/pkg/platform/httputil"
)

type storeFootprintRequest struct {
	Data     string `json:"data"`
	DataType string `json:"data_type"`
	OwnerID  string `json:"owner_id"`
}

type storeFootprintResponse struct {
	FootprintID      string `json:"footprint_id"`
	InformationValue string `json:"information_value"`
	MerkleRoot       string `json:"merkle_root"`
}

func (h *Handler) handleStoreFootprint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req storeFootprintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	owner, err := id.ParseOwnerID(req.OwnerID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	res, err := h.ledger.Store(ctx, []byte(req.Data), domain.DataType(req.DataType), owner)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeInvalidInput) {
			httputil.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "store footprint failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, storeFootprintResponse{
		FootprintID:      res.FootprintID.String(),
		InformationValue: res.InformationValue.String(),
		MerkleRoot:       res.MerkleRoot,
	})
}

type proofResponse struct {
	FootprintID string                   `json:"footprint_id"`
	Commitment  string                   `json:"commitment"`
	Path        []domain.MerkleProofStep `json:"path"`
	Root        string                   `json:"root"`
}

func (h *Handler) handleProof(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	fpID, err := id.ParseFootprintID(chi.URLParam(r, "footprintID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	res, err := h.ledger.Proof(ctx, fpID)
	if err != nil {
		if !dErrors.Is(err, dErrors.CodeNotFound) {
			h.logger.ErrorContext(ctx, "proof lookup failed",
				"request_id", middleware.GetRequestID(ctx),
				"footprint_id", fpID.String(),
				"error", err.Error(),
			)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, proofResponse{
		FootprintID: res.FootprintID.String(),
		Commitment:  res.Commitment,
		Path:        res.Path,
		Root:        res.Root,
	})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := h.ledger.Stats(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "stats aggregation failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, stats)
}
