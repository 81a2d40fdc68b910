package httptransport

import (
	"encoding/json"
	"net/http"

	"probo/internal/platform/middleware"
	id "probo/pkg/domain"
	dErrors "probo/pkg/domain-errors"
	"probo/pkg/platform/httputil"
)

type mintCoinRequest struct {
	FootprintID string `json:"footprint_id"`
	OwnerID     string `json:"owner_id"`
}

type mintCoinResponse struct {
	CoinID      string `json:"coin_id"`
	FootprintID string `json:"footprint_id"`
	OwnerID     string `json:"owner_id"`
	Value       string `json:"value"`
}

func (h *Handler) handleMintCoin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req mintCoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	fpID, err := id.ParseFootprintID(req.FootprintID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	owner, err := id.ParseOwnerID(req.OwnerID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	res, err := h.mint.Mint(ctx, fpID, owner)
	if err != nil {
		switch {
		case dErrors.Is(err, dErrors.CodeNotFound),
			dErrors.Is(err, dErrors.CodeConflict),
			dErrors.Is(err, dErrors.CodeUnauthorized):
			// Expected outcomes under races and bad callers, not server faults.
		default:
			h.logger.ErrorContext(ctx, "mint failed",
				"request_id", middleware.GetRequestID(ctx),
				"footprint_id", fpID.String(),
				"error", err.Error(),
			)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, mintCoinResponse{
		CoinID:      res.CoinID.String(),
		FootprintID: res.FootprintID.String(),
		OwnerID:     res.Owner.String(),
		Value:       res.Value.String(),
	})
}
