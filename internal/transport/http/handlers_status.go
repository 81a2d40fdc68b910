package httptransport

import (
	"net/http"

	"probo/internal/platform/middleware"
	"probo/pkg/platform/httputil"
)

func (h *Handler) handleSecurityStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status, err := h.security.Status(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "security status failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, status)
}

func (h *Handler) handleRecoveryStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status, err := h.recovery.Status(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "recovery status failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, status)
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	resp := healthResponse{Status: "ok", Checks: map[string]string{}}
	status := http.StatusOK
	for name, check := range h.checks {
		if check == nil {
			continue
		}
		if err := check.Health(ctx); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	if len(resp.Checks) == 0 {
		resp.Checks = nil
	}
	httputil.WriteJSON(w, status, resp)
}
