package handlers

import (
	"context"
	"net/http"
	"time"
)

// HealthHandler reports liveness plus the reachability of the routing oracle.
// The service stays up without the oracle, so a failed probe only degrades the status.
type HealthHandler struct {
	Probe   func(ctx context.Context) error
	Timeout time.Duration
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	res := map[string]string{"status": "ok"}
	if h.Probe != nil {
		timeout := h.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		if err := h.Probe(ctx); err != nil {
			log.Warnf("health: oracle probe failed: %v", err)
			res["status"] = "degraded"
			res["oracle"] = "unavailable"
		} else {
			res["oracle"] = "ok"
		}
	}
	writeJSON(w, r, http.StatusOK, res)
}
