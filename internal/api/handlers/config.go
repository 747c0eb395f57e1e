package handlers

import (
	"collection-route-service/internal/api/dto"
	"context"
	"net/http"
)

// ThresholdStore reads and replaces the live severity threshold.
type ThresholdStore interface {
	SeverityThreshold(ctx context.Context) (int, error)
	SetSeverityThreshold(ctx context.Context, n int) error
}

type ConfigHandler struct {
	Threshold ThresholdStore
}

func (h *ConfigHandler) GetThreshold(w http.ResponseWriter, r *http.Request) {
	n, err := h.Threshold.SeverityThreshold(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.ThresholdResponse{Threshold: n})
}

// PutThreshold takes effect at the next decision; existing routes are untouched.
func (h *ConfigHandler) PutThreshold(w http.ResponseWriter, r *http.Request) {
	var req dto.ThresholdRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if req.Threshold < 1 {
		writeError(w, r, http.StatusBadRequest, "threshold must be a positive integer")
		return
	}
	if err := h.Threshold.SetSeverityThreshold(r.Context(), req.Threshold); err != nil {
		writeDomainError(w, r, err)
		return
	}
	log.Infof("severity threshold set to %d", req.Threshold)
	writeJSON(w, r, http.StatusOK, dto.ThresholdResponse{Threshold: req.Threshold})
}
