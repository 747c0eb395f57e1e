package handlers

import (
	"collection-route-service/internal/api/dto"
	"collection-route-service/internal/services"
	"net/http"
	"strings"
)

type ZoneHandler struct {
	Lifecycle *services.Lifecycle
}

func (h *ZoneHandler) Severity(w http.ResponseWriter, r *http.Request) {
	zone, ok := pathZone(w, r)
	if !ok {
		return
	}
	in, err := h.Lifecycle.SeverityReport(r.Context(), zone)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.NewSeverityResponse(zone, in))
}

// Check runs the threshold policy for the zone as a periodic tick would.
func (h *ZoneHandler) Check(w http.ResponseWriter, r *http.Request) {
	zone, ok := pathZone(w, r)
	if !ok {
		return
	}
	ev, err := h.Lifecycle.Evaluate(r.Context(), zone, nil)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.NewEvaluationResponse(ev))
}

func (h *ZoneHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	zone, ok := pathZone(w, r)
	if !ok {
		return
	}
	var req dto.RecalculateRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "Manual recalculation"
	}

	res := h.Lifecycle.Recalculate(r.Context(), zone, reason)
	writeJSON(w, r, http.StatusOK, dto.NewGenerationResponse(res))
}
