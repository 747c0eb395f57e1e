package handlers

import (
	"collection-route-service/internal/api/dto"
	"collection-route-service/internal/domain"
	"collection-route-service/internal/ports"
	"collection-route-service/internal/services"
	"net/http"
)

// IncidentHandler exposes intake: report, review, cancellation and lookup.
type IncidentHandler struct {
	Intake *services.Intake
}

func (h *IncidentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateIncidentRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	inc, err := h.Intake.Report(r.Context(), services.NewIncident{
		Kind:        req.Kind,
		Severity:    domain.Severity(req.Severity),
		Description: req.Description,
		Location:    domain.Coordinates{Lon: req.Lon, Lat: req.Lat},
		Zone:        domain.Zone(req.Zone),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, dto.NewIncidentResponse(inc))
}

func (h *IncidentHandler) List(w http.ResponseWriter, r *http.Request) {
	zone, ok := queryZone(w, r)
	if !ok {
		return
	}
	states, ok := queryStates(w, r, domain.ParseIncidentState)
	if !ok {
		return
	}

	incs, err := h.Intake.List(r.Context(), ports.IncidentFilter{Zone: zone, States: states})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	res := dto.ListIncidentsResponse{Incidents: make([]dto.IncidentResponse, 0, len(incs))}
	for _, inc := range incs {
		res.Incidents = append(res.Incidents, dto.NewIncidentResponse(inc))
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (h *IncidentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	inc, err := h.Intake.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.NewIncidentResponse(inc))
}

// Validate approves the incident and returns the zone evaluation it triggered.
func (h *IncidentHandler) Validate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	inc, ev, err := h.Intake.Validate(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	res := dto.ValidateIncidentResponse{Incident: dto.NewIncidentResponse(inc)}
	if ev != nil {
		res.Evaluation = dto.NewEvaluationResponse(*ev)
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (h *IncidentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	inc, err := h.Intake.Cancel(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.NewIncidentResponse(inc))
}
