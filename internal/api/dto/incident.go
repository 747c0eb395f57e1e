package dto

import (
	"collection-route-service/internal/domain"
	"time"
)

type CreateIncidentRequest struct {
	Kind        string  `json:"kind"`
	Severity    int     `json:"severity"`
	Description string  `json:"description"`
	Lon         float64 `json:"lon"`
	Lat         float64 `json:"lat"`
	Zone        string  `json:"zone"`
}

type IncidentResponse struct {
	ID          int64      `json:"id"`
	Kind        string     `json:"kind"`
	Severity    int        `json:"severity"`
	Description string     `json:"description,omitempty"`
	Lon         float64    `json:"lon"`
	Lat         float64    `json:"lat"`
	Zone        string     `json:"zone"`
	State       string     `json:"state"`
	ReportedAt  time.Time  `json:"reported_at"`
	ValidatedAt *time.Time `json:"validated_at"`
}

type ListIncidentsResponse struct {
	Incidents []IncidentResponse `json:"incidents"`
}

type ValidateIncidentResponse struct {
	Incident   IncidentResponse    `json:"incident"`
	Evaluation *EvaluationResponse `json:"evaluation"`
}

func NewIncidentResponse(inc *domain.Incident) IncidentResponse {
	return IncidentResponse{
		ID:          inc.ID,
		Kind:        inc.Kind,
		Severity:    int(inc.Severity),
		Description: inc.Description,
		Lon:         inc.Location.Lon,
		Lat:         inc.Location.Lat,
		Zone:        string(inc.Zone),
		State:       string(inc.State),
		ReportedAt:  inc.ReportedAt,
		ValidatedAt: inc.ValidatedAt,
	}
}
