package dto

import (
	"collection-route-service/internal/domain"
	"collection-route-service/internal/services"
	"time"
)

type RouteResponse struct {
	ID                   int64     `json:"id"`
	Zone                 string    `json:"zone"`
	State                string    `json:"state"`
	SeveritySum          int       `json:"severity_sum"`
	TruckCount           int       `json:"truck_count"`
	TotalDistanceMeters  int       `json:"total_distance_meters"`
	TotalDurationSeconds int       `json:"total_duration_seconds"`
	GeneratedAt          time.Time `json:"generated_at"`
	Notes                string    `json:"notes"`
}

type StopResponse struct {
	Sequence         int       `json:"sequence"`
	TruckLabel       string    `json:"truck_label"`
	TruckClass       string    `json:"truck_class"`
	PointType        string    `json:"point_type"`
	IncidentID       *int64    `json:"incident_id"`
	Lon              float64   `json:"lon"`
	Lat              float64   `json:"lat"`
	EstimatedArrival time.Time `json:"estimated_arrival"`
	ServiceMinutes   int       `json:"service_minutes"`
	CumulativeLoad   int       `json:"cumulative_load"`
}

type AssignmentResponse struct {
	ID         int64      `json:"id"`
	RouteID    int64      `json:"route_id"`
	DriverID   int64      `json:"driver_id"`
	TruckClass string     `json:"truck_class"`
	TruckLabel string     `json:"truck_label,omitempty"`
	State      string     `json:"state"`
	AssignedAt time.Time  `json:"assigned_at"`
	StartedAt  *time.Time `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
}

type RouteDetailResponse struct {
	Route       RouteResponse        `json:"route"`
	Stops       []StopResponse       `json:"stops"`
	Assignments []AssignmentResponse `json:"assignments"`
}

type ListRoutesResponse struct {
	Routes []RouteResponse `json:"routes"`
}

type AssignDriverRequest struct {
	DriverID   int64  `json:"driver_id"`
	TruckClass string `json:"truck_class"`
	TruckLabel string `json:"truck_label"`
}

type TruckPlanResponse struct {
	Label                string  `json:"label"`
	Class                string  `json:"class"`
	Load                 int     `json:"load"`
	IncidentIDs          []int64 `json:"incident_ids"`
	TotalDistanceMeters  int     `json:"total_distance_meters"`
	TotalDurationSeconds int     `json:"total_duration_seconds"`
	Optimized            bool    `json:"optimized"`
}

type GenerationResponse struct {
	Outcome string              `json:"outcome"`
	Error   string              `json:"error,omitempty"`
	Route   *RouteResponse      `json:"route,omitempty"`
	Trucks  []TruckPlanResponse `json:"trucks,omitempty"`
}

func NewRouteResponse(r *domain.Route) RouteResponse {
	return RouteResponse{
		ID:                   r.ID,
		Zone:                 string(r.Zone),
		State:                string(r.State),
		SeveritySum:          r.SeveritySum,
		TruckCount:           r.TruckCount,
		TotalDistanceMeters:  r.TotalDistanceMeters,
		TotalDurationSeconds: r.TotalDurationSeconds,
		GeneratedAt:          r.GeneratedAt,
		Notes:                r.Notes,
	}
}

func NewAssignmentResponse(a *domain.Assignment) AssignmentResponse {
	return AssignmentResponse{
		ID:         a.ID,
		RouteID:    a.RouteID,
		DriverID:   a.DriverID,
		TruckClass: string(a.TruckClass),
		TruckLabel: a.TruckLabel,
		State:      string(a.State),
		AssignedAt: a.AssignedAt,
		StartedAt:  a.StartedAt,
		FinishedAt: a.FinishedAt,
	}
}

func NewRouteDetailResponse(d *services.RouteDetail) RouteDetailResponse {
	res := RouteDetailResponse{
		Route:       NewRouteResponse(d.Route),
		Stops:       make([]StopResponse, 0, len(d.Stops)),
		Assignments: make([]AssignmentResponse, 0, len(d.Assignments)),
	}
	for _, s := range d.Stops {
		res.Stops = append(res.Stops, StopResponse{
			Sequence:         s.Sequence,
			TruckLabel:       s.TruckLabel,
			TruckClass:       string(s.TruckClass),
			PointType:        string(s.PointType),
			IncidentID:       s.IncidentID,
			Lon:              s.Location.Lon,
			Lat:              s.Location.Lat,
			EstimatedArrival: s.EstimatedArrival,
			ServiceMinutes:   int(s.ServiceDuration.Minutes()),
			CumulativeLoad:   s.CumulativeLoad,
		})
	}
	for _, a := range d.Assignments {
		res.Assignments = append(res.Assignments, NewAssignmentResponse(a))
	}
	return res
}

func NewGenerationResponse(g services.GenerationResult) *GenerationResponse {
	res := &GenerationResponse{Outcome: string(g.Outcome)}
	if g.Err != nil {
		res.Error = g.Err.Error()
	}
	if g.Route != nil {
		rr := NewRouteResponse(g.Route)
		res.Route = &rr
	}
	for _, p := range g.Plans {
		res.Trucks = append(res.Trucks, TruckPlanResponse{
			Label:                p.Label,
			Class:                string(p.Class),
			Load:                 p.Load,
			IncidentIDs:          p.IncidentIDs,
			TotalDistanceMeters:  p.TotalDistanceMeters,
			TotalDurationSeconds: p.TotalDurationSeconds,
			Optimized:            p.Optimized,
		})
	}
	return res
}
