package domain

import (
	"time"

	"github.com/google/uuid"
)

type EventKind string

const (
	EventNewRoute         EventKind = "new_route"
	EventRouteCancelled   EventKind = "route_cancelled"
	EventCriticalIncident EventKind = "critical_incident"
)

// Fire-and-forget notification emitted by the dispatch engine.
type Event struct {
	ID         string    `json:"id"`
	Kind       EventKind `json:"kind"`
	Zone       Zone      `json:"zone"`
	RouteID    int64     `json:"route_id,omitempty"`
	IncidentID int64     `json:"incident_id,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewEvent(kind EventKind, zone Zone, at time.Time) Event {
	return Event{
		ID:         uuid.NewString(),
		Kind:       kind,
		Zone:       zone,
		OccurredAt: at.UTC(),
	}
}
