package domain

import (
	"fmt"
	"strings"
	"time"
)

type RouteState string

const (
	RoutePlanned   RouteState = "planned"
	RouteExecuting RouteState = "executing"
	RouteCompleted RouteState = "completed"
)

func ParseRouteState(s string) (RouteState, error) {
	switch st := RouteState(strings.ToLower(strings.TrimSpace(s))); st {
	case RoutePlanned, RouteExecuting, RouteCompleted:
		return st, nil
	}
	return "", &ValidationError{Field: "state", Msg: fmt.Sprintf("unknown route state %q", s)}
}

// Represents one generated collection run for a zone.
// Notes is an append-only audit log; routes are never hard-deleted.
type Route struct {
	ID                   int64
	Zone                 Zone
	State                RouteState
	SeveritySum          int
	TruckCount           int
	TotalDistanceMeters  int
	TotalDurationSeconds int
	GeneratedAt          time.Time
	Notes                string
}

// AppendNote adds an audit line without touching earlier ones.
func (r *Route) AppendNote(note string) {
	if r.Notes == "" {
		r.Notes = note
		return
	}
	r.Notes += "\n" + note
}

type PointType string

const (
	PointDepot    PointType = "depot"
	PointIncident PointType = "incident"
	PointDump     PointType = "dump"
)

// Fixed service time spent at each kind of stop.
func (p PointType) ServiceDuration() time.Duration {
	switch p {
	case PointDepot:
		return 5 * time.Minute
	case PointIncident:
		return 10 * time.Minute
	case PointDump:
		return 15 * time.Minute
	}
	return 0
}

// Represents a single ordered waypoint of one truck within a route.
// Sequence is global to the route and is not reset per truck.
type Stop struct {
	ID               int64
	RouteID          int64
	TruckLabel       string
	TruckClass       TruckClass
	Sequence         int
	PointType        PointType
	IncidentID       *int64
	Location         Coordinates
	EstimatedArrival time.Time
	ServiceDuration  time.Duration
	CumulativeLoad   int
}

// Represents the sequenced stops and oracle totals for a single truck-load.
// It is immutable planning data and contains no side effects.
type TruckPlan struct {
	Label                string
	Class                TruckClass
	Load                 int
	Stops                []Stop
	IncidentIDs          []int64
	TotalDistanceMeters  int
	TotalDurationSeconds int
	Optimized            bool
}
