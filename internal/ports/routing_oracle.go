package ports

import (
	"collection-route-service/internal/domain"
	"context"
	"encoding/json"
)

// Road-network totals for an ordered list of points.
type RouteResult struct {
	DistanceMeters  float64         `json:"distance_meters"`
	DurationSeconds float64         `json:"duration_seconds"`
	Geometry        json.RawMessage `json:"geometry,omitempty"`
}

// TripResult extends RouteResult with the visit order chosen by the oracle.
// VisitOrder[k] is the index, in the submitted point list, of the k-th point visited.
type TripResult struct {
	RouteResult
	VisitOrder []int `json:"visit_order"`
}

// Contract for the external routing oracle. Coordinates are sent in the given order.
type RoutingOracle interface {
	// Return a near-optimal open path from the first to the last point.
	TripOptimize(ctx context.Context, points []domain.Coordinates) (TripResult, error)
	// Return distance and duration for visiting points in exactly the given order.
	Route(ctx context.Context, points []domain.Coordinates) (RouteResult, error)
}

// Port: byte-level cache for oracle responses.
type RouteCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, payload []byte) error
}
