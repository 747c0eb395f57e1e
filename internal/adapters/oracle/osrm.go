package oracle

import (
	"collection-route-service/internal/domain"
	"collection-route-service/internal/platform/logger"
	"collection-route-service/internal/platform/obs"
	"collection-route-service/internal/ports"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrNoRoute is returned when OSRM answers with a code other than "Ok".
var ErrNoRoute = errors.New("osrm: no route")

type Options struct {
	BaseURL       string
	Profile       string
	HealthTimeout time.Duration
	RouteTimeout  time.Duration
	TripTimeout   time.Duration
}

// OSRMClient implements ports.RoutingOracle against an OSRM HTTP server.
//
// Each call is a single request bounded by its own timeout:
//   - trip optimisation (open path, first point to last point)
//   - route totals for a fixed order
//   - a cheap nearest-point health probe
//
// The client is safe for concurrent use.
type OSRMClient struct {
	session       *http.Client
	baseURL       string
	profile       string
	healthTimeout time.Duration
	routeTimeout  time.Duration
	tripTimeout   time.Duration
	log           logger.Logger
}

func NewOSRMClient(opts Options, log logger.Logger) (*OSRMClient, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("OSRM base url is empty")
	}
	if log == nil {
		log = logger.Nop{}
	}
	c := &OSRMClient{
		session:       &http.Client{},
		baseURL:       base,
		profile:       opts.Profile,
		healthTimeout: opts.HealthTimeout,
		routeTimeout:  opts.RouteTimeout,
		tripTimeout:   opts.TripTimeout,
		log:           log,
	}
	if c.profile == "" {
		c.profile = "driving"
	}
	if c.healthTimeout <= 0 {
		c.healthTimeout = 5 * time.Second
	}
	if c.routeTimeout <= 0 {
		c.routeTimeout = 30 * time.Second
	}
	if c.tripTimeout <= 0 {
		c.tripTimeout = 60 * time.Second
	}
	return c, nil
}

type osrmLeg struct {
	Distance float64         `json:"distance"`
	Duration float64         `json:"duration"`
	Geometry json.RawMessage `json:"geometry"`
}

type osrmWaypoint struct {
	WaypointIndex int `json:"waypoint_index"`
	TripsIndex    int `json:"trips_index"`
}

type osrmTripResponse struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Trips     []osrmLeg      `json:"trips"`
	Waypoints []osrmWaypoint `json:"waypoints"`
}

type osrmRouteResponse struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Routes  []osrmLeg `json:"routes"`
}

func joinCoords(points []domain.Coordinates) string {
	parts := make([]string, len(points))
	for i, p := range points {
		parts[i] = p.String()
	}
	return strings.Join(parts, ";")
}

func (o *OSRMClient) TripOptimize(ctx context.Context, points []domain.Coordinates) (_ ports.TripResult, err error) {
	defer obs.Time(ctx, "osrm.TripOptimize")(&err)

	if len(points) < 2 {
		return ports.TripResult{}, fmt.Errorf("osrm trip: need at least 2 points, got %d", len(points))
	}

	url := fmt.Sprintf(
		"%s/trip/v1/%s/%s?source=first&destination=last&roundtrip=false&overview=full&geometries=geojson",
		o.baseURL, o.profile, joinCoords(points),
	)

	var resp osrmTripResponse
	if err := o.getJSON(ctx, url, o.tripTimeout, &resp); err != nil {
		return ports.TripResult{}, fmt.Errorf("osrm trip: %w", err)
	}
	if resp.Code != "Ok" || len(resp.Trips) == 0 {
		return ports.TripResult{}, fmt.Errorf("osrm trip: code=%q message=%q: %w", resp.Code, resp.Message, ErrNoRoute)
	}
	if len(resp.Waypoints) != len(points) {
		return ports.TripResult{}, fmt.Errorf("osrm trip: got %d waypoints for %d points", len(resp.Waypoints), len(points))
	}

	// waypoints are listed in input order; waypoint_index is the visit position.
	order := make([]int, len(points))
	for i := range order {
		order[i] = -1
	}
	for input, wp := range resp.Waypoints {
		if wp.WaypointIndex < 0 || wp.WaypointIndex >= len(points) || order[wp.WaypointIndex] != -1 {
			return ports.TripResult{}, fmt.Errorf("osrm trip: invalid waypoint_index %d", wp.WaypointIndex)
		}
		order[wp.WaypointIndex] = input
	}

	trip := resp.Trips[0]
	o.log.Debugw("osrm trip", map[string]any{"points": len(points), "distance": trip.Distance, "duration": trip.Duration})

	return ports.TripResult{
		RouteResult: ports.RouteResult{
			DistanceMeters:  trip.Distance,
			DurationSeconds: trip.Duration,
			Geometry:        trip.Geometry,
		},
		VisitOrder: order,
	}, nil
}

func (o *OSRMClient) Route(ctx context.Context, points []domain.Coordinates) (_ ports.RouteResult, err error) {
	defer obs.Time(ctx, "osrm.Route")(&err)

	if len(points) < 2 {
		return ports.RouteResult{}, fmt.Errorf("osrm route: need at least 2 points, got %d", len(points))
	}

	url := fmt.Sprintf(
		"%s/route/v1/%s/%s?overview=full&geometries=geojson",
		o.baseURL, o.profile, joinCoords(points),
	)

	var resp osrmRouteResponse
	if err := o.getJSON(ctx, url, o.routeTimeout, &resp); err != nil {
		return ports.RouteResult{}, fmt.Errorf("osrm route: %w", err)
	}
	if resp.Code != "Ok" || len(resp.Routes) == 0 {
		return ports.RouteResult{}, fmt.Errorf("osrm route: code=%q message=%q: %w", resp.Code, resp.Message, ErrNoRoute)
	}

	r := resp.Routes[0]
	return ports.RouteResult{
		DistanceMeters:  r.Distance,
		DurationSeconds: r.Duration,
		Geometry:        r.Geometry,
	}, nil
}

// Health snaps probe to the road network; any answer other than "Ok" is unhealthy.
func (o *OSRMClient) Health(ctx context.Context, probe domain.Coordinates) error {
	url := fmt.Sprintf("%s/nearest/v1/%s/%s", o.baseURL, o.profile, probe.String())

	var resp struct {
		Code string `json:"code"`
	}
	if err := o.getJSON(ctx, url, o.healthTimeout, &resp); err != nil {
		return fmt.Errorf("osrm health: %w", err)
	}
	if resp.Code != "Ok" {
		return fmt.Errorf("osrm health: code=%q", resp.Code)
	}
	return nil
}
