package oracle

import (
	"collection-route-service/internal/domain"
	"collection-route-service/internal/platform/logger"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *OSRMClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewOSRMClient(Options{BaseURL: srv.URL, TripTimeout: time.Second, RouteTimeout: time.Second, HealthTimeout: time.Second}, logger.Nop{})
	require.NoError(t, err)
	return c
}

var pts = []domain.Coordinates{
	{Lon: -78.1, Lat: -0.1},
	{Lon: -78.2, Lat: -0.2},
	{Lon: -78.3, Lat: -0.3},
	{Lon: -78.4, Lat: -0.4},
}

func TestTripOptimizeParsesVisitOrder(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.URL.Path, "/trip/v1/driving/"))
		assert.Contains(t, r.URL.Path, "-78.100000,-0.100000;-78.200000,-0.200000")
		q := r.URL.Query()
		assert.Equal(t, "first", q.Get("source"))
		assert.Equal(t, "last", q.Get("destination"))
		assert.Equal(t, "false", q.Get("roundtrip"))
		assert.Equal(t, "geojson", q.Get("geometries"))
		w.Write([]byte(`{"code":"Ok",
			"trips":[{"distance":1234.5,"duration":321.9,"geometry":{"type":"LineString","coordinates":[]}}],
			"waypoints":[{"waypoint_index":0},{"waypoint_index":2},{"waypoint_index":1},{"waypoint_index":3}]}`))
	})

	res, err := c.TripOptimize(context.Background(), pts)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 1, 3}, res.VisitOrder)
	assert.Equal(t, 1234.5, res.DistanceMeters)
	assert.Equal(t, 321.9, res.DurationSeconds)
	assert.JSONEq(t, `{"type":"LineString","coordinates":[]}`, string(res.Geometry))
}

func TestTripOptimizeRejectsBadWaypoints(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"Ok","trips":[{"distance":1,"duration":1}],
			"waypoints":[{"waypoint_index":0},{"waypoint_index":0},{"waypoint_index":1},{"waypoint_index":3}]}`))
	})

	_, err := c.TripOptimize(context.Background(), pts)
	assert.Error(t, err)
}

func TestRouteNonOkCode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.URL.Path, "/route/v1/driving/"))
		w.Write([]byte(`{"code":"NoRoute","message":"Impossible route between points"}`))
	})

	_, err := c.Route(context.Background(), pts[:2])
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoRoute))
}

func TestRouteHTTPError(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "upstream down", http.StatusBadGateway)
	})

	_, err := c.Route(context.Background(), pts)
	require.Error(t, err)

	var he *httpStatusError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusBadGateway, he.Code)
	assert.Equal(t, 1, calls, "failed calls must not be retried")
}

func TestRouteTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c, err := NewOSRMClient(Options{BaseURL: srv.URL, RouteTimeout: 50 * time.Millisecond}, nil)
	require.NoError(t, err)

	_, err = c.Route(context.Background(), pts)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestRouteSuccess(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"Ok","routes":[{"distance":8000,"duration":900}]}`))
	})

	res, err := c.Route(context.Background(), pts)
	require.NoError(t, err)
	assert.Equal(t, 8000.0, res.DistanceMeters)
	assert.Equal(t, 900.0, res.DurationSeconds)
}

func TestHealth(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.URL.Path, "/nearest/v1/driving/"))
		w.Write([]byte(`{"code":"Ok"}`))
	})
	assert.NoError(t, c.Health(context.Background(), pts[0]))
}

func TestNewOSRMClientRequiresBaseURL(t *testing.T) {
	_, err := NewOSRMClient(Options{}, nil)
	assert.Error(t, err)
}
