package api

import (
	"bytes"
	"collection-route-service/internal/adapters/oracle"
	"collection-route-service/internal/adapters/repositories"
	"collection-route-service/internal/domain"
	"collection-route-service/internal/platform/db"
	"collection-route-service/internal/ports"
	"collection-route-service/internal/services"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type endpoints struct{}

func (endpoints) Endpoints(domain.Zone) (ports.Endpoints, error) {
	return ports.Endpoints{
		Depot: domain.Coordinates{Lon: -3.70, Lat: 40.41},
		Dump:  domain.Coordinates{Lon: -3.60, Lat: 40.30},
	}, nil
}

type testServer struct {
	srv   *httptest.Server
	store *repositories.SQLStore
}

func newTestServer(t *testing.T, probe func(context.Context) error) *testServer {
	t.Helper()
	conn, err := db.Open(db.DriverSQLite, filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, repositories.InitSchema(conn, repositories.DialectSQLite))

	store := repositories.NewSQLStore(conn, repositories.DialectSQLite)
	threshold := repositories.NewThresholdSetting(store, 20)
	require.NoError(t, threshold.EnsureDefault(context.Background()))

	now := func() time.Time { return time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC) }
	lc := services.NewLifecycle(services.LifecycleDeps{
		Store:     store,
		Config:    threshold,
		Sequencer: services.NewRouteSequencer(oracle.NewMockOracle(nil), endpoints{}, 2, nil, nil),
		Now:       now,
	})

	reg := prometheus.NewRegistry()
	h := NewRouter(Deps{
		Lifecycle:   lc,
		Intake:      services.NewIntake(store, lc, nil),
		Drivers:     services.NewDriverRegistry(store, now),
		Threshold:   threshold,
		OracleProbe: probe,
		Metrics:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, store: store}
}

func (ts *testServer) do(t *testing.T, method, path string, body any, out any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)
	var body map[string]string
	resp := ts.do(t, http.MethodGet, "/health", nil, &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	down := newTestServer(t, func(context.Context) error { return errors.New("unreachable") })
	resp = down.do(t, http.MethodGet, "/health", nil, &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "unavailable", body["oracle"])
}

func TestRequestIDIsEchoed(t *testing.T) {
	ts := newTestServer(t, nil)
	req, err := http.NewRequest(http.MethodGet, ts.srv.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "abc-123")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "abc-123", resp.Header.Get("X-Request-ID"))
}

func TestIncidentFlowGeneratesRoute(t *testing.T) {
	ts := newTestServer(t, nil)

	var ids []int64
	for i := 0; i < 5; i++ {
		var inc map[string]any
		resp := ts.do(t, http.MethodPost, "/incidents", map[string]any{
			"kind": "overflow", "severity": 5, "zone": "A", "lon": -3.70 + float64(i)/100, "lat": 40.41,
		}, &inc)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.Equal(t, "pending", inc["state"])
		ids = append(ids, int64(inc["id"].(float64)))
	}

	// 5 then 10, 15, 20: at the threshold, nothing yet.
	for _, id := range ids[:4] {
		var res map[string]any
		resp := ts.do(t, http.MethodPost, "/incidents/"+itoa(id)+"/validate", nil, &res)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		ev := res["evaluation"].(map[string]any)
		assert.Equal(t, "none", ev["decision"])
	}

	var res struct {
		Incident   map[string]any `json:"incident"`
		Evaluation struct {
			Decision   string `json:"decision"`
			Generation struct {
				Outcome string `json:"outcome"`
				Route   struct {
					ID          int64 `json:"id"`
					SeveritySum int   `json:"severity_sum"`
				} `json:"route"`
				Trucks []struct {
					Label string `json:"label"`
					Load  int    `json:"load"`
				} `json:"trucks"`
			} `json:"generation"`
		} `json:"evaluation"`
	}
	resp := ts.do(t, http.MethodPost, "/incidents/"+itoa(ids[4])+"/validate", nil, &res)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "generate", res.Evaluation.Decision)
	assert.Equal(t, "success", res.Evaluation.Generation.Outcome)
	assert.Equal(t, 25, res.Evaluation.Generation.Route.SeveritySum)
	require.Len(t, res.Evaluation.Generation.Trucks, 1)
	assert.Equal(t, "REAR-1", res.Evaluation.Generation.Trucks[0].Label)
	assert.Equal(t, "assigned", res.Incident["state"])

	var detail struct {
		Route struct {
			State string `json:"state"`
		} `json:"route"`
		Stops []struct {
			Sequence  int    `json:"sequence"`
			PointType string `json:"point_type"`
		} `json:"stops"`
	}
	routeID := res.Evaluation.Generation.Route.ID
	resp = ts.do(t, http.MethodGet, "/routes/"+itoa(routeID), nil, &detail)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "planned", detail.Route.State)
	require.Len(t, detail.Stops, 7)
	assert.Equal(t, "depot", detail.Stops[0].PointType)

	var list struct {
		Routes []map[string]any `json:"routes"`
	}
	resp = ts.do(t, http.MethodGet, "/routes?zone=A&state=planned", nil, &list)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, list.Routes, 1)

	var drv map[string]any
	resp = ts.do(t, http.MethodPost, "/drivers", map[string]any{"name": "Ana", "zone_preference": "A"}, &drv)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	driverID := int64(drv["id"].(float64))

	var asg map[string]any
	resp = ts.do(t, http.MethodPost, "/routes/"+itoa(routeID)+"/assignments",
		map[string]any{"driver_id": driverID, "truck_class": "rear", "truck_label": "rear-1"}, &asg)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	asgID := int64(asg["id"].(float64))
	assert.Equal(t, "REAR-1", asg["truck_label"])

	resp = ts.do(t, http.MethodPost, "/assignments/"+itoa(asgID)+"/finish", nil, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/assignments/"+itoa(asgID)+"/start", nil, &asg)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "started", asg["state"])

	resp = ts.do(t, http.MethodPut, "/drivers/"+itoa(driverID)+"/state", map[string]string{"state": "inactive"}, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/assignments/"+itoa(asgID)+"/finish", nil, &asg)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "completed", asg["state"])

	var incs struct {
		Incidents []map[string]any `json:"incidents"`
	}
	resp = ts.do(t, http.MethodGet, "/incidents?zone=A&state=completed", nil, &incs)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, incs.Incidents, 5)
}

func TestErrorMapping(t *testing.T) {
	ts := newTestServer(t, nil)

	var body map[string]string
	resp := ts.do(t, http.MethodPost, "/incidents", map[string]any{"severity": 4, "zone": "A"}, &body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "bad_request", body["code"])

	resp = ts.do(t, http.MethodPost, "/incidents", `{"severity": 3, "zone": "A", "colour": "red"}`, &body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/incidents/42", nil, &body)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", body["code"])

	resp = ts.do(t, http.MethodGet, "/incidents/abc", nil, &body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/zones/C/severity", nil, &body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/incidents?state=lost", nil, &body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var inc map[string]any
	ts.do(t, http.MethodPost, "/incidents", map[string]any{"severity": 1, "zone": "B"}, &inc)
	id := itoa(int64(inc["id"].(float64)))
	resp = ts.do(t, http.MethodPost, "/incidents/"+id+"/cancel", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = ts.do(t, http.MethodPost, "/incidents/"+id+"/cancel", nil, &body)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "conflict", body["code"])
}

func TestThresholdAndZoneEndpoints(t *testing.T) {
	ts := newTestServer(t, nil)

	var th map[string]int
	resp := ts.do(t, http.MethodGet, "/config/threshold", nil, &th)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 20, th["threshold"])

	resp = ts.do(t, http.MethodPut, "/config/threshold", map[string]int{"threshold": 0}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.do(t, http.MethodPut, "/config/threshold", map[string]int{"threshold": 4}, &th)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 4, th["threshold"])

	var inc map[string]any
	ts.do(t, http.MethodPost, "/incidents", map[string]any{"severity": 5, "zone": "b"}, &inc)
	ts.do(t, http.MethodPost, "/incidents/"+itoa(int64(inc["id"].(float64)))+"/validate", nil, nil)

	var sev map[string]any
	resp = ts.do(t, http.MethodGet, "/zones/b/severity", nil, &sev)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "B", sev["zone"])
	assert.Equal(t, float64(4), sev["threshold"])
	assert.Equal(t, true, sev["has_planned_route"])
	assert.Equal(t, float64(5), sev["open_sum"])

	var check map[string]any
	resp = ts.do(t, http.MethodPost, "/zones/B/check", nil, &check)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	// Open sum 5 does not exceed 1.5 x 4 and there is no trigger.
	assert.Equal(t, "none", check["decision"])

	var gen map[string]any
	resp = ts.do(t, http.MethodPost, "/zones/B/recalculate", map[string]string{"reason": "road closed"}, &gen)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "success", gen["outcome"])

	var routes struct {
		Routes []struct {
			State string `json:"state"`
			Notes string `json:"notes"`
		} `json:"routes"`
	}
	ts.do(t, http.MethodGet, "/routes?zone=B&state=completed", nil, &routes)
	require.Len(t, routes.Routes, 1)
	assert.Contains(t, routes.Routes[0].Notes, "[RECALCULATED] road closed")

	resp = ts.do(t, http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }
