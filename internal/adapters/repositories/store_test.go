package repositories

import (
	"collection-route-service/internal/domain"
	"collection-route-service/internal/platform/db"
	"collection-route-service/internal/ports"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	conn, err := db.Open(db.DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, InitSchema(conn, DialectSQLite))
	return NewSQLStore(conn, DialectSQLite)
}

var t0 = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func TestRebind(t *testing.T) {
	pg := &queries{dialect: DialectPostgres}
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b IN ($2,$3)", pg.rebind("SELECT * FROM t WHERE a = ? AND b IN (?,?)"))

	lite := &queries{dialect: DialectSQLite}
	assert.Equal(t, "a = ?", lite.rebind("a = ?"))
}

func TestIncidentRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	validated := t0.Add(time.Minute)
	inc := &domain.Incident{
		Kind: "bulky", Severity: domain.SeverityHigh, Zone: domain.ZoneA,
		State: domain.IncidentValidated, Location: domain.Coordinates{Lon: -78.5, Lat: -0.2},
		ReportedAt: t0, ValidatedAt: &validated,
	}
	require.NoError(t, s.CreateIncident(ctx, inc))
	require.NotZero(t, inc.ID)

	got, err := s.GetIncident(ctx, inc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SeverityHigh, got.Severity)
	assert.Equal(t, domain.ZoneA, got.Zone)
	assert.True(t, got.ReportedAt.Equal(t0))
	require.NotNil(t, got.ValidatedAt)
	assert.True(t, got.ValidatedAt.Equal(validated))

	got.State = domain.IncidentAssigned
	require.NoError(t, s.UpdateIncident(ctx, got))

	list, err := s.ListIncidents(ctx, ports.IncidentFilter{Zone: domain.ZoneA, States: []domain.IncidentState{domain.IncidentAssigned}})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, inc.ID, list[0].ID)

	none, err := s.ListIncidents(ctx, ports.IncidentFilter{Zone: domain.ZoneB})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGetUnknownIDsReturnNotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.GetIncident(ctx, 99)
	assert.True(t, domain.IsNotFound(err))
	_, err = s.GetRoute(ctx, 99)
	assert.True(t, domain.IsNotFound(err))
	_, err = s.GetAssignment(ctx, 99)
	assert.True(t, domain.IsNotFound(err))
	_, err = s.GetDriver(ctx, 99)
	assert.True(t, domain.IsNotFound(err))

	err = s.UpdateRoute(ctx, &domain.Route{ID: 99, State: domain.RouteCompleted})
	assert.True(t, domain.IsNotFound(err))
}

func TestRouteStopsAndAssignments(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	inc := &domain.Incident{Severity: domain.SeverityMedium, Zone: domain.ZoneB, State: domain.IncidentAssigned, ReportedAt: t0}
	require.NoError(t, s.CreateIncident(ctx, inc))

	r := &domain.Route{Zone: domain.ZoneB, State: domain.RoutePlanned, SeveritySum: 3, TruckCount: 1, GeneratedAt: t0, Notes: "n"}
	require.NoError(t, s.CreateRoute(ctx, r))

	incID := inc.ID
	stops := []domain.Stop{
		{RouteID: r.ID, TruckLabel: "REAR-1", TruckClass: domain.TruckRear, Sequence: 1, PointType: domain.PointDepot, EstimatedArrival: t0, ServiceDuration: 5 * time.Minute},
		{RouteID: r.ID, TruckLabel: "REAR-1", TruckClass: domain.TruckRear, Sequence: 2, PointType: domain.PointIncident, IncidentID: &incID, EstimatedArrival: t0.Add(5 * time.Minute), ServiceDuration: 10 * time.Minute, CumulativeLoad: 3},
		{RouteID: r.ID, TruckLabel: "REAR-1", TruckClass: domain.TruckRear, Sequence: 3, PointType: domain.PointDump, EstimatedArrival: t0.Add(15 * time.Minute), ServiceDuration: 15 * time.Minute, CumulativeLoad: 3},
	}
	require.NoError(t, s.CreateStops(ctx, stops))

	got, err := s.ListStops(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Nil(t, got[0].IncidentID)
	require.NotNil(t, got[1].IncidentID)
	assert.Equal(t, inc.ID, *got[1].IncidentID)
	assert.Equal(t, 15*time.Minute, got[2].ServiceDuration)

	d := &domain.Driver{Name: "Ana", State: domain.DriverAvailable, ZonePreference: domain.PreferBoth, HiredAt: t0}
	require.NoError(t, s.CreateDriver(ctx, d))

	a := &domain.Assignment{RouteID: r.ID, DriverID: d.ID, TruckClass: domain.TruckRear, TruckLabel: "REAR-1", State: domain.AssignmentAssigned, AssignedAt: t0}
	require.NoError(t, s.CreateAssignment(ctx, a))

	started := t0.Add(time.Hour)
	a.State = domain.AssignmentStarted
	a.StartedAt = &started
	require.NoError(t, s.UpdateAssignment(ctx, a))

	active, err := s.ListAssignments(ctx, ports.AssignmentFilter{RouteID: r.ID, States: []domain.AssignmentState{domain.AssignmentAssigned, domain.AssignmentStarted}})
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.NotNil(t, active[0].StartedAt)
	assert.True(t, active[0].StartedAt.Equal(started))
	assert.Nil(t, active[0].FinishedAt)

	planned, err := s.ListRoutes(ctx, ports.RouteFilter{Zone: domain.ZoneB, States: []domain.RouteState{domain.RoutePlanned}})
	require.NoError(t, err)
	require.Len(t, planned, 1)
	assert.Equal(t, "n", planned[0].Notes)
}

func TestInTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	boom := errors.New("boom")
	err := s.InTx(ctx, func(q ports.Queries) error {
		if err := q.CreateRoute(ctx, &domain.Route{Zone: domain.ZoneA, State: domain.RoutePlanned, GeneratedAt: t0}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	routes, err := s.ListRoutes(ctx, ports.RouteFilter{})
	require.NoError(t, err)
	assert.Empty(t, routes)
}

func TestThresholdSetting(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	ts := NewThresholdSetting(s, 20)

	n, err := ts.SeverityThreshold(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, n)

	require.NoError(t, ts.EnsureDefault(ctx))
	require.NoError(t, ts.SetSeverityThreshold(ctx, 35))
	require.NoError(t, ts.EnsureDefault(ctx))

	n, err = ts.SeverityThreshold(ctx)
	require.NoError(t, err)
	assert.Equal(t, 35, n)
}

func TestSeedYAML(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
severity_threshold: 12
drivers:
  - name: Luis
    zone_preference: A
incidents:
  - {severity: 5, zone: A, lon: 1, lat: 1, validated: true}
  - {severity: 3, zone: b, lon: 2, lat: 2}
`), 0o644))

	seed, err := LoadSeed(path)
	require.NoError(t, err)
	require.NoError(t, seed.Apply(ctx, s, t0))

	incs, err := s.ListIncidents(ctx, ports.IncidentFilter{})
	require.NoError(t, err)
	require.Len(t, incs, 2)
	assert.Equal(t, domain.IncidentValidated, incs[0].State)
	assert.Equal(t, domain.ZoneB, incs[1].Zone)
	assert.Equal(t, domain.IncidentPending, incs[1].State)

	drivers, err := s.ListDrivers(ctx, domain.DriverAvailable)
	require.NoError(t, err)
	require.Len(t, drivers, 1)
	assert.Equal(t, domain.ZonePreference("A"), drivers[0].ZonePreference)

	n, err := NewThresholdSetting(s, 20).SeverityThreshold(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12, n)
}

func TestSeedRejectsBadSeverity(t *testing.T) {
	s := newTestStore(t)
	seed := &Seed{Incidents: []IncidentSeed{{Severity: 4, Zone: "A"}}}
	assert.Error(t, seed.Apply(context.Background(), s, t0))
}
