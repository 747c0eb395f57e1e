package services

import (
	"collection-route-service/internal/adapters/oracle"
	"collection-route-service/internal/domain"
	"collection-route-service/internal/platform/metrics"
	"collection-route-service/internal/ports"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fixedEndpoints map[domain.Zone]ports.Endpoints

func (f fixedEndpoints) Endpoints(zone domain.Zone) (ports.Endpoints, error) {
	e, ok := f[zone]
	if !ok {
		return ports.Endpoints{}, fmt.Errorf("no endpoints for zone %s", zone)
	}
	return e, nil
}

var (
	depotA = domain.Coordinates{Lon: -3.7038, Lat: 40.4168}
	dumpA  = domain.Coordinates{Lon: -3.6000, Lat: 40.3000}
	locA   = domain.Coordinates{Lon: -3.7100, Lat: 40.4200}
	locB   = domain.Coordinates{Lon: -3.7200, Lat: 40.4300}
	locC   = domain.Coordinates{Lon: -3.6900, Lat: 40.4100}

	testEndpoints = fixedEndpoints{
		domain.ZoneA: {Depot: depotA, Dump: dumpA},
		domain.ZoneB: {Depot: depotA, Dump: dumpA},
	}
)

func threeIncidentLoad(t *testing.T) *domain.TruckLoad {
	t.Helper()
	load := domain.NewTruckLoad(domain.TruckRear)
	for _, inc := range []*domain.Incident{
		{ID: 1, Severity: 5, Location: locA},
		{ID: 2, Severity: 3, Location: locB},
		{ID: 3, Severity: 1, Location: locC},
	} {
		if err := load.Load(inc); err != nil {
			t.Fatalf("load: %v", err)
		}
	}
	return load
}

func TestRouteSequencerUsesTripOrder(t *testing.T) {
	mock := oracle.NewMockOracle([]oracle.MockPair{
		{From: depotA, To: locC, Meters: 500, Seconds: 60},
		{From: locC, To: locA, Meters: 700, Seconds: 90},
		{From: locA, To: locB, Meters: 300, Seconds: 30},
		{From: locB, To: dumpA, Meters: 2000, Seconds: 240},
	})
	// Visit C first, then A and B.
	mock.Order = func(points []domain.Coordinates) []int { return []int{0, 3, 1, 2, 4} }

	seq := NewRouteSequencer(mock, testEndpoints, 2, nil, nil)
	depart := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)

	plan, err := seq.SequenceLoad(context.Background(), domain.ZoneA, testEndpoints[domain.ZoneA], "REAR-1", threeIncidentLoad(t), depart)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !plan.Optimized {
		t.Fatalf("expected optimised plan")
	}
	if len(plan.Stops) != 5 {
		t.Fatalf("expected 5 stops, got %d", len(plan.Stops))
	}

	wantIDs := []int64{3, 1, 2}
	for i, id := range wantIDs {
		if plan.IncidentIDs[i] != id {
			t.Fatalf("incident order = %v, want %v", plan.IncidentIDs, wantIDs)
		}
	}

	wantTypes := []domain.PointType{domain.PointDepot, domain.PointIncident, domain.PointIncident, domain.PointIncident, domain.PointDump}
	wantArrive := []time.Duration{0, 5 * time.Minute, 15 * time.Minute, 25 * time.Minute, 35 * time.Minute}
	wantLoad := []int{0, 1, 6, 9, 9}
	for i, s := range plan.Stops {
		if s.PointType != wantTypes[i] {
			t.Fatalf("stop %d type = %s, want %s", i, s.PointType, wantTypes[i])
		}
		if !s.EstimatedArrival.Equal(depart.Add(wantArrive[i])) {
			t.Fatalf("stop %d arrival = %s, want %s", i, s.EstimatedArrival, depart.Add(wantArrive[i]))
		}
		if s.CumulativeLoad != wantLoad[i] {
			t.Fatalf("stop %d load = %d, want %d", i, s.CumulativeLoad, wantLoad[i])
		}
		if s.Sequence != i+1 {
			t.Fatalf("stop %d sequence = %d, want %d", i, s.Sequence, i+1)
		}
	}

	if plan.TotalDistanceMeters != 3500 {
		t.Fatalf("distance = %d, want 3500", plan.TotalDistanceMeters)
	}
	if plan.TotalDurationSeconds != 420 {
		t.Fatalf("duration = %d, want 420", plan.TotalDurationSeconds)
	}

	trips, routes := mock.Calls()
	if trips != 1 || routes != 1 {
		t.Fatalf("calls = %d trips / %d routes, want 1/1", trips, routes)
	}
	last := mock.RouteCalls[0]
	if last[0] != depotA || last[1] != locC || last[4] != dumpA {
		t.Fatalf("route call points = %v", last)
	}
}

func TestRouteSequencerFallsBackOnTripFailure(t *testing.T) {
	mock := oracle.NewMockOracle(nil)
	mock.TripErr = errors.New("trip timeout")

	seq := NewRouteSequencer(mock, testEndpoints, 1, nil, nil)
	plan, err := seq.SequenceLoad(context.Background(), domain.ZoneA, testEndpoints[domain.ZoneA], "REAR-1", threeIncidentLoad(t), time.Now())
	if err != nil {
		t.Fatalf("trip failure must not be fatal: %v", err)
	}
	if plan.Optimized {
		t.Fatalf("expected fallback order")
	}
	for i, id := range []int64{1, 2, 3} {
		if plan.IncidentIDs[i] != id {
			t.Fatalf("incident order = %v, want severity order", plan.IncidentIDs)
		}
	}
	if _, routes := mock.Calls(); routes != 1 {
		t.Fatalf("expected one route call, got %d", routes)
	}
}

func TestRouteSequencerSkipsFallbackOnceCancelled(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := metrics.New(reg)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	mock := oracle.NewMockOracle(nil)
	mock.TripErr = context.Canceled
	seq := NewRouteSequencer(mock, testEndpoints, 1, nil, rec)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = seq.SequenceLoad(ctx, domain.ZoneA, testEndpoints[domain.ZoneA], "REAR-1", threeIncidentLoad(t), time.Now())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if _, routes := mock.Calls(); routes != 0 {
		t.Fatalf("expected no route call after cancellation, got %d", routes)
	}
	if n, err := testutil.GatherAndCount(reg, "collection_sequencer_fallbacks_total"); err != nil || n != 0 {
		t.Fatalf("fallback series = %d (%v), want 0", n, err)
	}

	mock.TripErr = errors.New("trip timeout")
	if _, err := seq.SequenceLoad(context.Background(), domain.ZoneA, testEndpoints[domain.ZoneA], "REAR-1", threeIncidentLoad(t), time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n, err := testutil.GatherAndCount(reg, "collection_sequencer_fallbacks_total"); err != nil || n != 1 {
		t.Fatalf("fallback series = %d (%v), want 1", n, err)
	}
}

func TestRouteSequencerRejectsUnanchoredTripOrder(t *testing.T) {
	mock := oracle.NewMockOracle(nil)
	mock.Order = func(points []domain.Coordinates) []int { return []int{1, 0, 2, 3, 4} }

	seq := NewRouteSequencer(mock, testEndpoints, 1, nil, nil)
	plan, err := seq.SequenceLoad(context.Background(), domain.ZoneA, testEndpoints[domain.ZoneA], "REAR-1", threeIncidentLoad(t), time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Optimized {
		t.Fatalf("expected fallback for an order that moves the depot")
	}
}

func TestRouteSequencerRouteFailureIsFatal(t *testing.T) {
	mock := oracle.NewMockOracle(nil)
	mock.RouteErr = func([]domain.Coordinates) error { return errors.New("route 503") }

	seq := NewRouteSequencer(mock, testEndpoints, 1, nil, nil)
	_, err := seq.SequenceLoad(context.Background(), domain.ZoneA, testEndpoints[domain.ZoneA], "REAR-1", threeIncidentLoad(t), time.Now())
	if err == nil {
		t.Fatalf("expected error")
	}
	oe, ok := domain.AsOracleError(err)
	if !ok || !oe.Fatal {
		t.Fatalf("expected fatal oracle error, got %v", err)
	}
}

func TestRouteSequencerSmallLoadSkipsTrip(t *testing.T) {
	mock := oracle.NewMockOracle(nil)
	load := domain.NewTruckLoad(domain.TruckLateral)
	_ = load.Load(&domain.Incident{ID: 4, Severity: 3, Location: locB})
	_ = load.Load(&domain.Incident{ID: 5, Severity: 1, Location: locA})

	seq := NewRouteSequencer(mock, testEndpoints, 1, nil, nil)
	plan, err := seq.SequenceLoad(context.Background(), domain.ZoneA, testEndpoints[domain.ZoneA], "LATERAL-1", load, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trips, routes := mock.Calls(); trips != 0 || routes != 1 {
		t.Fatalf("calls = %d trips / %d routes, want 0/1", trips, routes)
	}
	if plan.IncidentIDs[0] != 4 || plan.IncidentIDs[1] != 5 {
		t.Fatalf("incident order = %v, want [4 5]", plan.IncidentIDs)
	}
	// Three legs at the mock default of 1000m / 120s.
	if plan.TotalDistanceMeters != 3000 || plan.TotalDurationSeconds != 360 {
		t.Fatalf("totals = %dm/%ds, want 3000m/360s", plan.TotalDistanceMeters, plan.TotalDurationSeconds)
	}
}

func TestRouteSequencerSequencesAcrossTrucks(t *testing.T) {
	mock := oracle.NewMockOracle(nil)
	loads, err := PackTrucks([]*domain.Incident{
		{ID: 1, Severity: 5, Location: locA},
		{ID: 2, Severity: 5, Location: locB},
		{ID: 3, Severity: 5, Location: locC},
		{ID: 4, Severity: 5, Location: locA},
		{ID: 5, Severity: 5, Location: locB},
		{ID: 6, Severity: 3, Location: locC},
	})
	if err != nil {
		t.Fatalf("pack: %v", err)
	}

	seq := NewRouteSequencer(mock, testEndpoints, 4, nil, nil)
	plans, err := seq.Sequence(context.Background(), domain.ZoneA, loads, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plans) != 2 {
		t.Fatalf("expected 2 plans, got %d", len(plans))
	}
	if plans[0].Label != "REAR-1" || plans[1].Label != "LATERAL-1" {
		t.Fatalf("labels = %s, %s", plans[0].Label, plans[1].Label)
	}

	want := 1
	for _, p := range plans {
		for _, s := range p.Stops {
			if s.Sequence != want {
				t.Fatalf("truck %s stop sequence = %d, want %d", p.Label, s.Sequence, want)
			}
			want++
		}
	}
	// 7 stops on the rear truck, 3 on the lateral one.
	if want != 11 {
		t.Fatalf("expected 10 stops, got %d", want-1)
	}
}

func TestRouteSequencerUnknownZone(t *testing.T) {
	seq := NewRouteSequencer(oracle.NewMockOracle(nil), fixedEndpoints{}, 1, nil, nil)
	if _, err := seq.Sequence(context.Background(), domain.ZoneB, []*domain.TruckLoad{threeIncidentLoad(t)}, time.Now()); err == nil {
		t.Fatalf("expected error for a zone without endpoints")
	}
}
