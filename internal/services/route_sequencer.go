package services

import (
	"collection-route-service/internal/domain"
	"collection-route-service/internal/platform/logger"
	"collection-route-service/internal/platform/metrics"
	"collection-route-service/internal/platform/obs"
	"collection-route-service/internal/ports"
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"
)

// RouteSequencer orders the stops of each truck-load and asks the routing oracle
// for authoritative distance and duration.
//
// Loads with more than two incidents are trip-optimised between the zone depot and dump.
// A failed optimisation keeps the packing order; a failed distance call fails the whole batch.
// Arrival times and cumulative load are computed locally from fixed service durations.
type RouteSequencer struct {
	oracle      ports.RoutingOracle
	endpoints   ports.EndpointRegistry
	concurrency int
	log         logger.Logger
	metrics     *metrics.Recorder
}

func NewRouteSequencer(
	oracle ports.RoutingOracle,
	endpoints ports.EndpointRegistry,
	concurrency int,
	log logger.Logger,
	rec *metrics.Recorder,
) *RouteSequencer {
	if concurrency <= 0 {
		concurrency = 1
	}
	if log == nil {
		log = logger.Nop{}
	}
	return &RouteSequencer{
		oracle:      oracle,
		endpoints:   endpoints,
		concurrency: concurrency,
		log:         log,
		metrics:     rec,
	}
}

// Sequence plans every load of a zone, departing at departAt.
// Plans keep the order of loads; stop sequence numbers run across all of them starting at 1.
func (s *RouteSequencer) Sequence(
	ctx context.Context,
	zone domain.Zone,
	loads []*domain.TruckLoad,
	departAt time.Time,
) (plans []*domain.TruckPlan, err error) {
	defer obs.Time(ctx, "sequence_route")(&err)

	ends, err := s.endpoints.Endpoints(zone)
	if err != nil {
		return nil, fmt.Errorf("sequence route: zone %s: %w", zone, err)
	}

	labels := truckLabels(loads)
	plans = make([]*domain.TruckPlan, len(loads))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, load := range loads {
		g.Go(func() error {
			plan, err := s.SequenceLoad(gctx, zone, ends, labels[i], load, departAt)
			if err != nil {
				return fmt.Errorf("sequence route: truck %s: %w", labels[i], err)
			}
			plans[i] = plan
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seq := 1
	for _, p := range plans {
		for j := range p.Stops {
			p.Stops[j].Sequence = seq
			seq++
		}
	}
	return plans, nil
}

// SequenceLoad plans one truck. Stop sequence numbers are local to the truck.
func (s *RouteSequencer) SequenceLoad(
	ctx context.Context,
	zone domain.Zone,
	ends ports.Endpoints,
	label string,
	load *domain.TruckLoad,
	departAt time.Time,
) (*domain.TruckPlan, error) {
	if load == nil || len(load.Incidents) == 0 {
		return nil, errors.New("sequence load: load must contain at least one incident")
	}

	ordered := load.Incidents
	optimized := false

	if len(load.Incidents) > 2 {
		order, err := s.optimize(ctx, ends, load.Incidents)
		if err != nil && ctx.Err() != nil {
			// The batch is already aborted; no fallback.
			return nil, fmt.Errorf("sequence load: %w", ctx.Err())
		}
		if err != nil {
			oe := &domain.OracleError{Op: "trip", Fatal: false, Err: err}
			s.log.Warnf("zone %s truck %s: %v; keeping severity order", zone, label, oe)
			s.metrics.Fallback(string(zone))
		} else {
			ordered = order
			optimized = true
		}
	}

	points := make([]domain.Coordinates, 0, len(ordered)+2)
	points = append(points, ends.Depot)
	for _, inc := range ordered {
		points = append(points, inc.Location)
	}
	points = append(points, ends.Dump)

	res, err := s.oracle.Route(ctx, points)
	if err != nil {
		return nil, &domain.OracleError{Op: "route", Fatal: true, Err: err}
	}

	stops := buildStops(label, load.Class, ends, ordered, departAt)

	ids := make([]int64, 0, len(ordered))
	for _, inc := range ordered {
		ids = append(ids, inc.ID)
	}

	return &domain.TruckPlan{
		Label:                label,
		Class:                load.Class,
		Load:                 load.TotalLoad,
		Stops:                stops,
		IncidentIDs:          ids,
		TotalDistanceMeters:  int(math.Round(res.DistanceMeters)),
		TotalDurationSeconds: int(math.Round(res.DurationSeconds)),
		Optimized:            optimized,
	}, nil
}

// optimize asks the oracle for an open path Depot -> incidents -> Dump and maps its
// visit order back onto the incidents.
func (s *RouteSequencer) optimize(ctx context.Context, ends ports.Endpoints, incs []*domain.Incident) ([]*domain.Incident, error) {
	points := make([]domain.Coordinates, 0, len(incs)+2)
	points = append(points, ends.Depot)
	for _, inc := range incs {
		points = append(points, inc.Location)
	}
	points = append(points, ends.Dump)

	trip, err := s.oracle.TripOptimize(ctx, points)
	if err != nil {
		return nil, err
	}

	last := len(points) - 1
	order := trip.VisitOrder
	if len(order) != len(points) || order[0] != 0 || order[last] != last {
		return nil, fmt.Errorf("trip order %v is not anchored at depot and dump", order)
	}

	seen := make([]bool, len(points))
	out := make([]*domain.Incident, 0, len(incs))
	for _, idx := range order[1:last] {
		if idx <= 0 || idx >= last || seen[idx] {
			return nil, fmt.Errorf("trip order %v is not a permutation", order)
		}
		seen[idx] = true
		out = append(out, incs[idx-1])
	}
	return out, nil
}

// buildStops lays out Depot, incidents and Dump with arrivals accumulated from service times.
func buildStops(label string, class domain.TruckClass, ends ports.Endpoints, ordered []*domain.Incident, departAt time.Time) []domain.Stop {
	stops := make([]domain.Stop, 0, len(ordered)+2)

	arrival := departAt
	load := 0
	add := func(pt domain.PointType, loc domain.Coordinates, incID *int64) {
		if n := len(stops); n > 0 {
			arrival = arrival.Add(stops[n-1].ServiceDuration)
		}
		stops = append(stops, domain.Stop{
			TruckLabel:       label,
			TruckClass:       class,
			Sequence:         len(stops) + 1,
			PointType:        pt,
			IncidentID:       incID,
			Location:         loc,
			EstimatedArrival: arrival,
			ServiceDuration:  pt.ServiceDuration(),
			CumulativeLoad:   load,
		})
	}

	add(domain.PointDepot, ends.Depot, nil)
	for _, inc := range ordered {
		id := inc.ID
		load += int(inc.Severity)
		add(domain.PointIncident, inc.Location, &id)
	}
	add(domain.PointDump, ends.Dump, nil)

	return stops
}

// truckLabels names trucks per class in packing order: REAR-1, LATERAL-1, LATERAL-2...
func truckLabels(loads []*domain.TruckLoad) []string {
	counts := make(map[domain.TruckClass]int)
	labels := make([]string, len(loads))
	for i, l := range loads {
		counts[l.Class]++
		labels[i] = l.Class.Label(counts[l.Class])
	}
	return labels
}
