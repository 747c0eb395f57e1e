package services

import (
	"collection-route-service/internal/domain"
	"collection-route-service/internal/ports"
	"context"
	"fmt"
)

// SeveritySum adds up the severities of a zone's incidents whose state is one of states.
// It only reads; callers decide which snapshot (store or transaction) to read from.
func SeveritySum(ctx context.Context, q ports.Queries, zone domain.Zone, states ...domain.IncidentState) (int, error) {
	if len(states) == 0 {
		return 0, nil
	}
	incs, err := q.ListIncidents(ctx, ports.IncidentFilter{Zone: zone, States: states})
	if err != nil {
		return 0, fmt.Errorf("severity sum: zone %s: %w", zone, err)
	}

	sum := 0
	for _, inc := range incs {
		sum += int(inc.Severity)
	}
	return sum, nil
}

// generationPool returns the incidents of a zone that the next route may pack.
func generationPool(ctx context.Context, q ports.Queries, zone domain.Zone) ([]*domain.Incident, error) {
	incs, err := q.ListIncidents(ctx, ports.IncidentFilter{
		Zone:   zone,
		States: []domain.IncidentState{domain.IncidentValidated, domain.IncidentPending},
	})
	if err != nil {
		return nil, fmt.Errorf("generation pool: zone %s: %w", zone, err)
	}

	pool := make([]*domain.Incident, 0, len(incs))
	for _, inc := range incs {
		if inc.Eligible() {
			pool = append(pool, inc)
		}
	}
	return pool, nil
}

// recalculationPool is the generation pool plus the incidents held by the zone's planned routes,
// i.e. what the replacement route covers once those routes are released.
func recalculationPool(ctx context.Context, q ports.Queries, zone domain.Zone) ([]*domain.Incident, error) {
	pool, err := generationPool(ctx, q, zone)
	if err != nil {
		return nil, err
	}
	routes, err := q.ListRoutes(ctx, ports.RouteFilter{Zone: zone, States: []domain.RouteState{domain.RoutePlanned}})
	if err != nil {
		return nil, fmt.Errorf("recalculation pool: zone %s: %w", zone, err)
	}
	for _, r := range routes {
		stops, err := q.ListStops(ctx, r.ID)
		if err != nil {
			return nil, fmt.Errorf("recalculation pool: route %d: %w", r.ID, err)
		}
		ids := incidentIDs(stops, "")
		if len(ids) == 0 {
			continue
		}
		held, err := q.ListIncidents(ctx, ports.IncidentFilter{IDs: ids, States: []domain.IncidentState{domain.IncidentAssigned}})
		if err != nil {
			return nil, fmt.Errorf("recalculation pool: route %d: %w", r.ID, err)
		}
		pool = append(pool, held...)
	}
	return pool, nil
}
