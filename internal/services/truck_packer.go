package services

import (
	"collection-route-service/internal/domain"
	"fmt"
	"slices"
)

// PackTrucks distributes incidents into truck-loads in a single forward pass.
//
// Incidents are taken by severity descending, then id ascending. The first truck is Rear;
// every overflow closes the current truck and opens a Lateral seeded with the incident.
// Earlier trucks are never revisited, so the result depends only on the input set.
func PackTrucks(incidents []*domain.Incident) ([]*domain.TruckLoad, error) {
	if len(incidents) == 0 {
		return []*domain.TruckLoad{}, nil
	}

	ordered := slices.Clone(incidents)
	slices.SortStableFunc(ordered, func(a, b *domain.Incident) int {
		if a.Severity != b.Severity {
			return int(b.Severity) - int(a.Severity)
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})

	current := domain.NewTruckLoad(domain.TruckRear)
	loads := []*domain.TruckLoad{current}

	for _, inc := range ordered {
		if int(inc.Severity) > domain.TruckLateral.Capacity() {
			return nil, fmt.Errorf("pack trucks: incident %d severity %d exceeds any overflow truck", inc.ID, inc.Severity)
		}
		if !current.Fits(inc.Severity) {
			current = domain.NewTruckLoad(domain.TruckLateral)
			loads = append(loads, current)
		}
		if err := current.Load(inc); err != nil {
			return nil, fmt.Errorf("pack trucks: %w", err)
		}
	}

	return loads, nil
}
