package config

import (
	"collection-route-service/internal/domain"
	"collection-route-service/internal/ports"
	"fmt"
)

// StaticEndpoints is the fixed depot/dump registry loaded from configuration.
type StaticEndpoints struct {
	byZone map[domain.Zone]ports.Endpoints
}

func NewStaticEndpoints(cfg map[string]EndpointConfig) (*StaticEndpoints, error) {
	out := &StaticEndpoints{byZone: make(map[domain.Zone]ports.Endpoints, len(cfg))}
	for name, e := range cfg {
		zone, err := domain.ParseZone(name)
		if err != nil {
			return nil, fmt.Errorf("endpoints: %w", err)
		}
		out.byZone[zone] = ports.Endpoints{
			Depot: domain.Coordinates{Lon: e.Depot.Lon, Lat: e.Depot.Lat},
			Dump:  domain.Coordinates{Lon: e.Dump.Lon, Lat: e.Dump.Lat},
		}
	}
	for _, z := range domain.Zones() {
		if _, ok := out.byZone[z]; !ok {
			return nil, fmt.Errorf("endpoints: zone %s has no depot/dump configured", z)
		}
	}
	return out, nil
}

func (s *StaticEndpoints) Endpoints(zone domain.Zone) (ports.Endpoints, error) {
	e, ok := s.byZone[zone]
	if !ok {
		return ports.Endpoints{}, &domain.ValidationError{Field: "zone", Msg: fmt.Sprintf("no endpoints for zone %q", zone)}
	}
	return e, nil
}
