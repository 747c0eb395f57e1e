package ports

import (
	"collection-route-service/internal/domain"
	"context"
)

// Contract for reading the mutable severity threshold at decision time.
type ConfigProvider interface {
	SeverityThreshold(ctx context.Context) (int, error)
}

// Fixed depot and dump coordinates for a zone.
type Endpoints struct {
	Depot domain.Coordinates
	Dump  domain.Coordinates
}

type EndpointRegistry interface {
	Endpoints(zone domain.Zone) (Endpoints, error)
}

// Fire-and-forget sink; implementations must not block the caller.
type NotificationSink interface {
	Notify(ctx context.Context, ev domain.Event)
}
