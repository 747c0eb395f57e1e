package ports

import (
	"collection-route-service/internal/domain"
	"context"
)

type IncidentFilter struct {
	Zone   domain.Zone
	States []domain.IncidentState
	IDs    []int64
}

type RouteFilter struct {
	Zone   domain.Zone
	States []domain.RouteState
}

type AssignmentFilter struct {
	RouteID  int64
	DriverID int64
	States   []domain.AssignmentState
}

// Queries is the record-level contract shared by the store and its transactions.
// Getters return *domain.NotFoundError for unknown ids.
type Queries interface {
	CreateIncident(ctx context.Context, inc *domain.Incident) error
	GetIncident(ctx context.Context, id int64) (*domain.Incident, error)
	ListIncidents(ctx context.Context, f IncidentFilter) ([]*domain.Incident, error)
	UpdateIncident(ctx context.Context, inc *domain.Incident) error

	CreateRoute(ctx context.Context, r *domain.Route) error
	GetRoute(ctx context.Context, id int64) (*domain.Route, error)
	ListRoutes(ctx context.Context, f RouteFilter) ([]*domain.Route, error)
	UpdateRoute(ctx context.Context, r *domain.Route) error

	CreateStops(ctx context.Context, stops []domain.Stop) error
	ListStops(ctx context.Context, routeID int64) ([]domain.Stop, error)

	CreateAssignment(ctx context.Context, a *domain.Assignment) error
	GetAssignment(ctx context.Context, id int64) (*domain.Assignment, error)
	ListAssignments(ctx context.Context, f AssignmentFilter) ([]*domain.Assignment, error)
	UpdateAssignment(ctx context.Context, a *domain.Assignment) error

	CreateDriver(ctx context.Context, d *domain.Driver) error
	GetDriver(ctx context.Context, id int64) (*domain.Driver, error)
	ListDrivers(ctx context.Context, state domain.DriverState) ([]*domain.Driver, error)
	UpdateDriver(ctx context.Context, d *domain.Driver) error

	GetSetting(ctx context.Context, key string) (string, bool, error)
	PutSetting(ctx context.Context, key, value string) error
}

// Port: persistent store supporting an all-or-nothing unit of work.
type Store interface {
	Queries
	// InTx runs fn inside one transaction; any error rolls back every write.
	InTx(ctx context.Context, fn func(q Queries) error) error
}
