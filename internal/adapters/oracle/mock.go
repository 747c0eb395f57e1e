package oracle

import (
	"collection-route-service/internal/domain"
	"collection-route-service/internal/ports"
	"context"
	"errors"
	"sync"
)

// MockPair fixes the totals of one leg between two points.
type MockPair struct {
	From, To domain.Coordinates
	Meters   float64
	Seconds  float64
}

// MockOracle is an in-memory RoutingOracle for tests. Legs without a
// registered pair cost DefaultMeters/DefaultSeconds.
type MockOracle struct {
	mu sync.Mutex
	m  map[[2]domain.Coordinates]MockPair

	DefaultMeters  float64
	DefaultSeconds float64

	// Order returns the visit order for a trip; nil keeps the submitted order.
	Order    func(points []domain.Coordinates) []int
	TripErr  error
	RouteErr func(points []domain.Coordinates) error

	TripCalls  [][]domain.Coordinates
	RouteCalls [][]domain.Coordinates
}

func NewMockOracle(pairs []MockPair) *MockOracle {
	m := make(map[[2]domain.Coordinates]MockPair, len(pairs))
	for _, p := range pairs {
		m[[2]domain.Coordinates{p.From, p.To}] = p
	}
	return &MockOracle{m: m, DefaultMeters: 1000, DefaultSeconds: 120}
}

func (o *MockOracle) legs(points []domain.Coordinates) (float64, float64) {
	var meters, seconds float64
	for i := 1; i < len(points); i++ {
		if p, ok := o.m[[2]domain.Coordinates{points[i-1], points[i]}]; ok {
			meters += p.Meters
			seconds += p.Seconds
			continue
		}
		meters += o.DefaultMeters
		seconds += o.DefaultSeconds
	}
	return meters, seconds
}

func (o *MockOracle) TripOptimize(ctx context.Context, points []domain.Coordinates) (ports.TripResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.TripCalls = append(o.TripCalls, append([]domain.Coordinates(nil), points...))
	if o.TripErr != nil {
		return ports.TripResult{}, o.TripErr
	}
	if len(points) < 2 {
		return ports.TripResult{}, errors.New("mock trip: need at least 2 points")
	}

	order := make([]int, len(points))
	for i := range order {
		order[i] = i
	}
	if o.Order != nil {
		order = o.Order(points)
	}

	visited := make([]domain.Coordinates, 0, len(order))
	for _, idx := range order {
		visited = append(visited, points[idx])
	}
	meters, seconds := o.legs(visited)
	return ports.TripResult{
		RouteResult: ports.RouteResult{DistanceMeters: meters, DurationSeconds: seconds},
		VisitOrder:  order,
	}, nil
}

func (o *MockOracle) Route(ctx context.Context, points []domain.Coordinates) (ports.RouteResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.RouteCalls = append(o.RouteCalls, append([]domain.Coordinates(nil), points...))
	if o.RouteErr != nil {
		if err := o.RouteErr(points); err != nil {
			return ports.RouteResult{}, err
		}
	}
	if len(points) < 2 {
		return ports.RouteResult{}, errors.New("mock route: need at least 2 points")
	}

	meters, seconds := o.legs(points)
	return ports.RouteResult{DistanceMeters: meters, DurationSeconds: seconds}, nil
}

// Calls returns the number of trip and route calls seen so far.
func (o *MockOracle) Calls() (trips, routes int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.TripCalls), len(o.RouteCalls)
}
