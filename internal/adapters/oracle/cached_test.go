package oracle

import (
	"collection-route-service/internal/domain"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
}

func (m *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, false, m.err
	}
	b, ok := m.data[key]
	return b, ok, nil
}

func (m *mapCache) Put(_ context.Context, key string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[key] = payload
	return nil
}

func TestCachedOracleServesRepeatCallsFromCache(t *testing.T) {
	ctx := context.Background()
	mock := NewMockOracle(nil)
	mock.Order = func(p []domain.Coordinates) []int { return []int{0, 2, 1, 3} }
	c := NewCachedOracle(mock, &mapCache{data: map[string][]byte{}}, nil)

	first, err := c.TripOptimize(ctx, pts)
	require.NoError(t, err)
	second, err := c.TripOptimize(ctx, pts)
	require.NoError(t, err)
	assert.Equal(t, first.VisitOrder, second.VisitOrder)

	_, err = c.Route(ctx, pts)
	require.NoError(t, err)
	r, err := c.Route(ctx, pts)
	require.NoError(t, err)
	assert.Equal(t, 3000.0, r.DistanceMeters)

	trips, routes := mock.Calls()
	assert.Equal(t, 1, trips)
	assert.Equal(t, 1, routes)
}

func TestCachedOracleDoesNotCacheFailures(t *testing.T) {
	ctx := context.Background()
	mock := NewMockOracle(nil)
	boom := errors.New("boom")
	fail := true
	mock.RouteErr = func([]domain.Coordinates) error {
		if fail {
			return boom
		}
		return nil
	}
	c := NewCachedOracle(mock, &mapCache{data: map[string][]byte{}}, nil)

	_, err := c.Route(ctx, pts)
	require.ErrorIs(t, err, boom)

	fail = false
	_, err = c.Route(ctx, pts)
	require.NoError(t, err)

	_, routes := mock.Calls()
	assert.Equal(t, 2, routes)
}

func TestCachedOracleIgnoresCacheErrors(t *testing.T) {
	mock := NewMockOracle(nil)
	c := NewCachedOracle(mock, &mapCache{err: errors.New("cache down")}, nil)

	_, err := c.Route(context.Background(), pts)
	assert.NoError(t, err)
}
