package oracle

import (
	"collection-route-service/internal/domain"
	"collection-route-service/internal/platform/logger"
	"collection-route-service/internal/ports"
	"context"
	"encoding/json"
	"fmt"
)

// CachedOracle decorates a RoutingOracle with a persistent response cache.
// Cache failures are logged and never fail the call; oracle failures are not cached.
type CachedOracle struct {
	next  ports.RoutingOracle
	cache ports.RouteCache
	log   logger.Logger
}

func NewCachedOracle(next ports.RoutingOracle, cache ports.RouteCache, log logger.Logger) *CachedOracle {
	if log == nil {
		log = logger.Nop{}
	}
	return &CachedOracle{next: next, cache: cache, log: log}
}

func cacheKey(op string, points []domain.Coordinates) string {
	return fmt.Sprintf("%s|%s", op, joinCoords(points))
}

func (c *CachedOracle) TripOptimize(ctx context.Context, points []domain.Coordinates) (ports.TripResult, error) {
	key := cacheKey("trip", points)

	var hit ports.TripResult
	if c.lookup(ctx, key, &hit) && len(hit.VisitOrder) == len(points) {
		return hit, nil
	}

	res, err := c.next.TripOptimize(ctx, points)
	if err != nil {
		return ports.TripResult{}, err
	}
	c.store(ctx, key, res)
	return res, nil
}

func (c *CachedOracle) Route(ctx context.Context, points []domain.Coordinates) (ports.RouteResult, error) {
	key := cacheKey("route", points)

	var hit ports.RouteResult
	if c.lookup(ctx, key, &hit) {
		return hit, nil
	}

	res, err := c.next.Route(ctx, points)
	if err != nil {
		return ports.RouteResult{}, err
	}
	c.store(ctx, key, res)
	return res, nil
}

func (c *CachedOracle) lookup(ctx context.Context, key string, dst any) bool {
	b, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.log.Warnf("route cache read failed: %v", err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(b, dst); err != nil {
		c.log.Warnf("route cache entry %q unreadable: %v", key, err)
		return false
	}
	return true
}

func (c *CachedOracle) store(ctx context.Context, key string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		c.log.Warnf("route cache encode failed: %v", err)
		return
	}
	if err := c.cache.Put(ctx, key, b); err != nil {
		c.log.Warnf("route cache write failed: %v", err)
	}
}
