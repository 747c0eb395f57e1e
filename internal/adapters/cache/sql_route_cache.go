package cache

import (
	"collection-route-service/internal/platform/obs"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SQLRouteCache is a SQL-backed cache for routing oracle responses.
// Keys are expected to be consistent (already normalized) by the caller.
type SQLRouteCache struct {
	DB       *sql.DB
	Postgres bool
	TTL      time.Duration
	Now      func() time.Time
}

func NewSQLRouteCache(db *sql.DB, postgres bool, ttl time.Duration) *SQLRouteCache {
	return &SQLRouteCache{DB: db, Postgres: postgres, TTL: ttl, Now: time.Now}
}

func (s *SQLRouteCache) q(query string) string {
	if !s.Postgres {
		return query
	}
	n := 0
	var b strings.Builder
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Fetch a cached payload. Expired entries count as misses.
func (s *SQLRouteCache) Get(ctx context.Context, key string) (_ []byte, _ bool, err error) {
	defer obs.Time(ctx, "route.cache.Get")(&err)

	if s.DB == nil {
		return nil, false, errors.New("route cache: db is nil")
	}
	if strings.TrimSpace(key) == "" {
		return nil, false, errors.New("get route cache: key must not be empty")
	}

	var payload, createdAt string
	err = s.DB.QueryRowContext(ctx, s.q(`
	SELECT payload, created_at
	FROM route_cache
	WHERE cache_key = ?;
	`), key).Scan(&payload, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get route cache: query route_cache table: %w", err)
	}

	if s.TTL > 0 {
		created, perr := time.Parse(time.RFC3339Nano, createdAt)
		if perr != nil || s.Now().Sub(created) > s.TTL {
			return nil, false, nil
		}
	}

	return []byte(payload), true, nil
}

// Store a payload, replacing any previous entry for key.
func (s *SQLRouteCache) Put(ctx context.Context, key string, payload []byte) error {
	if s.DB == nil {
		return errors.New("route cache: db is nil")
	}
	if strings.TrimSpace(key) == "" {
		return errors.New("insert route cache: key must not be empty")
	}

	_, err := s.DB.ExecContext(ctx, s.q(`
	INSERT INTO route_cache (cache_key, payload, created_at)
	VALUES (?, ?, ?)
	ON CONFLICT (cache_key) DO UPDATE
	SET payload = EXCLUDED.payload,
		created_at = EXCLUDED.created_at;
	`), key, string(payload), s.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert route cache key=%q: %w", key, err)
	}

	return nil
}
