package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// InitSchema creates every table used by the service for the given dialect.
func InitSchema(db *sql.DB, dialect Dialect) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	idColumn := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if dialect == DialectPostgres {
		idColumn = "BIGSERIAL PRIMARY KEY"
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createIncidentsQuery := `
	CREATE TABLE IF NOT EXISTS incidents (
		id {{ID}},
		kind TEXT NOT NULL DEFAULT '',
		severity INTEGER NOT NULL CHECK (severity IN (1, 3, 5)),
		description TEXT NOT NULL DEFAULT '',
		lon DOUBLE PRECISION NOT NULL,
		lat DOUBLE PRECISION NOT NULL,
		zone TEXT NOT NULL,
		state TEXT NOT NULL,
		reported_at TEXT NOT NULL,
		validated_at TEXT
	);
	`

	createRoutesQuery := `
	CREATE TABLE IF NOT EXISTS routes (
		id {{ID}},
		zone TEXT NOT NULL,
		state TEXT NOT NULL,
		severity_sum INTEGER NOT NULL,
		truck_count INTEGER NOT NULL,
		total_distance_meters INTEGER NOT NULL,
		total_duration_seconds INTEGER NOT NULL,
		generated_at TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT ''
	);
	`

	createStopsQuery := `
	CREATE TABLE IF NOT EXISTS stops (
		id {{ID}},
		route_id BIGINT NOT NULL REFERENCES routes(id),
		truck_label TEXT NOT NULL,
		truck_class TEXT NOT NULL,
		sequence INTEGER NOT NULL,
		point_type TEXT NOT NULL,
		incident_id BIGINT REFERENCES incidents(id),
		lon DOUBLE PRECISION NOT NULL,
		lat DOUBLE PRECISION NOT NULL,
		estimated_arrival TEXT NOT NULL,
		service_seconds INTEGER NOT NULL,
		cumulative_load INTEGER NOT NULL,
		UNIQUE (route_id, sequence)
	);
	`

	createDriversQuery := `
	CREATE TABLE IF NOT EXISTS drivers (
		id {{ID}},
		name TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		license_class TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL,
		zone_preference TEXT NOT NULL,
		hired_at TEXT NOT NULL
	);
	`

	createAssignmentsQuery := `
	CREATE TABLE IF NOT EXISTS assignments (
		id {{ID}},
		route_id BIGINT NOT NULL REFERENCES routes(id),
		driver_id BIGINT NOT NULL REFERENCES drivers(id),
		truck_class TEXT NOT NULL,
		truck_label TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL,
		assigned_at TEXT NOT NULL,
		started_at TEXT,
		finished_at TEXT
	);
	`

	createSettingsQuery := `
	CREATE TABLE IF NOT EXISTS settings (
		name TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`

	createRouteCacheQuery := `
	CREATE TABLE IF NOT EXISTS route_cache (
		cache_key TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	`

	createIndexQueries := []string{
		`CREATE INDEX IF NOT EXISTS idx_incidents_zone_state ON incidents(zone, state);`,
		`CREATE INDEX IF NOT EXISTS idx_routes_zone_state ON routes(zone, state);`,
		`CREATE INDEX IF NOT EXISTS idx_stops_route ON stops(route_id, sequence);`,
		`CREATE INDEX IF NOT EXISTS idx_assignments_route ON assignments(route_id, state);`,
		`CREATE INDEX IF NOT EXISTS idx_assignments_driver ON assignments(driver_id, state);`,
	}

	statements := []string{
		createIncidentsQuery,
		createRoutesQuery,
		createStopsQuery,
		createDriversQuery,
		createAssignmentsQuery,
		createSettingsQuery,
		createRouteCacheQuery,
	}
	statements = append(statements, createIndexQueries...)

	for i, stmt := range statements {
		stmt = strings.ReplaceAll(stmt, "{{ID}}", idColumn)
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}
