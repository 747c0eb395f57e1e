package repositories

import (
	"collection-route-service/internal/domain"
	"collection-route-service/internal/ports"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const routeColumns = `id, zone, state, severity_sum, truck_count, total_distance_meters, total_duration_seconds, generated_at, notes`

func (q *queries) CreateRoute(ctx context.Context, r *domain.Route) error {
	id, err := q.insertReturningID(ctx, `
	INSERT INTO routes (zone, state, severity_sum, truck_count, total_distance_meters, total_duration_seconds, generated_at, notes)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(r.Zone), string(r.State), r.SeveritySum, r.TruckCount,
		r.TotalDistanceMeters, r.TotalDurationSeconds, fmtTime(r.GeneratedAt), r.Notes,
	)
	if err != nil {
		return fmt.Errorf("create route: %w", err)
	}
	r.ID = id
	return nil
}

func (q *queries) GetRoute(ctx context.Context, id int64) (*domain.Route, error) {
	r, err := scanRoute(q.queryRow(ctx, `SELECT `+routeColumns+` FROM routes WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Entity: "route", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get route %d: %w", id, err)
	}
	return r, nil
}

// ListRoutes returns matches, newest first.
func (q *queries) ListRoutes(ctx context.Context, f ports.RouteFilter) ([]*domain.Route, error) {
	var (
		where []string
		args  []any
	)
	if f.Zone != "" {
		where = append(where, "zone = ?")
		args = append(args, string(f.Zone))
	}
	if len(f.States) > 0 {
		where = append(where, "state IN ("+placeholders(len(f.States))+")")
		for _, s := range f.States {
			args = append(args, string(s))
		}
	}

	query := `SELECT ` + routeColumns + ` FROM routes`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC"

	rows, err := q.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Route, 0)
	for rows.Next() {
		r, err := scanRoute(rows)
		if err != nil {
			return nil, fmt.Errorf("list routes: scan rows: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list routes: row iteration: %w", err)
	}
	return out, nil
}

// UpdateRoute persists state and notes; totals are immutable after generation.
func (q *queries) UpdateRoute(ctx context.Context, r *domain.Route) error {
	res, err := q.exec(ctx, `UPDATE routes SET state = ?, notes = ? WHERE id = ?`, string(r.State), r.Notes, r.ID)
	if err != nil {
		return fmt.Errorf("update route %d: %w", r.ID, err)
	}
	return requireAffected(res, "route", r.ID)
}

func scanRoute(s scanner) (*domain.Route, error) {
	var (
		r           domain.Route
		zone, state string
		generatedAt string
	)
	if err := s.Scan(
		&r.ID, &zone, &state, &r.SeveritySum, &r.TruckCount,
		&r.TotalDistanceMeters, &r.TotalDurationSeconds, &generatedAt, &r.Notes,
	); err != nil {
		return nil, err
	}
	t, err := parseTime(generatedAt)
	if err != nil {
		return nil, err
	}
	r.GeneratedAt = t
	r.Zone = domain.Zone(zone)
	r.State = domain.RouteState(state)
	return &r, nil
}

func (q *queries) CreateStops(ctx context.Context, stops []domain.Stop) error {
	for i := range stops {
		s := &stops[i]
		var incidentID sql.NullInt64
		if s.IncidentID != nil {
			incidentID = sql.NullInt64{Int64: *s.IncidentID, Valid: true}
		}
		id, err := q.insertReturningID(ctx, `
		INSERT INTO stops (route_id, truck_label, truck_class, sequence, point_type, incident_id,
			lon, lat, estimated_arrival, service_seconds, cumulative_load)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			s.RouteID, s.TruckLabel, string(s.TruckClass), s.Sequence, string(s.PointType), incidentID,
			s.Location.Lon, s.Location.Lat, fmtTime(s.EstimatedArrival),
			int(s.ServiceDuration/time.Second), s.CumulativeLoad,
		)
		if err != nil {
			return fmt.Errorf("create stops: route %d sequence %d: %w", s.RouteID, s.Sequence, err)
		}
		s.ID = id
	}
	return nil
}

// ListStops returns the stops of a route in sequence order.
func (q *queries) ListStops(ctx context.Context, routeID int64) ([]domain.Stop, error) {
	rows, err := q.query(ctx, `
	SELECT id, route_id, truck_label, truck_class, sequence, point_type, incident_id,
		lon, lat, estimated_arrival, service_seconds, cumulative_load
	FROM stops
	WHERE route_id = ?
	ORDER BY sequence`, routeID)
	if err != nil {
		return nil, fmt.Errorf("list stops: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Stop, 0)
	for rows.Next() {
		var (
			s          domain.Stop
			class      string
			pointType  string
			incidentID sql.NullInt64
			arrival    string
			service    int
		)
		if err := rows.Scan(
			&s.ID, &s.RouteID, &s.TruckLabel, &class, &s.Sequence, &pointType, &incidentID,
			&s.Location.Lon, &s.Location.Lat, &arrival, &service, &s.CumulativeLoad,
		); err != nil {
			return nil, fmt.Errorf("list stops: scan rows: %w", err)
		}
		if s.EstimatedArrival, err = parseTime(arrival); err != nil {
			return nil, fmt.Errorf("list stops: %w", err)
		}
		if incidentID.Valid {
			id := incidentID.Int64
			s.IncidentID = &id
		}
		s.TruckClass = domain.TruckClass(class)
		s.PointType = domain.PointType(pointType)
		s.ServiceDuration = time.Duration(service) * time.Second
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list stops: row iteration: %w", err)
	}
	return out, nil
}
