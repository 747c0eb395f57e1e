package repositories

import (
	"collection-route-service/internal/domain"
	"collection-route-service/internal/ports"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const incidentColumns = `id, kind, severity, description, lon, lat, zone, state, reported_at, validated_at`

func (q *queries) CreateIncident(ctx context.Context, inc *domain.Incident) error {
	id, err := q.insertReturningID(ctx, `
	INSERT INTO incidents (kind, severity, description, lon, lat, zone, state, reported_at, validated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inc.Kind, int(inc.Severity), inc.Description, inc.Location.Lon, inc.Location.Lat,
		string(inc.Zone), string(inc.State), fmtTime(inc.ReportedAt), fmtTimePtr(inc.ValidatedAt),
	)
	if err != nil {
		return fmt.Errorf("create incident: %w", err)
	}
	inc.ID = id
	return nil
}

func (q *queries) GetIncident(ctx context.Context, id int64) (*domain.Incident, error) {
	row := q.queryRow(ctx, `SELECT `+incidentColumns+` FROM incidents WHERE id = ?`, id)
	inc, err := scanIncident(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Entity: "incident", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get incident %d: %w", id, err)
	}
	return inc, nil
}

// ListIncidents returns matches ordered by id.
func (q *queries) ListIncidents(ctx context.Context, f ports.IncidentFilter) ([]*domain.Incident, error) {
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
	if len(f.IDs) > 0 {
		where = append(where, "id IN ("+placeholders(len(f.IDs))+")")
		for _, id := range f.IDs {
			args = append(args, id)
		}
	}

	query := `SELECT ` + incidentColumns + ` FROM incidents`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	rows, err := q.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Incident, 0)
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("list incidents: scan rows: %w", err)
		}
		out = append(out, inc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list incidents: row iteration: %w", err)
	}
	return out, nil
}

func (q *queries) UpdateIncident(ctx context.Context, inc *domain.Incident) error {
	res, err := q.exec(ctx, `
	UPDATE incidents
	SET kind = ?, severity = ?, description = ?, lon = ?, lat = ?, zone = ?, state = ?, validated_at = ?
	WHERE id = ?`,
		inc.Kind, int(inc.Severity), inc.Description, inc.Location.Lon, inc.Location.Lat,
		string(inc.Zone), string(inc.State), fmtTimePtr(inc.ValidatedAt), inc.ID,
	)
	if err != nil {
		return fmt.Errorf("update incident %d: %w", inc.ID, err)
	}
	return requireAffected(res, "incident", inc.ID)
}

func scanIncident(s scanner) (*domain.Incident, error) {
	var (
		inc        domain.Incident
		severity   int
		zone       string
		state      string
		reportedAt string
		validated  sql.NullString
	)
	if err := s.Scan(
		&inc.ID, &inc.Kind, &severity, &inc.Description, &inc.Location.Lon, &inc.Location.Lat,
		&zone, &state, &reportedAt, &validated,
	); err != nil {
		return nil, err
	}

	var err error
	if inc.ReportedAt, err = parseTime(reportedAt); err != nil {
		return nil, err
	}
	if inc.ValidatedAt, err = parseTimePtr(validated); err != nil {
		return nil, err
	}
	inc.Severity = domain.Severity(severity)
	inc.Zone = domain.Zone(zone)
	inc.State = domain.IncidentState(state)
	return &inc, nil
}

func requireAffected(res sql.Result, entity string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %s %d: rows affected: %w", entity, id, err)
	}
	if n == 0 {
		return &domain.NotFoundError{Entity: entity, ID: id}
	}
	return nil
}
