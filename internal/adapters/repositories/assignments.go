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

const assignmentColumns = `id, route_id, driver_id, truck_class, truck_label, state, assigned_at, started_at, finished_at`

func (q *queries) CreateAssignment(ctx context.Context, a *domain.Assignment) error {
	id, err := q.insertReturningID(ctx, `
	INSERT INTO assignments (route_id, driver_id, truck_class, truck_label, state, assigned_at, started_at, finished_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.RouteID, a.DriverID, string(a.TruckClass), a.TruckLabel, string(a.State),
		fmtTime(a.AssignedAt), fmtTimePtr(a.StartedAt), fmtTimePtr(a.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	a.ID = id
	return nil
}

func (q *queries) GetAssignment(ctx context.Context, id int64) (*domain.Assignment, error) {
	a, err := scanAssignment(q.queryRow(ctx, `SELECT `+assignmentColumns+` FROM assignments WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Entity: "assignment", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get assignment %d: %w", id, err)
	}
	return a, nil
}

func (q *queries) ListAssignments(ctx context.Context, f ports.AssignmentFilter) ([]*domain.Assignment, error) {
	var (
		where []string
		args  []any
	)
	if f.RouteID != 0 {
		where = append(where, "route_id = ?")
		args = append(args, f.RouteID)
	}
	if f.DriverID != 0 {
		where = append(where, "driver_id = ?")
		args = append(args, f.DriverID)
	}
	if len(f.States) > 0 {
		where = append(where, "state IN ("+placeholders(len(f.States))+")")
		for _, s := range f.States {
			args = append(args, string(s))
		}
	}

	query := `SELECT ` + assignmentColumns + ` FROM assignments`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	rows, err := q.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Assignment, 0)
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("list assignments: scan rows: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list assignments: row iteration: %w", err)
	}
	return out, nil
}

func (q *queries) UpdateAssignment(ctx context.Context, a *domain.Assignment) error {
	res, err := q.exec(ctx, `
	UPDATE assignments SET state = ?, started_at = ?, finished_at = ? WHERE id = ?`,
		string(a.State), fmtTimePtr(a.StartedAt), fmtTimePtr(a.FinishedAt), a.ID,
	)
	if err != nil {
		return fmt.Errorf("update assignment %d: %w", a.ID, err)
	}
	return requireAffected(res, "assignment", a.ID)
}

func scanAssignment(s scanner) (*domain.Assignment, error) {
	var (
		a                   domain.Assignment
		class, state        string
		assignedAt          string
		startedAt, finished sql.NullString
	)
	if err := s.Scan(
		&a.ID, &a.RouteID, &a.DriverID, &class, &a.TruckLabel, &state, &assignedAt, &startedAt, &finished,
	); err != nil {
		return nil, err
	}

	var err error
	if a.AssignedAt, err = parseTime(assignedAt); err != nil {
		return nil, err
	}
	if a.StartedAt, err = parseTimePtr(startedAt); err != nil {
		return nil, err
	}
	if a.FinishedAt, err = parseTimePtr(finished); err != nil {
		return nil, err
	}
	a.TruckClass = domain.TruckClass(class)
	a.State = domain.AssignmentState(state)
	return &a, nil
}
