package repositories

import (
	"collection-route-service/internal/domain"
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const driverColumns = `id, name, phone, license_class, state, zone_preference, hired_at`

func (q *queries) CreateDriver(ctx context.Context, d *domain.Driver) error {
	id, err := q.insertReturningID(ctx, `
	INSERT INTO drivers (name, phone, license_class, state, zone_preference, hired_at)
	VALUES (?, ?, ?, ?, ?, ?)`,
		d.Name, d.Phone, d.LicenseClass, string(d.State), string(d.ZonePreference), fmtTime(d.HiredAt),
	)
	if err != nil {
		return fmt.Errorf("create driver: %w", err)
	}
	d.ID = id
	return nil
}

func (q *queries) GetDriver(ctx context.Context, id int64) (*domain.Driver, error) {
	d, err := scanDriver(q.queryRow(ctx, `SELECT `+driverColumns+` FROM drivers WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Entity: "driver", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get driver %d: %w", id, err)
	}
	return d, nil
}

// ListDrivers returns all drivers, or only those in state when it is non-empty.
func (q *queries) ListDrivers(ctx context.Context, state domain.DriverState) ([]*domain.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers`
	var args []any
	if state != "" {
		query += " WHERE state = ?"
		args = append(args, string(state))
	}
	query += " ORDER BY id"

	rows, err := q.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list drivers: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Driver, 0)
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, fmt.Errorf("list drivers: scan rows: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list drivers: row iteration: %w", err)
	}
	return out, nil
}

func (q *queries) UpdateDriver(ctx context.Context, d *domain.Driver) error {
	res, err := q.exec(ctx, `
	UPDATE drivers SET name = ?, phone = ?, license_class = ?, state = ?, zone_preference = ? WHERE id = ?`,
		d.Name, d.Phone, d.LicenseClass, string(d.State), string(d.ZonePreference), d.ID,
	)
	if err != nil {
		return fmt.Errorf("update driver %d: %w", d.ID, err)
	}
	return requireAffected(res, "driver", d.ID)
}

func scanDriver(s scanner) (*domain.Driver, error) {
	var (
		d                 domain.Driver
		state, preference string
		hiredAt           string
	)
	if err := s.Scan(&d.ID, &d.Name, &d.Phone, &d.LicenseClass, &state, &preference, &hiredAt); err != nil {
		return nil, err
	}
	t, err := parseTime(hiredAt)
	if err != nil {
		return nil, err
	}
	d.HiredAt = t
	d.State = domain.DriverState(state)
	d.ZonePreference = domain.ZonePreference(preference)
	return &d, nil
}
