package services

import (
	"collection-route-service/internal/domain"
	"collection-route-service/internal/ports"
	"context"
	"fmt"
	"strings"
	"time"
)

type NewDriver struct {
	Name           string
	Phone          string
	LicenseClass   string
	ZonePreference domain.ZonePreference
}

// DriverRegistry manages driver records. Busy is only ever set by starting an assignment.
type DriverRegistry struct {
	store ports.Store
	now   func() time.Time
}

func NewDriverRegistry(store ports.Store, now func() time.Time) *DriverRegistry {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &DriverRegistry{store: store, now: now}
}

func (r *DriverRegistry) RegisterDriver(ctx context.Context, req NewDriver) (*domain.Driver, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, &domain.ValidationError{Field: "name", Msg: "must not be empty"}
	}
	pref, err := domain.ParseZonePreference(string(req.ZonePreference))
	if err != nil {
		return nil, err
	}

	d := &domain.Driver{
		Name:           name,
		Phone:          strings.TrimSpace(req.Phone),
		LicenseClass:   strings.TrimSpace(req.LicenseClass),
		State:          domain.DriverAvailable,
		ZonePreference: pref,
		HiredAt:        r.now(),
	}
	if err := r.store.CreateDriver(ctx, d); err != nil {
		return nil, fmt.Errorf("register driver: %w", err)
	}
	return d, nil
}

// ListDrivers returns every driver, or only those in state when it is set.
func (r *DriverRegistry) ListDrivers(ctx context.Context, state domain.DriverState) ([]*domain.Driver, error) {
	return r.store.ListDrivers(ctx, state)
}

func (r *DriverRegistry) GetDriver(ctx context.Context, id int64) (*domain.Driver, error) {
	return r.store.GetDriver(ctx, id)
}

// SetDriverState toggles a driver between Available and Inactive.
func (r *DriverRegistry) SetDriverState(ctx context.Context, id int64, state domain.DriverState) (*domain.Driver, error) {
	if state != domain.DriverAvailable && state != domain.DriverInactive {
		return nil, &domain.ValidationError{Field: "state", Msg: "only available or inactive can be set directly"}
	}

	var d *domain.Driver
	err := r.store.InTx(ctx, func(q ports.Queries) error {
		var err error
		if d, err = q.GetDriver(ctx, id); err != nil {
			return err
		}
		if d.State == domain.DriverBusy {
			return domain.Conflictf("driver %d is busy", id)
		}
		d.State = state
		return q.UpdateDriver(ctx, d)
	})
	if err != nil {
		return nil, fmt.Errorf("set driver %d state: %w", id, err)
	}
	return d, nil
}
