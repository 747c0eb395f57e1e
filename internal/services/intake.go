package services

import (
	"collection-route-service/internal/domain"
	"collection-route-service/internal/platform/logger"
	"collection-route-service/internal/ports"
	"context"
	"fmt"
	"strings"
)

type NewIncident struct {
	Kind        string
	Severity    domain.Severity
	Description string
	Location    domain.Coordinates
	Zone        domain.Zone
}

// Intake handles field reports: creation, review and administrative cancellation.
// Validation hands the zone to the lifecycle for a threshold evaluation.
type Intake struct {
	store     ports.Store
	lifecycle *Lifecycle
	log       logger.Logger
}

func NewIntake(store ports.Store, lc *Lifecycle, log logger.Logger) *Intake {
	if log == nil {
		log = logger.Nop{}
	}
	return &Intake{store: store, lifecycle: lc, log: log}
}

func (in *Intake) Report(ctx context.Context, req NewIncident) (*domain.Incident, error) {
	if !req.Severity.Valid() {
		return nil, &domain.ValidationError{Field: "severity", Msg: fmt.Sprintf("must be 1, 3 or 5, got %d", req.Severity)}
	}
	zone, err := domain.ParseZone(string(req.Zone))
	if err != nil {
		return nil, err
	}
	kind := strings.TrimSpace(req.Kind)
	if kind == "" {
		kind = "general"
	}

	inc := &domain.Incident{
		Kind:        kind,
		Severity:    req.Severity,
		Description: strings.TrimSpace(req.Description),
		Location:    req.Location,
		Zone:        zone,
		State:       domain.IncidentPending,
		ReportedAt:  in.lifecycle.now(),
	}
	if err := in.store.CreateIncident(ctx, inc); err != nil {
		return nil, fmt.Errorf("report incident: %w", err)
	}
	in.log.Infof("incident %d reported in zone %s (severity %d)", inc.ID, inc.Zone, inc.Severity)
	return inc, nil
}

// Validate approves a pending incident and evaluates its zone.
// An evaluation failure is logged and left to the next check; the validation stands.
func (in *Intake) Validate(ctx context.Context, id int64) (*domain.Incident, *Evaluation, error) {
	now := in.lifecycle.now()

	var inc *domain.Incident
	err := in.store.InTx(ctx, func(q ports.Queries) error {
		var err error
		if inc, err = q.GetIncident(ctx, id); err != nil {
			return err
		}
		if inc.State != domain.IncidentPending || inc.ValidatedAt != nil {
			return domain.Conflictf("incident %d is %s and cannot be validated", id, inc.State)
		}
		inc.State = domain.IncidentValidated
		inc.ValidatedAt = &now
		return q.UpdateIncident(ctx, inc)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("validate incident %d: %w", id, err)
	}
	in.log.Infof("incident %d validated (zone %s, severity %d)", inc.ID, inc.Zone, inc.Severity)

	if inc.Severity >= domain.SeverityHigh {
		ev := domain.NewEvent(domain.EventCriticalIncident, inc.Zone, now)
		ev.IncidentID = inc.ID
		in.lifecycle.notify(ctx, ev)
	}

	eval, err := in.lifecycle.Evaluate(ctx, inc.Zone, inc)
	if err != nil {
		in.log.Errorf("incident %d: %v", inc.ID, err)
		return inc, nil, nil
	}

	// Generation may have moved the incident on.
	if fresh, err := in.store.GetIncident(ctx, id); err == nil {
		inc = fresh
	}
	return inc, &eval, nil
}

// Cancel moves any non-terminal incident to Cancelled.
func (in *Intake) Cancel(ctx context.Context, id int64) (*domain.Incident, error) {
	var inc *domain.Incident
	err := in.store.InTx(ctx, func(q ports.Queries) error {
		var err error
		if inc, err = q.GetIncident(ctx, id); err != nil {
			return err
		}
		if inc.State.Terminal() {
			return domain.Conflictf("incident %d is already %s", id, inc.State)
		}
		inc.State = domain.IncidentCancelled
		return q.UpdateIncident(ctx, inc)
	})
	if err != nil {
		return nil, fmt.Errorf("cancel incident %d: %w", id, err)
	}
	return inc, nil
}

func (in *Intake) Get(ctx context.Context, id int64) (*domain.Incident, error) {
	return in.store.GetIncident(ctx, id)
}

func (in *Intake) List(ctx context.Context, f ports.IncidentFilter) ([]*domain.Incident, error) {
	return in.store.ListIncidents(ctx, f)
}
