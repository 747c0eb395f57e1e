package services

import (
	"collection-route-service/internal/domain"
	"collection-route-service/internal/ports"
	"context"
	"fmt"
)

type Decision int

const (
	DecisionNone Decision = iota
	DecisionGenerate
	DecisionRecalculate
)

func (d Decision) String() string {
	switch d {
	case DecisionGenerate:
		return "generate"
	case DecisionRecalculate:
		return "recalculate"
	}
	return "none"
}

func (d Decision) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// PolicyInput is the snapshot a decision is taken on.
type PolicyInput struct {
	Threshold       int
	HasPlannedRoute bool
	ValidatedSum    int
	OpenSum         int
	TriggerSeverity domain.Severity
}

// Decide applies the threshold rules to one zone snapshot.
//
// Without a planned route only a validated sum strictly above the threshold generates.
// With one, a critical trigger or an open sum above 1.5x the threshold recalculates.
func Decide(in PolicyInput) Decision {
	if !in.HasPlannedRoute {
		if in.ValidatedSum > in.Threshold {
			return DecisionGenerate
		}
		return DecisionNone
	}

	// 2*sum > 3*threshold keeps 1.5x exact in integers.
	if in.TriggerSeverity >= domain.SeverityHigh || 2*in.OpenSum > 3*in.Threshold {
		return DecisionRecalculate
	}
	return DecisionNone
}

// ThresholdPolicy gathers a fresh snapshot for a zone and decides on it.
type ThresholdPolicy struct {
	Config ports.ConfigProvider
}

func NewThresholdPolicy(cfg ports.ConfigProvider) *ThresholdPolicy {
	return &ThresholdPolicy{Config: cfg}
}

// Snapshot reads the threshold and the zone sums. trigger may be nil.
func (p *ThresholdPolicy) Snapshot(ctx context.Context, q ports.Queries, zone domain.Zone, trigger *domain.Incident) (PolicyInput, error) {
	threshold, err := p.Config.SeverityThreshold(ctx)
	if err != nil {
		return PolicyInput{}, fmt.Errorf("threshold policy: %w", err)
	}

	planned, err := q.ListRoutes(ctx, ports.RouteFilter{Zone: zone, States: []domain.RouteState{domain.RoutePlanned}})
	if err != nil {
		return PolicyInput{}, fmt.Errorf("threshold policy: list planned routes: %w", err)
	}

	validated, err := SeveritySum(ctx, q, zone, domain.IncidentValidated)
	if err != nil {
		return PolicyInput{}, fmt.Errorf("threshold policy: %w", err)
	}
	open, err := SeveritySum(ctx, q, zone, domain.IncidentValidated, domain.IncidentAssigned)
	if err != nil {
		return PolicyInput{}, fmt.Errorf("threshold policy: %w", err)
	}

	in := PolicyInput{
		Threshold:       threshold,
		HasPlannedRoute: len(planned) > 0,
		ValidatedSum:    validated,
		OpenSum:         open,
	}
	if trigger != nil && trigger.Zone == zone {
		in.TriggerSeverity = trigger.Severity
	}
	return in, nil
}

func (p *ThresholdPolicy) Decide(ctx context.Context, q ports.Queries, zone domain.Zone, trigger *domain.Incident) (Decision, PolicyInput, error) {
	in, err := p.Snapshot(ctx, q, zone, trigger)
	if err != nil {
		return DecisionNone, in, err
	}
	return Decide(in), in, nil
}
