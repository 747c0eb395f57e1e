package domain

import (
	"fmt"
	"strings"
	"time"
)

// Severity is the urgency weight attached to an incident.
type Severity int

const (
	SeverityLow    Severity = 1
	SeverityMedium Severity = 3
	SeverityHigh   Severity = 5
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}

// Zone is one of the disjoint geographic partitions with independent routing decisions.
type Zone string

const (
	ZoneA Zone = "A"
	ZoneB Zone = "B"
)

// Zones returns every known zone in a stable order.
func Zones() []Zone { return []Zone{ZoneA, ZoneB} }

func ParseZone(s string) (Zone, error) {
	switch z := Zone(strings.ToUpper(strings.TrimSpace(s))); z {
	case ZoneA, ZoneB:
		return z, nil
	}
	return "", &ValidationError{Field: "zone", Msg: fmt.Sprintf("unknown zone %q", s)}
}

type IncidentState string

const (
	IncidentPending   IncidentState = "pending"
	IncidentValidated IncidentState = "validated"
	IncidentAssigned  IncidentState = "assigned"
	IncidentCompleted IncidentState = "completed"
	IncidentCancelled IncidentState = "cancelled"
)

func ParseIncidentState(s string) (IncidentState, error) {
	switch st := IncidentState(strings.ToLower(strings.TrimSpace(s))); st {
	case IncidentPending, IncidentValidated, IncidentAssigned, IncidentCompleted, IncidentCancelled:
		return st, nil
	}
	return "", &ValidationError{Field: "state", Msg: fmt.Sprintf("unknown incident state %q", s)}
}

// Terminal reports whether no further transition is allowed.
func (s IncidentState) Terminal() bool {
	return s == IncidentCompleted || s == IncidentCancelled
}

// Represents a field report of accumulated waste awaiting collection.
// ValidatedAt survives a recalculation release so that a Pending incident
// which was already reviewed stays eligible for the next generation.
type Incident struct {
	ID          int64
	Kind        string
	Severity    Severity
	Description string
	Location    Coordinates
	Zone        Zone
	State       IncidentState
	ReportedAt  time.Time
	ValidatedAt *time.Time
}

// Eligible reports whether the incident belongs to the generation pool of its zone.
func (i *Incident) Eligible() bool {
	switch i.State {
	case IncidentValidated:
		return true
	case IncidentPending:
		return i.ValidatedAt != nil
	}
	return false
}
