package domain

import (
	"strings"
	"time"
)

type AssignmentState string

const (
	AssignmentAssigned  AssignmentState = "assigned"
	AssignmentStarted   AssignmentState = "started"
	AssignmentCompleted AssignmentState = "completed"
	AssignmentCancelled AssignmentState = "cancelled"
)

// Active reports whether the assignment still holds its driver and route.
func (s AssignmentState) Active() bool {
	return s == AssignmentAssigned || s == AssignmentStarted
}

// Binds a driver to one truck of a route.
type Assignment struct {
	ID         int64
	RouteID    int64
	DriverID   int64
	TruckClass TruckClass
	TruckLabel string
	State      AssignmentState
	AssignedAt time.Time
	StartedAt  *time.Time
	FinishedAt *time.Time
}

type DriverState string

const (
	DriverAvailable DriverState = "available"
	DriverBusy      DriverState = "busy"
	DriverInactive  DriverState = "inactive"
)

func ParseDriverState(s string) (DriverState, error) {
	switch st := DriverState(strings.ToLower(strings.TrimSpace(s))); st {
	case DriverAvailable, DriverBusy, DriverInactive:
		return st, nil
	}
	return "", &ValidationError{Field: "state", Msg: "unknown driver state " + s}
}

// ZonePreference is a single zone or "both".
type ZonePreference string

const PreferBoth ZonePreference = "both"

func ParseZonePreference(s string) (ZonePreference, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, string(PreferBoth)) {
		return PreferBoth, nil
	}
	z, err := ParseZone(s)
	if err != nil {
		return "", &ValidationError{Field: "zone_preference", Msg: "must be A, B or both"}
	}
	return ZonePreference(z), nil
}

func (p ZonePreference) Covers(z Zone) bool {
	return p == PreferBoth || Zone(p) == z
}

type Driver struct {
	ID             int64
	Name           string
	Phone          string
	LicenseClass   string
	State          DriverState
	ZonePreference ZonePreference
	HiredAt        time.Time
}
