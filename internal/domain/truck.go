package domain

import (
	"fmt"
	"strings"
)

// TruckClass is the capacity tier of a collection truck.
type TruckClass string

const (
	TruckLateral TruckClass = "lateral"
	TruckRear    TruckClass = "rear"
)

// Capacity in severity points.
func (c TruckClass) Capacity() int {
	switch c {
	case TruckLateral:
		return 15
	case TruckRear:
		return 25
	}
	return 0
}

func (c TruckClass) Valid() bool { return c == TruckLateral || c == TruckRear }

// Label names the n-th truck of a route, e.g. "REAR-1".
func (c TruckClass) Label(n int) string {
	return fmt.Sprintf("%s-%d", strings.ToUpper(string(c)), n)
}

func ParseTruckClass(s string) (TruckClass, error) {
	c := TruckClass(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", &ValidationError{Field: "truck_class", Msg: fmt.Sprintf("unknown truck class %q", s)}
	}
	return c, nil
}

// A capacity-bounded group of incidents packed onto one truck.
type TruckLoad struct {
	Class     TruckClass
	Incidents []*Incident
	TotalLoad int
}

func NewTruckLoad(class TruckClass) *TruckLoad {
	return &TruckLoad{Class: class}
}

// Fits reports whether an incident of the given severity can still be added.
func (t *TruckLoad) Fits(s Severity) bool {
	return t.TotalLoad+int(s) <= t.Class.Capacity()
}

// Load a single incident onto the truck.
func (t *TruckLoad) Load(inc *Incident) error {
	if !t.Fits(inc.Severity) {
		return fmt.Errorf(
			"load truck: %s truck cannot take incident %d (load=%d severity=%d capacity=%d)",
			t.Class, inc.ID, t.TotalLoad, inc.Severity, t.Class.Capacity(),
		)
	}
	t.Incidents = append(t.Incidents, inc)
	t.TotalLoad += int(inc.Severity)
	return nil
}
