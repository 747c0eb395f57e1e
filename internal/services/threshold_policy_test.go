package services

import (
	"testing"
)

func TestDecide(t *testing.T) {
	cases := []struct {
		name string
		in   PolicyInput
		want Decision
	}{
		{"at threshold", PolicyInput{Threshold: 20, ValidatedSum: 20}, DecisionNone},
		{"one above threshold", PolicyInput{Threshold: 20, ValidatedSum: 21}, DecisionGenerate},
		{"scenario A", PolicyInput{Threshold: 20, ValidatedSum: 25}, DecisionGenerate},
		{"scenario B", PolicyInput{Threshold: 20, ValidatedSum: 30}, DecisionGenerate},
		{"scenario D", PolicyInput{Threshold: 20, ValidatedSum: 18}, DecisionNone},
		{"critical trigger without planned route", PolicyInput{Threshold: 20, ValidatedSum: 5, TriggerSeverity: 5}, DecisionNone},
		{"planned, critical trigger", PolicyInput{Threshold: 20, HasPlannedRoute: true, OpenSum: 5, TriggerSeverity: 5}, DecisionRecalculate},
		{"planned, minor trigger", PolicyInput{Threshold: 20, HasPlannedRoute: true, ValidatedSum: 50, OpenSum: 30, TriggerSeverity: 3}, DecisionNone},
		{"planned, open sum at 1.5x", PolicyInput{Threshold: 20, HasPlannedRoute: true, OpenSum: 30}, DecisionNone},
		{"planned, open sum above 1.5x", PolicyInput{Threshold: 20, HasPlannedRoute: true, OpenSum: 31}, DecisionRecalculate},
		{"planned, odd threshold", PolicyInput{Threshold: 15, HasPlannedRoute: true, OpenSum: 23}, DecisionRecalculate},
		{"planned, odd threshold below", PolicyInput{Threshold: 15, HasPlannedRoute: true, OpenSum: 22}, DecisionNone},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Decide(tc.in); got != tc.want {
				t.Fatalf("Decide(%+v) = %s, want %s", tc.in, got, tc.want)
			}
		})
	}
}
