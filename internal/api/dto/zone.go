package dto

import (
	"collection-route-service/internal/domain"
	"collection-route-service/internal/services"
)

type SeverityResponse struct {
	Zone            string `json:"zone"`
	Threshold       int    `json:"threshold"`
	ValidatedSum    int    `json:"validated_sum"`
	OpenSum         int    `json:"open_sum"`
	HasPlannedRoute bool   `json:"has_planned_route"`
}

type EvaluationResponse struct {
	SeverityResponse
	Decision   string              `json:"decision"`
	Generation *GenerationResponse `json:"generation,omitempty"`
}

type RecalculateRequest struct {
	Reason string `json:"reason"`
}

type ThresholdRequest struct {
	Threshold int `json:"threshold"`
}

type ThresholdResponse struct {
	Threshold int `json:"threshold"`
}

func NewSeverityResponse(zone domain.Zone, in services.PolicyInput) SeverityResponse {
	return SeverityResponse{
		Zone:            string(zone),
		Threshold:       in.Threshold,
		ValidatedSum:    in.ValidatedSum,
		OpenSum:         in.OpenSum,
		HasPlannedRoute: in.HasPlannedRoute,
	}
}

func NewEvaluationResponse(ev services.Evaluation) *EvaluationResponse {
	res := &EvaluationResponse{
		SeverityResponse: NewSeverityResponse(ev.Zone, ev.Input),
		Decision:         ev.Decision.String(),
	}
	if ev.Generation != nil {
		res.Generation = NewGenerationResponse(*ev.Generation)
	}
	return res
}
