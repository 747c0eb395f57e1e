package dto

import (
	"collection-route-service/internal/domain"
	"time"
)

type RegisterDriverRequest struct {
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	LicenseClass   string `json:"license_class"`
	ZonePreference string `json:"zone_preference"`
}

type SetDriverStateRequest struct {
	State string `json:"state"`
}

type DriverResponse struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Phone          string    `json:"phone,omitempty"`
	LicenseClass   string    `json:"license_class,omitempty"`
	State          string    `json:"state"`
	ZonePreference string    `json:"zone_preference"`
	HiredAt        time.Time `json:"hired_at"`
}

type ListDriversResponse struct {
	Drivers []DriverResponse `json:"drivers"`
}

func NewDriverResponse(d *domain.Driver) DriverResponse {
	return DriverResponse{
		ID:             d.ID,
		Name:           d.Name,
		Phone:          d.Phone,
		LicenseClass:   d.LicenseClass,
		State:          string(d.State),
		ZonePreference: string(d.ZonePreference),
		HiredAt:        d.HiredAt,
	}
}
