package handlers

import (
	"collection-route-service/internal/api/dto"
	"collection-route-service/internal/domain"
	"collection-route-service/internal/services"
	"net/http"
)

type DriverHandler struct {
	Drivers *services.DriverRegistry
}

func (h *DriverHandler) List(w http.ResponseWriter, r *http.Request) {
	var state domain.DriverState
	if raw := r.URL.Query().Get("state"); raw != "" {
		st, err := domain.ParseDriverState(raw)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		state = st
	}

	drivers, err := h.Drivers.ListDrivers(r.Context(), state)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	res := dto.ListDriversResponse{Drivers: make([]dto.DriverResponse, 0, len(drivers))}
	for _, d := range drivers {
		res.Drivers = append(res.Drivers, dto.NewDriverResponse(d))
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (h *DriverHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterDriverRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	d, err := h.Drivers.RegisterDriver(r.Context(), services.NewDriver{
		Name:           req.Name,
		Phone:          req.Phone,
		LicenseClass:   req.LicenseClass,
		ZonePreference: domain.ZonePreference(req.ZonePreference),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, dto.NewDriverResponse(d))
}

func (h *DriverHandler) SetState(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req dto.SetDriverStateRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	state, err := domain.ParseDriverState(req.State)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	d, err := h.Drivers.SetDriverState(r.Context(), id, state)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.NewDriverResponse(d))
}
