package handlers

import (
	"collection-route-service/internal/api/dto"
	"collection-route-service/internal/domain"
	"collection-route-service/internal/ports"
	"collection-route-service/internal/services"
	"net/http"
	"strings"
)

type RouteHandler struct {
	Lifecycle *services.Lifecycle
}

func (h *RouteHandler) List(w http.ResponseWriter, r *http.Request) {
	zone, ok := queryZone(w, r)
	if !ok {
		return
	}
	states, ok := queryStates(w, r, domain.ParseRouteState)
	if !ok {
		return
	}

	routes, err := h.Lifecycle.Routes(r.Context(), ports.RouteFilter{Zone: zone, States: states})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	res := dto.ListRoutesResponse{Routes: make([]dto.RouteResponse, 0, len(routes))}
	for _, rt := range routes {
		res.Routes = append(res.Routes, dto.NewRouteResponse(rt))
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (h *RouteHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	detail, err := h.Lifecycle.Route(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.NewRouteDetailResponse(detail))
}

func (h *RouteHandler) Assign(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req dto.AssignDriverRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	class, err := domain.ParseTruckClass(req.TruckClass)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	a, err := h.Lifecycle.AssignDriver(r.Context(), services.AssignRequest{
		RouteID:    id,
		DriverID:   req.DriverID,
		TruckClass: class,
		TruckLabel: strings.ToUpper(strings.TrimSpace(req.TruckLabel)),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, dto.NewAssignmentResponse(a))
}
