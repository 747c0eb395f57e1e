package handlers

import (
	"collection-route-service/internal/api/dto"
	"collection-route-service/internal/domain"
	"collection-route-service/internal/services"
	"context"
	"net/http"
)

type AssignmentHandler struct {
	Lifecycle *services.Lifecycle
}

func (h *AssignmentHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Lifecycle.StartAssignment)
}

func (h *AssignmentHandler) Finish(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Lifecycle.FinishAssignment)
}

func (h *AssignmentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Lifecycle.CancelAssignment)
}

func (h *AssignmentHandler) transition(w http.ResponseWriter, r *http.Request, fn func(context.Context, int64) (*domain.Assignment, error)) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	a, err := fn(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.NewAssignmentResponse(a))
}
