package handlers

import (
	"net/http"

	"github.com/teranga-events/server/internal/api/middleware"
	"github.com/teranga-events/server/internal/api/problem"
	"github.com/teranga-events/server/internal/domain/tickettypes"
)

type TicketTypesHandler struct {
	Service *tickettypes.Service
	Env     string
}

func NewTicketTypesHandler(service *tickettypes.Service, env string) *TicketTypesHandler {
	return &TicketTypesHandler{Service: service, Env: env}
}

func (h *TicketTypesHandler) Create(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathUUID(r, "eventID")
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}
	var params tickettypes.CreateParams
	if err := decodeJSON(r, &params); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	ticketType, err := h.Service.Create(r.Context(), middleware.ActorFromContext(r.Context()), eventID, params)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusCreated, ticketType)
}

func (h *TicketTypesHandler) List(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathUUID(r, "eventID")
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	listed, err := h.Service.ListForEvent(r.Context(), middleware.ActorFromContext(r.Context()), eventID)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": listed})
}

func (h *TicketTypesHandler) Get(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathUUID(r, "eventID")
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	ticketType, err := h.Service.Get(r.Context(), middleware.ActorFromContext(r.Context()), eventID, id)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, ticketType)
}

func (h *TicketTypesHandler) Update(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathUUID(r, "eventID")
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}
	var params tickettypes.UpdateParams
	if err := decodeJSON(r, &params); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	ticketType, err := h.Service.Update(r.Context(), middleware.ActorFromContext(r.Context()), eventID, id, params)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, ticketType)
}

func (h *TicketTypesHandler) Archive(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathUUID(r, "eventID")
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	ticketType, err := h.Service.Archive(r.Context(), middleware.ActorFromContext(r.Context()), eventID, id)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, ticketType)
}
