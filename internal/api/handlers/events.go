package handlers

import (
	"net/http"
	"time"

	"github.com/teranga-events/server/internal/api/middleware"
	"github.com/teranga-events/server/internal/api/problem"
	"github.com/teranga-events/server/internal/domain/events"
	"github.com/teranga-events/server/internal/metrics"
)

type EventsHandler struct {
	Service *events.Service
	Env     string
}

func NewEventsHandler(service *events.Service, env string) *EventsHandler {
	return &EventsHandler{Service: service, Env: env}
}

func (h *EventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	orgID, err := pathUUID(r, "id")
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}
	var params events.CreateEventParams
	if err := decodeJSON(r, &params); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	event, err := h.Service.CreateEvent(r.Context(), middleware.ActorFromContext(r.Context()), orgID, params)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// List is the public discovery listing: published events only.
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r)
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	listed, err := h.Service.ListPublic(r.Context(), filter)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": listed})
}

func (h *EventsHandler) ListForOrg(w http.ResponseWriter, r *http.Request) {
	orgID, err := pathUUID(r, "id")
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	listed, err := h.Service.ListForOrg(r.Context(), middleware.ActorFromContext(r.Context()), orgID)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": listed})
}

func (h *EventsHandler) Get(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathUUID(r, "id")
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	event, err := h.Service.GetEvent(r.Context(), middleware.ActorFromContext(r.Context()), eventID)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (h *EventsHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	event, err := h.Service.GetEventBySlug(r.Context(), middleware.ActorFromContext(r.Context()), r.PathValue("slug"))
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (h *EventsHandler) Update(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathUUID(r, "id")
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}
	var params events.UpdateEventParams
	if err := decodeJSON(r, &params); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	event, err := h.Service.UpdateEvent(r.Context(), middleware.ActorFromContext(r.Context()), eventID, params)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (h *EventsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathUUID(r, "id")
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	if err := h.Service.DeleteEvent(r.Context(), middleware.ActorFromContext(r.Context()), eventID); err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *EventsHandler) Publish(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathUUID(r, "id")
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	event, err := h.Service.PublishEvent(r.Context(), middleware.ActorFromContext(r.Context()), eventID)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	metrics.EventsPublished.Inc()
	writeJSON(w, http.StatusOK, event)
}

func (h *EventsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathUUID(r, "id")
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	event, err := h.Service.CancelEvent(r.Context(), middleware.ActorFromContext(r.Context()), eventID)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	metrics.EventsCanceled.Inc()
	writeJSON(w, http.StatusOK, event)
}

func parseListFilter(r *http.Request) (events.ListFilter, error) {
	query := r.URL.Query()
	filter := events.ListFilter{
		Category: events.Category(query.Get("category")),
		City:     query.Get("city"),
		Query:    query.Get("q"),
	}

	if raw := query.Get("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return events.ListFilter{}, err
		}
		filter.From = from
	}
	if raw := query.Get("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return events.ListFilter{}, err
		}
		filter.To = to
	}
	return filter, nil
}
