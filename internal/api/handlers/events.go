package handlers

import (
	"errors"
	"net/http"

	"github.com/Togather-Foundation/social-events/internal/api/problem"
	"github.com/Togather-Foundation/social-events/internal/domain/events"
	"github.com/Togather-Foundation/social-events/internal/metrics"
	"github.com/go-playground/validator/v10"
)

type EventsHandler struct {
	Service  *events.Service
	Env      string
	validate *validator.Validate
}

func NewEventsHandler(service *events.Service, env string) *EventsHandler {
	return &EventsHandler{Service: service, Env: env, validate: validator.New()}
}

type insertResponse struct {
	Acknowledged bool   `json:"acknowledged"`
	InsertedID   string `json:"insertedId"`
}

type deleteResponse struct {
	Acknowledged bool  `json:"acknowledged"`
	DeletedCount int64 `json:"deletedCount"`
}

type updateResponse struct {
	Success bool                `json:"success"`
	Result  events.UpdateResult `json:"result"`
}

func (h *EventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerEmail(w, r, h.Env)
	if !ok {
		return
	}
	fields, ok := readDocument(w, r, h.Env)
	if !ok {
		return
	}

	id, err := h.Service.Create(r.Context(), caller, fields)
	if err != nil {
		h.writeError(w, r, "create", "Failed to create event", err)
		return
	}

	metrics.EventsCreated.Inc()
	writeJSON(w, http.StatusOK, insertResponse{Acknowledged: true, InsertedID: id})
}

func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.List(r.Context())
	if err != nil {
		h.writeError(w, r, "list", "Failed to load events", err)
		return
	}
	writeEvents(w, items)
}

func (h *EventsHandler) Search(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.Search(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		h.writeError(w, r, "search", "Failed to search events", err)
		return
	}
	writeEvents(w, items)
}

func (h *EventsHandler) Filter(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.ByType(r.Context(), r.URL.Query().Get("type"))
	if err != nil {
		h.writeError(w, r, "filter", "Failed to filter events", err)
		return
	}
	writeEvents(w, items)
}

func (h *EventsHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.Service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, "get", "Failed to load event", err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *EventsHandler) Update(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerEmail(w, r, h.Env)
	if !ok {
		return
	}
	fields, ok := readDocument(w, r, h.Env)
	if !ok {
		return
	}

	result, err := h.Service.Update(r.Context(), caller, r.PathValue("id"), fields)
	if err != nil {
		h.writeError(w, r, "update", "Failed to update event", err)
		return
	}
	writeJSON(w, http.StatusOK, updateResponse{Success: true, Result: result})
}

func (h *EventsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerEmail(w, r, h.Env)
	if !ok {
		return
	}

	deleted, err := h.Service.Delete(r.Context(), caller, r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, "delete", "Failed to delete event", err)
		return
	}
	metrics.EventsDeleted.Add(float64(deleted))
	writeJSON(w, http.StatusOK, deleteResponse{Acknowledged: true, DeletedCount: deleted})
}

// Manage lists the caller's own events, newest date first.
func (h *EventsHandler) Manage(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerEmail(w, r, h.Env)
	if !ok {
		return
	}
	email, ok := emailParam(w, r, h.validate, h.Env)
	if !ok {
		return
	}

	items, err := h.Service.ListByCreator(r.Context(), caller, email)
	if err != nil {
		h.writeError(w, r, "manage", "Failed to load events", err)
		return
	}
	writeEvents(w, items)
}

func (h *EventsHandler) ManageDelete(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerEmail(w, r, h.Env)
	if !ok {
		return
	}
	email, ok := emailParam(w, r, h.validate, h.Env)
	if !ok {
		return
	}

	deleted, err := h.Service.DeleteManaged(r.Context(), caller, email, r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, "manage_delete", "Failed to delete event", err)
		return
	}
	metrics.EventsDeleted.Add(float64(deleted))
	writeJSON(w, http.StatusOK, deleteResponse{Acknowledged: true, DeletedCount: deleted})
}

func (h *EventsHandler) writeError(w http.ResponseWriter, r *http.Request, operation, fallback string, err error) {
	switch {
	case errors.Is(err, events.ErrInvalidID):
		problem.Write(w, r, http.StatusBadRequest, "Invalid event id", err, h.Env)
	case errors.Is(err, events.ErrNotFound):
		problem.Write(w, r, http.StatusNotFound, "Event not found", err, h.Env)
	case errors.Is(err, events.ErrForbidden):
		metrics.OwnershipDenials.WithLabelValues(operation).Inc()
		problem.Write(w, r, http.StatusForbidden, msgForbidden, err, h.Env)
	case errors.Is(err, events.ErrEmptyUpdate):
		problem.Write(w, r, http.StatusBadRequest, "No fields to update", err, h.Env)
	default:
		problem.Write(w, r, http.StatusInternalServerError, fallback, err, h.Env)
	}
}

func writeEvents(w http.ResponseWriter, items []events.Event) {
	if items == nil {
		items = []events.Event{}
	}
	writeJSON(w, http.StatusOK, items)
}
