package handlers

import (
	"errors"
	"net/http"

	"github.com/Togather-Foundation/social-events/internal/api/problem"
	"github.com/Togather-Foundation/social-events/internal/domain/joined"
	"github.com/Togather-Foundation/social-events/internal/metrics"
	"github.com/go-playground/validator/v10"
)

type JoinedHandler struct {
	Service  *joined.Service
	Env      string
	validate *validator.Validate
}

func NewJoinedHandler(service *joined.Service, env string) *JoinedHandler {
	return &JoinedHandler{Service: service, Env: env, validate: validator.New()}
}

type joinResponse struct {
	Success    bool   `json:"success"`
	InsertedID string `json:"insertedId"`
}

type leaveResponse struct {
	Success      bool  `json:"success"`
	DeletedCount int64 `json:"deletedCount"`
}

func (h *JoinedHandler) Join(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerEmail(w, r, h.Env)
	if !ok {
		return
	}
	fields, ok := readDocument(w, r, h.Env)
	if !ok {
		return
	}

	id, err := h.Service.Join(r.Context(), caller, fields)
	if err != nil {
		h.writeError(w, r, "join", "Failed to join event", err)
		return
	}

	metrics.JoinedEventsTotal.WithLabelValues("join").Inc()
	writeJSON(w, http.StatusOK, joinResponse{Success: true, InsertedID: id.Value})
}

func (h *JoinedHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerEmail(w, r, h.Env)
	if !ok {
		return
	}
	email, ok := emailParam(w, r, h.validate, h.Env)
	if !ok {
		return
	}

	records, err := h.Service.List(r.Context(), caller, email)
	if err != nil {
		h.writeError(w, r, "list_joined", "Failed to load joined events", err)
		return
	}
	if records == nil {
		records = []joined.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *JoinedHandler) Delete(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerEmail(w, r, h.Env)
	if !ok {
		return
	}

	if err := h.Service.Leave(r.Context(), caller, r.PathValue("id")); err != nil {
		h.writeError(w, r, "leave", "Failed to delete joined event", err)
		return
	}

	metrics.JoinedEventsTotal.WithLabelValues("leave").Inc()
	writeJSON(w, http.StatusOK, leaveResponse{Success: true, DeletedCount: 1})
}

func (h *JoinedHandler) writeError(w http.ResponseWriter, r *http.Request, operation, fallback string, err error) {
	switch {
	case errors.Is(err, joined.ErrInvalidID):
		problem.Write(w, r, http.StatusBadRequest, "Invalid joined event id", err, h.Env)
	case errors.Is(err, joined.ErrNotFound):
		problem.Write(w, r, http.StatusNotFound, "Joined event not found", err, h.Env)
	case errors.Is(err, joined.ErrForbidden):
		metrics.OwnershipDenials.WithLabelValues(operation).Inc()
		problem.Write(w, r, http.StatusForbidden, msgForbidden, err, h.Env)
	default:
		problem.Write(w, r, http.StatusInternalServerError, fallback, err, h.Env)
	}
}
