package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/Togather-Foundation/social-events/internal/api/problem"
	"github.com/Togather-Foundation/social-events/internal/auth"
	"github.com/Togather-Foundation/social-events/internal/domain/document"
	"github.com/go-playground/validator/v10"
)

const (
	msgUnauthorized = "unauthorized access."
	msgForbidden    = "Forbidden access"
	msgInvalidBody  = "Invalid request body"
	msgBodyTooLarge = "Request body too large"
	msgInvalidEmail = "Invalid email"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// callerEmail returns the verified email attached by the bearer middleware.
// It writes a 401 and returns false when the request carries no identity.
func callerEmail(w http.ResponseWriter, r *http.Request, env string) (string, bool) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || identity.Email == "" {
		problem.Write(w, r, http.StatusUnauthorized, msgUnauthorized, auth.ErrMissingToken, env)
		return "", false
	}
	return identity.Email, true
}

// readDocument decodes the request body as a JSON object, writing a 4xx on
// failure.
func readDocument(w http.ResponseWriter, r *http.Request, env string) (document.Fields, bool) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			problem.Write(w, r, http.StatusRequestEntityTooLarge, msgBodyTooLarge, err, env)
			return nil, false
		}
		problem.Write(w, r, http.StatusBadRequest, msgInvalidBody, err, env)
		return nil, false
	}
	fields, err := document.Decode(data)
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, msgInvalidBody, err, env)
		return nil, false
	}
	return fields, true
}

// emailParam reads the optional ?email= query parameter. An empty value is
// allowed; anything else must be a well-formed address.
func emailParam(w http.ResponseWriter, r *http.Request, v *validator.Validate, env string) (string, bool) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		return "", true
	}
	if err := v.Var(email, "email"); err != nil {
		problem.Write(w, r, http.StatusBadRequest, msgInvalidEmail, err, env)
		return "", false
	}
	return email, true
}
