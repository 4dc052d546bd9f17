package problem

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
)

const contentType = "application/json; charset=utf-8"

// Envelope is the body of every error response.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

type Option func(*Envelope)

func WithDetail(detail string) Option {
	return func(e *Envelope) {
		e.Detail = detail
	}
}

// Write logs err through the request logger and sends a failure envelope.
// err.Error() is only exposed as detail in development and test.
func Write(w http.ResponseWriter, r *http.Request, status int, message string, err error, env string, opts ...Option) {
	envelope := Envelope{
		Success: false,
		Message: message,
	}

	for _, opt := range opts {
		opt(&envelope)
	}

	if envelope.Detail == "" && err != nil && (env == "development" || env == "test") {
		envelope.Detail = err.Error()
	}

	if err != nil && r != nil {
		logger := zerolog.Ctx(r.Context())
		var event *zerolog.Event
		switch {
		case status >= 500:
			// Server errors at error level
			event = logger.Error()
		case status >= 400:
			// Client errors at warn level
			event = logger.Warn()
		}
		if event != nil {
			event.
				Err(err).
				Int("status", status).
				Str("path", r.URL.Path).
				Str("method", r.Method).
				Msg(message)
		}
	}

	WriteEnvelope(w, status, envelope)
}

func WriteEnvelope(w http.ResponseWriter, status int, envelope Envelope) {
	payload, err := json.Marshal(envelope)
	if err != nil {
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"message":"Internal Server Error"}`))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}
