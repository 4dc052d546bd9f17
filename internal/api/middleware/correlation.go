package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const requestIDHeader = "X-Request-ID"

// Longer inbound ids are replaced rather than echoed into logs.
const maxRequestIDLength = 128

type requestIDKey struct{}

// CorrelationID tags every request with an id, taken from X-Request-ID when
// a proxy already assigned one. The id is echoed in the response and attached
// to the request-scoped zerolog logger as request_id.
func CorrelationID(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestIDHeader)
			if id == "" || len(id) > maxRequestIDLength {
				id = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, id)

			scoped := logger.With().Str("request_id", id).Logger()
			ctx := scoped.WithContext(context.WithValue(r.Context(), requestIDKey{}, id))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestID returns the id CorrelationID stored in ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
