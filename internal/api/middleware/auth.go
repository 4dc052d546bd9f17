package middleware

import (
	"net/http"

	"github.com/Togather-Foundation/social-events/internal/api/problem"
	"github.com/Togather-Foundation/social-events/internal/auth"
	"github.com/Togather-Foundation/social-events/internal/metrics"
	"github.com/rs/zerolog"
)

const (
	msgTokenNotFound = "unauthorized access. Token not found"
	msgUnauthorized  = "unauthorized access."
)

// RequireAuth validates the bearer token on every request and attaches the
// verified identity to the request context.
func RequireAuth(verifier auth.Verifier, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil {
				metrics.AuthFailures.WithLabelValues("no_verifier").Inc()
				problem.Write(w, r, http.StatusUnauthorized, msgUnauthorized, auth.ErrInvalidToken, env)
				return
			}

			token, err := auth.TokenFromHeader(r.Header.Get("Authorization"))
			if err != nil || token == "" {
				metrics.AuthFailures.WithLabelValues("missing_token").Inc()
				problem.Write(w, r, http.StatusUnauthorized, msgTokenNotFound, auth.ErrMissingToken, env)
				return
			}

			identity, err := verifier.Verify(r.Context(), token)
			if err != nil || identity == nil || identity.Email == "" {
				if err == nil {
					err = auth.ErrInvalidToken
				}
				metrics.AuthFailures.WithLabelValues("invalid_token").Inc()
				problem.Write(w, r, http.StatusUnauthorized, msgUnauthorized, err, env)
				return
			}

			ctx := auth.WithIdentity(r.Context(), identity)
			ctx = zerolog.Ctx(ctx).With().Str("uid", identity.UID).Logger().WithContext(ctx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
