package middleware

import (
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/Togather-Foundation/social-events/internal/api"

// Tracing opens a server span for each request and continues any W3C trace
// context sent by the caller. Once the mux has matched a route the span is
// renamed to "METHOD pattern" so unbounded ids stay out of span names.
func Tracing(next http.Handler) http.Handler {
	tracer := otel.Tracer(tracerName)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parent := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := tracer.Start(parent, r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(requestAttributes(r)...),
		)
		defer span.End()

		if id := RequestID(ctx); id != "" {
			span.SetAttributes(attribute.String("request_id", id))
		}

		rec := newStatusRecorder(w)
		routed := r.WithContext(ctx)
		next.ServeHTTP(rec, routed)

		if routed.Pattern != "" {
			span.SetName(r.Method + " " + routed.Pattern)
			span.SetAttributes(semconv.HTTPRoute(routed.Pattern))
		}

		status := rec.Status()
		span.SetAttributes(semconv.HTTPStatusCode(status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
			return
		}
		span.SetStatus(codes.Ok, "")
	})
}

func requestAttributes(r *http.Request) []attribute.KeyValue {
	scheme := "http"
	switch {
	case r.TLS != nil:
		scheme = "https"
	case r.Header.Get("X-Forwarded-Proto") != "":
		scheme = r.Header.Get("X-Forwarded-Proto")
	}
	return []attribute.KeyValue{
		semconv.HTTPMethod(r.Method),
		semconv.HTTPURL(r.URL.String()),
		semconv.HTTPScheme(scheme),
		semconv.NetHostName(r.Host),
		attribute.String("http.user_agent", r.UserAgent()),
	}
}
