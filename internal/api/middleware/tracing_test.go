package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recordSpans(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	prevTP := otel.GetTracerProvider()
	prevProp := otel.GetTextMapPropagator()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})
	return exporter
}

func spanAttr(span tracetest.SpanStub, key attribute.Key) (attribute.Value, bool) {
	for _, attr := range span.Attributes {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracingSpanPerRequest(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		status     int
		wantName   string
		wantStatus codes.Code
	}{
		{name: "unrouted ok", method: http.MethodGet, path: "/events", status: http.StatusOK, wantName: "GET /events", wantStatus: codes.Ok},
		{name: "client error", method: http.MethodGet, path: "/events/64b7f9c2a1e4d3b2c1a09f8e", status: http.StatusNotFound, wantName: "GET /events/64b7f9c2a1e4d3b2c1a09f8e", wantStatus: codes.Ok},
		{name: "server error", method: http.MethodPost, path: "/joined", status: http.StatusInternalServerError, wantName: "POST /joined", wantStatus: codes.Error},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exporter := recordSpans(t)

			handler := Tracing(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.status, rec.Code)

			spans := exporter.GetSpans()
			require.Len(t, spans, 1)
			assert.Equal(t, tt.wantName, spans[0].Name)
			assert.Equal(t, tt.wantStatus, spans[0].Status.Code)

			method, ok := spanAttr(spans[0], "http.method")
			require.True(t, ok)
			assert.Equal(t, tt.method, method.AsString())

			status, ok := spanAttr(spans[0], "http.status_code")
			require.True(t, ok)
			assert.Equal(t, int64(tt.status), status.AsInt64())
		})
	}
}

func TestTracingUsesRoutePattern(t *testing.T) {
	exporter := recordSpans(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/manage-event/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodDelete, "/manage-event/64b7f9c2a1e4d3b2c1a09f8e", nil)
	Tracing(mux).ServeHTTP(httptest.NewRecorder(), req)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "DELETE /manage-event/{id}", spans[0].Name)

	route, ok := spanAttr(spans[0], "http.route")
	require.True(t, ok)
	assert.Equal(t, "/manage-event/{id}", route.AsString())
}

func TestTracingContinuesIncomingTrace(t *testing.T) {
	exporter := recordSpans(t)

	const traceID = "4bf92f3577b34da6a3ce929d0e0e4736"
	req := httptest.NewRequest(http.MethodGet, "/search?search=jazz", nil)
	req.Header.Set("traceparent", "00-"+traceID+"-00f067aa0ba902b7-01")

	Tracing(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).
		ServeHTTP(httptest.NewRecorder(), req)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, traceID, spans[0].SpanContext.TraceID().String())
	assert.True(t, spans[0].Parent.IsRemote())
}

func TestTracingRecordsRequestID(t *testing.T) {
	exporter := recordSpans(t)

	handler := CorrelationID(zerolog.Nop())(Tracing(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})))
	req := httptest.NewRequest(http.MethodGet, "/filter?type=Music", nil)
	req.Header.Set("X-Request-ID", "req-123")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	id, ok := spanAttr(spans[0], "request_id")
	require.True(t, ok)
	assert.Equal(t, "req-123", id.AsString())
}
