package metrics

import (
	"net/http"
	"regexp"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP metrics. The method and code labels are filled in by promhttp, which
// lowercases well-known methods ("get", "delete").
var (
	HTTPRequestsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "code"},
	)

	HTTPRequestDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Current number of HTTP requests being processed",
		},
	)

	// 100B to 10MB
	HTTPResponseSize = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_response_size_bytes",
			Help:      "HTTP response body size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
		},
		[]string{"method", "path"},
	)
)

var pathParamPattern = regexp.MustCompile(`\{[^}/]+\}`)

// normalizePath collapses named path wildcards so every route pattern maps
// to a bounded set of label values.
func normalizePath(route string) string {
	if route == "" || route[0] != '/' {
		return route
	}
	return pathParamPattern.ReplaceAllString(route, "{param}")
}

// HTTPMiddleware records request metrics under the given route pattern
// rather than the raw request path. A handler that never calls WriteHeader
// is counted as 200.
func HTTPMiddleware(route string) func(http.Handler) http.Handler {
	path := prometheus.Labels{"path": normalizePath(route)}
	total := HTTPRequestsTotal.MustCurryWith(path)
	duration := HTTPRequestDuration.MustCurryWith(path)
	size := HTTPResponseSize.MustCurryWith(path)

	return func(next http.Handler) http.Handler {
		return promhttp.InstrumentHandlerInFlight(HTTPRequestsInFlight,
			promhttp.InstrumentHandlerDuration(duration,
				promhttp.InstrumentHandlerCounter(total,
					promhttp.InstrumentHandlerResponseSize(size, next),
				),
			),
		)
	}
}
